package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/RuneMirror/RuneMirror/internal/follower"
	"github.com/RuneMirror/RuneMirror/internal/journal"
	"github.com/RuneMirror/RuneMirror/pkg/protocol"
	"github.com/google/uuid"
)

func TestDumpAndStats(t *testing.T) {
	s := journal.NewSession(uuid.New(), journal.RoleLeader)
	s.Emitted(protocol.New(1, 3, protocol.Continue{}), 2)
	s.Emitted(protocol.New(2, 4, protocol.Continue{}), 0)

	var buf bytes.Buffer
	dump(&buf, s)
	out := buf.String()
	if !strings.Contains(out, "role=leader") || strings.Count(out, "DIALOG_CONTINUE") < 2 || !strings.Contains(out, "delivered=2") {
		t.Errorf("dump = %s", out)
	}

	buf.Reset()
	stats(&buf, s)
	if out := buf.String(); !strings.Contains(out, "DIALOG_CONTINUE") || !strings.Contains(out, "undelivered") {
		t.Errorf("stats = %s", out)
	}

	f := journal.NewSession(uuid.New(), journal.RoleFollower)
	f.Observe(follower.Event{Seq: 1, Kind: protocol.KindContinue, Outcome: follower.OutcomeContinueKey})
	buf.Reset()
	stats(&buf, f)
	if out := buf.String(); !strings.Contains(out, "DIALOG_CONTINUE CONTINUE_KEY") || strings.Contains(out, "undelivered") {
		t.Errorf("stats = %s", out)
	}
}
