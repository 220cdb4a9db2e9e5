package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Leader.Enabled || cfg.Follower.Enabled {
		t.Error("both sides must be disabled by default")
	}
	if cfg.Leader.ConnectTimeout != 200*time.Millisecond {
		t.Errorf("connect timeout = %v, want 200ms", cfg.Leader.ConnectTimeout)
	}
	if cfg.Leader.Targets != "127.0.0.1:46001" {
		t.Errorf("targets = %q", cfg.Leader.Targets)
	}
	if cfg.Follower.Port != 46001 {
		t.Errorf("port = %d, want 46001", cfg.Follower.Port)
	}
	if cfg.Follower.MaxTickLag != 1 {
		t.Errorf("max tick lag = %d, want 1", cfg.Follower.MaxTickLag)
	}
	if !cfg.Leader.Reconnect {
		t.Error("reconnect must be on by default")
	}
	if cfg.Monitor.Addr != "" || cfg.Journal.Dir != "" {
		t.Error("monitor and journal must be off by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RUNEMIRROR_FOLLOWER_ENABLED", "true")
	t.Setenv("RUNEMIRROR_FOLLOWER_MAX_TICK_LAG", "3")
	t.Setenv("RUNEMIRROR_LEADER_CONNECT_TIMEOUT", "1s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Follower.Enabled || cfg.Follower.MaxTickLag != 3 {
		t.Errorf("unexpected follower config %+v", cfg.Follower)
	}
	if cfg.Leader.ConnectTimeout != time.Second {
		t.Errorf("connect timeout = %v", cfg.Leader.ConnectTimeout)
	}
}

func TestLoadError(t *testing.T) {
	t.Setenv("RUNEMIRROR_FOLLOWER_PORT", "not-an-int")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadRejectsNegativeLag(t *testing.T) {
	t.Setenv("RUNEMIRROR_FOLLOWER_MAX_TICK_LAG", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative lag")
	}
}

// Одна битая запись не мешает остальным.
func TestParseTargetsSkipsMalformedEntries(t *testing.T) {
	targets, err := ParseTargets(" 127.0.0.1:46001, nohost, 10.0.0.2:abc ,, :46003, [::1]:46004, 10.0.0.5:70000 ")

	want := []Target{
		{Host: "127.0.0.1", Port: 46001},
		{Host: "::1", Port: 46004},
	}
	if len(targets) != len(want) {
		t.Fatalf("got %d targets (%v), want %d", len(targets), targets, len(want))
	}
	for i := range want {
		if targets[i] != want[i] {
			t.Errorf("target[%d] = %v, want %v", i, targets[i], want[i])
		}
	}

	if !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	for _, bad := range []string{"nohost", "10.0.0.2:abc", ":46003", "10.0.0.5:70000"} {
		if !strings.Contains(err.Error(), bad) {
			t.Errorf("error must mention %q: %v", bad, err)
		}
	}

	if targets[1].Address() != "[::1]:46004" {
		t.Errorf("ipv6 address = %q", targets[1].Address())
	}
}

func TestParseTargetsEmpty(t *testing.T) {
	targets, err := ParseTargets("  ")
	if err != nil || len(targets) != 0 {
		t.Errorf("expected nothing, got %v, %v", targets, err)
	}
}

func TestReadTargetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets")
	content := "# ведомые\n127.0.0.1:46001\n\n  10.0.0.2:46002, 10.0.0.3:46003 \n#10.0.0.9:46009\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	raw, err := ReadTargetsFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	targets, err := ParseTargets(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	if len(targets) != 3 || targets[2] != (Target{Host: "10.0.0.3", Port: 46003}) {
		t.Errorf("targets = %v", targets)
	}
}

func TestResolveTargets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets")
	if err := os.WriteFile(path, []byte("10.0.0.7:46007\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     Leader
		want    string
		wantErr bool
	}{
		{name: "inline", cfg: Leader{Targets: "127.0.0.1:46001"}, want: "127.0.0.1:46001"},
		{name: "file wins", cfg: Leader{Targets: "127.0.0.1:46001", TargetsFile: path}, want: "10.0.0.7:46007"},
		{name: "missing file", cfg: Leader{TargetsFile: filepath.Join(dir, "nope")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.ResolveTargets()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadTargetsFileFromEnv(t *testing.T) {
	t.Setenv("RUNEMIRROR_LEADER_TARGETS_FILE", "/etc/runemirror/targets")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Leader.TargetsFile != "/etc/runemirror/targets" {
		t.Errorf("targets file = %q", cfg.Leader.TargetsFile)
	}
}
