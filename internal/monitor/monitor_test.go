package monitor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/RuneMirror/RuneMirror/internal/follower"
	"github.com/RuneMirror/RuneMirror/pkg/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeTick int

func (f fakeTick) CurrentTick() int { return int(f) }

type fakeListener follower.State

func (f fakeListener) State() follower.State { return follower.State(f) }

type fakeReceiver struct {
	on bool
	c  follower.Counters
}

func (f fakeReceiver) Counters() follower.Counters { return f.c }
func (f fakeReceiver) Enabled() bool               { return f.on }

type fakeTargets []string

func (f fakeTargets) Live() []string { return f }

type fakeSession struct {
	id  uuid.UUID
	seq uint64
}

func (f fakeSession) SessionID() uuid.UUID { return f.id }
func (f fakeSession) Seq() uint64          { return f.seq }
func (f fakeSession) Enabled() bool        { return true }

func newTestServer(t *testing.T, hub *Hub, src Sources) *httptest.Server {
	t.Helper()
	log, _ := test.NewNullLogger()
	srv := New("127.0.0.1:0", hub, src, logrus.NewEntry(log))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return ts
}

func TestHubPublish(t *testing.T) {
	hub := NewHub("n1")
	id, ch := hub.Subscribe()
	_, other := hub.Subscribe()

	hub.Emitted(protocol.New(7, 40, protocol.Continue{}), 2)

	for _, c := range []<-chan FeedEvent{ch, other} {
		select {
		case e := <-c:
			if e.Side != SideLeader || e.Seq != 7 || e.Tick != 40 || e.Type != "DIALOG_CONTINUE" || e.Node != "n1" {
				t.Errorf("event = %+v", e)
			}
			if e.Delivered == nil || *e.Delivered != 2 {
				t.Errorf("delivered = %v", e.Delivered)
			}
		default:
			t.Fatal("event was not delivered")
		}
	}

	hub.Unsubscribe(id)
	hub.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	if hub.SubscriberCount() != 1 {
		t.Errorf("subscribers = %d, want 1", hub.SubscriberCount())
	}
}

// Переполненный подписчик теряет события, Publish не блокируется.
func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub("")
	_, ch := hub.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.Observe(follower.Event{Seq: uint64(i), Outcome: follower.OutcomeExecuted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
}

func TestHealthAndVersion(t *testing.T) {
	ts := newTestServer(t, NewHub("n1"), Sources{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("health = %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	resp, err = http.Get(ts.URL + "/version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	defer resp.Body.Close()
	var info struct {
		ProtocolVersion int `json:"protocol_version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.ProtocolVersion != protocol.Version {
		t.Errorf("protocol_version = %d", info.ProtocolVersion)
	}
}

func TestStatus(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name         string
		src          Sources
		wantLeader   bool
		wantFollower bool
	}{
		{name: "empty node"},
		{
			name: "leader",
			src: Sources{
				Clock:   fakeTick(12),
				Session: fakeSession{id: id, seq: 5},
				Targets: fakeTargets{"127.0.0.1:46001"},
			},
			wantLeader: true,
		},
		{
			name: "follower",
			src: Sources{
				Clock:    fakeTick(12),
				Listener: fakeListener(follower.StateConnected),
				Receiver: fakeReceiver{on: true, c: follower.Counters{Accepted: 3, Stale: 1}},
			},
			wantFollower: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, NewHub("n1"), tt.src)

			resp, err := http.Get(ts.URL + "/debug/status")
			if err != nil {
				t.Fatalf("status: %v", err)
			}
			defer resp.Body.Close()

			var st Status
			if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if st.Node != "n1" {
				t.Errorf("node = %q", st.Node)
			}
			if (st.Leader != nil) != tt.wantLeader || (st.Follower != nil) != tt.wantFollower {
				t.Fatalf("status = %+v", st)
			}
			if tt.wantLeader {
				if st.Tick != 12 || st.Leader.Seq != 5 || st.Leader.SessionID != id.String() || len(st.Leader.Live) != 1 {
					t.Errorf("leader = %+v", st.Leader)
				}
			}
			if tt.wantFollower {
				f := st.Follower
				if f.State != "CONNECTED" || !f.Enabled || f.Counters.Accepted != 3 || f.Counters.Stale != 1 {
					t.Errorf("follower = %+v", f)
				}
			}
		})
	}
}

func TestFeedStreamsEvents(t *testing.T) {
	hub := NewHub("f1")
	ts := newTestServer(t, hub, Sources{})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Observe(follower.Event{
		Seq:     4,
		Tick:    41,
		Type:    "WALK_WORLD",
		Outcome: follower.OutcomeDiscarded,
		Err:     errors.New("out of scene"),
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got FeedEvent
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Side != SideFollower || got.Seq != 4 || got.Outcome != "DISCARDED" || got.Error != "out of scene" || got.Node != "f1" {
		t.Errorf("event = %+v", got)
	}

	// Закрытие хаба закрывает ленту.
	hub.Close()
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNoStatusReceived) {
		if err == nil {
			t.Error("expected feed to close")
		}
	}
}
