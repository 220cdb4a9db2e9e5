package monitor

import (
	"encoding/json"
	"net/http"

	"github.com/RuneMirror/RuneMirror/internal/follower"
	"github.com/google/uuid"
)

// Источники состояния для /debug/status. Любой может быть nil:
// узел-лидер не имеет слушателя, ведомый - рассыльщика.
type (
	ListenerSource interface {
		State() follower.State
	}
	TargetSource interface {
		Live() []string
	}
	SessionSource interface {
		SessionID() uuid.UUID
		Seq() uint64
		Enabled() bool
	}
	ReceiverSource interface {
		Counters() follower.Counters
		Enabled() bool
	}
	TickSource interface {
		CurrentTick() int
	}
)

// Sources - всё, что монитор умеет показывать.
type Sources struct {
	Clock    TickSource
	Listener ListenerSource
	Receiver ReceiverSource
	Targets  TargetSource
	Session  SessionSource
}

// LeaderStatus - состояние стороны лидера.
type LeaderStatus struct {
	Enabled   bool     `json:"enabled"`
	SessionID string   `json:"session_id"`
	Seq       uint64   `json:"seq"`
	Live      []string `json:"live_targets"`
}

// FollowerStatus - состояние стороны ведомого.
type FollowerStatus struct {
	Enabled  bool              `json:"enabled"`
	State    string            `json:"state"`
	Counters follower.Counters `json:"counters"`
}

// Status - ответ /debug/status.
type Status struct {
	Node        string          `json:"node"`
	Tick        int             `json:"tick"`
	Subscribers int             `json:"subscribers"`
	Leader      *LeaderStatus   `json:"leader,omitempty"`
	Follower    *FollowerStatus `json:"follower,omitempty"`
}

func (s *Server) status() Status {
	st := Status{
		Node:        s.hub.Node,
		Subscribers: s.hub.SubscriberCount(),
	}
	src := s.sources

	if src.Clock != nil {
		st.Tick = src.Clock.CurrentTick()
	}

	if src.Session != nil || src.Targets != nil {
		ls := &LeaderStatus{Live: []string{}}
		if src.Session != nil {
			ls.Enabled = src.Session.Enabled()
			ls.SessionID = src.Session.SessionID().String()
			ls.Seq = src.Session.Seq()
		}
		if src.Targets != nil {
			ls.Live = append(ls.Live, src.Targets.Live()...)
		}
		st.Leader = ls
	}

	if src.Listener != nil || src.Receiver != nil {
		fs := &FollowerStatus{State: follower.StateStopped.String()}
		if src.Listener != nil {
			fs.State = src.Listener.State().String()
		}
		if src.Receiver != nil {
			fs.Enabled = src.Receiver.Enabled()
			fs.Counters = src.Receiver.Counters()
		}
		st.Follower = fs
	}

	return st
}

// /debug/status - состояние узла: слушатель, счётчики приёма, живые цели
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.status())
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if data == nil {
		w.Write([]byte("{}"))
		return
	}

	json.NewEncoder(w).Encode(data)
}
