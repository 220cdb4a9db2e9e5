package journal

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/RuneMirror/RuneMirror/internal/follower"
	"github.com/RuneMirror/RuneMirror/pkg/protocol"
	"github.com/google/uuid"
)

// Role - чей это журнал.
type Role uint8

const (
	RoleLeader Role = iota + 1
	RoleFollower
)

func (r Role) String() string {
	switch r {
	case RoleLeader:
		return "leader"
	case RoleFollower:
		return "follower"
	}
	return "unknown"
}

// Direction - отправленное лидером или исполненное ведомым.
type Direction uint8

const (
	DirOut Direction = iota + 1
	DirIn
)

// Entry - одна запись журнала.
type Entry struct {
	At        time.Time
	Tick      int
	Seq       uint64
	Direction Direction
	Kind      protocol.Kind
	// Outcome имеет смысл только для DirIn.
	Outcome follower.Outcome
	// Для DirOut - строка протокола, для DirIn - событие в JSON.
	Payload json.RawMessage
	// Delivered - скольким ведомым ушла строка (DirOut).
	Delivered int
}

// Session - журнал одной сессии зеркалирования.
// Реализует leader.Recorder и follower.Observer.
type Session struct {
	ID      uuid.UUID
	Role    Role
	Started time.Time

	mu      sync.Mutex
	entries []Entry

	now func() time.Time
}

func NewSession(id uuid.UUID, role Role) *Session {
	return &Session{
		ID:      id,
		Role:    role,
		Started: time.Now(),
		now:     time.Now,
	}
}

// Emitted записывает отправленное сообщение.
func (s *Session) Emitted(m protocol.Message, delivered int) {
	line, err := protocol.Encode(m)
	if err != nil {
		return
	}
	s.append(Entry{
		At:        s.now(),
		Tick:      m.Tick,
		Seq:       m.Seq,
		Direction: DirOut,
		Kind:      m.Kind(),
		Payload:   line,
		Delivered: delivered,
	})
}

// Observe записывает исход исполнения на ведомом.
func (s *Session) Observe(e follower.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	s.append(Entry{
		At:        s.now(),
		Tick:      e.Tick,
		Seq:       e.Seq,
		Direction: DirIn,
		Kind:      e.Kind,
		Outcome:   e.Outcome,
		Payload:   payload,
	})
}

// Entries - копия записей.
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Session) append(e Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}
