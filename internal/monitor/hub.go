package monitor

import (
	"sync"
	"time"

	"github.com/RuneMirror/RuneMirror/internal/follower"
	"github.com/RuneMirror/RuneMirror/pkg/protocol"
)

// Side - сторона, на которой произошло событие.
type Side string

const (
	SideLeader   Side = "leader"
	SideFollower Side = "follower"
)

// FeedEvent - строка живой ленты /ws.
type FeedEvent struct {
	At   time.Time `json:"at"`
	Side Side      `json:"side"`
	Node string    `json:"node,omitempty"`
	Seq  uint64    `json:"seq"`
	Tick int       `json:"tick"`
	Type string    `json:"type"`

	// Лидер: скольким ведомым ушло.
	Delivered *int `json:"delivered,omitempty"`

	// Ведомый: исход исполнения.
	Outcome string `json:"outcome,omitempty"`
	Via     string `json:"via,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

const subscriberBuffer = 100

// Hub занимается только рассылкой событий подписчикам
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	// Мапа: ID подписчика -> Личный канал
	subscribers map[uint64]chan FeedEvent
	// Node подставляется в события, если у них нет своего.
	Node string
	now  func() time.Time
}

func NewHub(node string) *Hub {
	return &Hub{
		subscribers: make(map[uint64]chan FeedEvent),
		Node:        node,
		now:         time.Now,
	}
}

// Subscribe создает личный канал подписчика
func (h *Hub) Subscribe() (uint64, <-chan FeedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	ch := make(chan FeedEvent, subscriberBuffer)
	h.subscribers[h.nextID] = ch
	return h.nextID, ch
}

// Unsubscribe удаляет подписчика и закрывает его канал
func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Publish отправляет всем. Медленный подписчик теряет события, а не тормозит симуляцию.
func (h *Hub) Publish(e FeedEvent) {
	if e.At.IsZero() {
		e.At = h.now()
	}
	if e.Node == "" {
		e.Node = h.Node
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}

// SubscriberCount возвращает количество активных подписчиков.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close закрывает все каналы: writePump'ы отправят CloseMessage и выйдут.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Emitted - leader.Recorder.
func (h *Hub) Emitted(m protocol.Message, delivered int) {
	d := delivered
	h.Publish(FeedEvent{
		Side:      SideLeader,
		Seq:       m.Seq,
		Tick:      m.Tick,
		Type:      m.Kind().String(),
		Delivered: &d,
	})
}

// Observe - follower.Observer.
func (h *Hub) Observe(e follower.Event) {
	fe := FeedEvent{
		Side:    SideFollower,
		Seq:     e.Seq,
		Tick:    e.Tick,
		Type:    e.Type,
		Outcome: e.Outcome.String(),
		Via:     e.Via,
		Detail:  e.Detail,
	}
	if e.Err != nil {
		fe.Error = e.Err.Error()
	}
	h.Publish(fe)
}
