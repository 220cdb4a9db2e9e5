package follower

import (
	"github.com/RuneMirror/RuneMirror/pkg/protocol"
)

// Outcome - чем закончилась обработка сообщения на ведомом.
type Outcome uint8

const (
	OutcomeExecuted Outcome = iota
	OutcomeDiscarded
	OutcomeWalkIssued
	OutcomeVerified
	OutcomeOverridden
	OutcomePointerFallback
	OutcomeVerifyFailed
	OutcomeContinueKey
	OutcomeContinueWidget
	OutcomeContinueMenu
	OutcomeContinueNone
)

var outcomeNames = map[Outcome]string{
	OutcomeExecuted:        "EXECUTED",
	OutcomeDiscarded:       "DISCARDED",
	OutcomeWalkIssued:      "WALK_ISSUED",
	OutcomeVerified:        "VERIFIED",
	OutcomeOverridden:      "OVERRIDDEN",
	OutcomePointerFallback: "POINTER_FALLBACK",
	OutcomeVerifyFailed:    "VERIFY_FAILED",
	OutcomeContinueKey:     "CONTINUE_KEY",
	OutcomeContinueWidget:  "CONTINUE_WIDGET",
	OutcomeContinueMenu:    "CONTINUE_MENU",
	OutcomeContinueNone:    "CONTINUE_NONE",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText - чтобы в JSON монитора шли имена, а не числа.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Event - одно наблюдаемое событие исполнения.
type Event struct {
	Seq     uint64        `json:"seq"`
	Tick    int           `json:"tick"`
	Kind    protocol.Kind `json:"-"`
	Type    string        `json:"type"`
	Outcome Outcome       `json:"outcome"`
	// Via - какой путь сработал (frame, relative, absolute; key, widget, menu).
	Via    string `json:"via,omitempty"`
	Detail string `json:"detail,omitempty"`
	Err    error  `json:"-"`
}

// Observer получает события исполнения. Вызывается в контексте симуляции: не блокировать.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc - адаптер функции к Observer.
type ObserverFunc func(e Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
