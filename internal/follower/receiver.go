package follower

import (
	"errors"
	"sync/atomic"

	"github.com/RuneMirror/RuneMirror/internal/sim"
	"github.com/RuneMirror/RuneMirror/pkg/logger"
	"github.com/RuneMirror/RuneMirror/pkg/protocol"
	"github.com/sirupsen/logrus"
)

// DefaultMaxTickLag - насколько тиков сообщение может отстать от локального тика.
const DefaultMaxTickLag = 1

// Clock - источник текущего тика. Должен быть безопасен для вызова из любой горутины.
type Clock interface {
	CurrentTick() int
}

// Dispatcher исполняет сообщение в контексте симуляции.
type Dispatcher interface {
	Execute(m protocol.Message)
}

// Counters - сколько строк принято и почему отброшены остальные.
type Counters struct {
	Accepted        uint64 `json:"accepted"`
	Malformed       uint64 `json:"malformed"`
	VersionMismatch uint64 `json:"version_mismatch"`
	Disabled        uint64 `json:"disabled"`
	Invalid         uint64 `json:"invalid"`
	Stale           uint64 `json:"stale"`
}

// Receiver фильтрует входящие строки и передаёт годные сообщения в симуляцию.
// HandleLine вызывается из горутины сети; в симуляцию попадаем только через Scheduler.Invoke.
type Receiver struct {
	clock      Clock
	sched      sim.Scheduler
	dispatcher Dispatcher
	maxTickLag int

	enabled atomic.Bool

	accepted, malformed, version, disabled, invalid, stale atomic.Uint64

	log *logrus.Entry
}

func NewReceiver(clock Clock, sched sim.Scheduler, dispatcher Dispatcher, maxTickLag int, log *logrus.Entry) *Receiver {
	if maxTickLag < 0 {
		maxTickLag = DefaultMaxTickLag
	}
	return &Receiver{
		clock:      clock,
		sched:      sched,
		dispatcher: dispatcher,
		maxTickLag: maxTickLag,
		log:        logger.OrDefault(log, "receiver"),
	}
}

func (r *Receiver) SetEnabled(on bool) {
	r.enabled.Store(on)
}

func (r *Receiver) Enabled() bool {
	return r.enabled.Load()
}

// HandleLine - LineHandler для Listener.
func (r *Receiver) HandleLine(line []byte) {
	m, err := protocol.Decode(line)
	if err != nil {
		r.malformed.Add(1)
		r.log.WithError(err).Debug("Bad line")
		return
	}

	if err := m.CheckVersion(); err != nil {
		r.version.Add(1)
		r.log.WithError(err).Debug("Dropping message")
		return
	}

	if !r.Enabled() {
		r.disabled.Add(1)
		r.log.WithField("type", m.Kind().String()).Debug("Received message while follower is disabled")
		return
	}

	if err := m.Validate(); err != nil {
		r.invalid.Add(1)
		fields := logrus.Fields{"seq": m.Seq, "type": m.Kind().String()}
		if errors.Is(err, protocol.ErrMissingDestination) {
			r.log.WithFields(fields).WithError(err).Warn("Walk without destination")
		} else {
			r.log.WithFields(fields).WithError(err).Debug("Invalid message")
		}
		return
	}

	local := r.clock.CurrentTick()
	if lag := local - m.Tick; lag > r.maxTickLag {
		r.stale.Add(1)
		r.log.WithFields(logrus.Fields{
			"seq":        m.Seq,
			"tick":       m.Tick,
			"local_tick": local,
			"lag":        lag,
		}).Debug("Dropping stale message")
		return
	}

	r.accepted.Add(1)
	r.log.WithFields(logrus.Fields{
		"type": m.Kind().String(),
		"tick": m.Tick,
		"seq":  m.Seq,
	}).Info("Received action")

	r.sched.Invoke(func() { r.dispatcher.Execute(m) })
}

// Counters - снимок счётчиков.
func (r *Receiver) Counters() Counters {
	return Counters{
		Accepted:        r.accepted.Load(),
		Malformed:       r.malformed.Load(),
		VersionMismatch: r.version.Load(),
		Disabled:        r.disabled.Load(),
		Invalid:         r.invalid.Load(),
		Stale:           r.stale.Load(),
	}
}
