package leader

import (
	"sync/atomic"

	"github.com/RuneMirror/RuneMirror/internal/geo"
	"github.com/RuneMirror/RuneMirror/internal/sim"
	"github.com/RuneMirror/RuneMirror/pkg/logger"
	"github.com/RuneMirror/RuneMirror/pkg/protocol"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MaxDestinationRetries - сколько тиков ждём, пока симуляция сама назовёт точку назначения,
// прежде чем посчитать её из сценовых координат клика.
const MaxDestinationRetries = 5

// Sender - куда уходят готовые сообщения (Broadcaster или заглушка в тестах).
type Sender interface {
	Broadcast(m protocol.Message) (int, error)
}

// Recorder наблюдает за отправленными сообщениями (журнал, монитор).
type Recorder interface {
	Emitted(m protocol.Message, delivered int)
}

// Capture превращает ввод оператора на лидере в сообщения протокола.
// Все методы вызываются в контексте симуляции лидера.
type Capture struct {
	host  sim.Host
	sched sim.Scheduler
	out   Sender

	enabled   atomic.Bool
	seq       atomic.Uint64
	sessionID uuid.UUID

	recorders []Recorder
	log       *logrus.Entry
}

// NewCapture создает захват. Выключен, пока не вызвать SetEnabled(true).
func NewCapture(host sim.Host, sched sim.Scheduler, out Sender, log *logrus.Entry) *Capture {
	id := uuid.New()
	return &Capture{
		host:      host,
		sched:     sched,
		out:       out,
		sessionID: id,
		log:       logger.OrDefault(log, "capture").WithField("session", id.String()),
	}
}

func (c *Capture) SetEnabled(on bool) {
	c.enabled.Store(on)
}

func (c *Capture) Enabled() bool {
	return c.enabled.Load()
}

// SessionID - идентификатор сессии лидера (для журнала и логов).
func (c *Capture) SessionID() uuid.UUID {
	return c.sessionID
}

// Seq - номер последнего отправленного сообщения.
func (c *Capture) Seq() uint64 {
	return c.seq.Load()
}

// AddRecorder подписывает наблюдателя. Вызывать до начала работы.
func (c *Capture) AddRecorder(r Recorder) {
	c.recorders = append(c.recorders, r)
}

// OnAction - оператор выбрал нативное действие.
func (c *Capture) OnAction(a sim.Action) {
	if !c.Enabled() {
		return
	}
	if sim.IsInjected(a.Opcode) {
		return
	}

	if a.Opcode == sim.OpWalk {
		c.captureWalk(a)
		return
	}

	c.log.WithFields(logrus.Fields{
		"opcode": a.Opcode,
		"p0":     a.Param0,
		"p1":     a.Param1,
		"option": a.Option,
		"target": a.Target,
	}).Info("Mirroring action")
	c.emit(replayOf(a, c.snapshot()))
}

// OnKey - нажатие клавиши. Зеркалим только продолжение диалога.
func (c *Capture) OnKey(k sim.Key) {
	if !c.Enabled() || k != sim.KeyContinue {
		return
	}
	c.emit(protocol.Continue{})
}

// walkClick - всё, что запомнили в момент клика.
type walkClick struct {
	action      sim.Action
	click       geo.ScenePoint
	avatarWorld geo.WorldPoint
	frame       *protocol.Frame
	// prior - цель, которая уже стояла до клика (аватар ещё шёл к прошлой точке).
	prior *geo.ScenePoint
}

func (c *Capture) captureWalk(a sim.Action) {
	avatarWorld, ok := c.host.AvatarWorldPosition()
	if !ok {
		c.log.Warn("Walk detected but avatar position is unknown")
		return
	}

	wc := walkClick{
		action:      a,
		click:       geo.ScenePoint{X: a.Param0, Y: a.Param1},
		avatarWorld: avatarWorld,
		frame:       c.snapshot(),
	}
	if prior, ok := c.host.PendingDestination(); ok {
		wc.prior = &prior
	}

	// Клик наблюдаем до того, как симуляция его обработала:
	// точку назначения спрашиваем начиная со следующего тика.
	c.sched.InvokeAfter(1, func() { c.resolveWalk(wc, MaxDestinationRetries) })
}

func (c *Capture) resolveWalk(wc walkClick, remaining int) {
	if pending, ok := c.host.PendingDestination(); ok && wc.owns(pending) {
		dest := c.host.Scene().ToWorld(pending)
		c.sendWalk(wc, dest)
		return
	}

	if remaining > 1 {
		c.sched.InvokeAfter(1, func() { c.resolveWalk(wc, remaining-1) })
		return
	}

	// Последняя попытка: кликнутый тайл в системе отсчёта лидера.
	dest := c.host.Scene().ToWorld(wc.click)
	c.log.WithFields(logrus.Fields{
		"click": wc.click.String(),
		"dest":  dest.String(),
	}).Info("Walk destination not reported, using scene-relative fallback")
	c.sendWalk(wc, dest)
}

// owns - цель появилась от этого клика, а не осталась от прошлого.
func (wc walkClick) owns(pending geo.ScenePoint) bool {
	return wc.prior == nil || pending != *wc.prior || pending == wc.click
}

func (c *Capture) sendWalk(wc walkClick, dest geo.WorldPoint) {
	rel := dest.Sub(wc.avatarWorld)
	clamped, changed := rel.Clamp(geo.MaxRelative)
	if changed {
		c.log.WithFields(logrus.Fields{
			"dx":         rel.DX,
			"dy":         rel.DY,
			"clamped_dx": clamped.DX,
			"clamped_dy": clamped.DY,
		}).Warn("Clamped walk offset to avoid a large jump")
		dest = wc.avatarWorld.Add(clamped)
	}

	c.log.WithFields(logrus.Fields{
		"dx":   clamped.DX,
		"dy":   clamped.DY,
		"from": wc.avatarWorld.String(),
		"dest": dest.String(),
	}).Info("Mirroring walk")

	click := wc.click
	c.emit(replayOf(wc.action, wc.frame))
	c.emit(protocol.WalkTo{
		Destination: &dest,
		Relative:    &clamped,
		Click:       &click,
		Frame:       wc.frame,
	})
}

// snapshot - текущая система отсчёта лидера. nil, если аватара нет.
func (c *Capture) snapshot() *protocol.Frame {
	world, ok := c.host.AvatarWorldPosition()
	if !ok {
		return nil
	}
	scene := c.host.Scene()
	base := geo.ScenePoint{X: scene.BaseX, Y: scene.BaseY}
	f := &protocol.Frame{Base: &base, PlayerWorld: &world}
	if sp, ok := c.host.AvatarScenePosition(); ok {
		f.PlayerScene = &sp
	}
	return f
}

func (c *Capture) emit(p protocol.Payload) {
	m := protocol.New(c.seq.Add(1), c.host.CurrentTick(), p)

	delivered, err := c.out.Broadcast(m)
	if err != nil {
		c.log.WithError(err).WithField("type", m.Kind().String()).Error("Failed to encode message")
		return
	}
	for _, r := range c.recorders {
		r.Emitted(m, delivered)
	}
}

func replayOf(a sim.Action, f *protocol.Frame) protocol.ActionReplay {
	return protocol.ActionReplay{
		Opcode:     int(a.Opcode),
		Param0:     a.Param0,
		Param1:     a.Param1,
		Identifier: a.Identifier,
		ItemID:     a.ItemID,
		Option:     a.Option,
		Target:     a.Target,
		Frame:      f,
	}
}
