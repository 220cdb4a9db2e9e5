package follower

import (
	"errors"
	"fmt"

	"github.com/RuneMirror/RuneMirror/internal/geo"
	"github.com/RuneMirror/RuneMirror/internal/sim"
	"github.com/RuneMirror/RuneMirror/pkg/logger"
	"github.com/RuneMirror/RuneMirror/pkg/protocol"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoDestination = errors.New("walk destination could not be resolved")
	ErrOutOfScene    = errors.New("destination outside loaded scene")
)

// Пути восстановления точки назначения.
const (
	viaFrame    = "frame"
	viaRelative = "relative"
	viaAbsolute = "absolute"
)

// walkMemo - последний авторитетный WalkTo и то, во что он разрешился.
type walkMemo struct {
	tick     int
	seq      uint64
	resolved *geo.ScenePoint
}

// Executor исполняет сообщения на ведомом. Только в контексте симуляции.
type Executor struct {
	host  sim.Host
	sched sim.Scheduler

	// lastWalk живёт в пределах одного тика лидера.
	lastWalk *walkMemo

	observers []Observer
	log       *logrus.Entry
}

func NewExecutor(host sim.Host, sched sim.Scheduler, log *logrus.Entry) *Executor {
	return &Executor{
		host:  host,
		sched: sched,
		log:   logger.OrDefault(log, "executor"),
	}
}

// AddObserver подписывает наблюдателя. Вызывать до начала работы.
func (e *Executor) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// Execute - точка входа для Receiver. Ветвление по закрытому варианту нагрузки.
func (e *Executor) Execute(m protocol.Message) {
	if e.lastWalk != nil && m.Tick > e.lastWalk.tick {
		e.lastWalk = nil
	}

	switch p := m.Payload.(type) {
	case protocol.ActionReplay:
		e.replay(m, p)
	case protocol.WalkTo:
		e.walk(m, p)
	case protocol.Continue:
		e.continueDialog(m)
	default:
		e.emit(m, OutcomeDiscarded, "", protocol.ErrUnknownKind)
	}
}

func (e *Executor) replay(m protocol.Message, r protocol.ActionReplay) {
	op := sim.Opcode(r.Opcode)
	if !e.host.HasAction(op) {
		e.log.WithField("opcode", r.Opcode).Debug("Unknown opcode, discarding")
		e.emit(m, OutcomeDiscarded, "", fmt.Errorf("%w: %d", sim.ErrUnknownOpcode, r.Opcode))
		return
	}

	e.log.WithFields(logrus.Fields{
		"opcode": r.Opcode,
		"p0":     r.Param0,
		"p1":     r.Param1,
		"id":     r.Identifier,
		"item":   r.ItemID,
		"option": r.Option,
		"target": r.Target,
	}).Info("Replaying action")

	err := e.host.InvokeAction(sim.Action{
		Opcode:     op,
		Param0:     r.Param0,
		Param1:     r.Param1,
		Identifier: r.Identifier,
		ItemID:     r.ItemID,
		Option:     r.Option,
		Target:     r.Target,
	})
	if err != nil {
		e.log.WithError(err).WithField("opcode", r.Opcode).Warn("Replay failed")
		e.emit(m, OutcomeDiscarded, "", err)
		return
	}
	e.emit(m, OutcomeExecuted, "", nil)

	if op == sim.OpWalk {
		target := func() (geo.WorldPoint, bool) { return e.replayTarget(r) }
		e.startVerification(newVerification(m.Seq, m.Tick, target), MaxVerifyTicks)
	}
}

// replayTarget восстанавливает мировую точку клика лидера для нативной ходьбы.
func (e *Executor) replayTarget(r protocol.ActionReplay) (geo.WorldPoint, bool) {
	own, ok := e.host.AvatarWorldPosition()
	if !ok {
		return geo.WorldPoint{}, false
	}
	click := geo.ScenePoint{X: r.Param0, Y: r.Param1}

	if r.Frame.CanReconstruct() {
		return own.Add(leaderOffset(r.Frame, click)), true
	}

	// Без снимка: смещение клика от аватара в сцене.
	ref, ok := e.host.AvatarScenePosition()
	if r.Frame != nil && r.Frame.PlayerScene != nil {
		ref, ok = *r.Frame.PlayerScene, true
	}
	if !ok {
		return geo.WorldPoint{}, false
	}
	return own.Add(click.Sub(ref)), true
}

func (e *Executor) walk(m protocol.Message, w protocol.WalkTo) {
	memo := &walkMemo{tick: m.Tick, seq: m.Seq}
	e.lastWalk = memo

	dest, via, err := e.resolveWalk(w)
	if err != nil {
		e.log.WithError(err).WithField("seq", m.Seq).Warn("Aborting walk")
		e.emit(m, OutcomeDiscarded, "", err)
		return
	}

	scene := e.host.Scene()
	sp, ok := scene.FromWorld(dest)
	if !ok {
		err := fmt.Errorf("%w: %s (base %d,%d size %dx%d)", ErrOutOfScene, dest, scene.BaseX, scene.BaseY, scene.SizeX, scene.SizeY)
		e.log.WithError(err).Warn("Walk destination is not in the loaded scene")
		e.emit(m, OutcomeDiscarded, via, err)
		return
	}
	memo.resolved = &sp

	e.log.WithFields(logrus.Fields{
		"via":   via,
		"dest":  dest.String(),
		"scene": sp.String(),
	}).Info("Walking to mirrored destination")

	if err := e.issueWalk(sp); err != nil {
		e.log.WithError(err).Warn("Walk failed")
		e.emit(m, OutcomeDiscarded, via, err)
		return
	}
	e.emit(m, OutcomeWalkIssued, via, nil)

	target := func() (geo.WorldPoint, bool) { return dest, true }
	e.startVerification(newVerification(m.Seq, m.Tick, target), MaxVerifyTicks)
}

// resolveWalk - цепочка восстановления точки назначения, первый годный путь выигрывает:
// снимок системы отсчёта, прямое смещение, абсолютная точка.
func (e *Executor) resolveWalk(w protocol.WalkTo) (geo.WorldPoint, string, error) {
	own, hasAvatar := e.host.AvatarWorldPosition()

	if hasAvatar && w.Frame.CanReconstruct() && w.Click != nil {
		rel := leaderOffset(w.Frame, *w.Click)
		if !rel.Exceeds(geo.MaxRelative) {
			return own.Add(rel), viaFrame, nil
		}
		e.log.WithFields(logrus.Fields{"dx": rel.DX, "dy": rel.DY}).Warn("Reconstructed offset too large")
	}

	if hasAvatar && w.Relative != nil {
		if !w.Relative.Exceeds(geo.MaxRelative) {
			return own.Add(*w.Relative), viaRelative, nil
		}
		e.log.WithFields(logrus.Fields{"dx": w.Relative.DX, "dy": w.Relative.DY}).Warn("Relative offset too large")
	}

	if w.Destination != nil {
		return *w.Destination, viaAbsolute, nil
	}

	if !hasAvatar {
		return geo.WorldPoint{}, "", fmt.Errorf("%w: avatar position unknown", ErrNoDestination)
	}
	return geo.WorldPoint{}, "", ErrNoDestination
}

// leaderOffset - вектор от аватара лидера до точки его клика, в мировых координатах.
func leaderOffset(f *protocol.Frame, click geo.ScenePoint) geo.Offset {
	clicked := geo.WorldPoint{X: f.Base.X + click.X, Y: f.Base.Y + click.Y, Plane: f.PlayerWorld.Plane}
	return clicked.Sub(*f.PlayerWorld)
}

func (e *Executor) issueWalk(sp geo.ScenePoint) error {
	return e.host.InvokeAction(sim.Action{
		Opcode: sim.OpWalk,
		Param0: sp.X,
		Param1: sp.Y,
		ItemID: -1,
		Option: "Walk here",
	})
}

func (e *Executor) startVerification(v *verification, ticks int) {
	v.request(ticks)
	e.sched.InvokeAfter(1, func() { e.checkVerification(v) })
}

func (e *Executor) checkVerification(v *verification) {
	more := v.step()
	ev := Event{Seq: v.seq, Tick: v.msgTick, Kind: protocol.KindWalkTo}

	if pending, ok := e.host.PendingDestination(); ok {
		if e.overrideIfDisagrees(v, pending) {
			return
		}
		v.state = verifyResolved
		e.log.WithFields(logrus.Fields{
			"seq":   v.seq,
			"scene": pending.String(),
		}).Debug("Walk verified")
		ev.Outcome = OutcomeVerified
		e.notify(ev)
		return
	}

	if more {
		e.sched.InvokeAfter(1, func() { e.checkVerification(v) })
		return
	}

	v.state = verifyFailed
	if sp, ok := e.pointerFallback(v); ok {
		ev.Outcome = OutcomePointerFallback
		ev.Detail = sp.String()
		e.notify(ev)
		return
	}
	e.log.WithFields(logrus.Fields{
		"seq":   v.seq,
		"state": v.state.String(),
	}).Warn("Pointer fallback could not resolve destination, giving up")
	ev.Outcome = OutcomeVerifyFailed
	ev.Err = ErrNoDestination
	e.notify(ev)
}

// overrideIfDisagrees сравнивает принятую симуляцией цель с авторитетным WalkTo того же тика.
// При расхождении ходит туда, куда велел WalkTo, и перепроверяет.
func (e *Executor) overrideIfDisagrees(v *verification, pending geo.ScenePoint) bool {
	memo := e.lastWalk
	if v.overridden || memo == nil || memo.tick != v.msgTick {
		return false
	}
	e.lastWalk = nil

	if memo.resolved == nil || *memo.resolved == pending {
		return false
	}

	e.log.WithFields(logrus.Fields{
		"seq":      v.seq,
		"walk_seq": memo.seq,
		"pending":  pending.String(),
		"intended": memo.resolved.String(),
	}).Info("Walk landed on a different tile, overriding with the authoritative destination")

	if err := e.issueWalk(*memo.resolved); err != nil {
		e.log.WithError(err).Warn("Override walk failed")
		return false
	}
	v.overridden = true
	v.state = verifyOverridden
	e.notify(Event{Seq: v.seq, Tick: v.msgTick, Kind: protocol.KindWalkTo, Outcome: OutcomeOverridden, Detail: memo.resolved.String()})

	e.startVerification(v, overrideVerifyTicks)
	return true
}

// pointerFallback - синтетическое нажатие указателя в проекцию цели.
func (e *Executor) pointerFallback(v *verification) (geo.ScenePoint, bool) {
	dest, ok := v.target()
	if !ok {
		return geo.ScenePoint{}, false
	}
	sp, ok := e.host.Scene().FromWorld(dest)
	if !ok {
		return geo.ScenePoint{}, false
	}
	screen, ok := e.host.ProjectToScreen(sp)
	if !ok {
		return geo.ScenePoint{}, false
	}
	if !e.host.DispatchPointer(screen) {
		return geo.ScenePoint{}, false
	}

	e.log.WithFields(logrus.Fields{
		"seq":    v.seq,
		"scene":  sp.String(),
		"screen": fmt.Sprintf("(%d, %d)", screen.X, screen.Y),
	}).Info("Dispatched synthetic pointer click to replicate walk")
	return sp, true
}

// continueDialog: клавиша, иначе виджет продолжения, иначе самый новый пункт меню продолжения.
func (e *Executor) continueDialog(m protocol.Message) {
	if e.host.PressKey(sim.KeyContinue) {
		e.log.Debug("Continue via key")
		e.emit(m, OutcomeContinueKey, "key", nil)
		return
	}

	if id, ok := e.host.FindContinuationAffordance(); ok {
		err := e.host.InvokeAction(sim.Action{Opcode: sim.OpWidgetContinue, Identifier: id, ItemID: -1})
		if err == nil {
			e.log.WithField("widget", id).Info("Continue via widget")
			e.emit(m, OutcomeContinueWidget, "widget", nil)
			return
		}
		e.log.WithError(err).WithField("widget", id).Debug("Continue widget failed")
	}

	offered := e.host.OfferedActions()
	for i := len(offered) - 1; i >= 0; i-- {
		a := offered[i]
		if a.Opcode != sim.OpWidgetContinue {
			continue
		}
		if err := e.host.InvokeAction(a); err != nil {
			e.log.WithError(err).Debug("Continue menu entry failed")
			break
		}
		e.log.WithFields(logrus.Fields{"option": a.Option, "target": a.Target}).Info("Continue via menu entry")
		e.emit(m, OutcomeContinueMenu, "menu", nil)
		return
	}

	e.log.Info("No continue affordance, nothing to do")
	e.emit(m, OutcomeContinueNone, "", nil)
}

func (e *Executor) emit(m protocol.Message, o Outcome, via string, err error) {
	ev := Event{Seq: m.Seq, Tick: m.Tick, Kind: m.Kind(), Outcome: o, Via: via, Err: err}
	if err != nil {
		ev.Detail = err.Error()
	}
	e.notify(ev)
}

func (e *Executor) notify(ev Event) {
	ev.Type = ev.Kind.String()
	if ev.Err != nil && ev.Detail == "" {
		ev.Detail = ev.Err.Error()
	}
	for _, o := range e.observers {
		o.Observe(ev)
	}
}
