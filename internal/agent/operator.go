package agent

import (
	"math/rand"

	"github.com/RuneMirror/RuneMirror/internal/geo"
	"github.com/RuneMirror/RuneMirror/internal/sim"
	"github.com/RuneMirror/RuneMirror/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Move - одно решение оператора.
type Move int

const (
	MoveWalk Move = iota
	MoveTalk
	MoveContinue
	MoveInteract
)

func (m Move) String() string {
	switch m {
	case MoveWalk:
		return "walk"
	case MoveTalk:
		return "talk"
	case MoveContinue:
		return "continue"
	case MoveInteract:
		return "interact"
	}
	return "unknown"
}

// DefaultScript - прогулка, разговор, пролистывание диалога, осмотр.
var DefaultScript = []Move{MoveWalk, MoveWalk, MoveTalk, MoveContinue, MoveWalk, MoveInteract}

// Operator - "Игрок-компьютер" (Headless Agent) на стороне лидера.
// Кликает в мир лидера так же, как это делал бы человек, поэтому
// всё, что он делает, проходит через захват и уходит ведомым.
//
// Жизненный цикл:
//  1. NewOperator -> хук на тик цикла лидера.
//  2. Каждые Every тиков, если аватар стоит, делает следующий ход сценария.
type Operator struct {
	World *sim.World
	// Every - раз во сколько тиков оператор думает.
	Every int
	// Radius - насколько далеко он гуляет от текущей клетки (не больше geo.MaxRelative).
	Radius int

	script []Move
	next   int
	rng    *rand.Rand
	log    *logrus.Entry
}

func NewOperator(world *sim.World, every int, seed int64, script []Move) *Operator {
	if every < 1 {
		every = 1
	}
	if len(script) == 0 {
		script = DefaultScript
	}
	o := &Operator{
		World:  world,
		Every:  every,
		Radius: 5,
		script: script,
		rng:    rand.New(rand.NewSource(seed)),
		log:    logger.For("operator").WithField("world", world.Name),
	}
	world.Loop().OnTick(o.onTick)
	o.log.WithField("every", every).Info("Operator attached")
	return o
}

func (o *Operator) onTick(tick int) {
	if tick%o.Every != 0 {
		return
	}
	// Пока идёт - не мешаем.
	if _, walking := o.World.PendingDestination(); walking {
		return
	}
	o.makeMove(tick)
}

// makeMove - мозг оператора: берёт следующий ход сценария и кликает.
func (o *Operator) makeMove(tick int) {
	move := o.script[o.next%len(o.script)]
	o.next++

	var err error
	switch move {
	case MoveWalk:
		err = o.walk()
	case MoveTalk:
		err = o.World.Click(sim.Action{Opcode: sim.OpNPCFirst, Identifier: 1 + o.rng.Intn(20), ItemID: -1, Option: "Talk-to", Target: "Guide"})
	case MoveContinue:
		if !o.World.DialogOpen() {
			return
		}
		o.World.PressKey(sim.KeyContinue)
	case MoveInteract:
		err = o.World.Click(sim.Action{Opcode: sim.OpGameObjectFirst, Param0: 10, Param1: 12, Identifier: 1530, ItemID: -1, Option: "Open", Target: "Door"})
	}

	fields := logrus.Fields{"tick": tick, "move": move.String()}
	if err != nil {
		o.log.WithFields(fields).WithError(err).Warn("Operator move failed")
		return
	}
	o.log.WithFields(fields).Debug("Operator move")
}

// walk кликает по случайной клетке рядом с аватаром, не выходя за сцену.
func (o *Operator) walk() error {
	from, ok := o.World.AvatarScenePosition()
	if !ok {
		return nil
	}
	scene := o.World.Scene()

	radius := o.Radius
	if radius > geo.MaxRelative {
		radius = geo.MaxRelative
	}
	to := geo.ScenePoint{
		X: clamp(from.X+o.rng.Intn(2*radius+1)-radius, 0, scene.SizeX-1),
		Y: clamp(from.Y+o.rng.Intn(2*radius+1)-radius, 0, scene.SizeY-1),
	}
	return o.World.WalkHere(to)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
