package follower

import (
	"github.com/RuneMirror/RuneMirror/internal/geo"
)

// MaxVerifyTicks - сколько тиков ждём, что ходьба зарегистрирует точку назначения.
const MaxVerifyTicks = 6

// overrideVerifyTicks - повторная проверка после исправляющей ходьбы.
const overrideVerifyTicks = 3

type verifyState uint8

const (
	verifyIdle verifyState = iota
	verifyRequested
	verifyVerifying
	verifyResolved
	verifyOverridden
	verifyFailed
)

var verifyStateNames = map[verifyState]string{
	verifyIdle:       "IDLE",
	verifyRequested:  "REQUESTED",
	verifyVerifying:  "VERIFYING",
	verifyResolved:   "RESOLVED",
	verifyOverridden: "OVERRIDDEN",
	verifyFailed:     "FAILED",
}

func (s verifyState) String() string {
	return verifyStateNames[s]
}

// verification - проверка одной ходьбы, по продолжению на тик.
//
//	Idle -> Requested -> Verifying(n) -> Resolved
//	                                  -> Overridden -> Verifying(3) -> Resolved | Failed
//	                                  -> Failed (указатель)
type verification struct {
	seq     uint64
	msgTick int

	// target - куда идти указателем, если симуляция так и не приняла ходьбу.
	target func() (geo.WorldPoint, bool)

	state      verifyState
	remaining  int
	overridden bool
}

func newVerification(seq uint64, msgTick int, target func() (geo.WorldPoint, bool)) *verification {
	return &verification{seq: seq, msgTick: msgTick, target: target, state: verifyIdle}
}

// request переводит в Requested с бюджетом ticks.
func (v *verification) request(ticks int) {
	v.state = verifyRequested
	v.remaining = ticks
}

// step - один тик ожидания. Возвращает true, если бюджет ещё есть.
func (v *verification) step() bool {
	v.state = verifyVerifying
	v.remaining--
	return v.remaining > 0
}
