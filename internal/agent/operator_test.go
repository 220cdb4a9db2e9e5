package agent

import (
	"testing"

	"github.com/RuneMirror/RuneMirror/internal/geo"
	"github.com/RuneMirror/RuneMirror/internal/sim"
)

func newWorld() *sim.World {
	return sim.NewWorld("leader", sim.NewLoop(), geo.Scene{BaseX: 3136, BaseY: 3136, SizeX: 104, SizeY: 104})
}

func TestOperatorWalksWithinRadius(t *testing.T) {
	w := newWorld()
	start, _ := w.AvatarScenePosition()
	NewOperator(w, 1, 42, []Move{MoveWalk})

	w.Loop().Step()

	h := w.History()
	if len(h) != 1 || h[0].Opcode != sim.OpWalk {
		t.Fatalf("history = %+v", h)
	}
	to := geo.ScenePoint{X: h[0].Param0, Y: h[0].Param1}
	if to.Sub(start).Exceeds(5) {
		t.Errorf("walked from %s to %s, farther than the radius", start, to)
	}
}

func TestOperatorWaitsWhileWalking(t *testing.T) {
	w := newWorld()
	w.WalkDelay = 0
	NewOperator(w, 1, 1, []Move{MoveInteract})

	from, _ := w.AvatarScenePosition()
	_ = w.WalkHere(geo.ScenePoint{X: from.X + 3, Y: from.Y})

	w.Loop().Step()
	if n := len(w.History()); n != 1 {
		t.Errorf("operator moved while walking: history = %d", n)
	}
}

func TestOperatorTalkThenContinue(t *testing.T) {
	w := newWorld()

	var keys []sim.Key
	w.OnKey(func(k sim.Key) { keys = append(keys, k) })

	NewOperator(w, 2, 1, []Move{MoveContinue, MoveTalk, MoveContinue})

	// Тик 2: диалога нет, пролистывать нечего.
	w.Loop().Step()
	w.Loop().Step()
	if len(keys) != 0 {
		t.Fatalf("keys = %v, want none", keys)
	}

	// Тик 4: разговор.
	w.Loop().Step()
	w.Loop().Step()
	if !w.DialogOpen() {
		t.Fatal("talk did not open a dialog")
	}

	// Тик 6: пробел.
	w.Loop().Step()
	w.Loop().Step()
	if w.DialogOpen() || len(keys) != 1 || keys[0] != sim.KeyContinue {
		t.Errorf("dialog open = %v, keys = %v", w.DialogOpen(), keys)
	}
}
