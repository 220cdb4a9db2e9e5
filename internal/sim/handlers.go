package sim

import (
	"fmt"
	"strings"

	"github.com/RuneMirror/RuneMirror/internal/geo"
	"github.com/sirupsen/logrus"
)

// handleWalk - "Walk here": param0/param1 это тайл сцены.
// Точка назначения появляется не сразу, а через WalkDelay тиков (как у реального клиента,
// который отправляет путь серверу и узнаёт цель позже).
func handleWalk(w *World, a Action) error {
	target := geo.ScenePoint{X: a.Param0, Y: a.Param1}

	w.mu.Lock()
	inScene := w.scene.Contains(target)
	ignore := w.IgnoreWalks
	delay := w.WalkDelay
	w.mu.Unlock()

	if !inScene {
		return fmt.Errorf("%w: %s", ErrOutOfScene, target)
	}
	if ignore {
		w.log.WithField("target", target.String()).Debug("Walk ignored by simulation")
		return nil
	}

	apply := func() {
		w.mu.Lock()
		w.pending = &target
		w.mu.Unlock()
	}
	if delay > 0 {
		w.loop.InvokeAfter(delay, apply)
		return nil
	}
	apply()
	return nil
}

// handleWidgetContinue закрывает диалог, если такой виджет на экране.
// Виджет берётся из param1, а если он пуст - из identifier.
func handleWidgetContinue(w *World, a Action) error {
	widget := a.Param1
	if widget == 0 {
		widget = a.Identifier
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dialogOpen {
		return nil
	}
	if len(w.widgets) > 0 && !w.widgets[widget] {
		w.log.WithField("widget", widget).Debug("Continue widget not on screen")
		return nil
	}
	w.closeDialogLocked()
	return nil
}

// handleInteract - взаимодействие с объектом/NPC/предметом. Состояние мира не меняет,
// действие только попадает в историю.
func handleInteract(w *World, a Action) error {
	w.log.WithFields(logrus.Fields{
		"opcode": a.Opcode,
		"option": a.Option,
		"target": a.Target,
	}).Debug("Interaction")
	return nil
}

// handleNPC - первый пункт меню NPC. "Talk-to" открывает диалог с виджетом продолжения.
func handleNPC(w *World, a Action) error {
	if !strings.EqualFold(a.Option, "Talk-to") {
		return handleInteract(w, a)
	}
	w.OpenDialog(WidgetChatNPCContinue)
	w.log.WithField("npc", a.Identifier).Debug("Dialog opened")
	return nil
}
