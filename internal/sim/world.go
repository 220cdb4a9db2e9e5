package sim

import (
	"fmt"
	"sync"

	"github.com/RuneMirror/RuneMirror/internal/geo"
	"github.com/RuneMirror/RuneMirror/pkg/logger"
	"github.com/sirupsen/logrus"
)

// TileSize - размер тайла в пикселях для проекции на экран.
const TileSize = 32

// ActionHandler - обработчик нативного действия.
type ActionHandler func(w *World, a Action) error

// World - встроенная симуляция клиента: аватар на тайловой сцене,
// точка назначения, диалоги, меню и поверхность ввода.
// Реализует Host. Используется в demo-режиме и в тестах.
type World struct {
	Name string
	loop *Loop

	mu         sync.Mutex
	scene      geo.Scene
	avatar     geo.ScenePoint
	hasAvatar  bool
	pending    *geo.ScenePoint
	dialogOpen bool
	surface    bool
	offered    []Action
	widgets    map[int]bool
	history    []Action

	// WalkDelay - через сколько тиков ходьба регистрирует точку назначения.
	WalkDelay int
	// IgnoreWalks - нативная ходьба "теряется" (как бывает у клиента после смены сцены).
	IgnoreWalks bool

	handlers map[Opcode]ActionHandler

	actionListeners []func(Action)
	keyListeners    []func(Key)

	log *logrus.Entry
}

// NewWorld создает мир с аватаром в центре сцены.
func NewWorld(name string, loop *Loop, scene geo.Scene) *World {
	w := &World{
		Name:      name,
		loop:      loop,
		scene:     scene,
		avatar:    geo.ScenePoint{X: scene.SizeX / 2, Y: scene.SizeY / 2},
		hasAvatar: true,
		surface:   true,
		widgets:   make(map[int]bool),
		handlers:  make(map[Opcode]ActionHandler),
		log:       logger.For("sim").WithField("world", name),
	}
	w.registerHandlers()
	loop.OnTick(w.advance)
	return w
}

func (w *World) registerHandlers() {
	w.handlers[OpWalk] = handleWalk
	w.handlers[OpWidgetContinue] = handleWidgetContinue
	w.handlers[OpGameObjectFirst] = handleInteract
	w.handlers[OpNPCFirst] = handleNPC
	w.handlers[OpGroundItemFirst] = handleInteract
	w.handlers[OpWidgetTarget] = handleInteract
	w.handlers[OpExamineNPC] = handleInteract
}

// Loop возвращает планировщик этого мира.
func (w *World) Loop() *Loop {
	return w.loop
}

// --- Host ---

func (w *World) CurrentTick() int {
	return w.loop.Tick()
}

func (w *World) AvatarWorldPosition() (geo.WorldPoint, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.hasAvatar {
		return geo.WorldPoint{}, false
	}
	return w.scene.ToWorld(w.avatar), true
}

func (w *World) AvatarScenePosition() (geo.ScenePoint, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.avatar, w.hasAvatar
}

func (w *World) Scene() geo.Scene {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scene
}

func (w *World) HasAction(op Opcode) bool {
	_, ok := w.handlers[op]
	return ok
}

// InvokeAction выполняет действие без уведомления слушателей ввода.
func (w *World) InvokeAction(a Action) error {
	handler, ok := w.handlers[a.Opcode]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOpcode, a.Opcode)
	}
	if err := handler(w, a); err != nil {
		return err
	}

	w.mu.Lock()
	w.history = append(w.history, a)
	w.mu.Unlock()
	return nil
}

func (w *World) PendingDestination() (geo.ScenePoint, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return geo.ScenePoint{}, false
	}
	return *w.pending, true
}

func (w *World) FindContinuationAffordance() (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dialogOpen {
		return 0, false
	}
	for _, id := range ContinueWidgets {
		if w.widgets[id] {
			return id, true
		}
	}
	return 0, false
}

func (w *World) OfferedActions() []Action {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Action, len(w.offered))
	copy(out, w.offered)
	return out
}

// PressKey - нажатие на поверхности ввода. Слушатели видят его как ввод оператора.
func (w *World) PressKey(k Key) bool {
	w.mu.Lock()
	if !w.surface {
		w.mu.Unlock()
		return false
	}
	if k == KeyContinue && w.dialogOpen {
		w.closeDialogLocked()
	}
	listeners := w.keyListeners
	w.mu.Unlock()

	for _, l := range listeners {
		l(k)
	}
	return true
}

func (w *World) ProjectToScreen(p geo.ScenePoint) (geo.ScreenPoint, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.surface || !w.scene.Contains(p) {
		return geo.ScreenPoint{}, false
	}
	// Ось Y экрана направлена вниз
	return geo.ScreenPoint{
		X: p.X*TileSize + TileSize/2,
		Y: (w.scene.SizeY-1-p.Y)*TileSize + TileSize/2,
	}, true
}

// DispatchPointer - синтетическое нажатие+отпускание мыши: "идти сюда".
func (w *World) DispatchPointer(p geo.ScreenPoint) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.surface {
		return false
	}
	sp := geo.ScenePoint{X: p.X / TileSize, Y: w.scene.SizeY - 1 - p.Y/TileSize}
	if !w.scene.Contains(sp) {
		return false
	}
	w.pending = &sp
	return true
}

// --- Ввод оператора ---

// OnAction подписывает слушателя на действия, которые выбирает оператор.
func (w *World) OnAction(fn func(Action)) {
	w.actionListeners = append(w.actionListeners, fn)
}

// OnKey подписывает слушателя на нажатия клавиш.
func (w *World) OnKey(fn func(Key)) {
	w.keyListeners = append(w.keyListeners, fn)
}

// Click - оператор выбрал действие. Слушатели видят его ДО выполнения,
// как и событие клика по меню в клиенте.
func (w *World) Click(a Action) error {
	for _, l := range w.actionListeners {
		l(a)
	}
	return w.InvokeAction(a)
}

// WalkHere - клик по тайлу сцены.
func (w *World) WalkHere(p geo.ScenePoint) error {
	return w.Click(Action{Opcode: OpWalk, Param0: p.X, Param1: p.Y, ItemID: -1, Option: "Walk here"})
}

// --- Управление состоянием (demo/тесты) ---

// Teleport ставит аватар в сценовую точку и сбрасывает цель.
func (w *World) Teleport(p geo.ScenePoint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.avatar = p
	w.hasAvatar = true
	w.pending = nil
}

// Despawn убирает аватар (экран загрузки, логаут).
func (w *World) Despawn() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hasAvatar = false
	w.pending = nil
}

// Rebase перезагружает сцену с новой базой, сохраняя мировую позицию аватара.
func (w *World) Rebase(baseX, baseY int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	world := w.scene.ToWorld(w.avatar)
	w.scene.BaseX = baseX
	w.scene.BaseY = baseY
	w.avatar = geo.ScenePoint{X: world.X - baseX, Y: world.Y - baseY}
	w.pending = nil
}

// OpenDialog открывает диалог с заданным виджетом продолжения (0 - без виджета).
func (w *World) OpenDialog(widget int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dialogOpen = true
	if widget != 0 {
		w.widgets[widget] = true
	}
}

func (w *World) DialogOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dialogOpen
}

// SetSurface включает/выключает поверхность ввода (свёрнутое окно и т.п.).
func (w *World) SetSurface(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.surface = on
}

// Offer задаёт текущие пункты меню.
func (w *World) Offer(actions ...Action) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.offered = append([]Action(nil), actions...)
}

// History - выполненные нативные действия по порядку.
func (w *World) History() []Action {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Action, len(w.history))
	copy(out, w.history)
	return out
}

func (w *World) closeDialogLocked() {
	w.dialogOpen = false
	w.widgets = make(map[int]bool)
}

// advance - хук тика: аватар делает шаг к цели.
// Цель снимается на тике ПОСЛЕ прибытия, чтобы её успели увидеть в этом тике.
func (w *World) advance(tick int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending == nil || !w.hasAvatar {
		return
	}
	if w.avatar == *w.pending {
		w.pending = nil
		return
	}

	w.avatar.X += geo.Sign(w.pending.X - w.avatar.X)
	w.avatar.Y += geo.Sign(w.pending.Y - w.avatar.Y)
}
