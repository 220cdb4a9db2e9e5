package sim

import (
	"errors"

	"github.com/RuneMirror/RuneMirror/internal/geo"
)

var (
	ErrUnknownOpcode = errors.New("unknown opcode")
	ErrOutOfScene    = errors.New("scene position outside loaded scene")
)

// Opcode - идентификатор нативного действия клиента.
type Opcode int

const (
	OpGameObjectFirst Opcode = 3
	OpNPCFirst        Opcode = 9
	OpGroundItemFirst Opcode = 18
	OpWalk            Opcode = 23
	OpWidgetTarget    Opcode = 25
	OpWidgetContinue  Opcode = 30
	OpExamineNPC      Opcode = 1003

	// Действия, которые подмешивает окружение (оверлеи, системное меню).
	// Это не решение игрока, их не зеркалим.
	OpInjected             Opcode = 1500
	OpInjectedOverlay      Opcode = 1501
	OpInjectedOverlayCfg   Opcode = 1502
	OpInjectedHighPriority Opcode = 1503
	OpInjectedLowPriority  Opcode = 1504
)

// IsInjected true для "хрома" окружения.
func IsInjected(op Opcode) bool {
	return op >= OpInjected && op <= OpInjectedLowPriority
}

// Идентификаторы виджетов "нажмите, чтобы продолжить" в трёх видах диалога.
const (
	WidgetChatNPCContinue    = 231<<16 | 5
	WidgetChatPlayerContinue = 217<<16 | 5
	WidgetChatSpriteContinue = 193<<16 | 0
)

// ContinueWidgets - порядок поиска аффорданса продолжения.
var ContinueWidgets = []int{WidgetChatNPCContinue, WidgetChatPlayerContinue, WidgetChatSpriteContinue}

// Key - код клавиши на поверхности ввода.
type Key int

// KeyContinue - пробел, единственная клавиша, которую зеркалим.
const KeyContinue Key = 32

// Action - нативное действие (то, что в клиенте называется пунктом меню).
type Action struct {
	Opcode     Opcode
	Param0     int
	Param1     int
	Identifier int
	ItemID     int
	Option     string
	Target     string
}

// Host - непрозрачная симуляция, как её видит зеркалирование.
// Все методы, кроме CurrentTick, вызываются только из контекста симуляции.
type Host interface {
	CurrentTick() int
	AvatarWorldPosition() (geo.WorldPoint, bool)
	AvatarScenePosition() (geo.ScenePoint, bool)
	Scene() geo.Scene

	HasAction(op Opcode) bool
	InvokeAction(a Action) error

	// PendingDestination - точка, куда симуляция уже решила идти.
	PendingDestination() (geo.ScenePoint, bool)

	FindContinuationAffordance() (int, bool)
	OfferedActions() []Action

	// PressKey синтезирует нажатие. false - нет поверхности ввода.
	PressKey(k Key) bool
	ProjectToScreen(p geo.ScenePoint) (geo.ScreenPoint, bool)
	DispatchPointer(p geo.ScreenPoint) bool
}

// Scheduler - единственный способ попасть в контекст симуляции.
type Scheduler interface {
	// Invoke потокобезопасен: fn выполнится в контексте симуляции на ближайшем тике.
	Invoke(fn func())
	// InvokeAfter выполнит fn через ticks тиков (минимум 1).
	InvokeAfter(ticks int, fn func())
}
