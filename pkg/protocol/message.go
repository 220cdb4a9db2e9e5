package protocol

import "github.com/RuneMirror/RuneMirror/internal/geo"

// Version - версия протокола. Сообщение с другой версией получатель молча выбрасывает.
const Version = 1

// Header - общие поля любого сообщения.
type Header struct {
	// Version должна совпадать с Version получателя.
	Version int
	// Seq монотонно растёт в рамках сессии лидера. Только для диагностики,
	// ведомые не требуют отсутствия дыр.
	Seq uint64
	// Tick - тик симуляции лидера в момент создания. Используется для отсечки устаревших.
	Tick int
}

// Payload - закрытый вариант полезной нагрузки.
// Реализуют только ActionReplay, WalkTo и Continue этого пакета.
type Payload interface {
	Kind() Kind
	isPayload()
}

// Message - неизменяемая единица зеркалируемого намерения.
type Message struct {
	Header
	Payload Payload
}

// New собирает сообщение текущей версии.
func New(seq uint64, tick int, p Payload) Message {
	return Message{
		Header:  Header{Version: Version, Seq: seq, Tick: tick},
		Payload: p,
	}
}

// Kind возвращает тип нагрузки (KindUnknown для пустого сообщения).
func (m Message) Kind() Kind {
	if m.Payload == nil {
		return KindUnknown
	}
	return m.Payload.Kind()
}

// Frame - снимок системы отсчёта лидера в момент клика.
// Нужен ведомому, чтобы "снять" локальную базу сцены лидера.
type Frame struct {
	// Base - база сцены лидера (baseX, baseY).
	Base *geo.ScenePoint
	// PlayerWorld - мировая позиция аватара лидера.
	PlayerWorld *geo.WorldPoint
	// PlayerScene - сценовая позиция аватара лидера.
	PlayerScene *geo.ScenePoint
}

// CanReconstruct true, если хватает данных, чтобы восстановить мировую точку клика лидера.
func (f *Frame) CanReconstruct() bool {
	return f != nil && f.Base != nil && f.PlayerWorld != nil
}

// ActionReplay - повтор нативного действия по опкоду.
type ActionReplay struct {
	Opcode     int
	Param0     int
	Param1     int
	Identifier int
	ItemID     int
	Option     string
	Target     string

	// Frame приходит вместе с ходьбой, чтобы ведомый мог сам пересчитать клик.
	Frame *Frame
}

// WalkTo - перемещение с несколькими способами восстановить точку назначения.
// Должно быть хотя бы одно из Destination / Relative.
type WalkTo struct {
	Destination *geo.WorldPoint
	Relative    *geo.Offset
	// Click - сценовая точка, по которой кликнул лидер (param0/param1).
	Click *geo.ScenePoint
	Frame *Frame
}

// Continue - намерение продолжить диалог. Без данных.
type Continue struct{}

func (ActionReplay) Kind() Kind { return KindActionReplay }
func (WalkTo) Kind() Kind       { return KindWalkTo }
func (Continue) Kind() Kind     { return KindContinue }

func (ActionReplay) isPayload() {}
func (WalkTo) isPayload()       {}
func (Continue) isPayload()     {}
