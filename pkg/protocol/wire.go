package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RuneMirror/RuneMirror/internal/geo"
)

var (
	ErrUnknownKind        = errors.New("unknown message type")
	ErrVersionMismatch    = errors.New("protocol version mismatch")
	ErrMissingDestination = errors.New("walk has neither absolute nor relative destination")
	ErrEmptyLine          = errors.New("empty line")
)

// Wire - плоское JSON-представление одной строки протокола.
// Поля и имена совпадают с хостовым плагином, поэтому плагин
// может слать сюда напрямую.
type Wire struct {
	V    int    `json:"v" jsonschema:"title=Protocol version,description=Must equal the receiver version or the line is dropped"`
	Seq  uint64 `json:"seq" jsonschema:"description=Leader session sequence number (diagnostics only)"`
	Tick int    `json:"tick" jsonschema:"description=Leader simulation tick at creation"`
	Type string `json:"type" jsonschema:"enum=MENU_ACTION,enum=WALK_WORLD,enum=DIALOG_CONTINUE"`

	Param0     int    `json:"param0"`
	Param1     int    `json:"param1"`
	Opcode     int    `json:"opcode"`
	Identifier int    `json:"identifier"`
	ItemID     int    `json:"itemId"`
	Option     string `json:"option,omitempty"`
	Target     string `json:"target,omitempty"`

	WorldX     *int `json:"worldX,omitempty"`
	WorldY     *int `json:"worldY,omitempty"`
	WorldPlane *int `json:"worldPlane,omitempty"`

	RelDx *int `json:"relDx,omitempty" jsonschema:"description=Destination minus leader avatar world x"`
	RelDy *int `json:"relDy,omitempty" jsonschema:"description=Destination minus leader avatar world y"`

	HostBaseX            *int `json:"hostBaseX,omitempty"`
	HostBaseY            *int `json:"hostBaseY,omitempty"`
	HostPlayerWorldX     *int `json:"hostPlayerWorldX,omitempty"`
	HostPlayerWorldY     *int `json:"hostPlayerWorldY,omitempty"`
	HostPlayerWorldPlane *int `json:"hostPlayerWorldPlane,omitempty"`
	HostPlayerSceneX     *int `json:"hostPlayerSceneX,omitempty"`
	HostPlayerSceneY     *int `json:"hostPlayerSceneY,omitempty"`
}

// Encode сериализует сообщение в одну строку JSON (без перевода строки).
func Encode(m Message) ([]byte, error) {
	w, err := toWire(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// Decode разбирает одну строку. Версию НЕ проверяет - это делает получатель,
// чтобы отличать "битый JSON" от "чужой версии" в логах.
func Decode(line []byte) (Message, error) {
	if len(line) == 0 {
		return Message{}, ErrEmptyLine
	}

	var w Wire
	if err := json.Unmarshal(line, &w); err != nil {
		return Message{}, fmt.Errorf("invalid json: %w", err)
	}

	kind := ParseKind(w.Type)
	if kind == KindUnknown {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownKind, w.Type)
	}

	m := Message{Header: Header{Version: w.V, Seq: w.Seq, Tick: w.Tick}}
	frame := frameFromWire(&w)

	switch kind {
	case KindActionReplay:
		m.Payload = ActionReplay{
			Opcode:     w.Opcode,
			Param0:     w.Param0,
			Param1:     w.Param1,
			Identifier: w.Identifier,
			ItemID:     w.ItemID,
			Option:     w.Option,
			Target:     w.Target,
			Frame:      frame,
		}
	case KindWalkTo:
		walk := WalkTo{Frame: frame}
		if w.WorldX != nil && w.WorldY != nil && w.WorldPlane != nil {
			walk.Destination = &geo.WorldPoint{X: *w.WorldX, Y: *w.WorldY, Plane: *w.WorldPlane}
		}
		if w.RelDx != nil && w.RelDy != nil {
			walk.Relative = &geo.Offset{DX: *w.RelDx, DY: *w.RelDy}
		}
		// Нулевые param0/param1 означают "клика нет"
		if w.Param0 != 0 && w.Param1 != 0 {
			walk.Click = &geo.ScenePoint{X: w.Param0, Y: w.Param1}
		}
		m.Payload = walk
	case KindContinue:
		m.Payload = Continue{}
	}

	return m, nil
}

func toWire(m Message) (Wire, error) {
	w := Wire{
		V:    m.Version,
		Seq:  m.Seq,
		Tick: m.Tick,
		Type: m.Kind().String(),
	}

	switch p := m.Payload.(type) {
	case ActionReplay:
		w.Opcode = p.Opcode
		w.Param0 = p.Param0
		w.Param1 = p.Param1
		w.Identifier = p.Identifier
		w.ItemID = p.ItemID
		w.Option = p.Option
		w.Target = p.Target
		frameToWire(p.Frame, &w)
	case WalkTo:
		if p.Destination != nil {
			w.WorldX = intPtr(p.Destination.X)
			w.WorldY = intPtr(p.Destination.Y)
			w.WorldPlane = intPtr(p.Destination.Plane)
		}
		if p.Relative != nil {
			w.RelDx = intPtr(p.Relative.DX)
			w.RelDy = intPtr(p.Relative.DY)
		}
		if p.Click != nil {
			w.Param0 = p.Click.X
			w.Param1 = p.Click.Y
		}
		frameToWire(p.Frame, &w)
	case Continue:
	default:
		return Wire{}, ErrUnknownKind
	}
	return w, nil
}

func frameFromWire(w *Wire) *Frame {
	var f Frame
	if w.HostBaseX != nil && w.HostBaseY != nil {
		f.Base = &geo.ScenePoint{X: *w.HostBaseX, Y: *w.HostBaseY}
	}
	if w.HostPlayerWorldX != nil && w.HostPlayerWorldY != nil {
		pw := geo.WorldPoint{X: *w.HostPlayerWorldX, Y: *w.HostPlayerWorldY}
		if w.HostPlayerWorldPlane != nil {
			pw.Plane = *w.HostPlayerWorldPlane
		}
		f.PlayerWorld = &pw
	}
	if w.HostPlayerSceneX != nil && w.HostPlayerSceneY != nil {
		f.PlayerScene = &geo.ScenePoint{X: *w.HostPlayerSceneX, Y: *w.HostPlayerSceneY}
	}
	if f.Base == nil && f.PlayerWorld == nil && f.PlayerScene == nil {
		return nil
	}
	return &f
}

func frameToWire(f *Frame, w *Wire) {
	if f == nil {
		return
	}
	if f.Base != nil {
		w.HostBaseX = intPtr(f.Base.X)
		w.HostBaseY = intPtr(f.Base.Y)
	}
	if f.PlayerWorld != nil {
		w.HostPlayerWorldX = intPtr(f.PlayerWorld.X)
		w.HostPlayerWorldY = intPtr(f.PlayerWorld.Y)
		w.HostPlayerWorldPlane = intPtr(f.PlayerWorld.Plane)
	}
	if f.PlayerScene != nil {
		w.HostPlayerSceneX = intPtr(f.PlayerScene.X)
		w.HostPlayerSceneY = intPtr(f.PlayerScene.Y)
	}
}

func intPtr(v int) *int {
	return &v
}
