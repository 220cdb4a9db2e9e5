package geo

import "fmt"

// MaxRelative - предельное смещение (в тайлах) по каждой оси.
// Всё, что больше, считаем мусором и не даём превратиться в длинный переход.
const MaxRelative = 8

// WorldPoint - точка в глобальных (мировых) координатах.
type WorldPoint struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Plane int `json:"plane"`
}

// ScenePoint - точка в локальных координатах загруженной сцены клиента.
type ScenePoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ScreenPoint - пиксель на поверхности ввода (канвасе).
type ScreenPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Offset - вектор между двумя мировыми точками. Не зависит от базы сцены.
type Offset struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

func (p WorldPoint) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Plane)
}

func (p ScenePoint) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Sub возвращает вектор p - other (плоскость игнорируется).
func (p WorldPoint) Sub(other WorldPoint) Offset {
	return Offset{DX: p.X - other.X, DY: p.Y - other.Y}
}

// Add сдвигает точку на вектор, сохраняя плоскость.
func (p WorldPoint) Add(o Offset) WorldPoint {
	return WorldPoint{X: p.X + o.DX, Y: p.Y + o.DY, Plane: p.Plane}
}

// Sub для сценовых координат: click - avatar.
func (p ScenePoint) Sub(other ScenePoint) Offset {
	return Offset{DX: p.X - other.X, DY: p.Y - other.Y}
}

// IsZero true для (0,0). Нулевые параметры клика считаем "нет данных".
func (p ScenePoint) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

// Exceeds true, если хотя бы одна ось вылезает за bound.
func (o Offset) Exceeds(bound int) bool {
	return abs(o.DX) > bound || abs(o.DY) > bound
}

// Clamp обрезает каждую ось до [-bound, bound].
// Второе значение сообщает, пришлось ли что-то обрезать.
func (o Offset) Clamp(bound int) (Offset, bool) {
	c := Offset{DX: clamp(o.DX, bound), DY: clamp(o.DY, bound)}
	return c, c != o
}

func clamp(v, bound int) int {
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Sign возвращает -1, 0 или 1.
func Sign(v int) int {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}
