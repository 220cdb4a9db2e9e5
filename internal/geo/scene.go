package geo

// Scene описывает загруженный регион карты клиента.
// База сцены - аффинное смещение между сценовыми и мировыми координатами.
// У двух клиентов в разных инстансах базы почти всегда разные.
type Scene struct {
	BaseX int `json:"baseX"`
	BaseY int `json:"baseY"`
	SizeX int `json:"sizeX"`
	SizeY int `json:"sizeY"`
	Plane int `json:"plane"`
}

// ToWorld переводит сценовую точку в мировую через базу этой сцены.
func (s Scene) ToWorld(p ScenePoint) WorldPoint {
	return WorldPoint{X: s.BaseX + p.X, Y: s.BaseY + p.Y, Plane: s.Plane}
}

// FromWorld переводит мировую точку в сценовую.
// ok == false, если точка вне загруженной сцены (или на другой плоскости).
func (s Scene) FromWorld(p WorldPoint) (ScenePoint, bool) {
	sp := ScenePoint{X: p.X - s.BaseX, Y: p.Y - s.BaseY}
	if p.Plane != s.Plane {
		return sp, false
	}
	return sp, s.Contains(sp)
}

// Contains проверяет границы сцены.
func (s Scene) Contains(p ScenePoint) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < s.SizeX && p.Y < s.SizeY
}
