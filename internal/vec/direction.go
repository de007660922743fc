package vec

// Direction одно из восьми направлений компаса.
// Север соответствует уменьшению Y.
type Direction int

const (
	DirNone Direction = iota
	DirNorth
	DirNorthEast
	DirEast
	DirSouthEast
	DirSouth
	DirSouthWest
	DirWest
	DirNorthWest
)

var directionNames = map[Direction]string{
	DirNone:      "none",
	DirNorth:     "N",
	DirNorthEast: "NE",
	DirEast:      "E",
	DirSouthEast: "SE",
	DirSouth:     "S",
	DirSouthWest: "SW",
	DirWest:      "W",
	DirNorthWest: "NW",
}

// String возвращает короткое обозначение направления
func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return "unknown"
}

// DirectionFrom определяет направление от from к to по знакам смещения.
// Для совпадающих точек возвращает DirNone.
func DirectionFrom(from, to Position) Direction {
	dx := to.X - from.X
	dy := to.Y - from.Y

	switch {
	case dx > 0 && dy < 0:
		return DirNorthEast
	case dx > 0 && dy > 0:
		return DirSouthEast
	case dx > 0:
		return DirEast
	case dx < 0 && dy < 0:
		return DirNorthWest
	case dx < 0 && dy > 0:
		return DirSouthWest
	case dx < 0:
		return DirWest
	case dy < 0:
		return DirNorth
	case dy > 0:
		return DirSouth
	default:
		return DirNone
	}
}

// IsNeighbouringDirection сообщает, соседствуют ли направления на розе ветров
// (отличаются на 45°). Одинаковые направления соседними не считаются.
func IsNeighbouringDirection(a, b Direction) bool {
	if a == DirNone || b == DirNone {
		return false
	}
	diff := (int(a) - int(b) + 8) % 8
	return diff == 1 || diff == 7
}
