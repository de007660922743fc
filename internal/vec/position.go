package vec

import (
	"fmt"
	"math"
)

// Position сектор на конкретном уровне мира.
// Сравнивается по значению, уникального идентификатора нет.
type Position struct {
	Level int `json:"level"`
	X     int `json:"x"`
	Y     int `json:"y"`
}

// Pos короткий конструктор Position
func Pos(level, x, y int) Position {
	return Position{Level: level, X: x, Y: y}
}

// Origin возвращает центр уровня (0,0)
func Origin(level int) Position {
	return Position{Level: level}
}

// Vec2 отбрасывает уровень
func (p Position) Vec2() Vec2 {
	return Vec2{X: p.X, Y: p.Y}
}

// OnLevel возвращает ту же точку, перенесённую на другой уровень
func (p Position) OnLevel(level int) Position {
	p.Level = level
	return p
}

// Offset сдвигает точку в пределах уровня
func (p Position) Offset(d Vec2) Position {
	p.X += d.X
	p.Y += d.Y
	return p
}

// DistanceTo возвращает евклидово расстояние в плоскости (уровень игнорируется)
func (p Position) DistanceTo(other Position) float64 {
	return p.Vec2().DistanceTo(other.Vec2())
}

// BlockDistanceTo возвращает расстояние в секторах с учётом диагональных шагов (max(|dx|, |dy|))
func (p Position) BlockDistanceTo(other Position) int {
	return max(abs(p.X-other.X), abs(p.Y-other.Y))
}

// String возвращает запись вида "13.4.-2"
func (p Position) String() string {
	return fmt.Sprintf("%d.%d.%d", p.Level, p.X, p.Y)
}

// MiddlePoint возвращает среднюю точку набора позиций (с округлением).
// Уровень берётся у первой позиции; для пустого набора возвращается нулевая позиция.
func MiddlePoint(positions []Position) Position {
	if len(positions) == 0 {
		return Position{}
	}

	sumX, sumY := 0, 0
	for _, p := range positions {
		sumX += p.X
		sumY += p.Y
	}

	n := float64(len(positions))
	return Position{
		Level: positions[0].Level,
		X:     int(math.Round(float64(sumX) / n)),
		Y:     int(math.Round(float64(sumY) / n)),
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
