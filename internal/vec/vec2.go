package vec

import "math"

// Vec2 представляет 2D смещение на сетке секторов (без уровня)
type Vec2 struct {
	X, Y int
}

// Add складывает два смещения
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает смещение
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// LengthSq возвращает квадрат длины (целочисленно, без потерь точности)
func (v Vec2) LengthSq() int {
	return v.X*v.X + v.Y*v.Y
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
