package sampler

import (
	"math/rand"

	"github.com/annel0/mmo-worldgen/internal/vec"
)

// Сколько раз пробуем случайную точку до перебора всего кольца
const rejectionTries = 32

// RandomInt возвращает детерминированное число из [min, max) для seed.
// При max <= min возвращается min.
func RandomInt(seed int64, min, max int) int {
	if max <= min {
		return min
	}
	r := rand.New(rand.NewSource(seed))
	return min + r.Intn(max-min)
}

// RandomSectorPosition возвращает детерминированную позицию уровня в пределах radius от центра уровня
func RandomSectorPosition(seed int64, level, radius int) vec.Position {
	return samplePoint(seed, level, radius, vec.Origin(level), 0)
}

// samplePoint выбирает целочисленную точку в кольце minRadius² <= d² <= radius² вокруг center
func samplePoint(seed int64, level, radius int, center vec.Position, minRadius int) vec.Position {
	center = center.OnLevel(level)
	if radius <= 0 {
		return center
	}
	if minRadius < 0 {
		minRadius = 0
	}
	if minRadius > radius {
		minRadius = radius
	}

	r := rand.New(rand.NewSource(seed))
	maxSq := radius * radius
	minSq := minRadius * minRadius

	for i := 0; i < rejectionTries; i++ {
		d := vec.Vec2{X: r.Intn(2*radius+1) - radius, Y: r.Intn(2*radius+1) - radius}
		if sq := d.LengthSq(); sq >= minSq && sq <= maxSq {
			return center.Offset(d)
		}
	}

	// Узкое кольцо: перебираем все точки и выбираем одну тем же генератором
	var ring []vec.Vec2
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d := vec.Vec2{X: dx, Y: dy}
			if sq := d.LengthSq(); sq >= minSq && sq <= maxSq {
				ring = append(ring, d)
			}
		}
	}
	return center.Offset(ring[r.Intn(len(ring))])
}
