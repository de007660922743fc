package worldgen

import (
	"fmt"
	"math"

	"github.com/annel0/mmo-worldgen/internal/vec"
	"github.com/annel0/mmo-worldgen/internal/worldgen/sampler"
	"github.com/annel0/mmo-worldgen/internal/worldgen/topology"
)

const (
	// Радиус поиска второго лагеря вокруг первого
	maxCampDist = 4
	// Минимальное расстояние до лагерей на уровнях L+2 и L+3
	minConsecutiveCampDist = 5
)

// GenerateCampPositions расставляет лагеря сверху вниз. Проверка каждого уровня
// опирается только на уже заполненные уровни выше.
func (g *Generator) GenerateCampPositions(seed int64, features []Feature) (CampTable, error) {
	topo := g.Topology(seed)
	camps := make(CampTable, topo.TotalLevels())

	for l := topo.Top(); l >= topo.Bottom(); l-- {
		positions := []vec.Position{}
		if !topo.IsCampable(l) {
			camps[l] = positions
			continue
		}

		center := vec.Origin(l)
		if l == topology.StartLevel {
			// стартовый лагерь всегда в центре
			camps[l] = append(positions, center)
			continue
		}

		campOrdinal := topo.CampOrdinal(l)
		maxPathLen := topology.MaxPathLength(campOrdinal-1, topology.PathCampToPassage)
		maxCenterDist := min(15, int(math.Floor(float64(maxPathLen)*0.8-maxCampDist)))

		isValid := func(pos vec.Position) sampler.CheckResult {
			return isValidCampPos(topo, pos, camps, features)
		}

		first, err := g.sampler.SampleWithCheck(seed%10+int64((l+10)*55), "camp pos", l, maxCenterDist, center, 0, isValid)
		if err != nil {
			return nil, fmt.Errorf("первый лагерь уровня %d: %w", l, err)
		}

		second, err := g.sampler.SampleWithCheck(seed%100+int64((l+5)*10), "camp pos", l, maxCampDist, first, 1, isValid)
		if err != nil {
			return nil, fmt.Errorf("второй лагерь уровня %d: %w", l, err)
		}

		camps[l] = append(positions, first, second)
	}

	return camps, nil
}

// IsValidCampPos проверяет позицию лагеря относительно провалов и лагерей на уровнях выше
func (g *Generator) IsValidCampPos(seed int64, pos vec.Position, camps CampTable, features []Feature) sampler.CheckResult {
	return isValidCampPos(g.Topology(seed), pos, camps, features)
}

func isValidCampPos(topo *topology.Topology, pos vec.Position, camps CampTable, features []Feature) sampler.CheckResult {
	if f, blocked := containsBlockingFeature(pos, features); blocked {
		return sampler.Reject("blocking feature", fmt.Sprintf("%s в %s", pos, f.Kind))
	}

	// слишком близко к лагерям через уровень: переходы между ними окажутся рядом
	for i := 2; i <= 3; i++ {
		for _, prev := range camps[pos.Level+i] {
			if pos.DistanceTo(prev) < minConsecutiveCampDist {
				return sampler.Reject("min distance between consecutive camps", fmt.Sprintf("%s vs %s", pos, prev))
			}
		}
	}

	maxPathLengthC2P := float64(topo.MaxPathLengthForLevel(pos.Level, topology.PathCampToPassage))
	for i := 1; i <= 2; i++ {
		limit := maxPathLengthC2P * (1 + float64(i-1)*0.25)
		for _, prev := range camps[pos.Level+i] {
			if pos.DistanceTo(prev) > limit {
				return sampler.Reject("max distance between camps on previous levels", fmt.Sprintf("%s vs %s", pos, prev))
			}
		}
	}

	return sampler.Accept()
}
