package worldgen

import (
	"fmt"
	"math"

	"github.com/annel0/mmo-worldgen/internal/vec"
	"github.com/annel0/mmo-worldgen/internal/worldgen/sampler"
	"github.com/annel0/mmo-worldgen/internal/worldgen/topology"
)

const (
	minPassageCampDist = 4
	maxPassageCampDist = 20
	maxPassageShift    = 20
	minPassageShift    = 3
)

// GeneratePassagePositions строит цепочку переходов сверху вниз. Переход вверх уровня
// совпадает с переходом вниз уровня выше; у верхнего уровня нет перехода вверх,
// у нижнего нет перехода вниз.
func (g *Generator) GeneratePassagePositions(seed int64, features []Feature, camps CampTable) (PassageTable, error) {
	topo := g.Topology(seed)
	result := make(PassageTable, topo.TotalLevels())

	for l := topo.Top(); l >= topo.Bottom(); l-- {
		var pair PassagePair

		if l != topo.Top() {
			if prev := result[l+1].Down; prev != nil {
				up := prev.OnLevel(l)
				pair.Up = &up
			}
		}

		if l != topo.Bottom() {
			above := nextCampsUp(topo, camps, l)
			below := nextCampsDown(topo, camps, l)
			down, err := g.passageDownPosition(topo, l, features, pair.Up, above, below)
			if err != nil {
				return nil, fmt.Errorf("переход вниз уровня %d: %w", l, err)
			}
			pair.Down = &down
		}

		result[l] = pair
	}

	return result, nil
}

// nextCampsUp возвращает лагеря ближайшего непустого уровня на l или выше
func nextCampsUp(topo *topology.Topology, camps CampTable, l int) []vec.Position {
	for i := l; i <= topo.Top(); i++ {
		if len(camps[i]) > 0 {
			return camps[i]
		}
	}
	return nil
}

// nextCampsDown возвращает лагеря ближайшего непустого уровня строго ниже l
func nextCampsDown(topo *topology.Topology, camps CampTable, l int) []vec.Position {
	for i := l - 1; i >= topo.Bottom(); i-- {
		if len(camps[i]) > 0 {
			return camps[i]
		}
	}
	return nil
}

// PassageDownPosition выбирает переход вниз с уровня level между двумя наборами лагерей.
// Пустой набор заменяется центром уровня. Таблица лагерей не изменяется.
func (g *Generator) PassageDownPosition(seed int64, level int, features []Feature, up *vec.Position, campsAbove, campsBelow []vec.Position) (vec.Position, error) {
	return g.passageDownPosition(g.Topology(seed), level, features, up, campsAbove, campsBelow)
}

func (g *Generator) passageDownPosition(topo *topology.Topology, level int, features []Feature, up *vec.Position, campsAbove, campsBelow []vec.Position) (vec.Position, error) {
	set1 := campSetOrOrigin(campsAbove, level)
	set2 := campSetOrOrigin(campsBelow, level)

	// самые удалённые друг от друга лагеря задают худший путь лагерь-переход
	middle1 := vec.MiddlePoint(set1)
	middle2 := vec.MiddlePoint(set2)
	furthest1 := furthestFrom(set1, middle2)
	furthest2 := furthestFrom(set2, middle1)

	// середина между ними не удлиняет максимальный путь
	optimal := vec.MiddlePoint([]vec.Position{furthest1, furthest2}).OnLevel(level)

	maxPathLength := topology.MaxPathLength(topo.CampOrdinal(level), topology.PathCampToPassage)
	startPathLength := int(math.Ceil(math.Max(optimal.DistanceTo(furthest1), optimal.DistanceTo(furthest2))))
	maxDiff := max(0, min(maxPassageShift, maxPathLength-startPathLength))
	minDiff := max(0, min(minPassageShift, maxDiff/2))

	rseed := topo.Seed()%1000 + 7 + int64((level+13)*101)
	label := fmt.Sprintf("passage down pos %d", level)

	return g.sampler.SampleWithCheck(rseed, label, level, maxDiff, optimal, minDiff, func(pos vec.Position) sampler.CheckResult {
		return isValidPassageDownPos(topo, pos, features, up, set1, set2)
	})
}

// campSetOrOrigin возвращает копию набора или центр уровня для пустого набора
func campSetOrOrigin(set []vec.Position, level int) []vec.Position {
	if len(set) == 0 {
		return []vec.Position{vec.Origin(level)}
	}
	out := make([]vec.Position, len(set))
	copy(out, set)
	return out
}

// furthestFrom возвращает самую удалённую от target позицию; при равенстве первую
func furthestFrom(set []vec.Position, target vec.Position) vec.Position {
	best := set[0]
	bestDist := best.DistanceTo(target)
	for _, p := range set[1:] {
		if d := p.DistanceTo(target); d > bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

// IsValidPassageDownPos проверяет кандидата на переход вниз
func (g *Generator) IsValidPassageDownPos(seed int64, pos vec.Position, features []Feature, up *vec.Position, campsAbove, campsBelow []vec.Position) sampler.CheckResult {
	return isValidPassageDownPos(g.Topology(seed), pos, features, up, campsAbove, campsBelow)
}

func isValidPassageDownPos(topo *topology.Topology, pos vec.Position, features []Feature, up *vec.Position, campsAbove, campsBelow []vec.Position) sampler.CheckResult {
	level := pos.Level
	campOrdinal := min(topo.CampOrdinal(level), topo.CampOrdinal(level-1))
	isCampable := topo.IsCampable(level)
	maxPathLengthC2P := topology.MaxPathLength(campOrdinal, topology.PathCampToPassage)

	if f, blocked := containsBlockingFeature(pos, features); blocked {
		return sampler.Reject("blocking feature", fmt.Sprintf("%s в %s", pos, f.Kind))
	}

	allCamps := make([]vec.Position, 0, len(campsAbove)+len(campsBelow))
	allCamps = append(allCamps, campsAbove...)
	allCamps = append(allCamps, campsBelow...)

	// не слишком близко и не слишком далеко от лагерей этого и нижнего уровня
	maxCampDist := min(maxPassageCampDist, maxPathLengthC2P)
	for _, camp := range allCamps {
		if camp.Level != level && camp.Level != level-1 {
			continue
		}
		dist := int(math.Round(pos.DistanceTo(camp)))
		if dist < minPassageCampDist {
			return sampler.Reject("min distance to camp", fmt.Sprintf("camp pos %s %d/%d", camp, dist, minPassageCampDist))
		}
		if bdist := pos.BlockDistanceTo(camp); bdist > maxCampDist {
			return sampler.Reject("max distance to camp", fmt.Sprintf("camp pos %s %d/%d", camp, bdist, maxCampDist))
		}
	}

	if up == nil {
		return sampler.Accept()
	}

	// на транзитных уровнях переходы ближе друг к другу
	minPassageDist := 8.0
	maxPassageDist := float64(min(20, topology.MaxPathLength(campOrdinal, topology.PathPassageToPassage)))
	if isCampable {
		minPassageDist = 3
		maxPassageDist = 100
	}
	dist := pos.DistanceTo(*up)
	if dist < minPassageDist {
		return sampler.Reject("min distance to passage up "+up.String(), fmt.Sprintf("%.0f/%.0f", math.Round(dist), minPassageDist))
	}
	if dist > maxPassageDist {
		return sampler.Reject("max distance to passage up "+up.String(), fmt.Sprintf("%.0f/%.0f", math.Round(dist), maxPassageDist))
	}

	// поздний переход не должен оказаться между лагерем и ранним переходом
	early, late := *up, pos
	if level > topology.StartLevel {
		early, late = pos, *up
	}
	for _, camp := range allCamps {
		if camp.Level != level {
			continue
		}
		dirE := vec.DirectionFrom(camp, early)
		dirL := vec.DirectionFrom(camp, late)
		if dirE == dirL || vec.IsNeighbouringDirection(dirE, dirL) {
			if camp.DistanceTo(late) < camp.DistanceTo(early) {
				return sampler.Reject("late passage closer to camp", fmt.Sprintf("level %d", level))
			}
		}
	}

	return sampler.Accept()
}
