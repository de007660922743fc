package worldgen

import (
	"github.com/annel0/mmo-worldgen/internal/worldgen/sampler"
)

const (
	wellCount     = 4
	mountainCount = 3
	collapseSize  = 9
	seaRadius     = 12
)

// GenerateHoles возвращает 9 провалов: 4 колодца, обвал в центре, море на западе и 3 горы на востоке
func (g *Generator) GenerateHoles(seed int64) []Feature {
	topo := g.Topology(seed)
	top, bottom := topo.Top(), topo.Bottom()

	result := make([]Feature, 0, wellCount+2+mountainCount)

	for i := 0; i < wellCount; i++ {
		seeds := wellSeeds(seed, i)
		pos := sampler.RandomSectorPosition(seeds[0], top, AreaCentral+i*2)
		h := 2 + i + sampler.RandomInt(seeds[1], 0, 5)
		minS := max(i+2, h/4)
		maxS := min(10, h*3)
		sizeX := sampler.RandomInt(seeds[2], minS, maxS)
		sizeY := sampler.RandomInt(seeds[3], minS, maxS)
		// колодец стоит в выбранном секторе по обеим осям, не на диагонали
		result = append(result, Feature{
			X:         pos.X,
			Y:         pos.Y,
			SizeX:     sizeX,
			SizeY:     sizeY,
			LevelLow:  top - h,
			LevelHigh: top,
			Kind:      FeatureWell,
		})
	}

	result = append(result, Feature{
		SizeX:     collapseSize,
		SizeY:     collapseSize,
		LevelLow:  top - 2,
		LevelHigh: top,
		Kind:      FeatureCollapse,
	})

	// море на западе
	result = append(result, Feature{
		X:         -AreaMedium,
		SizeX:     seaRadius * 2,
		SizeY:     seaRadius * 2,
		LevelLow:  bottom,
		LevelHigh: top,
		Kind:      FeatureSea,
	})

	// горы на востоке
	for i := 0; i < mountainCount; i++ {
		h := 3 + i + sampler.RandomInt(seed%22+80+int64(i*11), 0, 6)
		s := h * 3
		result = append(result, Feature{
			X:         AreaOutskirts - 10,
			Y:         -20 + i*11,
			SizeX:     s,
			SizeY:     s,
			LevelLow:  bottom,
			LevelHigh: bottom + h,
			Kind:      FeatureMountain,
		})
	}

	return result
}

// wellSeeds возвращает sub-seed'ы колодца i: позиция, глубина, ширина, высота
func wellSeeds(seed int64, i int) [4]int64 {
	return [4]int64{
		seed%100 + int64(i*10),
		seed%33 + 101 + int64(i*8),
		seed%50 + 66 + int64(i*31),
		seed%33 + 101 + int64(i*82),
	}
}
