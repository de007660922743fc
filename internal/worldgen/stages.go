package worldgen

import "github.com/annel0/mmo-worldgen/internal/worldgen/topology"

// GenerateStages делит каждый лагерь на ранний этап (только первый уровень группы,
// половина секторов) и поздний этап (вся группа, остаток секторов)
func (g *Generator) GenerateStages(seed int64) []Stage {
	topo := g.Topology(seed)
	stages := make([]Stage, 0, 2*topology.CampsTotal)

	for c := 1; c <= topology.CampsTotal; c++ {
		levels := topo.LevelsForCamp(c)
		total := topo.SectorsForCamp(c)
		early := total / 2

		stages = append(stages,
			Stage{CampOrdinal: c, Kind: StageEarly, Levels: []int{levels[0]}, SectorBudget: early},
			Stage{CampOrdinal: c, Kind: StageLate, Levels: levels, SectorBudget: total - early},
		)
	}
	return stages
}
