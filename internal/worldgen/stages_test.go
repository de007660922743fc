package worldgen

import (
	"testing"

	"github.com/annel0/mmo-worldgen/internal/worldgen/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStages(t *testing.T) {
	g := NewGenerator(nil)
	for _, seed := range []int64{1, 42, 1337} {
		topo := topology.New(seed)
		stages := g.GenerateStages(seed)
		require.Len(t, stages, 2*topology.CampsTotal)

		for c := 1; c <= topology.CampsTotal; c++ {
			early, late := stages[2*(c-1)], stages[2*(c-1)+1]
			assert.Equal(t, c, early.CampOrdinal)
			assert.Equal(t, c, late.CampOrdinal)
			assert.Equal(t, StageEarly, early.Kind)
			assert.Equal(t, StageLate, late.Kind)

			require.Len(t, early.Levels, 1, "Ранний этап: один уровень")
			assert.Contains(t, late.Levels, early.Levels[0], "Ранний этап входит в поздний")
			assert.Equal(t, topo.LevelsForCamp(c), late.Levels)

			total := topo.SectorsForCamp(c)
			assert.Equal(t, total/2, early.SectorBudget)
			assert.Equal(t, total, early.SectorBudget+late.SectorBudget)
		}
	}
}
