package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSeeds = []int64{0, 1, 2, 5, 42, 1337, 98765, -7}

func TestTopology_Bounds(t *testing.T) {
	for _, seed := range testSeeds {
		topo := New(seed)
		assert.GreaterOrEqual(t, topo.Bottom(), 1, "seed %d", seed)
		assert.LessOrEqual(t, topo.Bottom(), 3, "seed %d", seed)
		assert.GreaterOrEqual(t, topo.Top(), 22, "seed %d", seed)
		assert.LessOrEqual(t, topo.Top(), 24, "seed %d", seed)
		assert.Equal(t, topo.Top()-topo.Bottom()+1, topo.TotalLevels())
		assert.Equal(t, topo.Bottom(), topo.GroundLevel())
		assert.Equal(t, topo.Top(), topo.SurfaceLevel())
	}
}

func TestTopology_Ordinals(t *testing.T) {
	for _, seed := range testSeeds {
		topo := New(seed)
		assert.Equal(t, 1, topo.LevelOrdinal(StartLevel), "Стартовый уровень имеет порядковый номер 1")
		assert.Equal(t, topo.TotalLevels(), topo.LevelOrdinal(topo.Top()), "Поверхность: последний уровень")

		seen := make(map[int]bool)
		for l := topo.Bottom(); l <= topo.Top(); l++ {
			ord := topo.LevelOrdinal(l)
			assert.False(t, seen[ord], "Порядковые номера уникальны")
			seen[ord] = true
			assert.Equal(t, l, topo.LevelForOrdinal(ord), "LevelForOrdinal обратна LevelOrdinal")
		}
	}
}

func TestTopology_CampGroups(t *testing.T) {
	for _, seed := range testSeeds {
		topo := New(seed)

		assert.Equal(t, []int{StartLevel}, topo.LevelsForCamp(1))
		assert.Equal(t, CampOrdinalGround, topo.CampOrdinal(topo.Bottom()))
		assert.Equal(t, CampOrdinalGround+1, topo.CampOrdinal(StartLevel+1))
		assert.Equal(t, CampsTotal, topo.CampOrdinal(topo.Top()))

		covered := 0
		prevOrdinal := 0
		for c := 1; c <= CampsTotal; c++ {
			levels := topo.LevelsForCamp(c)
			require.NotEmpty(t, levels, "seed %d лагерь %d", seed, c)
			covered += len(levels)

			assert.True(t, topo.IsCampable(levels[0]), "Первый уровень группы допускает лагерь")
			for i, l := range levels {
				assert.Equal(t, c, topo.CampOrdinal(l))
				assert.Equal(t, i, topo.LevelIndexForCamp(c, l))
				if i > 0 {
					assert.False(t, topo.IsCampable(l))
				}
				// группы идут в порядке прохождения без разрывов
				assert.Equal(t, prevOrdinal+1, topo.LevelOrdinal(l))
				prevOrdinal = topo.LevelOrdinal(l)
			}
			assert.Equal(t, len(levels)-1, topo.MaxLevelIndexForCamp(c))

			campLevel, err := topo.CampLevel(c)
			require.NoError(t, err)
			assert.Equal(t, levels[0], campLevel)
		}
		assert.Equal(t, topo.TotalLevels(), covered, "Каждый уровень принадлежит ровно одному лагерю")
	}
}

func TestTopology_Deterministic(t *testing.T) {
	a := New(1337)
	b := New(1337)
	for c := 1; c <= CampsTotal; c++ {
		assert.Equal(t, a.LevelsForCamp(c), b.LevelsForCamp(c))
	}
}

func TestTopology_LevelsForCampReturnsCopy(t *testing.T) {
	topo := New(42)
	levels := topo.LevelsForCamp(2)
	levels[0] = 999
	assert.NotEqual(t, 999, topo.LevelsForCamp(2)[0], "Внутренние группы не должны изменяться снаружи")

	assert.Nil(t, topo.LevelsForCamp(0))
	assert.Nil(t, topo.LevelsForCamp(CampsTotal+1))
	_, err := topo.CampLevel(CampsTotal + 1)
	assert.Error(t, err)
}

func TestTopology_Sectors(t *testing.T) {
	topo := New(42)
	levels := topo.LevelsForCamp(3)

	assert.Equal(t, 180+20*3, topo.SectorsForLevel(levels[0]))
	expected := 180 + 20*3 + (len(levels)-1)*(120+10*3)
	assert.Equal(t, expected, topo.SectorsForCamp(3))
	assert.Equal(t, 0, topo.SectorsForLevel(100), "Несуществующий уровень")
}

func TestMaxPathLength(t *testing.T) {
	assert.Equal(t, 18, MaxPathLength(1, PathCampToPassage))
	assert.Equal(t, 30, MaxPathLength(15, PathCampToPassage), "Ограничено сверху")
	assert.Equal(t, 22, MaxPathLength(1, PathPassageToPassage))
	assert.Equal(t, 40, MaxPathLength(15, PathPassageToPassage))

	topo := New(42)
	assert.Equal(t, MaxPathLength(1, PathCampToPassage), topo.MaxPathLengthForLevel(StartLevel, PathCampToPassage))
}
