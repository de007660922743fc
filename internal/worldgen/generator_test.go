package worldgen

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/annel0/mmo-worldgen/internal/vec"
	"github.com/annel0/mmo-worldgen/internal/worldgen/sampler"
	"github.com/annel0/mmo-worldgen/internal/worldgen/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var worldSeeds = []int64{1, 42, 1337, 20240}

func prepare(t *testing.T, seed int64) *WorldTemplate {
	t.Helper()
	world := NewWorldTemplate(seed, nil)
	require.NoError(t, NewGenerator(nil).PrepareWorld(seed, world), "seed %d", seed)
	return world
}

func TestPrepareWorld_Deterministic(t *testing.T) {
	for _, seed := range worldSeeds {
		first, err := json.Marshal(prepare(t, seed))
		require.NoError(t, err)
		second, err := json.Marshal(prepare(t, seed))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second), "seed %d: два запуска дают одинаковый шаблон", seed)
	}
}

func TestPrepareWorld_KeepsBaseFeatures(t *testing.T) {
	base := []Feature{{X: 40, Y: 40, SizeX: 2, SizeY: 2, LevelLow: 5, LevelHigh: 6, Kind: FeatureSea}}
	world := NewWorldTemplate(42, base)
	require.NoError(t, NewGenerator(nil).PrepareWorld(42, world))

	require.Len(t, world.Features, 10)
	assert.Equal(t, base[0], world.Features[0], "Базовые особенности остаются первыми")

	// район вокруг базового моря тоже создан
	assert.Contains(t, world.Districts[5], District{Level: 5, X: 40, Y: 40, SizeX: 8, SizeY: 8, Zone: ZoneResidential})
}

func TestPrepareWorld_Valid(t *testing.T) {
	for _, seed := range worldSeeds {
		world := prepare(t, seed)
		assert.NoError(t, world.Validate(), "seed %d", seed)
	}
}

func TestPrepareWorld_CampSpacing(t *testing.T) {
	for _, seed := range worldSeeds {
		world := prepare(t, seed)
		for level, camps := range world.CampPositions {
			if level == topology.StartLevel {
				continue // стартовый лагерь закреплён в центре
			}
			for _, camp := range camps {
				for i := 2; i <= 3; i++ {
					for _, other := range world.CampPositions[level+i] {
						assert.GreaterOrEqual(t, camp.DistanceTo(other), 5.0,
							"seed %d: лагеря %s и %s слишком близко", seed, camp, other)
					}
				}
			}
		}
	}
}

func TestPrepareWorld_NoCampInBlockingFeature(t *testing.T) {
	for _, seed := range worldSeeds {
		world := prepare(t, seed)
		for level, camps := range world.CampPositions {
			if level == topology.StartLevel {
				continue
			}
			for _, camp := range camps {
				for _, f := range world.Features {
					assert.False(t, f.IsBlocking() && f.Contains(camp), "seed %d: лагерь %s внутри %s", seed, camp, f.Kind)
				}
			}
		}
	}
}

func TestPrepareWorld_PassageContinuity(t *testing.T) {
	for _, seed := range worldSeeds {
		world := prepare(t, seed)
		topo := topology.New(seed)

		assert.Nil(t, world.PassagePositions[topo.Top()].Up)
		assert.Nil(t, world.PassagePositions[topo.Bottom()].Down)

		for l := topo.Bottom(); l < topo.Top(); l++ {
			up := world.PassagePositions[l].Up
			down := world.PassagePositions[l+1].Down
			require.NotNil(t, up, "seed %d уровень %d", seed, l)
			require.NotNil(t, down)
			assert.Equal(t, down.X, up.X)
			assert.Equal(t, down.Y, up.Y)
			assert.Equal(t, l, up.Level)
			assert.Equal(t, l+1, down.Level)
		}
	}
}

func TestPrepareWorld_CampCounts(t *testing.T) {
	world := prepare(t, 42)
	topo := topology.New(42)

	assert.Equal(t, []vec.Position{vec.Origin(topology.StartLevel)}, world.CampPositions[topology.StartLevel])
	for l := topo.Bottom(); l <= topo.Top(); l++ {
		camps, ok := world.CampPositions[l]
		require.True(t, ok, "Запись есть для каждого уровня")
		switch {
		case l == topology.StartLevel:
		case topo.IsCampable(l):
			require.Len(t, camps, 2)
			assert.NotEqual(t, camps[0], camps[1])
			assert.LessOrEqual(t, camps[0].DistanceTo(camps[1]), float64(maxCampDist+sampler.DefaultMaxAttempts/sampler.DefaultWidenEvery))
		default:
			assert.Empty(t, camps)
		}
	}
}

func TestPrepareWorld_Exhausted(t *testing.T) {
	g := NewGenerator(sampler.New(sampler.WithMaxAttempts(5), sampler.WithWidenEvery(0)))

	// провал покрывает весь мир, разместить лагерь невозможно
	world := NewWorldTemplate(42, []Feature{{SizeX: 10000, SizeY: 10000, LevelLow: -100, LevelHigh: 100, Kind: FeatureSea}})
	err := g.PrepareWorld(42, world)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sampler.ErrExhausted))

	var exhausted *sampler.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, "camp pos", exhausted.Label)
	assert.Equal(t, "blocking feature", exhausted.Reason)
	assert.Equal(t, 5, exhausted.Attempts)
}

func TestPrepareWorld_NilTemplate(t *testing.T) {
	assert.Error(t, NewGenerator(nil).PrepareWorld(1, nil))
}
