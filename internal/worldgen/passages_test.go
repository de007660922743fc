package worldgen

import (
	"testing"

	"github.com/annel0/mmo-worldgen/internal/vec"
	"github.com/annel0/mmo-worldgen/internal/worldgen/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassageDownPosition_SyntheticOrigin(t *testing.T) {
	g := NewGenerator(nil)
	topo := topology.New(42)

	// Лагерей ещё нет: оба набора заменяются центром уровня
	level := topo.LevelsForCamp(3)[0]
	pos, err := g.PassageDownPosition(42, level, nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, level, pos.Level)
	assert.GreaterOrEqual(t, pos.DistanceTo(vec.Origin(level)), 3.5, "Не ближе 4 секторов к центру")
}

func TestGeneratePassagePositions_EmptyCampTable(t *testing.T) {
	g := NewGenerator(nil)
	topo := topology.New(1337)

	passages, err := g.GeneratePassagePositions(1337, nil, CampTable{})
	require.NoError(t, err)
	require.Len(t, passages, topo.TotalLevels())

	for l := topo.Bottom(); l < topo.Top(); l++ {
		require.NotNil(t, passages[l].Up)
		assert.Equal(t, passages[l+1].Down.OnLevel(l), *passages[l].Up)
	}
}

func TestGeneratePassagePositions_DoesNotMutateCamps(t *testing.T) {
	g := NewGenerator(nil)
	holes := g.GenerateHoles(42)
	camps, err := g.GenerateCampPositions(42, holes)
	require.NoError(t, err)

	snapshot := make(CampTable, len(camps))
	for l, positions := range camps {
		snapshot[l] = append([]vec.Position{}, positions...)
	}

	_, err = g.GeneratePassagePositions(42, holes, camps)
	require.NoError(t, err)
	assert.Equal(t, snapshot, camps, "Таблица лагерей не изменяется")
}

func TestFurthestFrom_FirstMaximumWins(t *testing.T) {
	set := []vec.Position{vec.Pos(1, 3, 0), vec.Pos(1, -3, 0), vec.Pos(1, 0, 3)}
	assert.Equal(t, vec.Pos(1, 3, 0), furthestFrom(set, vec.Origin(1)), "При равенстве выбирается первая позиция")
}

func TestIsValidPassageDownPos(t *testing.T) {
	g := NewGenerator(nil)
	seed := int64(42)
	topo := topology.New(seed)
	level := topology.StartLevel
	camps := []vec.Position{vec.Origin(level)}

	t.Run("блокирующая особенность", func(t *testing.T) {
		features := []Feature{{X: 6, Y: 0, SizeX: 4, SizeY: 4, LevelLow: level, LevelHigh: level, Kind: FeatureWell}}
		res := g.IsValidPassageDownPos(seed, vec.Pos(level, 6, 1), features, nil, camps, nil)
		assert.False(t, res.Valid)
		assert.Equal(t, "blocking feature", res.Reason)
	})

	t.Run("слишком близко к лагерю", func(t *testing.T) {
		res := g.IsValidPassageDownPos(seed, vec.Pos(level, 2, 2), nil, nil, camps, nil)
		assert.False(t, res.Valid)
		assert.Equal(t, "min distance to camp", res.Reason)
	})

	t.Run("слишком далеко от лагеря", func(t *testing.T) {
		res := g.IsValidPassageDownPos(seed, vec.Pos(level, 19, 0), nil, nil, camps, nil)
		assert.False(t, res.Valid)
		assert.Equal(t, "max distance to camp", res.Reason)
	})

	t.Run("лагеря дальних уровней не учитываются", func(t *testing.T) {
		far := []vec.Position{vec.Pos(level-3, 100, 100)}
		res := g.IsValidPassageDownPos(seed, vec.Pos(level, 6, 0), nil, nil, camps, far)
		assert.True(t, res.Valid)
	})

	t.Run("поздний переход между лагерем и ранним", func(t *testing.T) {
		// на уровне 13 и ниже ранний переход ведёт вверх, поздний это кандидат
		up := vec.Pos(level, 10, 0)
		res := g.IsValidPassageDownPos(seed, vec.Pos(level, 6, 1), nil, &up, camps, nil)
		assert.False(t, res.Valid)
		assert.Equal(t, "late passage closer to camp", res.Reason)

		res = g.IsValidPassageDownPos(seed, vec.Pos(level, -6, 1), nil, &up, camps, nil)
		assert.True(t, res.Valid, "Противоположное направление допустимо")
	})

	t.Run("выше стартового уровня ранним считается кандидат", func(t *testing.T) {
		above := topology.StartLevel + 1
		require.True(t, topo.HasLevel(above))
		aboveCamps := []vec.Position{vec.Origin(above)}

		// переход вверх ближе к лагерю в том же направлении
		up := vec.Pos(above, 5, 0)
		res := g.IsValidPassageDownPos(seed, vec.Pos(above, 16, 0), nil, &up, aboveCamps, nil)
		assert.False(t, res.Valid)
		assert.Equal(t, "late passage closer to camp", res.Reason)

		up = vec.Pos(above, -5, 0)
		res = g.IsValidPassageDownPos(seed, vec.Pos(above, 16, 0), nil, &up, aboveCamps, nil)
		assert.True(t, res.Valid, "Противоположное направление допустимо: %s", res.Reason)

		// на стартовом уровне та же расстановка допустима: поздний здесь кандидат
		up = vec.Pos(level, 5, 0)
		res = g.IsValidPassageDownPos(seed, vec.Pos(level, 16, 0), nil, &up, camps, nil)
		assert.True(t, res.Valid, res.Reason)
	})

	t.Run("уровень с лагерем", func(t *testing.T) {
		campable := topo.LevelsForCamp(3)[0]
		require.True(t, topo.IsCampable(campable))

		up := vec.Origin(campable)
		res := g.IsValidPassageDownPos(seed, vec.Pos(campable, 2, 0), nil, &up, nil, nil)
		assert.False(t, res.Valid, "Переходы не ближе 3")
		assert.Equal(t, "min distance to passage up "+up.String(), res.Reason)

		res = g.IsValidPassageDownPos(seed, vec.Pos(campable, 3, 0), nil, &up, nil, nil)
		assert.True(t, res.Valid, res.Reason)

		res = g.IsValidPassageDownPos(seed, vec.Pos(campable, 100, 0), nil, &up, nil, nil)
		assert.True(t, res.Valid, res.Reason)

		res = g.IsValidPassageDownPos(seed, vec.Pos(campable, 101, 0), nil, &up, nil, nil)
		assert.False(t, res.Valid, "И не дальше 100")
		assert.Equal(t, "max distance to passage up "+up.String(), res.Reason)
	})

	t.Run("транзитный уровень", func(t *testing.T) {
		transit := 0
		for l := topo.Top(); l > topo.Bottom(); l-- {
			if !topo.IsCampable(l) {
				transit = l
				break
			}
		}
		require.NotZero(t, transit)

		up := vec.Pos(transit, 0, 0)
		res := g.IsValidPassageDownPos(seed, vec.Pos(transit, 5, 0), nil, &up, nil, nil)
		assert.False(t, res.Valid, "На транзитном уровне переходы не ближе 8")

		res = g.IsValidPassageDownPos(seed, vec.Pos(transit, 25, 0), nil, &up, nil, nil)
		assert.False(t, res.Valid, "И не дальше 20")

		res = g.IsValidPassageDownPos(seed, vec.Pos(transit, 12, 0), nil, &up, nil, nil)
		assert.True(t, res.Valid)
	})
}
