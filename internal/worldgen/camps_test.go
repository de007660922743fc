package worldgen

import (
	"math"
	"testing"

	"github.com/annel0/mmo-worldgen/internal/vec"
	"github.com/annel0/mmo-worldgen/internal/worldgen/topology"
	"github.com/stretchr/testify/assert"
)

func TestIsValidCampPos_Distances(t *testing.T) {
	g := NewGenerator(nil)
	seed := int64(42)
	level := 10
	maxPath := topology.New(seed).MaxPathLengthForLevel(level, topology.PathCampToPassage)
	// через уровень допуск на 25% больше
	maxPathFar := int(math.Floor(float64(maxPath) * 1.25))

	const (
		tooFar   = "max distance between camps on previous levels"
		tooClose = "min distance between consecutive camps"
	)

	tests := []struct {
		name   string
		pos    vec.Position
		camps  CampTable
		reason string
	}{
		{"L+1 на границе", vec.Pos(level, maxPath, 0), CampTable{level + 1: {vec.Origin(level + 1)}}, ""},
		{"L+1 за границей", vec.Pos(level, maxPath+1, 0), CampTable{level + 1: {vec.Origin(level + 1)}}, tooFar},
		{"L+2 на границе", vec.Pos(level, maxPathFar, 0), CampTable{level + 2: {vec.Origin(level + 2)}}, ""},
		{"L+2 за границей", vec.Pos(level, maxPathFar+1, 0), CampTable{level + 2: {vec.Origin(level + 2)}}, tooFar},
		{"L+2 ближе 5", vec.Pos(level, 4, 0), CampTable{level + 2: {vec.Origin(level + 2)}}, tooClose},
		{"L+3 ближе 5", vec.Pos(level, 4, 0), CampTable{level + 3: {vec.Origin(level + 3)}}, tooClose},
		{"L+2 и L+3 ровно 5", vec.Pos(level, 5, 0), CampTable{level + 2: {vec.Origin(level + 2)}, level + 3: {vec.Origin(level + 3)}}, ""},
		{"L+1 близко допустимо", vec.Pos(level, 1, 0), CampTable{level + 1: {vec.Origin(level + 1)}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := g.IsValidCampPos(seed, tt.pos, tt.camps, nil)
			if tt.reason == "" {
				assert.True(t, res.Valid, "Позиция %s должна быть допустима: %s", tt.pos, res.Reason)
				return
			}
			assert.False(t, res.Valid, "Позиция %s должна быть отклонена", tt.pos)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}
