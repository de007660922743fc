package worldgen

import (
	"testing"

	"github.com/annel0/mmo-worldgen/internal/worldgen/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDistricts(t *testing.T) {
	g := NewGenerator(nil)
	seed := int64(42)
	topo := topology.New(seed)
	features := g.GenerateHoles(seed)

	districts := g.GenerateDistricts(seed, features)
	require.Len(t, districts, topo.TotalLevels(), "Запись для каждого уровня")

	for l := topo.Bottom(); l <= topo.Top(); l++ {
		var expected []District
		if l == 14 {
			expected = append(expected, District{Level: 14, SizeX: 8, SizeY: 8, Zone: ZoneIndustrial})
		}
		for _, f := range features {
			padding, ok := DistrictPadding(f.Kind)
			if !ok || !f.SpansLevel(l) {
				continue
			}
			if f.Kind == FeatureSea && l > 20 {
				continue
			}
			expected = append(expected, District{
				Level: l,
				X:     f.X,
				Y:     f.Y,
				SizeX: f.SizeX + 2*padding,
				SizeY: f.SizeY + 2*padding,
				Zone:  districtZone(f.Kind),
			})
		}

		if expected == nil {
			assert.Empty(t, districts[l], "уровень %d", l)
		} else {
			assert.Equal(t, expected, districts[l], "уровень %d", l)
		}
	}
}

func TestDistrictPadding(t *testing.T) {
	p, ok := DistrictPadding(FeatureSea)
	assert.True(t, ok)
	assert.Equal(t, 3, p)

	p, ok = DistrictPadding(FeatureWell)
	assert.True(t, ok)
	assert.Equal(t, 2, p)

	_, ok = DistrictPadding(FeatureCollapse)
	assert.False(t, ok, "Вокруг обвала районов нет")

	assert.Equal(t, ZoneIndustrial, districtZone(FeatureMountain))
	assert.Equal(t, ZoneResidential, districtZone(FeatureSea))
}
