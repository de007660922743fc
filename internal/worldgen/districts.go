package worldgen

const (
	// уровень с промышленной зоной в центре
	factoryLevel = 14
	factorySize  = 8
	// море окружено жилыми районами только до этого уровня
	seaDistrictMaxLevel = 20
)

// GenerateDistricts создаёт районы: сначала фиксированные, затем вокруг особенностей
// в порядке их следования. Перекрытия не разрешаются.
func (g *Generator) GenerateDistricts(seed int64, features []Feature) map[int][]District {
	topo := g.Topology(seed)
	top, bottom := topo.Top(), topo.Bottom()

	result := make(map[int][]District, topo.TotalLevels())
	for l := top; l >= bottom; l-- {
		result[l] = []District{}
		if l == factoryLevel {
			result[l] = append(result[l], District{Level: l, SizeX: factorySize, SizeY: factorySize, Zone: ZoneIndustrial})
		}
	}

	for _, f := range features {
		padding, ok := DistrictPadding(f.Kind)
		if !ok {
			continue
		}
		maxLevel := top
		if f.Kind == FeatureSea {
			maxLevel = seaDistrictMaxLevel
		}
		districtsAround(result, f, districtZone(f.Kind), padding, bottom, maxLevel)
	}

	return result
}

// districtsAround добавляет район вокруг особенности на каждом её уровне из [minLevel, maxLevel]
func districtsAround(districts map[int][]District, f Feature, zone ZoneKind, padding, minLevel, maxLevel int) {
	for l := minLevel; l <= maxLevel; l++ {
		if !f.SpansLevel(l) {
			continue
		}
		districts[l] = append(districts[l], District{
			Level: l,
			X:     f.X,
			Y:     f.Y,
			SizeX: f.SizeX + padding*2,
			SizeY: f.SizeY + padding*2,
			Zone:  zone,
		})
	}
}

// DistrictPadding возвращает отступ района вокруг особенности данного типа (0 и false, если район не создаётся)
func DistrictPadding(kind FeatureKind) (int, bool) {
	switch kind {
	case FeatureSea:
		return 3, true
	case FeatureWell, FeatureMountain:
		return 2, true
	default:
		return 0, false
	}
}

func districtZone(kind FeatureKind) ZoneKind {
	if kind == FeatureMountain {
		return ZoneIndustrial
	}
	return ZoneResidential
}
