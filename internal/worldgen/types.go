// Package worldgen строит абстрактный шаблон мира по seed: провалы рельефа,
// этапы прохождения, позиции лагерей, цепочки переходов между уровнями и районы.
package worldgen

import (
	"fmt"

	"github.com/annel0/mmo-worldgen/internal/vec"
)

// Размеры областей вокруг центра мира
const (
	AreaCentral   = 10
	AreaMedium    = 32
	AreaOutskirts = 56
)

// FeatureKind — тип провала
type FeatureKind int

const (
	FeatureWell FeatureKind = iota
	FeatureCollapse
	FeatureSea
	FeatureMountain
)

var featureKindNames = map[FeatureKind]string{
	FeatureWell:     "well",
	FeatureCollapse: "collapse",
	FeatureSea:      "sea",
	FeatureMountain: "mountain",
}

func (k FeatureKind) String() string {
	if name, ok := featureKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("feature(%d)", int(k))
}

// MarshalText сериализует тип как строку
func (k FeatureKind) MarshalText() ([]byte, error) {
	if _, ok := featureKindNames[k]; !ok {
		return nil, fmt.Errorf("неизвестный тип особенности: %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText разбирает строковое имя типа
func (k *FeatureKind) UnmarshalText(text []byte) error {
	parsed, err := ParseFeatureKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseFeatureKind разбирает имя типа особенности
func ParseFeatureKind(s string) (FeatureKind, error) {
	for kind, name := range featureKindNames {
		if name == s {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("неизвестный тип особенности %q", s)
}

// Feature — прямоугольный провал с центром (X,Y), присутствующий на уровнях [LevelLow, LevelHigh]
type Feature struct {
	X         int         `json:"x"`
	Y         int         `json:"y"`
	SizeX     int         `json:"size_x"`
	SizeY     int         `json:"size_y"`
	LevelLow  int         `json:"level_low"`
	LevelHigh int         `json:"level_high"`
	Kind      FeatureKind `json:"kind"`
}

// SpansLevel сообщает, присутствует ли особенность на уровне
func (f Feature) SpansLevel(level int) bool {
	return level >= f.LevelLow && level <= f.LevelHigh
}

// Contains сообщает, попадает ли позиция в прямоугольник особенности на её уровне
func (f Feature) Contains(pos vec.Position) bool {
	if !f.SpansLevel(pos.Level) {
		return false
	}
	return 2*abs(pos.X-f.X) <= f.SizeX && 2*abs(pos.Y-f.Y) <= f.SizeY
}

// IsBlocking сообщает, запрещает ли особенность размещение лагерей и переходов.
// Все типы провалов блокирующие.
func (f Feature) IsBlocking() bool {
	switch f.Kind {
	case FeatureWell, FeatureCollapse, FeatureSea, FeatureMountain:
		return true
	default:
		return false
	}
}

// Validate проверяет инварианты особенности
func (f Feature) Validate() error {
	if f.LevelLow > f.LevelHigh {
		return fmt.Errorf("особенность %s: level_low %d > level_high %d", f.Kind, f.LevelLow, f.LevelHigh)
	}
	if f.SizeX < 0 || f.SizeY < 0 {
		return fmt.Errorf("особенность %s: отрицательный размер %dx%d", f.Kind, f.SizeX, f.SizeY)
	}
	return nil
}

// containsBlockingFeature возвращает первую блокирующую особенность, содержащую позицию
func containsBlockingFeature(pos vec.Position, features []Feature) (Feature, bool) {
	for _, f := range features {
		if f.IsBlocking() && f.Contains(pos) {
			return f, true
		}
	}
	return Feature{}, false
}

// StageKind — ранний или поздний этап лагеря
type StageKind int

const (
	StageEarly StageKind = iota
	StageLate
)

func (k StageKind) String() string {
	if k == StageEarly {
		return "early"
	}
	return "late"
}

func (k StageKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *StageKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "early":
		*k = StageEarly
	case "late":
		*k = StageLate
	default:
		return fmt.Errorf("неизвестный этап %q", string(text))
	}
	return nil
}

// Stage этап прохождения лагеря с бюджетом секторов
type Stage struct {
	CampOrdinal  int       `json:"camp_ordinal"`
	Kind         StageKind `json:"kind"`
	Levels       []int     `json:"levels"`
	SectorBudget int       `json:"sector_budget"`
}

// ZoneKind зона района
type ZoneKind int

const (
	ZoneResidential ZoneKind = iota
	ZoneIndustrial
)

func (k ZoneKind) String() string {
	if k == ZoneIndustrial {
		return "industrial"
	}
	return "residential"
}

func (k ZoneKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ZoneKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "residential":
		*k = ZoneResidential
	case "industrial":
		*k = ZoneIndustrial
	default:
		return fmt.Errorf("неизвестная зона %q", string(text))
	}
	return nil
}

// District зонированный прямоугольник на одном уровне
type District struct {
	Level int      `json:"level"`
	X     int      `json:"x"`
	Y     int      `json:"y"`
	SizeX int      `json:"size_x"`
	SizeY int      `json:"size_y"`
	Zone  ZoneKind `json:"zone"`
}

// CampTable позиции лагерей по уровням (0, 1 или 2 на уровень)
type CampTable map[int][]vec.Position

// PassagePair переходы уровня: вверх (к уровню выше) и вниз (к уровню ниже)
type PassagePair struct {
	Up   *vec.Position `json:"up"`
	Down *vec.Position `json:"down"`
}

// PassageTable переходы по уровням
type PassageTable map[int]PassagePair

// WorldTemplate результат генерации. Вызывающий владеет шаблоном и может
// заранее заполнить Features базовыми особенностями.
type WorldTemplate struct {
	Seed             int64              `json:"seed"`
	Features         []Feature          `json:"features"`
	Stages           []Stage            `json:"stages"`
	CampPositions    CampTable          `json:"camp_positions"`
	PassagePositions PassageTable       `json:"passage_positions"`
	Districts        map[int][]District `json:"districts"`
}

// NewWorldTemplate создаёт пустой шаблон с копией базовых особенностей
func NewWorldTemplate(seed int64, baseFeatures []Feature) *WorldTemplate {
	features := make([]Feature, len(baseFeatures))
	copy(features, baseFeatures)
	return &WorldTemplate{Seed: seed, Features: features}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
