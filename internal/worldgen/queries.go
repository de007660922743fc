package worldgen

import (
	"errors"
	"fmt"

	"github.com/annel0/mmo-worldgen/internal/vec"
	"github.com/annel0/mmo-worldgen/internal/worldgen/topology"
)

var (
	ErrLevelNotFound = errors.New("уровень не существует")
	ErrCampNotFound  = errors.New("лагерь не существует")
)

// LevelView всё, что шаблон знает об одном уровне
type LevelView struct {
	Level       int            `json:"level"`
	Ordinal     int            `json:"ordinal"`
	CampOrdinal int            `json:"camp_ordinal"`
	Campable    bool           `json:"campable"`
	Sectors     int            `json:"sectors"`
	Features    []Feature      `json:"features"`
	Camps       []vec.Position `json:"camps"`
	Passages    PassagePair    `json:"passages"`
	Districts   []District     `json:"districts"`
}

// CampView лагерь с его уровнями, этапами и позициями
type CampView struct {
	CampOrdinal int            `json:"camp_ordinal"`
	CampLevel   int            `json:"camp_level"`
	Levels      []int          `json:"levels"`
	Sectors     int            `json:"sectors"`
	Stages      []Stage        `json:"stages"`
	Camps       []vec.Position `json:"camps"`
}

// Topology возвращает топологию уровней шаблона
func (w *WorldTemplate) Topology() *topology.Topology {
	return topology.New(w.Seed)
}

// FeaturesOn возвращает особенности, присутствующие на уровне
func (w *WorldTemplate) FeaturesOn(level int) []Feature {
	out := []Feature{}
	for _, f := range w.Features {
		if f.SpansLevel(level) {
			out = append(out, f)
		}
	}
	return out
}

// DistrictsOn возвращает районы уровня в порядке генерации
func (w *WorldTemplate) DistrictsOn(level int) []District {
	districts := w.Districts[level]
	if districts == nil {
		return []District{}
	}
	return districts
}

// StagesForCamp возвращает этапы лагеря (ранний, затем поздний)
func (w *WorldTemplate) StagesForCamp(campOrdinal int) []Stage {
	out := []Stage{}
	for _, s := range w.Stages {
		if s.CampOrdinal == campOrdinal {
			out = append(out, s)
		}
	}
	return out
}

// LevelView собирает представление уровня
func (w *WorldTemplate) LevelView(level int) (LevelView, error) {
	topo := w.Topology()
	if !topo.HasLevel(level) {
		return LevelView{}, fmt.Errorf("%w: %d (допустимо %d..%d)", ErrLevelNotFound, level, topo.Bottom(), topo.Top())
	}

	camps := w.CampPositions[level]
	if camps == nil {
		camps = []vec.Position{}
	}

	return LevelView{
		Level:       level,
		Ordinal:     topo.LevelOrdinal(level),
		CampOrdinal: topo.CampOrdinal(level),
		Campable:    topo.IsCampable(level),
		Sectors:     topo.SectorsForLevel(level),
		Features:    w.FeaturesOn(level),
		Camps:       camps,
		Passages:    w.PassagePositions[level],
		Districts:   w.DistrictsOn(level),
	}, nil
}

// CampView собирает представление лагеря
func (w *WorldTemplate) CampView(campOrdinal int) (CampView, error) {
	topo := w.Topology()
	campLevel, err := topo.CampLevel(campOrdinal)
	if err != nil {
		return CampView{}, fmt.Errorf("%w: %d", ErrCampNotFound, campOrdinal)
	}

	camps := w.CampPositions[campLevel]
	if camps == nil {
		camps = []vec.Position{}
	}

	return CampView{
		CampOrdinal: campOrdinal,
		CampLevel:   campLevel,
		Levels:      topo.LevelsForCamp(campOrdinal),
		Sectors:     topo.SectorsForCamp(campOrdinal),
		Stages:      w.StagesForCamp(campOrdinal),
		Camps:       camps,
	}, nil
}
