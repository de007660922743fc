// Package topology описывает вертикальное устройство мира для конкретного seed:
// границы уровней, порядковые номера уровней, группы уровней по лагерям,
// число секторов и допустимые длины путей.
package topology

import (
	"fmt"
	"math/rand"
)

const (
	// StartLevel — уровень, с которого начинается игра (порядковый номер 1)
	StartLevel = 13
	// CampsTotal — общее число лагерей в мире
	CampsTotal = 15
	// CampOrdinalGround — лагерь, в группу которого входит самый нижний уровень
	CampOrdinalGround = 6

	// Верхние уровни (14..top) делятся на лагеря 7..15
	surfaceCamps = CampsTotal - CampOrdinalGround
	// Нижние уровни (12..bottom) делятся на лагеря 2..6
	undergroundCamps = CampOrdinalGround - 1
)

// PathType тип критического пути, для которого ограничивается длина
type PathType int

const (
	PathCampToPassage PathType = iota
	PathPassageToPassage
)

// String возвращает имя типа пути
func (p PathType) String() string {
	switch p {
	case PathCampToPassage:
		return "camp-to-passage"
	case PathPassageToPassage:
		return "passage-to-passage"
	default:
		return "unknown"
	}
}

// MaxPathLength возвращает максимальную длину пути для лагеря с данным порядковым номером
func MaxPathLength(campOrdinal int, pathType PathType) int {
	switch pathType {
	case PathPassageToPassage:
		return min(40, 20+2*campOrdinal)
	default:
		return min(30, 16+2*campOrdinal)
	}
}

// Topology неизменяемое описание уровней мира для одного seed
type Topology struct {
	seed   int64
	bottom int
	top    int
	// groups[c-1]: уровни лагеря c в порядке прохождения
	groups [][]int
	campOf map[int]int
}

// New строит топологию для seed. Результат полностью определяется seed.
func New(seed int64) *Topology {
	t := &Topology{
		seed:   seed,
		bottom: 3 - int(mod(seed, 3)),
		top:    22 + int(mod(seed/3, 3)),
		campOf: make(map[int]int),
	}

	t.groups = append(t.groups, []int{StartLevel})

	var underground []int
	for l := StartLevel - 1; l >= t.bottom; l-- {
		underground = append(underground, l)
	}
	var surface []int
	for l := StartLevel + 1; l <= t.top; l++ {
		surface = append(surface, l)
	}

	t.groups = append(t.groups, splitLevels(underground, undergroundCamps, seed*31+1)...)
	t.groups = append(t.groups, splitLevels(surface, surfaceCamps, seed*31+2)...)

	for i, group := range t.groups {
		for _, l := range group {
			t.campOf[l] = i + 1
		}
	}

	return t
}

// splitLevels делит уровни на k последовательных групп; лишние уровни
// достаются группам, выбранным детерминированной перестановкой
func splitLevels(levels []int, k int, seed int64) [][]int {
	base := len(levels) / k
	extra := len(levels) % k

	sizes := make([]int, k)
	for i := range sizes {
		sizes[i] = base
	}
	r := rand.New(rand.NewSource(seed))
	for _, idx := range r.Perm(k)[:extra] {
		sizes[idx]++
	}

	groups := make([][]int, 0, k)
	offset := 0
	for _, size := range sizes {
		group := make([]int, size)
		copy(group, levels[offset:offset+size])
		groups = append(groups, group)
		offset += size
	}
	return groups
}

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// Seed возвращает seed, для которого построена топология
func (t *Topology) Seed() int64 { return t.seed }

// Top возвращает самый верхний уровень (поверхность)
func (t *Topology) Top() int { return t.top }

// Bottom возвращает самый нижний уровень
func (t *Topology) Bottom() int { return t.bottom }

// SurfaceLevel синоним Top
func (t *Topology) SurfaceLevel() int { return t.top }

// GroundLevel синоним Bottom
func (t *Topology) GroundLevel() int { return t.bottom }

// TotalLevels возвращает число уровней мира
func (t *Topology) TotalLevels() int { return t.top - t.bottom + 1 }

// HasLevel сообщает, существует ли уровень
func (t *Topology) HasLevel(level int) bool {
	return level >= t.bottom && level <= t.top
}

// LevelOrdinal возвращает порядковый номер уровня: стартовый уровень = 1,
// затем вниз до самого нижнего и далее вверх от StartLevel+1
func (t *Topology) LevelOrdinal(level int) int {
	if level <= StartLevel {
		return StartLevel + 1 - level
	}
	return (StartLevel + 1 - t.bottom) + (level - StartLevel)
}

// LevelForOrdinal обратна LevelOrdinal
func (t *Topology) LevelForOrdinal(ordinal int) int {
	undergroundCount := StartLevel + 1 - t.bottom
	if ordinal <= undergroundCount {
		return StartLevel + 1 - ordinal
	}
	return StartLevel + (ordinal - undergroundCount)
}

// CampOrdinal возвращает номер лагеря, которому принадлежит уровень (0 для несуществующего уровня)
func (t *Topology) CampOrdinal(level int) int {
	return t.campOf[level]
}

// LevelsForCamp возвращает копию уровней лагеря в порядке прохождения
func (t *Topology) LevelsForCamp(campOrdinal int) []int {
	if campOrdinal < 1 || campOrdinal > len(t.groups) {
		return nil
	}
	levels := make([]int, len(t.groups[campOrdinal-1]))
	copy(levels, t.groups[campOrdinal-1])
	return levels
}

// CampLevel возвращает уровень лагеря (первый уровень группы)
func (t *Topology) CampLevel(campOrdinal int) (int, error) {
	if campOrdinal < 1 || campOrdinal > len(t.groups) || len(t.groups[campOrdinal-1]) == 0 {
		return 0, fmt.Errorf("лагерь %d не существует", campOrdinal)
	}
	return t.groups[campOrdinal-1][0], nil
}

// IsCampable сообщает, может ли на уровне стоять лагерь
func (t *Topology) IsCampable(level int) bool {
	c := t.campOf[level]
	if c == 0 {
		return false
	}
	return t.groups[c-1][0] == level
}

// LevelIndexForCamp возвращает индекс уровня внутри группы его лагеря (-1 если не найден)
func (t *Topology) LevelIndexForCamp(campOrdinal, level int) int {
	if campOrdinal < 1 || campOrdinal > len(t.groups) {
		return -1
	}
	for i, l := range t.groups[campOrdinal-1] {
		if l == level {
			return i
		}
	}
	return -1
}

// MaxLevelIndexForCamp возвращает максимальный индекс уровня в группе лагеря
func (t *Topology) MaxLevelIndexForCamp(campOrdinal int) int {
	return len(t.LevelsForCamp(campOrdinal)) - 1
}

// SectorsForLevel возвращает число секторов на уровне
func (t *Topology) SectorsForLevel(level int) int {
	c := t.campOf[level]
	if c == 0 {
		return 0
	}
	if t.IsCampable(level) {
		return 180 + 20*c
	}
	return 120 + 10*c
}

// SectorsForCamp возвращает суммарное число секторов всех уровней лагеря
func (t *Topology) SectorsForCamp(campOrdinal int) int {
	total := 0
	for _, l := range t.LevelsForCamp(campOrdinal) {
		total += t.SectorsForLevel(l)
	}
	return total
}

// MaxPathLengthForLevel возвращает длину пути для лагеря, которому принадлежит уровень
func (t *Topology) MaxPathLengthForLevel(level int, pathType PathType) int {
	return MaxPathLength(t.CampOrdinal(level), pathType)
}
