package worldgen

import (
	"errors"
	"fmt"

	"github.com/annel0/mmo-worldgen/internal/worldgen/topology"
)

// ErrInvalidTemplate оборачивает все нарушения, найденные Validate
var ErrInvalidTemplate = errors.New("некорректный шаблон мира")

// Validate проверяет согласованность шаблона с топологией его seed.
// Возвращает nil или ошибку со списком всех нарушений.
func (w *WorldTemplate) Validate() error {
	topo := w.Topology()
	var problems []error

	for i, f := range w.Features {
		if err := f.Validate(); err != nil {
			problems = append(problems, fmt.Errorf("features[%d]: %w", i, err))
		}
	}

	problems = append(problems, w.validateStages(topo)...)

	for l := topo.Bottom(); l <= topo.Top(); l++ {
		camps, ok := w.CampPositions[l]
		if !ok {
			problems = append(problems, fmt.Errorf("уровень %d: нет записи лагерей", l))
		} else {
			expected := 0
			switch {
			case l == topology.StartLevel:
				expected = 1
			case topo.IsCampable(l):
				expected = 2
			}
			if len(camps) != expected {
				problems = append(problems, fmt.Errorf("уровень %d: лагерей %d, ожидалось %d", l, len(camps), expected))
			}
			for _, c := range camps {
				if c.Level != l {
					problems = append(problems, fmt.Errorf("уровень %d: лагерь %s на чужом уровне", l, c))
				}
			}
		}

		if _, ok := w.Districts[l]; !ok {
			problems = append(problems, fmt.Errorf("уровень %d: нет записи районов", l))
		}

		problems = append(problems, w.validatePassages(topo, l)...)
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidTemplate, errors.Join(problems...))
}

func (w *WorldTemplate) validateStages(topo *topology.Topology) []error {
	var problems []error
	if len(w.Stages) != 2*topology.CampsTotal {
		problems = append(problems, fmt.Errorf("этапов %d, ожидалось %d", len(w.Stages), 2*topology.CampsTotal))
	}

	for c := 1; c <= topology.CampsTotal; c++ {
		stages := w.StagesForCamp(c)
		if len(stages) != 2 {
			problems = append(problems, fmt.Errorf("лагерь %d: этапов %d", c, len(stages)))
			continue
		}
		early, late := stages[0], stages[1]
		if early.Kind != StageEarly || late.Kind != StageLate {
			problems = append(problems, fmt.Errorf("лагерь %d: неверный порядок этапов", c))
			continue
		}
		if len(early.Levels) != 1 || len(late.Levels) == 0 || early.Levels[0] != late.Levels[0] {
			problems = append(problems, fmt.Errorf("лагерь %d: ранний этап должен состоять из первого уровня позднего", c))
		}
		if early.SectorBudget+late.SectorBudget != topo.SectorsForCamp(c) {
			problems = append(problems, fmt.Errorf("лагерь %d: бюджет секторов не совпадает", c))
		}
	}
	return problems
}

func (w *WorldTemplate) validatePassages(topo *topology.Topology, l int) []error {
	pair, ok := w.PassagePositions[l]
	if !ok {
		return []error{fmt.Errorf("уровень %d: нет записи переходов", l)}
	}

	var problems []error
	if l == topo.Top() {
		if pair.Up != nil {
			problems = append(problems, fmt.Errorf("уровень %d: у верхнего уровня есть переход вверх", l))
		}
	} else {
		above := w.PassagePositions[l+1].Down
		switch {
		case pair.Up == nil || above == nil:
			problems = append(problems, fmt.Errorf("уровень %d: разрыв цепочки переходов", l))
		case pair.Up.X != above.X || pair.Up.Y != above.Y || pair.Up.Level != l:
			problems = append(problems, fmt.Errorf("уровень %d: переход вверх %s не совпадает с переходом вниз %s", l, pair.Up, above))
		}
	}

	if l == topo.Bottom() {
		if pair.Down != nil {
			problems = append(problems, fmt.Errorf("уровень %d: у нижнего уровня есть переход вниз", l))
		}
	} else if pair.Down == nil {
		problems = append(problems, fmt.Errorf("уровень %d: нет перехода вниз", l))
	}
	return problems
}
