package worldgen

import (
	"fmt"
	"time"

	"github.com/annel0/mmo-worldgen/internal/logging"
	"github.com/annel0/mmo-worldgen/internal/worldgen/sampler"
	"github.com/annel0/mmo-worldgen/internal/worldgen/topology"
)

// Generator строит шаблоны мира. Генерация однопоточная и детерминированная:
// один и тот же seed всегда даёт один и тот же шаблон.
type Generator struct {
	sampler *sampler.Sampler
}

// NewGenerator создаёт генератор с заданным сэмплером (при nil параметры по умолчанию)
func NewGenerator(s *sampler.Sampler) *Generator {
	if s == nil {
		s = sampler.New()
	}
	return &Generator{sampler: s}
}

// Topology возвращает топологию уровней для seed
func (g *Generator) Topology(seed int64) *topology.Topology {
	return topology.New(seed)
}

// PrepareWorld заполняет шаблон: особенности → этапы → лагеря → переходы → районы.
// Сгенерированные особенности добавляются к уже имеющимся в шаблоне.
func (g *Generator) PrepareWorld(seed int64, world *WorldTemplate) error {
	if world == nil {
		return fmt.Errorf("шаблон мира не задан")
	}

	start := time.Now()
	logging.Debug("🌍 Генерация шаблона мира seed=%d", seed)

	world.Seed = seed
	world.Features = append(world.Features, g.GenerateHoles(seed)...)
	world.Stages = g.GenerateStages(seed)

	camps, err := g.GenerateCampPositions(seed, world.Features)
	if err != nil {
		return fmt.Errorf("позиции лагерей: %w", err)
	}
	world.CampPositions = camps

	passages, err := g.GeneratePassagePositions(seed, world.Features, world.CampPositions)
	if err != nil {
		return fmt.Errorf("позиции переходов: %w", err)
	}
	world.PassagePositions = passages

	world.Districts = g.GenerateDistricts(seed, world.Features)

	logging.Debug("✅ Шаблон мира seed=%d готов за %v (особенностей: %d, этапов: %d)",
		seed, time.Since(start), len(world.Features), len(world.Stages))
	return nil
}
