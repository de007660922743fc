package storage

import (
	"context"
	"errors"
	"time"

	"github.com/annel0/mmo-worldgen/internal/worldgen"
)

// ErrTemplateNotFound возвращается, если шаблона для seed нет в хранилище
var ErrTemplateNotFound = errors.New("шаблон мира не найден")

// TemplateSummary краткая информация о сохранённом шаблоне
type TemplateSummary struct {
	Seed      int64     `json:"seed"`
	CreatedAt time.Time `json:"created_at"`
	Size      int       `json:"size"`
}

// TemplateRepo определяет интерфейс хранилища готовых шаблонов мира.
// Шаблон полностью определяется seed, поэтому seed служит ключом.
type TemplateRepo interface {
	// Save сохраняет шаблон, перезаписывая существующий с тем же seed.
	Save(ctx context.Context, tpl *worldgen.WorldTemplate) error

	// Load загружает шаблон.
	// Возвращает ErrTemplateNotFound (в обёртке), если шаблона нет.
	Load(ctx context.Context, seed int64) (*worldgen.WorldTemplate, error)

	// Delete удаляет шаблон. Возвращает ErrTemplateNotFound, если удалять нечего.
	Delete(ctx context.Context, seed int64) error

	// List возвращает сохранённые шаблоны, отсортированные по seed.
	List(ctx context.Context) ([]TemplateSummary, error)

	// Close освобождает ресурсы хранилища.
	Close() error
}
