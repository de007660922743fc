package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/annel0/mmo-worldgen/internal/worldgen"
)

type memoryEntry struct {
	data      []byte
	createdAt time.Time
}

// MemoryTemplateRepo реализует TemplateRepo в памяти.
// Используется для CI/локальной разработки без БД.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryTemplateRepo struct {
	mu    sync.RWMutex
	codec *Codec
	data  map[int64]memoryEntry
}

// NewMemoryTemplateRepo создает новый репозиторий шаблонов в памяти.
// Шаблоны хранятся сериализованными, чтобы вызывающий не мог изменить сохранённую копию.
func NewMemoryTemplateRepo(codec *Codec) *MemoryTemplateRepo {
	return &MemoryTemplateRepo{
		codec: codec,
		data:  make(map[int64]memoryEntry),
	}
}

func (r *MemoryTemplateRepo) Save(ctx context.Context, tpl *worldgen.WorldTemplate) error {
	if tpl == nil {
		return fmt.Errorf("пустой шаблон")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := r.codec.Encode(tpl)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[tpl.Seed] = memoryEntry{data: data, createdAt: time.Now().UTC()}
	return nil
}

func (r *MemoryTemplateRepo) Load(ctx context.Context, seed int64) (*worldgen.WorldTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	entry, ok := r.data[seed]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("seed %d: %w", seed, ErrTemplateNotFound)
	}
	return r.codec.Decode(entry.data)
}

func (r *MemoryTemplateRepo) Delete(ctx context.Context, seed int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[seed]; !ok {
		return fmt.Errorf("seed %d: %w", seed, ErrTemplateNotFound)
	}
	delete(r.data, seed)
	return nil
}

func (r *MemoryTemplateRepo) List(ctx context.Context) ([]TemplateSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]TemplateSummary, 0, len(r.data))
	for seed, entry := range r.data {
		out = append(out, TemplateSummary{Seed: seed, CreatedAt: entry.createdAt, Size: len(entry.data)})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Seed < out[j].Seed })
	return out, nil
}

// Close для хранилища в памяти ничего не делает
func (r *MemoryTemplateRepo) Close() error {
	return nil
}
