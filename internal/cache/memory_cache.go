package cache

import (
	"context"
	"sync"
	"time"

	"github.com/annel0/mmo-worldgen/internal/logging"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time // нулевое время: без истечения
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// MemoryCache реализует CacheRepo в памяти процесса.
// Используется, когда Redis выключен, и в тестах.
type MemoryCache struct {
	mu          sync.RWMutex
	items       map[string]memoryItem
	invalidator CacheInvalidator
	stats       stats
	now         func() time.Time
}

// NewMemoryCache создаёт кеш в памяти. invalidator может быть nil.
func NewMemoryCache(invalidator CacheInvalidator) *MemoryCache {
	return &MemoryCache{
		items:       make(map[string]memoryItem),
		invalidator: invalidator,
		now:         time.Now,
	}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	defer m.stats.recordLatency(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()

	if !ok || item.expired(m.now()) {
		m.stats.miss()
		return nil, ErrCacheMiss
	}

	m.stats.hit()
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()
	return ok && !item.expired(m.now()), nil
}

func (m *MemoryCache) Invalidate(ctx context.Context, key string) error {
	if err := m.Delete(ctx, key); err != nil {
		return err
	}
	m.stats.invalidated()

	if m.invalidator != nil {
		if err := m.invalidator.PublishInvalidation(ctx, key); err != nil {
			logging.Warn("⚠️ Не удалось разослать инвалидацию %s: %v", key, err)
		}
	}
	return nil
}

// HandleInvalidation реализует InvalidationHandler: удаляет ключ после уведомления с другого узла.
func (m *MemoryCache) HandleInvalidation(key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	m.stats.invalidated()
	return nil
}

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	m.items = make(map[string]memoryItem)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) GetMetrics() CacheMetrics {
	now := m.now()

	m.mu.RLock()
	var keys int64
	for _, item := range m.items {
		if !item.expired(now) {
			keys++
		}
	}
	m.mu.RUnlock()
	return m.stats.snapshot(keys)
}
