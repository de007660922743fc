package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// KeyPrefix общий префикс ключей шаблонов в кеше
const KeyPrefix = "worldgen:template:"

// CacheRepo определяет интерфейс горячего кеша сериализованных шаблонов.
//
// Использование:
//
//	c := NewMemoryCache(nil)
//	err := c.Set(ctx, TemplateKey(42), data, time.Hour)
//	data, err := c.Get(ctx, TemplateKey(42))
//	err = c.Invalidate(ctx, TemplateKey(42))
type CacheRepo interface {
	// Get получает значение по ключу.
	// Возвращает ErrCacheMiss, если ключ не найден или истёк.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение с указанным TTL.
	// TTL = 0 означает отсутствие истечения.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет ключ только на этом узле.
	Delete(ctx context.Context, key string) error

	// Exists проверяет существование ключа.
	Exists(ctx context.Context, key string) (bool, error)

	// Invalidate удаляет ключ и рассылает уведомление остальным узлам.
	Invalidate(ctx context.Context, key string) error

	// Close закрывает соединение с кешем.
	Close() error

	// GetMetrics возвращает снимок метрик кеша.
	GetMetrics() CacheMetrics
}

// CacheInvalidator управляет инвалидацией кеша через Pub/Sub.
type CacheInvalidator interface {
	// PublishInvalidation отправляет уведомление об инвалидации.
	PublishInvalidation(ctx context.Context, key string) error

	// SubscribeInvalidations подписывается на уведомления об инвалидации.
	SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error

	// Close закрывает соединение.
	Close() error
}

// InvalidationHandler обрабатывает уведомления об инвалидации кеша.
type InvalidationHandler func(key string) error

// CacheMetrics содержит метрики кеша.
type CacheMetrics struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`

	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`

	TotalKeys     int64 `json:"total_keys"`
	Invalidations int64 `json:"invalidations"`

	LastUpdate time.Time `json:"last_update"`
}

// CacheConfig содержит конфигурацию Redis кеша.
type CacheConfig struct {
	RedisURL      string `yaml:"redis_url"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	DefaultTTL time.Duration `yaml:"default_ttl"`
	MaxTTL     time.Duration `yaml:"max_ttl"`

	MaxConnections int           `yaml:"max_connections"`
	PoolTimeout    time.Duration `yaml:"pool_timeout"`
}

// Ошибки кеша
var (
	ErrCacheMiss  = errors.New("cache miss")
	ErrInvalidKey = errors.New("invalid key")
)

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// TemplateKey возвращает ключ кеша для шаблона с данным seed.
func TemplateKey(seed int64) string {
	return KeyPrefix + strconv.FormatInt(seed, 10)
}

// SeedFromKey разбирает ключ, построенный TemplateKey.
func SeedFromKey(key string) (int64, error) {
	raw, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	seed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return seed, nil
}
