package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/mmo-worldgen/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisCache реализует CacheRepo поверх Redis.
// Шаблоны неизменны для данного seed, поэтому TTL нужен лишь для вытеснения редких миров.
type RedisCache struct {
	client      *redis.Client
	config      *CacheConfig
	invalidator CacheInvalidator
	stats       stats
}

// NewRedisCache создаёт Redis кеш и проверяет соединение.
// invalidator может быть nil, тогда Invalidate работает только локально.
func NewRedisCache(config *CacheConfig, invalidator CacheInvalidator) (*RedisCache, error) {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = time.Hour
	}
	if config.MaxTTL == 0 {
		config.MaxTTL = 24 * time.Hour
	}
	if config.MaxConnections == 0 {
		config.MaxConnections = 10
	}
	if config.PoolTimeout == 0 {
		config.PoolTimeout = 30 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.RedisURL,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		PoolSize:     config.MaxConnections,
		PoolTimeout:  config.PoolTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("🧊 Redis кеш шаблонов подключён: %s", config.RedisURL)
	return &RedisCache{
		client:      rdb,
		config:      config,
		invalidator: invalidator,
	}, nil
}

// Get получает шаблон из Redis.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	defer r.stats.recordLatency(start)

	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		r.stats.hit()
		return val, nil
	}

	r.stats.miss()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}

	logging.Error("Redis Get error for key %s: %v", key, err)
	return nil, fmt.Errorf("redis get error: %w", err)
}

// Set сохраняет значение. TTL = 0 заменяется на DefaultTTL, слишком большой TTL обрезается.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	defer r.stats.recordLatency(start)

	if ttl == 0 {
		ttl = r.config.DefaultTTL
	}
	if ttl > r.config.MaxTTL {
		ttl = r.config.MaxTTL
	}

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logging.Error("Redis Set error for key %s: %v", key, err)
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Delete удаляет ключ из Redis.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	start := time.Now()
	defer r.stats.recordLatency(start)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		logging.Error("Redis Delete error for key %s: %v", key, err)
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

// Exists проверяет существование ключа в кеше.
func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	defer r.stats.recordLatency(start)

	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}
	return count > 0, nil
}

// Invalidate удаляет ключ и уведомляет другие узлы.
func (r *RedisCache) Invalidate(ctx context.Context, key string) error {
	if err := r.Delete(ctx, key); err != nil {
		return err
	}
	r.stats.invalidated()

	if r.invalidator != nil {
		if err := r.invalidator.PublishInvalidation(ctx, key); err != nil {
			logging.Warn("⚠️ Не удалось разослать инвалидацию %s: %v", key, err)
		}
	}
	return nil
}

// Close закрывает соединение с Redis.
func (r *RedisCache) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis: %w", err)
	}
	logging.Info("Redis cache closed")
	return nil
}

// GetMetrics возвращает метрики кеша. TotalKeys считает только ключи шаблонов.
func (r *RedisCache) GetMetrics() CacheMetrics {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var keys int64
	iter := r.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys++
	}
	if err := iter.Err(); err != nil {
		logging.Debug("Redis scan error: %v", err)
	}
	return r.stats.snapshot(keys)
}
