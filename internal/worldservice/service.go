// Package worldservice выдаёт шаблоны мира по seed: кеш → хранилище → генерация.
package worldservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/annel0/mmo-worldgen/internal/cache"
	"github.com/annel0/mmo-worldgen/internal/config"
	"github.com/annel0/mmo-worldgen/internal/eventbus"
	"github.com/annel0/mmo-worldgen/internal/logging"
	"github.com/annel0/mmo-worldgen/internal/metrics"
	"github.com/annel0/mmo-worldgen/internal/observability"
	"github.com/annel0/mmo-worldgen/internal/storage"
	"github.com/annel0/mmo-worldgen/internal/worldgen"
	"github.com/annel0/mmo-worldgen/internal/worldgen/sampler"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// EventSource значение Envelope.Source для событий сервиса
const EventSource = "worldgen"

// Source сообщает, откуда взят выданный шаблон
type Source string

const (
	SourceCache     Source = "cache"
	SourceStore     Source = "store"
	SourceGenerated Source = "generated"
)

// Service связывает генератор, хранилище, кеш и шину событий.
// Выданные шаблоны общие для одновременных вызовов Get с тем же seed
// и не должны изменяться вызывающим.
type Service struct {
	generator *worldgen.Generator
	repo      storage.TemplateRepo
	codec     *storage.Codec

	cache    cache.CacheRepo
	cacheTTL time.Duration
	bus      eventbus.EventBus
	metrics  *metrics.GeneratorMetrics
	base     []worldgen.Feature

	group  singleflight.Group
	tracer trace.Tracer

	// неудачные генерации: сэмплер детерминирован, повтор даст ту же ошибку
	failMu     sync.Mutex
	failures   map[int64]failedGeneration
	failureTTL time.Duration
	now        func() time.Time
}

type failedGeneration struct {
	err   error
	until time.Time
}

// DefaultFailureTTL: сколько помнится исчерпание попыток сэмплера для seed
const DefaultFailureTTL = time.Minute

// Option настраивает Service
type Option func(*Service)

// WithCache подключает горячий кеш сериализованных шаблонов
func WithCache(c cache.CacheRepo, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithEventBus задаёт шину событий. Без неё используется глобальная шина eventbus.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(s *Service) { s.bus = bus }
}

// WithMetrics подключает метрики генерации и источников шаблонов
func WithMetrics(m *metrics.GeneratorMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithBaseFeatures задаёт особенности, добавляемые в каждый новый шаблон до генерации
func WithBaseFeatures(features []worldgen.Feature) Option {
	return func(s *Service) {
		s.base = append([]worldgen.Feature(nil), features...)
	}
}

// WithFailureTTL задаёт, сколько Get отвечает запомненной ошибкой исчерпания
// без повторной генерации. ttl <= 0 отключает запоминание.
func WithFailureTTL(ttl time.Duration) Option {
	return func(s *Service) { s.failureTTL = ttl }
}

// WithCodec задаёт кодек для записей кеша (по умолчанию JSON без сжатия)
func WithCodec(codec *storage.Codec) Option {
	return func(s *Service) { s.codec = codec }
}

// New создаёт сервис. При generator == nil используется генератор с параметрами по умолчанию.
func New(generator *worldgen.Generator, repo storage.TemplateRepo, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("хранилище шаблонов не задано")
	}
	if generator == nil {
		generator = worldgen.NewGenerator(nil)
	}

	s := &Service{
		generator: generator,
		repo:       repo,
		tracer:     observability.Tracer(),
		failures:   make(map[int64]failedGeneration),
		failureTTL: DefaultFailureTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.codec == nil {
		codec, err := storage.NewCodec(false)
		if err != nil {
			return nil, err
		}
		s.codec = codec
	}
	return s, nil
}

// NewGenerator строит генератор по конфигурации. observer может быть nil.
func NewGenerator(cfg config.GeneratorConfig, observer sampler.Observer) *worldgen.Generator {
	opts := []sampler.Option{
		sampler.WithMaxAttempts(cfg.MaxAttempts),
		sampler.WithWidenEvery(cfg.WidenEvery),
	}
	if observer != nil {
		opts = append(opts, sampler.WithObserver(observer))
	}
	return worldgen.NewGenerator(sampler.New(opts...))
}

// BaseFeatures разбирает базовые особенности из конфигурации
func BaseFeatures(cfgs []config.FeatureConfig) ([]worldgen.Feature, error) {
	out := make([]worldgen.Feature, 0, len(cfgs))
	for i, fc := range cfgs {
		kind, err := worldgen.ParseFeatureKind(fc.Kind)
		if err != nil {
			return nil, fmt.Errorf("base_features[%d]: %w", i, err)
		}
		f := worldgen.Feature{
			X:         fc.X,
			Y:         fc.Y,
			SizeX:     fc.SizeX,
			SizeY:     fc.SizeY,
			LevelLow:  fc.LevelLow,
			LevelHigh: fc.LevelHigh,
			Kind:      kind,
		}
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("base_features[%d]: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// Get возвращает шаблон для seed, генерируя и сохраняя его при первом обращении.
// Одновременные запросы одного seed выполняют генерацию один раз.
func (s *Service) Get(ctx context.Context, seed int64) (*worldgen.WorldTemplate, Source, error) {
	ctx, span := s.tracer.Start(ctx, "worldservice.Get", trace.WithAttributes(attribute.Int64("worldgen.seed", seed)))
	defer span.End()

	if tpl, ok := s.fromCache(ctx, seed); ok {
		s.served(SourceCache)
		span.SetAttributes(attribute.String("worldgen.source", string(SourceCache)))
		return tpl, SourceCache, nil
	}

	type result struct {
		tpl    *worldgen.WorldTemplate
		source Source
	}

	if err := s.recentFailure(seed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, "", err
	}

	// общая загрузка не зависит от отмены запроса, который её запустил
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do("get:"+strconv.FormatInt(seed, 10), func() (interface{}, error) {
		tpl, err := s.repo.Load(shared, seed)
		if err == nil {
			s.toCache(shared, tpl)
			return result{tpl, SourceStore}, nil
		}
		if !errors.Is(err, storage.ErrTemplateNotFound) {
			return nil, fmt.Errorf("загрузка шаблона seed=%d: %w", seed, err)
		}

		tpl, err = s.generateAndStore(shared, seed, eventbus.EventWorldTemplateGenerated)
		if err != nil {
			s.rememberFailure(seed, err)
			return nil, err
		}
		return result{tpl, SourceGenerated}, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, "", err
	}

	res := v.(result)
	s.served(res.source)
	span.SetAttributes(attribute.String("worldgen.source", string(res.source)))
	return res.tpl, res.source, nil
}

// Regenerate заново генерирует шаблон и перезаписывает сохранённый.
// Нужен после изменения базовых особенностей или параметров сэмплера.
func (s *Service) Regenerate(ctx context.Context, seed int64) (*worldgen.WorldTemplate, error) {
	ctx, span := s.tracer.Start(ctx, "worldservice.Regenerate", trace.WithAttributes(attribute.Int64("worldgen.seed", seed)))
	defer span.End()

	s.invalidate(ctx, seed)
	s.forgetFailure(seed)

	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do("regenerate:"+strconv.FormatInt(seed, 10), func() (interface{}, error) {
		tpl, err := s.generateAndStore(shared, seed, eventbus.EventWorldTemplateRegenerated)
		if err != nil {
			s.rememberFailure(seed, err)
		}
		return tpl, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return v.(*worldgen.WorldTemplate), nil
}

// Delete удаляет сохранённый шаблон и сбрасывает кеш на всех узлах
func (s *Service) Delete(ctx context.Context, seed int64) error {
	ctx, span := s.tracer.Start(ctx, "worldservice.Delete", trace.WithAttributes(attribute.Int64("worldgen.seed", seed)))
	defer span.End()

	if err := s.repo.Delete(ctx, seed); err != nil {
		span.RecordError(err)
		return err
	}
	s.invalidate(ctx, seed)
	s.publish(ctx, eventbus.EventWorldTemplateDeleted, eventbus.WorldTemplateEvent{Seed: seed})

	logging.Info("🗑️ Шаблон мира seed=%d удалён", seed)
	return nil
}

// List возвращает сохранённые шаблоны
func (s *Service) List(ctx context.Context) ([]storage.TemplateSummary, error) {
	return s.repo.List(ctx)
}

// Level возвращает представление уровня шаблона
func (s *Service) Level(ctx context.Context, seed int64, level int) (worldgen.LevelView, error) {
	tpl, _, err := s.Get(ctx, seed)
	if err != nil {
		return worldgen.LevelView{}, err
	}
	return tpl.LevelView(level)
}

// Camp возвращает представление лагеря шаблона
func (s *Service) Camp(ctx context.Context, seed int64, ordinal int) (worldgen.CampView, error) {
	tpl, _, err := s.Get(ctx, seed)
	if err != nil {
		return worldgen.CampView{}, err
	}
	return tpl.CampView(ordinal)
}

// HandleInvalidation сбрасывает локальный кеш по уведомлению с другого узла
func (s *Service) HandleInvalidation(key string) error {
	if s.cache == nil {
		return nil
	}
	if _, err := cache.SeedFromKey(key); err != nil {
		return err
	}
	return s.cache.Delete(context.Background(), key)
}

func (s *Service) generateAndStore(ctx context.Context, seed int64, eventType string) (*worldgen.WorldTemplate, error) {
	_, span := s.tracer.Start(ctx, "worldgen.PrepareWorld")
	start := time.Now()

	tpl := worldgen.NewWorldTemplate(seed, s.base)
	err := s.generator.PrepareWorld(seed, tpl)
	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveGeneration(elapsed, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		logging.Error("❌ Генерация шаблона seed=%d не удалась: %v", seed, err)
		return nil, fmt.Errorf("генерация шаблона seed=%d: %w", seed, err)
	}
	span.End()

	if err := s.repo.Save(ctx, tpl); err != nil {
		return nil, fmt.Errorf("сохранение шаблона seed=%d: %w", seed, err)
	}
	s.toCache(ctx, tpl)

	camps := 0
	for _, positions := range tpl.CampPositions {
		camps += len(positions)
	}
	s.publish(ctx, eventType, eventbus.WorldTemplateEvent{
		Seed:       seed,
		Origin:     string(SourceGenerated),
		DurationMs: elapsed.Milliseconds(),
		Features:   len(tpl.Features),
		Camps:      camps,
	})

	logging.Info("🌍 Шаблон мира seed=%d сгенерирован за %v", seed, elapsed)
	return tpl, nil
}

func (s *Service) fromCache(ctx context.Context, seed int64) (*worldgen.WorldTemplate, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, cache.TemplateKey(seed))
	if err != nil {
		if !cache.IsCacheMiss(err) {
			logging.Warn("⚠️ Кеш шаблонов недоступен: %v", err)
		}
		return nil, false
	}

	tpl, err := s.codec.Decode(data)
	if err != nil {
		logging.Warn("⚠️ Повреждённая запись кеша seed=%d: %v", seed, err)
		_ = s.cache.Delete(ctx, cache.TemplateKey(seed))
		return nil, false
	}
	return tpl, true
}

func (s *Service) toCache(ctx context.Context, tpl *worldgen.WorldTemplate) {
	if s.cache == nil {
		return
	}
	data, err := s.codec.Encode(tpl)
	if err != nil {
		logging.Warn("⚠️ Не удалось сериализовать шаблон для кеша: %v", err)
		return
	}
	if err := s.cache.Set(ctx, cache.TemplateKey(tpl.Seed), data, s.cacheTTL); err != nil {
		logging.Warn("⚠️ Не удалось записать шаблон в кеш: %v", err)
	}
}

// recentFailure возвращает запомненную ошибку исчерпания, пока не истёк её срок
func (s *Service) recentFailure(seed int64) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()

	f, ok := s.failures[seed]
	if !ok {
		return nil
	}
	if !s.now().Before(f.until) {
		delete(s.failures, seed)
		return nil
	}
	return f.err
}

// rememberFailure запоминает только исчерпание сэмплера: ошибки хранилища временные
func (s *Service) rememberFailure(seed int64, err error) {
	if s.failureTTL <= 0 || !errors.Is(err, sampler.ErrExhausted) {
		return
	}
	s.failMu.Lock()
	s.failures[seed] = failedGeneration{err: err, until: s.now().Add(s.failureTTL)}
	s.failMu.Unlock()
}

func (s *Service) forgetFailure(seed int64) {
	s.failMu.Lock()
	delete(s.failures, seed)
	s.failMu.Unlock()
}

func (s *Service) invalidate(ctx context.Context, seed int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.TemplateKey(seed)); err != nil {
		logging.Warn("⚠️ Инвалидация кеша seed=%d: %v", seed, err)
	}
}

func (s *Service) publish(ctx context.Context, eventType string, payload eventbus.WorldTemplateEvent) {
	ev, err := eventbus.NewEnvelope(EventSource, eventType, 5, payload)
	if err != nil {
		logging.Warn("⚠️ %v", err)
		return
	}

	if s.bus != nil {
		err = s.bus.Publish(ctx, ev)
	} else {
		err = eventbus.Publish(ctx, ev)
	}
	if err != nil {
		logging.Warn("⚠️ Публикация события %s: %v", eventType, err)
	}
}

func (s *Service) served(source Source) {
	if s.metrics != nil {
		s.metrics.TemplateServed(string(source))
	}
}
