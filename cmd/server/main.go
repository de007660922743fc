package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/mmo-worldgen/internal/api"
	"github.com/annel0/mmo-worldgen/internal/auth"
	"github.com/annel0/mmo-worldgen/internal/cache"
	"github.com/annel0/mmo-worldgen/internal/config"
	"github.com/annel0/mmo-worldgen/internal/eventbus"
	"github.com/annel0/mmo-worldgen/internal/logging"
	"github.com/annel0/mmo-worldgen/internal/metrics"
	"github.com/annel0/mmo-worldgen/internal/observability"
	"github.com/annel0/mmo-worldgen/internal/rpc"
	"github.com/annel0/mmo-worldgen/internal/storage"
	"github.com/annel0/mmo-worldgen/internal/worldservice"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $WORLDGEN_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем систему логирования
	logging.LogsDir = cfg.Logging.Dir
	loggers := logging.GetLoggerManager()
	logger, err := loggers.GetLogger("server")
	if err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	logger.SetLevels(logging.ParseLevel(cfg.Logging.Level), logging.TRACE)
	logging.SetDefaultLogger(logger)
	defer loggers.CloseAll()

	logging.Info("🌍 Запуск генератора шаблонов миров %s...", api.Version)

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		_ = loggers.CloseAll()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nodeID := nodeName()

	// === ТРАССИРОВКА ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("телеметрия: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logging.Warn("⚠️ Ошибка остановки телеметрии: %v", err)
		}
	}()

	// === ХРАНИЛИЩЕ ===
	repo, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("хранилище шаблонов: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logging.Warn("⚠️ Ошибка закрытия хранилища: %v", err)
		}
	}()
	logging.Info("💾 Хранилище шаблонов: %s", cfg.Storage.Backend)

	// === ИНВАЛИДАЦИЯ КЕША И ШИНА СОБЫТИЙ ===
	var invalidator cache.CacheInvalidator
	var natsInvalidator *cache.NATSInvalidator
	var bus eventbus.EventBus

	if cfg.NATS.Enabled {
		natsInvalidator, err = cache.NewNATSInvalidator(&cache.InvalidatorConfig{
			NATSURL: cfg.NATS.URL,
			Subject: cfg.NATS.InvalidationPrefix,
		}, nodeID)
		if err != nil {
			return fmt.Errorf("NATS invalidator: %w", err)
		}
		defer natsInvalidator.Close()
		invalidator = natsInvalidator

		jsBus, err := eventbus.NewJetStreamBus(cfg.NATS.URL, cfg.NATS.Stream, time.Duration(cfg.NATS.Retention)*time.Hour)
		if err != nil {
			return fmt.Errorf("JetStream: %w", err)
		}
		bus = jsBus
		logging.Info("📨 JetStream: %s, поток %s", cfg.NATS.URL, cfg.NATS.Stream)
	} else {
		bus = eventbus.NewMemoryBus(1024)
		logging.Info("📨 Шина событий в памяти")
	}
	defer bus.Close()
	eventbus.Init(bus)

	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("⚠️ Не удалось подписать логгер событий: %v", err)
	}
	exporter := eventbus.NewMetricsExporter(bus, nil)
	exporter.Start(10 * time.Second)
	defer exporter.Stop()

	// === КЕШ ===
	var templateCache cache.CacheRepo
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisCache(&cache.CacheConfig{
			RedisURL:      cfg.Cache.RedisAddr,
			RedisPassword: cfg.Cache.Password,
			RedisDB:       cfg.Cache.DB,
			DefaultTTL:    cfg.Cache.TTL(),
		}, invalidator)
		if err != nil {
			return fmt.Errorf("Redis: %w", err)
		}
		templateCache = redisCache
		logging.Info("⚡ Кеш шаблонов: Redis %s", cfg.Cache.RedisAddr)
	} else {
		templateCache = cache.NewMemoryCache(invalidator)
		logging.Info("⚡ Кеш шаблонов в памяти")
	}
	defer templateCache.Close()

	// === СЕРВИС ШАБЛОНОВ ===
	genMetrics := metrics.NewGeneratorMetrics(nil)
	baseFeatures, err := worldservice.BaseFeatures(cfg.Generator.BaseFeatures)
	if err != nil {
		return fmt.Errorf("базовые особенности: %w", err)
	}

	service, err := worldservice.New(
		worldservice.NewGenerator(cfg.Generator, genMetrics),
		repo,
		worldservice.WithCache(templateCache, cfg.Cache.TTL()),
		worldservice.WithEventBus(bus),
		worldservice.WithMetrics(genMetrics),
		worldservice.WithBaseFeatures(baseFeatures),
	)
	if err != nil {
		return err
	}

	if natsInvalidator != nil {
		if err := natsInvalidator.SubscribeInvalidations(ctx, service.HandleInvalidation); err != nil {
			return fmt.Errorf("подписка на инвалидацию: %w", err)
		}
	}

	// === API ===
	authenticator, err := auth.NewFromConfig(cfg.Auth)
	if err != nil {
		return fmt.Errorf("аутентификация: %w", err)
	}
	if cfg.Auth.AdminPasswordHash == "" {
		logging.Warn("⚠️ admin_password_hash не задан: административные эндпоинты недоступны")
	}

	restServer, err := api.NewRestServer(api.Config{
		Port:     fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		Service:  service,
		Auth:     authenticator,
		Cache:    templateCache,
		EventBus: bus,
		ServerID: nodeID,
	})
	if err != nil {
		return err
	}

	grpcAddr := fmt.Sprintf(":%d", cfg.Server.GetGRPCPort())
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("gRPC порт %s: %w", grpcAddr, err)
	}
	grpcServer := rpc.NewGRPCServer(service)

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 3)
	go func() { errCh <- restServer.Start() }()
	go func() {
		logging.Info("📡 gRPC слушает %s", grpcAddr)
		errCh <- grpcServer.Serve(grpcListener)
	}()
	go func() {
		logging.Info("📈 Метрики Prometheus: http://localhost%s/metrics", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	logging.Info("✅ Все сервисы запущены (узел %s)", nodeID)
	logging.Info("💡 curl http://localhost:%d/api/worlds/42", cfg.Server.GetRESTPort())

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения, останавливаем сервисы...")
	case runErr = <-errCh:
		if runErr != nil {
			logging.Error("❌ Сервер остановился с ошибкой: %v", runErr)
		}
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}
	stopGRPC(shutdownCtx, grpcServer.GracefulStop, grpcServer.Stop)

	return runErr
}

// stopGRPC ждёт GracefulStop до дедлайна, затем обрывает соединения
func stopGRPC(ctx context.Context, graceful, force func()) {
	done := make(chan struct{})
	go func() {
		graceful()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn("⚠️ gRPC не остановился вовремя, соединения закрыты принудительно")
		force()
	}
}

func nodeName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worldgen"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
