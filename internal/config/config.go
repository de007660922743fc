package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервиса шаблонов мира
type Config struct {
	Generator GeneratorConfig `yaml:"generator"`
	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	NATS      NATSConfig      `yaml:"nats"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GeneratorConfig параметры поиска позиций и базовые особенности рельефа
type GeneratorConfig struct {
	MaxAttempts  int             `yaml:"max_attempts"`
	WidenEvery   int             `yaml:"widen_every"`
	BaseFeatures []FeatureConfig `yaml:"base_features"`
}

// FeatureConfig описывает заранее заданную особенность (добавляется до генерации)
type FeatureConfig struct {
	Kind      string `yaml:"kind"`
	X         int    `yaml:"x"`
	Y         int    `yaml:"y"`
	SizeX     int    `yaml:"size_x"`
	SizeY     int    `yaml:"size_y"`
	LevelLow  int    `yaml:"level_low"`
	LevelHigh int    `yaml:"level_high"`
}

type StorageConfig struct {
	// memory | file | badger | maria | mongo
	Backend     string      `yaml:"backend"`
	DataPath    string      `yaml:"data_path"`
	MariaDSN    string      `yaml:"maria_dsn"`
	Mongo       MongoConfig `yaml:"mongo"`
	Compression bool        `yaml:"compression"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	RedisAddr  string `yaml:"redis_addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL возвращает время жизни записи кэша
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type NATSConfig struct {
	Enabled            bool   `yaml:"enabled"`
	URL                string `yaml:"url"`
	Stream             string `yaml:"stream"`
	Retention          int    `yaml:"retention_hours"`
	InvalidationPrefix string `yaml:"invalidation_prefix"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	GRPCPort    int `yaml:"grpc_port"`
	MetricsPort int `yaml:"metrics_port"`
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "WORLDGEN_REST_PORT", 8088)
}

// GetGRPCPort возвращает gRPC порт с поддержкой fallback значений
func (s *ServerConfig) GetGRPCPort() int {
	return getPortWithEnvFallback(s.GRPCPort, "WORLDGEN_GRPC_PORT", 9090)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "WORLDGEN_METRICS_PORT", 2112)
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	AdminUser string `yaml:"admin_user"`
	// bcrypt-хэш пароля администратора
	AdminPasswordHash string `yaml:"admin_password_hash"`
	TokenTTLHours     int    `yaml:"token_ttl_hours"`
}

// GetJWTSecret возвращает секрет с приоритетом: config -> env -> пусто
func (a *AuthConfig) GetJWTSecret() string {
	if a.JWTSecret != "" {
		return a.JWTSecret
	}
	return os.Getenv("WORLDGEN_JWT_SECRET")
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Default возвращает конфигурацию по умолчанию (память, без кэша и NATS)
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Generator.MaxAttempts <= 0 {
		c.Generator.MaxAttempts = 1500
	}
	if c.Generator.WidenEvery <= 0 {
		c.Generator.WidenEvery = 25
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Storage.DataPath == "" {
		c.Storage.DataPath = "data/templates"
	}
	if c.Storage.Mongo.Database == "" {
		c.Storage.Mongo.Database = "worldgen"
	}
	if c.Storage.Mongo.Collection == "" {
		c.Storage.Mongo.Collection = "templates"
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "localhost:6379"
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 3600
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.NATS.Stream == "" {
		c.NATS.Stream = "WORLDGEN"
	}
	if c.NATS.Retention <= 0 {
		c.NATS.Retention = 72
	}
	if c.NATS.InvalidationPrefix == "" {
		c.NATS.InvalidationPrefix = "worldgen.cache.invalidate"
	}
	if c.Auth.AdminUser == "" {
		c.Auth.AdminUser = "admin"
	}
	if c.Auth.TokenTTLHours <= 0 {
		c.Auth.TokenTTLHours = 24
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "mmo-worldgen"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV WORLDGEN_CONFIG, иначе возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("WORLDGEN_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}
