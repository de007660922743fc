package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutPath(t *testing.T) {
	t.Setenv("WORLDGEN_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 1500, cfg.Generator.MaxAttempts)
	assert.Equal(t, 25, cfg.Generator.WidenEvery)
	assert.Equal(t, time.Hour, cfg.Cache.TTL())
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worldgen.yaml")
	yamlText := `
generator:
  max_attempts: 300
  base_features:
    - kind: sea
      x: 40
      y: 0
      size_x: 10
      size_y: 6
      level_low: 5
      level_high: 9
storage:
  backend: badger
  data_path: /tmp/wg
server:
  rest_port: 18088
`
	require.NoError(t, os.WriteFile(path, []byte(yamlText), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Generator.MaxAttempts)
	assert.Equal(t, 25, cfg.Generator.WidenEvery, "Незаданные поля получают значения по умолчанию")
	require.Len(t, cfg.Generator.BaseFeatures, 1)
	assert.Equal(t, "sea", cfg.Generator.BaseFeatures[0].Kind)
	assert.Equal(t, 9, cfg.Generator.BaseFeatures[0].LevelHigh)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, 18088, cfg.Server.GetRESTPort())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPortFallback(t *testing.T) {
	s := ServerConfig{}

	t.Setenv("WORLDGEN_GRPC_PORT", "19090")
	assert.Equal(t, 19090, s.GetGRPCPort(), "Порт из окружения")

	t.Setenv("WORLDGEN_METRICS_PORT", "abc")
	assert.Equal(t, 2112, s.GetMetricsPort(), "Некорректное значение окружения игнорируется")

	s.GRPCPort = 7000
	assert.Equal(t, 7000, s.GetGRPCPort(), "Конфиг важнее окружения")
}

func TestJWTSecretFallback(t *testing.T) {
	a := AuthConfig{}
	t.Setenv("WORLDGEN_JWT_SECRET", "from-env")
	assert.Equal(t, "from-env", a.GetJWTSecret())

	a.JWTSecret = "from-config"
	assert.Equal(t, "from-config", a.GetJWTSecret())
}
