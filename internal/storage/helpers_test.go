package storage

import (
	"testing"

	"github.com/annel0/mmo-worldgen/internal/config"
	"github.com/annel0/mmo-worldgen/internal/worldgen"
	"github.com/stretchr/testify/require"
)

func generateTemplate(t *testing.T, seed int64) *worldgen.WorldTemplate {
	t.Helper()
	tpl := worldgen.NewWorldTemplate(seed, nil)
	require.NoError(t, worldgen.NewGenerator(nil).PrepareWorld(seed, tpl))
	return tpl
}

func newTestCodec(t *testing.T, compress bool) *Codec {
	t.Helper()
	codec, err := NewCodec(compress)
	require.NoError(t, err)
	t.Cleanup(codec.Close)
	return codec
}

func configFor(backend, dataPath string) config.StorageConfig {
	return config.StorageConfig{Backend: backend, DataPath: dataPath, Compression: true}
}
