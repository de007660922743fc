package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_Compression(t *testing.T) {
	tpl := generateTemplate(t, 42)

	plain := newTestCodec(t, false)
	packed := newTestCodec(t, true)

	raw, err := plain.Encode(tpl)
	require.NoError(t, err)
	compressed, err := packed.Encode(tpl)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(compressed, zstdMagic), "Сжатые данные начинаются с кадра zstd")
	assert.Less(t, len(compressed), len(raw), "zstd уменьшает размер JSON")

	// Любой кодек читает оба формата
	for _, data := range [][]byte{raw, compressed} {
		decoded, err := plain.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, tpl, decoded)
	}
}

func TestCodec_DecodeGarbage(t *testing.T) {
	codec := newTestCodec(t, true)

	_, err := codec.Decode([]byte("{not json"))
	assert.Error(t, err)

	_, err = codec.Decode(append(append([]byte{}, zstdMagic...), 1, 2, 3))
	assert.Error(t, err)
}
