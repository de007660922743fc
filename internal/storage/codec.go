package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/annel0/mmo-worldgen/internal/worldgen"
	"github.com/klauspost/compress/zstd"
)

// магическое начало кадра zstd
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Codec сериализует шаблоны в JSON и, при необходимости, сжимает zstd.
// Decode принимает оба формата, поэтому включение сжатия не ломает старые записи.
type Codec struct {
	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

// NewCodec создаёт кодек. EncodeAll/DecodeAll безопасны для конкурентного использования.
func NewCodec(compress bool) (*Codec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Codec{compress: compress, encoder: encoder, decoder: decoder}, nil
}

// Encode сериализует шаблон
func (c *Codec) Encode(tpl *worldgen.WorldTemplate) ([]byte, error) {
	data, err := json.Marshal(tpl)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации шаблона: %w", err)
	}
	if !c.compress {
		return data, nil
	}
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

// Decode восстанавливает шаблон
func (c *Codec) Decode(data []byte) (*worldgen.WorldTemplate, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		raw, err := c.decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("ошибка распаковки шаблона: %w", err)
		}
		data = raw
	}

	var tpl worldgen.WorldTemplate
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("ошибка десериализации шаблона: %w", err)
	}
	return &tpl, nil
}

// Close освобождает ресурсы zstd
func (c *Codec) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
