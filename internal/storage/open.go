package storage

import (
	"context"
	"fmt"

	"github.com/annel0/mmo-worldgen/internal/config"
	"github.com/annel0/mmo-worldgen/internal/logging"
)

// Open создаёт хранилище шаблонов по конфигурации
func Open(ctx context.Context, cfg config.StorageConfig) (TemplateRepo, error) {
	codec, err := NewCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case "", "memory":
		logging.Warn("⚠️ Хранилище шаблонов в памяти: данные будут потеряны при перезапуске")
		return NewMemoryTemplateRepo(codec), nil
	case "badger":
		return NewBadgerTemplateStore(cfg.DataPath, codec)
	case "file":
		return NewFileTemplateStore(cfg.DataPath, codec)
	case "maria", "mysql":
		return NewMariaTemplateRepo(cfg.MariaDSN, codec)
	case "mongo":
		return NewMongoTemplateRepo(ctx, MongoConfig{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		}, codec)
	default:
		codec.Close()
		return nil, fmt.Errorf("неизвестный backend хранилища: %q", cfg.Backend)
	}
}
