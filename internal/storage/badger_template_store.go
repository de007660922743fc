package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/annel0/mmo-worldgen/internal/logging"
	"github.com/annel0/mmo-worldgen/internal/worldgen"
	"github.com/dgraph-io/badger/v3"
)

const (
	templatePrefix = "template:"
	metaPrefix     = "meta:"
)

// BadgerTemplateStore хранит шаблоны в BadgerDB: полезная нагрузка под ключом
// "template:<seed>", сводка под ключом "meta:<seed>"
type BadgerTemplateStore struct {
	db      *badger.DB
	dbPath  string
	codec   *Codec
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerTemplateStore открывает (или создаёт) хранилище в dataPath/templates
func NewBadgerTemplateStore(dataPath string, codec *Codec) (*BadgerTemplateStore, error) {
	dbPath := filepath.Join(dataPath, "templates")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	logging.Info("💾 BadgerDB хранилище шаблонов открыто: %s", dbPath)
	return &BadgerTemplateStore{
		db:      db,
		dbPath:  dbPath,
		codec:   codec,
		isReady: true,
	}, nil
}

func templateKey(seed int64) []byte {
	return []byte(fmt.Sprintf("%s%d", templatePrefix, seed))
}

func metaKey(seed int64) []byte {
	return []byte(fmt.Sprintf("%s%d", metaPrefix, seed))
}

// Close закрывает хранилище данных
func (s *BadgerTemplateStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}

	s.isReady = false
	return s.db.Close()
}

func (s *BadgerTemplateStore) Save(ctx context.Context, tpl *worldgen.WorldTemplate) error {
	if tpl == nil {
		return fmt.Errorf("пустой шаблон")
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := s.codec.Encode(tpl)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(TemplateSummary{Seed: tpl.Seed, CreatedAt: time.Now().UTC(), Size: len(data)})
	if err != nil {
		return fmt.Errorf("ошибка сериализации сводки: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(templateKey(tpl.Seed), data); err != nil {
			return err
		}
		return txn.Set(metaKey(tpl.Seed), meta)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

func (s *BadgerTemplateStore) Load(ctx context.Context, seed int64) (*worldgen.WorldTemplate, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(templateKey(seed))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("seed %d: %w", seed, ErrTemplateNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	return s.codec.Decode(data)
}

func (s *BadgerTemplateStore) Delete(ctx context.Context, seed int64) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(templateKey(seed)); err != nil {
			return err
		}
		if err := txn.Delete(templateKey(seed)); err != nil {
			return err
		}
		return txn.Delete(metaKey(seed))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("seed %d: %w", seed, ErrTemplateNotFound)
	}
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}

func (s *BadgerTemplateStore) List(ctx context.Context) ([]TemplateSummary, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	out := []TemplateSummary{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(metaPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var summary TemplateSummary
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &summary)
			})
			if err != nil {
				return fmt.Errorf("повреждённая сводка %s: %w", it.Item().Key(), err)
			}
			out = append(out, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Seed < out[j].Seed })
	return out, nil
}
