package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/annel0/mmo-worldgen/internal/worldgen"
)

const (
	templateFilePrefix = "template_"
	templateFileExt    = ".tpl"
)

// FileTemplateStore хранит каждый шаблон в отдельном файле каталога.
// Прочитанные файлы кешируются в памяти до удаления шаблона.
type FileTemplateStore struct {
	basePath string
	codec    *Codec

	mu    sync.RWMutex
	cache map[int64][]byte
}

// NewFileTemplateStore создаёт файловое хранилище в basePath
func NewFileTemplateStore(basePath string, codec *Codec) (*FileTemplateStore, error) {
	// Создаём директорию если её нет
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию %s: %w", basePath, err)
	}

	return &FileTemplateStore{
		basePath: basePath,
		codec:    codec,
		cache:    make(map[int64][]byte),
	}, nil
}

func (s *FileTemplateStore) Save(ctx context.Context, tpl *worldgen.WorldTemplate) error {
	if tpl == nil {
		return fmt.Errorf("пустой шаблон")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := s.codec.Encode(tpl)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeFile(tpl.Seed, data); err != nil {
		return err
	}
	s.cache[tpl.Seed] = data
	return nil
}

func (s *FileTemplateStore) Load(ctx context.Context, seed int64) (*worldgen.WorldTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, cached := s.cache[seed]
	s.mu.RUnlock()

	if !cached {
		var err error
		data, err = os.ReadFile(s.filename(seed))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("seed %d: %w", seed, ErrTemplateNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения файла шаблона %d: %w", seed, err)
		}

		s.mu.Lock()
		s.cache[seed] = data
		s.mu.Unlock()
	}

	return s.codec.Decode(data)
}

func (s *FileTemplateStore) Delete(ctx context.Context, seed int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cache, seed)
	err := os.Remove(s.filename(seed))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("seed %d: %w", seed, ErrTemplateNotFound)
	}
	return err
}

func (s *FileTemplateStore) List(ctx context.Context) ([]TemplateSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения каталога %s: %w", s.basePath, err)
	}

	out := make([]TemplateSummary, 0, len(entries))
	for _, entry := range entries {
		seed, ok := parseTemplateFilename(entry.Name())
		if !ok || entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// файл удалён между ReadDir и Info
			continue
		}
		out = append(out, TemplateSummary{
			Seed:      seed,
			CreatedAt: info.ModTime().UTC(),
			Size:      int(info.Size()),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Seed < out[j].Seed })
	return out, nil
}

// Close сбрасывает кеш прочитанных файлов
func (s *FileTemplateStore) Close() error {
	s.mu.Lock()
	s.cache = make(map[int64][]byte)
	s.mu.Unlock()
	return nil
}

// GetStorageStats возвращает статистику хранилища
func (s *FileTemplateStore) GetStorageStats() map[string]interface{} {
	s.mu.RLock()
	cached := len(s.cache)
	s.mu.RUnlock()

	var fileCount int
	_ = filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && filepath.Ext(path) == templateFileExt {
			fileCount++
		}
		return nil
	})

	return map[string]interface{}{
		"cached_templates": cached,
		"stored_files":     fileCount,
		"base_path":        s.basePath,
		"compression":      s.codec.compress,
	}
}

func (s *FileTemplateStore) filename(seed int64) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%s%d%s", templateFilePrefix, seed, templateFileExt))
}

func parseTemplateFilename(name string) (int64, bool) {
	if !strings.HasPrefix(name, templateFilePrefix) || !strings.HasSuffix(name, templateFileExt) {
		return 0, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, templateFilePrefix), templateFileExt)
	seed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return seed, true
}

// writeFile пишет во временный файл и переименовывает, чтобы Load не увидел половину записи
func (s *FileTemplateStore) writeFile(seed int64, data []byte) error {
	tmp, err := os.CreateTemp(s.basePath, "tmp-*")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ошибка записи шаблона %d: %w", seed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ошибка записи шаблона %d: %w", seed, err)
	}
	if err := os.Rename(tmpName, s.filename(seed)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ошибка сохранения шаблона %d: %w", seed, err)
	}
	return nil
}
