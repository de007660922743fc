package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/annel0/mmo-worldgen/internal/worldgen"
	_ "github.com/go-sql-driver/mysql"
)

// MariaTemplateRepo реализует TemplateRepo для базы данных MariaDB/MySQL.
// Использует таблицу world_templates.
type MariaTemplateRepo struct {
	db    *sql.DB
	codec *Codec
}

// NewMariaTemplateRepo создает новый репозиторий шаблонов для MariaDB.
// Автоматически создает таблицу, если она не существует.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname?parseTime=true)
//	codec - сериализатор шаблонов
func NewMariaTemplateRepo(dsn string, codec *Codec) (*MariaTemplateRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaTemplateRepo{db: db, codec: codec}

	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	return repo, nil
}

// createTable создает таблицу world_templates, если она не существует.
func (r *MariaTemplateRepo) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS world_templates (
			seed       BIGINT      PRIMARY KEY,
			payload    LONGBLOB    NOT NULL,
			size       INT         NOT NULL,
			created_at TIMESTAMP   DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE   CURRENT_TIMESTAMP,
			INDEX idx_created_at (created_at)
		) ENGINE=InnoDB
	`

	_, err := r.db.Exec(query)
	if err != nil {
		return fmt.Errorf("ошибка создания таблицы world_templates: %w", err)
	}

	return nil
}

// Save использует INSERT ... ON DUPLICATE KEY UPDATE для перезаписи шаблона.
func (r *MariaTemplateRepo) Save(ctx context.Context, tpl *worldgen.WorldTemplate) error {
	if tpl == nil {
		return fmt.Errorf("пустой шаблон")
	}

	data, err := r.codec.Encode(tpl)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO world_templates (seed, payload, size)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			payload = VALUES(payload),
			size = VALUES(size),
			created_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.ExecContext(ctx, query, tpl.Seed, data, len(data)); err != nil {
		return fmt.Errorf("ошибка сохранения шаблона seed %d: %w", tpl.Seed, err)
	}
	return nil
}

func (r *MariaTemplateRepo) Load(ctx context.Context, seed int64) (*worldgen.WorldTemplate, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM world_templates WHERE seed = ?`, seed).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("seed %d: %w", seed, ErrTemplateNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки шаблона seed %d: %w", seed, err)
	}
	return r.codec.Decode(data)
}

func (r *MariaTemplateRepo) Delete(ctx context.Context, seed int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM world_templates WHERE seed = ?`, seed)
	if err != nil {
		return fmt.Errorf("ошибка удаления шаблона seed %d: %w", seed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("seed %d: %w", seed, ErrTemplateNotFound)
	}
	return nil
}

func (r *MariaTemplateRepo) List(ctx context.Context) ([]TemplateSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seed, size, created_at FROM world_templates ORDER BY seed`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка шаблонов: %w", err)
	}
	defer rows.Close()

	out := []TemplateSummary{}
	for rows.Next() {
		var s TemplateSummary
		var createdAt time.Time
		if err := rows.Scan(&s.Seed, &s.Size, &createdAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки: %w", err)
		}
		s.CreatedAt = createdAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close закрывает соединение с базой данных.
func (r *MariaTemplateRepo) Close() error {
	return r.db.Close()
}
