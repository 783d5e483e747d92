package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/CodeReclaimers/sketch-bridge/internal/sketch"
)

// ============================================================
// Sketch Library
// ============================================================

// Библиотека — постоянное хранилище конвертов эскизов, переживающее
// сессию. Конверт хранится как JSON, тот же формат, что в файлах и сети.

// ErrNotFound — запись отсутствует в библиотеке.
var ErrNotFound = errors.New("library entry not found")

const schema = `
CREATE TABLE IF NOT EXISTS sketches (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    source_system TEXT NOT NULL,
    payload       TEXT NOT NULL,
    saved_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// Entry — метаданные записи библиотеки.
type Entry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SourceSystem string `json:"source_system"`
	SavedAt      string `json:"saved_at"`
}

type Library struct {
	db *sql.DB
}

// Open открывает библиотеку эскизов по указанному пути.
func Open(dbPath string) (*Library, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open library db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate library db: %w", err)
	}
	return &Library{db: db}, nil
}

// Close закрывает соединение с базой.
func (l *Library) Close() error {
	return l.db.Close()
}

// Put сохраняет эскиз и возвращает идентификатор записи.
func (l *Library) Put(ctx context.Context, s sketch.Sketch) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode sketch: %w", err)
	}

	id := uuid.NewString()
	_, err = l.db.ExecContext(ctx, `
        INSERT INTO sketches (id, name, source_system, payload)
        VALUES (?, ?, ?, ?)
    `, id, s.Name, s.SourceSystem, string(payload))
	if err != nil {
		return "", fmt.Errorf("insert sketch: %w", err)
	}
	return id, nil
}

// Get возвращает эскиз по идентификатору записи.
func (l *Library) Get(ctx context.Context, id string) (sketch.Sketch, error) {
	row := l.db.QueryRowContext(ctx, `
        SELECT payload FROM sketches WHERE id = ?
    `, id)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sketch.Sketch{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return sketch.Sketch{}, err
	}

	var s sketch.Sketch
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return sketch.Sketch{}, fmt.Errorf("decode sketch %s: %w", id, err)
	}
	return s, nil
}

// List возвращает метаданные всех записей, новые первыми.
func (l *Library) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
        SELECT id, name, source_system, saved_at
        FROM sketches
        ORDER BY saved_at DESC, id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.SourceSystem, &e.SavedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete удаляет запись библиотеки.
func (l *Library) Delete(ctx context.Context, id string) error {
	res, err := l.db.ExecContext(ctx, `DELETE FROM sketches WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
