package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS generations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	response_id INTEGER NOT NULL,
	model TEXT NOT NULL,
	prompt TEXT NOT NULL,
	response TEXT NOT NULL,
	deepthink BOOLEAN NOT NULL DEFAULT FALSE,
	search BOOLEAN NOT NULL DEFAULT FALSE,
	streamed BOOLEAN NOT NULL DEFAULT FALSE,
	interrupted BOOLEAN NOT NULL DEFAULT FALSE,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at DESC);
`

// SQLiteStore keeps history in a single local database file.
type SQLiteStore struct {
	db  *sql.DB
	log *logrus.Logger
}

func OpenSQLite(path string, log *logrus.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect history database: %w", err)
	}

	// WAL lets the /history reader run alongside stream-loop writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		log.WithError(err).Warn("could not enable WAL mode for history database")
	}

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}

	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) SaveGeneration(ctx context.Context, gen *Generation) error {
	if s == nil || gen == nil {
		return nil
	}
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO generations
			(response_id, model, prompt, response, deepthink, search, streamed, interrupted, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gen.ResponseID, gen.Model, gen.Prompt, gen.Response,
		gen.Deepthink, gen.Search, gen.Streamed, gen.Interrupted,
		gen.DurationMS, gen.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save generation: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		gen.ID = id
	}
	return nil
}

func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]*Generation, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, response_id, model, prompt, response, deepthink, search, streamed, interrupted, duration_ms, created_at
		FROM generations
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var generations []*Generation
	for rows.Next() {
		gen := &Generation{}
		if err := rows.Scan(
			&gen.ID, &gen.ResponseID, &gen.Model, &gen.Prompt, &gen.Response,
			&gen.Deepthink, &gen.Search, &gen.Streamed, &gen.Interrupted,
			&gen.DurationMS, &gen.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		generations = append(generations, gen)
	}
	return generations, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
