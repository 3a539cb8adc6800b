package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"prism/internal/analysis"
)

const listCacheKey = "history"

// PostgresStore persists history rows with the full analysis as a jsonb
// payload. A small read-through cache absorbs repeated List calls; any
// mutation invalidates it.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error

	listCache *lru.Cache[string, []analysis.HistoryEntry]
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("history db open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history db ping: %w", err)
	}
	cache, err := lru.New[string, []analysis.HistoryEntry](8)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db, listCache: cache}, nil
}

func (s *PostgresStore) ensureSchema() error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS analysis_history (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  file_name TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
  payload JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_history_created_at ON analysis_history (created_at DESC);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Save(ctx context.Context, entry analysis.HistoryEntry) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("history encode: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Dedupe by title, then trim everything past the cap.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM analysis_history WHERE LOWER(TRIM(title)) = LOWER(TRIM($1))`, entry.Title); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO analysis_history (id, title, file_name, created_at, payload)
VALUES ($1, $2, $3, to_timestamp($4 / 1000.0), $5)
ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title,
  file_name=EXCLUDED.file_name,
  created_at=EXCLUDED.created_at,
  payload=EXCLUDED.payload`,
		entry.ID, entry.Title, entry.FileName, entry.Timestamp, payload); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
DELETE FROM analysis_history WHERE id NOT IN (
  SELECT id FROM analysis_history ORDER BY created_at DESC LIMIT $1
)`, MaxEntries); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.listCache.Remove(listCacheKey)
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]analysis.HistoryEntry, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	if cached, ok := s.listCache.Get(listCacheKey); ok {
		return cached, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT payload FROM analysis_history ORDER BY created_at DESC LIMIT $1`, MaxEntries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]analysis.HistoryEntry, 0, MaxEntries)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			continue
		}
		var entry analysis.HistoryEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.listCache.Add(listCacheKey, out)
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM analysis_history WHERE id = $1`, id)
	if err == nil {
		s.listCache.Remove(listCacheKey)
	}
	return err
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM analysis_history`)
	if err == nil {
		s.listCache.Remove(listCacheKey)
	}
	return err
}

// Close releases the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// NewFromEnv picks the backend: postgres when dsn is set, a JSON file when
// path is set, memory otherwise.
func NewFromEnv(dsn, path string) Store {
	if strings.TrimSpace(dsn) != "" {
		s, err := NewPostgres(dsn)
		if err == nil {
			return s
		}
		log.Printf("history: postgres unavailable, falling back to local storage: %v", err)
	}
	if strings.TrimSpace(path) != "" {
		return NewFile(path)
	}
	return NewMemory()
}
