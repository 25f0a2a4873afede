package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pricecart/backend/internal/domain"
)

// Store persists search analytics to SQLite. Writers call RecordSearch from a
// detached goroutine; failures here must never reach the response path.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at the given path
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

// init creates the necessary tables if they don't exist
func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS searches (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			address        TEXT NOT NULL,
			zip_code       TEXT NOT NULL,
			items          TEXT NOT NULL,
			store_count    INTEGER NOT NULL,
			cheapest_store TEXT,
			total_savings  REAL NOT NULL DEFAULT 0,
			from_cache     INTEGER NOT NULL DEFAULT 0,
			duration_ms    INTEGER NOT NULL DEFAULT 0,
			created_at     TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_searches_created ON searches(created_at);
		CREATE INDEX IF NOT EXISTS idx_searches_zip ON searches(zip_code);
	`)
	return err
}

// RecordSearch writes one search snapshot
func (s *Store) RecordSearch(ctx context.Context, rec *domain.SearchRecord) error {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	fromCache := 0
	if rec.FromCache {
		fromCache = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO searches (address, zip_code, items, store_count, cheapest_store, total_savings, from_cache, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Address, rec.ZipCode, string(items), rec.StoreCount, rec.CheapestStore,
		rec.TotalSavings, fromCache, rec.DurationMS, createdAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert search record: %w", err)
	}
	return nil
}

// PruneOlderThan deletes records older than the given age and returns how
// many rows were removed
func (s *Store) PruneOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age).UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx, `DELETE FROM searches WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune search records: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

// CountSearches returns the total number of recorded searches
func (s *Store) CountSearches(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM searches`).Scan(&count)
	return count, err
}

// Ping checks datastore availability
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
