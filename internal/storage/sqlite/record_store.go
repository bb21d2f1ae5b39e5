// Package sqlite implements the scrape record store on an embedded SQLite
// database using modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/pagequery/internal/storage"
)

const migration = `
CREATE TABLE IF NOT EXISTS scrape_record (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	payload  TEXT NOT NULL,
	saved_at DATETIME NOT NULL
);
`

const upsert = `
INSERT INTO scrape_record (id, payload, saved_at) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at
`

// RecordStore keeps the last scrape as the single row of one table.
type RecordStore struct {
	db  *sql.DB
	dsn string
}

var _ storage.RecordStore = (*RecordStore)(nil)

// Open opens (or creates) the database at dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*RecordStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, migration); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &RecordStore{db: db, dsn: dsn}, nil
}

// Close releases the database handle.
func (s *RecordStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}
	return nil
}

// Save upserts the single row in one statement.
func (s *RecordStore) Save(ctx context.Context, record storage.ScrapeRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, upsert, string(payload), time.Now().UTC()); err != nil {
		return fmt.Errorf("sqlite: save record: %w", err)
	}
	return nil
}

// Load reads the single row back.
func (s *RecordStore) Load(ctx context.Context) (storage.ScrapeRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM scrape_record WHERE id = 1`).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ScrapeRecord{}, storage.ErrNotFound
		}
		return storage.ScrapeRecord{}, fmt.Errorf("sqlite: load record: %w", err)
	}
	var record storage.ScrapeRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return storage.ScrapeRecord{}, storage.CorruptError(s.dsn, err)
	}
	if err := record.Validate(); err != nil {
		return storage.ScrapeRecord{}, storage.CorruptError(s.dsn, err)
	}
	return record, nil
}
