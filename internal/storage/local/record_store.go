// Package local implements the scrape record store as a JSON file on the local
// filesystem.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/pagequery/internal/storage"
)

// Config captures the parameters for the local filesystem record store.
type Config struct {
	// Path is the JSON file that holds the record.
	Path string `mapstructure:"path" yaml:"path"`
}

// RecordStore keeps the last scrape in a single JSON document.
type RecordStore struct {
	path string
}

var _ storage.RecordStore = (*RecordStore)(nil)

// New creates a file-backed record store. The parent directory is created if
// needed; the file itself is only written on Save.
func New(cfg Config) (*RecordStore, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("record path is required")
	}

	dir := filepath.Dir(cfg.Path)
	info, err := os.Stat(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat record directory: %w", err)
		}
		if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create record directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("record directory path is not a directory")
	}

	return &RecordStore{path: filepath.Clean(cfg.Path)}, nil
}

// Path returns the file backing the store.
func (s *RecordStore) Path() string {
	return s.path
}

// Save writes the record to a temp file in the same directory and renames it
// over the target, so a concurrent Load sees either the old or the new record.
func (s *RecordStore) Save(ctx context.Context, record storage.ScrapeRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}

	payload, err := json.MarshalIndent(record, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace record %s: %w", s.path, err)
	}
	return nil
}

// Load reads the record back from disk.
func (s *RecordStore) Load(ctx context.Context) (storage.ScrapeRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ScrapeRecord{}, fmt.Errorf("context canceled: %w", err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.ScrapeRecord{}, storage.ErrNotFound
		}
		return storage.ScrapeRecord{}, fmt.Errorf("read record %s: %w", s.path, err)
	}

	var record storage.ScrapeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return storage.ScrapeRecord{}, storage.CorruptError(s.path, err)
	}
	if err := record.Validate(); err != nil {
		return storage.ScrapeRecord{}, storage.CorruptError(s.path, err)
	}
	return record, nil
}
