// Package storage defines the single-record store that holds the most recent
// rendered scrape. Backends live in sub-packages (local, sqlite).
//
// A store holds at most one ScrapeRecord. Save replaces it as a unit and Load
// reads it back. Stores provide no locking across callers: two overlapping
// Saves both succeed and the last one to land is what Load observes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound reports that no record has been saved yet.
	ErrNotFound = errors.New("scrape record not found")
	// ErrCorrupt reports that a record exists but cannot be decoded.
	ErrCorrupt = errors.New("scrape record corrupt")
)

// ScrapeRecord is the persisted result of the last successful rendered scrape.
type ScrapeRecord struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Validate rejects records that cannot be meaningfully queried later.
func (r ScrapeRecord) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("record url is required")
	}
	return nil
}

// RecordStore persists exactly one ScrapeRecord.
type RecordStore interface {
	// Save replaces the stored record.
	Save(ctx context.Context, record ScrapeRecord) error
	// Load returns the stored record, ErrNotFound when none exists, or an
	// error wrapping ErrCorrupt when the stored data is unreadable.
	Load(ctx context.Context) (ScrapeRecord, error)
}

// CorruptError wraps a decode failure so callers can match ErrCorrupt while
// keeping the underlying cause.
func CorruptError(location string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrCorrupt, location, cause)
}
