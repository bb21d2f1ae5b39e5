// Package uuid generates request identifiers.
package uuid

import (
	"github.com/google/uuid"
)

// NewRequestID returns a time-ordered UUIDv7 string. If the v7 source fails it
// falls back to a random v4.
func NewRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
