package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
)

func TestNewRequestID(t *testing.T) {
	t.Parallel()

	id1 := NewRequestID()
	id2 := NewRequestID()
	if id1 == id2 {
		t.Fatalf("expected unique IDs, got %s and %s", id1, id2)
	}
	parsed, err := goUUID.Parse(id1)
	if err != nil {
		t.Fatalf("id not valid UUID: %v", err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected version 7, got %d", parsed.Version())
	}
	if id1 >= id2 {
		t.Fatalf("expected time-ordered ids, got %s then %s", id1, id2)
	}
}
