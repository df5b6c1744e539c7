package store

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewUUIDIsUniqueAndParseable(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewUUID()
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("NewUUID() = %q: %v", id, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestUniqueIDRetriesOnCollision(t *testing.T) {
	ids := []string{"a", "", "a", "b"}
	gen := func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	taken := map[string]bool{"a": true}

	id, err := UniqueID(gen, func(id string) (bool, error) { return taken[id], nil })
	if err != nil {
		t.Fatalf("UniqueID() error = %v", err)
	}
	if id != "b" {
		t.Fatalf("UniqueID() = %q, want b", id)
	}
}

func TestUniqueIDGivesUp(t *testing.T) {
	_, err := UniqueID(func() string { return "same" }, func(string) (bool, error) { return true, nil })
	if !errors.Is(err, ErrIDExhausted) {
		t.Fatalf("UniqueID() error = %v, want ErrIDExhausted", err)
	}
}

func TestUniqueIDPropagatesLookupError(t *testing.T) {
	boom := errors.New("boom")
	_, err := UniqueID(func() string { return "x" }, func(string) (bool, error) { return false, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("UniqueID() error = %v, want boom", err)
	}
}
