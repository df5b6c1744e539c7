// Package store defines the expense collection contract shared by every
// backend, plus the identity and clock hooks backends are built with.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/core"
)

type (
	// Store owns the ordered collection of expenses. Implementations make
	// every method atomic with respect to the others.
	Store interface {
		// Insert validates in, assigns a fresh id and the current time, and
		// appends the record.
		Insert(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
		// Update replaces every field but ID and Date of the record with the
		// given id, keeping its position. Unknown ids yield core.ErrNotFound.
		Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error)
		// Get returns a single record or core.ErrNotFound.
		Get(ctx context.Context, id string) (core.Expense, error)
		// List returns a snapshot in insertion order.
		List(ctx context.Context) ([]core.Expense, error)
		// Len returns the number of records.
		Len(ctx context.Context) (int, error)
		Close() error
	}

	// IDGenerator produces expense identifiers.
	IDGenerator func() string

	// Clock returns the creation timestamp for new expenses.
	Clock func() time.Time
)

// maxIDAttempts bounds regeneration when a generator repeats itself.
const maxIDAttempts = 8

// NewUUID returns a time-ordered UUIDv7, falling back to v4.
func NewUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// UTCNow is the default Clock.
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UniqueID asks gen for an id until exists reports it unused.
func UniqueID(gen IDGenerator, exists func(string) (bool, error)) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := gen()
		if id == "" {
			continue
		}
		taken, err := exists(id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

// Options configures a backend. Zero values select NewUUID and UTCNow.
type Options struct {
	IDs IDGenerator
	Now Clock
}

// WithDefaults fills unset hooks.
func (o Options) WithDefaults() Options {
	if o.IDs == nil {
		o.IDs = NewUUID
	}
	if o.Now == nil {
		o.Now = UTCNow
	}
	return o
}
