package memory

import (
	"context"
	"fmt"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

// Store keeps expenses in a slice, with an id index into it.
type Store struct {
	mu    sync.Mutex
	opts  store.Options
	items []core.Expense
	index map[string]int
}

var _ store.Store = (*Store)(nil)

func New(opts store.Options) *Store {
	return &Store{
		opts:  opts.WithDefaults(),
		index: make(map[string]int),
	}
}

// Insert appends a new expense.
func (s *Store) Insert(_ context.Context, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := store.UniqueID(s.opts.IDs, func(id string) (bool, error) {
		_, ok := s.index[id]
		return ok, nil
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	e := core.NewExpense(id, s.opts.Now(), in)
	s.index[id] = len(s.items)
	s.items = append(s.items, e)
	return e, nil
}

// Update replaces the expense in place.
func (s *Store) Update(_ context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("update %q: %w", id, core.ErrNotFound)
	}
	s.items[i].Apply(in)
	return s.items[i], nil
}

func (s *Store) Get(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("get %q: %w", id, core.ErrNotFound)
	}
	return s.items[i], nil
}

// List returns a copy of the expenses in insertion order.
func (s *Store) List(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items...), nil
}

func (s *Store) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items), nil
}

// Close drops the collection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.index = make(map[string]int)
	return nil
}
