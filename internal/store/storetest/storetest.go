// Package storetest checks that a store.Store honours the collection contract.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

// Factory builds an empty store using opts.
type Factory func(t *testing.T, opts store.Options) store.Store

// SequentialIDs returns a generator yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) store.IDGenerator {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// SteppingClock returns a clock starting at start and advancing by step on each call.
func SteppingClock(start time.Time, step time.Duration) store.Clock {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

// Lunch is the input used by the create scenario.
func Lunch() core.ExpenseInput {
	return core.ExpenseInput{
		Name:          "Lunch",
		Amount:        core.Money{Cents: 1200},
		Payee:         "Cafe",
		Category:      core.CategoryFood,
		PaymentMethod: core.PaymentCash,
		Status:        core.StatusCleared,
	}
}

// Dinner is the replacement used by the edit scenario.
func Dinner() core.ExpenseInput {
	return core.ExpenseInput{
		Name:          "Dinner",
		Amount:        core.Money{Cents: 3000},
		Payee:         "Trattoria",
		Category:      core.CategoryOthers,
		PaymentMethod: core.PaymentBankTransfer,
		Status:        core.StatusUncleared,
		RefCheque:     "000451",
		Description:   "team dinner",
	}
}

// Equal reports whether two records match field by field.
func Equal(a, b core.Expense) bool {
	return a.ID == b.ID &&
		a.Name == b.Name &&
		a.Amount == b.Amount &&
		a.Payee == b.Payee &&
		a.Category == b.Category &&
		a.PaymentMethod == b.PaymentMethod &&
		a.Status == b.Status &&
		a.RefCheque == b.RefCheque &&
		a.Description == b.Description &&
		a.Date.Equal(b.Date)
}

// Run exercises the full contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertThenList", func(t *testing.T) { testInsertThenList(t, newStore) })
	t.Run("InsertAssignsFreshIDs", func(t *testing.T) { testInsertAssignsFreshIDs(t, newStore) })
	t.Run("InsertRejectsInvalid", func(t *testing.T) { testInsertRejectsInvalid(t, newStore) })
	t.Run("InsertRetriesRepeatedID", func(t *testing.T) { testInsertRetriesRepeatedID(t, newStore) })
	t.Run("UpdateReplacesInPlace", func(t *testing.T) { testUpdateReplacesInPlace(t, newStore) })
	t.Run("UpdateUnknownID", func(t *testing.T) { testUpdateUnknownID(t, newStore) })
	t.Run("UpdateRejectsInvalid", func(t *testing.T) { testUpdateRejectsInvalid(t, newStore) })
	t.Run("UpdateIsIdempotent", func(t *testing.T) { testUpdateIsIdempotent(t, newStore) })
	t.Run("GetUnknownID", func(t *testing.T) { testGetUnknownID(t, newStore) })
	t.Run("ListIsSnapshot", func(t *testing.T) { testListIsSnapshot(t, newStore) })
	t.Run("ConcurrentInserts", func(t *testing.T) { testConcurrentInserts(t, newStore) })
}

func defaultOpts() store.Options {
	return store.Options{
		IDs: SequentialIDs("exp"),
		Now: SteppingClock(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), time.Minute),
	}
}

func mustList(t *testing.T, s store.Store) []core.Expense {
	t.Helper()
	items, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	return items
}

func mustInsert(t *testing.T, s store.Store, in core.ExpenseInput) core.Expense {
	t.Helper()
	e, err := s.Insert(context.Background(), in)
	if err != nil {
		t.Fatalf("Insert(%q) error = %v", in.Name, err)
	}
	return e
}

func assertSameList(t *testing.T, got, want []core.Expense) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("list length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !Equal(got[i], want[i]) {
			t.Fatalf("list[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func testInsertThenList(t *testing.T, newStore Factory) {
	s := newStore(t, defaultOpts())

	e := mustInsert(t, s, Lunch())
	if e.ID == "" {
		t.Fatal("Insert() returned empty id")
	}
	if e.Date.IsZero() {
		t.Fatal("Insert() did not stamp the date")
	}
	if e.Name != "Lunch" || e.Amount.Cents != 1200 || e.Payee != "Cafe" {
		t.Fatalf("Insert() = %+v", e)
	}

	items := mustList(t, s)
	assertSameList(t, items, []core.Expense{e})

	n, err := s.Len(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Len() = %d, %v; want 1", n, err)
	}
}

func testInsertAssignsFreshIDs(t *testing.T, newStore Factory) {
	s := newStore(t, store.Options{})

	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		before := len(mustList(t, s))
		e := mustInsert(t, s, Lunch())
		if _, dup := seen[e.ID]; dup {
			t.Fatalf("duplicate id %q", e.ID)
		}
		seen[e.ID] = struct{}{}
		if after := len(mustList(t, s)); after != before+1 {
			t.Fatalf("length went from %d to %d", before, after)
		}
	}
}

func testInsertRejectsInvalid(t *testing.T, newStore Factory) {
	s := newStore(t, defaultOpts())
	first := mustInsert(t, s, Lunch())

	bad := Lunch()
	bad.Name = ""
	if _, err := s.Insert(context.Background(), bad); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("Insert(empty name) error = %v, want ErrInvalidInput", err)
	}
	bad = Lunch()
	bad.Amount = core.Money{}
	if _, err := s.Insert(context.Background(), bad); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("Insert(zero amount) error = %v, want ErrInvalidInput", err)
	}
	assertSameList(t, mustList(t, s), []core.Expense{first})
}

func testInsertRetriesRepeatedID(t *testing.T, newStore Factory) {
	ids := []string{"dup", "dup", "fresh"}
	var mu sync.Mutex
	opts := defaultOpts()
	opts.IDs = func() string {
		mu.Lock()
		defer mu.Unlock()
		id := ids[0]
		if len(ids) > 1 {
			ids = ids[1:]
		}
		return id
	}
	s := newStore(t, opts)

	a := mustInsert(t, s, Lunch())
	b := mustInsert(t, s, Dinner())
	if a.ID != "dup" || b.ID != "fresh" {
		t.Fatalf("ids = %q, %q; want dup, fresh", a.ID, b.ID)
	}
}

func testUpdateReplacesInPlace(t *testing.T, newStore Factory) {
	s := newStore(t, defaultOpts())
	first := mustInsert(t, s, Lunch())
	target := mustInsert(t, s, Lunch())
	last := mustInsert(t, s, Lunch())

	got, err := s.Update(context.Background(), target.ID, Dinner())
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	want := core.NewExpense(target.ID, target.Date, Dinner())
	if !Equal(got, want) {
		t.Fatalf("Update() = %+v, want %+v", got, want)
	}
	assertSameList(t, mustList(t, s), []core.Expense{first, want, last})

	fetched, err := s.Get(context.Background(), target.ID)
	if err != nil || !Equal(fetched, want) {
		t.Fatalf("Get() = %+v, %v; want %+v", fetched, err, want)
	}
}

func testUpdateUnknownID(t *testing.T, newStore Factory) {
	s := newStore(t, defaultOpts())
	mustInsert(t, s, Lunch())
	before := mustList(t, s)

	_, err := s.Update(context.Background(), "nonexistent-id", Dinner())
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Update(unknown) error = %v, want ErrNotFound", err)
	}
	assertSameList(t, mustList(t, s), before)
}

func testUpdateRejectsInvalid(t *testing.T, newStore Factory) {
	s := newStore(t, defaultOpts())
	e := mustInsert(t, s, Lunch())

	bad := Dinner()
	bad.Amount = core.Money{Cents: -1}
	if _, err := s.Update(context.Background(), e.ID, bad); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("Update(negative amount) error = %v, want ErrInvalidInput", err)
	}
	assertSameList(t, mustList(t, s), []core.Expense{e})
}

func testUpdateIsIdempotent(t *testing.T, newStore Factory) {
	s := newStore(t, defaultOpts())
	e := mustInsert(t, s, Lunch())

	once, err := s.Update(context.Background(), e.ID, Dinner())
	if err != nil {
		t.Fatalf("first Update() error = %v", err)
	}
	twice, err := s.Update(context.Background(), e.ID, Dinner())
	if err != nil {
		t.Fatalf("second Update() error = %v", err)
	}
	if !Equal(once, twice) {
		t.Fatalf("updates differ: %+v vs %+v", once, twice)
	}
	assertSameList(t, mustList(t, s), []core.Expense{twice})
}

func testGetUnknownID(t *testing.T, newStore Factory) {
	s := newStore(t, defaultOpts())
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func testListIsSnapshot(t *testing.T, newStore Factory) {
	s := newStore(t, defaultOpts())
	e := mustInsert(t, s, Lunch())

	items := mustList(t, s)
	items[0].Name = "mutated"

	assertSameList(t, mustList(t, s), []core.Expense{e})
}

func testConcurrentInserts(t *testing.T, newStore Factory) {
	s := newStore(t, store.Options{})
	const workers, perWorker = 8, 10

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := s.Insert(context.Background(), Lunch()); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Insert() error = %v", err)
	}

	items := mustList(t, s)
	if len(items) != workers*perWorker {
		t.Fatalf("len = %d, want %d", len(items), workers*perWorker)
	}
	seen := make(map[string]struct{}, len(items))
	for _, e := range items {
		if _, dup := seen[e.ID]; dup {
			t.Fatalf("duplicate id %q", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
}
