package sqlite

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/store"
	"expensetracker/internal/store/storetest"
)

func newTestStore(t *testing.T, opts store.Options) *Store {
	t.Helper()
	s, err := New(context.Background(), "", opts, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, opts store.Options) store.Store {
		return newTestStore(t, opts)
	})
}

func TestNewLogsThroughGivenLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelDebug, Output: &buf})

	s, err := New(context.Background(), "logged", store.Options{}, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	out := buf.String()
	if !strings.Contains(out, "SQLite memory store ready") || !strings.Contains(out, "component=storage") {
		t.Fatalf("log output = %q, want store ready line from the storage component", out)
	}
}

func TestStoresAreIsolated(t *testing.T) {
	a := newTestStore(t, store.Options{})
	b := newTestStore(t, store.Options{})

	if _, err := a.Insert(context.Background(), storetest.Lunch()); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if n, err := b.Len(context.Background()); err != nil || n != 0 {
		t.Fatalf("second store Len() = %d, %v; want 0", n, err)
	}
}

func TestDatePreservedWithNanoseconds(t *testing.T) {
	stamp := time.Date(2024, 7, 14, 18, 5, 9, 123456789, time.UTC)
	s := newTestStore(t, store.Options{Now: func() time.Time { return stamp }})

	e, err := s.Insert(context.Background(), storetest.Lunch())
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	got, err := s.Get(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Date.Equal(stamp) {
		t.Fatalf("Date = %v, want %v", got.Date, stamp)
	}
}

func TestMigrationsAreRepeatable(t *testing.T) {
	s := newTestStore(t, store.Options{})
	if err := RunMigrations(s.dsn); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
	if _, err := s.Insert(context.Background(), storetest.Lunch()); err != nil {
		t.Fatalf("Insert() after re-migration error = %v", err)
	}
}

func TestSchemaRejectsInvalidRows(t *testing.T) {
	s := newTestStore(t, store.Options{})
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO expenses (id, name, amount_cents, category, payment_method, status, created_at)
		 VALUES ('x', 'n', 0, ?, ?, ?, '2024-01-01T00:00:00Z')`,
		string(core.CategoryFood), string(core.PaymentCash), string(core.StatusCleared))
	if err == nil {
		t.Fatal("expected CHECK constraint to reject zero amount")
	}
}
