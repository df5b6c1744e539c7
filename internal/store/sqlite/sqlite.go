// Package sqlite keeps expenses in a private in-memory SQLite database.
// The database lives exactly as long as the Store: nothing touches disk.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/store"
)

const driverName = "sqlite"

const selectColumns = `id, name, amount_cents, payee, category, payment_method, status, ref_cheque, description, created_at`

type Store struct {
	// mu makes the id check and the insert one step.
	mu   sync.Mutex
	db   *sql.DB
	dsn  string
	opts store.Options
}

var _ store.Store = (*Store)(nil)

// MemoryDSN names a shared-cache in-memory database.
func MemoryDSN(name string) string {
	return "file:" + url.PathEscape(name) + "?mode=memory&cache=shared"
}

// New opens an in-memory database called name (a random name when empty)
// and applies the schema. A nil logger discards output.
func New(ctx context.Context, name string, opts store.Options, logger *applog.Logger) (*Store, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if name == "" {
		name = "expenses-" + uuid.NewString()
	}
	dsn := MemoryDSN(name)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One long-lived connection keeps the in-memory database alive and
	// serialises access, which avoids shared-cache table locks.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.WithComponent(applog.ComponentStorage).DebugContext(ctx, "SQLite memory store ready", "name", name)

	return &Store{
		db:   db,
		dsn:  dsn,
		opts: opts.WithDefaults(),
	}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Insert appends a new expense.
func (s *Store) Insert(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := store.UniqueID(s.opts.IDs, func(id string) (bool, error) {
		return s.exists(ctx, id)
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	e := core.NewExpense(id, s.opts.Now().UTC(), in)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO expenses (id, name, amount_cents, payee, category, payment_method, status, ref_cheque, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Amount.Cents, e.Payee, string(e.Category), string(e.PaymentMethod),
		string(e.Status), e.RefCheque, e.Description, formatTime(e.Date))
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return e, nil
}

// Update replaces the caller-owned columns; seq, id and created_at stay put.
func (s *Store) Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	current, err := scanExpense(tx.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM expenses WHERE id = ?`, id))
	if err != nil {
		return core.Expense{}, fmt.Errorf("update %q: %w", id, err)
	}
	current.Apply(in)

	_, err = tx.ExecContext(ctx,
		`UPDATE expenses SET name = ?, amount_cents = ?, payee = ?, category = ?, payment_method = ?,
		 status = ?, ref_cheque = ?, description = ? WHERE id = ?`,
		current.Name, current.Amount.Cents, current.Payee, string(current.Category),
		string(current.PaymentMethod), string(current.Status), current.RefCheque,
		current.Description, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit update: %w", err)
	}
	return current, nil
}

func (s *Store) Get(ctx context.Context, id string) (core.Expense, error) {
	e, err := scanExpense(s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM expenses WHERE id = ?`, id))
	if err != nil {
		return core.Expense{}, fmt.Errorf("get %q: %w", id, err)
	}
	return e, nil
}

// List returns every expense ordered by insertion.
func (s *Store) List(ctx context.Context) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM expenses ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("list expenses: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func (s *Store) exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM expenses WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check id: %w", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e                               core.Expense
		category, method, status, stamp string
	)
	err := row.Scan(&e.ID, &e.Name, &e.Amount.Cents, &e.Payee, &category, &method,
		&status, &e.RefCheque, &e.Description, &stamp)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, err
	}
	e.Category = core.Category(category)
	e.PaymentMethod = core.PaymentMethod(method)
	e.Status = core.Status(status)
	e.Date, err = time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse created_at %q: %w", stamp, err)
	}
	return e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
