package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/store"
)

// Publisher sends expense change events. *amqp.Client satisfies it.
type Publisher interface {
	PublishExpenseEvent(ctx context.Context, event amqp.ExpenseEvent) error
	Close() error
}

// ExpenseService is the entry point for expense mutations. It validates
// input before the store sees it and announces successful changes.
type ExpenseService struct {
	store     store.Store
	publisher Publisher
	logger    *applog.Logger
}

// NewExpenseService wires a store with an optional publisher.
func NewExpenseService(s store.Store, publisher Publisher, logger *applog.Logger) *ExpenseService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ExpenseService{
		store:     s,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentExpense),
	}
}

// Create validates and stores a new expense.
func (s *ExpenseService) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	in = in.WithDefaults()
	if err := in.Validate(); err != nil {
		s.logRejected(ctx, applog.OpCreate, in, err)
		return core.Expense{}, err
	}

	e, err := s.store.Insert(ctx, in)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to insert expense",
			applog.NewFields().WithOperation(applog.OpCreate).WithError(err).WithErrorType(applog.ErrorTypeInternal).ToSlice()...)
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense created",
		applog.NewFields().WithOperation(applog.OpCreate).WithExpense(e).ToSlice()...)
	s.publish(ctx, amqp.EventExpenseCreated, e)
	return e, nil
}

// Update replaces the caller-owned fields of the expense with the given id.
func (s *ExpenseService) Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	in = in.WithDefaults()
	if err := in.Validate(); err != nil {
		s.logRejected(ctx, applog.OpUpdate, in, err)
		return core.Expense{}, err
	}

	e, err := s.store.Update(ctx, id, in)
	switch {
	case errors.Is(err, core.ErrNotFound):
		s.logger.With(applog.FieldExpenseID, id).WarnContext(ctx, "Expense not found",
			applog.NewFields().WithOperation(applog.OpUpdate).WithErrorType(applog.ErrorTypeNotFound).ToSlice()...)
		return core.Expense{}, err
	case err != nil:
		s.logger.ErrorContext(ctx, "Failed to update expense",
			applog.NewFields().WithOperation(applog.OpUpdate).WithError(err).WithErrorType(applog.ErrorTypeInternal).ToSlice()...)
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense updated",
		applog.NewFields().WithOperation(applog.OpUpdate).WithExpense(e).ToSlice()...)
	s.publish(ctx, amqp.EventExpenseUpdated, e)
	return e, nil
}

func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	return s.store.Get(ctx, id)
}

// List returns every expense in insertion order.
func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return list, nil
}

// Summary aggregates the current collection.
func (s *ExpenseService) Summary(ctx context.Context) (core.Summary, error) {
	list, err := s.List(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(list), nil
}

func (s *ExpenseService) logRejected(ctx context.Context, op string, in core.ExpenseInput, err error) {
	s.logger.InfoContext(ctx, "Rejected expense input",
		applog.NewFields().
			WithOperation(op).
			WithInput(in).
			WithError(err).
			WithErrorType(applog.ErrorTypeValidation).
			ToSlice()...)
}

// publish never fails the caller: the change is already applied.
func (s *ExpenseService) publish(ctx context.Context, typ amqp.EventType, e core.Expense) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(typ, e)); err != nil {
		s.logger.LogContext(ctx, slog.LevelError, "Failed to publish expense event",
			applog.FieldEventType, typ,
			applog.FieldExpenseID, e.ID,
			applog.FieldError, err)
	}
}

// Close closes both store and publisher.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}
	return nil
}
