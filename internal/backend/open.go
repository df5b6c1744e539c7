package backend

import (
	"context"
	"fmt"

	"expensetracker/internal/amqp"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/store"
	"expensetracker/internal/store/memory"
	"expensetracker/internal/store/sqlite"
)

// Backend is an opened store with the service wired on top of it.
type Backend struct {
	Service *services.ExpenseService
	Store   store.Store
	// Events reports whether change events are published.
	Events bool
}

// Close releases the store and the publisher.
func (b *Backend) Close() error {
	return b.Service.Close()
}

// Open builds the store named by cfg.Kind and, when an AMQP URL is set, a
// change-event publisher. An unreachable broker is logged and skipped so the
// tracker still works without events.
func Open(ctx context.Context, cfg Config, logger *applog.Logger) (*Backend, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentBackend)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Expense store ready", "backend", cfg.Kind)

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.WarnContext(ctx, "Broker unreachable, continuing without change events",
				applog.FieldError, err)
		} else {
			publisher = client
			logger.InfoContext(ctx, "Publishing change events",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	return &Backend{
		Service: services.NewExpenseService(st, publisher, logger),
		Store:   st,
		Events:  publisher != nil,
	}, nil
}

func openStore(ctx context.Context, cfg Config, logger *applog.Logger) (store.Store, error) {
	if cfg.Kind == KindSQLite {
		st, err := sqlite.New(ctx, cfg.SQLiteName, cfg.Store, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	}
	return memory.New(cfg.Store), nil
}
