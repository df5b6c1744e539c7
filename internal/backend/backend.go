// Package backend assembles the expense store, the optional change-event
// publisher and the service on top of them.
package backend

import (
	"errors"
	"fmt"
	"slices"

	"expensetracker/internal/config"
	"expensetracker/internal/store"
)

// Kind selects the store implementation.
type Kind string

const (
	KindMemory Kind = "memory"
	// KindSQLite keeps the data in a shared-cache in-memory SQLite database.
	KindSQLite Kind = "sqlite"
)

// Kinds lists the supported store implementations.
func Kinds() []Kind {
	return []Kind{KindMemory, KindSQLite}
}

func (k Kind) Valid() bool {
	return slices.Contains(Kinds(), k)
}

// Config describes the backend to open.
type Config struct {
	Kind       Kind
	SQLiteName string

	// An empty AMQPURL disables change events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Store store.Options
}

// ConfigFrom picks the backend settings out of the process configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Kind:         Kind(cfg.DataBackend),
		SQLiteName:   cfg.SQLiteName,
		AMQPURL:      cfg.AMQPURL,
		AMQPExchange: cfg.AMQPExchange,
		AMQPQueue:    cfg.AMQPQueue,
	}
}

func (c Config) Validate() error {
	var errs []error
	if !c.Kind.Valid() {
		errs = append(errs, fmt.Errorf("unknown backend %q (want one of %v)", c.Kind, Kinds()))
	}
	if c.Kind == KindSQLite && c.SQLiteName == "" {
		errs = append(errs, errors.New("sqlite backend needs a database name"))
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		errs = append(errs, errors.New("AMQP exchange and queue are required when AMQP URL is set"))
	}
	return errors.Join(errs...)
}
