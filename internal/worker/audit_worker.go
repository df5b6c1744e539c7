package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expensetracker/internal/amqp"
	applog "expensetracker/internal/log"
)

// AuditWorker records an audit trail of expense change events.
type AuditWorker struct {
	logger *applog.Logger

	mu       sync.Mutex
	counts   map[amqp.EventType]int
	lastSeen map[string]time.Time
}

func NewAuditWorker(logger *applog.Logger) *AuditWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &AuditWorker{
		logger:   logger.WithComponent(applog.ComponentWorker),
		counts:   make(map[amqp.EventType]int),
		lastSeen: make(map[string]time.Time),
	}
}

// HandleEvent logs one change event. Events older than one already seen for
// the same expense are logged as out of order but still counted.
func (w *AuditWorker) HandleEvent(ctx context.Context, ev amqp.ExpenseEvent) error {
	if ev.Expense.ID == "" {
		return fmt.Errorf("audit %s: missing expense id", ev.Type)
	}

	w.mu.Lock()
	w.counts[ev.Type]++
	prev, seen := w.lastSeen[ev.Expense.ID]
	outOfOrder := seen && ev.Timestamp.Before(prev)
	if !outOfOrder {
		w.lastSeen[ev.Expense.ID] = ev.Timestamp
	}
	w.mu.Unlock()

	fields := applog.NewFields().
		WithOperation(applog.OpConsume).
		WithExpense(ev.Expense)
	fields[applog.FieldEventType] = string(ev.Type)

	if outOfOrder {
		w.logger.WarnContext(ctx, "Out of order expense event", fields.ToSlice()...)
		return nil
	}
	w.logger.InfoContext(ctx, "Expense event", fields.ToSlice()...)
	return nil
}

// Counts returns a copy of the per-type event counters.
func (w *AuditWorker) Counts() map[amqp.EventType]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[amqp.EventType]int, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}

// Tracked returns how many distinct expenses have been seen.
func (w *AuditWorker) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.lastSeen)
}
