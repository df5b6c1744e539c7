package worker

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

func event(typ amqp.EventType, id string, ts time.Time) amqp.ExpenseEvent {
	return amqp.ExpenseEvent{
		Type:      typ,
		Expense:   core.Expense{ID: id, Name: "Lunch", Amount: core.Money{Cents: 1200}},
		Timestamp: ts,
	}
}

func TestAuditWorker_HandleEvent(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	w := NewAuditWorker(applog.New(applog.Config{Output: &buf}))
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	steps := []amqp.ExpenseEvent{
		event(amqp.EventExpenseCreated, "a", base),
		event(amqp.EventExpenseCreated, "b", base.Add(time.Second)),
		event(amqp.EventExpenseUpdated, "a", base.Add(2*time.Second)),
	}
	for _, ev := range steps {
		if err := w.HandleEvent(ctx, ev); err != nil {
			t.Fatalf("HandleEvent(%s): %v", ev.Type, err)
		}
	}

	counts := w.Counts()
	if counts[amqp.EventExpenseCreated] != 2 || counts[amqp.EventExpenseUpdated] != 1 {
		t.Errorf("counts = %v", counts)
	}
	if w.Tracked() != 2 {
		t.Errorf("Tracked = %d, want 2", w.Tracked())
	}
	if !strings.Contains(buf.String(), "expense_id=a") {
		t.Errorf("audit log missing expense id: %s", buf.String())
	}
}

func TestAuditWorker_OutOfOrder(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	w := NewAuditWorker(applog.New(applog.Config{Output: &buf}))
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	w.HandleEvent(ctx, event(amqp.EventExpenseUpdated, "a", base.Add(time.Minute)))
	if err := w.HandleEvent(ctx, event(amqp.EventExpenseCreated, "a", base)); err != nil {
		t.Fatalf("out of order event should not fail: %v", err)
	}
	if !strings.Contains(buf.String(), "Out of order expense event") {
		t.Errorf("expected out of order warning: %s", buf.String())
	}
}

func TestAuditWorker_RejectsMissingID(t *testing.T) {
	w := NewAuditWorker(nil)
	if err := w.HandleEvent(context.Background(), event(amqp.EventExpenseCreated, "", time.Now())); err == nil {
		t.Error("expected error for event without id")
	}
	if len(w.Counts()) != 0 {
		t.Error("rejected event should not be counted")
	}
}
