package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/storage/memory"
)

func overspent() *amqp.LedgerEvent {
	return &amqp.LedgerEvent{
		Kind:          amqp.EventBudgetOverspent,
		OwnerID:       "alice",
		TransactionID: "t1",
		BudgetID:      "b1",
		Category:      "Food",
		AmountCents:   10000,
		BudgetCents:   20000,
		SpentCents:    25000,
		Timestamp:     time.Date(2025, 1, 20, 8, 0, 0, 0, time.UTC),
	}
}

func TestHandleOverspentStoresAlert(t *testing.T) {
	store := memory.New()
	w := NewAlertWorker(store)
	ctx := context.Background()

	if err := w.HandleEvent(ctx, overspent()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	// Redelivery must not duplicate the alert.
	if err := w.HandleEvent(ctx, overspent()); err != nil {
		t.Fatalf("handle redelivery: %v", err)
	}

	alerts, _ := store.ListBudgetAlerts(ctx, "alice")
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.ID != AlertID("t1", "b1") || a.BudgetID != "b1" || a.Spent.Cents != 25000 || a.Budgeted.Cents != 20000 {
		t.Fatalf("unexpected alert: %+v", a)
	}
	if !a.CreatedAt.Equal(time.Date(2025, 1, 20, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("alert should carry the event timestamp, got %v", a.CreatedAt)
	}
}

func TestHandleEventIgnoresOtherKinds(t *testing.T) {
	store := memory.New()
	w := NewAlertWorker(store)
	ctx := context.Background()

	for _, e := range []*amqp.LedgerEvent{
		{Kind: amqp.EventTransactionRecorded, OwnerID: "alice", TransactionID: "t1"},
		{Kind: "budget.renamed", OwnerID: "alice"},
		{Kind: amqp.EventBudgetOverspent, OwnerID: "alice"},
	} {
		if err := w.HandleEvent(ctx, e); err != nil {
			t.Fatalf("handle %s: %v", e.Kind, err)
		}
	}
	if alerts, _ := store.ListBudgetAlerts(ctx, "alice"); len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %d", len(alerts))
	}
}

type brokenAlerts struct{}

func (brokenAlerts) CreateBudgetAlert(context.Context, core.BudgetAlert) error {
	return errors.New("db locked")
}

func (brokenAlerts) ListBudgetAlerts(context.Context, string) ([]core.BudgetAlert, error) {
	return nil, nil
}

func TestHandleOverspentReturnsStoreError(t *testing.T) {
	if err := NewAlertWorker(brokenAlerts{}).HandleEvent(context.Background(), overspent()); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
}

func TestAlertIDIsStable(t *testing.T) {
	if AlertID("t1", "b1") != AlertID("t1", "b1") {
		t.Fatal("alert IDs must be deterministic")
	}
	if AlertID("t1", "b1") == AlertID("t1", "b2") {
		t.Fatal("alert IDs must differ per budget")
	}
}
