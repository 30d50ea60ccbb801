package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// alertNamespace scopes the deterministic alert IDs.
var alertNamespace = uuid.MustParse("6f1c7a52-3b0e-4d7e-9a55-1c2b8e7d4f10")

// AlertWorker turns overspend events into stored budget alerts.
type AlertWorker struct {
	alerts storage.AlertStore
	now    func() time.Time
}

func NewAlertWorker(alerts storage.AlertStore) *AlertWorker {
	return &AlertWorker{alerts: alerts, now: time.Now}
}

// AlertID derives a stable ID from the transaction and budget so a
// redelivered event maps to the same alert.
func AlertID(transactionID, budgetID string) string {
	return uuid.NewSHA1(alertNamespace, []byte(transactionID+"/"+budgetID)).String()
}

// HandleEvent processes one ledger event. Kinds other than budget.overspent
// are acknowledged without action.
func (w *AlertWorker) HandleEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	switch e.Kind {
	case amqp.EventBudgetOverspent:
		return w.handleOverspent(ctx, e)
	case amqp.EventTransactionRecorded:
		slog.DebugContext(ctx, "Transaction recorded event",
			"owner_id", e.OwnerID,
			"transaction_id", e.TransactionID)
		return nil
	default:
		slog.WarnContext(ctx, "Ignoring unknown event kind", "kind", e.Kind)
		return nil
	}
}

func (w *AlertWorker) handleOverspent(ctx context.Context, e *amqp.LedgerEvent) error {
	if e.BudgetID == "" || e.TransactionID == "" {
		slog.WarnContext(ctx, "Dropping overspent event without budget or transaction",
			"owner_id", e.OwnerID)
		return nil
	}

	created := e.Timestamp
	if created.IsZero() {
		created = w.now()
	}
	alert := core.BudgetAlert{
		ID:            AlertID(e.TransactionID, e.BudgetID),
		OwnerID:       e.OwnerID,
		BudgetID:      e.BudgetID,
		TransactionID: e.TransactionID,
		Category:      e.Category,
		Budgeted:      core.Money{Cents: e.BudgetCents},
		Spent:         core.Money{Cents: e.SpentCents},
		CreatedAt:     core.Normalize(created),
	}
	if err := w.alerts.CreateBudgetAlert(ctx, alert); err != nil {
		return fmt.Errorf("store budget alert: %w", err)
	}

	slog.InfoContext(ctx, "Budget alert recorded",
		"owner_id", alert.OwnerID,
		"budget_id", alert.BudgetID,
		"transaction_id", alert.TransactionID,
		"budgeted", alert.Budgeted.String(),
		"spent", alert.Spent.String())
	return nil
}
