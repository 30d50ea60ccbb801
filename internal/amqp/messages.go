package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"spendwise/internal/core"
)

// Event kinds double as routing keys on the direct exchange.
const (
	EventTransactionRecorded = "transaction.recorded"
	EventBudgetOverspent     = "budget.overspent"
)

// LedgerEvent is published after a write has committed. Consumers treat it
// as a notification; the store stays the source of truth.
type LedgerEvent struct {
	Kind          string    `json:"kind"`
	OwnerID       string    `json:"owner_id"`
	TransactionID string    `json:"transaction_id"`
	BudgetID      string    `json:"budget_id,omitempty"`
	Category      string    `json:"category"`
	AmountCents   int64     `json:"amount_cents"`
	BudgetCents   int64     `json:"budget_cents,omitempty"`
	SpentCents    int64     `json:"spent_cents,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionRecorded describes a freshly stored transaction. budget is
// the budget it was charged to, if any.
func NewTransactionRecorded(t core.Transaction, budget *core.Budget) *LedgerEvent {
	e := &LedgerEvent{
		Kind:          EventTransactionRecorded,
		OwnerID:       t.OwnerID,
		TransactionID: t.ID,
		Category:      t.Category,
		AmountCents:   t.Amount.Cents,
		Timestamp:     time.Now().UTC(),
	}
	if budget != nil {
		e.BudgetID = budget.ID
		e.BudgetCents = budget.Amount.Cents
		e.SpentCents = budget.Spent.Cents
	}
	return e
}

// NewBudgetOverspent reports that charging t pushed b over its ceiling.
func NewBudgetOverspent(t core.Transaction, b core.Budget) *LedgerEvent {
	return &LedgerEvent{
		Kind:          EventBudgetOverspent,
		OwnerID:       t.OwnerID,
		TransactionID: t.ID,
		BudgetID:      b.ID,
		Category:      b.Category,
		AmountCents:   t.Amount.Cents,
		BudgetCents:   b.Amount.Cents,
		SpentCents:    b.Spent.Cents,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and sanity-checks a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Kind == "" || e.OwnerID == "" {
		return nil, fmt.Errorf("ledger event missing kind or owner")
	}
	return &e, nil
}
