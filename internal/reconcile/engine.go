// Package reconcile attributes expense transactions to budgets.
//
// When an expense is recorded the engine looks up the owner's budgets whose
// category matches (case-insensitively) and whose window covers the
// transaction date, picks the first one in creation order that the period
// policy allows, and adds the amount to its spent total. Income is never
// reconciled. Accumulation is append-only: later edits or deletions of the
// transaction do not reverse it.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

type Engine struct {
	policy Policy
}

func New(policy Policy) *Engine {
	return &Engine{policy: policy}
}

func (e *Engine) Policy() Policy { return e.policy }

// Select returns the first candidate eligible for txn. Candidates must be in
// creation order.
func (e *Engine) Select(candidates []core.Budget, owner, category string, date time.Time) (core.Budget, bool) {
	for _, b := range candidates {
		if b.OwnerID != owner || !core.SameCategory(b.Category, category) || !b.Covers(date) {
			continue
		}
		if !e.policy.Allows(b.Period) {
			continue
		}
		return b, true
	}
	return core.Budget{}, false
}

// Lookup finds the budget an expense of category on date would be charged
// to.
func (e *Engine) Lookup(ctx context.Context, finder storage.BudgetFinder, owner, category string, date time.Time) (string, bool, error) {
	candidates, err := finder.FindBudgetCandidates(ctx, owner, core.CategoryKey(category), date)
	if err != nil {
		return "", false, fmt.Errorf("find budget candidates: %w", err)
	}
	b, ok := e.Select(candidates, owner, category, date)
	if !ok {
		return "", false, nil
	}
	return b.ID, true, nil
}

// Reconcile charges txn to its matching budget and returns the updated
// budget, or nil when txn is income or no budget matches. It must run in the
// same unit of work that recorded txn.
func (e *Engine) Reconcile(ctx context.Context, budgets storage.BudgetStore, txn core.Transaction) (*core.Budget, error) {
	if txn.Type != core.Expense {
		return nil, nil
	}

	id, ok, err := e.Lookup(ctx, budgets, txn.OwnerID, txn.Category, txn.Date)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.DebugContext(ctx, "No budget matched",
			"transaction_id", txn.ID,
			"category", txn.Category)
		return nil, nil
	}

	updated, err := budgets.ApplyExpense(ctx, id, txn.Amount)
	if err != nil {
		return nil, fmt.Errorf("apply expense to budget %s: %w", id, err)
	}
	return &updated, nil
}
