// Package storage defines the persistence ports for transactions, budgets
// and budget alerts. Implementations live in the memory and sqlstore
// subpackages.
package storage

import (
	"context"
	"time"

	"spendwise/internal/core"
)

// Ports for outbound adapters.
type (
	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) error
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
		// ListTransactions returns the owner's transactions matching filter,
		// most recent date first.
		ListTransactions(ctx context.Context, owner string, filter core.TransactionFilter) ([]core.Transaction, error)
	}

	// BudgetFinder is the read side used by reconciliation.
	BudgetFinder interface {
		// FindBudgetCandidates returns the owner's budgets whose category key
		// equals categoryKey and whose window covers date, in creation order.
		FindBudgetCandidates(ctx context.Context, owner, categoryKey string, date time.Time) ([]core.Budget, error)
	}

	BudgetStore interface {
		BudgetFinder
		CreateBudget(ctx context.Context, b core.Budget) error
		GetBudget(ctx context.Context, id string) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, id string) error
		// ListBudgets returns every budget of owner, newest first.
		ListBudgets(ctx context.Context, owner string) ([]core.Budget, error)
		// ApplyExpense atomically adds amount to the budget's spent total and
		// returns the updated budget.
		ApplyExpense(ctx context.Context, id string, amount core.Money) (core.Budget, error)
		// SetSpent overwrites the spent total.
		SetSpent(ctx context.Context, id string, spent core.Money, at time.Time) (core.Budget, error)
	}

	AlertStore interface {
		CreateBudgetAlert(ctx context.Context, a core.BudgetAlert) error
		// ListBudgetAlerts returns the owner's alerts, newest first.
		ListBudgetAlerts(ctx context.Context, owner string) ([]core.BudgetAlert, error)
	}

	// Store is the full persistence surface. WithinTx runs fn as one unit of
	// work: every write fn makes through the passed Store commits together or
	// not at all.
	Store interface {
		TransactionStore
		BudgetStore
		AlertStore
		WithinTx(ctx context.Context, fn func(Store) error) error
	}

	// Pinger is implemented by stores that can report readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
