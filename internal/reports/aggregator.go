// Package reports computes read-only summaries over an owner's
// transactions and budgets.
package reports

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// Source is the read surface the aggregator needs.
type Source interface {
	ListTransactions(ctx context.Context, owner string, filter core.TransactionFilter) ([]core.Transaction, error)
	ListBudgets(ctx context.Context, owner string) ([]core.Budget, error)
}

var _ Source = (storage.Store)(nil)

type Aggregator struct {
	src Source
}

func NewAggregator(src Source) *Aggregator {
	return &Aggregator{src: src}
}

// Summary reports totals over the owner's transactions inside window and the
// lifetime position of every budget the owner has, whatever the window.
func (a *Aggregator) Summary(ctx context.Context, owner string, window core.Window) (core.Summary, error) {
	if err := window.Validate(); err != nil {
		return core.Summary{}, err
	}

	var (
		txns    []core.Transaction
		budgets []core.Budget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txns, err = a.src.ListTransactions(gctx, owner, core.TransactionFilter{Window: window})
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		budgets, err = a.src.ListBudgets(gctx, owner)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, err
	}

	return Summarize(txns, budgets), nil
}

// Summarize folds already-selected transactions and budgets into a summary.
// The breakdown is keyed by the category as entered.
func Summarize(txns []core.Transaction, budgets []core.Budget) core.Summary {
	s := core.Summary{
		CategoryBreakdown: make(map[string]core.CategoryTotals),
		BudgetStatus:      make([]core.BudgetStatus, 0, len(budgets)),
	}
	for _, t := range txns {
		totals := s.CategoryBreakdown[t.Category]
		switch t.Type {
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
			totals.Income = totals.Income.Add(t.Amount)
		case core.Expense:
			s.TotalExpense = s.TotalExpense.Add(t.Amount)
			totals.Expense = totals.Expense.Add(t.Amount)
		}
		s.CategoryBreakdown[t.Category] = totals
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)

	for _, b := range budgets {
		s.BudgetStatus = append(s.BudgetStatus, core.BudgetStatus{
			BudgetID:  b.ID,
			Category:  b.Category,
			Period:    b.Period,
			Budgeted:  b.Amount,
			Spent:     b.Spent,
			Remaining: b.Remaining(),
		})
	}
	return s
}

// Transactions returns the owner's transactions matching filter, most
// recent first.
func (a *Aggregator) Transactions(ctx context.Context, owner string, filter core.TransactionFilter) ([]core.Transaction, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	txns, err := a.src.ListTransactions(ctx, owner, filter)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}
