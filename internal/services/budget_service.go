package services

import (
	"context"
	"fmt"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// BudgetService manages budgets. Spent totals only grow through
// reconciliation, except for the explicit CorrectSpent overwrite.
type BudgetService struct {
	store storage.Store
	opts  options
}

func NewBudgetService(store storage.Store, opts ...Option) *BudgetService {
	return &BudgetService{store: store, opts: buildOptions(opts)}
}

// Create stores a new budget for owner. Missing fields get defaults: the
// window starts today and lasts 30 days, the period is monthly.
func (s *BudgetService) Create(ctx context.Context, owner string, in core.BudgetInput) (core.Budget, error) {
	if err := requireOwner(owner); err != nil {
		return core.Budget{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Budget{}, err
	}

	b := core.NewBudget(s.opts.newID(), owner, in, s.opts.now())
	if b.EndDate != nil && b.EndDate.Before(b.StartDate) {
		return core.Budget{}, core.ErrInvalidWindow
	}

	sctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()
	if err := s.store.CreateBudget(sctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	return b, nil
}

// List returns owner's budgets, newest first.
func (s *BudgetService) List(ctx context.Context, owner string) ([]core.Budget, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	sctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()
	budgets, err := s.store.ListBudgets(sctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

func (s *BudgetService) Get(ctx context.Context, owner, id string) (core.Budget, error) {
	if err := requireOwner(owner); err != nil {
		return core.Budget{}, err
	}
	sctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()
	return ownedBudget(sctx, s.store, owner, id)
}

// Update applies patch to a budget owned by owner.
func (s *BudgetService) Update(ctx context.Context, owner, id string, patch core.BudgetPatch) (core.Budget, error) {
	if err := requireOwner(owner); err != nil {
		return core.Budget{}, err
	}
	if err := patch.Validate(); err != nil {
		return core.Budget{}, err
	}

	sctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	var updated core.Budget
	err := s.store.WithinTx(sctx, func(tx storage.Store) error {
		b, err := ownedBudget(sctx, tx, owner, id)
		if err != nil {
			return err
		}
		if err := patch.Apply(&b, s.opts.now()); err != nil {
			return err
		}
		if err := tx.UpdateBudget(sctx, b); err != nil {
			return fmt.Errorf("update budget: %w", err)
		}
		updated = b
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}
	return updated, nil
}

// CorrectSpent overwrites the spent total of a budget owned by owner. It is
// the only way to lower a spent total.
func (s *BudgetService) CorrectSpent(ctx context.Context, owner, id string, spent core.Money) (core.Budget, error) {
	if err := requireOwner(owner); err != nil {
		return core.Budget{}, err
	}
	if spent.Cents < 0 {
		return core.Budget{}, core.ErrNegativeSpent
	}

	sctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	var updated core.Budget
	err := s.store.WithinTx(sctx, func(tx storage.Store) error {
		if _, err := ownedBudget(sctx, tx, owner, id); err != nil {
			return err
		}
		b, err := tx.SetSpent(sctx, id, spent, s.opts.now())
		if err != nil {
			return fmt.Errorf("set spent: %w", err)
		}
		updated = b
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}
	return updated, nil
}

func (s *BudgetService) Delete(ctx context.Context, owner, id string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}

	sctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	return s.store.WithinTx(sctx, func(tx storage.Store) error {
		if _, err := ownedBudget(sctx, tx, owner, id); err != nil {
			return err
		}
		if err := tx.DeleteBudget(sctx, id); err != nil {
			return fmt.Errorf("delete budget: %w", err)
		}
		return nil
	})
}

// Alerts returns the overspend alerts recorded for owner, newest first.
func (s *BudgetService) Alerts(ctx context.Context, owner string) ([]core.BudgetAlert, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	sctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()
	alerts, err := s.store.ListBudgetAlerts(sctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list budget alerts: %w", err)
	}
	return alerts, nil
}
