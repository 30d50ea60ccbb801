package memory

import (
	"context"
	"testing"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/storage"
	"spendwise/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(*testing.T) storage.Store { return New() })
}

func TestReturnedBudgetsDoNotAlias(t *testing.T) {
	ctx := context.Background()
	s := New()
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	if err := s.CreateBudget(ctx, core.Budget{ID: "b", OwnerID: "o", Category: "Food", EndDate: &end}); err != nil {
		t.Fatalf("create: %v", err)
	}
	end = end.AddDate(1, 0, 0)

	got, _ := s.GetBudget(ctx, "b")
	if got.EndDate.Year() != 2025 {
		t.Fatalf("store must copy the end date on write, got %v", got.EndDate)
	}
	*got.EndDate = got.EndDate.AddDate(5, 0, 0)
	again, _ := s.GetBudget(ctx, "b")
	if again.EndDate.Year() != 2025 {
		t.Fatalf("store must copy the end date on read, got %v", again.EndDate)
	}
}

func TestNestedWithinTxReusesUnitOfWork(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.WithinTx(ctx, func(tx storage.Store) error {
		return tx.WithinTx(ctx, func(inner storage.Store) error {
			return inner.CreateTransaction(ctx, core.Transaction{ID: "t", OwnerID: "o"})
		})
	})
	if err != nil {
		t.Fatalf("nested unit of work: %v", err)
	}
	if _, err := s.GetTransaction(ctx, "t"); err != nil {
		t.Fatalf("expected committed transaction: %v", err)
	}
}
