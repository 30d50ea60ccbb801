// Package storagetest holds behaviour checks shared by every storage.Store
// implementation. Each backend's tests call Run with a constructor.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func budget(id, owner, category string, amount int64, start time.Time, end *time.Time, created time.Time) core.Budget {
	return core.Budget{
		ID:        id,
		OwnerID:   owner,
		Category:  category,
		Amount:    core.Money{Cents: amount},
		Period:    core.Monthly,
		StartDate: start,
		EndDate:   end,
		Color:     core.DefaultBudgetColor,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func txn(id, owner string, typ core.TransactionType, amount int64, category string, date time.Time) core.Transaction {
	return core.Transaction{
		ID:        id,
		OwnerID:   owner,
		Type:      typ,
		Amount:    core.Money{Cents: amount},
		Category:  category,
		Date:      date,
		Source:    core.SourceManual,
		CreatedAt: date,
		UpdatedAt: date,
	}
}

// Run exercises the full storage.Store contract against stores built by
// newStore. Each subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("TransactionCRUD", func(t *testing.T) { testTransactionCRUD(t, newStore(t)) })
	t.Run("ListTransactionsFilterAndOrder", func(t *testing.T) { testListTransactions(t, newStore(t)) })
	t.Run("BudgetCRUD", func(t *testing.T) { testBudgetCRUD(t, newStore(t)) })
	t.Run("FindBudgetCandidates", func(t *testing.T) { testFindBudgetCandidates(t, newStore(t)) })
	t.Run("ApplyExpenseAndSetSpent", func(t *testing.T) { testApplyExpense(t, newStore(t)) })
	t.Run("ConcurrentApplyExpense", func(t *testing.T) { testConcurrentApplyExpense(t, newStore(t)) })
	t.Run("WithinTxRollback", func(t *testing.T) { testWithinTxRollback(t, newStore(t)) })
	t.Run("Alerts", func(t *testing.T) { testAlerts(t, newStore(t)) })
}

func testTransactionCRUD(t *testing.T, s storage.Store) {
	ctx := context.Background()
	in := txn("t1", "alice", core.Expense, 4550, "Food", day(2025, 1, 10))
	in.Description = "Paid 45.50 for food at cafe"
	in.Source = core.SourceSMS

	if err := s.CreateTransaction(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.GetTransaction(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount != in.Amount || got.Description != in.Description || got.Source != core.SourceSMS || !got.Date.Equal(in.Date) {
		t.Fatalf("unexpected transaction: %+v", got)
	}

	got.Category = "Groceries"
	got.Amount = core.Money{Cents: 100}
	if err := s.UpdateTransaction(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ := s.GetTransaction(ctx, "t1")
	if again.Category != "Groceries" || again.Amount.Cents != 100 {
		t.Fatalf("update not persisted: %+v", again)
	}

	if err := s.DeleteTransaction(ctx, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTransaction(ctx, "t1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, "t1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if err := s.UpdateTransaction(ctx, in); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on update of missing, got %v", err)
	}
}

func testListTransactions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for _, tx := range []core.Transaction{
		txn("a", "alice", core.Income, 50000, "Salary", day(2025, 1, 1)),
		txn("b", "alice", core.Expense, 10000, "Food", day(2025, 1, 5)),
		txn("c", "alice", core.Expense, 5000, "food", day(2025, 1, 31).Add(20*time.Hour)),
		txn("d", "alice", core.Expense, 700, "Food", day(2025, 2, 1)),
		txn("e", "bob", core.Expense, 999, "Food", day(2025, 1, 6)),
	} {
		if err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create %s: %v", tx.ID, err)
		}
	}

	all, err := s.ListTransactions(ctx, "alice", core.TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if ids := idsOf(all); ids != "d,c,b,a" {
		t.Fatalf("expected most recent first d,c,b,a, got %s", ids)
	}

	start, end := day(2025, 1, 1), core.EndOfDay(day(2025, 1, 31))
	food, err := s.ListTransactions(ctx, "alice", core.TransactionFilter{
		Type:     core.Expense,
		Category: "FOOD",
		Window:   core.Window{Start: &start, End: &end},
	})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if ids := idsOf(food); ids != "c,b" {
		t.Fatalf("expected c,b, got %s", ids)
	}

	open, _ := s.ListTransactions(ctx, "alice", core.TransactionFilter{Window: core.Window{Start: ptr(day(2025, 1, 6))}})
	if ids := idsOf(open); ids != "d,c" {
		t.Fatalf("expected start-only window d,c, got %s", ids)
	}

	none, _ := s.ListTransactions(ctx, "carol", core.TransactionFilter{})
	if len(none) != 0 {
		t.Fatalf("expected no transactions for unknown owner, got %d", len(none))
	}
}

func idsOf(ts []core.Transaction) string {
	out := ""
	for i, t := range ts {
		if i > 0 {
			out += ","
		}
		out += t.ID
	}
	return out
}

func testBudgetCRUD(t *testing.T, s storage.Store) {
	ctx := context.Background()
	b1 := budget("b1", "alice", "Food", 20000, day(2025, 1, 1), ptr(day(2025, 1, 31)), day(2025, 1, 1))
	b1.Note = "groceries only"
	b2 := budget("b2", "alice", "Travel", 50000, day(2025, 1, 1), nil, day(2025, 1, 2))
	for _, b := range []core.Budget{b1, b2, budget("b3", "bob", "Food", 1, day(2025, 1, 1), nil, day(2025, 1, 3))} {
		if err := s.CreateBudget(ctx, b); err != nil {
			t.Fatalf("create %s: %v", b.ID, err)
		}
	}

	got, err := s.GetBudget(ctx, "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Note != "groceries only" || got.EndDate == nil || !got.EndDate.Equal(day(2025, 1, 31)) {
		t.Fatalf("unexpected budget: %+v", got)
	}
	open, _ := s.GetBudget(ctx, "b2")
	if open.EndDate != nil {
		t.Fatalf("expected open-ended budget, got end %v", open.EndDate)
	}

	list, _ := s.ListBudgets(ctx, "alice")
	if len(list) != 2 || list[0].ID != "b2" || list[1].ID != "b1" {
		t.Fatalf("expected newest first b2,b1, got %+v", list)
	}

	if _, err := s.ApplyExpense(ctx, "b1", core.Money{Cents: 700}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got.Amount = core.Money{Cents: 30000}
	got.Spent = core.Money{Cents: 0}
	got.Color = "#000000"
	if err := s.UpdateBudget(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	after, _ := s.GetBudget(ctx, "b1")
	if after.Amount.Cents != 30000 || after.Color != "#000000" {
		t.Fatalf("update not persisted: %+v", after)
	}
	if after.Spent.Cents != 700 {
		t.Fatalf("update must not overwrite spent, got %d", after.Spent.Cents)
	}

	if err := s.DeleteBudget(ctx, "b1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetBudget(ctx, "b1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testFindBudgetCandidates(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for _, b := range []core.Budget{
		budget("jan", "alice", "Food", 100, day(2025, 1, 1), ptr(day(2025, 1, 31)), day(2024, 12, 1)),
		budget("open", "alice", "food", 100, day(2024, 6, 1), nil, day(2024, 12, 2)),
		budget("feb", "alice", "Food", 100, day(2025, 2, 1), ptr(day(2025, 2, 28)), day(2024, 12, 3)),
		budget("other", "alice", "Travel", 100, day(2025, 1, 1), nil, day(2024, 12, 4)),
		budget("bobs", "bob", "Food", 100, day(2025, 1, 1), nil, day(2024, 12, 5)),
	} {
		if err := s.CreateBudget(ctx, b); err != nil {
			t.Fatalf("create %s: %v", b.ID, err)
		}
	}

	cases := []struct {
		date time.Time
		want string
	}{
		{day(2025, 1, 15), "jan,open"},
		{day(2025, 1, 31), "jan,open"},
		{day(2025, 2, 1), "open,feb"},
		{day(2024, 5, 31), ""},
	}
	for _, tc := range cases {
		got, err := s.FindBudgetCandidates(ctx, "alice", "food", tc.date)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		ids := ""
		for i, b := range got {
			if i > 0 {
				ids += ","
			}
			ids += b.ID
		}
		if ids != tc.want {
			t.Fatalf("candidates at %s = %q, want %q", tc.date.Format(time.DateOnly), ids, tc.want)
		}
	}
}

func testApplyExpense(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if err := s.CreateBudget(ctx, budget("b", "alice", "Food", 20000, day(2025, 1, 1), nil, day(2025, 1, 1))); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, amt := range []int64{10000, 5000} {
		if _, err := s.ApplyExpense(ctx, "b", core.Money{Cents: amt}); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	b, err := s.ApplyExpense(ctx, "b", core.Money{Cents: 10000})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if b.Spent.Cents != 25000 || b.Remaining().Cents != -5000 {
		t.Fatalf("expected spent 250.00 remaining -50.00, got %s / %s", b.Spent, b.Remaining())
	}

	b, err = s.SetSpent(ctx, "b", core.Money{Cents: 0}, day(2025, 1, 2))
	if err != nil {
		t.Fatalf("set spent: %v", err)
	}
	if b.Spent.Cents != 0 {
		t.Fatalf("expected spent reset, got %s", b.Spent)
	}

	if _, err := s.ApplyExpense(ctx, "missing", core.Money{Cents: 1}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := s.SetSpent(ctx, "b", core.Money{Cents: math.MaxInt64 - 10}, day(2025, 1, 3)); err != nil {
		t.Fatalf("set spent: %v", err)
	}
	if _, err := s.ApplyExpense(ctx, "b", core.Money{Cents: 11}); !errors.Is(err, core.ErrSpentOverflow) {
		t.Fatalf("expected overflow error, got %v", err)
	}
	b, err = s.GetBudget(ctx, "b")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.Spent.Cents != math.MaxInt64-10 {
		t.Fatalf("refused increment changed spent to %d", b.Spent.Cents)
	}
	b, err = s.ApplyExpense(ctx, "b", core.Money{Cents: 10})
	if err != nil || b.Spent.Cents != math.MaxInt64 {
		t.Fatalf("expected spent at the int64 ceiling, got %d (err=%v)", b.Spent.Cents, err)
	}
}

func testConcurrentApplyExpense(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if err := s.CreateBudget(ctx, budget("b", "alice", "Food", 100, day(2025, 1, 1), nil, day(2025, 1, 1))); err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ApplyExpense(ctx, "b", core.Money{Cents: 125}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("apply: %v", err)
	}

	b, _ := s.GetBudget(ctx, "b")
	if b.Spent.Cents != n*125 {
		t.Fatalf("expected spent %d, got %d", n*125, b.Spent.Cents)
	}
}

func testWithinTxRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if err := s.CreateBudget(ctx, budget("b", "alice", "Food", 100, day(2025, 1, 1), nil, day(2025, 1, 1))); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx storage.Store) error {
		if err := tx.CreateTransaction(ctx, txn("t", "alice", core.Expense, 50, "Food", day(2025, 1, 2))); err != nil {
			return err
		}
		if _, err := tx.ApplyExpense(ctx, "b", core.Money{Cents: 50}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.GetTransaction(ctx, "t"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("transaction should have been rolled back, got %v", err)
	}
	if b, _ := s.GetBudget(ctx, "b"); b.Spent.Cents != 0 {
		t.Fatalf("spent should have been rolled back, got %d", b.Spent.Cents)
	}

	err = s.WithinTx(ctx, func(tx storage.Store) error {
		if err := tx.CreateTransaction(ctx, txn("t", "alice", core.Expense, 50, "Food", day(2025, 1, 2))); err != nil {
			return err
		}
		_, err := tx.ApplyExpense(ctx, "b", core.Money{Cents: 50})
		return err
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if b, _ := s.GetBudget(ctx, "b"); b.Spent.Cents != 50 {
		t.Fatalf("expected committed spent 50, got %d", b.Spent.Cents)
	}
}

func testAlerts(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		owner := "alice"
		if i == 2 {
			owner = "bob"
		}
		a := core.BudgetAlert{
			ID:            fmt.Sprintf("a%d", i),
			OwnerID:       owner,
			BudgetID:      "b",
			TransactionID: fmt.Sprintf("t%d", i),
			Category:      "Food",
			Budgeted:      core.Money{Cents: 100},
			Spent:         core.Money{Cents: int64(100 + i)},
			CreatedAt:     day(2025, 1, i),
		}
		if err := s.CreateBudgetAlert(ctx, a); err != nil {
			t.Fatalf("create alert: %v", err)
		}
		if err := s.CreateBudgetAlert(ctx, a); err != nil {
			t.Fatalf("duplicate alert must be ignored: %v", err)
		}
	}
	got, err := s.ListBudgetAlerts(ctx, "alice")
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a3" || got[1].ID != "a1" {
		t.Fatalf("expected a3,a1 newest first, got %+v", got)
	}
	if got[0].Spent.Cents != 103 {
		t.Fatalf("unexpected alert payload: %+v", got[0])
	}
}
