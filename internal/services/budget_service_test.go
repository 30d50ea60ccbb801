package services

import (
	"context"
	"errors"
	"testing"

	"spendwise/internal/core"
)

func TestBudgetCreateDefaults(t *testing.T) {
	f := newFixture(t)
	b, err := f.budgets.Create(context.Background(), "alice", core.BudgetInput{Category: "Food", Amount: core.Money{Cents: 20000}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !b.StartDate.Equal(day(2025, 1, 15)) || b.EndDate == nil || !b.EndDate.Equal(day(2025, 2, 14)) {
		t.Fatalf("expected window 2025-01-15..2025-02-14, got %v..%v", b.StartDate, b.EndDate)
	}
	if b.Spent.Cents != 0 || b.Period != core.Monthly || b.Color != core.DefaultBudgetColor || b.OwnerID != "alice" {
		t.Fatalf("unexpected defaults: %+v", b)
	}
}

func TestBudgetCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		in   core.BudgetInput
		want error
	}{
		{"blank category", core.BudgetInput{Category: "", Amount: core.Money{Cents: 1}}, core.ErrEmptyCategory},
		{"zero amount", core.BudgetInput{Category: "Food"}, core.ErrInvalidAmount},
		{"bad period", core.BudgetInput{Category: "Food", Amount: core.Money{Cents: 1}, Period: "yearly"}, core.ErrInvalidPeriod},
		{"end before explicit start", core.BudgetInput{Category: "Food", Amount: core.Money{Cents: 1}, StartDate: day(2025, 2, 1), EndDate: ptr(day(2025, 1, 1))}, core.ErrInvalidWindow},
		{"end before default start", core.BudgetInput{Category: "Food", Amount: core.Money{Cents: 1}, EndDate: ptr(day(2025, 1, 1))}, core.ErrInvalidWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if _, err := f.budgets.Create(context.Background(), "alice", tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if list, _ := f.budgets.List(context.Background(), "alice"); len(list) != 0 {
				t.Fatalf("nothing should be stored")
			}
		})
	}
}

func TestBudgetUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.budget(t, "alice", "Food", 20000)
	if _, err := f.txns.Create(ctx, "alice", expense("Food", 700)); err != nil {
		t.Fatalf("create: %v", err)
	}

	amount := core.Money{Cents: 30000}
	note := "raised"
	got, err := f.budgets.Update(ctx, "alice", b.ID, core.BudgetPatch{Amount: &amount, Note: &note, ClearEndDate: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Amount.Cents != 30000 || got.Note != "raised" || got.EndDate != nil || got.Spent.Cents != 700 {
		t.Fatalf("unexpected update: %+v", got)
	}

	stored, _ := f.budgets.Get(ctx, "alice", b.ID)
	if stored.Amount.Cents != 30000 || stored.Spent.Cents != 700 {
		t.Fatalf("update not persisted or spent changed: %+v", stored)
	}

	if _, err := f.budgets.Update(ctx, "bob", b.ID, core.BudgetPatch{Amount: &amount}); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	early := day(2020, 1, 1)
	if _, err := f.budgets.Update(ctx, "alice", b.ID, core.BudgetPatch{EndDate: &early}); !errors.Is(err, core.ErrInvalidWindow) {
		t.Fatalf("expected invalid window, got %v", err)
	}
}

func TestBudgetCorrectSpent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.budget(t, "alice", "Food", 20000)
	if _, err := f.txns.Create(ctx, "alice", expense("Food", 25000)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.budgets.CorrectSpent(ctx, "alice", b.ID, core.Money{Cents: -1}); !errors.Is(err, core.ErrNegativeSpent) {
		t.Fatalf("expected negative spent error, got %v", err)
	}
	if _, err := f.budgets.CorrectSpent(ctx, "bob", b.ID, core.Money{}); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	got, err := f.budgets.CorrectSpent(ctx, "alice", b.ID, core.Money{Cents: 1000})
	if err != nil {
		t.Fatalf("correct spent: %v", err)
	}
	if got.Spent.Cents != 1000 || got.Remaining().Cents != 19000 {
		t.Fatalf("unexpected corrected budget: %+v", got)
	}
}

func TestBudgetDeleteAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.budget(t, "alice", "Food", 100)
	second := f.budget(t, "alice", "Travel", 100)
	f.budget(t, "bob", "Food", 100)

	list, err := f.budgets.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	if err := f.budgets.Delete(ctx, "bob", first.ID); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := f.budgets.Delete(ctx, "alice", first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.budgets.Delete(ctx, "alice", first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := f.budgets.Get(ctx, "alice", first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBudgetAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.CreateBudgetAlert(ctx, core.BudgetAlert{ID: "a1", OwnerID: "alice", BudgetID: "b"}); err != nil {
		t.Fatalf("seed alert: %v", err)
	}
	alerts, err := f.budgets.Alerts(ctx, "alice")
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ID != "a1" {
		t.Fatalf("unexpected alerts: %+v", alerts)
	}
	if none, _ := f.budgets.Alerts(ctx, "bob"); len(none) != 0 {
		t.Fatalf("bob must not see alice's alerts")
	}
	if _, err := f.budgets.Alerts(ctx, ""); !errors.Is(err, core.ErrEmptyOwner) {
		t.Fatalf("expected empty owner error, got %v", err)
	}
}
