package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTransactionInputValidate(t *testing.T) {
	good := TransactionInput{Type: Expense, Amount: Money{Cents: 100}, Category: "Food"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		in   TransactionInput
		want error
	}{
		{TransactionInput{Type: "gift", Amount: Money{Cents: 1}, Category: "c"}, ErrInvalidType},
		{TransactionInput{Type: Income, Amount: Money{Cents: 0}, Category: "c"}, ErrInvalidAmount},
		{TransactionInput{Type: Income, Amount: Money{Cents: -5}, Category: "c"}, ErrInvalidAmount},
		{TransactionInput{Type: Income, Amount: Money{Cents: 1}, Category: "  "}, ErrEmptyCategory},
		{TransactionInput{Type: Income, Amount: Money{Cents: 1}, Category: "c", Source: "email"}, ErrInvalidSource},
	}
	for i, tc := range bads {
		err := tc.in.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected a validation error, got %v", i, err)
		}
	}
}

func TestNewTransactionDefaults(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 30, 15, 999, time.UTC)
	txn := NewTransaction("id-1", "owner", TransactionInput{Type: Expense, Amount: Money{Cents: 100}, Category: " Food "}, now)

	if !txn.Date.Equal(Normalize(now)) {
		t.Fatalf("expected date to default to now, got %v", txn.Date)
	}
	if txn.Source != SourceManual {
		t.Fatalf("expected manual source, got %s", txn.Source)
	}
	if txn.Category != "Food" {
		t.Fatalf("expected trimmed category, got %q", txn.Category)
	}
}

func TestBudgetCovers(t *testing.T) {
	end := date(2025, 1, 31)
	b := Budget{StartDate: date(2025, 1, 1), EndDate: &end}

	cases := []struct {
		at   time.Time
		want bool
	}{
		{date(2024, 12, 31), false},
		{date(2025, 1, 1), true},
		{date(2025, 1, 15), true},
		{date(2025, 1, 31), true},
		{date(2025, 2, 1), false},
	}
	for _, tc := range cases {
		if got := b.Covers(tc.at); got != tc.want {
			t.Fatalf("Covers(%v) = %v, want %v", tc.at, got, tc.want)
		}
	}

	open := Budget{StartDate: date(2025, 1, 1)}
	if !open.Covers(date(2030, 1, 1)) {
		t.Fatalf("open-ended budget should cover future dates")
	}
}

func TestBudgetApplyExpenseAllowsOverspend(t *testing.T) {
	b := Budget{Amount: Money{Cents: 20000}}
	for _, c := range []int64{10000, 5000} {
		if err := b.ApplyExpense(Money{Cents: c}); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	if b.Remaining().Cents != 5000 {
		t.Fatalf("expected 50.00 remaining, got %s", b.Remaining())
	}
	if err := b.ApplyExpense(Money{Cents: 10000}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if b.Spent.Cents != 25000 || b.Remaining().Cents != -5000 {
		t.Fatalf("expected spent 250.00 remaining -50.00, got %s / %s", b.Spent, b.Remaining())
	}
	if !b.Overspent() {
		t.Fatalf("expected overspent budget")
	}
}

func TestBudgetApplyExpenseRefusesOverflow(t *testing.T) {
	b := Budget{Amount: Money{Cents: 100}, Spent: Money{Cents: math.MaxInt64 - 5}}
	if err := b.ApplyExpense(Money{Cents: 6}); !errors.Is(err, ErrSpentOverflow) {
		t.Fatalf("expected ErrSpentOverflow, got %v", err)
	}
	if b.Spent.Cents != math.MaxInt64-5 {
		t.Fatalf("spent changed on refused expense: %d", b.Spent.Cents)
	}
	if !errors.Is(ErrSpentOverflow, ErrValidation) {
		t.Fatalf("overflow must classify as a validation error")
	}
}

func TestNewBudgetDefaults(t *testing.T) {
	now := time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)
	b := NewBudget("b1", "owner", BudgetInput{Category: "Food", Amount: Money{Cents: 100}}, now)

	if !b.StartDate.Equal(date(2025, 5, 2)) {
		t.Fatalf("expected start today, got %v", b.StartDate)
	}
	if b.EndDate == nil || !b.EndDate.Equal(date(2025, 6, 1)) {
		t.Fatalf("expected end +30 days, got %v", b.EndDate)
	}
	if b.Period != Monthly || b.Color != DefaultBudgetColor || b.Spent.Cents != 0 {
		t.Fatalf("unexpected defaults: %+v", b)
	}

	open := NewBudget("b2", "owner", BudgetInput{Category: "Food", Amount: Money{Cents: 100}, OpenEnded: true}, now)
	if open.EndDate != nil {
		t.Fatalf("expected open-ended budget")
	}
}

func TestBudgetPatchApply(t *testing.T) {
	end := date(2025, 1, 31)
	b := Budget{Category: "Food", Amount: Money{Cents: 100}, StartDate: date(2025, 1, 1), EndDate: &end, Spent: Money{Cents: 70}}

	amount := Money{Cents: 500}
	if err := (BudgetPatch{Amount: &amount, ClearEndDate: true}).Apply(&b, date(2025, 1, 2)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if b.Amount.Cents != 500 || b.EndDate != nil || b.Spent.Cents != 70 {
		t.Fatalf("unexpected patched budget: %+v", b)
	}

	early := date(2024, 1, 1)
	before := b
	if err := (BudgetPatch{EndDate: &early}).Apply(&b, date(2025, 1, 2)); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected invalid window, got %v", err)
	}
	if b.EndDate != before.EndDate {
		t.Fatalf("failed patch must not modify the budget")
	}
}

func TestTransactionFilterMatches(t *testing.T) {
	start, end := date(2025, 1, 1), EndOfDay(date(2025, 1, 31))
	f := TransactionFilter{Type: Expense, Category: "food", Window: Window{Start: &start, End: &end}}

	in := Transaction{Type: Expense, Category: "Food", Date: time.Date(2025, 1, 31, 20, 0, 0, 0, time.UTC)}
	if !f.Matches(in) {
		t.Fatalf("expected match for %+v", in)
	}
	out := in
	out.Date = date(2025, 2, 1)
	if f.Matches(out) {
		t.Fatalf("expected no match outside the window")
	}
	other := in
	other.Type = Income
	if f.Matches(other) {
		t.Fatalf("expected no match for income")
	}
}
