package core

import "time"

// CategoryTotals sums income and expense for one category.
type CategoryTotals struct {
	Income  Money
	Expense Money
}

// BudgetStatus is the lifetime position of one budget.
type BudgetStatus struct {
	BudgetID  string
	Category  string
	Period    Period
	Budgeted  Money
	Spent     Money
	Remaining Money
}

// Summary is the report for one owner and window.
type Summary struct {
	TotalIncome       Money
	TotalExpense      Money
	Balance           Money
	CategoryBreakdown map[string]CategoryTotals
	BudgetStatus      []BudgetStatus
}

// Window is an inclusive date range; either bound may be absent.
type Window struct {
	Start *time.Time
	End   *time.Time
}

func (w Window) Validate() error {
	if w.Start != nil && w.End != nil && w.End.Before(*w.Start) {
		return ErrInvalidWindow
	}
	return nil
}

func (w Window) Contains(t time.Time) bool {
	if w.Start != nil && t.Before(*w.Start) {
		return false
	}
	if w.End != nil && t.After(*w.End) {
		return false
	}
	return true
}

// TransactionFilter narrows a transaction listing. Zero values match all.
type TransactionFilter struct {
	Type     TransactionType
	Category string
	Window   Window
}

func (f TransactionFilter) Validate() error {
	if f.Type != "" {
		if err := f.Type.Validate(); err != nil {
			return err
		}
	}
	return f.Window.Validate()
}

func (f TransactionFilter) Matches(t Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && !SameCategory(f.Category, t.Category) {
		return false
	}
	return f.Window.Contains(t.Date)
}
