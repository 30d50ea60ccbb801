package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	SourceManual Source = "manual"
	SourceSMS    Source = "sms"

	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

// DefaultBudgetColor and DefaultBudgetWindow are applied when a budget is
// created without explicit display color or end date.
const (
	DefaultBudgetColor  = "#3B82F6"
	DefaultBudgetWindow = 30 * 24 * time.Hour
)

type (
	TransactionType string
	Source          string
	Period          string

	Transaction struct {
		ID          string
		OwnerID     string
		Type        TransactionType
		Amount      Money
		Category    string
		Description string
		Date        time.Time // economic date, not creation time
		Source      Source
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	Budget struct {
		ID        string
		OwnerID   string
		Category  string
		Amount    Money
		Spent     Money
		Period    Period
		StartDate time.Time
		EndDate   *time.Time // nil means open-ended
		Color     string
		Note      string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// BudgetAlert records that a budget went over its ceiling.
	BudgetAlert struct {
		ID            string
		OwnerID       string
		BudgetID      string
		TransactionID string
		Category      string
		Budgeted      Money
		Spent         Money
		CreatedAt     time.Time
	}
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("not authorized")
)

var (
	ErrInvalidAmount = fmt.Errorf("%w: amount must be a positive number", ErrValidation)
	ErrInvalidType   = fmt.Errorf("%w: type must be income or expense", ErrValidation)
	ErrInvalidSource = fmt.Errorf("%w: source must be manual or sms", ErrValidation)
	ErrInvalidPeriod = fmt.Errorf("%w: period must be daily, weekly or monthly", ErrValidation)
	ErrEmptyCategory = fmt.Errorf("%w: category is required", ErrValidation)
	ErrEmptyOwner    = fmt.Errorf("%w: owner is required", ErrValidation)
	ErrInvalidWindow = fmt.Errorf("%w: end date must not be before start date", ErrValidation)
	ErrNegativeSpent = fmt.Errorf("%w: spent must not be negative", ErrValidation)
	ErrSpentOverflow = fmt.Errorf("%w: budget spent would exceed the largest storable amount", ErrValidation)
)

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	}
	return ErrInvalidType
}

func (s Source) Validate() error {
	switch s {
	case SourceManual, SourceSMS:
		return nil
	}
	return ErrInvalidSource
}

func (p Period) Validate() error {
	switch p {
	case Daily, Weekly, Monthly:
		return nil
	}
	return ErrInvalidPeriod
}

// CategoryKey is the normalized form every category comparison goes through.
func CategoryKey(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// SameCategory reports whether two labels name the same category.
func SameCategory(a, b string) bool {
	return CategoryKey(a) == CategoryKey(b)
}

// Covers reports whether date falls inside the budget window.
func (b Budget) Covers(date time.Time) bool {
	if date.Before(b.StartDate) {
		return false
	}
	return b.EndDate == nil || !date.After(*b.EndDate)
}

// Remaining is budgeted minus spent; negative once overspent.
func (b Budget) Remaining() Money {
	return Money{Cents: b.Amount.Cents - b.Spent.Cents}
}

// Overspent reports whether the accumulator exceeds the ceiling.
func (b Budget) Overspent() bool {
	return b.Spent.Cents > b.Amount.Cents
}

// ApplyExpense adds amount to the spent accumulator. It is the only
// in-process path that grows Spent. Spent is left unchanged when the sum
// would overflow.
func (b *Budget) ApplyExpense(amount Money) error {
	spent, ok := b.Spent.CheckedAdd(amount)
	if !ok {
		return ErrSpentOverflow
	}
	b.Spent = spent
	return nil
}

// TransactionInput carries the caller-supplied fields of a new transaction.
// A zero Date means "now"; an empty Source means manual.
type TransactionInput struct {
	Type        TransactionType
	Amount      Money
	Category    string
	Description string
	Date        time.Time
	Source      Source
}

func (in TransactionInput) Validate() error {
	if err := in.Type.Validate(); err != nil {
		return err
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Category) == "" {
		return ErrEmptyCategory
	}
	if in.Source != "" {
		if err := in.Source.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NewTransaction builds a transaction for owner from in, applying defaults.
func NewTransaction(id, owner string, in TransactionInput, now time.Time) Transaction {
	date := in.Date
	if date.IsZero() {
		date = now
	}
	source := in.Source
	if source == "" {
		source = SourceManual
	}
	return Transaction{
		ID:          id,
		OwnerID:     owner,
		Type:        in.Type,
		Amount:      in.Amount,
		Category:    strings.TrimSpace(in.Category),
		Description: in.Description,
		Date:        Normalize(date),
		Source:      source,
		CreatedAt:   Normalize(now),
		UpdatedAt:   Normalize(now),
	}
}

// TransactionPatch overwrites the non-nil fields of a transaction.
type TransactionPatch struct {
	Type        *TransactionType
	Amount      *Money
	Category    *string
	Description *string
	Date        *time.Time
	Source      *Source
}

func (p TransactionPatch) Validate() error {
	if p.Type != nil {
		if err := p.Type.Validate(); err != nil {
			return err
		}
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return ErrEmptyCategory
	}
	if p.Source != nil {
		if err := p.Source.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p TransactionPatch) Apply(t *Transaction, now time.Time) {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = Normalize(*p.Date)
	}
	if p.Source != nil {
		t.Source = *p.Source
	}
	t.UpdatedAt = Normalize(now)
}

// BudgetInput carries the caller-supplied fields of a new budget.
type BudgetInput struct {
	Category  string
	Amount    Money
	Period    Period
	StartDate time.Time
	EndDate   *time.Time
	OpenEnded bool
	Color     string
	Note      string
}

func (in BudgetInput) Validate() error {
	if strings.TrimSpace(in.Category) == "" {
		return ErrEmptyCategory
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if in.Period != "" {
		if err := in.Period.Validate(); err != nil {
			return err
		}
	}
	if in.EndDate != nil && !in.StartDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return ErrInvalidWindow
	}
	return nil
}

// NewBudget builds a budget for owner from in. The default window starts
// today and ends DefaultBudgetWindow later.
func NewBudget(id, owner string, in BudgetInput, now time.Time) Budget {
	start := in.StartDate
	if start.IsZero() {
		start = StartOfDay(now)
	}
	var end *time.Time
	switch {
	case in.OpenEnded:
	case in.EndDate != nil:
		e := Normalize(*in.EndDate)
		end = &e
	default:
		e := Normalize(start.Add(DefaultBudgetWindow))
		end = &e
	}
	period := in.Period
	if period == "" {
		period = Monthly
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = DefaultBudgetColor
	}
	return Budget{
		ID:        id,
		OwnerID:   owner,
		Category:  strings.TrimSpace(in.Category),
		Amount:    in.Amount,
		Period:    period,
		StartDate: Normalize(start),
		EndDate:   end,
		Color:     color,
		Note:      in.Note,
		CreatedAt: Normalize(now),
		UpdatedAt: Normalize(now),
	}
}

// BudgetPatch overwrites the non-nil fields of a budget. Spent is not part
// of the patch; corrections go through an explicit overwrite.
type BudgetPatch struct {
	Category     *string
	Amount       *Money
	Period       *Period
	StartDate    *time.Time
	EndDate      *time.Time
	ClearEndDate bool
	Color        *string
	Note         *string
}

func (p BudgetPatch) Validate() error {
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return ErrEmptyCategory
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.Period != nil {
		if err := p.Period.Validate(); err != nil {
			return err
		}
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return ErrInvalidWindow
	}
	return nil
}

// Apply overwrites b with the patch and re-checks the resulting window.
func (p BudgetPatch) Apply(b *Budget, now time.Time) error {
	next := *b
	if p.Category != nil {
		next.Category = strings.TrimSpace(*p.Category)
	}
	if p.Amount != nil {
		next.Amount = *p.Amount
	}
	if p.Period != nil {
		next.Period = *p.Period
	}
	if p.StartDate != nil {
		next.StartDate = Normalize(*p.StartDate)
	}
	if p.ClearEndDate {
		next.EndDate = nil
	} else if p.EndDate != nil {
		e := Normalize(*p.EndDate)
		next.EndDate = &e
	}
	if p.Color != nil {
		next.Color = *p.Color
	}
	if p.Note != nil {
		next.Note = *p.Note
	}
	if next.EndDate != nil && next.EndDate.Before(next.StartDate) {
		return ErrInvalidWindow
	}
	next.UpdatedAt = Normalize(now)
	*b = next
	return nil
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last second of t's UTC day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Second)
}

// Normalize converts t to UTC at second precision, the resolution every
// store keeps.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
