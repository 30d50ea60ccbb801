// Package http provides the JSON API server and its handlers.
//
// This file implements the builder used by every handler to write JSON
// responses, plus the wire representations of domain values.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/smsparse"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Message sets a {"message": ...} body.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Body(messageResponse{Message: msg})
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response body", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

// ErrorResponse creates a standard {"message": ...} error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Message(message)
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func UnauthorizedError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, "Not authorized")
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "Server error")
}

// ErrorFor maps a service error to its response. notFound names the missing
// resource, e.g. "Transaction not found".
func ErrorFor(err error, notFound string) *JSONResponseBuilder {
	switch {
	case errors.Is(err, smsparse.ErrUnparseable):
		return BadRequestError("Could not parse SMS")
	case errors.Is(err, core.ErrForbidden):
		return UnauthorizedError()
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError(notFound)
	case errors.Is(err, core.ErrValidation):
		return BadRequestError(validationMessage(err))
	default:
		return InternalServerError()
	}
}

// validationMessage strips the "validation failed: " prefix added by the
// sentinel wrapping.
func validationMessage(err error) string {
	msg := err.Error()
	if _, after, ok := strings.Cut(msg, core.ErrValidation.Error()+": "); ok {
		return after
	}
	return msg
}

type messageResponse struct {
	Message string `json:"message"`
}

type transactionJSON struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Date        time.Time  `json:"date"`
	Source      string     `json:"source"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date,
		Source:      string(t.Source),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTransactionsJSON(ts []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionJSON(t))
	}
	return out
}

type importResponse struct {
	Message     string          `json:"message"`
	Transaction transactionJSON `json:"transaction"`
}

type budgetJSON struct {
	ID        string     `json:"id"`
	Category  string     `json:"category"`
	Amount    core.Money `json:"amount"`
	Spent     core.Money `json:"spent"`
	Remaining core.Money `json:"remaining"`
	Period    string     `json:"period"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	Color     string     `json:"color"`
	Note      string     `json:"note"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func toBudgetJSON(b core.Budget) budgetJSON {
	return budgetJSON{
		ID:        b.ID,
		Category:  b.Category,
		Amount:    b.Amount,
		Spent:     b.Spent,
		Remaining: b.Remaining(),
		Period:    string(b.Period),
		StartDate: b.StartDate,
		EndDate:   b.EndDate,
		Color:     b.Color,
		Note:      b.Note,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func toBudgetsJSON(bs []core.Budget) []budgetJSON {
	out := make([]budgetJSON, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBudgetJSON(b))
	}
	return out
}

type alertJSON struct {
	ID            string     `json:"id"`
	BudgetID      string     `json:"budgetId"`
	TransactionID string     `json:"transactionId"`
	Category      string     `json:"category"`
	Budgeted      core.Money `json:"budgeted"`
	Spent         core.Money `json:"spent"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toAlertsJSON(as []core.BudgetAlert) []alertJSON {
	out := make([]alertJSON, 0, len(as))
	for _, a := range as {
		out = append(out, alertJSON{
			ID:            a.ID,
			BudgetID:      a.BudgetID,
			TransactionID: a.TransactionID,
			Category:      a.Category,
			Budgeted:      a.Budgeted,
			Spent:         a.Spent,
			CreatedAt:     a.CreatedAt,
		})
	}
	return out
}

type categoryTotalsJSON struct {
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
}

type budgetStatusJSON struct {
	BudgetID  string     `json:"budgetId"`
	Category  string     `json:"category"`
	Period    string     `json:"period"`
	Budgeted  core.Money `json:"budgeted"`
	Spent     core.Money `json:"spent"`
	Remaining core.Money `json:"remaining"`
}

type summaryJSON struct {
	TotalIncome       core.Money                    `json:"totalIncome"`
	TotalExpense      core.Money                    `json:"totalExpense"`
	Balance           core.Money                    `json:"balance"`
	CategoryBreakdown map[string]categoryTotalsJSON `json:"categoryBreakdown"`
	BudgetStatus      []budgetStatusJSON            `json:"budgetStatus"`
}

func toSummaryJSON(s core.Summary) summaryJSON {
	out := summaryJSON{
		TotalIncome:       s.TotalIncome,
		TotalExpense:      s.TotalExpense,
		Balance:           s.Balance,
		CategoryBreakdown: make(map[string]categoryTotalsJSON, len(s.CategoryBreakdown)),
		BudgetStatus:      make([]budgetStatusJSON, 0, len(s.BudgetStatus)),
	}
	for cat, totals := range s.CategoryBreakdown {
		out.CategoryBreakdown[cat] = categoryTotalsJSON{Income: totals.Income, Expense: totals.Expense}
	}
	for _, st := range s.BudgetStatus {
		out.BudgetStatus = append(out.BudgetStatus, budgetStatusJSON{
			BudgetID:  st.BudgetID,
			Category:  st.Category,
			Period:    string(st.Period),
			Budgeted:  st.Budgeted,
			Spent:     st.Spent,
			Remaining: st.Remaining,
		})
	}
	return out
}
