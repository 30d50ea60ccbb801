// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for decoding and validating request data:
// JSON bodies, date parameters and the report query filters.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spendwise/internal/core"
)

const (
	maxBodyBytes = 1 << 20
	dateLayout   = "2006-01-02"
)

var (
	// ErrMalformedBody is returned when the request body is not valid JSON.
	ErrMalformedBody = fmt.Errorf("%w: request body must be a JSON object", core.ErrValidation)
	// ErrSpentInUpdate is returned when a budget update carries spent.
	ErrSpentInUpdate = fmt.Errorf("%w: spent cannot be changed by a budget update, use PUT /api/budgets/{id}/spent", core.ErrValidation)
)

// decodeJSON reads a single JSON object from r into v.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("%w: request body too large", core.ErrValidation)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return ErrMalformedBody
	}
	if err := json.Unmarshal(body, v); err != nil {
		if errors.Is(err, core.ErrValidation) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339. dateOnly reports which form
// was used so callers can widen end bounds to the whole day.
func parseDate(s string) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(dateLayout, s); err == nil {
		return d, true, nil
	}
	if d, err := time.Parse(time.RFC3339, s); err == nil {
		return d.UTC(), false, nil
	}
	return time.Time{}, false, fmt.Errorf("%w: invalid date %q, use YYYY-MM-DD or RFC 3339", core.ErrValidation, s)
}

// parseStartDate parses a lower bound.
func parseStartDate(s string) (time.Time, error) {
	t, _, err := parseDate(s)
	return t, err
}

// parseEndDate parses an upper bound; a date-only value covers the whole day.
func parseEndDate(s string) (time.Time, error) {
	t, dateOnly, err := parseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	if dateOnly {
		return core.EndOfDay(t), nil
	}
	return t, nil
}

// ParseWindow reads the optional startDate and endDate query parameters.
func ParseWindow(query url.Values) (core.Window, error) {
	var w core.Window
	if v := strings.TrimSpace(query.Get("startDate")); v != "" {
		start, err := parseStartDate(v)
		if err != nil {
			return core.Window{}, err
		}
		w.Start = &start
	}
	if v := strings.TrimSpace(query.Get("endDate")); v != "" {
		end, err := parseEndDate(v)
		if err != nil {
			return core.Window{}, err
		}
		w.End = &end
	}
	return w, w.Validate()
}

// ParseTransactionFilter reads type, category, startDate and endDate.
func ParseTransactionFilter(query url.Values) (core.TransactionFilter, error) {
	window, err := ParseWindow(query)
	if err != nil {
		return core.TransactionFilter{}, err
	}
	f := core.TransactionFilter{
		Type:     core.TransactionType(strings.ToLower(strings.TrimSpace(query.Get("type")))),
		Category: sanitizeInput(query.Get("category")),
		Window:   window,
	}
	return f, f.Validate()
}

// optionalString distinguishes an absent field from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

type transactionRequest struct {
	Type        string     `json:"type"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
	Source      string     `json:"source"`
}

func (req transactionRequest) toInput() (core.TransactionInput, error) {
	in := core.TransactionInput{
		Type:        core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		Amount:      req.Amount,
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Source:      core.Source(strings.ToLower(strings.TrimSpace(req.Source))),
	}
	if strings.TrimSpace(req.Date) != "" {
		d, err := parseStartDate(req.Date)
		if err != nil {
			return core.TransactionInput{}, err
		}
		in.Date = d
	}
	return in, nil
}

type transactionPatchRequest struct {
	Type        *string     `json:"type"`
	Amount      *core.Money `json:"amount"`
	Category    *string     `json:"category"`
	Description *string     `json:"description"`
	Date        *string     `json:"date"`
	Source      *string     `json:"source"`
}

func (req transactionPatchRequest) toPatch() (core.TransactionPatch, error) {
	var p core.TransactionPatch
	if req.Type != nil {
		t := core.TransactionType(strings.ToLower(strings.TrimSpace(*req.Type)))
		p.Type = &t
	}
	p.Amount = req.Amount
	if req.Category != nil {
		c := sanitizeInput(*req.Category)
		p.Category = &c
	}
	if req.Description != nil {
		d := sanitizeInput(*req.Description)
		p.Description = &d
	}
	if req.Date != nil {
		d, err := parseStartDate(*req.Date)
		if err != nil {
			return core.TransactionPatch{}, err
		}
		p.Date = &d
	}
	if req.Source != nil {
		s := core.Source(strings.ToLower(strings.TrimSpace(*req.Source)))
		p.Source = &s
	}
	return p, nil
}

type smsRequest struct {
	SMSText string `json:"smsText"`
}

type budgetRequest struct {
	Category  string         `json:"category"`
	Amount    core.Money     `json:"amount"`
	Period    string         `json:"period"`
	StartDate string         `json:"startDate"`
	EndDate   optionalString `json:"endDate"`
	Color     string         `json:"color"`
	Note      string         `json:"note"`
}

func (req budgetRequest) toInput() (core.BudgetInput, error) {
	in := core.BudgetInput{
		Category: sanitizeInput(req.Category),
		Amount:   req.Amount,
		Period:   core.Period(strings.ToLower(strings.TrimSpace(req.Period))),
		Color:    sanitizeInput(req.Color),
		Note:     sanitizeInput(req.Note),
	}
	if strings.TrimSpace(req.StartDate) != "" {
		start, err := parseStartDate(req.StartDate)
		if err != nil {
			return core.BudgetInput{}, err
		}
		in.StartDate = start
	}
	switch {
	case req.EndDate.Set && req.EndDate.Value == nil:
		in.OpenEnded = true
	case req.EndDate.Value != nil && strings.TrimSpace(*req.EndDate.Value) != "":
		end, err := parseEndDate(*req.EndDate.Value)
		if err != nil {
			return core.BudgetInput{}, err
		}
		in.EndDate = &end
	}
	return in, nil
}

type budgetPatchRequest struct {
	Category  *string        `json:"category"`
	Amount    *core.Money    `json:"amount"`
	Period    *string        `json:"period"`
	StartDate *string        `json:"startDate"`
	EndDate   optionalString `json:"endDate"`
	Color     *string        `json:"color"`
	Note      *string        `json:"note"`
	// Spent is only detected, never applied.
	Spent json.RawMessage `json:"spent"`
}

func (req budgetPatchRequest) toPatch() (core.BudgetPatch, error) {
	var p core.BudgetPatch
	if req.Spent != nil {
		return core.BudgetPatch{}, ErrSpentInUpdate
	}
	if req.Category != nil {
		c := sanitizeInput(*req.Category)
		p.Category = &c
	}
	p.Amount = req.Amount
	if req.Period != nil {
		period := core.Period(strings.ToLower(strings.TrimSpace(*req.Period)))
		p.Period = &period
	}
	if req.StartDate != nil {
		start, err := parseStartDate(*req.StartDate)
		if err != nil {
			return core.BudgetPatch{}, err
		}
		p.StartDate = &start
	}
	if req.EndDate.Set {
		if req.EndDate.Value == nil || strings.TrimSpace(*req.EndDate.Value) == "" {
			p.ClearEndDate = true
		} else {
			end, err := parseEndDate(*req.EndDate.Value)
			if err != nil {
				return core.BudgetPatch{}, err
			}
			p.EndDate = &end
		}
	}
	if req.Color != nil {
		c := sanitizeInput(*req.Color)
		p.Color = &c
	}
	if req.Note != nil {
		n := sanitizeInput(*req.Note)
		p.Note = &n
	}
	return p, nil
}

type spentRequest struct {
	Spent *core.Money `json:"spent"`
}

// sanitizeInput drops control characters other than tab and newlines, then
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
