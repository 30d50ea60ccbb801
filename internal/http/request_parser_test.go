package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"spendwise/internal/core"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{name: "empty"},
		{
			name:      "date only bounds cover the whole end day",
			query:     url.Values{"startDate": {"2025-01-01"}, "endDate": {"2025-01-31"}},
			wantStart: "2025-01-01T00:00:00Z",
			wantEnd:   "2025-01-31T23:59:59Z",
		},
		{
			name:    "rfc3339 end kept as is",
			query:   url.Values{"endDate": {"2025-01-31T12:00:00+02:00"}},
			wantEnd: "2025-01-31T10:00:00Z",
		},
		{
			name:      "start only",
			query:     url.Values{"startDate": {"2025-02-10"}},
			wantStart: "2025-02-10T00:00:00Z",
		},
		{name: "garbage", query: url.Values{"startDate": {"yesterday"}}, wantErr: true},
		{name: "inverted", query: url.Values{"startDate": {"2025-02-01"}, "endDate": {"2025-01-01"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ParseWindow(tt.query)
			if tt.wantErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Fatalf("ParseWindow() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWindow() error = %v", err)
			}
			if got := formatBound(w.Start); got != tt.wantStart {
				t.Errorf("Start = %q, want %q", got, tt.wantStart)
			}
			if got := formatBound(w.End); got != tt.wantEnd {
				t.Errorf("End = %q, want %q", got, tt.wantEnd)
			}
		})
	}
}

func formatBound(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func TestParseTransactionFilter(t *testing.T) {
	f, err := ParseTransactionFilter(url.Values{"type": {" Expense "}, "category": {"Food\x00"}})
	if err != nil {
		t.Fatalf("ParseTransactionFilter() error = %v", err)
	}
	if f.Type != core.Expense || f.Category != "Food" {
		t.Errorf("filter = %+v", f)
	}
	if _, err := ParseTransactionFilter(url.Values{"type": {"transfer"}}); !errors.Is(err, core.ErrInvalidType) {
		t.Errorf("expected invalid type, got %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"valid", `{"type":"expense","amount":12.5,"category":"Food"}`, nil},
		{"empty", ``, ErrMalformedBody},
		{"form encoded", `type=expense`, ErrMalformedBody},
		{"broken json", `{"type":`, ErrMalformedBody},
		{"bad amount", `{"amount":"ten"}`, core.ErrInvalidAmount},
		{"huge", `{"description":"` + strings.Repeat("a", maxBodyBytes) + `"}`, core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(tt.body))
			var v transactionRequest
			err := decodeJSON(req, &v)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("decodeJSON() error = %v", err)
				}
				if v.Amount.Cents != 1250 {
					t.Errorf("Amount = %d cents, want 1250", v.Amount.Cents)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("decodeJSON() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransactionRequestToInput(t *testing.T) {
	req := transactionRequest{Type: "EXPENSE", Amount: core.Money{Cents: 100}, Category: " Food ", Date: "2025-01-20", Source: "SMS"}
	in, err := req.toInput()
	if err != nil {
		t.Fatalf("toInput() error = %v", err)
	}
	if in.Type != core.Expense || in.Category != "Food" || in.Source != core.SourceSMS {
		t.Errorf("input = %+v", in)
	}
	if !in.Date.Equal(time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", in.Date)
	}

	if _, err := (transactionRequest{Date: "20/01/2025"}).toInput(); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error for bad date, got %v", err)
	}
}

func TestBudgetRequestEndDate(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantOpen     bool
		wantEnd      string
		wantClear    bool
		wantPatchEnd string
	}{
		{name: "absent", body: `{}`},
		{name: "null means open ended", body: `{"endDate":null}`, wantOpen: true, wantClear: true},
		{name: "date", body: `{"endDate":"2025-01-31"}`, wantEnd: "2025-01-31T23:59:59Z", wantPatchEnd: "2025-01-31T23:59:59Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var create budgetRequest
			if err := decodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)), &create); err != nil {
				t.Fatalf("decode create: %v", err)
			}
			in, err := create.toInput()
			if err != nil {
				t.Fatalf("toInput() error = %v", err)
			}
			if in.OpenEnded != tt.wantOpen || formatBound(in.EndDate) != tt.wantEnd {
				t.Errorf("input OpenEnded=%v EndDate=%q", in.OpenEnded, formatBound(in.EndDate))
			}

			var update budgetPatchRequest
			if err := decodeJSON(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.body)), &update); err != nil {
				t.Fatalf("decode patch: %v", err)
			}
			p, err := update.toPatch()
			if err != nil {
				t.Fatalf("toPatch() error = %v", err)
			}
			if p.ClearEndDate != tt.wantClear || formatBound(p.EndDate) != tt.wantPatchEnd {
				t.Errorf("patch ClearEndDate=%v EndDate=%q", p.ClearEndDate, formatBound(p.EndDate))
			}
		})
	}
}

func TestBudgetPatchRejectsSpent(t *testing.T) {
	for _, body := range []string{`{"spent":10}`, `{"amount":5,"spent":"0"}`, `{"spent":null}`} {
		var update budgetPatchRequest
		if err := decodeJSON(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body)), &update); err != nil {
			t.Fatalf("%s: decode: %v", body, err)
		}
		if _, err := update.toPatch(); !errors.Is(err, ErrSpentInUpdate) {
			t.Errorf("%s: toPatch() error = %v, want ErrSpentInUpdate", body, err)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Food  ", "Food"},
		{"line\nbreak", "line\nbreak"},
		{"bell\x07", "bell"},
		{"\x00", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
