package smsparse

import (
	"strings"

	"spendwise/internal/core"
)

// DefaultCategory is assigned when no category rule matches.
const DefaultCategory = "Other"

// Rule maps a set of keywords to a result. A rule matches when any of its
// keywords occurs in the lower-cased text.
type Rule[T any] struct {
	Name     string
	Keywords []string
	Result   T
}

func (r Rule[T]) Match(lower string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// firstMatch evaluates rules in order and returns the first hit.
func firstMatch[T any](rules []Rule[T], lower string) (T, bool) {
	for _, r := range rules {
		if r.Match(lower) {
			return r.Result, true
		}
	}
	var zero T
	return zero, false
}

// TypeRules override the default expense type.
var TypeRules = []Rule[core.TransactionType]{
	{Name: "income", Keywords: []string{"credit", "deposit", "received"}, Result: core.Income},
}

// CategoryRules are evaluated in priority order; the first match wins.
var CategoryRules = []Rule[string]{
	{Name: "food", Keywords: []string{"food", "restaurant", "cafe"}, Result: "Food"},
	{Name: "transport", Keywords: []string{"transport", "taxi", "bus"}, Result: "Transportation"},
	{Name: "shopping", Keywords: []string{"shopping", "store"}, Result: "Shopping"},
	{Name: "utility", Keywords: []string{"utility", "electricity", "water"}, Result: "Utilities"},
	{Name: "entertainment", Keywords: []string{"entertainment", "movie", "game"}, Result: "Entertainment"},
}
