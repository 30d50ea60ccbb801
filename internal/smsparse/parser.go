// Package smsparse turns bank notification text into a transaction draft.
//
// Parsing is keyword based: the transaction type and category come from
// ordered rule tables, the amount from the first decimal number in the text.
// Messages without a usable amount are rejected with ErrUnparseable, which
// callers should treat as an expected outcome rather than a fault.
package smsparse

import (
	"errors"
	"regexp"
	"strings"

	"spendwise/internal/core"
)

// ErrUnparseable is returned when no non-zero amount can be extracted.
var ErrUnparseable = errors.New("could not parse SMS")

var amountPattern = regexp.MustCompile(`\d+(\.\d{2})?`)

// Parser holds the rule tables used for inference.
type Parser struct {
	typeRules     []Rule[core.TransactionType]
	categoryRules []Rule[string]
}

// New returns a parser using TypeRules and CategoryRules.
func New() *Parser {
	return &Parser{typeRules: TypeRules, categoryRules: CategoryRules}
}

// NewWithRules returns a parser with custom rule tables.
func NewWithRules(typeRules []Rule[core.TransactionType], categoryRules []Rule[string]) *Parser {
	return &Parser{typeRules: typeRules, categoryRules: categoryRules}
}

var defaultParser = New()

// Parse parses text with the default rule tables.
func Parse(text string) (core.TransactionInput, error) {
	return defaultParser.Parse(text)
}

// Parse extracts type, amount and category from text. The original text is
// returned verbatim as the description; Date is left zero for the caller.
func (p *Parser) Parse(text string) (core.TransactionInput, error) {
	lower := strings.ToLower(text)

	amount, ok := extractAmount(text)
	if !ok {
		return core.TransactionInput{}, ErrUnparseable
	}

	typ := core.Expense
	if t, ok := firstMatch(p.typeRules, lower); ok {
		typ = t
	}

	category := DefaultCategory
	if c, ok := firstMatch(p.categoryRules, lower); ok {
		category = c
	}

	return core.TransactionInput{
		Type:        typ,
		Amount:      amount,
		Category:    category,
		Description: text,
		Source:      core.SourceSMS,
	}, nil
}

// extractAmount reads the leftmost decimal number. A zero or out-of-range
// amount counts as not found.
func extractAmount(text string) (core.Money, bool) {
	match := amountPattern.FindString(text)
	if match == "" {
		return core.Money{}, false
	}
	m, err := core.ParseMoney(match)
	if err != nil || m.Cents <= 0 {
		return core.Money{}, false
	}
	return m, true
}
