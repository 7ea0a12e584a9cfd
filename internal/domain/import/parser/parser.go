// Package parser turns extracted statement text into normalized transactions.
// A Registry holds one Parser per supported institution and picks the first
// that recognises the document.
package parser

import (
	"errors"
	"fmt"
	"time"

	"github.com/FACorreiaa/statement-import/internal/domain/import/normalizer"
)

// ErrUnsupportedFormat is reported when no registered parser claims a document.
var ErrUnsupportedFormat = errors.New("unsupported statement format: no registered parser recognised this document")

// ErrNoTransactions is reported when a parser claims a document but finds no rows.
var ErrNoTransactions = errors.New("no transactions found in statement")

// ParsedTransaction is one statement row in canonical form.
type ParsedTransaction struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	AmountMinor int64     `json:"amount_minor"` // Positive = credit, Negative = debit, never zero
	Balance     *int64    `json:"balance_minor,omitempty"`
	Reference   string    `json:"reference,omitempty"`
	RawLine     string    `json:"raw_line"`
}

// IsCredit reports whether the transaction adds money to the account.
func (t ParsedTransaction) IsCredit() bool {
	return t.AmountMinor > 0
}

// ParseResult is the outcome of running a statement through a parser.
// Success false implies Transactions is empty and Errors explains why.
type ParseResult struct {
	Success            bool                  `json:"success"`
	Institution        string                `json:"institution,omitempty"`
	InstitutionCode    string                `json:"institution_code,omitempty"`
	Transactions       []ParsedTransaction   `json:"transactions"`
	AccountName        string                `json:"account_name,omitempty"`
	AccountNumberLast4 string                `json:"account_number_last4,omitempty"`
	Period             *normalizer.DateRange `json:"period,omitempty"`
	Errors             []string              `json:"errors,omitempty"`
	Warnings           []string              `json:"warnings,omitempty"`
}

// Parser recognises and parses one institution's statement layout.
type Parser interface {
	Name() string
	InstitutionCode() string
	CanParse(text string) bool
	Parse(text string) ParseResult
}

// Institution describes a registered parser.
type Institution struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Registry dispatches statement text to the first parser that claims it.
// Order is fixed at construction and there is no scoring between candidates.
type Registry struct {
	parsers []Parser
}

// NewRegistry creates a registry that tries parsers in the given order.
func NewRegistry(parsers ...Parser) *Registry {
	return &Registry{parsers: append([]Parser(nil), parsers...)}
}

// Parsers returns the registered parsers in priority order.
func (r *Registry) Parsers() []Parser {
	return append([]Parser(nil), r.parsers...)
}

// Institutions lists the supported institutions in priority order.
func (r *Registry) Institutions() []Institution {
	out := make([]Institution, len(r.parsers))
	for i, p := range r.parsers {
		out[i] = Institution{Name: p.Name(), Code: p.InstitutionCode()}
	}
	return out
}

// Detect returns the first parser that claims text.
func (r *Registry) Detect(text string) (Parser, bool) {
	for _, p := range r.parsers {
		if p.CanParse(text) {
			return p, true
		}
	}
	return nil, false
}

// DetectAndParse identifies the institution and parses text. Unsupported
// formats and parser failures come back as a result with Success false, never
// as an error or panic.
func (r *Registry) DetectAndParse(text string) ParseResult {
	p, ok := r.Detect(text)
	if !ok {
		return ParseResult{
			Transactions: []ParsedTransaction{},
			Errors:       []string{ErrUnsupportedFormat.Error()},
		}
	}
	return enforce(safeParse(p, text), p)
}

func safeParse(p Parser, text string) (res ParseResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = ParseResult{
				Errors: []string{fmt.Sprintf("%s parser failed: %v", p.Name(), rec)},
			}
		}
	}()
	return p.Parse(text)
}

// enforce applies the result invariants regardless of what the parser returned.
func enforce(res ParseResult, p Parser) ParseResult {
	if res.Institution == "" {
		res.Institution = p.Name()
	}
	if res.InstitutionCode == "" {
		res.InstitutionCode = p.InstitutionCode()
	}

	kept := make([]ParsedTransaction, 0, len(res.Transactions))
	for _, tx := range res.Transactions {
		if tx.AmountMinor == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("dropped zero-amount transaction on %s: %q",
				tx.Date.Format("2006-01-02"), tx.Description))
			continue
		}
		kept = append(kept, tx)
	}
	res.Transactions = kept

	if res.Success && len(res.Transactions) == 0 {
		res.Success = false
		res.Errors = append(res.Errors, ErrNoTransactions.Error())
	}
	if !res.Success {
		res.Transactions = []ParsedTransaction{}
		if len(res.Errors) == 0 {
			res.Errors = []string{fmt.Sprintf("%s parser could not read this statement", p.Name())}
		}
	}
	return res
}
