// Package review assembles a parsed, deduplicated statement and its owner
// suggestion into a batch the user confirms before anything is committed.
package review

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/FACorreiaa/statement-import/internal/domain/import/dedup"
	"github.com/FACorreiaa/statement-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/statement-import/internal/domain/import/owner"
	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-import/pkg/money"
)

// ErrItemOutOfRange is returned when a selection refers to a missing item.
var ErrItemOutOfRange = errors.New("item index out of range")

// AccountSource records how the target account was chosen.
type AccountSource string

const (
	AccountExplicit  AccountSource = "explicit"
	AccountByNumber  AccountSource = "account_number"
	AccountByName    AccountSource = "account_name"
	AccountStatement AccountSource = "statement"
)

// AccountRef is the ledger account the statement will be imported into.
type AccountRef struct {
	ID          string        `json:"id"`
	Name        string        `json:"name,omitempty"`
	NumberLast4 string        `json:"number_last4,omitempty"`
	Source      AccountSource `json:"source"`
}

// Item is one statement row awaiting confirmation.
type Item struct {
	Transaction parser.ParsedTransaction `json:"transaction"`
	Key         dedup.Key                `json:"key"`
	Selected    bool                     `json:"selected"`
	Duplicate   bool                     `json:"duplicate"`
}

// Totals is a count and a signed sum in minor units.
type Totals struct {
	Count    int   `json:"count"`
	SumMinor int64 `json:"sum_minor"`
}

func (t *Totals) add(amount int64) {
	t.Count++
	t.SumMinor += amount
}

// Summary totals the new rows of a batch. Debits sum negative.
type Summary struct {
	Credits    Totals `json:"credits"`
	Debits     Totals `json:"debits"`
	Selected   Totals `json:"selected"`
	NetMinor   int64  `json:"net_minor"`
	Duplicates int    `json:"duplicates"`
}

// Batch is the reviewable result of one statement import.
type Batch struct {
	ID              uuid.UUID             `json:"id"`
	Document        string                `json:"document"`
	Success         bool                  `json:"success"`
	Institution     string                `json:"institution,omitempty"`
	InstitutionCode string                `json:"institution_code,omitempty"`
	Period          *normalizer.DateRange `json:"period,omitempty"`
	Items           []Item                `json:"items"`
	Duplicates      []Item                `json:"duplicates"`
	Owner           owner.NameParseResult `json:"owner"`
	Account         AccountRef            `json:"account"`
	Summary         Summary               `json:"summary"`
	Currency        string                `json:"currency"`
	Errors          []string              `json:"errors,omitempty"`
	Warnings        []string              `json:"warnings,omitempty"`
}

// BuildInput is everything a batch is made from. A zero ID gets a fresh one.
type BuildInput struct {
	ID        uuid.UUID
	Document  string
	Parse     parser.ParseResult
	Partition dedup.Partition
	Owner     owner.NameParseResult
	Account   AccountRef
	Currency  string
	Warnings  []string
}

// Build assembles a batch. New rows start selected and duplicates do not. It
// reads only its input; with a fixed ID the result is deterministic.
func Build(in BuildInput) Batch {
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	currency := in.Currency
	if currency == "" {
		currency = money.AUD
	}

	items := make([]Item, len(in.Partition.Unique))
	for i, c := range in.Partition.Unique {
		items[i] = Item{Transaction: c.Transaction, Key: c.Key, Selected: true}
	}
	dups := make([]Item, len(in.Partition.Duplicates))
	for i, c := range in.Partition.Duplicates {
		dups[i] = Item{Transaction: c.Transaction, Key: c.Key, Duplicate: true}
	}

	warnings := append(append([]string(nil), in.Warnings...), in.Parse.Warnings...)

	summary := Summarize(items)
	summary.Duplicates = len(dups)

	return Batch{
		ID:              id,
		Document:        in.Document,
		Success:         in.Parse.Success,
		Institution:     in.Parse.Institution,
		InstitutionCode: in.Parse.InstitutionCode,
		Period:          in.Parse.Period,
		Items:           items,
		Duplicates:      dups,
		Owner:           in.Owner,
		Account:         in.Account,
		Summary:         summary,
		Currency:        currency,
		Errors:          append([]string(nil), in.Parse.Errors...),
		Warnings:        warnings,
	}
}

// Summarize totals credits, debits and the selected subset of items.
func Summarize(items []Item) Summary {
	var s Summary
	for _, it := range items {
		amount := it.Transaction.AmountMinor
		switch {
		case amount > 0:
			s.Credits.add(amount)
		case amount < 0:
			s.Debits.add(amount)
		}
		if it.Selected {
			s.Selected.add(amount)
		}
	}
	s.NetMinor = s.Credits.SumMinor + s.Debits.SumMinor
	return s
}

// WithSelection returns a copy of b with item i selected or not and the
// summary recomputed. b itself is left unchanged.
func (b Batch) WithSelection(i int, selected bool) (Batch, error) {
	if i < 0 || i >= len(b.Items) {
		return b, fmt.Errorf("%w: %d of %d", ErrItemOutOfRange, i, len(b.Items))
	}
	out := b.clone()
	out.Items[i].Selected = selected
	out.Summary = out.resummarize()
	return out, nil
}

// WithAllSelected returns a copy of b with every new row selected or not.
func (b Batch) WithAllSelected(selected bool) Batch {
	out := b.clone()
	for i := range out.Items {
		out.Items[i].Selected = selected
	}
	out.Summary = out.resummarize()
	return out
}

// SelectedTransactions returns the rows the user chose to import.
func (b Batch) SelectedTransactions() []parser.ParsedTransaction {
	out := make([]parser.ParsedTransaction, 0, b.Summary.Selected.Count)
	for _, it := range b.Items {
		if it.Selected {
			out = append(out, it.Transaction)
		}
	}
	return out
}

func (b Batch) clone() Batch {
	b.Items = append([]Item(nil), b.Items...)
	return b
}

func (b Batch) resummarize() Summary {
	s := Summarize(b.Items)
	s.Duplicates = len(b.Duplicates)
	return s
}

// FormattedSummary is a Summary rendered for display.
type FormattedSummary struct {
	Credits  string `json:"credits"`
	Debits   string `json:"debits"`
	Selected string `json:"selected"`
	Net      string `json:"net"`
}

// Format renders the summary totals in currency, AUD when empty.
func (s Summary) Format(currency string) FormattedSummary {
	if currency == "" {
		currency = money.AUD
	}
	return FormattedSummary{
		Credits:  money.FormatMinor(s.Credits.SumMinor, currency),
		Debits:   money.FormatMinor(s.Debits.SumMinor, currency),
		Selected: money.FormatMinor(s.Selected.SumMinor, currency),
		Net:      money.FormatMinor(s.NetMinor, currency),
	}
}
