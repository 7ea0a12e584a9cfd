package dedup

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-import/pkg/money"
)

const account = "acc-123"

func tx(day int, amount int64, desc string) parser.ParsedTransaction {
	return parser.ParsedTransaction{
		Date:        time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Description: desc,
		AmountMinor: amount,
	}
}

func TestGenerateKey(t *testing.T) {
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	base := GenerateKey(account, date, -4550, "WOOLWORTHS SYDNEY")

	assert.Len(t, string(base), 64)
	assert.Equal(t, base, GenerateKey(account, date, -4550, "WOOLWORTHS SYDNEY"), "pure")

	tests := []struct {
		name    string
		key     Key
		collide bool
	}{
		{"case and whitespace ignored", GenerateKey(account, date, -4550, "  woolworths   sydney "), true},
		{"time of day ignored", GenerateKey(account, date.Add(15*time.Hour), -4550, "WOOLWORTHS SYDNEY"), true},
		{"other account", GenerateKey("acc-999", date, -4550, "WOOLWORTHS SYDNEY"), false},
		{"other day", GenerateKey(account, date.AddDate(0, 0, 1), -4550, "WOOLWORTHS SYDNEY"), false},
		{"other amount", GenerateKey(account, date, -4551, "WOOLWORTHS SYDNEY"), false},
		{"sign matters", GenerateKey(account, date, 4550, "WOOLWORTHS SYDNEY"), false},
		{"other description", GenerateKey(account, date, -4550, "COLES SYDNEY"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.collide, tt.key == base)
		})
	}
}

func TestGenerateKey_TruncatesDescription(t *testing.T) {
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	prefix := strings.Repeat("a", 50)

	// Equal in the first 50 runes collide.
	assert.Equal(t,
		GenerateKey(account, date, -100, prefix+" first tail"),
		GenerateKey(account, date, -100, prefix+" second tail"))

	// A difference at rune 50 does not.
	assert.NotEqual(t,
		GenerateKey(account, date, -100, strings.Repeat("a", 49)+"b"),
		GenerateKey(account, date, -100, strings.Repeat("a", 49)+"c"))

	// Runes, not bytes.
	accented := strings.Repeat("é", 50)
	assert.Equal(t,
		GenerateKey(account, date, -100, accented+"x"),
		GenerateKey(account, date, -100, accented+"y"))

	assert.Equal(t, GenerateKey(account, date, -100, ""), GenerateKey(account, date, -100, "   "))
}

func TestFilterDuplicates(t *testing.T) {
	existing := BuildKeySet(account, []parser.ParsedTransaction{
		tx(2, -1000, "COLES"),
	})

	tests := []struct {
		name       string
		incoming   []parser.ParsedTransaction
		unique     []string
		duplicates []string
	}{
		{
			name:     "empty incoming",
			incoming: nil,
		},
		{
			name:       "existing row is a duplicate",
			incoming:   []parser.ParsedTransaction{tx(2, -1000, "coles"), tx(3, -500, "ALDI")},
			unique:     []string{"ALDI"},
			duplicates: []string{"coles"},
		},
		{
			name:       "first occurrence wins within the batch",
			incoming:   []parser.ParsedTransaction{tx(4, -200, "COFFEE first"), tx(4, -200, "COFFEE FIRST")},
			unique:     []string{"COFFEE first"},
			duplicates: []string{"COFFEE FIRST"},
		},
		{
			name:     "same merchant different days",
			incoming: []parser.ParsedTransaction{tx(4, -200, "COFFEE"), tx(5, -200, "COFFEE")},
			unique:   []string{"COFFEE", "COFFEE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FilterDuplicates(account, tt.incoming, existing)

			assert.Equal(t, tt.unique, descriptions(p.Unique))
			assert.Equal(t, tt.duplicates, descriptions(p.Duplicates))
			assert.Equal(t, len(tt.incoming), len(p.Unique)+len(p.Duplicates))
			assert.Equal(t, existing.Len()+len(p.Unique), p.Keys.Len())
			for _, c := range p.Unique {
				assert.True(t, p.Keys.Contains(c.Key))
			}
		})
	}
}

func TestFilterDuplicates_DoesNotMutateExisting(t *testing.T) {
	existing := NewKeySet()
	p := FilterDuplicates(account, []parser.ParsedTransaction{tx(1, -100, "A"), tx(2, -200, "B")}, existing)

	assert.Equal(t, 0, existing.Len())
	assert.Equal(t, 2, p.Keys.Len())

	// Running the same batch again against the original set gives the same answer.
	again := FilterDuplicates(account, []parser.ParsedTransaction{tx(1, -100, "A"), tx(2, -200, "B")}, existing)
	assert.Len(t, again.Unique, 2)

	// Feeding the returned keys back marks everything as seen.
	third := FilterDuplicates(account, []parser.ParsedTransaction{tx(1, -100, "A"), tx(2, -200, "B")}, p.Keys)
	assert.Empty(t, third.Unique)
	assert.Len(t, third.Duplicates, 2)
}

func TestFilterDuplicates_OrderIndependentForIdenticalPair(t *testing.T) {
	a := tx(7, -999, "IDENTICAL ROW")
	b := a

	for _, order := range [][]parser.ParsedTransaction{{a, b}, {b, a}} {
		p := FilterDuplicates(account, order, NewKeySet())
		assert.Len(t, p.Unique, 1)
		assert.Len(t, p.Duplicates, 1)
	}
}

func TestFilterDuplicates_ReimportIsIdempotent(t *testing.T) {
	gen := money.NewTestDataGeneratorWithSeed(42)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	rows := gen.Rows(from, to, 200)
	incoming := make([]parser.ParsedTransaction, len(rows))
	for i, r := range rows {
		incoming[i] = parser.ParsedTransaction{Date: r.Date, Description: r.Description, AmountMinor: r.AmountMinor}
	}

	first := FilterDuplicates(account, incoming, NewKeySet())
	require.NotEmpty(t, first.Unique)
	assert.Equal(t, len(incoming), len(first.Unique)+len(first.Duplicates))

	// Everything imported the first time is a duplicate the second time.
	imported := make([]parser.ParsedTransaction, len(first.Unique))
	for i, c := range first.Unique {
		imported[i] = c.Transaction
	}
	second := FilterDuplicates(account, incoming, BuildKeySet(account, imported))
	assert.Empty(t, second.Unique)
	assert.Len(t, second.Duplicates, len(incoming))
}

func TestKeySet(t *testing.T) {
	a := NewKeySet("b", "a")
	b := NewKeySet("c", "a")

	merged := a.With(b)
	assert.Equal(t, []Key{"a", "b", "c"}, merged.Keys())
	assert.Equal(t, 2, a.Len(), "With does not modify the receiver")
	assert.False(t, a.Contains("c"))

	var zero KeySet
	assert.Equal(t, 0, zero.Len())
	assert.False(t, zero.Contains("a"))
	assert.Empty(t, zero.Keys())
	assert.Len(t, FilterDuplicates(account, []parser.ParsedTransaction{tx(1, -1, "x")}, zero).Unique, 1)
}

func descriptions(cs []Candidate) []string {
	if len(cs) == 0 {
		return nil
	}
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Transaction.Description
	}
	return out
}
