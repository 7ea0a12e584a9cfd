package money

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// TestDataGenerator generates realistic statement rows using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a new test data generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(0)}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// ============================================================================
// Statement Row Generation
// ============================================================================

// StatementRow is a generated statement line before it is parsed.
type StatementRow struct {
	Date        time.Time
	Description string
	AmountMinor int64
}

// Row generates a single row dated within [from, to]. Amounts are never zero.
func (g *TestDataGenerator) Row(from, to time.Time) StatementRow {
	amount := g.RandomMinor(100, 50000)
	desc := g.Merchant()
	if g.faker.Bool() {
		amount = -amount
	} else {
		desc = g.IncomeDescription()
	}

	d := g.faker.DateRange(from, to).UTC()
	return StatementRow{
		Date:        time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
		Description: desc,
		AmountMinor: amount,
	}
}

// Rows generates count rows dated within [from, to].
func (g *TestDataGenerator) Rows(from, to time.Time, count int) []StatementRow {
	rows := make([]StatementRow, count)
	for i := range rows {
		rows[i] = g.Row(from, to)
	}
	return rows
}

// RandomMinor returns a positive amount in [minMinor, maxMinor].
func (g *TestDataGenerator) RandomMinor(minMinor, maxMinor int64) int64 {
	if minMinor > maxMinor {
		minMinor, maxMinor = maxMinor, minMinor
	}
	return minMinor + int64(g.faker.IntRange(0, int(maxMinor-minMinor)))
}

// AccountNumber returns a masked account number with a visible last four digits.
func (g *TestDataGenerator) AccountNumber() string {
	return "XXXX XXXX " + g.faker.DigitN(4)
}

// PersonName returns a random first and last name.
func (g *TestDataGenerator) PersonName() string {
	return g.faker.FirstName() + " " + g.faker.LastName()
}

// ============================================================================
// Description Generation
// ============================================================================

var merchants = []string{
	"WOOLWORTHS", "COLES", "ALDI STORES", "BUNNINGS WAREHOUSE", "KMART",
	"OFFICEWORKS", "JB HI-FI", "CALTEX", "AMPOL", "7-ELEVEN",
	"UBER *TRIP", "NETFLIX.COM", "SPOTIFY", "TELSTRA", "ORIGIN ENERGY",
	"CHEMIST WAREHOUSE", "MYER", "DAN MURPHYS", "QANTAS", "OPAL TRANSPORT",
}

var incomeDescriptions = []string{
	"SALARY ACME PTY LTD",
	"TRANSFER FROM SAVINGS",
	"INTEREST PAID",
	"REFUND",
	"DIRECT CREDIT ATO",
	"OSKO PAYMENT RECEIVED",
}

// Merchant returns a typical card purchase description.
func (g *TestDataGenerator) Merchant() string {
	return merchants[g.faker.IntRange(0, len(merchants)-1)] + " " + g.faker.City()
}

// IncomeDescription returns a typical credit description.
func (g *TestDataGenerator) IncomeDescription() string {
	return incomeDescriptions[g.faker.IntRange(0, len(incomeDescriptions)-1)]
}
