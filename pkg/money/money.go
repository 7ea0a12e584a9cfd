// Package money provides currency-safe handling of statement amounts using integer
// minor units. Parsing goes through shopspring/decimal so printed values such as
// "1,234.56" never pass through a float.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	AUD = "AUD" // Australian Dollar
	NZD = "NZD" // New Zealand Dollar
	USD = "USD" // US Dollar
	GBP = "GBP" // British Pound
	EUR = "EUR" // Euro
)

// ErrInvalidAmount is returned when a string cannot be read as a monetary amount.
var ErrInvalidAmount = errors.New("invalid amount")

var currencyTokens = []string{"A$", "AU$", "NZ$", "US$", "AUD", "NZD", "USD", "$", "€", "£"}

// Money represents a monetary value with currency.
type Money struct {
	m *money.Money
}

// New creates a new Money value from minor units and a currency code.
func New(amountMinor int64, currencyCode string) *Money {
	return &Money{m: money.New(amountMinor, currencyCode)}
}

// NewFromDecimal creates Money from a decimal value, rounding half away from zero
// to the currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) (*Money, error) {
	minor, err := ToMinor(amount, fractionOf(currencyCode))
	if err != nil {
		return nil, err
	}
	return New(minor, currencyCode), nil
}

// ParseDecimal reads a printed amount into a decimal. It accepts currency symbols
// and codes, thousands separators, a leading "+" or "-", a trailing "-" and
// accounting parentheses. The sign is preserved.
func ParseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSpace(strings.TrimSuffix(s, "-"))
	}

	upper := strings.ToUpper(s)
	for _, tok := range currencyTokens {
		upper = strings.ReplaceAll(upper, tok, "")
	}
	upper = strings.ReplaceAll(upper, ",", "")
	upper = strings.ReplaceAll(upper, " ", "")

	switch {
	case strings.HasPrefix(upper, "-"):
		negative = !negative
		upper = upper[1:]
	case strings.HasPrefix(upper, "+"):
		upper = upper[1:]
	}
	if upper == "" || strings.ContainsAny(upper, "+-") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	d, err := decimal.NewFromString(upper)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseMinor parses a printed amount into minor units of the given currency.
func ParseMinor(raw, currencyCode string) (int64, error) {
	d, err := ParseDecimal(raw)
	if err != nil {
		return 0, err
	}
	minor, err := ToMinor(d, fractionOf(currencyCode))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", err, raw)
	}
	return minor, nil
}

// ToMinor rounds d to the given number of fractional digits and returns it in
// minor units. Values outside the int64 range are ErrInvalidAmount.
func ToMinor(d decimal.Decimal, fraction int) (int64, error) {
	shifted := d.Round(int32(fraction)).Shift(int32(fraction))
	if !shifted.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	return shifted.IntPart(), nil
}

func fractionOf(currencyCode string) int {
	if c := money.GetCurrency(currencyCode); c != nil {
		return c.Fraction
	}
	return 2
}

// Amount returns the amount in minor units
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// IsZero returns true if the amount is zero
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// IsNegative returns true if the amount is less than zero
func (m *Money) IsNegative() bool {
	return m != nil && m.m != nil && m.m.IsNegative()
}

// Abs returns the absolute value
func (m *Money) Abs() *Money {
	if m == nil || m.m == nil {
		return nil
	}
	return &Money{m: m.m.Absolute()}
}

// Add adds two Money values. Returns error if currencies don't match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}
	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Display returns a formatted string for display (e.g., "$1,234.56")
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Display()
}

// String returns the amount as a plain decimal string (e.g., "-1234.56")
func (m *Money) String() string {
	return m.ToDecimal().StringFixed(int32(fractionOf(m.Currency())))
}

// ToDecimal converts to decimal.Decimal for precise calculations
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	return decimal.New(m.m.Amount(), -int32(m.m.Currency().Fraction))
}

// FormatMinor renders minor units of a currency as a display string.
func FormatMinor(amountMinor int64, currencyCode string) string {
	return New(amountMinor, currencyCode).Display()
}

// DecimalString renders minor units as a fixed-point string without symbols,
// suitable for CSV and spreadsheet cells.
func DecimalString(amountMinor int64, currencyCode string) string {
	return New(amountMinor, currencyCode).String()
}
