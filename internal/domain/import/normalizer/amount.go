// Package normalizer turns printed statement fragments (amounts, dates,
// descriptions) into the canonical values every statement parser emits.
package normalizer

import (
	"fmt"

	"github.com/FACorreiaa/statement-import/pkg/money"
)

// AmountPattern matches a printed amount with exactly two fractional digits,
// optionally wrapped in parentheses or carrying a sign or "$". It is meant to be
// embedded in larger line patterns.
const AmountPattern = `\(?[-+]?\$?-?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\)?-?`

// UnsignedAmountPattern is AmountPattern without any sign or parentheses.
const UnsignedAmountPattern = `\$?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}`

// ParseAmount converts a printed amount into signed minor units (cents),
// rounding to exactly two fractional digits first.
func ParseAmount(raw string) (int64, error) {
	minor, err := money.ParseMinor(raw, money.AUD)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount: %w", err)
	}
	return minor, nil
}

// Abs returns the magnitude of a minor-unit amount.
func Abs(minor int64) int64 {
	if minor < 0 {
		return -minor
	}
	return minor
}
