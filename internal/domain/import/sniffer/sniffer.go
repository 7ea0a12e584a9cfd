// Package sniffer probes extracted statement text for institution markers and
// the header facts printed above the transaction table: account number, account
// name, statement period and opening balance.
package sniffer

import (
	"regexp"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/statement-import/internal/domain/import/normalizer"
)

// MarkerSet is a fixed dictionary of upper-case markers searched in a single
// pass over the text. It is immutable and safe for concurrent use.
type MarkerSet struct {
	markers []string
	matcher *ahocorasick.Matcher
}

// NewMarkerSet builds a marker set. Markers are matched case-insensitively.
func NewMarkerSet(markers ...string) *MarkerSet {
	upper := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			upper = append(upper, m)
		}
	}
	return &MarkerSet{
		markers: upper,
		matcher: ahocorasick.NewStringMatcher(upper),
	}
}

// Matches returns the markers found in text, in dictionary order.
func (s *MarkerSet) Matches(text string) []string {
	if s == nil || len(s.markers) == 0 {
		return nil
	}
	hits := s.matcher.MatchThreadSafe([]byte(strings.ToUpper(text)))
	if len(hits) == 0 {
		return nil
	}
	found := make([]bool, len(s.markers))
	for _, i := range hits {
		found[i] = true
	}
	out := make([]string, 0, len(hits))
	for i, ok := range found {
		if ok {
			out = append(out, s.markers[i])
		}
	}
	return out
}

// ContainsAny reports whether at least one marker occurs in text.
func (s *MarkerSet) ContainsAny(text string) bool {
	if s == nil || len(s.markers) == 0 {
		return false
	}
	return len(s.matcher.MatchThreadSafe([]byte(strings.ToUpper(text)))) > 0
}

// Header holds the facts read from a statement's header block.
type Header struct {
	AccountNumberLast4 string
	AccountName        string
	Period             *normalizer.DateRange
	OpeningBalance     *int64
	// FallbackYear is the latest 4-digit year printed anywhere, or 0.
	FallbackYear int
}

var (
	accountNumberPattern = regexp.MustCompile(`(?i)\b(?:account|acct|card)\s*(?:number|no\.?|#)\s*:?\s*([0-9Xx*•][0-9Xx*•\s-]{2,40})`)
	bsbAccountPattern    = regexp.MustCompile(`(?i)\bBSB\b[^0-9]*\d{3}-?\d{3}\s+(?:account\s*:?\s*)?([0-9][0-9\s]{3,20})`)
	accountNamePattern   = regexp.MustCompile(`(?i)^\s*(?:(?:account\s+names?|account\s+holders?|card\s*member|customer\s+name)\s*:?|names?\s*:)\s*(.+?)\s*$`)

	periodDate     = `(\d{1,2}[ /.-](?:[A-Za-z]{3,9}|\d{1,2})[ /.-]\d{2,4}|\d{4}-\d{2}-\d{2}|[A-Za-z]{3,9} \d{1,2},? \d{4})`
	periodPattern  = regexp.MustCompile(`(?i)\b(?:statement\s+)?(?:period|from|dates?)\b\s*:?\s*` + periodDate + `\s*(?:to|-|–|through|until)\s*` + periodDate)
	openingPattern = regexp.MustCompile(`(?i)\b(?:opening\s+balance|balance\s+brought\s+forward|previous\s+balance)\b[^0-9$(+-]*(` + normalizer.AmountPattern + `)\s*(CR|DR)?`)
)

// periodLayouts covers every date shape periodDate can capture.
var periodLayouts = []string{
	"2 Jan 2006", "2 January 2006", "2 Jan 06", "2-Jan-2006", "2-Jan-06",
	"2/1/2006", "2/1/06", "2.1.2006", "2-1-2006", "2006-01-02",
	"January 2 2006", "January 2, 2006", "Jan 2 2006", "Jan 2, 2006",
}

// ProbeHeader reads header facts from the extracted lines. Only the first
// match of each fact is used. Full account numbers are reduced to their last
// four digits here and never leave this function.
func ProbeHeader(lines []string) Header {
	var h Header
	for _, line := range lines {
		if h.AccountNumberLast4 == "" {
			h.AccountNumberLast4 = probeAccountNumber(line)
		}
		if h.AccountName == "" {
			if m := accountNamePattern.FindStringSubmatch(line); m != nil {
				h.AccountName = normalizer.CleanDescription(m[1])
			}
		}
		if h.Period == nil {
			h.Period = probePeriod(line)
		}
		if h.OpeningBalance == nil {
			h.OpeningBalance = probeOpeningBalance(line)
		}
	}
	h.FallbackYear = normalizer.LatestYear(strings.Join(lines, "\n"))
	return h
}

// IsHeaderLine reports whether line carries one of the header facts.
func IsHeaderLine(line string) bool {
	return probeAccountNumber(line) != "" ||
		accountNamePattern.MatchString(line) ||
		periodPattern.MatchString(line) ||
		openingPattern.MatchString(line)
}

func probeAccountNumber(line string) string {
	for _, re := range []*regexp.Regexp{accountNumberPattern, bsbAccountPattern} {
		if m := re.FindStringSubmatch(line); m != nil {
			if last4 := Last4(m[1]); last4 != "" {
				return last4
			}
		}
	}
	return ""
}

// Last4 returns the last four digits of a printed account number, or "" when it
// carries fewer than four digits.
func Last4(printed string) string {
	digits := make([]byte, 0, len(printed))
	for i := 0; i < len(printed); i++ {
		if c := printed[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) < 4 {
		return ""
	}
	return string(digits[len(digits)-4:])
}

func probePeriod(line string) *normalizer.DateRange {
	m := periodPattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	start, startHasYear, err := normalizer.ParseDate(m[1], periodLayouts)
	if err != nil || !startHasYear {
		return nil
	}
	end, endHasYear, err := normalizer.ParseDate(m[2], periodLayouts)
	if err != nil || !endHasYear || end.Before(start) {
		return nil
	}
	return &normalizer.DateRange{Start: start, End: end}
}

func probeOpeningBalance(line string) *int64 {
	m := openingPattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	amount, err := normalizer.ParseAmount(m[1])
	if err != nil {
		return nil
	}
	if strings.EqualFold(m[2], "DR") {
		amount = -normalizer.Abs(amount)
	}
	return &amount
}
