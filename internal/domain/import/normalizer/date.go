package normalizer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a date token matches none of the layouts.
var ErrInvalidDate = errors.New("invalid date")

// DateRange is an inclusive statement period.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// YearFor resolves the year of a year-less date in this period. Periods that
// cross a year boundary put months from the start month onward in the start
// year and the rest in the end year.
func (r DateRange) YearFor(month time.Month) int {
	if r.Start.Year() == r.End.Year() || month >= r.Start.Month() {
		return r.Start.Year()
	}
	return r.End.Year()
}

// Contains reports whether t falls within the period, ignoring time of day.
func (r DateRange) Contains(t time.Time) bool {
	d := Midnight(t)
	return !d.Before(Midnight(r.Start)) && !d.After(Midnight(r.End))
}

// ParseDate parses token against each layout in turn. hasYear is false when the
// matching layout carries no year, in which case the returned date is in year 0
// and must be completed with WithYear.
func ParseDate(token string, layouts []string) (t time.Time, hasYear bool, err error) {
	token = strings.Join(strings.Fields(token), " ")
	for _, layout := range layouts {
		parsed, perr := time.Parse(layout, token)
		if perr != nil {
			continue
		}
		return Midnight(parsed), strings.Contains(layout, "06"), nil
	}
	return time.Time{}, false, fmt.Errorf("%w: %q", ErrInvalidDate, token)
}

// WithYear completes a year-less date. It fails when the day does not exist in
// that year (29 Feb outside a leap year).
func WithYear(t time.Time, year int) (time.Time, error) {
	out := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if out.Day() != t.Day() {
		return time.Time{}, fmt.Errorf("%w: %d %s %d", ErrInvalidDate, t.Day(), t.Month(), year)
	}
	return out, nil
}

// Midnight truncates t to midnight UTC of its calendar date.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var yearPattern = regexp.MustCompile(`\b(19[7-9]\d|20\d{2})\b`)

// LatestYear returns the latest plausible 4-digit year in text, or 0.
func LatestYear(text string) int {
	latest := 0
	for _, m := range yearPattern.FindAllString(text, -1) {
		if y, err := strconv.Atoi(m); err == nil && y > latest {
			latest = y
		}
	}
	return latest
}
