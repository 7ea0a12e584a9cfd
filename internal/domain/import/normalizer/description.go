package normalizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var referencePattern = regexp.MustCompile(`(?i)\b(?:ref(?:erence)?|receipt|rcpt)\b\s*(?:no\.?|#)?\s*:?\s*([A-Z0-9][A-Z0-9-]{3,})`)

// CleanDescription collapses runs of whitespace and trims the result. The
// visible wording is kept as printed.
func CleanDescription(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// AppendContinuation joins a wrapped description line onto its transaction.
func AppendContinuation(desc, continuation string) string {
	continuation = CleanDescription(continuation)
	if continuation == "" {
		return desc
	}
	if desc == "" {
		return continuation
	}
	return desc + " " + continuation
}

// ExtractReference returns the receipt or reference number printed in a
// description, if any.
func ExtractReference(desc string) string {
	m := referencePattern.FindStringSubmatch(desc)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

// TitleCase converts "SMITH-JONES" to "Smith-Jones" and "o'brien" to "O'Brien".
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = titleWord(word)
	}
	return strings.Join(words, " ")
}

func titleWord(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	upperNext := true
	for _, r := range word {
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		upperNext = r == '-' || r == '\''
	}
	return b.String()
}

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
