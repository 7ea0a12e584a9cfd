// Package owner suggests which household member a statement belongs to by
// pulling a person's name out of the printed account name and fuzzy matching it
// against the caller's roster.
package owner

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/statement-import/internal/domain/import/normalizer"
)

// Extraction confidences, by the pattern that produced the name. These are
// calibration constants and should be revisited against real statements.
const (
	ConfidenceReversed     = 0.9  // "Smith, John"
	ConfidenceLeadingWords = 0.85 // "John Smith ..."
	ConfidenceLeadingWord  = 0.6  // "John ..."
	ConfidenceDashed       = 0.7  // "... - John Smith"
)

// remainderConfidence is the last-resort confidence by number of tokens found.
var remainderConfidence = [...]float64{0, 0.3, 0.4, 0.5}

// Similarity scores and thresholds.
const (
	SimilarityExact     = 1.0
	SimilarityContains  = 0.9
	SimilarityFirstName = 0.8

	// MatchThreshold is the minimum similarity for a roster member to be suggested.
	MatchThreshold = 0.6
	// NewMemberThreshold is the minimum extraction confidence for a "new member"
	// suggestion when nobody on the roster matches.
	NewMemberThreshold = 0.3
)

// Member is a household member from the caller's roster.
type Member struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Extraction is a person name read from an account name.
type Extraction struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Match is the roster member closest to an extracted name.
type Match struct {
	Member     Member  `json:"member"`
	Similarity float64 `json:"similarity"`
}

// NameParseResult is the owner suggestion for a statement. SuggestedMemberID is
// only set for a match at or above MatchThreshold.
type NameParseResult struct {
	DetectedName        string  `json:"detected_name,omitempty"`
	Confidence          float64 `json:"confidence"`
	SuggestedMemberID   string  `json:"suggested_member_id,omitempty"`
	SuggestedMemberName string  `json:"suggested_member_name,omitempty"`
	IsNewMember         bool    `json:"is_new_member"`
}

// Outcome labels the suggestion for metrics and logs.
func (r NameParseResult) Outcome() string {
	switch {
	case r.SuggestedMemberID != "":
		return "matched"
	case r.IsNewMember:
		return "new_member"
	default:
		return "none"
	}
}

// ============================================================================
// Cleaning
// ============================================================================

// noise is removed before a joint account is split, so that a bank name
// containing "and" is removed as a whole.
var noise = []*regexp.Regexp{
	// account numbers, BSBs, card masks
	regexp.MustCompile(`\S*\d\S*`),
	regexp.MustCompile(`(?i)\b(?:commonwealth\s+bank(?:\s+of\s+australia)?|commbank|netbank|westpac|anz|national\s+australia\s+bank|nab|ing|macquarie(?:\s+bank)?|up|bendigo(?:\s+(?:and|&)\s+adelaide)?(?:\s+bank)?|st\.?\s*george(?:\s+bank)?|suncorp(?:\s+bank)?|bankwest|american\s+express|amex)\b`),
}

// cleaners are applied in order to the first holder.
var cleaners = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:savings?|saver|everyday|credit|debit|cards?|joint|cheque|checking|offset|transactions?|accounts?|acct|access|advantage|classic|banking|complete|freedom|streamline|spending|orange|maximiser|platinum|gold|business|visa|mastercard|low\s+rate|bonus|goal|bank)\b`),
	regexp.MustCompile(`(?i)\b(?:mr|mrs|ms|miss|dr)\b\.?`),
	regexp.MustCompile(`[^\p{L}\s,'-]`),
}

var jointSeparator = regexp.MustCompile(`(?i)\s(?:&|and)\s`)

// clean strips bank, account-type and number noise, keeps the first holder of a
// joint account, and title-cases all-caps input.
func clean(accountName string) string {
	s := accountName
	for _, re := range noise {
		s = re.ReplaceAllString(s, " ")
	}
	if loc := jointSeparator.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	for _, re := range cleaners {
		s = re.ReplaceAllString(s, " ")
	}
	s = normalizer.CleanDescription(s)
	s = strings.Trim(s, " ,-'")
	if !hasLower(s) {
		s = normalizer.TitleCase(s)
	}
	return s
}

func hasLower(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

// ============================================================================
// Extraction
// ============================================================================

// nameWord is a capitalised, name-shaped word: John, McDonald, O'Brien, Zoë.
// RE2's \b is ASCII-only, so word ends are matched with nameEnd instead.
const (
	nameWord  = `\p{Lu}(?:\p{Ll}+|['-]\p{Lu}\p{Ll}+)(?:['-]?\p{Lu}?\p{Ll}+)*`
	nameStart = `(?:^|[^\p{L}'-])`
	nameEnd   = `(?:[^\p{L}'-]|$)`
)

var (
	reversedName = regexp.MustCompile(`^(` + nameWord + `(?:[ -]` + nameWord + `)?)\s*,\s*(` + nameWord + `(?:\s+` + nameWord + `)?)` + nameEnd)
	leadingWords = regexp.MustCompile(`^(` + nameWord + `(?:\s+` + nameWord + `){1,2})` + nameEnd)
	leadingWord  = regexp.MustCompile(`^(` + nameWord + `)` + nameEnd)
	dashedWords  = regexp.MustCompile(`(?:^|\s)-\s*(` + nameWord + `(?:\s+` + nameWord + `){0,2})` + nameEnd + `|` + nameStart + `(` + nameWord + `(?:\s+` + nameWord + `){0,2})\s*-(?:\s|$)`)
	nameToken    = regexp.MustCompile(`^` + nameWord + `$`)
)

// nameTokens returns up to n name-shaped words of s in order.
func nameTokens(s string, n int) []string {
	var out []string
	for _, f := range strings.Fields(s) {
		if f = strings.Trim(f, ",'-"); nameToken.MatchString(f) {
			out = append(out, f)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

// ExtractName pulls a person name from a printed account name. It returns a
// zero Extraction when nothing name-shaped is left after cleaning.
func ExtractName(accountName string) Extraction {
	s := clean(accountName)
	if s == "" {
		return Extraction{}
	}

	if m := reversedName.FindStringSubmatch(s); m != nil {
		return Extraction{Name: m[2] + " " + m[1], Confidence: ConfidenceReversed}
	}
	if m := leadingWords.FindStringSubmatch(s); m != nil {
		return Extraction{Name: m[1], Confidence: ConfidenceLeadingWords}
	}
	if m := leadingWord.FindStringSubmatch(s); m != nil {
		return Extraction{Name: m[1], Confidence: ConfidenceLeadingWord}
	}
	if m := dashedWords.FindStringSubmatch(s); m != nil {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		return Extraction{Name: name, Confidence: ConfidenceDashed}
	}

	tokens := nameTokens(s, len(remainderConfidence)-1)
	if len(tokens) == 0 {
		return Extraction{}
	}
	return Extraction{Name: strings.Join(tokens, " "), Confidence: remainderConfidence[len(tokens)]}
}

// ============================================================================
// Matching
// ============================================================================

func normalizeName(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		if r == '-' {
			return ' '
		}
		return -1
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Similarity scores two names in [0,1]: exact 1.0, containment 0.9, same first
// name 0.8, otherwise normalized Levenshtein similarity.
func Similarity(a, b string) float64 {
	a, b = normalizeName(a), normalizeName(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return SimilarityExact
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return SimilarityContains
	}
	if firstWord(a) == firstWord(b) {
		return SimilarityFirstName
	}

	maxLen := max(len([]rune(a)), len([]rune(b)))
	return 1 - float64(fuzzy.LevenshteinDistance(a, b))/float64(maxLen)
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

// FindMatchingMember returns the active member most similar to name, provided
// the similarity reaches MatchThreshold. Ties keep roster order.
func FindMatchingMember(name string, members []Member) (Match, bool) {
	var best Match
	found := false
	for _, m := range members {
		if !m.Active {
			continue
		}
		sim := Similarity(name, m.Name)
		if sim < MatchThreshold {
			continue
		}
		if !found || sim > best.Similarity {
			best = Match{Member: m, Similarity: sim}
			found = true
		}
	}
	return best, found
}

// Suggest extracts a name from accountName and attributes it to a roster member,
// flags it as a new member, or makes no suggestion.
func Suggest(accountName string, members []Member) NameParseResult {
	ex := ExtractName(accountName)
	if ex.Name == "" {
		return NameParseResult{}
	}

	res := NameParseResult{DetectedName: ex.Name}
	if match, ok := FindMatchingMember(ex.Name, members); ok {
		res.Confidence = ex.Confidence * match.Similarity
		res.SuggestedMemberID = match.Member.ID
		res.SuggestedMemberName = match.Member.Name
		return res
	}
	if ex.Confidence >= NewMemberThreshold {
		res.Confidence = ex.Confidence
		res.SuggestedMemberName = ex.Name
		res.IsNewMember = true
	}
	return res
}
