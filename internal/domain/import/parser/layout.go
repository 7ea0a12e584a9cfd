package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/FACorreiaa/statement-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/statement-import/internal/domain/import/sniffer"
)

// SignConvention describes how a layout prints the direction of money.
type SignConvention int

const (
	// SignedColumn prints one signed amount: -12.34, (12.34) or 12.34-.
	SignedColumn SignConvention = iota
	// CreditDebitSuffix prints an unsigned amount followed by CR or DR.
	CreditDebitSuffix
	// PlusMinusPrefix prints +$12.34 or -$12.34.
	PlusMinusPrefix
	// InOutMarker prints IN or OUT ahead of an unsigned amount.
	InOutMarker
	// BalanceDelta prints separate debit and credit columns that collapse into
	// one unsigned amount once extracted; the running balance gives the sign.
	BalanceDelta
	// ChargeCard prints charges unsigned and credits with a CR suffix.
	ChargeCard
)

func (c SignConvention) String() string {
	switch c {
	case SignedColumn:
		return "signed-column"
	case CreditDebitSuffix:
		return "credit-debit-suffix"
	case PlusMinusPrefix:
		return "plus-minus-prefix"
	case InOutMarker:
		return "in-out-marker"
	case BalanceDelta:
		return "balance-delta"
	case ChargeCard:
		return "charge-card"
	default:
		return fmt.Sprintf("SignConvention(%d)", int(c))
	}
}

// Layout is the declarative description of one institution's statement.
type Layout struct {
	Name string
	Code string
	// Identity markers name the institution; at least one must appear.
	Identity []string
	// Structure markers are table headings or product names only found on a
	// real statement; at least one must appear when any are set.
	Structure []string
	// DatePattern matches the date token that opens every transaction row.
	DatePattern string
	// DateLayouts are time.Parse layouts for the date token. Layouts without a
	// year take it from the statement period.
	DateLayouts []string
	Sign        SignConvention
	// Skip holds extra patterns for lines that are never transactions.
	Skip []string
	// CreditKeywords decide the sign of BalanceDelta rows with no usable balance.
	CreditKeywords []string
}

// Shared date fragments for layouts.
const (
	monthAbbr = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)`
	monthName = `(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`
)

// maxContinuationLines bounds how many wrapped lines join one description, so
// trailing footer text is never swallowed into the last row.
const (
	maxContinuationLines  = 2
	maxContinuationLength = 80
)

var commonSkip = []string{
	`(?i)^(?:opening|closing|new|previous)\s+balance\b`,
	`(?i)^balance\s+(?:brought|carried)\s+forward\b`,
	`(?i)^(?:sub\s*)?totals?\s*(?:debits?|credits?|fees|charges|payments|for\s+\w+(?:\s+\w+)?)?\s*:?\s*\(?[-+]?\$?\d`,
	`(?i)^page\s+\d+`,
	`(?i)^(?:transaction\s+)?date\s+(?:transaction|description|details|particulars|narrative|posted|processed)\b`,
	`(?i)^(?:statement\s+)?period\b`,
	`(?i)^(?:continued|carried forward)\b`,
}

var defaultCreditKeywords = []string{
	"DEPOSIT", "SALARY", "PAYROLL", "TRANSFER FROM", "DIRECT CREDIT", "CREDIT INTEREST",
	"INTEREST PAID", "INTEREST EARNED", "REFUND", "PAYMENT RECEIVED", "REVERSAL",
}

var amountAnywhere = regexp.MustCompile(normalizer.AmountPattern)

var (
	errInvalidDate    = errors.New("invalid date")
	errYearUnknown    = errors.New("cannot determine year")
	errNoAmount       = errors.New("no amount found")
	errNoDescription  = errors.New("missing description")
	errInvalidAmount  = errors.New("invalid amount")
	errInvalidBalance = errors.New("invalid balance")
	errZeroAmount     = errors.New("zero amount")
)

// statementParser implements Parser for a Layout.
type statementParser struct {
	layout    Layout
	identity  *sniffer.MarkerSet
	structure *sniffer.MarkerSet
	credit    *sniffer.MarkerSet
	dateRe    *regexp.Regexp
	bodyRe    *regexp.Regexp
	skip      []*regexp.Regexp
}

// NewStatementParser compiles a layout into a Parser.
func NewStatementParser(l Layout) (Parser, error) {
	if l.Name == "" || l.Code == "" {
		return nil, errors.New("layout needs a name and a code")
	}
	if len(l.Identity) == 0 {
		return nil, fmt.Errorf("layout %s has no identity markers", l.Code)
	}
	if len(l.DateLayouts) == 0 {
		return nil, fmt.Errorf("layout %s has no date layouts", l.Code)
	}

	dateRe, err := regexp.Compile(`(?i)^(` + l.DatePattern + `)\b\s*(.*)$`)
	if err != nil {
		return nil, fmt.Errorf("layout %s date pattern: %w", l.Code, err)
	}
	bodyRe, err := regexp.Compile(bodyPattern(l.Sign))
	if err != nil {
		return nil, fmt.Errorf("layout %s body pattern: %w", l.Code, err)
	}

	skip := make([]*regexp.Regexp, 0, len(commonSkip)+len(l.Skip))
	for _, s := range append(append([]string(nil), commonSkip...), l.Skip...) {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("layout %s skip pattern %q: %w", l.Code, s, err)
		}
		skip = append(skip, re)
	}

	credit := l.CreditKeywords
	if len(credit) == 0 {
		credit = defaultCreditKeywords
	}

	return &statementParser{
		layout:    l,
		identity:  sniffer.NewMarkerSet(l.Identity...),
		structure: sniffer.NewMarkerSet(l.Structure...),
		credit:    sniffer.NewMarkerSet(credit...),
		dateRe:    dateRe,
		bodyRe:    bodyRe,
		skip:      skip,
	}, nil
}

// MustStatementParser is NewStatementParser for package-level layouts.
func MustStatementParser(l Layout) Parser {
	p, err := NewStatementParser(l)
	if err != nil {
		panic(err)
	}
	return p
}

func bodyPattern(sign SignConvention) string {
	const (
		desc     = `^(?P<desc>.*?)\s+`
		signed   = `(?P<amount>` + normalizer.AmountPattern + `)`
		unsigned = `(?P<amount>` + normalizer.UnsignedAmountPattern + `)`
		balance  = `(?:\s+(?P<balance>` + normalizer.AmountPattern + `)\s*(?P<balmark>CR|DR)?)?$`
	)
	switch sign {
	case CreditDebitSuffix:
		return `(?i)` + desc + unsigned + `\s*(?P<marker>CR|DR)` + balance
	case PlusMinusPrefix:
		return `(?i)` + desc + `(?P<sign>[+-])\s?` + unsigned + balance
	case InOutMarker:
		return `(?i)` + desc + `(?P<marker>IN|OUT)\s+` + unsigned + balance
	case BalanceDelta:
		return `(?i)` + desc + unsigned + balance
	case ChargeCard:
		return `(?i)` + desc + unsigned + `\s*(?P<marker>CR)?$`
	default:
		return `(?i)` + desc + signed + balance
	}
}

func (p *statementParser) Name() string            { return p.layout.Name }
func (p *statementParser) InstitutionCode() string { return p.layout.Code }

// CanParse requires an identity marker and, when the layout declares any, a
// structure marker.
func (p *statementParser) CanParse(text string) bool {
	if !p.identity.ContainsAny(text) {
		return false
	}
	return len(p.layout.Structure) == 0 || p.structure.ContainsAny(text)
}

// rowState is threaded through a single Parse call.
type rowState struct {
	header      sniffer.Header
	prevBalance *int64
}

// Parse reads every transaction row. Lines that open with a date but cannot be
// read become warnings; every other non-row line is skipped silently, except
// for up to two wrapped lines that continue the previous row's description.
func (p *statementParser) Parse(text string) ParseResult {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	header := sniffer.ProbeHeader(lines)

	res := ParseResult{
		Institution:        p.layout.Name,
		InstitutionCode:    p.layout.Code,
		AccountName:        header.AccountName,
		AccountNumberLast4: header.AccountNumberLast4,
		Period:             header.Period,
	}
	state := &rowState{header: header}
	if header.OpeningBalance != nil {
		opening := *header.OpeningBalance
		state.prevBalance = &opening
	}

	last, continued := -1, 0
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lineNo := i + 1

		if p.isSkip(line) {
			last = -1
			continue
		}

		m := p.dateRe.FindStringSubmatch(line)
		if m == nil {
			if last >= 0 && continued < maxContinuationLines && p.isContinuation(line) {
				tx := &res.Transactions[last]
				tx.Description = normalizer.AppendContinuation(tx.Description, line)
				tx.RawLine += "\n" + line
				continued++
			} else {
				last = -1
			}
			continue
		}

		rest := strings.TrimSpace(m[2])
		if p.isSkip(rest) {
			last = -1
			continue
		}

		tx, note, err := p.parseRow(m[1], rest, state)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: %v: %q", lineNo, err, line))
			last = -1
			continue
		}
		if note != "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: %s", lineNo, note))
		}
		tx.RawLine = line
		res.Transactions = append(res.Transactions, tx)
		last, continued = len(res.Transactions)-1, 0
	}

	for i := range res.Transactions {
		res.Transactions[i].Reference = normalizer.ExtractReference(res.Transactions[i].Description)
	}

	res.Success = len(res.Transactions) > 0
	if !res.Success {
		res.Errors = append(res.Errors, ErrNoTransactions.Error())
	}
	return res
}

// isContinuation reports whether an undated line can be a wrapped description:
// short, free of amounts and not a repeated page header.
func (p *statementParser) isContinuation(line string) bool {
	return len(line) <= maxContinuationLength &&
		!amountAnywhere.MatchString(line) &&
		!p.identity.ContainsAny(line) &&
		!sniffer.IsHeaderLine(line)
}

func (p *statementParser) isSkip(line string) bool {
	for _, re := range p.skip {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// parseRow reads one dated line. A non-nil error drops the row; note is an
// informational warning for a row that is kept.
func (p *statementParser) parseRow(dateToken, rest string, state *rowState) (ParsedTransaction, string, error) {
	var tx ParsedTransaction

	date, err := p.resolveDate(dateToken, state.header)
	if err != nil {
		return tx, "", err
	}
	tx.Date = date

	m := p.bodyRe.FindStringSubmatch(rest)
	if m == nil {
		return tx, "", errNoAmount
	}
	group := func(name string) string {
		if i := p.bodyRe.SubexpIndex(name); i >= 0 {
			return m[i]
		}
		return ""
	}

	tx.Description = normalizer.CleanDescription(group("desc"))
	if tx.Description == "" {
		return tx, "", errNoDescription
	}

	amount, err := normalizer.ParseAmount(group("amount"))
	if err != nil {
		return tx, "", errInvalidAmount
	}
	if amount == 0 {
		return tx, "", errZeroAmount
	}

	if b := group("balance"); b != "" {
		bal, err := normalizer.ParseAmount(b)
		if err != nil {
			return tx, "", errInvalidBalance
		}
		if strings.EqualFold(group("balmark"), "DR") {
			bal = -normalizer.Abs(bal)
		}
		tx.Balance = &bal
	}

	magnitude := normalizer.Abs(amount)
	var note string
	switch p.layout.Sign {
	case SignedColumn:
		tx.AmountMinor = amount
	case CreditDebitSuffix:
		tx.AmountMinor = signed(magnitude, strings.EqualFold(group("marker"), "CR"))
	case PlusMinusPrefix:
		tx.AmountMinor = signed(magnitude, group("sign") == "+")
	case InOutMarker:
		tx.AmountMinor = signed(magnitude, strings.EqualFold(group("marker"), "IN"))
	case ChargeCard:
		tx.AmountMinor = signed(magnitude, strings.EqualFold(group("marker"), "CR"))
	case BalanceDelta:
		tx.AmountMinor, note = p.signFromBalance(magnitude, tx.Balance, state.prevBalance, tx.Description)
	}

	if tx.Balance != nil {
		bal := *tx.Balance
		state.prevBalance = &bal
	}
	return tx, note, nil
}

// signFromBalance decides the direction of a BalanceDelta row from the
// movement of the running balance, falling back to credit keywords.
func (p *statementParser) signFromBalance(magnitude int64, balance, prev *int64, desc string) (int64, string) {
	if balance != nil && prev != nil {
		switch *balance - *prev {
		case magnitude:
			return magnitude, ""
		case -magnitude:
			return -magnitude, ""
		}
		return signed(magnitude, p.credit.ContainsAny(desc)),
			"balance movement does not match amount, sign inferred from description"
	}
	return signed(magnitude, p.credit.ContainsAny(desc)),
		"no prior balance, sign inferred from description"
}

func (p *statementParser) resolveDate(token string, header sniffer.Header) (time.Time, error) {
	date, hasYear, err := normalizer.ParseDate(token, p.layout.DateLayouts)
	if err != nil {
		return date, errInvalidDate
	}
	if hasYear {
		return date, nil
	}

	var year int
	switch {
	case header.Period != nil:
		year = header.Period.YearFor(date.Month())
	case header.FallbackYear != 0:
		year = header.FallbackYear
	default:
		return date, errYearUnknown
	}

	completed, err := normalizer.WithYear(date, year)
	if err != nil {
		return date, errInvalidDate
	}
	return completed, nil
}

func signed(magnitude int64, credit bool) int64 {
	if credit {
		return magnitude
	}
	return -magnitude
}
