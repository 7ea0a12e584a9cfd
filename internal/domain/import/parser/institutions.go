package parser

// Institution layouts in registry priority order. Co-branded and subsidiary
// brands come before their parent because their statements print the parent's
// name: Bankwest mentions Commonwealth Bank, Up mentions Bendigo and Adelaide
// Bank, St.George mentions Westpac.
var (
	AmexLayout = Layout{
		Name:        "American Express",
		Code:        "AMEX",
		Identity:    []string{"AMERICAN EXPRESS", "AMERICANEXPRESS.COM"},
		Structure:   []string{"CARD MEMBER", "CARDMEMBER", "NEW BALANCE"},
		DatePattern: monthName + `\s+\d{1,2}`,
		DateLayouts: []string{"Jan 2", "January 2"},
		Sign:        ChargeCard,
		Skip: []string{
			`(?i)^(?:payments?\s+and\s+credits|new\s+charges|minimum\s+payment|closing\s+date|payment\s+due)\b`,
		},
	}

	BankwestLayout = Layout{
		Name:        "Bankwest",
		Code:        "BWA",
		Identity:    []string{"BANKWEST", "BANKWEST.COM.AU"},
		Structure:   []string{"PARTICULARS", "TRANSACTION DETAILS"},
		DatePattern: `\d{1,2}/\d{1,2}/\d{4}`,
		DateLayouts: []string{"2/1/2006"},
		Sign:        SignedColumn,
	}

	CommBankLayout = Layout{
		Name:        "Commonwealth Bank",
		Code:        "CBA",
		Identity:    []string{"COMMONWEALTH BANK", "COMMBANK", "NETBANK"},
		Structure:   []string{"TRANSACTION DETAILS", "DATE TRANSACTION"},
		DatePattern: `\d{1,2}\s+` + monthAbbr,
		DateLayouts: []string{"2 Jan"},
		Sign:        BalanceDelta,
		Skip:        []string{`(?i)^netbank\b`},
	}

	UpLayout = Layout{
		Name:        "Up",
		Code:        "UP",
		Identity:    []string{"UP.COM.AU", "UP BANKING"},
		Structure:   []string{"SPENDING ACCOUNT", "SAVER", "TRANSACTIONS"},
		DatePattern: `\d{4}-\d{2}-\d{2}`,
		DateLayouts: []string{"2006-01-02"},
		Sign:        PlusMinusPrefix,
	}

	BendigoLayout = Layout{
		Name:        "Bendigo Bank",
		Code:        "BEN",
		Identity:    []string{"BENDIGO BANK", "BENDIGO AND ADELAIDE BANK"},
		Structure:   []string{"TRANSACTION DETAILS", "STATEMENT OF ACCOUNT"},
		DatePattern: `\d{1,2}/\d{1,2}/\d{4}`,
		DateLayouts: []string{"2/1/2006"},
		Sign:        InOutMarker,
	}

	StGeorgeLayout = Layout{
		Name:        "St.George Bank",
		Code:        "STG",
		Identity:    []string{"ST.GEORGE", "ST GEORGE BANK", "STGEORGE.COM.AU"},
		Structure:   []string{"TRANSACTION DESCRIPTION", "DESCRIPTION OF TRANSACTION"},
		DatePattern: `\d{1,2}\s+` + monthAbbr,
		DateLayouts: []string{"2 Jan"},
		Sign:        SignedColumn,
	}

	WestpacLayout = Layout{
		Name:        "Westpac",
		Code:        "WBC",
		Identity:    []string{"WESTPAC BANKING CORPORATION", "WESTPAC.COM.AU", "WESTPAC"},
		Structure:   []string{"TRANSACTION DESCRIPTION", "DATE DESCRIPTION"},
		DatePattern: `\d{1,2}/\d{1,2}/\d{2}`,
		DateLayouts: []string{"2/1/06"},
		Sign:        SignedColumn,
	}

	ANZLayout = Layout{
		Name:        "ANZ",
		Code:        "ANZ",
		Identity:    []string{"AUSTRALIA AND NEW ZEALAND BANKING", "ANZ BANKING GROUP", "ANZ.COM"},
		Structure:   []string{"WITHDRAWALS", "DEPOSITS"},
		DatePattern: `\d{1,2}\s+` + monthAbbr + `\s+\d{4}`,
		DateLayouts: []string{"2 Jan 2006"},
		Sign:        CreditDebitSuffix,
	}

	NABLayout = Layout{
		Name:        "NAB",
		Code:        "NAB",
		Identity:    []string{"NATIONAL AUSTRALIA BANK", "NAB.COM.AU"},
		Structure:   []string{"PARTICULARS", "DEBITS"},
		DatePattern: `\d{1,2}\s+` + monthAbbr + `\s+\d{2}`,
		DateLayouts: []string{"2 Jan 06"},
		Sign:        BalanceDelta,
	}

	INGLayout = Layout{
		Name:        "ING",
		Code:        "ING",
		Identity:    []string{"ING BANK (AUSTRALIA)", "ING.COM.AU", "ING AUSTRALIA"},
		Structure:   []string{"ORANGE EVERYDAY", "SAVINGS MAXIMISER", "TRANSACTION HISTORY"},
		DatePattern: `\d{1,2}/\d{1,2}/\d{4}`,
		DateLayouts: []string{"2/1/2006"},
		Sign:        SignedColumn,
	}

	MacquarieLayout = Layout{
		Name:        "Macquarie Bank",
		Code:        "MQG",
		Identity:    []string{"MACQUARIE BANK", "MACQUARIE.COM.AU"},
		Structure:   []string{"TRANSACTION DESCRIPTION", "DEBITS", "CREDITS"},
		DatePattern: monthAbbr + `\s+\d{1,2}`,
		DateLayouts: []string{"Jan 2"},
		Sign:        BalanceDelta,
	}

	SuncorpLayout = Layout{
		Name:        "Suncorp Bank",
		Code:        "SUN",
		Identity:    []string{"SUNCORP"},
		Structure:   []string{"TRANSACTION DETAILS", "ACCOUNT STATEMENT"},
		DatePattern: `\d{1,2}\s+` + monthAbbr + `\s+\d{4}`,
		DateLayouts: []string{"2 Jan 2006"},
		Sign:        InOutMarker,
	}
)

// DefaultLayouts returns the built-in layouts in priority order.
func DefaultLayouts() []Layout {
	return []Layout{
		AmexLayout,
		BankwestLayout,
		CommBankLayout,
		UpLayout,
		BendigoLayout,
		StGeorgeLayout,
		WestpacLayout,
		ANZLayout,
		NABLayout,
		INGLayout,
		MacquarieLayout,
		SuncorpLayout,
	}
}

// DefaultRegistry returns a registry of every built-in institution.
func DefaultRegistry() *Registry {
	layouts := DefaultLayouts()
	parsers := make([]Parser, len(layouts))
	for i, l := range layouts {
		parsers[i] = MustStatementParser(l)
	}
	return NewRegistry(parsers...)
}
