package parser

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wantRow struct {
	date   string
	desc   string
	amount int64
}

var institutionFixtures = []struct {
	name        string
	text        string
	code        string
	last4       string
	accountName string
	rows        []wantRow
	warnings    int
}{
	{
		name: "commbank balance delta with year rollover",
		text: `Commonwealth Bank of Australia
Account Name: SMITH, JOHN SAVINGS
BSB 062-000 Account Number 1234 5678
Statement Period 15 Dec 2023 - 14 Jan 2024
Date Transaction Details Debit Credit Balance
15 Dec OPENING BALANCE $1,000.00 CR
18 Dec WOOLWORTHS 1234 SYDNEY 45.50 $954.50 CR
24 Dec SALARY ACME PTY LTD 2,000.00 $2,954.50 CR
02 Jan TRANSFER TO J CITIZEN 54.50 $2,900.00 CR
rent for January
10 Jan MYSTERY ROW
14 Jan CLOSING BALANCE $2,900.00 CR`,
		code:        "CBA",
		last4:       "5678",
		accountName: "SMITH, JOHN SAVINGS",
		rows: []wantRow{
			{"2023-12-18", "WOOLWORTHS 1234 SYDNEY", -4550},
			{"2023-12-24", "SALARY ACME PTY LTD", 200000},
			{"2024-01-02", "TRANSFER TO J CITIZEN rent for January", -5450},
		},
		warnings: 1,
	},
	{
		name: "westpac signed column",
		text: `Westpac Banking Corporation ABN 33 007 457 141
Account Number 032-000 12 3456
Account Name JANE DOE EVERYDAY
Date Description Debit/Credit Balance
03/01/24 OPAL TRANSPORT SYDNEY -12.40 1,487.60
05/01/24 SALARY EMPLOYER PTY LTD 2,500.00 3,987.60
07/01/24 COLES 0421 (85.15) 3,902.45
32/01/24 BROKEN DATE -1.00 3,901.45`,
		code:        "WBC",
		last4:       "3456",
		accountName: "JANE DOE EVERYDAY",
		rows: []wantRow{
			{"2024-01-03", "OPAL TRANSPORT SYDNEY", -1240},
			{"2024-01-05", "SALARY EMPLOYER PTY LTD", 250000},
			{"2024-01-07", "COLES 0421", -8515},
		},
		warnings: 1,
	},
	{
		name: "anz credit debit suffix",
		text: `ANZ Banking Group Limited
Account Name: ALEX CHEN ACCESS ADVANTAGE
Account Number 1234-56789
Date Transaction Details Withdrawals Deposits Balance
02 Mar 2024 VISA DEBIT PURCHASE CARD 1234 BAKERY 6.80 DR 993.20 CR
04 Mar 2024 PAYMENT FROM EMPLOYER 1,250.00 CR 2,243.20 CR
06 Mar 2024 ATM WITHDRAWAL`,
		code:        "ANZ",
		last4:       "6789",
		accountName: "ALEX CHEN ACCESS ADVANTAGE",
		rows: []wantRow{
			{"2024-03-02", "VISA DEBIT PURCHASE CARD 1234 BAKERY", -680},
			{"2024-03-04", "PAYMENT FROM EMPLOYER", 125000},
		},
		warnings: 1,
	},
	{
		name: "nab balance delta with keyword fallback",
		text: `National Australia Bank Limited
Account Name SAM TAYLOR CLASSIC BANKING
Account Number 08-123-4567
Opening Balance $500.00 CR
Date Particulars Debits Credits Balance
03 Feb 24 EFTPOS BUNNINGS 120.00 380.00 CR
10 Feb 24 INTEREST PAID 0.50 380.50 CR
12 Feb 24 CARD FEE REVERSAL 5.00 370.00 CR`,
		code:        "NAB",
		last4:       "4567",
		accountName: "SAM TAYLOR CLASSIC BANKING",
		rows: []wantRow{
			{"2024-02-03", "EFTPOS BUNNINGS", -12000},
			{"2024-02-10", "INTEREST PAID", 50},
			{"2024-02-12", "CARD FEE REVERSAL", 500},
		},
		warnings: 1,
	},
	{
		name: "ing with a westpac transfer in the rows",
		text: `ING Bank (Australia) Limited
Orange Everyday
Account Name: PRIYA PATEL
Account number 123456789
Transaction History
Date Details Money out Money in Balance
15/04/2024 Transfer to Westpac account -200.00 1,800.00
16/04/2024 Salary Deposit Ref: PAY20240416 3,000.00 4,800.00`,
		code:        "ING",
		last4:       "6789",
		accountName: "PRIYA PATEL",
		rows: []wantRow{
			{"2024-04-15", "Transfer to Westpac account", -20000},
			{"2024-04-16", "Salary Deposit Ref: PAY20240416", 300000},
		},
	},
	{
		name: "up plus minus prefix",
		text: `Up Banking - up.com.au
Spending Account
Account Name: Lee Nguyen
Account Number: 633-123 98765432
2024-05-01 Coffee Supreme -$4.50
2024-05-02 Pay from Employer +$1,500.00
2024-05-03 Round Up to Saver -$0.50
2024-05-04 Mystery 12.00`,
		code:        "UP",
		last4:       "5432",
		accountName: "Lee Nguyen",
		rows: []wantRow{
			{"2024-05-01", "Coffee Supreme", -450},
			{"2024-05-02", "Pay from Employer", 150000},
			{"2024-05-03", "Round Up to Saver", -50},
		},
		warnings: 1,
	},
	{
		name: "bendigo in out marker",
		text: `Bendigo Bank
Statement of Account
Account Name: MORGAN LEE
Account Number 123456789
07/06/2024 EFTPOS WOOLWORTHS OUT 64.20 935.80
08/06/2024 TRANSFER IN FROM SAVINGS IN 100.00 1,035.80`,
		code:        "BEN",
		last4:       "6789",
		accountName: "MORGAN LEE",
		rows: []wantRow{
			{"2024-06-07", "EFTPOS WOOLWORTHS", -6420},
			{"2024-06-08", "TRANSFER IN FROM SAVINGS", 10000},
		},
	},
	{
		name: "suncorp in out marker with receipt",
		text: `Suncorp Bank
Account Statement
Account Name: CHRIS BROWN
Account No: 000123456
12 Jul 2024 BPAY ORIGIN ENERGY Receipt No 5512 OUT 210.00 790.00
15 Jul 2024 DIRECT CREDIT CENTRELINK IN 350.00 1,140.00`,
		code:        "SUN",
		last4:       "3456",
		accountName: "CHRIS BROWN",
		rows: []wantRow{
			{"2024-07-12", "BPAY ORIGIN ENERGY Receipt No 5512", -21000},
			{"2024-07-15", "DIRECT CREDIT CENTRELINK", 35000},
		},
	},
	{
		name: "st george ahead of westpac",
		text: `St.George Bank - A Division of Westpac Banking Corporation
Statement period 01 Aug 2024 to 31 Aug 2024
Account Name: RIVER JONES
Account Number: 112-879 123 456 789
Date Transaction Description Debit/Credit Balance
05 Aug WOOLWORTHS METRO -23.10 976.90
09 Aug TRANSFER FROM J JONES 150.00 1,126.90`,
		code:        "STG",
		last4:       "6789",
		accountName: "RIVER JONES",
		rows: []wantRow{
			{"2024-08-05", "WOOLWORTHS METRO", -2310},
			{"2024-08-09", "TRANSFER FROM J JONES", 15000},
		},
	},
	{
		name: "bankwest ahead of commbank",
		text: `Bankwest, a division of Commonwealth Bank of Australia
Account Name: DANA WHITE
Account Number: 302-985 1234567
Date Particulars Amount Balance
20/09/2024 WOOLWORTHS PERTH 45.00- 955.00
21/09/2024 PAY ACME 1,000.00 1,955.00`,
		code:        "BWA",
		last4:       "4567",
		accountName: "DANA WHITE",
		rows: []wantRow{
			{"2024-09-20", "WOOLWORTHS PERTH", -4500},
			{"2024-09-21", "PAY ACME", 100000},
		},
	},
	{
		name: "macquarie month first dates",
		text: `Macquarie Bank Limited
Statement period: 1 Oct 2024 - 31 Oct 2024
Account name: ROBIN GRAY
Account number: 987654321
Opening balance $2,000.00
Transaction description Debits Credits Balance
Oct 3 NETFLIX.COM 16.99 1,983.01
Oct 15 SALARY DEPOSIT 3,000.00 4,983.01`,
		code:        "MQG",
		last4:       "4321",
		accountName: "ROBIN GRAY",
		rows: []wantRow{
			{"2024-10-03", "NETFLIX.COM", -1699},
			{"2024-10-15", "SALARY DEPOSIT", 300000},
		},
	},
	{
		name: "amex charge card",
		text: `American Express Platinum Card
Card Member: ALEX MORGAN
Card Number XXXX-XXXXXX-71005
Statement period 15 Nov 2024 to 14 Dec 2024
Previous Balance $1,200.00
Nov 20 QANTAS AIRWAYS SYDNEY 450.00
Nov 28 PAYMENT RECEIVED - THANK YOU 1,200.00 CR
December 2 UBER *TRIP 23.45
New Balance $673.45`,
		code:        "AMEX",
		last4:       "1005",
		accountName: "ALEX MORGAN",
		rows: []wantRow{
			{"2024-11-20", "QANTAS AIRWAYS SYDNEY", -45000},
			{"2024-11-28", "PAYMENT RECEIVED - THANK YOU", 120000},
			{"2024-12-02", "UBER *TRIP", -2345},
		},
	},
}

func TestInstitutionFixtures(t *testing.T) {
	reg := DefaultRegistry()
	covered := make(map[string]bool)

	for _, tt := range institutionFixtures {
		t.Run(tt.name, func(t *testing.T) {
			res := reg.DetectAndParse(tt.text)

			require.True(t, res.Success, "errors: %v warnings: %v", res.Errors, res.Warnings)
			assert.Equal(t, tt.code, res.InstitutionCode)
			assert.Equal(t, tt.last4, res.AccountNumberLast4)
			assert.Equal(t, tt.accountName, res.AccountName)
			assert.Len(t, res.Warnings, tt.warnings, "warnings: %v", res.Warnings)

			require.Len(t, res.Transactions, len(tt.rows))
			for i, want := range tt.rows {
				got := res.Transactions[i]
				assert.Equal(t, want.date, got.Date.Format("2006-01-02"), "row %d", i)
				assert.Equal(t, want.desc, got.Description, "row %d", i)
				assert.Equal(t, want.amount, got.AmountMinor, "row %d", i)
				assert.Equal(t, time.UTC, got.Date.Location())
				assert.NotEmpty(t, got.RawLine)
			}
			covered[res.InstitutionCode] = true
		})
	}

	for _, inst := range reg.Institutions() {
		assert.True(t, covered[inst.Code], "no fixture for %s", inst.Code)
	}
}

func TestInstitutionFixtures_Concurrent(t *testing.T) {
	reg := DefaultRegistry()

	const workers, rounds = 8, 50
	codes := make([][]string, workers)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				for _, f := range institutionFixtures {
					codes[w] = append(codes[w], reg.DetectAndParse(f.text).InstitutionCode)
				}
			}
		}()
	}
	wg.Wait()

	for w := range workers {
		require.Len(t, codes[w], rounds*len(institutionFixtures))
		for i, code := range codes[w] {
			want := institutionFixtures[i%len(institutionFixtures)]
			assert.Equal(t, want.code, code, "worker %d: %s", w, want.name)
		}
	}
}

func TestInstitutionFixtures_References(t *testing.T) {
	reg := DefaultRegistry()

	byCode := func(code string) ParseResult {
		for _, f := range institutionFixtures {
			if f.code == code {
				return reg.DetectAndParse(f.text)
			}
		}
		t.Fatalf("no fixture %s", code)
		return ParseResult{}
	}

	ing := byCode("ING")
	assert.Equal(t, "PAY20240416", ing.Transactions[1].Reference)
	assert.Empty(t, ing.Transactions[0].Reference)

	sun := byCode("SUN")
	assert.Equal(t, "5512", sun.Transactions[0].Reference)
}

func TestInstitutionFixtures_Balances(t *testing.T) {
	reg := DefaultRegistry()
	res := reg.DetectAndParse(institutionFixtures[0].text)
	require.True(t, res.Success)

	// Running balance must agree with the signed amounts.
	prev := int64(100000)
	for _, tx := range res.Transactions {
		require.NotNil(t, tx.Balance)
		assert.Equal(t, prev+tx.AmountMinor, *tx.Balance)
		prev = *tx.Balance
	}
}
