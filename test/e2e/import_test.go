// Package e2etest runs statement imports end to end, from PDF bytes to the
// exported review batch.
package e2etest

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-import/internal/domain/import/dedup"
	"github.com/FACorreiaa/statement-import/internal/domain/import/extractor"
	importhandler "github.com/FACorreiaa/statement-import/internal/domain/import/handler"
	"github.com/FACorreiaa/statement-import/internal/domain/import/owner"
	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-import/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-import/internal/domain/import/review"
	importservice "github.com/FACorreiaa/statement-import/internal/domain/import/service"
)

const commbankStatement = `Commonwealth Bank of Australia
Account Name: SMITH, JOHN SAVINGS
BSB 062-000 Account Number 1234 5678
Statement Period 15 Dec 2023 - 14 Jan 2024
Date Transaction Details Debit Credit Balance
15 Dec OPENING BALANCE $1,000.00 CR
18 Dec WOOLWORTHS 1234 SYDNEY 45.50 $954.50 CR
24 Dec SALARY ACME PTY LTD 2,000.00 $2,954.50 CR
02 Jan TRANSFER TO J CITIZEN 54.50 $2,900.00 CR
14 Jan CLOSING BALANCE $2,900.00 CR`

const anzStatement = `ANZ Banking Group Limited
Account Name: ALEX CHEN ACCESS ADVANTAGE
Account Number 1234-56789
Date Transaction Details Withdrawals Deposits Balance
02 Mar 2024 VISA DEBIT PURCHASE CARD 1234 BAKERY 6.80 DR 993.20 CR
04 Mar 2024 PAYMENT FROM EMPLOYER 1,250.00 CR 2,243.20 CR`

const nabStatement = `National Australia Bank Limited
Account Name SAM TAYLOR CLASSIC BANKING
Account Number 08-123-4567
Opening Balance $500.00 CR
Date Particulars Debits Credits Balance
03 Feb 24 EFTPOS BUNNINGS 120.00 380.00 CR
10 Feb 24 INTEREST PAID 0.50 380.50 CR`

var (
	household = []owner.Member{
		{ID: "m-john", Name: "John Smith", Active: true},
		{ID: "m-alex", Name: "Alex Chen", Active: true},
	}
	accounts = []repository.Account{
		{ID: "acc-cba", Name: "Savings", NumberLast4: "5678"},
		{ID: "acc-anz", Name: "Access", NumberLast4: "6789"},
	}
)

// statementPDF prints each line of text on its own line, splitting pages at a
// form feed.
func statementPDF(name, text string) extractor.RawDocument {
	var pages [][]string
	for _, page := range strings.Split(text, "\f") {
		pages = append(pages, strings.Split(page, "\n"))
	}
	return extractor.RawDocument{Name: name, Data: extractor.BuildTestPDF(extractor.TestPDFInfo{Title: name}, pages...)}
}

func newService() *importservice.ImportService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return importservice.NewImportService(extractor.New(extractor.Options{}, logger), nil, logger)
}

func TestStatementImport_Banks(t *testing.T) {
	tests := []struct {
		name      string
		doc       extractor.RawDocument
		code      string
		items     int
		account   review.AccountRef
		ownerID   string
		newMember string
		netMinor  int64
	}{
		{
			name:     "commbank",
			doc:      statementPDF("commbank.pdf", commbankStatement),
			code:     "CBA",
			items:    3,
			account:  review.AccountRef{ID: "acc-cba", Name: "Savings", NumberLast4: "5678", Source: review.AccountByNumber},
			ownerID:  "m-john",
			netMinor: -4550 + 200000 - 5450,
		},
		{
			name:     "anz",
			doc:      statementPDF("anz.pdf", anzStatement),
			code:     "ANZ",
			items:    2,
			account:  review.AccountRef{ID: "acc-anz", Name: "Access", NumberLast4: "6789", Source: review.AccountByNumber},
			ownerID:  "m-alex",
			netMinor: -680 + 125000,
		},
		{
			name:      "nab with unknown account and holder",
			doc:       statementPDF("nab.pdf", nabStatement),
			code:      "NAB",
			items:     2,
			account:   review.AccountRef{ID: "stmt-4567", NumberLast4: "4567", Source: review.AccountStatement},
			newMember: "Sam Taylor",
			netMinor:  -12000 + 50,
		},
	}

	svc := newService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := svc.Preview(context.Background(), importservice.PreviewRequest{
				Document: tt.doc,
				Accounts: accounts,
				Members:  household,
			}, nil)
			require.NoError(t, err)

			require.True(t, batch.Success, "errors: %v", batch.Errors)
			assert.Equal(t, tt.code, batch.InstitutionCode)
			assert.Len(t, batch.Items, tt.items)
			assert.Empty(t, batch.Duplicates)
			assert.Equal(t, tt.account.ID, batch.Account.ID)
			assert.Equal(t, tt.account.Source, batch.Account.Source)
			assert.Equal(t, tt.netMinor, batch.Summary.NetMinor)

			if tt.ownerID != "" {
				assert.Equal(t, tt.ownerID, batch.Owner.SuggestedMemberID)
			}
			if tt.newMember != "" {
				assert.True(t, batch.Owner.IsNewMember)
				assert.Equal(t, tt.newMember, batch.Owner.DetectedName)
			}
		})
	}
}

func TestStatementImport_Reimport(t *testing.T) {
	svc := newService()
	doc := statementPDF("commbank.pdf", commbankStatement)

	first, err := svc.Preview(context.Background(), importservice.PreviewRequest{Document: doc, Accounts: accounts}, nil)
	require.NoError(t, err)
	require.Len(t, first.Items, 3)

	t.Run("by transaction", func(t *testing.T) {
		existing := make([]parser.ParsedTransaction, 0, len(first.Items))
		for _, it := range first.Items {
			existing = append(existing, it.Transaction)
		}
		again, err := svc.Preview(context.Background(), importservice.PreviewRequest{Document: doc, Accounts: accounts, Existing: existing}, nil)
		require.NoError(t, err)
		assert.Empty(t, again.Items)
		assert.Len(t, again.Duplicates, 3)
		assert.Equal(t, 3, again.Summary.Duplicates)
	})

	t.Run("by exported keys", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, review.WriteCSV(&buf, *first))

		var rows []struct {
			Key string `csv:"Key"`
		}
		require.NoError(t, gocsv.UnmarshalBytes(buf.Bytes(), &rows))
		keys := make([]dedup.Key, 0, len(rows))
		for _, r := range rows {
			keys = append(keys, dedup.Key(r.Key))
		}

		again, err := svc.Preview(context.Background(), importservice.PreviewRequest{
			Document:     doc,
			Accounts:     accounts,
			ExistingKeys: dedup.NewKeySet(keys...),
		}, nil)
		require.NoError(t, err)
		assert.Empty(t, again.Items)
		assert.Len(t, again.Duplicates, 3)
	})

	t.Run("history from the ledger", func(t *testing.T) {
		again, err := svc.Preview(context.Background(), importservice.PreviewRequest{
			Document: doc,
			Accounts: accounts,
			History: func(_ context.Context, accountID string, _, _ time.Time) ([]parser.ParsedTransaction, error) {
				if accountID != "acc-cba" {
					return nil, nil
				}
				return []parser.ParsedTransaction{first.Items[1].Transaction}, nil
			},
		}, nil)
		require.NoError(t, err)
		assert.Len(t, again.Items, 2)
		require.Len(t, again.Duplicates, 1)
		assert.Equal(t, "SALARY ACME PTY LTD", again.Duplicates[0].Transaction.Description)
	})
}

func TestStatementImport_OverConnect(t *testing.T) {
	h := importhandler.NewImportHandler(newService(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.Handle(h.Routes(importhandler.WithJSON()))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := connect.NewClient[importhandler.PreviewStatementRequest, importhandler.PreviewStatementResponse](
		srv.Client(), srv.URL+importhandler.PreviewStatementProcedure, importhandler.WithJSON())

	doc := statementPDF("anz.pdf", anzStatement)
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(&importhandler.PreviewStatementRequest{
		FileName: doc.Name,
		Document: doc.Data,
		Accounts: accounts,
		Members:  household,
	}))
	require.NoError(t, err)

	batch := resp.Msg.Batch
	assert.NotEqual(t, uuid.Nil, batch.ID)
	assert.Equal(t, "ANZ", batch.InstitutionCode)
	assert.Equal(t, "acc-anz", batch.Account.ID)
	assert.Len(t, batch.Items, 2)
	assert.Equal(t, "$1,243.20", resp.Msg.Summary.Net)

	var xlsx bytes.Buffer
	require.NoError(t, review.WriteXLSX(&xlsx, batch))
	assert.NotZero(t, xlsx.Len())
}
