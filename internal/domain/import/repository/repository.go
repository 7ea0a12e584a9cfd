// Package repository reads the ledger roster and transaction history a
// statement preview is checked against.
package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/statement-import/internal/domain/import/owner"
	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
)

// Account is a ledger account a statement can be imported into.
type Account struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	NumberLast4 string `json:"number_last4,omitempty"`
}

// Querier is the subset of pgxpool.Pool the repository uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LedgerRepository defines the read-only ledger queries used to assemble a preview.
type LedgerRepository interface {
	ListAccounts(ctx context.Context, userID string) ([]Account, error)
	ListMembers(ctx context.Context, userID string) ([]owner.Member, error)
	// ListTransactions returns the account's transactions posted in [from, to].
	ListTransactions(ctx context.Context, accountID string, from, to time.Time) ([]parser.ParsedTransaction, error)
	Ping(ctx context.Context) error
}
