package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/statement-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/statement-import/internal/domain/import/owner"
	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
)

// PostgresLedgerRepository implements LedgerRepository using PostgreSQL
type PostgresLedgerRepository struct {
	db Querier
}

// NewPostgresLedgerRepository creates a new PostgreSQL ledger repository
func NewPostgresLedgerRepository(db Querier) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{db: db}
}

// ListAccounts returns the user's open accounts ordered by name.
func (r *PostgresLedgerRepository) ListAccounts(ctx context.Context, userID string) ([]Account, error) {
	query := `
		SELECT id::text, name, COALESCE(number_last4, '')
		FROM accounts
		WHERE user_id = $1 AND closed_at IS NULL
		ORDER BY name`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Account, error) {
		var a Account
		err := row.Scan(&a.ID, &a.Name, &a.NumberLast4)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan accounts: %w", err)
	}
	return accounts, nil
}

// ListMembers returns every household member of the user, inactive ones included.
func (r *PostgresLedgerRepository) ListMembers(ctx context.Context, userID string) ([]owner.Member, error) {
	query := `
		SELECT id::text, name, active
		FROM household_members
		WHERE user_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (owner.Member, error) {
		var m owner.Member
		err := row.Scan(&m.ID, &m.Name, &m.Active)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan members: %w", err)
	}
	return members, nil
}

// ListTransactions returns posted transactions of an account in date order.
// Dates are the calendar day in the database session's zone, at UTC midnight.
func (r *PostgresLedgerRepository) ListTransactions(ctx context.Context, accountID string, from, to time.Time) ([]parser.ParsedTransaction, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s is before %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	query := `
		SELECT posted_at::date, description, amount_minor, balance_minor, COALESCE(reference, '')
		FROM transactions
		WHERE account_id = $1 AND posted_at >= $2 AND posted_at <= $3
		ORDER BY posted_at, id`

	rows, err := r.db.Query(ctx, query, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	txs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (parser.ParsedTransaction, error) {
		var tx parser.ParsedTransaction
		err := row.Scan(&tx.Date, &tx.Description, &tx.AmountMinor, &tx.Balance, &tx.Reference)
		tx.Date = normalizer.Midnight(tx.Date)
		return tx, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan transactions: %w", err)
	}
	return txs, nil
}

// Ping checks that the database answers.
func (r *PostgresLedgerRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
