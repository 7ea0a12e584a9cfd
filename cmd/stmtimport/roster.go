package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/statement-import/internal/domain/import/dedup"
	"github.com/FACorreiaa/statement-import/internal/domain/import/owner"
	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-import/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-import/pkg/money"
)

type rosterConfig struct {
	Accounts []struct {
		ID          string `mapstructure:"id"`
		Name        string `mapstructure:"name"`
		NumberLast4 string `mapstructure:"number_last4"`
	} `mapstructure:"accounts"`
	Members []struct {
		ID     string `mapstructure:"id"`
		Name   string `mapstructure:"name"`
		Active *bool  `mapstructure:"active"`
	} `mapstructure:"members"`
}

// roster reads accounts and members from the config file. Members are active
// unless marked otherwise.
func (a *app) roster() ([]repository.Account, []owner.Member, error) {
	var cfg rosterConfig
	if err := a.v.UnmarshalKey("roster", &cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid roster: %w", err)
	}

	accounts := make([]repository.Account, 0, len(cfg.Accounts))
	for _, acc := range cfg.Accounts {
		accounts = append(accounts, repository.Account{ID: acc.ID, Name: acc.Name, NumberLast4: acc.NumberLast4})
	}
	members := make([]owner.Member, 0, len(cfg.Members))
	for _, m := range cfg.Members {
		members = append(members, owner.Member{ID: m.ID, Name: m.Name, Active: m.Active == nil || *m.Active})
	}
	return accounts, members, nil
}

// ledgerRow matches the columns written by review.WriteCSV, so an exported
// preview can be fed back as existing history.
type ledgerRow struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Amount      string `csv:"Amount"`
	Reference   string `csv:"Reference"`
	Key         string `csv:"Key"`
}

var ledgerDateLayouts = []string{time.DateOnly, "02/01/2006", "2/1/2006", "02 Jan 2006"}

// loadLedgerCSV reads existing ledger rows. Rows that carry a key are also
// returned as precomputed keys.
func loadLedgerCSV(r io.Reader, currency string) ([]parser.ParsedTransaction, dedup.KeySet, error) {
	var rows []*ledgerRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, dedup.KeySet{}, fmt.Errorf("failed to read ledger csv: %w", err)
	}

	txs := make([]parser.ParsedTransaction, 0, len(rows))
	var keys []dedup.Key
	for i, row := range rows {
		line := i + 2
		date, err := parseLedgerDate(row.Date)
		if err != nil {
			return nil, dedup.KeySet{}, fmt.Errorf("line %d: %w", line, err)
		}
		amount, err := money.ParseMinor(row.Amount, currency)
		if err != nil {
			return nil, dedup.KeySet{}, fmt.Errorf("line %d: %w", line, err)
		}
		txs = append(txs, parser.ParsedTransaction{
			Date:        date,
			Description: row.Description,
			AmountMinor: amount,
			Reference:   row.Reference,
		})
		if k := strings.TrimSpace(row.Key); k != "" {
			keys = append(keys, dedup.Key(k))
		}
	}
	return txs, dedup.NewKeySet(keys...), nil
}

func parseLedgerDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range ledgerDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}
