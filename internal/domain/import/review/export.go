package review

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/statement-import/pkg/money"
)

// exportRow is one batch item as written to CSV and XLSX.
type exportRow struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Amount      string `csv:"Amount"`
	Balance     string `csv:"Balance"`
	Reference   string `csv:"Reference"`
	Status      string `csv:"Status"`
	Selected    bool   `csv:"Selected"`
	Key         string `csv:"Key"`
}

var exportHeader = []string{"Date", "Description", "Amount", "Balance", "Reference", "Status", "Selected", "Key"}

// exportRows lists new rows first, then duplicates, in statement order.
func exportRows(b Batch) []*exportRow {
	rows := make([]*exportRow, 0, len(b.Items)+len(b.Duplicates))
	for _, group := range [][]Item{b.Items, b.Duplicates} {
		for _, it := range group {
			tx := it.Transaction
			row := &exportRow{
				Date:        tx.Date.Format("2006-01-02"),
				Description: tx.Description,
				Amount:      money.DecimalString(tx.AmountMinor, b.Currency),
				Reference:   tx.Reference,
				Status:      "new",
				Selected:    it.Selected,
				Key:         string(it.Key),
			}
			if tx.Balance != nil {
				row.Balance = money.DecimalString(*tx.Balance, b.Currency)
			}
			if it.Duplicate {
				row.Status = "duplicate"
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteCSV writes every item of b, duplicates included, as CSV.
func WriteCSV(w io.Writer, b Batch) error {
	if err := gocsv.Marshal(exportRows(b), w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// Sheet names used by WriteXLSX.
const (
	TransactionsSheet = "Transactions"
	SummarySheet      = "Summary"
)

// WriteXLSX writes b as a workbook with a Transactions and a Summary sheet.
func WriteXLSX(w io.Writer, b Batch) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), TransactionsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(TransactionsSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range exportRows(b) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{r.Date, r.Description, r.Amount, r.Balance, r.Reference, r.Status, r.Selected, r.Key}
		if err := f.SetSheetRow(TransactionsSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}
	formatted := b.Summary.Format(b.Currency)
	summary := [][]interface{}{
		{"Batch", b.ID.String()},
		{"Document", b.Document},
		{"Institution", b.Institution},
		{"Account", b.Account.ID},
		{"Credits", b.Summary.Credits.Count, formatted.Credits},
		{"Debits", b.Summary.Debits.Count, formatted.Debits},
		{"Selected", b.Summary.Selected.Count, formatted.Selected},
		{"Net", "", formatted.Net},
		{"Duplicates", b.Summary.Duplicates},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}
