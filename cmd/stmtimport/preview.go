package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-import/internal/domain/import/extractor"
	importservice "github.com/FACorreiaa/statement-import/internal/domain/import/service"
	"github.com/FACorreiaa/statement-import/internal/domain/import/review"
	"github.com/FACorreiaa/statement-import/pkg/money"
)

func (a *app) previewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <statement.pdf>",
		Short: "Parse a statement and show what would be imported",
		Long: `Parse a statement and show the transactions that would be imported, the
duplicates that would be skipped, the target account and the suggested owner.

Examples:
  stmtimport preview january.pdf
  stmtimport preview january.pdf --existing-csv ledger.csv --csv preview.csv
  stmtimport preview january.pdf --account acc-1 --xlsx preview.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: a.runPreview,
	}

	cmd.Flags().String("account", "", "import into this account ID instead of resolving it")
	cmd.Flags().String("existing-csv", "", "CSV of existing ledger rows (Date, Description, Amount[, Key])")
	cmd.Flags().String("csv", "", "write the preview to this CSV file")
	cmd.Flags().String("xlsx", "", "write the preview to this XLSX workbook")
	cmd.Flags().Bool("no-progress", false, "do not show a progress bar")

	return cmd
}

func (a *app) runPreview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()
	accountID, _ := flags.GetString("account")
	existingPath, _ := flags.GetString("existing-csv")
	csvPath, _ := flags.GetString("csv")
	xlsxPath, _ := flags.GetString("xlsx")
	noProgress, _ := flags.GetBool("no-progress")

	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}
	accounts, members, err := a.roster()
	if err != nil {
		return err
	}

	req := importservice.PreviewRequest{
		Document:  doc,
		AccountID: accountID,
		Accounts:  accounts,
		Members:   members,
	}
	if existingPath != "" {
		f, err := os.Open(existingPath)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", existingPath, err)
		}
		defer closeQuietly(f, a.logger)
		req.Existing, req.ExistingKeys, err = loadLedgerCSV(f, a.v.GetString("currency"))
		if err != nil {
			return err
		}
	}

	job := a.service().PreviewAsync(ctx, req)
	var bar *progressbar.ProgressBar
	if !noProgress {
		bar = newProgressBar(cmd.ErrOrStderr())
	}
	for m := range job.Messages {
		if p, ok := m.(extractor.ProgressMessage); ok && bar != nil {
			bar.Describe(p.Stage)
			if err := bar.Set(p.Percent); err != nil {
				a.logger.Warn("failed to update progress bar", slog.Any("error", err))
			}
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	batch, err := job.Wait()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printBatch(out, batch)

	if csvPath != "" {
		if err := writeExport(csvPath, *batch, review.WriteCSV, a.logger); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", csvPath)
	}
	if xlsxPath != "" {
		if err := writeExport(xlsxPath, *batch, review.WriteXLSX, a.logger); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", xlsxPath)
	}
	return nil
}

func newProgressBar(w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Loading document"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

func writeExport(path string, b review.Batch, write func(io.Writer, review.Batch) error, log *slog.Logger) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer closeQuietly(f, log)
	return write(f, b)
}

func printBatch(w io.Writer, b *review.Batch) {
	if !b.Success {
		fmt.Fprintf(w, "Could not read %s\n", b.Document)
		for _, e := range b.Errors {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
		return
	}

	fmt.Fprintf(w, "%s statement, %d new and %d duplicate transactions\n", b.Institution, len(b.Items), len(b.Duplicates))
	fmt.Fprintf(w, "Account: %s (%s)\n", b.Account.ID, b.Account.Source)
	switch b.Owner.Outcome() {
	case "matched":
		fmt.Fprintf(w, "Owner:   %s (%.0f%%)\n", b.Owner.SuggestedMemberName, b.Owner.Confidence*100)
	case "new_member":
		fmt.Fprintf(w, "Owner:   %s, not on the roster (%.0f%%)\n", b.Owner.DetectedName, b.Owner.Confidence*100)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDESCRIPTION\tAMOUNT\tSTATUS")
	for _, group := range [][]review.Item{b.Items, b.Duplicates} {
		for _, it := range group {
			status := "new"
			if it.Duplicate {
				status = "duplicate"
			}
			tx := it.Transaction
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", tx.Date.Format("2006-01-02"), tx.Description, money.FormatMinor(tx.AmountMinor, b.Currency), status)
		}
	}
	_ = tw.Flush()

	s := b.Summary.Format(b.Currency)
	fmt.Fprintf(w, "\nCredits %s  Debits %s  Net %s\n", s.Credits, s.Debits, s.Net)
	for _, warning := range b.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}
