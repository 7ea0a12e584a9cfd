// Command stmtimport previews bank statement PDFs from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/FACorreiaa/statement-import/internal/domain/import/extractor"
	importservice "github.com/FACorreiaa/statement-import/internal/domain/import/service"
	"github.com/FACorreiaa/statement-import/pkg/logger"
)

var version = "dev"

// app is the state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "stmtimport",
		Short: "Preview bank statement PDFs before importing them",
		Long: `stmtimport reads a bank-issued PDF statement, recognises the bank, parses its
transactions and checks them against your existing ledger, so nothing is
imported twice and every statement lands in the right account.

Accounts and household members are read from the config file:

  currency: AUD
  roster:
    accounts:
      - id: acc-1
        name: Everyday
        number_last4: "3456"
    members:
      - id: m-1
        name: Jane Doe
        active: true`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.initConfig(cmd) },
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.config/stmtimport/config.yaml)")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "log format (text, json)")
	root.PersistentFlags().String("currency", "AUD", "statement currency")
	_ = a.v.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", root.PersistentFlags().Lookup("log-format"))
	_ = a.v.BindPFlag("currency", root.PersistentFlags().Lookup("currency"))

	root.AddCommand(a.previewCmd())
	root.AddCommand(a.detectCmd())
	root.AddCommand(a.institutionsCmd())
	root.AddCommand(a.ownerCmd())

	return root
}

func (a *app) initConfig(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home + "/.config/stmtimport")
		}
		a.v.AddConfigPath(".")
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("STMTIMPORT")
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	log, err := logger.New(cmd.ErrOrStderr(), a.v.GetString("logging.level"), a.v.GetString("logging.format"))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.logger = log
	return nil
}

func (a *app) service() *importservice.ImportService {
	ex := extractor.New(extractor.Options{
		MaxBytes:      a.v.GetInt64("import.max_document_bytes"),
		LineTolerance: a.v.GetFloat64("import.line_tolerance"),
	}, a.logger)
	return importservice.NewImportService(ex, nil, a.logger).WithCurrency(a.v.GetString("currency"))
}

func readDocument(path string) (extractor.RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extractor.RawDocument{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return extractor.RawDocument{Name: path, Data: data}, nil
}

func closeQuietly(c io.Closer, log *slog.Logger) {
	if err := c.Close(); err != nil {
		log.Warn("failed to close file", slog.Any("error", err))
	}
}
