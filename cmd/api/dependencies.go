package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/FACorreiaa/statement-import/internal/domain/import/extractor"
	importhandler "github.com/FACorreiaa/statement-import/internal/domain/import/handler"
	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
	importrepo "github.com/FACorreiaa/statement-import/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-import/internal/domain/import/review"
	importservice "github.com/FACorreiaa/statement-import/internal/domain/import/service"
	"github.com/FACorreiaa/statement-import/pkg/config"
	"github.com/FACorreiaa/statement-import/pkg/cron"
	"github.com/FACorreiaa/statement-import/pkg/metrics"
	"github.com/FACorreiaa/statement-import/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Logger   *slog.Logger
	Registry *prometheus.Registry

	// Repositories
	LedgerRepo importrepo.LedgerRepository
	Archive    *review.Archive

	// Services
	Extractor     *extractor.Extractor
	ImportMetrics *metrics.ImportMetrics
	ImportService *importservice.ImportService

	// Handlers
	ImportHandler *importhandler.ImportHandler

	// Background jobs, nil without an archive
	Scheduler *cron.Scheduler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}
	deps.initServices()
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase connects to the host ledger when one is configured. Without it
// callers send roster and history with each request.
func (d *Dependencies) initDatabase(ctx context.Context) error {
	if !d.Config.Database.Enabled {
		d.Logger.Info("no ledger database configured; roster and history must be sent per request")
		return nil
	}

	poolCfg, err := pgxpool.ParseConfig(d.Config.Database.DSN())
	if err != nil {
		return fmt.Errorf("invalid database config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 5 * time.Minute
	poolCfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to reach database: %w", err)
	}

	d.Pool = pool
	d.Logger.Info("ledger database connected",
		slog.String("host", d.Config.Database.Host),
		slog.String("database", d.Config.Database.Database))
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	if d.Pool != nil {
		d.LedgerRepo = importrepo.NewPostgresLedgerRepository(d.Pool)
	}
	if dir := d.Config.Storage.ArchiveDir; dir != "" {
		store, err := storage.NewLocalStorage(dir)
		if err != nil {
			return err
		}
		d.Archive = review.NewArchive(store)
		d.Scheduler = cron.NewScheduler(d.Archive,
			time.Duration(d.Config.Storage.RetentionDays)*24*time.Hour,
			d.Config.Storage.PruneSchedule,
			d.Logger)
	}
	d.Logger.Info("repositories initialized",
		slog.Bool("ledger", d.LedgerRepo != nil),
		slog.Bool("archive", d.Archive != nil))
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() {
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.ImportMetrics = metrics.NewImportMetrics(d.Registry)

	d.Extractor = extractor.New(extractor.Options{
		MaxBytes:      d.Config.Import.MaxDocumentBytes,
		LineTolerance: d.Config.Import.LineTolerance,
	}, d.Logger)

	d.ImportService = importservice.NewImportService(d.Extractor, parser.DefaultRegistry(), d.Logger).
		WithMetrics(d.ImportMetrics).
		WithCurrency(d.Config.Import.Currency).
		WithHistoryPadding(time.Duration(d.Config.Import.HistoryDays) * 24 * time.Hour)

	d.Logger.Info("services initialized",
		slog.Int("institutions", len(d.ImportService.Registry().Institutions())))
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.Logger)
	if d.LedgerRepo != nil {
		d.ImportHandler.WithLedger(d.LedgerRepo)
	}
	if d.Archive != nil {
		d.ImportHandler.WithArchive(d.Archive)
	}
	d.Logger.Info("handlers initialized")
}

// Ready reports whether the ledger, when configured, answers.
func (d *Dependencies) Ready(ctx context.Context) error {
	if d.LedgerRepo == nil {
		return nil
	}
	return d.LedgerRepo.Ping(ctx)
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	d.Logger.Info("cleanup completed")
}
