// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPruneSchedule runs archive pruning daily at 3:00 AM.
const DefaultPruneSchedule = "0 3 * * *"

// Pruner removes archived previews created before a cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	pruner    Pruner
	retention time.Duration
	schedule  string
	now       func() time.Time
	logger    *slog.Logger
}

// NewScheduler creates a job scheduler that prunes archived previews older
// than retention. An empty schedule uses DefaultPruneSchedule.
func NewScheduler(pruner Pruner, retention time.Duration, schedule string, logger *slog.Logger) *Scheduler {
	// standard 5-field format, no seconds
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}

	return &Scheduler{
		cron:      c,
		pruner:    pruner,
		retention: retention,
		schedule:  schedule,
		now:       time.Now,
		logger:    logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.pruneArchive); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("prune_schedule", s.schedule),
	)
	return nil
}

// Stop stops scheduling and returns a context that is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow prunes synchronously and returns the number of previews removed.
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	return s.prune(ctx)
}

func (s *Scheduler) pruneArchive() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := s.prune(ctx); err != nil {
		s.logger.Error("archive prune failed", slog.Any("error", err))
	}
}

func (s *Scheduler) prune(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.retention)
	s.logger.Info("starting archive prune", slog.Time("cutoff", cutoff))

	removed, err := s.pruner.Prune(ctx, cutoff)
	s.logger.Info("archive prune completed",
		slog.Int("removed", removed),
		slog.Bool("partial", err != nil),
	)
	return removed, err
}
