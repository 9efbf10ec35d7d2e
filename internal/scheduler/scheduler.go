package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Reconciler finishes resolutions abandoned by their caller.
type Reconciler interface {
	Reconcile(ctx context.Context, limit int) (int, error)
}

// LogCleaner removes old system logs.
type LogCleaner func(ctx context.Context) (int64, error)

const reconcileBatch = 100

// Scheduler runs the background jobs of the moderation service.
type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	cleanLogs  LogCleaner
	interval   time.Duration
}

func New(reconciler Reconciler, cleanLogs LogCleaner, reconcileInterval time.Duration) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		reconciler: reconciler,
		cleanLogs:  cleanLogs,
		interval:   reconcileInterval,
	}
}

// Start registers every job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.reconcile); err != nil {
		return fmt.Errorf("register reconcile job: %w", err)
	}
	// Log retention daily at 4 AM UTC
	if s.cleanLogs != nil {
		if _, err := s.cron.AddFunc("0 4 * * *", s.cleanup); err != nil {
			return fmt.Errorf("register log cleanup job: %w", err)
		}
	}

	s.cron.Start()
	slog.Info("scheduler started", "reconcile_interval", s.interval.String())
	return nil
}

// Stop waits for running jobs to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	start := time.Now()
	n, err := s.reconciler.Reconcile(ctx, reconcileBatch)
	if err != nil {
		slog.Error("reconcile job failed", "action", "reconcile", "error", err.Error())
		return
	}
	if n > 0 {
		slog.Info("reconciled stale resolutions", "count", n, "latency_ms", time.Since(start).Milliseconds())
	}
}

func (s *Scheduler) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	_, _ = s.cleanLogs(ctx)
}
