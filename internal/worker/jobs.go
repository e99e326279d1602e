package worker

import (
	"context"
	"time"

	"roombook/internal/config"
	"roombook/internal/domain"
	"roombook/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// JobRunner schedules booking housekeeping: approved bookings in the past
// become completed, pending requests that nobody reviewed for too long are
// cancelled to release their slots.
type JobRunner struct {
	repo   domain.Repository
	logger *zerolog.Logger
	cfg    config.JobsConfig
	cron   *cron.Cron
}

func NewJobRunner(repo domain.Repository, logger *zerolog.Logger, cfg config.JobsConfig) *JobRunner {
	return &JobRunner{
		repo:   repo,
		logger: logger,
		cfg:    cfg,
		cron:   cron.New(),
	}
}

// Start registers the cron entries and launches the scheduler.
func (j *JobRunner) Start() error {
	if _, err := j.cron.AddFunc(j.cfg.CompleteSchedule, func() {
		j.CompletePast(context.Background())
	}); err != nil {
		return err
	}

	if _, err := j.cron.AddFunc(j.cfg.PurgeSchedule, func() {
		j.CancelStale(context.Background())
	}); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info().
		Str("complete_schedule", j.cfg.CompleteSchedule).
		Str("purge_schedule", j.cfg.PurgeSchedule).
		Msg("Housekeeping jobs started")
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (j *JobRunner) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

// CompletePast marks approved bookings before today as completed.
func (j *JobRunner) CompletePast(ctx context.Context) {
	today := startOfDay(time.Now())
	n, err := j.repo.CompletePastBookings(ctx, today)
	if err != nil {
		j.logger.Error().Err(err).Msg("Failed to complete past bookings")
		return
	}
	if n > 0 {
		j.logger.Info().Int64("count", n).Msg("Past bookings completed")
	}
}

// CancelStale cancels pending bookings that were never reviewed.
func (j *JobRunner) CancelStale(ctx context.Context) {
	cutoff := startOfDay(time.Now()).AddDate(0, 0, -models.StalePendingDays)
	n, err := j.repo.CancelStalePending(ctx, cutoff)
	if err != nil {
		j.logger.Error().Err(err).Msg("Failed to cancel stale pending bookings")
		return
	}
	if n > 0 {
		j.logger.Info().Int64("count", n).Msg("Stale pending bookings cancelled")
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
