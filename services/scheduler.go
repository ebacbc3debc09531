package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modular-health/modular-health-backend/config"
	"github.com/modular-health/modular-health-backend/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobScheduler drives the auto-log and reminder jobs on their configured
// cron cadence. Jobs can also be triggered over HTTP; the lease inside each
// job keeps the two paths from overlapping.
//
// Cron expressions are evaluated in UTC. Per-user local time is resolved
// inside the jobs, not here.
type JobScheduler struct {
	cron     *cron.Cron
	autoLog  *AutoLogService
	reminder *ReminderService
	cfg      config.SchedulerConfig
	logger   *zap.SugaredLogger
}

// NewJobScheduler creates a scheduler for the two background jobs.
func NewJobScheduler(autoLog *AutoLogService, reminder *ReminderService, cfg config.SchedulerConfig) *JobScheduler {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &JobScheduler{
		cron:     cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC)),
		autoLog:  autoLog,
		reminder: reminder,
		cfg:      cfg,
		logger:   logger.GetLogger().Named("scheduler"),
	}
}

// Start registers the jobs and starts the cron loop. It is a no-op when the
// scheduler is disabled in config (external invocation via the job endpoints
// is the expected setup in that case).
func (s *JobScheduler) Start() error {
	if !s.cfg.Enabled {
		s.logger.Info("Internal scheduler disabled; jobs run via HTTP triggers only")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.AutoLogSpec, func() {
		s.runJob(autoLogJobName, func(ctx context.Context, now time.Time) error {
			_, err := s.autoLog.Run(ctx, now)
			return err
		})
	}); err != nil {
		return fmt.Errorf("failed to schedule auto-log job: %w", err)
	}

	if _, err := s.cron.AddFunc(s.cfg.ReminderSpec, func() {
		s.runJob(reminderJobName, func(ctx context.Context, now time.Time) error {
			_, err := s.reminder.Run(ctx, now)
			return err
		})
	}); err != nil {
		return fmt.Errorf("failed to schedule reminder job: %w", err)
	}

	s.cron.Start()
	s.logger.Infow("Internal scheduler started",
		"autoLogSpec", s.cfg.AutoLogSpec,
		"reminderSpec", s.cfg.ReminderSpec)
	return nil
}

// runJob executes one scheduled invocation with a bounded context.
func (s *JobScheduler) runJob(name string, run func(ctx context.Context, now time.Time) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Second)
	defer cancel()

	if err := run(ctx, time.Now()); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.logger.Debugw("Skipped scheduled run, previous still in progress", "job", name)
			return
		}
		s.logger.Errorw("Scheduled job failed", "job", name, "error", err)
	}
}

// Stop halts the cron loop and waits for any running invocation to finish,
// bounded by the given context.
func (s *JobScheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.logger.Info("Internal scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Internal scheduler stop timed out")
		return ctx.Err()
	}
}
