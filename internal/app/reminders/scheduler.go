package reminders

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/campusflow/campusflow/internal/services"
	"github.com/campusflow/campusflow/pkg/logger"
)

const defaultSchedule = "@every 1m"

// Scheduler drives the periodic reminder sweep and, optionally, background
// source syncs. Jobs whose dependency is nil are skipped.
type Scheduler struct {
	reminders *services.ReminderService
	sync      *services.SyncService
	cron      *cron.Cron
	log       *zap.Logger

	schedule     string
	feedSchedule string
	peerSchedule string
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithSchedule overrides the cron specification for the reminder sweep.
func WithSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.schedule = spec
		}
	}
}

// WithFeedSchedule enables a periodic feed sync on the given cron spec.
func WithFeedSchedule(spec string) Option {
	return func(s *Scheduler) {
		s.feedSchedule = spec
	}
}

// WithPeerSchedule enables a periodic peer pull on the given cron spec.
func WithPeerSchedule(spec string) Option {
	return func(s *Scheduler) {
		s.peerSchedule = spec
	}
}

// NewScheduler constructs a Scheduler with sensible defaults.
func NewScheduler(reminderSvc *services.ReminderService, syncSvc *services.SyncService, opts ...Option) *Scheduler {
	s := &Scheduler{
		reminders: reminderSvc,
		sync:      syncSvc,
		schedule:  defaultSchedule,
		log:       logger.WithModule("reminders"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return s
}

// Start registers the jobs and launches the scheduler. The first sweep runs
// shortly after start rather than waiting a full period.
func (s *Scheduler) Start() error {
	if s.reminders == nil && s.sync == nil {
		return nil
	}

	if s.reminders != nil {
		if _, err := s.cron.AddFunc(s.schedule, func() {
			if _, err := s.reminders.Sweep(context.Background()); err != nil {
				s.log.Warn("reminder sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if s.sync != nil && s.feedSchedule != "" {
		if _, err := s.cron.AddFunc(s.feedSchedule, func() {
			if _, err := s.sync.SyncFeed(context.Background()); err != nil {
				s.log.Warn("scheduled feed sync failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if s.sync != nil && s.peerSchedule != "" {
		if _, err := s.cron.AddFunc(s.peerSchedule, func() {
			if _, err := s.sync.PullPeer(context.Background()); err != nil {
				s.log.Warn("scheduled peer sync failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()

	if s.reminders != nil {
		go func() {
			time.Sleep(time.Second)
			if _, err := s.reminders.Sweep(context.Background()); err != nil {
				s.log.Warn("startup reminder sweep failed", zap.Error(err))
			}
		}()
	}
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes every configured job sequentially. Used in tests and
// during graceful shutdown.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if s.reminders != nil {
		if _, err := s.reminders.Sweep(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if s.sync != nil && s.feedSchedule != "" {
		if _, err := s.sync.SyncFeed(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs = multierr.Append(errs, err)
		}
	}
	if s.sync != nil && s.peerSchedule != "" {
		if _, err := s.sync.PullPeer(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
