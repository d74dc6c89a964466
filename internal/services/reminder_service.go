package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusflow/campusflow/internal/models"
	"github.com/campusflow/campusflow/internal/realtime"
	"github.com/campusflow/campusflow/internal/store"
	"github.com/campusflow/campusflow/pkg/logger"
	"github.com/campusflow/campusflow/pkg/metrics"
)

// DefaultReminderThreshold is how far ahead of a deadline a reminder fires.
const DefaultReminderThreshold = 24 * time.Hour

// ReminderService synthesizes due-date reminder announcements. Each
// assignment gets at most one reminder ever: the ReminderSent flag is
// monotonic, and an assignment whose deadline passed without entering the
// threshold window never fires retroactively.
type ReminderService struct {
	store     *store.Store
	publisher Publisher
	threshold time.Duration
	log       *zap.Logger
	now       func() time.Time
}

// ReminderOption customises a ReminderService.
type ReminderOption func(*ReminderService)

// WithThreshold overrides the reminder window.
func WithThreshold(threshold time.Duration) ReminderOption {
	return func(s *ReminderService) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) ReminderOption {
	return func(s *ReminderService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewReminderService constructs a ReminderService.
func NewReminderService(st *store.Store, publisher Publisher, opts ...ReminderOption) (*ReminderService, error) {
	if st == nil {
		return nil, errors.New("reminder service: store is required")
	}
	s := &ReminderService{
		store:     st,
		publisher: publisher,
		threshold: DefaultReminderThreshold,
		log:       logger.WithModule("services.reminder"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sweep fires reminders for every pending assignment whose deadline falls
// inside the threshold window. The whole sweep persists once; each fired
// reminder replaces any prior reminder announcement for the same assignment
// rather than accumulating. Returns the number of reminders fired.
func (s *ReminderService) Sweep(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)

	now := s.now()
	windowEnd := now.Add(s.threshold)
	var fired []models.Announcement

	err := s.store.Update(ctx, func(snapshot *store.Collections) error {
		for i := range snapshot.Assignments {
			a := &snapshot.Assignments[i]
			if a.ReminderSent || a.Status == models.StatusCompleted || a.Deadline.IsZero() {
				continue
			}
			if !a.Deadline.After(now) || a.Deadline.After(windowEnd) {
				continue
			}

			a.ReminderSent = true
			deadline := a.Deadline
			reminder := models.Announcement{
				Type:         models.KindReminder,
				Title:        fmt.Sprintf("Reminder: %s", a.Title),
				Message:      fmt.Sprintf("Assignment %q is due %s.", a.Title, deadline.Format("Jan 2 15:04")),
				Source:       models.SourceLocal,
				Timestamp:    now,
				Deadline:     &deadline,
				AssignmentID: a.ID,
			}
			reminder.ID = uuid.NewString()

			snapshot.Announcements = replaceReminder(snapshot.Announcements, reminder)
			fired = append(fired, reminder)
		}

		if len(fired) == 0 {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(fired) == 0 {
		return 0, nil
	}

	metrics.RemindersFired.Add(float64(len(fired)))
	s.log.Info("reminder sweep fired", zap.Int("count", len(fired)))
	for _, reminder := range fired {
		publish(s.publisher, realtime.StreamAnnouncements, EventReminderFired, reminder)
	}
	return len(fired), nil
}

// replaceReminder drops any existing reminder announcement for the same
// assignment before appending the new one.
func replaceReminder(announcements []models.Announcement, reminder models.Announcement) []models.Announcement {
	kept := announcements[:0]
	for _, a := range announcements {
		if a.Type == models.KindReminder && a.AssignmentID == reminder.AssignmentID {
			continue
		}
		kept = append(kept, a)
	}
	return append(kept, reminder)
}
