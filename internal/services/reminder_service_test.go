package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campusflow/campusflow/internal/models"
	"github.com/campusflow/campusflow/internal/realtime"
	"github.com/campusflow/campusflow/internal/store"
)

func seedAssignment(t *testing.T, st *store.Store, a models.Assignment) {
	t.Helper()
	require.NoError(t, st.Update(context.Background(), func(c *store.Collections) error {
		c.Assignments = append(c.Assignments, a)
		return nil
	}))
}

func TestSweepFiresOnceInsideWindow(t *testing.T) {
	st := newTestStore(t)
	pub := &recordingPublisher{}
	now := time.Now()
	svc, err := NewReminderService(st, pub, WithNow(func() time.Time { return now }))
	require.NoError(t, err)
	ctx := context.Background()

	seedAssignment(t, st, models.Assignment{
		Title:    "Due soon",
		Deadline: now.Add(23 * time.Hour),
		Status:   models.StatusPending,
	})

	fired, err := svc.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, fired)

	// repeated sweeps never duplicate the reminder
	for i := 0; i < 3; i++ {
		fired, err = svc.Sweep(ctx)
		require.NoError(t, err)
		require.Zero(t, fired)
	}

	err = st.View(ctx, func(c *store.Collections) error {
		require.Len(t, c.Announcements, 1)
		require.Equal(t, models.KindReminder, c.Announcements[0].Type)
		require.Equal(t, c.Assignments[0].ID, c.Announcements[0].AssignmentID)
		require.True(t, c.Assignments[0].ReminderSent)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, pub.count(realtime.StreamAnnouncements, EventReminderFired))
}

func TestSweepSkipsOutsideWindow(t *testing.T) {
	st := newTestStore(t)
	now := time.Now()
	svc, err := NewReminderService(st, nil, WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	seedAssignment(t, st, models.Assignment{
		Title:    "Far future",
		Deadline: now.Add(48 * time.Hour),
		Status:   models.StatusPending,
	})
	seedAssignment(t, st, models.Assignment{
		Title:    "Already passed",
		Deadline: now.Add(-time.Hour),
		Status:   models.StatusPending,
	})
	seedAssignment(t, st, models.Assignment{
		Title:    "Completed",
		Deadline: now.Add(time.Hour),
		Status:   models.StatusCompleted,
	})

	fired, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	require.Zero(t, fired, "missed or irrelevant deadlines never fire retroactively")
}

func TestSweepReplacesPriorReminder(t *testing.T) {
	st := newTestStore(t)
	now := time.Now()
	svc, err := NewReminderService(st, nil, WithNow(func() time.Time { return now }))
	require.NoError(t, err)
	ctx := context.Background()

	seedAssignment(t, st, models.Assignment{
		Title:    "Lab",
		Deadline: now.Add(2 * time.Hour),
		Status:   models.StatusPending,
	})

	var assignmentID string
	require.NoError(t, st.View(ctx, func(c *store.Collections) error {
		assignmentID = c.Assignments[0].ID
		return nil
	}))

	// a stale reminder from an earlier deadline edit is still around
	require.NoError(t, st.Update(ctx, func(c *store.Collections) error {
		c.Announcements = append(c.Announcements, models.Announcement{
			Type:         models.KindReminder,
			Title:        "Reminder: Lab",
			Message:      "old text",
			AssignmentID: assignmentID,
			Timestamp:    now.Add(-time.Hour),
		})
		return nil
	}))

	fired, err := svc.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, fired)

	require.NoError(t, st.View(ctx, func(c *store.Collections) error {
		reminders := 0
		for _, a := range c.Announcements {
			if a.Type == models.KindReminder && a.AssignmentID == assignmentID {
				reminders++
				require.NotEqual(t, "old text", a.Message)
			}
		}
		require.Equal(t, 1, reminders, "a new reminder replaces the prior one")
		return nil
	}))
}

func TestSweepCustomThreshold(t *testing.T) {
	st := newTestStore(t)
	now := time.Now()
	svc, err := NewReminderService(st, nil,
		WithNow(func() time.Time { return now }),
		WithThreshold(time.Hour),
	)
	require.NoError(t, err)

	seedAssignment(t, st, models.Assignment{
		Title:    "Due in two hours",
		Deadline: now.Add(2 * time.Hour),
		Status:   models.StatusPending,
	})

	fired, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	require.Zero(t, fired)
}
