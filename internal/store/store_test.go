package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campusflow/campusflow/internal/database/testutil"
	"github.com/campusflow/campusflow/internal/models"
)

func TestLoadReturnsWellFormedEmptySnapshot(t *testing.T) {
	s, err := New(testutil.MustOpenTestDB(t))
	require.NoError(t, err)

	snapshot := s.Load(context.Background())
	require.NotNil(t, snapshot.Assignments)
	require.NotNil(t, snapshot.Alerts)
	require.NotNil(t, snapshot.Announcements)
	require.Empty(t, snapshot.Assignments)
}

func TestUpdatePersistsMutations(t *testing.T) {
	s, err := New(testutil.MustOpenTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	err = s.Update(ctx, func(c *Collections) error {
		c.Assignments = append(c.Assignments, models.Assignment{
			Title:    "Lab 1",
			Deadline: time.Now().Add(48 * time.Hour),
			Status:   models.StatusPending,
		})
		c.Alerts = append(c.Alerts, models.Alert{
			Type:      models.KindInfo,
			Message:   "hello",
			Timestamp: time.Now(),
		})
		return nil
	})
	require.NoError(t, err)

	snapshot := s.Load(ctx)
	require.Len(t, snapshot.Assignments, 1)
	require.Len(t, snapshot.Alerts, 1)
	require.NotEmpty(t, snapshot.Assignments[0].ID, "expected uuid to be assigned on save")
}

func TestUpdateErrorDiscardsChanges(t *testing.T) {
	s, err := New(testutil.MustOpenTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	boom := errors.New("merge failed")
	err = s.Update(ctx, func(c *Collections) error {
		c.Alerts = append(c.Alerts, models.Alert{Message: "should not persist", Timestamp: time.Now()})
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.Empty(t, s.Load(ctx).Alerts)
}

func TestUpdateNoChangeSkipsSave(t *testing.T) {
	s, err := New(testutil.MustOpenTestDB(t))
	require.NoError(t, err)

	err = s.Update(context.Background(), func(c *Collections) error {
		return ErrNoChange
	})
	require.NoError(t, err)
}

func TestSaveReplacesPriorState(t *testing.T) {
	s, err := New(testutil.MustOpenTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(c *Collections) error {
		c.Announcements = append(c.Announcements,
			models.Announcement{Title: "A", Timestamp: time.Now()},
			models.Announcement{Title: "B", Timestamp: time.Now()},
		)
		return nil
	}))

	require.NoError(t, s.Update(ctx, func(c *Collections) error {
		c.Announcements = c.Announcements[:1]
		return nil
	}))

	snapshot := s.Load(ctx)
	require.Len(t, snapshot.Announcements, 1)
	require.Equal(t, "A", snapshot.Announcements[0].Title)
}

func TestUpdatePreservesRecordIdentityAcrossSaves(t *testing.T) {
	s, err := New(testutil.MustOpenTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(c *Collections) error {
		c.Assignments = append(c.Assignments, models.Assignment{
			Title:    "Essay",
			Deadline: time.Now().Add(24 * time.Hour),
		})
		return nil
	}))

	first := s.Load(ctx).Assignments[0].ID

	require.NoError(t, s.Update(ctx, func(c *Collections) error {
		c.Assignments[0].Description = "updated"
		return nil
	}))

	assignments := s.Load(ctx).Assignments
	require.Len(t, assignments, 1)
	require.Equal(t, first, assignments[0].ID)
	require.Equal(t, "updated", assignments[0].Description)
}
