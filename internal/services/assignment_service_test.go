package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campusflow/campusflow/internal/models"
	"github.com/campusflow/campusflow/internal/realtime"
	"github.com/campusflow/campusflow/internal/store"
	apperrors "github.com/campusflow/campusflow/pkg/errors"
)

func newAssignmentService(t *testing.T, st *store.Store, pub Publisher) *AssignmentService {
	t.Helper()
	svc, err := NewAssignmentService(st, newTestUploads(t), pub)
	require.NoError(t, err)
	return svc
}

func TestCreateAssignmentWithCompanions(t *testing.T) {
	st := newTestStore(t)
	pub := &recordingPublisher{}
	svc := newAssignmentService(t, st, pub)
	ctx := context.Background()

	deadline := time.Now().Add(72 * time.Hour).Format(time.RFC3339)
	created, err := svc.Create(ctx, CreateAssignmentInput{
		Title:       "Physics Lab 3",
		Description: "Pendulum experiment writeup",
		Deadline:    deadline,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, models.StatusPending, created.Status)
	require.Equal(t, models.SourceLocal, created.Source)

	err = st.View(ctx, func(c *store.Collections) error {
		require.Len(t, c.Assignments, 1)
		require.Len(t, c.Alerts, 1)
		require.Equal(t, models.KindNewAssignment, c.Alerts[0].Type)
		require.Len(t, c.Announcements, 1)
		require.Equal(t, created.ID, c.Announcements[0].AssignmentID)
		require.NotNil(t, c.Announcements[0].Deadline)
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, 1, pub.count(realtime.StreamAssignments, EventAssignmentCreated))
	require.Equal(t, 1, pub.count(realtime.StreamAlerts, EventAlertCreated))
	require.Equal(t, 1, pub.count(realtime.StreamAnnouncements, EventAnnouncementCreated))
}

func TestCreateAssignmentValidation(t *testing.T) {
	svc := newAssignmentService(t, newTestStore(t), nil)
	ctx := context.Background()

	var appErr *apperrors.AppError

	_, err := svc.Create(ctx, CreateAssignmentInput{Deadline: "2026-10-01"})
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, apperrors.ErrValidation.Code, appErr.Code)

	_, err = svc.Create(ctx, CreateAssignmentInput{Title: "No deadline", Deadline: "next thursday"})
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, apperrors.ErrValidation.Code, appErr.Code)
}

func TestSubmitMarksCompletedAndStoresFile(t *testing.T) {
	st := newTestStore(t)
	pub := &recordingPublisher{}
	svc := newAssignmentService(t, st, pub)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateAssignmentInput{
		Title:    "Essay",
		Deadline: time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)

	updated, err := svc.Submit(ctx, SubmitInput{
		AssignmentID: created.ID,
		Filename:     "essay.pdf",
		Data:         []byte("%PDF-1.4 stub"),
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, updated.Status)
	require.NotNil(t, updated.Submission)
	require.Equal(t, int64(13), updated.Submission.Size)

	path := filepath.Join(svc.uploads.Dir(), updated.Submission.Filename)
	_, err = os.Stat(path)
	require.NoError(t, err, "submission file should exist on disk")
	require.Equal(t, 1, pub.count(realtime.StreamAssignments, EventAssignmentSubmitted))
}

func TestSubmitUnknownAssignmentCleansUpFile(t *testing.T) {
	svc := newAssignmentService(t, newTestStore(t), nil)

	_, err := svc.Submit(context.Background(), SubmitInput{
		AssignmentID: "missing",
		Filename:     "essay.pdf",
		Data:         []byte("data"),
	})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, apperrors.ErrNotFound.Code, appErr.Code)

	entries, err := os.ReadDir(svc.uploads.Dir())
	require.NoError(t, err)
	require.Empty(t, entries, "orphaned upload should have been removed")
}

func TestSubmitMatchesByExternalID(t *testing.T) {
	st := newTestStore(t)
	svc := newAssignmentService(t, st, nil)
	ctx := context.Background()

	err := st.Update(ctx, func(c *store.Collections) error {
		c.Assignments = append(c.Assignments, models.Assignment{
			ExternalID: "ext-42",
			Source:     models.SourcePeer,
			Title:      "Imported",
			Deadline:   time.Now().Add(time.Hour),
			Status:     models.StatusPending,
		})
		return nil
	})
	require.NoError(t, err)

	updated, err := svc.Submit(ctx, SubmitInput{
		AssignmentID: "ext-42",
		Filename:     "work.png",
		Data:         []byte("png"),
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, updated.Status)
}

func TestRemoveUploadStripsReferences(t *testing.T) {
	st := newTestStore(t)
	svc := newAssignmentService(t, st, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateAssignmentInput{
		Title:    "Essay",
		Deadline: time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)

	updated, err := svc.Submit(ctx, SubmitInput{
		AssignmentID: created.ID,
		Filename:     "essay.pdf",
		Data:         []byte("data"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveUpload(ctx, updated.Submission.Filename))

	err = st.View(ctx, func(c *store.Collections) error {
		require.Nil(t, c.Assignments[0].SubmissionDetails())
		// completion survives the upload removal
		require.Equal(t, models.StatusCompleted, c.Assignments[0].Status)
		return nil
	})
	require.NoError(t, err)
}

func TestRemoveUploadUnknownFile(t *testing.T) {
	svc := newAssignmentService(t, newTestStore(t), nil)

	err := svc.RemoveUpload(context.Background(), "nope.pdf")
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, apperrors.ErrNotFound.Code, appErr.Code)
}

func TestListMarksLateAssignments(t *testing.T) {
	st := newTestStore(t)
	svc := newAssignmentService(t, st, nil)
	ctx := context.Background()

	now := time.Now()
	err := st.Update(ctx, func(c *store.Collections) error {
		c.Assignments = append(c.Assignments,
			models.Assignment{Title: "Overdue", Deadline: now.Add(-time.Hour), Status: models.StatusPending},
			models.Assignment{Title: "Done late", Deadline: now.Add(-time.Hour), Status: models.StatusCompleted},
			models.Assignment{Title: "Upcoming", Deadline: now.Add(time.Hour), Status: models.StatusPending},
		)
		return nil
	})
	require.NoError(t, err)

	out, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, "Overdue", out[0].Title)
	require.True(t, out[0].IsLate)
	require.False(t, out[1].IsLate, "completed assignments are never late")
	require.False(t, out[2].IsLate)
}
