package records

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campusflow/campusflow/internal/models"
)

func TestAlertKeyNormalizes(t *testing.T) {
	require.Equal(t, AlertKey("Sync", "  New assignment synced: Lab 1 "), AlertKey("sync", "new assignment synced: lab 1"))
	require.Equal(t, AlertKey("", "hello"), AlertKey("general", "hello"))
	require.NotEqual(t, AlertKey("sync", "a"), AlertKey("info", "a"))
}

func TestAnnouncementKeyReminderKeyedByAssignment(t *testing.T) {
	first := models.Announcement{Type: models.KindReminder, AssignmentID: "a-1", Message: "due tomorrow"}
	second := models.Announcement{Type: models.KindReminder, AssignmentID: "a-1", Message: "completely different text"}
	other := models.Announcement{Type: models.KindReminder, AssignmentID: "a-2", Message: "due tomorrow"}

	require.Equal(t, AnnouncementKey(first), AnnouncementKey(second))
	require.NotEqual(t, AnnouncementKey(first), AnnouncementKey(other))
}

func TestAnnouncementKeyGeneral(t *testing.T) {
	a := models.Announcement{Type: "Manual", Title: "Exam", Message: "Midterm Friday"}
	b := models.Announcement{Type: "manual", Title: "exam", Message: "midterm friday"}
	require.Equal(t, AnnouncementKey(a), AnnouncementKey(b))
}

func TestManualAnnouncementExists(t *testing.T) {
	existing := []models.Announcement{
		{Title: "Exam", Message: "Midterm Friday", Type: models.KindManual},
	}

	require.True(t, ManualAnnouncementExists(existing, "exam", "MIDTERM FRIDAY"))
	require.False(t, ManualAnnouncementExists(existing, "Exam", "Final Monday"))
}

func TestFindAssignmentPrefersExternalID(t *testing.T) {
	assignments := []models.Assignment{
		{BaseModel: models.BaseModel{ID: "1"}, ExternalID: "ext-1", Title: "Lab 1"},
		{BaseModel: models.BaseModel{ID: "2"}, Title: "Essay"},
	}

	require.Equal(t, 0, FindAssignment(assignments, "ext-1", "completely different title"))
	require.Equal(t, -1, FindAssignment(assignments, "ext-404", "Lab 1"))
	require.Equal(t, 1, FindAssignment(assignments, "", "Essay"))
	require.Equal(t, -1, FindAssignment(assignments, "", "Quiz"))
}

func TestMergeAssignmentPreservesLocalState(t *testing.T) {
	deadline := time.Now().Add(72 * time.Hour)
	existing := models.Assignment{
		BaseModel:  models.BaseModel{ID: "local-1"},
		ExternalID: "ext-1",
		Source:     models.SourcePeer,
		Title:      "Lab 1",
		Status:     models.StatusCompleted,
	}
	require.NoError(t, existing.SetSubmission(models.SubmissionInfo{URL: "/uploads/sub.pdf", Filename: "sub.pdf"}))
	existing.ReminderSent = true

	MergeAssignment(&existing, models.Assignment{
		ExternalID:  "ext-1",
		Title:       "Lab 1 (revised)",
		Description: "new rubric",
		Deadline:    deadline,
		Status:      models.StatusPending,
	})

	require.Equal(t, "Lab 1 (revised)", existing.Title)
	require.Equal(t, "new rubric", existing.Description)
	require.True(t, existing.Deadline.Equal(deadline))
	require.Equal(t, models.StatusCompleted, existing.Status, "re-sync must not revert a completed assignment")
	require.NotNil(t, existing.SubmissionDetails(), "re-sync must not erase the submission")
	require.True(t, existing.ReminderSent)
	require.Equal(t, "local-1", existing.ID)
}

func TestMergeAssignmentUpdatesPendingStatus(t *testing.T) {
	existing := models.Assignment{Title: "Lab 2", Status: models.StatusPending}
	MergeAssignment(&existing, models.Assignment{Title: "Lab 2", Status: models.StatusCompleted})
	require.Equal(t, models.StatusCompleted, existing.Status)
}
