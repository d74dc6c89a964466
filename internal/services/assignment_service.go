package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusflow/campusflow/internal/models"
	"github.com/campusflow/campusflow/internal/realtime"
	"github.com/campusflow/campusflow/internal/records"
	"github.com/campusflow/campusflow/internal/store"
	"github.com/campusflow/campusflow/internal/uploads"
	apperrors "github.com/campusflow/campusflow/pkg/errors"
	"github.com/campusflow/campusflow/pkg/logger"
	"github.com/campusflow/campusflow/pkg/metrics"
)

// AssignmentDTO is the API-friendly assignment payload. IsLate is computed at
// read time, never stored.
type AssignmentDTO struct {
	ID            string                 `json:"id"`
	ExternalID    string                 `json:"external_id,omitempty"`
	Source        string                 `json:"source,omitempty"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description,omitempty"`
	Deadline      time.Time              `json:"deadline"`
	Status        string                 `json:"status"`
	ReminderSent  bool                   `json:"reminder_sent"`
	AttachmentURL string                 `json:"attachment_url,omitempty"`
	Submission    *models.SubmissionInfo `json:"submission,omitempty"`
	IsLate        bool                   `json:"is_late"`
}

func assignmentDTO(a models.Assignment, now time.Time) AssignmentDTO {
	return AssignmentDTO{
		ID:            a.ID,
		ExternalID:    a.ExternalID,
		Source:        a.Source,
		Title:         a.Title,
		Description:   a.Description,
		Deadline:      a.Deadline,
		Status:        a.Status,
		ReminderSent:  a.ReminderSent,
		AttachmentURL: a.AttachmentURL,
		Submission:    a.SubmissionDetails(),
		IsLate:        a.IsLate(now),
	}
}

// CreateAssignmentInput defines attributes for a locally created assignment.
type CreateAssignmentInput struct {
	Title       string
	Description string
	Deadline    string
}

// SubmitInput carries an uploaded submission for an assignment.
type SubmitInput struct {
	AssignmentID string
	Filename     string
	Data         []byte
}

// AssignmentService manages assignments and their uploaded submissions.
type AssignmentService struct {
	store     *store.Store
	uploads   *uploads.Manager
	publisher Publisher
	log       *zap.Logger
	now       func() time.Time
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(st *store.Store, up *uploads.Manager, publisher Publisher) (*AssignmentService, error) {
	if st == nil {
		return nil, errors.New("assignment service: store is required")
	}
	if up == nil {
		return nil, errors.New("assignment service: uploads manager is required")
	}
	return &AssignmentService{
		store:     st,
		uploads:   up,
		publisher: publisher,
		log:       logger.WithModule("services.assignment"),
		now:       time.Now,
	}, nil
}

// Create stores a locally authored assignment together with its companion
// alert and announcement.
func (s *AssignmentService) Create(ctx context.Context, input CreateAssignmentInput) (*models.Assignment, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidation("title is required")
	}
	deadline, ok := records.ParseTime(input.Deadline)
	if !ok {
		return nil, apperrors.NewValidation("a valid deadline is required")
	}

	now := s.now()
	assignment := models.Assignment{
		Source:      models.SourceLocal,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Deadline:    deadline,
		Status:      models.StatusPending,
	}
	assignment.ID = uuid.NewString()

	var companions companionRecords
	err := s.store.Update(ctx, func(snapshot *store.Collections) error {
		snapshot.Assignments = append(snapshot.Assignments, assignment)
		companions = appendCompanions(snapshot, assignment, models.SourceLocal, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(s.publisher, realtime.StreamAssignments, EventAssignmentCreated, assignmentDTO(assignment, now))
	companions.fanout(s.publisher)
	return &assignment, nil
}

// List returns every assignment sorted by deadline, soonest first.
func (s *AssignmentService) List(ctx context.Context) ([]AssignmentDTO, error) {
	ctx = ensureContext(ctx)

	now := s.now()
	var out []AssignmentDTO
	err := s.store.View(ctx, func(snapshot *store.Collections) error {
		out = make([]AssignmentDTO, 0, len(snapshot.Assignments))
		for _, a := range snapshot.Assignments {
			out = append(out, assignmentDTO(a, now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Deadline.Before(out[j].Deadline)
	})
	return out, nil
}

// Submit stores an uploaded file for an assignment (matched by id or external
// id) and marks the assignment completed. The stored file is rolled back if
// the assignment cannot be updated.
func (s *AssignmentService) Submit(ctx context.Context, input SubmitInput) (*AssignmentDTO, error) {
	ctx = ensureContext(ctx)

	id := strings.TrimSpace(input.AssignmentID)
	if id == "" {
		return nil, apperrors.NewValidation("assignment id is required")
	}
	if len(input.Data) == 0 {
		return nil, apperrors.NewValidation("submission file is required")
	}

	stored, err := s.uploads.SaveSubmission(input.Filename, input.Data)
	if err != nil {
		return nil, apperrors.ErrStorageFailure.WithInternal(fmt.Errorf("store submission: %w", err))
	}

	now := s.now()
	var updated AssignmentDTO
	err = s.store.Update(ctx, func(snapshot *store.Collections) error {
		idx := findAssignmentByID(snapshot.Assignments, id)
		if idx < 0 {
			return apperrors.ErrNotFound.WithMessage("assignment not found")
		}

		a := &snapshot.Assignments[idx]
		if err := a.SetSubmission(models.SubmissionInfo{
			URL:         stored.URL,
			Filename:    stored.Filename,
			Size:        stored.Size,
			SubmittedAt: now,
		}); err != nil {
			return apperrors.ErrInternalServer.WithInternal(err)
		}
		a.Status = models.StatusCompleted
		updated = assignmentDTO(*a, now)
		return nil
	})
	if err != nil {
		if removeErr := s.uploads.Remove(stored.Filename); removeErr != nil {
			s.log.Warn("orphaned submission cleanup failed",
				zap.String("filename", stored.Filename), zap.Error(removeErr))
		}
		return nil, err
	}

	publish(s.publisher, realtime.StreamAssignments, EventAssignmentSubmitted, updated)
	return &updated, nil
}

// RemoveUpload deletes a stored upload and strips any assignment references
// to it (submission or attachment). Stripping a submission does not revert a
// Completed status; the work was still handed in.
func (s *AssignmentService) RemoveUpload(ctx context.Context, filename string) error {
	ctx = ensureContext(ctx)

	if err := s.uploads.Remove(filename); err != nil {
		return err
	}

	target := uploads.PublicPrefix + "/" + filename
	stripped := false
	err := s.store.Update(ctx, func(snapshot *store.Collections) error {
		for i := range snapshot.Assignments {
			a := &snapshot.Assignments[i]
			if info := a.SubmissionDetails(); info != nil && info.Filename == filename {
				a.ClearSubmission()
				stripped = true
			}
			if a.AttachmentURL == target {
				a.AttachmentURL = ""
				stripped = true
			}
		}
		if !stripped {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return err
	}

	if stripped {
		publish(s.publisher, realtime.StreamAssignments, EventUploadRemoved, map[string]string{"filename": filename})
	}
	return nil
}

func findAssignmentByID(assignments []models.Assignment, id string) int {
	for i := range assignments {
		if assignments[i].ID == id || (assignments[i].ExternalID != "" && assignments[i].ExternalID == id) {
			return i
		}
	}
	return -1
}

// companionRecords collects the alert/announcement pair synthesized for a new
// assignment so fanout can happen after the persist commits.
type companionRecords struct {
	alert        *models.Alert
	announcement *models.Announcement
}

func (c companionRecords) fanout(p Publisher) {
	if c.alert != nil {
		publish(p, realtime.StreamAlerts, EventAlertCreated, *c.alert)
	}
	if c.announcement != nil {
		publish(p, realtime.StreamAnnouncements, EventAnnouncementCreated, *c.announcement)
	}
}

// appendCompanions synthesizes the "new assignment" alert and announcement,
// deduplicated against the existing collections and with retention pruning
// applied to alerts before the insert.
func appendCompanions(snapshot *store.Collections, assignment models.Assignment, source string, now time.Time) companionRecords {
	var out companionRecords

	message := fmt.Sprintf("New assignment added: %s", assignment.Title)

	before := len(snapshot.Alerts)
	snapshot.Alerts = records.PruneAlerts(snapshot.Alerts, now)
	if dropped := before - len(snapshot.Alerts); dropped > 0 {
		metrics.AlertsPruned.Add(float64(dropped))
	}
	if !records.AlertExists(snapshot.Alerts, models.KindNewAssignment, message) {
		alert := models.Alert{
			Type:      models.KindNewAssignment,
			Title:     "New Assignment",
			Message:   message,
			Source:    source,
			Timestamp: now,
		}
		alert.ID = uuid.NewString()
		snapshot.Alerts = append(snapshot.Alerts, alert)
		out.alert = &alert
	}

	deadline := assignment.Deadline
	announcement := models.Announcement{
		Type:         models.KindAssignment,
		Title:        assignment.Title,
		Message:      defaultString(assignment.Description, message),
		Source:       source,
		Timestamp:    now,
		AssignmentID: assignment.ID,
	}
	if !deadline.IsZero() {
		announcement.Deadline = &deadline
	}
	if !records.AnnouncementExists(snapshot.Announcements, announcement) {
		announcement.ID = uuid.NewString()
		snapshot.Announcements = append(snapshot.Announcements, announcement)
		out.announcement = &announcement
	}

	return out
}
