package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusflow/campusflow/internal/models"
	"github.com/campusflow/campusflow/internal/realtime"
	"github.com/campusflow/campusflow/internal/records"
	"github.com/campusflow/campusflow/internal/store"
	apperrors "github.com/campusflow/campusflow/pkg/errors"
)

// CreateAnnouncementInput defines attributes for a manually submitted
// announcement.
type CreateAnnouncementInput struct {
	Title   string
	Message string
	Type    string
}

// AnnouncementService manages durable announcements.
type AnnouncementService struct {
	store     *store.Store
	publisher Publisher
	now       func() time.Time
}

// NewAnnouncementService constructs an AnnouncementService.
func NewAnnouncementService(st *store.Store, publisher Publisher) (*AnnouncementService, error) {
	if st == nil {
		return nil, errors.New("announcement service: store is required")
	}
	return &AnnouncementService{store: st, publisher: publisher, now: time.Now}, nil
}

// CreateManual stores a manually submitted announcement. A case-insensitive
// (title, message) collision with an existing announcement is rejected
// outright rather than merged.
func (s *AnnouncementService) CreateManual(ctx context.Context, input CreateAnnouncementInput) (*models.Announcement, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	message := strings.TrimSpace(input.Message)
	if title == "" || message == "" {
		return nil, apperrors.NewValidation("title and message are required")
	}

	announcement := models.Announcement{
		Type:      defaultString(input.Type, models.KindManual),
		Title:     title,
		Message:   message,
		Source:    models.SourceLocal,
		Timestamp: s.now(),
	}
	announcement.ID = uuid.NewString()

	err := s.store.Update(ctx, func(snapshot *store.Collections) error {
		if records.ManualAnnouncementExists(snapshot.Announcements, title, message) {
			return apperrors.ErrDuplicateRecord.WithMessage("an announcement with this title and message already exists")
		}
		snapshot.Announcements = append(snapshot.Announcements, announcement)
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(s.publisher, realtime.StreamAnnouncements, EventAnnouncementCreated, announcement)
	return &announcement, nil
}

// List returns announcements collapsed with the reminder-aware dedup key and
// sorted newest-first.
func (s *AnnouncementService) List(ctx context.Context) ([]models.Announcement, error) {
	ctx = ensureContext(ctx)

	var out []models.Announcement
	err := s.store.View(ctx, func(snapshot *store.Collections) error {
		out = records.CollapseAnnouncements(snapshot.Announcements)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
