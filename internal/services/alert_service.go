package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusflow/campusflow/internal/models"
	"github.com/campusflow/campusflow/internal/realtime"
	"github.com/campusflow/campusflow/internal/records"
	"github.com/campusflow/campusflow/internal/store"
	apperrors "github.com/campusflow/campusflow/pkg/errors"
	"github.com/campusflow/campusflow/pkg/metrics"
)

// CreateAlertInput defines attributes for a manually submitted alert.
type CreateAlertInput struct {
	Type    string
	Title   string
	Message string
}

// AlertService manages short-lived alerts under the retention policy.
type AlertService struct {
	store     *store.Store
	publisher Publisher
	now       func() time.Time
}

// NewAlertService constructs an AlertService.
func NewAlertService(st *store.Store, publisher Publisher) (*AlertService, error) {
	if st == nil {
		return nil, errors.New("alert service: store is required")
	}
	return &AlertService{store: st, publisher: publisher, now: time.Now}, nil
}

// Create stores a manual alert. The retention policy runs on the way in, so
// stale alerts are swept on every insertion. An alert matching an existing
// (type, message) pair is rejected as a duplicate.
func (s *AlertService) Create(ctx context.Context, input CreateAlertInput) (*models.Alert, error) {
	ctx = ensureContext(ctx)

	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, apperrors.NewValidation("message is required")
	}

	now := s.now()
	alert := models.Alert{
		Type:      defaultString(input.Type, models.KindGeneral),
		Title:     defaultString(input.Title, "Alert"),
		Message:   message,
		Source:    models.SourceLocal,
		Timestamp: now,
	}
	alert.ID = uuid.NewString()

	err := s.store.Update(ctx, func(snapshot *store.Collections) error {
		before := len(snapshot.Alerts)
		snapshot.Alerts = records.PruneAlerts(snapshot.Alerts, now)
		if dropped := before - len(snapshot.Alerts); dropped > 0 {
			metrics.AlertsPruned.Add(float64(dropped))
		}

		if records.AlertExists(snapshot.Alerts, alert.Type, alert.Message) {
			return apperrors.ErrDuplicateRecord.WithMessage("an equivalent alert already exists")
		}
		snapshot.Alerts = append(snapshot.Alerts, alert)
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(s.publisher, realtime.StreamAlerts, EventAlertCreated, alert)
	return &alert, nil
}

// List returns alerts inside the retention window, newest-first. The view is
// pruned at read time; durable cleanup happens on the insertion paths.
func (s *AlertService) List(ctx context.Context) ([]models.Alert, error) {
	ctx = ensureContext(ctx)

	var out []models.Alert
	err := s.store.View(ctx, func(snapshot *store.Collections) error {
		out = records.PruneAlerts(snapshot.Alerts, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}
