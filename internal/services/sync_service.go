package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusflow/campusflow/internal/models"
	"github.com/campusflow/campusflow/internal/realtime"
	"github.com/campusflow/campusflow/internal/records"
	"github.com/campusflow/campusflow/internal/sources"
	"github.com/campusflow/campusflow/internal/store"
	"github.com/campusflow/campusflow/internal/uploads"
	apperrors "github.com/campusflow/campusflow/pkg/errors"
	"github.com/campusflow/campusflow/pkg/logger"
	"github.com/campusflow/campusflow/pkg/metrics"
)

// Metric label values for sync cycle outcomes.
const (
	syncSourceFeed = "feed"
	syncSourcePeer = "external"

	syncResultSuccess = "success"
	syncResultFailure = "failure"

	actionAdded   = "added"
	actionUpdated = "updated"
	actionRemoved = "removed"
)

// FeedSyncSummary reports one bidirectional feed cycle.
type FeedSyncSummary struct {
	Imported   int  `json:"imported"`
	Alerts     int  `json:"alerts"`
	Pushed     int  `json:"pushed"`
	PushFailed bool `json:"push_failed,omitempty"`
}

// PeerSyncSummary reports one full pull from the peer assignment service.
type PeerSyncSummary struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
}

// PeerPushInput is one assignment record delivered by the peer service.
type PeerPushInput struct {
	ExternalID    string
	Title         string
	Description   string
	Deadline      string
	Status        string
	AttachmentURL string
}

// PeerPushResult reports the outcome of a single-record push. Created is
// false when the record already existed and the push was a no-op.
type PeerPushResult struct {
	Assignment AssignmentDTO `json:"assignment"`
	Created    bool          `json:"created"`
}

// SyncService is the reconciliation engine. It pulls complete record sets
// from the external sources, merges them into the store under the store lock,
// sweeps records the source no longer reports, and fans out notifications
// only after the persist commits. Cycles for the same source are
// single-flight; a second trigger while one runs is rejected.
type SyncService struct {
	store     *store.Store
	feed      *sources.FeedClient
	peer      *sources.PeerClient
	uploads   *uploads.Manager
	publisher Publisher
	log       *zap.Logger
	now       func() time.Time

	feedMu sync.Mutex
	peerMu sync.Mutex
}

// NewSyncService constructs a SyncService.
func NewSyncService(st *store.Store, feed *sources.FeedClient, peer *sources.PeerClient, up *uploads.Manager, publisher Publisher) (*SyncService, error) {
	if st == nil {
		return nil, errors.New("sync service: store is required")
	}
	if feed == nil || peer == nil {
		return nil, errors.New("sync service: feed and peer clients are required")
	}
	if up == nil {
		return nil, errors.New("sync service: uploads manager is required")
	}
	return &SyncService{
		store:     st,
		feed:      feed,
		peer:      peer,
		uploads:   up,
		publisher: publisher,
		log:       logger.WithModule("services.sync"),
		now:       time.Now,
	}, nil
}

// SyncFeed runs one bidirectional cycle against the campus updates feed:
// import every update not already present as an announcement plus a matching
// alert, then push every announcement the feed does not own back in one
// batch. The outbound push is best-effort; its failure never rolls back the
// committed import.
func (s *SyncService) SyncFeed(ctx context.Context) (*FeedSyncSummary, error) {
	if !s.feedMu.TryLock() {
		return nil, apperrors.ErrSyncInProgress
	}
	defer s.feedMu.Unlock()
	ctx = ensureContext(ctx)

	updates, err := s.feed.Updates(ctx)
	if err != nil {
		metrics.SyncCycles.WithLabelValues(syncSourceFeed, syncResultFailure).Inc()
		return nil, err
	}

	now := s.now()
	summary := &FeedSyncSummary{}
	var imported []models.Announcement
	var importedAlerts []models.Alert
	var outbound []sources.OutboundUpdate

	err = s.store.Update(ctx, func(snapshot *store.Collections) error {
		before := len(snapshot.Alerts)
		snapshot.Alerts = records.PruneAlerts(snapshot.Alerts, now)
		if dropped := before - len(snapshot.Alerts); dropped > 0 {
			metrics.AlertsPruned.Add(float64(dropped))
		}

		seen := make(map[string]struct{}, len(updates))
		for _, u := range updates {
			title := strings.TrimSpace(u.Title)
			content := strings.TrimSpace(u.Content)
			if title == "" && content == "" {
				continue
			}

			ts, ok := records.ParseTime(u.Datetime)
			if !ok {
				ts = now
			}
			kind := defaultString(u.Type, models.KindGeneral)
			candidate := models.Announcement{
				Type:      kind,
				Title:     title,
				Message:   content,
				Source:    models.SourceFeed,
				Timestamp: ts,
			}

			key := records.AnnouncementKey(candidate)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			// Each update also surfaces in the short-lived alerts view.
			alert := models.Alert{
				Type:      strings.ToLower(kind),
				Title:     kind,
				Message:   title + ": " + content,
				Source:    models.SourceFeed,
				Timestamp: ts,
			}
			if !records.AlertExists(snapshot.Alerts, alert.Type, alert.Message) {
				alert.ID = uuid.NewString()
				snapshot.Alerts = append(snapshot.Alerts, alert)
				importedAlerts = append(importedAlerts, alert)
			}

			if !records.AnnouncementExists(snapshot.Announcements, candidate) {
				candidate.ID = uuid.NewString()
				snapshot.Announcements = append(snapshot.Announcements, candidate)
				imported = append(imported, candidate)
			}
		}

		for _, a := range snapshot.Announcements {
			if a.Source == models.SourceFeed {
				continue
			}
			outbound = append(outbound, sources.OutboundUpdate{
				Title:    a.Title,
				Type:     defaultString(a.Type, models.KindGeneral),
				Datetime: formatFeedTime(a.Timestamp),
				Content:  a.Message,
			})
		}

		if len(imported) == 0 && len(importedAlerts) == 0 {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil {
		metrics.SyncCycles.WithLabelValues(syncSourceFeed, syncResultFailure).Inc()
		return nil, err
	}
	summary.Imported = len(imported)
	summary.Alerts = len(importedAlerts)

	if len(outbound) > 0 {
		if err := s.feed.Push(ctx, outbound); err != nil {
			summary.PushFailed = true
			s.log.Warn("feed push failed", zap.Int("updates", len(outbound)), zap.Error(err))
		} else {
			summary.Pushed = len(outbound)
		}
	}

	metrics.SyncCycles.WithLabelValues(syncSourceFeed, syncResultSuccess).Inc()
	if added := summary.Imported + summary.Alerts; added > 0 {
		metrics.RecordsReconciled.WithLabelValues(syncSourceFeed, actionAdded).Add(float64(added))
	}

	for _, a := range importedAlerts {
		publish(s.publisher, realtime.StreamAlerts, EventAlertCreated, a)
	}
	for _, a := range imported {
		publish(s.publisher, realtime.StreamAnnouncements, EventAnnouncementCreated, a)
	}
	publish(s.publisher, realtime.StreamSync, EventSyncCompleted, map[string]any{
		"source":  models.SourceFeed,
		"summary": summary,
	})
	return summary, nil
}

// PullPeer runs one full pull from the peer assignment service: merge every
// reported assignment in place, append the new ones with companion records,
// and sweep previously imported peer assignments the service stopped
// reporting.
func (s *SyncService) PullPeer(ctx context.Context) (*PeerSyncSummary, error) {
	if !s.peerMu.TryLock() {
		return nil, apperrors.ErrSyncInProgress
	}
	defer s.peerMu.Unlock()
	ctx = ensureContext(ctx)

	fetched, err := s.peer.Assignments(ctx)
	if err != nil {
		metrics.SyncCycles.WithLabelValues(syncSourcePeer, syncResultFailure).Inc()
		return nil, err
	}

	incoming := s.prepareIncoming(ctx, fetched)

	now := s.now()
	summary := &PeerSyncSummary{}
	var companions []companionRecords
	var created []models.Assignment

	err = s.store.Update(ctx, func(snapshot *store.Collections) error {
		retained := make(map[string]struct{}, len(incoming))
		for _, inc := range incoming {
			idx := records.FindAssignment(snapshot.Assignments, inc.ExternalID, inc.Title)
			if idx >= 0 {
				records.MergeAssignment(&snapshot.Assignments[idx], inc)
				snapshot.Assignments[idx].Source = models.SourcePeer
				retained[snapshot.Assignments[idx].ExternalID] = struct{}{}
				summary.Updated++
				continue
			}

			inc.ID = uuid.NewString()
			snapshot.Assignments = append(snapshot.Assignments, inc)
			retained[inc.ExternalID] = struct{}{}
			summary.Added++
			created = append(created, inc)
			companions = append(companions, appendCompanions(snapshot, inc, models.SourcePeer, now))
		}

		kept := snapshot.Assignments[:0]
		for _, a := range snapshot.Assignments {
			if a.Source == models.SourcePeer && a.ExternalID != "" {
				if _, ok := retained[a.ExternalID]; !ok {
					summary.Removed++
					continue
				}
			}
			kept = append(kept, a)
		}
		snapshot.Assignments = kept

		if summary.Added == 0 && summary.Updated == 0 && summary.Removed == 0 {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil {
		metrics.SyncCycles.WithLabelValues(syncSourcePeer, syncResultFailure).Inc()
		return nil, err
	}

	metrics.SyncCycles.WithLabelValues(syncSourcePeer, syncResultSuccess).Inc()
	for action, count := range map[string]int{
		actionAdded:   summary.Added,
		actionUpdated: summary.Updated,
		actionRemoved: summary.Removed,
	} {
		if count > 0 {
			metrics.RecordsReconciled.WithLabelValues(syncSourcePeer, action).Add(float64(count))
		}
	}

	publish(s.publisher, realtime.StreamAssignments, EventAssignmentsChanged, summary)
	for i, a := range created {
		publish(s.publisher, realtime.StreamAssignments, EventAssignmentCreated, assignmentDTO(a, now))
		companions[i].fanout(s.publisher)
	}
	publish(s.publisher, realtime.StreamSync, EventSyncCompleted, map[string]any{
		"source":  models.SourcePeer,
		"summary": summary,
	})
	return summary, nil
}

// PushPeerRecord ingests one assignment delivered by the peer service. A
// record matching an existing assignment (by external id, else exact title)
// is acknowledged without mutation, which makes repeated delivery of the same
// push safe.
func (s *SyncService) PushPeerRecord(ctx context.Context, input PeerPushInput) (*PeerPushResult, error) {
	// Pushes queue behind a running pull rather than failing: a record
	// inserted between a pull's fetch and its sweep would be tombstoned
	// immediately.
	s.peerMu.Lock()
	defer s.peerMu.Unlock()
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidation("title is required")
	}
	deadline, ok := records.ParseTime(input.Deadline)
	if !ok {
		return nil, apperrors.NewValidation("a valid deadline is required")
	}

	incoming := models.Assignment{
		ExternalID:    strings.TrimSpace(input.ExternalID),
		Source:        models.SourcePeer,
		Title:         title,
		Description:   strings.TrimSpace(input.Description),
		Deadline:      deadline,
		Status:        defaultString(input.Status, models.StatusPending),
		AttachmentURL: strings.TrimSpace(input.AttachmentURL),
	}
	if incoming.AttachmentURL != "" {
		incoming.AttachmentURL = s.copyAttachment(ctx, incoming.AttachmentURL)
	}

	now := s.now()
	result := &PeerPushResult{}
	var companions companionRecords

	err := s.store.Update(ctx, func(snapshot *store.Collections) error {
		idx := records.FindAssignment(snapshot.Assignments, incoming.ExternalID, incoming.Title)
		if idx >= 0 {
			result.Assignment = assignmentDTO(snapshot.Assignments[idx], now)
			return store.ErrNoChange
		}

		incoming.ID = uuid.NewString()
		if incoming.ExternalID == "" {
			incoming.ExternalID = incoming.ID
		}
		snapshot.Assignments = append(snapshot.Assignments, incoming)
		result.Assignment = assignmentDTO(incoming, now)
		result.Created = true
		companions = appendCompanions(snapshot, incoming, models.SourcePeer, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Created {
		metrics.RecordsReconciled.WithLabelValues(syncSourcePeer, actionAdded).Inc()
		publish(s.publisher, realtime.StreamAssignments, EventAssignmentCreated, result.Assignment)
		companions.fanout(s.publisher)
	}
	return result, nil
}

// prepareIncoming converts fetched peer records into assignment models,
// copying remote attachments into local storage. All network I/O happens
// here, before the store lock is taken.
func (s *SyncService) prepareIncoming(ctx context.Context, fetched []sources.PeerAssignment) []models.Assignment {
	incoming := make([]models.Assignment, 0, len(fetched))
	for _, f := range fetched {
		title := strings.TrimSpace(f.Title)
		if title == "" {
			continue
		}

		externalID := strings.TrimSpace(f.ExternalID)
		if externalID == "" {
			externalID = strings.TrimSpace(f.ID)
		}
		if externalID == "" {
			externalID = uuid.NewString()
		}

		deadline, ok := records.ParseTime(f.Deadline)
		if !ok {
			s.log.Warn("peer assignment has unparseable deadline",
				zap.String("external_id", externalID), zap.String("deadline", f.Deadline))
		}

		a := models.Assignment{
			ExternalID:    externalID,
			Source:        models.SourcePeer,
			Title:         title,
			Description:   strings.TrimSpace(f.Description),
			Deadline:      deadline,
			Status:        defaultString(f.Status, models.StatusPending),
			AttachmentURL: strings.TrimSpace(f.AttachmentURL),
		}
		if a.AttachmentURL != "" {
			a.AttachmentURL = s.copyAttachment(ctx, a.AttachmentURL)
		}
		incoming = append(incoming, a)
	}
	return incoming
}

// copyAttachment fetches a remote attachment and stores a local copy,
// returning the local URL. On any failure the remote reference is kept
// unchanged; attachment copies are never fatal to a cycle.
func (s *SyncService) copyAttachment(ctx context.Context, remoteRef string) string {
	if strings.HasPrefix(remoteRef, uploads.PublicPrefix+"/") {
		return remoteRef
	}

	data, err := s.peer.FetchAttachment(ctx, remoteRef)
	if err != nil {
		s.log.Warn("attachment fetch failed, keeping remote reference",
			zap.String("ref", remoteRef), zap.Error(err))
		return remoteRef
	}
	stored, err := s.uploads.SaveAttachment(remoteRef, data)
	if err != nil {
		s.log.Warn("attachment store failed, keeping remote reference",
			zap.String("ref", remoteRef), zap.Error(err))
		return remoteRef
	}
	return stored.URL
}
