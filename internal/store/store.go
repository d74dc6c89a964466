package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/campusflow/campusflow/internal/models"
	apperrors "github.com/campusflow/campusflow/pkg/errors"
	"github.com/campusflow/campusflow/pkg/logger"
)

// Collections is an in-memory snapshot of every record collection. All three
// slices are always non-nil after a Load, even when the backing tables are
// empty or unreadable.
type Collections struct {
	Assignments   []models.Assignment
	Alerts        []models.Alert
	Announcements []models.Announcement
}

func emptyCollections() *Collections {
	return &Collections{
		Assignments:   []models.Assignment{},
		Alerts:        []models.Alert{},
		Announcements: []models.Announcement{},
	}
}

// Store owns the durable record collections. Every load-mutate-save unit runs
// under one mutex, so concurrent triggers (sync requests, the reminder sweep,
// local mutations) cannot interleave their snapshots and resurrect removed
// records or double-fire reminders.
type Store struct {
	db  *gorm.DB
	mu  sync.RWMutex
	log *zap.Logger
}

// New constructs a Store over the provided database handle.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("store: db is required")
	}
	return &Store{db: db, log: logger.WithModule("store")}, nil
}

// Load reads a full snapshot. It never fails visibly: on a read error it logs
// and returns an empty, well-formed snapshot so callers always see every
// collection present.
func (s *Store) Load(ctx context.Context) *Collections {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) *Collections {
	snapshot := emptyCollections()
	db := s.db.WithContext(ctx)

	if err := db.Order("created_at ASC").Find(&snapshot.Assignments).Error; err != nil {
		s.log.Error("load assignments failed", zap.Error(err))
		return emptyCollections()
	}
	if err := db.Order("created_at ASC").Find(&snapshot.Alerts).Error; err != nil {
		s.log.Error("load alerts failed", zap.Error(err))
		return emptyCollections()
	}
	if err := db.Order("created_at ASC").Find(&snapshot.Announcements).Error; err != nil {
		s.log.Error("load announcements failed", zap.Error(err))
		return emptyCollections()
	}

	return snapshot
}

// Save replaces the durable state with the snapshot in one transaction. A
// failure rolls the transaction back, leaving prior durable state intact, and
// is surfaced as a storage failure so callers can retry the whole cycle.
func (s *Store) Save(ctx context.Context, snapshot *Collections) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(ctx, snapshot)
}

func (s *Store) saveLocked(ctx context.Context, snapshot *Collections) error {
	if snapshot == nil {
		return apperrors.ErrStorageFailure.WithInternal(errors.New("nil snapshot"))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wipe := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := wipe.Delete(&models.Assignment{}).Error; err != nil {
			return fmt.Errorf("clear assignments: %w", err)
		}
		if err := wipe.Delete(&models.Alert{}).Error; err != nil {
			return fmt.Errorf("clear alerts: %w", err)
		}
		if err := wipe.Delete(&models.Announcement{}).Error; err != nil {
			return fmt.Errorf("clear announcements: %w", err)
		}

		if len(snapshot.Assignments) > 0 {
			if err := tx.CreateInBatches(snapshot.Assignments, 100).Error; err != nil {
				return fmt.Errorf("write assignments: %w", err)
			}
		}
		if len(snapshot.Alerts) > 0 {
			if err := tx.CreateInBatches(snapshot.Alerts, 100).Error; err != nil {
				return fmt.Errorf("write alerts: %w", err)
			}
		}
		if len(snapshot.Announcements) > 0 {
			if err := tx.CreateInBatches(snapshot.Announcements, 100).Error; err != nil {
				return fmt.Errorf("write announcements: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return apperrors.ErrDuplicateRecord.WithInternal(err)
		}
		return apperrors.ErrStorageFailure.WithInternal(err)
	}
	return nil
}

// Update runs fn against a freshly loaded snapshot and persists the result,
// all under the store lock. Returning an error from fn discards the in-memory
// changes without touching durable state. fn may return ErrNoChange to skip
// the save entirely.
func (s *Store) Update(ctx context.Context, fn func(*Collections) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.loadLocked(ctx)
	if err := fn(snapshot); err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		return err
	}

	return s.saveLocked(ctx, snapshot)
}

// View runs fn against a read-only snapshot under the shared lock.
func (s *Store) View(ctx context.Context, fn func(*Collections) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(s.loadLocked(ctx))
}

// ErrNoChange signals that an Update mutation left the snapshot untouched and
// no save is needed.
var ErrNoChange = errors.New("store: no change")
