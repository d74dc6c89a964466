package records

import (
	"sort"
	"time"

	"github.com/campusflow/campusflow/internal/models"
)

// RetentionWindow is how long alerts stay visible before pruning.
const RetentionWindow = 24 * time.Hour

// PruneAlerts drops alerts whose timestamp falls outside the retention window
// ending at now, then deduplicates the remainder by (type, message) key
// keeping first-seen order. Applied on every alert insertion path so the
// store never accumulates stale or duplicate alerts no matter how many
// sources race to append.
func PruneAlerts(alerts []models.Alert, now time.Time) []models.Alert {
	cutoff := now.Add(-RetentionWindow)

	seen := make(map[string]struct{}, len(alerts))
	kept := make([]models.Alert, 0, len(alerts))
	for _, alert := range alerts {
		if alert.Timestamp.IsZero() || alert.Timestamp.Before(cutoff) {
			continue
		}
		key := AlertKey(alert.Type, alert.Message)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, alert)
	}
	return kept
}

// CollapseAnnouncements deduplicates announcements with the reminder-aware
// key, keeping the most recent record per key, and returns them sorted
// newest-first.
func CollapseAnnouncements(announcements []models.Announcement) []models.Announcement {
	latest := make(map[string]models.Announcement, len(announcements))
	order := make([]string, 0, len(announcements))

	for _, a := range announcements {
		key := AnnouncementKey(a)
		existing, ok := latest[key]
		if !ok {
			order = append(order, key)
			latest[key] = a
			continue
		}
		if a.Timestamp.After(existing.Timestamp) {
			latest[key] = a
		}
	}

	out := make([]models.Announcement, 0, len(order))
	for _, key := range order {
		out = append(out, latest[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
