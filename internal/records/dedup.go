package records

import (
	"strings"

	"github.com/campusflow/campusflow/internal/models"
)

// Dedup keys are normalized (lowercased, trimmed) so that records arriving
// from different sources with cosmetic differences still collapse. All
// functions here are pure predicates over collection state plus a candidate;
// they perform no I/O.

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// AlertKey returns the dedup key for an alert: its normalized (type, message)
// pair. Untyped alerts fold into the "general" bucket.
func AlertKey(alertType, message string) string {
	if strings.TrimSpace(alertType) == "" {
		alertType = models.KindGeneral
	}
	return normalize(alertType) + "::" + normalize(message)
}

// AnnouncementKey returns the dedup key for an announcement. Reminder
// announcements are keyed by the assignment they were synthesized for, so a
// newer reminder for the same assignment replaces the older one regardless
// of message text. Everything else is keyed by (type, title, message).
func AnnouncementKey(a models.Announcement) string {
	if a.Type == models.KindReminder {
		if a.AssignmentID != "" {
			return models.KindReminder + "::" + normalize(a.AssignmentID)
		}
		return models.KindReminder + "::" + normalize(a.Message)
	}

	kind := a.Type
	if strings.TrimSpace(kind) == "" {
		kind = models.KindGeneral
	}
	return normalize(kind) + "::" + normalize(a.Title) + "::" + normalize(a.Message)
}

// AlertExists reports whether an equivalent alert is already present.
func AlertExists(alerts []models.Alert, alertType, message string) bool {
	key := AlertKey(alertType, message)
	for _, a := range alerts {
		if AlertKey(a.Type, a.Message) == key {
			return true
		}
	}
	return false
}

// AnnouncementExists reports whether an equivalent announcement is already
// present, using the reminder-aware key.
func AnnouncementExists(announcements []models.Announcement, candidate models.Announcement) bool {
	key := AnnouncementKey(candidate)
	for _, a := range announcements {
		if AnnouncementKey(a) == key {
			return true
		}
	}
	return false
}

// ManualAnnouncementExists reports whether an announcement with the same
// case-insensitive (title, message) pair already exists. Manual submissions
// that collide are rejected outright rather than merged.
func ManualAnnouncementExists(announcements []models.Announcement, title, message string) bool {
	title = normalize(title)
	message = normalize(message)
	for _, a := range announcements {
		if normalize(a.Title) == title && normalize(a.Message) == message {
			return true
		}
	}
	return false
}

// FindAssignment locates an existing assignment matching an incoming external
// record: by external id when the candidate carries one, otherwise by exact
// title. Returns the index into assignments, or -1.
func FindAssignment(assignments []models.Assignment, externalID, title string) int {
	if externalID != "" {
		for i := range assignments {
			if assignments[i].ExternalID == externalID {
				return i
			}
		}
		return -1
	}
	for i := range assignments {
		if assignments[i].Title == title {
			return i
		}
	}
	return -1
}

// MergeAssignment folds the fields of an incoming external record into an
// existing assignment in place. Local-only state survives the merge: an
// attached submission, a Completed status, and the reminder flag are never
// clobbered by a re-sync.
func MergeAssignment(existing *models.Assignment, incoming models.Assignment) {
	existing.Title = incoming.Title
	existing.Description = incoming.Description
	if !incoming.Deadline.IsZero() {
		existing.Deadline = incoming.Deadline
	}
	if incoming.ExternalID != "" {
		existing.ExternalID = incoming.ExternalID
	}
	if incoming.AttachmentURL != "" {
		existing.AttachmentURL = incoming.AttachmentURL
	}
	if existing.Status != models.StatusCompleted {
		if incoming.Status != "" {
			existing.Status = incoming.Status
		} else {
			existing.Status = models.StatusPending
		}
	}
}
