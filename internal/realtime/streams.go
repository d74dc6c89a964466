package realtime

// Named realtime streams used across the platform.
const (
	StreamAssignments   = "assignments"
	StreamAlerts        = "alerts"
	StreamAnnouncements = "announcements"
	StreamSync          = "sync"
)

// AllStreams lists every stream a client may subscribe to.
func AllStreams() []string {
	return []string{StreamAssignments, StreamAlerts, StreamAnnouncements, StreamSync}
}
