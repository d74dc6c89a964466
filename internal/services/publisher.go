package services

// Publisher fans events out to realtime subscribers. The websocket hub
// satisfies it in production; tests substitute a recording fake.
type Publisher interface {
	Publish(stream, event string, data any)
}

// Event names emitted on the realtime streams.
const (
	EventAssignmentCreated   = "assignment.created"
	EventAssignmentSubmitted = "assignment.submitted"
	EventAssignmentsChanged  = "assignments.changed"
	EventAlertCreated        = "alert.created"
	EventAnnouncementCreated = "announcement.created"
	EventReminderFired       = "reminder.fired"
	EventSyncCompleted       = "sync.completed"
	EventUploadRemoved       = "upload.removed"
)

func publish(p Publisher, stream, event string, data any) {
	if p == nil {
		return
	}
	p.Publish(stream, event, data)
}
