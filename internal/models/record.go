package models

// Record sources. An empty source means the record was created locally and
// is authoritative; imported records carry the name of the system that owns
// them and are subject to the tombstone sweep for that system.
const (
	SourceLocal = ""
	SourcePeer  = "external"
	SourceFeed  = "collegeconnect"
)

// Assignment statuses.
const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
)

// Record kinds shared across alerts and announcements.
const (
	KindAssignment    = "assignment"
	KindNewAssignment = "new_assignment"
	KindReminder      = "reminder"
	KindSync          = "sync"
	KindManual        = "manual"
	KindGeneral       = "general"
	KindInfo          = "info"
)
