package models

import "time"

// Announcement is a durable notice. Reminder announcements additionally carry
// the assignment they were synthesized for; at most one reminder per
// assignment is kept (a newer one replaces the older).
type Announcement struct {
	BaseModel

	Type    string `gorm:"type:varchar(64);index" json:"type"`
	Title   string `gorm:"type:varchar(255);not null" json:"title"`
	Message string `gorm:"type:text" json:"message"`
	Source  string `gorm:"type:varchar(32)" json:"source,omitempty"`

	Timestamp time.Time  `gorm:"index;not null" json:"timestamp"`
	Deadline  *time.Time `json:"deadline,omitempty"`

	AssignmentID string `gorm:"type:varchar(64);index" json:"assignment_id,omitempty"`
}
