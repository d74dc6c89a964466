package models

import "time"

// Alert is a short-lived notice shown to users. Alerts older than the
// retention window are pruned on every insertion path.
type Alert struct {
	BaseModel

	Type    string `gorm:"type:varchar(64);index" json:"type"`
	Title   string `gorm:"type:varchar(255)" json:"title,omitempty"`
	Message string `gorm:"type:text;not null" json:"message"`
	Source  string `gorm:"type:varchar(32)" json:"source,omitempty"`

	// Timestamp drives retention and ordering. For imported alerts it is the
	// upstream event time and may predate CreatedAt.
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}
