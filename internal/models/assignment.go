package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Assignment is a task with a due date. It may originate locally or be
// imported from the peer assignment service, in which case ExternalID holds
// the identifier assigned by that service.
type Assignment struct {
	BaseModel

	ExternalID  string    `gorm:"type:varchar(64);index" json:"external_id,omitempty"`
	Source      string    `gorm:"type:varchar(32);index" json:"source,omitempty"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Deadline    time.Time `gorm:"index;not null" json:"deadline"`
	Status      string    `gorm:"type:varchar(32);default:'Pending'" json:"status"`

	// ReminderSent is monotonic: once a due-date reminder has fired for this
	// assignment it is never cleared, even if the deadline changes.
	ReminderSent bool `gorm:"default:false" json:"reminder_sent"`

	AttachmentURL string         `gorm:"type:text" json:"attachment_url,omitempty"`
	Submission    datatypes.JSON `json:"submission,omitempty"`
}

// SubmissionInfo describes an uploaded submission attached to an assignment.
type SubmissionInfo struct {
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SubmissionDetails decodes the stored submission, if any.
func (a *Assignment) SubmissionDetails() *SubmissionInfo {
	if len(a.Submission) == 0 {
		return nil
	}
	var info SubmissionInfo
	if err := json.Unmarshal(a.Submission, &info); err != nil {
		return nil
	}
	return &info
}

// SetSubmission encodes and attaches submission details.
func (a *Assignment) SetSubmission(info SubmissionInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	a.Submission = datatypes.JSON(data)
	return nil
}

// ClearSubmission removes any stored submission.
func (a *Assignment) ClearSubmission() {
	a.Submission = nil
}

// IsLate reports whether the assignment is past due and not completed.
func (a *Assignment) IsLate(now time.Time) bool {
	return a.Deadline.Before(now) && a.Status != StatusCompleted
}
