package models

import "time"

// Task statuses.
const (
	TaskStatusOpen       = "open"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

// ValidTaskStatus reports whether the supplied status is recognised.
func ValidTaskStatus(status string) bool {
	switch status {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Task is a unit of work assigned within a company.
type Task struct {
	BaseModel

	CompanyID string   `gorm:"type:uuid;not null;index" json:"company_id"`
	Company   *Company `json:"company,omitempty"`

	AssigneeID *string `gorm:"type:uuid;index" json:"assignee_id"`
	Assignee   *User   `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Status      string `gorm:"not null;index;default:open" json:"status"`

	DueAt       *time.Time `gorm:"index" json:"due_at"`
	CompletedAt *time.Time `json:"completed_at"`
}
