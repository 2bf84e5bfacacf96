package models

import "time"

// Report statuses shared by all compliance forms.
const (
	ReportStatusDraft     = "draft"
	ReportStatusSubmitted = "submitted"
	ReportStatusApproved  = "approved"
)

// ValidReportStatus reports whether the supplied status is recognised.
func ValidReportStatus(status string) bool {
	switch status {
	case ReportStatusDraft, ReportStatusSubmitted, ReportStatusApproved:
		return true
	}
	return false
}

// ReportBase carries the fields common to every compliance form.
type ReportBase struct {
	BaseModel

	CompanyID string   `gorm:"type:uuid;not null;index" json:"company_id"`
	Company   *Company `json:"company,omitempty"`

	EmployeeID string `gorm:"type:uuid;not null;index" json:"employee_id"`
	Employee   *User  `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`

	Status      string     `gorm:"not null;index;default:draft" json:"status"`
	SubmittedAt *time.Time `json:"submitted_at"`
	ApprovedAt  *time.Time `json:"approved_at"`
}

// Base exposes the shared report fields from any concrete form type.
func (r *ReportBase) Base() *ReportBase { return r }

// AccidentReport records a workplace accident.
type AccidentReport struct {
	ReportBase

	OccurredAt  time.Time `gorm:"not null;index" json:"occurred_at"`
	Location    string    `json:"location"`
	Description string    `gorm:"not null" json:"description"`
	InjuryType  string    `json:"injury_type"`

	ReportedToAuthorities bool `gorm:"default:false" json:"reported_to_authorities"`
}

// IllnessReport records a sick leave notification.
type IllnessReport struct {
	ReportBase

	StartDate   time.Time  `gorm:"not null;index" json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Description string     `json:"description"`

	DoctorCertified bool `gorm:"default:false" json:"doctor_certified"`
}

// StaffDepartureReport records an employee leaving a company.
type StaffDepartureReport struct {
	ReportBase

	LastWorkingDay time.Time `gorm:"not null;index" json:"last_working_day"`
	Reason         string    `gorm:"not null" json:"reason"`
	Notes          string    `json:"notes"`
}
