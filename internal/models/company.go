package models

// Company represents a customer organisation administered through the platform.
type Company struct {
	BaseModel

	Name               string `gorm:"not null;index" json:"name"`
	OrganizationNumber string `gorm:"uniqueIndex;not null" json:"organization_number"`
	ContactEmail       string `gorm:"index" json:"contact_email"`
	ContactPhone       string `json:"contact_phone"`
	Address            string `json:"address"`
	PostalCode         string `json:"postal_code"`
	City               string `json:"city"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	Users []User `gorm:"foreignKey:CompanyID" json:"users,omitempty"`
	Tasks []Task `gorm:"foreignKey:CompanyID" json:"-"`
}
