package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/workstead/workstead/internal/cache"
	"github.com/workstead/workstead/internal/listing"
	"github.com/workstead/workstead/internal/models"
	apperrors "github.com/workstead/workstead/pkg/errors"
)

// ErrCompanyNotFound indicates the requested company does not exist or is out of scope.
var ErrCompanyNotFound = apperrors.New("COMPANY_NOT_FOUND", "Company not found", http.StatusNotFound)

// CreateCompanyInput describes the fields accepted when registering a company.
type CreateCompanyInput struct {
	Name               string
	OrganizationNumber string
	ContactEmail       string
	ContactPhone       string
	Address            string
	PostalCode         string
	City               string
}

// UpdateCompanyInput enumerates mutable company attributes.
type UpdateCompanyInput struct {
	Name         *string
	ContactEmail *string
	ContactPhone *string
	Address      *string
	PostalCode   *string
	City         *string
	IsActive     *bool
}

var companySortColumns = map[string]string{
	"name":       "name",
	"city":       "city",
	"created_at": "created_at",
}

// CompanyService manages the customer organisation registry.
type CompanyService struct {
	db    *gorm.DB
	cache cache.Store
	audit *AuditService
}

// NewCompanyService constructs a CompanyService instance.
func NewCompanyService(db *gorm.DB, store cache.Store, audit *AuditService) (*CompanyService, error) {
	if db == nil {
		return nil, errors.New("company service: db is required")
	}
	return &CompanyService{db: db, cache: store, audit: audit}, nil
}

// Create registers a new company. Only super admins may create companies.
func (s *CompanyService) Create(ctx context.Context, scope Scope, input CreateCompanyInput) (*models.Company, error) {
	ctx = ensureContext(ctx)

	if !scope.isSuperAdmin() {
		return nil, apperrors.ErrForbidden
	}

	name := strings.TrimSpace(input.Name)
	orgNumber := strings.TrimSpace(input.OrganizationNumber)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if orgNumber == "" {
		return nil, apperrors.NewBadRequest("organization number is required")
	}

	company := &models.Company{
		Name:               name,
		OrganizationNumber: orgNumber,
		ContactEmail:       strings.ToLower(strings.TrimSpace(input.ContactEmail)),
		ContactPhone:       strings.TrimSpace(input.ContactPhone),
		Address:            strings.TrimSpace(input.Address),
		PostalCode:         strings.TrimSpace(input.PostalCode),
		City:               strings.TrimSpace(input.City),
		IsActive:           true,
	}

	if err := s.db.WithContext(ctx).Create(company).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("organization number already registered")
		}
		return nil, fmt.Errorf("company service: create company: %w", err)
	}

	invalidatePrefixes(s.cache, ctx, CachePrefixCompanies, CachePrefixDashboard)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   auditUser(scope),
		Action:   "company.create",
		Resource: company.ID,
		Result:   "success",
		Metadata: map[string]any{"name": company.Name, "organization_number": company.OrganizationNumber},
	})

	return company, nil
}

// GetByID loads a company visible to the caller.
func (s *CompanyService) GetByID(ctx context.Context, scope Scope, id string) (*models.Company, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx)
	if !scope.isSuperAdmin() {
		// Non-super users may only read their own company.
		query = query.Where("id = ?", scope.CompanyID)
	}

	var company models.Company
	err := query.First(&company, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("company service: get company: %w", err)
	}
	return &company, nil
}

// List retrieves companies matching the supplied query state with pagination.
// The search term matches the company name alone while short, then widens to
// organization number, contact email and city.
func (s *CompanyService) List(ctx context.Context, scope Scope, params listing.Params) ([]models.Company, int64, error) {
	ctx = ensureContext(ctx)
	params = params.Normalize()

	query := s.db.WithContext(ctx).Model(&models.Company{})
	if !scope.isSuperAdmin() {
		query = query.Where("id = ?", scope.CompanyID)
	}

	switch params.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}

	query = listing.ApplySearch(query, params.Search, "name", "organization_number", "contact_email", "city")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("company service: count companies: %w", err)
	}

	var companies []models.Company
	if err := listing.ApplySort(query, params, companySortColumns, "created_at").
		Offset(params.Offset()).
		Limit(params.PageSize).
		Find(&companies).Error; err != nil {
		return nil, 0, fmt.Errorf("company service: list companies: %w", err)
	}

	return companies, total, nil
}

// Update persists mutable attributes for an existing company.
func (s *CompanyService) Update(ctx context.Context, scope Scope, id string, input UpdateCompanyInput) (*models.Company, error) {
	ctx = ensureContext(ctx)

	if !scope.isSuperAdmin() && !(scope.isCompanyAdmin() && scope.CompanyID == id) {
		return nil, apperrors.ErrForbidden
	}

	var company models.Company
	err := s.db.WithContext(ctx).First(&company, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("company service: load company: %w", err)
	}

	updates := map[string]any{}
	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" && name != company.Name {
			updates["name"] = name
		}
	}
	if input.ContactEmail != nil {
		updates["contact_email"] = strings.ToLower(strings.TrimSpace(*input.ContactEmail))
	}
	if input.ContactPhone != nil {
		updates["contact_phone"] = strings.TrimSpace(*input.ContactPhone)
	}
	if input.Address != nil {
		updates["address"] = strings.TrimSpace(*input.Address)
	}
	if input.PostalCode != nil {
		updates["postal_code"] = strings.TrimSpace(*input.PostalCode)
	}
	if input.City != nil {
		updates["city"] = strings.TrimSpace(*input.City)
	}
	if input.IsActive != nil {
		// Deactivation is reserved for platform operators.
		if !scope.isSuperAdmin() {
			return nil, apperrors.ErrForbidden
		}
		updates["is_active"] = *input.IsActive
	}

	if len(updates) == 0 {
		return &company, nil
	}

	if err := s.db.WithContext(ctx).Model(&company).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("company service: update company: %w", err)
	}
	if err := s.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("company service: reload company: %w", err)
	}

	invalidatePrefixes(s.cache, ctx, CachePrefixCompanies, CachePrefixDashboard)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   auditUser(scope),
		Action:   "company.update",
		Resource: company.ID,
		Result:   "success",
		Metadata: updates,
	})

	return &company, nil
}

// Delete removes a company and is restricted to super admins.
func (s *CompanyService) Delete(ctx context.Context, scope Scope, id string) error {
	ctx = ensureContext(ctx)

	if !scope.isSuperAdmin() {
		return apperrors.ErrForbidden
	}

	result := s.db.WithContext(ctx).Delete(&models.Company{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("company service: delete company: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCompanyNotFound
	}

	invalidatePrefixes(s.cache, ctx, CachePrefixCompanies, CachePrefixDashboard)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   auditUser(scope),
		Action:   "company.delete",
		Resource: id,
		Result:   "success",
	})

	return nil
}

func auditUser(scope Scope) *string {
	if strings.TrimSpace(scope.UserID) == "" {
		return nil
	}
	id := scope.UserID
	return &id
}
