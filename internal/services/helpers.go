package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/workstead/workstead/internal/cache"
	"github.com/workstead/workstead/internal/models"
)

// Cache key prefixes, one per entity family. Listing keys are built from
// these via listing.Params.CacheKey; mutations invalidate the whole family.
const (
	CachePrefixCompanies        = "companies"
	CachePrefixUsers            = "users"
	CachePrefixTasks            = "tasks"
	CachePrefixAccidentReports  = "reports_accident"
	CachePrefixIllnessReports   = "reports_illness"
	CachePrefixDepartureReports = "reports_departure"
	CachePrefixDashboard        = "dashboard"
)

// Scope identifies the caller for row-level visibility decisions. Super
// admins see everything, company admins their company, employees only rows
// that reference them directly.
type Scope struct {
	UserID    string
	Role      string
	CompanyID string
}

// SuperAdminScope grants unrestricted visibility, used by maintenance jobs
// and the bootstrap path.
func SuperAdminScope() Scope {
	return Scope{Role: models.RoleSuperAdmin}
}

func (s Scope) isSuperAdmin() bool {
	return s.Role == models.RoleSuperAdmin
}

func (s Scope) isCompanyAdmin() bool {
	return s.Role == models.RoleCompanyAdmin
}

// companyFor resolves the company id a company-scoped operation should use,
// preferring an explicit request value for super admins.
func (s Scope) companyFor(requested string) string {
	requested = strings.TrimSpace(requested)
	if s.isSuperAdmin() {
		return requested
	}
	return s.CompanyID
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// invalidatePrefixes drops every cached listing under the given prefixes.
// Cache failures never fail the mutation that triggered them.
func invalidatePrefixes(store cache.Store, ctx context.Context, prefixes ...string) {
	if store == nil {
		return
	}
	for _, prefix := range prefixes {
		_ = store.InvalidatePrefix(ctx, prefix+"_")
	}
}

func applyCompanyScope(query *gorm.DB, scope Scope) *gorm.DB {
	if scope.isSuperAdmin() {
		return query
	}
	return query.Where("company_id = ?", scope.CompanyID)
}

// applyUserScope narrows a user query to the rows the caller may see: all for
// super admins, the company roster for company admins, only themselves for
// employees. Listings and dashboard counts share this rule.
func applyUserScope(query *gorm.DB, scope Scope) *gorm.DB {
	switch {
	case scope.isSuperAdmin():
		return query
	case scope.isCompanyAdmin():
		return query.Where("company_id = ?", scope.CompanyID)
	default:
		return query.Where("id = ?", scope.UserID)
	}
}

// applyTaskScope narrows a task query the same way: employees see only tasks
// assigned to them.
func applyTaskScope(query *gorm.DB, scope Scope) *gorm.DB {
	switch {
	case scope.isSuperAdmin():
		return query
	case scope.isCompanyAdmin():
		return query.Where("company_id = ?", scope.CompanyID)
	default:
		return query.Where("assignee_id = ?", scope.UserID)
	}
}

// applyReportScope narrows a report query: employees see only reports filed
// about them.
func applyReportScope(query *gorm.DB, scope Scope) *gorm.DB {
	switch {
	case scope.isSuperAdmin():
		return query
	case scope.isCompanyAdmin():
		return query.Where("company_id = ?", scope.CompanyID)
	default:
		return query.Where("employee_id = ?", scope.UserID)
	}
}
