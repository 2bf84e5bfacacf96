package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/workstead/workstead/internal/cache"
	"github.com/workstead/workstead/internal/listing"
	"github.com/workstead/workstead/internal/models"
	apperrors "github.com/workstead/workstead/pkg/errors"
)

var (
	// ErrReportNotFound indicates the requested report does not exist or is out of scope.
	ErrReportNotFound = apperrors.New("REPORT_NOT_FOUND", "Report not found", http.StatusNotFound)
	// ErrReportImmutable rejects edits to reports that have left the draft state.
	ErrReportImmutable = apperrors.New("REPORT_IMMUTABLE", "Submitted reports cannot be edited", http.StatusBadRequest)
)

// reportForm is satisfied by every concrete compliance form via ReportBase.
type reportForm interface {
	Base() *models.ReportBase
}

// CreateAccidentReportInput describes a new workplace accident report.
type CreateAccidentReportInput struct {
	CompanyID             string
	EmployeeID            string
	OccurredAt            time.Time
	Location              string
	Description           string
	InjuryType            string
	ReportedToAuthorities bool
}

// UpdateAccidentReportInput enumerates mutable accident report fields.
type UpdateAccidentReportInput struct {
	OccurredAt            *time.Time
	Location              *string
	Description           *string
	InjuryType            *string
	ReportedToAuthorities *bool
}

// CreateIllnessReportInput describes a new sick leave notification.
type CreateIllnessReportInput struct {
	CompanyID       string
	EmployeeID      string
	StartDate       time.Time
	EndDate         *time.Time
	Description     string
	DoctorCertified bool
}

// UpdateIllnessReportInput enumerates mutable illness report fields.
type UpdateIllnessReportInput struct {
	StartDate       *time.Time
	EndDate         *time.Time
	Description     *string
	DoctorCertified *bool
}

// CreateDepartureReportInput describes a new staff departure report.
type CreateDepartureReportInput struct {
	CompanyID      string
	EmployeeID     string
	LastWorkingDay time.Time
	Reason         string
	Notes          string
}

// UpdateDepartureReportInput enumerates mutable departure report fields.
type UpdateDepartureReportInput struct {
	LastWorkingDay *time.Time
	Reason         *string
	Notes          *string
}

var reportSortColumns = map[string]string{
	"status":     "status",
	"created_at": "created_at",
}

// ReportService manages the three compliance form types sharing the
// draft → submitted → approved lifecycle.
type ReportService struct {
	db    *gorm.DB
	cache cache.Store
	audit *AuditService
	now   func() time.Time
}

// NewReportService constructs a ReportService instance.
func NewReportService(db *gorm.DB, store cache.Store, audit *AuditService) (*ReportService, error) {
	if db == nil {
		return nil, errors.New("report service: db is required")
	}
	return &ReportService{db: db, cache: store, audit: audit, now: time.Now}, nil
}

// CreateAccident stores a new accident report in draft state.
func (s *ReportService) CreateAccident(ctx context.Context, scope Scope, input CreateAccidentReportInput) (*models.AccidentReport, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewBadRequest("description is required")
	}
	if input.OccurredAt.IsZero() {
		return nil, apperrors.NewBadRequest("occurred_at is required")
	}

	report := &models.AccidentReport{
		OccurredAt:            input.OccurredAt,
		Location:              strings.TrimSpace(input.Location),
		Description:           strings.TrimSpace(input.Description),
		InjuryType:            strings.TrimSpace(input.InjuryType),
		ReportedToAuthorities: input.ReportedToAuthorities,
	}
	if err := s.create(ctx, scope, report, input.CompanyID, input.EmployeeID, "report.accident.create", CachePrefixAccidentReports); err != nil {
		return nil, err
	}
	return report, nil
}

// CreateIllness stores a new illness report in draft state.
func (s *ReportService) CreateIllness(ctx context.Context, scope Scope, input CreateIllnessReportInput) (*models.IllnessReport, error) {
	ctx = ensureContext(ctx)

	if input.StartDate.IsZero() {
		return nil, apperrors.NewBadRequest("start_date is required")
	}
	if input.EndDate != nil && input.EndDate.Before(input.StartDate) {
		return nil, apperrors.NewBadRequest("end_date precedes start_date")
	}

	report := &models.IllnessReport{
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		Description:     strings.TrimSpace(input.Description),
		DoctorCertified: input.DoctorCertified,
	}
	if err := s.create(ctx, scope, report, input.CompanyID, input.EmployeeID, "report.illness.create", CachePrefixIllnessReports); err != nil {
		return nil, err
	}
	return report, nil
}

// CreateDeparture stores a new staff departure report in draft state.
func (s *ReportService) CreateDeparture(ctx context.Context, scope Scope, input CreateDepartureReportInput) (*models.StaffDepartureReport, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(input.Reason) == "" {
		return nil, apperrors.NewBadRequest("reason is required")
	}
	if input.LastWorkingDay.IsZero() {
		return nil, apperrors.NewBadRequest("last_working_day is required")
	}

	report := &models.StaffDepartureReport{
		LastWorkingDay: input.LastWorkingDay,
		Reason:         strings.TrimSpace(input.Reason),
		Notes:          strings.TrimSpace(input.Notes),
	}
	if err := s.create(ctx, scope, report, input.CompanyID, input.EmployeeID, "report.departure.create", CachePrefixDepartureReports); err != nil {
		return nil, err
	}
	return report, nil
}

// GetAccident loads an accident report visible to the caller.
func (s *ReportService) GetAccident(ctx context.Context, scope Scope, id string) (*models.AccidentReport, error) {
	var report models.AccidentReport
	if err := s.get(ctx, scope, id, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// GetIllness loads an illness report visible to the caller.
func (s *ReportService) GetIllness(ctx context.Context, scope Scope, id string) (*models.IllnessReport, error) {
	var report models.IllnessReport
	if err := s.get(ctx, scope, id, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// GetDeparture loads a departure report visible to the caller.
func (s *ReportService) GetDeparture(ctx context.Context, scope Scope, id string) (*models.StaffDepartureReport, error) {
	var report models.StaffDepartureReport
	if err := s.get(ctx, scope, id, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListAccidents retrieves accident reports for the caller's scope.
func (s *ReportService) ListAccidents(ctx context.Context, scope Scope, params listing.Params) ([]models.AccidentReport, int64, error) {
	return listReports[models.AccidentReport](s, ctx, scope, params, "description", "location", "injury_type")
}

// ListIllnesses retrieves illness reports for the caller's scope.
func (s *ReportService) ListIllnesses(ctx context.Context, scope Scope, params listing.Params) ([]models.IllnessReport, int64, error) {
	return listReports[models.IllnessReport](s, ctx, scope, params, "description")
}

// ListDepartures retrieves departure reports for the caller's scope.
func (s *ReportService) ListDepartures(ctx context.Context, scope Scope, params listing.Params) ([]models.StaffDepartureReport, int64, error) {
	return listReports[models.StaffDepartureReport](s, ctx, scope, params, "reason", "notes")
}

// UpdateAccident edits a draft accident report.
func (s *ReportService) UpdateAccident(ctx context.Context, scope Scope, id string, input UpdateAccidentReportInput) (*models.AccidentReport, error) {
	report, err := s.GetAccident(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.OccurredAt != nil {
		updates["occurred_at"] = *input.OccurredAt
	}
	if input.Location != nil {
		updates["location"] = strings.TrimSpace(*input.Location)
	}
	if input.Description != nil {
		if desc := strings.TrimSpace(*input.Description); desc != "" {
			updates["description"] = desc
		}
	}
	if input.InjuryType != nil {
		updates["injury_type"] = strings.TrimSpace(*input.InjuryType)
	}
	if input.ReportedToAuthorities != nil {
		updates["reported_to_authorities"] = *input.ReportedToAuthorities
	}

	if err := s.update(ctx, scope, report, updates, "report.accident.update", CachePrefixAccidentReports); err != nil {
		return nil, err
	}
	return report, nil
}

// UpdateIllness edits a draft illness report.
func (s *ReportService) UpdateIllness(ctx context.Context, scope Scope, id string, input UpdateIllnessReportInput) (*models.IllnessReport, error) {
	report, err := s.GetIllness(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.StartDate != nil {
		updates["start_date"] = *input.StartDate
	}
	if input.EndDate != nil {
		updates["end_date"] = *input.EndDate
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.DoctorCertified != nil {
		updates["doctor_certified"] = *input.DoctorCertified
	}

	if err := s.update(ctx, scope, report, updates, "report.illness.update", CachePrefixIllnessReports); err != nil {
		return nil, err
	}
	return report, nil
}

// UpdateDeparture edits a draft departure report.
func (s *ReportService) UpdateDeparture(ctx context.Context, scope Scope, id string, input UpdateDepartureReportInput) (*models.StaffDepartureReport, error) {
	report, err := s.GetDeparture(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.LastWorkingDay != nil {
		updates["last_working_day"] = *input.LastWorkingDay
	}
	if input.Reason != nil {
		if reason := strings.TrimSpace(*input.Reason); reason != "" {
			updates["reason"] = reason
		}
	}
	if input.Notes != nil {
		updates["notes"] = strings.TrimSpace(*input.Notes)
	}

	if err := s.update(ctx, scope, report, updates, "report.departure.update", CachePrefixDepartureReports); err != nil {
		return nil, err
	}
	return report, nil
}

// SubmitAccident moves a draft accident report to the submitted state.
func (s *ReportService) SubmitAccident(ctx context.Context, scope Scope, id string) (*models.AccidentReport, error) {
	report, err := s.GetAccident(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := s.submit(ctx, scope, report, "report.accident.submit", CachePrefixAccidentReports); err != nil {
		return nil, err
	}
	return report, nil
}

// SubmitIllness moves a draft illness report to the submitted state.
func (s *ReportService) SubmitIllness(ctx context.Context, scope Scope, id string) (*models.IllnessReport, error) {
	report, err := s.GetIllness(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := s.submit(ctx, scope, report, "report.illness.submit", CachePrefixIllnessReports); err != nil {
		return nil, err
	}
	return report, nil
}

// SubmitDeparture moves a draft departure report to the submitted state.
func (s *ReportService) SubmitDeparture(ctx context.Context, scope Scope, id string) (*models.StaffDepartureReport, error) {
	report, err := s.GetDeparture(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := s.submit(ctx, scope, report, "report.departure.submit", CachePrefixDepartureReports); err != nil {
		return nil, err
	}
	return report, nil
}

// ApproveAccident marks a submitted accident report as approved. Admin only.
func (s *ReportService) ApproveAccident(ctx context.Context, scope Scope, id string) (*models.AccidentReport, error) {
	report, err := s.GetAccident(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := s.approve(ctx, scope, report, "report.accident.approve", CachePrefixAccidentReports); err != nil {
		return nil, err
	}
	return report, nil
}

// ApproveIllness marks a submitted illness report as approved. Admin only.
func (s *ReportService) ApproveIllness(ctx context.Context, scope Scope, id string) (*models.IllnessReport, error) {
	report, err := s.GetIllness(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := s.approve(ctx, scope, report, "report.illness.approve", CachePrefixIllnessReports); err != nil {
		return nil, err
	}
	return report, nil
}

// ApproveDeparture marks a submitted departure report as approved. Admin only.
func (s *ReportService) ApproveDeparture(ctx context.Context, scope Scope, id string) (*models.StaffDepartureReport, error) {
	report, err := s.GetDeparture(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := s.approve(ctx, scope, report, "report.departure.approve", CachePrefixDepartureReports); err != nil {
		return nil, err
	}
	return report, nil
}

// DeleteAccident removes a draft accident report.
func (s *ReportService) DeleteAccident(ctx context.Context, scope Scope, id string) error {
	report, err := s.GetAccident(ctx, scope, id)
	if err != nil {
		return err
	}
	return s.delete(ctx, scope, report, "report.accident.delete", CachePrefixAccidentReports)
}

// DeleteIllness removes a draft illness report.
func (s *ReportService) DeleteIllness(ctx context.Context, scope Scope, id string) error {
	report, err := s.GetIllness(ctx, scope, id)
	if err != nil {
		return err
	}
	return s.delete(ctx, scope, report, "report.illness.delete", CachePrefixIllnessReports)
}

// DeleteDeparture removes a draft departure report.
func (s *ReportService) DeleteDeparture(ctx context.Context, scope Scope, id string) error {
	report, err := s.GetDeparture(ctx, scope, id)
	if err != nil {
		return err
	}
	return s.delete(ctx, scope, report, "report.departure.delete", CachePrefixDepartureReports)
}

func (s *ReportService) create(ctx context.Context, scope Scope, report reportForm, companyID, employeeID, action, prefix string) error {
	companyID = scope.companyFor(companyID)
	if companyID == "" {
		return apperrors.NewBadRequest("company id is required")
	}

	employeeID = strings.TrimSpace(employeeID)
	if !scope.isSuperAdmin() && !scope.isCompanyAdmin() {
		// Employees always file for themselves.
		employeeID = scope.UserID
	}
	if employeeID == "" {
		return apperrors.NewBadRequest("employee id is required")
	}

	base := report.Base()
	base.CompanyID = companyID
	base.EmployeeID = employeeID
	base.Status = models.ReportStatusDraft

	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("report service: create report: %w", err)
	}

	invalidatePrefixes(s.cache, ctx, prefix, CachePrefixDashboard)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   auditUser(scope),
		Action:   action,
		Resource: base.ID,
		Result:   "success",
		Metadata: map[string]any{"company_id": companyID, "employee_id": employeeID},
	})
	return nil
}

func (s *ReportService) get(ctx context.Context, scope Scope, id string, dest reportForm) error {
	ctx = ensureContext(ctx)

	query := s.reportScope(s.db.WithContext(ctx), scope).Preload("Employee")
	err := query.First(dest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrReportNotFound
	}
	if err != nil {
		return fmt.Errorf("report service: get report: %w", err)
	}
	return nil
}

func listReports[T any](s *ReportService, ctx context.Context, scope Scope, params listing.Params, primary string, extra ...string) ([]T, int64, error) {
	ctx = ensureContext(ctx)
	params = params.Normalize()

	var model T
	query := s.reportScope(s.db.WithContext(ctx).Model(&model), scope)

	if models.ValidReportStatus(params.Status) {
		query = query.Where("status = ?", params.Status)
	}

	query = listing.ApplySearch(query, params.Search, primary, extra...)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("report service: count reports: %w", err)
	}

	var reports []T
	if err := listing.ApplySort(query, params, reportSortColumns, "created_at").
		Offset(params.Offset()).
		Limit(params.PageSize).
		Preload("Employee").
		Find(&reports).Error; err != nil {
		return nil, 0, fmt.Errorf("report service: list reports: %w", err)
	}

	return reports, total, nil
}

func (s *ReportService) update(ctx context.Context, scope Scope, report reportForm, updates map[string]any, action, prefix string) error {
	ctx = ensureContext(ctx)
	base := report.Base()

	if base.Status != models.ReportStatusDraft {
		return ErrReportImmutable
	}
	if len(updates) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Model(report).Updates(updates).Error; err != nil {
		return fmt.Errorf("report service: update report: %w", err)
	}
	if err := s.db.WithContext(ctx).First(report, "id = ?", base.ID).Error; err != nil {
		return fmt.Errorf("report service: reload report: %w", err)
	}

	invalidatePrefixes(s.cache, ctx, prefix, CachePrefixDashboard)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   auditUser(scope),
		Action:   action,
		Resource: base.ID,
		Result:   "success",
		Metadata: updates,
	})
	return nil
}

func (s *ReportService) submit(ctx context.Context, scope Scope, report reportForm, action, prefix string) error {
	ctx = ensureContext(ctx)
	base := report.Base()

	if base.Status != models.ReportStatusDraft {
		return apperrors.NewBadRequest("only draft reports can be submitted")
	}

	now := s.now()
	updates := map[string]any{"status": models.ReportStatusSubmitted, "submitted_at": now}
	if err := s.db.WithContext(ctx).Model(report).Updates(updates).Error; err != nil {
		return fmt.Errorf("report service: submit report: %w", err)
	}
	base.Status = models.ReportStatusSubmitted
	base.SubmittedAt = &now

	invalidatePrefixes(s.cache, ctx, prefix, CachePrefixDashboard)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   auditUser(scope),
		Action:   action,
		Resource: base.ID,
		Result:   "success",
	})
	return nil
}

func (s *ReportService) approve(ctx context.Context, scope Scope, report reportForm, action, prefix string) error {
	ctx = ensureContext(ctx)
	base := report.Base()

	if !scope.isSuperAdmin() && !scope.isCompanyAdmin() {
		return apperrors.ErrForbidden
	}
	if base.Status != models.ReportStatusSubmitted {
		return apperrors.NewBadRequest("only submitted reports can be approved")
	}

	now := s.now()
	updates := map[string]any{"status": models.ReportStatusApproved, "approved_at": now}
	if err := s.db.WithContext(ctx).Model(report).Updates(updates).Error; err != nil {
		return fmt.Errorf("report service: approve report: %w", err)
	}
	base.Status = models.ReportStatusApproved
	base.ApprovedAt = &now

	invalidatePrefixes(s.cache, ctx, prefix, CachePrefixDashboard)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   auditUser(scope),
		Action:   action,
		Resource: base.ID,
		Result:   "success",
	})
	return nil
}

func (s *ReportService) delete(ctx context.Context, scope Scope, report reportForm, action, prefix string) error {
	ctx = ensureContext(ctx)
	base := report.Base()

	// Draft reports can be withdrawn by their author; anything later needs an admin.
	if base.Status != models.ReportStatusDraft && !scope.isSuperAdmin() && !scope.isCompanyAdmin() {
		return apperrors.ErrForbidden
	}

	if err := s.db.WithContext(ctx).Where("id = ?", base.ID).Delete(report).Error; err != nil {
		return fmt.Errorf("report service: delete report: %w", err)
	}

	invalidatePrefixes(s.cache, ctx, prefix, CachePrefixDashboard)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   auditUser(scope),
		Action:   action,
		Resource: base.ID,
		Result:   "success",
	})
	return nil
}

func (s *ReportService) reportScope(query *gorm.DB, scope Scope) *gorm.DB {
	return applyReportScope(query, scope)
}
