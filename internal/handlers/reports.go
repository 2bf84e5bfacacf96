package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/workstead/workstead/internal/listing"
	"github.com/workstead/workstead/internal/query"
	"github.com/workstead/workstead/internal/services"
	"github.com/workstead/workstead/pkg/response"
)

// ReportHandler serves the three compliance form types. Every form shares the
// draft, submitted, approved lifecycle but carries its own fields, so each
// gets its own typed request payloads and routes.
type ReportHandler struct {
	svc   *services.ReportService
	query *query.Executor
}

// NewReportHandler constructs a ReportHandler instance.
func NewReportHandler(svc *services.ReportService, executor *query.Executor) (*ReportHandler, error) {
	if svc == nil {
		return nil, errors.New("report handler: service is required")
	}
	if executor == nil {
		return nil, errors.New("report handler: query executor is required")
	}
	return &ReportHandler{svc: svc, query: executor}, nil
}

type createAccidentReportRequest struct {
	CompanyID             string    `json:"company_id" validate:"omitempty,uuid4"`
	EmployeeID            string    `json:"employee_id" validate:"omitempty,uuid4"`
	OccurredAt            time.Time `json:"occurred_at" validate:"required"`
	Location              string    `json:"location" validate:"required,max=256"`
	Description           string    `json:"description" validate:"required,max=4096"`
	InjuryType            string    `json:"injury_type" validate:"omitempty,max=128"`
	ReportedToAuthorities bool      `json:"reported_to_authorities"`
}

type updateAccidentReportRequest struct {
	OccurredAt            *time.Time `json:"occurred_at"`
	Location              *string    `json:"location" validate:"omitempty,max=256"`
	Description           *string    `json:"description" validate:"omitempty,max=4096"`
	InjuryType            *string    `json:"injury_type" validate:"omitempty,max=128"`
	ReportedToAuthorities *bool      `json:"reported_to_authorities"`
}

type createIllnessReportRequest struct {
	CompanyID       string     `json:"company_id" validate:"omitempty,uuid4"`
	EmployeeID      string     `json:"employee_id" validate:"omitempty,uuid4"`
	StartDate       time.Time  `json:"start_date" validate:"required"`
	EndDate         *time.Time `json:"end_date"`
	Description     string     `json:"description" validate:"omitempty,max=4096"`
	DoctorCertified bool       `json:"doctor_certified"`
}

type updateIllnessReportRequest struct {
	StartDate       *time.Time `json:"start_date"`
	EndDate         *time.Time `json:"end_date"`
	Description     *string    `json:"description" validate:"omitempty,max=4096"`
	DoctorCertified *bool      `json:"doctor_certified"`
}

type createDepartureReportRequest struct {
	CompanyID      string    `json:"company_id" validate:"omitempty,uuid4"`
	EmployeeID     string    `json:"employee_id" validate:"omitempty,uuid4"`
	LastWorkingDay time.Time `json:"last_working_day" validate:"required"`
	Reason         string    `json:"reason" validate:"required,max=256"`
	Notes          string    `json:"notes" validate:"omitempty,max=4096"`
}

type updateDepartureReportRequest struct {
	LastWorkingDay *time.Time `json:"last_working_day"`
	Reason         *string    `json:"reason" validate:"omitempty,max=256"`
	Notes          *string    `json:"notes" validate:"omitempty,max=4096"`
}

// GET /api/reports/accident
func (h *ReportHandler) ListAccidents(c *gin.Context) {
	listReports(h, c, services.CachePrefixAccidentReports, h.svc.ListAccidents)
}

// GET /api/reports/illness
func (h *ReportHandler) ListIllnesses(c *gin.Context) {
	listReports(h, c, services.CachePrefixIllnessReports, h.svc.ListIllnesses)
}

// GET /api/reports/departure
func (h *ReportHandler) ListDepartures(c *gin.Context) {
	listReports(h, c, services.CachePrefixDepartureReports, h.svc.ListDepartures)
}

// listReports runs the shared cached-list flow for one form type.
func listReports[T any](h *ReportHandler, c *gin.Context, prefix string, list func(ctx context.Context, scope services.Scope, params listing.Params) ([]T, int64, error)) {
	scope := currentScope(c)
	params := parseListingParams(c)
	key := listCacheKey(prefix, scope, params)

	payload, result, err := query.FetchJSON(requestContext(c), h.query, key, query.Options{
		ForceRefresh: forceRefresh(c),
		CriticalData: true,
	}, func(ctx context.Context) (listPayload[T], error) {
		items, total, err := list(ctx, scope, params)
		if err != nil {
			return listPayload[T]{}, err
		}
		return listPayload[T]{Items: items, Total: total}, nil
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, payload.Items, listMeta(params, payload.Total, result))
}

// GET /api/reports/accident/:id
func (h *ReportHandler) GetAccident(c *gin.Context) {
	report, err := h.svc.GetAccident(requestContext(c), currentScope(c), c.Param("id"))
	respond(c, report, err)
}

// GET /api/reports/illness/:id
func (h *ReportHandler) GetIllness(c *gin.Context) {
	report, err := h.svc.GetIllness(requestContext(c), currentScope(c), c.Param("id"))
	respond(c, report, err)
}

// GET /api/reports/departure/:id
func (h *ReportHandler) GetDeparture(c *gin.Context) {
	report, err := h.svc.GetDeparture(requestContext(c), currentScope(c), c.Param("id"))
	respond(c, report, err)
}

// POST /api/reports/accident
func (h *ReportHandler) CreateAccident(c *gin.Context) {
	var body createAccidentReportRequest
	if !bindAndValidate(c, &body) {
		return
	}

	report, err := h.svc.CreateAccident(requestContext(c), currentScope(c), services.CreateAccidentReportInput{
		CompanyID:             body.CompanyID,
		EmployeeID:            body.EmployeeID,
		OccurredAt:            body.OccurredAt,
		Location:              body.Location,
		Description:           body.Description,
		InjuryType:            body.InjuryType,
		ReportedToAuthorities: body.ReportedToAuthorities,
	})
	respondCreated(c, report, err)
}

// POST /api/reports/illness
func (h *ReportHandler) CreateIllness(c *gin.Context) {
	var body createIllnessReportRequest
	if !bindAndValidate(c, &body) {
		return
	}

	report, err := h.svc.CreateIllness(requestContext(c), currentScope(c), services.CreateIllnessReportInput{
		CompanyID:       body.CompanyID,
		EmployeeID:      body.EmployeeID,
		StartDate:       body.StartDate,
		EndDate:         body.EndDate,
		Description:     body.Description,
		DoctorCertified: body.DoctorCertified,
	})
	respondCreated(c, report, err)
}

// POST /api/reports/departure
func (h *ReportHandler) CreateDeparture(c *gin.Context) {
	var body createDepartureReportRequest
	if !bindAndValidate(c, &body) {
		return
	}

	report, err := h.svc.CreateDeparture(requestContext(c), currentScope(c), services.CreateDepartureReportInput{
		CompanyID:      body.CompanyID,
		EmployeeID:     body.EmployeeID,
		LastWorkingDay: body.LastWorkingDay,
		Reason:         body.Reason,
		Notes:          body.Notes,
	})
	respondCreated(c, report, err)
}

// PATCH /api/reports/accident/:id
func (h *ReportHandler) UpdateAccident(c *gin.Context) {
	var body updateAccidentReportRequest
	if !bindAndValidate(c, &body) {
		return
	}

	report, err := h.svc.UpdateAccident(requestContext(c), currentScope(c), c.Param("id"), services.UpdateAccidentReportInput{
		OccurredAt:            body.OccurredAt,
		Location:              body.Location,
		Description:           body.Description,
		InjuryType:            body.InjuryType,
		ReportedToAuthorities: body.ReportedToAuthorities,
	})
	respond(c, report, err)
}

// PATCH /api/reports/illness/:id
func (h *ReportHandler) UpdateIllness(c *gin.Context) {
	var body updateIllnessReportRequest
	if !bindAndValidate(c, &body) {
		return
	}

	report, err := h.svc.UpdateIllness(requestContext(c), currentScope(c), c.Param("id"), services.UpdateIllnessReportInput{
		StartDate:       body.StartDate,
		EndDate:         body.EndDate,
		Description:     body.Description,
		DoctorCertified: body.DoctorCertified,
	})
	respond(c, report, err)
}

// PATCH /api/reports/departure/:id
func (h *ReportHandler) UpdateDeparture(c *gin.Context) {
	var body updateDepartureReportRequest
	if !bindAndValidate(c, &body) {
		return
	}

	report, err := h.svc.UpdateDeparture(requestContext(c), currentScope(c), c.Param("id"), services.UpdateDepartureReportInput{
		LastWorkingDay: body.LastWorkingDay,
		Reason:         body.Reason,
		Notes:          body.Notes,
	})
	respond(c, report, err)
}

// POST /api/reports/accident/:id/submit
func (h *ReportHandler) SubmitAccident(c *gin.Context) {
	report, err := h.svc.SubmitAccident(requestContext(c), currentScope(c), c.Param("id"))
	respond(c, report, err)
}

// POST /api/reports/illness/:id/submit
func (h *ReportHandler) SubmitIllness(c *gin.Context) {
	report, err := h.svc.SubmitIllness(requestContext(c), currentScope(c), c.Param("id"))
	respond(c, report, err)
}

// POST /api/reports/departure/:id/submit
func (h *ReportHandler) SubmitDeparture(c *gin.Context) {
	report, err := h.svc.SubmitDeparture(requestContext(c), currentScope(c), c.Param("id"))
	respond(c, report, err)
}

// POST /api/reports/accident/:id/approve
func (h *ReportHandler) ApproveAccident(c *gin.Context) {
	report, err := h.svc.ApproveAccident(requestContext(c), currentScope(c), c.Param("id"))
	respond(c, report, err)
}

// POST /api/reports/illness/:id/approve
func (h *ReportHandler) ApproveIllness(c *gin.Context) {
	report, err := h.svc.ApproveIllness(requestContext(c), currentScope(c), c.Param("id"))
	respond(c, report, err)
}

// POST /api/reports/departure/:id/approve
func (h *ReportHandler) ApproveDeparture(c *gin.Context) {
	report, err := h.svc.ApproveDeparture(requestContext(c), currentScope(c), c.Param("id"))
	respond(c, report, err)
}

// DELETE /api/reports/accident/:id
func (h *ReportHandler) DeleteAccident(c *gin.Context) {
	respondDeleted(c, h.svc.DeleteAccident(requestContext(c), currentScope(c), c.Param("id")))
}

// DELETE /api/reports/illness/:id
func (h *ReportHandler) DeleteIllness(c *gin.Context) {
	respondDeleted(c, h.svc.DeleteIllness(requestContext(c), currentScope(c), c.Param("id")))
}

// DELETE /api/reports/departure/:id
func (h *ReportHandler) DeleteDeparture(c *gin.Context) {
	respondDeleted(c, h.svc.DeleteDeparture(requestContext(c), currentScope(c), c.Param("id")))
}

func respond[T any](c *gin.Context, value *T, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, value)
}

func respondCreated[T any](c *gin.Context, value *T, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, value)
}

func respondDeleted(c *gin.Context, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
