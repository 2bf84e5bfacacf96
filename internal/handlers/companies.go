package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/workstead/workstead/internal/models"
	"github.com/workstead/workstead/internal/query"
	"github.com/workstead/workstead/internal/services"
	"github.com/workstead/workstead/pkg/response"
)

// CompanyHandler serves the customer organisation registry.
type CompanyHandler struct {
	svc   *services.CompanyService
	query *query.Executor
}

// NewCompanyHandler constructs a CompanyHandler instance.
func NewCompanyHandler(svc *services.CompanyService, executor *query.Executor) (*CompanyHandler, error) {
	if svc == nil {
		return nil, errors.New("company handler: service is required")
	}
	if executor == nil {
		return nil, errors.New("company handler: query executor is required")
	}
	return &CompanyHandler{svc: svc, query: executor}, nil
}

type createCompanyRequest struct {
	Name               string `json:"name" validate:"required,min=2,max=128"`
	OrganizationNumber string `json:"organization_number" validate:"required,min=4,max=32"`
	ContactEmail       string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone       string `json:"contact_phone" validate:"omitempty,max=32"`
	Address            string `json:"address" validate:"omitempty,max=256"`
	PostalCode         string `json:"postal_code" validate:"omitempty,max=16"`
	City               string `json:"city" validate:"omitempty,max=128"`
}

type updateCompanyRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=2,max=128"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone *string `json:"contact_phone" validate:"omitempty,max=32"`
	Address      *string `json:"address" validate:"omitempty,max=256"`
	PostalCode   *string `json:"postal_code" validate:"omitempty,max=16"`
	City         *string `json:"city" validate:"omitempty,max=128"`
	IsActive     *bool   `json:"is_active"`
}

// GET /api/companies
func (h *CompanyHandler) List(c *gin.Context) {
	scope := currentScope(c)
	params := parseListingParams(c)
	key := listCacheKey(services.CachePrefixCompanies, scope, params)

	payload, result, err := query.FetchJSON(requestContext(c), h.query, key, query.Options{
		ForceRefresh: forceRefresh(c),
		CriticalData: true,
	}, func(ctx context.Context) (listPayload[models.Company], error) {
		items, total, err := h.svc.List(ctx, scope, params)
		if err != nil {
			return listPayload[models.Company]{}, err
		}
		return listPayload[models.Company]{Items: items, Total: total}, nil
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, payload.Items, listMeta(params, payload.Total, result))
}

// GET /api/companies/:id
func (h *CompanyHandler) Get(c *gin.Context) {
	company, err := h.svc.GetByID(requestContext(c), currentScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, company)
}

// POST /api/companies
func (h *CompanyHandler) Create(c *gin.Context) {
	var body createCompanyRequest
	if !bindAndValidate(c, &body) {
		return
	}

	company, err := h.svc.Create(requestContext(c), currentScope(c), services.CreateCompanyInput{
		Name:               body.Name,
		OrganizationNumber: body.OrganizationNumber,
		ContactEmail:       body.ContactEmail,
		ContactPhone:       body.ContactPhone,
		Address:            body.Address,
		PostalCode:         body.PostalCode,
		City:               body.City,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, company)
}

// PATCH /api/companies/:id
func (h *CompanyHandler) Update(c *gin.Context) {
	var body updateCompanyRequest
	if !bindAndValidate(c, &body) {
		return
	}

	company, err := h.svc.Update(requestContext(c), currentScope(c), c.Param("id"), services.UpdateCompanyInput{
		Name:         body.Name,
		ContactEmail: body.ContactEmail,
		ContactPhone: body.ContactPhone,
		Address:      body.Address,
		PostalCode:   body.PostalCode,
		City:         body.City,
		IsActive:     body.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, company)
}

// DELETE /api/companies/:id
func (h *CompanyHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), currentScope(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
