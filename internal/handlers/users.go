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

// UserHandler serves account management for all three roles.
type UserHandler struct {
	svc   *services.UserService
	query *query.Executor
}

// NewUserHandler constructs a UserHandler instance.
func NewUserHandler(svc *services.UserService, executor *query.Executor) (*UserHandler, error) {
	if svc == nil {
		return nil, errors.New("user handler: service is required")
	}
	if executor == nil {
		return nil, errors.New("user handler: query executor is required")
	}
	return &UserHandler{svc: svc, query: executor}, nil
}

type createUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required,max=128"`
	LastName  string `json:"last_name" validate:"required,max=128"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	Role      string `json:"role" validate:"omitempty,oneof=super_admin company_admin employee"`
	CompanyID string `json:"company_id" validate:"omitempty,uuid4"`
	IsActive  *bool  `json:"is_active"`
}

type updateUserRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=128"`
	LastName  *string `json:"last_name" validate:"omitempty,max=128"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	Role      *string `json:"role" validate:"omitempty,oneof=super_admin company_admin employee"`
	IsActive  *bool   `json:"is_active"`
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	scope := currentScope(c)
	params := parseListingParams(c)
	key := listCacheKey(services.CachePrefixUsers, scope, params)

	payload, result, err := query.FetchJSON(requestContext(c), h.query, key, query.Options{
		ForceRefresh: forceRefresh(c),
		CriticalData: true,
	}, func(ctx context.Context) (listPayload[models.User], error) {
		items, total, err := h.svc.List(ctx, scope, params)
		if err != nil {
			return listPayload[models.User]{}, err
		}
		return listPayload[models.User]{Items: items, Total: total}, nil
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, payload.Items, listMeta(params, payload.Total, result))
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.svc.GetByID(requestContext(c), currentScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var body createUserRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.svc.Create(requestContext(c), currentScope(c), services.CreateUserInput{
		Email:     body.Email,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Phone:     body.Phone,
		Role:      body.Role,
		CompanyID: body.CompanyID,
		IsActive:  body.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// PATCH /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var body updateUserRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.svc.Update(requestContext(c), currentScope(c), c.Param("id"), services.UpdateUserInput{
		Email:     body.Email,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Phone:     body.Phone,
		Role:      body.Role,
		IsActive:  body.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), currentScope(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
