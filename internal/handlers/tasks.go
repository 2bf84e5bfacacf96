package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/workstead/workstead/internal/models"
	"github.com/workstead/workstead/internal/query"
	"github.com/workstead/workstead/internal/services"
	"github.com/workstead/workstead/pkg/response"
)

// TaskHandler serves work item management.
type TaskHandler struct {
	svc   *services.TaskService
	query *query.Executor
}

// NewTaskHandler constructs a TaskHandler instance.
func NewTaskHandler(svc *services.TaskService, executor *query.Executor) (*TaskHandler, error) {
	if svc == nil {
		return nil, errors.New("task handler: service is required")
	}
	if executor == nil {
		return nil, errors.New("task handler: query executor is required")
	}
	return &TaskHandler{svc: svc, query: executor}, nil
}

type createTaskRequest struct {
	CompanyID   string     `json:"company_id" validate:"omitempty,uuid4"`
	AssigneeID  string     `json:"assignee_id" validate:"required,uuid4"`
	Title       string     `json:"title" validate:"required,min=2,max=256"`
	Description string     `json:"description" validate:"omitempty,max=2048"`
	DueAt       *time.Time `json:"due_at"`
}

type updateTaskRequest struct {
	AssigneeID  *string    `json:"assignee_id" validate:"omitempty,uuid4"`
	Title       *string    `json:"title" validate:"omitempty,min=2,max=256"`
	Description *string    `json:"description" validate:"omitempty,max=2048"`
	Status      *string    `json:"status" validate:"omitempty,oneof=open in_progress done"`
	DueAt       *time.Time `json:"due_at"`
}

// GET /api/tasks
func (h *TaskHandler) List(c *gin.Context) {
	scope := currentScope(c)
	params := parseListingParams(c)
	key := listCacheKey(services.CachePrefixTasks, scope, params)

	payload, result, err := query.FetchJSON(requestContext(c), h.query, key, query.Options{
		ForceRefresh: forceRefresh(c),
		CriticalData: true,
	}, func(ctx context.Context) (listPayload[models.Task], error) {
		items, total, err := h.svc.List(ctx, scope, params)
		if err != nil {
			return listPayload[models.Task]{}, err
		}
		return listPayload[models.Task]{Items: items, Total: total}, nil
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, payload.Items, listMeta(params, payload.Total, result))
}

// GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.svc.GetByID(requestContext(c), currentScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var body createTaskRequest
	if !bindAndValidate(c, &body) {
		return
	}

	task, err := h.svc.Create(requestContext(c), currentScope(c), services.CreateTaskInput{
		CompanyID:   body.CompanyID,
		AssigneeID:  body.AssigneeID,
		Title:       body.Title,
		Description: body.Description,
		DueAt:       body.DueAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, task)
}

// PATCH /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	var body updateTaskRequest
	if !bindAndValidate(c, &body) {
		return
	}

	task, err := h.svc.Update(requestContext(c), currentScope(c), c.Param("id"), services.UpdateTaskInput{
		AssigneeID:  body.AssigneeID,
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
		DueAt:       body.DueAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), currentScope(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
