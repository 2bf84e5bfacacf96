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

// ErrTaskNotFound indicates the requested task does not exist or is out of scope.
var ErrTaskNotFound = apperrors.New("TASK_NOT_FOUND", "Task not found", http.StatusNotFound)

// CreateTaskInput describes the fields accepted when creating a task.
type CreateTaskInput struct {
	CompanyID   string
	AssigneeID  string
	Title       string
	Description string
	DueAt       *time.Time
}

// UpdateTaskInput enumerates mutable task attributes.
type UpdateTaskInput struct {
	AssigneeID  *string
	Title       *string
	Description *string
	Status      *string
	DueAt       *time.Time
}

var taskSortColumns = map[string]string{
	"title":      "title",
	"due_at":     "due_at",
	"status":     "status",
	"created_at": "created_at",
}

// TaskService manages work items within a company.
type TaskService struct {
	db    *gorm.DB
	cache cache.Store
	audit *AuditService
	now   func() time.Time
}

// NewTaskService constructs a TaskService instance.
func NewTaskService(db *gorm.DB, store cache.Store, audit *AuditService) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("task service: db is required")
	}
	return &TaskService{db: db, cache: store, audit: audit, now: time.Now}, nil
}

// Create opens a new task. Employees cannot create tasks.
func (s *TaskService) Create(ctx context.Context, scope Scope, input CreateTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	if !scope.isSuperAdmin() && !scope.isCompanyAdmin() {
		return nil, apperrors.ErrForbidden
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}

	companyID := scope.companyFor(input.CompanyID)
	if companyID == "" {
		return nil, apperrors.NewBadRequest("company id is required")
	}

	task := &models.Task{
		CompanyID:   companyID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      models.TaskStatusOpen,
		DueAt:       input.DueAt,
	}
	if assignee := strings.TrimSpace(input.AssigneeID); assignee != "" {
		if err := s.verifyAssignee(ctx, companyID, assignee); err != nil {
			return nil, err
		}
		task.AssigneeID = &assignee
	}

	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("task service: create task: %w", err)
	}

	invalidatePrefixes(s.cache, ctx, CachePrefixTasks, CachePrefixDashboard)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   auditUser(scope),
		Action:   "task.create",
		Resource: task.ID,
		Result:   "success",
		Metadata: map[string]any{"title": task.Title, "company_id": task.CompanyID},
	})

	return task, nil
}

// GetByID loads a task visible to the caller.
func (s *TaskService) GetByID(ctx context.Context, scope Scope, id string) (*models.Task, error) {
	ctx = ensureContext(ctx)

	query := s.taskScope(s.db.WithContext(ctx), scope).Preload("Assignee")

	var task models.Task
	err := query.First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task service: get task: %w", err)
	}
	return &task, nil
}

// List retrieves tasks matching the supplied query state with pagination.
// Short search terms prefix-match the title; longer terms also match the
// description.
func (s *TaskService) List(ctx context.Context, scope Scope, params listing.Params) ([]models.Task, int64, error) {
	ctx = ensureContext(ctx)
	params = params.Normalize()

	query := s.taskScope(s.db.WithContext(ctx).Model(&models.Task{}), scope)

	if models.ValidTaskStatus(params.Status) {
		query = query.Where("status = ?", params.Status)
	}

	query = listing.ApplySearch(query, params.Search, "title", "description")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("task service: count tasks: %w", err)
	}

	var tasks []models.Task
	if err := listing.ApplySort(query, params, taskSortColumns, "created_at").
		Offset(params.Offset()).
		Limit(params.PageSize).
		Preload("Assignee").
		Find(&tasks).Error; err != nil {
		return nil, 0, fmt.Errorf("task service: list tasks: %w", err)
	}

	return tasks, total, nil
}

// Update persists mutable attributes for an existing task. Employees may only
// move their own tasks between statuses.
func (s *TaskService) Update(ctx context.Context, scope Scope, id string, input UpdateTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	task, err := s.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	isAdmin := scope.isSuperAdmin() || scope.isCompanyAdmin()

	updates := map[string]any{}
	if input.Title != nil {
		if !isAdmin {
			return nil, apperrors.ErrForbidden
		}
		if title := strings.TrimSpace(*input.Title); title != "" && title != task.Title {
			updates["title"] = title
		}
	}
	if input.Description != nil {
		if !isAdmin {
			return nil, apperrors.ErrForbidden
		}
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.AssigneeID != nil {
		if !isAdmin {
			return nil, apperrors.ErrForbidden
		}
		if assignee := strings.TrimSpace(*input.AssigneeID); assignee == "" {
			updates["assignee_id"] = nil
		} else {
			if err := s.verifyAssignee(ctx, task.CompanyID, assignee); err != nil {
				return nil, err
			}
			updates["assignee_id"] = assignee
		}
	}
	if input.DueAt != nil {
		if !isAdmin {
			return nil, apperrors.ErrForbidden
		}
		updates["due_at"] = *input.DueAt
	}
	if input.Status != nil {
		status := strings.TrimSpace(*input.Status)
		if !models.ValidTaskStatus(status) {
			return nil, apperrors.NewBadRequest("invalid status")
		}
		if status != task.Status {
			updates["status"] = status
			if status == models.TaskStatusDone {
				updates["completed_at"] = s.now()
			} else if task.Status == models.TaskStatusDone {
				updates["completed_at"] = nil
			}
		}
	}

	if len(updates) == 0 {
		return task, nil
	}

	if err := s.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("task service: update task: %w", err)
	}
	if err := s.db.WithContext(ctx).Preload("Assignee").First(task, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("task service: reload task: %w", err)
	}

	invalidatePrefixes(s.cache, ctx, CachePrefixTasks, CachePrefixDashboard)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   auditUser(scope),
		Action:   "task.update",
		Resource: task.ID,
		Result:   "success",
		Metadata: updates,
	})

	return task, nil
}

// Delete removes a task. Admin only.
func (s *TaskService) Delete(ctx context.Context, scope Scope, id string) error {
	ctx = ensureContext(ctx)

	if !scope.isSuperAdmin() && !scope.isCompanyAdmin() {
		return apperrors.ErrForbidden
	}

	query := applyCompanyScope(s.db.WithContext(ctx), scope)
	result := query.Delete(&models.Task{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("task service: delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}

	invalidatePrefixes(s.cache, ctx, CachePrefixTasks, CachePrefixDashboard)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   auditUser(scope),
		Action:   "task.delete",
		Resource: id,
		Result:   "success",
	})

	return nil
}

func (s *TaskService) taskScope(query *gorm.DB, scope Scope) *gorm.DB {
	return applyTaskScope(query, scope)
}

// verifyAssignee ensures the assignee belongs to the task's company.
func (s *TaskService) verifyAssignee(ctx context.Context, companyID, userID string) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND company_id = ?", userID, companyID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("task service: verify assignee: %w", err)
	}
	if count == 0 {
		return apperrors.NewBadRequest("assignee does not belong to the company")
	}
	return nil
}
