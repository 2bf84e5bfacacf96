package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/workstead/workstead/internal/models"
)

func TestTaskHandlerCreateAndList(t *testing.T) {
	env := newHandlerTestEnv(t)
	handler, err := NewTaskHandler(env.tasks, env.executor)
	require.NoError(t, err)

	company := env.seedCompany(t, "Taskwork AS", "900300100")
	admin := env.seedUser(t, "admin@example.com", models.RoleCompanyAdmin, &company.ID)
	worker := env.seedUser(t, "worker@example.com", models.RoleEmployee, &company.ID)

	c, recorder := newTestRequest(t, http.MethodPost, "/api/tasks", map[string]any{
		"assignee_id": worker.ID,
		"title":       "Inspect scaffolding",
		"description": "Weekly safety walkthrough",
	})
	actAs(c, adminScope(admin.ID, company.ID))
	handler.Create(c)

	require.Equal(t, http.StatusCreated, recorder.Code)
	created := decodeData[models.Task](t, decodeEnvelope(t, recorder))
	require.Equal(t, models.TaskStatusOpen, created.Status)
	require.NotNil(t, created.AssigneeID)
	require.Equal(t, worker.ID, *created.AssigneeID)

	// The assignee sees the task in their own listing.
	c, recorder = newTestRequest(t, http.MethodGet, "/api/tasks", nil)
	actAs(c, employeeScope(worker.ID, company.ID))
	handler.List(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	items := decodeData[[]models.Task](t, decodeEnvelope(t, recorder))
	require.Len(t, items, 1)
	require.Equal(t, created.ID, items[0].ID)
}

func TestTaskHandlerEmployeeUpdatesOwnStatus(t *testing.T) {
	env := newHandlerTestEnv(t)
	handler, err := NewTaskHandler(env.tasks, env.executor)
	require.NoError(t, err)

	company := env.seedCompany(t, "Taskwork AS", "900300100")
	admin := env.seedUser(t, "admin@example.com", models.RoleCompanyAdmin, &company.ID)
	worker := env.seedUser(t, "worker@example.com", models.RoleEmployee, &company.ID)

	c, recorder := newTestRequest(t, http.MethodPost, "/api/tasks", map[string]any{
		"assignee_id": worker.ID,
		"title":       "Clear the loading bay",
	})
	actAs(c, adminScope(admin.ID, company.ID))
	handler.Create(c)
	created := decodeData[models.Task](t, decodeEnvelope(t, recorder))

	c, recorder = newTestRequest(t, http.MethodPatch, "/api/tasks/"+created.ID, map[string]any{
		"status": models.TaskStatusDone,
	})
	c.Params = []gin.Param{{Key: "id", Value: created.ID}}
	actAs(c, employeeScope(worker.ID, company.ID))
	handler.Update(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	updated := decodeData[models.Task](t, decodeEnvelope(t, recorder))
	require.Equal(t, models.TaskStatusDone, updated.Status)
	require.NotNil(t, updated.CompletedAt)

	// Retitling is reserved for admins.
	c, recorder = newTestRequest(t, http.MethodPatch, "/api/tasks/"+created.ID, map[string]any{
		"title": "Renamed by worker",
	})
	c.Params = []gin.Param{{Key: "id", Value: created.ID}}
	actAs(c, employeeScope(worker.ID, company.ID))
	handler.Update(c)

	require.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestTaskHandlerRejectsInvalidStatus(t *testing.T) {
	env := newHandlerTestEnv(t)
	handler, err := NewTaskHandler(env.tasks, env.executor)
	require.NoError(t, err)

	company := env.seedCompany(t, "Taskwork AS", "900300100")
	admin := env.seedUser(t, "admin@example.com", models.RoleCompanyAdmin, &company.ID)

	c, recorder := newTestRequest(t, http.MethodPatch, "/api/tasks/some-id", map[string]any{
		"status": "paused",
	})
	c.Params = []gin.Param{{Key: "id", Value: "some-id"}}
	actAs(c, adminScope(admin.ID, company.ID))
	handler.Update(c)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}
