package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/workstead/workstead/internal/models"
)

func TestReportHandlerAccidentLifecycle(t *testing.T) {
	env := newHandlerTestEnv(t)
	handler, err := NewReportHandler(env.reports, env.executor)
	require.NoError(t, err)

	company := env.seedCompany(t, "Verft AS", "900400100")
	admin := env.seedUser(t, "admin@example.com", models.RoleCompanyAdmin, &company.ID)
	worker := env.seedUser(t, "worker@example.com", models.RoleEmployee, &company.ID)

	c, recorder := newTestRequest(t, http.MethodPost, "/api/reports/accident", map[string]any{
		"occurred_at": time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC),
		"location":    "Dock 3",
		"description": "Slipped on wet deck plating",
		"injury_type": "sprain",
	})
	actAs(c, employeeScope(worker.ID, company.ID))
	handler.CreateAccident(c)

	require.Equal(t, http.StatusCreated, recorder.Code)
	created := decodeData[models.AccidentReport](t, decodeEnvelope(t, recorder))
	require.Equal(t, models.ReportStatusDraft, created.Status)
	require.Equal(t, worker.ID, created.EmployeeID)

	c, recorder = newTestRequest(t, http.MethodPost, "/api/reports/accident/"+created.ID+"/submit", nil)
	c.Params = []gin.Param{{Key: "id", Value: created.ID}}
	actAs(c, employeeScope(worker.ID, company.ID))
	handler.SubmitAccident(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	submitted := decodeData[models.AccidentReport](t, decodeEnvelope(t, recorder))
	require.Equal(t, models.ReportStatusSubmitted, submitted.Status)

	// Submitted reports are frozen for their author.
	c, recorder = newTestRequest(t, http.MethodPatch, "/api/reports/accident/"+created.ID, map[string]any{
		"location": "Dock 4",
	})
	c.Params = []gin.Param{{Key: "id", Value: created.ID}}
	actAs(c, employeeScope(worker.ID, company.ID))
	handler.UpdateAccident(c)

	require.Equal(t, http.StatusBadRequest, recorder.Code)

	c, recorder = newTestRequest(t, http.MethodPost, "/api/reports/accident/"+created.ID+"/approve", nil)
	c.Params = []gin.Param{{Key: "id", Value: created.ID}}
	actAs(c, adminScope(admin.ID, company.ID))
	handler.ApproveAccident(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	approved := decodeData[models.AccidentReport](t, decodeEnvelope(t, recorder))
	require.Equal(t, models.ReportStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
}

func TestReportHandlerApproveRequiresAdmin(t *testing.T) {
	env := newHandlerTestEnv(t)
	handler, err := NewReportHandler(env.reports, env.executor)
	require.NoError(t, err)

	company := env.seedCompany(t, "Verft AS", "900400100")
	worker := env.seedUser(t, "worker@example.com", models.RoleEmployee, &company.ID)

	c, recorder := newTestRequest(t, http.MethodPost, "/api/reports/departure", map[string]any{
		"last_working_day": time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
		"reason":           "resignation",
	})
	actAs(c, employeeScope(worker.ID, company.ID))
	handler.CreateDeparture(c)
	created := decodeData[models.StaffDepartureReport](t, decodeEnvelope(t, recorder))

	c, recorder = newTestRequest(t, http.MethodPost, "/api/reports/departure/"+created.ID+"/submit", nil)
	c.Params = []gin.Param{{Key: "id", Value: created.ID}}
	actAs(c, employeeScope(worker.ID, company.ID))
	handler.SubmitDeparture(c)
	require.Equal(t, http.StatusOK, recorder.Code)

	c, recorder = newTestRequest(t, http.MethodPost, "/api/reports/departure/"+created.ID+"/approve", nil)
	c.Params = []gin.Param{{Key: "id", Value: created.ID}}
	actAs(c, employeeScope(worker.ID, company.ID))
	handler.ApproveDeparture(c)

	require.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestReportHandlerIllnessListIsScopedToEmployee(t *testing.T) {
	env := newHandlerTestEnv(t)
	handler, err := NewReportHandler(env.reports, env.executor)
	require.NoError(t, err)

	company := env.seedCompany(t, "Verft AS", "900400100")
	worker := env.seedUser(t, "worker@example.com", models.RoleEmployee, &company.ID)
	other := env.seedUser(t, "other@example.com", models.RoleEmployee, &company.ID)

	for _, employee := range []*models.User{worker, other} {
		c, recorder := newTestRequest(t, http.MethodPost, "/api/reports/illness", map[string]any{
			"start_date":  time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
			"description": "influenza",
		})
		actAs(c, employeeScope(employee.ID, company.ID))
		handler.CreateIllness(c)
		require.Equal(t, http.StatusCreated, recorder.Code)
	}

	c, recorder := newTestRequest(t, http.MethodGet, "/api/reports/illness", nil)
	actAs(c, employeeScope(worker.ID, company.ID))
	handler.ListIllnesses(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	items := decodeData[[]models.IllnessReport](t, decodeEnvelope(t, recorder))
	require.Len(t, items, 1)
	require.Equal(t, worker.ID, items[0].EmployeeID)

	// A company admin sees both.
	admin := env.seedUser(t, "admin@example.com", models.RoleCompanyAdmin, &company.ID)
	c, recorder = newTestRequest(t, http.MethodGet, "/api/reports/illness", nil)
	actAs(c, adminScope(admin.ID, company.ID))
	handler.ListIllnesses(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	items = decodeData[[]models.IllnessReport](t, decodeEnvelope(t, recorder))
	require.Len(t, items, 2)
}

func TestReportHandlerCreateRejectsMissingFields(t *testing.T) {
	env := newHandlerTestEnv(t)
	handler, err := NewReportHandler(env.reports, env.executor)
	require.NoError(t, err)

	company := env.seedCompany(t, "Verft AS", "900400100")
	worker := env.seedUser(t, "worker@example.com", models.RoleEmployee, &company.ID)

	c, recorder := newTestRequest(t, http.MethodPost, "/api/reports/accident", map[string]any{
		"location": "Dock 3",
	})
	actAs(c, employeeScope(worker.ID, company.ID))
	handler.CreateAccident(c)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	payload := decodeEnvelope(t, recorder)
	require.False(t, payload.Success)
}
