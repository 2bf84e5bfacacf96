package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/workstead/workstead/internal/cache"
	"github.com/workstead/workstead/internal/middleware"
	"github.com/workstead/workstead/internal/models"
	"github.com/workstead/workstead/internal/query"
	"github.com/workstead/workstead/internal/services"
	"github.com/workstead/workstead/pkg/crypto"
	"github.com/workstead/workstead/pkg/mail"
	"github.com/workstead/workstead/pkg/response"
)

type handlerTestEnv struct {
	db        *gorm.DB
	store     *cache.MemoryStore
	executor  *query.Executor
	audit     *services.AuditService
	companies *services.CompanyService
	users     *services.UserService
	tasks     *services.TaskService
	reports   *services.ReportService
	dashboard *services.DashboardService
}

func newHandlerTestEnv(t *testing.T) handlerTestEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Task{},
		&models.AccidentReport{},
		&models.IllnessReport{},
		&models.StaffDepartureReport{},
		&models.PasswordResetToken{},
		&models.AuditLog{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	store := cache.NewMemoryStore()
	executor, err := query.NewExecutor(store)
	require.NoError(t, err)

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	companies, err := services.NewCompanyService(db, store, audit)
	require.NoError(t, err)
	users, err := services.NewUserService(db, store, audit)
	require.NoError(t, err)
	tasks, err := services.NewTaskService(db, store, audit)
	require.NoError(t, err)
	reports, err := services.NewReportService(db, store, audit)
	require.NoError(t, err)
	dashboard, err := services.NewDashboardService(db)
	require.NoError(t, err)

	return handlerTestEnv{
		db:        db,
		store:     store,
		executor:  executor,
		audit:     audit,
		companies: companies,
		users:     users,
		tasks:     tasks,
		reports:   reports,
		dashboard: dashboard,
	}
}

func (e handlerTestEnv) seedCompany(t *testing.T, name, orgNumber string) *models.Company {
	t.Helper()
	company := &models.Company{Name: name, OrganizationNumber: orgNumber, IsActive: true}
	require.NoError(t, e.db.Create(company).Error)
	return company
}

func (e handlerTestEnv) seedUser(t *testing.T, email, role string, companyID *string) *models.User {
	t.Helper()
	hash, err := crypto.HashPassword("correct-horse-battery")
	require.NoError(t, err)
	user := &models.User{
		Email:     email,
		Password:  hash,
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
		CompanyID: companyID,
		IsActive:  true,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

// newTestRequest builds a gin test context carrying an optional JSON body.
func newTestRequest(t *testing.T, method, target string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, recorder
}

func actAs(c *gin.Context, scope services.Scope) {
	c.Set(middleware.CtxUserIDKey, scope.UserID)
	c.Set(middleware.CtxRoleKey, scope.Role)
	if scope.CompanyID != "" {
		c.Set(middleware.CtxCompanyIDKey, scope.CompanyID)
	}
}

func superScope(userID string) services.Scope {
	return services.Scope{UserID: userID, Role: models.RoleSuperAdmin}
}

func adminScope(userID, companyID string) services.Scope {
	return services.Scope{UserID: userID, Role: models.RoleCompanyAdmin, CompanyID: companyID}
}

func employeeScope(userID, companyID string) services.Scope {
	return services.Scope{UserID: userID, Role: models.RoleEmployee, CompanyID: companyID}
}

// decodeEnvelope parses the JSON response envelope.
func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var payload response.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	return payload
}

// decodeData re-marshals the envelope data into the supplied concrete type.
func decodeData[T any](t *testing.T, payload response.Response) T {
	t.Helper()
	raw, err := json.Marshal(payload.Data)
	require.NoError(t, err)
	var value T
	require.NoError(t, json.Unmarshal(raw, &value))
	return value
}

type captureMailer struct {
	messages []mail.Message
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) (string, error) {
	m.messages = append(m.messages, msg)
	return "message-1", nil
}
