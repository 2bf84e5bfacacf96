package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/workstead/workstead/internal/models"
	"github.com/workstead/workstead/pkg/mail"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

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

	return db
}

func seedCompany(t *testing.T, db *gorm.DB, name, orgNumber string) *models.Company {
	t.Helper()
	company := &models.Company{Name: name, OrganizationNumber: orgNumber, IsActive: true}
	require.NoError(t, db.Create(company).Error)
	return company
}

func seedUser(t *testing.T, db *gorm.DB, email, role string, companyID *string) *models.User {
	t.Helper()
	user := &models.User{
		Email:     email,
		Password:  "x",
		Role:      role,
		CompanyID: companyID,
		IsActive:  true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func superScope(userID string) Scope {
	return Scope{UserID: userID, Role: models.RoleSuperAdmin}
}

func adminScope(userID, companyID string) Scope {
	return Scope{UserID: userID, Role: models.RoleCompanyAdmin, CompanyID: companyID}
}

func employeeScope(userID, companyID string) Scope {
	return Scope{UserID: userID, Role: models.RoleEmployee, CompanyID: companyID}
}

type captureMailer struct {
	messages []mail.Message
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) (string, error) {
	m.messages = append(m.messages, msg)
	return "message-1", nil
}
