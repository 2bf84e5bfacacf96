package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/workstead/workstead/internal/models"
	"github.com/workstead/workstead/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Task{},
		&models.AccidentReport{},
		&models.IllnessReport{},
		&models.StaffDepartureReport{},
		&models.PasswordResetToken{},
		&models.AuditLog{},
		&models.CacheEntry{},
	)
}

// EnsureRootAdmin creates the initial super admin account when no user exists.
// Returns true when the account was created.
func EnsureRootAdmin(db *gorm.DB, email, password string) (bool, error) {
	if db == nil {
		return false, errors.New("nil database handle")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return false, errors.New("root admin email and password are required")
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return false, err
	}

	admin := models.User{
		Email:    email,
		Password: hashed,
		Role:     models.RoleSuperAdmin,
		IsActive: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return false, err
	}

	return true, nil
}
