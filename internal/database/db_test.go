package database

import (
	"testing"

	"gorm.io/gorm"

	"github.com/workstead/workstead/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("expected health query to succeed: %v", err)
	}
}

func TestMigrateCreatesSchema(t *testing.T) {
	db := openTestDB(t)

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	company := models.Company{Name: "Acme AS", OrganizationNumber: "912345678"}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("create company: %v", err)
	}

	var count int64
	if err := db.Model(&models.Company{}).Count(&count).Error; err != nil {
		t.Fatalf("count companies: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 company, got %d", count)
	}
}

func TestEnsureRootAdmin(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	created, err := EnsureRootAdmin(db, "root@workstead.local", "change-me-please")
	if err != nil {
		t.Fatalf("ensure root admin: %v", err)
	}
	if !created {
		t.Fatal("expected admin to be created on empty database")
	}

	var admin models.User
	if err := db.Take(&admin, "email = ?", "root@workstead.local").Error; err != nil {
		t.Fatalf("load admin: %v", err)
	}
	if admin.Role != models.RoleSuperAdmin {
		t.Fatalf("expected super_admin role, got %s", admin.Role)
	}
	if admin.Password == "change-me-please" {
		t.Fatal("expected password to be hashed")
	}

	created, err = EnsureRootAdmin(db, "other@workstead.local", "change-me-please")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if created {
		t.Fatal("expected no admin to be created when users exist")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle"}); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
