package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/workstead/workstead/internal/cache"
	"github.com/workstead/workstead/internal/listing"
	"github.com/workstead/workstead/internal/models"
	"github.com/workstead/workstead/pkg/crypto"
	apperrors "github.com/workstead/workstead/pkg/errors"
)

// ErrUserNotFound indicates the requested user does not exist or is out of scope.
var ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      string
	CompanyID string
	IsActive  *bool
}

// UpdateUserInput enumerates mutable user attributes.
type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Phone     *string
	Role      *string
	IsActive  *bool
}

var userSortColumns = map[string]string{
	"email":      "email",
	"last_name":  "last_name",
	"created_at": "created_at",
}

// UserService manages CRUD lifecycle for platform accounts.
type UserService struct {
	db    *gorm.DB
	cache cache.Store
	audit *AuditService
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, store cache.Store, audit *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, cache: store, audit: audit}, nil
}

// Create provisions a new account with a hashed password. Company admins may
// only create employees and admins within their own company; super admin
// accounts are created exclusively by other super admins.
func (s *UserService) Create(ctx context.Context, scope Scope, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = models.RoleEmployee
	}
	if !models.ValidRole(role) {
		return nil, apperrors.NewBadRequest("invalid role")
	}

	switch {
	case scope.isSuperAdmin():
	case scope.isCompanyAdmin():
		if role == models.RoleSuperAdmin {
			return nil, apperrors.ErrForbidden
		}
	default:
		return nil, apperrors.ErrForbidden
	}

	companyID := scope.companyFor(input.CompanyID)
	if role != models.RoleSuperAdmin && companyID == "" {
		return nil, apperrors.NewBadRequest("company id is required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Email:     email,
		Password:  hashed,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Phone:     strings.TrimSpace(input.Phone),
		Role:      role,
		IsActive:  true,
	}
	if companyID != "" {
		user.CompanyID = &companyID
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("email already registered")
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	invalidatePrefixes(s.cache, ctx, CachePrefixUsers, CachePrefixDashboard)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   auditUser(scope),
		Action:   "user.create",
		Resource: user.ID,
		Result:   "success",
		Metadata: map[string]any{"email": user.Email, "role": user.Role},
	})

	return user, nil
}

// GetByID loads a user visible to the caller. Employees may only read
// themselves.
func (s *UserService) GetByID(ctx context.Context, scope Scope, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Preload("Company")
	switch {
	case scope.isSuperAdmin():
	case scope.isCompanyAdmin():
		query = query.Where("company_id = ?", scope.CompanyID)
	default:
		query = query.Where("id = ?", scope.UserID)
	}

	var user models.User
	err := query.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// GetByEmail loads a user by email address regardless of scope. Callers are
// the login and password reset flows.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", strings.TrimSpace(email)).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user by email: %w", err)
	}
	return &user, nil
}

// List retrieves users matching the supplied query state with pagination.
// Short search terms prefix-match the email; longer terms also match first
// name, last name and phone.
func (s *UserService) List(ctx context.Context, scope Scope, params listing.Params) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)
	params = params.Normalize()

	query := applyUserScope(s.db.WithContext(ctx).Model(&models.User{}), scope)

	switch params.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	case models.RoleSuperAdmin, models.RoleCompanyAdmin, models.RoleEmployee:
		query = query.Where("role = ?", params.Status)
	}

	query = listing.ApplySearch(query, params.Search, "email", "first_name", "last_name", "phone")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	if err := listing.ApplySort(query, params, userSortColumns, "created_at").
		Offset(params.Offset()).
		Limit(params.PageSize).
		Preload("Company").
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}

	return users, total, nil
}

// Update persists mutable attributes for an existing user. Employees may only
// edit their own profile fields; role and active-flag changes require an
// admin of the user's company or a super admin.
func (s *UserService) Update(ctx context.Context, scope Scope, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	isAdmin := scope.isSuperAdmin() || scope.isCompanyAdmin()

	updates := map[string]any{}
	if input.Email != nil {
		if email := strings.ToLower(strings.TrimSpace(*input.Email)); email != "" && email != user.Email {
			updates["email"] = email
		}
	}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		updates["phone"] = strings.TrimSpace(*input.Phone)
	}
	if input.Role != nil {
		role := strings.TrimSpace(*input.Role)
		if !models.ValidRole(role) {
			return nil, apperrors.NewBadRequest("invalid role")
		}
		if !isAdmin || (role == models.RoleSuperAdmin && !scope.isSuperAdmin()) {
			return nil, apperrors.ErrForbidden
		}
		updates["role"] = role
	}
	if input.IsActive != nil {
		if !isAdmin {
			return nil, apperrors.ErrForbidden
		}
		updates["is_active"] = *input.IsActive
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("email already registered")
		}
		return nil, fmt.Errorf("user service: update user: %w", err)
	}
	if err := s.db.WithContext(ctx).First(user, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("user service: reload user: %w", err)
	}

	invalidatePrefixes(s.cache, ctx, CachePrefixUsers, CachePrefixDashboard)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   auditUser(scope),
		Action:   "user.update",
		Resource: user.ID,
		Result:   "success",
		Metadata: updates,
	})

	return user, nil
}

// SetPassword replaces a user's password hash. Used by the reset flow.
func (s *UserService) SetPassword(ctx context.Context, userID, newPassword string) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(userID) == "" || newPassword == "" {
		return apperrors.NewBadRequest("user id and new password are required")
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("password", hashed)
	if result.Error != nil {
		return fmt.Errorf("user service: update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete soft-deletes a user. Admin only; callers cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, scope Scope, id string) error {
	ctx = ensureContext(ctx)

	if !scope.isSuperAdmin() && !scope.isCompanyAdmin() {
		return apperrors.ErrForbidden
	}
	if scope.UserID == id {
		return apperrors.NewBadRequest("cannot delete your own account")
	}

	query := s.db.WithContext(ctx)
	if scope.isCompanyAdmin() {
		query = query.Where("company_id = ?", scope.CompanyID)
	}

	result := query.Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("user service: delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	invalidatePrefixes(s.cache, ctx, CachePrefixUsers, CachePrefixDashboard)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   auditUser(scope),
		Action:   "user.delete",
		Resource: id,
		Result:   "success",
	})

	return nil
}
