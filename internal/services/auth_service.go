package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/workstead/workstead/internal/auth"
	"github.com/workstead/workstead/internal/models"
	"github.com/workstead/workstead/pkg/crypto"
	apperrors "github.com/workstead/workstead/pkg/errors"
	"github.com/workstead/workstead/pkg/metrics"
)

// AuthConfig defines tunable behaviour for credential checks.
type AuthConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	Clock            func() time.Time
}

// LoginInput contains the credentials and request metadata for a login attempt.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
}

// LoginResult carries the authenticated user and their access token.
type LoginResult struct {
	User  *models.User
	Token string
}

// AuthService verifies credentials with lockout controls and issues tokens.
type AuthService struct {
	db        *gorm.DB
	jwt       *auth.JWTService
	audit     *AuditService
	clock     func() time.Time
	threshold int
	duration  time.Duration
}

// NewAuthService constructs an AuthService with sane lockout defaults.
func NewAuthService(db *gorm.DB, jwtService *auth.JWTService, audit *AuditService, cfg AuthConfig) (*AuthService, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("auth service: jwt service is required")
	}

	threshold := cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = 5
	}
	duration := cfg.LockoutDuration
	if duration <= 0 {
		duration = 15 * time.Minute
	}
	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &AuthService{
		db:        db,
		jwt:       jwtService,
		audit:     audit,
		clock:     clock,
		threshold: threshold,
		duration:  duration,
	}, nil
}

// Login verifies the supplied credentials and returns a signed access token.
// Failed attempts accumulate until the account locks for the configured
// duration.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	ctx = ensureContext(ctx)

	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: query user: %w", err)
	}

	now := s.clock()

	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		metrics.AuthAttempts.WithLabelValues("locked").Inc()
		return nil, apperrors.ErrAccountLocked
	}

	// Unlock the account if the lockout duration has elapsed.
	if user.LockedUntil != nil && !user.LockedUntil.After(now) {
		user.LockedUntil = nil
		user.FailedAttempts = 0
		if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
			"locked_until":    nil,
			"failed_attempts": 0,
		}).Error; err != nil {
			return nil, fmt.Errorf("auth service: reset lock state: %w", err)
		}
	}

	if !crypto.VerifyPassword(user.Password, input.Password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, s.handleFailedAttempt(ctx, &user, now, input.IPAddress)
	}

	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   now,
		"last_login_ip":   strings.TrimSpace(input.IPAddress),
	}).Error; err != nil {
		return nil, fmt.Errorf("auth service: update user: %w", err)
	}

	tokenInput := auth.AccessTokenInput{UserID: user.ID, Role: user.Role}
	if user.CompanyID != nil {
		tokenInput.CompanyID = *user.CompanyID
	}
	token, err := s.jwt.GenerateAccessToken(tokenInput)
	if err != nil {
		return nil, fmt.Errorf("auth service: issue token: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:    &user.ID,
		Action:    "auth.login",
		Resource:  user.ID,
		Result:    "success",
		IPAddress: input.IPAddress,
	})

	return &LoginResult{User: &user, Token: token}, nil
}

func (s *AuthService) handleFailedAttempt(ctx context.Context, user *models.User, now time.Time, ip string) error {
	user.FailedAttempts++

	updates := map[string]any{
		"failed_attempts": user.FailedAttempts,
	}

	if user.FailedAttempts >= s.threshold {
		lockUntil := now.Add(s.duration)
		user.LockedUntil = &lockUntil
		updates["locked_until"] = lockUntil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("auth service: update failed attempts: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:    &user.ID,
		Action:    "auth.login",
		Resource:  user.ID,
		Result:    "failure",
		IPAddress: ip,
	})

	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		return apperrors.ErrAccountLocked
	}
	return apperrors.ErrInvalidCredentials
}
