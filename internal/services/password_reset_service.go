package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/workstead/workstead/internal/models"
	"github.com/workstead/workstead/pkg/crypto"
	apperrors "github.com/workstead/workstead/pkg/errors"
	"github.com/workstead/workstead/pkg/mail"
)

const (
	defaultResetExpiry     = time.Hour
	defaultResetTokenBytes = 48
)

// ErrResetTokenInvalid covers unknown, expired and already-used reset tokens.
// One error for all three keeps the endpoint from leaking token state.
var ErrResetTokenInvalid = apperrors.NewBadRequest("reset token is invalid or expired")

// ResetOption customises the PasswordResetService.
type ResetOption func(*PasswordResetService)

// WithResetBaseURL sets the base URL used in reset links.
func WithResetBaseURL(url string) ResetOption {
	return func(s *PasswordResetService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithResetExpiry overrides the token lifetime.
func WithResetExpiry(d time.Duration) ResetOption {
	return func(s *PasswordResetService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithResetClock injects a custom time source.
func WithResetClock(clock func() time.Time) ResetOption {
	return func(s *PasswordResetService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// PasswordResetService manages single-use password reset tokens.
type PasswordResetService struct {
	db      *gorm.DB
	users   *UserService
	mailer  mail.Mailer
	audit   *AuditService
	baseURL string
	expiry  time.Duration
	now     func() time.Time
}

// NewPasswordResetService constructs a reset service with the provided dependencies.
func NewPasswordResetService(db *gorm.DB, users *UserService, mailer mail.Mailer, audit *AuditService, opts ...ResetOption) (*PasswordResetService, error) {
	if db == nil {
		return nil, errors.New("password reset service: db is required")
	}
	if users == nil {
		return nil, errors.New("password reset service: user service is required")
	}

	service := &PasswordResetService{
		db:     db,
		users:  users,
		mailer: mailer,
		audit:  audit,
		expiry: defaultResetExpiry,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Request issues a reset token for the given email and dispatches it by mail.
// Unknown addresses return success so the endpoint cannot be used to probe
// for accounts.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperrors.NewBadRequest("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := crypto.GenerateToken(defaultResetTokenBytes)
	if err != nil {
		return fmt.Errorf("password reset service: generate token: %w", err)
	}

	now := s.now()
	reset := models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: resetTokenHash(token),
		ExpiresAt: now.Add(s.expiry),
	}

	// A new request supersedes any outstanding token for the user.
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Delete(&models.PasswordResetToken{}).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("password reset service: cleanup existing: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(&reset).Error; err != nil {
		return fmt.Errorf("password reset service: create token: %w", err)
	}

	if s.mailer != nil {
		message := mail.Message{
			To:      []string{user.Email},
			Subject: "Reset your Workstead password",
			Text:    s.resetBody(s.resetLink(token)),
		}
		if _, mailErr := s.mailer.Send(ctx, message); mailErr != nil && !errors.Is(mailErr, mail.ErrSMTPDisabled) {
			return fmt.Errorf("password reset service: send email: %w", mailErr)
		}
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &user.ID,
		Action:   "auth.password_reset.request",
		Resource: user.ID,
		Result:   "success",
	})

	return nil
}

// Confirm validates and consumes a reset token, replacing the user's password.
func (s *PasswordResetService) Confirm(ctx context.Context, token, newPassword string) error {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.NewBadRequest("token is required")
	}
	if len(newPassword) < 8 {
		return apperrors.NewBadRequest("password must be at least 8 characters")
	}

	var reset models.PasswordResetToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", resetTokenHash(token)).
		First(&reset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrResetTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("password reset service: find token: %w", err)
	}

	now := s.now()
	if reset.ExpiresAt.Before(now) || reset.UsedAt != nil {
		return ErrResetTokenInvalid
	}

	if err := s.users.SetPassword(ctx, reset.UserID, newPassword); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).
		Model(&reset).
		Updates(map[string]any{"used_at": now}).Error; err != nil {
		return fmt.Errorf("password reset service: mark used: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &reset.UserID,
		Action:   "auth.password_reset.confirm",
		Resource: reset.UserID,
		Result:   "success",
	})

	return nil
}

// PurgeExpired removes tokens that are expired or already consumed. Called by
// the maintenance cleaner.
func (s *PasswordResetService) PurgeExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", s.now()).
		Delete(&models.PasswordResetToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("password reset service: purge tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *PasswordResetService) resetLink(token string) string {
	if s.baseURL == "" {
		return token
	}
	return fmt.Sprintf("%s?token=%s", s.baseURL, token)
}

func (s *PasswordResetService) resetBody(link string) string {
	return fmt.Sprintf("A password reset was requested for your Workstead account.\n\nUse the link below within the next hour to choose a new password:\n%s\n\nIf you did not request this, you can ignore this message.\n", link)
}

func resetTokenHash(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
