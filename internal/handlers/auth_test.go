package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	iauth "github.com/workstead/workstead/internal/auth"
	"github.com/workstead/workstead/internal/models"
	"github.com/workstead/workstead/internal/services"
)

func newAuthHandlerEnv(t *testing.T) (handlerTestEnv, *AuthHandler, *captureMailer) {
	t.Helper()

	env := newHandlerTestEnv(t)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "handler-test-secret"})
	require.NoError(t, err)

	authSvc, err := services.NewAuthService(env.db, jwtSvc, env.audit, services.AuthConfig{})
	require.NoError(t, err)

	mailer := &captureMailer{}
	resetSvc, err := services.NewPasswordResetService(env.db, env.users, mailer, env.audit,
		services.WithResetBaseURL("https://app.workstead.test/reset"))
	require.NoError(t, err)

	handler, err := NewAuthHandler(authSvc, env.users, resetSvc)
	require.NoError(t, err)

	return env, handler, mailer
}

func TestAuthHandlerLoginIssuesToken(t *testing.T) {
	env, handler, _ := newAuthHandlerEnv(t)

	company := env.seedCompany(t, "Login AS", "900200100")
	user := env.seedUser(t, "worker@example.com", models.RoleEmployee, &company.ID)

	c, recorder := newTestRequest(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    user.Email,
		"password": "correct-horse-battery",
	})
	handler.Login(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	payload := decodeEnvelope(t, recorder)
	require.True(t, payload.Success)

	data := decodeData[map[string]any](t, payload)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
}

func TestAuthHandlerLoginRejectsWrongPassword(t *testing.T) {
	env, handler, _ := newAuthHandlerEnv(t)

	company := env.seedCompany(t, "Login AS", "900200100")
	user := env.seedUser(t, "worker@example.com", models.RoleEmployee, &company.ID)

	c, recorder := newTestRequest(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    user.Email,
		"password": "not-the-password",
	})
	handler.Login(c)

	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	payload := decodeEnvelope(t, recorder)
	require.False(t, payload.Success)
}

func TestAuthHandlerMeReturnsCurrentUser(t *testing.T) {
	env, handler, _ := newAuthHandlerEnv(t)

	company := env.seedCompany(t, "Login AS", "900200100")
	user := env.seedUser(t, "worker@example.com", models.RoleEmployee, &company.ID)

	c, recorder := newTestRequest(t, http.MethodGet, "/api/auth/me", nil)
	actAs(c, employeeScope(user.ID, company.ID))
	handler.Me(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	me := decodeData[models.User](t, decodeEnvelope(t, recorder))
	require.Equal(t, user.ID, me.ID)
	require.Equal(t, user.Email, me.Email)
}

func TestAuthHandlerPasswordResetFlow(t *testing.T) {
	env, handler, mailer := newAuthHandlerEnv(t)

	company := env.seedCompany(t, "Login AS", "900200100")
	user := env.seedUser(t, "worker@example.com", models.RoleEmployee, &company.ID)

	c, recorder := newTestRequest(t, http.MethodPost, "/api/auth/password-reset/request", map[string]any{
		"email": user.Email,
	})
	handler.RequestPasswordReset(c)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, mailer.messages, 1)

	token := tokenFromResetMessage(t, mailer.messages[0].Text)

	c, recorder = newTestRequest(t, http.MethodPost, "/api/auth/password-reset/confirm", map[string]any{
		"token":    token,
		"password": "brand-new-password",
	})
	handler.ConfirmPasswordReset(c)
	require.Equal(t, http.StatusOK, recorder.Code)

	// The new password logs in, the old one no longer does.
	c, recorder = newTestRequest(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    user.Email,
		"password": "brand-new-password",
	})
	handler.Login(c)
	require.Equal(t, http.StatusOK, recorder.Code)

	c, recorder = newTestRequest(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    user.Email,
		"password": "correct-horse-battery",
	})
	handler.Login(c)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestAuthHandlerPasswordResetRequestIsSilentForUnknownEmail(t *testing.T) {
	_, handler, mailer := newAuthHandlerEnv(t)

	c, recorder := newTestRequest(t, http.MethodPost, "/api/auth/password-reset/request", map[string]any{
		"email": "nobody@example.com",
	})
	handler.RequestPasswordReset(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Empty(t, mailer.messages)
}

func tokenFromResetMessage(t *testing.T, body string) string {
	t.Helper()
	idx := strings.Index(body, "token=")
	require.GreaterOrEqual(t, idx, 0, "reset mail must carry a token link")
	token := body[idx+len("token="):]
	if end := strings.IndexAny(token, " \n"); end >= 0 {
		token = token[:end]
	}
	return strings.TrimSpace(token)
}
