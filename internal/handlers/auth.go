package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/workstead/workstead/internal/services"
	"github.com/workstead/workstead/pkg/response"
)

// AuthHandler serves login, session introspection and the password reset flow.
type AuthHandler struct {
	auth  *services.AuthService
	users *services.UserService
	reset *services.PasswordResetService
}

// NewAuthHandler constructs an AuthHandler instance.
func NewAuthHandler(auth *services.AuthService, users *services.UserService, reset *services.PasswordResetService) (*AuthHandler, error) {
	if auth == nil {
		return nil, errors.New("auth handler: auth service is required")
	}
	if users == nil {
		return nil, errors.New("auth handler: user service is required")
	}
	if reset == nil {
		return nil, errors.New("auth handler: password reset service is required")
	}
	return &AuthHandler{auth: auth, users: users, reset: reset}, nil
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type resetRequestRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if !bindAndValidate(c, &body) {
		return
	}

	result, err := h.auth.Login(requestContext(c), services.LoginInput{
		Email:     body.Email,
		Password:  body.Password,
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	scope := currentScope(c)
	user, err := h.users.GetByID(requestContext(c), scope, scope.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/auth/password-reset/request
//
// Always answers 200 so the endpoint cannot be used to probe which email
// addresses have accounts.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var body resetRequestRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.reset.Request(requestContext(c), body.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"message": "if the address is registered, a reset link has been sent",
	})
}

// POST /api/auth/password-reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var body resetConfirmRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.reset.Confirm(requestContext(c), body.Token, body.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "password updated"})
}
