package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/workstead/workstead/internal/middleware"
	"github.com/workstead/workstead/internal/services"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentScope builds the caller's visibility scope from the claims the auth
// middleware stored on the request.
func currentScope(c *gin.Context) services.Scope {
	scope := services.Scope{}
	if v, ok := c.Get(middleware.CtxUserIDKey); ok {
		if id, ok := v.(string); ok {
			scope.UserID = id
		}
	}
	if v, ok := c.Get(middleware.CtxRoleKey); ok {
		if role, ok := v.(string); ok {
			scope.Role = role
		}
	}
	if v, ok := c.Get(middleware.CtxCompanyIDKey); ok {
		if companyID, ok := v.(string); ok {
			scope.CompanyID = companyID
		}
	}
	return scope
}
