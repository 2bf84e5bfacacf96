package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/workstead/workstead/pkg/errors"
	"github.com/workstead/workstead/pkg/response"
)

// RequireRole allows the request through only when the authenticated user's
// role is one of the supplied roles. Must run after Auth.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		v, ok := c.Get(CtxRoleKey)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		role, _ := v.(string)
		if _, ok := allowed[role]; !ok {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
