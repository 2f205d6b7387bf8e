package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursehub-api/internal/models"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
	"github.com/noah-isme/coursehub-api/pkg/response"
)

// RequireRole rejects callers whose resolved identity does not hold role.
// Must run after Identity.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentIdentity(c).Is(role) {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "you must be signed in as "+string(role)))
			c.Abort()
			return
		}
		c.Next()
	}
}
