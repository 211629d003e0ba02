package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/looply-api/models"
)

// RequireRole must run after AuthMiddleware. It answers 403 when the token's
// role is not the wanted one.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "This action requires the " + string(role) + " role"})
			return
		}
		c.Next()
	}
}
