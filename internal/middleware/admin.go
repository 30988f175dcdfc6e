package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/shortlink/internal/services"
	apperrors "github.com/charlesng35/shortlink/pkg/errors"
	"github.com/charlesng35/shortlink/pkg/response"
)

// CtxAdminTokenKey holds the verified bearer token for downstream handlers.
const CtxAdminTokenKey = "adminToken"

// AdminAuth enforces a valid admin session token on protected routes.
func AdminAuth(admin *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if err := admin.Verify(c.Request.Context(), token); err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxAdminTokenKey, token)
		c.Next()
	}
}

// BearerToken extracts the token from an Authorization: Bearer header.
func BearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[7:])
}
