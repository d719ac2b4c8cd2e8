package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventfold/analytics/internal/auth"
	"github.com/eventfold/analytics/internal/domain"
	"github.com/eventfold/analytics/internal/logger"
)

// APIKeyHeader carries the plaintext key secret
const APIKeyHeader = "X-API-Key"

// identityKey is the gin context key holding the authenticated identity
const identityKey = "auth_identity"

// KeyValidator authenticates a plaintext key secret against a required permission
type KeyValidator interface {
	ValidateKey(ctx context.Context, secret string, required domain.Permission) (*auth.Identity, error)
}

// RequirePermission returns a gin middleware that authenticates the request's
// API key and checks it grants the required capability. The key is read from
// the X-API-Key header, with "Authorization: ApiKey <secret>" as a fallback.
func RequirePermission(v KeyValidator, required domain.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := extractKey(c)
		identity, err := v.ValidateKey(c.Request.Context(), secret, required)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, domain.ErrPermissionDenied) {
				status = http.StatusForbidden
			}
			logger.Warn("Authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(status, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Authentication failed",
				},
			})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the authenticated identity stored by RequirePermission
func IdentityFrom(c *gin.Context) *auth.Identity {
	value, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := value.(*auth.Identity)
	return identity
}

func extractKey(c *gin.Context) string {
	if key := c.GetHeader(APIKeyHeader); key != "" {
		return key
	}

	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "apikey") {
		return parts[1]
	}
	return ""
}
