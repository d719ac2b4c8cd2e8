package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventfold/analytics/internal/auth"
	"github.com/eventfold/analytics/internal/domain"
)

type fakeValidator struct {
	secret   string
	required domain.Permission
	identity *auth.Identity
	err      error
}

func (f *fakeValidator) ValidateKey(_ context.Context, secret string, required domain.Permission) (*auth.Identity, error) {
	f.secret = secret
	f.required = required
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

func protectedRouter(v KeyValidator, required domain.Permission) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", RequirePermission(v, required), func(c *gin.Context) {
		identity := IdentityFrom(c)
		if identity == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "identity missing"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID})
	})
	return router
}

func TestRequirePermissionAccepted(t *testing.T) {
	v := &fakeValidator{identity: &auth.Identity{KeyID: 1, UserID: "u1"}}
	router := protectedRouter(v, domain.PermissionRead)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(APIKeyHeader, "efk_secret")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "efk_secret", v.secret)
	assert.Equal(t, domain.PermissionRead, v.required)
	assert.Contains(t, w.Body.String(), "u1")
}

func TestRequirePermissionAuthorizationFallback(t *testing.T) {
	v := &fakeValidator{identity: &auth.Identity{KeyID: 1, UserID: "u1"}}
	router := protectedRouter(v, domain.PermissionRead)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "ApiKey efk_secret")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "efk_secret", v.secret)
}

func TestRequirePermissionRejectsInvalidKey(t *testing.T) {
	v := &fakeValidator{err: domain.ErrAPIKeyInvalid}
	router := protectedRouter(v, domain.PermissionRead)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(APIKeyHeader, "bogus")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequirePermissionRejectsMissingCapability(t *testing.T) {
	v := &fakeValidator{err: domain.ErrPermissionDenied}
	router := protectedRouter(v, domain.PermissionWrite)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(APIKeyHeader, "efk_readonly")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequirePermissionMissingHeader(t *testing.T) {
	v := &fakeValidator{err: domain.ErrAPIKeyInvalid}
	router := protectedRouter(v, domain.PermissionRead)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, v.secret)
}
