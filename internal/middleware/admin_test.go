package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/shortlink/internal/services"
	"github.com/charlesng35/shortlink/pkg/crypto"
)

func newAdminRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	admin, err := services.NewAdminService(nil, crypto.SHA256Hex("letmein"), "test-secret")
	require.NoError(t, err)

	token, _, err := admin.Login(context.Background(), "letmein")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/protected", AdminAuth(admin), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r, token
}

func TestAdminAuthAcceptsValidToken(t *testing.T) {
	r, token := newAdminRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAdminAuthRejectsMissingHeader(t *testing.T) {
	r, _ := newAdminRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthRejectsGarbageToken(t *testing.T) {
	r, _ := newAdminRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	c.Request.Header.Set("Authorization", "Bearer abc123")
	require.Equal(t, "abc123", BearerToken(c))

	c.Request.Header.Set("Authorization", "bearer abc123")
	require.Equal(t, "abc123", BearerToken(c))

	c.Request.Header.Set("Authorization", "Basic abc123")
	require.Empty(t, BearerToken(c))

	c.Request.Header.Del("Authorization")
	require.Empty(t, BearerToken(c))
}
