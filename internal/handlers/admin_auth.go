package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/shortlink/internal/middleware"
	"github.com/charlesng35/shortlink/internal/services"
	apperrors "github.com/charlesng35/shortlink/pkg/errors"
	"github.com/charlesng35/shortlink/pkg/response"
)

// AdminAuthHandler exposes the admin session endpoints.
type AdminAuthHandler struct {
	svc *services.AdminService
}

// NewAdminAuthHandler constructs a handler using the provided service.
func NewAdminAuthHandler(svc *services.AdminService) *AdminAuthHandler {
	return &AdminAuthHandler{svc: svc}
}

type adminLoginPayload struct {
	Password string `json:"password" validate:"required"`
}

// Login exchanges the admin password for a session token.
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var payload adminLoginPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	token, expiresAt, err := h.svc.Login(requestContext(c), payload.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.Unix(),
	})
}

// Session reports whether the presented token is still valid.
func (h *AdminAuthHandler) Session(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.svc.Verify(requestContext(c), token); err != nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"authenticated": true})
}

// Logout revokes the presented session token.
func (h *AdminAuthHandler) Logout(c *gin.Context) {
	if token := middleware.BearerToken(c); token != "" {
		_ = h.svc.Logout(requestContext(c), token)
	}
	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}
