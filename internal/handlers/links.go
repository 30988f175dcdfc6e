package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/shortlink/internal/services"
	"github.com/charlesng35/shortlink/pkg/response"
)

// LinkHandler exposes the link management API.
type LinkHandler struct {
	svc *services.LinkService
}

// NewLinkHandler constructs a handler using the provided service.
func NewLinkHandler(svc *services.LinkService) *LinkHandler {
	return &LinkHandler{svc: svc}
}

type createLinkPayload struct {
	Alias     string `json:"alias" validate:"max=64"`
	Target    string `json:"target" validate:"required,max=2048"`
	ExpiresAt *int64 `json:"expires_at"`
	Password  string `json:"password" validate:"max=128"`
}

// Create registers a new link.
func (h *LinkHandler) Create(c *gin.Context) {
	var payload createLinkPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	link, err := h.svc.Create(requestContext(c), services.CreateLinkInput{
		Alias:     payload.Alias,
		Target:    payload.Target,
		ExpiresAt: payload.ExpiresAt,
		Password:  payload.Password,
		CreatedBy: c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, link)
}

// List returns the newest links first.
func (h *LinkHandler) List(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 0)

	links, total, err := h.svc.List(requestContext(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	meta := &response.Meta{
		Limit: len(links),
		Total: int(total),
	}
	response.SuccessWithMeta(c, http.StatusOK, links, meta)
}

// Stats returns the dashboard summary.
func (h *LinkHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// Get returns a single link by id.
func (h *LinkHandler) Get(c *gin.Context) {
	link, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, link)
}

// Delete removes a link by id.
func (h *LinkHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
