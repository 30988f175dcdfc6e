package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/charlesng35/shortlink/internal/clicks"
	"github.com/charlesng35/shortlink/internal/services"
	"github.com/charlesng35/shortlink/pkg/logger"
	"github.com/charlesng35/shortlink/pkg/metrics"
)

const qrImageSize = 256

// ClickPublisher accepts click events from the redirect path. Satisfied by
// the queue publishers and by the synchronous recorder.
type ClickPublisher interface {
	Publish(ctx context.Context, event clicks.Event) error
}

// RedirectHandler serves the public alias routes: the 302 redirect and the
// QR image.
type RedirectHandler struct {
	resolver *services.ResolverService
	publishr ClickPublisher
	now      func() int64
	log      *zap.Logger
}

// NewRedirectHandler constructs the handler. resolver may be nil when no
// store is configured; publisher may be nil when click tracking is disabled.
func NewRedirectHandler(resolver *services.ResolverService, publisher ClickPublisher) *RedirectHandler {
	return &RedirectHandler{
		resolver: resolver,
		publishr: publisher,
		now:      func() int64 { return time.Now().Unix() },
		log:      logger.WithModule("redirect"),
	}
}

// Redirect resolves the alias and issues a 302 to its target. Absent,
// inactive, and expired aliases are indistinguishable 404s.
func (h *RedirectHandler) Redirect(c *gin.Context) {
	if h.resolver == nil {
		c.String(http.StatusServiceUnavailable, "Database not configured")
		return
	}

	alias := services.SanitizeAlias(c.Param("alias"))
	if alias == "" {
		c.String(http.StatusNotFound, "Link not found")
		return
	}

	// Store failures also resolve to ErrNotFound, so every failure mode
	// fails closed here.
	target, err := h.resolver.Resolve(requestContext(c), alias)
	if err != nil {
		c.String(http.StatusNotFound, "Link not found")
		return
	}

	h.recordClick(c, alias)

	c.Redirect(http.StatusFound, target)
}

// QR renders a PNG QR code for the alias's target URL.
func (h *RedirectHandler) QR(c *gin.Context) {
	if h.resolver == nil {
		c.String(http.StatusServiceUnavailable, "Database not configured")
		return
	}

	alias := services.SanitizeAlias(c.Param("alias"))
	if alias == "" {
		c.String(http.StatusNotFound, "Alias not found")
		return
	}

	target, err := h.resolver.Resolve(requestContext(c), alias)
	if err != nil {
		c.String(http.StatusNotFound, "Alias not found")
		return
	}

	png, err := qrcode.Encode(target, qrcode.Medium, qrImageSize)
	if err != nil {
		h.log.Error("qr encode failed", zap.String("alias", alias), zap.Error(err))
		c.String(http.StatusInternalServerError, "Error generating QR code")
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}

// recordClick emits one click event for a successful resolution. Best-effort:
// a failed publish is logged and counted, never surfaced to the visitor.
func (h *RedirectHandler) recordClick(c *gin.Context, alias string) {
	if h.publishr == nil {
		metrics.ClickEvents.WithLabelValues("dropped").Inc()
		return
	}

	event := clicks.Event{
		Alias:     alias,
		TS:        h.now(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	}

	if err := h.publishr.Publish(requestContext(c), event); err != nil {
		metrics.ClickEvents.WithLabelValues("publish_failed").Inc()
		h.log.Warn("click publish failed", zap.String("alias", alias), zap.Error(err))
		return
	}
	metrics.ClickEvents.WithLabelValues("published").Inc()
}
