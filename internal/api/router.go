package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/shortlink/internal/app"
	"github.com/charlesng35/shortlink/internal/handlers"
	"github.com/charlesng35/shortlink/internal/middleware"
	"github.com/charlesng35/shortlink/internal/monitoring"
	"github.com/charlesng35/shortlink/internal/services"
)

// Deps carries everything the router wires together.
type Deps struct {
	DB        *gorm.DB
	Config    *app.Config
	Resolver  *services.ResolverService
	Links     *services.LinkService
	Admin     *services.AdminService
	Publisher handlers.ClickPublisher
	Health    *monitoring.HealthManager
	RateStore middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Links == nil {
		return nil, fmt.Errorf("link service must be provided")
	}
	if deps.Admin == nil {
		return nil, fmt.Errorf("admin service must be provided")
	}
	if deps.Health == nil {
		deps.Health = monitoring.NewHealthManager()
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(deps.Health)
	if deps.Config.Monitoring.Health.Enabled {
		r.GET("/health", healthHandler.Live)
		r.GET("/health/ready", healthHandler.Ready)
	}

	if deps.Config.Monitoring.Prometheus.Enabled {
		endpoint := deps.Config.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// Public resolution routes. The resolver is nil when no store is
	// configured; the handler answers 503 in that case.
	redirectHandler := handlers.NewRedirectHandler(deps.Resolver, deps.Publisher)
	r.GET("/qr/:alias", redirectHandler.QR)
	r.GET("/:alias", redirectHandler.Redirect)

	// Link API
	linkHandler := handlers.NewLinkHandler(deps.Links)
	adminAuthHandler := handlers.NewAdminAuthHandler(deps.Admin)
	requireAdmin := middleware.AdminAuth(deps.Admin)

	var createLimiter gin.HandlerFunc
	if deps.Config.RateLimit.Enabled {
		createLimiter = middleware.RateLimit(deps.RateStore, deps.Config.RateLimit.Requests, deps.Config.RateLimit.Window)
	} else {
		createLimiter = func(c *gin.Context) { c.Next() }
	}

	api := r.Group("/api")
	{
		api.POST("/links", createLimiter, linkHandler.Create)
		api.GET("/links", requireAdmin, linkHandler.List)
		api.GET("/links/stats", requireAdmin, linkHandler.Stats)
		api.GET("/links/:id", requireAdmin, linkHandler.Get)
		api.DELETE("/links/:id", requireAdmin, linkHandler.Delete)

		admin := api.Group("/admin")
		{
			admin.POST("/login", adminAuthHandler.Login)
			admin.GET("/session", adminAuthHandler.Session)
			admin.POST("/logout", adminAuthHandler.Logout)
		}
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
