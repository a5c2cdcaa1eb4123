package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/vidtrack/api/handler"
	"github.com/use-agent/vidtrack/api/middleware"
	"github.com/use-agent/vidtrack/config"
)

// Deps are the components the control API serves. Session may be nil when
// only the downloader is running.
type Deps struct {
	Session   handler.SessionController
	Downloads handler.DownloadManager
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is outside auth so monitoring probes always work.
func NewRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(deps.Session, deps.StartTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	// Session
	protected.GET("/session", handler.SessionStatus(deps.Session))
	protected.GET("/session/links", handler.SessionLinks(deps.Session))
	protected.POST("/session/stop", handler.StopSession(deps.Session))
	protected.POST("/session/stop-scroll", handler.StopScroll(deps.Session))

	// Downloads
	if deps.Downloads != nil {
		protected.POST("/downloads", handler.PostDownloads(deps.Downloads))
		protected.GET("/downloads", handler.ListDownloads(deps.Downloads))
		protected.GET("/downloads/events", handler.DownloadEvents(deps.Downloads, 500*time.Millisecond))
		protected.GET("/downloads/:id", handler.GetDownload(deps.Downloads))
		protected.POST("/downloads/cleanup", handler.CleanupDownloads(deps.Downloads))

		protected.GET("/settings", handler.GetSettings(deps.Downloads))
		protected.POST("/settings", handler.UpdateSettings(deps.Downloads))
		protected.POST("/settings/reset", handler.ResetSettings(deps.Downloads))
	}

	return r
}
