package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanqian/rockwatch/internal/domain/auth"
	"github.com/yanqian/rockwatch/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
// Mutating routes require a bearer token when authSvc is enabled.
func NewRouter(cfg *config.Config, handler *Handler, authSvc auth.Service) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(handler.logger),
	)

	router.GET("/healthz", handler.Health)
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api/v1")
	api.Use(rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger))
	{
		api.GET("/sites", handler.Sites)
		api.GET("/sites/:id/latest", handler.Latest)
		api.GET("/sites/:id/history", handler.History)
		api.GET("/assessments/:id", handler.Assessment)
		api.GET("/assessments/:id/report", handler.Report)
		api.GET("/alerts", handler.Alerts)
		api.GET("/alerts/stats", handler.AlertStats)
		api.GET("/ws/alerts", handler.StreamAlerts)
	}

	protected := api.Group("")
	if authSvc != nil && authSvc.Enabled() {
		protected.Use(requireOperator(authSvc))
	}
	{
		protected.POST("/evaluations", handler.Evaluate)
		protected.POST("/alerts/:id/acknowledge", handler.Acknowledge)
		protected.POST("/alerts/:id/resolve", handler.Resolve)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, handler.logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
