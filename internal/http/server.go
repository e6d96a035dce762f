// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	auditHTTP "github.com/allisson/trustcore/internal/audit/http"
	"github.com/allisson/trustcore/internal/config"
	dsrHTTP "github.com/allisson/trustcore/internal/dsr/http"
	"github.com/allisson/trustcore/internal/metrics"
	serviceAuthHTTP "github.com/allisson/trustcore/internal/serviceauth/http"
	serviceAuthService "github.com/allisson/trustcore/internal/serviceauth/service"
)

// Server represents the HTTP server.
type Server struct {
	db     *sql.DB
	router *gin.Engine
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new HTTP server. The router is built separately through
// SetupRouter so tests can exercise handlers without the full dependency set.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the route tree: health probes stay open, everything under
// /v1 sits behind the service token gate and per-caller rate limiting.
func (s *Server) SetupRouter(
	cfg *config.Config,
	verifier serviceAuthService.TokenVerifier,
	dsrHandler *dsrHTTP.Handler,
	auditHandler *auditHTTP.Handler,
	meterProvider metric.MeterProvider,
) *gin.Engine {
	router := gin.New()

	// Base middleware
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if meterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(meterProvider, cfg.MetricsNamespace))
	}

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	// Health probes, reachable without a service token
	router.GET("/health", s.healthHandler)
	router.GET("/healthz", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	// All API routes require a verified caller
	v1 := router.Group("/v1")
	v1.Use(serviceAuthHTTP.RequestGateMiddleware(verifier, s.logger))
	if cfg.RateLimitEnabled {
		v1.Use(serviceAuthHTTP.RateLimitMiddleware(
			cfg.RateLimitRequestsPerSec,
			cfg.RateLimitBurst,
			s.logger,
		))
	}

	v1.POST("/users/:user_id/export", dsrHandler.ExportHandler)
	v1.POST("/deletions", dsrHandler.RequestDeletionHandler)
	v1.GET("/deletions", dsrHandler.ListPendingDeletionsHandler)
	v1.GET("/deletions/:id", dsrHandler.GetDeletionHandler)
	v1.POST("/deletions/:id/execute", dsrHandler.ExecuteDeletionHandler)
	v1.POST("/deletions/:id/cancel", dsrHandler.CancelDeletionHandler)
	v1.GET("/audit-events", auditHandler.ListEventsHandler)

	s.router = router
	return router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports readiness to serve traffic, checking the database
// connection as the single hard dependency.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}

	if s.db == nil {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("readiness check failed", slog.String("error", err.Error()))
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	components["database"] = "ok"
	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}

// Start starts the HTTP server. SetupRouter must have been called first.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured: call SetupRouter before Start")
	}

	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
