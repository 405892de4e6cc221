// Package http provides the API server: routing, middleware and health endpoints.
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

	"github.com/allisson/newsletter/internal/config"
	"github.com/allisson/newsletter/internal/metrics"
	newsletterHTTP "github.com/allisson/newsletter/internal/newsletter/http"
	userHTTP "github.com/allisson/newsletter/internal/user/http"
	userUseCase "github.com/allisson/newsletter/internal/user/usecase"
)

const readinessTimeout = 2 * time.Second

// Server is the public API server.
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a new Server. Call SetupRouter before Start.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
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

// SetupRouter registers middleware and routes.
//
// The admin routes require HTTP Basic credentials of a registered user and, when enabled,
// are rate limited per user. ctx bounds the lifetime of background middleware state.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	users userUseCase.UseCase,
	newsletterHandler *newsletterHTTP.NewsletterHandler,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	admin := router.Group("/v1/admin")
	admin.Use(userHTTP.BasicAuthMiddleware(users, s.logger))
	if cfg.RateLimitEnabled {
		admin.Use(userHTTP.RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	newsletters := admin.Group("/newsletters")
	{
		newsletters.POST("", newsletterHandler.PublishHandler)
		newsletters.GET("", newsletterHandler.ListHandler)
		newsletters.GET("/:id", newsletterHandler.GetHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
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

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports ready only when the database answers a ping.
func (s *Server) readinessHandler(c *gin.Context) {
	dbStatus := "ok"
	if s.db == nil {
		dbStatus = "error"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("readiness check failed", slog.Any("error", err))
			dbStatus = "error"
		}
	}

	if dbStatus != "ok" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": dbStatus},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": dbStatus},
	})
}
