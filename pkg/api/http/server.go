package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opsforge/coordd/internal/application/dispatcher"
	"github.com/opsforge/coordd/internal/application/supervisor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	server     *http.Server
	dispatcher *dispatcher.Dispatcher
	supervisor *supervisor.Supervisor
	logger     *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Port       int
	Dispatcher *dispatcher.Dispatcher
	Supervisor *supervisor.Supervisor
	Logger     *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))

	s := &Server{
		router:     router,
		dispatcher: cfg.Dispatcher,
		supervisor: cfg.Supervisor,
		logger:     cfg.Logger,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// Generic named-request dispatch
		v1.POST("/requests", s.handleDispatch)

		// Convenience read endpoints for dashboards
		v1.GET("/instances", s.handleListInstances)
		v1.GET("/tasks", s.handleListTasks)
		v1.GET("/stats", s.handleStats)
		v1.GET("/state", s.handleState)

		// Process supervision boundary
		if s.supervisor != nil {
			v1.POST("/processes", s.handleRunProcess)
			v1.GET("/processes", s.handleListProcesses)
			v1.DELETE("/processes/:name", s.handleKillProcess)
			v1.POST("/builds", s.handleBuildArtifact)
		}
	}
}

// SetupWebSocket adds the event stream handler to the server
func (s *Server) SetupWebSocket(handler interface {
	HandleEventStream(*gin.Context)
}) {
	s.router.GET("/api/v1/events/ws", handler.HandleEventStream)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}

// requestLogger is a middleware for request logging
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()))
	}
}
