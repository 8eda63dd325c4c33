// Package api exposes the interview service over HTTP for the chat UI.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clinical-interview-sim/internal/domain"
	"github.com/clinical-interview-sim/internal/middleware"
	"github.com/clinical-interview-sim/internal/service"
)

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	interview     *service.InterviewService
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, interview *service.InterviewService, logger *logrus.Logger) (*Server, error) {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(corsMiddleware())
	if cfg.RateLimit.Enabled {
		limiter, err := middleware.NewClientLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		router.Use(middleware.RateLimit(limiter))
	}

	server := &Server{
		configManager: configManager,
		interview:     interview,
		logger:        logger,
		router:        router,
	}

	server.setupRoutes()

	return server, nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		cases := v1.Group("/cases")
		cases.POST("", s.handleStartCase)
		cases.GET("/:id/family", s.handleFamilyTree)
		cases.POST("/:id/questions", s.handleAsk)
		cases.POST("/:id/reset", s.handleReset)
		cases.GET("/:id/score", s.handleScore)
		cases.POST("/:id/end", s.handleEndCase)

		v1.GET("/catalog/conditions", s.handleListConditions)
		v1.GET("/catalog/questions", s.handleListQuestions)

		v1.GET("/transcripts/:id", s.handleGetTranscript)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"timestamp":       time.Now(),
		"version":         "1.0.0",
		"active_sessions": s.interview.ActiveSessions(),
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// writeError renders err as an InterviewError with a status derived from its kind.
func (s *Server) writeError(c *gin.Context, err error) {
	requestID := c.GetString(middleware.RequestIDKey)

	var validation *domain.ValidationError
	var status int
	var ierr *domain.InterviewError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
		ierr = domain.NewInterviewError(domain.ErrCodeValidation, validation.Error(), "", requestID)
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
		ierr = domain.NewInterviewError(domain.ErrCodeSessionNotFound, "Session not found", err.Error(), requestID)
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		ierr = domain.NewInterviewError(domain.ErrCodeNotFound, "Record not found", err.Error(), requestID)
	case errors.Is(err, domain.ErrStoreDisabled):
		status = http.StatusServiceUnavailable
		ierr = domain.NewInterviewError(domain.ErrCodeUnavailable, "Transcript storage is not configured", "", requestID)
	default:
		status = http.StatusInternalServerError
		ierr = domain.NewInterviewError(domain.ErrCodeInternalServer, "Internal server error", "", requestID)
		s.logger.WithError(err).WithField("request_id", requestID).Error("Request failed")
	}
	c.AbortWithStatusJSON(status, ierr)
}
