// Package api exposes the assessment workflow over HTTP: session lifecycle
// endpoints, the model catalog, patient history, and a websocket status
// stream.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clinical-assessment-server/internal/config"
	"github.com/clinical-assessment-server/internal/database"
	"github.com/clinical-assessment-server/internal/domain"
	"github.com/clinical-assessment-server/internal/history"
)

// Server is the HTTP server for the assessment service.
type Server struct {
	config   *config.ServerConfig
	registry *domain.Registry
	sessions *SessionManager
	history  *history.Controller
	patients domain.PatientDirectory
	hub      *StatusHub
	db       *database.DB
	log      *logrus.Logger

	router *gin.Engine
	server *http.Server
}

// ServerOption customizes optional server wiring.
type ServerOption func(*Server)

// WithDatabase attaches the history database pool so the health endpoint
// can report its status. Only set when the history backend is postgres.
func WithDatabase(db *database.DB) ServerOption {
	return func(s *Server) {
		s.db = db
	}
}

// NewServer creates a new HTTP server instance.
func NewServer(
	cfg *config.ServerConfig,
	registry *domain.Registry,
	sessions *SessionManager,
	historyCtrl *history.Controller,
	patients domain.PatientDirectory,
	hub *StatusHub,
	log *logrus.Logger,
	opts ...ServerOption,
) *Server {
	if log == nil {
		log = logrus.New()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	s := &Server{
		config:   cfg,
		registry: registry,
		sessions: sessions,
		history:  historyCtrl,
		patients: patients,
		hub:      hub,
		log:      log,
		router:   router,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// Router returns the underlying gin engine, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until the context is cancelled, then shuts it
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/models", s.handleListModels)
		v1.GET("/models/:id", s.handleGetModel)

		v1.GET("/patients/:id", s.handleGetPatient)

		v1.POST("/sessions", s.handleCreateSession)
		v1.GET("/sessions/:id", s.handleGetSession)
		v1.PUT("/sessions/:id/fields", s.handleSetField)
		v1.POST("/sessions/:id/submit", s.handleSubmit)
		v1.POST("/sessions/:id/retry", s.handleRetry)
		v1.POST("/sessions/:id/override", s.handleSetOverride)
		v1.POST("/sessions/:id/persist", s.handlePersist)
		v1.DELETE("/sessions/:id", s.handleAbandonSession)
		v1.GET("/sessions/:id/events", s.handleSessionEvents)

		v1.GET("/history", s.handleListHistory)
		v1.GET("/history/:id", s.handleGetRecord)
		v1.PUT("/history/:id/override", s.handleRecordOverride)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":        "healthy",
		"timestamp":     time.Now(),
		"live_sessions": s.sessions.Count(),
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := s.db.Health(ctx); err != nil {
			body["status"] = "degraded"
			body["database"] = gin.H{"status": "unreachable", "error": err.Error()}
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}

		stats := s.db.Stats()
		body["database"] = gin.H{
			"status":      "connected",
			"total_conns": stats.TotalConns(),
			"idle_conns":  stats.IdleConns(),
		}
	}

	c.JSON(http.StatusOK, body)
}

// renderError maps workflow errors onto HTTP statuses.
func (s *Server) renderError(c *gin.Context, err error) {
	if domain.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{
			"code":    domain.ErrCodeNotFound,
			"message": err.Error(),
		}})
		return
	}

	var ae *domain.AssessmentError
	if errors.As(err, &ae) {
		c.JSON(statusForCode(ae.Code), gin.H{"error": ae})
		return
	}

	var fe *domain.FieldError
	if errors.As(err, &fe) {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code":    domain.ErrCodeFieldValidation,
			"field":   fe.Field,
			"message": fe.Reason,
		}})
		return
	}

	s.log.WithError(err).Error("Unhandled API error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "internal server error",
	}})
}

func statusForCode(code string) int {
	switch code {
	case domain.ErrCodeValidation, domain.ErrCodeFieldValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeStateConflict:
		return http.StatusConflict
	case domain.ErrCodePredictionFailed, domain.ErrCodeMalformedPrediction:
		return http.StatusBadGateway
	case domain.ErrCodePersistenceFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
