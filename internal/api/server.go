// Package api serves the diagnosis engine over HTTP. The /api/frames,
// /api/symptoms and /api/diagnose routes keep the exact JSON shapes the
// browser front-end consumes.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/frame-dx-server/internal/domain"
	"github.com/frame-dx-server/internal/feedback"
	"github.com/frame-dx-server/internal/health"
	"github.com/frame-dx-server/internal/kb"
	"github.com/frame-dx-server/internal/middleware"
	"github.com/frame-dx-server/internal/service"
)

// Dependencies are the components the HTTP layer serves. Feedback may be nil,
// in which case the feedback routes answer 503. Health may be nil, in which
// case /health reports the frame store only.
type Dependencies struct {
	Frames    *kb.Holder
	Diagnosis *service.DiagnosisService
	Feedback  feedback.Store
	Health    *health.Checker
	Logger    *logrus.Logger
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	deps          Dependencies
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
	upgrader      *websocket.Upgrader
	startedAt     time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	s := &Server{
		configManager: configManager,
		deps:          deps,
		logger:        deps.Logger,
		router:        router,
		upgrader:      newUpgrader(cfg.Server.AllowedOrigins),
		startedAt:     time.Now(),
	}
	s.setupRoutes(cfg)

	return s
}

// Handler exposes the router, mainly for tests.
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
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(cfg *domain.Config) {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/frames", s.handleFrames)
		api.GET("/symptoms", s.handleSymptoms)
		api.GET("/diseases", s.handleDiseases)

		diagnose := []gin.HandlerFunc{s.handleDiagnose}
		live := []gin.HandlerFunc{s.handleDiagnoseWS}
		if cfg.RateLimit.Enabled {
			limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
			diagnose = append([]gin.HandlerFunc{limiter.Middleware()}, diagnose...)
			live = append([]gin.HandlerFunc{limiter.Middleware()}, live...)
		}
		api.POST("/diagnose", diagnose...)
		api.GET("/ws/diagnose", live...)

		api.POST("/feedback", s.handleSaveFeedback)
		api.GET("/feedback", s.handleListFeedback)
		api.GET("/feedback/export", s.handleExportFeedback)

		api.GET("/history", s.handleRecentHistory)
		api.GET("/history/:id", s.handleGetHistory)

		admin := api.Group("/admin", middleware.AdminToken(cfg.Server.AdminToken))
		admin.POST("/reload", s.handleReload)
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.CorrelationIDHeader},
		ExposeHeaders: []string{middleware.CorrelationIDHeader, diagnosisIDHeader, snapshotHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
