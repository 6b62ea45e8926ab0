package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowvault/flowvault-backend/internal/executor/api/handlers"
	"github.com/flowvault/flowvault-backend/internal/executor/capability"
	"github.com/flowvault/flowvault-backend/internal/executor/history"
	"github.com/flowvault/flowvault-backend/internal/executor/scheduler"
	"github.com/flowvault/flowvault-backend/internal/executor/strategy"
	"github.com/flowvault/flowvault-backend/pkg/logging"
)

// Server represents the API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     logging.Logger
}

// Config holds the server configuration
type Config struct {
	Port string
}

// Dependencies holds the server dependencies
type Dependencies struct {
	Logger       logging.Logger
	Capabilities *capability.Service
	Strategies   *strategy.Service
	History      *history.Service
	Scheduler    *scheduler.Scheduler
}

// NewServer creates a new API server
func NewServer(cfg Config, deps Dependencies) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(TraceMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(LoggerMiddleware(deps.Logger))
	router.Use(ErrorMiddleware(deps.Logger))

	srv := &Server{
		router: router,
		logger: deps.Logger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Port),
			Handler: router,
		},
	}

	srv.setupRoutes(deps)
	return srv
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("Starting API server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	return s.httpServer.Shutdown(ctx)
}

// setupRoutes sets up the routes for the server
func (s *Server) setupRoutes(deps Dependencies) {
	statusHandler := handlers.NewStatusHandler(deps.Logger)
	metricsHandler := handlers.NewMetricsHandler(deps.Logger)
	capabilityHandler := handlers.NewCapabilityHandler(deps.Logger, deps.Capabilities)
	strategyHandler := handlers.NewStrategyHandler(deps.Logger, deps.Strategies, deps.History)
	executorHandler := handlers.NewExecutorHandler(deps.Logger, deps.Scheduler)

	s.router.GET("/status", statusHandler.Status)
	s.router.GET("/metrics", metricsHandler.Metrics)

	api := s.router.Group("/api/v1")
	{
		api.POST("/capabilities", capabilityHandler.Create)
		api.GET("/capabilities/:address", capabilityHandler.Get)
		api.POST("/capabilities/:address/preflight", capabilityHandler.Preflight)
		api.DELETE("/capabilities/:address", capabilityHandler.Revoke)

		api.POST("/strategies", strategyHandler.Create)
		api.GET("/strategies/:address", strategyHandler.List)
		api.GET("/strategies/:address/:id", strategyHandler.Get)
		api.PUT("/strategies/:address/:id/status", strategyHandler.SetStatus)
		api.DELETE("/strategies/:address/:id", strategyHandler.Delete)

		api.GET("/history/:address", strategyHandler.History)

		api.GET("/executor/stats", executorHandler.GetStats)
		api.POST("/executor/tick", executorHandler.ForceTick)
	}
}
