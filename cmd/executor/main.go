package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowvault/flowvault-backend/internal/executor/api"
	"github.com/flowvault/flowvault-backend/internal/executor/audit"
	"github.com/flowvault/flowvault-backend/internal/executor/capability"
	"github.com/flowvault/flowvault-backend/internal/executor/config"
	"github.com/flowvault/flowvault-backend/internal/executor/history"
	"github.com/flowvault/flowvault-backend/internal/executor/metrics"
	"github.com/flowvault/flowvault-backend/internal/executor/repository"
	"github.com/flowvault/flowvault-backend/internal/executor/scheduler"
	"github.com/flowvault/flowvault-backend/internal/executor/strategy"
	"github.com/flowvault/flowvault-backend/internal/executor/swap"
	"github.com/flowvault/flowvault-backend/pkg/client/chain"
	"github.com/flowvault/flowvault-backend/pkg/client/quote"
	"github.com/flowvault/flowvault-backend/pkg/database"
	"github.com/flowvault/flowvault-backend/pkg/logging"
	"github.com/flowvault/flowvault-backend/pkg/resilience"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := config.Init(); err != nil {
		panic(fmt.Sprintf("Failed to initialize config: %v", err))
	}

	logConfig := logging.NewDefaultConfig(logging.ExecutorProcess)
	if !config.IsDevMode() {
		logConfig.Environment = logging.Production
		logConfig.UseColors = false
	}
	if err := logging.InitServiceLogger(logConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	logger := logging.GetServiceLogger()

	logger.Info("Starting executor...",
		"dev_mode", config.IsDevMode(),
		"port", config.GetExecutorAPIPort(),
		"database", config.GetDatabaseHostAddress(),
	)

	dbConfig := database.NewConfig(config.GetDatabaseHostAddress(), config.GetDatabaseHostPort())
	if err := database.InitSchema(dbConfig.Hosts); err != nil {
		metrics.TrackDBConnectionError()
		logger.Fatalf("Failed to initialize database schema: %v", err)
	}
	conn, err := database.NewConnection(dbConfig, logger)
	if err != nil {
		metrics.TrackDBConnectionError()
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	capabilityRepo := repository.NewCapabilityRepository(conn)
	strategyRepo := repository.NewStrategyRepository(conn)
	historyRepo := repository.NewHistoryRepository(conn)

	auditSink := audit.NewLogSink(logger)

	custodian, err := capability.NewCustodian(config.GetSessionKeyEncryptionKey(), capabilityRepo)
	if err != nil {
		logger.Fatalf("Failed to initialize key custodian: %v", err)
	}

	capabilities := capability.NewService(capabilityRepo, custodian, auditSink, logger)
	strategies := strategy.NewService(strategyRepo, capabilities, logger)
	executionHistory := history.NewService(historyRepo, logger, config.GetHistoryLimit())
	capabilities.SetCascades(strategies, executionHistory)

	if err := strategies.SeedIndex(); err != nil {
		logger.Fatalf("Failed to seed due-index: %v", err)
	}
	logger.Infof("Due-index seeded with %d active strategies", strategies.IndexSize())

	quoteProvider, err := quote.NewHTTPProvider(config.GetQuoteProviderURL(), logger)
	if err != nil {
		logger.Fatalf("Failed to initialize quote provider: %v", err)
	}
	defer quoteProvider.Close()

	broadcaster, err := chain.NewBroadcaster(
		config.GetChainRPCURL(),
		int64(config.GetChainID()),
		config.GetRouterAddress(),
		logger,
	)
	if err != nil {
		logger.Fatalf("Failed to connect to chain RPC: %v", err)
	}

	breakers, err := resilience.NewManager(resilience.BreakerConfig{
		FailureThreshold: config.GetBreakerFailureThreshold(),
		SuccessThreshold: config.GetBreakerSuccessThreshold(),
		OpenTimeout:      config.GetBreakerOpenTimeout(),
		MonitoringWindow: config.GetBreakerMonitoringWindow(),
		CallTimeout:      config.GetBreakerCallTimeout(),
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize circuit breakers: %v", err)
	}

	swapExecutor := swap.NewExecutor(quoteProvider, broadcaster, breakers, int64(config.GetQuoteFallbackBps()), logger)

	sched := scheduler.New(
		scheduler.Config{
			TickInterval:  config.GetTickInterval(),
			MaxWorkers:    config.GetMaxWorkers(),
			RouterAddress: config.GetRouterAddress(),
		},
		strategies, custodian, capabilities, swapExecutor, executionHistory, auditSink, logger,
	)
	if err := sched.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	metrics.StartMetricsCollection()

	server := api.NewServer(api.Config{Port: config.GetExecutorAPIPort()}, api.Dependencies{
		Logger:       logger,
		Capabilities: capabilities,
		Strategies:   strategies,
		History:      executionHistory,
		Scheduler:    sched,
	})

	serverErrors := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("Server error received", "error", err)
	case sig := <-shutdown:
		logger.Info("Received shutdown signal", "signal", sig.String())
	}

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Errorf("Failed to stop API server cleanly: %v", err)
	}

	if err := logging.Shutdown(); err != nil {
		fmt.Printf("Failed to shutdown logger: %v\n", err)
	}
	logger.Info("Executor stopped")
}
