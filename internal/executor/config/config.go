package config

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/flowvault/flowvault-backend/pkg/env"
)

type Config struct {
	devMode bool

	// ScyllaDB host and port
	databaseHostAddress string
	databaseHostPort    string

	// Operations API port
	executorAPIPort string

	// Master key for session key encryption at rest
	sessionKeyEncryptionKey string

	// Upstream endpoints
	quoteProviderURL string
	chainRPCURL      string
	chainID          int
	routerAddress    string

	// Scheduler tuning
	tickInterval time.Duration
	maxWorkers   int

	// Execution history retention per account
	historyLimit int

	// Circuit breaker thresholds
	breakerFailureThreshold int
	breakerSuccessThreshold int
	breakerOpenTimeout      time.Duration
	breakerMonitoringWindow time.Duration
	breakerCallTimeout      time.Duration

	// Fallback quote haircut in basis points
	quoteFallbackBps int
}

var cfg Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	cfg = Config{
		devMode:                 env.GetEnvBool("DEV_MODE", false),
		databaseHostAddress:     env.GetEnvString("DATABASE_HOST", "localhost"),
		databaseHostPort:        env.GetEnvString("DATABASE_HOST_PORT", "9042"),
		executorAPIPort:         env.GetEnvString("EXECUTOR_API_PORT", "9006"),
		sessionKeyEncryptionKey: env.GetEnvString("SESSION_KEY_ENCRYPTION_KEY", ""),
		quoteProviderURL:        env.GetEnvString("QUOTE_PROVIDER_URL", "http://localhost:9010"),
		chainRPCURL:             env.GetEnvString("CHAIN_RPC_URL", "http://localhost:8545"),
		chainID:                 env.GetEnvInt("CHAIN_ID", 8453),
		routerAddress:           env.GetEnvString("ROUTER_ADDRESS", ""),
		tickInterval:            env.GetEnvDuration("TICK_INTERVAL", time.Minute),
		maxWorkers:              env.GetEnvInt("MAX_WORKERS", 10),
		historyLimit:            env.GetEnvInt("HISTORY_LIMIT", 50),
		breakerFailureThreshold: env.GetEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
		breakerSuccessThreshold: env.GetEnvInt("BREAKER_SUCCESS_THRESHOLD", 2),
		breakerOpenTimeout:      env.GetEnvDuration("BREAKER_OPEN_TIMEOUT", 60*time.Second),
		breakerMonitoringWindow: env.GetEnvDuration("BREAKER_MONITORING_WINDOW", 5*time.Minute),
		breakerCallTimeout:      env.GetEnvDuration("BREAKER_CALL_TIMEOUT", 15*time.Second),
		quoteFallbackBps:        env.GetEnvInt("QUOTE_FALLBACK_BPS", 500),
	}
	if err := validateConfig(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !cfg.devMode {
		gin.SetMode(gin.ReleaseMode)
	}
	return nil
}

func validateConfig() error {
	if !env.IsValidEncryptionKey(cfg.sessionKeyEncryptionKey) {
		return fmt.Errorf("invalid session key encryption key: must be 64 hex characters")
	}
	if !env.IsValidEthAddress(cfg.routerAddress) {
		return fmt.Errorf("invalid router address: %s", cfg.routerAddress)
	}
	if cfg.tickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	if cfg.maxWorkers < 1 {
		return fmt.Errorf("max workers must be >= 1")
	}
	if cfg.quoteFallbackBps < 0 || cfg.quoteFallbackBps >= 10000 {
		return fmt.Errorf("quote fallback bps must be in [0, 10000)")
	}
	return nil
}

func IsDevMode() bool {
	return cfg.devMode
}

func GetDatabaseHostAddress() string {
	return cfg.databaseHostAddress
}

func GetDatabaseHostPort() string {
	return cfg.databaseHostPort
}

func GetExecutorAPIPort() string {
	return cfg.executorAPIPort
}

func GetSessionKeyEncryptionKey() string {
	return cfg.sessionKeyEncryptionKey
}

func GetQuoteProviderURL() string {
	return cfg.quoteProviderURL
}

func GetChainRPCURL() string {
	return cfg.chainRPCURL
}

func GetChainID() int {
	return cfg.chainID
}

func GetRouterAddress() string {
	return cfg.routerAddress
}

func GetTickInterval() time.Duration {
	return cfg.tickInterval
}

func GetMaxWorkers() int {
	return cfg.maxWorkers
}

func GetHistoryLimit() int {
	return cfg.historyLimit
}

func GetBreakerFailureThreshold() int {
	return cfg.breakerFailureThreshold
}

func GetBreakerSuccessThreshold() int {
	return cfg.breakerSuccessThreshold
}

func GetBreakerOpenTimeout() time.Duration {
	return cfg.breakerOpenTimeout
}

func GetBreakerMonitoringWindow() time.Duration {
	return cfg.breakerMonitoringWindow
}

func GetBreakerCallTimeout() time.Duration {
	return cfg.breakerCallTimeout
}

func GetQuoteFallbackBps() int {
	return cfg.quoteFallbackBps
}
