package repository

import (
	"time"

	"github.com/flowvault/flowvault-backend/pkg/types"
)

// CapabilityRepository persists delegated session account records.
type CapabilityRepository interface {
	CreateCapability(capability *types.CapabilityData) error
	// GetCapabilityByAddress returns types.ErrCapabilityNotFound if no
	// record exists. Expiry is a caller concern.
	GetCapabilityByAddress(accountAddress string) (types.CapabilityData, error)
	DeleteCapability(accountAddress string) error
}

// StrategyRepository persists recurring strategy records.
type StrategyRepository interface {
	CreateStrategy(strategy *types.StrategyData) error
	GetStrategy(accountAddress, strategyID string) (types.StrategyData, error)
	ListStrategiesByAccount(accountAddress string) ([]types.StrategyData, error)
	// ListActiveStrategies is used once at startup to seed the due-index.
	ListActiveStrategies() ([]types.StrategyData, error)
	UpdateStrategyStatus(accountAddress, strategyID string, isActive bool) error
	UpdateStrategyExecution(accountAddress, strategyID string, lastExecutedAt, nextDueAt time.Time) error
	DeleteStrategy(accountAddress, strategyID string) error
	DeleteStrategiesByAccount(accountAddress string) error
}

// HistoryRepository persists the append-only execution history.
type HistoryRepository interface {
	InsertExecution(record *types.ExecutionRecord) error
	ListExecutionsByAccount(accountAddress string, limit int) ([]types.ExecutionRecord, error)
	DeleteExecutionsBefore(accountAddress string, cutoff time.Time) error
	DeleteExecutionsByAccount(accountAddress string) error
}
