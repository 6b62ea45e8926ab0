package history

import (
	"time"

	"github.com/flowvault/flowvault-backend/internal/executor/repository"
	"github.com/flowvault/flowvault-backend/pkg/logging"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

// DefaultLimit caps how many history entries a read returns per account.
const DefaultLimit = 50

// Service owns the append-only execution history. Appends are best-effort:
// a failed write is logged and swallowed so the execution pipeline never
// stalls on bookkeeping.
type Service struct {
	repo   repository.HistoryRepository
	logger logging.Logger
	limit  int

	now func() time.Time
}

func NewService(repo repository.HistoryRepository, logger logging.Logger, limit int) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{
		repo:   repo,
		logger: logger,
		limit:  limit,
		now:    time.Now,
	}
}

// Append records one execution attempt and evicts entries past the
// retention bound, oldest first. Timestamp is stamped here if the caller
// left it zero.
func (s *Service) Append(record types.ExecutionRecord) {
	if record.Timestamp.IsZero() {
		record.Timestamp = s.now()
	}
	if err := s.repo.InsertExecution(&record); err != nil {
		s.logger.Errorf("Failed to record execution for strategy %s: %v", record.StrategyID, err)
		return
	}
	s.enforceBound(record.AccountAddress)
}

// enforceBound trims an account's history back down to the configured
// limit. Best-effort like the append itself.
func (s *Service) enforceBound(accountAddress string) {
	records, err := s.repo.ListExecutionsByAccount(accountAddress, s.limit+1)
	if err != nil {
		s.logger.Errorf("Failed to check history bound for %s: %v", accountAddress, err)
		return
	}
	if len(records) <= s.limit {
		return
	}
	// Records come back newest first; everything older than the Nth entry
	// goes.
	cutoff := records[s.limit-1].Timestamp
	if err := s.TrimBefore(accountAddress, cutoff); err != nil {
		s.logger.Errorf("Failed to trim history for %s: %v", accountAddress, err)
	}
}

// ListByAccount returns the most recent entries for an account, newest first,
// bounded by the configured limit.
func (s *Service) ListByAccount(accountAddress string) ([]types.ExecutionRecord, error) {
	return s.repo.ListExecutionsByAccount(accountAddress, s.limit)
}

// PurgeAccount removes every history entry for an account. Used when the
// account's capability is revoked.
func (s *Service) PurgeAccount(accountAddress string) error {
	return s.repo.DeleteExecutionsByAccount(accountAddress)
}

// TrimBefore drops entries older than the cutoff for an account.
func (s *Service) TrimBefore(accountAddress string, cutoff time.Time) error {
	return s.repo.DeleteExecutionsBefore(accountAddress, cutoff)
}
