package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/flowvault/flowvault-backend/internal/executor/repository"
	"github.com/flowvault/flowvault-backend/pkg/logging"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

// CapabilityChecker verifies that a non-expired capability exists for an
// account. Implemented by the capability service.
type CapabilityChecker interface {
	Get(accountAddress string) (types.CapabilityData, error)
}

// Service owns recurring strategy records and the due-index.
type Service struct {
	repo         repository.StrategyRepository
	capabilities CapabilityChecker
	logger       logging.Logger
	index        *dueIndex

	now func() time.Time
}

func NewService(repo repository.StrategyRepository, capabilities CapabilityChecker, logger logging.Logger) *Service {
	return &Service{
		repo:         repo,
		capabilities: capabilities,
		logger:       logger,
		index:        newDueIndex(),
		now:          time.Now,
	}
}

// SeedIndex loads every active strategy into the due-index. Called once at
// startup before the scheduler ticks.
func (s *Service) SeedIndex() error {
	strategies, err := s.repo.ListActiveStrategies()
	if err != nil {
		return fmt.Errorf("failed to seed due-index: %w", err)
	}
	for _, strategy := range strategies {
		s.index.insert(strategy.StrategyID, strategy.AccountAddress, strategy.NextDueAt)
	}
	s.logger.Infof("Seeded due-index with %d active strategies", len(strategies))
	return nil
}

// Create registers a new recurring strategy. Requires an existing,
// non-expired capability; the first due time is one interval from now.
func (s *Service) Create(request types.CreateStrategyRequest) (types.StrategyData, error) {
	if !request.Interval.Valid() {
		return types.StrategyData{}, fmt.Errorf("unknown interval class: %q", request.Interval)
	}
	if request.AmountPerExecution == nil || request.AmountPerExecution.Int == nil || request.AmountPerExecution.Sign() <= 0 {
		return types.StrategyData{}, errors.New("amount per execution must be positive")
	}
	if request.FromAsset == "" || request.ToAsset == "" {
		return types.StrategyData{}, errors.New("asset pair is required")
	}

	if _, err := s.capabilities.Get(request.AccountAddress); err != nil {
		return types.StrategyData{}, err
	}

	interval, err := request.Interval.Duration()
	if err != nil {
		return types.StrategyData{}, err
	}

	now := s.now()
	strategy := types.StrategyData{
		StrategyID:         types.NewStrategyID(request.AccountAddress, now),
		AccountAddress:     request.AccountAddress,
		FromAsset:          request.FromAsset,
		ToAsset:            request.ToAsset,
		FromChainID:        request.FromChainID,
		ToChainID:          request.ToChainID,
		AmountPerExecution: request.AmountPerExecution,
		Interval:           request.Interval,
		NextDueAt:          now.Add(interval),
		IsActive:           true,
		CreatedAt:          now,
	}

	if err := s.repo.CreateStrategy(&strategy); err != nil {
		return types.StrategyData{}, err
	}
	s.index.insert(strategy.StrategyID, strategy.AccountAddress, strategy.NextDueAt)

	return strategy, nil
}

// Get returns one strategy record.
func (s *Service) Get(accountAddress, strategyID string) (types.StrategyData, error) {
	return s.repo.GetStrategy(accountAddress, strategyID)
}

// ListByAccount returns all strategies owned by an account.
func (s *Service) ListByAccount(accountAddress string) ([]types.StrategyData, error) {
	return s.repo.ListStrategiesByAccount(accountAddress)
}

// SetActive toggles a strategy. Deactivation removes it from the due-index
// only; the record remains. Activation reinserts it at its stored NextDueAt.
func (s *Service) SetActive(accountAddress, strategyID string, active bool) error {
	strategy, err := s.repo.GetStrategy(accountAddress, strategyID)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateStrategyStatus(accountAddress, strategyID, active); err != nil {
		return err
	}

	if active {
		s.index.insert(strategyID, accountAddress, strategy.NextDueAt)
	} else {
		s.index.remove(strategyID)
	}
	return nil
}

// Delete removes a strategy from both the record table and the due-index.
func (s *Service) Delete(accountAddress, strategyID string) error {
	if _, err := s.repo.GetStrategy(accountAddress, strategyID); err != nil {
		return err
	}
	if err := s.repo.DeleteStrategy(accountAddress, strategyID); err != nil {
		return err
	}
	s.index.remove(strategyID)
	return nil
}

// DueAsOf returns every strategy whose indexed due time has passed.
func (s *Service) DueAsOf(now time.Time) []DueRef {
	return s.index.dueAsOf(now)
}

// Resolve loads the record behind a due-index entry. If the record was
// deleted out-of-band the stale entry is pruned and ErrStaleIndexEntry is
// returned; the caller skips the task.
func (s *Service) Resolve(ref DueRef) (types.StrategyData, error) {
	strategy, err := s.repo.GetStrategy(ref.AccountAddress, ref.StrategyID)
	if err != nil {
		if errors.Is(err, types.ErrStrategyNotFound) {
			s.index.remove(ref.StrategyID)
			s.logger.Warnf("Pruned stale due-index entry for strategy %s", ref.StrategyID)
			return types.StrategyData{}, types.ErrStaleIndexEntry
		}
		return types.StrategyData{}, err
	}
	return strategy, nil
}

// Advance reschedules a strategy after an execution attempt. The next due
// time is measured from now, not from the missed due time, which avoids
// execution storms after downtime. Runs unconditionally after every
// attempt, success or failure, to guarantee forward progress.
func (s *Service) Advance(accountAddress, strategyID string) error {
	strategy, err := s.repo.GetStrategy(accountAddress, strategyID)
	if err != nil {
		if errors.Is(err, types.ErrStrategyNotFound) {
			s.index.remove(strategyID)
			return types.ErrStaleIndexEntry
		}
		return err
	}

	interval, err := strategy.Interval.Duration()
	if err != nil {
		return err
	}

	now := s.now()
	nextDueAt := now.Add(interval)
	if err := s.repo.UpdateStrategyExecution(accountAddress, strategyID, now, nextDueAt); err != nil {
		return err
	}

	if strategy.IsActive {
		s.index.insert(strategyID, accountAddress, nextDueAt)
	}
	return nil
}

// Deactivate marks a strategy inactive and drops it from the due-index.
// Used by the scheduler when the owning capability has gone away.
func (s *Service) Deactivate(accountAddress, strategyID string) error {
	if err := s.repo.UpdateStrategyStatus(accountAddress, strategyID, false); err != nil {
		return err
	}
	s.index.remove(strategyID)
	return nil
}

// RemoveAccount deletes every strategy for an account, record and index
// both. Implements the capability revocation cascade.
func (s *Service) RemoveAccount(accountAddress string) error {
	strategies, err := s.repo.ListStrategiesByAccount(accountAddress)
	if err != nil {
		return err
	}
	for _, strategy := range strategies {
		s.index.remove(strategy.StrategyID)
	}
	return s.repo.DeleteStrategiesByAccount(accountAddress)
}

// IndexSize returns the number of currently indexed strategies.
func (s *Service) IndexSize() int {
	return s.index.size()
}
