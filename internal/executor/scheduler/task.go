package scheduler

import (
	"errors"
	"time"

	"github.com/flowvault/flowvault-backend/internal/executor/audit"
	"github.com/flowvault/flowvault-backend/internal/executor/metrics"
	"github.com/flowvault/flowvault-backend/internal/executor/strategy"
	"github.com/flowvault/flowvault-backend/pkg/cryptography"
	"github.com/flowvault/flowvault-backend/pkg/resilience"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

// runTask executes one due strategy end to end. Every exit path advances
// the strategy's schedule so a failing task cannot wedge itself into a
// retry storm, and a panic is contained to the task that raised it.
func (s *Scheduler) runTask(ref strategy.DueRef) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("Recovered from panic executing strategy %s: %v", ref.StrategyID, r)
			s.advanceSchedule(ref.AccountAddress, ref.StrategyID)
		}
	}()

	start := s.now()

	strat, err := s.strategies.Resolve(ref)
	if err != nil {
		if !errors.Is(err, types.ErrStaleIndexEntry) {
			s.logger.Errorf("Failed to load strategy %s: %v", ref.StrategyID, err)
		}
		return
	}
	if !strat.IsActive {
		return
	}

	s.sink.Record(audit.EventExecutionStarted, audit.Correlation{
		AccountAddress: strat.AccountAddress,
		StrategyID:     strat.StrategyID,
	}, map[string]interface{}{"from": strat.FromAsset, "to": strat.ToAsset})

	record := types.ExecutionRecord{
		AccountAddress: strat.AccountAddress,
		StrategyID:     strat.StrategyID,
		Timestamp:      start,
		Amount:         strat.AmountPerExecution,
		FromAsset:      strat.FromAsset,
		ToAsset:        strat.ToAsset,
	}

	privateKey, err := s.vault.Decrypt(strat.AccountAddress)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrCapabilityNotFound), errors.Is(err, types.ErrCapabilityExpired):
			// The session is gone for good. Retire the strategy instead
			// of failing it on every future tick.
			s.retireStrategy(strat, record, types.ReasonSessionExpired, err, start)
		case errors.Is(err, cryptography.ErrInvalidCiphertext):
			// Undecryptable session material will never succeed either.
			s.retireStrategy(strat, record, types.ReasonSessionCorrupted, err, start)
		default:
			s.failTask(record, types.ReasonUpstreamFailure, err, start)
			s.advanceSchedule(strat.AccountAddress, strat.StrategyID)
		}
		return
	}

	capabilityRecord, err := s.caps.Get(strat.AccountAddress)
	if err != nil {
		s.failTask(record, types.ReasonSessionExpired, err, start)
		s.advanceSchedule(strat.AccountAddress, strat.StrategyID)
		return
	}

	if err := s.validate(&capabilityRecord, s.config.RouterAddress, strat.AmountPerExecution, s.now()); err != nil {
		reason := types.DenialReason(err)
		metrics.TrackValidationDenial(reason)
		s.sink.Record(audit.EventValidationDenied, audit.Correlation{
			AccountAddress: strat.AccountAddress,
			StrategyID:     strat.StrategyID,
		}, map[string]interface{}{"reason": reason})
		s.failTask(record, reason, err, start)
		s.advanceSchedule(strat.AccountAddress, strat.StrategyID)
		return
	}

	result, err := s.swaps.Execute(s.ctx, cryptography.SessionKeyFrom(privateKey), strat)
	if err != nil {
		reason := types.ReasonUpstreamFailure
		if errors.Is(err, resilience.ErrCircuitOpen) {
			reason = types.ReasonCircuitOpen
		}
		s.failTask(record, reason, err, start)
		s.advanceSchedule(strat.AccountAddress, strat.StrategyID)
		return
	}

	if result.Quote.Fallback {
		metrics.QuoteFallbacksTotal.Inc()
	}

	record.Status = types.ExecutionSuccess
	record.TxHash = result.TxHash
	metrics.TrackExecution(string(types.ExecutionSuccess), s.now().Sub(start))
	s.recordOutcome(record, nil)
	s.advanceSchedule(strat.AccountAddress, strat.StrategyID)
}

// retireStrategy deactivates a strategy whose session can never be
// unsealed again, records the failure and updates the schedule one last
// time.
func (s *Scheduler) retireStrategy(strat types.StrategyData, record types.ExecutionRecord, reason string, err error, start time.Time) {
	if derr := s.strategies.Deactivate(strat.AccountAddress, strat.StrategyID); derr != nil {
		s.logger.Errorf("Failed to deactivate strategy %s: %v", strat.StrategyID, derr)
	}
	s.failTask(record, reason, err, start)
	s.advanceSchedule(strat.AccountAddress, strat.StrategyID)
}

func (s *Scheduler) failTask(record types.ExecutionRecord, reason string, err error, start time.Time) {
	record.Status = types.ExecutionFailed
	record.Reason = reason
	metrics.TrackExecution(string(types.ExecutionFailed), s.now().Sub(start))
	s.recordOutcome(record, err)
}

// advanceSchedule reschedules unconditionally after an attempt. A stale
// entry means the strategy vanished mid-flight, which is not an error.
func (s *Scheduler) advanceSchedule(accountAddress, strategyID string) {
	if err := s.strategies.Advance(accountAddress, strategyID); err != nil &&
		!errors.Is(err, types.ErrStaleIndexEntry) && !errors.Is(err, types.ErrStrategyNotFound) {
		s.logger.Errorf("Failed to advance strategy %s: %v", strategyID, err)
	}
}
