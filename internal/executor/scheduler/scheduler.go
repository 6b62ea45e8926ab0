package scheduler

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowvault/flowvault-backend/internal/executor/audit"
	"github.com/flowvault/flowvault-backend/internal/executor/capability"
	"github.com/flowvault/flowvault-backend/internal/executor/metrics"
	"github.com/flowvault/flowvault-backend/internal/executor/strategy"
	"github.com/flowvault/flowvault-backend/pkg/cryptography"
	"github.com/flowvault/flowvault-backend/pkg/logging"
	"github.com/flowvault/flowvault-backend/pkg/resilience"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

const (
	defaultWorkerPoolSize = 10
	taskQueueSize         = 100
	shutdownGracePeriod   = 30 * time.Second
)

// KeyVault decrypts the session signing key for an account.
type KeyVault interface {
	Decrypt(accountAddress string) (*ecdsa.PrivateKey, error)
}

// Capabilities reads live capability records.
type Capabilities interface {
	Get(accountAddress string) (types.CapabilityData, error)
}

// Strategies is the due-selection and rescheduling surface the scheduler
// drives.
type Strategies interface {
	DueAsOf(now time.Time) []strategy.DueRef
	Resolve(ref strategy.DueRef) (types.StrategyData, error)
	Advance(accountAddress, strategyID string) error
	Deactivate(accountAddress, strategyID string) error
	IndexSize() int
}

// SwapRunner executes one guarded swap for a strategy.
type SwapRunner interface {
	Execute(ctx context.Context, key *cryptography.SessionKey, strategy types.StrategyData) (types.SwapResult, error)
	BreakerStates() map[string]resilience.State
}

// HistorySink appends execution records, best-effort.
type HistorySink interface {
	Append(record types.ExecutionRecord)
}

// PermissionCheck validates one spend against a capability's grants.
type PermissionCheck func(capability *types.CapabilityData, targetAddress string, nativeValue *types.BigInt, now time.Time) error

// Config holds scheduler tuning.
type Config struct {
	TickInterval  time.Duration
	MaxWorkers    int
	RouterAddress string
}

// Scheduler drives recurring swap execution: every tick it drains the
// due-index, fans tasks out to a bounded worker pool, and guarantees each
// strategy advances exactly once per attempt. One failing task never
// poisons the rest of a tick, and a strategy is never executed by two
// workers at once.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger logging.Logger

	config     Config
	strategies Strategies
	vault      KeyVault
	caps       Capabilities
	swaps      SwapRunner
	history    HistorySink
	sink       audit.Sink
	validate   PermissionCheck

	cron       *cron.Cron
	workerPool chan struct{}
	taskQueue  chan strategy.DueRef
	wg         sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
	stats    tickStats

	now func() time.Time
}

type tickStats struct {
	ticks       int64
	executed    int64
	failed      int64
	lastTickAt  time.Time
	lastTickDue int
}

func New(config Config, strategies Strategies, vault KeyVault, caps Capabilities, swaps SwapRunner, history HistorySink, sink audit.Sink, logger logging.Logger) *Scheduler {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = defaultWorkerPoolSize
	}
	if config.TickInterval <= 0 {
		config.TickInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
		config:     config,
		strategies: strategies,
		vault:      vault,
		caps:       caps,
		swaps:      swaps,
		history:    history,
		sink:       sink,
		validate:   capability.ValidatePermission,
		cron:       cron.New(),
		workerPool: make(chan struct{}, config.MaxWorkers),
		taskQueue:  make(chan strategy.DueRef, taskQueueSize),
		inflight:   make(map[string]struct{}),
		now:        time.Now,
	}
}

// Start launches the workers and the tick loop.
func (s *Scheduler) Start() error {
	for i := 0; i < s.config.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	spec := fmt.Sprintf("@every %s", s.config.TickInterval)
	if _, err := s.cron.AddFunc(spec, s.Tick); err != nil {
		return fmt.Errorf("failed to schedule tick loop: %w", err)
	}
	s.cron.Start()

	s.logger.Infof("Scheduler started: tick every %s, %d workers", s.config.TickInterval, s.config.MaxWorkers)
	return nil
}

// Stop halts the tick loop and waits for in-flight tasks to drain.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")

	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
	case <-time.After(shutdownGracePeriod):
		s.logger.Warn("Timeout waiting for workers to finish")
	}
}

// Tick selects every due strategy and queues it for execution. Exported
// so operators can force a pass outside the cron cadence.
func (s *Scheduler) Tick() {
	now := s.now()
	due := s.strategies.DueAsOf(now)

	metrics.TicksTotal.Inc()
	metrics.DueBacklog.Set(float64(len(due)))
	metrics.StrategiesIndexed.Set(float64(s.strategies.IndexSize()))
	metrics.TrackCircuitStates(s.swaps.BreakerStates())

	s.mu.Lock()
	s.stats.ticks++
	s.stats.lastTickAt = now
	s.stats.lastTickDue = len(due)
	s.mu.Unlock()

	if len(due) == 0 {
		return
	}
	s.logger.Infof("Tick found %d due strategies", len(due))

	for _, ref := range due {
		if !s.claim(ref.StrategyID) {
			s.logger.Debugf("Strategy %s already executing, skipping", ref.StrategyID)
			continue
		}
		select {
		case s.taskQueue <- ref:
		default:
			s.release(ref.StrategyID)
			s.logger.Warnf("Task queue full, strategy %s deferred to next tick", ref.StrategyID)
		}
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ref := <-s.taskQueue:
			s.workerPool <- struct{}{}
			metrics.ExecutionsInFlight.Inc()
			s.runTask(ref)
			metrics.ExecutionsInFlight.Dec()
			<-s.workerPool
			s.release(ref.StrategyID)
		}
	}
}

// claim marks a strategy as executing. Returns false if it already is.
func (s *Scheduler) claim(strategyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[strategyID]; busy {
		return false
	}
	s.inflight[strategyID] = struct{}{}
	return true
}

func (s *Scheduler) release(strategyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, strategyID)
}

// Stats returns a snapshot for the operations API.
func (s *Scheduler) Stats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]interface{}{
		"ticks":            s.stats.ticks,
		"executed":         s.stats.executed,
		"failed":           s.stats.failed,
		"last_tick_at":     s.stats.lastTickAt,
		"last_tick_due":    s.stats.lastTickDue,
		"indexed":          s.strategies.IndexSize(),
		"queue_length":     len(s.taskQueue),
		"workers_busy":     len(s.workerPool),
		"max_workers":      s.config.MaxWorkers,
		"circuit_breakers": s.swaps.BreakerStates(),
	}
}

func (s *Scheduler) recordOutcome(record types.ExecutionRecord, err error) {
	s.history.Append(record)

	s.mu.Lock()
	if record.Status == types.ExecutionSuccess {
		s.stats.executed++
	} else {
		s.stats.failed++
	}
	s.mu.Unlock()

	correlation := audit.Correlation{
		AccountAddress: record.AccountAddress,
		StrategyID:     record.StrategyID,
		OperationID:    audit.NewOperationID(),
	}
	if record.Status == types.ExecutionSuccess {
		s.sink.Record(audit.EventExecutionSuccess, correlation, map[string]interface{}{"tx_hash": record.TxHash})
	} else {
		s.sink.Record(audit.EventExecutionFailed, correlation, map[string]interface{}{"reason": record.Reason})
		if err != nil {
			s.logger.Warnf("Execution failed for strategy %s: %s (%v)", record.StrategyID, record.Reason, err)
		}
	}
}
