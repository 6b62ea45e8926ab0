package scheduler

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowvault/flowvault-backend/internal/executor/audit"
	"github.com/flowvault/flowvault-backend/internal/executor/strategy"
	"github.com/flowvault/flowvault-backend/pkg/cryptography"
	"github.com/flowvault/flowvault-backend/pkg/logging"
	"github.com/flowvault/flowvault-backend/pkg/resilience"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

const routerAddress = "0x1111111111111111111111111111111111111111"

// fakeStrategies simulates the due-index and rescheduling surface.
type fakeStrategies struct {
	mu          sync.Mutex
	records     map[string]types.StrategyData
	advanced    map[string]int
	deactivated map[string]bool
}

func newFakeStrategies() *fakeStrategies {
	return &fakeStrategies{
		records:     make(map[string]types.StrategyData),
		advanced:    make(map[string]int),
		deactivated: make(map[string]bool),
	}
}

func (f *fakeStrategies) add(record types.StrategyData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.StrategyID] = record
}

func (f *fakeStrategies) DueAsOf(now time.Time) []strategy.DueRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []strategy.DueRef
	for _, record := range f.records {
		if record.IsActive && !record.NextDueAt.After(now) {
			due = append(due, strategy.DueRef{
				StrategyID:     record.StrategyID,
				AccountAddress: record.AccountAddress,
				DueAt:          record.NextDueAt,
			})
		}
	}
	return due
}

func (f *fakeStrategies) Resolve(ref strategy.DueRef) (types.StrategyData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[ref.StrategyID]
	if !ok {
		return types.StrategyData{}, types.ErrStaleIndexEntry
	}
	return record, nil
}

func (f *fakeStrategies) Advance(accountAddress, strategyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[strategyID]
	if !ok {
		return types.ErrStrategyNotFound
	}
	f.advanced[strategyID]++
	record.NextDueAt = record.NextDueAt.Add(24 * time.Hour)
	f.records[strategyID] = record
	return nil
}

func (f *fakeStrategies) Deactivate(accountAddress, strategyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[strategyID]
	if !ok {
		return types.ErrStrategyNotFound
	}
	record.IsActive = false
	f.records[strategyID] = record
	f.deactivated[strategyID] = true
	return nil
}

func (f *fakeStrategies) IndexSize() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var active int
	for _, record := range f.records {
		if record.IsActive {
			active++
		}
	}
	return active
}

func (f *fakeStrategies) advances(strategyID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advanced[strategyID]
}

func (f *fakeStrategies) isDeactivated(strategyID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deactivated[strategyID]
}

// fakeVault decrypts per-account keys, with per-account failures.
type fakeVault struct {
	mu   sync.Mutex
	keys map[string]*ecdsa.PrivateKey
	errs map[string]error
}

func newFakeVault() *fakeVault {
	return &fakeVault{
		keys: make(map[string]*ecdsa.PrivateKey),
		errs: make(map[string]error),
	}
}

func (f *fakeVault) fail(accountAddress string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[accountAddress] = err
}

func (f *fakeVault) Decrypt(accountAddress string) (*ecdsa.PrivateKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[accountAddress]; err != nil {
		return nil, err
	}
	if key, ok := f.keys[accountAddress]; ok {
		return key, nil
	}
	generated, err := cryptography.GenerateSessionKey()
	if err != nil {
		return nil, err
	}
	f.keys[accountAddress] = generated.PrivateKey
	return generated.PrivateKey, nil
}

// fakeCaps returns a wide-open capability for every account.
type fakeCaps struct{}

func (fakeCaps) Get(accountAddress string) (types.CapabilityData, error) {
	return types.CapabilityData{
		AccountAddress:        accountAddress,
		ApprovedTargets:       []string{types.TargetWildcard},
		NativeValueLimitPerTx: types.NewBigIntFromInt64(1 << 40),
		ValidFrom:             time.Now().Add(-time.Hour),
		ValidUntil:            time.Now().Add(time.Hour),
	}, nil
}

// fakeSwaps executes swaps with configurable per-strategy outcomes.
type fakeSwaps struct {
	mu       sync.Mutex
	calls    map[string]int
	errs     map[string]error
	panics   map[string]bool
	fallback bool
	block    chan struct{}
}

func newFakeSwaps() *fakeSwaps {
	return &fakeSwaps{
		calls:  make(map[string]int),
		errs:   make(map[string]error),
		panics: make(map[string]bool),
	}
}

func (f *fakeSwaps) Execute(ctx context.Context, key *cryptography.SessionKey, strat types.StrategyData) (types.SwapResult, error) {
	f.mu.Lock()
	f.calls[strat.StrategyID]++
	err := f.errs[strat.StrategyID]
	shouldPanic := f.panics[strat.StrategyID]
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if shouldPanic {
		panic("swap pipeline blew up")
	}
	if err != nil {
		return types.SwapResult{}, err
	}
	return types.SwapResult{
		TxHash:    "0xdeadbeef",
		AmountIn:  strat.AmountPerExecution,
		Quote:     types.QuoteResult{AmountOut: strat.AmountPerExecution, Fallback: f.fallback},
		Completed: time.Now(),
	}, nil
}

func (f *fakeSwaps) BreakerStates() map[string]resilience.State {
	return map[string]resilience.State{}
}

func (f *fakeSwaps) callCount(strategyID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[strategyID]
}

// capturingHistory records appended execution entries.
type capturingHistory struct {
	mu      sync.Mutex
	entries []types.ExecutionRecord
}

func (c *capturingHistory) Append(record types.ExecutionRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, record)
}

func (c *capturingHistory) snapshot() []types.ExecutionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.ExecutionRecord, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *capturingHistory) byStrategy(strategyID string) []types.ExecutionRecord {
	var out []types.ExecutionRecord
	for _, entry := range c.snapshot() {
		if entry.StrategyID == strategyID {
			out = append(out, entry)
		}
	}
	return out
}

func activeStrategy(id, account string, dueAt time.Time) types.StrategyData {
	return types.StrategyData{
		StrategyID:         id,
		AccountAddress:     account,
		FromAsset:          "USDC",
		ToAsset:            "WETH",
		FromChainID:        "8453",
		ToChainID:          "8453",
		AmountPerExecution: types.NewBigIntFromInt64(1000000),
		Interval:           types.IntervalDaily,
		NextDueAt:          dueAt,
		IsActive:           true,
	}
}

type harness struct {
	scheduler  *Scheduler
	strategies *fakeStrategies
	vault      *fakeVault
	swaps      *fakeSwaps
	history    *capturingHistory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	strategies := newFakeStrategies()
	vault := newFakeVault()
	swaps := newFakeSwaps()
	history := &capturingHistory{}

	s := New(
		Config{TickInterval: time.Hour, MaxWorkers: 4, RouterAddress: routerAddress},
		strategies, vault, fakeCaps{}, swaps, history, audit.NoopSink{}, logging.NoopLogger{},
	)
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)

	return &harness{
		scheduler:  s,
		strategies: strategies,
		vault:      vault,
		swaps:      swaps,
		history:    history,
	}
}

func (h *harness) waitForRecords(t *testing.T, count int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(h.history.snapshot()) >= count
	}, 5*time.Second, 10*time.Millisecond)
}

func TestTickExecutesDueStrategies(t *testing.T) {
	h := newHarness(t)
	past := time.Now().Add(-time.Minute)
	h.strategies.add(activeStrategy("s-1", "0xAA", past))
	h.strategies.add(activeStrategy("s-2", "0xBB", past))

	h.scheduler.Tick()
	h.waitForRecords(t, 2)

	for _, id := range []string{"s-1", "s-2"} {
		records := h.history.byStrategy(id)
		require.Len(t, records, 1)
		assert.Equal(t, types.ExecutionSuccess, records[0].Status)
		assert.Equal(t, "0xdeadbeef", records[0].TxHash)
		assert.Equal(t, 1, h.strategies.advances(id))
	}
}

func TestTickSkipsNotYetDue(t *testing.T) {
	h := newHarness(t)
	h.strategies.add(activeStrategy("s-1", "0xAA", time.Now().Add(time.Hour)))

	h.scheduler.Tick()
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, h.history.snapshot())
	assert.Zero(t, h.swaps.callCount("s-1"))
}

func TestTickIsolatesFailingTask(t *testing.T) {
	h := newHarness(t)
	past := time.Now().Add(-time.Minute)
	h.strategies.add(activeStrategy("s-ok", "0xAA", past))
	h.strategies.add(activeStrategy("s-bad", "0xBB", past))
	h.swaps.errs["s-bad"] = errors.New("rpc down")

	h.scheduler.Tick()
	h.waitForRecords(t, 2)

	good := h.history.byStrategy("s-ok")
	require.Len(t, good, 1)
	assert.Equal(t, types.ExecutionSuccess, good[0].Status)

	bad := h.history.byStrategy("s-bad")
	require.Len(t, bad, 1)
	assert.Equal(t, types.ExecutionFailed, bad[0].Status)
	assert.Equal(t, types.ReasonUpstreamFailure, bad[0].Reason)

	// Both advanced regardless of outcome
	assert.Equal(t, 1, h.strategies.advances("s-ok"))
	assert.Equal(t, 1, h.strategies.advances("s-bad"))
}

func TestSessionExpiryRetiresStrategy(t *testing.T) {
	h := newHarness(t)
	h.strategies.add(activeStrategy("s-1", "0xAA", time.Now().Add(-time.Minute)))
	h.vault.fail("0xAA", types.ErrCapabilityExpired)

	h.scheduler.Tick()
	h.waitForRecords(t, 1)

	records := h.history.byStrategy("s-1")
	require.Len(t, records, 1)
	assert.Equal(t, types.ExecutionFailed, records[0].Status)
	assert.Equal(t, types.ReasonSessionExpired, records[0].Reason)
	assert.True(t, h.strategies.isDeactivated("s-1"))
	assert.Zero(t, h.swaps.callCount("s-1"))

	// A later tick finds nothing to do
	h.scheduler.Tick()
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, h.history.byStrategy("s-1"), 1)
}

func TestCorruptedSessionRetiresStrategy(t *testing.T) {
	h := newHarness(t)
	h.strategies.add(activeStrategy("s-1", "0xAA", time.Now().Add(-time.Minute)))
	h.vault.fail("0xAA", fmt.Errorf("failed to unseal session key for 0xAA: %w", cryptography.ErrInvalidCiphertext))

	h.scheduler.Tick()
	h.waitForRecords(t, 1)

	records := h.history.byStrategy("s-1")
	require.Len(t, records, 1)
	assert.Equal(t, types.ExecutionFailed, records[0].Status)
	assert.Equal(t, types.ReasonSessionCorrupted, records[0].Reason)
	assert.True(t, h.strategies.isDeactivated("s-1"))
	assert.Zero(t, h.swaps.callCount("s-1"))

	// A later tick finds nothing to do
	h.scheduler.Tick()
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, h.history.byStrategy("s-1"), 1)
}

func TestPermissionDenialRecorded(t *testing.T) {
	h := newHarness(t)
	h.strategies.add(activeStrategy("s-1", "0xAA", time.Now().Add(-time.Minute)))
	h.scheduler.validate = func(capability *types.CapabilityData, targetAddress string, nativeValue *types.BigInt, now time.Time) error {
		return types.ErrLimitExceeded
	}

	h.scheduler.Tick()
	h.waitForRecords(t, 1)

	records := h.history.byStrategy("s-1")
	require.Len(t, records, 1)
	assert.Equal(t, types.ExecutionFailed, records[0].Status)
	assert.Equal(t, types.ReasonLimitExceeded, records[0].Reason)
	assert.Zero(t, h.swaps.callCount("s-1"))
	assert.Equal(t, 1, h.strategies.advances("s-1"))
}

func TestCircuitOpenRecorded(t *testing.T) {
	h := newHarness(t)
	h.strategies.add(activeStrategy("s-1", "0xAA", time.Now().Add(-time.Minute)))
	h.swaps.errs["s-1"] = resilience.ErrCircuitOpen

	h.scheduler.Tick()
	h.waitForRecords(t, 1)

	records := h.history.byStrategy("s-1")
	require.Len(t, records, 1)
	assert.Equal(t, types.ReasonCircuitOpen, records[0].Reason)
	assert.Equal(t, 1, h.strategies.advances("s-1"))
}

func TestAtMostOneExecutionPerStrategy(t *testing.T) {
	h := newHarness(t)
	h.strategies.add(activeStrategy("s-1", "0xAA", time.Now().Add(-time.Minute)))
	h.swaps.block = make(chan struct{})

	h.scheduler.Tick()
	require.Eventually(t, func() bool {
		return h.swaps.callCount("s-1") == 1
	}, 5*time.Second, 10*time.Millisecond)

	// Re-ticking while the first attempt is still running must not start
	// a second execution
	h.scheduler.Tick()
	h.scheduler.Tick()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, h.swaps.callCount("s-1"))

	close(h.swaps.block)
	h.waitForRecords(t, 1)
	assert.Len(t, h.history.byStrategy("s-1"), 1)
}

func TestPanicIsContained(t *testing.T) {
	h := newHarness(t)
	past := time.Now().Add(-time.Minute)
	h.strategies.add(activeStrategy("s-boom", "0xAA", past))
	h.strategies.add(activeStrategy("s-ok", "0xBB", past))
	h.swaps.panics["s-boom"] = true

	h.scheduler.Tick()
	h.waitForRecords(t, 1)

	good := h.history.byStrategy("s-ok")
	require.Len(t, good, 1)
	assert.Equal(t, types.ExecutionSuccess, good[0].Status)

	// The panicking task still advanced and released its claim
	require.Eventually(t, func() bool {
		return h.strategies.advances("s-boom") == 1
	}, 5*time.Second, 10*time.Millisecond)

	h.scheduler.mu.Lock()
	_, stillClaimed := h.scheduler.inflight["s-boom"]
	h.scheduler.mu.Unlock()
	assert.False(t, stillClaimed)
}

func TestFallbackQuoteStillSucceeds(t *testing.T) {
	h := newHarness(t)
	h.strategies.add(activeStrategy("s-1", "0xAA", time.Now().Add(-time.Minute)))
	h.swaps.fallback = true

	h.scheduler.Tick()
	h.waitForRecords(t, 1)

	records := h.history.byStrategy("s-1")
	require.Len(t, records, 1)
	assert.Equal(t, types.ExecutionSuccess, records[0].Status)
}

func TestStatsSnapshot(t *testing.T) {
	h := newHarness(t)
	h.strategies.add(activeStrategy("s-1", "0xAA", time.Now().Add(-time.Minute)))

	h.scheduler.Tick()
	h.waitForRecords(t, 1)

	require.Eventually(t, func() bool {
		stats := h.scheduler.Stats()
		return stats["executed"] == int64(1)
	}, 5*time.Second, 10*time.Millisecond)

	stats := h.scheduler.Stats()
	assert.Equal(t, int64(1), stats["ticks"])
	assert.Equal(t, 1, stats["last_tick_due"])
	assert.Equal(t, 4, stats["max_workers"])
}
