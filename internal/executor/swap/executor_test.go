package swap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowvault/flowvault-backend/pkg/client/chain"
	"github.com/flowvault/flowvault-backend/pkg/client/quote"
	"github.com/flowvault/flowvault-backend/pkg/cryptography"
	"github.com/flowvault/flowvault-backend/pkg/logging"
	"github.com/flowvault/flowvault-backend/pkg/resilience"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

type fakeQuoteProvider struct {
	calls  int
	err    error
	result types.QuoteResult
}

func (f *fakeQuoteProvider) GetQuote(ctx context.Context, request quote.Request) (types.QuoteResult, error) {
	f.calls++
	if f.err != nil {
		return types.QuoteResult{}, f.err
	}
	return f.result, nil
}

type fakeBroadcaster struct {
	calls   int
	err     error
	lastKey *cryptography.SessionKey
	last    chain.SwapCall
}

func (f *fakeBroadcaster) Broadcast(ctx context.Context, key *cryptography.SessionKey, call chain.SwapCall) (string, error) {
	f.calls++
	f.lastKey = key
	f.last = call
	if f.err != nil {
		return "", f.err
	}
	return "0xdeadbeef", nil
}

func testBreakerConfig() resilience.BreakerConfig {
	return resilience.BreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		OpenTimeout:      time.Minute,
		MonitoringWindow: 5 * time.Minute,
	}
}

func newTestExecutor(t *testing.T, quotes *fakeQuoteProvider, broadcaster *fakeBroadcaster) *Executor {
	t.Helper()
	breakers, err := resilience.NewManager(testBreakerConfig(), logging.NoopLogger{})
	require.NoError(t, err)
	return NewExecutor(quotes, broadcaster, breakers, 200, logging.NoopLogger{})
}

func dailyStrategy() types.StrategyData {
	return types.StrategyData{
		StrategyID:         "s-1",
		AccountAddress:     "0xAA",
		FromAsset:          "USDC",
		ToAsset:            "WETH",
		FromChainID:        "8453",
		ToChainID:          "8453",
		AmountPerExecution: types.NewBigIntFromInt64(1000000),
		Interval:           types.IntervalDaily,
		IsActive:           true,
	}
}

func sessionKey(t *testing.T) *cryptography.SessionKey {
	t.Helper()
	key, err := cryptography.GenerateSessionKey()
	require.NoError(t, err)
	return key
}

func TestExecuteUsesLiveQuoteAsMinimum(t *testing.T) {
	quotes := &fakeQuoteProvider{result: types.QuoteResult{AmountOut: types.NewBigIntFromInt64(995000)}}
	broadcaster := &fakeBroadcaster{}
	executor := newTestExecutor(t, quotes, broadcaster)

	result, err := executor.Execute(context.Background(), sessionKey(t), dailyStrategy())
	require.NoError(t, err)

	assert.Equal(t, "0xdeadbeef", result.TxHash)
	assert.False(t, result.Quote.Fallback)
	assert.Equal(t, "995000", broadcaster.last.MinAmountOut.String())
}

func TestExecuteDegradesToFallbackQuote(t *testing.T) {
	quotes := &fakeQuoteProvider{err: errors.New("aggregator down")}
	broadcaster := &fakeBroadcaster{}
	executor := newTestExecutor(t, quotes, broadcaster)

	result, err := executor.Execute(context.Background(), sessionKey(t), dailyStrategy())
	require.NoError(t, err)

	assert.True(t, result.Quote.Fallback)
	// 2% haircut off the input amount
	assert.Equal(t, "980000", broadcaster.last.MinAmountOut.String())
	assert.Equal(t, "0xdeadbeef", result.TxHash)
}

func TestQuoteCircuitOpenSkipsProvider(t *testing.T) {
	quotes := &fakeQuoteProvider{err: errors.New("aggregator down")}
	broadcaster := &fakeBroadcaster{}
	executor := newTestExecutor(t, quotes, broadcaster)

	strategy := dailyStrategy()
	key := sessionKey(t)

	// Two failures trip the quote breaker
	for i := 0; i < 2; i++ {
		_, err := executor.Execute(context.Background(), key, strategy)
		require.NoError(t, err)
	}
	require.Equal(t, 2, quotes.calls)

	result, err := executor.Execute(context.Background(), key, strategy)
	require.NoError(t, err)
	assert.True(t, result.Quote.Fallback)
	assert.Equal(t, 2, quotes.calls, "open circuit must not invoke the provider")
	assert.Equal(t, resilience.StateOpen, executor.BreakerStates()[resilience.CategoryQuote])
}

func TestBroadcastFailureIsUpstream(t *testing.T) {
	quotes := &fakeQuoteProvider{result: types.QuoteResult{AmountOut: types.NewBigIntFromInt64(995000)}}
	broadcaster := &fakeBroadcaster{err: errors.New("rpc timeout")}
	executor := newTestExecutor(t, quotes, broadcaster)

	_, err := executor.Execute(context.Background(), sessionKey(t), dailyStrategy())
	assert.ErrorIs(t, err, types.ErrUpstreamFailure)
}

func TestBroadcastCircuitOpenRejectsWithoutCalling(t *testing.T) {
	quotes := &fakeQuoteProvider{result: types.QuoteResult{AmountOut: types.NewBigIntFromInt64(995000)}}
	broadcaster := &fakeBroadcaster{err: errors.New("rpc timeout")}
	executor := newTestExecutor(t, quotes, broadcaster)

	strategy := dailyStrategy()
	key := sessionKey(t)

	for i := 0; i < 2; i++ {
		_, err := executor.Execute(context.Background(), key, strategy)
		require.ErrorIs(t, err, types.ErrUpstreamFailure)
	}
	require.Equal(t, 2, broadcaster.calls)

	_, err := executor.Execute(context.Background(), key, strategy)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 2, broadcaster.calls, "open circuit must not invoke the broadcaster")

	// Quote side is unaffected by the broadcast outage
	assert.Equal(t, resilience.StateClosed, executor.BreakerStates()[resilience.CategoryQuote])
}
