package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowvault/flowvault-backend/pkg/client/chain"
	"github.com/flowvault/flowvault-backend/pkg/client/quote"
	"github.com/flowvault/flowvault-backend/pkg/cryptography"
	"github.com/flowvault/flowvault-backend/pkg/logging"
	"github.com/flowvault/flowvault-backend/pkg/resilience"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

// Broadcaster submits a signed swap for a session key.
type Broadcaster interface {
	Broadcast(ctx context.Context, key *cryptography.SessionKey, call chain.SwapCall) (string, error)
}

// Executor runs the quote-then-broadcast pipeline with both upstream
// calls guarded by independent circuit breakers. A quoting outage
// degrades to a conservative fallback estimate; a broadcast outage fails
// the attempt.
type Executor struct {
	quotes      quote.Provider
	broadcaster Broadcaster
	breakers    *resilience.Manager
	logger      logging.Logger
	haircutBps  int64

	now func() time.Time
}

func NewExecutor(quotes quote.Provider, broadcaster Broadcaster, breakers *resilience.Manager, haircutBps int64, logger logging.Logger) *Executor {
	return &Executor{
		quotes:      quotes,
		broadcaster: broadcaster,
		breakers:    breakers,
		logger:      logger,
		haircutBps:  haircutBps,
		now:         time.Now,
	}
}

// Quote fetches a price through the quote breaker. When the breaker is
// open or the provider fails, it degrades to the deterministic fallback
// estimate rather than failing the attempt.
func (e *Executor) Quote(ctx context.Context, request quote.Request) types.QuoteResult {
	var result types.QuoteResult
	err := e.breakers.Execute(ctx, resilience.CategoryQuote, func(ctx context.Context) error {
		var quoteErr error
		result, quoteErr = e.quotes.GetQuote(ctx, request)
		return quoteErr
	})
	if err == nil {
		return result
	}

	if errors.Is(err, resilience.ErrCircuitOpen) {
		e.logger.Warnf("Quote circuit open, using fallback estimate for %s->%s", request.FromAsset, request.ToAsset)
	} else {
		e.logger.Warnf("Quote provider failed (%v), using fallback estimate for %s->%s", err, request.FromAsset, request.ToAsset)
	}
	return quote.Fallback(request.AmountIn, e.haircutBps)
}

// Execute runs one full swap for a strategy using its decrypted session
// key. The quote step never blocks execution; the broadcast step is
// mandatory and its failures surface as ErrCircuitOpen or
// ErrUpstreamFailure for the caller to classify.
func (e *Executor) Execute(ctx context.Context, key *cryptography.SessionKey, strategy types.StrategyData) (types.SwapResult, error) {
	quoteResult := e.Quote(ctx, quote.Request{
		FromAsset:   strategy.FromAsset,
		ToAsset:     strategy.ToAsset,
		FromChainID: strategy.FromChainID,
		ToChainID:   strategy.ToChainID,
		AmountIn:    strategy.AmountPerExecution,
	})

	call := chain.SwapCall{
		FromAsset:    strategy.FromAsset,
		ToAsset:      strategy.ToAsset,
		AmountIn:     strategy.AmountPerExecution,
		MinAmountOut: quoteResult.AmountOut,
	}

	var txHash string
	err := e.breakers.Execute(ctx, resilience.CategoryBroadcast, func(ctx context.Context) error {
		var broadcastErr error
		txHash, broadcastErr = e.broadcaster.Broadcast(ctx, key, call)
		return broadcastErr
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return types.SwapResult{}, err
		}
		if errors.Is(err, types.ErrUpstreamFailure) {
			return types.SwapResult{}, err
		}
		return types.SwapResult{}, fmt.Errorf("%w: %v", types.ErrUpstreamFailure, err)
	}

	return types.SwapResult{
		TxHash:    txHash,
		AmountIn:  strategy.AmountPerExecution,
		Quote:     quoteResult,
		Completed: e.now(),
	}, nil
}

// BreakerStates exposes the current circuit states for operational
// reporting.
func (e *Executor) BreakerStates() map[string]resilience.State {
	return e.breakers.States()
}
