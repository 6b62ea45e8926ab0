package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/flowvault/flowvault-backend/pkg/logging"
	"github.com/flowvault/flowvault-backend/pkg/retry"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

// BasisPoints is the denominator for fallback haircut math.
const BasisPoints = 10000

// Request describes one price quote lookup.
type Request struct {
	FromAsset   string        `json:"from_asset"`
	ToAsset     string        `json:"to_asset"`
	FromChainID string        `json:"from_chain_id"`
	ToChainID   string        `json:"to_chain_id"`
	AmountIn    *types.BigInt `json:"amount_in"`
}

// Provider fetches swap price quotes from an upstream aggregator.
type Provider interface {
	GetQuote(ctx context.Context, request Request) (types.QuoteResult, error)
}

// HTTPProvider talks to an external quote aggregator over HTTP with
// retry and backoff on transient failures.
type HTTPProvider struct {
	baseURL string
	client  *retry.HTTPClient
	logger  logging.Logger
}

func NewHTTPProvider(baseURL string, logger logging.Logger) (*HTTPProvider, error) {
	client, err := retry.NewHTTPClient(retry.DefaultHTTPRetryConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote HTTP client: %w", err)
	}
	return &HTTPProvider{
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}, nil
}

func (p *HTTPProvider) GetQuote(ctx context.Context, request Request) (types.QuoteResult, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return types.QuoteResult{}, fmt.Errorf("failed to marshal quote request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/quote", bytes.NewReader(payload))
	if err != nil {
		return types.QuoteResult{}, fmt.Errorf("failed to create quote request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.DoWithRetry(req)
	if err != nil {
		return types.QuoteResult{}, fmt.Errorf("%w: quote provider: %v", types.ErrUpstreamFailure, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			p.logger.Warnf("Failed to close quote response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return types.QuoteResult{}, fmt.Errorf("%w: quote provider returned status %d", types.ErrUpstreamFailure, resp.StatusCode)
	}

	var result types.QuoteResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return types.QuoteResult{}, fmt.Errorf("%w: failed to decode quote response: %v", types.ErrUpstreamFailure, err)
	}
	if result.AmountOut == nil || result.AmountOut.Int == nil || result.AmountOut.Sign() <= 0 {
		return types.QuoteResult{}, fmt.Errorf("%w: quote provider returned non-positive amount", types.ErrUpstreamFailure)
	}

	result.Fallback = false
	return result, nil
}

func (p *HTTPProvider) Close() {
	p.client.Close()
}

// Fallback produces a deterministic conservative estimate used when the
// live quote path is unavailable. The haircut (in basis points) is taken
// off the input amount so the executor always under-promises output.
func Fallback(amountIn *types.BigInt, haircutBps int64) types.QuoteResult {
	out := new(big.Int)
	if amountIn != nil && amountIn.Int != nil {
		out.Mul(amountIn.Int, big.NewInt(BasisPoints-haircutBps))
		out.Quo(out, big.NewInt(BasisPoints))
	}
	return types.QuoteResult{
		AmountOut:   &types.BigInt{Int: out},
		PriceImpact: float64(haircutBps) / float64(BasisPoints),
		Fallback:    true,
	}
}
