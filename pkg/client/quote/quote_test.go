package quote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowvault/flowvault-backend/pkg/logging"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

func sampleRequest() Request {
	return Request{
		FromAsset:   "USDC",
		ToAsset:     "WETH",
		FromChainID: "8453",
		ToChainID:   "8453",
		AmountIn:    types.NewBigIntFromInt64(1000000),
	}
}

func TestGetQuoteDecodesProviderResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/quote", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var received Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		assert.Equal(t, "USDC", received.FromAsset)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"amount_out":"995000","price_impact":0.003,"fallback":true}`))
	}))
	defer server.Close()

	provider, err := NewHTTPProvider(server.URL, logging.NoopLogger{})
	require.NoError(t, err)
	defer provider.Close()

	result, err := provider.GetQuote(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "995000", result.AmountOut.String())
	assert.InDelta(t, 0.003, result.PriceImpact, 1e-9)
	// A live response is never marked as a fallback, whatever the provider claims
	assert.False(t, result.Fallback)
}

func TestGetQuoteRetriesTransientFailures(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"amount_out":"995000","price_impact":0.003}`))
	}))
	defer server.Close()

	provider, err := NewHTTPProvider(server.URL, logging.NoopLogger{})
	require.NoError(t, err)
	defer provider.Close()

	result, err := provider.GetQuote(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "995000", result.AmountOut.String())
}

func TestGetQuoteRejectsNonPositiveAmount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"amount_out":"0","price_impact":0}`))
	}))
	defer server.Close()

	provider, err := NewHTTPProvider(server.URL, logging.NoopLogger{})
	require.NoError(t, err)
	defer provider.Close()

	_, err = provider.GetQuote(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, types.ErrUpstreamFailure)
}

func TestFallbackAppliesHaircut(t *testing.T) {
	result := Fallback(types.NewBigIntFromInt64(1000000), 200)

	assert.True(t, result.Fallback)
	assert.Equal(t, "980000", result.AmountOut.String())
	assert.InDelta(t, 0.02, result.PriceImpact, 1e-9)
}

func TestFallbackDeterministic(t *testing.T) {
	first := Fallback(types.NewBigIntFromInt64(12345678), 150)
	second := Fallback(types.NewBigIntFromInt64(12345678), 150)
	assert.Equal(t, first.AmountOut.String(), second.AmountOut.String())
}

func TestFallbackNilAmount(t *testing.T) {
	result := Fallback(nil, 200)
	assert.True(t, result.Fallback)
	assert.Equal(t, "0", result.AmountOut.String())
}
