package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowvault/flowvault-backend/pkg/logging"
)

func fastConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
		JitterFactor:  0,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), func() (string, error) {
		calls++
		return "ok", nil
	}, fastConfig(), logging.NoopLogger{})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	}, fastConfig(), logging.NoopLogger{})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), func() (int, error) {
		calls++
		return 0, errors.New("always fails")
	}, fastConfig(), logging.NoopLogger{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestRetryRespectsShouldRetry(t *testing.T) {
	terminal := errors.New("terminal")
	cfg := fastConfig()
	cfg.ShouldRetry = func(err error, attempt int) bool {
		return !errors.Is(err, terminal)
	}

	calls := 0
	_, err := Retry(context.Background(), func() (int, error) {
		calls++
		return 0, terminal
	}, cfg, logging.NoopLogger{})

	require.ErrorIs(t, err, terminal)
	assert.Equal(t, 1, calls)
}

func TestRetryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Retry(ctx, func() (int, error) {
		return 0, errors.New("should not matter")
	}, fastConfig(), logging.NoopLogger{})

	require.ErrorIs(t, err, context.Canceled)
}

func TestCalculateNextDelayCapped(t *testing.T) {
	next := CalculateNextDelay(4*time.Second, 2.0, 5*time.Second)
	assert.Equal(t, 5*time.Second, next)
}

func TestRetryConfigValidate(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxRetries = 0
	assert.Error(t, cfg.Validate())

	cfg = fastConfig()
	cfg.BackoffFactor = 0.5
	assert.Error(t, cfg.Validate())

	assert.NoError(t, fastConfig().Validate())
}
