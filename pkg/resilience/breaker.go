package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/flowvault/flowvault-backend/pkg/logging"
)

// State is the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned when a call is rejected without invoking the
// wrapped operation.
var ErrCircuitOpen = errors.New("circuit open")

// BreakerConfig holds the transition thresholds for one protected category.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures to open
	SuccessThreshold int           // consecutive half-open successes to close
	OpenTimeout      time.Duration // cool-down before probing
	// MonitoringWindow bounds how long a streak of closed-state failures is
	// remembered. Zero disables the reset.
	MonitoringWindow time.Duration
	// CallTimeout bounds each wrapped call so one stuck upstream cannot
	// stall a whole tick. Zero disables the bound.
	CallTimeout time.Duration
}

// DefaultBreakerConfig returns conservative defaults for volatile upstreams.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
		MonitoringWindow: 5 * time.Minute,
		CallTimeout:      15 * time.Second,
	}
}

// Validate checks the configuration for reasonable values.
func (c BreakerConfig) Validate() error {
	if c.FailureThreshold < 1 {
		return errors.New("FailureThreshold must be >= 1")
	}
	if c.SuccessThreshold < 1 {
		return errors.New("SuccessThreshold must be >= 1")
	}
	if c.OpenTimeout <= 0 {
		return errors.New("OpenTimeout must be positive")
	}
	if c.MonitoringWindow < 0 {
		return errors.New("MonitoringWindow must be >= 0")
	}
	if c.CallTimeout < 0 {
		return errors.New("CallTimeout must be >= 0")
	}
	return nil
}

// Breaker is a three-state circuit breaker for one operation category.
// Counters are shared across concurrently executing tasks and updated under
// a single mutex.
type Breaker struct {
	category string
	config   BreakerConfig
	logger   logging.Logger

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	openedAt      time.Time
	lastFailure   time.Time
	probeInFlight bool

	now func() time.Time
}

// NewBreaker creates a closed breaker for the given category.
func NewBreaker(category string, config BreakerConfig, logger logging.Logger) (*Breaker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid breaker config for %q: %w", category, err)
	}
	return &Breaker{
		category: category,
		config:   config,
		logger:   logger,
		state:    StateClosed,
		now:      time.Now,
	}, nil
}

// State returns the current state, applying the open→half-open transition if
// the cool-down has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshLocked()
	return b.state
}

// Category returns the operation category this breaker protects.
func (b *Breaker) Category() string {
	return b.category
}

// Execute runs fn through the breaker. While open it rejects immediately
// with ErrCircuitOpen and fn is never invoked. While half-open exactly one
// probe call is allowed at a time.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	callCtx := ctx
	if b.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.config.CallTimeout)
		defer cancel()
	}

	err := fn(callCtx)
	b.record(err)
	return err
}

// admit decides whether a call may proceed.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refreshLocked()

	switch b.state {
	case StateClosed:
		return nil
	case StateHalfOpen:
		if b.probeInFlight {
			return ErrCircuitOpen
		}
		b.probeInFlight = true
		return nil
	default:
		return ErrCircuitOpen
	}
}

// record applies the outcome of a completed call to the counters.
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if err != nil {
			now := b.now()
			if b.config.MonitoringWindow > 0 && !b.lastFailure.IsZero() && now.Sub(b.lastFailure) > b.config.MonitoringWindow {
				b.failures = 0
			}
			b.failures++
			b.lastFailure = now
			if b.failures >= b.config.FailureThreshold {
				b.openLocked()
			}
			return
		}
		b.failures = 0

	case StateHalfOpen:
		b.probeInFlight = false
		if err != nil {
			b.openLocked()
			return
		}
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.closeLocked()
		}
	}
}

func (b *Breaker) refreshLocked() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.config.OpenTimeout {
		b.state = StateHalfOpen
		b.successes = 0
		b.probeInFlight = false
		b.logger.Infof("Circuit %s transitioned to half-open, probing", b.category)
	}
}

func (b *Breaker) openLocked() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.failures = 0
	b.successes = 0
	b.probeInFlight = false
	b.logger.Warnf("Circuit %s opened, rejecting calls for %v", b.category, b.config.OpenTimeout)
}

func (b *Breaker) closeLocked() {
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.probeInFlight = false
	b.logger.Infof("Circuit %s closed", b.category)
}
