package resilience

import (
	"context"
	"sync"

	"github.com/flowvault/flowvault-backend/pkg/logging"
)

// Operation categories protected by independent breakers. Category-level
// granularity keeps a quoting outage from tripping the broadcast breaker.
const (
	CategoryQuote     = "quote"
	CategoryBroadcast = "broadcast"
)

// Manager owns one breaker per operation category.
type Manager struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	config   BreakerConfig
	logger   logging.Logger
}

// NewManager creates a manager that lazily builds breakers per category,
// all sharing the same thresholds.
func NewManager(config BreakerConfig, logger logging.Logger) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		breakers: make(map[string]*Breaker),
		config:   config,
		logger:   logger,
	}, nil
}

// Breaker returns the breaker for a category, creating it on first use.
func (m *Manager) Breaker(category string) *Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.breakers[category]; ok {
		return b
	}
	// config was validated at construction
	b, _ := NewBreaker(category, m.config, m.logger)
	m.breakers[category] = b
	return b
}

// Execute runs fn through the breaker for the given category.
func (m *Manager) Execute(ctx context.Context, category string, fn func(ctx context.Context) error) error {
	return m.Breaker(category).Execute(ctx, fn)
}

// States returns the current state of every known breaker.
func (m *Manager) States() map[string]State {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make(map[string]State, len(m.breakers))
	for category, b := range m.breakers {
		states[category] = b.State()
	}
	return states
}
