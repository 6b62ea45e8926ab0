package types

import (
	"fmt"
	"time"
)

// IntervalClass is the closed set of supported recurrence intervals.
// New interval types are additive: add a constant and its second count.
type IntervalClass string

const (
	IntervalDaily   IntervalClass = "daily"
	IntervalWeekly  IntervalClass = "weekly"
	IntervalMonthly IntervalClass = "monthly"
)

var intervalSeconds = map[IntervalClass]int64{
	IntervalDaily:   86400,
	IntervalWeekly:  604800,
	IntervalMonthly: 2592000,
}

// Duration returns the fixed second-count for the interval class.
func (i IntervalClass) Duration() (time.Duration, error) {
	secs, ok := intervalSeconds[i]
	if !ok {
		return 0, fmt.Errorf("unknown interval class: %q", i)
	}
	return time.Duration(secs) * time.Second, nil
}

// Valid reports whether the interval class is one of the supported set.
func (i IntervalClass) Valid() bool {
	_, ok := intervalSeconds[i]
	return ok
}

// StrategyData is the durable record of a recurring swap strategy.
// It references its owning capability by account address; existence of the
// capability is checked at execution time, not enforced at creation.
type StrategyData struct {
	StrategyID         string        `json:"strategy_id"`
	AccountAddress     string        `json:"account_address"`
	FromAsset          string        `json:"from_asset"`
	ToAsset            string        `json:"to_asset"`
	FromChainID        string        `json:"from_chain_id"`
	ToChainID          string        `json:"to_chain_id"`
	AmountPerExecution *BigInt       `json:"amount_per_execution"`
	Interval           IntervalClass `json:"interval"`
	LastExecutedAt     time.Time     `json:"last_executed_at"`
	NextDueAt          time.Time     `json:"next_due_at"`
	IsActive           bool          `json:"is_active"`
	CreatedAt          time.Time     `json:"created_at"`
}

// NewStrategyID derives a per-account-unique strategy id from the owning
// capability address and the creation timestamp.
func NewStrategyID(accountAddress string, createdAt time.Time) string {
	return fmt.Sprintf("%s-%d", accountAddress, createdAt.UnixNano())
}

// CreateStrategyRequest carries the parameters of a new recurring strategy.
type CreateStrategyRequest struct {
	AccountAddress     string        `json:"account_address"`
	FromAsset          string        `json:"from_asset"`
	ToAsset            string        `json:"to_asset"`
	FromChainID        string        `json:"from_chain_id"`
	ToChainID          string        `json:"to_chain_id"`
	AmountPerExecution *BigInt       `json:"amount_per_execution"`
	Interval           IntervalClass `json:"interval"`
}
