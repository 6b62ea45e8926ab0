package types

import "time"

// ExecutionStatus is the terminal state of a single execution attempt.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

// Failure reasons recorded on execution history entries.
const (
	ReasonSessionExpired    = "session_expired"
	ReasonSessionCorrupted  = "session_corrupted"
	ReasonExpired           = "expired"
	ReasonTargetNotApproved = "target_not_approved"
	ReasonLimitExceeded     = "limit_exceeded"
	ReasonCircuitOpen       = "circuit_open"
	ReasonUpstreamFailure   = "upstream_failure"
)

// ExecutionRecord is one append-only history entry for an execution attempt.
// TxHash is empty if the transaction was never broadcast.
type ExecutionRecord struct {
	AccountAddress string          `json:"account_address"`
	StrategyID     string          `json:"strategy_id"`
	Timestamp      time.Time       `json:"timestamp"`
	TxHash         string          `json:"tx_hash"`
	Amount         *BigInt         `json:"amount"`
	FromAsset      string          `json:"from_asset"`
	ToAsset        string          `json:"to_asset"`
	Status         ExecutionStatus `json:"status"`
	Reason         string          `json:"reason,omitempty"`
}

// QuoteResult is the outcome of a price quote, possibly degraded.
// Fallback marks a conservative estimate produced while the quote circuit
// is open or the provider is failing.
type QuoteResult struct {
	AmountOut   *BigInt `json:"amount_out"`
	PriceImpact float64 `json:"price_impact"`
	Fallback    bool    `json:"fallback"`
}

// SwapResult is the outcome of a guarded swap execution.
type SwapResult struct {
	TxHash    string      `json:"tx_hash"`
	AmountIn  *BigInt     `json:"amount_in"`
	Quote     QuoteResult `json:"quote"`
	Completed time.Time   `json:"completed"`
}
