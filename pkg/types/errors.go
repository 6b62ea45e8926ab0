package types

import (
	"errors"

	"github.com/flowvault/flowvault-backend/pkg/resilience"
)

// Sentinel errors for the session-key execution engine. Permission denials
// carry a distinct error per check so failures are diagnosable.
var (
	ErrCapabilityNotFound = errors.New("capability not found")
	ErrCapabilityExpired  = errors.New("capability expired")
	ErrTargetNotApproved  = errors.New("target not approved")
	ErrLimitExceeded      = errors.New("native value limit exceeded")
	ErrStrategyNotFound   = errors.New("strategy not found")
	ErrUpstreamFailure    = errors.New("upstream failure")
	// ErrCircuitOpen aliases the breaker sentinel so callers can match every
	// engine error through this taxonomy.
	ErrCircuitOpen = resilience.ErrCircuitOpen
	// ErrStaleIndexEntry marks a due-index entry whose underlying record is
	// gone. Internal and self-healing: the scheduler prunes it silently.
	ErrStaleIndexEntry = errors.New("stale index entry")
)

// DenialReason maps a permission-validation error to the reason string
// recorded on history entries and audit events.
func DenialReason(err error) string {
	switch {
	case errors.Is(err, ErrCapabilityExpired), errors.Is(err, ErrCapabilityNotFound):
		return ReasonExpired
	case errors.Is(err, ErrTargetNotApproved):
		return ReasonTargetNotApproved
	case errors.Is(err, ErrLimitExceeded):
		return ReasonLimitExceeded
	default:
		return ReasonUpstreamFailure
	}
}
