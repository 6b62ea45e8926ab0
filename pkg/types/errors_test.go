package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowvault/flowvault-backend/pkg/resilience"
)

func TestCircuitOpenAliasMatchesBreakerSentinel(t *testing.T) {
	wrapped := fmt.Errorf("swap rejected: %w", resilience.ErrCircuitOpen)
	assert.ErrorIs(t, wrapped, ErrCircuitOpen)
	assert.ErrorIs(t, ErrCircuitOpen, resilience.ErrCircuitOpen)
}

func TestDenialReasonMapping(t *testing.T) {
	assert.Equal(t, ReasonExpired, DenialReason(ErrCapabilityExpired))
	assert.Equal(t, ReasonExpired, DenialReason(ErrCapabilityNotFound))
	assert.Equal(t, ReasonTargetNotApproved, DenialReason(ErrTargetNotApproved))
	assert.Equal(t, ReasonLimitExceeded, DenialReason(fmt.Errorf("denied: %w", ErrLimitExceeded)))
	assert.Equal(t, ReasonUpstreamFailure, DenialReason(fmt.Errorf("boom")))
}
