package capability

import (
	"time"

	"github.com/flowvault/flowvault-backend/pkg/types"
)

// ValidatePermission checks a proposed action against a capability record.
// Pure function, no I/O. Checks run in order and the first failure wins,
// each with a distinct sentinel so denials are diagnosable:
//
//  1. the capability is within its validity window
//  2. the target address is approved (or the set holds the wildcard)
//  3. the native value is within the per-transaction ceiling
//
// It serves both pre-flight checks and enforcement at execution time.
func ValidatePermission(capability *types.CapabilityData, targetAddress string, nativeValue *types.BigInt, now time.Time) error {
	if capability == nil {
		return types.ErrCapabilityExpired
	}
	if now.Before(capability.ValidFrom) || now.After(capability.ValidUntil) {
		return types.ErrCapabilityExpired
	}
	if !capability.ApprovesTarget(targetAddress) {
		return types.ErrTargetNotApproved
	}
	if nativeValue.Cmp(capability.NativeValueLimitPerTx) > 0 {
		return types.ErrLimitExceeded
	}
	return nil
}
