package types

import (
	"strings"
	"time"
)

// TargetWildcard in ApprovedTargets approves any target address.
const TargetWildcard = "*"

// CapabilityData is the durable record of a delegated session account.
// EncryptedSecret is opaque to everything except the key custodian; the
// storage layer never interprets or indexes on it.
type CapabilityData struct {
	AccountAddress        string    `json:"account_address"`
	OwnerID               string    `json:"owner_id"`
	Label                 string    `json:"label"`
	SessionPublicID       string    `json:"session_public_id"`
	EncryptedSecret       []byte    `json:"-"`
	ApprovedTargets       []string  `json:"approved_targets"`
	NativeValueLimitPerTx *BigInt   `json:"native_value_limit_per_tx"`
	ValidFrom             time.Time `json:"valid_from"`
	ValidUntil            time.Time `json:"valid_until"`
	CreatedAt             time.Time `json:"created_at"`
}

// Permissions is the caller-supplied scope for a new capability.
type Permissions struct {
	ApprovedTargets       []string `json:"approved_targets"`
	NativeValueLimitPerTx *BigInt  `json:"native_value_limit_per_tx"`
}

// IsExpired reports whether the capability is past its validity window.
// Expired capabilities are treated as absent by all consumers even if the
// record still physically exists.
func (c *CapabilityData) IsExpired(now time.Time) bool {
	return now.After(c.ValidUntil)
}

// ApprovesTarget reports whether the target address is in the approved set,
// or the set contains the wildcard. Address comparison is case-insensitive.
func (c *CapabilityData) ApprovesTarget(target string) bool {
	for _, approved := range c.ApprovedTargets {
		if approved == TargetWildcard {
			return true
		}
		if strings.EqualFold(approved, target) {
			return true
		}
	}
	return false
}

// CreateCapabilityResponse surfaces only the public identity and expiry.
// The raw signing secret is returned to no caller.
type CreateCapabilityResponse struct {
	AccountAddress  string    `json:"account_address"`
	SessionPublicID string    `json:"session_public_id"`
	ExpiresAt       time.Time `json:"expires_at"`
}
