package capability

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/flowvault/flowvault-backend/internal/executor/repository"
	"github.com/flowvault/flowvault-backend/pkg/cryptography"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

// Custodian is the only component that touches raw session signing
// material. It seals secrets at issuance and unseals them inside the
// execution path. Decrypted keys never appear in responses, logs or audit
// events.
type Custodian struct {
	encryptionKey []byte
	repo          repository.CapabilityRepository
	now           func() time.Time
}

// NewCustodian builds a custodian from the hex-encoded process-wide secret.
func NewCustodian(hexKey string, repo repository.CapabilityRepository) (*Custodian, error) {
	key, err := cryptography.ParseEncryptionKey(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid custodian key: %w", err)
	}
	return &Custodian{
		encryptionKey: key,
		repo:          repo,
		now:           time.Now,
	}, nil
}

// Seal encrypts a session private key for storage at rest.
func (c *Custodian) Seal(key *ecdsa.PrivateKey) ([]byte, error) {
	return cryptography.EncryptSecret(c.encryptionKey, cryptography.MarshalSecret(key))
}

// Decrypt loads and unseals the session key for an account. A missing or
// expired capability returns the matching sentinel; the caller treats both
// as absent.
func (c *Custodian) Decrypt(accountAddress string) (*ecdsa.PrivateKey, error) {
	record, err := c.repo.GetCapabilityByAddress(accountAddress)
	if err != nil {
		return nil, err
	}
	if record.IsExpired(c.now()) {
		return nil, types.ErrCapabilityExpired
	}

	raw, err := cryptography.DecryptSecret(c.encryptionKey, record.EncryptedSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal session key for %s: %w", accountAddress, err)
	}

	return cryptography.UnmarshalSecret(raw)
}
