package cryptography

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SessionKey is a freshly generated secp256k1 signing key together with its
// derived public identity. The private key is never serialized outside the
// custodian's encrypted blob.
type SessionKey struct {
	PrivateKey *ecdsa.PrivateKey
	// AccountAddress is the checksummed address derived from the key.
	AccountAddress string
	// PublicID is the compressed public key hex, surfaced to callers in
	// place of any secret material.
	PublicID string
}

// GenerateSessionKey creates a new secp256k1 session signing key.
func GenerateSessionKey() (*SessionKey, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}

	return &SessionKey{
		PrivateKey:     privateKey,
		AccountAddress: crypto.PubkeyToAddress(privateKey.PublicKey).Hex(),
		PublicID:       hexutil.Encode(crypto.CompressPubkey(&privateKey.PublicKey)),
	}, nil
}

// SessionKeyFrom rebuilds the full session identity from a decrypted
// private key.
func SessionKeyFrom(privateKey *ecdsa.PrivateKey) *SessionKey {
	return &SessionKey{
		PrivateKey:     privateKey,
		AccountAddress: crypto.PubkeyToAddress(privateKey.PublicKey).Hex(),
		PublicID:       hexutil.Encode(crypto.CompressPubkey(&privateKey.PublicKey)),
	}
}

// MarshalSecret serializes the private scalar for encryption at rest.
func MarshalSecret(key *ecdsa.PrivateKey) []byte {
	return crypto.FromECDSA(key)
}

// UnmarshalSecret restores a private key from its serialized scalar.
func UnmarshalSecret(raw []byte) (*ecdsa.PrivateKey, error) {
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid session key material: %w", err)
	}
	return key, nil
}

// AddressOf derives the account address for a private key.
func AddressOf(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}
