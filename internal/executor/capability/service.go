package capability

import (
	"errors"
	"fmt"
	"time"

	"github.com/flowvault/flowvault-backend/internal/executor/audit"
	"github.com/flowvault/flowvault-backend/internal/executor/metrics"
	"github.com/flowvault/flowvault-backend/internal/executor/repository"
	"github.com/flowvault/flowvault-backend/pkg/cryptography"
	"github.com/flowvault/flowvault-backend/pkg/logging"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

// ErrNotOwner is returned when a revocation is attempted by a user other
// than the capability's owner.
var ErrNotOwner = errors.New("caller does not own this capability")

// StrategyPurger removes all strategies for an account, from both the
// record table and the due-index.
type StrategyPurger interface {
	RemoveAccount(accountAddress string) error
}

// HistoryPurger removes all execution history for an account.
type HistoryPurger interface {
	PurgeAccount(accountAddress string) error
}

// Service issues, reads and revokes delegated session capabilities.
type Service struct {
	repo      repository.CapabilityRepository
	custodian *Custodian
	audit     audit.Sink
	logger    logging.Logger

	strategies StrategyPurger
	history    HistoryPurger

	now func() time.Time
}

func NewService(repo repository.CapabilityRepository, custodian *Custodian, sink audit.Sink, logger logging.Logger) *Service {
	return &Service{
		repo:      repo,
		custodian: custodian,
		audit:     sink,
		logger:    logger,
		now:       time.Now,
	}
}

// SetCascades wires the revocation cascade targets. Set once at startup.
func (s *Service) SetCascades(strategies StrategyPurger, history HistoryPurger) {
	s.strategies = strategies
	s.history = history
}

// Create generates a fresh session signing key, encrypts it at rest and
// persists the capability record. Only the public identity and expiry are
// surfaced; the raw secret is returned to no caller.
func (s *Service) Create(ownerID, label string, permissions types.Permissions, durationSeconds int64) (types.CreateCapabilityResponse, error) {
	if ownerID == "" {
		return types.CreateCapabilityResponse{}, errors.New("owner id is required")
	}
	if durationSeconds <= 0 {
		return types.CreateCapabilityResponse{}, errors.New("duration must be positive")
	}
	if len(permissions.ApprovedTargets) == 0 {
		return types.CreateCapabilityResponse{}, errors.New("at least one approved target is required")
	}
	if permissions.NativeValueLimitPerTx == nil || permissions.NativeValueLimitPerTx.Int == nil {
		return types.CreateCapabilityResponse{}, errors.New("native value limit is required")
	}

	sessionKey, err := cryptography.GenerateSessionKey()
	if err != nil {
		return types.CreateCapabilityResponse{}, err
	}

	encryptedSecret, err := s.custodian.Seal(sessionKey.PrivateKey)
	if err != nil {
		return types.CreateCapabilityResponse{}, fmt.Errorf("failed to seal session key: %w", err)
	}

	now := s.now()
	record := types.CapabilityData{
		AccountAddress:        sessionKey.AccountAddress,
		OwnerID:               ownerID,
		Label:                 label,
		SessionPublicID:       sessionKey.PublicID,
		EncryptedSecret:       encryptedSecret,
		ApprovedTargets:       permissions.ApprovedTargets,
		NativeValueLimitPerTx: permissions.NativeValueLimitPerTx,
		ValidFrom:             now,
		ValidUntil:            now.Add(time.Duration(durationSeconds) * time.Second),
		CreatedAt:             now,
	}

	if err := s.repo.CreateCapability(&record); err != nil {
		return types.CreateCapabilityResponse{}, err
	}

	metrics.CapabilitiesIssuedTotal.Inc()
	s.audit.Record(audit.EventCapabilityIssued, audit.Correlation{
		AccountAddress: record.AccountAddress,
		OwnerID:        ownerID,
		OperationID:    audit.NewOperationID(),
	}, map[string]interface{}{
		"label":      label,
		"expires_at": record.ValidUntil.Unix(),
	})

	return types.CreateCapabilityResponse{
		AccountAddress:  record.AccountAddress,
		SessionPublicID: record.SessionPublicID,
		ExpiresAt:       record.ValidUntil,
	}, nil
}

// Get returns the capability for an account, treating an expired record as
// absent (lazy expiry). The encrypted secret is stripped; it is reachable
// only through the custodian.
func (s *Service) Get(accountAddress string) (types.CapabilityData, error) {
	record, err := s.repo.GetCapabilityByAddress(accountAddress)
	if err != nil {
		return types.CapabilityData{}, err
	}
	if record.IsExpired(s.now()) {
		return types.CapabilityData{}, types.ErrCapabilityExpired
	}
	record.EncryptedSecret = nil
	return record, nil
}

// GetAny returns the capability regardless of expiry, for administrative
// inspection only.
func (s *Service) GetAny(accountAddress string) (types.CapabilityData, error) {
	record, err := s.repo.GetCapabilityByAddress(accountAddress)
	if err != nil {
		return types.CapabilityData{}, err
	}
	record.EncryptedSecret = nil
	return record, nil
}

// Preflight validates a prospective action without side effects. The
// scheduler runs the same check again at execution time.
func (s *Service) Preflight(accountAddress, targetAddress string, nativeValue *types.BigInt) error {
	record, err := s.repo.GetCapabilityByAddress(accountAddress)
	if err != nil {
		if errors.Is(err, types.ErrCapabilityNotFound) {
			return types.ErrCapabilityExpired
		}
		return err
	}
	if err := ValidatePermission(&record, targetAddress, nativeValue, s.now()); err != nil {
		s.audit.Record(audit.EventValidationDenied, audit.Correlation{
			AccountAddress: accountAddress,
			OperationID:    audit.NewOperationID(),
		}, map[string]interface{}{
			"target": targetAddress,
			"reason": types.DenialReason(err),
		})
		return err
	}
	return nil
}

// Revoke deletes the capability and cascades to dependent strategies and
// history. The caller must be the owning user. The capability record is
// deleted first so a partially revoked capability can never be partially
// usable.
func (s *Service) Revoke(accountAddress, ownerID string) error {
	record, err := s.repo.GetCapabilityByAddress(accountAddress)
	if err != nil {
		return err
	}
	if record.OwnerID != ownerID {
		return ErrNotOwner
	}

	if err := s.repo.DeleteCapability(accountAddress); err != nil {
		return err
	}

	if s.strategies != nil {
		if err := s.strategies.RemoveAccount(accountAddress); err != nil {
			return fmt.Errorf("capability deleted but strategy cascade failed: %w", err)
		}
	}
	if s.history != nil {
		if err := s.history.PurgeAccount(accountAddress); err != nil {
			return fmt.Errorf("capability deleted but history cascade failed: %w", err)
		}
	}

	metrics.CapabilitiesRevokedTotal.Inc()
	s.audit.Record(audit.EventCapabilityRevoked, audit.Correlation{
		AccountAddress: accountAddress,
		OwnerID:        ownerID,
		OperationID:    audit.NewOperationID(),
	}, nil)

	s.logger.Info("Capability revoked", "account", accountAddress)
	return nil
}
