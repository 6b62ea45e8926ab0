package repository

import (
	"errors"
	"math/big"

	"github.com/gocql/gocql"

	"github.com/flowvault/flowvault-backend/internal/executor/repository/queries"
	"github.com/flowvault/flowvault-backend/pkg/database"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

type capabilityRepository struct {
	db *database.Connection
}

func NewCapabilityRepository(db *database.Connection) CapabilityRepository {
	return &capabilityRepository{
		db: db,
	}
}

func (r *capabilityRepository) CreateCapability(capability *types.CapabilityData) error {
	err := r.db.Session().Query(queries.CreateCapabilityQuery,
		capability.AccountAddress, capability.OwnerID, capability.Label,
		capability.SessionPublicID, capability.EncryptedSecret,
		capability.ApprovedTargets, capability.NativeValueLimitPerTx.ToBigInt(),
		capability.ValidFrom, capability.ValidUntil, capability.CreatedAt).Exec()
	if err != nil {
		return errors.New("error creating capability record")
	}
	return nil
}

func (r *capabilityRepository) GetCapabilityByAddress(accountAddress string) (types.CapabilityData, error) {
	var (
		capability types.CapabilityData
		limit      big.Int
	)
	err := r.db.Session().Query(queries.GetCapabilityByAddressQuery, accountAddress).Scan(
		&capability.AccountAddress, &capability.OwnerID, &capability.Label,
		&capability.SessionPublicID, &capability.EncryptedSecret,
		&capability.ApprovedTargets, &limit,
		&capability.ValidFrom, &capability.ValidUntil, &capability.CreatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return types.CapabilityData{}, types.ErrCapabilityNotFound
		}
		return types.CapabilityData{}, errors.New("error getting capability record")
	}
	capability.NativeValueLimitPerTx = types.NewBigInt(&limit)
	return capability, nil
}

func (r *capabilityRepository) DeleteCapability(accountAddress string) error {
	err := r.db.Session().Query(queries.DeleteCapabilityQuery, accountAddress).Exec()
	if err != nil {
		return errors.New("error deleting capability record")
	}
	return nil
}
