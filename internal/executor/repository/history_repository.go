package repository

import (
	"errors"
	"math/big"
	"time"

	"github.com/flowvault/flowvault-backend/internal/executor/repository/queries"
	"github.com/flowvault/flowvault-backend/pkg/database"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

type historyRepository struct {
	db *database.Connection
}

func NewHistoryRepository(db *database.Connection) HistoryRepository {
	return &historyRepository{
		db: db,
	}
}

func (r *historyRepository) InsertExecution(record *types.ExecutionRecord) error {
	err := r.db.Session().Query(queries.InsertExecutionQuery,
		record.AccountAddress, record.Timestamp, record.StrategyID, record.TxHash,
		record.Amount.ToBigInt(), record.FromAsset, record.ToAsset,
		string(record.Status), record.Reason).Exec()
	if err != nil {
		return errors.New("error inserting execution record")
	}
	return nil
}

func (r *historyRepository) ListExecutionsByAccount(accountAddress string, limit int) ([]types.ExecutionRecord, error) {
	iter := r.db.Session().Query(queries.ListExecutionsByAccountQuery, accountAddress, limit).Iter()

	var records []types.ExecutionRecord
	for {
		var (
			record types.ExecutionRecord
			amount big.Int
			status string
		)
		if !iter.Scan(
			&record.AccountAddress, &record.Timestamp, &record.StrategyID, &record.TxHash,
			&amount, &record.FromAsset, &record.ToAsset, &status, &record.Reason) {
			break
		}
		record.Amount = types.NewBigInt(new(big.Int).Set(&amount))
		record.Status = types.ExecutionStatus(status)
		records = append(records, record)
	}
	if err := iter.Close(); err != nil {
		return nil, errors.New("error listing execution records")
	}
	return records, nil
}

func (r *historyRepository) DeleteExecutionsBefore(accountAddress string, cutoff time.Time) error {
	err := r.db.Session().Query(queries.DeleteExecutionsBeforeQuery, accountAddress, cutoff).Exec()
	if err != nil {
		return errors.New("error pruning execution records")
	}
	return nil
}

func (r *historyRepository) DeleteExecutionsByAccount(accountAddress string) error {
	err := r.db.Session().Query(queries.DeleteExecutionsByAccountQuery, accountAddress).Exec()
	if err != nil {
		return errors.New("error deleting execution records")
	}
	return nil
}
