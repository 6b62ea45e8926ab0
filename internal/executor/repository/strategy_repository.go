package repository

import (
	"errors"
	"math/big"
	"time"

	"github.com/gocql/gocql"

	"github.com/flowvault/flowvault-backend/internal/executor/repository/queries"
	"github.com/flowvault/flowvault-backend/pkg/database"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

type strategyRepository struct {
	db *database.Connection
}

func NewStrategyRepository(db *database.Connection) StrategyRepository {
	return &strategyRepository{
		db: db,
	}
}

func (r *strategyRepository) CreateStrategy(strategy *types.StrategyData) error {
	err := r.db.Session().Query(queries.CreateStrategyQuery,
		strategy.AccountAddress, strategy.StrategyID, strategy.FromAsset, strategy.ToAsset,
		strategy.FromChainID, strategy.ToChainID, strategy.AmountPerExecution.ToBigInt(),
		string(strategy.Interval), strategy.LastExecutedAt, strategy.NextDueAt,
		strategy.IsActive, strategy.CreatedAt).Exec()
	if err != nil {
		return errors.New("error creating strategy record")
	}
	return nil
}

func (r *strategyRepository) GetStrategy(accountAddress, strategyID string) (types.StrategyData, error) {
	strategy, err := scanStrategy(r.db.Session().Query(queries.GetStrategyQuery, accountAddress, strategyID))
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return types.StrategyData{}, types.ErrStrategyNotFound
		}
		return types.StrategyData{}, errors.New("error getting strategy record")
	}
	return strategy, nil
}

func (r *strategyRepository) ListStrategiesByAccount(accountAddress string) ([]types.StrategyData, error) {
	iter := r.db.Session().Query(queries.ListStrategiesByAccountQuery, accountAddress).Iter()
	return collectStrategies(iter)
}

func (r *strategyRepository) ListActiveStrategies() ([]types.StrategyData, error) {
	iter := r.db.Session().Query(queries.ListActiveStrategiesQuery).Iter()
	return collectStrategies(iter)
}

func (r *strategyRepository) UpdateStrategyStatus(accountAddress, strategyID string, isActive bool) error {
	err := r.db.Session().Query(queries.UpdateStrategyStatusQuery, isActive, accountAddress, strategyID).Exec()
	if err != nil {
		return errors.New("error updating strategy status")
	}
	return nil
}

func (r *strategyRepository) UpdateStrategyExecution(accountAddress, strategyID string, lastExecutedAt, nextDueAt time.Time) error {
	err := r.db.Session().Query(queries.UpdateStrategyExecutionQuery, lastExecutedAt, nextDueAt, accountAddress, strategyID).Exec()
	if err != nil {
		return errors.New("error updating strategy execution data")
	}
	return nil
}

func (r *strategyRepository) DeleteStrategy(accountAddress, strategyID string) error {
	err := r.db.Session().Query(queries.DeleteStrategyQuery, accountAddress, strategyID).Exec()
	if err != nil {
		return errors.New("error deleting strategy record")
	}
	return nil
}

func (r *strategyRepository) DeleteStrategiesByAccount(accountAddress string) error {
	err := r.db.Session().Query(queries.DeleteStrategiesByAccountQuery, accountAddress).Exec()
	if err != nil {
		return errors.New("error deleting strategies for account")
	}
	return nil
}

func scanStrategy(q *gocql.Query) (types.StrategyData, error) {
	var (
		strategy types.StrategyData
		amount   big.Int
		interval string
	)
	err := q.Scan(
		&strategy.AccountAddress, &strategy.StrategyID, &strategy.FromAsset, &strategy.ToAsset,
		&strategy.FromChainID, &strategy.ToChainID, &amount, &interval,
		&strategy.LastExecutedAt, &strategy.NextDueAt, &strategy.IsActive, &strategy.CreatedAt)
	if err != nil {
		return types.StrategyData{}, err
	}
	strategy.AmountPerExecution = types.NewBigInt(&amount)
	strategy.Interval = types.IntervalClass(interval)
	return strategy, nil
}

func collectStrategies(iter *gocql.Iter) ([]types.StrategyData, error) {
	var strategies []types.StrategyData
	for {
		var (
			strategy types.StrategyData
			amount   big.Int
			interval string
		)
		if !iter.Scan(
			&strategy.AccountAddress, &strategy.StrategyID, &strategy.FromAsset, &strategy.ToAsset,
			&strategy.FromChainID, &strategy.ToChainID, &amount, &interval,
			&strategy.LastExecutedAt, &strategy.NextDueAt, &strategy.IsActive, &strategy.CreatedAt) {
			break
		}
		strategy.AmountPerExecution = types.NewBigInt(new(big.Int).Set(&amount))
		strategy.Interval = types.IntervalClass(interval)
		strategies = append(strategies, strategy)
	}
	if err := iter.Close(); err != nil {
		return nil, errors.New("error listing strategy records")
	}
	return strategies, nil
}
