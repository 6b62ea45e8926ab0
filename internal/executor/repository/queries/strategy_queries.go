package queries

const (
	CreateStrategyQuery = `
		INSERT INTO strategy_data (
			account_address, strategy_id, from_asset, to_asset, from_chain_id, to_chain_id,
			amount_per_execution, interval_class, last_executed_at, next_due_at, is_active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	GetStrategyQuery = `
		SELECT account_address, strategy_id, from_asset, to_asset, from_chain_id, to_chain_id,
			amount_per_execution, interval_class, last_executed_at, next_due_at, is_active, created_at
		FROM strategy_data
		WHERE account_address = ? AND strategy_id = ?`

	ListStrategiesByAccountQuery = `
		SELECT account_address, strategy_id, from_asset, to_asset, from_chain_id, to_chain_id,
			amount_per_execution, interval_class, last_executed_at, next_due_at, is_active, created_at
		FROM strategy_data
		WHERE account_address = ?`

	ListActiveStrategiesQuery = `
		SELECT account_address, strategy_id, from_asset, to_asset, from_chain_id, to_chain_id,
			amount_per_execution, interval_class, last_executed_at, next_due_at, is_active, created_at
		FROM strategy_data
		WHERE is_active = true ALLOW FILTERING`

	UpdateStrategyStatusQuery = `
		UPDATE strategy_data
		SET is_active = ?
		WHERE account_address = ? AND strategy_id = ?`

	UpdateStrategyExecutionQuery = `
		UPDATE strategy_data
		SET last_executed_at = ?, next_due_at = ?
		WHERE account_address = ? AND strategy_id = ?`

	DeleteStrategyQuery = `
		DELETE FROM strategy_data
		WHERE account_address = ? AND strategy_id = ?`

	DeleteStrategiesByAccountQuery = `
		DELETE FROM strategy_data
		WHERE account_address = ?`
)
