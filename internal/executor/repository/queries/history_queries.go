package queries

const (
	InsertExecutionQuery = `
		INSERT INTO execution_history (
			account_address, executed_at, strategy_id, tx_hash, amount,
			from_asset, to_asset, status, reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	ListExecutionsByAccountQuery = `
		SELECT account_address, executed_at, strategy_id, tx_hash, amount,
			from_asset, to_asset, status, reason
		FROM execution_history
		WHERE account_address = ?
		LIMIT ?`

	DeleteExecutionsBeforeQuery = `
		DELETE FROM execution_history
		WHERE account_address = ? AND executed_at < ?`

	DeleteExecutionsByAccountQuery = `
		DELETE FROM execution_history
		WHERE account_address = ?`
)
