package queries

const (
	CreateCapabilityQuery = `
		INSERT INTO capability_data (
			account_address, owner_id, label, session_public_id, encrypted_secret,
			approved_targets, native_value_limit, valid_from, valid_until, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	GetCapabilityByAddressQuery = `
		SELECT account_address, owner_id, label, session_public_id, encrypted_secret,
			approved_targets, native_value_limit, valid_from, valid_until, created_at
		FROM capability_data
		WHERE account_address = ?`

	DeleteCapabilityQuery = `
		DELETE FROM capability_data
		WHERE account_address = ?`
)
