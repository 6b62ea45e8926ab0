package database

import (
	"time"

	"github.com/gocql/gocql"
)

// InitSchema creates the keyspace and tables if they do not exist. It
// connects without a keyspace so it can run against a fresh cluster.
func InitSchema(hosts []string) error {
	cluster := gocql.NewCluster(hosts...)
	cluster.Timeout = 30 * time.Second
	cluster.Consistency = gocql.Quorum

	session, err := cluster.CreateSession()
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Query(`
			CREATE KEYSPACE IF NOT EXISTS flowvault
			WITH replication = {
				'class': 'SimpleStrategy',
				'replication_factor': 1
			}`).Exec(); err != nil {
		return err
	}

	// Capability records: one per delegated session account. The encrypted
	// secret is an opaque blob; nothing indexes on it.
	if err := session.Query(`
		CREATE TABLE IF NOT EXISTS flowvault.capability_data (
			account_address text PRIMARY KEY,
			owner_id text,
			label text,
			session_public_id text,
			encrypted_secret blob,
			approved_targets list<text>,
			native_value_limit varint,
			valid_from timestamp,
			valid_until timestamp,
			created_at timestamp
		)`).Exec(); err != nil {
		return err
	}

	// Recurring strategy records, partitioned by owning account.
	if err := session.Query(`
		CREATE TABLE IF NOT EXISTS flowvault.strategy_data (
			account_address text,
			strategy_id text,
			from_asset text,
			to_asset text,
			from_chain_id text,
			to_chain_id text,
			amount_per_execution varint,
			interval_class text,
			last_executed_at timestamp,
			next_due_at timestamp,
			is_active boolean,
			created_at timestamp,
			PRIMARY KEY (account_address, strategy_id)
		)`).Exec(); err != nil {
		return err
	}

	// Execution history, newest first per account for bounded reads.
	// strategy_id is part of the clustering key so two strategies of the
	// same account executing in the same millisecond keep separate rows.
	if err := session.Query(`
		CREATE TABLE IF NOT EXISTS flowvault.execution_history (
			account_address text,
			executed_at timestamp,
			strategy_id text,
			tx_hash text,
			amount varint,
			from_asset text,
			to_asset text,
			status text,
			reason text,
			PRIMARY KEY (account_address, executed_at, strategy_id)
		) WITH CLUSTERING ORDER BY (executed_at DESC, strategy_id ASC)`).Exec(); err != nil {
		return err
	}

	return nil
}
