package database

import "context"

// Schema statements are idempotent so Init can run on every boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS vaults (
		vault_address     TEXT PRIMARY KEY,
		wallet_address    TEXT UNIQUE NOT NULL,
		network           TEXT NOT NULL DEFAULT 'mainnet',
		balance_wei       TEXT NOT NULL DEFAULT '0',
		daily_limit_wei   TEXT NOT NULL DEFAULT '0',
		tx_limit_wei      TEXT NOT NULL DEFAULT '0',
		timelock_seconds  BIGINT NOT NULL DEFAULT 3600,
		request_counter   BIGINT NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS payment_requests (
		vault_address   TEXT NOT NULL REFERENCES vaults(vault_address),
		request_id      BIGINT NOT NULL,
		requester       TEXT NOT NULL,
		destination     TEXT NOT NULL,
		amount_wei      TEXT NOT NULL,
		memo            TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL,
		execute_after   TIMESTAMPTZ NOT NULL,
		executed        BOOLEAN NOT NULL DEFAULT FALSE,
		executed_at     TIMESTAMPTZ,
		revoked         BOOLEAN NOT NULL DEFAULT FALSE,
		revoke_reason   TEXT NOT NULL DEFAULT '',
		tx_ref          TEXT,
		PRIMARY KEY (vault_address, request_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_created ON payment_requests(vault_address, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_pending ON payment_requests(vault_address) WHERE NOT executed AND NOT revoked`,

	`CREATE TABLE IF NOT EXISTS vendors (
		wallet_address  TEXT NOT NULL,
		address         TEXT NOT NULL,
		name            TEXT NOT NULL DEFAULT '',
		trusted         BOOLEAN NOT NULL DEFAULT FALSE,
		total_received_wei TEXT NOT NULL DEFAULT '0',
		transaction_count  BIGINT NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (wallet_address, address)
	)`,

	`CREATE TABLE IF NOT EXISTS agent_wallets (
		user_address    TEXT PRIMARY KEY,
		agent_address   TEXT UNIQUE NOT NULL,
		vault_address   TEXT NOT NULL,
		encrypted_key   TEXT NOT NULL,
		network         TEXT NOT NULL DEFAULT 'mainnet',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS savings_plans (
		id              TEXT PRIMARY KEY,
		owner_address   TEXT NOT NULL,
		agent_address   TEXT NOT NULL,
		vault_address   TEXT NOT NULL,
		name            TEXT NOT NULL,
		total_deposited_wei TEXT NOT NULL DEFAULT '0',
		unlock_at       TIMESTAMPTZ NOT NULL,
		recurring       BOOLEAN NOT NULL DEFAULT FALSE,
		withdrawn       BOOLEAN NOT NULL DEFAULT FALSE,
		withdrawn_at    TIMESTAMPTZ,
		unlock_notified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_savings_owner ON savings_plans(owner_address)`,
	`CREATE INDEX IF NOT EXISTS idx_savings_unlock ON savings_plans(unlock_at) WHERE NOT withdrawn`,

	`CREATE TABLE IF NOT EXISTS schedules (
		id              TEXT PRIMARY KEY,
		user_address    TEXT NOT NULL,
		kind            TEXT NOT NULL,
		destination     TEXT NOT NULL,
		destination_name TEXT NOT NULL DEFAULT '',
		savings_plan_id TEXT,
		amount_wei      TEXT NOT NULL,
		frequency       TEXT NOT NULL,
		next_due        TIMESTAMPTZ NOT NULL,
		last_executed   TIMESTAMPTZ,
		execution_count BIGINT NOT NULL DEFAULT 0,
		failure_count   INT NOT NULL DEFAULT 0,
		last_error      TEXT NOT NULL DEFAULT '',
		paused          BOOLEAN NOT NULL DEFAULT FALSE,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedules_due ON schedules(next_due) WHERE NOT paused`,
	`CREATE INDEX IF NOT EXISTS idx_schedules_user ON schedules(user_address)`,

	`CREATE TABLE IF NOT EXISTS execution_log (
		id              BIGSERIAL PRIMARY KEY,
		schedule_id     TEXT,
		savings_plan_id TEXT,
		user_address    TEXT NOT NULL,
		execution_type  TEXT NOT NULL,
		amount_wei      TEXT NOT NULL,
		destination     TEXT NOT NULL,
		tx_ref          TEXT,
		status          TEXT NOT NULL,
		error_message   TEXT NOT NULL DEFAULT '',
		executed_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_execution_user ON execution_log(user_address)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id              BIGSERIAL PRIMARY KEY,
		user_address    TEXT NOT NULL,
		kind            TEXT NOT NULL,
		message         TEXT NOT NULL,
		tx_ref          TEXT,
		is_read         BOOLEAN NOT NULL DEFAULT FALSE,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_address, is_read)`,
}

// Init creates all tables and indexes if they do not exist yet.
func (db *DB) Init(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
