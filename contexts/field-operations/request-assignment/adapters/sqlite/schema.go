package sqliteadapter

var schemaStatements = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE IF NOT EXISTS providers (
		provider_id TEXT PRIMARY KEY,
		active INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		service_id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		active INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS provider_capabilities (
		provider_id TEXT NOT NULL REFERENCES providers (provider_id),
		service_id TEXT NOT NULL REFERENCES services (service_id),
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		PRIMARY KEY (provider_id, service_id)
	)`,
	`CREATE TABLE IF NOT EXISTS service_requests (
		request_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		service_id TEXT NOT NULL REFERENCES services (service_id),
		provider_id TEXT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'claimed', 'accepted', 'expired')),
		scheduled_at TEXT NULL,
		claimed_by TEXT NULL,
		claimed_at TEXT NULL,
		expires_at TEXT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS service_requests_slot_idx
		ON service_requests (provider_id, scheduled_at)`,
	`CREATE TABLE IF NOT EXISTS request_assignment_outbox (
		outbox_id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		partition_key TEXT NOT NULL,
		payload BLOB NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		sent_at TEXT NULL
	)`,
}
