package postgresadapter

// schemaStatements are applied one by one so the plpgsql body never needs
// statement splitting.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS providers (
		provider_id TEXT PRIMARY KEY,
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		service_id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS provider_capabilities (
		provider_id TEXT NOT NULL,
		service_id TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT provider_capabilities_pkey PRIMARY KEY (provider_id, service_id),
		CONSTRAINT provider_capabilities_provider_fk FOREIGN KEY (provider_id) REFERENCES providers (provider_id),
		CONSTRAINT provider_capabilities_service_fk FOREIGN KEY (service_id) REFERENCES services (service_id)
	)`,
	`CREATE TABLE IF NOT EXISTS service_requests (
		request_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		service_id TEXT NOT NULL REFERENCES services (service_id),
		provider_id TEXT NULL REFERENCES providers (provider_id),
		status TEXT NOT NULL CHECK (status IN ('pending', 'claimed', 'accepted', 'expired')),
		scheduled_at TIMESTAMPTZ NULL,
		claimed_by TEXT NULL,
		claimed_at TIMESTAMPTZ NULL,
		expires_at TIMESTAMPTZ NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT service_requests_claim_consistency CHECK (
			(status = 'pending' AND provider_id IS NULL AND claimed_at IS NULL)
			OR (status <> 'pending' AND provider_id IS NOT NULL)
			OR status = 'expired'
		)
	)`,
	`CREATE INDEX IF NOT EXISTS service_requests_pending_idx
		ON service_requests (service_id, created_at)
		WHERE status = 'pending' AND provider_id IS NULL`,
	`CREATE INDEX IF NOT EXISTS service_requests_slot_idx
		ON service_requests (provider_id, scheduled_at)
		WHERE status IN ('claimed', 'accepted')`,
	`CREATE TABLE IF NOT EXISTS request_assignment_outbox (
		outbox_id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		partition_key TEXT NOT NULL,
		payload JSONB NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL,
		sent_at TIMESTAMPTZ NULL
	)`,
	`CREATE INDEX IF NOT EXISTS request_assignment_outbox_pending_idx
		ON request_assignment_outbox (created_at)
		WHERE status = 'pending'`,
	`CREATE OR REPLACE FUNCTION claim_service_request(
		p_request_id TEXT,
		p_provider_id TEXT,
		p_claimed_at TIMESTAMPTZ
	) RETURNS BOOLEAN
	LANGUAGE plpgsql
	AS $$
	DECLARE
		affected INTEGER;
	BEGIN
		UPDATE service_requests
		   SET status = 'claimed',
		       provider_id = p_provider_id,
		       claimed_by = p_provider_id,
		       claimed_at = p_claimed_at,
		       expires_at = NULL,
		       updated_at = p_claimed_at
		 WHERE request_id = p_request_id
		   AND status = 'pending'
		   AND provider_id IS NULL;
		GET DIAGNOSTICS affected = ROW_COUNT;
		RETURN affected = 1;
	END;
	$$`,
}
