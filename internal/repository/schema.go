package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration one named, idempotent schema step
type Migration struct {
	Name string
	SQL  string
}

// Migrations applied in order by Migrate. Never edit a shipped entry; append.
var Migrations = []Migration{
	{Name: "0001_agents", SQL: `
CREATE TABLE IF NOT EXISTS agents (
    agent_id                   UUID PRIMARY KEY,
    name                       VARCHAR(255) NOT NULL DEFAULT '',
    phone                      VARCHAR(20)  NOT NULL UNIQUE,
    email                      VARCHAR(254) NOT NULL DEFAULT '',
    agent_type                 VARCHAR(20)  NOT NULL DEFAULT '',
    agent_type_other           VARCHAR(255) NOT NULL DEFAULT '',
    rera_number                VARCHAR(50)  NOT NULL DEFAULT '',
    agent_code                 VARCHAR(20)  NOT NULL UNIQUE,
    referred_by                UUID NULL REFERENCES agents(agent_id) ON DELETE SET NULL,
    device_token               VARCHAR(255) NOT NULL DEFAULT '',
    is_whatsapp_business       BOOLEAN NOT NULL DEFAULT FALSE,
    is_profile_complete        BOOLEAN NOT NULL DEFAULT FALSE,
    has_completed_first_action BOOLEAN NOT NULL DEFAULT FALSE,
    is_active                  BOOLEAN NOT NULL DEFAULT TRUE,
    created_at                 TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at                 TIMESTAMPTZ NOT NULL DEFAULT now(),
    CHECK (referred_by IS NULL OR referred_by <> agent_id)
);
CREATE INDEX IF NOT EXISTS idx_agents_referred_by ON agents(referred_by);
CREATE INDEX IF NOT EXISTS idx_agents_device_token ON agents(device_token) WHERE device_token <> '';
`},
	{Name: "0002_clients", SQL: `
CREATE TABLE IF NOT EXISTS clients (
    client_id                UUID PRIMARY KEY,
    client_name              VARCHAR(255) NOT NULL,
    client_phone             VARCHAR(20)  NOT NULL,
    expected_mortgage_amount NUMERIC(15,2) NOT NULL,
    estimated_commission     NUMERIC(12,2) NULL,
    commission_amount        NUMERIC(12,2) NULL,
    status                   VARCHAR(20) NOT NULL DEFAULT 'SUBMITTED',
    source_agent_id          UUID NULL REFERENCES agents(agent_id) ON DELETE SET NULL,
    channel                  VARCHAR(20) NOT NULL DEFAULT 'PARTNER_PWA',
    crm_lead_id              UUID NULL,
    consent_given            BOOLEAN NOT NULL DEFAULT FALSE,
    created_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at               TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_clients_source_agent ON clients(source_agent_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_clients_crm_lead ON clients(crm_lead_id);
CREATE INDEX IF NOT EXISTS idx_clients_phone ON clients(client_phone);
`},
	{Name: "0003_bonus_ledgers", SQL: `
CREATE TABLE IF NOT EXISTS referral_bonuses (
    bonus_id               UUID PRIMARY KEY,
    referrer_id            UUID NOT NULL REFERENCES agents(agent_id),
    triggered_by_agent_id  UUID NOT NULL REFERENCES agents(agent_id),
    triggered_by_client_id UUID NOT NULL REFERENCES clients(client_id),
    deal_number            INTEGER NOT NULL CHECK (deal_number > 0),
    amount                 NUMERIC(10,2) NOT NULL,
    created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (referrer_id, deal_number),
    UNIQUE (referrer_id, triggered_by_client_id)
);
CREATE TABLE IF NOT EXISTS new_agent_bonuses (
    bonus_id    UUID PRIMARY KEY,
    agent_id    UUID NOT NULL REFERENCES agents(agent_id),
    client_id   UUID NOT NULL REFERENCES clients(client_id),
    deal_number INTEGER NOT NULL CHECK (deal_number > 0),
    amount      NUMERIC(10,2) NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (agent_id, deal_number),
    UNIQUE (agent_id, client_id)
);
CREATE TABLE IF NOT EXISTS bonus_counters (
    beneficiary_id   UUID NOT NULL,
    kind             VARCHAR(16) NOT NULL,
    last_deal_number INTEGER NOT NULL DEFAULT 0,
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (beneficiary_id, kind)
);
`},
	{Name: "0004_app_config", SQL: `
CREATE TABLE IF NOT EXISTS app_config (
    key         VARCHAR(100) PRIMARY KEY,
    value       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`},
	{Name: "0005_whatsapp_sessions_webhook_logs", SQL: `
CREATE TABLE IF NOT EXISTS whatsapp_sessions (
    session_id           UUID PRIMARY KEY,
    code                 VARCHAR(6) NOT NULL,
    referral_code        VARCHAR(20) NOT NULL DEFAULT '',
    is_whatsapp_business BOOLEAN NOT NULL DEFAULT FALSE,
    phone                VARCHAR(20) NOT NULL DEFAULT '',
    agent_id             UUID NULL REFERENCES agents(agent_id) ON DELETE CASCADE,
    device_token         VARCHAR(255) NOT NULL DEFAULT '',
    is_verified          BOOLEAN NOT NULL DEFAULT FALSE,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_whatsapp_sessions_pending_code ON whatsapp_sessions(code) WHERE NOT is_verified;
CREATE TABLE IF NOT EXISTS webhook_logs (
    log_id        UUID PRIMARY KEY,
    source        VARCHAR(20) NOT NULL,
    event_type    VARCHAR(100) NOT NULL DEFAULT '',
    payload       JSONB NOT NULL DEFAULT '{}'::jsonb,
    processed     BOOLEAN NOT NULL DEFAULT FALSE,
    error_message TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_webhook_logs_source ON webhook_logs(source, created_at DESC);
`},
}

// Migrate applies pending migrations, each in its own transaction.
func Migrate(ctx context.Context, db *sql.DB, logger *zap.Logger) (int, error) {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    name       VARCHAR(100) PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied := 0
	for _, m := range Migrations {
		var exists bool
		if err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, m.Name,
		).Scan(&exists); err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", m.Name, err)
		}
		if exists {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return applied, fmt.Errorf("failed to begin migration %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("failed to apply migration %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, m.Name); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("failed to record migration %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("failed to commit migration %s: %w", m.Name, err)
		}
		applied++
		logger.Info("Migration applied", zap.String("name", m.Name))
	}
	return applied, nil
}
