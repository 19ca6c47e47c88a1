package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so every Postgres repo
// can run inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store groups the repositories behind one unit of work.
type Store interface {
	Agents() AgentsRepo
	Clients() ClientsRepo
	Ledger() LedgerRepo
	Config() ConfigRepo
	Sessions() SessionsRepo
	WebhookLogs() WebhookLogsRepo

	// WithinTx runs fn against a transactional view of the store. fn's error
	// rolls everything back. Nested calls join the outer transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// BonusClaim who earns and what triggered it
type BonusClaim struct {
	BeneficiaryID      string
	TriggeredByAgentID string
	ClientID           string
}

// ---- repos ----

type AgentsRepo interface {
	GetAgent(ctx context.Context, agentID string) (*domain.Agent, error)
	GetAgentByPhone(ctx context.Context, phone string) (*domain.Agent, error)
	GetAgentByCode(ctx context.Context, code string) (*domain.Agent, error)
	GetAgentByDeviceToken(ctx context.Context, token string) (*domain.Agent, error)
	CreateAgent(ctx context.Context, agent *domain.Agent) error
	UpdateAgent(ctx context.Context, agent *domain.Agent) error
	// SetReferredBy links only when referred_by is still empty; false means
	// the agent already had a referrer.
	SetReferredBy(ctx context.Context, agentID, referrerID string) (bool, error)
	ListReferredAgents(ctx context.Context, referrerID string) ([]domain.Agent, error)
	// ListInactiveAgents active agents with no client submitted since the cutoff
	ListInactiveAgents(ctx context.Context, since time.Time) ([]domain.Agent, error)
}

type ClientsRepo interface {
	GetClient(ctx context.Context, clientID string) (*domain.Client, error)
	GetClientForAgent(ctx context.Context, agentID, clientID string) (*domain.Client, error)
	// LockClient reads the client row for update; use inside WithinTx.
	LockClient(ctx context.Context, ref domain.ClientRef) (*domain.Client, error)
	CreateClient(ctx context.Context, client *domain.Client) error
	UpdateClient(ctx context.Context, client *domain.Client) error
	ListClients(ctx context.Context, agentID string, filter domain.ClientFilter) ([]domain.Client, error)
	PhoneExists(ctx context.Context, phones []string) (bool, error)
	CountDisbursed(ctx context.Context, agentID string) (int, error)
	// ListSyncCandidates non-terminal clients carrying a CRM lead id
	ListSyncCandidates(ctx context.Context) ([]domain.Client, error)
}

type LedgerRepo interface {
	// AwardNext reserves the beneficiary's next deal number and inserts the
	// row with amount schedule[deal-1]. It returns (nil, nil) once the
	// schedule is exhausted and domain.ErrConstraintConflict when the row
	// already exists; a conflict leaves the counter untouched.
	AwardNext(ctx context.Context, kind domain.BonusKind, claim BonusClaim, schedule []decimal.Decimal) (*domain.Bonus, error)
	ListBonuses(ctx context.Context, kind domain.BonusKind, beneficiaryID string) ([]domain.Bonus, error)
	ListAllBonuses(ctx context.Context, kind domain.BonusKind) ([]domain.Bonus, error)
}

type ConfigRepo interface {
	GetConfig(ctx context.Context, key string) (*domain.ConfigEntry, error)
	ListConfig(ctx context.Context) ([]domain.ConfigEntry, error)
	UpsertConfig(ctx context.Context, entry domain.ConfigEntry) error
	CreateConfigIfMissing(ctx context.Context, entry domain.ConfigEntry) (bool, error)
}

type SessionsRepo interface {
	CreateSession(ctx context.Context, s *domain.WhatsAppSession) error
	// GetSessionByCode newest session with this code, verified or not
	GetSessionByCode(ctx context.Context, code string) (*domain.WhatsAppSession, error)
	GetPendingSession(ctx context.Context, code string) (*domain.WhatsAppSession, error)
	MarkSessionVerified(ctx context.Context, s *domain.WhatsAppSession) error
	DeleteSessionsForAgent(ctx context.Context, agentID string) error
}

type WebhookLogsRepo interface {
	CreateWebhookLog(ctx context.Context, log *domain.WebhookLog) error
	FinishWebhookLog(ctx context.Context, logID string, processed bool, errMsg string) error
	ListWebhookLogs(ctx context.Context, source string, limit int) ([]domain.WebhookLog, error)
}

// ---- helpers ----

func notFound(what, key string) error {
	return fmt.Errorf("%s not found: %s: %w", what, key, domain.ErrNotFound)
}

// isUniqueViolation reports a Postgres 23505.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func nullString(p *string) sql.NullString {
	if p == nil || *p == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullDecimal(p *decimal.Decimal) decimal.NullDecimal {
	if p == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *p, Valid: true}
}

func decimalPtr(nd decimal.NullDecimal) *decimal.Decimal {
	if !nd.Valid {
		return nil
	}
	d := nd.Decimal
	return &d
}
