package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

// PostgresAgentsRepo agents table
type PostgresAgentsRepo struct {
	db     DBTX
	logger *zap.Logger
}

func NewPostgresAgentsRepo(db DBTX, logger *zap.Logger) *PostgresAgentsRepo {
	return &PostgresAgentsRepo{db: db, logger: logger}
}

const agentColumns = `agent_id, name, phone, email, agent_type, agent_type_other, rera_number,
	agent_code, referred_by, device_token, is_whatsapp_business, is_profile_complete,
	has_completed_first_action, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var (
		a          domain.Agent
		agentType  string
		referredBy sql.NullString
	)
	err := row.Scan(
		&a.AgentID, &a.Name, &a.Phone, &a.Email, &agentType, &a.AgentTypeOther, &a.RERANumber,
		&a.AgentCode, &referredBy, &a.DeviceToken, &a.IsWhatsAppBusiness, &a.IsProfileComplete,
		&a.HasCompletedFirstAction, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.AgentType = domain.AgentType(agentType)
	a.ReferredBy = stringPtr(referredBy)
	return &a, nil
}

func (r *PostgresAgentsRepo) getOne(ctx context.Context, where, key string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE ` + where
	a, err := scanAgent(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("agent", key)
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return a, nil
}

func (r *PostgresAgentsRepo) GetAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	if agentID == "" {
		return nil, domain.Validationf("agent_id is required")
	}
	return r.getOne(ctx, "agent_id = $1", agentID)
}

func (r *PostgresAgentsRepo) GetAgentByPhone(ctx context.Context, phone string) (*domain.Agent, error) {
	if phone == "" {
		return nil, domain.Validationf("phone is required")
	}
	return r.getOne(ctx, "phone = $1", phone)
}

func (r *PostgresAgentsRepo) GetAgentByCode(ctx context.Context, code string) (*domain.Agent, error) {
	if code == "" {
		return nil, domain.Validationf("agent_code is required")
	}
	return r.getOne(ctx, "agent_code = $1", code)
}

// GetAgentByDeviceToken only matches active agents.
func (r *PostgresAgentsRepo) GetAgentByDeviceToken(ctx context.Context, token string) (*domain.Agent, error) {
	if token == "" {
		return nil, domain.Validationf("device token is required")
	}
	return r.getOne(ctx, "device_token = $1 AND is_active", token)
}

func (r *PostgresAgentsRepo) CreateAgent(ctx context.Context, a *domain.Agent) error {
	if a.Phone == "" {
		return domain.Validationf("phone is required")
	}
	if a.AgentID == "" {
		a.AgentID = uuid.NewString()
	}
	if a.AgentCode == "" {
		a.AgentCode = domain.NewAgentCode()
	}
	a.RefreshProfileComplete()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO agents (
			agent_id, name, phone, email, agent_type, agent_type_other, rera_number,
			agent_code, referred_by, device_token, is_whatsapp_business, is_profile_complete,
			has_completed_first_action, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`,
		a.AgentID, a.Name, a.Phone, a.Email, string(a.AgentType), a.AgentTypeOther, a.RERANumber,
		a.AgentCode, nullString(a.ReferredBy), a.DeviceToken, a.IsWhatsAppBusiness, a.IsProfileComplete,
		a.HasCompletedFirstAction, a.IsActive,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("agent %s: %w", a.Phone, domain.ErrConstraintConflict)
		}
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

func (r *PostgresAgentsRepo) UpdateAgent(ctx context.Context, a *domain.Agent) error {
	if a.AgentID == "" {
		return domain.Validationf("agent_id is required")
	}
	a.RefreshProfileComplete()

	err := r.db.QueryRowContext(ctx, `
		UPDATE agents SET
			name = $2, email = $3, agent_type = $4, agent_type_other = $5, rera_number = $6,
			referred_by = $7, device_token = $8, is_whatsapp_business = $9,
			is_profile_complete = $10, has_completed_first_action = $11, is_active = $12,
			updated_at = now()
		WHERE agent_id = $1
		RETURNING updated_at`,
		a.AgentID, a.Name, a.Email, string(a.AgentType), a.AgentTypeOther, a.RERANumber,
		nullString(a.ReferredBy), a.DeviceToken, a.IsWhatsAppBusiness,
		a.IsProfileComplete, a.HasCompletedFirstAction, a.IsActive,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("agent", a.AgentID)
		}
		return fmt.Errorf("failed to update agent: %w", err)
	}
	return nil
}

func (r *PostgresAgentsRepo) SetReferredBy(ctx context.Context, agentID, referrerID string) (bool, error) {
	if agentID == "" || referrerID == "" {
		return false, domain.Validationf("agent_id and referrer_id are required")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE agents SET referred_by = $2, updated_at = now()
		WHERE agent_id = $1 AND referred_by IS NULL`,
		agentID, referrerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to set referrer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to set referrer: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresAgentsRepo) ListReferredAgents(ctx context.Context, referrerID string) ([]domain.Agent, error) {
	return r.list(ctx, `SELECT `+agentColumns+` FROM agents WHERE referred_by = $1 ORDER BY created_at DESC`, referrerID)
}

func (r *PostgresAgentsRepo) ListInactiveAgents(ctx context.Context, since time.Time) ([]domain.Agent, error) {
	return r.list(ctx, `
		SELECT `+agentColumns+` FROM agents a
		WHERE a.is_active
		  AND NOT EXISTS (
			SELECT 1 FROM clients c
			WHERE c.source_agent_id = a.agent_id AND c.created_at >= $1
		  )
		ORDER BY a.created_at`, since)
}

func (r *PostgresAgentsRepo) list(ctx context.Context, query string, args ...any) ([]domain.Agent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var out []domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
