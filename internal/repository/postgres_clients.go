package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

// PostgresClientsRepo clients table
type PostgresClientsRepo struct {
	db     DBTX
	logger *zap.Logger
}

func NewPostgresClientsRepo(db DBTX, logger *zap.Logger) *PostgresClientsRepo {
	return &PostgresClientsRepo{db: db, logger: logger}
}

const clientColumns = `client_id, client_name, client_phone, expected_mortgage_amount,
	estimated_commission, commission_amount, status, source_agent_id, channel,
	crm_lead_id, consent_given, created_at, updated_at`

func scanClient(row rowScanner) (*domain.Client, error) {
	var (
		c           domain.Client
		status      string
		estimated   decimal.NullDecimal
		commission  decimal.NullDecimal
		sourceAgent sql.NullString
		crmLead     sql.NullString
	)
	err := row.Scan(
		&c.ClientID, &c.ClientName, &c.ClientPhone, &c.ExpectedMortgageAmount,
		&estimated, &commission, &status, &sourceAgent, &c.Channel,
		&crmLead, &c.ConsentGiven, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = domain.ClientStatus(status)
	c.EstimatedCommission = decimalPtr(estimated)
	c.CommissionAmount = decimalPtr(commission)
	c.SourceAgentID = stringPtr(sourceAgent)
	c.CRMLeadID = stringPtr(crmLead)
	return &c, nil
}

func (r *PostgresClientsRepo) GetClient(ctx context.Context, clientID string) (*domain.Client, error) {
	if clientID == "" {
		return nil, domain.Validationf("client_id is required")
	}
	c, err := scanClient(r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE client_id = $1`, clientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("client", clientID)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

func (r *PostgresClientsRepo) GetClientForAgent(ctx context.Context, agentID, clientID string) (*domain.Client, error) {
	if agentID == "" || clientID == "" {
		return nil, domain.Validationf("agent_id and client_id are required")
	}
	c, err := scanClient(r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE client_id = $1 AND source_agent_id = $2`,
		clientID, agentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("client", clientID)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

func (r *PostgresClientsRepo) LockClient(ctx context.Context, ref domain.ClientRef) (*domain.Client, error) {
	if ref.Value == "" {
		return nil, domain.Validationf("client reference is required")
	}
	var where string
	switch ref.Kind {
	case domain.ClientRefID:
		where = "client_id = $1"
	case domain.ClientRefCRMLeadID:
		where = "crm_lead_id = $1"
	default:
		return nil, domain.Validationf("unknown client reference kind %q", ref.Kind)
	}
	// ids are UUID columns; a malformed value can never match
	if _, err := uuid.Parse(ref.Value); err != nil {
		return nil, notFound("client", ref.String())
	}

	c, err := scanClient(r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE `+where+` ORDER BY created_at LIMIT 1 FOR UPDATE`,
		ref.Value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("client", ref.String())
		}
		return nil, fmt.Errorf("failed to lock client: %w", err)
	}
	return c, nil
}

func (r *PostgresClientsRepo) CreateClient(ctx context.Context, c *domain.Client) error {
	if c.ClientName == "" || c.ClientPhone == "" {
		return domain.Validationf("client_name and client_phone are required")
	}
	if c.ClientID == "" {
		c.ClientID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = domain.StatusSubmitted
	}
	if c.Channel == "" {
		c.Channel = domain.ChannelPartnerPWA
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO clients (
			client_id, client_name, client_phone, expected_mortgage_amount,
			estimated_commission, commission_amount, status, source_agent_id, channel,
			crm_lead_id, consent_given
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		c.ClientID, c.ClientName, c.ClientPhone, c.ExpectedMortgageAmount,
		nullDecimal(c.EstimatedCommission), nullDecimal(c.CommissionAmount), string(c.Status),
		nullString(c.SourceAgentID), c.Channel, nullString(c.CRMLeadID), c.ConsentGiven,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (r *PostgresClientsRepo) UpdateClient(ctx context.Context, c *domain.Client) error {
	if c.ClientID == "" {
		return domain.Validationf("client_id is required")
	}
	err := r.db.QueryRowContext(ctx, `
		UPDATE clients SET
			expected_mortgage_amount = $2, estimated_commission = $3, commission_amount = $4,
			status = $5, crm_lead_id = $6, updated_at = now()
		WHERE client_id = $1
		RETURNING updated_at`,
		c.ClientID, c.ExpectedMortgageAmount, nullDecimal(c.EstimatedCommission),
		nullDecimal(c.CommissionAmount), string(c.Status), nullString(c.CRMLeadID),
	).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("client", c.ClientID)
		}
		return fmt.Errorf("failed to update client: %w", err)
	}
	return nil
}

func (r *PostgresClientsRepo) ListClients(ctx context.Context, agentID string, filter domain.ClientFilter) ([]domain.Client, error) {
	if agentID == "" {
		return nil, domain.Validationf("agent_id is required")
	}
	where := []string{"source_agent_id = $1"}
	args := []any{agentID}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("client_name ILIKE $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + clientColumns + ` FROM clients WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	return r.list(ctx, query, args...)
}

func (r *PostgresClientsRepo) PhoneExists(ctx context.Context, phones []string) (bool, error) {
	if len(phones) == 0 {
		return false, nil
	}
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM clients WHERE client_phone = ANY($1))`,
		pq.Array(phones),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check client phone: %w", err)
	}
	return exists, nil
}

func (r *PostgresClientsRepo) CountDisbursed(ctx context.Context, agentID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clients WHERE source_agent_id = $1 AND status = $2`,
		agentID, string(domain.StatusDisbursed),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count disbursed clients: %w", err)
	}
	return n, nil
}

func (r *PostgresClientsRepo) ListSyncCandidates(ctx context.Context) ([]domain.Client, error) {
	return r.list(ctx, `
		SELECT `+clientColumns+` FROM clients
		WHERE crm_lead_id IS NOT NULL AND status NOT IN ($1, $2)
		ORDER BY created_at`,
		string(domain.StatusDisbursed), string(domain.StatusDeclined))
}

func (r *PostgresClientsRepo) list(ctx context.Context, query string, args ...any) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
