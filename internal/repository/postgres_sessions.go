package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

// PostgresSessionsRepo whatsapp_sessions table
type PostgresSessionsRepo struct {
	db     DBTX
	logger *zap.Logger
}

func NewPostgresSessionsRepo(db DBTX, logger *zap.Logger) *PostgresSessionsRepo {
	return &PostgresSessionsRepo{db: db, logger: logger}
}

const sessionColumns = `session_id, code, referral_code, is_whatsapp_business, phone, agent_id,
	device_token, is_verified, created_at`

func scanSession(row rowScanner) (*domain.WhatsAppSession, error) {
	var (
		s       domain.WhatsAppSession
		agentID sql.NullString
	)
	if err := row.Scan(&s.SessionID, &s.Code, &s.ReferralCode, &s.IsWhatsAppBusiness, &s.Phone,
		&agentID, &s.DeviceToken, &s.IsVerified, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.AgentID = stringPtr(agentID)
	return &s, nil
}

// CreateSession fails with ErrConstraintConflict when the code is already pending.
func (r *PostgresSessionsRepo) CreateSession(ctx context.Context, s *domain.WhatsAppSession) error {
	if len(s.Code) != 6 {
		return domain.Validationf("session code must have 6 digits")
	}
	if s.SessionID == "" {
		s.SessionID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO whatsapp_sessions (session_id, code, referral_code, is_whatsapp_business)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		s.SessionID, s.Code, s.ReferralCode, s.IsWhatsAppBusiness,
	).Scan(&s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("session code %s: %w", s.Code, domain.ErrConstraintConflict)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *PostgresSessionsRepo) GetSessionByCode(ctx context.Context, code string) (*domain.WhatsAppSession, error) {
	return r.getOne(ctx, `SELECT `+sessionColumns+` FROM whatsapp_sessions WHERE code = $1 ORDER BY created_at DESC LIMIT 1`, code)
}

func (r *PostgresSessionsRepo) GetPendingSession(ctx context.Context, code string) (*domain.WhatsAppSession, error) {
	return r.getOne(ctx, `SELECT `+sessionColumns+` FROM whatsapp_sessions WHERE code = $1 AND NOT is_verified`, code)
}

func (r *PostgresSessionsRepo) getOne(ctx context.Context, query, code string) (*domain.WhatsAppSession, error) {
	if code == "" {
		return nil, domain.Validationf("session code is required")
	}
	s, err := scanSession(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("session", code)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func (r *PostgresSessionsRepo) MarkSessionVerified(ctx context.Context, s *domain.WhatsAppSession) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE whatsapp_sessions
		SET phone = $2, agent_id = $3, device_token = $4, is_verified = TRUE
		WHERE session_id = $1 AND NOT is_verified`,
		s.SessionID, s.Phone, nullString(s.AgentID), s.DeviceToken,
	)
	if err != nil {
		return fmt.Errorf("failed to verify session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("pending session", s.SessionID)
	}
	s.IsVerified = true
	return nil
}

func (r *PostgresSessionsRepo) DeleteSessionsForAgent(ctx context.Context, agentID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM whatsapp_sessions WHERE agent_id = $1`, agentID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}
