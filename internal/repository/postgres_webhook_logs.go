package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

// PostgresWebhookLogsRepo webhook_logs table
type PostgresWebhookLogsRepo struct {
	db     DBTX
	logger *zap.Logger
}

func NewPostgresWebhookLogsRepo(db DBTX, logger *zap.Logger) *PostgresWebhookLogsRepo {
	return &PostgresWebhookLogsRepo{db: db, logger: logger}
}

func (r *PostgresWebhookLogsRepo) CreateWebhookLog(ctx context.Context, l *domain.WebhookLog) error {
	if l.Source == "" {
		return domain.Validationf("webhook source is required")
	}
	if l.LogID == "" {
		l.LogID = uuid.NewString()
	}
	payload := []byte(l.Payload)
	if len(payload) == 0 || !json.Valid(payload) {
		payload, _ = json.Marshal(map[string]string{"raw": string(l.Payload)})
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO webhook_logs (log_id, source, event_type, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		l.LogID, l.Source, l.EventType, string(payload),
	).Scan(&l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create webhook log: %w", err)
	}
	return nil
}

func (r *PostgresWebhookLogsRepo) FinishWebhookLog(ctx context.Context, logID string, processed bool, errMsg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE webhook_logs SET processed = $2, error_message = $3 WHERE log_id = $1`,
		logID, processed, errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to update webhook log: %w", err)
	}
	return nil
}

func (r *PostgresWebhookLogsRepo) ListWebhookLogs(ctx context.Context, source string, limit int) ([]domain.WebhookLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT log_id, source, event_type, payload, processed, error_message, created_at
		FROM webhook_logs
		WHERE ($1::text = '' OR source = $1)
		ORDER BY created_at DESC
		LIMIT $2`, source, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook logs: %w", err)
	}
	defer rows.Close()

	var out []domain.WebhookLog
	for rows.Next() {
		var (
			l       domain.WebhookLog
			payload []byte
		)
		if err := rows.Scan(&l.LogID, &l.Source, &l.EventType, &payload, &l.Processed, &l.ErrorMessage, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan webhook log: %w", err)
		}
		l.Payload = json.RawMessage(payload)
		out = append(out, l)
	}
	return out, rows.Err()
}
