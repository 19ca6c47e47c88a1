package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

// PostgresConfigRepo app_config table
type PostgresConfigRepo struct {
	db     DBTX
	logger *zap.Logger
}

func NewPostgresConfigRepo(db DBTX, logger *zap.Logger) *PostgresConfigRepo {
	return &PostgresConfigRepo{db: db, logger: logger}
}

func (r *PostgresConfigRepo) GetConfig(ctx context.Context, key string) (*domain.ConfigEntry, error) {
	if key == "" {
		return nil, domain.Validationf("config key is required")
	}
	var e domain.ConfigEntry
	err := r.db.QueryRowContext(ctx,
		`SELECT key, value, description, updated_at FROM app_config WHERE key = $1`, key,
	).Scan(&e.Key, &e.Value, &e.Description, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("config", key)
		}
		return nil, fmt.Errorf("failed to get config: %w", err)
	}
	return &e, nil
}

func (r *PostgresConfigRepo) ListConfig(ctx context.Context) ([]domain.ConfigEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, description, updated_at FROM app_config ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list config: %w", err)
	}
	defer rows.Close()

	var out []domain.ConfigEntry
	for rows.Next() {
		var e domain.ConfigEntry
		if err := rows.Scan(&e.Key, &e.Value, &e.Description, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan config: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertConfig keeps the stored description when the new one is empty.
func (r *PostgresConfigRepo) UpsertConfig(ctx context.Context, e domain.ConfigEntry) error {
	if e.Key == "" {
		return domain.Validationf("config key is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_config (key, value, description, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			description = CASE WHEN EXCLUDED.description = '' THEN app_config.description ELSE EXCLUDED.description END,
			updated_at = now()`,
		e.Key, e.Value, e.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert config: %w", err)
	}
	return nil
}

func (r *PostgresConfigRepo) CreateConfigIfMissing(ctx context.Context, e domain.ConfigEntry) (bool, error) {
	if e.Key == "" {
		return false, domain.Validationf("config key is required")
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO app_config (key, value, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING`,
		e.Key, e.Value, e.Description,
	)
	if err != nil {
		return false, fmt.Errorf("failed to seed config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to seed config: %w", err)
	}
	return n == 1, nil
}
