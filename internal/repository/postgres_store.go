package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// PostgresStore Store over one *sql.DB; tx is set on transactional views.
type PostgresStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *zap.Logger
}

func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) conn() DBTX {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *PostgresStore) Agents() AgentsRepo   { return NewPostgresAgentsRepo(s.conn(), s.logger) }
func (s *PostgresStore) Clients() ClientsRepo { return NewPostgresClientsRepo(s.conn(), s.logger) }
func (s *PostgresStore) Ledger() LedgerRepo {
	return NewPostgresLedgerRepo(s.conn(), s.tx != nil, s.logger)
}
func (s *PostgresStore) Config() ConfigRepo     { return NewPostgresConfigRepo(s.conn(), s.logger) }
func (s *PostgresStore) Sessions() SessionsRepo { return NewPostgresSessionsRepo(s.conn(), s.logger) }
func (s *PostgresStore) WebhookLogs() WebhookLogsRepo {
	return NewPostgresWebhookLogsRepo(s.conn(), s.logger)
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&PostgresStore{db: s.db, tx: tx, logger: s.logger}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
