package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPostgresStore_WithinTx_Commit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE agents SET referred_by`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = store.WithinTx(context.Background(), func(tx Store) error {
		// nested calls join the outer transaction
		return tx.WithinTx(context.Background(), func(inner Store) error {
			_, err := inner.Agents().SetReferredBy(context.Background(), "a", "r")
			return err
		})
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithinTx_RollbackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db, zap.NewNop())
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err = store.WithinTx(context.Background(), func(tx Store) error { return boom })

	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LedgerKnowsTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db, zap.NewNop())
	assert.False(t, store.Ledger().(*PostgresLedgerRepo).inTx)

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, store.WithinTx(context.Background(), func(tx Store) error {
		assert.True(t, tx.Ledger().(*PostgresLedgerRepo).inTx)
		return nil
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_SkipsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	for i, m := range Migrations {
		applied := i < len(Migrations)-1
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(m.Name).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(applied))
		if !applied {
			mock.ExpectBegin()
			mock.ExpectExec(`CREATE TABLE IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs(m.Name).WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()
		}
	}

	n, err := Migrate(context.Background(), db, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
