package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

func setupMockLedgerDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresLedgerRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresLedgerRepo(db, true, zap.NewNop())
	return db, mock, repo
}

func schedule(amounts ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(amounts))
	for i, a := range amounts {
		out[i] = decimal.NewFromInt(a)
	}
	return out
}

func TestAwardNext_NewAgentFirstDeal(t *testing.T) {
	db, mock, repo := setupMockLedgerDB(t)
	defer db.Close()

	agentID := uuid.New().String()
	clientID := uuid.New().String()
	createdAt := time.Now()

	mock.ExpectExec(`SAVEPOINT award_bonus`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO bonus_counters`).
		WithArgs(agentID, "NEW_AGENT").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE bonus_counters`).
		WithArgs(agentID, "NEW_AGENT", 3).
		WillReturnRows(sqlmock.NewRows([]string{"last_deal_number"}).AddRow(1))
	mock.ExpectQuery(`INSERT INTO new_agent_bonuses`).
		WithArgs(sqlmock.AnyArg(), agentID, clientID, 1, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))
	mock.ExpectExec(`RELEASE SAVEPOINT award_bonus`).WillReturnResult(sqlmock.NewResult(0, 0))

	b, err := repo.AwardNext(context.Background(), domain.BonusKindNewAgent,
		BonusClaim{BeneficiaryID: agentID, TriggeredByAgentID: agentID, ClientID: clientID},
		schedule(1000, 750, 500))

	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 1, b.DealNumber)
	assert.True(t, decimal.NewFromInt(1000).Equal(b.Amount))
	assert.Equal(t, agentID, b.TriggeredByAgentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAwardNext_ReferrerSecondDeal(t *testing.T) {
	db, mock, repo := setupMockLedgerDB(t)
	defer db.Close()

	referrerID := uuid.New().String()
	agentID := uuid.New().String()
	clientID := uuid.New().String()

	mock.ExpectExec(`SAVEPOINT award_bonus`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO bonus_counters .* FROM referral_bonuses WHERE referrer_id`).
		WithArgs(referrerID, "REFERRER").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`UPDATE bonus_counters`).
		WithArgs(referrerID, "REFERRER", 3).
		WillReturnRows(sqlmock.NewRows([]string{"last_deal_number"}).AddRow(2))
	mock.ExpectQuery(`INSERT INTO referral_bonuses`).
		WithArgs(sqlmock.AnyArg(), referrerID, agentID, clientID, 2, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(`RELEASE SAVEPOINT award_bonus`).WillReturnResult(sqlmock.NewResult(0, 0))

	b, err := repo.AwardNext(context.Background(), domain.BonusKindReferrer,
		BonusClaim{BeneficiaryID: referrerID, TriggeredByAgentID: agentID, ClientID: clientID},
		schedule(500, 500, 1000))

	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, domain.BonusKindReferrer, b.Kind)
	assert.Equal(t, 2, b.DealNumber)
	assert.True(t, decimal.NewFromInt(500).Equal(b.Amount))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAwardNext_ScheduleExhausted(t *testing.T) {
	db, mock, repo := setupMockLedgerDB(t)
	defer db.Close()

	agentID := uuid.New().String()

	mock.ExpectExec(`SAVEPOINT award_bonus`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO bonus_counters`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`UPDATE bonus_counters`).
		WithArgs(agentID, "NEW_AGENT", 3).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`RELEASE SAVEPOINT award_bonus`).WillReturnResult(sqlmock.NewResult(0, 0))

	b, err := repo.AwardNext(context.Background(), domain.BonusKindNewAgent,
		BonusClaim{BeneficiaryID: agentID, ClientID: uuid.New().String()},
		schedule(1000, 750, 500))

	require.NoError(t, err)
	assert.Nil(t, b)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAwardNext_ConflictRollsBackReservation(t *testing.T) {
	db, mock, repo := setupMockLedgerDB(t)
	defer db.Close()

	agentID := uuid.New().String()
	clientID := uuid.New().String()

	mock.ExpectExec(`SAVEPOINT award_bonus`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO bonus_counters`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`UPDATE bonus_counters`).
		WillReturnRows(sqlmock.NewRows([]string{"last_deal_number"}).AddRow(2))
	// ON CONFLICT DO NOTHING returns no row
	mock.ExpectQuery(`INSERT INTO new_agent_bonuses`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT award_bonus`).WillReturnResult(sqlmock.NewResult(0, 0))

	b, err := repo.AwardNext(context.Background(), domain.BonusKindNewAgent,
		BonusClaim{BeneficiaryID: agentID, ClientID: clientID},
		schedule(1000, 750, 500))

	assert.Nil(t, b)
	assert.True(t, errors.Is(err, domain.ErrConstraintConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAwardNext_UniqueViolationIsConflict(t *testing.T) {
	db, mock, repo := setupMockLedgerDB(t)
	defer db.Close()

	mock.ExpectExec(`SAVEPOINT award_bonus`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO bonus_counters`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`UPDATE bonus_counters`).
		WillReturnRows(sqlmock.NewRows([]string{"last_deal_number"}).AddRow(1))
	mock.ExpectQuery(`INSERT INTO referral_bonuses`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT award_bonus`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.AwardNext(context.Background(), domain.BonusKindReferrer,
		BonusClaim{BeneficiaryID: uuid.New().String(), TriggeredByAgentID: uuid.New().String(), ClientID: uuid.New().String()},
		schedule(500))

	assert.True(t, errors.Is(err, domain.ErrConstraintConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAwardNext_RequiresTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresLedgerRepo(db, false, zap.NewNop())
	_, err = repo.AwardNext(context.Background(), domain.BonusKindNewAgent,
		BonusClaim{BeneficiaryID: "a", ClientID: "c"}, schedule(1000))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "transaction")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAwardNext_EmptyScheduleAwardsNothing(t *testing.T) {
	db, mock, repo := setupMockLedgerDB(t)
	defer db.Close()

	b, err := repo.AwardNext(context.Background(), domain.BonusKindNewAgent,
		BonusClaim{BeneficiaryID: "a", ClientID: "c"}, nil)

	require.NoError(t, err)
	assert.Nil(t, b)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListBonuses_Referrer(t *testing.T) {
	db, mock, repo := setupMockLedgerDB(t)
	defer db.Close()

	referrerID := uuid.New().String()
	rows := sqlmock.NewRows([]string{
		"bonus_id", "referrer_id", "triggered_by_agent_id", "triggered_by_client_id",
		"deal_number", "amount", "created_at", "name", "client_name",
	}).
		AddRow("b1", referrerID, "agent-a", "client-1", 1, "500.00", time.Now(), "Aisha", "Omar").
		AddRow("b2", referrerID, "agent-b", "client-2", 2, "500.00", time.Now(), "Bilal", "Noor")

	mock.ExpectQuery(`FROM referral_bonuses b`).
		WithArgs(referrerID).
		WillReturnRows(rows)

	out, err := repo.ListBonuses(context.Background(), domain.BonusKindReferrer, referrerID)

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "agent-b", out[1].TriggeredByAgentID)
	assert.Equal(t, "Noor", out[1].ClientName)
	assert.True(t, decimal.NewFromInt(500).Equal(out[0].Amount))
	require.NoError(t, mock.ExpectationsWereMet())
}
