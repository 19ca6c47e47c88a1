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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

func setupMockAgentsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresAgentsRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresAgentsRepo(db, zap.NewNop())
	return db, mock, repo
}

var agentRowColumns = []string{
	"agent_id", "name", "phone", "email", "agent_type", "agent_type_other", "rera_number",
	"agent_code", "referred_by", "device_token", "is_whatsapp_business", "is_profile_complete",
	"has_completed_first_action", "is_active", "created_at", "updated_at",
}

func TestGetAgentByCode_Success(t *testing.T) {
	db, mock, repo := setupMockAgentsDB(t)
	defer db.Close()

	agentID := uuid.New().String()
	referrerID := uuid.New().String()
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM agents WHERE agent_code = \$1`).
		WithArgs("RIVO-AB12").
		WillReturnRows(sqlmock.NewRows(agentRowColumns).AddRow(
			agentID, "Sara", "+971500000001", "sara@example.com", "RE_BROKER", "", "",
			"RIVO-AB12", referrerID, "tok", false, true,
			true, true, now, now,
		))

	a, err := repo.GetAgentByCode(context.Background(), "RIVO-AB12")

	require.NoError(t, err)
	assert.Equal(t, agentID, a.AgentID)
	assert.Equal(t, domain.AgentTypeREBroker, a.AgentType)
	require.NotNil(t, a.ReferredBy)
	assert.Equal(t, referrerID, *a.ReferredBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAgent_NotFound(t *testing.T) {
	db, mock, repo := setupMockAgentsDB(t)
	defer db.Close()

	agentID := uuid.New().String()
	mock.ExpectQuery(`SELECT`).WithArgs(agentID).WillReturnError(sql.ErrNoRows)

	a, err := repo.GetAgent(context.Background(), agentID)

	assert.Nil(t, a)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAgent_EmptyID(t *testing.T) {
	db, mock, repo := setupMockAgentsDB(t)
	defer db.Close()

	_, err := repo.GetAgent(context.Background(), "")

	assert.True(t, errors.Is(err, domain.ErrValidation))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAgent_DuplicatePhone(t *testing.T) {
	db, mock, repo := setupMockAgentsDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO agents`).WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateAgent(context.Background(), &domain.Agent{Phone: "+971500000001", IsActive: true})

	assert.True(t, errors.Is(err, domain.ErrConstraintConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAgent_AssignsIDAndCode(t *testing.T) {
	db, mock, repo := setupMockAgentsDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO agents`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	a := &domain.Agent{Phone: "+971500000001", Name: "Sara", IsActive: true}
	require.NoError(t, repo.CreateAgent(context.Background(), a))

	assert.NotEmpty(t, a.AgentID)
	assert.Regexp(t, `^RIVO-[A-Z0-9]{4}$`, a.AgentCode)
	assert.False(t, a.IsProfileComplete)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetReferredBy_OnlyOnce(t *testing.T) {
	db, mock, repo := setupMockAgentsDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE agents SET referred_by = \$2.* referred_by IS NULL`).
		WithArgs("agent", "referrer").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE agents SET referred_by`).
		WithArgs("agent", "other").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.SetReferredBy(context.Background(), "agent", "referrer")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SetReferredBy(context.Background(), "agent", "other")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
