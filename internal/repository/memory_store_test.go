package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

func TestMemoryStore_WithinTx_RestoresOnError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a := &domain.Agent{Phone: "+971500000001", IsActive: true}
	require.NoError(t, store.Agents().CreateAgent(ctx, a))

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(tx Store) error {
		require.NoError(t, tx.Agents().CreateAgent(ctx, &domain.Agent{Phone: "+971500000002", IsActive: true}))
		_, err := tx.Ledger().AwardNext(ctx, domain.BonusKindNewAgent,
			BonusClaim{BeneficiaryID: a.AgentID, ClientID: uuid.NewString()}, schedule(1000))
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Agents().GetAgentByPhone(ctx, "+971500000002")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	rows, err := store.Ledger().ListBonuses(ctx, domain.BonusKindNewAgent, a.AgentID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemoryStore_RollbackKeepsWritesOutsideTx(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	started := make(chan struct{})
	done := make(chan error, 1)
	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(tx Store) error {
		require.NoError(t, tx.Agents().CreateAgent(ctx, &domain.Agent{Phone: "+971500000002", IsActive: true}))
		go func() {
			close(started)
			done <- store.WebhookLogs().CreateWebhookLog(ctx, &domain.WebhookLog{Source: "CRM", EventType: "status_update"})
		}()
		<-started
		time.Sleep(20 * time.Millisecond)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, <-done)

	logs, err := store.WebhookLogs().ListWebhookLogs(ctx, "CRM", 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = store.Agents().GetAgentByPhone(ctx, "+971500000002")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMemoryLedger_AwardNext(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ledger := store.Ledger()
	sched := schedule(500, 500, 1000)

	var got []int
	for i := 0; i < 4; i++ {
		b, err := ledger.AwardNext(ctx, domain.BonusKindReferrer,
			BonusClaim{BeneficiaryID: "ref", TriggeredByAgentID: "agent", ClientID: uuid.NewString()}, sched)
		require.NoError(t, err)
		if b != nil {
			got = append(got, b.DealNumber)
		}
	}
	assert.Equal(t, []int{1, 2, 3}, got)

	rows, err := ledger.ListBonuses(ctx, domain.BonusKindReferrer, "ref")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, decimal.NewFromInt(1000).Equal(rows[2].Amount))
}

func TestMemoryLedger_SameClientConflicts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	claim := BonusClaim{BeneficiaryID: "agent", ClientID: "client-1"}

	_, err := store.Ledger().AwardNext(ctx, domain.BonusKindNewAgent, claim, schedule(1000, 750))
	require.NoError(t, err)

	b, err := store.Ledger().AwardNext(ctx, domain.BonusKindNewAgent, claim, schedule(1000, 750))
	assert.Nil(t, b)
	assert.True(t, errors.Is(err, domain.ErrConstraintConflict))

	// the conflict did not consume deal 2
	b, err = store.Ledger().AwardNext(ctx, domain.BonusKindNewAgent,
		BonusClaim{BeneficiaryID: "agent", ClientID: "client-2"}, schedule(1000, 750))
	require.NoError(t, err)
	assert.Equal(t, 2, b.DealNumber)
}

func TestMemoryLedger_ConcurrentAwardsAreGapFree(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sched := schedule(100, 200, 300, 400, 500)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.WithinTx(ctx, func(tx Store) error {
				_, err := tx.Ledger().AwardNext(ctx, domain.BonusKindReferrer,
					BonusClaim{BeneficiaryID: "ref", TriggeredByAgentID: "a", ClientID: uuid.NewString()}, sched)
				return err
			})
		}()
	}
	wg.Wait()

	rows, err := store.Ledger().ListBonuses(ctx, domain.BonusKindReferrer, "ref")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for i, b := range rows {
		assert.Equal(t, i+1, b.DealNumber)
	}
}

func TestMemorySessions_PendingCodeUnique(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	s1 := &domain.WhatsAppSession{Code: "123456"}
	require.NoError(t, store.Sessions().CreateSession(ctx, s1))
	err := store.Sessions().CreateSession(ctx, &domain.WhatsAppSession{Code: "123456"})
	assert.True(t, errors.Is(err, domain.ErrConstraintConflict))

	agentID := "agent-1"
	s1.AgentID = &agentID
	s1.Phone = "+971500000001"
	require.NoError(t, store.Sessions().MarkSessionVerified(ctx, s1))

	// a verified code can be issued again
	require.NoError(t, store.Sessions().CreateSession(ctx, &domain.WhatsAppSession{Code: "123456"}))

	_, err = store.Sessions().GetPendingSession(ctx, "123456")
	require.NoError(t, err)

	require.NoError(t, store.Sessions().DeleteSessionsForAgent(ctx, agentID))
	s, err := store.Sessions().GetSessionByCode(ctx, "123456")
	require.NoError(t, err)
	assert.False(t, s.IsVerified)
}
