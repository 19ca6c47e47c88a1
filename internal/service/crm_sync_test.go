package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/appconfig"
	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

type fakeFetcher map[string]domain.ClientStatus

func (f fakeFetcher) FetchLeadStatus(_ context.Context, leadID string) (*LeadStatus, error) {
	st, ok := f[leadID]
	if !ok {
		return nil, errors.New("lead unknown to CRM")
	}
	return &LeadStatus{Status: st}, nil
}

func (e *testEnv) clientWithLead(t *testing.T, agent *domain.Agent, status domain.ClientStatus, lead string) *domain.Client {
	t.Helper()
	c := e.createClient(t, agent, status)
	c.CRMLeadID = &lead
	require.NoError(t, e.store.Clients().UpdateClient(context.Background(), c))
	return c
}

func TestCRMSync_Run(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	a := env.createAgent(t, "+971500000001", nil)

	disbursing := env.clientWithLead(t, a, domain.StatusFOLReceived, "lead-1")
	env.clientWithLead(t, a, domain.StatusQualified, "lead-2")
	env.clientWithLead(t, a, domain.StatusContacted, "lead-3")
	env.clientWithLead(t, a, domain.StatusDeclined, "lead-4")
	env.createClient(t, a, domain.StatusSubmitted)

	sync := NewCRMSync(env.store, env.pipeline, fakeFetcher{
		"lead-1": domain.StatusDisbursed,
		"lead-2": domain.StatusQualified,
	}, zap.NewNop())

	report, err := sync.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncReport{Total: 3, Updated: 1, Unchanged: 1, Errors: 1}, *report)

	stored, err := env.store.Clients().GetClient(ctx, disbursing.ClientID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDisbursed, stored.Status)

	bonuses, err := env.store.Ledger().ListBonuses(ctx, domain.BonusKindNewAgent, a.AgentID)
	require.NoError(t, err)
	assert.Len(t, bonuses, 1)
}

func TestNudger_Run(t *testing.T) {
	env := newTestEnv(t, appconfig.Static{appconfig.KeyInactiveNudgeDays: "3"})
	ctx := context.Background()
	sender := &fakeSender{}
	n := NewNudger(env.store, env.config, sender, "https://partner.example", zap.NewNop())

	busy := env.createAgent(t, "+971500000001", nil)
	idle := env.createAgent(t, "+971500000002", nil)
	gone := env.createAgent(t, "+971500000003", nil)
	require.NoError(t, env.agents.Deactivate(ctx, gone))
	env.createClient(t, busy, domain.StatusSubmitted)

	sent, err := n.Run(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, idle.Phone, sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Body, idle.Name)

	// a week later everyone active is idle
	sent, err = n.Run(ctx, time.Now().AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}

func TestNudger_SendFailuresAreSkipped(t *testing.T) {
	env := newTestEnv(t, nil)
	n := NewNudger(env.store, env.config, &fakeSender{err: errors.New("ycloud 500")}, "", zap.NewNop())
	env.createAgent(t, "+971500000002", nil)

	sent, err := n.Run(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}
