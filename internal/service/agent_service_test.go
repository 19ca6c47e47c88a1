package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivoaiteam/rivo-partners/internal/appconfig"
	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

func TestAgentService_VerifyCreatesAndLinksReferrer(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	r := env.createAgent(t, "+971500000001", nil)

	agent, created, err := env.agents.Verify(ctx, domain.VerificationEvent{
		Phone:        "971500000002",
		ProfileName:  "Sara",
		ReferralCode: r.AgentCode,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "+971500000002", agent.Phone)
	assert.Equal(t, "Sara", agent.Name)
	assert.NotEmpty(t, agent.DeviceToken)
	require.NotNil(t, agent.ReferredBy)
	assert.Equal(t, r.AgentID, *agent.ReferredBy)
	assert.Regexp(t, `^RIVO-[A-Z0-9]{4}$`, agent.AgentCode)

	assert.Contains(t, env.dispatcher.all(), domain.AgentSignedUp{ReferrerID: r.AgentID, AgentID: agent.AgentID, AgentName: "Sara"})

	again, created, err := env.agents.Verify(ctx, domain.VerificationEvent{Phone: "+971500000002"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, agent.AgentID, again.AgentID)
	assert.NotEqual(t, agent.DeviceToken, again.DeviceToken)

	_, err = env.agents.Authenticate(ctx, agent.DeviceToken)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	authed, err := env.agents.Authenticate(ctx, again.DeviceToken)
	require.NoError(t, err)
	assert.Equal(t, agent.AgentID, authed.AgentID)
}

func TestAgentService_VerifyIgnoresUnknownCode(t *testing.T) {
	env := newTestEnv(t, nil)
	agent, created, err := env.agents.Verify(context.Background(), domain.VerificationEvent{Phone: "+971500000002", ReferralCode: "RIVO-ZZZZ"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, agent.ReferredBy)
	assert.Empty(t, env.dispatcher.all())
}

func TestAgentService_VerifyReactivatesDeletedAgent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	r := env.createAgent(t, "+971500000001", nil)
	a := env.createAgent(t, "+971500000002", r)
	a.Email = "old@example.com"
	a.HasCompletedFirstAction = true
	require.NoError(t, env.store.Agents().UpdateAgent(ctx, a))
	require.NoError(t, env.agents.Deactivate(ctx, a))

	_, err := env.agents.Authenticate(ctx, a.DeviceToken)
	assert.Error(t, err)

	back, created, err := env.agents.Verify(ctx, domain.VerificationEvent{Phone: a.Phone, ProfileName: "New Name"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, back.IsActive)
	assert.Equal(t, "New Name", back.Name)
	assert.Empty(t, back.Email)
	assert.False(t, back.HasCompletedFirstAction)
	assert.Nil(t, back.ReferredBy)
	assert.Equal(t, a.AgentCode, back.AgentCode)
}

func TestAgentService_SetReferrerRejectsCyclesAndRelinks(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	a := env.createAgent(t, "+971500000001", nil)
	b := env.createAgent(t, "+971500000002", a)
	c := env.createAgent(t, "+971500000003", b)

	_, err := env.agents.SetReferrer(ctx, a.AgentID, c.AgentID)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.agents.SetReferrer(ctx, a.AgentID, a.AgentID)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	linked, err := env.agents.SetReferrer(ctx, c.AgentID, a.AgentID)
	require.NoError(t, err)
	assert.False(t, linked)

	d := env.createAgent(t, "+971500000004", nil)
	linked, err = env.agents.SetReferrer(ctx, d.AgentID, c.AgentID)
	require.NoError(t, err)
	assert.True(t, linked)
}

func TestAgentService_ProfileLogoutAndReferralCode(t *testing.T) {
	env := newTestEnv(t, appconfig.Static{appconfig.KeyRivoJoinURL: "https://partner.example/join"})
	ctx := context.Background()
	agent, _, err := env.agents.Verify(ctx, domain.VerificationEvent{Phone: "+971500000002"})
	require.NoError(t, err)

	name, err := env.agents.ResolveReferralCode(ctx, agent.AgentCode)
	require.NoError(t, err)
	assert.Equal(t, "A Rivo Partner", name)

	email := "sara@example.com"
	agentName := "Sara"
	agentType := domain.AgentTypeREBroker
	updated, err := env.agents.UpdateProfile(ctx, agent, domain.ProfileUpdate{Name: &agentName, Email: &email, AgentType: &agentType})
	require.NoError(t, err)
	assert.True(t, updated.IsProfileComplete)

	name, err = env.agents.ResolveReferralCode(ctx, " "+agent.AgentCode+" ")
	require.NoError(t, err)
	assert.Equal(t, "Sara", name)

	_, err = env.agents.ResolveReferralCode(ctx, "RIVO-NONE")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	assert.Equal(t, "https://partner.example/join?ref="+agent.AgentCode, env.agents.ReferralLink(ctx, agent))

	token := agent.DeviceToken
	require.NoError(t, env.agents.Logout(ctx, agent))
	_, err = env.agents.Authenticate(ctx, token)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestAgentService_NetworkBonusesEarnings(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	r := env.createAgent(t, "+971500000001", nil)
	a := env.createAgent(t, "+971500000002", r)
	b := env.createAgent(t, "+971500000003", r)

	env.disburse(t, env.createClient(t, a, domain.StatusFOLReceived))
	env.disburse(t, env.createClient(t, a, domain.StatusFOLReceived))
	env.disburse(t, env.createClient(t, b, domain.StatusFOLReceived))

	own := env.createClient(t, r, domain.StatusFOLReceived)
	amount := dec("20000")
	_, err := env.pipeline.Process(ctx, StatusUpdate{Ref: domain.ClientByID(own.ClientID), NewStatus: domain.StatusDisbursed, Amount: &amount})
	require.NoError(t, err)
	pre := env.createClient(t, r, domain.StatusSubmitted)
	_, err = env.pipeline.Process(ctx, StatusUpdate{Ref: domain.ClientByID(pre.ClientID), NewStatus: domain.StatusPreapproved, Amount: &amount})
	require.NoError(t, err)

	net, err := env.agents.Network(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, r.AgentCode, net.AgentCode)
	require.Len(t, net.ReferredAgents, 2)
	byID := map[string]domain.NetworkAgent{}
	for _, n := range net.ReferredAgents {
		byID[n.AgentID] = n
	}
	assert.Equal(t, 2, byID[a.AgentID].DisbursedCount)
	assert.True(t, dec("1000").Equal(byID[a.AgentID].BonusEarned))
	assert.True(t, dec("1000").Equal(byID[b.AgentID].BonusEarned))
	assert.Equal(t, 3, net.BonusSummary.BonusesCount)
	assert.Equal(t, 3, net.BonusSummary.MaxBonuses)
	assert.True(t, net.BonusSummary.Completed)
	assert.True(t, dec("2000").Equal(net.BonusSummary.TotalEarned))

	bonuses, err := env.agents.Bonuses(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 1, bonuses.NewAgentBonuses.BonusesCount)
	assert.False(t, bonuses.NewAgentBonuses.Completed)

	earn, err := env.agents.Earnings(ctx, r, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, earn.DisbursedCount)
	assert.Equal(t, 3, earn.NetworkDisbursalCount)
	// 20000 commission + 2000 referral + 1000 own new-agent bonus
	assert.True(t, dec("23000").Equal(earn.TotalEarned), earn.TotalEarned.String())
	assert.True(t, dec("23000").Equal(earn.ThisMonthEarned))
	// 20000 * 0.45 / 100
	assert.True(t, dec("90").Equal(earn.PendingAmount), earn.PendingAmount.String())
}
