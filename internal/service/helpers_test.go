package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/appconfig"
	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, fact domain.Fact) error {
	args := m.Called(ctx, fact)
	return args.Error(0)
}

// recordingDispatcher keeps every fact; safe for concurrent use.
type recordingDispatcher struct {
	mu    sync.Mutex
	facts []domain.Fact
}

func (r *recordingDispatcher) Dispatch(_ context.Context, fact domain.Fact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.facts = append(r.facts, fact)
	return nil
}

func (r *recordingDispatcher) all() []domain.Fact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Fact(nil), r.facts...)
}

type sentMessage struct {
	To   string
	Body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendText(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{To: to, Body: body})
	return nil
}

type testEnv struct {
	store      *repository.MemoryStore
	config     appconfig.Static
	dispatcher *recordingDispatcher
	pipeline   *StatusPipeline
	agents     *AgentService
}

func newTestEnv(t *testing.T, config appconfig.Static) *testEnv {
	t.Helper()
	if config == nil {
		config = appconfig.Static{}
	}
	logger := zap.NewNop()
	store := repository.NewMemoryStore()
	d := &recordingDispatcher{}
	return &testEnv{
		store:      store,
		config:     config,
		dispatcher: d,
		pipeline: NewStatusPipeline(store,
			NewStatusTracker(config, logger),
			NewBonusEngine(config, logger),
			d, logger),
		agents: NewAgentService(store, config, d, logger),
	}
}

func (e *testEnv) createAgent(t *testing.T, phone string, referredBy *domain.Agent) *domain.Agent {
	t.Helper()
	a := &domain.Agent{Name: "Agent " + phone, Phone: phone, IsActive: true}
	if referredBy != nil {
		id := referredBy.AgentID
		a.ReferredBy = &id
	}
	require.NoError(t, e.store.Agents().CreateAgent(context.Background(), a))
	return a
}

func (e *testEnv) createClient(t *testing.T, agent *domain.Agent, status domain.ClientStatus) *domain.Client {
	t.Helper()
	id := agent.AgentID
	c := &domain.Client{
		ClientName:             "Client",
		ClientPhone:            "+97150" + agent.Phone[len(agent.Phone)-3:] + randomSuffix(t),
		ExpectedMortgageAmount: decimal.NewFromInt(1000000),
		Status:                 status,
		SourceAgentID:          &id,
	}
	require.NoError(t, e.store.Clients().CreateClient(context.Background(), c))
	return c
}

func (e *testEnv) disburse(t *testing.T, c *domain.Client) *ProcessResult {
	t.Helper()
	res, err := e.pipeline.Process(context.Background(), StatusUpdate{Ref: domain.ClientByID(c.ClientID), NewStatus: domain.StatusDisbursed})
	require.NoError(t, err)
	return res
}

func randomSuffix(t *testing.T) string {
	t.Helper()
	code, err := randomCode()
	require.NoError(t, err)
	return code
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
