package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/appconfig"
	"github.com/rivoaiteam/rivo-partners/internal/config"
	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
	"github.com/rivoaiteam/rivo-partners/internal/service"
)

func memoryConfig(redisAddr string) *config.Config {
	cfg := config.Load()
	cfg.DBEnabled = false
	cfg.Redis.Addr = redisAddr
	cfg.YCloud.APIKey = ""
	cfg.Facts.Enabled = true
	cfg.MQTT.Enabled = false
	cfg.Telegram.Token = ""
	cfg.CRM.BaseURL = ""
	return cfg
}

func TestNew_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := New(context.Background(), memoryConfig(mr.Addr()), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &repository.MemoryStore{}, a.Store)
	assert.IsType(t, &appconfig.CachedSource{}, a.Config)
	require.NotNil(t, a.Redis)
	// log, whatsapp, stream
	assert.Len(t, a.Dispatcher, 3)
	assert.Nil(t, a.CRMSync())
	assert.ErrorIs(t, a.RequireDB(), ErrDatabaseRequired)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_RedisDown(t *testing.T) {
	a, err := New(context.Background(), memoryConfig("127.0.0.1:1"), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	assert.IsType(t, &appconfig.Store{}, a.Config)
	assert.Len(t, a.Dispatcher, 2)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCRMSync_Configured(t *testing.T) {
	cfg := memoryConfig("127.0.0.1:1")
	cfg.CRM.BaseURL = "http://crm.invalid"
	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	assert.NotNil(t, a.CRMSync())
}

func TestPipeline_UsesCurrentScheduleDespiteCache(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := New(context.Background(), memoryConfig(mr.Addr()), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()

	require.NoError(t, a.Config.Set(ctx, appconfig.KeyNewAgentBonuses, "[1000, 750, 500]", ""))
	// fills the Redis entry
	_, ok, err := a.Config.Value(ctx, appconfig.KeyNewAgentBonuses)
	require.NoError(t, err)
	require.True(t, ok)

	agent := &domain.Agent{Name: "Agent", Phone: "+971500000002", IsActive: true}
	require.NoError(t, a.Store.Agents().CreateAgent(ctx, agent))
	disburse := func(phone string) *service.ProcessResult {
		c := &domain.Client{ClientName: "Client", ClientPhone: phone, Status: domain.StatusFOLReceived, SourceAgentID: &agent.AgentID}
		require.NoError(t, a.Store.Clients().CreateClient(ctx, c))
		res, err := a.Pipeline.Process(ctx, service.StatusUpdate{Ref: domain.ClientByID(c.ClientID), NewStatus: domain.StatusDisbursed})
		require.NoError(t, err)
		return res
	}

	res := disburse("+971500000101")
	require.NotNil(t, res.Allocation.NewAgentBonus)
	assert.Equal(t, 1, res.Allocation.NewAgentBonus.DealNumber)

	// shortened in app_config without going through the cache
	require.NoError(t, a.Store.Config().UpsertConfig(ctx, domain.ConfigEntry{Key: appconfig.KeyNewAgentBonuses, Value: "[1000]"}))

	res = disburse("+971500000102")
	assert.Nil(t, res.Allocation.NewAgentBonus)

	rows, err := a.Store.Ledger().ListBonuses(ctx, domain.BonusKindNewAgent, agent.AgentID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
