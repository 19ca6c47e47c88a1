package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "rivo_partner", cfg.Database.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "rivo:facts", cfg.Facts.Stream)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "https://api.ycloud.com", cfg.YCloud.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.CRM.Timeout)
	assert.Equal(t, time.Hour, cfg.ConfigCacheTTL)
	assert.Equal(t, 60*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, 2*time.Second, cfg.Redis.DialTimeout)
	assert.Equal(t, "rivo:", cfg.Redis.KeyPrefix)
}

func TestLoad_FromEnv(t *testing.T) {
	os.Clearenv()
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://partner.rivo.ae, http://localhost:5173")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("HTTP_SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("REDIS_KEY_PREFIX", "rivo-staging:")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://partner.rivo.ae", "http://localhost:5173"}, cfg.HTTP.AllowedOrigins)
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, int64(-100123), cfg.Telegram.ChatID)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "rivo-staging:", cfg.Redis.KeyPrefix)
}
