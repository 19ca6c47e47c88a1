package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "rivo", Password: "secret", Database: "rivo", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=rivo password=secret dbname=rivo sslmode=disable", c.GetDSN())
}

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("PG_HOST", "pg.internal")
	t.Setenv("PG_PORT", "6543")
	t.Setenv("PG_NAME", "partners")
	t.Setenv("PG_MAX_CONNS", "20")

	c := DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres"}
	c.LoadFromEnv("PG")

	assert.Equal(t, "pg.internal", c.Host)
	assert.Equal(t, 6543, c.Port)
	assert.Equal(t, "postgres", c.User)
	assert.Equal(t, "partners", c.Database)
	assert.Equal(t, 20, c.MaxConns)
}

func TestRedisAndMQTTConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("CACHE_ADDR", "redis:6379")
	t.Setenv("CACHE_DB", "3")
	t.Setenv("CACHE_POOL_SIZE", "16")
	t.Setenv("CACHE_KEY_PREFIX", "rivo-test:")
	t.Setenv("BUS_BROKER", "tcp://mqtt:1883")
	t.Setenv("BUS_QOS", "1")

	r := RedisConfig{Addr: "localhost:6379"}
	r.LoadFromEnv("CACHE")
	assert.Equal(t, "redis:6379", r.Addr)
	assert.Equal(t, 3, r.DB)
	assert.Equal(t, 16, r.PoolSize)
	assert.Equal(t, "rivo-test:", r.KeyPrefix)

	m := MQTTConfig{ClientID: "rivo"}
	m.LoadFromEnv("BUS")
	assert.Equal(t, "tcp://mqtt:1883", m.Broker)
	assert.Equal(t, "rivo", m.ClientID)
	assert.Equal(t, byte(1), m.QoS)
}
