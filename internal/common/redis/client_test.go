package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivoaiteam/rivo-partners/internal/common/config"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.RedisConfig{Addr: mr.Addr(), PoolSize: 4, DialTimeout: time.Second, ReadTimeout: time.Second}

	client, err := Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 4, client.Options().PoolSize)
	assert.Equal(t, time.Second, client.Options().WriteTimeout)
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := &config.RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}

	client, err := Connect(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
