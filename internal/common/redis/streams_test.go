package redis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestPublishJSONToStream(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	id, err := PublishJSONToStream(ctx, client, "rivo:facts", 0, "bonus_awarded", map[string]any{"deal_number": 1})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := ReadRange(ctx, client, "rivo:facts", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "bonus_awarded", msgs[0].Values["type"])

	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &data))
	assert.Equal(t, float64(1), data["deal_number"])
}

func TestPublishToStream_Scalars(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	_, err := PublishToStream(ctx, client, "s", 0, map[string]interface{}{
		"n":    42,
		"ok":   true,
		"name": "rivo",
	})
	require.NoError(t, err)

	msgs, err := ReadRange(ctx, client, "s", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "42", msgs[0].Values["n"])
	assert.Equal(t, "true", msgs[0].Values["ok"])
	assert.Equal(t, "rivo", msgs[0].Values["name"])
}

func TestReadRange_EmptyStream(t *testing.T) {
	client := setupTestRedis(t)

	msgs, err := ReadRange(context.Background(), client, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
