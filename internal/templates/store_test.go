package templates

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, "csv_mapping_templates")

	data, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	r := NewRegistry(ctx, store)
	require.NoError(t, r.Save(ctx, "klaviyo", klaviyo()))

	raw, err := mr.Get("csv_mapping_templates")
	require.NoError(t, err)
	assert.Contains(t, raw, `"Recipients"`)

	shared := NewRegistry(ctx, NewRedisStore(client, "csv_mapping_templates"))
	got, ok := shared.Get("klaviyo")
	require.True(t, ok)
	assert.Equal(t, klaviyo(), got)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("csv_mapping_templates", "[]garbage"))

	r := NewRegistry(ctx, NewRedisStore(client, "csv_mapping_templates"))
	assert.Len(t, r.List(), 5)
}
