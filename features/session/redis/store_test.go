package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesAndDefaults(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: "localhost:0"})
	t.Cleanup(func() { _ = client.Close() })

	s, err := New(Options{Client: client})
	require.NoError(t, err)
	assert.Equal(t, defaultKeyPrefix, s.prefix)
	assert.Equal(t, defaultTTL, s.ttl)
	assert.Equal(t, sessionStoreName, s.Name())

	s, err = New(Options{Client: client, KeyPrefix: "x:", TTL: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, "x:run-1", s.key("run-1"))
	assert.Equal(t, time.Hour, s.ttl)
}

func TestStoreRejectsInvalidArguments(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:0"})
	t.Cleanup(func() { _ = client.Close() })
	s, err := New(Options{Client: client})
	require.NoError(t, err)

	ctx := context.Background()
	assert.Error(t, s.Save(ctx, nil))
	assert.Error(t, s.Save(ctx, &Run{}))
	_, err = s.Load(ctx, "")
	assert.Error(t, err)
	assert.Error(t, s.Delete(ctx, ""))
}
