package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/schoolwear/internal/config"
	"github.com/utafrali/schoolwear/internal/repository/memory"
	redisrepo "github.com/utafrali/schoolwear/internal/repository/redis"
	"github.com/utafrali/schoolwear/pkg/logger"
)

func TestOpenStorage_Memory(t *testing.T) {
	cfg := &config.Config{StorageDriver: config.DriverMemory}

	kv, closeFn, err := openStorage(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &memory.KeyValueStore{}, kv)
}

func TestOpenStorage_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{StorageDriver: config.DriverRedis, RedisAddr: mr.Addr(), StorageNamespace: "sf"}

	kv, closeFn, err := openStorage(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &redisrepo.KeyValueStore{}, kv)
	require.NoError(t, kv.Set(context.Background(), "auth_token", "abc"))
	assert.True(t, mr.Exists("sf:auth_token"))
}

func TestOpenStorage_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	cfg := &config.Config{StorageDriver: config.DriverRedis, RedisAddr: addr}

	_, _, err := openStorage(context.Background(), cfg, logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestNewApp_MemoryDriverRunsAndShutsDown(t *testing.T) {
	t.Setenv("STOREFRONT_HTTP_PORT", "18080")
	cfg, err := config.Load()
	require.NoError(t, err)

	application, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, application.Run(ctx))
}
