package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settings struct {
	BaselineDays int    `json:"baselineDays"`
	Mode         string `json:"mode"`
}

func TestKey(t *testing.T) {
	assert.Equal(t, "assessment:adt:14:2024-01-01", Key("assessment", "adt", 14, "2024-01-01"))
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "settings", settings{14, "adt"}, 0))
	var got settings
	require.NoError(t, mc.Get(ctx, "settings", &got))
	assert.Equal(t, settings{14, "adt"}, got)

	require.NoError(t, mc.Delete(ctx, "settings"))
	assert.ErrorIs(t, mc.Get(ctx, "settings", &got), ErrCacheMiss)
}

func TestMemoryCache_ExpiryAndPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "assessment:adt:14:2024-01-01", 1, time.Nanosecond))
	require.NoError(t, mc.Set(ctx, "assessment:adt:14:2024-01-02", 2, time.Hour))
	require.NoError(t, mc.Set(ctx, "settings", 3, time.Hour))
	time.Sleep(time.Millisecond)

	var n int
	assert.ErrorIs(t, mc.Get(ctx, "assessment:adt:14:2024-01-01", &n), ErrCacheMiss)

	require.NoError(t, mc.DeleteByPattern(ctx, "assessment:*"))
	assert.ErrorIs(t, mc.Get(ctx, "assessment:adt:14:2024-01-02", &n), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "settings", &n))
	assert.Equal(t, 3, n)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Hour))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Hour))
	time.Sleep(time.Millisecond)

	var n int
	require.NoError(t, mc.Get(ctx, "a", &n)) // a is now fresher than b
	require.NoError(t, mc.Set(ctx, "c", 3, time.Hour))

	assert.ErrorIs(t, mc.Get(ctx, "b", &n), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &n))
	assert.NoError(t, mc.Get(ctx, "c", &n))
}

func TestMemoryCache_TryLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "sync", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = mc.TryLock(ctx, "sync", time.Minute)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "sync"))
	ok, _ = mc.TryLock(ctx, "sync", time.Minute)
	assert.True(t, ok)
}

func TestRedisCache_PrefixesKeys(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "tr")

	mock.ExpectSet("tr:settings", []byte(`{"baselineDays":14,"mode":"adt"}`), time.Minute).SetVal("OK")
	require.NoError(t, rc.Set(ctx, "settings", settings{14, "adt"}, time.Minute))

	mock.ExpectGet("tr:settings").SetVal(`{"baselineDays":10,"mode":"standard"}`)
	var got settings
	require.NoError(t, rc.Get(ctx, "settings", &got))
	assert.Equal(t, settings{10, "standard"}, got)

	mock.ExpectGet("tr:missing").RedisNil()
	assert.ErrorIs(t, rc.Get(ctx, "missing", &got), ErrCacheMiss)

	mock.ExpectScan(0, "tr:assessment:*", scanBatch).SetVal([]string{"tr:assessment:a"}, 0)
	mock.ExpectUnlink("tr:assessment:a").SetVal(1)
	require.NoError(t, rc.DeleteByPattern(ctx, "assessment:*"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisConfig_Options(t *testing.T) {
	cfg := defaultRedisConfig()
	for _, opt := range []RedisOption{
		WithRedisHost("redis"),
		WithRedisPort(0),
		WithRedisPool(4, 8, 0),
		WithRedisPrefix(""),
	} {
		opt(&cfg)
	}
	assert.Equal(t, "redis:6379", cfg.Addr())
	assert.Equal(t, 4, cfg.PoolSize)
	assert.Equal(t, 4, cfg.MinIdleConns)
	assert.Equal(t, 30*time.Second, cfg.PoolTimeout)
	assert.Equal(t, "trirecover", cfg.Prefix)
}
