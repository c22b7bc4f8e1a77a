package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/marketrec/core"
)

func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	_, err := s.Get(ctx, "missing")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 10))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(11 * time.Second)
	_, err = s.Get(ctx, "k")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.Set(ctx, "forever", []byte("x")))
	require.NoError(t, s.Delete(ctx, "forever"))
	_, err = s.Get(ctx, "forever")
	assert.True(t, core.IsStoreNotFound(err))

	assert.NoError(t, s.Close())
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := setupMiniRedis(t)

	s, err := NewRedisStore(ctx, mr.Addr(), "", 0)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "redis", s.Name())

	_, err = s.Get(ctx, "missing")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 60))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	mr.FastForward(2 * time.Minute)
	_, err = s.Get(ctx, "k")
	assert.True(t, core.IsStoreNotFound(err))
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr := setupMiniRedis(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(context.Background(), addr, "", 0)
	require.Error(t, err)
	assert.True(t, core.IsUnavailable(err))
}

type result struct {
	Items []core.ScoredID `json:"items"`
}

func TestGetOrCompute(t *testing.T) {
	ctx := context.Background()
	mr := setupMiniRedis(t)
	s, err := NewRedisStore(ctx, mr.Addr(), "", 0)
	require.NoError(t, err)
	defer s.Close()

	cache := NewResultCache(s, nil)
	calls := 0
	compute := func(context.Context) (result, error) {
		calls++
		return result{Items: []core.ScoredID{{ID: "7", Score: 0.5}, {ID: "sku-1", Score: 0.25}}}, nil
	}

	args := []string{`[{"userId":1}]`, "7"}
	first, err := GetOrCompute(ctx, cache, "recommend", args, compute)
	require.NoError(t, err)
	second, err := GetOrCompute(ctx, cache, "recommend", args, compute)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, time.Hour, mr.TTL(cache.Key("recommend", args...)))

	// 参数不同不命中
	_, err = GetOrCompute(ctx, cache, "recommend", []string{"other"}, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	// 未配置 TTL 的命令不缓存
	_, err = GetOrCompute(ctx, cache, "similar_users", args, compute)
	require.NoError(t, err)
	_, err = GetOrCompute(ctx, cache, "similar_users", args, compute)
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestGetOrCompute_FailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	mr := setupMiniRedis(t)
	s, err := NewRedisStore(ctx, mr.Addr(), "", 0)
	require.NoError(t, err)

	cache := NewResultCache(s, map[string]time.Duration{"popular": time.Minute})
	require.NoError(t, mr.Set(cache.Key("popular", "a"), "not json"))

	out, err := GetOrCompute(ctx, cache, "popular", []string{"a"}, func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, out)

	mr.Close()
	out, err = GetOrCompute(ctx, cache, "popular", []string{"b"}, func(context.Context) (int, error) { return 4, nil })
	require.NoError(t, err)
	assert.Equal(t, 4, out)

	boom := errors.New("boom")
	_, err = GetOrCompute(ctx, (*ResultCache)(nil), "popular", nil, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
}

func TestResultCache_Key(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	c := NewResultCache(s, nil)
	assert.Equal(t, c.Key("popular", "a", "b"), c.Key("popular", "a", "b"))
	assert.NotEqual(t, c.Key("popular", "ab"), c.Key("popular", "a", "b"))
	assert.NotEqual(t, c.Key("popular", "a"), c.Key("recommend", "a"))
	assert.Contains(t, c.Key("popular"), DefaultKeyPrefix+"popular:")
}
