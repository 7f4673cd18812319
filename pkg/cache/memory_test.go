package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMemory(t *testing.T, opts ...MemoryOption) (*MemoryCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(append([]MemoryOption{WithMemoryClock(clock.Now)}, opts...)...)
	t.Cleanup(func() { _ = mc.Close() })
	return mc, clock
}

func TestMemoryCacheExpiration(t *testing.T) {
	ctx := context.Background()
	mc, clock := newTestMemory(t)

	require.NoError(t, mc.Set(ctx, "live", []byte("a"), 10*time.Second))
	require.NoError(t, mc.Set(ctx, "sealed", []byte("b"), NoExpiration))

	clock.Advance(11 * time.Second)

	_, err := mc.Get(ctx, "live")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	clock.Advance(365 * 24 * time.Hour)
	got, err := mc.Get(ctx, "sealed")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestMemory(t)

	buf := []byte("abc")
	require.NoError(t, mc.Set(ctx, "k", buf, 0))
	buf[0] = 'z'

	got, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestMemoryCacheSetNX(t *testing.T) {
	ctx := context.Background()
	mc, clock := newTestMemory(t)

	ok, err := mc.SetNX(ctx, "k", []byte("1"), time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.SetNX(ctx, "k", []byte("2"), time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(2 * time.Second)
	ok, err = mc.SetNX(ctx, "k", []byte("3"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "3", string(got))
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestMemory(t)

	for _, k := range []string{
		"chunks:live:7:period_1m:100:3",
		"chunks:live:7:period_1m:100:4",
		"chunks:live:7:period_5m:100:1",
		"chunks:sealed:7:period_1m:100:2",
	} {
		require.NoError(t, mc.Set(ctx, k, []byte("x"), 0))
	}

	require.NoError(t, mc.DeleteByPattern(ctx, "chunks:live:7:period_1m:*"))

	ok, err := mc.Exists(ctx, "chunks:live:7:period_1m:100:3", "chunks:live:7:period_1m:100:4")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = mc.Exists(ctx, "chunks:live:7:period_5m:100:1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.Exists(ctx, "chunks:sealed:7:period_1m:100:2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc, clock := newTestMemory(t, WithMemoryMaxSize(2))

	require.NoError(t, mc.Set(ctx, "a", []byte("a"), 0))
	clock.Advance(time.Second)
	require.NoError(t, mc.Set(ctx, "b", []byte("b"), 0))
	clock.Advance(time.Second)
	_, err := mc.Get(ctx, "a")
	require.NoError(t, err)
	clock.Advance(time.Second)
	require.NoError(t, mc.Set(ctx, "c", []byte("c"), 0))

	assert.Equal(t, 2, mc.Len())
	_, err = mc.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = mc.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern, key string
		want         bool
	}{
		{"a:*", "a:b:c", true},
		{"a:*", "b:a", false},
		{"a:*:c", "a:b:c", true},
		{"a:*:c", "a:b:d", false},
		{"exact", "exact", true},
		{"exact", "exactly", false},
		{"*", "", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, matchPattern(tc.pattern, tc.key), "%s vs %s", tc.pattern, tc.key)
	}
}

func TestJSONHelpersUseNumber(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestMemory(t)

	require.NoError(t, SetJSON(ctx, mc, "k", map[string]interface{}{"n": int64(9007199254740993)}, 0))
	got, err := GetJSON[map[string]interface{}](ctx, mc, "k")
	require.NoError(t, err)
	assert.Equal(t, "9007199254740993", got["n"].(interface{ String() string }).String())
}

func TestGetJSONReportsDecodeErrors(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestMemory(t)

	require.NoError(t, mc.Set(ctx, "k", []byte("{broken"), 0))
	_, err := GetJSON[map[string]interface{}](ctx, mc, "k")
	assert.ErrorIs(t, err, ErrDecode)

	_, err = GetJSON[map[string]interface{}](ctx, mc, "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.False(t, errors.Is(err, ErrDecode))
}

func TestSetNXJSONKeepsFirstValue(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestMemory(t)

	created, err := SetNXJSON(ctx, mc, "k", map[string]int{"v": 1}, NoExpiration)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = SetNXJSON(ctx, mc, "k", map[string]int{"v": 2}, NoExpiration)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := GetJSON[map[string]int](ctx, mc, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, got["v"])

	_, err = SetNXJSON(ctx, mc, "bad", make(chan int), NoExpiration)
	assert.Error(t, err)
}
