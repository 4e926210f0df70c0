package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExpiry(t *testing.T) {
	c := NewMemory(time.Hour)
	defer c.Close()
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	require.NoError(t, c.Set("a", []byte("body"), time.Minute))
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("body"), got)

	clock = clock.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestMemoryCleanup(t *testing.T) {
	c := NewMemory(time.Hour)
	defer c.Close()
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	require.NoError(t, c.Set("old", []byte("x"), time.Second))
	require.NoError(t, c.Set("new", []byte("y"), time.Hour))
	clock = clock.Add(time.Minute)
	c.cleanup()
	assert.Equal(t, 1, c.Len())
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestBadgerRoundTrip(t *testing.T) {
	b, err := OpenBadger(filepath.Join(t.TempDir(), "cache"), nil)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Set(Key("https://example.com/rss"), []byte("<rss/>"), time.Hour))
	got, ok := b.Get(Key("https://example.com/rss"))
	require.True(t, ok)
	assert.Equal(t, []byte("<rss/>"), got)

	_, ok = b.Get(Key("https://example.com/other"))
	assert.False(t, ok)
}

func TestBadgerInMemory(t *testing.T) {
	b, err := OpenBadger("", nil)
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.Set("k", []byte("v"), 0))
	got, ok := b.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestOpenDrivers(t *testing.T) {
	c, err := Open("none", "", nil)
	require.NoError(t, err)
	_, ok := c.Get("x")
	assert.False(t, ok)

	c, err = Open("memory", "", nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)
	c.Close()

	_, err = Open("memcached", "", nil)
	assert.EqualError(t, err, `unknown cache driver "memcached"`)
}

func TestRedisUnreachable(t *testing.T) {
	_, err := Open("redis", "127.0.0.1:1", nil)
	assert.ErrorContains(t, err, "connect to redis 127.0.0.1:1")
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		t.Skip("REDIS_URL not set")
	}
	r, err := OpenRedis(addr, nil)
	require.NoError(t, err)
	defer r.Close()

	key := Key("https://example.com/feed-" + t.Name())
	require.NoError(t, r.Set(key, []byte("<rss/>"), time.Minute))
	got, ok := r.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte("<rss/>"), got)

	_, ok = r.Get(Key("https://example.com/missing"))
	assert.False(t, ok)
}

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key("https://a"), Key("https://a"))
	assert.NotEqual(t, Key("https://a"), Key("https://b"))
}
