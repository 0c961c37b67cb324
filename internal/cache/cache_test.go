package cache

import (
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, maxSize int) (*Cache, *fakeClock) {
	t.Helper()
	c, err := New(Config{MaxSize: maxSize, DefaultTTL: time.Hour, SweepInterval: -1}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.now = clock.Now
	return c, clock
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t, 10)

	require.NoError(t, c.Set("key1", "value1", 0, nil))

	val, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, "value1", val)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_NegativeTTL(t *testing.T) {
	c, _ := newTestCache(t, 10)
	assert.ErrorIs(t, c.Set("key", 1, -time.Second, nil), ErrInvalidTTL)
}

func TestCache_Expiration(t *testing.T) {
	c, clock := newTestCache(t, 10)

	require.NoError(t, c.Set("key1", "value1", time.Second, nil))

	clock.Advance(time.Second)
	_, ok := c.Get("key1")
	assert.True(t, ok, "entry is live at exactly its ttl")

	clock.Advance(100 * time.Millisecond)
	_, ok = c.Get("key1")
	assert.False(t, ok, "entry should be expired after ttl")
	assert.False(t, c.Has("key1"))
	assert.Equal(t, 0, c.Len())
}

func TestCache_SweepRemovesExpired(t *testing.T) {
	c, clock := newTestCache(t, 10)

	require.NoError(t, c.Set("short", 1, time.Second, nil))
	require.NoError(t, c.Set("long", 2, time.Hour, nil))

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Has("long"))

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Expirations)
	assert.Equal(t, uint64(1), stats.Sweeps)
}

func TestCache_EvictsEarliestInserted(t *testing.T) {
	c, clock := newTestCache(t, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(fmt.Sprintf("key%d", i), i, 0, nil))
		clock.Advance(time.Millisecond)
	}

	require.NoError(t, c.Set("key3", 3, 0, nil))

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Has("key0"), "earliest entry should be evicted")
	assert.True(t, c.Has("key1"))
	assert.True(t, c.Has("key3"))
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestCache_EvictionTieBreaksOnInsertionOrder(t *testing.T) {
	c, _ := newTestCache(t, 2)

	require.NoError(t, c.Set("a", 1, 0, nil))
	require.NoError(t, c.Set("b", 2, 0, nil))
	require.NoError(t, c.Set("c", 3, 0, nil))

	assert.False(t, c.Has("a"))
	assert.True(t, c.Has("b"))
	assert.True(t, c.Has("c"))
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	c, clock := newTestCache(t, 2)

	require.NoError(t, c.Set("a", 1, time.Second, nil))
	require.NoError(t, c.Set("b", 2, 0, nil))

	clock.Advance(900 * time.Millisecond)
	require.NoError(t, c.Set("a", 10, time.Second, nil))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, uint64(0), c.Stats().Evictions)

	// The overwrite restarted the lifetime of "a".
	clock.Advance(900 * time.Millisecond)
	val, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, val)
}

func TestCache_GetByPattern(t *testing.T) {
	c, clock := newTestCache(t, 10)

	require.NoError(t, c.Set("parser:a.mkv", 1, 0, map[string]any{"class": "parser"}))
	require.NoError(t, c.Set("absolute:29:a.mkv", true, 0, nil))
	require.NoError(t, c.Set("parser:b.mkv", 2, time.Second, nil))

	entries := c.GetByPattern(regexp.MustCompile(`^parser:`))
	require.Len(t, entries, 2)
	assert.Equal(t, "parser:a.mkv", entries[0].Key)
	assert.Equal(t, "parser", entries[0].Metadata["class"])

	clock.Advance(2 * time.Second)
	entries = c.GetByPattern(regexp.MustCompile(`^parser:`))
	require.Len(t, entries, 1)
	assert.Equal(t, "parser:a.mkv", entries[0].Key)
}

func TestCache_UpdateTTL(t *testing.T) {
	c, clock := newTestCache(t, 10)

	require.NoError(t, c.Set("key", 1, time.Second, nil))
	clock.Advance(900 * time.Millisecond)

	assert.True(t, c.UpdateTTL("key", time.Minute))
	clock.Advance(30 * time.Second)
	assert.True(t, c.Has("key"))

	assert.False(t, c.UpdateTTL("missing", time.Minute))
	assert.False(t, c.UpdateTTL("key", 0))
}

func TestCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestCache(t, 10)

	require.NoError(t, c.Set("a", 1, 0, nil))
	require.NoError(t, c.Set("b", 2, 0, nil))

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, 1, c.Clear())
	assert.Equal(t, 0, c.Len())
}

func TestCache_StatsHitRate(t *testing.T) {
	c, _ := newTestCache(t, 10)

	require.NoError(t, c.Set("a", 1, 0, nil))
	c.Get("a")
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, uint64(3), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 0.75, stats.HitRate, 1e-9)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 10, stats.MaxSize)

	entries := c.GetByPattern(regexp.MustCompile(`^a$`))
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].AccessCount)
}

func TestGetAs(t *testing.T) {
	c, _ := newTestCache(t, 10)

	require.NoError(t, c.Set("n", 42, 0, nil))

	n, ok := GetAs[int](c, "n")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = GetAs[string](c, "n")
	assert.False(t, ok)
}

func TestCache_ScheduledSweep(t *testing.T) {
	c, err := New(Config{MaxSize: 10, SweepInterval: 20 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set("short", 1, time.Millisecond, nil))

	assert.Eventually(t, func() bool {
		return c.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, c.Stats().Sweeps, uint64(1))
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c, err := New(DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(t, 50)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d-%d", n, j%20)
				_ = c.Set(key, j, 0, nil)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
