package recurrence

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flockhq/eventkit/event"
)

func testOccurrences(n int) []event.Occurrence {
	out := make([]event.Occurrence, n)
	base := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = event.Occurrence{
			SeriesID: "series-1",
			Start:    base.AddDate(0, 0, 7*i),
			End:      base.AddDate(0, 0, 7*i).Add(time.Hour),
		}
	}
	return out
}

func TestResultCacheGetSet(t *testing.T) {
	cache := NewResultCache(DefaultCacheConfig)
	defer cache.Close()

	_, ok := cache.get("missing")
	assert.False(t, ok)

	stored := testOccurrences(3)
	cache.set("key", stored)

	got, ok := cache.get("key")
	require.True(t, ok)
	assert.Equal(t, stored, got)

	t.Run("callers cannot mutate cached results", func(t *testing.T) {
		got[0].SeriesID = "tampered"
		again, ok := cache.get("key")
		require.True(t, ok)
		assert.Equal(t, "series-1", again[0].SeriesID)
	})

	t.Run("empty results are cached too", func(t *testing.T) {
		cache.set("empty", nil)
		got, ok := cache.get("empty")
		require.True(t, ok)
		assert.Empty(t, got)
	})
}

func TestResultCacheExpiry(t *testing.T) {
	cache := NewResultCache(CacheConfig{
		TTL:             10 * time.Millisecond,
		MaxEntries:      10,
		CleanupInterval: time.Hour,
	})
	defer cache.Close()

	cache.set("key", testOccurrences(1))
	_, ok := cache.get("key")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = cache.get("key")
	assert.False(t, ok)
}

func TestResultCacheTrimsOverLimit(t *testing.T) {
	cache := NewResultCache(CacheConfig{
		TTL:             time.Hour,
		MaxEntries:      5,
		CleanupInterval: time.Hour,
	})
	defer cache.Close()

	for i := 0; i < 8; i++ {
		cache.set(fmt.Sprintf("key-%d", i), testOccurrences(1))
	}

	stats := cache.Stats()
	assert.LessOrEqual(t, stats.TotalEntries, 5)
	assert.Zero(t, stats.ExpiredEntries)
}

func TestResultCacheZeroConfig(t *testing.T) {
	// An enabled cache with an unset config must not hand the sweep
	// ticker a zero interval.
	cache := NewResultCache(CacheConfig{})
	defer cache.Close()

	cache.set("key", testOccurrences(1))
	got, ok := cache.get("key")
	require.True(t, ok)
	assert.Len(t, got, 1)

	engine := NewEngineWithConfig(EngineConfig{CacheEnabled: true, MaxOccurrences: 10})
	defer engine.Close()
	stats := engine.cache.Stats()
	assert.Zero(t, stats.TotalEntries)
}

func TestResultCacheClose(t *testing.T) {
	cache := NewResultCache(DefaultCacheConfig)
	cache.set("key", testOccurrences(1))

	cache.Close()
	cache.Close() // safe to call again

	_, ok := cache.get("key")
	assert.False(t, ok)
}

func TestCacheKeyCoversInputs(t *testing.T) {
	ev := event.Event{
		ID:    "series-1",
		Start: time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC),
	}
	w := event.MonthWindow(2024, time.January, time.UTC)
	base := cacheKey(ev, "FREQ=DAILY;INTERVAL=1", event.ExceptionSet{}, w)

	t.Run("rule text", func(t *testing.T) {
		assert.NotEqual(t, base, cacheKey(ev, "FREQ=DAILY;INTERVAL=2", event.ExceptionSet{}, w))
	})

	t.Run("exceptions", func(t *testing.T) {
		exceptions := event.NewExceptionSet(time.Date(2024, 1, 8, 14, 0, 0, 0, time.UTC))
		assert.NotEqual(t, base, cacheKey(ev, "FREQ=DAILY;INTERVAL=1", exceptions, w))
	})

	t.Run("window", func(t *testing.T) {
		other := event.MonthWindow(2024, time.February, time.UTC)
		assert.NotEqual(t, base, cacheKey(ev, "FREQ=DAILY;INTERVAL=1", event.ExceptionSet{}, other))
	})

	t.Run("anchor start", func(t *testing.T) {
		moved := ev
		moved.Start = moved.Start.Add(time.Hour)
		assert.NotEqual(t, base, cacheKey(moved, "FREQ=DAILY;INTERVAL=1", event.ExceptionSet{}, w))
	})
}
