package cache_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftllex/ftllex/core/canon"
	"github.com/ftllex/ftllex/core/diag"
	"github.com/ftllex/ftllex/runtime/cache"
)

func key(t *testing.T, id string) canon.Digest {
	t.Helper()
	k, err := cache.Key(id, "", "en", true, nil)
	require.NoError(t, err)
	return k
}

func TestPutGetRoundtrip(t *testing.T) {
	c, err := cache.New(16)
	require.NoError(t, err)

	k := key(t, "hello")
	errs := []*diag.Error{diag.NewError(diag.CodeVariableNotProvided, "variable $x was not provided")}
	require.NoError(t, c.Put(k, "Hello!", errs))

	entry, hit, err := c.Get(k)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "Hello!", entry.Formatted)
	require.Len(t, entry.Errors, 1)
	assert.Equal(t, diag.CodeVariableNotProvided, entry.Errors[0].Code())
	assert.False(t, entry.Checksum.IsZero())
}

func TestGetMiss(t *testing.T) {
	c, err := cache.New(16)
	require.NoError(t, err)

	_, hit, err := c.Get(key(t, "absent"))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestStatsIdentity(t *testing.T) {
	c, err := cache.New(16)
	require.NoError(t, err)

	k := key(t, "m")
	require.NoError(t, c.Put(k, "v", nil))

	gets := 0
	for i := 0; i < 7; i++ {
		_, _, _ = c.Get(k)
		gets++
	}
	for i := 0; i < 3; i++ {
		_, _, _ = c.Get(key(t, fmt.Sprintf("miss-%d", i)))
		gets++
	}

	stats := c.Stats()
	assert.Equal(t, uint64(7), stats.Hits)
	assert.Equal(t, uint64(3), stats.Misses)
	assert.Equal(t, uint64(gets), stats.Hits+stats.Misses, "hits+misses equals get calls")
	assert.Equal(t, 1, stats.Size)
}

func TestLRUBound(t *testing.T) {
	const size = 8
	c, err := cache.New(size)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.NoError(t, c.Put(key(t, fmt.Sprintf("m%d", i)), "v", nil))
		assert.LessOrEqual(t, c.Len(), size, "cache size bound must hold at every step")
	}

	// Strict LRU: the most recent keys survive.
	_, hit, err := c.Get(key(t, "m49"))
	require.NoError(t, err)
	assert.True(t, hit)
	_, hit, err = c.Get(key(t, "m0"))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestWriteOnceSameValueIsNoop(t *testing.T) {
	c, err := cache.New(16, cache.WithStrict(true))
	require.NoError(t, err)

	k := key(t, "m")
	require.NoError(t, c.Put(k, "same", nil))
	require.NoError(t, c.Put(k, "same", nil), "identical rewrite is not a conflict")
	assert.Zero(t, c.Stats().WriteOnceConflicts)
}

func TestWriteOnceConflictStrict(t *testing.T) {
	c, err := cache.New(16, cache.WithStrict(true))
	require.NoError(t, err)

	k := key(t, "m")
	require.NoError(t, c.Put(k, "first", nil))

	err = c.Put(k, "second", nil)
	var conflict *diag.WriteConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, uint64(1), c.Stats().WriteOnceConflicts)

	// Original value survives.
	entry, hit, err := c.Get(k)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "first", entry.Formatted)
}

func TestWriteConflictNonStrictLastWriterWins(t *testing.T) {
	c, err := cache.New(16)
	require.NoError(t, err)

	k := key(t, "m")
	require.NoError(t, c.Put(k, "first", nil))
	require.NoError(t, c.Put(k, "second", nil))

	entry, hit, err := c.Get(k)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "second", entry.Formatted)
	assert.Equal(t, uint64(1), c.Stats().WriteOnceConflicts)
}

func TestCorruptionDetection(t *testing.T) {
	c, err := cache.New(16)
	require.NoError(t, err)

	k := key(t, "m")
	require.NoError(t, c.Put(k, "value", nil))

	entry, hit, err := c.Get(k)
	require.NoError(t, err)
	require.True(t, hit)

	// Tamper with the stored entry's payload behind the checksum.
	entry.Formatted = "tampered"

	_, hit, err = c.Get(k)
	require.NoError(t, err, "non-strict corruption is swallowed")
	assert.False(t, hit, "corrupted entry reads as a miss")
	assert.Equal(t, uint64(1), c.Stats().CorruptionDetected)

	// The corrupted entry was evicted.
	assert.Equal(t, 0, c.Len())
}

func TestCorruptionDetectionStrict(t *testing.T) {
	c, err := cache.New(16, cache.WithStrict(true))
	require.NoError(t, err)

	k := key(t, "m")
	require.NoError(t, c.Put(k, "value", nil))

	entry, _, err := c.Get(k)
	require.NoError(t, err)
	entry.Formatted = "tampered"

	_, _, err = c.Get(k)
	var corruption *diag.CorruptionError
	require.ErrorAs(t, err, &corruption)
}

func TestOversizeSkip(t *testing.T) {
	c, err := cache.New(16, cache.WithMaxValueSize(8))
	require.NoError(t, err)

	k := key(t, "m")
	require.NoError(t, c.Put(k, "way too large to cache", nil))

	_, hit, err := c.Get(k)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, uint64(1), c.Stats().OversizeSkips)
}

func TestEntryWeightSkip(t *testing.T) {
	c, err := cache.New(16, cache.WithMaxEntryWeight(10))
	require.NoError(t, err)

	errs := []*diag.Error{diag.NewError(diag.CodeMessageNotFound, "a rather long diagnostic message")}
	require.NoError(t, c.Put(key(t, "m"), "short", errs))
	assert.Equal(t, uint64(1), c.Stats().OversizeSkips)
}

func TestUnhashableSkipCounter(t *testing.T) {
	c, err := cache.New(16)
	require.NoError(t, err)
	c.RecordUnhashableSkip()
	c.RecordUnhashableSkip()
	assert.Equal(t, uint64(2), c.Stats().UnhashableSkips)
}

func TestClearPreservesCounters(t *testing.T) {
	c, err := cache.New(16)
	require.NoError(t, err)

	k := key(t, "m")
	require.NoError(t, c.Put(k, "v", nil))
	_, _, _ = c.Get(k)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, uint64(1), c.Stats().Hits, "lifetime counters survive Clear")
}

func TestCreatedAtUsesClock(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	c, err := cache.New(16, cache.WithClock(mock))
	require.NoError(t, err)

	k := key(t, "m")
	require.NoError(t, c.Put(k, "v", nil))
	entry, _, err := c.Get(k)
	require.NoError(t, err)
	assert.Equal(t, mock.Now(), entry.CreatedAt)
	assert.Equal(t, uint64(1), entry.Sequence)
}

func TestSequenceMonotonic(t *testing.T) {
	c, err := cache.New(16)
	require.NoError(t, err)

	require.NoError(t, c.Put(key(t, "a"), "1", nil))
	require.NoError(t, c.Put(key(t, "b"), "2", nil))

	ea, _, err := c.Get(key(t, "a"))
	require.NoError(t, err)
	eb, _, err := c.Get(key(t, "b"))
	require.NoError(t, err)
	assert.Less(t, ea.Sequence, eb.Sequence)
}

func TestNewRejectsBadSize(t *testing.T) {
	_, err := cache.New(0)
	assert.Error(t, err)
	_, err = cache.New(-5)
	assert.Error(t, err)
}
