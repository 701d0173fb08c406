package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/sirupsen/logrus"

	"github.com/ftllex/ftllex/core/canon"
	"github.com/ftllex/ftllex/core/diag"
)

// Defaults for cache sizing.
const (
	DefaultSize           = 1024
	DefaultMaxEntryWeight = 65536
	DefaultMaxValueSize   = 32768
)

// Entry is one cached resolution. Entries are immutable after
// construction; the checksum covers the formatted value, each error's
// content hash, the creation timestamp, and the sequence number, so
// any in-memory tampering with entry metadata is detectable on read.
type Entry struct {
	Formatted string
	Errors    []*diag.Error
	Checksum  canon.Digest
	KeyHash   canon.Digest
	CreatedAt time.Time
	Sequence  uint64
}

// Weight is the entry's accounting weight: formatted characters plus
// the weight of each attached error.
func (e *Entry) Weight() int {
	w := len(e.Formatted)
	for _, err := range e.Errors {
		w += err.Weight()
	}
	return w
}

func (e *Entry) computeChecksum() (canon.Digest, error) {
	hashes := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		hashes[i] = err.ContentHash().String()
	}
	return canon.Hash([]any{
		"cachesum", e.Formatted, hashes, e.CreatedAt.UnixNano(), e.Sequence,
	})
}

// sameContent reports whether two entries carry the same resolution
// result. Metadata (timestamps, sequence) is ignored: a write conflict
// is about payload disagreement, not about when the payload was made.
func (e *Entry) sameContent(formatted string, errors []*diag.Error) bool {
	if e.Formatted != formatted || len(e.Errors) != len(errors) {
		return false
	}
	for i, err := range errors {
		if e.Errors[i].ContentHash() != err.ContentHash() {
			return false
		}
	}
	return true
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits               uint64
	Misses             uint64
	Size               int
	UnhashableSkips    uint64
	OversizeSkips      uint64
	CorruptionDetected uint64
	WriteOnceConflicts uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithStrict makes overwrite conflicts and corruption hard errors.
func WithStrict(strict bool) Option {
	return func(c *Cache) { c.strict = strict }
}

// WithMaxEntryWeight caps an entry's weight (formatted + errors).
func WithMaxEntryWeight(w int) Option {
	return func(c *Cache) { c.maxEntryWeight = w }
}

// WithMaxValueSize caps the formatted string alone.
func WithMaxValueSize(n int) Option {
	return func(c *Cache) { c.maxValueSize = n }
}

// WithClock substitutes the time source, for tests.
func WithClock(clk clock.Clock) Option {
	return func(c *Cache) { c.clock = clk }
}

// WithLogger sets the logger used for corruption reports.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Cache) { c.log = log }
}

// Cache is a bounded LRU with write-once semantics and checksum
// verification. All methods are safe for concurrent use.
type Cache struct {
	mu             sync.Mutex
	lru            *simplelru.LRU[canon.Digest, *Entry]
	strict         bool
	maxEntryWeight int
	maxValueSize   int
	clock          clock.Clock
	log            logrus.FieldLogger
	sequence       uint64
	stats          Stats
}

// New creates a cache holding at most size entries.
func New(size int, opts ...Option) (*Cache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache: size must be positive, got %d", size)
	}
	c := &Cache{
		maxEntryWeight: DefaultMaxEntryWeight,
		maxValueSize:   DefaultMaxValueSize,
		clock:          clock.New(),
		log:            logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	lru, err := simplelru.NewLRU[canon.Digest, *Entry](size, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	c.lru = lru
	return c, nil
}

// Get returns the entry for a key after verifying its checksum. A
// corrupted entry is evicted; in strict mode the corruption is
// returned as an error, otherwise it is logged and reported as a miss
// so the caller re-resolves.
func (c *Cache) Get(key canon.Digest) (*Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(key)
	if !ok {
		c.stats.Misses++
		return nil, false, nil
	}

	expected, err := entry.computeChecksum()
	if err != nil || expected != entry.Checksum {
		c.stats.CorruptionDetected++
		c.lru.Remove(key)
		c.stats.Misses++
		corruption := &diag.CorruptionError{
			KeyHash:  key,
			Expected: entry.Checksum,
			Actual:   expected,
		}
		if c.strict {
			return nil, false, corruption
		}
		c.log.WithFields(logrus.Fields{
			"key":      key.String(),
			"expected": entry.Checksum.String(),
			"actual":   expected.String(),
		}).Error("cache entry failed checksum verification, evicted")
		return nil, false, nil
	}

	c.stats.Hits++
	return entry, true, nil
}

// Put stores a resolution result. Oversize results skip caching with a
// counter bump. Writing a key that already holds a different value is
// a write-once conflict: an error in strict mode, last-writer-wins
// plus a counter otherwise.
func (c *Cache) Put(key canon.Digest, formatted string, errors []*diag.Error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.lru.Get(key); ok {
		if existing.sameContent(formatted, errors) {
			return nil
		}
		c.stats.WriteOnceConflicts++
		if c.strict {
			return &diag.WriteConflictError{KeyHash: key}
		}
	}

	if len(formatted) > c.maxValueSize {
		c.stats.OversizeSkips++
		return nil
	}

	c.sequence++
	entry := &Entry{
		Formatted: formatted,
		Errors:    append([]*diag.Error(nil), errors...),
		KeyHash:   key,
		CreatedAt: c.clock.Now(),
		Sequence:  c.sequence,
	}
	if entry.Weight() > c.maxEntryWeight {
		c.stats.OversizeSkips++
		return nil
	}
	checksum, err := entry.computeChecksum()
	if err != nil {
		return fmt.Errorf("cache: checksum computation failed: %w", err)
	}
	entry.Checksum = checksum

	c.lru.Add(key, entry)
	return nil
}

// RecordUnhashableSkip notes a format call whose arguments could not
// be hashed; resolution proceeded uncached.
func (c *Cache) RecordUnhashableSkip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.UnhashableSkips++
}

// Clear drops all entries. Counters survive; they describe the cache's
// lifetime, not its current contents.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.lru.Len()
	return s
}
