package bundle

import (
	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// Option configures a Bundle at construction.
type Option func(*config)

type config struct {
	useIsolating     bool
	strict           bool
	enableCache      bool
	cacheSize        int
	maxEntryWeight   int
	maxExpansionSize int
	maxNestingDepth  int
	maxSourceSize    int
	log              logrus.FieldLogger
	clock            clock.Clock
}

// WithIsolating controls FSI/PDI wrapping of interpolated values.
// Defaults to on.
func WithIsolating(on bool) Option {
	return func(c *config) { c.useIsolating = on }
}

// WithStrict makes formatting errors fail fast instead of falling
// back. Defaults to off.
func WithStrict(strict bool) Option {
	return func(c *config) { c.strict = strict }
}

// WithCache enables the integrity cache with the given entry capacity.
func WithCache(size int) Option {
	return func(c *config) {
		c.enableCache = true
		if size > 0 {
			c.cacheSize = size
		}
	}
}

// WithMaxEntryWeight caps the weight of a single cache entry.
func WithMaxEntryWeight(w int) Option {
	return func(c *config) { c.maxEntryWeight = w }
}

// WithMaxExpansionSize bounds the resolver's output budget.
func WithMaxExpansionSize(n int) Option {
	return func(c *config) { c.maxExpansionSize = n }
}

// WithMaxNestingDepth bounds parser placeable nesting.
func WithMaxNestingDepth(n int) Option {
	return func(c *config) { c.maxNestingDepth = n }
}

// WithMaxSourceSize bounds accepted FTL source size.
func WithMaxSourceSize(n int) Option {
	return func(c *config) { c.maxSourceSize = n }
}

// WithLogger sets the bundle's logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *config) { c.log = log }
}

// WithClock substitutes the cache's time source, for tests.
func WithClock(clk clock.Clock) Option {
	return func(c *config) { c.clock = clk }
}
