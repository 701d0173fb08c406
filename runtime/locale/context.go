// Package locale owns everything CLDR-adjacent: locale contexts with
// cached formatters, plural category selection, and number, datetime,
// and currency formatting.
//
// Contexts are created through the package factory and cached
// process-wide under a bounded LRU; every field is unexported, so code
// outside the package cannot build a populated context itself. A
// context is immutable once built and safe for concurrent use.
package locale

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Limits on the context cache and accepted locale codes.
const (
	maxContextCacheSize = 128
	maxLocaleCodeLength = 64
)

// Context is an immutable per-locale formatting context.
type Context struct {
	code    string // normalized form, e.g. "en_US"
	tag     language.Tag
	printer *message.Printer

	sepOnce  sync.Once
	groupSep string
	decSep   string
}

// Code returns the normalized locale code (underscore form).
func (c *Context) Code() string { return c.code }

// Tag returns the BCP-47 language tag.
func (c *Context) Tag() language.Tag { return c.tag }

var (
	cacheMu sync.Mutex
	cache   *simplelru.LRU[string, *Context]
)

func init() {
	// simplelru only errors on a non-positive size.
	c, err := simplelru.NewLRU[string, *Context](maxContextCacheSize, nil)
	if err != nil {
		panic(fmt.Sprintf("locale: context cache: %v", err))
	}
	cache = c
}

// Normalize converts a BCP-47 locale code to the underscore form used
// as the canonical cache key ("en-US" → "en_US").
func Normalize(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), "-", "_")
}

// Get returns the shared context for a locale, constructing and
// caching it on first use. Lookup and construction both run under the
// cache lock: two goroutines racing on a cold locale still share one
// context.
func Get(code string) (*Context, error) {
	if code == "" {
		return nil, fmt.Errorf("locale: empty locale code")
	}
	if len(code) > maxLocaleCodeLength {
		return nil, fmt.Errorf("locale: locale code exceeds %d characters", maxLocaleCodeLength)
	}
	normalized := Normalize(code)
	if normalized == "und" {
		return nil, fmt.Errorf("locale: undetermined locale %q", code)
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if ctx, ok := cache.Get(normalized); ok {
		return ctx, nil
	}

	ctx := newContext(normalized)
	cache.Add(normalized, ctx)
	return ctx, nil
}

// newContext builds the context. Unknown or unparsable locales keep
// their code but fall back to the root tag, which guarantees plural
// category "other" and neutral number formatting.
func newContext(normalized string) *Context {
	tag, err := language.Parse(strings.ReplaceAll(normalized, "_", "-"))
	if err != nil {
		tag = language.Und
	}
	return &Context{
		code:    normalized,
		tag:     tag,
		printer: message.NewPrinter(tag),
	}
}

// separators lazily discovers the locale's group and decimal
// separators by formatting probe values, so that grouping can be
// stripped without a private CLDR table.
func (c *Context) separators() (group, dec string) {
	c.sepOnce.Do(func() {
		probe := c.printer.Sprintf("%d", 1234567)
		for _, ch := range probe {
			if ch < '0' || ch > '9' {
				c.groupSep = string(ch)
				break
			}
		}
		probe = c.printer.Sprintf("%.1f", 1.5)
		for _, ch := range probe {
			if (ch < '0' || ch > '9') && string(ch) != c.groupSep {
				c.decSep = string(ch)
				break
			}
		}
		if c.decSep == "" {
			c.decSep = "."
		}
	})
	return c.groupSep, c.decSep
}

// resetCacheForTest clears the process-wide context cache.
func resetCacheForTest() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache.Purge()
}
