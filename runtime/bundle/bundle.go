// Package bundle ties the engine together for one locale: the parsed
// entry maps, a function registry, a resolver, and an optional
// integrity cache, behind a single reader/writer lock.
//
// Registration is first-writer-wins: re-adding an id keeps the
// original and logs a warning. Formatting is total in the default
// mode — any id and any arguments produce a string plus diagnostics —
// and fail-fast in strict mode.
package bundle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/ftllex/ftllex/core/ast"
	"github.com/ftllex/ftllex/core/canon"
	"github.com/ftllex/ftllex/core/diag"
	"github.com/ftllex/ftllex/core/ident"
	"github.com/ftllex/ftllex/runtime/cache"
	"github.com/ftllex/ftllex/runtime/function"
	"github.com/ftllex/ftllex/runtime/locale"
	"github.com/ftllex/ftllex/runtime/parser"
	"github.com/ftllex/ftllex/runtime/resolver"
	"github.com/ftllex/ftllex/runtime/validator"
	"github.com/ftllex/ftllex/runtime/value"
)

// InvalidInput is returned for malformed API input (bad id, bad
// attribute name) alongside an INVALID_ARGUMENT diagnostic. It is a
// sentinel, not a formatted value.
const InvalidInput = "{???}"

// Bundle owns one locale's messages, terms, functions, and cache.
type Bundle struct {
	mu sync.RWMutex

	localeCode string
	ctx        *locale.Context
	registry   *function.Registry
	resolver   *resolver.Resolver
	cache      *cache.Cache

	messages map[string]*ast.Message
	terms    map[string]*ast.Term

	cfg *config
	log logrus.FieldLogger
}

// New creates a bundle for a BCP-47 locale.
func New(localeCode string, opts ...Option) (*Bundle, error) {
	cfg := &config{
		useIsolating:     true,
		cacheSize:        cache.DefaultSize,
		maxEntryWeight:   cache.DefaultMaxEntryWeight,
		maxExpansionSize: resolver.DefaultMaxExpansionSize,
		maxNestingDepth:  parser.DefaultMaxNestingDepth,
		maxSourceSize:    parser.DefaultMaxSourceSize,
		log:              logrus.StandardLogger(),
		clock:            clock.New(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, err := locale.Get(localeCode)
	if err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}

	registry := function.NewRegistry(cfg.log)
	b := &Bundle{
		localeCode: localeCode,
		ctx:        ctx,
		registry:   registry,
		messages:   map[string]*ast.Message{},
		terms:      map[string]*ast.Term{},
		cfg:        cfg,
		log:        cfg.log.WithField("locale", localeCode),
	}
	b.resolver = resolver.New(ctx, registry,
		resolver.WithIsolating(cfg.useIsolating),
		resolver.WithMaxExpansionSize(cfg.maxExpansionSize),
		resolver.WithLogger(b.log),
	)
	if cfg.enableCache {
		c, err := cache.New(cfg.cacheSize,
			cache.WithStrict(cfg.strict),
			cache.WithMaxEntryWeight(cfg.maxEntryWeight),
			cache.WithClock(cfg.clock),
			cache.WithLogger(b.log),
		)
		if err != nil {
			return nil, fmt.Errorf("bundle: %w", err)
		}
		b.cache = c
	}
	return b, nil
}

// Locale returns the bundle's locale code.
func (b *Bundle) Locale() string { return b.localeCode }

// AddResource parses FTL source and registers its entries.
// First-writer-wins: entries whose id already exists are dropped with
// a warning. Entries with fatal validation findings are dropped too;
// the rest of the resource still registers. Junk entries are returned
// for inspection. The cache is invalidated.
func (b *Bundle) AddResource(source string) ([]*ast.Junk, *diag.ValidationResult, error) {
	result, err := parser.Parse(source,
		parser.WithMaxNestingDepth(b.cfg.maxNestingDepth),
		parser.WithMaxSourceSize(b.cfg.maxSourceSize),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("bundle: %w", err)
	}

	validation := validator.Validate(result.Resource)
	rejected := map[string]bool{}
	for _, issue := range validation.Errors {
		if issue.EntryID != "" {
			rejected[issue.EntryID] = true
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, entry := range result.Resource.Entries {
		switch v := entry.(type) {
		case *ast.Message:
			if rejected[v.ID.Name] {
				continue
			}
			if _, exists := b.messages[v.ID.Name]; exists {
				b.log.WithField("message", v.ID.Name).Warn("duplicate message id, keeping original")
				continue
			}
			b.messages[v.ID.Name] = v
		case *ast.Term:
			if rejected[v.ID.Name] {
				continue
			}
			if _, exists := b.terms[v.ID.Name]; exists {
				b.log.WithField("term", v.ID.Name).Warn("duplicate term id, keeping original")
				continue
			}
			b.terms[v.ID.Name] = v
		}
	}

	if b.cache != nil {
		b.cache.Clear()
	}
	return junkEntries(result.Resource), validation, nil
}

func junkEntries(res *ast.Resource) []*ast.Junk {
	var out []*ast.Junk
	for _, e := range res.Entries {
		if j, ok := e.(*ast.Junk); ok {
			out = append(out, j)
		}
	}
	return out
}

// AddFunction registers a custom function on the bundle's registry and
// invalidates the cache.
func (b *Bundle) AddFunction(def function.Definition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.registry.Register(def); err != nil {
		return err
	}
	if b.cache != nil {
		b.cache.Clear()
	}
	return nil
}

// HasMessage reports whether a message id is registered.
func (b *Bundle) HasMessage(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.messages[id]
	return ok
}

// MessageIDs returns the registered message ids, unordered.
func (b *Bundle) MessageIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.messages))
	for id := range b.messages {
		out = append(out, id)
	}
	return out
}

// Message returns a registered message.
func (b *Bundle) Message(id string) (*ast.Message, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.messages[id]
	return m, ok
}

// Term returns a registered term.
func (b *Bundle) Term(id string) (*ast.Term, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.terms[id]
	return t, ok
}

// entriesView adapts the bundle to the resolver's Entries interface
// without re-locking: format holds the read lock for the whole call.
type entriesView struct{ b *Bundle }

func (v entriesView) Message(id string) (*ast.Message, bool) {
	m, ok := v.b.messages[id]
	return m, ok
}

func (v entriesView) Term(id string) (*ast.Term, bool) {
	t, ok := v.b.terms[id]
	return t, ok
}

func (v entriesView) MessageIDs() []string {
	out := make([]string, 0, len(v.b.messages))
	for id := range v.b.messages {
		out = append(out, id)
	}
	return out
}

// FormatPattern formats a message (or one of its attributes) with the
// given arguments. In the default mode it never fails: the result is a
// string plus accumulated diagnostics. In strict mode any diagnostic
// raises a FormattingError carrying the fallback; integrity errors
// from the cache propagate in both modes.
func (b *Bundle) FormatPattern(id string, args map[string]any, attribute string) (string, []*diag.Error, error) {
	if !ident.IsValid(id) {
		return InvalidInput, []*diag.Error{
			diag.Errorf(diag.CodeInvalidArgument, "invalid message id %q", id),
		}, nil
	}
	if attribute != "" && !ident.IsValid(attribute) {
		return InvalidInput, []*diag.Error{
			diag.Errorf(diag.CodeInvalidArgument, "invalid attribute name %q", attribute),
		}, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	// Cache lookup happens before resolution; unhashable arguments
	// skip the cache but never the resolution.
	var key cacheKey
	if b.cache != nil {
		digest, err := cache.Key(id, attribute, b.localeCode, b.cfg.useIsolating, args)
		switch {
		case err == nil:
			key = cacheKey{digest: digest, usable: true}
			entry, hit, cerr := b.cache.Get(digest)
			if cerr != nil {
				return "", nil, cerr
			}
			if hit {
				return b.finish(id, entry.Formatted, entry.Errors)
			}
		case errors.As(err, new(*diag.UnhashableError)):
			b.cache.RecordUnhashableSkip()
		default:
			return "", nil, err
		}
	}

	formatted, errs := b.resolve(id, args, attribute)

	// Cache-before-raise: strict mode stores the result first so cache
	// statistics stay consistent with the non-strict path.
	if b.cache != nil && key.usable {
		if err := b.cache.Put(key.digest, formatted, errs); err != nil {
			return "", nil, err
		}
	}
	return b.finish(id, formatted, errs)
}

type cacheKey struct {
	digest canon.Digest
	usable bool
}

// finish applies strict-mode escalation.
func (b *Bundle) finish(id, formatted string, errs []*diag.Error) (string, []*diag.Error, error) {
	if b.cfg.strict && len(errs) > 0 {
		return "", nil, &diag.FormattingError{
			MessageID: id,
			Errors:    errs,
			Fallback:  formatted,
		}
	}
	return formatted, errs, nil
}

// resolve runs the resolver under the already-held read lock.
func (b *Bundle) resolve(id string, args map[string]any, attribute string) (string, []*diag.Error) {
	msg, ok := b.messages[id]
	if !ok {
		return "{" + id + "}", []*diag.Error{
			diag.Errorf(diag.CodeMessageNotFound, "unknown message %s", id),
		}
	}

	var pattern *ast.Pattern
	switch {
	case attribute != "":
		attr := msg.Attribute(attribute)
		if attr == nil {
			return "{" + id + "." + attribute + "}", []*diag.Error{
				diag.Errorf(diag.CodeMessageNotFound, "message %s has no attribute %s", id, attribute),
			}
		}
		pattern = attr.Value
	case msg.Value != nil:
		pattern = msg.Value
	default:
		return "{" + id + "}", []*diag.Error{
			diag.Errorf(diag.CodePatternInvalid, "message %s has no value", id),
		}
	}

	converted, convErrs := convertArgs(args)
	formatted, errs := b.resolver.FormatEntry(entriesView{b: b}, "msg", id, attribute, pattern, converted)
	return formatted, append(convErrs, errs...)
}

// convertArgs lowers caller-supplied values into the closed FluentValue
// set. Unknown types produce a TYPE_MISMATCH diagnostic and a braced
// placeholder value.
func convertArgs(args map[string]any) (map[string]value.Value, []*diag.Error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make(map[string]value.Value, len(args))
	var errs []*diag.Error
	for name, raw := range args {
		v, ok := value.From(raw)
		if !ok {
			errs = append(errs, diag.Errorf(diag.CodeTypeMismatch,
				"argument $%s has unsupported type %T", name, raw))
			out[name] = value.String{Val: "{$" + name + "}"}
			continue
		}
		out[name] = v
	}
	return out, errs
}

// CacheStats returns cache counters; the zero value when the cache is
// disabled.
func (b *Bundle) CacheStats() cache.Stats {
	if b.cache == nil {
		return cache.Stats{}
	}
	return b.cache.Stats()
}

// Close clears the cache but preserves registered entries, matching
// scoped-use semantics: a closed bundle can keep formatting, it just
// starts cold.
func (b *Bundle) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cache != nil {
		b.cache.Clear()
	}
	return nil
}
