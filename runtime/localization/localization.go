// Package localization implements multi-locale fallback over lazily
// constructed bundles. A Localization owns an ordered locale chain and
// a resource loader; bundles come to life on first use and formatting
// walks the chain until one bundle resolves the message without a
// missing-entry error.
package localization

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ftllex/ftllex/core/diag"
	"github.com/ftllex/ftllex/runtime/bundle"
)

// Localization is the multi-locale orchestrator. Safe for concurrent
// use: the bundle map is guarded by a mutex, and bundles themselves
// carry their own locks.
type Localization struct {
	locales     []string
	resourceIDs []string
	loader      ResourceLoader
	opts        []bundle.Option
	log         logrus.FieldLogger

	mu      sync.Mutex
	bundles map[string]*bundle.Bundle
}

// Option configures a Localization.
type Option func(*Localization)

// WithBundleOptions passes construction options to every lazily
// created bundle.
func WithBundleOptions(opts ...bundle.Option) Option {
	return func(l *Localization) { l.opts = opts }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Localization) { l.log = log }
}

// New creates an orchestrator over an ordered locale fallback chain.
// The first locale is the primary; later entries are fallbacks.
func New(locales []string, resourceIDs []string, loader ResourceLoader, opts ...Option) (*Localization, error) {
	if len(locales) == 0 {
		return nil, fmt.Errorf("localization: at least one locale is required")
	}
	if loader == nil {
		return nil, fmt.Errorf("localization: a resource loader is required")
	}
	l := &Localization{
		locales:     append([]string(nil), locales...),
		resourceIDs: append([]string(nil), resourceIDs...),
		loader:      loader,
		log:         logrus.StandardLogger(),
		bundles:     map[string]*bundle.Bundle{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Locales returns the fallback chain.
func (l *Localization) Locales() []string {
	return append([]string(nil), l.locales...)
}

// bundleFor returns the bundle for a locale, constructing and loading
// it on first access. Load failures for individual resources are
// logged and skipped; a locale with no loadable resources still yields
// an (empty) bundle so the chain can move past it.
func (l *Localization) bundleFor(localeCode string) (*bundle.Bundle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.bundles[localeCode]; ok {
		return b, nil
	}
	b, err := bundle.New(localeCode, l.opts...)
	if err != nil {
		return nil, err
	}
	for _, resourceID := range l.resourceIDs {
		source, err := l.loader.Load(localeCode, resourceID)
		if err != nil {
			l.log.WithFields(logrus.Fields{
				"locale":   localeCode,
				"resource": resourceID,
			}).WithError(err).Warn("resource not loadable, skipping")
			continue
		}
		if _, _, err := b.AddResource(source); err != nil {
			l.log.WithFields(logrus.Fields{
				"locale":   localeCode,
				"resource": resourceID,
			}).WithError(err).Warn("resource rejected, skipping")
		}
	}
	l.bundles[localeCode] = b
	return b, nil
}

// FormatValue formats a message id through the fallback chain. The
// first bundle that resolves without a missing-entry diagnostic wins.
// When every locale fails, the last bundle's fallback output and
// errors are returned.
func (l *Localization) FormatValue(id string, args map[string]any) (string, []*diag.Error) {
	var lastOut string
	var lastErrs []*diag.Error
	seen := false

	for _, localeCode := range l.locales {
		b, err := l.bundleFor(localeCode)
		if err != nil {
			l.log.WithField("locale", localeCode).WithError(err).Warn("bundle construction failed")
			continue
		}
		out, errs, ferr := b.FormatPattern(id, args, "")
		if ferr != nil {
			// Strict-mode or integrity failure: surface as diagnostics
			// and keep walking the chain.
			lastOut, lastErrs, seen = out, append(errs, diag.Errorf(diag.CodeInvalidArgument, "%v", ferr)), true
			continue
		}
		if !missingEntry(errs) {
			return out, errs
		}
		lastOut, lastErrs, seen = out, errs, true
	}

	if !seen {
		return "{" + id + "}", []*diag.Error{
			diag.Errorf(diag.CodeMessageNotFound, "no bundle could be constructed for %s", id),
		}
	}
	return lastOut, lastErrs
}

// HasMessage reports whether any locale in the chain can format id.
func (l *Localization) HasMessage(id string) bool {
	for _, localeCode := range l.locales {
		b, err := l.bundleFor(localeCode)
		if err != nil {
			continue
		}
		if b.HasMessage(id) {
			return true
		}
	}
	return false
}

// Invalidate drops the cached bundle for a locale; the next access
// reloads its resources. Called by the watcher on file changes.
func (l *Localization) Invalidate(localeCode string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.bundles, localeCode)
}

// InvalidateAll drops every cached bundle.
func (l *Localization) InvalidateAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bundles = map[string]*bundle.Bundle{}
}

func missingEntry(errs []*diag.Error) bool {
	return diag.HasCode(errs, diag.CodeMessageNotFound)
}
