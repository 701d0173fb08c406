package parser

import (
	"fmt"

	"github.com/ftllex/ftllex/core/ast"
	"github.com/ftllex/ftllex/core/diag"
)

// Defaults for the parser's DoS limits.
const (
	DefaultMaxNestingDepth = 100
	DefaultMaxSourceSize   = 10_000_000 // characters
)

// Option configures a parse.
type Option func(*config)

type config struct {
	maxNestingDepth int
	maxSourceSize   int
}

// WithMaxNestingDepth bounds placeable nesting depth.
func WithMaxNestingDepth(n int) Option {
	return func(c *config) { c.maxNestingDepth = n }
}

// WithMaxSourceSize bounds accepted source size in characters.
func WithMaxSourceSize(n int) Option {
	return func(c *config) { c.maxSourceSize = n }
}

// Result carries the parsed resource and the position index for
// rendering diagnostics against the normalized source.
type Result struct {
	Resource *ast.Resource
	// Source is the LF-normalized text all spans refer to.
	Source string
	// Offsets translates span offsets to line/column.
	Offsets *LineOffsets
}

// Junk returns the junk entries of the parsed resource.
func (r *Result) Junk() []*ast.Junk {
	var out []*ast.Junk
	for _, e := range r.Resource.Entries {
		if j, ok := e.(*ast.Junk); ok {
			out = append(out, j)
		}
	}
	return out
}

// Parse parses FTL source into a resource. Parse never fails on
// malformed input — syntax errors surface as junk entries — but does
// reject input larger than the configured source cap.
func Parse(source string, opts ...Option) (*Result, error) {
	cfg := &config{
		maxNestingDepth: DefaultMaxNestingDepth,
		maxSourceSize:   DefaultMaxSourceSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	normalized := NormalizeLineEndings(source)
	src := []rune(normalized)
	if len(src) > cfg.maxSourceSize {
		return nil, fmt.Errorf("parser: source size %d exceeds limit %d", len(src), cfg.maxSourceSize)
	}

	p := &parser{
		cfg: cfg,
		src: src,
	}
	resource := p.parseResource()

	return &Result{
		Resource: resource,
		Source:   normalized,
		Offsets:  NewLineOffsets(normalized),
	}, nil
}

// parser holds per-parse state. A fresh parser value is built for
// every Parse call, so concurrent parses never share diagnostics.
type parser struct {
	cfg *config
	src []rune

	// lastErr records the most recent primitive failure; junk recovery
	// turns it into an annotation.
	lastErr *ast.Annotation
}

// fail records a typed parse error. Primitives report failure by
// returning ok=false after calling fail; the error context is read
// when the enclosing entry is converted to junk.
func (p *parser) fail(code diag.Code, pos int, format string, args ...any) {
	p.lastErr = &ast.Annotation{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
}

// takeErr consumes the recorded parse error, substituting a generic
// annotation when a rule failed without recording one.
func (p *parser) takeErr(pos int) ast.Annotation {
	if p.lastErr != nil {
		a := *p.lastErr
		p.lastErr = nil
		return a
	}
	return ast.Annotation{Code: diag.CodeParseError, Message: "invalid entry", Pos: pos}
}

// parseContext tracks placeable nesting depth. It is passed by value:
// sibling branches never observe each other's depth.
type parseContext struct {
	maxNestingDepth int
	depth           int
}

func (ctx parseContext) enterPlaceable() parseContext {
	ctx.depth++
	return ctx
}

func (ctx parseContext) depthExceeded() bool {
	return ctx.depth >= ctx.maxNestingDepth
}
