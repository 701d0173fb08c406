// Package resolver evaluates FTL patterns into strings. It is a
// tree-walking interpreter over the immutable AST with three
// orthogonal guards: a cycle stack over referenced entries, depth
// counters for reference chains and placeable nesting, and a byte
// budget on produced output.
//
// The resolver never fails: every error becomes an accumulated
// diagnostic plus a visibly-braced fallback in the output. Strict-mode
// escalation is the bundle's job.
package resolver

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sirupsen/logrus"

	"github.com/ftllex/ftllex/core/ast"
	"github.com/ftllex/ftllex/core/diag"
	"github.com/ftllex/ftllex/runtime/function"
	"github.com/ftllex/ftllex/runtime/locale"
	"github.com/ftllex/ftllex/runtime/value"
)

// Default guard limits.
const (
	DefaultMaxDepth         = 100
	DefaultMaxExprDepth     = 100
	DefaultMaxExpansionSize = 1_000_000
	maxSuggestionCandidates = 3

	fsi = "\u2068" // FIRST STRONG ISOLATE
	pdi = "\u2069" // POP DIRECTIONAL ISOLATE
)

// Entries is the resolver's view of a bundle: entry lookup by id. The
// bundle implements it; tests implement it with maps.
type Entries interface {
	Message(id string) (*ast.Message, bool)
	Term(id string) (*ast.Term, bool)
	MessageIDs() []string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithIsolating controls FSI/PDI wrapping of interpolated values.
func WithIsolating(on bool) Option {
	return func(r *Resolver) { r.useIsolating = on }
}

// WithMaxExpansionSize bounds total resolved output size.
func WithMaxExpansionSize(n int) Option {
	return func(r *Resolver) { r.maxExpansion = n }
}

// WithMaxDepth bounds total resolution depth.
func WithMaxDepth(n int) Option {
	return func(r *Resolver) { r.maxDepth = n }
}

// WithLogger sets the logger for diagnostics that should also be
// visible operationally.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Resolver) { r.log = log }
}

// Resolver formats patterns for one locale. It is immutable after
// construction and safe for concurrent use; all per-call state lives
// in the resolution context.
type Resolver struct {
	ctx          *locale.Context
	registry     *function.Registry
	useIsolating bool
	maxDepth     int
	maxExprDepth int
	maxExpansion int
	log          logrus.FieldLogger
}

// New creates a resolver bound to a locale context and a function
// registry.
func New(ctx *locale.Context, registry *function.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		ctx:          ctx,
		registry:     registry,
		useIsolating: true,
		maxDepth:     DefaultMaxDepth,
		maxExprDepth: DefaultMaxExprDepth,
		maxExpansion: DefaultMaxExpansionSize,
		log:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FormatPattern resolves a bare pattern with the given arguments. It
// always returns a string; failures surface as accumulated diagnostics
// and braced fallbacks inside the output.
func (r *Resolver) FormatPattern(entries Entries, pattern *ast.Pattern, args map[string]value.Value) (string, []*diag.Error) {
	rc := &resolution{entries: entries, args: args}
	out := r.resolvePattern(rc, pattern)
	return out, rc.errors
}

// FormatEntry resolves an entry's pattern with the entry itself
// already on the cycle stack, so a reference chain that loops back to
// the entry being formatted is reported as a cycle at the point of
// re-entry.
func (r *Resolver) FormatEntry(entries Entries, kind, id, attribute string, pattern *ast.Pattern, args map[string]value.Value) (string, []*diag.Error) {
	rc := &resolution{entries: entries, args: args}
	key := refKey{kind: kind, id: id}
	if attribute != "" {
		key.id = id + "." + attribute
	}
	rc.push(key)
	defer rc.pop()
	out := r.resolvePattern(rc, pattern)
	return out, rc.errors
}

// resolvePattern renders the elements left to right, charging every
// produced fragment against the expansion budget.
func (r *Resolver) resolvePattern(rc *resolution, pattern *ast.Pattern) string {
	if pattern == nil {
		return ""
	}
	var sb strings.Builder
	for _, el := range pattern.Elements {
		if rc.budgetBlown {
			break
		}
		switch v := el.(type) {
		case *ast.TextElement:
			if !rc.charge(len(v.Value), r.maxExpansion) {
				break
			}
			sb.WriteString(v.Value)
		case *ast.Placeable:
			text := r.resolvePlaceable(rc, v, len(pattern.Elements) > 1)
			if !rc.charge(len(text), r.maxExpansion) {
				break
			}
			sb.WriteString(text)
		}
	}
	return sb.String()
}

// resolvePlaceable evaluates the wrapped expression, applying FSI/PDI
// isolation when the placeable is interpolated between other content.
func (r *Resolver) resolvePlaceable(rc *resolution, p *ast.Placeable, interpolated bool) string {
	rc.exprDepth++
	defer func() { rc.exprDepth-- }()
	if rc.exprDepth > r.maxExprDepth {
		rc.addError(diag.Errorf(diag.CodeDepthLimitExceeded,
			"expression nesting exceeds %d", r.maxExprDepth))
		return "{???}"
	}

	text := r.resolveExpression(rc, p.Expression)
	if r.useIsolating && interpolated {
		return fsi + text + pdi
	}
	return text
}

func (r *Resolver) resolveExpression(rc *resolution, expr ast.Expression) string {
	switch v := expr.(type) {
	case *ast.StringLiteral:
		return v.Value
	case *ast.NumberLiteral:
		formatted, _ := r.ctx.FormatNumber(v.Value.Decimal(), locale.NumberOptions{})
		return formatted
	case *ast.VariableReference:
		return r.resolveVariable(rc, v)
	case *ast.MessageReference:
		return r.resolveMessageReference(rc, v)
	case *ast.TermReference:
		return r.resolveTermReference(rc, v)
	case *ast.FunctionReference:
		return r.resolveFunctionReference(rc, v)
	case *ast.SelectExpression:
		return r.resolveSelect(rc, v)
	case *ast.Placeable:
		return r.resolvePlaceable(rc, v, false)
	default:
		rc.addError(diag.Errorf(diag.CodeUnknownExpression, "unknown expression type %T", expr))
		return "{???}"
	}
}

func (r *Resolver) resolveVariable(rc *resolution, ref *ast.VariableReference) string {
	name := ref.ID.Name
	v, ok := rc.args[name]
	if !ok {
		rc.addError(diag.Errorf(diag.CodeVariableNotProvided, "variable $%s was not provided", name))
		return "{$" + name + "}"
	}
	return r.renderValue(v)
}

// renderValue converts a resolved value to text using the locale's
// formatters. Decimals keep full precision through the exact
// formatting path.
func (r *Resolver) renderValue(v value.Value) string {
	switch t := v.(type) {
	case value.String:
		return t.Val
	case value.Number:
		if t.Formatted != "" {
			return t.Formatted
		}
		formatted, _ := r.ctx.FormatNumber(t.Dec, locale.NumberOptions{})
		return formatted
	case value.Datetime:
		formatted, err := r.ctx.FormatDatetime(t.Val, locale.DatetimeOptions{DateStyle: "medium"})
		if err != nil {
			return t.String()
		}
		return formatted
	default:
		return v.String()
	}
}

// enterReference runs the guard ladder for entry references: cycle
// check, depth check, budget check, then push. The returned release
// function pops the stack; ok=false means a diagnostic was emitted and
// the caller must fall back.
func (r *Resolver) enterReference(rc *resolution, key refKey, display string) (release func(), ok bool) {
	if _, cyclic := rc.inStack[key]; cyclic {
		rc.addError(diag.Errorf(diag.CodeCyclicReference, "cyclic reference to %s", display))
		return nil, false
	}
	if rc.depth >= r.maxDepth {
		rc.addError(diag.Errorf(diag.CodeDepthLimitExceeded,
			"resolution depth exceeds %d at %s", r.maxDepth, display))
		return nil, false
	}
	if rc.budgetBlown {
		return nil, false
	}
	rc.push(key)
	rc.depth++
	return func() {
		rc.depth--
		rc.pop()
	}, true
}

func (r *Resolver) resolveMessageReference(rc *resolution, ref *ast.MessageReference) string {
	id := ref.ID.Name
	display := id
	key := refKey{kind: "msg", id: id}
	if ref.Attribute != nil {
		display = id + "." + ref.Attribute.Name
		key.id = display
	}
	fallback := "{" + display + "}"

	msg, found := rc.entries.Message(id)
	if !found {
		e := diag.Errorf(diag.CodeMessageNotFound, "unknown message %s%s", id, r.suggestion(rc, id))
		rc.addError(e)
		return fallback
	}

	var pattern *ast.Pattern
	if ref.Attribute != nil {
		attr := msg.Attribute(ref.Attribute.Name)
		if attr == nil {
			rc.addError(diag.Errorf(diag.CodeMessageNotFound, "message %s has no attribute %s", id, ref.Attribute.Name))
			return fallback
		}
		pattern = attr.Value
	} else {
		if msg.Value == nil {
			rc.addError(diag.Errorf(diag.CodePatternInvalid, "message %s has no value", id))
			return fallback
		}
		pattern = msg.Value
	}

	release, ok := r.enterReference(rc, key, display)
	if !ok {
		return fallback
	}
	defer release()
	return r.resolvePattern(rc, pattern)
}

func (r *Resolver) resolveTermReference(rc *resolution, ref *ast.TermReference) string {
	id := ref.ID.Name
	display := "-" + id
	key := refKey{kind: "term", id: id}
	if ref.Attribute != nil {
		display = "-" + id + "." + ref.Attribute.Name
		key.id = id + "." + ref.Attribute.Name
	}
	fallback := "{" + display + "}"

	term, found := rc.entries.Term(id)
	if !found {
		rc.addError(diag.Errorf(diag.CodeTermNotFound, "unknown term -%s", id))
		return fallback
	}

	var pattern *ast.Pattern
	if ref.Attribute != nil {
		attr := term.Attribute(ref.Attribute.Name)
		if attr == nil {
			rc.addError(diag.Errorf(diag.CodeTermNotFound, "term -%s has no attribute %s", id, ref.Attribute.Name))
			return fallback
		}
		pattern = attr.Value
	} else {
		pattern = term.Value
	}

	release, ok := r.enterReference(rc, key, display)
	if !ok {
		return fallback
	}
	defer release()

	// Term-local arguments shadow the outer scope inside the term body
	// only; the outer map itself is never mutated.
	if ref.Arguments != nil && len(ref.Arguments.Named) > 0 {
		local := make(map[string]value.Value, len(rc.args)+len(ref.Arguments.Named))
		for k, v := range rc.args {
			local[k] = v
		}
		for _, named := range ref.Arguments.Named {
			local[named.Name.Name] = r.literalValue(rc, named.Value)
		}
		restore := rc.withArgs(local)
		defer restore()
	}
	return r.resolvePattern(rc, pattern)
}

func (r *Resolver) resolveFunctionReference(rc *resolution, ref *ast.FunctionReference) string {
	result, ok := r.callFunction(rc, ref)
	if !ok {
		if !r.registry.Has(ref.ID.Name) {
			return "{" + ref.ID.Name + "}"
		}
		return "{" + ref.ID.Name + "()}"
	}
	return r.renderValue(result)
}

// callFunction dispatches a function reference and returns the typed
// result, so a NUMBER(...) selector keeps its numeric identity (and
// visible precision) instead of degrading to text.
func (r *Resolver) callFunction(rc *resolution, ref *ast.FunctionReference) (value.Value, bool) {
	name := ref.ID.Name
	if !r.registry.Has(name) {
		rc.addError(diag.Errorf(diag.CodeFunctionNotFound, "unknown function %s", name))
		return nil, false
	}

	var positional []value.Value
	var named map[string]value.Value
	if ref.Arguments != nil {
		positional = make([]value.Value, 0, len(ref.Arguments.Positional))
		for _, arg := range ref.Arguments.Positional {
			positional = append(positional, r.expressionValue(rc, arg))
		}
		named = make(map[string]value.Value, len(ref.Arguments.Named))
		for _, na := range ref.Arguments.Named {
			named[na.Name.Name] = r.literalValue(rc, na.Value)
		}
	}

	result, err := r.registry.Call(name, r.ctx, positional, named)
	if err != nil {
		if d, isDiag := err.(*diag.Error); isDiag {
			rc.addError(d)
		} else {
			rc.addError(diag.Errorf(diag.CodeInvalidArgument, "function %s failed: %v", name, err))
		}
		return nil, false
	}
	return result, true
}

// expressionValue resolves a call argument to a value rather than
// text, so functions receive numbers as numbers.
func (r *Resolver) expressionValue(rc *resolution, expr ast.InlineExpression) value.Value {
	switch v := expr.(type) {
	case *ast.StringLiteral:
		return value.String{Val: v.Value}
	case *ast.NumberLiteral:
		return numberLiteralValue(v)
	case *ast.VariableReference:
		if arg, ok := rc.args[v.ID.Name]; ok {
			return arg
		}
		rc.addError(diag.Errorf(diag.CodeVariableNotProvided, "variable $%s was not provided", v.ID.Name))
		return value.String{Val: "{$" + v.ID.Name + "}"}
	case *ast.FunctionReference:
		if result, ok := r.callFunction(rc, v); ok {
			return result
		}
		return value.String{Val: "{" + v.ID.Name + "}"}
	default:
		return value.String{Val: r.resolveExpression(rc, expr)}
	}
}

// literalValue resolves a named-argument value; the grammar restricts
// these to string and number literals.
func (r *Resolver) literalValue(rc *resolution, expr ast.InlineExpression) value.Value {
	return r.expressionValue(rc, expr)
}

func numberLiteralValue(lit *ast.NumberLiteral) value.Number {
	return value.Number{
		Dec:       lit.Value.Decimal(),
		IsInt:     !lit.Value.IsDecimal(),
		Precision: value.NaturalPrecision,
	}
}

// resolveSelect evaluates the selector and picks the matching variant.
// Numeric selectors match exact number keys first, then their CLDR
// plural category against identifier keys. String selectors match
// identifier keys literally. No match selects the default variant.
func (r *Resolver) resolveSelect(rc *resolution, sel *ast.SelectExpression) string {
	selValue := r.expressionValue(rc, sel.Selector)
	variant := r.matchVariant(selValue, sel)
	if variant == nil {
		rc.addError(diag.Errorf(diag.CodeMissingDefaultVariant, "select expression has no default variant"))
		return "{???}"
	}
	return r.resolvePattern(rc, variant.Value)
}

func (r *Resolver) matchVariant(sel value.Value, expr *ast.SelectExpression) *ast.Variant {
	switch v := sel.(type) {
	case value.Number:
		// Exact numeric keys win over plural categories.
		for _, variant := range expr.Variants {
			if key, isNum := variant.Key.(*ast.NumberLiteral); isNum {
				if key.Value.Decimal().Equal(v.Dec) {
					return variant
				}
			}
		}
		category := string(r.ctx.SelectPluralCategory(locale.PluralInput{
			Value:                 v.Dec,
			VisibleFractionDigits: v.Precision,
		}))
		for _, variant := range expr.Variants {
			if key, isID := variant.Key.(*ast.Identifier); isID && key.Name == category {
				return variant
			}
		}
	case value.String:
		for _, variant := range expr.Variants {
			if key, isID := variant.Key.(*ast.Identifier); isID && key.Name == v.Val {
				return variant
			}
		}
	}
	return expr.DefaultVariant()
}

// suggestion renders a "did you mean" hint for unknown message ids
// using fuzzy ranking over the bundle's known ids.
func (r *Resolver) suggestion(rc *resolution, id string) string {
	candidates := rc.entries.MessageIDs()
	if len(candidates) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindNormalizedFold(id, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	n := len(ranks)
	if n > maxSuggestionCandidates {
		n = maxSuggestionCandidates
	}
	names := make([]string, 0, n)
	for _, rank := range ranks[:n] {
		names = append(names, rank.Target)
	}
	return " (did you mean " + strings.Join(names, ", ") + "?)"
}
