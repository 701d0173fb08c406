package resolver_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftllex/ftllex/core/ast"
	"github.com/ftllex/ftllex/core/diag"
	"github.com/ftllex/ftllex/runtime/function"
	"github.com/ftllex/ftllex/runtime/locale"
	"github.com/ftllex/ftllex/runtime/parser"
	"github.com/ftllex/ftllex/runtime/resolver"
	"github.com/ftllex/ftllex/runtime/value"
)

// mapEntries adapts parsed resources to the resolver's Entries view.
type mapEntries struct {
	messages map[string]*ast.Message
	terms    map[string]*ast.Term
}

func newEntries(t *testing.T, source string) *mapEntries {
	t.Helper()
	result, err := parser.Parse(source)
	require.NoError(t, err)
	require.Empty(t, result.Junk(), "fixture must parse cleanly")

	e := &mapEntries{
		messages: map[string]*ast.Message{},
		terms:    map[string]*ast.Term{},
	}
	for _, entry := range result.Resource.Entries {
		switch v := entry.(type) {
		case *ast.Message:
			if _, exists := e.messages[v.ID.Name]; !exists {
				e.messages[v.ID.Name] = v
			}
		case *ast.Term:
			if _, exists := e.terms[v.ID.Name]; !exists {
				e.terms[v.ID.Name] = v
			}
		}
	}
	return e
}

func (e *mapEntries) Message(id string) (*ast.Message, bool) {
	m, ok := e.messages[id]
	return m, ok
}

func (e *mapEntries) Term(id string) (*ast.Term, bool) {
	t, ok := e.terms[id]
	return t, ok
}

func (e *mapEntries) MessageIDs() []string {
	out := make([]string, 0, len(e.messages))
	for id := range e.messages {
		out = append(out, id)
	}
	return out
}

func newResolver(t *testing.T, localeCode string, opts ...resolver.Option) *resolver.Resolver {
	t.Helper()
	ctx, err := locale.Get(localeCode)
	require.NoError(t, err)
	return resolver.New(ctx, function.NewRegistry(nil), opts...)
}

func format(t *testing.T, r *resolver.Resolver, entries *mapEntries, id string, args map[string]value.Value) (string, []*diag.Error) {
	t.Helper()
	msg, ok := entries.Message(id)
	require.True(t, ok, "message %s must exist", id)
	return r.FormatEntry(entries, "msg", id, "", msg.Value, args)
}

func TestBasicVariable(t *testing.T) {
	entries := newEntries(t, "greeting = Hello, { $name }!")
	r := newResolver(t, "en", resolver.WithIsolating(false))

	out, errs := format(t, r, entries, "greeting", map[string]value.Value{
		"name": value.String{Val: "Alice"},
	})
	assert.Equal(t, "Hello, Alice!", out)
	assert.Empty(t, errs)
}

func TestIsolationWrapsInterpolatedValues(t *testing.T) {
	entries := newEntries(t, "greeting = Hello, { $name }!")
	r := newResolver(t, "en", resolver.WithIsolating(true))

	out, errs := format(t, r, entries, "greeting", map[string]value.Value{
		"name": value.String{Val: "World"},
	})
	assert.Equal(t, "Hello, \u2068World\u2069!", out)
	assert.Empty(t, errs)
}

func TestPluralSelectionEnglish(t *testing.T) {
	entries := newEntries(t,
		"emails = You have { $count ->\n    [one] one email\n   *[other] { $count } emails\n}.")
	r := newResolver(t, "en", resolver.WithIsolating(false))

	out, errs := format(t, r, entries, "emails", map[string]value.Value{
		"count": intValue(5),
	})
	assert.Equal(t, "You have 5 emails.", out)
	assert.Empty(t, errs)

	out, _ = format(t, r, entries, "emails", map[string]value.Value{
		"count": intValue(1),
	})
	assert.Equal(t, "You have one email.", out)
}

func intValue(n int64) value.Number {
	v, _ := value.From(n)
	return v.(value.Number)
}

func TestPluralSelectionLatvian(t *testing.T) {
	entries := newEntries(t,
		"items = { $count ->\n    [zero] { $count } vienību\n    [one] viena vienība\n   *[other] { $count } vienības\n}")
	r := newResolver(t, "lv", resolver.WithIsolating(false))

	out, errs := format(t, r, entries, "items", map[string]value.Value{
		"count": intValue(21),
	})
	assert.Equal(t, "viena vienība", out)
	assert.Empty(t, errs)
}

func TestExactNumberKeyBeatsPlural(t *testing.T) {
	entries := newEntries(t,
		"n = { $count ->\n    [0] none\n    [one] one\n   *[other] many\n}")
	r := newResolver(t, "en", resolver.WithIsolating(false))

	out, _ := format(t, r, entries, "n", map[string]value.Value{"count": intValue(0)})
	assert.Equal(t, "none", out)
}

func TestStringSelector(t *testing.T) {
	entries := newEntries(t,
		"who = { $gender ->\n    [male] he\n    [female] she\n   *[other] they\n}")
	r := newResolver(t, "en", resolver.WithIsolating(false))

	out, _ := format(t, r, entries, "who", map[string]value.Value{
		"gender": value.String{Val: "female"},
	})
	assert.Equal(t, "she", out)

	out, _ = format(t, r, entries, "who", map[string]value.Value{
		"gender": value.String{Val: "robot"},
	})
	assert.Equal(t, "they", out, "no match falls to the default variant")
}

func TestCycleDetection(t *testing.T) {
	entries := newEntries(t, "a = { b }\nb = { a }")
	r := newResolver(t, "en", resolver.WithIsolating(false))

	out, errs := format(t, r, entries, "a", nil)
	assert.Contains(t, out, "{a}")
	assert.True(t, diag.HasCode(errs, diag.CodeCyclicReference))
}

func TestSelfReferenceIsCycle(t *testing.T) {
	entries := newEntries(t, "a = x { a }")
	r := newResolver(t, "en", resolver.WithIsolating(false))

	out, errs := format(t, r, entries, "a", nil)
	assert.Equal(t, "x {a}", out)
	assert.True(t, diag.HasCode(errs, diag.CodeCyclicReference))
}

func TestAttributeGranularCycleKeys(t *testing.T) {
	// Two attributes of one message referencing each other's sibling is
	// not a cycle.
	entries := newEntries(t,
		"m = base\n    .a = { m }\n    .b = { m.a }")
	r := newResolver(t, "en", resolver.WithIsolating(false))

	msg, _ := entries.Message("m")
	attr := msg.Attribute("b")
	require.NotNil(t, attr)

	out, errs := r.FormatEntry(entries, "msg", "m", "b", attr.Value, nil)
	assert.Equal(t, "base", out)
	assert.Empty(t, errs)
}

func TestBillionLaughsDefeated(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 24; i++ {
		fmt.Fprintf(&sb, "m%d = {m%d}{m%d}\n", i, i+1, i+1)
	}
	sb.WriteString("m24 = X\n")

	entries := newEntries(t, sb.String())
	r := newResolver(t, "en",
		resolver.WithIsolating(false),
		resolver.WithMaxExpansionSize(100_000),
	)

	out, errs := format(t, r, entries, "m0", nil)
	assert.True(t, diag.HasCode(errs, diag.CodeExpansionBudgetExceeded))
	assert.LessOrEqual(t, len(out), 200_001, "output stays near the budget, not exponential")
}

func TestDepthLimit(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&sb, "d%d = { d%d }\n", i, i+1)
	}
	sb.WriteString("d150 = end\n")

	entries := newEntries(t, sb.String())
	r := newResolver(t, "en", resolver.WithIsolating(false), resolver.WithMaxDepth(100))

	_, errs := format(t, r, entries, "d0", nil)
	assert.True(t, diag.HasCode(errs, diag.CodeDepthLimitExceeded))
}

func TestFallbacks(t *testing.T) {
	entries := newEntries(t,
		"m = { missing } { -nope } { $ghost } { NOFUNC() }")
	r := newResolver(t, "en", resolver.WithIsolating(false))

	out, errs := format(t, r, entries, "m", nil)
	assert.Contains(t, out, "{missing}")
	assert.Contains(t, out, "{-nope}")
	assert.Contains(t, out, "{$ghost}")
	assert.Contains(t, out, "{NOFUNC}")

	assert.True(t, diag.HasCode(errs, diag.CodeMessageNotFound))
	assert.True(t, diag.HasCode(errs, diag.CodeTermNotFound))
	assert.True(t, diag.HasCode(errs, diag.CodeVariableNotProvided))
	assert.True(t, diag.HasCode(errs, diag.CodeFunctionNotFound))
}

func TestMissingMessageSuggestion(t *testing.T) {
	entries := newEntries(t, "greeting = hi\nm = { greetng }")
	r := newResolver(t, "en", resolver.WithIsolating(false))

	_, errs := format(t, r, entries, "m", nil)
	require.True(t, diag.HasCode(errs, diag.CodeMessageNotFound))
	var notFound *diag.Error
	for _, e := range errs {
		if e.Code() == diag.CodeMessageNotFound {
			notFound = e
		}
	}
	assert.Contains(t, notFound.Message(), "greeting", "fuzzy suggestion names the close match")
}

func TestTermLocalArguments(t *testing.T) {
	entries := newEntries(t,
		"-thing = { $case ->\n    [genitive] things'\n   *[other] thing\n}\n"+
			`m1 = { -thing(case: "genitive") }`+"\n"+
			"m2 = { -thing }")
	r := newResolver(t, "en", resolver.WithIsolating(false))

	out, errs := format(t, r, entries, "m1", nil)
	assert.Equal(t, "things'", out)
	assert.Empty(t, errs)

	// Without local arguments the term sees the outer scope, which has
	// no $case either: the default variant applies, and the missing
	// variable is reported.
	out, errs = format(t, r, entries, "m2", nil)
	assert.Equal(t, "thing", out)
	assert.True(t, diag.HasCode(errs, diag.CodeVariableNotProvided))
}

func TestTermArgumentsDoNotLeakOut(t *testing.T) {
	entries := newEntries(t,
		"-inner = { $x }\n"+
			`outer = { -inner(x: "local") } { $x }`)
	r := newResolver(t, "en", resolver.WithIsolating(false))

	out, errs := format(t, r, entries, "outer", map[string]value.Value{
		"x": value.String{Val: "outer-value"},
	})
	assert.Equal(t, "local outer-value", out)
	assert.Empty(t, errs)
}

func TestNumberFormattingInPattern(t *testing.T) {
	entries := newEntries(t, "n = { $big }")
	r := newResolver(t, "en", resolver.WithIsolating(false))

	out, errs := format(t, r, entries, "n", map[string]value.Value{
		"big": intValue(1234567),
	})
	assert.Equal(t, "1,234,567", out)
	assert.Empty(t, errs)
}

func TestFunctionCallThroughRegistry(t *testing.T) {
	entries := newEntries(t, "p = { NUMBER($amount, minimumFractionDigits: 2) }")
	r := newResolver(t, "en", resolver.WithIsolating(false))

	out, errs := format(t, r, entries, "p", map[string]value.Value{
		"amount": intValue(7),
	})
	assert.Equal(t, "7.00", out)
	assert.Empty(t, errs)
}

func TestNumberPrecisionFeedsPluralSelection(t *testing.T) {
	entries := newEntries(t,
		"stars = { NUMBER($n, minimumFractionDigits: 1) ->\n    [one] one star\n   *[other] { $n } stars\n}")
	r := newResolver(t, "en", resolver.WithIsolating(false))

	// "1.0" has a visible fraction digit, so English selects other.
	out, errs := format(t, r, entries, "stars", map[string]value.Value{
		"n": intValue(1),
	})
	assert.Equal(t, "1 stars", out)
	assert.Empty(t, errs)
}

func TestStringLiteralAndNumberLiteral(t *testing.T) {
	entries := newEntries(t, `m = { "lit" } { 42 }`)
	r := newResolver(t, "en", resolver.WithIsolating(false))

	out, errs := format(t, r, entries, "m", nil)
	assert.Equal(t, "lit 42", out)
	assert.Empty(t, errs)
}

func TestFormatPatternNeverPanicsOnArbitraryResources(t *testing.T) {
	sources := []string{
		"a = { b }\nb = { a }",
		"x = {{{{ $y }}}}",
		"s = { $v ->\n   *[other] { s }\n}",
		"weird = { -t }\n-t = { weird }",
	}
	r := newResolver(t, "en")
	for _, src := range sources {
		result, err := parser.Parse(src)
		require.NoError(t, err)
		entries := &mapEntries{messages: map[string]*ast.Message{}, terms: map[string]*ast.Term{}}
		for _, entry := range result.Resource.Entries {
			switch v := entry.(type) {
			case *ast.Message:
				entries.messages[v.ID.Name] = v
			case *ast.Term:
				entries.terms[v.ID.Name] = v
			}
		}
		for id, msg := range entries.messages {
			assert.NotPanics(t, func() {
				r.FormatEntry(entries, "msg", id, "", msg.Value, nil)
			})
		}
	}
}
