package parser_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftllex/ftllex/core/ast"
	"github.com/ftllex/ftllex/core/diag"
	"github.com/ftllex/ftllex/runtime/parser"
)

func parseOne(t *testing.T, source string) *ast.Resource {
	t.Helper()
	result, err := parser.Parse(source)
	require.NoError(t, err)
	return result.Resource
}

func firstMessage(t *testing.T, res *ast.Resource) *ast.Message {
	t.Helper()
	for _, e := range res.Entries {
		if m, ok := e.(*ast.Message); ok {
			return m
		}
	}
	t.Fatal("no message entry found")
	return nil
}

func patternText(t *testing.T, p *ast.Pattern) string {
	t.Helper()
	require.NotNil(t, p)
	var sb strings.Builder
	for _, el := range p.Elements {
		if text, ok := el.(*ast.TextElement); ok {
			sb.WriteString(text.Value)
		}
	}
	return sb.String()
}

func TestParseSimpleMessage(t *testing.T) {
	res := parseOne(t, "hello = Hello, world!")
	require.Len(t, res.Entries, 1)

	msg := firstMessage(t, res)
	assert.Equal(t, "hello", msg.ID.Name)
	require.Len(t, msg.Value.Elements, 1)
	assert.Equal(t, "Hello, world!", msg.Value.Elements[0].(*ast.TextElement).Value)
}

func TestParseTrimsTrailingSpaces(t *testing.T) {
	res := parseOne(t, "hello = Hello   ")
	msg := firstMessage(t, res)
	assert.Equal(t, "Hello", patternText(t, msg.Value))
}

func TestParseMultilinePattern(t *testing.T) {
	source := "multi =\n    line one\n    line two\nnext = x"
	res := parseOne(t, source)
	require.Len(t, res.Entries, 2)

	msg := res.Entries[0].(*ast.Message)
	assert.Equal(t, "line one\nline two", patternText(t, msg.Value))
}

func TestParseMultilineDeeperIndentIsText(t *testing.T) {
	source := "multi =\n    line one\n      indented"
	res := parseOne(t, source)
	msg := firstMessage(t, res)
	assert.Equal(t, "line one\n  indented", patternText(t, msg.Value))
}

func TestParseInlineStartWithContinuation(t *testing.T) {
	source := "multi = first\n    second"
	res := parseOne(t, source)
	msg := firstMessage(t, res)
	assert.Equal(t, "first\nsecond", patternText(t, msg.Value))
}

func TestParseBlankLineInsidePattern(t *testing.T) {
	source := "multi =\n    first\n\n    third"
	res := parseOne(t, source)
	msg := firstMessage(t, res)
	assert.Equal(t, "first\n\nthird", patternText(t, msg.Value))
}

func TestParseAttributes(t *testing.T) {
	source := "login = Login\n    .tooltip = Click here\n    .aria-label = Sign in"
	res := parseOne(t, source)
	msg := firstMessage(t, res)

	assert.Equal(t, "Login", patternText(t, msg.Value))
	require.Len(t, msg.Attributes, 2)
	assert.Equal(t, "tooltip", msg.Attributes[0].ID.Name)
	assert.Equal(t, "Click here", patternText(t, msg.Attributes[0].Value))
	assert.Equal(t, "aria-label", msg.Attributes[1].ID.Name)
}

func TestParseMessageWithOnlyAttributes(t *testing.T) {
	source := "login =\n    .tooltip = Click"
	res := parseOne(t, source)
	msg := firstMessage(t, res)
	assert.Nil(t, msg.Value)
	require.Len(t, msg.Attributes, 1)
}

func TestParseTerm(t *testing.T) {
	source := "-brand = Firefox\nabout = About { -brand }"
	res := parseOne(t, source)
	require.Len(t, res.Entries, 2)

	term, ok := res.Entries[0].(*ast.Term)
	require.True(t, ok)
	assert.Equal(t, "brand", term.ID.Name)

	msg := res.Entries[1].(*ast.Message)
	require.Len(t, msg.Value.Elements, 2)
	placeable := msg.Value.Elements[1].(*ast.Placeable)
	ref := placeable.Expression.(*ast.TermReference)
	assert.Equal(t, "brand", ref.ID.Name)
}

func TestParseVariableReference(t *testing.T) {
	res := parseOne(t, "greeting = Hello, { $name }!")
	msg := firstMessage(t, res)
	require.Len(t, msg.Value.Elements, 3)

	placeable := msg.Value.Elements[1].(*ast.Placeable)
	ref := placeable.Expression.(*ast.VariableReference)
	assert.Equal(t, "name", ref.ID.Name)
}

func TestParseMessageReferenceWithAttribute(t *testing.T) {
	res := parseOne(t, "x = { login.tooltip }")
	msg := firstMessage(t, res)
	ref := msg.Value.Elements[0].(*ast.Placeable).Expression.(*ast.MessageReference)
	assert.Equal(t, "login", ref.ID.Name)
	require.NotNil(t, ref.Attribute)
	assert.Equal(t, "tooltip", ref.Attribute.Name)
}

func TestParseNumberLiterals(t *testing.T) {
	res := parseOne(t, "a = { 42 }\nb = { 3.14 }\nc = { -5 }")
	require.Len(t, res.Entries, 3)

	num := func(i int) *ast.NumberLiteral {
		msg := res.Entries[i].(*ast.Message)
		return msg.Value.Elements[0].(*ast.Placeable).Expression.(*ast.NumberLiteral)
	}

	a := num(0)
	assert.False(t, a.Value.IsDecimal())
	assert.Equal(t, int64(42), a.Value.Int())
	assert.Equal(t, "42", a.Raw)

	b := num(1)
	assert.True(t, b.Value.IsDecimal())
	assert.Equal(t, "3.14", b.Raw)

	c := num(2)
	assert.Equal(t, int64(-5), c.Value.Int())
}

func TestParseStringLiteralEscapes(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"quote", `esc = { "a\"b" }`, `a"b`},
		{"backslash", `esc = { "a\\b" }`, `a\b`},
		{"unicode4", `esc = { "\u0041" }`, "A"},
		{"unicode6", `esc = { "\U01F602" }`, "😂"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := parseOne(t, tt.source)
			msg := firstMessage(t, res)
			lit := msg.Value.Elements[0].(*ast.Placeable).Expression.(*ast.StringLiteral)
			assert.Equal(t, tt.want, lit.Value)
		})
	}
}

func TestParseRejectsSurrogateEscape(t *testing.T) {
	result, err := parser.Parse(`bad = { "\uD800" }`)
	require.NoError(t, err)
	require.Len(t, result.Junk(), 1)
}

func TestParseUnknownEscapeIsJunk(t *testing.T) {
	result, err := parser.Parse(`bad = { "\x41" }`)
	require.NoError(t, err)
	require.Len(t, result.Junk(), 1)
	assert.Equal(t, diag.CodeParseError, result.Junk()[0].Annotations[0].Code)
}

func TestParseSelectExpression(t *testing.T) {
	source := "emails =\n" +
		"    { $count ->\n" +
		"        [one] one email\n" +
		"       *[other] { $count } emails\n" +
		"    }"
	res := parseOne(t, source)
	msg := firstMessage(t, res)

	require.Len(t, msg.Value.Elements, 1)
	sel := msg.Value.Elements[0].(*ast.Placeable).Expression.(*ast.SelectExpression)

	selector := sel.Selector.(*ast.VariableReference)
	assert.Equal(t, "count", selector.ID.Name)

	require.Len(t, sel.Variants, 2)
	assert.False(t, sel.Variants[0].Default)
	assert.Equal(t, "one", sel.Variants[0].Key.(*ast.Identifier).Name)
	assert.Equal(t, "one email", patternText(t, sel.Variants[0].Value))
	assert.True(t, sel.Variants[1].Default)
}

func TestParseSelectNumberKeys(t *testing.T) {
	source := "n = { $x ->\n    [0] none\n   *[other] some\n}"
	res := parseOne(t, source)
	msg := firstMessage(t, res)
	sel := msg.Value.Elements[0].(*ast.Placeable).Expression.(*ast.SelectExpression)
	key := sel.Variants[0].Key.(*ast.NumberLiteral)
	assert.Equal(t, int64(0), key.Value.Int())
}

func TestParseCallArguments(t *testing.T) {
	source := "price = { NUMBER($amount, minimumFractionDigits: 2, useGrouping: \"false\") }"
	res := parseOne(t, source)
	msg := firstMessage(t, res)

	fn := msg.Value.Elements[0].(*ast.Placeable).Expression.(*ast.FunctionReference)
	assert.Equal(t, "NUMBER", fn.ID.Name)
	require.NotNil(t, fn.Arguments)
	require.Len(t, fn.Arguments.Positional, 1)
	require.Len(t, fn.Arguments.Named, 2)
	assert.Equal(t, "minimumFractionDigits", fn.Arguments.Named[0].Name.Name)
}

func TestParseMultilineCallArguments(t *testing.T) {
	source := "price = { NUMBER(\n    $amount,\n    minimumFractionDigits: 2\n) }"
	res := parseOne(t, source)
	msg := firstMessage(t, res)
	fn := msg.Value.Elements[0].(*ast.Placeable).Expression.(*ast.FunctionReference)
	require.Len(t, fn.Arguments.Positional, 1)
	require.Len(t, fn.Arguments.Named, 1)
}

func TestParseLowercaseCalleeIsJunk(t *testing.T) {
	result, err := parser.Parse("bad = { number($x) }")
	require.NoError(t, err)
	assert.Len(t, result.Junk(), 1)
}

func TestParsePositionalAfterNamedIsJunk(t *testing.T) {
	result, err := parser.Parse(`bad = { NUMBER(pattern: "x", $y) }`)
	require.NoError(t, err)
	assert.Len(t, result.Junk(), 1)
}

func TestParseTermReferenceWithArguments(t *testing.T) {
	source := `welcome = { -brand(case: "genitive") }`
	res := parseOne(t, source)
	msg := firstMessage(t, res)
	ref := msg.Value.Elements[0].(*ast.Placeable).Expression.(*ast.TermReference)
	require.NotNil(t, ref.Arguments)
	require.Len(t, ref.Arguments.Named, 1)
	assert.Equal(t, "case", ref.Arguments.Named[0].Name.Name)
}

func TestParseCommentKinds(t *testing.T) {
	source := "# standalone\n\n## group\n\n### resource\n\nmsg = x"
	res := parseOne(t, source)
	require.Len(t, res.Entries, 4)

	assert.Equal(t, ast.CommentStandalone, res.Entries[0].(*ast.Comment).Kind)
	assert.Equal(t, ast.CommentGroup, res.Entries[1].(*ast.Comment).Kind)
	assert.Equal(t, ast.CommentResource, res.Entries[2].(*ast.Comment).Kind)
	assert.Nil(t, res.Entries[3].(*ast.Message).Comment)
}

func TestParseCommentAttachment(t *testing.T) {
	source := "# Greets the user.\nhello = Hi"
	res := parseOne(t, source)
	require.Len(t, res.Entries, 1)

	msg := res.Entries[0].(*ast.Message)
	require.NotNil(t, msg.Comment)
	assert.Equal(t, "Greets the user.", msg.Comment.Content)
}

func TestParseCommentBlankLineBreaksAttachment(t *testing.T) {
	source := "# Standalone.\n\nhello = Hi"
	res := parseOne(t, source)
	require.Len(t, res.Entries, 2)
	assert.IsType(t, &ast.Comment{}, res.Entries[0])
	assert.Nil(t, res.Entries[1].(*ast.Message).Comment)
}

func TestParseAdjacentCommentLinesMerge(t *testing.T) {
	source := "# line one\n# line two\nmsg = x"
	res := parseOne(t, source)
	msg := res.Entries[0].(*ast.Message)
	require.NotNil(t, msg.Comment)
	assert.Equal(t, "line one\nline two", msg.Comment.Content)
}

func TestParseJunkRecovery(t *testing.T) {
	source := "= broken\nstill broken\nok = fine"
	result, err := parser.Parse(source)
	require.NoError(t, err)

	junk := result.Junk()
	require.Len(t, junk, 1)
	assert.Equal(t, "= broken\nstill broken\n", junk[0].Content)
	assert.Equal(t, diag.CodeParseError, junk[0].Annotations[0].Code)

	msg := firstMessage(t, result.Resource)
	assert.Equal(t, "ok", msg.ID.Name)
}

func TestParseJunkStopsAtEntryStart(t *testing.T) {
	source := "{{{\n-term = ok"
	result, err := parser.Parse(source)
	require.NoError(t, err)
	require.Len(t, result.Junk(), 1)

	term, ok := result.Resource.Entries[1].(*ast.Term)
	require.True(t, ok)
	assert.Equal(t, "term", term.ID.Name)
}

func TestParseNestingDepthLimit(t *testing.T) {
	depth := 150
	source := "deep = " + strings.Repeat("{ ", depth) + "$x" + strings.Repeat(" }", depth)
	result, err := parser.Parse(source, parser.WithMaxNestingDepth(100))
	require.NoError(t, err)
	assert.Len(t, result.Junk(), 1, "over-deep nesting must degrade to junk, not recurse")
}

func TestParseSourceSizeLimit(t *testing.T) {
	_, err := parser.Parse(strings.Repeat("a", 100), parser.WithMaxSourceSize(10))
	assert.Error(t, err)
}

func TestParseLineEndingNormalization(t *testing.T) {
	res := parseOne(t, "a = one\r\nb = two\rc = three\n")
	assert.Len(t, res.Entries, 3)
}

func TestParseEmptySource(t *testing.T) {
	res := parseOne(t, "")
	assert.Empty(t, res.Entries)
}

func TestParseUnterminatedPlaceableIsJunk(t *testing.T) {
	result, err := parser.Parse("bad = { $x")
	require.NoError(t, err)
	assert.Len(t, result.Junk(), 1)
}

func TestParseIdentifierTooLongIsJunk(t *testing.T) {
	result, err := parser.Parse(strings.Repeat("a", 300) + " = x")
	require.NoError(t, err)
	assert.Len(t, result.Junk(), 1)
}

func TestParseDuplicateEntriesBothSurvive(t *testing.T) {
	// The parser keeps both; first-writer-wins happens at bundle
	// registration, and the analyzer warns about the shadow.
	res := parseOne(t, "a = one\n\na = two")
	assert.Len(t, res.Entries, 2)
}
