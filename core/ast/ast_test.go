package ast_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftllex/ftllex/core/ast"
)

func textPattern(texts ...string) *ast.Pattern {
	elements := make([]ast.PatternElement, len(texts))
	for i, tx := range texts {
		elements[i] = &ast.TextElement{Value: tx}
	}
	return ast.NewPattern(elements, nil)
}

func TestNewPatternMergesAdjacentText(t *testing.T) {
	p := textPattern("Hello, ", "world", "!")
	require.Len(t, p.Elements, 1)
	assert.Equal(t, "Hello, world!", p.Elements[0].(*ast.TextElement).Value)
}

func TestNewPatternDropsEmptyText(t *testing.T) {
	p := ast.NewPattern([]ast.PatternElement{
		&ast.TextElement{Value: ""},
		&ast.TextElement{Value: "a"},
		&ast.Placeable{Expression: &ast.VariableReference{ID: ast.Identifier{Name: "x"}}},
		&ast.TextElement{Value: ""},
	}, nil)
	require.Len(t, p.Elements, 2)
	assert.Equal(t, "a", p.Elements[0].(*ast.TextElement).Value)
}

func TestPatternIsEmpty(t *testing.T) {
	assert.True(t, (*ast.Pattern)(nil).IsEmpty())
	assert.True(t, ast.NewPattern(nil, nil).IsEmpty())
	assert.False(t, textPattern("x").IsEmpty())
}

func TestNumberValue(t *testing.T) {
	i := ast.IntValue(42)
	assert.False(t, i.IsDecimal())
	assert.Equal(t, int64(42), i.Int())
	assert.Equal(t, "42", i.String())

	d := ast.DecimalValue(decimal.RequireFromString("3.14"))
	assert.True(t, d.IsDecimal())
	assert.Equal(t, "3.14", d.String())

	// An int and a numerically equal decimal are distinct values.
	two := ast.IntValue(2)
	twoDec := ast.DecimalValue(decimal.NewFromInt(2))
	assert.False(t, two.Equal(twoDec))
	assert.True(t, two.Equal(ast.IntValue(2)))
	assert.True(t, twoDec.Equal(ast.DecimalValue(decimal.NewFromInt(2))))
}

func TestMessageAttributeLookup(t *testing.T) {
	msg := &ast.Message{
		ID: ast.Identifier{Name: "login"},
		Attributes: []*ast.Attribute{
			{ID: ast.Identifier{Name: "tooltip"}, Value: textPattern("Click")},
		},
	}
	require.NotNil(t, msg.Attribute("tooltip"))
	assert.Nil(t, msg.Attribute("missing"))
}

func TestResourceBodyExcludesJunk(t *testing.T) {
	res := &ast.Resource{Entries: []ast.Entry{
		&ast.Message{ID: ast.Identifier{Name: "a"}, Value: textPattern("x")},
		&ast.Junk{Content: "???"},
	}}
	assert.Len(t, res.Entries, 2)
	assert.Len(t, res.Body(), 1)
}

func TestSelectExpressionDefaultVariant(t *testing.T) {
	sel := &ast.SelectExpression{
		Selector: &ast.VariableReference{ID: ast.Identifier{Name: "count"}},
		Variants: []*ast.Variant{
			{Key: &ast.Identifier{Name: "one"}, Value: textPattern("one")},
			{Key: &ast.Identifier{Name: "other"}, Value: textPattern("many"), Default: true},
		},
	}
	require.NotNil(t, sel.DefaultVariant())
	assert.Equal(t, "other", sel.DefaultVariant().Key.(*ast.Identifier).Name)
}
