package ast_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftllex/ftllex/core/ast"
)

func mustDec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleMessage() *ast.Message {
	return &ast.Message{
		ID: ast.Identifier{Name: "emails"},
		Value: ast.NewPattern([]ast.PatternElement{
			&ast.TextElement{Value: "You have "},
			&ast.Placeable{Expression: &ast.SelectExpression{
				Selector: &ast.VariableReference{ID: ast.Identifier{Name: "count"}},
				Variants: []*ast.Variant{
					{Key: &ast.Identifier{Name: "one"}, Value: textPattern("one email")},
					{
						Key:     &ast.Identifier{Name: "other"},
						Value:   textPattern("many emails"),
						Default: true,
					},
				},
			}},
			&ast.TextElement{Value: "."},
		}, nil),
	}
}

func TestWalkVisitsAllNodes(t *testing.T) {
	var variables, texts int
	err := ast.Walk(sampleMessage(), func(n ast.Node) error {
		switch n.(type) {
		case *ast.VariableReference:
			variables++
		case *ast.TextElement:
			texts++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, variables)
	assert.Equal(t, 4, texts)
}

func TestWalkSkipChildren(t *testing.T) {
	var sawVariant bool
	err := ast.Walk(sampleMessage(), func(n ast.Node) error {
		if _, isSelect := n.(*ast.SelectExpression); isSelect {
			return ast.SkipChildren
		}
		if _, isVariant := n.(*ast.Variant); isVariant {
			sawVariant = true
		}
		return nil
	})
	require.NoError(t, err)
	assert.False(t, sawVariant)
}

func TestWalkDepthGuard(t *testing.T) {
	// A placeable chain deeper than the limit must fail with
	// ErrDepthLimit, not overflow the stack.
	var inner ast.Expression = &ast.StringLiteral{Value: "x"}
	for i := 0; i < ast.MaxVisitDepth+10; i++ {
		inner = &ast.Placeable{Expression: inner}
	}
	pattern := &ast.Pattern{Elements: []ast.PatternElement{inner.(*ast.Placeable)}}

	err := ast.Walk(pattern, func(ast.Node) error { return nil })
	assert.ErrorIs(t, err, ast.ErrDepthLimit)
}

func TestWalkPropagatesError(t *testing.T) {
	sentinel := assert.AnError
	err := ast.Walk(sampleMessage(), func(n ast.Node) error {
		if _, isVariant := n.(*ast.Variant); isVariant {
			return sentinel
		}
		return nil
	})
	assert.ErrorIs(t, err, sentinel)
}
