package parser

import (
	"github.com/ftllex/ftllex/core/ast"
	"github.com/ftllex/ftllex/core/diag"
	"github.com/ftllex/ftllex/core/ident"
)

// parsePlaceable consumes "{ expression }". Depth is tracked in the
// parse context passed by value; exceeding it fails the entry into
// junk instead of recursing without bound.
func (p *parser) parsePlaceable(c Cursor, ctx parseContext) (*ast.Placeable, Cursor, bool) {
	start := c.Pos()
	if c.Current() != '{' {
		p.fail(diag.CodeParseError, c.Pos(), `expected "{"`)
		return nil, c, false
	}
	ctx = ctx.enterPlaceable()
	if ctx.depthExceeded() {
		p.fail(diag.CodeParseError, c.Pos(), "placeable nesting exceeds depth limit %d", ctx.maxNestingDepth)
		return nil, c, false
	}

	cur := c.Advance(1).SkipWhitespace()
	expr, cur, ok := p.parseExpression(cur, ctx)
	if !ok {
		return nil, c, false
	}
	cur = cur.SkipWhitespace()
	if cur.Current() != '}' {
		p.fail(diag.CodeParseError, cur.Pos(), `expected "}"`)
		return nil, c, false
	}
	cur = cur.Advance(1)
	return &ast.Placeable{
		Expression: expr,
		Span:       &ast.Span{Start: start, End: cur.Pos()},
	}, cur, true
}

// parseExpression parses an inline expression, upgrading it to a
// select expression when "->" follows.
func (p *parser) parseExpression(c Cursor, ctx parseContext) (ast.Expression, Cursor, bool) {
	selector, cur, ok := p.parseInlineExpression(c, ctx)
	if !ok {
		return nil, c, false
	}

	look := cur.SkipSpaces()
	if !look.HasPrefix("->") {
		return selector, cur, true
	}
	cur = look.Advance(2)

	variants, cur, ok := p.parseVariants(cur, ctx)
	if !ok {
		return nil, c, false
	}
	return &ast.SelectExpression{
		Selector: selector,
		Variants: variants,
		Span:     &ast.Span{Start: c.Pos(), End: cur.Pos()},
	}, cur, true
}

// parseVariants consumes the variant list of a select expression, up
// to but not including the closing "}".
func (p *parser) parseVariants(c Cursor, ctx parseContext) ([]*ast.Variant, Cursor, bool) {
	var variants []*ast.Variant
	cur := c.SkipWhitespace()
	for {
		if cur.EOF() {
			p.fail(diag.CodeParseError, cur.Pos(), "unterminated select expression")
			return nil, c, false
		}
		if cur.Current() == '}' {
			if len(variants) == 0 {
				p.fail(diag.CodeParseError, cur.Pos(), "select expression has no variants")
				return nil, c, false
			}
			return variants, cur, true
		}

		start := cur.Pos()
		isDefault := false
		if cur.Current() == '*' {
			isDefault = true
			cur = cur.Advance(1)
		}
		if cur.Current() != '[' {
			p.fail(diag.CodeParseError, cur.Pos(), `expected "[" to start a variant key`)
			return nil, c, false
		}
		cur = cur.Advance(1).SkipSpaces()

		key, next, ok := p.parseVariantKey(cur)
		if !ok {
			return nil, c, false
		}
		cur = next.SkipSpaces()
		if cur.Current() != ']' {
			p.fail(diag.CodeParseError, cur.Pos(), `expected "]" after variant key`)
			return nil, c, false
		}
		cur = cur.Advance(1)

		value, next2, ok := p.parsePattern(cur, ctx)
		if !ok {
			return nil, c, false
		}
		if value == nil {
			p.fail(diag.CodeParseError, start, "variant has no value")
			return nil, c, false
		}
		cur = next2
		variants = append(variants, &ast.Variant{
			Key:     key,
			Value:   value,
			Default: isDefault,
			Span:    &ast.Span{Start: start, End: cur.Pos()},
		})
		cur = cur.SkipWhitespace()
	}
}

// parseVariantKey accepts an identifier or a number literal.
func (p *parser) parseVariantKey(c Cursor) (ast.VariantKey, Cursor, bool) {
	if isDigit(c.Current()) || (c.Current() == '-' && isDigit(c.Peek(1))) {
		num, cur, ok := p.parseNumber(c)
		if !ok {
			return nil, c, false
		}
		return num, cur, true
	}
	id, cur, ok := p.parseIdentifier(c)
	if !ok {
		return nil, c, false
	}
	return &id, cur, true
}

// parseInlineExpression dispatches on the first character:
// string, number, variable, term reference, message/function
// reference, or a nested placeable.
func (p *parser) parseInlineExpression(c Cursor, ctx parseContext) (ast.InlineExpression, Cursor, bool) {
	switch {
	case c.Current() == '"':
		lit, cur, ok := p.parseStringLiteral(c)
		if !ok {
			return nil, c, false
		}
		return lit, cur, true

	case isDigit(c.Current()) || (c.Current() == '-' && isDigit(c.Peek(1))):
		num, cur, ok := p.parseNumber(c)
		if !ok {
			return nil, c, false
		}
		return num, cur, true

	case c.Current() == '$':
		start := c.Pos()
		id, cur, ok := p.parseIdentifier(c.Advance(1))
		if !ok {
			return nil, c, false
		}
		return &ast.VariableReference{
			ID:   id,
			Span: &ast.Span{Start: start, End: cur.Pos()},
		}, cur, true

	case c.Current() == '-' && ident.IsStart(c.Peek(1)):
		return p.parseTermReference(c, ctx)

	case ident.IsStart(c.Current()):
		return p.parseMessageOrFunctionReference(c, ctx)

	case c.Current() == '{':
		return p.parsePlaceable(c, ctx)

	default:
		p.fail(diag.CodeParseError, c.Pos(), "expected an expression")
		return nil, c, false
	}
}

func (p *parser) parseTermReference(c Cursor, ctx parseContext) (ast.InlineExpression, Cursor, bool) {
	start := c.Pos()
	id, cur, ok := p.parseIdentifier(c.Advance(1))
	if !ok {
		return nil, c, false
	}
	var attr *ast.Identifier
	if cur.Current() == '.' && ident.IsStart(cur.Peek(1)) {
		a, next, ok := p.parseIdentifier(cur.Advance(1))
		if !ok {
			return nil, c, false
		}
		attr = &a
		cur = next
	}
	var args *ast.CallArguments
	if cur.Current() == '(' {
		a, next, ok := p.parseCallArguments(cur, ctx)
		if !ok {
			return nil, c, false
		}
		args = a
		cur = next
	}
	return &ast.TermReference{
		ID:        id,
		Attribute: attr,
		Arguments: args,
		Span:      &ast.Span{Start: start, End: cur.Pos()},
	}, cur, true
}

func (p *parser) parseMessageOrFunctionReference(c Cursor, ctx parseContext) (ast.InlineExpression, Cursor, bool) {
	start := c.Pos()
	id, cur, ok := p.parseIdentifier(c)
	if !ok {
		return nil, c, false
	}

	if cur.Current() == '(' {
		if !isCalleeName(id.Name) {
			p.fail(diag.CodeParseError, start, "callee %q must be an upper-case identifier", id.Name)
			return nil, c, false
		}
		args, next, ok := p.parseCallArguments(cur, ctx)
		if !ok {
			return nil, c, false
		}
		return &ast.FunctionReference{
			ID:        id,
			Arguments: args,
			Span:      &ast.Span{Start: start, End: next.Pos()},
		}, next, true
	}

	var attr *ast.Identifier
	if cur.Current() == '.' && ident.IsStart(cur.Peek(1)) {
		a, next, ok := p.parseIdentifier(cur.Advance(1))
		if !ok {
			return nil, c, false
		}
		attr = &a
		cur = next
	}
	return &ast.MessageReference{
		ID:        id,
		Attribute: attr,
		Span:      &ast.Span{Start: start, End: cur.Pos()},
	}, cur, true
}

// parseCallArguments consumes "( ... )". Blank — spaces and newlines —
// is allowed around every token, so calls can be formatted across
// lines. Named arguments must follow all positional ones; their values
// are restricted to string and number literals by the grammar.
func (p *parser) parseCallArguments(c Cursor, ctx parseContext) (*ast.CallArguments, Cursor, bool) {
	start := c.Pos()
	cur := c.Advance(1).SkipWhitespace() // '('

	var positional []ast.InlineExpression
	var named []*ast.NamedArgument

	for {
		if cur.EOF() {
			p.fail(diag.CodeParseError, cur.Pos(), "unterminated call arguments")
			return nil, c, false
		}
		if cur.Current() == ')' {
			cur = cur.Advance(1)
			return &ast.CallArguments{
				Positional: positional,
				Named:      named,
				Span:       &ast.Span{Start: start, End: cur.Pos()},
			}, cur, true
		}

		// Named argument lookahead: identifier, optional blank, ":".
		// Backtracking is free on an immutable cursor.
		if ident.IsStart(cur.Current()) {
			if id, afterID, ok := p.parseIdentifier(cur); ok {
				afterColon := afterID.SkipWhitespace()
				if afterColon.Current() == ':' {
					p.lastErr = nil
					value, next, ok := p.parseNamedArgumentValue(afterColon.Advance(1).SkipWhitespace())
					if !ok {
						return nil, c, false
					}
					named = append(named, &ast.NamedArgument{
						Name:  id,
						Value: value,
						Span:  &ast.Span{Start: id.Span.Start, End: next.Pos()},
					})
					cur = next
					if cur, ok = p.finishArgument(cur, c); !ok {
						return nil, c, false
					}
					continue
				}
			}
			p.lastErr = nil
		}

		if len(named) > 0 {
			p.fail(diag.CodeParseError, cur.Pos(), "positional arguments must not follow named arguments")
			return nil, c, false
		}
		expr, next, ok := p.parseInlineExpression(cur, ctx)
		if !ok {
			return nil, c, false
		}
		positional = append(positional, expr)
		cur = next
		if cur, ok = p.finishArgument(cur, c); !ok {
			return nil, c, false
		}
	}
}

// finishArgument consumes the separator after one argument: blank,
// optional comma, blank.
func (p *parser) finishArgument(cur, orig Cursor) (Cursor, bool) {
	cur = cur.SkipWhitespace()
	if cur.Current() == ',' {
		return cur.Advance(1).SkipWhitespace(), true
	}
	if cur.Current() != ')' {
		p.fail(diag.CodeParseError, cur.Pos(), `expected "," or ")" in call arguments`)
		return orig, false
	}
	return cur, true
}

// parseNamedArgumentValue accepts the literal value of a named
// argument.
func (p *parser) parseNamedArgumentValue(c Cursor) (ast.InlineExpression, Cursor, bool) {
	switch {
	case c.Current() == '"':
		lit, cur, ok := p.parseStringLiteral(c)
		if !ok {
			return nil, c, false
		}
		return lit, cur, true
	case isDigit(c.Current()) || (c.Current() == '-' && isDigit(c.Peek(1))):
		num, cur, ok := p.parseNumber(c)
		if !ok {
			return nil, c, false
		}
		return num, cur, true
	default:
		p.fail(diag.CodeParseError, c.Pos(), "named argument value must be a string or number literal")
		return nil, c, false
	}
}

// isCalleeName reports whether name is a valid function callee:
// upper-case letters, digits, underscores and hyphens only.
func isCalleeName(name string) bool {
	for _, ch := range name {
		switch {
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
		case ch == '_' || ch == '-':
		default:
			return false
		}
	}
	return true
}
