package parser

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ftllex/ftllex/core/ast"
	"github.com/ftllex/ftllex/core/diag"
	"github.com/ftllex/ftllex/core/ident"
)

// Token length caps. Numbers and strings are caller-controlled input;
// unbounded lexemes are a memory DoS vector.
const (
	maxNumberLength = 128
	maxStringLength = 65536
)

// parseIdentifier consumes [a-zA-Z][a-zA-Z0-9_-]* at the cursor.
func (p *parser) parseIdentifier(c Cursor) (ast.Identifier, Cursor, bool) {
	start := c.Pos()
	if !ident.IsStart(c.Current()) {
		p.fail(diag.CodeParseError, c.Pos(), "expected identifier")
		return ast.Identifier{}, c, false
	}
	end := c
	for !end.EOF() && ident.IsChar(end.Current()) {
		end = end.Advance(1)
		if end.Pos()-start > ident.MaxLength {
			p.fail(diag.CodeParseError, start, "identifier exceeds %d characters", ident.MaxLength)
			return ast.Identifier{}, c, false
		}
	}
	name := c.Slice(start, end.Pos())
	return ast.Identifier{Name: name, Span: &ast.Span{Start: start, End: end.Pos()}}, end, true
}

// parseNumber consumes "-"? digits ("." digits)?. Integers stay int64;
// fractional lexemes become arbitrary-precision decimals so the exact
// value survives roundtrips.
func (p *parser) parseNumber(c Cursor) (*ast.NumberLiteral, Cursor, bool) {
	start := c.Pos()
	end := c
	if end.Current() == '-' {
		end = end.Advance(1)
	}
	intDigits := 0
	for !end.EOF() && isDigit(end.Current()) {
		end = end.Advance(1)
		intDigits++
	}
	if intDigits == 0 {
		p.fail(diag.CodeParseError, c.Pos(), "expected number")
		return nil, c, false
	}
	isDecimal := false
	if end.Current() == '.' && isDigit(end.Peek(1)) {
		isDecimal = true
		end = end.Advance(1)
		for !end.EOF() && isDigit(end.Current()) {
			end = end.Advance(1)
		}
	}
	if end.Pos()-start > maxNumberLength {
		p.fail(diag.CodeParseError, start, "number literal exceeds %d characters", maxNumberLength)
		return nil, c, false
	}

	raw := c.Slice(start, end.Pos())
	span := &ast.Span{Start: start, End: end.Pos()}

	if isDecimal {
		dec, err := decimal.NewFromString(raw)
		if err != nil {
			p.fail(diag.CodeParseError, start, "invalid number literal %q", raw)
			return nil, c, false
		}
		return &ast.NumberLiteral{Value: ast.DecimalValue(dec), Raw: raw, Span: span}, end, true
	}
	iv, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Integer lexeme too large for int64: keep exact value as decimal.
		dec, derr := decimal.NewFromString(raw)
		if derr != nil {
			p.fail(diag.CodeParseError, start, "invalid number literal %q", raw)
			return nil, c, false
		}
		return &ast.NumberLiteral{Value: ast.DecimalValue(dec), Raw: raw, Span: span}, end, true
	}
	return &ast.NumberLiteral{Value: ast.IntValue(iv), Raw: raw, Span: span}, end, true
}

// parseStringLiteral consumes a double-quoted literal with \" \\ \uXXXX
// and \UXXXXXX escapes, decoding them into the value.
func (p *parser) parseStringLiteral(c Cursor) (*ast.StringLiteral, Cursor, bool) {
	start := c.Pos()
	if c.Current() != '"' {
		p.fail(diag.CodeParseError, c.Pos(), "expected string literal")
		return nil, c, false
	}
	cur := c.Advance(1)
	var sb strings.Builder
	for {
		if cur.EOF() || cur.Current() == '\n' {
			p.fail(diag.CodeParseError, start, "unterminated string literal")
			return nil, c, false
		}
		ch := cur.Current()
		if ch == '"' {
			cur = cur.Advance(1)
			break
		}
		if ch == '\\' {
			decoded, next, ok := p.parseEscape(cur)
			if !ok {
				return nil, c, false
			}
			sb.WriteRune(decoded)
			cur = next
		} else {
			sb.WriteRune(ch)
			cur = cur.Advance(1)
		}
		if sb.Len() > maxStringLength {
			p.fail(diag.CodeParseError, start, "string literal exceeds %d bytes", maxStringLength)
			return nil, c, false
		}
	}
	return &ast.StringLiteral{
		Value: sb.String(),
		Span:  &ast.Span{Start: start, End: cur.Pos()},
	}, cur, true
}

// parseEscape decodes one escape sequence starting at the backslash.
func (p *parser) parseEscape(c Cursor) (rune, Cursor, bool) {
	switch c.Peek(1) {
	case '"':
		return '"', c.Advance(2), true
	case '\\':
		return '\\', c.Advance(2), true
	case 'u':
		return p.parseUnicodeEscape(c, 4)
	case 'U':
		return p.parseUnicodeEscape(c, 6)
	default:
		p.fail(diag.CodeParseError, c.Pos(), "unknown escape sequence \\%c", c.Peek(1))
		return 0, c, false
	}
}

// parseUnicodeEscape decodes \uXXXX or \UXXXXXX. The value must be a
// Unicode scalar: surrogate halves and out-of-range values are
// rejected rather than smuggled into the AST.
func (p *parser) parseUnicodeEscape(c Cursor, digits int) (rune, Cursor, bool) {
	value := 0
	for i := 0; i < digits; i++ {
		h := hexDigit(c.Peek(2 + i))
		if h < 0 {
			p.fail(diag.CodeParseError, c.Pos(), "invalid unicode escape: expected %d hex digits", digits)
			return 0, c, false
		}
		value = value*16 + h
	}
	if value >= 0xD800 && value <= 0xDFFF {
		p.fail(diag.CodeParseError, c.Pos(), "unicode escape U+%04X is a surrogate half", value)
		return 0, c, false
	}
	if value > 0x10FFFF {
		p.fail(diag.CodeParseError, c.Pos(), "unicode escape U+%X is not a valid scalar", value)
		return 0, c, false
	}
	return rune(value), c.Advance(2 + digits), true
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

func hexDigit(ch rune) int {
	switch {
	case ch >= '0' && ch <= '9':
		return int(ch - '0')
	case ch >= 'a' && ch <= 'f':
		return int(ch-'a') + 10
	case ch >= 'A' && ch <= 'F':
		return int(ch-'A') + 10
	default:
		return -1
	}
}
