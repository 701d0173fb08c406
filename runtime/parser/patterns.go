package parser

import (
	"strings"

	"github.com/ftllex/ftllex/core/ast"
	"github.com/ftllex/ftllex/core/diag"
)

// parsePattern consumes a pattern after "=" or a variant key. Returns
// a nil pattern (ok=true) when the pattern is empty; callers decide
// whether that is allowed in their position.
//
// Multiline handling: the first continuation line establishes the
// common indent, and each subsequent continuation line strips exactly
// that many leading spaces. Whatever is indented further is text.
func (p *parser) parsePattern(c Cursor, ctx parseContext) (*ast.Pattern, Cursor, bool) {
	cur, commonIndent := skipMultilinePatternStart(c)
	start := cur.Pos()

	var elements []ast.PatternElement
	var text strings.Builder
	textStart := cur.Pos()

	flushText := func(end int) {
		if text.Len() > 0 {
			elements = append(elements, &ast.TextElement{
				Value: text.String(),
				Span:  &ast.Span{Start: textStart, End: end},
			})
			text.Reset()
		}
	}

scan:
	for !cur.EOF() {
		switch cur.Current() {
		case '\n':
			if !isIndentedContinuation(cur) {
				break scan
			}
			cur = cur.Advance(1)
			// Interior blank lines are part of the value.
			for !cur.EOF() && cur.Current() == '\n' {
				text.WriteByte('\n')
				cur = cur.Advance(1)
			}
			if commonIndent == 0 {
				// Inline-start pattern meeting its first continuation
				// line: that line sets the common indent.
				indent := 0
				for cur.Current() == ' ' {
					indent++
					cur = cur.Advance(1)
				}
				commonIndent = indent
			} else {
				for i := 0; i < commonIndent && cur.Current() == ' '; i++ {
					cur = cur.Advance(1)
				}
			}
			text.WriteByte('\n')
		case '{':
			flushText(cur.Pos())
			placeable, next, ok := p.parsePlaceable(cur, ctx)
			if !ok {
				return nil, c, false
			}
			elements = append(elements, placeable)
			cur = next
			textStart = cur.Pos()
		case '}':
			p.fail(diag.CodeParseError, cur.Pos(), `unbalanced "}" in pattern`)
			return nil, c, false
		default:
			text.WriteRune(cur.Current())
			cur = cur.Advance(1)
		}
	}
	flushText(cur.Pos())

	if len(elements) == 0 {
		return nil, cur, true
	}

	// Trailing inline whitespace after the last text run is layout, not
	// content.
	if last, isText := elements[len(elements)-1].(*ast.TextElement); isText {
		trimmed := strings.TrimRight(last.Value, " \n")
		if trimmed == "" {
			elements = elements[:len(elements)-1]
		} else if trimmed != last.Value {
			elements[len(elements)-1] = &ast.TextElement{Value: trimmed, Span: last.Span}
		}
	}
	if len(elements) == 0 {
		return nil, cur, true
	}

	return ast.NewPattern(elements, &ast.Span{Start: start, End: cur.Pos()}), cur, true
}
