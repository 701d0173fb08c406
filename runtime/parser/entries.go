package parser

import (
	"strings"

	"github.com/ftllex/ftllex/core/ast"
	"github.com/ftllex/ftllex/core/diag"
	"github.com/ftllex/ftllex/core/ident"
)

// parseResource drives the entry loop: skip blank, dispatch on the
// first character of the line, recover to junk when a rule fails.
func (p *parser) parseResource() *ast.Resource {
	c := NewCursor(p.src)
	var entries []ast.Entry
	var lastComment *ast.Comment // candidate for attachment / merging

	flushComment := func() {
		if lastComment != nil {
			entries = append(entries, lastComment)
			lastComment = nil
		}
	}

	for {
		c = skipBlankBlock(c)
		if c.EOF() {
			break
		}

		switch {
		case c.Current() == '#':
			comment, next, ok := p.parseComment(c)
			if !ok {
				flushComment()
				var junk *ast.Junk
				junk, c = p.recoverJunk(c)
				entries = append(entries, junk)
				continue
			}
			if lastComment != nil && lastComment.Kind == comment.Kind &&
				!blankLineBetween(c, lastComment.Span, comment.Span) {
				lastComment = mergeComments(lastComment, comment)
			} else {
				flushComment()
				lastComment = comment
			}
			c = next

		case c.Current() == '-' && ident.IsStart(c.Peek(1)):
			term, next, ok := p.parseTerm(c)
			if !ok {
				flushComment()
				var junk *ast.Junk
				junk, c = p.recoverJunk(c)
				entries = append(entries, junk)
				continue
			}
			term.Comment = p.attachable(lastComment, c, term.Span)
			if term.Comment != nil {
				lastComment = nil
			}
			flushComment()
			entries = append(entries, term)
			c = next

		case ident.IsStart(c.Current()):
			msg, next, ok := p.parseMessage(c)
			if !ok {
				flushComment()
				var junk *ast.Junk
				junk, c = p.recoverJunk(c)
				entries = append(entries, junk)
				continue
			}
			msg.Comment = p.attachable(lastComment, c, msg.Span)
			if msg.Comment != nil {
				lastComment = nil
			}
			flushComment()
			entries = append(entries, msg)
			c = next

		default:
			p.fail(diag.CodeParseError, c.Pos(), "unexpected character %q at start of entry", string(c.Current()))
			flushComment()
			var junk *ast.Junk
			junk, c = p.recoverJunk(c)
			entries = append(entries, junk)
		}
	}
	flushComment()

	return &ast.Resource{
		Entries: entries,
		Span:    &ast.Span{Start: 0, End: len(p.src)},
	}
}

// skipBlankBlock advances past newlines and lines containing only
// spaces, stopping at the first line with content. Leading spaces of a
// content line are left in place so entry dispatch sees them as junk —
// top-level entries must start at the line start.
func skipBlankBlock(c Cursor) Cursor {
	for {
		lineStart := c
		inline := c.SkipSpaces()
		if inline.EOF() {
			return inline
		}
		if inline.Current() == '\n' {
			c = inline.Advance(1)
			continue
		}
		// Content found. Indented content at top level stops at the line
		// start too, so the dispatcher junks it with the full line.
		return lineStart
	}
}

// attachable decides whether the pending standalone comment belongs to
// the entry that follows it. Only "#" comments attach, and only when
// no blank line separates them from the entry.
func (p *parser) attachable(comment *ast.Comment, c Cursor, entrySpan *ast.Span) *ast.Comment {
	if comment == nil || comment.Kind != ast.CommentStandalone {
		return nil
	}
	if blankLineBetween(c, comment.Span, entrySpan) {
		return nil
	}
	return comment
}

// blankLineBetween reports whether the span gap between two nodes
// contains a blank line: a newline followed, possibly after spaces, by
// another newline.
func blankLineBetween(c Cursor, before, after *ast.Span) bool {
	if before == nil || after == nil || before.End >= after.Start {
		return false
	}
	gap := c.Slice(before.End, after.Start)
	seenNewline := false
	for _, ch := range gap {
		switch ch {
		case '\n':
			if seenNewline {
				return true
			}
			seenNewline = true
		case ' ':
			// spaces between newlines keep a line blank
		default:
			seenNewline = false
		}
	}
	return false
}

// parseComment consumes one comment line run of a single kind:
// "#", "##", or "###", each followed by a space or end of line.
func (p *parser) parseComment(c Cursor) (*ast.Comment, Cursor, bool) {
	start := c.Pos()
	level := 0
	for c.Peek(level) == '#' {
		level++
	}
	if level > 3 {
		p.fail(diag.CodeParseError, start, "too many comment sigils")
		return nil, c, false
	}
	var kind ast.CommentKind
	switch level {
	case 1:
		kind = ast.CommentStandalone
	case 2:
		kind = ast.CommentGroup
	default:
		kind = ast.CommentResource
	}
	sigil := strings.Repeat("#", level)

	var lines []string
	cur := c
	lastEnd := c.Pos()
	// Consume consecutive lines with exactly the same sigil; a deeper or
	// shallower sigil starts a different comment.
	for cur.HasPrefix(sigil) && cur.Peek(level) != '#' {
		lineCur := cur.Advance(level)
		if lineCur.Current() == ' ' {
			lineCur = lineCur.Advance(1)
		} else if !lineCur.EOF() && lineCur.Current() != '\n' {
			// "#text" without the separating space is not a comment.
			if len(lines) > 0 {
				break
			}
			p.fail(diag.CodeParseError, cur.Pos(), "expected space after comment sigil")
			return nil, c, false
		}
		lineStart := lineCur.Pos()
		lineCur = skipToLineEnd(lineCur)
		lines = append(lines, lineCur.Slice(lineStart, lineCur.Pos()))
		lastEnd = lineCur.Pos()
		cur = lineCur
		if !cur.EOF() {
			cur = cur.Advance(1) // the newline
		}
	}

	return &ast.Comment{
		Content: strings.Join(lines, "\n"),
		Kind:    kind,
		Span:    &ast.Span{Start: start, End: lastEnd},
	}, cur, true
}

// mergeComments joins two adjacent comments of the same kind into one
// node spanning both.
func mergeComments(a, b *ast.Comment) *ast.Comment {
	return &ast.Comment{
		Content: a.Content + "\n" + b.Content,
		Kind:    a.Kind,
		Span:    &ast.Span{Start: a.Span.Start, End: b.Span.End},
	}
}

// parseMessage consumes "id = pattern" plus attribute lines.
func (p *parser) parseMessage(c Cursor) (*ast.Message, Cursor, bool) {
	start := c.Pos()
	id, cur, ok := p.parseIdentifier(c)
	if !ok {
		return nil, c, false
	}
	cur = cur.SkipSpaces()
	if cur.Current() != '=' {
		p.fail(diag.CodeParseError, cur.Pos(), `expected "=" after message identifier %q`, id.Name)
		return nil, c, false
	}
	cur = cur.Advance(1)

	ctx := parseContext{maxNestingDepth: p.cfg.maxNestingDepth}
	value, cur, ok := p.parsePattern(cur, ctx)
	if !ok {
		return nil, c, false
	}
	attrs, cur, ok := p.parseAttributes(cur, ctx)
	if !ok {
		return nil, c, false
	}
	if value == nil && len(attrs) == 0 {
		p.fail(diag.CodeParseError, start, "message %q has neither a value nor attributes", id.Name)
		return nil, c, false
	}
	return &ast.Message{
		ID:         id,
		Value:      value,
		Attributes: attrs,
		Span:       &ast.Span{Start: start, End: cur.Pos()},
	}, cur, true
}

// parseTerm consumes "-id = pattern" plus attribute lines. The grammar
// accepts a term without a value so the validator can report
// TERM_WITHOUT_VALUE with precise context; a missing "=" is still a
// parse failure.
func (p *parser) parseTerm(c Cursor) (*ast.Term, Cursor, bool) {
	start := c.Pos()
	cur := c.Advance(1) // '-'
	id, cur, ok := p.parseIdentifier(cur)
	if !ok {
		return nil, c, false
	}
	cur = cur.SkipSpaces()
	if cur.Current() != '=' {
		p.fail(diag.CodeParseError, cur.Pos(), `expected "=" after term identifier "-%s"`, id.Name)
		return nil, c, false
	}
	cur = cur.Advance(1)

	ctx := parseContext{maxNestingDepth: p.cfg.maxNestingDepth}
	value, cur, ok := p.parsePattern(cur, ctx)
	if !ok {
		return nil, c, false
	}
	attrs, cur, ok := p.parseAttributes(cur, ctx)
	if !ok {
		return nil, c, false
	}
	if value == nil && len(attrs) == 0 {
		p.fail(diag.CodeParseError, start, "term \"-%s\" has neither a value nor attributes", id.Name)
		return nil, c, false
	}
	return &ast.Term{
		ID:         id,
		Value:      value,
		Attributes: attrs,
		Span:       &ast.Span{Start: start, End: cur.Pos()},
	}, cur, true
}

// parseAttributes consumes ".attr = pattern" lines following an entry
// value. Attributes are recognized by a newline, indentation, and a
// dot before an identifier.
func (p *parser) parseAttributes(c Cursor, ctx parseContext) ([]*ast.Attribute, Cursor, bool) {
	var attrs []*ast.Attribute
	cur := c
	for {
		if cur.EOF() || cur.Current() != '\n' {
			return attrs, cur, true
		}
		look := cur.Advance(1).SkipSpaces()
		if look.Current() != '.' || !ident.IsStart(look.Peek(1)) {
			return attrs, cur, true
		}
		attrStart := look.Pos()
		inner := look.Advance(1)
		id, inner, ok := p.parseIdentifier(inner)
		if !ok {
			return nil, c, false
		}
		inner = inner.SkipSpaces()
		if inner.Current() != '=' {
			p.fail(diag.CodeParseError, inner.Pos(), `expected "=" after attribute ".%s"`, id.Name)
			return nil, c, false
		}
		inner = inner.Advance(1)
		value, inner, ok := p.parsePattern(inner, ctx)
		if !ok {
			return nil, c, false
		}
		if value == nil {
			p.fail(diag.CodeParseError, attrStart, "attribute .%s has no value", id.Name)
			return nil, c, false
		}
		attrs = append(attrs, &ast.Attribute{
			ID:    id,
			Value: value,
			Span:  &ast.Span{Start: attrStart, End: inner.Pos()},
		})
		cur = inner
	}
}

// recoverJunk implements the Fluent junk rule: consume the first
// invalid line, then keep consuming lines until one starts with "#",
// "-", or an ASCII letter. The recorded parse error becomes the junk
// annotation.
func (p *parser) recoverJunk(c Cursor) (*ast.Junk, Cursor) {
	start := c.Pos()
	annotation := p.takeErr(start)

	cur := c
	// Always consume the first line.
	cur = skipToLineEnd(cur)
	for !cur.EOF() {
		cur = cur.Advance(1) // the newline
		ch := cur.Current()
		if ch == '#' || ch == '-' || ident.IsStart(ch) {
			break
		}
		if cur.EOF() {
			break
		}
		cur = skipToLineEnd(cur)
	}

	return &ast.Junk{
		Content:     cur.Slice(start, cur.Pos()),
		Annotations: []ast.Annotation{annotation},
		Span:        &ast.Span{Start: start, End: cur.Pos()},
	}, cur
}

func skipToLineEnd(c Cursor) Cursor {
	for !c.EOF() && c.Current() != '\n' {
		c = c.Advance(1)
	}
	return c
}
