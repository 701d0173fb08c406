// Package parser implements a streaming, error-recovering parser for
// FTL source. Invalid input never fails the document: unparsable spans
// become ast.Junk entries carrying annotations, and everything after
// them still parses.
//
// The parser is a hand-written recursive descent over an immutable
// Cursor. All navigation returns a new cursor by value, which makes
// backtracking trivially correct and gives every whitespace skipper a
// termination argument: the returned position is never behind the
// input position.
package parser

import "strings"

// Cursor is an immutable position over the normalized source. The rune
// slice is shared between all cursors of one parse; only the position
// differs.
type Cursor struct {
	src []rune
	pos int
}

// NewCursor creates a cursor over already-normalized source text.
func NewCursor(src []rune) Cursor {
	return Cursor{src: src}
}

// NormalizeLineEndings rewrites CR and CRLF to LF. Runs once at parser
// entry so that every later rule only ever sees \n.
func NormalizeLineEndings(source string) string {
	if !strings.ContainsRune(source, '\r') {
		return source
	}
	source = strings.ReplaceAll(source, "\r\n", "\n")
	return strings.ReplaceAll(source, "\r", "\n")
}

// Pos returns the character offset.
func (c Cursor) Pos() int { return c.pos }

// EOF reports whether the cursor is past the last character.
func (c Cursor) EOF() bool { return c.pos >= len(c.src) }

// Current returns the character at the cursor, or 0 at EOF.
func (c Cursor) Current() rune {
	if c.EOF() {
		return 0
	}
	return c.src[c.pos]
}

// Peek returns the character n positions ahead, or 0 past EOF.
func (c Cursor) Peek(n int) rune {
	if c.pos+n >= len(c.src) || c.pos+n < 0 {
		return 0
	}
	return c.src[c.pos+n]
}

// Advance returns a cursor moved n characters forward, clamped to EOF.
func (c Cursor) Advance(n int) Cursor {
	next := c.pos + n
	if next > len(c.src) {
		next = len(c.src)
	}
	return Cursor{src: c.src, pos: next}
}

// SkipSpaces returns a cursor past any run of U+0020. Per the Fluent
// EBNF blank_inline is spaces only — not tabs, not newlines.
func (c Cursor) SkipSpaces() Cursor {
	pos := c.pos
	for pos < len(c.src) && c.src[pos] == ' ' {
		pos++
	}
	return Cursor{src: c.src, pos: pos}
}

// SkipWhitespace returns a cursor past any run of spaces and newlines
// (the Fluent EBNF "blank" production). Tabs are not blank in FTL.
func (c Cursor) SkipWhitespace() Cursor {
	pos := c.pos
	for pos < len(c.src) && (c.src[pos] == ' ' || c.src[pos] == '\n') {
		pos++
	}
	return Cursor{src: c.src, pos: pos}
}

// Slice returns the source text between two offsets.
func (c Cursor) Slice(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(c.src) {
		end = len(c.src)
	}
	if start >= end {
		return ""
	}
	return string(c.src[start:end])
}

// Len returns the total source length in characters.
func (c Cursor) Len() int { return len(c.src) }

// HasPrefix reports whether the source at the cursor starts with s.
func (c Cursor) HasPrefix(s string) bool {
	i := c.pos
	for _, ch := range s {
		if i >= len(c.src) || c.src[i] != ch {
			return false
		}
		i++
	}
	return true
}
