package parser

// isIndentedContinuation reports whether the newline at the cursor is
// followed by an indented pattern continuation line.
//
// Continuation lines start with at least one space. Lines whose first
// non-space character is '[', '*', '.', or '}' are not continuations:
// they open variants, default variants, attributes, or close a
// placeable.
func isIndentedContinuation(c Cursor) bool {
	if c.EOF() || c.Current() != '\n' {
		return false
	}

	// Pattern values may have blank lines before the indented content:
	//   msg =
	//
	//       value
	next := c.Advance(1)
	for !next.EOF() && next.Current() == '\n' {
		next = next.Advance(1)
	}

	if next.EOF() || next.Current() != ' ' {
		return false
	}
	next = next.SkipSpaces()
	if next.EOF() {
		return false
	}
	switch next.Current() {
	case '[', '*', '.', '}':
		return false
	}
	return true
}

// skipMultilinePatternStart positions the cursor at the start of a
// pattern's content after '='. For inline patterns it skips the spaces
// on the same line and returns indent 0. For multiline patterns it
// skips the newline(s) and the leading indentation of the first
// content line, returning that indentation as the pattern's common
// indent.
func skipMultilinePatternStart(c Cursor) (Cursor, int) {
	c = c.SkipSpaces()

	if !c.EOF() && c.Current() == '\n' && isIndentedContinuation(c) {
		c = c.Advance(1)
		for !c.EOF() && c.Current() == '\n' {
			c = c.Advance(1)
		}
		indent := 0
		for !c.EOF() && c.Current() == ' ' {
			indent++
			c = c.Advance(1)
		}
		return c, indent
	}
	return c, 0
}

// lineStartsVariant checks, from a newline, whether the next line is a
// variant marker rather than a pattern continuation. The lookahead
// skips the common indent's worth of spaces, then any further
// indentation, and checks for "[" or "*[": a line whose first
// non-space character is '[' reads as a marker at any indentation.
func lineStartsVariant(c Cursor, commonIndent int) bool {
	if c.EOF() || c.Current() != '\n' {
		return false
	}
	next := c.Advance(1)
	for i := 0; i < commonIndent && !next.EOF() && next.Current() == ' '; i++ {
		next = next.Advance(1)
	}
	// Variant markers may be indented deeper than the pattern's common
	// indent; skip the remainder of the line's indentation too.
	next = next.SkipSpaces()
	if next.Current() == '[' {
		return true
	}
	return next.Current() == '*' && next.Peek(1) == '['
}
