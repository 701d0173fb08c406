package parser

import (
	"fmt"
	"sort"
	"strings"
)

// LineOffsets caches the newline positions of a source string so that
// offset → (line, column) queries run in O(log N).
type LineOffsets struct {
	source   string
	newlines []int // offsets of every '\n', ascending
}

// NewLineOffsets scans source (assumed LF-normalized) once.
func NewLineOffsets(source string) *LineOffsets {
	var newlines []int
	for i, ch := range []rune(source) {
		if ch == '\n' {
			newlines = append(newlines, i)
		}
	}
	return &LineOffsets{source: source, newlines: newlines}
}

// LineCol returns the 0-based line and column for a character offset.
// Offsets past the end clamp to the final position.
func (lo *LineOffsets) LineCol(pos int) (line, col int) {
	if pos < 0 {
		pos = 0
	}
	if n := len([]rune(lo.source)); pos > n {
		pos = n
	}
	// Number of newlines strictly before pos.
	line = sort.SearchInts(lo.newlines, pos)
	if line == 0 {
		return 0, pos
	}
	return line, pos - lo.newlines[line-1] - 1
}

// FormatPosition renders "line:col". With oneBased, both components
// are shifted to 1-based for human display.
func (lo *LineOffsets) FormatPosition(pos int, oneBased bool) string {
	line, col := lo.LineCol(pos)
	if oneBased {
		line++
		col++
	}
	return fmt.Sprintf("%d:%d", line, col)
}

// LineContent returns the text of the 0-based line, without the
// trailing newline.
func (lo *LineOffsets) LineContent(line int) (string, error) {
	lines := strings.Split(lo.source, "\n")
	if line < 0 || line >= len(lines) {
		return "", fmt.Errorf("parser: line %d out of range (source has %d lines)", line, len(lines))
	}
	return lines[line], nil
}

// ErrorContext renders the error position with surrounding lines and a
// caret marker, for diagnostics output:
//
//	line2
//	error here
//	^
//	line4
func (lo *LineOffsets) ErrorContext(pos, contextLines int) string {
	line, col := lo.LineCol(pos)
	lines := strings.Split(lo.source, "\n")

	start := line - contextLines
	if start < 0 {
		start = 0
	}
	end := line + contextLines + 1
	if end > len(lines) {
		end = len(lines)
	}

	var out []string
	for i := start; i < end; i++ {
		out = append(out, lines[i])
		if i == line {
			out = append(out, strings.Repeat(" ", col)+"^")
		}
	}
	return strings.Join(out, "\n")
}
