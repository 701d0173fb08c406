package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftllex/ftllex/runtime/parser"
)

func TestLineColBinarySearch(t *testing.T) {
	source := "line1\nline2\nline3"
	lo := parser.NewLineOffsets(source)

	tests := []struct {
		pos  int
		line int
		col  int
	}{
		{0, 0, 0},
		{4, 0, 4},
		{5, 0, 5}, // the newline itself belongs to line 0
		{6, 1, 0},
		{11, 1, 5},
		{12, 2, 0},
		{16, 2, 4},
	}
	for _, tt := range tests {
		line, col := lo.LineCol(tt.pos)
		assert.Equal(t, tt.line, line, "pos %d line", tt.pos)
		assert.Equal(t, tt.col, col, "pos %d col", tt.pos)
	}
}

func TestLineColClamps(t *testing.T) {
	lo := parser.NewLineOffsets("ab")
	line, col := lo.LineCol(-5)
	assert.Equal(t, 0, line)
	assert.Equal(t, 0, col)

	line, col = lo.LineCol(99)
	assert.Equal(t, 0, line)
	assert.Equal(t, 2, col)
}

func TestFormatPosition(t *testing.T) {
	lo := parser.NewLineOffsets("hello\nworld")
	assert.Equal(t, "1:0", lo.FormatPosition(6, false))
	assert.Equal(t, "2:1", lo.FormatPosition(6, true))
}

func TestLineContent(t *testing.T) {
	lo := parser.NewLineOffsets("hello\nworld\ntest")
	content, err := lo.LineContent(1)
	require.NoError(t, err)
	assert.Equal(t, "world", content)

	_, err = lo.LineContent(9)
	assert.Error(t, err)
	_, err = lo.LineContent(-1)
	assert.Error(t, err)
}

func TestErrorContext(t *testing.T) {
	source := "line1\nline2\nerror here\nline4\nline5"
	lo := parser.NewLineOffsets(source)

	got := lo.ErrorContext(12, 1)
	assert.Equal(t, "line2\nerror here\n^\nline4", got)
}
