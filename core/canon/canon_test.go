package canon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftllex/ftllex/core/canon"
)

func TestEncodeDeterministic(t *testing.T) {
	input := map[string]any{"b": 2, "a": 1, "c": []any{"x", "y"}}

	first, err := canon.Encode(input)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := canon.Encode(map[string]any{"c": []any{"x", "y"}, "a": 1, "b": 2})
		require.NoError(t, err)
		assert.Equal(t, first, again, "run %d", i)
	}
}

func TestHashDistinguishesValues(t *testing.T) {
	a, err := canon.Hash([]any{"int", 1})
	require.NoError(t, err)
	b, err := canon.Hash([]any{"int", 2})
	require.NoError(t, err)
	c, err := canon.Hash([]any{"bool", true})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, b, c)
}

func TestHashStable(t *testing.T) {
	d1, err := canon.Hash([]any{"str", "hello"})
	require.NoError(t, err)
	d2, err := canon.Hash([]any{"str", "hello"})
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.False(t, d1.IsZero())
	assert.Len(t, d1.String(), canon.DigestSize*2)
}

func TestHashBytes(t *testing.T) {
	d := canon.HashBytes([]byte("payload"))
	assert.Equal(t, d, canon.HashBytes([]byte("payload")))
	assert.NotEqual(t, d, canon.HashBytes([]byte("payload2")))
}
