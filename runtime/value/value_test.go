package value_test

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftllex/ftllex/runtime/value"
)

func TestFromStrings(t *testing.T) {
	v, ok := value.From("hello")
	require.True(t, ok)
	assert.Equal(t, value.String{Val: "hello"}, v)
}

func TestFromBools(t *testing.T) {
	v, ok := value.From(true)
	require.True(t, ok)
	assert.Equal(t, "true", v.String())

	v, ok = value.From(false)
	require.True(t, ok)
	assert.Equal(t, "false", v.String())
}

func TestFromIntegers(t *testing.T) {
	v, ok := value.From(42)
	require.True(t, ok)
	num := v.(value.Number)
	assert.True(t, num.IsInt)
	assert.Equal(t, "42", num.String())

	v, ok = value.From(uint64(math.MaxUint64))
	require.True(t, ok)
	assert.Equal(t, "18446744073709551615", v.String())
}

func TestFromFloats(t *testing.T) {
	v, ok := value.From(2.5)
	require.True(t, ok)
	num := v.(value.Number)
	assert.False(t, num.IsInt)
	assert.Equal(t, "2.5", num.String())
}

func TestFromNonFiniteFloats(t *testing.T) {
	v, ok := value.From(math.NaN())
	require.True(t, ok)
	assert.Equal(t, "NaN", v.String())

	v, ok = value.From(math.Inf(1))
	require.True(t, ok)
	assert.Equal(t, "+Inf", v.String())
}

func TestFromDecimalPreservesPrecision(t *testing.T) {
	d := decimal.RequireFromString("123456789123456789.123456789")
	v, ok := value.From(d)
	require.True(t, ok)
	assert.Equal(t, "123456789123456789.123456789", v.String())
}

func TestFromTime(t *testing.T) {
	when := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	v, ok := value.From(when)
	require.True(t, ok)
	assert.Equal(t, value.Datetime{Val: when}, v)
}

func TestFromValuePassthrough(t *testing.T) {
	orig := value.String{Val: "x"}
	v, ok := value.From(orig)
	require.True(t, ok)
	assert.Equal(t, orig, v)
}

type stringish struct{}

func (stringish) String() string { return "stringered" }

func TestFromStringer(t *testing.T) {
	v, ok := value.From(stringish{})
	require.True(t, ok)
	assert.Equal(t, "stringered", v.String())
}

func TestFromUnsupported(t *testing.T) {
	_, ok := value.From(struct{ X int }{1})
	assert.False(t, ok)

	_, ok = value.From([]string{"a"})
	assert.False(t, ok)
}

func TestNumberFormattedOverridesDefault(t *testing.T) {
	n := value.Number{Dec: decimal.NewFromInt(1000), IsInt: true, Formatted: "1,000"}
	assert.Equal(t, "1,000", n.String())
}
