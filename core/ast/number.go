package ast

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// NumberValue holds a parsed number literal. Integers without a
// fractional part stay int64; anything with a fraction becomes an
// arbitrary-precision decimal. Binary floats are never used — IEEE 754
// rounding would break serializer roundtrips and financial formatting.
type NumberValue struct {
	isDecimal bool
	intVal    int64
	decVal    decimal.Decimal
}

// IntValue wraps an integer literal value.
func IntValue(v int64) NumberValue {
	return NumberValue{intVal: v}
}

// DecimalValue wraps an arbitrary-precision decimal literal value.
func DecimalValue(v decimal.Decimal) NumberValue {
	return NumberValue{isDecimal: true, decVal: v}
}

// IsDecimal reports whether the value carries a fractional part.
func (n NumberValue) IsDecimal() bool { return n.isDecimal }

// Int returns the integer value; only meaningful when !IsDecimal().
func (n NumberValue) Int() int64 { return n.intVal }

// Decimal returns the value as a decimal regardless of kind.
func (n NumberValue) Decimal() decimal.Decimal {
	if n.isDecimal {
		return n.decVal
	}
	return decimal.NewFromInt(n.intVal)
}

// String renders the value without loss.
func (n NumberValue) String() string {
	if n.isDecimal {
		return n.decVal.String()
	}
	return strconv.FormatInt(n.intVal, 10)
}

// Equal reports numeric equality within the same kind. An int and a
// decimal never compare equal even when numerically identical; variant
// matching and cache keys both rely on the distinction.
func (n NumberValue) Equal(other NumberValue) bool {
	if n.isDecimal != other.isDecimal {
		return false
	}
	if n.isDecimal {
		return n.decVal.Equal(other.decVal)
	}
	return n.intVal == other.intVal
}
