// Package value defines the closed FluentValue sum type that crosses
// the resolver boundary. Caller-supplied Go values of arbitrary type
// are converted here once, at ingest; past this point the engine only
// ever sees these variants and never reaches for reflection.
package value

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Value is a resolved FTL value.
type Value interface {
	value()
	// String returns a locale-independent rendering used for selector
	// matching and fallbacks. Locale-aware rendering happens in the
	// resolver via the locale context.
	String() string
}

// String is a plain text value.
type String struct {
	Val string
}

func (String) value()           {}
func (s String) String() string { return s.Val }

// NaturalPrecision marks a number whose visible fraction digits follow
// from the value itself.
const NaturalPrecision = -1

// Number is a numeric value. IsInt records whether the caller supplied
// an integer; Precision is the visible fraction digit count once
// known (set after formatting, consumed by plural selection).
type Number struct {
	Dec       decimal.Decimal
	IsInt     bool
	Precision int
	// Formatted carries an already locale-formatted rendering produced
	// by the NUMBER builtin, so explicit formatting options survive
	// interpolation.
	Formatted string
}

func (Number) value() {}

func (n Number) String() string {
	if n.Formatted != "" {
		return n.Formatted
	}
	return n.Dec.String()
}

// Datetime is a point in time.
type Datetime struct {
	Val time.Time
}

func (Datetime) value()           {}
func (d Datetime) String() string { return d.Val.Format(time.RFC3339) }

// From converts a caller-supplied Go value into the closed sum type.
// Booleans become the strings "true"/"false". The ok result is false
// for types outside the supported set; the caller is expected to emit
// a TYPE_MISMATCH diagnostic and fall back.
func From(v any) (Value, bool) {
	switch t := v.(type) {
	case Value:
		return t, true
	case string:
		return String{Val: t}, true
	case bool:
		// Lowercase, stable, locale-independent.
		if t {
			return String{Val: "true"}, true
		}
		return String{Val: "false"}, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return Number{Dec: decimal.NewFromInt(cast.ToInt64(t)), IsInt: true, Precision: NaturalPrecision}, true
	case uint64:
		return Number{Dec: decimal.NewFromUint64(t), IsInt: true, Precision: NaturalPrecision}, true
	case float32:
		return fromFloat(float64(t))
	case float64:
		return fromFloat(t)
	case decimal.Decimal:
		return Number{Dec: t, Precision: NaturalPrecision}, true
	case time.Time:
		return Datetime{Val: t}, true
	case fmt.Stringer:
		return String{Val: t.String()}, true
	default:
		return nil, false
	}
}

// fromFloat keeps non-finite floats out of the decimal domain; they
// surface as their conventional spellings and select plural "other".
func fromFloat(f float64) (Value, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return String{Val: fmt.Sprintf("%v", f)}, true
	}
	return Number{Dec: decimal.NewFromFloat(f), Precision: NaturalPrecision}, true
}
