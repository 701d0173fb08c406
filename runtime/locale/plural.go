package locale

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/feature/plural"
)

// PluralCategory is a CLDR plural category name.
type PluralCategory string

// The six CLDR cardinal categories.
const (
	PluralZero  PluralCategory = "zero"
	PluralOne   PluralCategory = "one"
	PluralTwo   PluralCategory = "two"
	PluralFew   PluralCategory = "few"
	PluralMany  PluralCategory = "many"
	PluralOther PluralCategory = "other"
)

// PluralInput is a numeric value with visible precision. Precision
// matters: English "1 star" but "1.0 stars" — CLDR distinguishes via
// the visible-fraction operands.
type PluralInput struct {
	Value decimal.Decimal
	// VisibleFractionDigits is the number of fraction digits shown
	// after formatting, trailing zeros included (the CLDR "v" operand).
	// Negative means "derive from the value's own exponent".
	VisibleFractionDigits int
}

// NaturalPrecision marks a PluralInput without explicit precision.
const NaturalPrecision = -1

// SelectPluralCategory returns the CLDR cardinal category of the input
// under this context's locale. Unknown locales fall back to the CLDR
// root rules, which always answer "other".
func (c *Context) SelectPluralCategory(in PluralInput) PluralCategory {
	i, v, w, f, t := pluralOperands(in)
	form := plural.Cardinal.MatchPlural(c.tag, i, v, w, f, t)
	switch form {
	case plural.Zero:
		return PluralZero
	case plural.One:
		return PluralOne
	case plural.Two:
		return PluralTwo
	case plural.Few:
		return PluralFew
	case plural.Many:
		return PluralMany
	default:
		return PluralOther
	}
}

// SelectPluralCategoryFloat is the float entry point. Non-finite
// values select "other" without error: a NaN count is a caller bug,
// not a reason to fail a translation.
func (c *Context) SelectPluralCategoryFloat(v float64) PluralCategory {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return PluralOther
	}
	return c.SelectPluralCategory(PluralInput{
		Value:                 decimal.NewFromFloat(v),
		VisibleFractionDigits: NaturalPrecision,
	})
}

// pluralOperands derives the CLDR operands:
// i = integer digits, v/w = visible fraction digit counts with and
// without trailing zeros, f/t = the fraction digit values likewise.
func pluralOperands(in PluralInput) (i, v, w, f, t int) {
	abs := in.Value.Abs()

	fracDigits := in.VisibleFractionDigits
	if fracDigits < 0 {
		if exp := abs.Exponent(); exp < 0 {
			fracDigits = int(-exp)
		} else {
			fracDigits = 0
		}
	}
	const maxOperandDigits = 15 // plural rules only inspect low-order digits
	if fracDigits > maxOperandDigits {
		fracDigits = maxOperandDigits
	}

	fixed := abs.StringFixed(int32(fracDigits))
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	if len(intPart) > maxOperandDigits {
		intPart = intPart[len(intPart)-maxOperandDigits:]
	}
	i, _ = strconv.Atoi(intPart)

	v = len(fracPart)
	f, _ = strconv.Atoi(padAtoiSafe(fracPart))
	trimmed := strings.TrimRight(fracPart, "0")
	w = len(trimmed)
	t, _ = strconv.Atoi(padAtoiSafe(trimmed))
	return i, v, w, f, t
}

// padAtoiSafe guards Atoi against empty strings.
func padAtoiSafe(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
