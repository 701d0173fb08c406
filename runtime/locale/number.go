package locale

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/number"
)

// NumberOptions is the normalized configuration record for number
// formatting. Nil pointer fields mean "not specified".
type NumberOptions struct {
	MinimumFractionDigits *int
	MaximumFractionDigits *int
	UseGrouping           *bool
	Pattern               string
}

const maxFormatDigits = 30

// FormatNumber renders a decimal for this locale. It returns the
// formatted string and the number of visible fraction digits, which
// feeds plural selection: "1.0" must select like one-point-zero, not
// like one.
func (c *Context) FormatNumber(value decimal.Decimal, opts NumberOptions) (string, int) {
	minFrac, maxFrac, grouping := c.resolveNumberOptions(value, opts)

	digits := naturalFractionDigits(value)
	if digits < minFrac {
		digits = minFrac
	}
	if digits > maxFrac {
		digits = maxFrac
	}

	formatted := c.renderDecimal(value, digits, minFrac, maxFrac)
	if !grouping {
		if groupSep, _ := c.separators(); groupSep != "" {
			formatted = strings.ReplaceAll(formatted, groupSep, "")
		}
	}
	return formatted, digits
}

// resolveNumberOptions folds the explicit options and the pattern into
// concrete bounds.
func (c *Context) resolveNumberOptions(value decimal.Decimal, opts NumberOptions) (minFrac, maxFrac int, grouping bool) {
	minFrac = 0
	maxFrac = maxFormatDigits
	grouping = true

	if opts.Pattern != "" {
		pMin, pMax, pGroup := parseNumberPattern(opts.Pattern)
		minFrac, maxFrac, grouping = pMin, pMax, pGroup
	}
	if opts.MinimumFractionDigits != nil {
		minFrac = clampDigits(*opts.MinimumFractionDigits)
	}
	if opts.MaximumFractionDigits != nil {
		maxFrac = clampDigits(*opts.MaximumFractionDigits)
	}
	if maxFrac < minFrac {
		maxFrac = minFrac
	}
	if opts.UseGrouping != nil {
		grouping = *opts.UseGrouping
	}
	return minFrac, maxFrac, grouping
}

func clampDigits(n int) int {
	if n < 0 {
		return 0
	}
	if n > maxFormatDigits {
		return maxFormatDigits
	}
	return n
}

func naturalFractionDigits(value decimal.Decimal) int {
	if exp := value.Exponent(); exp < 0 {
		return int(-exp)
	}
	return 0
}

// renderDecimal formats through the locale's printer when the value
// survives a float64 trip exactly; otherwise it falls back to exact
// manual rendering with the locale's separators so arbitrary-precision
// values never lose digits.
func (c *Context) renderDecimal(value decimal.Decimal, digits, minFrac, maxFrac int) string {
	f, _ := value.Float64()
	if !math.IsInf(f, 0) && !math.IsNaN(f) && decimal.NewFromFloat(f).Equal(value) {
		return c.printer.Sprint(number.Decimal(f,
			number.MinFractionDigits(digits),
			number.MaxFractionDigits(digits),
		))
	}

	fixed := value.StringFixed(int32(digits))
	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	groupSep, decSep := c.separators()
	grouped := groupThousands(intPart, groupSep)

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	sb.WriteString(grouped)
	if fracPart != "" {
		sb.WriteString(decSep)
		sb.WriteString(fracPart)
	}
	return sb.String()
}

func groupThousands(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)
	return strings.Join(parts, sep)
}

// parseNumberPattern reads the fraction part of a "#,##0.00"-style
// pattern: zeros are required digits, hashes optional, a comma in the
// integer part turns grouping on.
func parseNumberPattern(pattern string) (minFrac, maxFrac int, grouping bool) {
	intPart, fracPart, hasFrac := strings.Cut(pattern, ".")
	grouping = strings.Contains(intPart, ",")
	if !hasFrac {
		return 0, 0, grouping
	}
	for _, ch := range fracPart {
		switch ch {
		case '0':
			minFrac++
			maxFrac++
		case '#':
			maxFrac++
		}
	}
	return clampDigits(minFrac), clampDigits(maxFrac), grouping
}
