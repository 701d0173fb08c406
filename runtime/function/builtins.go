package function

import (
	"time"

	"github.com/ftllex/ftllex/core/diag"
	"github.com/ftllex/ftllex/runtime/locale"
	"github.com/ftllex/ftllex/runtime/value"
)

// builtinDefinitions is the static metadata table for the three
// always-registered formatting functions: FTL name, backing callable,
// locale requirement, and arity.
func builtinDefinitions() []Definition {
	return []Definition{
		{
			Name:           "NUMBER",
			Callable:       numberFunc,
			RequiresLocale: true,
			PositionalArgs: 1,
			Params: []Param{
				{Name: "minimum_fraction_digits"},
				{Name: "maximum_fraction_digits"},
				{Name: "use_grouping"},
				{Name: "pattern"},
			},
		},
		{
			Name:           "DATETIME",
			Callable:       datetimeFunc,
			RequiresLocale: true,
			PositionalArgs: 1,
			Params: []Param{
				{Name: "date_style"},
				{Name: "time_style"},
				{Name: "pattern"},
			},
		},
		{
			Name:           "CURRENCY",
			Callable:       currencyFunc,
			RequiresLocale: true,
			PositionalArgs: 2,
			Params: []Param{
				{Name: "currency_display"},
				{Name: "pattern"},
			},
		},
	}
}

func numberFunc(ctx *locale.Context, positional []value.Value, named map[string]value.Value) (value.Value, error) {
	num, ok := positional[0].(value.Number)
	if !ok {
		return nil, diag.Errorf(diag.CodeTypeMismatch, "NUMBER expects a numeric value, got %T", positional[0])
	}

	opts := locale.NumberOptions{}
	if v, err := namedInt(named, "minimum_fraction_digits"); err != nil {
		return nil, err
	} else if v != nil {
		opts.MinimumFractionDigits = v
	}
	if v, err := namedInt(named, "maximum_fraction_digits"); err != nil {
		return nil, err
	} else if v != nil {
		opts.MaximumFractionDigits = v
	}
	if v, err := namedBool(named, "use_grouping"); err != nil {
		return nil, err
	} else if v != nil {
		opts.UseGrouping = v
	}
	if v, err := namedString(named, "pattern"); err != nil {
		return nil, err
	} else if v != "" {
		opts.Pattern = v
	}

	formatted, visible := ctx.FormatNumber(num.Dec, opts)
	// Visible precision is capped by an explicit maximumFractionDigits;
	// FormatNumber already applied the cap when choosing digits.
	return value.Number{
		Dec:       num.Dec,
		IsInt:     num.IsInt,
		Precision: visible,
		Formatted: formatted,
	}, nil
}

func datetimeFunc(ctx *locale.Context, positional []value.Value, named map[string]value.Value) (value.Value, error) {
	var when time.Time
	switch v := positional[0].(type) {
	case value.Datetime:
		when = v.Val
	case value.String:
		parsed, err := time.Parse(time.RFC3339, v.Val)
		if err != nil {
			return nil, diag.Errorf(diag.CodeTypeMismatch, "DATETIME cannot parse %q", v.Val)
		}
		when = parsed
	default:
		return nil, diag.Errorf(diag.CodeTypeMismatch, "DATETIME expects a datetime value, got %T", positional[0])
	}

	opts := locale.DatetimeOptions{}
	var err error
	if opts.DateStyle, err = namedStyle(named, "date_style"); err != nil {
		return nil, err
	}
	if opts.TimeStyle, err = namedStyle(named, "time_style"); err != nil {
		return nil, err
	}
	if opts.Pattern, err = namedString(named, "pattern"); err != nil {
		return nil, err
	}

	formatted, err := ctx.FormatDatetime(when, opts)
	if err != nil {
		return nil, diag.Errorf(diag.CodeInvalidArgument, "DATETIME: %v", err)
	}
	return value.String{Val: formatted}, nil
}

func currencyFunc(ctx *locale.Context, positional []value.Value, named map[string]value.Value) (value.Value, error) {
	num, ok := positional[0].(value.Number)
	if !ok {
		return nil, diag.Errorf(diag.CodeTypeMismatch, "CURRENCY expects a numeric value, got %T", positional[0])
	}
	code, ok := positional[1].(value.String)
	if !ok {
		return nil, diag.Errorf(diag.CodeTypeMismatch, "CURRENCY expects a currency code, got %T", positional[1])
	}

	opts := locale.CurrencyOptions{}
	display, err := namedString(named, "currency_display")
	if err != nil {
		return nil, err
	}
	if display != "" {
		opts.Display = locale.CurrencyDisplay(display)
	}
	if opts.Pattern, err = namedString(named, "pattern"); err != nil {
		return nil, err
	}

	formatted, err := ctx.FormatCurrency(num.Dec, code.Val, opts)
	if err != nil {
		return nil, diag.Errorf(diag.CodeInvalidArgument, "CURRENCY: %v", err)
	}
	return value.String{Val: formatted}, nil
}

var validStyles = map[string]bool{"short": true, "medium": true, "long": true, "full": true}

func namedStyle(named map[string]value.Value, key string) (string, error) {
	s, err := namedString(named, key)
	if err != nil {
		return "", err
	}
	if s != "" && !validStyles[s] {
		return "", diag.Errorf(diag.CodeInvalidArgument, "style %q must be one of short, medium, long, full", s)
	}
	return s, nil
}

func namedString(named map[string]value.Value, key string) (string, error) {
	v, ok := named[key]
	if !ok {
		return "", nil
	}
	s, ok := v.(value.String)
	if !ok {
		return "", diag.Errorf(diag.CodeTypeMismatch, "parameter %s expects a string", SnakeToCamel(key))
	}
	return s.Val, nil
}

func namedInt(named map[string]value.Value, key string) (*int, error) {
	v, ok := named[key]
	if !ok {
		return nil, nil
	}
	n, ok := v.(value.Number)
	if !ok || !n.Dec.IsInteger() {
		return nil, diag.Errorf(diag.CodeTypeMismatch, "parameter %s expects an integer", SnakeToCamel(key))
	}
	i := int(n.Dec.IntPart())
	return &i, nil
}

func namedBool(named map[string]value.Value, key string) (*bool, error) {
	v, ok := named[key]
	if !ok {
		return nil, nil
	}
	s, ok := v.(value.String)
	if !ok || (s.Val != "true" && s.Val != "false") {
		return nil, diag.Errorf(diag.CodeTypeMismatch, "parameter %s expects true or false", SnakeToCamel(key))
	}
	b := s.Val == "true"
	return &b, nil
}
