package locale

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// CurrencyDisplay selects how the currency is written.
type CurrencyDisplay string

// Supported display modes.
const (
	CurrencyDisplaySymbol CurrencyDisplay = "symbol"
	CurrencyDisplayCode   CurrencyDisplay = "code"
	CurrencyDisplayName   CurrencyDisplay = "name"
)

// CurrencyOptions is the normalized configuration record for currency
// formatting.
type CurrencyOptions struct {
	Display CurrencyDisplay // default: symbol
	Pattern string
}

// FormatCurrency renders a monetary amount. The fraction digit count
// comes from the ISO 4217 table, never from CLDR: financial rounding
// is specified against ISO minor units.
func (c *Context) FormatCurrency(value decimal.Decimal, code string, opts CurrencyOptions) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("locale: unknown currency %q", code)
	}

	digits := ISO4217Decimals(code)
	numOpts := NumberOptions{
		MinimumFractionDigits: &digits,
		MaximumFractionDigits: &digits,
	}
	if opts.Pattern != "" {
		numOpts.Pattern = opts.Pattern
		numOpts.MinimumFractionDigits = nil
		numOpts.MaximumFractionDigits = nil
	}
	amount, _ := c.FormatNumber(value, numOpts)

	display := opts.Display
	if display == "" {
		display = CurrencyDisplaySymbol
	}
	switch display {
	case CurrencyDisplaySymbol:
		symbol, prefix := c.currencySymbol(unit)
		if prefix {
			return symbol + amount, nil
		}
		return amount + " " + symbol, nil
	case CurrencyDisplayCode:
		return code + " " + amount, nil
	case CurrencyDisplayName:
		return amount + " " + ISO4217Name(code), nil
	default:
		return "", fmt.Errorf("locale: unknown currency display %q", display)
	}
}

// currencySymbol probes the locale's rendering of the unit to extract
// its symbol and placement, instead of shipping a private symbol
// table. Locales without a distinct symbol fall back to the ISO code.
func (c *Context) currencySymbol(unit currency.Unit) (symbol string, prefix bool) {
	probe := c.printer.Sprint(currency.Symbol(unit.Amount(0)))
	// The probe looks like "$0.00", "0,00 €", or "JPY 0".
	firstDigit := strings.IndexFunc(probe, func(r rune) bool { return r >= '0' && r <= '9' })
	if firstDigit > 0 {
		sym := strings.TrimSpace(probe[:firstDigit])
		if sym != "" {
			return sym, true
		}
	}
	lastDigit := strings.LastIndexFunc(probe, func(r rune) bool { return r >= '0' && r <= '9' })
	if lastDigit >= 0 && lastDigit+1 < len(probe) {
		sym := strings.TrimSpace(probe[lastDigit+1:])
		if sym != "" {
			return sym, false
		}
	}
	return unit.String(), true
}
