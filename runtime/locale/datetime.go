package locale

import (
	"fmt"
	"strings"
	"time"
)

// DatetimeOptions is the normalized configuration record for datetime
// formatting. Styles follow CLDR naming; an explicit Pattern (CLDR
// symbols) overrides both styles.
type DatetimeOptions struct {
	DateStyle string // short | medium | long | full | ""
	TimeStyle string // short | medium | long | full | ""
	Pattern   string
}

var dateLayouts = map[string]string{
	"short":  "1/2/06",
	"medium": "Jan 2, 2006",
	"long":   "January 2, 2006",
	"full":   "Monday, January 2, 2006",
}

var timeLayouts = map[string]string{
	"short":  "3:04 PM",
	"medium": "3:04:05 PM",
	"long":   "3:04:05 PM MST",
	"full":   "3:04:05 PM MST",
}

// FormatDatetime renders a time value. With neither style nor pattern
// set, the medium date style applies.
func (c *Context) FormatDatetime(value time.Time, opts DatetimeOptions) (string, error) {
	if opts.Pattern != "" {
		layout, err := cldrPatternToLayout(opts.Pattern)
		if err != nil {
			return "", err
		}
		return value.Format(layout), nil
	}

	var parts []string
	if opts.DateStyle != "" {
		layout, ok := dateLayouts[opts.DateStyle]
		if !ok {
			return "", fmt.Errorf("locale: unknown date style %q", opts.DateStyle)
		}
		parts = append(parts, value.Format(layout))
	}
	if opts.TimeStyle != "" {
		layout, ok := timeLayouts[opts.TimeStyle]
		if !ok {
			return "", fmt.Errorf("locale: unknown time style %q", opts.TimeStyle)
		}
		parts = append(parts, value.Format(layout))
	}
	if len(parts) == 0 {
		parts = append(parts, value.Format(dateLayouts["medium"]))
	}
	return strings.Join(parts, ", "), nil
}

// cldrSymbols maps CLDR date field symbols to Go reference layout
// fragments, longest symbol first.
var cldrSymbols = []struct {
	symbol string
	layout string
}{
	{"yyyy", "2006"},
	{"yy", "06"},
	{"y", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"dd", "02"},
	{"d", "2"},
	{"EEEE", "Monday"},
	{"EEE", "Mon"},
	{"HH", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"a", "PM"},
	{"zzz", "MST"},
	{"z", "MST"},
	{"Z", "-0700"},
}

// cldrPatternToLayout translates the supported subset of CLDR date
// pattern symbols to a Go layout. Quoted sections pass through
// verbatim; an unsupported symbol is an error rather than silent
// garbage in user-facing output.
func cldrPatternToLayout(pattern string) (string, error) {
	var sb strings.Builder
	i := 0
	lastSectionEnd := -1
	for i < len(pattern) {
		ch := pattern[i]
		if ch == '\'' {
			// Literal section: 'at' — with '' as an escaped quote, on its
			// own or inside a section ('o''clock').
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				return "", fmt.Errorf("locale: unterminated quote in pattern %q", pattern)
			}
			if end == 0 || i == lastSectionEnd {
				sb.WriteByte('\'')
			}
			sb.WriteString(pattern[i+1 : i+1+end])
			i += end + 2
			if end > 0 {
				lastSectionEnd = i
			}
			continue
		}
		if isPatternLetter(ch) {
			matched := false
			for _, sym := range cldrSymbols {
				if strings.HasPrefix(pattern[i:], sym.symbol) {
					sb.WriteString(sym.layout)
					i += len(sym.symbol)
					matched = true
					break
				}
			}
			if !matched {
				return "", fmt.Errorf("locale: unsupported pattern symbol %q in %q", string(ch), pattern)
			}
			continue
		}
		sb.WriteByte(ch)
		i++
	}
	return sb.String(), nil
}

func isPatternLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
