package ast

import "strings"

// NewPattern builds a pattern from elements, merging adjacent text
// elements and dropping empty ones. The parser and programmatic
// constructors both go through here so the "no empty text, no adjacent
// text" invariant holds everywhere.
func NewPattern(elements []PatternElement, span *Span) *Pattern {
	merged := make([]PatternElement, 0, len(elements))
	var textRun []string
	var runSpan *Span

	flush := func() {
		if len(textRun) == 0 {
			return
		}
		value := strings.Join(textRun, "")
		if value != "" {
			merged = append(merged, &TextElement{Value: value, Span: runSpan})
		}
		textRun = nil
		runSpan = nil
	}

	for _, el := range elements {
		switch v := el.(type) {
		case *TextElement:
			if v.Value == "" {
				continue
			}
			if runSpan == nil {
				runSpan = v.Span
			} else if v.Span != nil {
				runSpan = &Span{Start: runSpan.Start, End: v.Span.End}
			}
			textRun = append(textRun, v.Value)
		default:
			flush()
			merged = append(merged, el)
		}
	}
	flush()

	return &Pattern{Elements: merged, Span: span}
}

// IsEmpty reports whether the pattern has no elements.
func (p *Pattern) IsEmpty() bool {
	return p == nil || len(p.Elements) == 0
}
