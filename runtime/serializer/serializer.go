// Package serializer reconstructs FTL source from a syntax tree.
//
// The output is roundtrip-stable: parsing the serialized form yields a
// structurally equal tree, and serializing that tree again is
// byte-identical. Patterns that cannot survive the trip as plain text
// (braces, control characters, layout-significant leading characters)
// are protected with string-literal placeables.
package serializer

import (
	"fmt"
	"strings"

	"github.com/ftllex/ftllex/core/ast"
	"github.com/ftllex/ftllex/core/ident"
)

const indentUnit = "    "

// Option configures serialization.
type Option func(*config)

type config struct {
	validate  bool
	validator func(*ast.Resource) error
}

// WithValidation runs fn over the resource before emission; a non-nil
// error aborts serialization. The bundle wires the semantic validator
// in here, keeping this package free of a validator dependency.
func WithValidation(fn func(*ast.Resource) error) Option {
	return func(c *config) {
		c.validate = true
		c.validator = fn
	}
}

// Serialize renders a resource back to FTL source.
func Serialize(res *ast.Resource, opts ...Option) (string, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.validate && cfg.validator != nil {
		if err := cfg.validator(res); err != nil {
			return "", fmt.Errorf("serializer: validation failed: %w", err)
		}
	}

	s := &serializer{}
	var sb strings.Builder
	for i, entry := range res.Entries {
		// No blank line after junk: the junk rule consumes blank lines,
		// so a separator here would grow the junk span on reparse.
		if i > 0 {
			if _, prevJunk := res.Entries[i-1].(*ast.Junk); !prevJunk {
				sb.WriteByte('\n')
			}
		}
		text, err := s.entry(entry)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

type serializer struct {
	depth int
}

// enter guards recursion depth across patterns and expressions.
func (s *serializer) enter() error {
	s.depth++
	if s.depth > ast.MaxSerializeDepth {
		return ast.ErrDepthLimit
	}
	return nil
}

func (s *serializer) leave() { s.depth-- }

func (s *serializer) entry(e ast.Entry) (string, error) {
	switch v := e.(type) {
	case *ast.Message:
		return s.messageLike(v.ID.Name, "", v.Value, v.Attributes, v.Comment)
	case *ast.Term:
		return s.messageLike(v.ID.Name, "-", v.Value, v.Attributes, v.Comment)
	case *ast.Comment:
		return serializeComment(v), nil
	case *ast.Junk:
		// Junk is preserved verbatim: the serializer must not lose the
		// operator's broken input.
		content := v.Content
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		return content, nil
	default:
		return "", fmt.Errorf("serializer: unknown entry type %T", e)
	}
}

func (s *serializer) messageLike(name, prefix string, value *ast.Pattern, attrs []*ast.Attribute, comment *ast.Comment) (string, error) {
	if !ident.IsValid(name) {
		return "", fmt.Errorf("serializer: invalid identifier %q", name)
	}

	var sb strings.Builder
	if comment != nil {
		sb.WriteString(serializeComment(comment))
	}
	sb.WriteString(prefix)
	sb.WriteString(name)
	sb.WriteString(" =")
	if value != nil {
		text, err := s.pattern(value, 1)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	for _, attr := range attrs {
		if !ident.IsValid(attr.ID.Name) {
			return "", fmt.Errorf("serializer: invalid attribute identifier %q", attr.ID.Name)
		}
		sb.WriteString("\n")
		sb.WriteString(indentUnit)
		sb.WriteString(".")
		sb.WriteString(attr.ID.Name)
		sb.WriteString(" =")
		text, err := s.pattern(attr.Value, 2)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	sb.WriteString("\n")
	return sb.String(), nil
}

func serializeComment(c *ast.Comment) string {
	sigil := c.Kind.Sigil()
	var sb strings.Builder
	for _, line := range strings.Split(c.Content, "\n") {
		sb.WriteString(sigil)
		if line != "" {
			sb.WriteString(" ")
			sb.WriteString(line)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// pattern renders " value" (inline) or "\n    value..." (block). Block
// form is chosen when the value spans lines — multiline text or a
// select expression. Layout-fragile text (leading/trailing spaces,
// line-leading variant markers) is protected with string-literal
// placeables before rendering, so both forms reparse to the same tree.
func (s *serializer) pattern(p *ast.Pattern, indent int) (string, error) {
	if err := s.enter(); err != nil {
		return "", err
	}
	defer s.leave()

	rendered, multiline, err := s.patternBody(p, indent)
	if err != nil {
		return "", err
	}
	if !multiline {
		return " " + rendered, nil
	}

	prefix := strings.Repeat(indentUnit, indent)
	var sb strings.Builder
	for _, line := range strings.Split(rendered, "\n") {
		sb.WriteString("\n")
		if line != "" {
			sb.WriteString(prefix)
			sb.WriteString(line)
		}
	}
	return sb.String(), nil
}

// patternBody renders the value itself and reports whether block form
// is required. The form is decided up front: the first character of a
// block-form value sits at line start and needs the same protection as
// any other line start, while the same character inline is plain text.
func (s *serializer) patternBody(p *ast.Pattern, indent int) (string, bool, error) {
	elements := protectLayout(p.Elements)
	multiline := spansLines(elements)

	var sb strings.Builder
	for i, el := range elements {
		switch v := el.(type) {
		case *ast.TextElement:
			sb.WriteString(escapeText(v.Value, i == 0 && multiline))
		case *ast.Placeable:
			text, _, err := s.placeable(v, indent)
			if err != nil {
				return "", false, err
			}
			sb.WriteString(text)
		default:
			return "", false, fmt.Errorf("serializer: unknown pattern element %T", el)
		}
	}
	return sb.String(), multiline, nil
}

// spansLines reports whether the rendered value will contain line
// breaks: multiline text, or a select expression.
func spansLines(elements []ast.PatternElement) bool {
	for _, el := range elements {
		switch v := el.(type) {
		case *ast.TextElement:
			if strings.Contains(v.Value, "\n") {
				return true
			}
		case *ast.Placeable:
			if _, isSelect := v.Expression.(*ast.SelectExpression); isSelect {
				return true
			}
		}
	}
	return false
}

// protectLayout splits off text runs the parser would eat as layout:
// spaces at the very start of the value (they would inflate the block
// indent or be stripped inline) and spaces at its very end (trimmed on
// reparse). Both become string-literal placeables. Patterns built by
// the parser never contain such runs; this protects programmatic trees.
func protectLayout(elements []ast.PatternElement) []ast.PatternElement {
	if len(elements) == 0 {
		return elements
	}
	out := append([]ast.PatternElement(nil), elements...)

	if first, ok := out[0].(*ast.TextElement); ok {
		trimmed := strings.TrimLeft(first.Value, " ")
		if lead := first.Value[:len(first.Value)-len(trimmed)]; lead != "" {
			protected := []ast.PatternElement{
				&ast.Placeable{Expression: &ast.StringLiteral{Value: lead}},
			}
			if trimmed != "" {
				protected = append(protected, &ast.TextElement{Value: trimmed, Span: first.Span})
			}
			out = append(protected, out[1:]...)
		}
	}

	last := len(out) - 1
	if text, ok := out[last].(*ast.TextElement); ok {
		trimmed := strings.TrimRight(text.Value, " \n")
		if trail := text.Value[len(trimmed):]; trail != "" {
			replaced := out[:last]
			if trimmed != "" {
				replaced = append(replaced, &ast.TextElement{Value: trimmed, Span: text.Span})
			}
			out = append(replaced, &ast.Placeable{Expression: &ast.StringLiteral{Value: trail}})
		}
	}
	return out
}

// escapeText protects characters the parser treats as syntax. Braces
// and control characters become string-literal placeables everywhere.
// After a line break, "[", "*", and "." would read as a variant marker
// or attribute and are protected too; the same applies to the first
// character of the whole value, which sits at line start in block form.
func escapeText(text string, valueStart bool) string {
	var sb strings.Builder
	atLineStart := false
	for i, ch := range text {
		if i == 0 && valueStart {
			atLineStart = true
		}
		switch {
		case ch == '{':
			sb.WriteString(`{ "{" }`)
		case ch == '}':
			sb.WriteString(`{ "}" }`)
		case ch == '\n':
			sb.WriteByte('\n')
			atLineStart = true
			continue
		case ch < 0x20 && ch != '\t':
			sb.WriteString(fmt.Sprintf(`{ "\u%04X" }`, ch))
		case atLineStart && (ch == '[' || ch == '*' || ch == '.'):
			sb.WriteString(fmt.Sprintf(`{ "%c" }`, ch))
		default:
			sb.WriteRune(ch)
		}
		atLineStart = false
	}
	return sb.String()
}

// placeable renders "{ expr }"; select expressions spread over lines.
func (s *serializer) placeable(p *ast.Placeable, indent int) (string, bool, error) {
	if err := s.enter(); err != nil {
		return "", false, err
	}
	defer s.leave()

	if sel, ok := p.Expression.(*ast.SelectExpression); ok {
		text, err := s.selectExpression(sel, indent)
		return text, true, err
	}
	text, err := s.expression(p.Expression, indent)
	if err != nil {
		return "", false, err
	}
	return "{ " + text + " }", false, nil
}

func (s *serializer) selectExpression(sel *ast.SelectExpression, indent int) (string, error) {
	selector, err := s.expression(sel.Selector, indent)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("{ ")
	sb.WriteString(selector)
	sb.WriteString(" ->")
	for _, variant := range sel.Variants {
		key, err := s.variantKey(variant.Key)
		if err != nil {
			return "", err
		}
		sb.WriteString("\n")
		if variant.Default {
			sb.WriteString("   *[")
		} else {
			sb.WriteString(indentUnit)
			sb.WriteString("[")
		}
		sb.WriteString(key)
		sb.WriteString("]")
		value, err := s.pattern(variant.Value, 2)
		if err != nil {
			return "", err
		}
		sb.WriteString(value)
	}
	sb.WriteString("\n}")
	return sb.String(), nil
}

func (s *serializer) variantKey(key ast.VariantKey) (string, error) {
	switch v := key.(type) {
	case *ast.Identifier:
		if !ident.IsValid(v.Name) {
			return "", fmt.Errorf("serializer: invalid variant key %q", v.Name)
		}
		return v.Name, nil
	case *ast.NumberLiteral:
		return v.Raw, nil
	default:
		return "", fmt.Errorf("serializer: unknown variant key type %T", key)
	}
}

func (s *serializer) expression(e ast.Expression, indent int) (string, error) {
	if err := s.enter(); err != nil {
		return "", err
	}
	defer s.leave()

	switch v := e.(type) {
	case *ast.StringLiteral:
		return quoteString(v.Value), nil
	case *ast.NumberLiteral:
		return v.Raw, nil
	case *ast.VariableReference:
		if !ident.IsValid(v.ID.Name) {
			return "", fmt.Errorf("serializer: invalid identifier %q", v.ID.Name)
		}
		return "$" + v.ID.Name, nil
	case *ast.MessageReference:
		return s.reference("", v.ID, v.Attribute, nil, indent)
	case *ast.TermReference:
		return s.reference("-", v.ID, v.Attribute, v.Arguments, indent)
	case *ast.FunctionReference:
		if !ident.IsValid(v.ID.Name) {
			return "", fmt.Errorf("serializer: invalid identifier %q", v.ID.Name)
		}
		args, err := s.callArguments(v.Arguments, indent)
		if err != nil {
			return "", err
		}
		return v.ID.Name + args, nil
	case *ast.Placeable:
		inner, _, err := s.placeable(v, indent)
		if err != nil {
			return "", err
		}
		return inner, nil
	case *ast.SelectExpression:
		return s.selectExpression(v, indent)
	default:
		return "", fmt.Errorf("serializer: unknown expression type %T", e)
	}
}

func (s *serializer) reference(prefix string, id ast.Identifier, attr *ast.Identifier, args *ast.CallArguments, indent int) (string, error) {
	if !ident.IsValid(id.Name) {
		return "", fmt.Errorf("serializer: invalid identifier %q", id.Name)
	}
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(id.Name)
	if attr != nil {
		if !ident.IsValid(attr.Name) {
			return "", fmt.Errorf("serializer: invalid attribute identifier %q", attr.Name)
		}
		sb.WriteString(".")
		sb.WriteString(attr.Name)
	}
	if args != nil {
		rendered, err := s.callArguments(args, indent)
		if err != nil {
			return "", err
		}
		sb.WriteString(rendered)
	}
	return sb.String(), nil
}

func (s *serializer) callArguments(args *ast.CallArguments, indent int) (string, error) {
	if args == nil {
		return "()", nil
	}
	parts := make([]string, 0, len(args.Positional)+len(args.Named))
	for _, pos := range args.Positional {
		text, err := s.expression(pos, indent)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	for _, named := range args.Named {
		if !ident.IsValid(named.Name.Name) {
			return "", fmt.Errorf("serializer: invalid argument name %q", named.Name.Name)
		}
		value, err := s.expression(named.Value, indent)
		if err != nil {
			return "", err
		}
		parts = append(parts, named.Name.Name+": "+value)
	}
	return "(" + strings.Join(parts, ", ") + ")", nil
}

// quoteString renders a string literal with escapes the parser
// understands.
func quoteString(value string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, ch := range value {
		switch {
		case ch == '"':
			sb.WriteString(`\"`)
		case ch == '\\':
			sb.WriteString(`\\`)
		case ch < 0x20:
			sb.WriteString(fmt.Sprintf(`\u%04X`, ch))
		default:
			sb.WriteRune(ch)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
