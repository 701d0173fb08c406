package bundle

import (
	"sort"

	"github.com/ftllex/ftllex/core/ast"
	"github.com/ftllex/ftllex/runtime/analysis"
)

// MessageInfo describes a registered message for tooling: which
// attributes it exposes, which variables its patterns consume, and
// which entries it references.
type MessageInfo struct {
	ID          string
	HasValue    bool
	Attributes  []string
	Variables   []string
	MessageRefs []string
	TermRefs    []string
	Span        *ast.Span
}

// IntrospectMessage returns structural information about a message, or
// false when the id is not registered.
func (b *Bundle) IntrospectMessage(id string) (MessageInfo, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	msg, ok := b.messages[id]
	if !ok {
		return MessageInfo{}, false
	}

	info := MessageInfo{
		ID:       id,
		HasValue: msg.Value != nil,
		Span:     msg.Span,
	}
	patterns := []*ast.Pattern{msg.Value}
	for _, attr := range msg.Attributes {
		info.Attributes = append(info.Attributes, attr.ID.Name)
		patterns = append(patterns, attr.Value)
	}
	info.MessageRefs, info.TermRefs = analysis.ExtractReferences(patterns...)

	vars := map[string]struct{}{}
	for _, p := range patterns {
		if p == nil {
			continue
		}
		_ = ast.Walk(p, func(n ast.Node) error {
			if ref, isVar := n.(*ast.VariableReference); isVar {
				vars[ref.ID.Name] = struct{}{}
			}
			return nil
		})
	}
	for name := range vars {
		info.Variables = append(info.Variables, name)
	}
	sort.Strings(info.Variables)
	sort.Strings(info.Attributes)
	return info, true
}
