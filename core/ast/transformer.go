package ast

import (
	"fmt"
)

// TransformFunc rewrites a single node. Returning the input node
// unchanged marks the subtree as untouched; returning a new node
// replaces it. The returned node must keep the type expected at that
// position (a PatternElement stays a PatternElement, and so on).
type TransformFunc func(Node) (Node, error)

// Transform rebuilds the tree rooted at n bottom-up. Children are
// transformed first; a parent is copied only when at least one child
// actually changed, so untouched subtrees are shared with the input
// tree. The input is never mutated.
func Transform(n Node, fn TransformFunc) (Node, error) {
	t := &transformer{fn: fn, maxDepth: MaxVisitDepth}
	return t.node(n, 0)
}

type transformer struct {
	fn       TransformFunc
	maxDepth int
}

func (t *transformer) node(n Node, depth int) (Node, error) {
	if depth >= t.maxDepth {
		return nil, ErrDepthLimit
	}
	rebuilt, err := t.rebuild(n, depth)
	if err != nil {
		return nil, err
	}
	return t.fn(rebuilt)
}

// rebuild returns n with transformed children, or n itself when no
// child changed.
func (t *transformer) rebuild(n Node, depth int) (Node, error) {
	switch v := n.(type) {
	case *Resource:
		entries, changed, err := transformSlice(t, v.Entries, depth)
		if err != nil {
			return nil, err
		}
		if !changed {
			return v, nil
		}
		return &Resource{Entries: entries, Span: v.Span}, nil

	case *Message:
		value, vChanged, err := t.pattern(v.Value, depth)
		if err != nil {
			return nil, err
		}
		attrs, aChanged, err := transformSlice(t, v.Attributes, depth)
		if err != nil {
			return nil, err
		}
		if !vChanged && !aChanged {
			return v, nil
		}
		return &Message{ID: v.ID, Value: value, Attributes: attrs, Comment: v.Comment, Span: v.Span}, nil

	case *Term:
		value, vChanged, err := t.pattern(v.Value, depth)
		if err != nil {
			return nil, err
		}
		attrs, aChanged, err := transformSlice(t, v.Attributes, depth)
		if err != nil {
			return nil, err
		}
		if !vChanged && !aChanged {
			return v, nil
		}
		return &Term{ID: v.ID, Value: value, Attributes: attrs, Comment: v.Comment, Span: v.Span}, nil

	case *Attribute:
		value, changed, err := t.pattern(v.Value, depth)
		if err != nil {
			return nil, err
		}
		if !changed {
			return v, nil
		}
		return &Attribute{ID: v.ID, Value: value, Span: v.Span}, nil

	case *Pattern:
		elements, changed, err := transformSlice(t, v.Elements, depth)
		if err != nil {
			return nil, err
		}
		if !changed {
			return v, nil
		}
		return &Pattern{Elements: elements, Span: v.Span}, nil

	case *Placeable:
		expr, err := t.node(v.Expression, depth+1)
		if err != nil {
			return nil, err
		}
		typed, ok := expr.(Expression)
		if !ok {
			return nil, fmt.Errorf("ast: transform replaced expression with %T", expr)
		}
		if typed == v.Expression {
			return v, nil
		}
		return &Placeable{Expression: typed, Span: v.Span}, nil

	case *SelectExpression:
		selector, err := t.node(v.Selector, depth+1)
		if err != nil {
			return nil, err
		}
		typedSel, ok := selector.(InlineExpression)
		if !ok {
			return nil, fmt.Errorf("ast: transform replaced selector with %T", selector)
		}
		variants, vChanged, err := transformSlice(t, v.Variants, depth)
		if err != nil {
			return nil, err
		}
		if typedSel == v.Selector && !vChanged {
			return v, nil
		}
		return &SelectExpression{Selector: typedSel, Variants: variants, Span: v.Span}, nil

	case *Variant:
		value, changed, err := t.pattern(v.Value, depth)
		if err != nil {
			return nil, err
		}
		if !changed {
			return v, nil
		}
		return &Variant{Key: v.Key, Value: value, Default: v.Default, Span: v.Span}, nil

	case *TermReference:
		args, changed, err := t.callArguments(v.Arguments, depth)
		if err != nil {
			return nil, err
		}
		if !changed {
			return v, nil
		}
		return &TermReference{ID: v.ID, Attribute: v.Attribute, Arguments: args, Span: v.Span}, nil

	case *FunctionReference:
		args, changed, err := t.callArguments(v.Arguments, depth)
		if err != nil {
			return nil, err
		}
		if !changed {
			return v, nil
		}
		return &FunctionReference{ID: v.ID, Arguments: args, Span: v.Span}, nil

	case *CallArguments:
		positional, pChanged, err := transformSlice(t, v.Positional, depth)
		if err != nil {
			return nil, err
		}
		named, nChanged, err := transformSlice(t, v.Named, depth)
		if err != nil {
			return nil, err
		}
		if !pChanged && !nChanged {
			return v, nil
		}
		return &CallArguments{Positional: positional, Named: named, Span: v.Span}, nil

	case *NamedArgument:
		value, err := t.node(v.Value, depth+1)
		if err != nil {
			return nil, err
		}
		typed, ok := value.(InlineExpression)
		if !ok {
			return nil, fmt.Errorf("ast: transform replaced argument value with %T", value)
		}
		if typed == v.Value {
			return v, nil
		}
		return &NamedArgument{Name: v.Name, Value: typed, Span: v.Span}, nil

	default:
		// Leaves: text, literals, references without arguments,
		// identifiers, comments, junk.
		return n, nil
	}
}

func (t *transformer) pattern(p *Pattern, depth int) (*Pattern, bool, error) {
	if p == nil {
		return nil, false, nil
	}
	out, err := t.node(p, depth+1)
	if err != nil {
		return nil, false, err
	}
	typed, ok := out.(*Pattern)
	if !ok {
		return nil, false, fmt.Errorf("ast: transform replaced pattern with %T", out)
	}
	return typed, typed != p, nil
}

func (t *transformer) callArguments(c *CallArguments, depth int) (*CallArguments, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	out, err := t.node(c, depth+1)
	if err != nil {
		return nil, false, err
	}
	typed, ok := out.(*CallArguments)
	if !ok {
		return nil, false, fmt.Errorf("ast: transform replaced call arguments with %T", out)
	}
	return typed, typed != c, nil
}

// transformSlice transforms each element, reusing the input slice when
// nothing changed.
func transformSlice[T Node](t *transformer, in []T, depth int) ([]T, bool, error) {
	if len(in) == 0 {
		return in, false, nil
	}
	changed := false
	out := make([]T, len(in))
	for i, item := range in {
		res, err := t.node(item, depth+1)
		if err != nil {
			return nil, false, err
		}
		typed, ok := res.(T)
		if !ok {
			return nil, false, fmt.Errorf("ast: transform replaced %T with %T", item, res)
		}
		out[i] = typed
		if Node(typed) != Node(item) {
			changed = true
		}
	}
	if !changed {
		return in, false, nil
	}
	return out, true, nil
}
