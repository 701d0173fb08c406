package ast

import (
	"errors"
	"fmt"
)

// Traversal depth limits. Visitors get a tighter bound than the
// serializer because user-written visitors tend to allocate per frame.
const (
	MaxVisitDepth     = 100
	MaxSerializeDepth = 500
)

// ErrDepthLimit is returned when traversal exceeds its depth budget.
// Depth-limited traversal fails with this error instead of overflowing
// the goroutine stack on adversarial inputs.
var ErrDepthLimit = errors.New("ast: traversal depth limit exceeded")

// Children returns the direct child nodes of n in source order.
// In Go the per-type dispatch the resolver and walkers need is a type
// switch; this is the one place that enumerates every node shape.
func Children(n Node) []Node {
	switch v := n.(type) {
	case *Resource:
		out := make([]Node, len(v.Entries))
		for i, e := range v.Entries {
			out[i] = e
		}
		return out
	case *Message:
		var out []Node
		if v.Comment != nil {
			out = append(out, v.Comment)
		}
		out = append(out, &v.ID)
		if v.Value != nil {
			out = append(out, v.Value)
		}
		for _, a := range v.Attributes {
			out = append(out, a)
		}
		return out
	case *Term:
		var out []Node
		if v.Comment != nil {
			out = append(out, v.Comment)
		}
		out = append(out, &v.ID)
		if v.Value != nil {
			out = append(out, v.Value)
		}
		for _, a := range v.Attributes {
			out = append(out, a)
		}
		return out
	case *Attribute:
		return []Node{&v.ID, v.Value}
	case *Pattern:
		out := make([]Node, len(v.Elements))
		for i, e := range v.Elements {
			out[i] = e
		}
		return out
	case *Placeable:
		return []Node{v.Expression}
	case *MessageReference:
		out := []Node{&v.ID}
		if v.Attribute != nil {
			out = append(out, v.Attribute)
		}
		return out
	case *TermReference:
		out := []Node{&v.ID}
		if v.Attribute != nil {
			out = append(out, v.Attribute)
		}
		if v.Arguments != nil {
			out = append(out, v.Arguments)
		}
		return out
	case *VariableReference:
		return []Node{&v.ID}
	case *FunctionReference:
		out := []Node{&v.ID}
		if v.Arguments != nil {
			out = append(out, v.Arguments)
		}
		return out
	case *SelectExpression:
		out := []Node{v.Selector}
		for _, variant := range v.Variants {
			out = append(out, variant)
		}
		return out
	case *Variant:
		return []Node{v.Key, v.Value}
	case *CallArguments:
		var out []Node
		for _, p := range v.Positional {
			out = append(out, p)
		}
		for _, named := range v.Named {
			out = append(out, named)
		}
		return out
	case *NamedArgument:
		return []Node{&v.Name, v.Value}
	case *Comment, *Junk, *Identifier, *TextElement, *StringLiteral, *NumberLiteral:
		return nil
	default:
		panic(fmt.Sprintf("ast: unknown node type %T", n))
	}
}

// Walk traverses the tree rooted at n depth-first, pre-order, calling
// fn for every node. Traversal is bounded by MaxVisitDepth. fn may
// return SkipChildren to prune a subtree.
func Walk(n Node, fn func(Node) error) error {
	return walk(n, fn, 0, MaxVisitDepth)
}

// WalkDepth is Walk with an explicit depth budget.
func WalkDepth(n Node, fn func(Node) error, maxDepth int) error {
	return walk(n, fn, 0, maxDepth)
}

// SkipChildren signals Walk to prune the current subtree.
var SkipChildren = errors.New("ast: skip children") //nolint:errname // sentinel, not a failure

func walk(n Node, fn func(Node) error, depth, maxDepth int) error {
	if depth >= maxDepth {
		return ErrDepthLimit
	}
	if err := fn(n); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}
	for _, child := range Children(n) {
		if err := walk(child, fn, depth+1, maxDepth); err != nil {
			return err
		}
	}
	return nil
}
