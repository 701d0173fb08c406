package ast

import (
	"fmt"

	"github.com/ftllex/ftllex/core/canon"
)

// Hash computes the BLAKE2b-128 content hash of a node. The hash
// covers the node's semantic content — kinds, identifiers, literal
// values, structure — but not spans, so the same entry parsed from two
// different offsets hashes identically.
func Hash(n Node) (canon.Digest, error) {
	form, err := hashForm(n, 0)
	if err != nil {
		return canon.Digest{}, err
	}
	return canon.Hash(form)
}

// hashForm lowers a node to nested []any of CBOR-encodable primitives.
// Every node becomes ["TypeName", field...] so that two node types with
// the same field values never collide.
func hashForm(n Node, depth int) (any, error) {
	if depth >= MaxSerializeDepth {
		return nil, ErrDepthLimit
	}
	switch v := n.(type) {
	case *Resource:
		entries, err := hashChildren(v.Entries, depth)
		if err != nil {
			return nil, err
		}
		return []any{"Resource", entries}, nil
	case *Message:
		return hashEntry("Message", v.ID.Name, v.Value, v.Attributes, v.Comment, depth)
	case *Term:
		return hashEntry("Term", v.ID.Name, v.Value, v.Attributes, v.Comment, depth)
	case *Comment:
		return []any{"Comment", int(v.Kind), v.Content}, nil
	case *Junk:
		return []any{"Junk", v.Content}, nil
	case *Identifier:
		return []any{"Identifier", v.Name}, nil
	case *Attribute:
		value, err := hashForm(v.Value, depth+1)
		if err != nil {
			return nil, err
		}
		return []any{"Attribute", v.ID.Name, value}, nil
	case *Pattern:
		elements, err := hashChildren(v.Elements, depth)
		if err != nil {
			return nil, err
		}
		return []any{"Pattern", elements}, nil
	case *TextElement:
		return []any{"TextElement", v.Value}, nil
	case *Placeable:
		expr, err := hashForm(v.Expression, depth+1)
		if err != nil {
			return nil, err
		}
		return []any{"Placeable", expr}, nil
	case *StringLiteral:
		return []any{"StringLiteral", v.Value}, nil
	case *NumberLiteral:
		// Raw is part of identity: 1.5 and 1.50 are distinct literals.
		return []any{"NumberLiteral", v.Raw, v.Value.String(), v.Value.IsDecimal()}, nil
	case *MessageReference:
		return []any{"MessageReference", v.ID.Name, optionalName(v.Attribute)}, nil
	case *TermReference:
		args, err := hashOptional(v.Arguments, depth)
		if err != nil {
			return nil, err
		}
		return []any{"TermReference", v.ID.Name, optionalName(v.Attribute), args}, nil
	case *VariableReference:
		return []any{"VariableReference", v.ID.Name}, nil
	case *FunctionReference:
		args, err := hashOptional(v.Arguments, depth)
		if err != nil {
			return nil, err
		}
		return []any{"FunctionReference", v.ID.Name, args}, nil
	case *SelectExpression:
		selector, err := hashForm(v.Selector, depth+1)
		if err != nil {
			return nil, err
		}
		variants, err := hashChildren(v.Variants, depth)
		if err != nil {
			return nil, err
		}
		return []any{"SelectExpression", selector, variants}, nil
	case *Variant:
		key, err := hashForm(v.Key, depth+1)
		if err != nil {
			return nil, err
		}
		value, err := hashForm(v.Value, depth+1)
		if err != nil {
			return nil, err
		}
		return []any{"Variant", key, value, v.Default}, nil
	case *CallArguments:
		positional, err := hashChildren(v.Positional, depth)
		if err != nil {
			return nil, err
		}
		named, err := hashChildren(v.Named, depth)
		if err != nil {
			return nil, err
		}
		return []any{"CallArguments", positional, named}, nil
	case *NamedArgument:
		value, err := hashForm(v.Value, depth+1)
		if err != nil {
			return nil, err
		}
		return []any{"NamedArgument", v.Name.Name, value}, nil
	default:
		return nil, fmt.Errorf("ast: cannot hash node type %T", n)
	}
}

func hashEntry(kind, id string, value *Pattern, attrs []*Attribute, comment *Comment, depth int) (any, error) {
	var valueForm any
	if value != nil {
		form, err := hashForm(value, depth+1)
		if err != nil {
			return nil, err
		}
		valueForm = form
	}
	attrForms, err := hashChildren(attrs, depth)
	if err != nil {
		return nil, err
	}
	commentContent := ""
	if comment != nil {
		commentContent = comment.Content
	}
	return []any{kind, id, valueForm, attrForms, commentContent}, nil
}

func hashChildren[T Node](nodes []T, depth int) ([]any, error) {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		form, err := hashForm(n, depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = form
	}
	return out, nil
}

func hashOptional(c *CallArguments, depth int) (any, error) {
	if c == nil {
		return nil, nil
	}
	return hashForm(c, depth+1)
}

func optionalName(id *Identifier) string {
	if id == nil {
		return ""
	}
	return id.Name
}
