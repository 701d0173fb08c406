// Package validator implements the semantic checks that the grammar
// cannot express: entry-level shape rules and call-argument
// uniqueness. It runs over a parsed resource, never mutates it, and
// reports findings instead of failing.
package validator

import (
	"fmt"

	"github.com/ftllex/ftllex/core/ast"
	"github.com/ftllex/ftllex/core/diag"
)

// Validate checks every non-junk entry of the resource. Junk is a
// syntax-level concern and is skipped here.
func Validate(res *ast.Resource) *diag.ValidationResult {
	result := &diag.ValidationResult{}
	for _, entry := range res.Entries {
		switch v := entry.(type) {
		case *ast.Message:
			validateAttributes(result, v.ID.Name, v.Attributes)
			validatePatterns(result, v.ID.Name, v.Value, v.Attributes)
		case *ast.Term:
			if v.Value.IsEmpty() {
				result.AddError(diag.CodeTermWithoutValue, v.ID.Name,
					"term \"-%s\" must have a value", v.ID.Name)
			}
			validateAttributes(result, v.ID.Name, v.Attributes)
			validatePatterns(result, v.ID.Name, v.Value, v.Attributes)
		}
	}
	return result
}

// ValidateStrict adapts Validate to an error for callers that need a
// go/no-go answer, like the serializer's validate option.
func ValidateStrict(res *ast.Resource) error {
	result := Validate(res)
	if result.Valid() {
		return nil
	}
	return fmt.Errorf("validator: %d error(s), first: %s", len(result.Errors), result.Errors[0])
}

func validateAttributes(result *diag.ValidationResult, entryID string, attrs []*ast.Attribute) {
	seen := make(map[string]bool, len(attrs))
	for _, attr := range attrs {
		if seen[attr.ID.Name] {
			result.AddError(diag.CodeDuplicateAttribute, entryID,
				"attribute .%s is declared more than once", attr.ID.Name)
		}
		seen[attr.ID.Name] = true
	}
}

// validatePatterns walks the value and attribute patterns checking
// select-expression defaults and named-argument uniqueness.
func validatePatterns(result *diag.ValidationResult, entryID string, value *ast.Pattern, attrs []*ast.Attribute) {
	check := func(n ast.Node) error {
		switch v := n.(type) {
		case *ast.SelectExpression:
			defaults := 0
			for _, variant := range v.Variants {
				if variant.Default {
					defaults++
				}
			}
			switch {
			case defaults == 0:
				result.AddError(diag.CodeMissingDefaultVariant, entryID,
					"select expression must have a default variant")
			case defaults > 1:
				result.AddError(diag.CodeMultipleDefaultVariants, entryID,
					"select expression has %d default variants, expected one", defaults)
			}
		case *ast.CallArguments:
			seen := make(map[string]bool, len(v.Named))
			for _, named := range v.Named {
				if seen[named.Name.Name] {
					result.AddError(diag.CodeDuplicateNamedArgument, entryID,
						"named argument %q is passed more than once", named.Name.Name)
				}
				seen[named.Name.Name] = true
			}
		}
		return nil
	}

	if value != nil {
		if err := ast.Walk(value, check); err != nil {
			result.AddError(diag.CodePatternInvalid, entryID, "pattern too deep to validate: %v", err)
		}
	}
	for _, attr := range attrs {
		if err := ast.Walk(attr.Value, check); err != nil {
			result.AddError(diag.CodePatternInvalid, entryID, "pattern too deep to validate: %v", err)
		}
	}
}
