// Package diag defines the engine's diagnostic vocabulary: stable
// numeric codes, the four-category error taxonomy, and the immutable
// error records accumulated during parsing, validation, and resolution.
//
// Codes are stable integers so that log-based alerting keeps working
// across releases. Never renumber an existing code.
package diag

// Code identifies a diagnostic condition.
type Code int

// Parser codes (1xxx).
const (
	CodeParseError Code = 1001
)

// Validator codes (2xxx).
const (
	CodeTermWithoutValue Code = 2001 + iota
	CodeMultipleDefaultVariants
	CodeMissingDefaultVariant
	CodeDuplicateNamedArgument
	CodeDuplicateAttribute
	CodeCircularReference
	CodeLongReferenceChain
	CodeDuplicateEntry
)

// Resolution codes (3xxx).
const (
	CodeMessageNotFound Code = 3001 + iota
	CodeTermNotFound
	CodeVariableNotProvided
	CodeFunctionNotFound
	CodeCyclicReference
	CodeDepthLimitExceeded
	CodeExpansionBudgetExceeded
	CodeTypeMismatch
	CodeInvalidArgument
	CodeArgumentRequired
	CodePatternInvalid
	CodeUnknownExpression
)

// Integrity codes (4xxx).
const (
	CodeCacheCorruption Code = 4001 + iota
	CodeWriteConflict
	CodeImmutabilityViolation
)

var codeNames = map[Code]string{
	CodeParseError:              "PARSE_ERROR",
	CodeTermWithoutValue:        "TERM_WITHOUT_VALUE",
	CodeMultipleDefaultVariants: "MULTIPLE_DEFAULT_VARIANTS",
	CodeMissingDefaultVariant:   "MISSING_DEFAULT_VARIANT",
	CodeDuplicateNamedArgument:  "DUPLICATE_NAMED_ARGUMENT",
	CodeDuplicateAttribute:      "DUPLICATE_ATTRIBUTE",
	CodeCircularReference:       "CIRCULAR_REFERENCE",
	CodeLongReferenceChain:      "LONG_REFERENCE_CHAIN",
	CodeDuplicateEntry:          "DUPLICATE_ENTRY",
	CodeMessageNotFound:         "MESSAGE_NOT_FOUND",
	CodeTermNotFound:            "TERM_NOT_FOUND",
	CodeVariableNotProvided:     "VARIABLE_NOT_PROVIDED",
	CodeFunctionNotFound:        "FUNCTION_NOT_FOUND",
	CodeCyclicReference:         "CYCLIC_REFERENCE",
	CodeDepthLimitExceeded:      "DEPTH_LIMIT_EXCEEDED",
	CodeExpansionBudgetExceeded: "EXPANSION_BUDGET_EXCEEDED",
	CodeTypeMismatch:            "TYPE_MISMATCH",
	CodeInvalidArgument:         "INVALID_ARGUMENT",
	CodeArgumentRequired:        "ARGUMENT_REQUIRED",
	CodePatternInvalid:          "PATTERN_INVALID",
	CodeUnknownExpression:       "UNKNOWN_EXPRESSION",
	CodeCacheCorruption:         "CACHE_CORRUPTION",
	CodeWriteConflict:           "WRITE_CONFLICT",
	CodeImmutabilityViolation:   "IMMUTABILITY_VIOLATION",
}

// String returns the stable symbolic name of the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN_CODE"
}

// Category classifies a diagnostic into the error taxonomy.
type Category int

const (
	CategorySyntax Category = iota
	CategorySemantic
	CategoryResolution
	CategoryIntegrity
)

// String returns the category name.
func (cat Category) String() string {
	switch cat {
	case CategorySyntax:
		return "syntax"
	case CategorySemantic:
		return "semantic"
	case CategoryResolution:
		return "resolution"
	case CategoryIntegrity:
		return "integrity"
	default:
		return "unknown"
	}
}

// Category returns the taxonomy category a code belongs to.
func (c Code) Category() Category {
	switch {
	case c < 2000:
		return CategorySyntax
	case c < 3000:
		return CategorySemantic
	case c < 4000:
		return CategoryResolution
	default:
		return CategoryIntegrity
	}
}
