package resolver

import (
	"github.com/ftllex/ftllex/core/diag"
	"github.com/ftllex/ftllex/runtime/value"
)

// refKey identifies one entry (attribute-granular) on the resolution
// stack. Attribute granularity avoids false cycle positives when two
// attributes of the same message reference each other non-cyclically.
type refKey struct {
	kind string // "msg" or "term"
	id   string // "welcome" or "welcome.title"
}

// resolution is the per-call transient state: the cycle stack, the
// depth counters, and the expansion budget. A fresh value is built for
// every top-level FormatPattern call and lives on that call's stack,
// which is what makes concurrent formatting trivially safe.
type resolution struct {
	entries Entries
	args    map[string]value.Value

	stack   []refKey
	inStack map[refKey]struct{}

	depth     int // total resolution depth across references
	exprDepth int // placeable nesting within one pattern
	expansion int // bytes produced so far

	errors      []*diag.Error
	budgetBlown bool
}

func (rc *resolution) addError(e *diag.Error) {
	rc.errors = append(rc.errors, e)
}

// push records a reference on the cycle stack. The boolean is false
// when the key is already present, i.e. the reference is cyclic.
func (rc *resolution) push(key refKey) bool {
	if _, cyclic := rc.inStack[key]; cyclic {
		return false
	}
	if rc.inStack == nil {
		rc.inStack = map[refKey]struct{}{}
	}
	rc.stack = append(rc.stack, key)
	rc.inStack[key] = struct{}{}
	return true
}

// pop releases the most recent reference. Guarded with defer on every
// resolution path so errors cannot leak stack entries.
func (rc *resolution) pop() {
	last := rc.stack[len(rc.stack)-1]
	rc.stack = rc.stack[:len(rc.stack)-1]
	delete(rc.inStack, last)
}

// charge counts produced output against the expansion budget and
// reports whether the budget still holds. This is the defense against
// billion-laughs expansion: doubling chains terminate as soon as the
// output bound is hit, regardless of how the input is shaped.
func (rc *resolution) charge(n, limit int) bool {
	rc.expansion += n
	if rc.expansion > limit {
		if !rc.budgetBlown {
			rc.budgetBlown = true
			rc.addError(diag.Errorf(diag.CodeExpansionBudgetExceeded,
				"resolution output exceeded %d bytes", limit))
		}
		return false
	}
	return true
}

// withArgs swaps the variable scope for a term body and returns the
// restore function. Term-local arguments shadow the outer scope only
// within the term.
func (rc *resolution) withArgs(args map[string]value.Value) func() {
	prev := rc.args
	rc.args = args
	return func() { rc.args = prev }
}
