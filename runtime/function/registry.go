// Package function implements the sandboxed callable registry the
// resolver dispatches FTL function calls through. A function declares
// its positional arity and named parameters up front; the registry
// validates declarations at registration time, converts FTL camelCase
// parameter names to internal snake_case at call time, and wraps every
// invocation in a panic-recovering safety harness.
package function

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ftllex/ftllex/core/diag"
	"github.com/ftllex/ftllex/core/ident"
	"github.com/ftllex/ftllex/runtime/locale"
	"github.com/ftllex/ftllex/runtime/value"
)

// Func is the callable shape for FTL functions. ctx is nil unless the
// definition declares RequiresLocale. named keys are internal
// snake_case names.
type Func func(ctx *locale.Context, positional []value.Value, named map[string]value.Value) (value.Value, error)

// Param declares one named parameter in internal snake_case.
type Param struct {
	Name string
}

// Definition describes a registered function.
type Definition struct {
	Name           string // FTL name, upper-case
	Callable       Func
	RequiresLocale bool
	PositionalArgs int
	Params         []Param

	// byExternal maps the FTL-visible camelCase name to the internal
	// snake_case name; built at registration.
	byExternal map[string]string
}

// Registry holds the functions available to one bundle. A frozen
// registry rejects registration; Copy returns a mutable clone. Each
// bundle builds its own registry with NewRegistry.
type Registry struct {
	funcs  map[string]*Definition
	frozen bool
	log    logrus.FieldLogger
}

// NewRegistry creates a registry with the three built-in formatting
// functions registered.
func NewRegistry(log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Registry{funcs: map[string]*Definition{}, log: log}
	for _, def := range builtinDefinitions() {
		// Builtin definitions are static; registration cannot fail.
		if err := r.Register(def); err != nil {
			panic(fmt.Sprintf("function: builtin %s: %v", def.Name, err))
		}
	}
	return r
}

// Register adds a function. Arity must be non-negative, the name must
// be a valid upper-case callee, and no two declared parameters may map
// to the same external camelCase name.
func (r *Registry) Register(def Definition) error {
	if r.frozen {
		return fmt.Errorf("function: registry is frozen")
	}
	if !isCalleeName(def.Name) {
		return fmt.Errorf("function: invalid function name %q", def.Name)
	}
	if def.Callable == nil {
		return fmt.Errorf("function: %s has no callable", def.Name)
	}
	if def.PositionalArgs < 0 {
		return fmt.Errorf("function: %s declares negative arity", def.Name)
	}

	def.byExternal = make(map[string]string, len(def.Params))
	for _, p := range def.Params {
		external := SnakeToCamel(p.Name)
		if existing, clash := def.byExternal[external]; clash {
			return fmt.Errorf("function: %s parameters %q and %q both map to external name %q",
				def.Name, existing, p.Name, external)
		}
		def.byExternal[external] = p.Name
	}

	r.funcs[def.Name] = &def
	return nil
}

// Freeze makes the registry immutable.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether the registry rejects registration.
func (r *Registry) Frozen() bool { return r.frozen }

// Copy returns a mutable clone sharing the definitions.
func (r *Registry) Copy() *Registry {
	funcs := make(map[string]*Definition, len(r.funcs))
	for name, def := range r.funcs {
		funcs[name] = def
	}
	return &Registry{funcs: funcs, log: r.log}
}

// Has reports whether a function is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

// Call dispatches a function by FTL name. Named argument keys arrive
// in FTL camelCase and are converted to the declared snake_case names;
// an undeclared named argument is an INVALID_ARGUMENT diagnostic.
// Panics inside the callable are recovered into errors — a broken
// custom formatter must not take down a format call.
func (r *Registry) Call(name string, ctx *locale.Context, positional []value.Value, named map[string]value.Value) (out value.Value, err error) {
	def, ok := r.funcs[name]
	if !ok {
		return nil, diag.Errorf(diag.CodeFunctionNotFound, "unknown function %s", name)
	}
	if len(positional) != def.PositionalArgs {
		return nil, diag.Errorf(diag.CodeInvalidArgument,
			"%s expects %d positional argument(s), got %d", name, def.PositionalArgs, len(positional))
	}

	internal := make(map[string]value.Value, len(named))
	for external, v := range named {
		snake, declared := def.byExternal[external]
		if !declared {
			return nil, diag.Errorf(diag.CodeInvalidArgument,
				"%s has no parameter %q", name, external)
		}
		internal[snake] = v
	}

	var callCtx *locale.Context
	if def.RequiresLocale {
		callCtx = ctx
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithFields(logrus.Fields{
				"function": name,
				"panic":    rec,
			}).Error("function call panicked")
			out = nil
			err = diag.Errorf(diag.CodeInvalidArgument, "function %s failed", name)
		}
	}()

	result, err := def.Callable(callCtx, positional, internal)
	if err != nil {
		// Typed diagnostics pass through; anything else is wrapped and
		// logged so the resolver can fall back with context.
		var d *diag.Error
		if errors.As(err, &d) {
			return nil, err
		}
		r.log.WithFields(logrus.Fields{
			"function": name,
			"error":    err,
		}).Warn("function call failed")
		return nil, diag.Errorf(diag.CodeInvalidArgument, "function %s failed: %v", name, err)
	}
	return result, nil
}

// isCalleeName mirrors the parser's callee grammar.
func isCalleeName(name string) bool {
	if name == "" || len(name) > ident.MaxLength {
		return false
	}
	for _, ch := range name {
		switch {
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
		case ch == '_' || ch == '-':
		default:
			return false
		}
	}
	return true
}
