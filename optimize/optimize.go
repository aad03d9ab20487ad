// Package optimize rewrites IR bodies without changing observable behavior.
// Three passes run in a fixed order: constant folding with propagation, dead
// code elimination, and common subexpression elimination.  Passes only delete
// or fold; they never reorder statements across a potential side effect.
package optimize

import (
	"pyrus/ir"
)

// Options enables or disables each pass independently.
type Options struct {
	// ConstantFolding enables literal folding and single-assignment
	// constant propagation.
	ConstantFolding bool

	// DeadCode enables unreachable statement and unused assignment
	// removal.
	DeadCode bool

	// CSE enables common subexpression elimination.
	CSE bool
}

// DefaultOptions enables every pass.
func DefaultOptions() Options {
	return Options{ConstantFolding: true, DeadCode: true, CSE: true}
}

// Optimizer applies the enabled passes to functions.
type Optimizer struct {
	opts Options

	// The counter for generated hoist names, reset per function.
	tempCounter int
}

// New creates an optimizer with the given options.
func New(opts Options) *Optimizer {
	return &Optimizer{opts: opts}
}

// OptimizeModule rewrites every function body in the module, including
// methods.
func (o *Optimizer) OptimizeModule(mod *ir.Module) {
	for _, fn := range mod.Functions {
		o.OptimizeFunction(fn)
	}

	for _, cls := range mod.Classes {
		for _, method := range cls.Methods {
			o.OptimizeFunction(method)
		}
	}
}

// OptimizeFunction rewrites one function body in place.
func (o *Optimizer) OptimizeFunction(fn *ir.Function) {
	o.tempCounter = 0

	if o.opts.ConstantFolding {
		fn.Body = o.foldBody(fn.Body)
		o.propagateConstants(fn)

		// Propagated literals open new folding opportunities.
		fn.Body = o.foldBody(fn.Body)
	}

	if o.opts.DeadCode {
		fn.Body = o.eliminateDeadCode(fn)
	}

	if o.opts.CSE {
		fn.Body = o.eliminateCommonSubexprs(fn)
	}
}
