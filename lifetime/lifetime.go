// Package lifetime resolves the lifetime relationships between
// reference-typed parameters and return values, then applies the target
// language's elision rules so explicit lifetime tokens only appear where the
// compiler actually requires them.
package lifetime

import (
	"strconv"

	"pyrus/ir"
	"pyrus/ownership"
	"pyrus/types"
)

// ConstraintKind enumerates the relations between two lifetimes.
type ConstraintKind int

const (
	// ConstraintOutlives requires From to live at least as long as To plus
	// strictly enclosing it.
	ConstraintOutlives ConstraintKind = iota

	// ConstraintEqual requires the two lifetimes to be the same.
	ConstraintEqual

	// ConstraintAtLeast requires From to be valid for at least the extent
	// of To.
	ConstraintAtLeast
)

// Constraint is one relation between two lifetime tokens.
type Constraint struct {
	Kind ConstraintKind
	From string
	To   string
}

// ParamLifetime carries the resolved borrow shape of one parameter.
type ParamLifetime struct {
	// The parameter name.
	Name string

	// Whether the parameter is passed by reference.
	Borrowed bool

	// Whether the borrow is mutable.
	Mutable bool

	// The lifetime token without the leading apostrophe.  Empty when
	// elided.
	Lifetime string

	// The mapped target type of the parameter's value.
	Type types.Type
}

// Result is the lifetime resolution of one function.
type Result struct {
	// The per-parameter borrow shapes in declaration order.
	Params []ParamLifetime

	// The lifetime token of the return type, or empty when the return
	// carries no reference or its lifetime is elided.
	ReturnLifetime string

	// The explicit lifetime parameters the function signature must
	// declare, in first-use order.
	LifetimeParams []string

	// The bounds between declared lifetimes.
	Bounds []Constraint

	// The ownership analysis the resolution was derived from.
	Ownership *ownership.Result
}

// ParamFor returns the resolved shape for a parameter name.
func (r *Result) ParamFor(name string) (ParamLifetime, bool) {
	for _, pl := range r.Params {
		if pl.Name == name {
			return pl, true
		}
	}

	return ParamLifetime{}, false
}

// -----------------------------------------------------------------------------

// Inference resolves lifetimes for one function at a time.
type Inference struct {
	counter int
}

// NewInference creates a fresh inference engine.
func NewInference() *Inference {
	return &Inference{}
}

// nextLifetime mints a new lifetime token: a, b, c, then l1, l2, ...
func (inf *Inference) nextLifetime() string {
	name := ""

	switch inf.counter {
	case 0:
		name = "a"
	case 1:
		name = "b"
	case 2:
		name = "c"
	default:
		name = "l" + strconv.Itoa(inf.counter-2)
	}

	inf.counter++
	return name
}

// Analyze resolves the lifetimes of one function given its ownership
// analysis, then applies elision.  Escape analysis runs first: a borrow that
// would outlive its source is promoted to ownership before any lifetime is
// assigned.
func (inf *Inference) Analyze(
	fn *ir.Function,
	mapper *types.Mapper,
	own *ownership.Result,
) *Result {
	promoteEscapes(fn, mapper, own)

	result := &Result{Ownership: own}
	seen := make(map[string]struct{})

	declare := func(token string) {
		if _, ok := seen[token]; !ok {
			seen[token] = struct{}{}
			result.LifetimeParams = append(result.LifetimeParams, token)
		}
	}

	for i, ps := range own.Params {
		param := fn.Params[i]

		pl := ParamLifetime{
			Name: ps.Name,
			Type: mapper.Map(param.PyType),
		}

		switch ps.Strategy.Kind {
		case ownership.StratBorrow:
			pl.Borrowed = true
			pl.Lifetime = inf.nextLifetime()
			declare(pl.Lifetime)
		case ownership.StratBorrowMut:
			pl.Borrowed = true
			pl.Mutable = true
			pl.Lifetime = inf.nextLifetime()
			declare(pl.Lifetime)
		case ownership.StratCow:
			pl.Lifetime = ps.Strategy.Lifetime
			if pl.Lifetime == "" {
				pl.Lifetime = inf.nextLifetime()
			}

			declare(pl.Lifetime)
		}

		result.Params = append(result.Params, pl)
	}

	inf.resolveReturn(fn, mapper, result)
	inf.applyElision(fn, result)

	return result
}

// resolveReturn determines the return type's lifetime.  A reference-bearing
// return borrows from an escaping borrowed parameter when one exists; the
// borrow relation becomes an equality constraint.
func (inf *Inference) resolveReturn(fn *ir.Function, mapper *types.Mapper, result *Result) {
	retType := mapper.Map(fn.ReturnType)
	if !needsLifetime(retType) {
		return
	}

	for i, pl := range result.Params {
		if pl.Lifetime == "" {
			continue
		}

		if result.Ownership.Params[i].Usage.EscapesViaReturn {
			result.ReturnLifetime = pl.Lifetime
			return
		}
	}

	// No escaping borrow feeds the return: the reference must originate
	// from a fresh region the caller supplies.
	token := inf.nextLifetime()
	result.ReturnLifetime = token
	result.LifetimeParams = append(result.LifetimeParams, token)

	for _, pl := range result.Params {
		if pl.Lifetime != "" && pl.Lifetime != token {
			result.Bounds = append(result.Bounds, Constraint{
				Kind: ConstraintAtLeast,
				From: pl.Lifetime,
				To:   token,
			})
		}
	}
}

// applyElision clears lifetime tokens the target compiler can infer on its
// own.  The rules mirror the target's elision rules: no reference inputs
// need nothing; one reference input elides everything; a method receiver
// covers the return; multiple reference inputs feeding a reference return
// share one explicit named lifetime.
func (inf *Inference) applyElision(fn *ir.Function, result *Result) {
	borrowed := 0
	for _, pl := range result.Params {
		if pl.Borrowed || pl.Lifetime != "" {
			borrowed++
		}
	}

	elideAll := func() {
		for i := range result.Params {
			result.Params[i].Lifetime = ""
		}

		result.ReturnLifetime = ""
		result.LifetimeParams = nil
		result.Bounds = nil
	}

	if borrowed == 0 {
		elideAll()
		return
	}

	if borrowed == 1 {
		elideAll()
		return
	}

	// The receiver's lifetime covers a reference return on methods.
	if fn.IsMethod && result.ReturnLifetime != "" {
		elideAll()
		return
	}

	if result.ReturnLifetime == "" {
		// Each input reference gets its own elided lifetime.
		elideAll()
		return
	}

	// Multiple reference inputs and a reference return: one shared named
	// lifetime across all of them.
	shared := "a"
	for i := range result.Params {
		if result.Params[i].Lifetime != "" {
			result.Params[i].Lifetime = shared
		}
	}

	result.ReturnLifetime = shared
	result.LifetimeParams = []string{shared}
	result.Bounds = nil
}

// -----------------------------------------------------------------------------

// needsLifetime reports whether a type carries a reference anywhere in it and
// therefore needs a lifetime when returned.
func needsLifetime(typ types.Type) bool {
	switch v := typ.(type) {
	case types.StrType, types.CowType, *types.RefType:
		return true
	case *types.VecType:
		return needsLifetime(v.ElemType)
	case *types.OptionType:
		return needsLifetime(v.ElemType)
	case *types.ResultType:
		return needsLifetime(v.OkType) || needsLifetime(v.ErrType)
	case *types.TupleType:
		for _, elem := range v.ElemTypes {
			if needsLifetime(elem) {
				return true
			}
		}

		return false
	default:
		return false
	}
}
