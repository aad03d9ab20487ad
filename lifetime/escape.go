package lifetime

import (
	"pyrus/ir"
	"pyrus/ownership"
	"pyrus/types"
)

// promoteEscapes rewrites borrow strategies that would let a reference
// outlive its source.  A borrowed parameter that is stored, captured, or
// handed back through an owned return type cannot stay a borrow: the
// reference would dangle once the call returns, so the parameter takes
// ownership instead.
func promoteEscapes(fn *ir.Function, mapper *types.Mapper, own *ownership.Result) {
	retCarriesRef := needsLifetime(mapper.Map(fn.ReturnType))

	for i := range own.Params {
		ps := &own.Params[i]

		switch ps.Strategy.Kind {
		case ownership.StratBorrow, ownership.StratBorrowMut:
		default:
			continue
		}

		usage := ps.Usage

		if usage.IsStored || usage.CapturedByClosure {
			ps.Strategy = ownership.Strategy{Kind: ownership.StratOwned}
			continue
		}

		if usage.EscapesViaReturn && !retCarriesRef {
			ps.Strategy = ownership.Strategy{Kind: ownership.StratOwned}
		}
	}
}
