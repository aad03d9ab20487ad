package ownership

import (
	"pyrus/types"
)

// StrategyKind enumerates the ways a parameter can cross the function
// boundary.
type StrategyKind int

const (
	// StratOwned takes the value by move or copy.
	StratOwned StrategyKind = iota

	// StratBorrow takes an immutable reference.
	StratBorrow

	// StratBorrowMut takes a mutable reference.
	StratBorrowMut

	// StratCow takes a clone-on-write wrapper, deferring the allocation
	// decision to the call site.
	StratCow

	// StratShared takes reference-counted shared ownership.
	StratShared
)

// Strategy is the decided representation for one parameter.
type Strategy struct {
	Kind StrategyKind

	// The lifetime token without the leading apostrophe, filled in later by
	// lifetime resolution.  Empty means elided.
	Lifetime string
}

// Repr returns a short printable form for diagnostics.
func (s Strategy) Repr() string {
	switch s.Kind {
	case StratOwned:
		return "owned"
	case StratBorrow:
		return "&"
	case StratBorrowMut:
		return "&mut"
	case StratCow:
		return "cow"
	case StratShared:
		return "shared"
	default:
		return "<unknown strategy>"
	}
}

// -----------------------------------------------------------------------------

// InsightKind enumerates the advisory findings the analyzer can attach to a
// parameter.  Insights never change generated code; they surface as warnings.
type InsightKind int

const (
	// InsightUnnecessaryMove flags a parameter moved into a call even
	// though nothing retains it past the call.
	InsightUnnecessaryMove InsightKind = iota

	// InsightSuggestCopy flags a parameter whose mapped type is trivially
	// copyable.
	InsightSuggestCopy

	// InsightBorrowConflict flags a parameter with overlapping mutable
	// use sites.
	InsightBorrowConflict
)

// Insight is one advisory finding about a parameter.
type Insight struct {
	Kind    InsightKind
	Param   string
	Message string
}

// -----------------------------------------------------------------------------

// ParamStrategy pairs a parameter name with its decided strategy and the
// usage pattern that produced it.  Results keep declaration order so output
// is deterministic.
type ParamStrategy struct {
	Name     string
	Strategy Strategy
	Usage    *UsagePattern
}

// Result is the ownership analysis of one function.
type Result struct {
	Params   []ParamStrategy
	Insights []Insight
}

// StrategyFor returns the decided strategy for a parameter name.
func (r *Result) StrategyFor(name string) (Strategy, bool) {
	for _, ps := range r.Params {
		if ps.Name == name {
			return ps.Strategy, true
		}
	}

	return Strategy{}, false
}

// -----------------------------------------------------------------------------

// decide derives the strategy for one parameter from its usage pattern, the
// mapped target type, and the function's declared return type.  The rules
// apply in priority order; the first that fires wins.
func decide(
	name string,
	usage *UsagePattern,
	mapped types.Type,
	pyType types.PyType,
	returnType types.PyType,
	insights *[]Insight,
) Strategy {
	if types.IsCopy(mapped) {
		*insights = append(*insights, Insight{
			Kind:    InsightSuggestCopy,
			Param:   name,
			Message: "parameter type is trivially copyable",
		})
	}

	// A moved parameter must be owned, no matter what else it does.
	if usage.IsMoved {
		if !usage.EscapesViaReturn && !usage.IsStored {
			*insights = append(*insights, Insight{
				Kind:    InsightUnnecessaryMove,
				Param:   name,
				Message: "moved into a call but never retained; a borrow may suffice",
			})
		}

		return Strategy{Kind: StratOwned}
	}

	// A parameter both mutated and returned must be owned: a mutable borrow
	// cannot be handed back as an owned return value.
	if usage.EscapesViaReturn && (usage.IsMutated || usage.IsRebound) {
		return Strategy{Kind: StratOwned}
	}

	// A parameter returned as-is whose type matches the declared return is
	// owned so the caller receives the value without a clone.  Strings get
	// their own handling below.
	if usage.EscapesViaReturn && !types.IsPyString(pyType) {
		if returnType != nil && types.PyEquals(pyType, returnType) {
			return Strategy{Kind: StratOwned}
		}
	}

	// Stored parameters outlive the call inside another structure.
	if usage.IsStored {
		return Strategy{Kind: StratShared}
	}

	// Closure captures take ownership; capture-by-reference analysis is
	// not precise enough to prove the closure never escapes.
	if usage.CapturedByClosure {
		return Strategy{Kind: StratOwned}
	}

	// Trivially copyable values pass by value.
	if types.IsCopy(mapped) {
		return Strategy{Kind: StratOwned}
	}

	if types.IsPyString(pyType) {
		return decideString(usage)
	}

	// A rebind replaces the whole value, so the parameter must own it; a
	// mutable borrow only supports mutation in place.
	if usage.IsRebound {
		return Strategy{Kind: StratOwned}
	}

	if usage.IsMutated {
		return Strategy{Kind: StratBorrowMut}
	}

	if usage.IsRead {
		return Strategy{Kind: StratBorrow}
	}

	// Unused parameter: owned is the simplest correct choice.
	return Strategy{Kind: StratOwned}
}

// decideString picks the strategy for a text parameter.  Any write, in place
// or by rebind, means ownership rather than a mutable borrow.
func decideString(usage *UsagePattern) Strategy {
	if usage.IsMutated || usage.IsRebound {
		return Strategy{Kind: StratOwned}
	}

	// An escaping string gets clone-on-write so read-only callers avoid
	// the allocation.
	if usage.EscapesViaReturn {
		return Strategy{Kind: StratCow, Lifetime: "a"}
	}

	if usage.IsRead {
		return Strategy{Kind: StratBorrow}
	}

	return Strategy{Kind: StratOwned}
}
