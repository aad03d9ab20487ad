// Package ownership decides how each function parameter crosses the function
// boundary in the generated code: by value, by immutable or mutable
// reference, by copy-on-write, or through shared ownership.  The analyzer
// walks the function body once, records a usage pattern per parameter, and
// derives a strategy from it.  The bias is toward soundness: an
// over-conservative move is acceptable, a missed mutation is not.
package ownership

// UsageKind classifies one use site of a parameter.
type UsageKind int

const (
	// UseRead is a plain read of the parameter's value.
	UseRead UsageKind = iota

	// UseWrite is an in-place mutation through the parameter: an indexed or
	// attribute write, a mutating method call, or an in-place sort.
	UseWrite

	// UseRebind is a reassignment of the parameter name itself, replacing
	// the whole value rather than mutating it in place.
	UseRebind

	// UseMethodCall is a method invocation on the parameter.
	UseMethodCall

	// UseFunctionArg is the parameter passed to another call.
	UseFunctionArg

	// UseReturn is the parameter escaping through a return value.
	UseReturn

	// UseStore is the parameter stored into a collection or object field.
	UseStore

	// UseClosure is the parameter captured by a lambda body.
	UseClosure

	// UseFieldAccess is an attribute read through the parameter.
	UseFieldAccess

	// UseIndexAccess is an indexed read through the parameter.
	UseIndexAccess
)

// UseSite records one use of a parameter together with the control flow
// context it occurred in.
type UseSite struct {
	Kind UsageKind

	// The method or field name for method call and field access sites.
	Member string

	// Whether the site sits inside a loop or a conditional.
	InLoop        bool
	InConditional bool

	// How many projections (index, attribute, borrow) sit between the
	// parameter and this site.
	BorrowDepth int
}

// UsagePattern aggregates every observed use of one parameter.
type UsagePattern struct {
	// The flat usage flags the strategy decision keys on.  IsMutated covers
	// in-place mutation only; a rebind of the name sets IsRebound instead.
	IsRead            bool
	IsMutated         bool
	IsRebound         bool
	IsMoved           bool
	EscapesViaReturn  bool
	IsStored          bool
	CapturedByClosure bool
	UsedInLoop        bool

	// The attribute and method names seen on the parameter.
	FieldAccesses map[string]struct{}
	MethodCalls   map[string]struct{}

	// Every use site in body order.
	Sites []UseSite
}

func newUsagePattern() *UsagePattern {
	return &UsagePattern{
		FieldAccesses: make(map[string]struct{}),
		MethodCalls:   make(map[string]struct{}),
	}
}

// record appends a use site and keeps the flat flags in sync.
func (up *UsagePattern) record(site UseSite) {
	up.Sites = append(up.Sites, site)

	if site.InLoop {
		up.UsedInLoop = true
	}

	switch site.Kind {
	case UseRead, UseFieldAccess, UseIndexAccess, UseFunctionArg, UseMethodCall:
		up.IsRead = true
	case UseWrite:
		up.IsMutated = true
	case UseRebind:
		up.IsRebound = true
	case UseReturn:
		up.EscapesViaReturn = true
	case UseStore:
		up.IsStored = true
	case UseClosure:
		up.CapturedByClosure = true
	}
}

// -----------------------------------------------------------------------------

// mutatingMethods is the closed set of receiver-mutating method names on the
// built-in collection types.  A call to any of these marks the receiver
// mutated, never moved.
var mutatingMethods = map[string]struct{}{
	"append":     {},
	"extend":     {},
	"insert":     {},
	"remove":     {},
	"pop":        {},
	"clear":      {},
	"reverse":    {},
	"sort":       {},
	"update":     {},
	"setdefault": {},
	"popitem":    {},
	"add":        {},
	"discard":    {},
}

// MethodMutatesReceiver reports whether a method name mutates its receiver.
func MethodMutatesReceiver(name string) bool {
	_, ok := mutatingMethods[name]
	return ok
}

// borrowingCalls names the built-in callables known to only borrow their
// arguments.  Anything not listed is conservatively assumed to take
// ownership.
var borrowingCalls = map[string]struct{}{
	"len":        {},
	"str":        {},
	"repr":       {},
	"format":     {},
	"print":      {},
	"isinstance": {},
	"hasattr":    {},
	"getattr":    {},
	"int":        {},
	"float":      {},
	"bool":       {},
	"abs":        {},
	"min":        {},
	"max":        {},
	"sum":        {},
	"sorted":     {},
	"enumerate":  {},
	"range":      {},
	"zip":        {},
}

// callTakesOwnership reports whether passing a value to the named callable
// transfers ownership of it.
func callTakesOwnership(name string) bool {
	_, borrows := borrowingCalls[name]
	return !borrows
}
