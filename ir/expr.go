package ir

import (
	"pyrus/report"
	"pyrus/types"
)

// Expr represents an expression.  All expression nodes implement this
// interface.
type Expr interface {
	Node

	// Type is the inferred Rust type of the expression.  Nil until inference
	// runs; the unknown type when inference could not determine one.
	Type() types.Type

	// SetType sets the inferred type of the expression.
	SetType(types.Type)
}

// ExprBase is the base struct for all expressions.
type ExprBase struct {
	NodeBase

	typ types.Type
}

// NewExprBase creates a new expression base over the given span.
func NewExprBase(span *report.TextSpan) ExprBase {
	return ExprBase{NodeBase: NewNodeBaseOn(span)}
}

func (eb *ExprBase) Type() types.Type {
	return eb.typ
}

func (eb *ExprBase) SetType(typ types.Type) {
	eb.typ = typ
}

// -----------------------------------------------------------------------------

// Enumeration of literal kinds.
const (
	LitInt = iota
	LitFloat
	LitString
	LitBool
	LitNone
)

// Literal represents a single literal value.
type Literal struct {
	ExprBase

	// The kind of the literal.  Must be one of the enumerated literal kinds.
	Kind int

	// The literal payload.  Only the field matching Kind is valid.
	IntVal   int64
	FloatVal float64
	StrVal   string
	BoolVal  bool
}

// Identifier represents a named value reference.
type Identifier struct {
	ExprBase

	Name string
}

// -----------------------------------------------------------------------------

// Enumeration of binary operators.
const (
	OpAdd = iota
	OpSub
	OpMul
	OpDiv      // Python true division: always floating
	OpFloorDiv // Python floor division: rounds toward negative infinity
	OpMod      // Python modulo: result takes the sign of the divisor
	OpPow
	OpEq
	OpNotEq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpAnd
	OpOr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpIn
	OpNotIn
)

// Enumeration of unary operators.
const (
	OpNot = iota
	OpNeg
	OpBitNot
)

// Binary represents a binary operator application.  Multi-operand comparisons
// and short-circuit boolean forms are desugared by the bridge into chains of
// these nodes.
type Binary struct {
	ExprBase

	// The operator.  Must be one of the enumerated binary operators.
	Op int

	Lhs, Rhs Expr
}

// Unary represents a unary operator application.
type Unary struct {
	ExprBase

	// The operator.  Must be one of the enumerated unary operators.
	Op int

	Operand Expr
}

// -----------------------------------------------------------------------------

// Call represents a function call.
type Call struct {
	ExprBase

	// The function expression.  An Identifier for free calls; an Attribute
	// for qualified calls the bridge could not classify as method calls.
	Func Expr

	Args []Expr
}

// MethodCall represents a method invocation on a receiver value.
type MethodCall struct {
	ExprBase

	Receiver Expr
	Method   string
	Args     []Expr
}

// Index represents an indexing or keyed access expression.
type Index struct {
	ExprBase

	Base  Expr
	Index Expr
}

// Attribute represents an attribute access expression.
type Attribute struct {
	ExprBase

	Base Expr
	Name string
}

// Slice represents a slice expression.  Any of Start, Stop, and Step may be
// nil.
type Slice struct {
	ExprBase

	Base  Expr
	Start Expr
	Stop  Expr
	Step  Expr
}

// -----------------------------------------------------------------------------

// ListLit represents a list literal.
type ListLit struct {
	ExprBase

	Elems []Expr
}

// DictLit represents a dict literal.  Keys and Values are parallel.
type DictLit struct {
	ExprBase

	Keys   []Expr
	Values []Expr
}

// SetLit represents a set or frozenset literal.
type SetLit struct {
	ExprBase

	Elems  []Expr
	Frozen bool
}

// TupleLit represents a tuple literal.
type TupleLit struct {
	ExprBase

	Elems []Expr
}

// -----------------------------------------------------------------------------

// Enumeration of comprehension kinds.
const (
	CompList = iota
	CompDict
	CompSet
	CompGenerator
)

// CompClause is one `for ... in ... if ...` clause of a comprehension.
type CompClause struct {
	// The iteration target: an Identifier or a TupleLit of Identifiers.
	Target Expr

	// The iterated expression.
	Iter Expr

	// The filter conditions, if any.
	Conds []Expr
}

// Comprehension represents a list, dict, set, or generator comprehension.
type Comprehension struct {
	ExprBase

	// The kind of the comprehension.  Must be one of the enumerated
	// comprehension kinds.
	Kind int

	// The element expression.  For dict comprehensions, Elem is the value and
	// Key is the key; Key is nil otherwise.
	Key  Expr
	Elem Expr

	Clauses []CompClause
}

// -----------------------------------------------------------------------------

// IfExpr represents a conditional (ternary) expression.
type IfExpr struct {
	ExprBase

	Cond Expr
	Then Expr
	Else Expr
}

// Lambda represents an anonymous function expression.
type Lambda struct {
	ExprBase

	Params []string
	Body   Expr
}

// Await represents an await suspension point.
type Await struct {
	ExprBase

	Operand Expr
}

// Yield represents a yield suspension point.  Value may be nil for a bare
// yield.
type Yield struct {
	ExprBase

	Value Expr
}

// SortByKey represents a sort with an explicit key extractor: `sorted(xs,
// key=...)` or `xs.sort(key=...)` in expression position.
type SortByKey struct {
	ExprBase

	Base    Expr
	Key     *Lambda
	Reverse bool

	// Whether the sort mutates Base in place (`xs.sort(...)`) rather than
	// producing a new sequence (`sorted(xs, ...)`).
	InPlace bool
}

// Borrow represents an explicit borrow the bridge introduced so a value can
// be passed by reference without moving it.
type Borrow struct {
	ExprBase

	Operand Expr
	Mutable bool
}
