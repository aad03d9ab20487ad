package ast

// Expr is the interface implemented by all expression nodes.
type Expr interface {
	Node

	expr()
}

// ExprBase is the base struct for all expressions.
type ExprBase struct {
	NodeBase
}

func (eb *ExprBase) expr() {}

// -----------------------------------------------------------------------------

// Enumeration of constant kinds.
const (
	ConstInt = iota
	ConstFloat
	ConstStr
	ConstBool
	ConstNone
)

// Constant represents a literal constant.
type Constant struct {
	ExprBase

	// The kind of the constant.  Must be one of the enumerated constant
	// kinds.
	Kind int

	IntVal   int64
	FloatVal float64
	StrVal   string
	BoolVal  bool
}

// Name represents an identifier reference.
type Name struct {
	ExprBase

	ID string
}

// -----------------------------------------------------------------------------

// BinOp represents a binary operator application.  Op is the Python operator
// name: one of "+", "-", "*", "/", "//", "%", "**", "&", "|", "^", "<<",
// ">>", "@".
type BinOp struct {
	ExprBase

	Left  Expr
	Op    string
	Right Expr
}

// BoolOp represents a short-circuit boolean form over two or more values.
// Op is "and" or "or".
type BoolOp struct {
	ExprBase

	Op     string
	Values []Expr
}

// Compare represents a comparison, possibly multi-target (`a <= b <= c`).
// Ops and Comparators are parallel; each op is one of "==", "!=", "<", "<=",
// ">", ">=", "in", "not in", "is", "is not".
type Compare struct {
	ExprBase

	Left        Expr
	Ops         []string
	Comparators []Expr
}

// UnaryOp represents a unary operator application.  Op is one of "not", "-",
// "+", "~".
type UnaryOp struct {
	ExprBase

	Op      string
	Operand Expr
}

// -----------------------------------------------------------------------------

// Keyword is one keyword argument of a call.
type Keyword struct {
	Arg   string
	Value Expr
}

// Call represents a call expression.
type Call struct {
	ExprBase

	Func     Expr
	Args     []Expr
	Keywords []*Keyword
}

// Attribute represents an attribute access `value.attr`.
type Attribute struct {
	ExprBase

	Value Expr
	Attr  string
}

// Subscript represents an indexing expression `value[index]`.  Index may be a
// SliceExpr.
type Subscript struct {
	ExprBase

	Value Expr
	Index Expr
}

// SliceExpr represents the `lower:upper:step` form inside a subscript.  Any
// bound may be nil.
type SliceExpr struct {
	ExprBase

	Lower Expr
	Upper Expr
	Step  Expr
}

// -----------------------------------------------------------------------------

// List represents a list display.
type List struct {
	ExprBase

	Elems []Expr
}

// Dict represents a dict display.  Keys and Values are parallel.
type Dict struct {
	ExprBase

	Keys   []Expr
	Values []Expr
}

// Set represents a set display.
type Set struct {
	ExprBase

	Elems []Expr
}

// Tuple represents a tuple display.
type Tuple struct {
	ExprBase

	Elems []Expr
}

// -----------------------------------------------------------------------------

// Comprehension is one `for ... in ... if ...` clause of a comprehension.
type Comprehension struct {
	Target Expr
	Iter   Expr
	Ifs    []Expr
}

// ListComp represents a list comprehension.
type ListComp struct {
	ExprBase

	Elem    Expr
	Clauses []*Comprehension
}

// SetComp represents a set comprehension.
type SetComp struct {
	ExprBase

	Elem    Expr
	Clauses []*Comprehension
}

// DictComp represents a dict comprehension.
type DictComp struct {
	ExprBase

	Key     Expr
	Value   Expr
	Clauses []*Comprehension
}

// GeneratorExp represents a generator expression.
type GeneratorExp struct {
	ExprBase

	Elem    Expr
	Clauses []*Comprehension
}

// -----------------------------------------------------------------------------

// IfExp represents a conditional (ternary) expression.
type IfExp struct {
	ExprBase

	Test   Expr
	Body   Expr
	OrElse Expr
}

// Lambda represents an anonymous function expression.
type Lambda struct {
	ExprBase

	Params []string
	Body   Expr
}

// Await represents an await expression.
type Await struct {
	ExprBase

	Value Expr
}

// Yield represents a yield expression.  Value may be nil.
type Yield struct {
	ExprBase

	Value Expr
}

// YieldFrom represents a `yield from` expression.
type YieldFrom struct {
	ExprBase

	Value Expr
}

// Starred represents a `*value` unpacking expression.  The bridge rejects
// it: star unpacking has no defined Rust mapping.
type Starred struct {
	ExprBase

	Value Expr
}

// JoinedStr represents an f-string.  Parts alternate literal Constants and
// interpolated expressions.
type JoinedStr struct {
	ExprBase

	Parts []Expr
}
