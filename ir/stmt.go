package ir

import "pyrus/types"

// Stmt represents a statement.  The variant set is closed: the bridge fails
// with a named error rather than producing a statement outside this set.
type Stmt interface {
	Node

	// stmt is a marker method restricting the implementations of Stmt to the
	// variants defined in this package.
	stmt()
}

// StmtBase is the base struct for all statements.
type StmtBase struct {
	NodeBase
}

func (sb *StmtBase) stmt() {}

// -----------------------------------------------------------------------------

// Assign represents an assignment to one or more targets.  A target is an
// Identifier, an Index, an Attribute, or a TupleLit of targets (unpacking).
type Assign struct {
	StmtBase

	Targets []Expr
	Value   Expr

	// The declared annotation on the target, or nil for unannotated
	// assignments.
	DeclType types.PyType
}

// If represents a conditional statement.  Elif chains nest inside Else.
type If struct {
	StmtBase

	Cond Expr
	Then []Stmt
	Else []Stmt
}

// While represents a pre-test loop.
type While struct {
	StmtBase

	Cond Expr
	Body []Stmt
}

// ForEach represents an iterator loop.
type ForEach struct {
	StmtBase

	// The iteration target: an Identifier or a TupleLit of Identifiers.
	Target Expr

	Iter Expr
	Body []Stmt
}

// Return represents a return statement.  Value is nil for a bare return.
type Return struct {
	StmtBase

	Value Expr
}

// Raise represents a raise statement.  Value is nil for a bare re-raise.
type Raise struct {
	StmtBase

	Value Expr
}

// -----------------------------------------------------------------------------

// ExceptHandler is one except clause of a Try statement.
type ExceptHandler struct {
	// The name of the exception type matched, or empty for a bare except.
	ExcType string

	// The binding name (`except E as name`), or empty.
	Binding string

	Body []Stmt
}

// Try represents a try/except/else/finally statement.
type Try struct {
	StmtBase

	Body     []Stmt
	Handlers []*ExceptHandler
	OrElse   []Stmt
	Finally  []Stmt
}

// With represents a scoped-resource block.
type With struct {
	StmtBase

	// The context manager expression.
	Context Expr

	// The binding name (`with ctx as name`), or empty.
	Binding string

	Body []Stmt
}

// -----------------------------------------------------------------------------

// Break represents a break statement, optionally labeled.  Python has no
// labels; the bridge synthesizes them when rewriting nested loops that the
// target needs to break out of.
type Break struct {
	StmtBase

	Label string
}

// Continue represents a continue statement, optionally labeled.
type Continue struct {
	StmtBase

	Label string
}

// ExprStmt represents a bare expression statement.
type ExprStmt struct {
	StmtBase

	Expr Expr
}

// Pass represents a no-op statement.
type Pass struct {
	StmtBase
}

// Assert represents an assertion.  Msg may be nil.
type Assert struct {
	StmtBase

	Cond Expr
	Msg  Expr
}
