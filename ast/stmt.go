package ast

// Stmt is the interface implemented by all statement nodes.
type Stmt interface {
	Node

	stmt()
}

// StmtBase is the base struct for all statements.
type StmtBase struct {
	NodeBase
}

func (sb *StmtBase) stmt() {}

// -----------------------------------------------------------------------------

// Arg is one declared parameter of a function definition.
type Arg struct {
	// The name of the parameter.
	Name string

	// The annotation expression, or nil when unannotated.
	Annotation Expr

	// The default value, or nil.
	Default Expr
}

// FunctionDef represents a function or method definition.
type FunctionDef struct {
	StmtBase

	Name string
	Args []*Arg

	// The return annotation expression, or nil.
	Returns Expr

	Body []Stmt

	// Whether the function was declared `async def`.
	IsAsync bool

	// Decorator expressions in source order.
	Decorators []Expr
}

// ClassDef represents a class definition.
type ClassDef struct {
	StmtBase

	Name  string
	Bases []Expr
	Body  []Stmt
}

// -----------------------------------------------------------------------------

// Assign represents `a = b` with one or more targets (`a = b = c`).
type Assign struct {
	StmtBase

	Targets []Expr
	Value   Expr
}

// AnnAssign represents an annotated assignment `a: T = b`.  Value may be nil
// for a bare declaration.
type AnnAssign struct {
	StmtBase

	Target     Expr
	Annotation Expr
	Value      Expr
}

// AugAssign represents an augmented assignment `a += b`.  Op is the
// non-augmented operator name as in BinOp.
type AugAssign struct {
	StmtBase

	Target Expr
	Op     string
	Value  Expr
}

// -----------------------------------------------------------------------------

// If represents a conditional statement.  Elif chains arrive nested in
// OrElse.
type If struct {
	StmtBase

	Test   Expr
	Body   []Stmt
	OrElse []Stmt
}

// While represents a pre-test loop.  OrElse is the Python while-else clause.
type While struct {
	StmtBase

	Test   Expr
	Body   []Stmt
	OrElse []Stmt
}

// For represents an iterator loop.  OrElse is the Python for-else clause.
type For struct {
	StmtBase

	Target  Expr
	Iter    Expr
	Body    []Stmt
	OrElse  []Stmt
	IsAsync bool
}

// -----------------------------------------------------------------------------

// Return represents a return statement.  Value may be nil.
type Return struct {
	StmtBase

	Value Expr
}

// Raise represents a raise statement.  Exc may be nil for a bare re-raise.
type Raise struct {
	StmtBase

	Exc   Expr
	Cause Expr
}

// ExceptHandler is one except clause.
type ExceptHandler struct {
	// The matched exception type expression, or nil for a bare except.
	Type Expr

	// The binding name (`except E as name`), or empty.
	Name string

	Body []Stmt
}

// Try represents a try/except/else/finally statement.
type Try struct {
	StmtBase

	Body     []Stmt
	Handlers []*ExceptHandler
	OrElse   []Stmt
	Final    []Stmt
}

// WithItem is one context manager of a with statement.
type WithItem struct {
	Context Expr

	// The optional `as` target, or nil.
	Vars Expr
}

// With represents a scoped-resource block.
type With struct {
	StmtBase

	Items []*WithItem
	Body  []Stmt
}

// -----------------------------------------------------------------------------

// Break represents a break statement.
type Break struct {
	StmtBase
}

// Continue represents a continue statement.
type Continue struct {
	StmtBase
}

// ExprStmt represents a bare expression statement.
type ExprStmt struct {
	StmtBase

	Value Expr
}

// Pass represents a pass statement.
type Pass struct {
	StmtBase
}

// Assert represents an assertion.  Msg may be nil.
type Assert struct {
	StmtBase

	Test Expr
	Msg  Expr
}

// Global represents a `global` declaration.  The bridge rejects functions
// containing one: rebinding module globals has no Rust mapping.
type Global struct {
	StmtBase

	Names []string
}

// Delete represents a `del` statement.
type Delete struct {
	StmtBase

	Targets []Expr
}

// Import represents an `import` or `from ... import` statement.  Imports are
// recorded for the dependency mapping but produce no IR.
type Import struct {
	StmtBase

	// The imported module path.
	Module string

	// The imported names for `from` imports; empty for plain imports.
	Names []string
}
