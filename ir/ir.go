// Package ir defines the typed intermediate representation produced by the
// bridge and consumed by the analyzers and the code generator.  IR nodes are
// pure data: all behavior lives in the phases that walk them.  Nodes are
// immutable after the bridge except for optimizer rewrites.
package ir

import (
	"pyrus/report"
	"pyrus/types"
)

// Node is the abstract interface for all IR nodes.
type Node interface {
	// The text span of the source construct the node was built from.
	Span() *report.TextSpan
}

// NodeBase is a utility base struct for all IR nodes.
type NodeBase struct {
	span *report.TextSpan
}

// NewNodeBaseOn creates a new node base with the given span.
func NewNodeBaseOn(span *report.TextSpan) NodeBase {
	return NodeBase{span: span}
}

func (nb NodeBase) Span() *report.TextSpan {
	return nb.span
}

// -----------------------------------------------------------------------------

// Module represents one translated program unit.  It is built once by the
// bridge and consumed read-only downstream: functions within a module may be
// analyzed and generated independently.
type Module struct {
	// The name of the module.
	Name string

	// The module-level constants in declaration order.
	Globals []*Global

	// The user-defined record types in declaration order.
	Classes []*Class

	// The free functions in declaration order.
	Functions []*Function
}

// Global represents a module-level constant binding.
type Global struct {
	NodeBase

	// The name of the constant.
	Name string

	// The Python-side type of the initializer, inferred by the bridge.  Never
	// unknown for literal initializers: module constants always get a
	// concrete type.
	PyType types.PyType

	// The initializer expression.
	Init Expr
}

// -----------------------------------------------------------------------------

// Function represents one callable.
type Function struct {
	NodeBase

	// The name of the function.
	Name string

	// The ordered parameter list.
	Params []*Param

	// The declared or inferred Python-side return type.
	ReturnType types.PyType

	// The body of the function.
	Body []Stmt

	// Whether the function contains an operation Rust cannot express as
	// non-fallible: division, an explicit raise, parsing.  Fallible functions
	// have their return type wrapped in Result.
	CanFail bool

	// Whether the function was declared `async def`.
	IsAsync bool

	// Whether the body contains a yield or await: suspension-point functions
	// are rewritten into lazy-sequence state machines.
	HasSuspensionPoints bool

	// Whether the function is a method bound to an implicit receiver.  The
	// receiver is not part of Params.
	IsMethod bool

	// The docstring, if the body opened with one.
	Docstring string
}

// Param represents one function parameter.
type Param struct {
	// The name of the parameter.
	Name string

	// The declared Python-side type, or PyUnknown when unannotated.
	PyType types.PyType

	// The default value expression, or nil.
	Default Expr

	// Where the parameter was declared.
	DefSpan *report.TextSpan
}

// -----------------------------------------------------------------------------

// Class represents a user-defined record type.
type Class struct {
	NodeBase

	// The name of the class.
	Name string

	// The fields of the class in declaration order.
	Fields []*Field

	// The methods of the class.  Each is a Function with IsMethod set.
	Methods []*Function
}

// Field represents one declared class field.
type Field struct {
	// The name of the field.
	Name string

	// The declared Python-side type.
	PyType types.PyType

	// Where the field was declared.
	DefSpan *report.TextSpan
}
