// Package ast defines the parsed-Python-program tree the bridge consumes.
// The front-end parser that produces it is an external collaborator: trees
// arrive either constructed in-process or decoded from the JSON interchange
// form defined in json.go.
package ast

import "pyrus/report"

// Node is the abstract interface for all AST nodes.
type Node interface {
	// The text span of the node.
	Span() *report.TextSpan
}

// NodeBase is a utility base struct for all AST nodes.
type NodeBase struct {
	span *report.TextSpan
}

// NewNodeBaseOn creates a new AST base with the given span.
func NewNodeBaseOn(span *report.TextSpan) NodeBase {
	return NodeBase{span: span}
}

func (nb NodeBase) Span() *report.TextSpan {
	return nb.span
}

// -----------------------------------------------------------------------------

// Module is the root of one parsed Python source file.
type Module struct {
	NodeBase

	// The name of the module.
	Name string

	// The top-level statements in source order.
	Body []Stmt
}
