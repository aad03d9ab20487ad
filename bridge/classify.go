package bridge

import (
	"pyrus/ir"
)

// bodyCanFail reports whether a function body contains an operation that must
// surface as a recoverable error: an explicit raise, a division or modulo
// whose divisor may be zero, or a numeric parse of non-numeric input.  The
// flag decides whether the function's return type gets Result-wrapped.
func bodyCanFail(body []ir.Stmt) bool {
	failing := false

	ir.WalkBody(body,
		func(stmt ir.Stmt) {
			if _, ok := stmt.(*ir.Raise); ok {
				failing = true
			}
		},
		func(expr ir.Expr) {
			switch v := expr.(type) {
			case *ir.Binary:
				switch v.Op {
				case ir.OpDiv, ir.OpFloorDiv, ir.OpMod:
					failing = true
				}
			case *ir.Call:
				if isFallibleParse(v) {
					failing = true
				}
			}
		})

	return failing
}

// isFallibleParse reports whether a call is an int() or float() conversion of
// a non-literal argument.  Literal arguments convert at compile time and
// cannot fail.
func isFallibleParse(call *ir.Call) bool {
	fn, ok := call.Func.(*ir.Identifier)
	if !ok || (fn.Name != "int" && fn.Name != "float") {
		return false
	}

	if len(call.Args) != 1 {
		return false
	}

	_, isLiteral := call.Args[0].(*ir.Literal)
	return !isLiteral
}

// bodyHasSuspensions reports whether a function body yields or awaits.  A
// yielding function is rewritten into an iterator state machine instead of
// being emitted directly.
func bodyHasSuspensions(body []ir.Stmt) bool {
	suspending := false

	ir.WalkBody(body, nil, func(expr ir.Expr) {
		switch expr.(type) {
		case *ir.Yield, *ir.Await:
			suspending = true
		}
	})

	return suspending
}
