package optimize

import (
	"pyrus/ir"
)

// eliminateDeadCode removes unreachable statements and assignments to names
// nothing reads.  A name counts as used if it appears anywhere as a value,
// including as the base of an index, attribute, or slice access; only the
// bare written name of an assignment target is excluded.
func (o *Optimizer) eliminateDeadCode(fn *ir.Function) []ir.Stmt {
	body := pruneUnreachable(fn.Body)

	// Removing one dead assignment can orphan another; iterate until the
	// body stops shrinking.
	for {
		before := stmtCount(body)

		uses := make(map[string]int)
		countUses(body, uses)
		body = pruneDeadAssigns(body, uses)

		if stmtCount(body) == before {
			break
		}
	}

	return body
}

// stmtCount counts every statement in a block, nested blocks included.
func stmtCount(body []ir.Stmt) int {
	count := 0
	ir.WalkBody(body, func(ir.Stmt) { count++ }, nil)
	return count
}

// pruneUnreachable drops statements after a terminator within each block and
// simplifies branches with literal conditions.
func pruneUnreachable(body []ir.Stmt) []ir.Stmt {
	out := make([]ir.Stmt, 0, len(body))

	for _, stmt := range body {
		switch v := stmt.(type) {
		case *ir.If:
			if lit, ok := v.Cond.(*ir.Literal); ok && lit.Kind == ir.LitBool {
				// A literal condition selects one branch; splice it in.
				taken := v.Then
				if !lit.BoolVal {
					taken = v.Else
				}

				out = append(out, pruneUnreachable(taken)...)
				continue
			}

			v.Then = pruneUnreachable(v.Then)
			v.Else = pruneUnreachable(v.Else)
		case *ir.While:
			if lit, ok := v.Cond.(*ir.Literal); ok && lit.Kind == ir.LitBool && !lit.BoolVal {
				continue
			}

			v.Body = pruneUnreachable(v.Body)
		case *ir.ForEach:
			v.Body = pruneUnreachable(v.Body)
		case *ir.Try:
			v.Body = pruneUnreachable(v.Body)
			for _, handler := range v.Handlers {
				handler.Body = pruneUnreachable(handler.Body)
			}

			v.OrElse = pruneUnreachable(v.OrElse)
			v.Finally = pruneUnreachable(v.Finally)
		case *ir.With:
			v.Body = pruneUnreachable(v.Body)
		}

		out = append(out, stmt)

		if isTerminator(stmt) {
			break
		}
	}

	return out
}

// isTerminator reports whether control never reaches the statement after this
// one in the same block.
func isTerminator(stmt ir.Stmt) bool {
	switch stmt.(type) {
	case *ir.Return, *ir.Raise, *ir.Break, *ir.Continue:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------

// countUses counts read occurrences of every name in a block.  Bare
// assignment-target names are writes, not uses, but a name written through an
// index or attribute projection is a use of the base.
func countUses(body []ir.Stmt, uses map[string]int) {
	countExpr := func(expr ir.Expr) {
		ir.WalkExpr(expr, func(e ir.Expr) {
			if id, ok := e.(*ir.Identifier); ok {
				uses[id.Name]++
			}
		})
	}

	var countStmt func(stmt ir.Stmt)

	countBody := func(stmts []ir.Stmt) {
		for _, s := range stmts {
			countStmt(s)
		}
	}

	countStmt = func(stmt ir.Stmt) {
		switch v := stmt.(type) {
		case *ir.Assign:
			for _, target := range v.Targets {
				countTargetUses(target, uses, countExpr)
			}

			countExpr(v.Value)
		case *ir.If:
			countExpr(v.Cond)
			countBody(v.Then)
			countBody(v.Else)
		case *ir.While:
			countExpr(v.Cond)
			countBody(v.Body)
		case *ir.ForEach:
			// The loop target is a binding, not a use.
			countExpr(v.Iter)
			countBody(v.Body)
		case *ir.Return:
			if v.Value != nil {
				countExpr(v.Value)
			}
		case *ir.Raise:
			if v.Value != nil {
				countExpr(v.Value)
			}
		case *ir.Try:
			countBody(v.Body)
			for _, handler := range v.Handlers {
				countBody(handler.Body)
			}

			countBody(v.OrElse)
			countBody(v.Finally)
		case *ir.With:
			countExpr(v.Context)
			countBody(v.Body)
		case *ir.ExprStmt:
			countExpr(v.Expr)
		case *ir.Assert:
			countExpr(v.Cond)
			if v.Msg != nil {
				countExpr(v.Msg)
			}
		}
	}

	countBody(body)
}

// countTargetUses counts the uses hidden inside an assignment target: the
// base and index of an indexed write, the base of an attribute write, but
// never the bare written name.
func countTargetUses(target ir.Expr, uses map[string]int, countExpr func(ir.Expr)) {
	switch v := target.(type) {
	case *ir.Identifier:
		// A bare write; not a use.
	case *ir.Index:
		countExpr(v.Base)
		countExpr(v.Index)
	case *ir.Attribute:
		countExpr(v.Base)
	case *ir.TupleLit:
		for _, elem := range v.Elems {
			countTargetUses(elem, uses, countExpr)
		}
	default:
		countExpr(target)
	}
}

// -----------------------------------------------------------------------------

// pruneDeadAssigns removes assignments to unread names whose value has no
// side effects, recursing into nested blocks.
func pruneDeadAssigns(body []ir.Stmt, uses map[string]int) []ir.Stmt {
	out := make([]ir.Stmt, 0, len(body))

	for _, stmt := range body {
		switch v := stmt.(type) {
		case *ir.Assign:
			if isDeadAssign(v, uses) {
				continue
			}
		case *ir.If:
			v.Then = pruneDeadAssigns(v.Then, uses)
			v.Else = pruneDeadAssigns(v.Else, uses)
		case *ir.While:
			v.Body = pruneDeadAssigns(v.Body, uses)
		case *ir.ForEach:
			v.Body = pruneDeadAssigns(v.Body, uses)
		case *ir.Try:
			v.Body = pruneDeadAssigns(v.Body, uses)
			for _, handler := range v.Handlers {
				handler.Body = pruneDeadAssigns(handler.Body, uses)
			}

			v.OrElse = pruneDeadAssigns(v.OrElse, uses)
			v.Finally = pruneDeadAssigns(v.Finally, uses)
		case *ir.With:
			v.Body = pruneDeadAssigns(v.Body, uses)
		}

		out = append(out, stmt)
	}

	return out
}

// isDeadAssign reports whether an assignment binds only unread names with a
// pure value.
func isDeadAssign(as *ir.Assign, uses map[string]int) bool {
	if len(as.Targets) != 1 {
		return false
	}

	target, ok := as.Targets[0].(*ir.Identifier)
	if !ok || uses[target.Name] > 0 {
		return false
	}

	return isPure(as.Value)
}

// isPure reports whether evaluating an expression has no observable side
// effects.  Calls, method calls, and suspension points are never pure.
func isPure(expr ir.Expr) bool {
	switch v := expr.(type) {
	case *ir.Literal, *ir.Identifier:
		return true
	case *ir.Binary:
		// Division and modulo can raise on a zero divisor.
		switch v.Op {
		case ir.OpDiv, ir.OpFloorDiv, ir.OpMod:
			return false
		}

		return isPure(v.Lhs) && isPure(v.Rhs)
	case *ir.Unary:
		return isPure(v.Operand)
	case *ir.Index:
		// Indexing can raise on a missing key or out-of-range index.
		return false
	case *ir.Attribute:
		return isPure(v.Base)
	case *ir.ListLit:
		return allPure(v.Elems)
	case *ir.SetLit:
		return allPure(v.Elems)
	case *ir.TupleLit:
		return allPure(v.Elems)
	case *ir.DictLit:
		return allPure(v.Keys) && allPure(v.Values)
	case *ir.IfExpr:
		return isPure(v.Cond) && isPure(v.Then) && isPure(v.Else)
	case *ir.Lambda:
		// Building a closure is pure; calling it is not.
		return true
	case *ir.Borrow:
		return isPure(v.Operand)
	default:
		return false
	}
}

func allPure(exprs []ir.Expr) bool {
	for _, expr := range exprs {
		if !isPure(expr) {
			return false
		}
	}

	return true
}
