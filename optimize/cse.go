package optimize

import (
	"fmt"
	"strconv"
	"strings"

	"pyrus/ir"
)

// eliminateCommonSubexprs hoists pure subexpressions computed more than once
// in the top-level block into a single binding before their first use.  Only
// expressions over names that are never reassigned or mutated anywhere in the
// function are candidates, so hoisting cannot observe a different value than
// the original site would have.
func (o *Optimizer) eliminateCommonSubexprs(fn *ir.Function) []ir.Stmt {
	frozen := frozenNames(fn)

	// Count candidate occurrences across the top-level block.
	counts := make(map[string]int)
	exprs := make(map[string]ir.Expr)

	for _, stmt := range fn.Body {
		collectCandidates(stmt, frozen, counts, exprs)
	}

	// Hoist each repeated candidate before the first statement that
	// computes it.
	hoisted := make(map[string]string)
	out := make([]ir.Stmt, 0, len(fn.Body))

	for _, stmt := range fn.Body {
		for _, key := range candidateKeysIn(stmt, frozen) {
			if counts[key] < 2 {
				continue
			}

			if _, done := hoisted[key]; done {
				continue
			}

			name := "cse" + strconv.Itoa(o.tempCounter)
			o.tempCounter++
			hoisted[key] = name

			expr := exprs[key]
			out = append(out, &ir.Assign{
				StmtBase: ir.StmtBase{NodeBase: ir.NewNodeBaseOn(expr.Span())},
				Targets:  []ir.Expr{&ir.Identifier{ExprBase: ir.NewExprBase(expr.Span()), Name: name}},
				Value:    expr,
			})
		}

		replaceCandidates(stmt, frozen, hoisted)
		out = append(out, stmt)
	}

	return out
}

// frozenNames returns the names that are never rebound or mutated anywhere in
// the function: parameters and locals with exactly one binding and no
// mutating method calls.
func frozenNames(fn *ir.Function) map[string]struct{} {
	counts := make(map[string]int)
	for _, param := range fn.Params {
		counts[param.Name]++
	}

	countBindings(fn.Body, counts)

	mutated := make(map[string]struct{})

	ir.WalkBody(fn.Body,
		func(stmt ir.Stmt) {
			if as, ok := stmt.(*ir.Assign); ok {
				for _, target := range as.Targets {
					markTargetMutations(target, mutated)
				}
			}
		},
		func(expr ir.Expr) {
			switch v := expr.(type) {
			case *ir.MethodCall:
				if recv, ok := v.Receiver.(*ir.Identifier); ok {
					mutated[recv.Name] = struct{}{}
				}
			case *ir.SortByKey:
				if base, ok := v.Base.(*ir.Identifier); ok && v.InPlace {
					mutated[base.Name] = struct{}{}
				}
			case *ir.Comprehension:
				// Clause targets are scoped to the comprehension; a hoist
				// over them would move the name out of its scope.
				for _, clause := range v.Clauses {
					markTargetMutations(clause.Target, mutated)
				}
			case *ir.Lambda:
				for _, param := range v.Params {
					mutated[param] = struct{}{}
				}
			}
		})

	frozen := make(map[string]struct{})

	for name, count := range counts {
		if count != 1 {
			continue
		}

		if _, isMutated := mutated[name]; !isMutated {
			frozen[name] = struct{}{}
		}
	}

	return frozen
}

func markTargetMutations(target ir.Expr, mutated map[string]struct{}) {
	switch v := target.(type) {
	case *ir.Identifier:
		mutated[v.Name] = struct{}{}
	case *ir.Index:
		if base, ok := v.Base.(*ir.Identifier); ok {
			mutated[base.Name] = struct{}{}
		}
	case *ir.Attribute:
		if base, ok := v.Base.(*ir.Identifier); ok {
			mutated[base.Name] = struct{}{}
		}
	case *ir.TupleLit:
		for _, elem := range v.Elems {
			markTargetMutations(elem, mutated)
		}
	}
}

// -----------------------------------------------------------------------------

// isCandidate reports whether an expression is worth hoisting: a pure
// compound computation whose free names are all frozen.
func isCandidate(expr ir.Expr, frozen map[string]struct{}) bool {
	switch expr.(type) {
	case *ir.Binary, *ir.Unary, *ir.Attribute:
	default:
		return false
	}

	if !isPure(expr) {
		return false
	}

	free := true

	ir.WalkExpr(expr, func(e ir.Expr) {
		if id, ok := e.(*ir.Identifier); ok {
			if _, ok := frozen[id.Name]; !ok {
				free = false
			}
		}
	})

	// A bare literal computation would already be folded; require at least
	// one name so the hoist saves work.
	hasName := false

	ir.WalkExpr(expr, func(e ir.Expr) {
		if _, ok := e.(*ir.Identifier); ok {
			hasName = true
		}
	})

	return free && hasName
}

// exprKey builds a canonical structural key for candidate matching.
func exprKey(expr ir.Expr) string {
	var sb strings.Builder
	writeKey(&sb, expr)
	return sb.String()
}

func writeKey(sb *strings.Builder, expr ir.Expr) {
	switch v := expr.(type) {
	case *ir.Literal:
		switch v.Kind {
		case ir.LitInt:
			fmt.Fprintf(sb, "i%d", v.IntVal)
		case ir.LitFloat:
			fmt.Fprintf(sb, "f%g", v.FloatVal)
		case ir.LitString:
			fmt.Fprintf(sb, "s%q", v.StrVal)
		case ir.LitBool:
			fmt.Fprintf(sb, "b%t", v.BoolVal)
		default:
			sb.WriteString("none")
		}
	case *ir.Identifier:
		sb.WriteString("v:" + v.Name)
	case *ir.Binary:
		fmt.Fprintf(sb, "(%d ", v.Op)
		writeKey(sb, v.Lhs)
		sb.WriteByte(' ')
		writeKey(sb, v.Rhs)
		sb.WriteByte(')')
	case *ir.Unary:
		fmt.Fprintf(sb, "(u%d ", v.Op)
		writeKey(sb, v.Operand)
		sb.WriteByte(')')
	case *ir.Attribute:
		sb.WriteByte('(')
		writeKey(sb, v.Base)
		sb.WriteString("." + v.Name + ")")
	default:
		// Unkeyed forms never match each other.
		fmt.Fprintf(sb, "%p", expr)
	}
}

// collectCandidates counts candidate subexpressions in the expressions of one
// statement, without descending into nested blocks: hoisting is top-level
// block local.
func collectCandidates(stmt ir.Stmt, frozen map[string]struct{}, counts map[string]int, exprs map[string]ir.Expr) {
	forEachStmtExpr(stmt, func(expr ir.Expr) {
		ir.WalkExpr(expr, func(e ir.Expr) {
			if isCandidate(e, frozen) {
				key := exprKey(e)
				counts[key]++

				if _, ok := exprs[key]; !ok {
					exprs[key] = e
				}
			}
		})
	})
}

// candidateKeysIn returns the candidate keys of one statement in first-seen
// order.
func candidateKeysIn(stmt ir.Stmt, frozen map[string]struct{}) []string {
	var keys []string
	seen := make(map[string]struct{})

	forEachStmtExpr(stmt, func(expr ir.Expr) {
		ir.WalkExpr(expr, func(e ir.Expr) {
			if isCandidate(e, frozen) {
				key := exprKey(e)
				if _, ok := seen[key]; !ok {
					seen[key] = struct{}{}
					keys = append(keys, key)
				}
			}
		})
	})

	return keys
}

// replaceCandidates rewrites hoisted subexpressions as references to their
// bindings.
func replaceCandidates(stmt ir.Stmt, frozen map[string]struct{}, hoisted map[string]string) {
	if len(hoisted) == 0 {
		return
	}

	rewrite := func(expr ir.Expr) ir.Expr {
		return rewriteExpr(expr, func(e ir.Expr) (ir.Expr, bool) {
			if !isCandidate(e, frozen) {
				return nil, false
			}

			name, ok := hoisted[exprKey(e)]
			if !ok {
				return nil, false
			}

			return &ir.Identifier{ExprBase: ir.NewExprBase(e.Span()), Name: name}, true
		})
	}

	mapStmtExprs(stmt, rewrite)
}

// forEachStmtExpr visits the direct expressions of one statement, recursing
// into nested statement blocks as well.
func forEachStmtExpr(stmt ir.Stmt, visit func(ir.Expr)) {
	ir.WalkStmt(stmt, nil, visit)
}

// mapStmtExprs rewrites the direct expressions of one statement and its
// nested blocks with the given transform.
func mapStmtExprs(stmt ir.Stmt, transform func(ir.Expr) ir.Expr) {
	switch v := stmt.(type) {
	case *ir.Assign:
		// Only the read positions of a target may be rewritten.
		for _, target := range v.Targets {
			if idx, ok := target.(*ir.Index); ok {
				idx.Index = transform(idx.Index)
			}
		}

		v.Value = transform(v.Value)
	case *ir.If:
		v.Cond = transform(v.Cond)
		mapBodyExprs(v.Then, transform)
		mapBodyExprs(v.Else, transform)
	case *ir.While:
		v.Cond = transform(v.Cond)
		mapBodyExprs(v.Body, transform)
	case *ir.ForEach:
		v.Iter = transform(v.Iter)
		mapBodyExprs(v.Body, transform)
	case *ir.Return:
		if v.Value != nil {
			v.Value = transform(v.Value)
		}
	case *ir.Raise:
		if v.Value != nil {
			v.Value = transform(v.Value)
		}
	case *ir.Try:
		mapBodyExprs(v.Body, transform)
		for _, handler := range v.Handlers {
			mapBodyExprs(handler.Body, transform)
		}

		mapBodyExprs(v.OrElse, transform)
		mapBodyExprs(v.Finally, transform)
	case *ir.With:
		v.Context = transform(v.Context)
		mapBodyExprs(v.Body, transform)
	case *ir.ExprStmt:
		v.Expr = transform(v.Expr)
	case *ir.Assert:
		v.Cond = transform(v.Cond)
		if v.Msg != nil {
			v.Msg = transform(v.Msg)
		}
	}
}

func mapBodyExprs(body []ir.Stmt, transform func(ir.Expr) ir.Expr) {
	for _, stmt := range body {
		mapStmtExprs(stmt, transform)
	}
}

// rewriteExpr applies a rewrite bottom-up: children first, then the node
// itself.
func rewriteExpr(expr ir.Expr, try func(ir.Expr) (ir.Expr, bool)) ir.Expr {
	if expr == nil {
		return nil
	}

	switch v := expr.(type) {
	case *ir.Binary:
		v.Lhs = rewriteExpr(v.Lhs, try)
		v.Rhs = rewriteExpr(v.Rhs, try)
	case *ir.Unary:
		v.Operand = rewriteExpr(v.Operand, try)
	case *ir.Call:
		v.Func = rewriteExpr(v.Func, try)
		for i := range v.Args {
			v.Args[i] = rewriteExpr(v.Args[i], try)
		}
	case *ir.MethodCall:
		v.Receiver = rewriteExpr(v.Receiver, try)
		for i := range v.Args {
			v.Args[i] = rewriteExpr(v.Args[i], try)
		}
	case *ir.Index:
		v.Base = rewriteExpr(v.Base, try)
		v.Index = rewriteExpr(v.Index, try)
	case *ir.Attribute:
		v.Base = rewriteExpr(v.Base, try)
	case *ir.Slice:
		v.Base = rewriteExpr(v.Base, try)
		v.Start = rewriteExpr(v.Start, try)
		v.Stop = rewriteExpr(v.Stop, try)
		v.Step = rewriteExpr(v.Step, try)
	case *ir.ListLit:
		for i := range v.Elems {
			v.Elems[i] = rewriteExpr(v.Elems[i], try)
		}
	case *ir.SetLit:
		for i := range v.Elems {
			v.Elems[i] = rewriteExpr(v.Elems[i], try)
		}
	case *ir.TupleLit:
		for i := range v.Elems {
			v.Elems[i] = rewriteExpr(v.Elems[i], try)
		}
	case *ir.DictLit:
		for i := range v.Keys {
			v.Keys[i] = rewriteExpr(v.Keys[i], try)
			v.Values[i] = rewriteExpr(v.Values[i], try)
		}
	case *ir.Comprehension:
		v.Key = rewriteExpr(v.Key, try)
		v.Elem = rewriteExpr(v.Elem, try)
		for i := range v.Clauses {
			v.Clauses[i].Iter = rewriteExpr(v.Clauses[i].Iter, try)
			for j := range v.Clauses[i].Conds {
				v.Clauses[i].Conds[j] = rewriteExpr(v.Clauses[i].Conds[j], try)
			}
		}
	case *ir.Lambda:
		v.Body = rewriteExpr(v.Body, try)
	case *ir.IfExpr:
		v.Cond = rewriteExpr(v.Cond, try)
		v.Then = rewriteExpr(v.Then, try)
		v.Else = rewriteExpr(v.Else, try)
	case *ir.Await:
		v.Operand = rewriteExpr(v.Operand, try)
	case *ir.Yield:
		if v.Value != nil {
			v.Value = rewriteExpr(v.Value, try)
		}
	case *ir.SortByKey:
		v.Base = rewriteExpr(v.Base, try)
	case *ir.Borrow:
		v.Operand = rewriteExpr(v.Operand, try)
	}

	if replaced, ok := try(expr); ok {
		return replaced
	}

	return expr
}
