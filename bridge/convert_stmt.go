package bridge

import (
	"pyrus/ast"
	"pyrus/ir"
	"pyrus/report"
)

// convertStmts converts a statement list.
func (b *Bridge) convertStmts(stmts []ast.Stmt) []ir.Stmt {
	converted := make([]ir.Stmt, 0, len(stmts))

	for _, stmt := range stmts {
		converted = append(converted, b.convertStmt(stmt))
	}

	return converted
}

// convertStmt converts one statement, raising a conversion error for any
// construct outside the closed IR variant set.
func (b *Bridge) convertStmt(stmt ast.Stmt) ir.Stmt {
	switch v := stmt.(type) {
	case *ast.Assign:
		return b.convertAssign(v)
	case *ast.AnnAssign:
		return b.convertAnnAssign(v)
	case *ast.AugAssign:
		return b.convertAugAssign(v)
	case *ast.If:
		return &ir.If{
			StmtBase: stmtBase(v),
			Cond:     b.convertExpr(v.Test),
			Then:     b.convertStmts(v.Body),
			Else:     b.convertStmts(v.OrElse),
		}
	case *ast.While:
		if len(v.OrElse) > 0 {
			panic(report.RaiseUnsupported(v.Span(), "while-else clause"))
		}

		return &ir.While{
			StmtBase: stmtBase(v),
			Cond:     b.convertExpr(v.Test),
			Body:     b.convertStmts(v.Body),
		}
	case *ast.For:
		if len(v.OrElse) > 0 {
			panic(report.RaiseUnsupported(v.Span(), "for-else clause"))
		}

		if v.IsAsync {
			panic(report.RaiseUnsupported(v.Span(), "async for loop"))
		}

		return &ir.ForEach{
			StmtBase: stmtBase(v),
			Target:   b.convertLoopTarget(v.Target),
			Iter:     b.convertExpr(v.Iter),
			Body:     b.convertStmts(v.Body),
		}
	case *ast.Return:
		ret := &ir.Return{StmtBase: stmtBase(v)}
		if v.Value != nil {
			ret.Value = b.convertExpr(v.Value)
		}

		return ret
	case *ast.Raise:
		raise := &ir.Raise{StmtBase: stmtBase(v)}
		if v.Exc != nil {
			raise.Value = b.convertExpr(v.Exc)
		}

		return raise
	case *ast.Try:
		return b.convertTry(v)
	case *ast.With:
		return b.convertWith(v)
	case *ast.Break:
		return &ir.Break{StmtBase: stmtBase(v)}
	case *ast.Continue:
		return &ir.Continue{StmtBase: stmtBase(v)}
	case *ast.ExprStmt:
		return &ir.ExprStmt{StmtBase: stmtBase(v), Expr: b.convertExpr(v.Value)}
	case *ast.Pass:
		return &ir.Pass{StmtBase: stmtBase(v)}
	case *ast.Assert:
		assert := &ir.Assert{StmtBase: stmtBase(v), Cond: b.convertExpr(v.Test)}
		if v.Msg != nil {
			assert.Msg = b.convertExpr(v.Msg)
		}

		return assert
	case *ast.Global:
		panic(report.RaiseUnsupported(v.Span(), "global declaration").
			WithSuggestion("pass the value as a parameter or return it instead"))
	case *ast.Delete:
		panic(report.RaiseUnsupported(v.Span(), "del statement"))
	case *ast.FunctionDef:
		panic(report.RaiseUnsupported(v.Span(), "nested function definition").
			WithSuggestion("use a lambda or lift the function to module level"))
	case *ast.ClassDef:
		panic(report.RaiseUnsupported(v.Span(), "nested class definition"))
	case *ast.Import:
		panic(report.RaiseUnsupported(v.Span(), "function-level import"))
	default:
		panic(report.RaiseUnsupported(stmt.Span(), "statement"))
	}
}

// -----------------------------------------------------------------------------

// convertAssign converts a plain assignment.  Chained targets (`a = b = c`)
// become one Assign with multiple targets; tuple unpacking stays a TupleLit
// target.
func (b *Bridge) convertAssign(as *ast.Assign) ir.Stmt {
	targets := make([]ir.Expr, len(as.Targets))
	for i, target := range as.Targets {
		targets[i] = b.convertAssignTarget(target)
	}

	return &ir.Assign{
		StmtBase: stmtBase(as),
		Targets:  targets,
		Value:    b.convertExpr(as.Value),
	}
}

// convertAnnAssign converts an annotated assignment.
func (b *Bridge) convertAnnAssign(aa *ast.AnnAssign) ir.Stmt {
	if aa.Value == nil {
		panic(report.RaiseUnsupported(aa.Span(), "bare annotated declaration").
			WithSuggestion("initialize the variable at its declaration"))
	}

	return &ir.Assign{
		StmtBase: stmtBase(aa),
		Targets:  []ir.Expr{b.convertAssignTarget(aa.Target)},
		Value:    b.convertExpr(aa.Value),
		DeclType: b.parseAnnotation(aa.Annotation),
	}
}

// convertAugAssign desugars `x op= v` into `x = x op v`.  The target is both
// read and written; the ownership analyzer sees both uses.
func (b *Bridge) convertAugAssign(aa *ast.AugAssign) ir.Stmt {
	target := b.convertAssignTarget(aa.Target)
	read := b.convertAssignTarget(aa.Target)

	value := &ir.Binary{
		ExprBase: ir.NewExprBase(aa.Span()),
		Op:       binaryOpFor(aa.Op, aa.Span()),
		Lhs:      read,
		Rhs:      b.convertExpr(aa.Value),
	}

	return &ir.Assign{
		StmtBase: stmtBase(aa),
		Targets:  []ir.Expr{target},
		Value:    value,
	}
}

// convertAssignTarget converts an assignment target: a name, an
// indexed/keyed location, an attribute, or a tuple of targets.
func (b *Bridge) convertAssignTarget(target ast.Expr) ir.Expr {
	switch v := target.(type) {
	case *ast.Name:
		return &ir.Identifier{ExprBase: ir.NewExprBase(v.Span()), Name: v.ID}
	case *ast.Subscript:
		if _, isSlice := v.Index.(*ast.SliceExpr); isSlice {
			panic(report.RaiseUnsupported(v.Span(), "slice assignment target"))
		}

		return &ir.Index{
			ExprBase: ir.NewExprBase(v.Span()),
			Base:     b.convertExpr(v.Value),
			Index:    b.convertExpr(v.Index),
		}
	case *ast.Attribute:
		return &ir.Attribute{
			ExprBase: ir.NewExprBase(v.Span()),
			Base:     b.convertExpr(v.Value),
			Name:     v.Attr,
		}
	case *ast.Tuple:
		elems := make([]ir.Expr, len(v.Elems))
		for i, elem := range v.Elems {
			elems[i] = b.convertAssignTarget(elem)
		}

		return &ir.TupleLit{ExprBase: ir.NewExprBase(v.Span()), Elems: elems}
	default:
		panic(report.RaiseUnsupported(target.Span(), "assignment target"))
	}
}

// convertLoopTarget converts an iterator loop target: a name or a tuple of
// names.
func (b *Bridge) convertLoopTarget(target ast.Expr) ir.Expr {
	switch v := target.(type) {
	case *ast.Name:
		return &ir.Identifier{ExprBase: ir.NewExprBase(v.Span()), Name: v.ID}
	case *ast.Tuple:
		elems := make([]ir.Expr, len(v.Elems))
		for i, elem := range v.Elems {
			elems[i] = b.convertLoopTarget(elem)
		}

		return &ir.TupleLit{ExprBase: ir.NewExprBase(v.Span()), Elems: elems}
	default:
		panic(report.RaiseUnsupported(target.Span(), "loop target"))
	}
}

// -----------------------------------------------------------------------------

// convertTry converts a try/except/else/finally statement.
func (b *Bridge) convertTry(tr *ast.Try) ir.Stmt {
	handlers := make([]*ir.ExceptHandler, len(tr.Handlers))

	for i, handler := range tr.Handlers {
		excType := ""
		if handler.Type != nil {
			name, ok := handler.Type.(*ast.Name)
			if !ok {
				panic(report.RaiseUnsupported(tr.Span(), "non-name exception type"))
			}

			excType = name.ID
		}

		handlers[i] = &ir.ExceptHandler{
			ExcType: excType,
			Binding: handler.Name,
			Body:    b.convertStmts(handler.Body),
		}
	}

	return &ir.Try{
		StmtBase: stmtBase(tr),
		Body:     b.convertStmts(tr.Body),
		Handlers: handlers,
		OrElse:   b.convertStmts(tr.OrElse),
		Finally:  b.convertStmts(tr.Final),
	}
}

// convertWith converts a with statement.  Multiple context managers nest.
func (b *Bridge) convertWith(w *ast.With) ir.Stmt {
	if len(w.Items) == 0 {
		panic(report.Raise(w.Span(), "with statement without a context manager"))
	}

	body := b.convertStmts(w.Body)

	// Build innermost-out so `with a, b:` becomes `with a: with b:`.
	for i := len(w.Items) - 1; i >= 0; i-- {
		item := w.Items[i]

		binding := ""
		if item.Vars != nil {
			name, ok := item.Vars.(*ast.Name)
			if !ok {
				panic(report.RaiseUnsupported(w.Span(), "destructuring with-binding"))
			}

			binding = name.ID
		}

		body = []ir.Stmt{&ir.With{
			StmtBase: stmtBase(w),
			Context:  b.convertExpr(item.Context),
			Binding:  binding,
			Body:     body,
		}}
	}

	return body[0]
}

// -----------------------------------------------------------------------------

func stmtBase(node ast.Node) ir.StmtBase {
	return ir.StmtBase{NodeBase: ir.NewNodeBaseOn(node.Span())}
}
