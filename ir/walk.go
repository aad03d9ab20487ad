package ir

// WalkBody walks every statement and expression nested in the body in source
// order.  Either visitor may be nil.  Lambda bodies and comprehension
// element/clause expressions are included: callers that need scope-sensitive
// traversal hand-roll their own walks.
func WalkBody(body []Stmt, visitStmt func(Stmt), visitExpr func(Expr)) {
	for _, stmt := range body {
		WalkStmt(stmt, visitStmt, visitExpr)
	}
}

// WalkStmt walks one statement and everything nested in it.
func WalkStmt(stmt Stmt, visitStmt func(Stmt), visitExpr func(Expr)) {
	if visitStmt != nil {
		visitStmt(stmt)
	}

	switch v := stmt.(type) {
	case *Assign:
		for _, target := range v.Targets {
			WalkExpr(target, visitExpr)
		}

		WalkExpr(v.Value, visitExpr)
	case *If:
		WalkExpr(v.Cond, visitExpr)
		WalkBody(v.Then, visitStmt, visitExpr)
		WalkBody(v.Else, visitStmt, visitExpr)
	case *While:
		WalkExpr(v.Cond, visitExpr)
		WalkBody(v.Body, visitStmt, visitExpr)
	case *ForEach:
		WalkExpr(v.Target, visitExpr)
		WalkExpr(v.Iter, visitExpr)
		WalkBody(v.Body, visitStmt, visitExpr)
	case *Return:
		if v.Value != nil {
			WalkExpr(v.Value, visitExpr)
		}
	case *Raise:
		if v.Value != nil {
			WalkExpr(v.Value, visitExpr)
		}
	case *Try:
		WalkBody(v.Body, visitStmt, visitExpr)
		for _, handler := range v.Handlers {
			WalkBody(handler.Body, visitStmt, visitExpr)
		}

		WalkBody(v.OrElse, visitStmt, visitExpr)
		WalkBody(v.Finally, visitStmt, visitExpr)
	case *With:
		WalkExpr(v.Context, visitExpr)
		WalkBody(v.Body, visitStmt, visitExpr)
	case *ExprStmt:
		WalkExpr(v.Expr, visitExpr)
	case *Assert:
		WalkExpr(v.Cond, visitExpr)
		if v.Msg != nil {
			WalkExpr(v.Msg, visitExpr)
		}
	case *Break, *Continue, *Pass:
	}
}

// WalkExpr walks one expression and everything nested in it.
func WalkExpr(expr Expr, visit func(Expr)) {
	if expr == nil {
		return
	}

	if visit != nil {
		visit(expr)
	}

	switch v := expr.(type) {
	case *Binary:
		WalkExpr(v.Lhs, visit)
		WalkExpr(v.Rhs, visit)
	case *Unary:
		WalkExpr(v.Operand, visit)
	case *Call:
		WalkExpr(v.Func, visit)
		for _, arg := range v.Args {
			WalkExpr(arg, visit)
		}
	case *MethodCall:
		WalkExpr(v.Receiver, visit)
		for _, arg := range v.Args {
			WalkExpr(arg, visit)
		}
	case *Index:
		WalkExpr(v.Base, visit)
		WalkExpr(v.Index, visit)
	case *Attribute:
		WalkExpr(v.Base, visit)
	case *Slice:
		WalkExpr(v.Base, visit)
		WalkExpr(v.Start, visit)
		WalkExpr(v.Stop, visit)
		WalkExpr(v.Step, visit)
	case *ListLit:
		for _, elem := range v.Elems {
			WalkExpr(elem, visit)
		}
	case *DictLit:
		for i := range v.Keys {
			WalkExpr(v.Keys[i], visit)
			WalkExpr(v.Values[i], visit)
		}
	case *SetLit:
		for _, elem := range v.Elems {
			WalkExpr(elem, visit)
		}
	case *TupleLit:
		for _, elem := range v.Elems {
			WalkExpr(elem, visit)
		}
	case *Comprehension:
		WalkExpr(v.Key, visit)
		WalkExpr(v.Elem, visit)
		for _, clause := range v.Clauses {
			WalkExpr(clause.Target, visit)
			WalkExpr(clause.Iter, visit)
			for _, cond := range clause.Conds {
				WalkExpr(cond, visit)
			}
		}
	case *IfExpr:
		WalkExpr(v.Cond, visit)
		WalkExpr(v.Then, visit)
		WalkExpr(v.Else, visit)
	case *Lambda:
		WalkExpr(v.Body, visit)
	case *Await:
		WalkExpr(v.Operand, visit)
	case *Yield:
		WalkExpr(v.Value, visit)
	case *SortByKey:
		WalkExpr(v.Base, visit)
		if v.Key != nil {
			WalkExpr(v.Key, visit)
		}
	case *Borrow:
		WalkExpr(v.Operand, visit)
	case *Literal, *Identifier:
	}
}
