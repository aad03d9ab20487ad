package optimize

import (
	"pyrus/ir"
)

// foldBody folds literal subexpressions in every statement of a block.
func (o *Optimizer) foldBody(body []ir.Stmt) []ir.Stmt {
	for _, stmt := range body {
		o.foldStmt(stmt)
	}

	return body
}

// foldStmt folds the expressions of one statement in place.
func (o *Optimizer) foldStmt(stmt ir.Stmt) {
	switch v := stmt.(type) {
	case *ir.Assign:
		v.Value = o.foldExpr(v.Value)
	case *ir.If:
		v.Cond = o.foldExpr(v.Cond)
		o.foldBody(v.Then)
		o.foldBody(v.Else)
	case *ir.While:
		v.Cond = o.foldExpr(v.Cond)
		o.foldBody(v.Body)
	case *ir.ForEach:
		v.Iter = o.foldExpr(v.Iter)
		o.foldBody(v.Body)
	case *ir.Return:
		if v.Value != nil {
			v.Value = o.foldExpr(v.Value)
		}
	case *ir.Raise:
		if v.Value != nil {
			v.Value = o.foldExpr(v.Value)
		}
	case *ir.Try:
		o.foldBody(v.Body)
		for _, handler := range v.Handlers {
			o.foldBody(handler.Body)
		}

		o.foldBody(v.OrElse)
		o.foldBody(v.Finally)
	case *ir.With:
		v.Context = o.foldExpr(v.Context)
		o.foldBody(v.Body)
	case *ir.ExprStmt:
		v.Expr = o.foldExpr(v.Expr)
	case *ir.Assert:
		v.Cond = o.foldExpr(v.Cond)
		if v.Msg != nil {
			v.Msg = o.foldExpr(v.Msg)
		}
	}
}

// foldExpr folds one expression bottom-up, returning the folded form.
// Division, floor division, modulo, and exponentiation are never folded:
// their runtime semantics (fallibility, sign handling, overflow checks) must
// survive into the generated code.
func (o *Optimizer) foldExpr(expr ir.Expr) ir.Expr {
	switch v := expr.(type) {
	case *ir.Binary:
		v.Lhs = o.foldExpr(v.Lhs)
		v.Rhs = o.foldExpr(v.Rhs)

		if folded, ok := evalBinary(v); ok {
			return folded
		}

		return v
	case *ir.Unary:
		v.Operand = o.foldExpr(v.Operand)

		if folded, ok := evalUnary(v); ok {
			return folded
		}

		return v
	case *ir.Call:
		v.Func = o.foldExpr(v.Func)
		for i := range v.Args {
			v.Args[i] = o.foldExpr(v.Args[i])
		}

		return v
	case *ir.MethodCall:
		v.Receiver = o.foldExpr(v.Receiver)
		for i := range v.Args {
			v.Args[i] = o.foldExpr(v.Args[i])
		}

		return v
	case *ir.Index:
		v.Base = o.foldExpr(v.Base)
		v.Index = o.foldExpr(v.Index)
		return v
	case *ir.Attribute:
		v.Base = o.foldExpr(v.Base)
		return v
	case *ir.Slice:
		v.Base = o.foldExpr(v.Base)
		if v.Start != nil {
			v.Start = o.foldExpr(v.Start)
		}

		if v.Stop != nil {
			v.Stop = o.foldExpr(v.Stop)
		}

		if v.Step != nil {
			v.Step = o.foldExpr(v.Step)
		}

		return v
	case *ir.ListLit:
		for i := range v.Elems {
			v.Elems[i] = o.foldExpr(v.Elems[i])
		}

		return v
	case *ir.SetLit:
		for i := range v.Elems {
			v.Elems[i] = o.foldExpr(v.Elems[i])
		}

		return v
	case *ir.TupleLit:
		for i := range v.Elems {
			v.Elems[i] = o.foldExpr(v.Elems[i])
		}

		return v
	case *ir.DictLit:
		for i := range v.Keys {
			v.Keys[i] = o.foldExpr(v.Keys[i])
			v.Values[i] = o.foldExpr(v.Values[i])
		}

		return v
	case *ir.IfExpr:
		v.Cond = o.foldExpr(v.Cond)
		v.Then = o.foldExpr(v.Then)
		v.Else = o.foldExpr(v.Else)

		// A literal condition selects its branch outright.
		if lit, ok := v.Cond.(*ir.Literal); ok && lit.Kind == ir.LitBool {
			if lit.BoolVal {
				return v.Then
			}

			return v.Else
		}

		return v
	case *ir.Comprehension:
		if v.Key != nil {
			v.Key = o.foldExpr(v.Key)
		}

		v.Elem = o.foldExpr(v.Elem)
		for i := range v.Clauses {
			v.Clauses[i].Iter = o.foldExpr(v.Clauses[i].Iter)
			for j := range v.Clauses[i].Conds {
				v.Clauses[i].Conds[j] = o.foldExpr(v.Clauses[i].Conds[j])
			}
		}

		return v
	case *ir.Lambda:
		v.Body = o.foldExpr(v.Body)
		return v
	case *ir.Await:
		v.Operand = o.foldExpr(v.Operand)
		return v
	case *ir.Yield:
		if v.Value != nil {
			v.Value = o.foldExpr(v.Value)
		}

		return v
	case *ir.SortByKey:
		v.Base = o.foldExpr(v.Base)
		return v
	case *ir.Borrow:
		v.Operand = o.foldExpr(v.Operand)
		return v
	default:
		return expr
	}
}

// evalBinary evaluates a binary operator over two literals when the result is
// exact and side-effect free.
func evalBinary(bin *ir.Binary) (*ir.Literal, bool) {
	lhs, ok := bin.Lhs.(*ir.Literal)
	if !ok {
		return nil, false
	}

	rhs, ok := bin.Rhs.(*ir.Literal)
	if !ok {
		return nil, false
	}

	lit := func(l ir.Literal) *ir.Literal {
		l.ExprBase = ir.NewExprBase(bin.Span())
		return &l
	}

	if lhs.Kind == ir.LitInt && rhs.Kind == ir.LitInt {
		a, b := lhs.IntVal, rhs.IntVal

		switch bin.Op {
		case ir.OpAdd:
			return lit(ir.Literal{Kind: ir.LitInt, IntVal: a + b}), true
		case ir.OpSub:
			return lit(ir.Literal{Kind: ir.LitInt, IntVal: a - b}), true
		case ir.OpMul:
			return lit(ir.Literal{Kind: ir.LitInt, IntVal: a * b}), true
		case ir.OpEq:
			return lit(ir.Literal{Kind: ir.LitBool, BoolVal: a == b}), true
		case ir.OpNotEq:
			return lit(ir.Literal{Kind: ir.LitBool, BoolVal: a != b}), true
		case ir.OpLt:
			return lit(ir.Literal{Kind: ir.LitBool, BoolVal: a < b}), true
		case ir.OpLtEq:
			return lit(ir.Literal{Kind: ir.LitBool, BoolVal: a <= b}), true
		case ir.OpGt:
			return lit(ir.Literal{Kind: ir.LitBool, BoolVal: a > b}), true
		case ir.OpGtEq:
			return lit(ir.Literal{Kind: ir.LitBool, BoolVal: a >= b}), true
		}

		return nil, false
	}

	if lhs.Kind == ir.LitFloat && rhs.Kind == ir.LitFloat {
		a, b := lhs.FloatVal, rhs.FloatVal

		switch bin.Op {
		case ir.OpAdd:
			return lit(ir.Literal{Kind: ir.LitFloat, FloatVal: a + b}), true
		case ir.OpSub:
			return lit(ir.Literal{Kind: ir.LitFloat, FloatVal: a - b}), true
		case ir.OpMul:
			return lit(ir.Literal{Kind: ir.LitFloat, FloatVal: a * b}), true
		}

		return nil, false
	}

	if lhs.Kind == ir.LitBool && rhs.Kind == ir.LitBool {
		a, b := lhs.BoolVal, rhs.BoolVal

		switch bin.Op {
		case ir.OpAnd:
			return lit(ir.Literal{Kind: ir.LitBool, BoolVal: a && b}), true
		case ir.OpOr:
			return lit(ir.Literal{Kind: ir.LitBool, BoolVal: a || b}), true
		}

		return nil, false
	}

	if lhs.Kind == ir.LitString && rhs.Kind == ir.LitString && bin.Op == ir.OpAdd {
		return lit(ir.Literal{Kind: ir.LitString, StrVal: lhs.StrVal + rhs.StrVal}), true
	}

	return nil, false
}

// evalUnary evaluates a unary operator over a literal.
func evalUnary(un *ir.Unary) (*ir.Literal, bool) {
	operand, ok := un.Operand.(*ir.Literal)
	if !ok {
		return nil, false
	}

	lit := func(l ir.Literal) *ir.Literal {
		l.ExprBase = ir.NewExprBase(un.Span())
		return &l
	}

	switch un.Op {
	case ir.OpNeg:
		switch operand.Kind {
		case ir.LitInt:
			return lit(ir.Literal{Kind: ir.LitInt, IntVal: -operand.IntVal}), true
		case ir.LitFloat:
			return lit(ir.Literal{Kind: ir.LitFloat, FloatVal: -operand.FloatVal}), true
		}
	case ir.OpNot:
		if operand.Kind == ir.LitBool {
			return lit(ir.Literal{Kind: ir.LitBool, BoolVal: !operand.BoolVal}), true
		}
	}

	return nil, false
}

// -----------------------------------------------------------------------------

// propagateConstants substitutes names bound exactly once to a literal.  The
// pass runs in two strict phases: first every assignment target across the
// whole body is counted (loops, conditionals, and nested blocks included),
// then substitution applies only to names with exactly one binding.
// Interleaving the phases is what turns accumulator loops into constants.
func (o *Optimizer) propagateConstants(fn *ir.Function) {
	counts := make(map[string]int)

	// Parameters are bindings: a body assignment to a parameter makes two.
	for _, param := range fn.Params {
		counts[param.Name]++
	}

	countBindings(fn.Body, counts)

	// Phase two: collect top-level single-binding literal assignments and
	// substitute them into the statements that follow.
	consts := make(map[string]*ir.Literal)

	for _, stmt := range fn.Body {
		substStmt(stmt, consts)

		as, ok := stmt.(*ir.Assign)
		if !ok || len(as.Targets) != 1 {
			continue
		}

		target, ok := as.Targets[0].(*ir.Identifier)
		if !ok || counts[target.Name] != 1 {
			continue
		}

		if lit, ok := as.Value.(*ir.Literal); ok {
			consts[target.Name] = lit
		}
	}
}

// countBindings counts every binding occurrence of every name in a block,
// including loop targets, with-bindings, exception bindings, comprehension
// clause targets, and lambda parameters.
func countBindings(body []ir.Stmt, counts map[string]int) {
	countTarget := func(target ir.Expr) {
		countTargetNames(target, counts)
	}

	ir.WalkBody(body,
		func(stmt ir.Stmt) {
			switch v := stmt.(type) {
			case *ir.Assign:
				for _, target := range v.Targets {
					countTarget(target)
				}
			case *ir.ForEach:
				countTarget(v.Target)
			case *ir.With:
				if v.Binding != "" {
					counts[v.Binding]++
				}
			case *ir.Try:
				for _, handler := range v.Handlers {
					if handler.Binding != "" {
						counts[handler.Binding]++
					}
				}
			}
		},
		func(expr ir.Expr) {
			switch v := expr.(type) {
			case *ir.Comprehension:
				for _, clause := range v.Clauses {
					countTarget(clause.Target)
				}
			case *ir.Lambda:
				for _, name := range v.Params {
					counts[name]++
				}
			}
		})
}

// countTargetNames counts the bare names bound by an assignment target.
// Index and attribute targets mutate an existing binding rather than creating
// one, but they still disqualify the base name from propagation.
func countTargetNames(target ir.Expr, counts map[string]int) {
	switch v := target.(type) {
	case *ir.Identifier:
		counts[v.Name]++
	case *ir.Index:
		if base, ok := v.Base.(*ir.Identifier); ok {
			counts[base.Name]++
		}
	case *ir.Attribute:
		if base, ok := v.Base.(*ir.Identifier); ok {
			counts[base.Name]++
		}
	case *ir.TupleLit:
		for _, elem := range v.Elems {
			countTargetNames(elem, counts)
		}
	}
}

// substStmt substitutes known constants into the read positions of one
// statement and everything nested in it.
func substStmt(stmt ir.Stmt, consts map[string]*ir.Literal) {
	if len(consts) == 0 {
		return
	}

	switch v := stmt.(type) {
	case *ir.Assign:
		for _, target := range v.Targets {
			substTarget(target, consts)
		}

		v.Value = substExpr(v.Value, consts)
	case *ir.If:
		v.Cond = substExpr(v.Cond, consts)
		substBody(v.Then, consts)
		substBody(v.Else, consts)
	case *ir.While:
		v.Cond = substExpr(v.Cond, consts)
		substBody(v.Body, consts)
	case *ir.ForEach:
		v.Iter = substExpr(v.Iter, consts)
		substBody(v.Body, consts)
	case *ir.Return:
		if v.Value != nil {
			v.Value = substExpr(v.Value, consts)
		}
	case *ir.Raise:
		if v.Value != nil {
			v.Value = substExpr(v.Value, consts)
		}
	case *ir.Try:
		substBody(v.Body, consts)
		for _, handler := range v.Handlers {
			substBody(handler.Body, consts)
		}

		substBody(v.OrElse, consts)
		substBody(v.Finally, consts)
	case *ir.With:
		v.Context = substExpr(v.Context, consts)
		substBody(v.Body, consts)
	case *ir.ExprStmt:
		v.Expr = substExpr(v.Expr, consts)
	case *ir.Assert:
		v.Cond = substExpr(v.Cond, consts)
		if v.Msg != nil {
			v.Msg = substExpr(v.Msg, consts)
		}
	}
}

func substBody(body []ir.Stmt, consts map[string]*ir.Literal) {
	for _, stmt := range body {
		substStmt(stmt, consts)
	}
}

// substTarget substitutes into the read positions of an assignment target:
// the index expression of an indexed write, never the written name itself.
func substTarget(target ir.Expr, consts map[string]*ir.Literal) {
	switch v := target.(type) {
	case *ir.Index:
		v.Index = substExpr(v.Index, consts)
	case *ir.TupleLit:
		for _, elem := range v.Elems {
			substTarget(elem, consts)
		}
	}
}

// substExpr replaces constant names with copies of their literal values.
func substExpr(expr ir.Expr, consts map[string]*ir.Literal) ir.Expr {
	switch v := expr.(type) {
	case *ir.Identifier:
		if lit, ok := consts[v.Name]; ok {
			copied := *lit
			copied.ExprBase = ir.NewExprBase(v.Span())
			return &copied
		}

		return v
	case *ir.Binary:
		v.Lhs = substExpr(v.Lhs, consts)
		v.Rhs = substExpr(v.Rhs, consts)
		return v
	case *ir.Unary:
		v.Operand = substExpr(v.Operand, consts)
		return v
	case *ir.Call:
		v.Func = substExpr(v.Func, consts)
		for i := range v.Args {
			v.Args[i] = substExpr(v.Args[i], consts)
		}

		return v
	case *ir.MethodCall:
		v.Receiver = substExpr(v.Receiver, consts)
		for i := range v.Args {
			v.Args[i] = substExpr(v.Args[i], consts)
		}

		return v
	case *ir.Index:
		v.Base = substExpr(v.Base, consts)
		v.Index = substExpr(v.Index, consts)
		return v
	case *ir.Attribute:
		v.Base = substExpr(v.Base, consts)
		return v
	case *ir.Slice:
		v.Base = substExpr(v.Base, consts)
		if v.Start != nil {
			v.Start = substExpr(v.Start, consts)
		}

		if v.Stop != nil {
			v.Stop = substExpr(v.Stop, consts)
		}

		if v.Step != nil {
			v.Step = substExpr(v.Step, consts)
		}

		return v
	case *ir.ListLit:
		for i := range v.Elems {
			v.Elems[i] = substExpr(v.Elems[i], consts)
		}

		return v
	case *ir.SetLit:
		for i := range v.Elems {
			v.Elems[i] = substExpr(v.Elems[i], consts)
		}

		return v
	case *ir.TupleLit:
		for i := range v.Elems {
			v.Elems[i] = substExpr(v.Elems[i], consts)
		}

		return v
	case *ir.DictLit:
		for i := range v.Keys {
			v.Keys[i] = substExpr(v.Keys[i], consts)
			v.Values[i] = substExpr(v.Values[i], consts)
		}

		return v
	case *ir.IfExpr:
		v.Cond = substExpr(v.Cond, consts)
		v.Then = substExpr(v.Then, consts)
		v.Else = substExpr(v.Else, consts)
		return v
	case *ir.Await:
		v.Operand = substExpr(v.Operand, consts)
		return v
	case *ir.Yield:
		if v.Value != nil {
			v.Value = substExpr(v.Value, consts)
		}

		return v
	case *ir.SortByKey:
		v.Base = substExpr(v.Base, consts)
		return v
	case *ir.Borrow:
		v.Operand = substExpr(v.Operand, consts)
		return v
	default:
		// Lambda and comprehension bodies bind their own names; any name
		// they bind has a count above one and never reaches consts, so
		// descending into them would be safe but is unnecessary for
		// correctness and skipped to keep shadowing trivially right.
		return expr
	}
}
