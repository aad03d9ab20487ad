package bridge

import (
	"fmt"

	"pyrus/ast"
	"pyrus/ir"
	"pyrus/report"
)

// binaryOps maps Python operator names to IR binary operators.
var binaryOps = map[string]int{
	"+":      ir.OpAdd,
	"-":      ir.OpSub,
	"*":      ir.OpMul,
	"/":      ir.OpDiv,
	"//":     ir.OpFloorDiv,
	"%":      ir.OpMod,
	"**":     ir.OpPow,
	"&":      ir.OpBitAnd,
	"|":      ir.OpBitOr,
	"^":      ir.OpBitXor,
	"<<":     ir.OpShl,
	">>":     ir.OpShr,
	"==":     ir.OpEq,
	"!=":     ir.OpNotEq,
	"<":      ir.OpLt,
	"<=":     ir.OpLtEq,
	">":      ir.OpGt,
	">=":     ir.OpGtEq,
	"in":     ir.OpIn,
	"not in": ir.OpNotIn,

	// Identity comparisons reduce to equality: the IR has no object
	// identity, and `is None` / `is not None` are by far the common forms.
	"is":     ir.OpEq,
	"is not": ir.OpNotEq,
}

// binaryOpFor resolves a Python operator name, raising for operators with no
// mapping (`@` matrix multiplication).
func binaryOpFor(op string, span *report.TextSpan) int {
	irOp, ok := binaryOps[op]
	if !ok {
		panic(report.RaiseUnsupported(span, "operator `"+op+"`"))
	}

	return irOp
}

// -----------------------------------------------------------------------------

// convertExpr converts one expression, raising a conversion error for any
// construct outside the closed IR variant set.
func (b *Bridge) convertExpr(expr ast.Expr) ir.Expr {
	switch v := expr.(type) {
	case *ast.Constant:
		return b.convertConstant(v)
	case *ast.Name:
		return &ir.Identifier{ExprBase: exprBase(v), Name: v.ID}
	case *ast.BinOp:
		return &ir.Binary{
			ExprBase: exprBase(v),
			Op:       binaryOpFor(v.Op, v.Span()),
			Lhs:      b.convertExpr(v.Left),
			Rhs:      b.convertExpr(v.Right),
		}
	case *ast.BoolOp:
		return b.convertBoolOp(v)
	case *ast.Compare:
		return b.convertCompare(v)
	case *ast.UnaryOp:
		return b.convertUnaryOp(v)
	case *ast.Call:
		return b.convertCall(v)
	case *ast.Attribute:
		return &ir.Attribute{
			ExprBase: exprBase(v),
			Base:     b.convertExpr(v.Value),
			Name:     v.Attr,
		}
	case *ast.Subscript:
		return b.convertSubscript(v)
	case *ast.List:
		return &ir.ListLit{ExprBase: exprBase(v), Elems: b.convertExprs(v.Elems)}
	case *ast.Dict:
		return &ir.DictLit{
			ExprBase: exprBase(v),
			Keys:     b.convertExprs(v.Keys),
			Values:   b.convertExprs(v.Values),
		}
	case *ast.Set:
		return &ir.SetLit{ExprBase: exprBase(v), Elems: b.convertExprs(v.Elems)}
	case *ast.Tuple:
		return &ir.TupleLit{ExprBase: exprBase(v), Elems: b.convertExprs(v.Elems)}
	case *ast.ListComp:
		return b.convertComprehension(v, ir.CompList, nil, v.Elem, v.Clauses)
	case *ast.SetComp:
		return b.convertComprehension(v, ir.CompSet, nil, v.Elem, v.Clauses)
	case *ast.DictComp:
		return b.convertComprehension(v, ir.CompDict, v.Key, v.Value, v.Clauses)
	case *ast.GeneratorExp:
		return b.convertComprehension(v, ir.CompGenerator, nil, v.Elem, v.Clauses)
	case *ast.IfExp:
		return &ir.IfExpr{
			ExprBase: exprBase(v),
			Cond:     b.convertExpr(v.Test),
			Then:     b.convertExpr(v.Body),
			Else:     b.convertExpr(v.OrElse),
		}
	case *ast.Lambda:
		return &ir.Lambda{
			ExprBase: exprBase(v),
			Params:   v.Params,
			Body:     b.convertExpr(v.Body),
		}
	case *ast.Await:
		return &ir.Await{ExprBase: exprBase(v), Operand: b.convertExpr(v.Value)}
	case *ast.Yield:
		yield := &ir.Yield{ExprBase: exprBase(v)}
		if v.Value != nil {
			yield.Value = b.convertExpr(v.Value)
		}

		return yield
	case *ast.YieldFrom:
		panic(report.RaiseUnsupported(v.Span(), "yield from").
			WithSuggestion("rewrite as an explicit loop yielding each element"))
	case *ast.Starred:
		panic(report.RaiseUnsupported(v.Span(), "star unpacking"))
	case *ast.JoinedStr:
		return b.convertJoinedStr(v)
	default:
		panic(report.RaiseUnsupported(expr.Span(), "expression"))
	}
}

func (b *Bridge) convertExprs(exprs []ast.Expr) []ir.Expr {
	converted := make([]ir.Expr, len(exprs))
	for i, expr := range exprs {
		converted[i] = b.convertExpr(expr)
	}

	return converted
}

// -----------------------------------------------------------------------------

func (b *Bridge) convertConstant(c *ast.Constant) ir.Expr {
	lit := &ir.Literal{ExprBase: exprBase(c)}

	switch c.Kind {
	case ast.ConstInt:
		lit.Kind = ir.LitInt
		lit.IntVal = c.IntVal
	case ast.ConstFloat:
		lit.Kind = ir.LitFloat
		lit.FloatVal = c.FloatVal
	case ast.ConstStr:
		lit.Kind = ir.LitString
		lit.StrVal = c.StrVal
	case ast.ConstBool:
		lit.Kind = ir.LitBool
		lit.BoolVal = c.BoolVal
	default:
		lit.Kind = ir.LitNone
	}

	return lit
}

// convertBoolOp desugars a short-circuit boolean form into a left-associated
// chain of explicit conjunction/disjunction nodes.
func (b *Bridge) convertBoolOp(bo *ast.BoolOp) ir.Expr {
	op := ir.OpAnd
	if bo.Op == "or" {
		op = ir.OpOr
	}

	if len(bo.Values) < 2 {
		panic(report.Raise(bo.Span(), "boolean operation with fewer than two operands"))
	}

	result := b.convertExpr(bo.Values[0])
	for _, value := range bo.Values[1:] {
		result = &ir.Binary{
			ExprBase: exprBase(bo),
			Op:       op,
			Lhs:      result,
			Rhs:      b.convertExpr(value),
		}
	}

	return result
}

// convertCompare desugars a multi-target comparison `a <= b <= c` into the
// conjunction `a <= b and b <= c`.  A middle operand feeds two comparisons
// but must evaluate once, so an effectful middle becomes the argument of an
// immediately-applied closure and both sides read the closure parameter;
// pure middles are converted per side and left to CSE.
func (b *Bridge) convertCompare(cmp *ast.Compare) ir.Expr {
	if len(cmp.Ops) != len(cmp.Comparators) {
		panic(report.Raise(cmp.Span(), "malformed comparison"))
	}

	operands := append([]ast.Expr{cmp.Left}, cmp.Comparators...)

	var lamParams []string
	var lamArgs []ir.Expr
	bound := make(map[int]string)

	for i := 1; i < len(operands)-1; i++ {
		middle := b.convertExpr(operands[i])
		if !hasCallEffect(middle) {
			continue
		}

		name := fmt.Sprintf("__cmp%d", len(lamParams))
		bound[i] = name
		lamParams = append(lamParams, name)
		lamArgs = append(lamArgs, middle)
	}

	operandExpr := func(i int) ir.Expr {
		if name, ok := bound[i]; ok {
			return &ir.Identifier{ExprBase: exprBase(cmp), Name: name}
		}

		return b.convertExpr(operands[i])
	}

	var result ir.Expr
	for i, op := range cmp.Ops {
		pair := &ir.Binary{
			ExprBase: exprBase(cmp),
			Op:       binaryOpFor(op, cmp.Span()),
			Lhs:      operandExpr(i),
			Rhs:      operandExpr(i + 1),
		}

		if result == nil {
			result = pair
		} else {
			result = &ir.Binary{
				ExprBase: exprBase(cmp),
				Op:       ir.OpAnd,
				Lhs:      result,
				Rhs:      pair,
			}
		}
	}

	if len(lamParams) == 0 {
		return result
	}

	return &ir.Call{
		ExprBase: exprBase(cmp),
		Func:     &ir.Lambda{ExprBase: exprBase(cmp), Params: lamParams, Body: result},
		Args:     lamArgs,
	}
}

// hasCallEffect reports whether evaluating an expression may run arbitrary
// code, so repeating it could repeat a side effect.
func hasCallEffect(expr ir.Expr) bool {
	effect := false

	ir.WalkExpr(expr, func(e ir.Expr) {
		switch e.(type) {
		case *ir.Call, *ir.MethodCall, *ir.Await, *ir.Yield, *ir.SortByKey:
			effect = true
		}
	})

	return effect
}

func (b *Bridge) convertUnaryOp(uo *ast.UnaryOp) ir.Expr {
	switch uo.Op {
	case "not":
		return &ir.Unary{ExprBase: exprBase(uo), Op: ir.OpNot, Operand: b.convertExpr(uo.Operand)}
	case "-":
		return &ir.Unary{ExprBase: exprBase(uo), Op: ir.OpNeg, Operand: b.convertExpr(uo.Operand)}
	case "~":
		return &ir.Unary{ExprBase: exprBase(uo), Op: ir.OpBitNot, Operand: b.convertExpr(uo.Operand)}
	case "+":
		// Unary plus is a no-op.
		return b.convertExpr(uo.Operand)
	default:
		panic(report.RaiseUnsupported(uo.Span(), "unary operator `"+uo.Op+"`"))
	}
}

// -----------------------------------------------------------------------------

// convertCall converts a call expression, classifying method calls and the
// keyed-sort forms.
func (b *Bridge) convertCall(call *ast.Call) ir.Expr {
	// sorted(xs, key=..., reverse=...) becomes an explicit sort-by-key node.
	if name, ok := call.Func.(*ast.Name); ok && name.ID == "sorted" && len(call.Keywords) > 0 {
		if len(call.Args) != 1 {
			panic(report.Raise(call.Span(), "sorted() requires exactly one positional argument"))
		}

		return b.convertSortCall(call, call.Args[0], false)
	}

	// frozenset([...]) becomes a frozen set literal.
	if name, ok := call.Func.(*ast.Name); ok && name.ID == "frozenset" && len(call.Args) == 1 {
		if list, ok := call.Args[0].(*ast.List); ok {
			return &ir.SetLit{ExprBase: exprBase(call), Elems: b.convertExprs(list.Elems), Frozen: true}
		}

		if set, ok := call.Args[0].(*ast.Set); ok {
			return &ir.SetLit{ExprBase: exprBase(call), Elems: b.convertExprs(set.Elems), Frozen: true}
		}
	}

	if attr, ok := call.Func.(*ast.Attribute); ok {
		// xs.sort(key=...) is the in-place keyed sort.
		if attr.Attr == "sort" && len(call.Keywords) > 0 {
			return b.convertSortCall(call, attr.Value, true)
		}

		if len(call.Keywords) > 0 {
			panic(report.RaiseUnsupported(call.Span(), "keyword arguments"))
		}

		return &ir.MethodCall{
			ExprBase: exprBase(call),
			Receiver: b.convertExpr(attr.Value),
			Method:   attr.Attr,
			Args:     b.convertExprs(call.Args),
		}
	}

	if len(call.Keywords) > 0 {
		panic(report.RaiseUnsupported(call.Span(), "keyword arguments"))
	}

	return &ir.Call{
		ExprBase: exprBase(call),
		Func:     b.convertExpr(call.Func),
		Args:     b.convertExprs(call.Args),
	}
}

// convertSortCall converts the keyed forms of sorted(...) and list.sort(...).
func (b *Bridge) convertSortCall(call *ast.Call, base ast.Expr, inPlace bool) ir.Expr {
	sort := &ir.SortByKey{
		ExprBase: exprBase(call),
		Base:     b.convertExpr(base),
		InPlace:  inPlace,
	}

	for _, kw := range call.Keywords {
		switch kw.Arg {
		case "key":
			lambda, ok := kw.Value.(*ast.Lambda)
			if !ok {
				panic(report.RaiseUnsupported(call.Span(), "non-lambda sort key"))
			}

			key, ok := b.convertExpr(lambda).(*ir.Lambda)
			if !ok {
				report.ReportICE("lambda conversion produced a non-lambda node")
			}

			sort.Key = key
		case "reverse":
			c, ok := kw.Value.(*ast.Constant)
			if !ok || c.Kind != ast.ConstBool {
				panic(report.RaiseUnsupported(call.Span(), "non-literal reverse flag"))
			}

			sort.Reverse = c.BoolVal
		default:
			panic(report.RaiseUnsupported(call.Span(), "sort keyword `"+kw.Arg+"`"))
		}
	}

	return sort
}

// convertSubscript converts an indexing or slicing expression.
func (b *Bridge) convertSubscript(sub *ast.Subscript) ir.Expr {
	if slice, ok := sub.Index.(*ast.SliceExpr); ok {
		s := &ir.Slice{ExprBase: exprBase(sub), Base: b.convertExpr(sub.Value)}

		if slice.Lower != nil {
			s.Start = b.convertExpr(slice.Lower)
		}

		if slice.Upper != nil {
			s.Stop = b.convertExpr(slice.Upper)
		}

		if slice.Step != nil {
			s.Step = b.convertExpr(slice.Step)
		}

		return s
	}

	return &ir.Index{
		ExprBase: exprBase(sub),
		Base:     b.convertExpr(sub.Value),
		Index:    b.convertExpr(sub.Index),
	}
}

// convertComprehension converts any of the four comprehension forms.
func (b *Bridge) convertComprehension(node ast.Expr, kind int, key, elem ast.Expr, clauses []*ast.Comprehension) ir.Expr {
	comp := &ir.Comprehension{
		ExprBase: exprBase(node),
		Kind:     kind,
		Elem:     b.convertExpr(elem),
	}

	if key != nil {
		comp.Key = b.convertExpr(key)
	}

	comp.Clauses = make([]ir.CompClause, len(clauses))
	for i, clause := range clauses {
		comp.Clauses[i] = ir.CompClause{
			Target: b.convertLoopTarget(clause.Target),
			Iter:   b.convertExpr(clause.Iter),
			Conds:  b.convertExprs(clause.Ifs),
		}
	}

	return comp
}

// convertJoinedStr desugars an f-string into string concatenation: literal
// parts stay literals, interpolated parts are wrapped in str() calls.  The
// code generator folds the chain back into one format! invocation.
func (b *Bridge) convertJoinedStr(js *ast.JoinedStr) ir.Expr {
	if len(js.Parts) == 0 {
		return &ir.Literal{ExprBase: exprBase(js), Kind: ir.LitString}
	}

	var result ir.Expr
	for _, part := range js.Parts {
		converted := b.convertExpr(part)

		// Interpolations go through str() so every operand of the chain is
		// text-typed.
		if c, ok := part.(*ast.Constant); !ok || c.Kind != ast.ConstStr {
			converted = &ir.Call{
				ExprBase: exprBase(js),
				Func:     &ir.Identifier{ExprBase: exprBase(js), Name: "str"},
				Args:     []ir.Expr{converted},
			}
		}

		if result == nil {
			result = converted
		} else {
			result = &ir.Binary{
				ExprBase: exprBase(js),
				Op:       ir.OpAdd,
				Lhs:      result,
				Rhs:      converted,
			}
		}
	}

	return result
}

// -----------------------------------------------------------------------------

func exprBase(node ast.Node) ir.ExprBase {
	return ir.NewExprBase(node.Span())
}
