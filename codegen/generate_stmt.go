package codegen

import (
	"fmt"
	"strings"

	"pyrus/ir"
	"pyrus/report"
	"pyrus/types"
)

// generateStmt dispatches on the statement variant.  Simple statements emit
// one line; control-flow statements open nested blocks.
func (g *Generator) generateStmt(w *writer, stmt ir.Stmt) {
	switch v := stmt.(type) {
	case *ir.Assign:
		g.generateAssign(w, v)
	case *ir.If:
		g.generateIf(w, v)
	case *ir.While:
		g.generateWhile(w, v)
	case *ir.ForEach:
		g.generateForEach(w, v)
	case *ir.Return:
		g.generateReturn(w, v)
	case *ir.Raise:
		g.generateRaise(w, v)
	case *ir.Try:
		g.generateTry(w, v)
	case *ir.With:
		g.generateWith(w, v)
	case *ir.Break:
		if v.Label != "" {
			w.line("break '%s;", v.Label)
		} else {
			w.line("break;")
		}
	case *ir.Continue:
		if v.Label != "" {
			w.line("continue '%s;", v.Label)
		} else {
			w.line("continue;")
		}
	case *ir.ExprStmt:
		g.generateExprStmt(w, v)
	case *ir.Pass:
		// Nothing to emit.
	case *ir.Assert:
		g.inferType(v.Cond)
		if v.Msg != nil {
			g.inferType(v.Msg)
			w.line("assert!(%s, \"{}\", %s);", g.emitExpr(v.Cond), g.emitExpr(v.Msg))
		} else {
			w.line("assert!(%s);", g.emitExpr(v.Cond))
		}
	default:
		report.ReportICE("statement variant not handled by codegen")
	}
}

// -----------------------------------------------------------------------------

func (g *Generator) generateAssign(w *writer, as *ir.Assign) {
	valueType := g.inferType(as.Value)

	if len(as.Targets) > 1 {
		// Chained assignment: bind the first target, clone into the rest.
		g.generateTargetAssign(w, as.Targets[0], as, valueType)
		first := g.emitExpr(as.Targets[0])

		for _, target := range as.Targets[1:] {
			chained := &ir.Assign{Targets: []ir.Expr{target}, Value: as.Value}
			g.generateTargetAssignText(w, target, first+".clone()", chained, valueType)
		}

		return
	}

	g.generateTargetAssign(w, as.Targets[0], as, valueType)
}

func (g *Generator) generateTargetAssign(w *writer, target ir.Expr, as *ir.Assign, valueType types.Type) {
	g.generateTargetAssignText(w, target, g.emitOwned(as.Value), as, valueType)
}

func (g *Generator) generateTargetAssignText(w *writer, target ir.Expr, value string, as *ir.Assign, valueType types.Type) {
	switch t := target.(type) {
	case *ir.Identifier:
		declType := valueType
		if as.DeclType != nil {
			declType = g.mapper.Map(as.DeclType)
		}

		if g.ctx.isDeclared(t.Name) {
			w.line("%s = %s;", t.Name, value)
		} else if g.ctx.isMutable(t.Name) {
			w.line("let mut %s = %s;", t.Name, value)
			g.ctx.declare(t.Name)
		} else {
			w.line("let %s = %s;", t.Name, value)
			g.ctx.declare(t.Name)
		}

		g.ctx.bind(t.Name, declType)
	case *ir.Index:
		g.generateIndexAssign(w, t, value)
	case *ir.Attribute:
		g.inferType(t.Base)
		w.line("%s.%s = %s;", g.emitExpr(t.Base), t.Name, value)
	case *ir.TupleLit:
		g.generateTupleAssign(w, t, value, valueType)
	default:
		g.unsupported(target, "assignment target")
	}
}

// generateIndexAssign writes through an indexed location: map inserts keep
// the key usable afterwards, sequence writes index by usize.
func (g *Generator) generateIndexAssign(w *writer, target *ir.Index, value string) {
	baseType := types.InnerType(g.inferType(target.Base))
	g.inferType(target.Index)
	base := g.emitExpr(target.Base)

	switch baseType.(type) {
	case *types.MapType:
		w.line("%s.insert(%s, %s);", base, g.emitKey(target.Index), value)
	case *types.VecType:
		w.line("%s[%s] = %s;", base, g.emitUsize(target.Index), value)
	case types.UnknownType:
		g.requireCrate("pyrus-runtime")
		w.line("%s.set_item(%s, %s);", base, g.emitExpr(target.Index), value)
	default:
		g.unsupported(target, "indexed assignment to this receiver type")
	}
}

// generateTupleAssign destructures a tuple value into its targets.
func (g *Generator) generateTupleAssign(w *writer, target *ir.TupleLit, value string, valueType types.Type) {
	allNew := true
	names := make([]string, len(target.Elems))

	for i, elem := range target.Elems {
		id, ok := elem.(*ir.Identifier)
		if !ok {
			g.unsupported(elem, "non-name element in tuple assignment")
		}

		names[i] = id.Name
		if g.ctx.isDeclared(id.Name) {
			allNew = false
		}
	}

	elemTypes := tupleElemTypes(valueType, len(names))

	if allNew {
		pattern := make([]string, len(names))
		for i, name := range names {
			if g.ctx.isMutable(name) {
				pattern[i] = "mut " + name
			} else {
				pattern[i] = name
			}

			g.ctx.declare(name)
			g.ctx.bind(name, elemTypes[i])
		}

		w.line("let (%s) = %s;", strings.Join(pattern, ", "), value)
		return
	}

	tmp := g.nextTemp("__tup")
	w.line("let %s = %s;", tmp, value)

	for i, name := range names {
		if g.ctx.isDeclared(name) {
			w.line("%s = %s.%d;", name, tmp, i)
		} else if g.ctx.isMutable(name) {
			w.line("let mut %s = %s.%d;", name, tmp, i)
			g.ctx.declare(name)
		} else {
			w.line("let %s = %s.%d;", name, tmp, i)
			g.ctx.declare(name)
		}

		g.ctx.bind(name, elemTypes[i])
	}
}

func tupleElemTypes(typ types.Type, n int) []types.Type {
	elems := make([]types.Type, n)
	tup, ok := types.InnerType(typ).(*types.TupleType)

	for i := range elems {
		if ok && i < len(tup.ElemTypes) {
			elems[i] = tup.ElemTypes[i]
		} else {
			elems[i] = types.UnknownType{}
		}
	}

	return elems
}

// -----------------------------------------------------------------------------

func (g *Generator) generateIf(w *writer, stmt *ir.If) {
	g.inferType(stmt.Cond)
	w.open("if %s", g.emitCond(stmt.Cond))
	g.generateBlock(w, stmt.Then)

	for len(stmt.Else) == 1 {
		elif, ok := stmt.Else[0].(*ir.If)
		if !ok {
			break
		}

		g.inferType(elif.Cond)
		w.closeWith(fmt.Sprintf(" else if %s {", g.emitCond(elif.Cond)))
		w.indent++
		g.generateBlock(w, elif.Then)
		stmt = elif
	}

	if len(stmt.Else) > 0 {
		w.closeWith(" else {")
		w.indent++
		g.generateBlock(w, stmt.Else)
	}

	w.close()
}

func (g *Generator) generateWhile(w *writer, stmt *ir.While) {
	label := g.loopLabel(stmt.Body)

	if lit, ok := stmt.Cond.(*ir.Literal); ok && lit.Kind == ir.LitBool && lit.BoolVal {
		w.open("%sloop", label)
	} else {
		g.inferType(stmt.Cond)
		w.open("%swhile %s", label, g.emitCond(stmt.Cond))
	}

	g.generateBlock(w, stmt.Body)
	w.close()
}

func (g *Generator) generateForEach(w *writer, stmt *ir.ForEach) {
	label := g.loopLabel(stmt.Body)
	iter, elemType := g.emitIterable(stmt.Iter)

	g.ctx.push()
	defer g.ctx.pop()

	pattern := g.bindLoopTarget(stmt.Target, elemType)
	w.open("%sfor %s in %s", label, pattern, iter)
	g.generateBlock(w, stmt.Body)
	w.close()
}

// bindLoopTarget binds an iteration target into the current scope and
// returns its pattern text.
func (g *Generator) bindLoopTarget(target ir.Expr, elemType types.Type) string {
	switch v := target.(type) {
	case *ir.Identifier:
		g.ctx.bind(v.Name, elemType)
		g.ctx.declare(v.Name)

		if g.ctx.isMutable(v.Name) {
			return "mut " + v.Name
		}

		return v.Name
	case *ir.TupleLit:
		elems := tupleElemTypes(elemType, len(v.Elems))
		parts := make([]string, len(v.Elems))

		for i, elem := range v.Elems {
			id, ok := elem.(*ir.Identifier)
			if !ok {
				g.unsupported(elem, "non-name element in loop target")
			}

			g.ctx.bind(id.Name, elems[i])
			g.ctx.declare(id.Name)
			parts[i] = id.Name
		}

		return "(" + strings.Join(parts, ", ") + ")"
	default:
		g.unsupported(target, "loop target")
		return ""
	}
}

// generateBlock emits a nested statement block in its own scope.
func (g *Generator) generateBlock(w *writer, body []ir.Stmt) {
	g.ctx.push()
	defer g.ctx.pop()

	for _, stmt := range body {
		g.generateStmt(w, stmt)
	}
}

// loopLabel returns the label declaration for a loop that a nested labeled
// break or continue targets, or empty.
func (g *Generator) loopLabel(body []ir.Stmt) string {
	label := claimedLabel(body, false)
	if label == "" {
		return ""
	}

	return "'" + label + ": "
}

// claimedLabel finds the first label referenced by a break/continue inside a
// nested loop of the body.  A labeled jump always targets an outer loop, so
// the loop owning this body claims it.
func claimedLabel(body []ir.Stmt, inNested bool) string {
	for _, stmt := range body {
		switch v := stmt.(type) {
		case *ir.Break:
			if inNested && v.Label != "" {
				return v.Label
			}
		case *ir.Continue:
			if inNested && v.Label != "" {
				return v.Label
			}
		case *ir.While:
			if label := claimedLabel(v.Body, true); label != "" {
				return label
			}
		case *ir.ForEach:
			if label := claimedLabel(v.Body, true); label != "" {
				return label
			}
		case *ir.If:
			if label := claimedLabel(v.Then, inNested); label != "" {
				return label
			}

			if label := claimedLabel(v.Else, inNested); label != "" {
				return label
			}
		}
	}

	return ""
}

// -----------------------------------------------------------------------------

func (g *Generator) generateReturn(w *writer, stmt *ir.Return) {
	if stmt.Value == nil {
		if g.ctx.wrapped {
			w.line("return Ok(());")
		} else {
			w.line("return;")
		}

		return
	}

	g.inferType(stmt.Value)
	value := g.emitReturnValue(stmt.Value)

	if g.ctx.wrapped {
		w.line("return Ok(%s);", value)
	} else {
		w.line("return %s;", value)
	}
}

// emitReturnValue emits a returned expression.  Borrowed text forms convert
// into the owned return representation; an owned name in return position
// moves out without a clone, since nothing uses it afterwards.
func (g *Generator) emitReturnValue(expr ir.Expr) string {
	if id, ok := expr.(*ir.Identifier); ok {
		switch g.ctx.typeOf(id.Name).(type) {
		case types.CowType:
			return id.Name + ".into_owned()"
		case types.StrType:
			return id.Name + ".to_string()"
		case *types.RefType:
			return id.Name + ".clone()"
		default:
			return id.Name
		}
	}

	return g.emitOwned(expr)
}

func (g *Generator) generateRaise(w *writer, stmt *ir.Raise) {
	if !g.ctx.wrapped {
		// Raising inside an unwrapped function panics; best-effort mode
		// accepts that for purely arithmetic fallibility, and an explicit
		// raise always forces wrapping, so this only covers re-raises in
		// handlers of unwrapped functions.
		w.line("panic!(\"unhandled exception\");")
		return
	}

	w.line("return Err(%s);", g.raisePayload(stmt))
}

// raisePayload renders the Err payload of a raise statement.
func (g *Generator) raisePayload(stmt *ir.Raise) string {
	if stmt.Value == nil {
		if g.handlerBinding != "" {
			return g.handlerBinding
		}

		return quoteStr("exception re-raised outside a handler") + ".into()"
	}

	switch v := stmt.Value.(type) {
	case *ir.Call:
		// `raise ValueError("msg")` carries the message as the payload.
		if len(v.Args) >= 1 {
			g.inferType(v.Args[0])
			return g.emitOwned(v.Args[0]) + ".into()"
		}

		if id, ok := v.Func.(*ir.Identifier); ok {
			return quoteStr(id.Name) + ".into()"
		}
	case *ir.Literal:
		if v.Kind == ir.LitString {
			return quoteStr(v.StrVal) + ".into()"
		}
	case *ir.Identifier:
		if v.Name == g.handlerBinding {
			return v.Name
		}
	}

	g.inferType(stmt.Value)
	return g.emitExpr(stmt.Value) + ".to_string().into()"
}

// -----------------------------------------------------------------------------

// generateTry lowers try/except to an immediately-invoked fallible closure
// matched on its result.  Returning out of the protected block would only
// leave the closure, so that form is rejected rather than silently changing
// behavior.
func (g *Generator) generateTry(w *writer, stmt *ir.Try) {
	if bodyReturns(stmt.Body) {
		g.unsupported(stmt, "return inside try block")
	}

	if len(stmt.Handlers) > 1 {
		g.unsupported(stmt, "multiple except clauses")
	}

	tmp := g.nextTemp("__try")
	errType := g.mapper.ErrType().Repr()

	w.open("let %s: Result<(), %s> = (||", tmp, errType)
	g.generateBlock(w, stmt.Body)
	w.line("Ok(())")
	w.closeWith(")();")

	binding := "_"
	var handlerBody []ir.Stmt

	if len(stmt.Handlers) == 1 {
		if stmt.Handlers[0].Binding != "" {
			binding = stmt.Handlers[0].Binding
		}

		handlerBody = stmt.Handlers[0].Body
	}

	if len(stmt.OrElse) > 0 {
		w.open("match %s", tmp)
		w.open("Ok(()) =>")
		g.generateBlock(w, stmt.OrElse)
		w.close()
		g.generateHandlerArm(w, binding, handlerBody)
		w.close()
	} else {
		w.open("if let Err(%s) = %s", binding, tmp)
		g.generateHandlerBlock(w, binding, handlerBody)
		w.close()
	}

	if len(stmt.Finally) > 0 {
		g.generateBlock(w, stmt.Finally)
	}
}

func (g *Generator) generateHandlerArm(w *writer, binding string, body []ir.Stmt) {
	w.open("Err(%s) =>", binding)
	g.generateHandlerBlock(w, binding, body)
	w.close()
}

func (g *Generator) generateHandlerBlock(w *writer, binding string, body []ir.Stmt) {
	prev := g.handlerBinding
	if binding != "_" {
		g.handlerBinding = binding
		g.ctx.bind(binding, &types.NamedType{Name: g.mapper.ErrType().Repr()})
	}

	g.generateBlock(w, body)
	g.handlerBinding = prev
}

func bodyReturns(body []ir.Stmt) bool {
	found := false
	ir.WalkBody(body, func(stmt ir.Stmt) {
		if _, ok := stmt.(*ir.Return); ok {
			found = true
		}
	}, nil)

	return found
}

// generateWith emits a scoped-resource block: the context value lives for
// the block and drops at its end.
func (g *Generator) generateWith(w *writer, stmt *ir.With) {
	g.inferType(stmt.Context)

	w.line("{")
	w.indent++

	binding := stmt.Binding
	if binding == "" {
		binding = "_ctx"
	}

	g.ctx.push()
	g.ctx.bind(binding, g.inferType(stmt.Context))
	g.ctx.declare(binding)

	if g.ctx.isMutable(binding) {
		w.line("let mut %s = %s;", binding, g.emitOwned(stmt.Context))
	} else {
		w.line("let %s = %s;", binding, g.emitOwned(stmt.Context))
	}

	for _, inner := range stmt.Body {
		g.generateStmt(w, inner)
	}

	g.ctx.pop()
	w.close()
}

// -----------------------------------------------------------------------------

// generateExprStmt emits a bare expression statement.  In-place sorts expand
// to their mutating statement forms here since they have no value.
func (g *Generator) generateExprStmt(w *writer, stmt *ir.ExprStmt) {
	if sort, ok := stmt.Expr.(*ir.SortByKey); ok && sort.InPlace {
		g.generateInPlaceSort(w, sort)
		return
	}

	g.inferType(stmt.Expr)
	text := g.emitExpr(stmt.Expr)
	w.line("%s;", text)
}

func (g *Generator) generateInPlaceSort(w *writer, sort *ir.SortByKey) {
	g.inferType(sort.Base)
	base := g.emitExpr(sort.Base)

	if sort.Key != nil {
		w.line("%s.sort_by_key(%s);", base, g.emitSortKey(sort))
	} else {
		w.line("%s.sort();", base)
	}

	if sort.Reverse {
		w.line("%s.reverse();", base)
	}
}
