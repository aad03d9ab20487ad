package codegen

import (
	"fmt"
	"strings"

	"pyrus/ir"
	"pyrus/ownership"
	"pyrus/report"
	"pyrus/types"
)

// generateGlobal emits a module-level constant.
func (g *Generator) generateGlobal(w *writer, global *ir.Global) {
	typ := g.mapper.Map(global.PyType)
	if types.IsUnknown(typ) {
		report.ReportICE("module constant `%s` reached codegen without a concrete type", global.Name)
	}

	w.line("pub const %s: %s = %s;", global.Name, typ.Repr(), g.emitConstExpr(global.Init))
}

// emitConstExpr emits a constant initializer.  String constants stay &str so
// the constant remains const-evaluable.
func (g *Generator) emitConstExpr(expr ir.Expr) string {
	if lit, ok := expr.(*ir.Literal); ok && lit.Kind == ir.LitString {
		return quoteStr(lit.StrVal)
	}

	return g.emitExpr(expr)
}

// -----------------------------------------------------------------------------

// generateClass emits a struct, its derives, and an impl block.  Method
// failures are isolated the same way free function failures are.
func (g *Generator) generateClass(w *writer, cls *ir.Class, errors *report.ErrorList) {
	w.line("#[derive(Debug, Clone)]")
	w.open("pub struct %s", cls.Name)

	for _, field := range cls.Fields {
		w.line("pub %s: %s,", field.Name, g.mapper.Map(field.PyType).Repr())
	}

	w.close()
	w.blank()

	w.open("impl %s", cls.Name)

	first := true
	for _, method := range cls.Methods {
		if !first {
			w.blank()
		}

		first = false

		scratch := &writer{indent: w.indent}
		ok := false

		func() {
			defer report.CatchErrors(func(err *report.TranslateError) {
				errors.Add(err)
			})

			if method.Name == "__init__" {
				g.generateConstructor(scratch, cls, method)
			} else {
				g.generateMethod(scratch, cls, method)
			}

			ok = true
		}()

		if ok {
			w.raw(scratch.String())
		}
	}

	w.close()
}

// generateConstructor turns __init__ into an associated `new` function.  The
// `self.field = expr` assignments become the struct literal; any other
// statement runs before construction.
func (g *Generator) generateConstructor(w *writer, cls *ir.Class, init *ir.Function) {
	g.beginFunction(init)

	params := g.paramList(init)
	g.advance(stateParamsEmitted)

	w.open("pub fn new(%s) -> %s", strings.Join(params, ", "), cls.Name)

	fieldInits := make(map[string]string)

	for _, stmt := range init.Body {
		if as, ok := stmt.(*ir.Assign); ok && len(as.Targets) == 1 {
			if attr, ok := as.Targets[0].(*ir.Attribute); ok {
				if id, ok := attr.Base.(*ir.Identifier); ok && id.Name == "self" {
					g.inferType(as.Value)
					fieldInits[attr.Name] = g.emitOwned(as.Value)
					continue
				}
			}
		}

		g.generateStmt(w, stmt)
	}

	g.advance(stateBodyEmitted)

	w.open("%s", cls.Name)
	for _, field := range cls.Fields {
		value, ok := fieldInits[field.Name]
		if !ok {
			panic(report.Raise(init.Span(), "field `%s` is never initialized by __init__", field.Name))
		}

		w.line("%s: %s,", field.Name, value)
	}

	w.close()
	w.close()

	g.advance(stateDone)
}

// generateMethod emits one method with its receiver.
func (g *Generator) generateMethod(w *writer, cls *ir.Class, method *ir.Function) {
	g.beginFunction(method)
	g.ctx.bind("self", &types.NamedType{Name: cls.Name})
	g.ctx.declare("self")

	receiver := "&self"
	if methodMutatesSelf(method.Body) {
		receiver = "&mut self"
	}

	params := append([]string{receiver}, g.paramList(method)...)
	g.advance(stateParamsEmitted)

	w.open("pub fn %s%s(%s)%s",
		method.Name, g.lifetimeDecl(method), strings.Join(params, ", "), g.returnClause(method))

	g.generateBody(w, method)
	g.advance(stateBodyEmitted)

	w.close()
	g.advance(stateDone)
}

// methodMutatesSelf reports whether a method body writes through its
// receiver: assigns one of its fields or calls a mutating method on one.
func methodMutatesSelf(body []ir.Stmt) bool {
	isSelfBased := func(expr ir.Expr) bool {
		for {
			switch v := expr.(type) {
			case *ir.Identifier:
				return v.Name == "self"
			case *ir.Attribute:
				expr = v.Base
			case *ir.Index:
				expr = v.Base
			default:
				return false
			}
		}
	}

	found := false
	ir.WalkBody(body, func(stmt ir.Stmt) {
		if as, ok := stmt.(*ir.Assign); ok {
			for _, target := range as.Targets {
				switch target.(type) {
				case *ir.Attribute, *ir.Index:
					if isSelfBased(target) {
						found = true
					}
				}
			}
		}
	}, func(expr ir.Expr) {
		if mc, ok := expr.(*ir.MethodCall); ok {
			if isSelfBased(mc.Receiver) && ownership.MethodMutatesReceiver(mc.Method) {
				found = true
			}
		}
	})

	return found
}

// -----------------------------------------------------------------------------

// generateFunction emits one free function.
func (g *Generator) generateFunction(w *writer, fn *ir.Function) {
	g.beginFunction(fn)

	if fn.HasSuspensionPoints {
		if fn.IsAsync {
			g.unsupported(fn, "yield inside async function")
		}

		g.generateGeneratorFunction(w, fn)
		return
	}

	params := g.paramList(fn)
	g.advance(stateParamsEmitted)

	if fn.Docstring != "" {
		for _, line := range strings.Split(strings.TrimSpace(fn.Docstring), "\n") {
			w.line("/// %s", strings.TrimSpace(line))
		}
	}

	async := ""
	if fn.IsAsync {
		async = "async "
	}

	w.open("pub %sfn %s%s(%s)%s",
		async, fn.Name, g.lifetimeDecl(fn), strings.Join(params, ", "), g.returnClause(fn))

	g.generateBody(w, fn)
	g.advance(stateBodyEmitted)

	w.close()
	g.advance(stateDone)
}

// beginFunction resets the per-function state.
func (g *Generator) beginFunction(fn *ir.Function) {
	g.ctx = g.newGenContext(fn)
	g.state = stateNotStarted
	g.tempCounter = 0
	g.handlerBinding = ""
}

// lifetimeDecl renders the explicit lifetime parameter list, if any.
func (g *Generator) lifetimeDecl(fn *ir.Function) string {
	res := g.analyses[fn]
	if res == nil || len(res.life.LifetimeParams) == 0 {
		return ""
	}

	tokens := make([]string, len(res.life.LifetimeParams))
	for i, token := range res.life.LifetimeParams {
		tokens[i] = "'" + token
	}

	return "<" + strings.Join(tokens, ", ") + ">"
}

// paramList renders the parameter declarations per the resolved ownership
// strategies and lifetimes.
func (g *Generator) paramList(fn *ir.Function) []string {
	res := g.analyses[fn]
	decls := make([]string, len(fn.Params))

	for i, param := range fn.Params {
		decls[i] = g.paramDecl(res, i, param)
	}

	return decls
}

func (g *Generator) paramDecl(res *analysis, i int, param *ir.Param) string {
	mapped := g.mapper.Map(param.PyType)

	if res == nil {
		return fmt.Sprintf("%s: %s", param.Name, mapped.Repr())
	}

	strat := res.own.Params[i]
	life := res.life.Params[i].Lifetime

	lifetime := ""
	if life != "" {
		lifetime = "'" + life + " "
	}

	switch strat.Strategy.Kind {
	case ownership.StratBorrow:
		if types.IsString(mapped) {
			return fmt.Sprintf("%s: &%sstr", param.Name, lifetime)
		}

		return fmt.Sprintf("%s: &%s%s", param.Name, lifetime, mapped.Repr())
	case ownership.StratBorrowMut:
		return fmt.Sprintf("%s: &%smut %s", param.Name, lifetime, mapped.Repr())
	case ownership.StratCow:
		if life == "" {
			return fmt.Sprintf("%s: Cow<'_, str>", param.Name)
		}

		return fmt.Sprintf("%s: Cow<'%s, str>", param.Name, life)
	case ownership.StratShared:
		return fmt.Sprintf("%s: Rc<%s>", param.Name, mapped.Repr())
	default:
		if strat.Usage != nil && (strat.Usage.IsMutated || strat.Usage.IsRebound) {
			return fmt.Sprintf("mut %s: %s", param.Name, mapped.Repr())
		}

		return fmt.Sprintf("%s: %s", param.Name, mapped.Repr())
	}
}

// returnClause renders the return type, wrapping fallible functions in
// Result with the uniform type-erased error.
func (g *Generator) returnClause(fn *ir.Function) string {
	ret := g.mapper.Map(fn.ReturnType)
	repr := ret.Repr()

	if g.shouldWrap(fn) {
		if types.IsUnit(ret) {
			repr = "()"
		}

		return fmt.Sprintf(" -> Result<%s, %s>", repr, g.mapper.ErrType().Repr())
	}

	if types.IsUnit(ret) {
		return ""
	}

	return " -> " + repr
}

// -----------------------------------------------------------------------------

// generateBody emits a function body: hoisted declarations first, then the
// statements, then the implicit Ok(()) for wrapped unit functions.
func (g *Generator) generateBody(w *writer, fn *ir.Function) {
	g.hoistDeclarations(w, fn.Body)

	for _, stmt := range fn.Body {
		g.generateStmt(w, stmt)
	}

	if g.ctx.wrapped && types.IsUnit(g.mapper.Map(fn.ReturnType)) && !endsWithTerminator(fn.Body) {
		w.line("Ok(())")
	}
}

func endsWithTerminator(body []ir.Stmt) bool {
	if len(body) == 0 {
		return false
	}

	switch body[len(body)-1].(type) {
	case *ir.Return, *ir.Raise:
		return true
	default:
		return false
	}
}

// hoistDeclarations pre-declares names first assigned inside a nested block
// but referenced by a later sibling statement; block scoping would otherwise
// drop them at the end of the nested block.
func (g *Generator) hoistDeclarations(w *writer, body []ir.Stmt) {
	// Names first assigned by a top-level sibling get their `let` at that
	// assignment; only names whose first assignment is inside a block need a
	// hoisted declaration.
	assignedBySibling := make(map[string]struct{})

	for i, stmt := range body {
		if !isBlockStmt(stmt) {
			if as, ok := stmt.(*ir.Assign); ok {
				for _, target := range as.Targets {
					if id, ok := target.(*ir.Identifier); ok {
						assignedBySibling[id.Name] = struct{}{}
					}
				}
			}

			continue
		}

		later := make(map[string]struct{})
		for _, rest := range body[i+1:] {
			ir.WalkStmt(rest, nil, func(expr ir.Expr) {
				if id, ok := expr.(*ir.Identifier); ok {
					later[id.Name] = struct{}{}
				}
			})
		}

		for _, name := range nestedAssignedNames(stmt) {
			if _, first := assignedBySibling[name]; first {
				continue
			}

			if g.ctx.isDeclared(name) {
				continue
			}

			if _, usedLater := later[name]; !usedLater {
				continue
			}

			if g.ctx.isMutable(name) {
				w.line("let mut %s;", name)
			} else {
				w.line("let %s;", name)
			}

			g.ctx.declare(name)
			g.ctx.bind(name, types.UnknownType{})
		}
	}
}

func isBlockStmt(stmt ir.Stmt) bool {
	switch stmt.(type) {
	case *ir.If, *ir.While, *ir.ForEach, *ir.Try, *ir.With:
		return true
	default:
		return false
	}
}

// nestedAssignedNames collects the bare names assigned anywhere inside a
// statement, in first-assignment order.
func nestedAssignedNames(stmt ir.Stmt) []string {
	var names []string
	seen := make(map[string]struct{})

	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	ir.WalkStmt(stmt, func(s ir.Stmt) {
		as, ok := s.(*ir.Assign)
		if !ok {
			return
		}

		for _, target := range as.Targets {
			if id, ok := target.(*ir.Identifier); ok {
				add(id.Name)
			}
		}
	}, nil)

	return names
}
