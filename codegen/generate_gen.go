package codegen

import (
	"fmt"
	"strings"

	"pyrus/ir"
	"pyrus/types"
)

// generateGeneratorFunction rewrites a function containing suspension points
// into an explicit state machine: a struct holding the live variables and a
// numbered resume state, an Iterator impl whose next() advances the machine,
// and a factory function that boxes the initial state.  The body does not run
// until the first next() call, matching source semantics.
//
// Two shapes are recognized: a straight-line body with top-level yields, and
// a body whose single loop contains one yield.  Anything else is rejected.
func (g *Generator) generateGeneratorFunction(w *writer, fn *ir.Function) {
	item := g.yieldItemType(fn)
	machine := &generatorMachine{
		fn:        fn,
		name:      pascalCase(fn.Name) + "State",
		item:      item,
		fieldType: make(map[string]types.Type),
	}

	machine.collectFields(g)

	g.advance(stateParamsEmitted)

	machine.emitStruct(g, w)
	w.blank()
	machine.emitIterator(g, w)
	w.blank()
	machine.emitFactory(g, w)

	g.advance(stateBodyEmitted)
	g.advance(stateDone)
}

// yieldItemType determines the element type the machine produces.
func (g *Generator) yieldItemType(fn *ir.Function) types.Type {
	if gen, ok := fn.ReturnType.(*types.PyGenerator); ok {
		return g.mapper.Map(gen.YieldType)
	}

	var item types.Type = types.UnknownType{}

	ir.WalkBody(fn.Body, nil, func(expr ir.Expr) {
		if y, ok := expr.(*ir.Yield); ok && y.Value != nil && types.IsUnknown(item) {
			item = g.inferType(y.Value)
		}
	})

	return item
}

// -----------------------------------------------------------------------------

// generatorMachine is the working state for one rewrite.
type generatorMachine struct {
	fn   *ir.Function
	name string
	item types.Type

	// Field order is params first, then locals and synthetics in
	// first-assignment order, so output is deterministic.
	fields    []string
	fieldType map[string]types.Type
}

func (m *generatorMachine) addField(name string, typ types.Type) {
	if _, ok := m.fieldType[name]; ok {
		return
	}

	m.fields = append(m.fields, name)
	m.fieldType[name] = typ
}

// collectFields gathers every name that must live across suspensions: the
// parameters and every local assigned anywhere in the body.
func (m *generatorMachine) collectFields(g *Generator) {
	for _, param := range m.fn.Params {
		m.addField(param.Name, g.mapper.Map(param.PyType))
		g.ctx.bind(param.Name, m.fieldType[param.Name])
	}

	// The loop variable of a yielding loop and its captured bound live
	// across suspensions too; bind them before walking the assignments so
	// value inference can see them.
	for _, stmt := range m.fn.Body {
		if fe, ok := stmt.(*ir.ForEach); ok && containsYield(fe.Body) {
			if id, ok := fe.Target.(*ir.Identifier); ok {
				m.addField(id.Name, g.intType())
				m.addField("__end", g.intType())
				g.ctx.bind(id.Name, g.intType())
			}
		}
	}

	ir.WalkBody(m.fn.Body, func(stmt ir.Stmt) {
		as, ok := stmt.(*ir.Assign)
		if !ok {
			return
		}

		for _, target := range as.Targets {
			if id, ok := target.(*ir.Identifier); ok {
				if _, known := m.fieldType[id.Name]; !known {
					m.addField(id.Name, g.inferType(as.Value))
					g.ctx.bind(id.Name, m.fieldType[id.Name])
				}
			}
		}
	}, nil)

	for _, name := range m.fields {
		if types.IsUnknown(m.fieldType[name]) {
			g.unsupported(m.fn, "generator state variable `"+name+"` with no concrete type")
		}
	}
}

func (m *generatorMachine) emitStruct(g *Generator, w *writer) {
	w.open("struct %s", m.name)
	w.line("state: u32,")

	for _, name := range m.fields {
		w.line("%s: %s,", name, m.fieldType[name].Repr())
	}

	w.close()
}

func (m *generatorMachine) emitFactory(g *Generator, w *writer) {
	params := make([]string, len(m.fn.Params))
	for i, param := range m.fn.Params {
		params[i] = fmt.Sprintf("%s: %s", param.Name, g.mapper.Map(param.PyType).Repr())
	}

	w.open("pub fn %s(%s) -> Box<dyn Iterator<Item = %s>>",
		m.fn.Name, strings.Join(params, ", "), m.item.Repr())

	w.open("Box::new(%s", m.name)
	w.line("state: 0,")

	captured := make(map[string]struct{})
	for _, param := range m.fn.Params {
		w.line("%s: %s,", param.Name, param.Name)
		captured[param.Name] = struct{}{}
	}

	for _, name := range m.fields {
		if _, isParam := captured[name]; isParam {
			continue
		}

		w.line("%s: %s,", name, defaultValue(m.fieldType[name]))
	}

	w.closeWith(")")
	w.close()
}

// defaultValue is the zero value used to pre-seed a state field before the
// body has assigned it.
func defaultValue(typ types.Type) string {
	switch t := types.InnerType(typ).(type) {
	case types.PrimitiveType:
		switch {
		case t == types.PrimTypeBool:
			return "false"
		case t.IsFloating():
			return "0.0"
		default:
			return "0"
		}
	case types.StringType:
		return "String::new()"
	case *types.VecType:
		return "Vec::new()"
	case *types.MapType:
		return "HashMap::new()"
	case *types.SetType:
		return "HashSet::new()"
	default:
		return "Default::default()"
	}
}

// -----------------------------------------------------------------------------

func (m *generatorMachine) emitIterator(g *Generator, w *writer) {
	w.open("impl Iterator for %s", m.name)
	w.line("type Item = %s;", m.item.Repr())
	w.blank()
	w.open("fn next(&mut self) -> Option<%s>", m.item.Repr())
	w.open("loop")
	w.open("match self.state")

	topYields, yieldLoop := splitGeneratorBody(g, m.fn.Body)

	if yieldLoop == nil {
		m.emitSequentialArms(g, w, topYields)
	} else {
		m.emitLoopArms(g, w, yieldLoop)
	}

	w.line("_ => return None,")

	w.close()
	w.close()
	w.close()
	w.close()
}

// segment is a run of plain statements ending at one yield.  A nil yield
// marks the trailing statements after the last suspension.
type segment struct {
	stmts []ir.Stmt
	yield *ir.Yield
}

// splitGeneratorBody classifies the body into one of the two supported
// shapes.  Straight-line yields come back as segments; a yielding loop comes
// back whole.
func splitGeneratorBody(g *Generator, body []ir.Stmt) ([]segment, ir.Stmt) {
	var segs []segment
	var current []ir.Stmt
	var yieldLoop ir.Stmt

	for _, stmt := range body {
		if es, ok := stmt.(*ir.ExprStmt); ok {
			if y, ok := es.Expr.(*ir.Yield); ok {
				segs = append(segs, segment{stmts: current, yield: y})
				current = nil
				continue
			}
		}

		switch v := stmt.(type) {
		case *ir.While:
			if containsYield(v.Body) {
				if yieldLoop != nil || len(segs) > 0 {
					g.unsupported(stmt, "multiple suspension regions in one generator")
				}

				yieldLoop = stmt
				continue
			}
		case *ir.ForEach:
			if containsYield(v.Body) {
				if yieldLoop != nil || len(segs) > 0 {
					g.unsupported(stmt, "multiple suspension regions in one generator")
				}

				yieldLoop = stmt
				continue
			}
		}

		if stmtContainsYield(stmt) {
			g.unsupported(stmt, "yield nested inside an unsupported construct")
		}

		current = append(current, stmt)
	}

	if yieldLoop != nil {
		if len(segs) > 0 || len(current) > 0 {
			g.unsupported(yieldLoop, "statements mixed around a yielding loop")
		}

		return nil, yieldLoop
	}

	if len(segs) == 0 {
		g.unsupported(g.lastStmt(body), "generator with no reachable yield")
	}

	segs = append(segs, segment{stmts: current})
	return segs, nil
}

func (g *Generator) lastStmt(body []ir.Stmt) ir.Stmt {
	return body[len(body)-1]
}

func containsYield(body []ir.Stmt) bool {
	found := false
	ir.WalkBody(body, nil, func(expr ir.Expr) {
		if _, ok := expr.(*ir.Yield); ok {
			found = true
		}
	})

	return found
}

func stmtContainsYield(stmt ir.Stmt) bool {
	found := false
	ir.WalkStmt(stmt, nil, func(expr ir.Expr) {
		if _, ok := expr.(*ir.Yield); ok {
			found = true
		}
	})

	return found
}

// -----------------------------------------------------------------------------

// emitSequentialArms handles the straight-line shape: state k runs the
// statements between yield k-1 and yield k, stores the live variables back,
// and produces yield k's value.  The trailing segment runs before the
// machine finishes.
func (m *generatorMachine) emitSequentialArms(g *Generator, w *writer, segs []segment) {
	for i, seg := range segs {
		w.open("%d =>", i)
		m.loadFields(g, w)

		for _, stmt := range seg.stmts {
			g.generateStmt(w, stmt)
		}

		m.storeFields(w)

		if seg.yield == nil {
			w.line("self.state = %d;", len(segs))
			w.line("return None;")
		} else {
			value := ""
			if seg.yield.Value != nil {
				g.inferType(seg.yield.Value)
				value = g.emitOwned(seg.yield.Value)
			}

			w.line("self.state = %d;", i+1)
			w.line("return Some(%s);", value)
		}

		w.close()
	}
}

// emitLoopArms handles a single yielding loop.  The condition is re-tested on
// every resume; statements after the yield run at the start of the next
// resume, before the back edge.
func (m *generatorMachine) emitLoopArms(g *Generator, w *writer, loop ir.Stmt) {
	switch v := loop.(type) {
	case *ir.While:
		m.emitWhileArms(g, w, v)
	case *ir.ForEach:
		m.emitForArms(g, w, v)
	}
}

// splitAtYield separates a loop body into the statements before its single
// top-level yield, the yield itself, and the statements after it.
func (m *generatorMachine) splitAtYield(g *Generator, body []ir.Stmt) ([]ir.Stmt, *ir.Yield, []ir.Stmt) {
	for i, stmt := range body {
		if es, ok := stmt.(*ir.ExprStmt); ok {
			if y, ok := es.Expr.(*ir.Yield); ok {
				for _, rest := range body[i+1:] {
					if stmtContainsYield(rest) {
						g.unsupported(rest, "multiple yields in one loop body")
					}
				}

				return body[:i], y, body[i+1:]
			}
		}

		if stmtContainsYield(stmt) {
			g.unsupported(stmt, "yield nested inside an unsupported construct")
		}
	}

	g.unsupported(g.lastStmt(body), "yielding loop with no top-level yield")
	return nil, nil, nil
}

func (m *generatorMachine) emitWhileArms(g *Generator, w *writer, loop *ir.While) {
	pre, y, post := m.splitAtYield(g, loop.Body)

	// State 0 tests the condition, runs the pre-yield statements, and
	// suspends.  State 1 runs the post-yield statements and loops back.
	w.open("0 =>")
	m.loadFields(g, w)
	w.open("if !(%s)", g.emitCond(loop.Cond))
	w.line("self.state = 2;")
	w.line("return None;")
	w.close()

	for _, stmt := range pre {
		g.generateStmt(w, stmt)
	}

	m.storeFields(w)

	value := ""
	if y.Value != nil {
		g.inferType(y.Value)
		value = g.emitOwned(y.Value)
	}

	resume := 0
	if len(post) > 0 {
		resume = 1
	}

	w.line("self.state = %d;", resume)
	w.line("return Some(%s);", value)
	w.close()

	if len(post) > 0 {
		w.open("1 =>")
		m.loadFields(g, w)

		for _, stmt := range post {
			g.generateStmt(w, stmt)
		}

		m.storeFields(w)
		w.line("self.state = 0;")
		w.close()
	}
}

// emitForArms lowers `for i in range(...)` with a yield to a counter machine.
// Only a unit-step range is expressible; the bound is captured once on entry.
func (m *generatorMachine) emitForArms(g *Generator, w *writer, loop *ir.ForEach) {
	id, ok := loop.Target.(*ir.Identifier)
	if !ok {
		g.unsupported(loop, "destructuring target in a yielding loop")
	}

	call, ok := loop.Iter.(*ir.Call)
	if !ok {
		g.unsupported(loop, "yielding loop over a non-range iterable")
	}

	fnID, ok := call.Func.(*ir.Identifier)
	if !ok || fnID.Name != "range" || len(call.Args) > 2 {
		g.unsupported(loop, "yielding loop over a non-range iterable")
	}

	start := "0"
	end := ""
	if len(call.Args) == 1 {
		g.inferType(call.Args[0])
		end = g.emitExpr(call.Args[0])
	} else {
		g.inferType(call.Args[0])
		g.inferType(call.Args[1])
		start = g.emitExpr(call.Args[0])
		end = g.emitExpr(call.Args[1])
	}

	pre, y, post := m.splitAtYield(g, loop.Body)

	// State 0 captures the bounds once.  State 1 tests and suspends.  State
	// 2 runs the post-yield statements and advances the counter.
	w.open("0 =>")
	m.loadFields(g, w)
	w.line("%s = %s;", id.Name, start)
	w.line("__end = %s;", end)
	m.storeFields(w)
	w.line("self.state = 1;")
	w.close()

	w.open("1 =>")
	m.loadFields(g, w)
	w.open("if %s >= __end", id.Name)
	w.line("self.state = 3;")
	w.line("return None;")
	w.close()

	for _, stmt := range pre {
		g.generateStmt(w, stmt)
	}

	m.storeFields(w)

	value := ""
	if y.Value != nil {
		g.inferType(y.Value)
		value = g.emitOwned(y.Value)
	}

	w.line("self.state = 2;")
	w.line("return Some(%s);", value)
	w.close()

	w.open("2 =>")
	m.loadFields(g, w)

	for _, stmt := range post {
		g.generateStmt(w, stmt)
	}

	w.line("%s += 1;", id.Name)
	m.storeFields(w)
	w.line("self.state = 1;")
	w.close()
}

// -----------------------------------------------------------------------------

// loadFields rebinds every state field as a local so segment statements read
// and write plain names, then rebuilds the generation context to match.
func (m *generatorMachine) loadFields(g *Generator, w *writer) {
	g.ctx = g.newGenContext(m.fn)
	g.ctx.scopes[len(g.ctx.scopes)-1] = make(map[string]types.Type)
	g.ctx.declared = make(map[string]struct{})

	// next() returns Option; error propagation has nowhere to go.
	g.ctx.wrapped = false

	for _, name := range m.fields {
		w.line("let mut %s = self.%s.clone();", name, name)
		g.ctx.bind(name, m.fieldType[name])
		g.ctx.declare(name)
	}
}

// storeFields writes the locals back into the state before any suspension or
// state transition.
func (m *generatorMachine) storeFields(w *writer) {
	for _, name := range m.fields {
		w.line("self.%s = %s;", name, name)
	}
}

// pascalCase converts a snake_case function name to the PascalCase type name
// of its state machine.
func pascalCase(name string) string {
	parts := strings.Split(name, "_")
	var sb strings.Builder

	for _, part := range parts {
		if part == "" {
			continue
		}

		sb.WriteString(strings.ToUpper(part[:1]))
		sb.WriteString(part[1:])
	}

	return sb.String()
}
