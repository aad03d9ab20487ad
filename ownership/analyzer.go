package ownership

import (
	"pyrus/ir"
	"pyrus/types"
)

// contextKind labels one frame of the control flow context stack.
type contextKind int

const (
	ctxFunction contextKind = iota
	ctxLoop
	ctxConditional
	ctxClosure
)

// Analyzer walks one function body and accumulates a usage pattern per
// parameter.
type Analyzer struct {
	// The usage pattern per parameter name.
	patterns map[string]*UsagePattern

	// Names currently shadowed by a lambda parameter or a comprehension
	// or loop target, keyed to a shadow depth count.
	shadowed map[string]int

	// The control flow context stack.
	ctx []contextKind

	// The function's declared return type, for escape matching.
	returnType types.PyType

	mapper *types.Mapper
}

// Analyze determines the ownership strategy for every parameter of one
// function.  The walk is a single pass; strategies derive from the
// accumulated patterns afterward.
func Analyze(fn *ir.Function, mapper *types.Mapper) *Result {
	a := &Analyzer{
		patterns:   make(map[string]*UsagePattern, len(fn.Params)),
		shadowed:   make(map[string]int),
		ctx:        []contextKind{ctxFunction},
		returnType: fn.ReturnType,
		mapper:     mapper,
	}

	for _, param := range fn.Params {
		a.patterns[param.Name] = newUsagePattern()
	}

	for _, stmt := range fn.Body {
		a.analyzeStmt(stmt)
	}

	result := &Result{}

	for _, param := range fn.Params {
		usage := a.patterns[param.Name]

		strategy := decide(
			param.Name,
			usage,
			mapper.Map(param.PyType),
			param.PyType,
			fn.ReturnType,
			&result.Insights,
		)

		result.Params = append(result.Params, ParamStrategy{
			Name:     param.Name,
			Strategy: strategy,
			Usage:    usage,
		})
	}

	return result
}

// -----------------------------------------------------------------------------

// analyzeStmt records parameter uses in one statement.
func (a *Analyzer) analyzeStmt(stmt ir.Stmt) {
	switch v := stmt.(type) {
	case *ir.Assign:
		for _, target := range v.Targets {
			a.analyzeAssignTarget(target)
		}

		a.analyzeExpr(v.Value, 0)
	case *ir.If:
		a.analyzeExpr(v.Cond, 0)

		a.push(ctxConditional)
		a.analyzeBody(v.Then)
		a.analyzeBody(v.Else)
		a.pop()
	case *ir.While:
		a.push(ctxLoop)
		a.analyzeExpr(v.Cond, 0)
		a.analyzeBody(v.Body)
		a.pop()
	case *ir.ForEach:
		a.analyzeExpr(v.Iter, 0)

		a.push(ctxLoop)
		a.shadowTarget(v.Target, true)
		a.analyzeBody(v.Body)
		a.shadowTarget(v.Target, false)
		a.pop()
	case *ir.Return:
		if v.Value != nil {
			a.analyzeReturn(v.Value)
		}
	case *ir.Raise:
		if v.Value != nil {
			a.analyzeExpr(v.Value, 0)
		}
	case *ir.Try:
		a.analyzeBody(v.Body)
		for _, handler := range v.Handlers {
			a.analyzeBody(handler.Body)
		}

		a.analyzeBody(v.OrElse)
		a.analyzeBody(v.Finally)
	case *ir.With:
		a.analyzeExpr(v.Context, 0)
		a.analyzeBody(v.Body)
	case *ir.ExprStmt:
		a.analyzeExpr(v.Expr, 0)
	case *ir.Assert:
		a.analyzeExpr(v.Cond, 0)
		if v.Msg != nil {
			a.analyzeExpr(v.Msg, 0)
		}
	case *ir.Break, *ir.Continue, *ir.Pass:
	}
}

func (a *Analyzer) analyzeBody(body []ir.Stmt) {
	for _, stmt := range body {
		a.analyzeStmt(stmt)
	}
}

// analyzeAssignTarget records the mutation implied by one assignment target.
// A bare name target rebinds the whole value; assigning through an index or
// attribute projection mutates the base in place.
func (a *Analyzer) analyzeAssignTarget(target ir.Expr) {
	switch v := target.(type) {
	case *ir.Identifier:
		a.record(v.Name, UseSite{Kind: UseRebind})
	case *ir.Index:
		if base, ok := v.Base.(*ir.Identifier); ok {
			a.record(base.Name, UseSite{Kind: UseWrite, BorrowDepth: 1})
		} else {
			a.analyzeExpr(v.Base, 1)
		}

		a.analyzeExpr(v.Index, 0)
	case *ir.Attribute:
		if base, ok := v.Base.(*ir.Identifier); ok {
			a.record(base.Name, UseSite{Kind: UseWrite, Member: v.Name, BorrowDepth: 1})
		} else {
			a.analyzeExpr(v.Base, 1)
		}
	case *ir.TupleLit:
		for _, elem := range v.Elems {
			a.analyzeAssignTarget(elem)
		}
	}
}

// -----------------------------------------------------------------------------

// analyzeExpr records parameter uses in one expression.
func (a *Analyzer) analyzeExpr(expr ir.Expr, depth int) {
	if expr == nil {
		return
	}

	switch v := expr.(type) {
	case *ir.Identifier:
		a.record(v.Name, UseSite{Kind: UseRead, BorrowDepth: depth})
	case *ir.Attribute:
		if base, ok := v.Base.(*ir.Identifier); ok {
			a.recordField(base.Name, v.Name, depth+1)
		}

		a.analyzeExpr(v.Base, depth+1)
	case *ir.Index:
		if base, ok := v.Base.(*ir.Identifier); ok {
			a.record(base.Name, UseSite{Kind: UseIndexAccess, BorrowDepth: depth + 1})
		} else {
			a.analyzeExpr(v.Base, depth+1)
		}

		a.analyzeExpr(v.Index, depth)
	case *ir.Binary:
		a.analyzeExpr(v.Lhs, depth)
		a.analyzeExpr(v.Rhs, depth)
	case *ir.Unary:
		a.analyzeExpr(v.Operand, depth)
	case *ir.Call:
		a.analyzeCall(v, depth)
	case *ir.MethodCall:
		a.analyzeMethodCall(v, depth)
	case *ir.Slice:
		a.analyzeExpr(v.Base, depth+1)
		a.analyzeExpr(v.Start, depth)
		a.analyzeExpr(v.Stop, depth)
		a.analyzeExpr(v.Step, depth)
	case *ir.ListLit:
		a.analyzeElems(v.Elems, depth)
	case *ir.SetLit:
		a.analyzeElems(v.Elems, depth)
	case *ir.TupleLit:
		a.analyzeElems(v.Elems, depth)
	case *ir.DictLit:
		for i := range v.Keys {
			a.analyzeExpr(v.Keys[i], depth)
			a.analyzeExpr(v.Values[i], depth)
		}
	case *ir.Comprehension:
		a.analyzeComprehension(v, depth)
	case *ir.IfExpr:
		a.analyzeExpr(v.Cond, depth)
		a.analyzeExpr(v.Then, depth)
		a.analyzeExpr(v.Else, depth)
	case *ir.Lambda:
		a.analyzeLambda(v, depth)
	case *ir.Await:
		a.analyzeExpr(v.Operand, depth)
	case *ir.Yield:
		a.analyzeExpr(v.Value, depth)
	case *ir.SortByKey:
		a.analyzeSortByKey(v, depth)
	case *ir.Borrow:
		a.analyzeExpr(v.Operand, depth+1)
	case *ir.Literal:
	}
}

func (a *Analyzer) analyzeElems(elems []ir.Expr, depth int) {
	for _, elem := range elems {
		a.analyzeExpr(elem, depth)
	}
}

// analyzeCall records a plain call.  A parameter passed by name to a callee
// not known to borrow is moved.
func (a *Analyzer) analyzeCall(call *ir.Call, depth int) {
	callee := ""
	if fn, ok := call.Func.(*ir.Identifier); ok {
		callee = fn.Name
	} else {
		a.analyzeExpr(call.Func, depth)
	}

	for _, arg := range call.Args {
		if id, ok := arg.(*ir.Identifier); ok {
			site := UseSite{Kind: UseFunctionArg, Member: callee, BorrowDepth: depth}
			a.record(id.Name, site)

			if callee != "" && callTakesOwnership(callee) {
				a.markMoved(id.Name)
			}

			continue
		}

		a.analyzeExpr(arg, depth)
	}
}

// analyzeMethodCall records a method call.  A mutating method marks the
// receiver mutated; a growth method additionally marks its argument as stored
// inside the receiver.
func (a *Analyzer) analyzeMethodCall(call *ir.MethodCall, depth int) {
	if recv, ok := call.Receiver.(*ir.Identifier); ok {
		kind := UseMethodCall
		if MethodMutatesReceiver(call.Method) {
			kind = UseWrite
		}

		a.record(recv.Name, UseSite{Kind: kind, Member: call.Method, BorrowDepth: depth})
		a.recordMethod(recv.Name, call.Method)
	} else {
		a.analyzeExpr(call.Receiver, depth)
	}

	stores := methodStoresArgs(call.Method)

	for _, arg := range call.Args {
		if id, ok := arg.(*ir.Identifier); ok && stores {
			a.record(id.Name, UseSite{Kind: UseStore, Member: call.Method, BorrowDepth: depth})
			continue
		}

		a.analyzeExpr(arg, depth)
	}
}

// analyzeComprehension walks a comprehension as a loop scope with its clause
// targets shadowing outer names.
func (a *Analyzer) analyzeComprehension(comp *ir.Comprehension, depth int) {
	a.push(ctxLoop)

	for _, clause := range comp.Clauses {
		a.analyzeExpr(clause.Iter, depth)
		a.shadowTarget(clause.Target, true)

		for _, cond := range clause.Conds {
			a.analyzeExpr(cond, depth)
		}
	}

	a.analyzeExpr(comp.Key, depth)
	a.analyzeExpr(comp.Elem, depth)

	for _, clause := range comp.Clauses {
		a.shadowTarget(clause.Target, false)
	}

	a.pop()
}

// analyzeLambda walks a lambda body as a closure scope: any parameter the
// body reaches is captured.
func (a *Analyzer) analyzeLambda(lam *ir.Lambda, depth int) {
	a.push(ctxClosure)

	for _, name := range lam.Params {
		a.shadow(name, true)
	}

	a.analyzeExpr(lam.Body, depth)

	for _, name := range lam.Params {
		a.shadow(name, false)
	}

	a.pop()
}

// analyzeSortByKey treats an in-place keyed sort as a mutation of its base.
func (a *Analyzer) analyzeSortByKey(sort *ir.SortByKey, depth int) {
	if base, ok := sort.Base.(*ir.Identifier); ok {
		kind := UseRead
		if sort.InPlace {
			kind = UseWrite
		}

		a.record(base.Name, UseSite{Kind: kind, Member: "sort", BorrowDepth: depth})
	} else {
		a.analyzeExpr(sort.Base, depth)
	}

	if sort.Key != nil {
		a.analyzeLambda(sort.Key, depth)
	}
}

// -----------------------------------------------------------------------------

// analyzeReturn records escapes in a returned expression.  Escape applies to
// the value itself and to values nested in a returned aggregate; operands of
// a returned computation escape too since they feed the return value.
func (a *Analyzer) analyzeReturn(expr ir.Expr) {
	switch v := expr.(type) {
	case *ir.Identifier:
		a.record(v.Name, UseSite{Kind: UseReturn})
	case *ir.TupleLit:
		for _, elem := range v.Elems {
			a.analyzeReturn(elem)
		}
	case *ir.ListLit:
		for _, elem := range v.Elems {
			a.analyzeReturn(elem)
		}
	case *ir.IfExpr:
		a.analyzeExpr(v.Cond, 0)
		a.analyzeReturn(v.Then)
		a.analyzeReturn(v.Else)
	case *ir.Binary:
		if lhs, ok := v.Lhs.(*ir.Identifier); ok {
			a.markEscaping(lhs.Name)
		}

		if rhs, ok := v.Rhs.(*ir.Identifier); ok {
			a.markEscaping(rhs.Name)
		}

		a.analyzeExpr(v.Lhs, 0)
		a.analyzeExpr(v.Rhs, 0)
	default:
		a.analyzeExpr(expr, 0)
	}
}

// -----------------------------------------------------------------------------

// record adds a use site for a parameter name, tagging it with the current
// control flow context.  Non-parameter and shadowed names are ignored.
func (a *Analyzer) record(name string, site UseSite) {
	usage := a.lookup(name)
	if usage == nil {
		return
	}

	site.InLoop = a.inLoop()
	site.InConditional = a.inConditional()

	if a.inClosure() {
		switch site.Kind {
		case UseRead, UseIndexAccess, UseFieldAccess:
			site.Kind = UseClosure
		}
	}

	usage.record(site)
}

func (a *Analyzer) recordField(name, field string, depth int) {
	usage := a.lookup(name)
	if usage == nil {
		return
	}

	usage.FieldAccesses[field] = struct{}{}
	a.record(name, UseSite{Kind: UseFieldAccess, Member: field, BorrowDepth: depth})
}

func (a *Analyzer) recordMethod(name, method string) {
	if usage := a.lookup(name); usage != nil {
		usage.MethodCalls[method] = struct{}{}
	}
}

func (a *Analyzer) markMoved(name string) {
	if usage := a.lookup(name); usage != nil {
		usage.IsMoved = true
	}
}

func (a *Analyzer) markEscaping(name string) {
	if usage := a.lookup(name); usage != nil {
		usage.EscapesViaReturn = true
	}
}

// lookup returns the pattern for a parameter name, or nil when the name is
// not a parameter or is currently shadowed.
func (a *Analyzer) lookup(name string) *UsagePattern {
	if a.shadowed[name] > 0 {
		return nil
	}

	return a.patterns[name]
}

// -----------------------------------------------------------------------------

func (a *Analyzer) push(kind contextKind) {
	a.ctx = append(a.ctx, kind)
}

func (a *Analyzer) pop() {
	a.ctx = a.ctx[:len(a.ctx)-1]
}

func (a *Analyzer) inLoop() bool {
	return a.inContext(ctxLoop)
}

func (a *Analyzer) inConditional() bool {
	return a.inContext(ctxConditional)
}

func (a *Analyzer) inClosure() bool {
	return a.inContext(ctxClosure)
}

func (a *Analyzer) inContext(kind contextKind) bool {
	for _, c := range a.ctx {
		if c == kind {
			return true
		}
	}

	return false
}

// shadow adjusts the shadow count for one name.
func (a *Analyzer) shadow(name string, on bool) {
	if on {
		a.shadowed[name]++
	} else {
		a.shadowed[name]--
	}
}

// shadowTarget shadows every name bound by a loop or comprehension target.
func (a *Analyzer) shadowTarget(target ir.Expr, on bool) {
	switch v := target.(type) {
	case *ir.Identifier:
		a.shadow(v.Name, on)
	case *ir.TupleLit:
		for _, elem := range v.Elems {
			a.shadowTarget(elem, on)
		}
	}
}

// methodStoresArgs reports whether a method retains its arguments inside the
// receiver.
func methodStoresArgs(method string) bool {
	switch method {
	case "append", "insert", "add", "extend", "update", "setdefault":
		return true
	default:
		return false
	}
}
