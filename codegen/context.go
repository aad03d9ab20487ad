package codegen

import (
	"pyrus/ir"
	"pyrus/ownership"
	"pyrus/types"
)

// genContext is the per-function generation state.  It is created when a
// function's emission starts and discarded when it finishes; nothing in it is
// shared across functions.
type genContext struct {
	// The function being emitted.
	fn *ir.Function

	// The lexical scope stack mapping names to their inferred types.
	scopes []map[string]types.Type

	// The names already declared in the emitted text.
	declared map[string]struct{}

	// The names proven mutable: some reachable statement reassigns them or
	// invokes a mutating operation on them.
	mutable map[string]struct{}

	// Whether the function's return is wrapped in Result.
	wrapped bool

	// The resolved analyses of the function.
	res *analysis
}

// newGenContext builds the context for one function: parameters are seeded
// into the root scope and the proven-mutable set is computed from the body.
func (g *Generator) newGenContext(fn *ir.Function) *genContext {
	ctx := &genContext{
		fn:       fn,
		scopes:   []map[string]types.Type{make(map[string]types.Type)},
		declared: make(map[string]struct{}),
		mutable:  make(map[string]struct{}),
		wrapped:  g.shouldWrap(fn),
		res:      g.analyses[fn],
	}

	for i, param := range fn.Params {
		ctx.declared[param.Name] = struct{}{}
		ctx.scopes[0][param.Name] = g.paramLocalType(fn, i)
	}

	collectMutables(fn.Body, ctx.mutable)

	return ctx
}

// paramLocalType is the type a parameter name has inside the body: the
// reference type for borrowed parameters, the mapped value type otherwise.
func (g *Generator) paramLocalType(fn *ir.Function, i int) types.Type {
	res := g.analyses[fn]
	mapped := g.mapper.Map(fn.Params[i].PyType)

	if res == nil {
		return mapped
	}

	switch res.own.Params[i].Strategy.Kind {
	case ownership.StratBorrow:
		if types.IsString(mapped) {
			return types.StrType{}
		}

		return &types.RefType{ElemType: mapped}
	case ownership.StratBorrowMut:
		return &types.RefType{Mutable: true, ElemType: mapped}
	case ownership.StratCow:
		return types.CowType{Lifetime: res.life.Params[i].Lifetime}
	case ownership.StratShared:
		return &types.NamedType{Name: "Rc<" + mapped.Repr() + ">"}
	default:
		return mapped
	}
}

// -----------------------------------------------------------------------------

func (ctx *genContext) push() {
	ctx.scopes = append(ctx.scopes, make(map[string]types.Type))
}

func (ctx *genContext) pop() {
	ctx.scopes = ctx.scopes[:len(ctx.scopes)-1]
}

// bind records a name's inferred type in the current scope.
func (ctx *genContext) bind(name string, typ types.Type) {
	ctx.scopes[len(ctx.scopes)-1][name] = typ
}

// typeOf looks a name up through the scope stack.
func (ctx *genContext) typeOf(name string) types.Type {
	for i := len(ctx.scopes) - 1; i >= 0; i-- {
		if typ, ok := ctx.scopes[i][name]; ok {
			return typ
		}
	}

	return types.UnknownType{}
}

// isDeclared reports whether a name already has an emitted binding.
func (ctx *genContext) isDeclared(name string) bool {
	_, ok := ctx.declared[name]
	return ok
}

func (ctx *genContext) declare(name string) {
	ctx.declared[name] = struct{}{}
}

// isMutable reports whether a name is in the proven-mutable set.
func (ctx *genContext) isMutable(name string) bool {
	_, ok := ctx.mutable[name]
	return ok
}

// -----------------------------------------------------------------------------

// collectMutables fills the proven-mutable set for a body: a name is mutable
// exactly when it is reassigned after its first binding, is the base of an
// indexed or attribute assignment target, receives an in-place mutating
// method, is sorted in place, or is mutably borrowed.
func collectMutables(body []ir.Stmt, mutable map[string]struct{}) {
	assigned := make(map[string]int)

	markTarget := func(target ir.Expr) {
		switch v := target.(type) {
		case *ir.Identifier:
			assigned[v.Name]++
			if assigned[v.Name] > 1 {
				mutable[v.Name] = struct{}{}
			}
		case *ir.Index:
			if id, ok := v.Base.(*ir.Identifier); ok {
				mutable[id.Name] = struct{}{}
			}
		case *ir.Attribute:
			if id, ok := v.Base.(*ir.Identifier); ok {
				mutable[id.Name] = struct{}{}
			}
		case *ir.TupleLit:
			for _, elem := range v.Elems {
				assignedTupleElem(elem, assigned, mutable)
			}
		}
	}

	ir.WalkBody(body, func(stmt ir.Stmt) {
		if as, ok := stmt.(*ir.Assign); ok {
			for _, target := range as.Targets {
				markTarget(target)
			}
		}
	}, func(expr ir.Expr) {
		switch v := expr.(type) {
		case *ir.MethodCall:
			if id, ok := v.Receiver.(*ir.Identifier); ok && ownership.MethodMutatesReceiver(v.Method) {
				mutable[id.Name] = struct{}{}
			}
		case *ir.SortByKey:
			if id, ok := v.Base.(*ir.Identifier); ok && v.InPlace {
				mutable[id.Name] = struct{}{}
			}
		case *ir.Borrow:
			if id, ok := v.Operand.(*ir.Identifier); ok && v.Mutable {
				mutable[id.Name] = struct{}{}
			}
		}
	})
}

func assignedTupleElem(elem ir.Expr, assigned map[string]int, mutable map[string]struct{}) {
	if id, ok := elem.(*ir.Identifier); ok {
		assigned[id.Name]++
		if assigned[id.Name] > 1 {
			mutable[id.Name] = struct{}{}
		}
	}
}

// -----------------------------------------------------------------------------

// inferType determines the Rust type of an expression and records it on the
// node.  The unknown type is the fallback whenever nothing better is known.
func (g *Generator) inferType(expr ir.Expr) types.Type {
	typ := g.inferTypeInner(expr)
	expr.SetType(typ)
	return typ
}

func (g *Generator) inferTypeInner(expr ir.Expr) types.Type {
	switch v := expr.(type) {
	case *ir.Literal:
		return g.literalType(v)
	case *ir.Identifier:
		return g.ctx.typeOf(v.Name)
	case *ir.Binary:
		return g.binaryType(v)
	case *ir.Unary:
		if v.Op == ir.OpNot {
			return types.PrimTypeBool
		}

		return g.inferType(v.Operand)
	case *ir.Call:
		return g.callType(v)
	case *ir.MethodCall:
		return g.methodCallType(v)
	case *ir.Index:
		return g.indexType(v)
	case *ir.Attribute:
		return g.attributeType(v)
	case *ir.Slice:
		return g.inferType(v.Base)
	case *ir.ListLit:
		return &types.VecType{ElemType: g.elemsType(v.Elems)}
	case *ir.SetLit:
		return &types.SetType{ElemType: g.elemsType(v.Elems)}
	case *ir.DictLit:
		return &types.MapType{
			KeyType:   g.elemsType(v.Keys),
			ValueType: g.elemsType(v.Values),
		}
	case *ir.TupleLit:
		elems := make([]types.Type, len(v.Elems))
		for i, elem := range v.Elems {
			elems[i] = g.inferType(elem)
		}

		return &types.TupleType{ElemTypes: elems}
	case *ir.IfExpr:
		return g.inferType(v.Then)
	case *ir.Comprehension:
		return g.comprehensionType(v)
	case *ir.Borrow:
		return &types.RefType{Mutable: v.Mutable, ElemType: g.inferType(v.Operand)}
	case *ir.SortByKey:
		if v.InPlace {
			return types.PrimTypeUnit
		}

		return g.inferType(v.Base)
	default:
		return types.UnknownType{}
	}
}

func (g *Generator) literalType(lit *ir.Literal) types.Type {
	switch lit.Kind {
	case ir.LitInt:
		return g.intType()
	case ir.LitFloat:
		return types.PrimTypeF64
	case ir.LitString:
		return types.StringType{}
	case ir.LitBool:
		return types.PrimTypeBool
	default:
		return &types.OptionType{ElemType: types.UnknownType{}}
	}
}

// intType is the configured integer width.
func (g *Generator) intType() types.Type {
	if g.mapper.IntWidth == types.Width64 {
		return types.PrimTypeI64
	}

	return types.PrimTypeI32
}

func (g *Generator) binaryType(bin *ir.Binary) types.Type {
	switch bin.Op {
	case ir.OpEq, ir.OpNotEq, ir.OpLt, ir.OpLtEq, ir.OpGt, ir.OpGtEq,
		ir.OpAnd, ir.OpOr, ir.OpIn, ir.OpNotIn:
		g.inferType(bin.Lhs)
		g.inferType(bin.Rhs)
		return types.PrimTypeBool
	case ir.OpDiv:
		g.inferType(bin.Lhs)
		g.inferType(bin.Rhs)
		return types.PrimTypeF64
	}

	lhs := g.inferType(bin.Lhs)
	rhs := g.inferType(bin.Rhs)

	if types.IsFloating(lhs) || types.IsFloating(rhs) {
		return types.PrimTypeF64
	}

	if types.IsString(types.InnerType(lhs)) && bin.Op == ir.OpAdd {
		return types.StringType{}
	}

	if types.IsUnknown(lhs) {
		return rhs
	}

	return lhs
}

func (g *Generator) indexType(idx *ir.Index) types.Type {
	base := types.InnerType(g.inferType(idx.Base))
	g.inferType(idx.Index)

	switch v := base.(type) {
	case *types.VecType:
		return v.ElemType
	case *types.MapType:
		return v.ValueType
	case types.StringType, types.StrType, types.CowType:
		return types.StringType{}
	case *types.TupleType:
		if lit, ok := idx.Index.(*ir.Literal); ok && lit.Kind == ir.LitInt {
			if int(lit.IntVal) < len(v.ElemTypes) {
				return v.ElemTypes[lit.IntVal]
			}
		}

		return types.UnknownType{}
	default:
		return types.UnknownType{}
	}
}

func (g *Generator) attributeType(attr *ir.Attribute) types.Type {
	base := types.InnerType(g.inferType(attr.Base))

	if named, ok := base.(*types.NamedType); ok {
		if cls, ok := g.userTypes[named.Name]; ok {
			for _, field := range cls.Fields {
				if field.Name == attr.Name {
					return g.mapper.Map(field.PyType)
				}
			}
		}
	}

	return types.UnknownType{}
}

func (g *Generator) elemsType(elems []ir.Expr) types.Type {
	if len(elems) == 0 {
		return types.UnknownType{}
	}

	first := g.inferType(elems[0])
	for _, elem := range elems[1:] {
		g.inferType(elem)
	}

	return first
}

func (g *Generator) comprehensionType(comp *ir.Comprehension) types.Type {
	g.ctx.push()
	defer g.ctx.pop()

	for _, clause := range comp.Clauses {
		g.bindCompTarget(clause.Target, g.inferType(clause.Iter))
	}

	elem := g.inferType(comp.Elem)

	switch comp.Kind {
	case ir.CompList:
		return &types.VecType{ElemType: elem}
	case ir.CompSet:
		return &types.SetType{ElemType: elem}
	case ir.CompDict:
		return &types.MapType{KeyType: g.inferType(comp.Key), ValueType: elem}
	default:
		return &types.NamedType{Name: "impl Iterator<Item = " + elem.Repr() + ">"}
	}
}

// bindCompTarget binds an iteration target to the element type of the
// iterated value.
func (g *Generator) bindCompTarget(target ir.Expr, iterType types.Type) {
	elem := iterElemType(iterType)

	switch v := target.(type) {
	case *ir.Identifier:
		g.ctx.bind(v.Name, elem)
	case *ir.TupleLit:
		tup, ok := types.InnerType(elem).(*types.TupleType)
		for i, t := range v.Elems {
			id, isID := t.(*ir.Identifier)
			if !isID {
				continue
			}

			if ok && i < len(tup.ElemTypes) {
				g.ctx.bind(id.Name, tup.ElemTypes[i])
			} else {
				g.ctx.bind(id.Name, types.UnknownType{})
			}
		}
	}
}

// iterElemType is the element type produced by iterating a value.
func iterElemType(typ types.Type) types.Type {
	switch v := types.InnerType(typ).(type) {
	case *types.VecType:
		return v.ElemType
	case *types.SetType:
		return v.ElemType
	case *types.MapType:
		return &types.TupleType{ElemTypes: []types.Type{v.KeyType, v.ValueType}}
	case types.StringType, types.StrType, types.CowType:
		return types.StringType{}
	default:
		return types.UnknownType{}
	}
}
