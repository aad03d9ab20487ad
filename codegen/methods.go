package codegen

import (
	"fmt"
	"strings"

	"pyrus/ir"
	"pyrus/ownership"
	"pyrus/types"
)

// classifyStringMethodOwned reports whether a text method transforms content
// and therefore returns an owned string, as opposed to testing a boundary or
// property of the receiver.
func classifyStringMethodOwned(method string) bool {
	switch method {
	case "upper", "lower", "strip", "lstrip", "rstrip", "replace", "title",
		"capitalize", "swapcase", "center", "ljust", "rjust", "zfill", "join",
		"casefold", "format":
		return true
	case "startswith", "endswith", "find", "rfind", "index", "rindex",
		"count", "isalpha", "isdigit", "isalnum", "isspace", "islower",
		"isupper", "isascii":
		return false
	default:
		// Assume owned when unclassified; an owned string is always safe.
		return true
	}
}

// -----------------------------------------------------------------------------

// emitMethodCall emits a method invocation.  Dispatch is keyed on the
// receiver's concrete type and the method name; an unknown receiver falls
// back to the dynamic runtime representation.
func (g *Generator) emitMethodCall(call *ir.MethodCall) string {
	// Stdlib-module calls look like method calls on an undeclared name.
	if id, ok := call.Receiver.(*ir.Identifier); ok && !g.ctx.isDeclared(id.Name) {
		if text, handled := g.emitModuleCall(id.Name, call); handled {
			return text
		}
	}

	// hashlib digests chain: sha256(data).hexdigest().
	if text, handled := g.emitDigestChain(call); handled {
		return text
	}

	recvType := types.InnerType(g.typeOfExpr(call.Receiver))
	recv := g.emitExprPrec(call.Receiver, precPostfix)

	switch t := recvType.(type) {
	case *types.VecType:
		return g.emitVecMethod(call, recv, t)
	case *types.MapType:
		return g.emitMapMethod(call, recv, t)
	case *types.SetType:
		return g.emitSetMethod(call, recv)
	case types.StringType, types.StrType, types.CowType:
		return g.emitStringMethod(call, recv)
	case *types.NamedType:
		if cls, ok := g.userTypes[t.Name]; ok {
			return g.emitUserMethodCall(call, recv, cls)
		}
	case types.UnknownType:
		// Dynamic dispatch: the runtime value resolves the method by kind.
		g.requireCrate("pyrus-runtime")
		return fmt.Sprintf("%s.%s(%s)", recv, call.Method, g.emitPlainArgs(call.Args))
	}

	g.unsupported(call, fmt.Sprintf("method `%s` on receiver type %s", call.Method, recvType.Repr()))
	return ""
}

func (g *Generator) emitPlainArgs(args []ir.Expr) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		g.typeOfExpr(arg)
		parts[i] = g.emitExpr(arg)
	}

	return strings.Join(parts, ", ")
}

// -----------------------------------------------------------------------------

func (g *Generator) emitVecMethod(call *ir.MethodCall, recv string, t *types.VecType) string {
	args := call.Args
	for _, arg := range args {
		g.typeOfExpr(arg)
	}

	switch call.Method {
	case "append":
		return fmt.Sprintf("%s.push(%s)", recv, g.emitOwned(args[0]))
	case "extend":
		return fmt.Sprintf("%s.extend(%s)", recv, g.emitOwned(args[0]))
	case "insert":
		return fmt.Sprintf("%s.insert(%s, %s)", recv, g.emitUsize(args[0]), g.emitOwned(args[1]))
	case "pop":
		if len(args) == 0 {
			return fmt.Sprintf("%s.pop().expect(\"pop from empty list\")", recv)
		}

		return fmt.Sprintf("%s.remove(%s)", recv, g.emitUsize(args[0]))
	case "remove":
		return fmt.Sprintf(
			"{ let __pos = %s.iter().position(|__e| *__e == %s).expect(\"value not in list\"); %s.remove(__pos); }",
			recv, g.emitExpr(args[0]), recv)
	case "index":
		return fmt.Sprintf("%s.iter().position(|__e| *__e == %s).expect(\"value not in list\") as %s",
			recv, g.emitExpr(args[0]), g.intType().Repr())
	case "count":
		return fmt.Sprintf("%s.iter().filter(|__e| **__e == %s).count() as %s",
			recv, g.emitExpr(args[0]), g.intType().Repr())
	case "clear":
		return recv + ".clear()"
	case "reverse":
		return recv + ".reverse()"
	case "sort":
		return recv + ".sort()"
	case "copy":
		return recv + ".clone()"
	default:
		g.unsupported(call, "list method `"+call.Method+"`")
		return ""
	}
}

func (g *Generator) emitMapMethod(call *ir.MethodCall, recv string, t *types.MapType) string {
	args := call.Args
	for _, arg := range args {
		g.typeOfExpr(arg)
	}

	switch call.Method {
	case "get":
		if len(args) == 2 {
			return fmt.Sprintf("%s.get(%s).cloned().unwrap_or(%s)",
				recv, g.emitKeyRef(args[0]), g.emitOwned(args[1]))
		}

		return fmt.Sprintf("%s.get(%s).cloned()", recv, g.emitKeyRef(args[0]))
	case "keys":
		return fmt.Sprintf("%s.keys().cloned().collect::<Vec<_>>()", recv)
	case "values":
		return fmt.Sprintf("%s.values().cloned().collect::<Vec<_>>()", recv)
	case "items":
		return fmt.Sprintf("%s.iter().map(|(__k, __v)| (__k.clone(), __v.clone())).collect::<Vec<_>>()", recv)
	case "update":
		return fmt.Sprintf("%s.extend(%s)", recv, g.emitOwned(args[0]))
	case "pop":
		if len(args) == 2 {
			return fmt.Sprintf("%s.remove(%s).unwrap_or(%s)",
				recv, g.emitKeyRef(args[0]), g.emitOwned(args[1]))
		}

		return fmt.Sprintf("%s.remove(%s).expect(\"key not found\")", recv, g.emitKeyRef(args[0]))
	case "setdefault":
		return fmt.Sprintf("%s.entry(%s).or_insert(%s).clone()",
			recv, g.emitOwned(args[0]), g.emitOwned(args[1]))
	case "clear":
		return recv + ".clear()"
	case "copy":
		return recv + ".clone()"
	default:
		g.unsupported(call, "dict method `"+call.Method+"`")
		return ""
	}
}

func (g *Generator) emitSetMethod(call *ir.MethodCall, recv string) string {
	args := call.Args
	for _, arg := range args {
		g.typeOfExpr(arg)
	}

	switch call.Method {
	case "add":
		return fmt.Sprintf("%s.insert(%s)", recv, g.emitOwned(args[0]))
	case "discard", "remove":
		return fmt.Sprintf("%s.remove(&%s)", recv, g.emitExpr(args[0]))
	case "update":
		return fmt.Sprintf("%s.extend(%s)", recv, g.emitOwned(args[0]))
	case "union":
		return fmt.Sprintf("%s.union(&%s).cloned().collect::<HashSet<_>>()", recv, g.emitExpr(args[0]))
	case "intersection":
		return fmt.Sprintf("%s.intersection(&%s).cloned().collect::<HashSet<_>>()", recv, g.emitExpr(args[0]))
	case "difference":
		return fmt.Sprintf("%s.difference(&%s).cloned().collect::<HashSet<_>>()", recv, g.emitExpr(args[0]))
	case "clear":
		return recv + ".clear()"
	case "copy":
		return recv + ".clone()"
	default:
		g.unsupported(call, "set method `"+call.Method+"`")
		return ""
	}
}

func (g *Generator) emitStringMethod(call *ir.MethodCall, recv string) string {
	args := call.Args
	for _, arg := range args {
		g.typeOfExpr(arg)
	}

	switch call.Method {
	case "upper":
		return recv + ".to_uppercase()"
	case "lower":
		return recv + ".to_lowercase()"
	case "strip":
		return recv + ".trim().to_string()"
	case "lstrip":
		return recv + ".trim_start().to_string()"
	case "rstrip":
		return recv + ".trim_end().to_string()"
	case "replace":
		return fmt.Sprintf("%s.replace(%s, %s)", recv, g.emitStr(args[0]), g.emitStr(args[1]))
	case "startswith":
		return fmt.Sprintf("%s.starts_with(%s)", recv, g.emitStr(args[0]))
	case "endswith":
		return fmt.Sprintf("%s.ends_with(%s)", recv, g.emitStr(args[0]))
	case "find":
		return fmt.Sprintf("%s.find(%s).map_or(-1, |__i| __i as %s)",
			recv, g.emitStr(args[0]), g.intType().Repr())
	case "count":
		return fmt.Sprintf("%s.matches(%s).count() as %s",
			recv, g.emitStr(args[0]), g.intType().Repr())
	case "split":
		if len(args) == 0 {
			return fmt.Sprintf("%s.split_whitespace().map(|__s| __s.to_string()).collect::<Vec<String>>()", recv)
		}

		return fmt.Sprintf("%s.split(%s).map(|__s| __s.to_string()).collect::<Vec<String>>()",
			recv, g.emitStr(args[0]))
	case "join":
		return fmt.Sprintf("%s.join(%s)", g.emitExprPrec(args[0], precPostfix), g.emitStr(call.Receiver))
	case "capitalize":
		return fmt.Sprintf(
			"{ let mut __cs = %s.chars(); match __cs.next() "+
				"{ Some(__f) => __f.to_uppercase().collect::<String>() + __cs.as_str(), None => String::new() } }",
			recv)
	case "isdigit":
		return fmt.Sprintf("%s.chars().all(|__c| __c.is_ascii_digit()) && !%s.is_empty()", recv, recv)
	case "isalpha":
		return fmt.Sprintf("%s.chars().all(|__c| __c.is_alphabetic()) && !%s.is_empty()", recv, recv)
	case "encode":
		return recv + ".as_bytes().to_vec()"
	default:
		g.unsupported(call, "string method `"+call.Method+"`")
		return ""
	}
}

// emitUserMethodCall emits a call on a user-defined type, borrowing the
// arguments per the method's resolved parameter strategies.
func (g *Generator) emitUserMethodCall(call *ir.MethodCall, recv string, cls *ir.Class) string {
	var method *ir.Function
	for _, m := range cls.Methods {
		if m.Name == call.Method {
			method = m
			break
		}
	}

	if method == nil {
		g.unsupported(call, fmt.Sprintf("method `%s` on class %s", call.Method, cls.Name))
	}

	text := fmt.Sprintf("%s.%s(%s)", recv, call.Method, g.emitStrategyArgs(method, call.Args))
	return g.appendErrorHandling(text, method)
}

// -----------------------------------------------------------------------------

// emitCall emits a free function call: builtins, user functions, class
// constructors, and locally bound closures.
func (g *Generator) emitCall(call *ir.Call) string {
	id, ok := call.Func.(*ir.Identifier)
	if !ok {
		if lam, isLambda := call.Func.(*ir.Lambda); isLambda {
			return fmt.Sprintf("(%s)(%s)", g.emitLambda(lam), g.emitPlainArgs(call.Args))
		}

		g.unsupported(call, "indirect call")
	}

	// A locally bound name is a closure value.
	if g.ctx.isDeclared(id.Name) {
		return fmt.Sprintf("%s(%s)", id.Name, g.emitPlainArgs(call.Args))
	}

	if text, handled := g.emitBuiltinCall(id.Name, call); handled {
		return text
	}

	if fn, ok := g.functions[id.Name]; ok {
		text := fmt.Sprintf("%s(%s)", id.Name, g.emitStrategyArgs(fn, call.Args))
		return g.appendErrorHandling(text, fn)
	}

	if cls, ok := g.userTypes[id.Name]; ok {
		var init *ir.Function
		for _, m := range cls.Methods {
			if m.Name == "__init__" {
				init = m
				break
			}
		}

		return fmt.Sprintf("%s::new(%s)", cls.Name, g.emitStrategyArgs(init, call.Args))
	}

	g.unsupported(call, "call to unknown name `"+id.Name+"`")
	return ""
}

// emitStrategyArgs emits call arguments shaped by the callee's parameter
// strategies so borrows are taken at the call site.
func (g *Generator) emitStrategyArgs(callee *ir.Function, args []ir.Expr) string {
	res := g.analyses[callee]
	parts := make([]string, len(args))

	for i, arg := range args {
		g.typeOfExpr(arg)

		if res == nil || i >= len(res.own.Params) {
			parts[i] = g.emitExpr(arg)
			continue
		}

		parts[i] = g.emitStrategyArg(arg, res.own.Params[i].Strategy.Kind)
	}

	return strings.Join(parts, ", ")
}

func (g *Generator) emitStrategyArg(arg ir.Expr, kind ownership.StrategyKind) string {
	switch kind {
	case ownership.StratBorrow:
		if lit, ok := arg.(*ir.Literal); ok && lit.Kind == ir.LitString {
			return quoteStr(lit.StrVal)
		}

		if id, ok := arg.(*ir.Identifier); ok {
			if _, isStr := g.ctx.typeOf(id.Name).(types.StrType); isStr {
				return id.Name
			}
		}

		return "&" + g.emitExprPrec(arg, precUnary)
	case ownership.StratBorrowMut:
		return "&mut " + g.emitExprPrec(arg, precUnary)
	case ownership.StratCow:
		return "Cow::from(" + g.emitOwned(arg) + ")"
	case ownership.StratShared:
		return "Rc::new(" + g.emitOwned(arg) + ")"
	default:
		if types.IsCopy(g.typeOfExpr(arg)) {
			return g.emitExpr(arg)
		}

		return g.emitOwned(arg)
	}
}

// appendErrorHandling propagates or unwraps a fallible callee's Result.
func (g *Generator) appendErrorHandling(text string, callee *ir.Function) string {
	if callee == nil || !g.shouldWrap(callee) {
		return text
	}

	if g.ctx.wrapped {
		return text + "?"
	}

	return text + ".unwrap()"
}

// -----------------------------------------------------------------------------

// emitBuiltinCall handles the source language's builtin functions.
func (g *Generator) emitBuiltinCall(name string, call *ir.Call) (string, bool) {
	args := call.Args
	for _, arg := range args {
		g.typeOfExpr(arg)
	}

	switch name {
	case "len":
		return fmt.Sprintf("%s.len() as %s",
			g.emitExprPrec(args[0], precPostfix), g.intType().Repr()), true
	case "print":
		return g.emitPrint(args), true
	case "str":
		return g.emitExprPrec(args[0], precPostfix) + ".to_string()", true
	case "int":
		return g.emitNumericParse(call, args[0], g.intType()), true
	case "float":
		return g.emitNumericParse(call, args[0], types.PrimTypeF64), true
	case "bool":
		return g.emitCond(args[0]), true
	case "abs":
		return g.emitExprPrec(args[0], precPostfix) + ".abs()", true
	case "round":
		return g.emitOperand(args[0], types.PrimTypeF64, precPostfix) + ".round()", true
	case "min", "max":
		return g.emitMinMax(name, args), true
	case "sum":
		elem := iterElemType(g.typeOfExpr(args[0]))
		return fmt.Sprintf("%s.iter().sum::<%s>()",
			g.emitExprPrec(args[0], precPostfix), elem.Repr()), true
	case "sorted":
		return fmt.Sprintf("{ let mut __sorted = %s.clone(); __sorted.sort(); __sorted }",
			g.emitExprPrec(args[0], precPostfix)), true
	case "list":
		if len(args) == 0 {
			return "Vec::new()", true
		}

		return fmt.Sprintf("%s.iter().cloned().collect::<Vec<_>>()",
			g.emitExprPrec(args[0], precPostfix)), true
	case "set":
		if len(args) == 0 {
			return "HashSet::new()", true
		}

		return fmt.Sprintf("%s.iter().cloned().collect::<HashSet<_>>()",
			g.emitExprPrec(args[0], precPostfix)), true
	case "dict":
		return "HashMap::new()", true
	case "input":
		return "{ let mut __line = String::new(); " +
			"std::io::stdin().read_line(&mut __line).unwrap(); __line.trim().to_string() }", true
	case "range", "enumerate", "zip":
		g.unsupported(call, name+"() outside an iteration context")
	}

	return "", false
}

// emitPrint renders print() as println! with holes matched to the argument
// types: Display for scalars and text, Debug for aggregates.
func (g *Generator) emitPrint(args []ir.Expr) string {
	if len(args) == 0 {
		return "println!()"
	}

	holes := make([]string, len(args))
	texts := make([]string, len(args))

	for i, arg := range args {
		holes[i] = printHole(g.typeOfExpr(arg))
		texts[i] = g.emitExpr(arg)
	}

	return fmt.Sprintf("println!(%s, %s)",
		quoteStr(strings.Join(holes, " ")), strings.Join(texts, ", "))
}

func printHole(typ types.Type) string {
	switch types.InnerType(typ).(type) {
	case types.PrimitiveType, types.StringType, types.StrType, types.CowType:
		return "{}"
	default:
		return "{:?}"
	}
}

// emitNumericParse converts a value to a numeric type: text parses, numbers
// cast.  Parsing is fallible; a wrapped function propagates, an unwrapped
// one unwraps.
func (g *Generator) emitNumericParse(call *ir.Call, arg ir.Expr, target types.Type) string {
	argType := types.InnerType(g.typeOfExpr(arg))

	switch argType.(type) {
	case types.StringType, types.StrType, types.CowType, types.UnknownType:
		text := fmt.Sprintf("%s.trim().parse::<%s>()",
			g.emitExprPrec(arg, precPostfix), target.Repr())

		if g.ctx.wrapped {
			return text + "?"
		}

		return text + ".unwrap()"
	default:
		return fmt.Sprintf("(%s) as %s", g.emitExpr(arg), target.Repr())
	}
}

func (g *Generator) emitMinMax(name string, args []ir.Expr) string {
	if len(args) == 1 {
		elem := iterElemType(g.typeOfExpr(args[0]))
		base := g.emitExprPrec(args[0], precPostfix)

		if types.IsFloating(elem) {
			fold := "f64::min"
			seed := "f64::INFINITY"
			if name == "max" {
				fold = "f64::max"
				seed = "f64::NEG_INFINITY"
			}

			return fmt.Sprintf("%s.iter().cloned().fold(%s, %s)", base, seed, fold)
		}

		return fmt.Sprintf("%s.iter().cloned().%s().expect(\"%s() of empty sequence\")", base, name, name)
	}

	lhs := g.typeOfExpr(args[0])
	if types.IsFloating(lhs) {
		return fmt.Sprintf("%s.%s(%s)",
			g.emitExprPrec(args[0], precPostfix), name, g.emitExpr(args[1]))
	}

	return fmt.Sprintf("std::cmp::%s(%s, %s)", name, g.emitExpr(args[0]), g.emitExpr(args[1]))
}

// -----------------------------------------------------------------------------

// emitIterable emits an expression in iteration position and returns the
// element type the loop variable binds to.
func (g *Generator) emitIterable(expr ir.Expr) (string, types.Type) {
	// range(), enumerate(), and zip() only exist in iteration position.
	if call, ok := expr.(*ir.Call); ok {
		if id, ok := call.Func.(*ir.Identifier); ok && !g.ctx.isDeclared(id.Name) {
			switch id.Name {
			case "range":
				return g.emitRange(call), g.intType()
			case "enumerate":
				inner, elem := g.emitIterable(call.Args[0])
				pair := &types.TupleType{ElemTypes: []types.Type{types.PrimTypeUSize, elem}}
				return inner + ".enumerate()", pair
			case "zip":
				left, leftElem := g.emitIterable(call.Args[0])
				right, rightElem := g.emitIterable(call.Args[1])
				pair := &types.TupleType{ElemTypes: []types.Type{leftElem, rightElem}}
				return fmt.Sprintf("%s.zip(%s)", left, right), pair
			}
		}
	}

	// dict.items()/keys()/values() iterate without materializing.
	if mc, ok := expr.(*ir.MethodCall); ok {
		if mt, isMap := types.InnerType(g.typeOfExpr(mc.Receiver)).(*types.MapType); isMap {
			recv := g.emitExprPrec(mc.Receiver, precPostfix)

			switch mc.Method {
			case "items":
				pair := &types.TupleType{ElemTypes: []types.Type{mt.KeyType, mt.ValueType}}
				return fmt.Sprintf("%s.iter().map(|(__k, __v)| (__k.clone(), __v.clone()))", recv), pair
			case "keys":
				return recv + ".keys().cloned()", mt.KeyType
			case "values":
				return recv + ".values().cloned()", mt.ValueType
			}
		}
	}

	typ := types.InnerType(g.typeOfExpr(expr))

	switch t := typ.(type) {
	case *types.VecType:
		return g.emitExprPrec(expr, precPostfix) + ".iter().cloned()", t.ElemType
	case *types.SetType:
		return g.emitExprPrec(expr, precPostfix) + ".iter().cloned()", t.ElemType
	case *types.MapType:
		// Iterating a map visits its keys.
		return g.emitExprPrec(expr, precPostfix) + ".keys().cloned()", t.KeyType
	case types.StringType, types.StrType, types.CowType:
		return g.emitExprPrec(expr, precPostfix) + ".chars().map(|__c| __c.to_string())", types.StringType{}
	case *types.NamedType:
		// Generator state machines and boxed iterators iterate directly.
		return g.emitExpr(expr), types.UnknownType{}
	default:
		g.requireCrate("pyrus-runtime")
		return g.emitExprPrec(expr, precPostfix) + ".iter_values()", types.UnknownType{}
	}
}

// emitRange renders a range() call as a target range expression.  A literal
// step of -1 becomes a reversed inclusive range; other negative steps have
// no direct equivalent.
func (g *Generator) emitRange(call *ir.Call) string {
	args := call.Args
	for _, arg := range args {
		g.typeOfExpr(arg)
	}

	switch len(args) {
	case 1:
		return fmt.Sprintf("0..%s", g.emitExprPrec(args[0], precAdd))
	case 2:
		return fmt.Sprintf("%s..%s",
			g.emitExprPrec(args[0], precAdd), g.emitExprPrec(args[1], precAdd))
	case 3:
		if lit, ok := args[2].(*ir.Literal); ok && lit.Kind == ir.LitInt {
			if lit.IntVal == -1 {
				return fmt.Sprintf("((%s + 1)..=%s).rev()",
					g.emitExpr(args[1]), g.emitExpr(args[0]))
			}

			if lit.IntVal > 0 {
				return fmt.Sprintf("(%s..%s).step_by(%d)",
					g.emitExpr(args[0]), g.emitExpr(args[1]), lit.IntVal)
			}
		}

		g.unsupported(call, "range() step")
	}

	g.unsupported(call, "range() arity")
	return ""
}

// -----------------------------------------------------------------------------

// callType infers the result type of a free function call.
func (g *Generator) callType(call *ir.Call) types.Type {
	id, ok := call.Func.(*ir.Identifier)
	if !ok {
		return types.UnknownType{}
	}

	if g.ctx.isDeclared(id.Name) {
		return types.UnknownType{}
	}

	if typ, handled := g.builtinCallType(id.Name, call); handled {
		return typ
	}

	if fn, ok := g.functions[id.Name]; ok {
		return g.mapper.Map(fn.ReturnType)
	}

	if cls, ok := g.userTypes[id.Name]; ok {
		return &types.NamedType{Name: cls.Name}
	}

	if typ, handled := g.moduleFreeCallType(id.Name); handled {
		return typ
	}

	return types.UnknownType{}
}

func (g *Generator) builtinCallType(name string, call *ir.Call) (types.Type, bool) {
	switch name {
	case "len", "int":
		return g.intType(), true
	case "str", "input":
		return types.StringType{}, true
	case "float", "round":
		return types.PrimTypeF64, true
	case "bool":
		return types.PrimTypeBool, true
	case "print":
		return types.PrimTypeUnit, true
	case "abs":
		return g.typeOfExpr(call.Args[0]), true
	case "min", "max":
		if len(call.Args) == 1 {
			return iterElemType(g.typeOfExpr(call.Args[0])), true
		}

		return g.typeOfExpr(call.Args[0]), true
	case "sum":
		return iterElemType(g.typeOfExpr(call.Args[0])), true
	case "sorted":
		return g.typeOfExpr(call.Args[0]), true
	case "list":
		if len(call.Args) == 0 {
			return &types.VecType{ElemType: types.UnknownType{}}, true
		}

		return &types.VecType{ElemType: iterElemType(g.typeOfExpr(call.Args[0]))}, true
	case "set":
		if len(call.Args) == 0 {
			return &types.SetType{ElemType: types.UnknownType{}}, true
		}

		return &types.SetType{ElemType: iterElemType(g.typeOfExpr(call.Args[0]))}, true
	case "dict":
		return &types.MapType{KeyType: types.UnknownType{}, ValueType: types.UnknownType{}}, true
	case "range", "enumerate", "zip":
		return g.intType(), true
	default:
		return nil, false
	}
}

// methodCallType infers the result type of a method call.
func (g *Generator) methodCallType(call *ir.MethodCall) types.Type {
	if id, ok := call.Receiver.(*ir.Identifier); ok && !g.ctx.isDeclared(id.Name) {
		if typ, handled := g.moduleCallType(id.Name, call.Method); handled {
			return typ
		}
	}

	if call.Method == "hexdigest" {
		if inner, ok := call.Receiver.(*ir.MethodCall); ok {
			if mod, ok := inner.Receiver.(*ir.Identifier); ok && mod.Name == "hashlib" {
				return types.StringType{}
			}
		}
	}

	recvType := types.InnerType(g.typeOfExpr(call.Receiver))

	switch t := recvType.(type) {
	case *types.VecType:
		switch call.Method {
		case "pop":
			return t.ElemType
		case "index", "count":
			return g.intType()
		case "copy":
			return t
		default:
			return types.PrimTypeUnit
		}
	case *types.MapType:
		switch call.Method {
		case "get":
			if len(call.Args) == 2 {
				return t.ValueType
			}

			return &types.OptionType{ElemType: t.ValueType}
		case "keys":
			return &types.VecType{ElemType: t.KeyType}
		case "values":
			return &types.VecType{ElemType: t.ValueType}
		case "items":
			pair := &types.TupleType{ElemTypes: []types.Type{t.KeyType, t.ValueType}}
			return &types.VecType{ElemType: pair}
		case "pop", "setdefault":
			return t.ValueType
		case "copy":
			return t
		default:
			return types.PrimTypeUnit
		}
	case *types.SetType:
		switch call.Method {
		case "union", "intersection", "difference", "copy":
			return t
		default:
			return types.PrimTypeUnit
		}
	case types.StringType, types.StrType, types.CowType:
		return g.stringMethodType(call.Method)
	case *types.NamedType:
		if cls, ok := g.userTypes[t.Name]; ok {
			for _, m := range cls.Methods {
				if m.Name == call.Method {
					return g.mapper.Map(m.ReturnType)
				}
			}
		}

		return types.UnknownType{}
	default:
		return types.UnknownType{}
	}
}

// stringMethodType is the result type of a text method: transforming methods
// produce an owned string, boundary tests produce a bool or an index.
func (g *Generator) stringMethodType(method string) types.Type {
	switch method {
	case "startswith", "endswith", "isalpha", "isdigit", "isalnum",
		"isspace", "islower", "isupper", "isascii":
		return types.PrimTypeBool
	case "find", "rfind", "index", "rindex", "count":
		return g.intType()
	case "split":
		return &types.VecType{ElemType: types.StringType{}}
	case "encode":
		return &types.VecType{ElemType: types.PrimTypeU8}
	default:
		if classifyStringMethodOwned(method) {
			return types.StringType{}
		}

		return types.UnknownType{}
	}
}
