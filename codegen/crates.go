package codegen

import (
	"fmt"

	"pyrus/ir"
	"pyrus/types"
)

// emitModuleCall lowers a call on a known source-language stdlib module to
// its target idiom, registering any crate the lowering depends on.  Returns
// handled=false when the receiver is not a recognized module, letting the
// caller fall through to dynamic dispatch.
func (g *Generator) emitModuleCall(module string, call *ir.MethodCall) (string, bool) {
	args := call.Args
	for _, arg := range args {
		g.typeOfExpr(arg)
	}

	switch module {
	case "math":
		return g.emitMathCall(call), true
	case "json":
		return g.emitJSONCall(call), true
	case "re":
		return g.emitRegexCall(call), true
	case "random":
		return g.emitRandomCall(call), true
	case "time":
		if call.Method == "time" {
			return "std::time::SystemTime::now()" +
				".duration_since(std::time::UNIX_EPOCH).unwrap().as_secs_f64()", true
		}

		g.unsupported(call, "time."+call.Method)
	case "hashlib":
		// Bare hashlib.sha256(x) without .hexdigest() has no useful value
		// form; the chained shape is handled by emitDigestChain.
		g.unsupported(call, "hashlib."+call.Method+" without a digest accessor")
	}

	return "", false
}

func (g *Generator) emitMathCall(call *ir.MethodCall) string {
	args := call.Args

	unary := func(method string) string {
		return fmt.Sprintf("%s.%s()",
			g.emitOperand(args[0], types.PrimTypeF64, precPostfix), method)
	}

	switch call.Method {
	case "sqrt":
		return unary("sqrt")
	case "floor":
		return unary("floor")
	case "ceil":
		return unary("ceil")
	case "fabs":
		return unary("abs")
	case "sin":
		return unary("sin")
	case "cos":
		return unary("cos")
	case "tan":
		return unary("tan")
	case "exp":
		return unary("exp")
	case "log":
		if len(args) == 2 {
			return fmt.Sprintf("%s.log(%s)",
				g.emitOperand(args[0], types.PrimTypeF64, precPostfix),
				g.emitOperand(args[1], types.PrimTypeF64, precNone))
		}

		return unary("ln")
	case "pow":
		return fmt.Sprintf("%s.powf(%s)",
			g.emitOperand(args[0], types.PrimTypeF64, precPostfix),
			g.emitOperand(args[1], types.PrimTypeF64, precNone))
	default:
		g.unsupported(call, "math."+call.Method)
		return ""
	}
}

func (g *Generator) emitJSONCall(call *ir.MethodCall) string {
	args := call.Args

	switch call.Method {
	case "dumps":
		g.requireCrate("serde")
		g.requireCrate("serde_json")

		text := fmt.Sprintf("serde_json::to_string(&%s)", g.emitExpr(args[0]))
		if g.ctx.wrapped {
			return text + "?"
		}

		return text + ".unwrap()"
	case "loads":
		g.requireCrate("serde_json")
		g.requireCrate("pyrus-runtime")

		text := fmt.Sprintf("serde_json::from_str::<PyrusValue>(%s)", g.emitStr(args[0]))
		if g.ctx.wrapped {
			return text + "?"
		}

		return text + ".unwrap()"
	default:
		g.unsupported(call, "json."+call.Method)
		return ""
	}
}

func (g *Generator) emitRegexCall(call *ir.MethodCall) string {
	g.requireCrate("regex")
	args := call.Args

	switch call.Method {
	case "match", "search":
		return fmt.Sprintf("regex::Regex::new(%s).unwrap().is_match(%s)",
			g.emitStr(args[0]), g.emitStr(args[1]))
	case "sub":
		return fmt.Sprintf("regex::Regex::new(%s).unwrap().replace_all(%s, %s).to_string()",
			g.emitStr(args[0]), g.emitStr(args[2]), g.emitStr(args[1]))
	case "findall":
		return fmt.Sprintf(
			"regex::Regex::new(%s).unwrap().find_iter(%s)"+
				".map(|__m| __m.as_str().to_string()).collect::<Vec<String>>()",
			g.emitStr(args[0]), g.emitStr(args[1]))
	default:
		g.unsupported(call, "re."+call.Method)
		return ""
	}
}

func (g *Generator) emitRandomCall(call *ir.MethodCall) string {
	g.requireCrate("rand")
	args := call.Args

	switch call.Method {
	case "random":
		return "rand::random::<f64>()"
	case "randint":
		// Fully qualified trait call so no `use rand::Rng;` is needed.
		return fmt.Sprintf("rand::Rng::gen_range(&mut rand::thread_rng(), %s..=%s)",
			g.emitExpr(args[0]), g.emitExpr(args[1]))
	case "uniform":
		return fmt.Sprintf("rand::Rng::gen_range(&mut rand::thread_rng(), %s..=%s)",
			g.emitOperand(args[0], types.PrimTypeF64, precNone),
			g.emitOperand(args[1], types.PrimTypeF64, precNone))
	case "choice":
		return fmt.Sprintf(
			"%s[rand::Rng::gen_range(&mut rand::thread_rng(), 0..%s.len())].clone()",
			g.emitExprPrec(call.Args[0], precPostfix), g.emitExprPrec(call.Args[0], precPostfix))
	default:
		g.unsupported(call, "random."+call.Method)
		return ""
	}
}

// -----------------------------------------------------------------------------

// emitDigestChain recognizes the hashlib.<algo>(data).hexdigest() shape and
// lowers the whole chain at once.
func (g *Generator) emitDigestChain(call *ir.MethodCall) (string, bool) {
	if call.Method != "hexdigest" {
		return "", false
	}

	inner, ok := call.Receiver.(*ir.MethodCall)
	if !ok {
		return "", false
	}

	mod, ok := inner.Receiver.(*ir.Identifier)
	if !ok || mod.Name != "hashlib" || g.ctx.isDeclared(mod.Name) {
		return "", false
	}

	var hasher string
	switch inner.Method {
	case "sha256":
		g.requireCrate("sha2")
		hasher = "sha2::Sha256"
	case "sha512":
		g.requireCrate("sha2")
		hasher = "sha2::Sha512"
	default:
		g.unsupported(call, "hashlib."+inner.Method)
	}

	g.typeOfExpr(inner.Args[0])

	return fmt.Sprintf(
		"{ use sha2::Digest; let mut __h = <%s>::new(); __h.update(%s.as_bytes()); "+
			"format!(\"{:x}\", __h.finalize()) }",
		hasher, g.emitExprPrec(inner.Args[0], precPostfix)), true
}

// -----------------------------------------------------------------------------

// emitModuleAttribute lowers a constant attribute of a known module.
func (g *Generator) emitModuleAttribute(module, attr string) (string, bool) {
	if module != "math" {
		return "", false
	}

	switch attr {
	case "pi":
		return "std::f64::consts::PI", true
	case "e":
		return "std::f64::consts::E", true
	case "tau":
		return "std::f64::consts::TAU", true
	case "inf":
		return "f64::INFINITY", true
	case "nan":
		return "f64::NAN", true
	default:
		return "", false
	}
}

// moduleCallType is the inferred result type of a recognized module call.
func (g *Generator) moduleCallType(module, method string) (types.Type, bool) {
	switch module {
	case "math":
		return types.PrimTypeF64, true
	case "json":
		switch method {
		case "dumps":
			return types.StringType{}, true
		case "loads":
			return types.UnknownType{}, true
		}
	case "re":
		switch method {
		case "match", "search":
			return types.PrimTypeBool, true
		case "sub":
			return types.StringType{}, true
		case "findall":
			return &types.VecType{ElemType: types.StringType{}}, true
		}
	case "random":
		switch method {
		case "random", "uniform":
			return types.PrimTypeF64, true
		case "randint":
			return g.intType(), true
		}
	case "time":
		return types.PrimTypeF64, true
	}

	return nil, false
}

// moduleFreeCallType covers bare names that resolve to module functions; the
// bridge keeps module calls qualified, so nothing resolves here today.
func (g *Generator) moduleFreeCallType(name string) (types.Type, bool) {
	return nil, false
}
