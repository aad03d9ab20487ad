package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"pyrus/ir"
	"pyrus/report"
	"pyrus/types"
)

// Operator precedence levels for parenthesization, loosest first.
const (
	precNone = iota
	precOr
	precAnd
	precCmp
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precAdd
	precMul
	precUnary
	precPostfix
)

// emitExpr emits one expression.  The expression's type must already be
// inferred; emitters that synthesize sub-expressions call inferType first.
func (g *Generator) emitExpr(expr ir.Expr) string {
	return g.emitExprPrec(expr, precNone)
}

func (g *Generator) emitExprPrec(expr ir.Expr, parent int) string {
	text, prec := g.emitExprInner(expr)

	if prec < parent {
		return "(" + text + ")"
	}

	return text
}

func (g *Generator) emitExprInner(expr ir.Expr) (string, int) {
	switch v := expr.(type) {
	case *ir.Literal:
		return g.emitLiteral(v), precPostfix
	case *ir.Identifier:
		return v.Name, precPostfix
	case *ir.Binary:
		return g.emitBinary(v)
	case *ir.Unary:
		return g.emitUnary(v), precUnary
	case *ir.Call:
		return g.emitCall(v), precPostfix
	case *ir.MethodCall:
		return g.emitMethodCall(v), precPostfix
	case *ir.Index:
		return g.emitIndex(v), precPostfix
	case *ir.Attribute:
		return g.emitAttribute(v), precPostfix
	case *ir.Slice:
		return g.emitSlice(v), precPostfix
	case *ir.ListLit:
		return g.emitListLit(v), precPostfix
	case *ir.DictLit:
		return g.emitDictLit(v), precPostfix
	case *ir.SetLit:
		return g.emitSetLit(v), precPostfix
	case *ir.TupleLit:
		return g.emitTupleLit(v), precPostfix
	case *ir.Comprehension:
		return g.emitComprehension(v), precPostfix
	case *ir.IfExpr:
		g.inferType(v.Cond)
		return fmt.Sprintf("if %s { %s } else { %s }",
			g.emitCond(v.Cond), g.emitExpr(v.Then), g.emitExpr(v.Else)), precNone
	case *ir.Lambda:
		return g.emitLambda(v), precNone
	case *ir.Await:
		return g.emitExprPrec(v.Operand, precPostfix) + ".await", precPostfix
	case *ir.Yield:
		report.ReportICE("yield reached expression codegen outside a generator")
		return "", precNone
	case *ir.SortByKey:
		return g.emitSortedCopy(v), precPostfix
	case *ir.Borrow:
		if v.Mutable {
			return "&mut " + g.emitExprPrec(v.Operand, precUnary), precUnary
		}

		return "&" + g.emitExprPrec(v.Operand, precUnary), precUnary
	default:
		report.ReportICE("expression variant not handled by codegen")
		return "", precNone
	}
}

// -----------------------------------------------------------------------------

func (g *Generator) emitLiteral(lit *ir.Literal) string {
	switch lit.Kind {
	case ir.LitInt:
		return strconv.FormatInt(lit.IntVal, 10)
	case ir.LitFloat:
		return formatFloat(lit.FloatVal)
	case ir.LitString:
		return quoteStr(lit.StrVal)
	case ir.LitBool:
		if lit.BoolVal {
			return "true"
		}

		return "false"
	default:
		return "None"
	}
}

// formatFloat renders a float literal with an explicit decimal point so the
// emitted token is unambiguously floating.
func formatFloat(f float64) string {
	text := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(text, ".eE") {
		text += ".0"
	}

	return text
}

// quoteStr renders a Rust string literal.
func quoteStr(s string) string {
	return strconv.Quote(s)
}

// -----------------------------------------------------------------------------

// emitOwned emits an expression in a position that needs an owned value:
// string literals gain .to_string(), borrowed text converts, and aliasing a
// non-copyable name clones instead of moving.
func (g *Generator) emitOwned(expr ir.Expr) string {
	switch v := expr.(type) {
	case *ir.Literal:
		if v.Kind == ir.LitString {
			return quoteStr(v.StrVal) + ".to_string()"
		}
	case *ir.Identifier:
		switch t := g.ctx.typeOf(v.Name).(type) {
		case types.StrType, types.CowType:
			return v.Name + ".to_string()"
		case *types.RefType:
			return v.Name + ".clone()"
		default:
			if !types.IsCopy(t) && !types.IsUnknown(t) {
				return v.Name + ".clone()"
			}
		}
	}

	return g.emitExpr(expr)
}

// emitKey emits a map key in an inserting position.
func (g *Generator) emitKey(expr ir.Expr) string {
	return g.emitOwned(expr)
}

// emitKeyRef emits a map lookup key in borrowed position.  String literals
// and already-borrowed text pass as-is; everything else takes a reference.
func (g *Generator) emitKeyRef(expr ir.Expr) string {
	if lit, ok := expr.(*ir.Literal); ok && lit.Kind == ir.LitString {
		return quoteStr(lit.StrVal)
	}

	if _, ok := types.InnerType(g.typeOfExpr(expr)).(types.StrType); ok {
		return g.emitExprPrec(expr, precUnary)
	}

	return "&" + g.emitExprPrec(expr, precUnary)
}

// emitUsize emits a sequence index coerced to usize.
func (g *Generator) emitUsize(expr ir.Expr) string {
	if lit, ok := expr.(*ir.Literal); ok && lit.Kind == ir.LitInt && lit.IntVal >= 0 {
		return strconv.FormatInt(lit.IntVal, 10)
	}

	return "(" + g.emitExpr(expr) + ") as usize"
}

// emitCond emits an expression in boolean position, applying the source
// language's truthiness rules to non-boolean values.
func (g *Generator) emitCond(expr ir.Expr) string {
	typ := expr.Type()
	if typ == nil {
		typ = g.inferType(expr)
	}

	switch t := types.InnerType(typ).(type) {
	case types.PrimitiveType:
		if t == types.PrimTypeBool {
			return g.emitExpr(expr)
		}

		if t.IsIntegral() {
			return g.emitExprPrec(expr, precCmp+1) + " != 0"
		}

		if t.IsFloating() {
			return g.emitExprPrec(expr, precCmp+1) + " != 0.0"
		}

		return g.emitExpr(expr)
	case types.StringType, types.StrType, types.CowType:
		return "!" + g.emitExprPrec(expr, precPostfix) + ".is_empty()"
	case *types.VecType, *types.MapType, *types.SetType:
		return "!" + g.emitExprPrec(expr, precPostfix) + ".is_empty()"
	case *types.OptionType:
		return g.emitExprPrec(expr, precPostfix) + ".is_some()"
	case types.UnknownType:
		g.requireCrate("pyrus-runtime")
		return g.emitExprPrec(expr, precPostfix) + ".is_truthy()"
	default:
		return g.emitExpr(expr)
	}
}

// -----------------------------------------------------------------------------

var binaryTokens = map[int]struct {
	token string
	prec  int
}{
	ir.OpAdd:    {"+", precAdd},
	ir.OpSub:    {"-", precAdd},
	ir.OpMul:    {"*", precMul},
	ir.OpEq:     {"==", precCmp},
	ir.OpNotEq:  {"!=", precCmp},
	ir.OpLt:     {"<", precCmp},
	ir.OpLtEq:   {"<=", precCmp},
	ir.OpGt:     {">", precCmp},
	ir.OpGtEq:   {">=", precCmp},
	ir.OpAnd:    {"&&", precAnd},
	ir.OpOr:     {"||", precOr},
	ir.OpBitAnd: {"&", precBitAnd},
	ir.OpBitOr:  {"|", precBitOr},
	ir.OpBitXor: {"^", precBitXor},
	ir.OpShl:    {"<<", precShift},
	ir.OpShr:    {">>", precShift},
}

func (g *Generator) emitBinary(bin *ir.Binary) (string, int) {
	result := bin.Type()
	if result == nil {
		result = g.inferType(bin)
	}

	switch bin.Op {
	case ir.OpDiv:
		return g.emitTrueDivision(bin), precMul
	case ir.OpFloorDiv:
		return g.emitFloorDivision(bin), precPostfix
	case ir.OpMod:
		return g.emitModulo(bin), precPostfix
	case ir.OpPow:
		return g.emitPow(bin), precPostfix
	case ir.OpIn:
		return g.emitContains(bin.Rhs, bin.Lhs), precPostfix
	case ir.OpNotIn:
		return "!" + g.emitContains(bin.Rhs, bin.Lhs), precUnary
	case ir.OpAdd:
		// Text concatenation chains fold into one format! invocation.
		if types.IsString(types.InnerType(result)) {
			return g.emitFormatChain(bin), precPostfix
		}
	}

	op, ok := binaryTokens[bin.Op]
	if !ok {
		report.ReportICE("binary operator %d not handled by codegen", bin.Op)
	}

	lhs := g.emitOperand(bin.Lhs, result, op.prec)
	rhs := g.emitOperand(bin.Rhs, result, op.prec+1)

	return fmt.Sprintf("%s %s %s", lhs, op.token, rhs), op.prec
}

// emitOperand emits one operand of an arithmetic operator, coercing an
// integral operand to f64 when the result type is floating.
func (g *Generator) emitOperand(expr ir.Expr, result types.Type, prec int) string {
	operandType := expr.Type()
	if operandType == nil {
		operandType = g.inferType(expr)
	}

	if types.IsFloating(result) && types.IsInteger(operandType) {
		return "(" + g.emitExpr(expr) + " as f64)"
	}

	return g.emitExprPrec(expr, prec)
}

// emitTrueDivision emits source-language true division: the result is always
// floating, so both operands are coerced even when both are integers.
func (g *Generator) emitTrueDivision(bin *ir.Binary) string {
	lhs := g.emitOperand(bin.Lhs, types.PrimTypeF64, precMul)
	rhs := g.emitOperand(bin.Rhs, types.PrimTypeF64, precMul+1)

	return fmt.Sprintf("%s / %s", lhs, rhs)
}

// emitFloorDivision emits floor division.  Integer truncation differs from
// flooring when the operand signs differ, so the adjustment is built from
// separate named intermediates rather than one compound expression.
func (g *Generator) emitFloorDivision(bin *ir.Binary) string {
	lhsType := g.typeOfExpr(bin.Lhs)
	rhsType := g.typeOfExpr(bin.Rhs)

	if types.IsFloating(lhsType) || types.IsFloating(rhsType) {
		lhs := g.emitOperand(bin.Lhs, types.PrimTypeF64, precMul)
		rhs := g.emitOperand(bin.Rhs, types.PrimTypeF64, precMul+1)

		return fmt.Sprintf("(%s / %s).floor()", lhs, rhs)
	}

	lhs := g.emitExpr(bin.Lhs)
	rhs := g.emitExpr(bin.Rhs)

	return fmt.Sprintf(
		"{ let __a = %s; let __b = %s; let __q = __a / __b; let __r = __a %% __b; "+
			"let __has_rem = __r != 0; let __signs_differ = (__a < 0) != (__b < 0); "+
			"if __has_rem && __signs_differ { __q - 1 } else { __q } }",
		lhs, rhs)
}

// emitModulo emits the source language's modulo: the result takes the sign
// of the divisor, unlike the target's truncating remainder.
func (g *Generator) emitModulo(bin *ir.Binary) string {
	lhsType := g.typeOfExpr(bin.Lhs)
	rhsType := g.typeOfExpr(bin.Rhs)

	if types.IsFloating(lhsType) || types.IsFloating(rhsType) {
		lhs := g.emitOperand(bin.Lhs, types.PrimTypeF64, precMul)
		rhs := g.emitOperand(bin.Rhs, types.PrimTypeF64, precMul+1)

		return fmt.Sprintf(
			"{ let __a = %s; let __b = %s; let __r = __a %% __b; "+
				"if __r != 0.0 && (__r < 0.0) != (__b < 0.0) { __r + __b } else { __r } }",
			lhs, rhs)
	}

	lhs := g.emitExpr(bin.Lhs)
	rhs := g.emitExpr(bin.Rhs)

	return fmt.Sprintf(
		"{ let __a = %s; let __b = %s; let __r = __a %% __b; "+
			"if __r != 0 && (__r < 0) != (__b < 0) { __r + __b } else { __r } }",
		lhs, rhs)
}

// emitPow emits exponentiation: integer bases use checked_pow, a negative or
// floating exponent promotes the whole expression to floating powf.
func (g *Generator) emitPow(bin *ir.Binary) string {
	lhsType := g.typeOfExpr(bin.Lhs)
	rhsType := g.typeOfExpr(bin.Rhs)

	negativeExp := false
	if lit, ok := bin.Rhs.(*ir.Literal); ok && lit.Kind == ir.LitInt && lit.IntVal < 0 {
		negativeExp = true
	}

	if types.IsFloating(lhsType) || types.IsFloating(rhsType) || negativeExp {
		lhs := g.emitOperand(bin.Lhs, types.PrimTypeF64, precPostfix)
		rhs := g.emitOperand(bin.Rhs, types.PrimTypeF64, precNone)

		return fmt.Sprintf("%s.powf(%s)", lhs, rhs)
	}

	lhs := g.emitExprPrec(bin.Lhs, precPostfix)
	rhs := g.emitExpr(bin.Rhs)

	return fmt.Sprintf("%s.checked_pow((%s) as u32).expect(\"Power operation overflowed\")", lhs, rhs)
}

// emitContains emits a membership test against the container's lookup form.
func (g *Generator) emitContains(container, item ir.Expr) string {
	containerType := types.InnerType(g.typeOfExpr(container))
	g.typeOfExpr(item)

	base := g.emitExprPrec(container, precPostfix)

	switch containerType.(type) {
	case *types.MapType:
		return fmt.Sprintf("%s.contains_key(%s)", base, g.emitKeyRef(item))
	case *types.SetType, *types.VecType:
		return fmt.Sprintf("%s.contains(&%s)", base, g.emitExpr(item))
	case types.StringType, types.StrType, types.CowType:
		return fmt.Sprintf("%s.contains(%s)", base, g.emitStr(item))
	default:
		g.requireCrate("pyrus-runtime")
		return fmt.Sprintf("%s.contains_value(&%s)", base, g.emitExpr(item))
	}
}

// emitStr emits an expression as a &str argument.
func (g *Generator) emitStr(expr ir.Expr) string {
	if lit, ok := expr.(*ir.Literal); ok && lit.Kind == ir.LitString {
		return quoteStr(lit.StrVal)
	}

	typ := types.InnerType(g.typeOfExpr(expr))
	if _, ok := typ.(types.StringType); ok {
		return g.emitExprPrec(expr, precPostfix) + ".as_str()"
	}

	return g.emitExprPrec(expr, precPostfix)
}

// typeOfExpr returns the inferred type, inferring it on demand.
func (g *Generator) typeOfExpr(expr ir.Expr) types.Type {
	if typ := expr.Type(); typ != nil {
		return typ
	}

	return g.inferType(expr)
}

// -----------------------------------------------------------------------------

// emitFormatChain folds a text concatenation chain into one format! call.
// Literal pieces inline into the format string; str() conversions become {}
// holes over their operand.
func (g *Generator) emitFormatChain(bin *ir.Binary) string {
	var parts []ir.Expr
	collectConcatParts(bin, &parts)

	format := strings.Builder{}
	var args []string

	for _, part := range parts {
		if lit, ok := part.(*ir.Literal); ok && lit.Kind == ir.LitString {
			format.WriteString(escapeFormat(lit.StrVal))
			continue
		}

		format.WriteString("{}")

		// str(x) is a conversion the hole already performs.
		if call, ok := part.(*ir.Call); ok && len(call.Args) == 1 {
			if id, ok := call.Func.(*ir.Identifier); ok && id.Name == "str" {
				g.inferType(call.Args[0])
				args = append(args, g.emitExpr(call.Args[0]))
				continue
			}
		}

		g.typeOfExpr(part)
		args = append(args, g.emitExpr(part))
	}

	if len(args) == 0 {
		return quoteStr(format.String()) + ".to_string()"
	}

	return fmt.Sprintf("format!(%s, %s)", quoteStr(format.String()), strings.Join(args, ", "))
}

// collectConcatParts flattens a left-associated + chain of text operands.
func collectConcatParts(expr ir.Expr, parts *[]ir.Expr) {
	if bin, ok := expr.(*ir.Binary); ok && bin.Op == ir.OpAdd {
		collectConcatParts(bin.Lhs, parts)
		collectConcatParts(bin.Rhs, parts)
		return
	}

	*parts = append(*parts, expr)
}

// escapeFormat escapes literal text for inclusion in a format string.
func escapeFormat(s string) string {
	quoted := strconv.Quote(s)
	inner := quoted[1 : len(quoted)-1]
	inner = strings.ReplaceAll(inner, "{", "{{")
	inner = strings.ReplaceAll(inner, "}", "}}")

	return inner
}

// -----------------------------------------------------------------------------

func (g *Generator) emitUnary(un *ir.Unary) string {
	operandType := g.typeOfExpr(un.Operand)

	switch un.Op {
	case ir.OpNot:
		if _, isBool := operandType.(types.PrimitiveType); isBool && operandType == types.PrimTypeBool {
			return "!" + g.emitExprPrec(un.Operand, precUnary)
		}

		return "!(" + g.emitCond(un.Operand) + ")"
	case ir.OpNeg:
		return "-" + g.emitExprPrec(un.Operand, precUnary)
	default:
		return "!" + g.emitExprPrec(un.Operand, precUnary)
	}
}

// -----------------------------------------------------------------------------

func (g *Generator) emitIndex(idx *ir.Index) string {
	baseType := types.InnerType(g.typeOfExpr(idx.Base))
	g.typeOfExpr(idx.Index)
	base := g.emitExprPrec(idx.Base, precPostfix)

	switch baseType.(type) {
	case *types.MapType:
		return fmt.Sprintf("%s[%s]", base, g.emitKeyRef(idx.Index))
	case *types.VecType:
		if lit, ok := idx.Index.(*ir.Literal); ok && lit.Kind == ir.LitInt && lit.IntVal < 0 {
			return fmt.Sprintf("%s[%s.len() - %d]", base, base, -lit.IntVal)
		}

		return fmt.Sprintf("%s[%s]", base, g.emitUsize(idx.Index))
	case *types.TupleType:
		if lit, ok := idx.Index.(*ir.Literal); ok && lit.Kind == ir.LitInt {
			return fmt.Sprintf("%s.%d", base, lit.IntVal)
		}

		g.unsupported(idx, "non-literal tuple index")
		return ""
	case types.StringType, types.StrType, types.CowType:
		if lit, ok := idx.Index.(*ir.Literal); ok && lit.Kind == ir.LitInt && lit.IntVal < 0 {
			return fmt.Sprintf("%s.chars().rev().nth(%d).unwrap().to_string()", base, -lit.IntVal-1)
		}

		return fmt.Sprintf("%s.chars().nth(%s).unwrap().to_string()", base, g.emitUsize(idx.Index))
	case types.UnknownType:
		g.requireCrate("pyrus-runtime")
		return fmt.Sprintf("%s.get_item(%s)", base, g.emitExpr(idx.Index))
	default:
		g.unsupported(idx, "indexing this receiver type")
		return ""
	}
}

func (g *Generator) emitAttribute(attr *ir.Attribute) string {
	// Module attributes resolve to target constants.
	if id, ok := attr.Base.(*ir.Identifier); ok && !g.ctx.isDeclared(id.Name) {
		if text, ok := g.emitModuleAttribute(id.Name, attr.Name); ok {
			return text
		}
	}

	g.typeOfExpr(attr.Base)
	return g.emitExprPrec(attr.Base, precPostfix) + "." + attr.Name
}

func (g *Generator) emitSlice(slice *ir.Slice) string {
	baseType := types.InnerType(g.typeOfExpr(slice.Base))
	base := g.emitExprPrec(slice.Base, precPostfix)

	// A bare [::-1] step reverses a copy.
	if slice.Step != nil {
		lit, ok := slice.Step.(*ir.Literal)
		if !ok || lit.Kind != ir.LitInt || lit.IntVal != -1 || slice.Start != nil || slice.Stop != nil {
			g.unsupported(slice, "slice step")
		}

		switch baseType.(type) {
		case types.StringType, types.StrType, types.CowType:
			return fmt.Sprintf("%s.chars().rev().collect::<String>()", base)
		default:
			return fmt.Sprintf("{ let mut __rev = %s.clone(); __rev.reverse(); __rev }", base)
		}
	}

	bound := func(expr ir.Expr) string {
		if expr == nil {
			return ""
		}

		if lit, ok := expr.(*ir.Literal); ok && lit.Kind == ir.LitInt && lit.IntVal < 0 {
			return fmt.Sprintf("%s.len() - %d", base, -lit.IntVal)
		}

		g.typeOfExpr(expr)
		return g.emitUsize(expr)
	}

	rangeText := bound(slice.Start) + ".." + bound(slice.Stop)

	switch baseType.(type) {
	case types.StringType, types.StrType, types.CowType:
		return fmt.Sprintf("%s[%s].to_string()", base, rangeText)
	default:
		return fmt.Sprintf("%s[%s].to_vec()", base, rangeText)
	}
}

// -----------------------------------------------------------------------------

func (g *Generator) emitListLit(lit *ir.ListLit) string {
	elems := make([]string, len(lit.Elems))
	for i, elem := range lit.Elems {
		g.typeOfExpr(elem)
		elems[i] = g.emitOwned(elem)
	}

	return "vec![" + strings.Join(elems, ", ") + "]"
}

func (g *Generator) emitDictLit(lit *ir.DictLit) string {
	if len(lit.Keys) == 0 {
		return "HashMap::new()"
	}

	pairs := make([]string, len(lit.Keys))
	for i := range lit.Keys {
		g.typeOfExpr(lit.Keys[i])
		g.typeOfExpr(lit.Values[i])
		pairs[i] = fmt.Sprintf("(%s, %s)", g.emitOwned(lit.Keys[i]), g.emitOwned(lit.Values[i]))
	}

	return fmt.Sprintf("HashMap::from([%s])", strings.Join(pairs, ", "))
}

func (g *Generator) emitSetLit(lit *ir.SetLit) string {
	if len(lit.Elems) == 0 {
		return "HashSet::new()"
	}

	elems := make([]string, len(lit.Elems))
	for i, elem := range lit.Elems {
		g.typeOfExpr(elem)
		elems[i] = g.emitOwned(elem)
	}

	return fmt.Sprintf("HashSet::from([%s])", strings.Join(elems, ", "))
}

func (g *Generator) emitTupleLit(lit *ir.TupleLit) string {
	elems := make([]string, len(lit.Elems))
	for i, elem := range lit.Elems {
		g.typeOfExpr(elem)
		elems[i] = g.emitOwned(elem)
	}

	if len(elems) == 1 {
		return "(" + elems[0] + ",)"
	}

	return "(" + strings.Join(elems, ", ") + ")"
}

// -----------------------------------------------------------------------------

// emitComprehension lowers a comprehension to an iterator chain: filters for
// the conditions, map for the element, and a collect matched to the kind.
func (g *Generator) emitComprehension(comp *ir.Comprehension) string {
	g.ctx.push()
	defer g.ctx.pop()

	chain := g.emitCompClauses(comp, 0)

	switch comp.Kind {
	case ir.CompList:
		return chain + ".collect::<Vec<_>>()"
	case ir.CompSet:
		return chain + ".collect::<HashSet<_>>()"
	case ir.CompDict:
		return chain + ".collect::<HashMap<_, _>>()"
	default:
		return chain
	}
}

// emitCompClauses builds the iterator chain for clause i and deeper; nested
// clauses become flat_map links.
func (g *Generator) emitCompClauses(comp *ir.Comprehension, i int) string {
	clause := comp.Clauses[i]
	iter, elemType := g.emitIterable(clause.Iter)
	g.bindCompTarget(clause.Target, &types.VecType{ElemType: elemType})

	pattern := compTargetPattern(clause.Target)
	chain := iter

	for _, cond := range clause.Conds {
		g.typeOfExpr(cond)
		chain += fmt.Sprintf(".filter(|%s| %s)", pattern, g.emitCond(cond))
	}

	if i+1 < len(comp.Clauses) {
		inner := g.emitCompClauses(comp, i+1)
		return chain + fmt.Sprintf(".flat_map(move |%s| %s)", pattern, inner)
	}

	g.typeOfExpr(comp.Elem)

	if comp.Kind == ir.CompDict {
		g.typeOfExpr(comp.Key)
		return chain + fmt.Sprintf(".map(|%s| (%s, %s))",
			pattern, g.emitOwned(comp.Key), g.emitOwned(comp.Elem))
	}

	return chain + fmt.Sprintf(".map(|%s| %s)", pattern, g.emitOwned(comp.Elem))
}

func compTargetPattern(target ir.Expr) string {
	switch v := target.(type) {
	case *ir.Identifier:
		return v.Name
	case *ir.TupleLit:
		parts := make([]string, len(v.Elems))
		for i, elem := range v.Elems {
			parts[i] = compTargetPattern(elem)
		}

		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return "_"
	}
}

// -----------------------------------------------------------------------------

func (g *Generator) emitLambda(lam *ir.Lambda) string {
	g.ctx.push()
	defer g.ctx.pop()

	for _, param := range lam.Params {
		g.ctx.bind(param, types.UnknownType{})
		g.ctx.declare(param)
	}

	g.inferType(lam.Body)
	return fmt.Sprintf("|%s| %s", strings.Join(lam.Params, ", "), g.emitExpr(lam.Body))
}

// emitSortKey renders the key extractor closure of a keyed sort.
func (g *Generator) emitSortKey(sort *ir.SortByKey) string {
	g.ctx.push()
	defer g.ctx.pop()

	elem := iterElemType(g.typeOfExpr(sort.Base))
	for _, param := range sort.Key.Params {
		g.ctx.bind(param, elem)
		g.ctx.declare(param)
	}

	g.inferType(sort.Key.Body)
	return fmt.Sprintf("|%s| %s", strings.Join(sort.Key.Params, ", "), g.emitOwned(sort.Key.Body))
}

// emitSortedCopy emits the non-mutating keyed sort: clone, sort, yield.
func (g *Generator) emitSortedCopy(sort *ir.SortByKey) string {
	g.typeOfExpr(sort.Base)
	base := g.emitExprPrec(sort.Base, precPostfix)

	sortCall := "sort()"
	if sort.Key != nil {
		sortCall = fmt.Sprintf("sort_by_key(%s)", g.emitSortKey(sort))
	}

	reverse := ""
	if sort.Reverse {
		reverse = " __sorted.reverse();"
	}

	return fmt.Sprintf("{ let mut __sorted = %s.clone(); __sorted.%s;%s __sorted }",
		base, sortCall, reverse)
}
