// Package bridge converts a parsed Python program into the typed IR.  It is
// the sole entry point of the translation pipeline: name and annotation
// extraction, function shape classification, and desugaring all happen here.
// Errors are per function: one unsupported construct fails only the function
// containing it, and the rest of the module still translates.
package bridge

import (
	"pyrus/ast"
	"pyrus/ir"
	"pyrus/report"
	"pyrus/types"
)

// Bridge converts one parsed module into IR.
type Bridge struct {
	// The module being built.
	mod *ir.Module

	// The set of user-defined class names seen so far, used to classify
	// annotations that name them.
	classNames map[string]struct{}

	// The errors accumulated for functions that failed to convert.
	errors *report.ErrorList
}

// Convert converts a parsed module into an IR module.  Functions that fail to
// convert are omitted from the result and reported in the error list; a
// non-empty error list does not invalidate the returned module.
func Convert(astMod *ast.Module) (*ir.Module, *report.ErrorList) {
	b := &Bridge{
		mod:        &ir.Module{Name: astMod.Name},
		classNames: make(map[string]struct{}),
		errors:     &report.ErrorList{},
	}

	// Collect class names first so annotations can resolve forward
	// references.
	for _, stmt := range astMod.Body {
		if cd, ok := stmt.(*ast.ClassDef); ok {
			b.classNames[cd.Name] = struct{}{}
		}
	}

	for _, stmt := range astMod.Body {
		b.convertTopLevel(stmt)
	}

	return b.mod, b.errors
}

// convertTopLevel converts one module-level statement.
func (b *Bridge) convertTopLevel(stmt ast.Stmt) {
	switch v := stmt.(type) {
	case *ast.FunctionDef:
		if fn := b.convertFunctionDef(v, false); fn != nil {
			b.mod.Functions = append(b.mod.Functions, fn)
		}
	case *ast.ClassDef:
		if cls := b.convertClassDef(v); cls != nil {
			b.mod.Classes = append(b.mod.Classes, cls)
		}
	case *ast.Assign:
		b.convertGlobal(v)
	case *ast.AnnAssign:
		b.convertAnnotatedGlobal(v)
	case *ast.Import:
		// Imports produce no IR; the code generator derives crate
		// requirements from actual usage.
	case *ast.ExprStmt:
		// A module docstring produces no IR.
		if c, ok := v.Value.(*ast.Constant); ok && c.Kind == ast.ConstStr {
			return
		}

		b.errors.Add(report.RaiseUnsupported(stmt.Span(), "module-level expression statement"))
	case *ast.Pass:
	default:
		b.errors.Add(report.RaiseUnsupported(stmt.Span(), "module-level statement"))
	}
}

// convertGlobal converts a module-level constant assignment.  The initializer
// must be a literal or a unary-negated literal so the constant always gets a
// concrete type, never the unknown fallback.
func (b *Bridge) convertGlobal(as *ast.Assign) {
	if len(as.Targets) != 1 {
		b.errors.Add(report.RaiseUnsupported(as.Span(), "multi-target module constant"))
		return
	}

	name, ok := as.Targets[0].(*ast.Name)
	if !ok {
		b.errors.Add(report.RaiseUnsupported(as.Span(), "non-name module constant target"))
		return
	}

	init, err := b.tryConvertExpr(as.Value)
	if err != nil {
		b.errors.Add(err)
		return
	}

	pyType := inferLiteralType(init)
	if pyType == nil {
		b.errors.Add(report.RaiseUnsupported(as.Span(), "non-literal module constant initializer"))
		return
	}

	b.mod.Globals = append(b.mod.Globals, &ir.Global{
		NodeBase: ir.NewNodeBaseOn(as.Span()),
		Name:     name.ID,
		PyType:   pyType,
		Init:     init,
	})
}

// convertAnnotatedGlobal converts `NAME: T = value` at module level.
func (b *Bridge) convertAnnotatedGlobal(aa *ast.AnnAssign) {
	name, ok := aa.Target.(*ast.Name)
	if !ok || aa.Value == nil {
		b.errors.Add(report.RaiseUnsupported(aa.Span(), "module constant declaration without a name and value"))
		return
	}

	init, err := b.tryConvertExpr(aa.Value)
	if err != nil {
		b.errors.Add(err)
		return
	}

	b.mod.Globals = append(b.mod.Globals, &ir.Global{
		NodeBase: ir.NewNodeBaseOn(aa.Span()),
		Name:     name.ID,
		PyType:   b.parseAnnotation(aa.Annotation),
		Init:     init,
	})
}

// -----------------------------------------------------------------------------

// convertFunctionDef converts one function definition, catching any raised
// conversion errors so a failed function never aborts the module.  Returns
// nil when conversion failed.
func (b *Bridge) convertFunctionDef(fd *ast.FunctionDef, isMethod bool) (fn *ir.Function) {
	defer report.CatchErrors(func(err *report.TranslateError) {
		b.errors.Add(err)
		fn = nil
	})

	params := make([]*ir.Param, 0, len(fd.Args))
	for i, arg := range fd.Args {
		// The implicit receiver is not part of the parameter list.
		if isMethod && i == 0 && arg.Name == "self" {
			continue
		}

		var dflt ir.Expr
		if arg.Default != nil {
			dflt = b.convertExpr(arg.Default)
		}

		params = append(params, &ir.Param{
			Name:    arg.Name,
			PyType:  b.parseAnnotation(arg.Annotation),
			Default: dflt,
			DefSpan: fd.Span(),
		})
	}

	body, docstring := b.convertBody(fd.Body)

	fn = &ir.Function{
		NodeBase:   ir.NewNodeBaseOn(fd.Span()),
		Name:       fd.Name,
		Params:     params,
		ReturnType: b.parseAnnotation(fd.Returns),
		Body:       body,
		IsAsync:    fd.IsAsync,
		IsMethod:   isMethod,
		Docstring:  docstring,
	}

	// Classify the function's shape: these flags drive Result wrapping and
	// state machine rewriting downstream.
	fn.CanFail = bodyCanFail(fn.Body)
	fn.HasSuspensionPoints = bodyHasSuspensions(fn.Body) || fn.IsAsync

	// A generator's declared return annotation names the yield type; unwrap
	// it so downstream phases see the element type.
	if fn.HasSuspensionPoints && !fn.IsAsync {
		if gen, ok := fn.ReturnType.(*types.PyGenerator); ok {
			fn.ReturnType = gen.YieldType
		}
	}

	return fn
}

// convertBody converts a statement list, peeling off a leading docstring.
func (b *Bridge) convertBody(stmts []ast.Stmt) ([]ir.Stmt, string) {
	docstring := ""

	if len(stmts) > 0 {
		if es, ok := stmts[0].(*ast.ExprStmt); ok {
			if c, ok := es.Value.(*ast.Constant); ok && c.Kind == ast.ConstStr {
				docstring = c.StrVal
				stmts = stmts[1:]
			}
		}
	}

	return b.convertStmts(stmts), docstring
}

// -----------------------------------------------------------------------------

// convertClassDef converts a class definition.  Fields come from class-level
// annotated declarations plus `self.x = ...` assignments in __init__;
// methods are converted like free functions with the receiver stripped.
func (b *Bridge) convertClassDef(cd *ast.ClassDef) *ir.Class {
	cls := &ir.Class{
		NodeBase: ir.NewNodeBaseOn(cd.Span()),
		Name:     cd.Name,
	}

	fieldSet := make(map[string]struct{})

	for _, stmt := range cd.Body {
		switch v := stmt.(type) {
		case *ast.AnnAssign:
			name, ok := v.Target.(*ast.Name)
			if !ok {
				b.errors.Add(report.RaiseUnsupported(v.Span(), "class-level declaration target"))
				continue
			}

			cls.Fields = append(cls.Fields, &ir.Field{
				Name:    name.ID,
				PyType:  b.parseAnnotation(v.Annotation),
				DefSpan: v.Span(),
			})
			fieldSet[name.ID] = struct{}{}
		case *ast.FunctionDef:
			if fn := b.convertFunctionDef(v, true); fn != nil {
				cls.Methods = append(cls.Methods, fn)
			}
		case *ast.Pass, *ast.ExprStmt:
			// Docstrings and pass produce nothing.
		default:
			b.errors.Add(report.RaiseUnsupported(stmt.Span(), "class-level statement"))
		}
	}

	// Derive fields from __init__ self-assignments that class-level
	// declarations did not already cover.
	for _, method := range cls.Methods {
		if method.Name != "__init__" {
			continue
		}

		for _, stmt := range method.Body {
			as, ok := stmt.(*ir.Assign)
			if !ok || len(as.Targets) != 1 {
				continue
			}

			attr, ok := as.Targets[0].(*ir.Attribute)
			if !ok {
				continue
			}

			recv, ok := attr.Base.(*ir.Identifier)
			if !ok || recv.Name != "self" {
				continue
			}

			if _, seen := fieldSet[attr.Name]; seen {
				continue
			}

			pyType := as.DeclType
			if pyType == nil {
				pyType = b.paramTypeFor(method, as.Value)
			}

			cls.Fields = append(cls.Fields, &ir.Field{
				Name:    attr.Name,
				PyType:  pyType,
				DefSpan: as.Span(),
			})
			fieldSet[attr.Name] = struct{}{}
		}
	}

	return cls
}

// paramTypeFor resolves the type of a `self.x = param` initializer from the
// constructor's parameter annotations, falling back to the literal type or
// unknown.
func (b *Bridge) paramTypeFor(init *ir.Function, value ir.Expr) types.PyType {
	if id, ok := value.(*ir.Identifier); ok {
		for _, param := range init.Params {
			if param.Name == id.Name {
				return param.PyType
			}
		}
	}

	if pt := inferLiteralType(value); pt != nil {
		return pt
	}

	return types.PyUnknown{}
}

// -----------------------------------------------------------------------------

// tryConvertExpr converts an expression, trapping raised errors.
func (b *Bridge) tryConvertExpr(expr ast.Expr) (result ir.Expr, convErr *report.TranslateError) {
	defer report.CatchErrors(func(err *report.TranslateError) {
		convErr = err
		result = nil
	})

	result = b.convertExpr(expr)
	return
}

// inferLiteralType returns the concrete Python type of a literal initializer,
// or nil when the expression is not one.  Unary negation of a numeric literal
// counts: `x = -1` must get a concrete signed type.
func inferLiteralType(expr ir.Expr) types.PyType {
	switch v := expr.(type) {
	case *ir.Literal:
		switch v.Kind {
		case ir.LitInt:
			return types.PyInt
		case ir.LitFloat:
			return types.PyFloat
		case ir.LitString:
			return types.PyStr
		case ir.LitBool:
			return types.PyBool
		default:
			return nil
		}
	case *ir.Unary:
		if v.Op == ir.OpNeg {
			inner := inferLiteralType(v.Operand)
			if inner == types.PyInt || inner == types.PyFloat {
				return inner
			}
		}

		return nil
	default:
		return nil
	}
}
