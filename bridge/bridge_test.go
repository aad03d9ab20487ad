package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyrus/ast"
	"pyrus/ir"
	"pyrus/types"
)

// convertSource decodes a JSON-encoded module body and runs conversion.
func convertSource(t *testing.T, body string) (*ir.Module, []string) {
	t.Helper()

	astMod, err := ast.DecodeModule([]byte(`{"kind":"Module","name":"test","body":[` + body + `]}`))
	require.NoError(t, err)

	mod, errs := Convert(astMod)
	require.NotNil(t, mod)

	msgs := make([]string, 0, len(errs.Errors()))
	for _, convErr := range errs.Errors() {
		msgs = append(msgs, convErr.Error())
	}

	return mod, msgs
}

const addFn = `{
	"kind": "FunctionDef", "name": "add",
	"args": [
		{"name": "a", "annotation": {"kind": "Name", "id": "int"}},
		{"name": "b", "annotation": {"kind": "Name", "id": "int"}}
	],
	"returns": {"kind": "Name", "id": "int"},
	"body": [{
		"kind": "Return",
		"value": {
			"kind": "BinOp", "op": "+",
			"left": {"kind": "Name", "id": "a"},
			"right": {"kind": "Name", "id": "b"}
		}
	}]
}`

func TestConvertSimpleFunction(t *testing.T) {
	mod, msgs := convertSource(t, addFn)
	require.Empty(t, msgs)
	require.Len(t, mod.Functions, 1)

	fn := mod.Functions[0]
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, types.PyInt, fn.Params[0].PyType)
	assert.Equal(t, types.PyInt, fn.Params[1].PyType)
	assert.Equal(t, types.PyInt, fn.ReturnType)
	assert.False(t, fn.CanFail)
	assert.False(t, fn.HasSuspensionPoints)
}

func TestDivisionMarksFunctionFallible(t *testing.T) {
	mod, msgs := convertSource(t, `{
		"kind": "FunctionDef", "name": "ratio",
		"args": [
			{"name": "a", "annotation": {"kind": "Name", "id": "int"}},
			{"name": "b", "annotation": {"kind": "Name", "id": "int"}}
		],
		"returns": {"kind": "Name", "id": "float"},
		"body": [{
			"kind": "Return",
			"value": {
				"kind": "BinOp", "op": "/",
				"left": {"kind": "Name", "id": "a"},
				"right": {"kind": "Name", "id": "b"}
			}
		}]
	}`)
	require.Empty(t, msgs)
	require.Len(t, mod.Functions, 1)

	assert.True(t, mod.Functions[0].CanFail)
}

func TestYieldMarksSuspensionAndUnwrapsReturnType(t *testing.T) {
	mod, msgs := convertSource(t, `{
		"kind": "FunctionDef", "name": "ones",
		"args": [],
		"returns": {
			"kind": "Subscript",
			"value": {"kind": "Name", "id": "Generator"},
			"index": {"kind": "Tuple", "elems": [
				{"kind": "Name", "id": "int"},
				{"kind": "Constant", "ctype": "none"},
				{"kind": "Constant", "ctype": "none"}
			]}
		},
		"body": [{
			"kind": "ExprStmt",
			"value": {"kind": "Yield", "value": {"kind": "Constant", "ctype": "int", "cval": 1}}
		}]
	}`)
	require.Empty(t, msgs)
	require.Len(t, mod.Functions, 1)

	fn := mod.Functions[0]
	assert.True(t, fn.HasSuspensionPoints)

	// The declared annotation named the generator; downstream phases see the
	// yield type.
	assert.Equal(t, types.PyInt, fn.ReturnType)
}

func TestOptionalAnnotationNormalization(t *testing.T) {
	mod, msgs := convertSource(t, `{
		"kind": "FunctionDef", "name": "find",
		"args": [{
			"name": "x",
			"annotation": {
				"kind": "BinOp", "op": "|",
				"left": {"kind": "Name", "id": "int"},
				"right": {"kind": "Constant", "ctype": "none"}
			}
		}],
		"returns": null,
		"body": [{"kind": "Pass"}]
	}`)
	require.Empty(t, msgs)
	require.Len(t, mod.Functions, 1)

	opt, ok := mod.Functions[0].Params[0].PyType.(*types.PyOptional)
	require.True(t, ok)
	assert.Equal(t, types.PyInt, opt.ElemType)
}

func TestInitAssignmentsDeriveFields(t *testing.T) {
	mod, msgs := convertSource(t, `{
		"kind": "ClassDef", "name": "Point",
		"body": [{
			"kind": "FunctionDef", "name": "__init__",
			"args": [
				{"name": "self"},
				{"name": "x", "annotation": {"kind": "Name", "id": "int"}}
			],
			"body": [{
				"kind": "Assign",
				"targets": [{
					"kind": "Attribute",
					"value": {"kind": "Name", "id": "self"},
					"attr": "x"
				}],
				"value": {"kind": "Name", "id": "x"}
			}]
		}]
	}`)
	require.Empty(t, msgs)
	require.Len(t, mod.Classes, 1)

	cls := mod.Classes[0]
	require.Len(t, cls.Fields, 1)
	assert.Equal(t, "x", cls.Fields[0].Name)
	assert.Equal(t, types.PyInt, cls.Fields[0].PyType)

	// The receiver never appears as a parameter.
	require.Len(t, cls.Methods, 1)
	require.Len(t, cls.Methods[0].Params, 1)
	assert.Equal(t, "x", cls.Methods[0].Params[0].Name)
}

func TestDocstringIsPeeled(t *testing.T) {
	mod, msgs := convertSource(t, `{
		"kind": "FunctionDef", "name": "noop",
		"args": [],
		"body": [
			{"kind": "ExprStmt", "value": {"kind": "Constant", "ctype": "str", "cval": "Does nothing."}},
			{"kind": "Pass"}
		]
	}`)
	require.Empty(t, msgs)
	require.Len(t, mod.Functions, 1)

	fn := mod.Functions[0]
	assert.Equal(t, "Does nothing.", fn.Docstring)

	for _, stmt := range fn.Body {
		_, isExpr := stmt.(*ir.ExprStmt)
		assert.False(t, isExpr)
	}
}

func TestFailedFunctionDoesNotAbortModule(t *testing.T) {
	mod, msgs := convertSource(t, addFn+`, {
		"kind": "FunctionDef", "name": "matmul",
		"args": [
			{"name": "a"},
			{"name": "b"}
		],
		"body": [{
			"kind": "Return",
			"value": {
				"kind": "BinOp", "op": "@",
				"left": {"kind": "Name", "id": "a"},
				"right": {"kind": "Name", "id": "b"}
			}
		}]
	}`)

	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "operator `@`")

	require.Len(t, mod.Functions, 1)
	assert.Equal(t, "add", mod.Functions[0].Name)
}

func TestChainedComparisonEvaluatesEffectfulMiddleOnce(t *testing.T) {
	// within(x: int) -> bool: return 0 < f(x) < 10
	mod, msgs := convertSource(t, `{
		"kind": "FunctionDef", "name": "within",
		"args": [{"name": "x", "annotation": {"kind": "Name", "id": "int"}}],
		"returns": {"kind": "Name", "id": "bool"},
		"body": [{
			"kind": "Return",
			"value": {
				"kind": "Compare",
				"left": {"kind": "Constant", "ctype": "int", "cval": 0},
				"ops": ["<", "<"],
				"comparators": [
					{"kind": "Call", "func": {"kind": "Name", "id": "f"}, "args": [{"kind": "Name", "id": "x"}]},
					{"kind": "Constant", "ctype": "int", "cval": 10}
				]
			}
		}]
	}`)
	require.Empty(t, msgs)
	require.Len(t, mod.Functions, 1)

	ret, ok := mod.Functions[0].Body[0].(*ir.Return)
	require.True(t, ok)

	// The effectful middle binds once as a closure argument; both
	// comparisons read the closure parameter.
	call, ok := ret.Value.(*ir.Call)
	require.True(t, ok)

	lam, ok := call.Func.(*ir.Lambda)
	require.True(t, ok)
	require.Equal(t, []string{"__cmp0"}, lam.Params)

	require.Len(t, call.Args, 1)
	_, isCall := call.Args[0].(*ir.Call)
	assert.True(t, isCall)

	conj, ok := lam.Body.(*ir.Binary)
	require.True(t, ok)
	require.Equal(t, ir.OpAnd, conj.Op)

	first, ok := conj.Lhs.(*ir.Binary)
	require.True(t, ok)
	assert.Equal(t, "__cmp0", first.Rhs.(*ir.Identifier).Name)

	second, ok := conj.Rhs.(*ir.Binary)
	require.True(t, ok)
	assert.Equal(t, "__cmp0", second.Lhs.(*ir.Identifier).Name)
}

func TestChainedComparisonWithPureMiddleStaysInline(t *testing.T) {
	// bounded(a: int, b: int, c: int) -> bool: return a < b < c
	mod, msgs := convertSource(t, `{
		"kind": "FunctionDef", "name": "bounded",
		"args": [
			{"name": "a", "annotation": {"kind": "Name", "id": "int"}},
			{"name": "b", "annotation": {"kind": "Name", "id": "int"}},
			{"name": "c", "annotation": {"kind": "Name", "id": "int"}}
		],
		"returns": {"kind": "Name", "id": "bool"},
		"body": [{
			"kind": "Return",
			"value": {
				"kind": "Compare",
				"left": {"kind": "Name", "id": "a"},
				"ops": ["<", "<"],
				"comparators": [{"kind": "Name", "id": "b"}, {"kind": "Name", "id": "c"}]
			}
		}]
	}`)
	require.Empty(t, msgs)
	require.Len(t, mod.Functions, 1)

	ret, ok := mod.Functions[0].Body[0].(*ir.Return)
	require.True(t, ok)

	conj, ok := ret.Value.(*ir.Binary)
	require.True(t, ok)
	assert.Equal(t, ir.OpAnd, conj.Op)
}

func TestModuleConstantGetsLiteralType(t *testing.T) {
	mod, msgs := convertSource(t, `{
		"kind": "Assign",
		"targets": [{"kind": "Name", "id": "LIMIT"}],
		"value": {
			"kind": "UnaryOp", "op": "-",
			"operand": {"kind": "Constant", "ctype": "int", "cval": 1}
		}
	}`)
	require.Empty(t, msgs)
	require.Len(t, mod.Globals, 1)

	assert.Equal(t, "LIMIT", mod.Globals[0].Name)
	assert.Equal(t, types.PyInt, mod.Globals[0].PyType)
}
