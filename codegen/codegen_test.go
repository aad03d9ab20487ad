package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyrus/ir"
	"pyrus/types"
)

func ident(name string) *ir.Identifier {
	return &ir.Identifier{Name: name}
}

func intLit(v int64) *ir.Literal {
	return &ir.Literal{Kind: ir.LitInt, IntVal: v}
}

func strLit(v string) *ir.Literal {
	return &ir.Literal{Kind: ir.LitString, StrVal: v}
}

func param(name string, pt types.PyType) *ir.Param {
	return &ir.Param{Name: name, PyType: pt}
}

func generate(t *testing.T, mod *ir.Module) *Output {
	t.Helper()

	out, errs := Generate(mod, types.NewMapper(), Options{})
	require.True(t, errs.Empty(), "unexpected errors: %v", errs)

	return out
}

func oneFunction(fn *ir.Function) *ir.Module {
	return &ir.Module{Name: "main", Functions: []*ir.Function{fn}}
}

// -----------------------------------------------------------------------------

func TestSimpleAdditionSignature(t *testing.T) {
	// add(a: int, b: int) -> int: return a + b
	fn := &ir.Function{
		Name:       "add",
		Params:     []*ir.Param{param("a", types.PyInt), param("b", types.PyInt)},
		ReturnType: types.PyInt,
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: ir.OpAdd, Lhs: ident("a"), Rhs: ident("b")}},
		},
	}

	out := generate(t, oneFunction(fn))

	assert.Contains(t, out.Source, "pub fn add(a: i32, b: i32) -> i32")
	assert.Contains(t, out.Source, "return a + b;")
	assert.Empty(t, out.Crates)
}

func TestModuleConstantGetsConcreteType(t *testing.T) {
	// x = -1 at module level must never fall back to a dynamic type.
	mod := &ir.Module{
		Name:    "main",
		Globals: []*ir.Global{{Name: "x", PyType: types.PyInt, Init: intLit(-1)}},
	}

	out := generate(t, mod)

	assert.Contains(t, out.Source, "pub const x: i32 = -1;")
	assert.NotContains(t, out.Source, "PyrusValue")
}

func TestMutatedAndReturnedParamIsOwned(t *testing.T) {
	// f(items: list[int]) -> list[int]: items.append(1); return items
	listInt := &types.PyList{ElemType: types.PyInt}
	fn := &ir.Function{
		Name:       "f",
		Params:     []*ir.Param{param("items", listInt)},
		ReturnType: listInt,
		Body: []ir.Stmt{
			&ir.ExprStmt{Expr: &ir.MethodCall{
				Receiver: ident("items"),
				Method:   "append",
				Args:     []ir.Expr{intLit(1)},
			}},
			&ir.Return{Value: ident("items")},
		},
	}

	out := generate(t, oneFunction(fn))

	assert.Contains(t, out.Source, "pub fn f(mut items: Vec<i32>) -> Vec<i32>")
	assert.Contains(t, out.Source, "items.push(1);")
	// The return moves the vec out without a clone.
	assert.Contains(t, out.Source, "return items;")
	assert.NotContains(t, out.Source, "items.clone()")
}

func TestReboundParamTakesOwnership(t *testing.T) {
	// reset(items: list[int]) -> None: items = []
	// Rebinding replaces the whole value, so the parameter passes by value
	// with a mutable binding, never as &mut.
	fn := &ir.Function{
		Name:       "reset",
		Params:     []*ir.Param{param("items", &types.PyList{ElemType: types.PyInt})},
		ReturnType: types.PyNone,
		Body: []ir.Stmt{
			&ir.Assign{Targets: []ir.Expr{ident("items")}, Value: &ir.ListLit{}},
		},
	}

	out := generate(t, oneFunction(fn))

	assert.Contains(t, out.Source, "pub fn reset(mut items: Vec<i32>)")
	assert.Contains(t, out.Source, "items = vec![];")
	assert.NotContains(t, out.Source, "&mut Vec")
}

func TestFloatModuloFollowsDivisorSign(t *testing.T) {
	// rem(a: float, b: float) -> float: return a % b
	fn := &ir.Function{
		Name:       "rem",
		Params:     []*ir.Param{param("a", types.PyFloat), param("b", types.PyFloat)},
		ReturnType: types.PyFloat,
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: ir.OpMod, Lhs: ident("a"), Rhs: ident("b")}},
		},
	}

	out := generate(t, oneFunction(fn))

	// -7.0 % -3.0 is -1.0: the result takes the divisor's sign, which
	// rem_euclid's always-non-negative result would break.
	assert.Contains(t, out.Source, "__r != 0.0")
	assert.Contains(t, out.Source, "__r + __b")
	assert.NotContains(t, out.Source, "rem_euclid")
}

func TestCounterUpdateKeepsKeyUsable(t *testing.T) {
	// counts[key] = counts.get(key, 0) + 1
	fn := &ir.Function{
		Name: "bump",
		Params: []*ir.Param{
			param("counts", &types.PyDict{KeyType: types.PyStr, ValueType: types.PyInt}),
			param("key", types.PyStr),
		},
		ReturnType: types.PyNone,
		Body: []ir.Stmt{
			&ir.Assign{
				Targets: []ir.Expr{&ir.Index{Base: ident("counts"), Index: ident("key")}},
				Value: &ir.Binary{
					Op: ir.OpAdd,
					Lhs: &ir.MethodCall{
						Receiver: ident("counts"),
						Method:   "get",
						Args:     []ir.Expr{ident("key"), intLit(0)},
					},
					Rhs: intLit(1),
				},
			},
		},
	}

	out := generate(t, oneFunction(fn))

	assert.Contains(t, out.Source, "counts: &mut HashMap<String, i32>")
	assert.Contains(t, out.Source, "key: &str")
	// The key is read by borrow in the lookup and cloned into the insert, so
	// the same statement never moves it twice.
	assert.Contains(t, out.Source, "counts.get(key).cloned().unwrap_or(0) + 1")
	assert.Contains(t, out.Source, "counts.insert(key.to_string(),")
}

func TestTwoYieldGeneratorStateMachine(t *testing.T) {
	// def pair(): yield 1; yield 2
	fn := &ir.Function{
		Name:                "pair",
		ReturnType:          &types.PyGenerator{YieldType: types.PyInt},
		HasSuspensionPoints: true,
		Body: []ir.Stmt{
			&ir.ExprStmt{Expr: &ir.Yield{Value: intLit(1)}},
			&ir.ExprStmt{Expr: &ir.Yield{Value: intLit(2)}},
		},
	}

	out := generate(t, oneFunction(fn))

	assert.Contains(t, out.Source, "struct PairState")
	assert.Contains(t, out.Source, "state: u32,")
	assert.Contains(t, out.Source, "impl Iterator for PairState")
	assert.Contains(t, out.Source, "type Item = i32;")
	assert.Contains(t, out.Source, "pub fn pair() -> Box<dyn Iterator<Item = i32>>")
	assert.Contains(t, out.Source, "_ => return None,")

	// The machine produces 1, then 2, then finishes.
	first := strings.Index(out.Source, "return Some(1);")
	second := strings.Index(out.Source, "return Some(2);")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
}

func TestDeterministicOutput(t *testing.T) {
	build := func() *ir.Module {
		return oneFunction(&ir.Function{
			Name:       "add",
			Params:     []*ir.Param{param("a", types.PyInt), param("b", types.PyInt)},
			ReturnType: types.PyInt,
			Body: []ir.Stmt{
				&ir.Return{Value: &ir.Binary{Op: ir.OpAdd, Lhs: ident("a"), Rhs: ident("b")}},
			},
		})
	}

	first := generate(t, build())
	second := generate(t, build())

	assert.Equal(t, first.Source, second.Source)
	assert.Equal(t, first.Crates, second.Crates)
}

// -----------------------------------------------------------------------------

func TestTrueDivisionCoercesBothIntOperands(t *testing.T) {
	// ratio(a: int, b: int) -> float: return a / b
	fn := &ir.Function{
		Name:       "ratio",
		Params:     []*ir.Param{param("a", types.PyInt), param("b", types.PyInt)},
		ReturnType: types.PyFloat,
		CanFail:    true,
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: ir.OpDiv, Lhs: ident("a"), Rhs: ident("b")}},
		},
	}

	out := generate(t, oneFunction(fn))

	assert.Contains(t, out.Source, "-> Result<f64, Box<dyn std::error::Error>>")
	assert.Contains(t, out.Source, "(a as f64) / (b as f64)")
}

func TestFloorDivisionAdjustsForDifferingSigns(t *testing.T) {
	// q(a: int, b: int) -> int: return a // b
	fn := &ir.Function{
		Name:       "q",
		Params:     []*ir.Param{param("a", types.PyInt), param("b", types.PyInt)},
		ReturnType: types.PyInt,
		CanFail:    true,
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: ir.OpFloorDiv, Lhs: ident("a"), Rhs: ident("b")}},
		},
	}

	out := generate(t, oneFunction(fn))

	assert.Contains(t, out.Source, "let __has_rem = __r != 0;")
	assert.Contains(t, out.Source, "let __signs_differ = (__a < 0) != (__b < 0);")
	assert.Contains(t, out.Source, "if __has_rem && __signs_differ { __q - 1 } else { __q }")
}

func TestRaiseWrapsFunctionInResult(t *testing.T) {
	// check(x: int): if x < 0: raise ValueError("negative")
	fn := &ir.Function{
		Name:       "check",
		Params:     []*ir.Param{param("x", types.PyInt)},
		ReturnType: types.PyNone,
		CanFail:    true,
		Body: []ir.Stmt{
			&ir.If{
				Cond: &ir.Binary{Op: ir.OpLt, Lhs: ident("x"), Rhs: intLit(0)},
				Then: []ir.Stmt{
					&ir.Raise{Value: &ir.Call{
						Func: ident("ValueError"),
						Args: []ir.Expr{strLit("negative")},
					}},
				},
			},
		},
	}

	out := generate(t, oneFunction(fn))

	assert.Contains(t, out.Source, "-> Result<(), Box<dyn std::error::Error>>")
	assert.Contains(t, out.Source, `return Err("negative".to_string().into());`)
	assert.Contains(t, out.Source, "Ok(())")
}

func TestStringTransformReturnsOwned(t *testing.T) {
	// shout(s: str) -> str: return s.upper()
	fn := &ir.Function{
		Name:       "shout",
		Params:     []*ir.Param{param("s", types.PyStr)},
		ReturnType: types.PyStr,
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.MethodCall{Receiver: ident("s"), Method: "upper"}},
		},
	}

	out := generate(t, oneFunction(fn))

	assert.Contains(t, out.Source, "s: &str")
	assert.Contains(t, out.Source, "s.to_uppercase()")
}

func TestBoundaryStringMethodBorrows(t *testing.T) {
	// has_prefix(s: str) -> bool: return s.startswith("ab")
	fn := &ir.Function{
		Name:       "has_prefix",
		Params:     []*ir.Param{param("s", types.PyStr)},
		ReturnType: types.PyBool,
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.MethodCall{
				Receiver: ident("s"),
				Method:   "startswith",
				Args:     []ir.Expr{strLit("ab")},
			}},
		},
	}

	out := generate(t, oneFunction(fn))

	assert.Contains(t, out.Source, `s.starts_with("ab")`)
	assert.NotContains(t, out.Source, "to_string()")
}

// -----------------------------------------------------------------------------

func TestLocalMutabilityIsExact(t *testing.T) {
	// x bound once stays immutable; y reassigned becomes mut.
	fn := &ir.Function{
		Name:       "locals",
		ReturnType: types.PyInt,
		Body: []ir.Stmt{
			&ir.Assign{Targets: []ir.Expr{ident("x")}, Value: intLit(1)},
			&ir.Assign{Targets: []ir.Expr{ident("y")}, Value: intLit(1)},
			&ir.Assign{Targets: []ir.Expr{ident("y")}, Value: intLit(2)},
			&ir.Return{Value: &ir.Binary{Op: ir.OpAdd, Lhs: ident("x"), Rhs: ident("y")}},
		},
	}

	out := generate(t, oneFunction(fn))

	assert.Contains(t, out.Source, "let x = 1;")
	assert.Contains(t, out.Source, "let mut y = 1;")
	assert.Contains(t, out.Source, "y = 2;")
	assert.NotContains(t, out.Source, "let mut x")
}

func TestSerializationCallRegistersCrates(t *testing.T) {
	// dump(d: dict[str, int]) -> str: return json.dumps(d)
	fn := &ir.Function{
		Name:       "dump",
		Params:     []*ir.Param{param("d", &types.PyDict{KeyType: types.PyStr, ValueType: types.PyInt})},
		ReturnType: types.PyStr,
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.MethodCall{
				Receiver: ident("json"),
				Method:   "dumps",
				Args:     []ir.Expr{ident("d")},
			}},
		},
	}

	out := generate(t, oneFunction(fn))

	assert.Contains(t, out.Source, "serde_json::to_string(&d).unwrap()")
	assert.Equal(t, []string{"serde", "serde_json"}, out.Crates)
}

func TestPreludeListsOnlyUsedImports(t *testing.T) {
	// make() -> dict[str, int]: return {"a": 1}
	fn := &ir.Function{
		Name:       "make",
		ReturnType: &types.PyDict{KeyType: types.PyStr, ValueType: types.PyInt},
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.DictLit{
				Keys:   []ir.Expr{strLit("a")},
				Values: []ir.Expr{intLit(1)},
			}},
		},
	}

	out := generate(t, oneFunction(fn))

	assert.True(t, strings.HasPrefix(out.Source, "use std::collections::HashMap;"))
	assert.NotContains(t, out.Source, "HashSet")
	assert.NotContains(t, out.Source, "std::rc::Rc")
}

func TestFailedFunctionDoesNotAbortModule(t *testing.T) {
	good := &ir.Function{
		Name:       "fine",
		ReturnType: types.PyInt,
		Body:       []ir.Stmt{&ir.Return{Value: intLit(1)}},
	}
	bad := &ir.Function{
		Name:       "broken",
		Params:     []*ir.Param{param("items", &types.PyList{ElemType: types.PyInt})},
		ReturnType: types.PyNone,
		Body: []ir.Stmt{
			&ir.ExprStmt{Expr: &ir.MethodCall{Receiver: ident("items"), Method: "frobnicate"}},
		},
	}

	mod := &ir.Module{Name: "main", Functions: []*ir.Function{bad, good}}

	out, errs := Generate(mod, types.NewMapper(), Options{})

	assert.Equal(t, 1, out.Emitted)
	assert.Equal(t, 1, out.Failed)
	assert.False(t, errs.Empty())
	assert.Contains(t, out.Source, "pub fn fine()")
	assert.NotContains(t, out.Source, "broken")
}

func TestBestEffortModeSkipsArithmeticWrapping(t *testing.T) {
	// Division marks the function fallible, but best-effort mode only wraps
	// explicit raises.
	fn := &ir.Function{
		Name:       "half",
		Params:     []*ir.Param{param("a", types.PyInt)},
		ReturnType: types.PyFloat,
		CanFail:    true,
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: ir.OpDiv, Lhs: ident("a"), Rhs: intLit(2)}},
		},
	}

	out, errs := Generate(oneFunction(fn), types.NewMapper(), Options{Fallible: WrapBestEffort})
	require.True(t, errs.Empty())

	assert.Contains(t, out.Source, "pub fn half(a: i32) -> f64")
	assert.NotContains(t, out.Source, "Result<")
}

func TestClassEmitsStructAndImpl(t *testing.T) {
	// class Point: __init__(self, x: int) -> sets self.x; def get(self) -> int
	cls := &ir.Class{
		Name:   "Point",
		Fields: []*ir.Field{{Name: "x", PyType: types.PyInt}},
		Methods: []*ir.Function{
			{
				Name:       "__init__",
				Params:     []*ir.Param{param("x", types.PyInt)},
				ReturnType: types.PyNone,
				IsMethod:   true,
				Body: []ir.Stmt{
					&ir.Assign{
						Targets: []ir.Expr{&ir.Attribute{Base: ident("self"), Name: "x"}},
						Value:   ident("x"),
					},
				},
			},
			{
				Name:       "get",
				ReturnType: types.PyInt,
				IsMethod:   true,
				Body: []ir.Stmt{
					&ir.Return{Value: &ir.Attribute{Base: ident("self"), Name: "x"}},
				},
			},
		},
	}

	mod := &ir.Module{Name: "main", Classes: []*ir.Class{cls}}
	out := generate(t, mod)

	assert.Contains(t, out.Source, "#[derive(Debug, Clone)]")
	assert.Contains(t, out.Source, "pub struct Point")
	assert.Contains(t, out.Source, "pub x: i32,")
	assert.Contains(t, out.Source, "impl Point")
	assert.Contains(t, out.Source, "pub fn new(x: i32) -> Point")
	assert.Contains(t, out.Source, "pub fn get(&self) -> i32")
}

func TestForRangeLoop(t *testing.T) {
	// total(n: int) -> int: acc = 0; for i in range(n): acc = acc + i; return acc
	fn := &ir.Function{
		Name:       "total",
		Params:     []*ir.Param{param("n", types.PyInt)},
		ReturnType: types.PyInt,
		Body: []ir.Stmt{
			&ir.Assign{Targets: []ir.Expr{ident("acc")}, Value: intLit(0)},
			&ir.ForEach{
				Target: ident("i"),
				Iter:   &ir.Call{Func: ident("range"), Args: []ir.Expr{ident("n")}},
				Body: []ir.Stmt{
					&ir.Assign{
						Targets: []ir.Expr{ident("acc")},
						Value:   &ir.Binary{Op: ir.OpAdd, Lhs: ident("acc"), Rhs: ident("i")},
					},
				},
			},
			&ir.Return{Value: ident("acc")},
		},
	}

	out := generate(t, oneFunction(fn))

	// The first assignment is a top-level sibling, so the binding must not
	// split into a hoisted declaration plus a bare assignment.
	assert.Contains(t, out.Source, "let mut acc = 0;")
	assert.NotContains(t, out.Source, "let mut acc;")
	assert.Contains(t, out.Source, "for i in 0..n {")
	assert.Contains(t, out.Source, "acc = acc + i;")
}

func TestBranchAssignedNameIsStillHoisted(t *testing.T) {
	// pick(flag: bool) -> int: if flag: v = 1 else: v = 2; return v
	// v is first assigned inside the branches, so it needs a declaration
	// before the if to survive block scoping.
	fn := &ir.Function{
		Name:       "pick",
		Params:     []*ir.Param{param("flag", types.PyBool)},
		ReturnType: types.PyInt,
		Body: []ir.Stmt{
			&ir.If{
				Cond: ident("flag"),
				Then: []ir.Stmt{&ir.Assign{Targets: []ir.Expr{ident("v")}, Value: intLit(1)}},
				Else: []ir.Stmt{&ir.Assign{Targets: []ir.Expr{ident("v")}, Value: intLit(2)}},
			},
			&ir.Return{Value: ident("v")},
		},
	}

	out := generate(t, oneFunction(fn))

	assert.Contains(t, out.Source, "let mut v;")
	assert.Contains(t, out.Source, "v = 1;")
	assert.Contains(t, out.Source, "v = 2;")
	assert.Contains(t, out.Source, "return v;")
}
