package optimize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyrus/ir"
)

func ident(name string) *ir.Identifier {
	return &ir.Identifier{Name: name}
}

func intLit(v int64) *ir.Literal {
	return &ir.Literal{Kind: ir.LitInt, IntVal: v}
}

func boolLit(v bool) *ir.Literal {
	return &ir.Literal{Kind: ir.LitBool, BoolVal: v}
}

func assign(name string, value ir.Expr) *ir.Assign {
	return &ir.Assign{Targets: []ir.Expr{ident(name)}, Value: value}
}

// exprDiff compares IR trees ignoring the unexported span and inferred-type
// fields every node carries.
func exprDiff(want, got interface{}) string {
	return cmp.Diff(want, got, cmpopts.IgnoreUnexported(ir.ExprBase{}, ir.NodeBase{}))
}

func TestConstantFolding(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Body: []ir.Stmt{
			assign("x", &ir.Binary{Op: ir.OpAdd, Lhs: intLit(2), Rhs: intLit(3)}),
			&ir.Return{Value: ident("x")},
		},
	}

	New(Options{ConstantFolding: true}).OptimizeFunction(fn)

	// x = 5; return 5 after propagation.
	as, ok := fn.Body[0].(*ir.Assign)
	require.True(t, ok)

	lit, ok := as.Value.(*ir.Literal)
	require.True(t, ok)
	assert.Equal(t, int64(5), lit.IntVal)

	ret, ok := fn.Body[1].(*ir.Return)
	require.True(t, ok)

	retLit, ok := ret.Value.(*ir.Literal)
	require.True(t, ok)
	assert.Equal(t, int64(5), retLit.IntVal)
}

func TestFoldingSkipsDivision(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: ir.OpDiv, Lhs: intLit(10), Rhs: intLit(2)}},
		},
	}

	New(Options{ConstantFolding: true}).OptimizeFunction(fn)

	ret := fn.Body[0].(*ir.Return)
	_, stillBinary := ret.Value.(*ir.Binary)
	assert.True(t, stillBinary, "division must never be folded")
}

func TestPropagationSkipsReassignedNames(t *testing.T) {
	// total = 0
	// for x in items: total = total + x
	// return total
	fn := &ir.Function{
		Name:   "sum_items",
		Params: []*ir.Param{{Name: "items"}},
		Body: []ir.Stmt{
			assign("total", intLit(0)),
			&ir.ForEach{
				Target: ident("x"),
				Iter:   ident("items"),
				Body: []ir.Stmt{
					assign("total", &ir.Binary{Op: ir.OpAdd, Lhs: ident("total"), Rhs: ident("x")}),
				},
			},
			&ir.Return{Value: ident("total")},
		},
	}

	New(Options{ConstantFolding: true}).OptimizeFunction(fn)

	// The accumulator must not collapse to its initial value.
	ret, ok := fn.Body[2].(*ir.Return)
	require.True(t, ok)

	id, ok := ret.Value.(*ir.Identifier)
	require.True(t, ok, "return value must still reference the accumulator")
	assert.Equal(t, "total", id.Name)
}

func TestPropagationSubstitutesSingleBinding(t *testing.T) {
	// n = 10; return n + 1  =>  return 11
	fn := &ir.Function{
		Name: "f",
		Body: []ir.Stmt{
			assign("n", intLit(10)),
			&ir.Return{Value: &ir.Binary{Op: ir.OpAdd, Lhs: ident("n"), Rhs: intLit(1)}},
		},
	}

	New(Options{ConstantFolding: true}).OptimizeFunction(fn)

	ret := fn.Body[1].(*ir.Return)
	lit, ok := ret.Value.(*ir.Literal)
	require.True(t, ok)
	assert.Equal(t, int64(11), lit.IntVal)
}

func TestDeadCodeAfterReturnIsRemoved(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Body: []ir.Stmt{
			&ir.Return{Value: intLit(1)},
			assign("unreached", intLit(2)),
		},
	}

	New(Options{DeadCode: true}).OptimizeFunction(fn)

	require.Len(t, fn.Body, 1)
	_, isReturn := fn.Body[0].(*ir.Return)
	assert.True(t, isReturn)
}

func TestUnusedPureAssignIsRemoved(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Body: []ir.Stmt{
			assign("unused", intLit(1)),
			&ir.Return{Value: intLit(2)},
		},
	}

	New(Options{DeadCode: true}).OptimizeFunction(fn)

	require.Len(t, fn.Body, 1)
}

func TestIndexWriteBaseCountsAsUse(t *testing.T) {
	// xs = []; xs[0] = 1; return xs
	fn := &ir.Function{
		Name: "f",
		Body: []ir.Stmt{
			assign("xs", &ir.ListLit{}),
			&ir.Assign{
				Targets: []ir.Expr{&ir.Index{Base: ident("xs"), Index: intLit(0)}},
				Value:   intLit(1),
			},
			&ir.Return{Value: ident("xs")},
		},
	}

	New(Options{DeadCode: true}).OptimizeFunction(fn)

	// The binding feeds the indexed write; it must survive.
	require.Len(t, fn.Body, 3)
	_, isAssign := fn.Body[0].(*ir.Assign)
	assert.True(t, isAssign)
}

func TestCallValuedAssignIsNotRemoved(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Body: []ir.Stmt{
			assign("unused", &ir.Call{Func: ident("fetch")}),
			&ir.Return{Value: intLit(0)},
		},
	}

	New(Options{DeadCode: true}).OptimizeFunction(fn)

	// The call may have side effects; the statement stays.
	require.Len(t, fn.Body, 2)
}

func TestLiteralConditionSelectsBranch(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Body: []ir.Stmt{
			&ir.If{
				Cond: boolLit(true),
				Then: []ir.Stmt{&ir.Return{Value: intLit(1)}},
				Else: []ir.Stmt{&ir.Return{Value: intLit(2)}},
			},
		},
	}

	New(Options{DeadCode: true}).OptimizeFunction(fn)

	require.Len(t, fn.Body, 1)

	ret, ok := fn.Body[0].(*ir.Return)
	require.True(t, ok)
	assert.Equal(t, int64(1), ret.Value.(*ir.Literal).IntVal)
}

func TestCommonSubexpressionIsHoisted(t *testing.T) {
	// y = a * b + 1; z = a * b + 2  with a, b parameters
	product := func() *ir.Binary {
		return &ir.Binary{Op: ir.OpMul, Lhs: ident("a"), Rhs: ident("b")}
	}

	fn := &ir.Function{
		Name:   "f",
		Params: []*ir.Param{{Name: "a"}, {Name: "b"}},
		Body: []ir.Stmt{
			assign("y", &ir.Binary{Op: ir.OpAdd, Lhs: product(), Rhs: intLit(1)}),
			assign("z", &ir.Binary{Op: ir.OpAdd, Lhs: product(), Rhs: intLit(2)}),
			&ir.Return{Value: &ir.Binary{Op: ir.OpAdd, Lhs: ident("y"), Rhs: ident("z")}},
		},
	}

	New(Options{CSE: true}).OptimizeFunction(fn)

	require.Len(t, fn.Body, 4)

	hoist, ok := fn.Body[0].(*ir.Assign)
	require.True(t, ok)
	assert.Equal(t, "cse0", hoist.Targets[0].(*ir.Identifier).Name)

	if diff := exprDiff(
		&ir.Binary{Op: ir.OpMul, Lhs: ident("a"), Rhs: ident("b")},
		hoist.Value,
	); diff != "" {
		t.Errorf("hoisted value mismatch (-want +got):\n%s", diff)
	}

	first := fn.Body[1].(*ir.Assign).Value.(*ir.Binary)
	assert.Equal(t, "cse0", first.Lhs.(*ir.Identifier).Name)

	second := fn.Body[2].(*ir.Assign).Value.(*ir.Binary)
	assert.Equal(t, "cse0", second.Lhs.(*ir.Identifier).Name)
}

func TestCSESkipsMutatedNames(t *testing.T) {
	// a changes between the two occurrences; no hoist is sound.
	fn := &ir.Function{
		Name:   "f",
		Params: []*ir.Param{{Name: "a"}, {Name: "b"}},
		Body: []ir.Stmt{
			assign("y", &ir.Binary{Op: ir.OpMul, Lhs: ident("a"), Rhs: ident("b")}),
			assign("a", intLit(5)),
			assign("z", &ir.Binary{Op: ir.OpMul, Lhs: ident("a"), Rhs: ident("b")}),
		},
	}

	New(Options{CSE: true}).OptimizeFunction(fn)

	assert.Len(t, fn.Body, 3)
}

func TestCSESkipsComprehensionScopedNames(t *testing.T) {
	// return [y.a + y.a for y in xs] — y lives only inside the
	// comprehension, so nothing over it may be hoisted to the top level.
	access := func() *ir.Attribute {
		return &ir.Attribute{Base: ident("y"), Name: "a"}
	}

	fn := &ir.Function{
		Name:   "f",
		Params: []*ir.Param{{Name: "xs"}},
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Comprehension{
				Kind: ir.CompList,
				Elem: &ir.Binary{Op: ir.OpAdd, Lhs: access(), Rhs: access()},
				Clauses: []ir.CompClause{{
					Target: ident("y"),
					Iter:   ident("xs"),
				}},
			}},
		},
	}

	New(Options{CSE: true}).OptimizeFunction(fn)

	require.Len(t, fn.Body, 1)
	_, isReturn := fn.Body[0].(*ir.Return)
	assert.True(t, isReturn)
}

func TestCSESkipsLambdaParams(t *testing.T) {
	// g = lambda v: v.a + v.a — v is scoped to the lambda body.
	access := func() *ir.Attribute {
		return &ir.Attribute{Base: ident("v"), Name: "a"}
	}

	fn := &ir.Function{
		Name: "f",
		Body: []ir.Stmt{
			assign("g", &ir.Lambda{
				Params: []string{"v"},
				Body:   &ir.Binary{Op: ir.OpAdd, Lhs: access(), Rhs: access()},
			}),
		},
	}

	New(Options{CSE: true}).OptimizeFunction(fn)

	assert.Len(t, fn.Body, 1)
}

func TestOptimizeModuleCoversMethods(t *testing.T) {
	method := &ir.Function{
		Name:     "m",
		IsMethod: true,
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: ir.OpAdd, Lhs: intLit(1), Rhs: intLit(2)}},
		},
	}

	mod := &ir.Module{
		Classes: []*ir.Class{{Name: "C", Methods: []*ir.Function{method}}},
	}

	New(DefaultOptions()).OptimizeModule(mod)

	ret := method.Body[0].(*ir.Return)
	lit, ok := ret.Value.(*ir.Literal)
	require.True(t, ok)
	assert.Equal(t, int64(3), lit.IntVal)
}
