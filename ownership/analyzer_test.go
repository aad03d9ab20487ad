package ownership

import (
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

func param(name string, pt types.PyType) *ir.Param {
	return &ir.Param{Name: name, PyType: pt}
}

func fn(name string, params []*ir.Param, ret types.PyType, body ...ir.Stmt) *ir.Function {
	return &ir.Function{Name: name, Params: params, ReturnType: ret, Body: body}
}

func TestCopyParamsAreOwned(t *testing.T) {
	// add(a: int, b: int) -> int: return a + b
	f := fn("add",
		[]*ir.Param{param("a", types.PyInt), param("b", types.PyInt)},
		types.PyInt,
		&ir.Return{Value: &ir.Binary{Op: ir.OpAdd, Lhs: ident("a"), Rhs: ident("b")}},
	)

	result := Analyze(f, types.NewMapper())
	require.Len(t, result.Params, 2)

	for _, ps := range result.Params {
		assert.Equal(t, StratOwned, ps.Strategy.Kind, "param %s", ps.Name)
	}
}

func TestReadOnlyStringIsBorrowed(t *testing.T) {
	// string_len(s: str) -> int: return len(s)
	f := fn("string_len",
		[]*ir.Param{param("s", types.PyStr)},
		types.PyInt,
		&ir.Return{Value: &ir.Call{Func: ident("len"), Args: []ir.Expr{ident("s")}}},
	)

	result := Analyze(f, types.NewMapper())

	strategy, ok := result.StrategyFor("s")
	require.True(t, ok)
	assert.Equal(t, StratBorrow, strategy.Kind)
}

func TestMutatedListIsMutableBorrow(t *testing.T) {
	// push(items: list[int]) -> None: items.append(1)
	f := fn("push",
		[]*ir.Param{param("items", &types.PyList{ElemType: types.PyInt})},
		types.PyNone,
		&ir.ExprStmt{Expr: &ir.MethodCall{
			Receiver: ident("items"),
			Method:   "append",
			Args:     []ir.Expr{intLit(1)},
		}},
	)

	result := Analyze(f, types.NewMapper())

	strategy, ok := result.StrategyFor("items")
	require.True(t, ok)
	assert.Equal(t, StratBorrowMut, strategy.Kind)
}

func TestMutatedAndReturnedListIsOwned(t *testing.T) {
	// f(items: list[int]) -> list[int]: items.append(1); return items
	listType := &types.PyList{ElemType: types.PyInt}
	f := fn("f",
		[]*ir.Param{param("items", listType)},
		listType,
		&ir.ExprStmt{Expr: &ir.MethodCall{
			Receiver: ident("items"),
			Method:   "append",
			Args:     []ir.Expr{intLit(1)},
		}},
		&ir.Return{Value: ident("items")},
	)

	result := Analyze(f, types.NewMapper())

	strategy, ok := result.StrategyFor("items")
	require.True(t, ok)
	assert.Equal(t, StratOwned, strategy.Kind)

	usage := result.Params[0].Usage
	assert.True(t, usage.IsMutated)
	assert.True(t, usage.EscapesViaReturn)
}

func TestReadOnlyListIsBorrowed(t *testing.T) {
	// total(items: list[int]) -> int: return sum(items)
	f := fn("total",
		[]*ir.Param{param("items", &types.PyList{ElemType: types.PyInt})},
		types.PyInt,
		&ir.Return{Value: &ir.Call{Func: ident("sum"), Args: []ir.Expr{ident("items")}}},
	)

	result := Analyze(f, types.NewMapper())

	strategy, ok := result.StrategyFor("items")
	require.True(t, ok)
	assert.Equal(t, StratBorrow, strategy.Kind)
}

func TestMoveIntoUnknownCallTakesOwnership(t *testing.T) {
	// f(items: list[int]) -> None: consume(items)
	f := fn("f",
		[]*ir.Param{param("items", &types.PyList{ElemType: types.PyInt})},
		types.PyNone,
		&ir.ExprStmt{Expr: &ir.Call{Func: ident("consume"), Args: []ir.Expr{ident("items")}}},
	)

	result := Analyze(f, types.NewMapper())

	strategy, ok := result.StrategyFor("items")
	require.True(t, ok)
	assert.Equal(t, StratOwned, strategy.Kind)

	var kinds []InsightKind
	for _, insight := range result.Insights {
		kinds = append(kinds, insight.Kind)
	}

	assert.Contains(t, kinds, InsightUnnecessaryMove)
}

func TestEscapingStringUsesCow(t *testing.T) {
	// passthrough(s: str) -> str: return s
	f := fn("passthrough",
		[]*ir.Param{param("s", types.PyStr)},
		types.PyStr,
		&ir.Return{Value: ident("s")},
	)

	result := Analyze(f, types.NewMapper())

	strategy, ok := result.StrategyFor("s")
	require.True(t, ok)
	assert.Equal(t, StratCow, strategy.Kind)
}

func TestReassignedStringIsOwned(t *testing.T) {
	// shout(s: str) -> str: s = s.upper(); return s
	f := fn("shout",
		[]*ir.Param{param("s", types.PyStr)},
		types.PyStr,
		&ir.Assign{
			Targets: []ir.Expr{ident("s")},
			Value:   &ir.MethodCall{Receiver: ident("s"), Method: "upper"},
		},
		&ir.Return{Value: ident("s")},
	)

	result := Analyze(f, types.NewMapper())

	strategy, ok := result.StrategyFor("s")
	require.True(t, ok)
	assert.Equal(t, StratOwned, strategy.Kind)
}

func TestReboundListIsOwnedNotBorrowed(t *testing.T) {
	// reset(items: list[int]) -> None: items = []
	f := fn("reset",
		[]*ir.Param{param("items", &types.PyList{ElemType: types.PyInt})},
		types.PyNone,
		&ir.Assign{
			Targets: []ir.Expr{ident("items")},
			Value:   &ir.ListLit{},
		},
	)

	result := Analyze(f, types.NewMapper())

	strategy, ok := result.StrategyFor("items")
	require.True(t, ok)
	assert.Equal(t, StratOwned, strategy.Kind)

	usage := result.Params[0].Usage
	assert.True(t, usage.IsRebound)
	assert.False(t, usage.IsMutated)
}

func TestClosureCaptureTakesOwnership(t *testing.T) {
	// f(base: list[int]) -> None: g = lambda x: base[x]
	f := fn("f",
		[]*ir.Param{param("base", &types.PyList{ElemType: types.PyInt})},
		types.PyNone,
		&ir.Assign{
			Targets: []ir.Expr{ident("g")},
			Value: &ir.Lambda{
				Params: []string{"x"},
				Body:   &ir.Index{Base: ident("base"), Index: ident("x")},
			},
		},
	)

	result := Analyze(f, types.NewMapper())

	strategy, ok := result.StrategyFor("base")
	require.True(t, ok)
	assert.Equal(t, StratOwned, strategy.Kind)
	assert.True(t, result.Params[0].Usage.CapturedByClosure)
}

func TestStoredParamGetsSharedOwnership(t *testing.T) {
	// f(acc: list[int], item: list[int]) -> None: acc.append(item)
	listType := &types.PyList{ElemType: types.PyInt}
	f := fn("f",
		[]*ir.Param{param("acc", listType), param("item", listType)},
		types.PyNone,
		&ir.ExprStmt{Expr: &ir.MethodCall{
			Receiver: ident("acc"),
			Method:   "append",
			Args:     []ir.Expr{ident("item")},
		}},
	)

	result := Analyze(f, types.NewMapper())

	accStrategy, ok := result.StrategyFor("acc")
	require.True(t, ok)
	assert.Equal(t, StratBorrowMut, accStrategy.Kind)

	itemStrategy, ok := result.StrategyFor("item")
	require.True(t, ok)
	assert.Equal(t, StratShared, itemStrategy.Kind)
}

func TestIndexAssignmentMutatesBase(t *testing.T) {
	// bump(counts: dict[str, int], key: str) -> None:
	//     counts[key] = counts.get(key, 0) + 1
	f := fn("bump",
		[]*ir.Param{
			param("counts", &types.PyDict{KeyType: types.PyStr, ValueType: types.PyInt}),
			param("key", types.PyStr),
		},
		types.PyNone,
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
	)

	result := Analyze(f, types.NewMapper())

	countsStrategy, ok := result.StrategyFor("counts")
	require.True(t, ok)
	assert.Equal(t, StratBorrowMut, countsStrategy.Kind)

	keyStrategy, ok := result.StrategyFor("key")
	require.True(t, ok)
	assert.Equal(t, StratBorrow, keyStrategy.Kind)
}

func TestLoopUseIsRecorded(t *testing.T) {
	// f(items: list[int]) -> None: for x in items: print(x)
	f := fn("f",
		[]*ir.Param{param("items", &types.PyList{ElemType: types.PyInt})},
		types.PyNone,
		&ir.ForEach{
			Target: ident("x"),
			Iter:   ident("items"),
			Body: []ir.Stmt{
				&ir.ExprStmt{Expr: &ir.Call{Func: ident("print"), Args: []ir.Expr{ident("x")}}},
			},
		},
	)

	result := Analyze(f, types.NewMapper())

	usage := result.Params[0].Usage
	assert.True(t, usage.IsRead)
	assert.False(t, usage.IsMutated)

	strategy, ok := result.StrategyFor("items")
	require.True(t, ok)
	assert.Equal(t, StratBorrow, strategy.Kind)
}

func TestUnusedParamIsOwned(t *testing.T) {
	f := fn("f",
		[]*ir.Param{param("unused", &types.PyList{ElemType: types.PyInt})},
		types.PyNone,
		&ir.Pass{},
	)

	result := Analyze(f, types.NewMapper())

	strategy, ok := result.StrategyFor("unused")
	require.True(t, ok)
	assert.Equal(t, StratOwned, strategy.Kind)
}

func TestShadowedNameIsNotTracked(t *testing.T) {
	// f(x: list[int]) -> list[int]: return [x * 2 for x in range(3)]
	f := fn("f",
		[]*ir.Param{param("x", &types.PyList{ElemType: types.PyInt})},
		&types.PyList{ElemType: types.PyInt},
		&ir.Return{Value: &ir.Comprehension{
			Kind: ir.CompList,
			Elem: &ir.Binary{Op: ir.OpMul, Lhs: ident("x"), Rhs: intLit(2)},
			Clauses: []ir.CompClause{{
				Target: ident("x"),
				Iter:   &ir.Call{Func: ident("range"), Args: []ir.Expr{intLit(3)}},
			}},
		}},
	)

	result := Analyze(f, types.NewMapper())

	usage := result.Params[0].Usage
	assert.False(t, usage.IsRead)
	assert.False(t, usage.EscapesViaReturn)
}
