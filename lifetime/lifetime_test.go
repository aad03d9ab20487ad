package lifetime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyrus/ir"
	"pyrus/ownership"
	"pyrus/types"
)

func ident(name string) *ir.Identifier {
	return &ir.Identifier{Name: name}
}

func param(name string, pt types.PyType) *ir.Param {
	return &ir.Param{Name: name, PyType: pt}
}

func analyze(t *testing.T, fn *ir.Function) *Result {
	t.Helper()

	mapper := types.NewMapper()
	own := ownership.Analyze(fn, mapper)

	return NewInference().Analyze(fn, mapper, own)
}

func TestNoReferencesNoLifetimes(t *testing.T) {
	// add(a: int, b: int) -> int: return a + b
	fn := &ir.Function{
		Name:       "add",
		Params:     []*ir.Param{param("a", types.PyInt), param("b", types.PyInt)},
		ReturnType: types.PyInt,
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{Op: ir.OpAdd, Lhs: ident("a"), Rhs: ident("b")}},
		},
	}

	result := analyze(t, fn)

	assert.Empty(t, result.LifetimeParams)
	assert.Empty(t, result.ReturnLifetime)

	for _, pl := range result.Params {
		assert.False(t, pl.Borrowed, "param %s", pl.Name)
		assert.Empty(t, pl.Lifetime, "param %s", pl.Name)
	}
}

func TestSingleReferenceIsElided(t *testing.T) {
	// total(items: list[int]) -> int: return sum(items)
	fn := &ir.Function{
		Name:       "total",
		Params:     []*ir.Param{param("items", &types.PyList{ElemType: types.PyInt})},
		ReturnType: types.PyInt,
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Call{Func: ident("sum"), Args: []ir.Expr{ident("items")}}},
		},
	}

	result := analyze(t, fn)

	pl, ok := result.ParamFor("items")
	require.True(t, ok)
	assert.True(t, pl.Borrowed)
	assert.False(t, pl.Mutable)
	assert.Empty(t, pl.Lifetime)
	assert.Empty(t, result.LifetimeParams)
}

func TestMutableBorrowIsElided(t *testing.T) {
	// push(items: list[int]) -> None: items.append(1)
	fn := &ir.Function{
		Name:       "push",
		Params:     []*ir.Param{param("items", &types.PyList{ElemType: types.PyInt})},
		ReturnType: types.PyNone,
		Body: []ir.Stmt{
			&ir.ExprStmt{Expr: &ir.MethodCall{
				Receiver: ident("items"),
				Method:   "append",
				Args:     []ir.Expr{&ir.Literal{Kind: ir.LitInt, IntVal: 1}},
			}},
		},
	}

	result := analyze(t, fn)

	pl, ok := result.ParamFor("items")
	require.True(t, ok)
	assert.True(t, pl.Borrowed)
	assert.True(t, pl.Mutable)
	assert.Empty(t, pl.Lifetime)
	assert.Empty(t, result.LifetimeParams)
}

func TestMultipleBorrowsWithOwnedReturnElide(t *testing.T) {
	// overlap(a: list[int], b: list[int]) -> int: return len(a) + len(b)
	listType := &types.PyList{ElemType: types.PyInt}
	fn := &ir.Function{
		Name:       "overlap",
		Params:     []*ir.Param{param("a", listType), param("b", listType)},
		ReturnType: types.PyInt,
		Body: []ir.Stmt{
			&ir.Return{Value: &ir.Binary{
				Op:  ir.OpAdd,
				Lhs: &ir.Call{Func: ident("len"), Args: []ir.Expr{ident("a")}},
				Rhs: &ir.Call{Func: ident("len"), Args: []ir.Expr{ident("b")}},
			}},
		},
	}

	result := analyze(t, fn)

	assert.Empty(t, result.LifetimeParams)
	assert.Empty(t, result.ReturnLifetime)
}

func TestEscapingStringKeepsCowLifetime(t *testing.T) {
	// passthrough(s: str) -> str: return s
	fn := &ir.Function{
		Name:       "passthrough",
		Params:     []*ir.Param{param("s", types.PyStr)},
		ReturnType: types.PyStr,
		Body:       []ir.Stmt{&ir.Return{Value: ident("s")}},
	}

	mapper := types.NewMapper()
	own := ownership.Analyze(fn, mapper)

	strategy, ok := own.StrategyFor("s")
	require.True(t, ok)
	require.Equal(t, ownership.StratCow, strategy.Kind)

	result := NewInference().Analyze(fn, mapper, own)

	// A single reference-carrying input elides its token.
	pl, ok := result.ParamFor("s")
	require.True(t, ok)
	assert.Empty(t, pl.Lifetime)
	assert.Empty(t, result.LifetimeParams)
}

func TestStoredBorrowIsPromotedToOwned(t *testing.T) {
	own := &ownership.Result{
		Params: []ownership.ParamStrategy{{
			Name:     "item",
			Strategy: ownership.Strategy{Kind: ownership.StratBorrow},
			Usage:    &ownership.UsagePattern{IsRead: true, IsStored: true},
		}},
	}

	fn := &ir.Function{
		Name:       "keep",
		Params:     []*ir.Param{param("item", &types.PyList{ElemType: types.PyInt})},
		ReturnType: types.PyNone,
	}

	result := NewInference().Analyze(fn, types.NewMapper(), own)

	strategy, ok := own.StrategyFor("item")
	require.True(t, ok)
	assert.Equal(t, ownership.StratOwned, strategy.Kind)

	pl, ok := result.ParamFor("item")
	require.True(t, ok)
	assert.False(t, pl.Borrowed)
}

func TestEscapingBorrowWithOwnedReturnIsPromoted(t *testing.T) {
	own := &ownership.Result{
		Params: []ownership.ParamStrategy{{
			Name:     "xs",
			Strategy: ownership.Strategy{Kind: ownership.StratBorrow},
			Usage:    &ownership.UsagePattern{IsRead: true, EscapesViaReturn: true},
		}},
	}

	fn := &ir.Function{
		Name:       "f",
		Params:     []*ir.Param{param("xs", &types.PyList{ElemType: types.PyInt})},
		ReturnType: &types.PyList{ElemType: types.PyInt},
	}

	result := NewInference().Analyze(fn, types.NewMapper(), own)

	strategy, ok := own.StrategyFor("xs")
	require.True(t, ok)
	assert.Equal(t, ownership.StratOwned, strategy.Kind)

	pl, ok := result.ParamFor("xs")
	require.True(t, ok)
	assert.False(t, pl.Borrowed)
}

func TestLifetimeTokenSequence(t *testing.T) {
	inf := NewInference()

	assert.Equal(t, "a", inf.nextLifetime())
	assert.Equal(t, "b", inf.nextLifetime())
	assert.Equal(t, "c", inf.nextLifetime())
	assert.Equal(t, "l1", inf.nextLifetime())
	assert.Equal(t, "l2", inf.nextLifetime())
}
