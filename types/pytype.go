package types

import (
	"strings"

	"pyrus/util"
)

// PyType represents a Python-side semantic type: either a declared annotation
// extracted by the bridge or a type inferred from usage.  It is the input
// domain of the type mapper.
type PyType interface {
	// Returns the Python source representation of this type.
	PyRepr() string
}

// PyPrimitive represents a builtin scalar Python type.  This must be one of
// the enumerated primitive kinds below.
type PyPrimitive int

const (
	PyInt = PyPrimitive(iota)
	PyFloat
	PyStr
	PyBool
	PyBytes
	PyNone
)

func (pp PyPrimitive) PyRepr() string {
	switch pp {
	case PyInt:
		return "int"
	case PyFloat:
		return "float"
	case PyStr:
		return "str"
	case PyBool:
		return "bool"
	case PyBytes:
		return "bytes"
	default:
		return "None"
	}
}

// PyList represents `list[T]`.
type PyList struct {
	ElemType PyType
}

func (pl *PyList) PyRepr() string {
	return "list[" + pl.ElemType.PyRepr() + "]"
}

// PyDict represents `dict[K, V]`.
type PyDict struct {
	KeyType, ValueType PyType
}

func (pd *PyDict) PyRepr() string {
	return "dict[" + pd.KeyType.PyRepr() + ", " + pd.ValueType.PyRepr() + "]"
}

// PySet represents `set[T]` or `frozenset[T]`.
type PySet struct {
	ElemType PyType
}

func (ps *PySet) PyRepr() string {
	return "set[" + ps.ElemType.PyRepr() + "]"
}

// PyTuple represents `tuple[T1, T2, ...]`.
type PyTuple struct {
	ElemTypes []PyType
}

func (pt *PyTuple) PyRepr() string {
	reprs := util.Map(pt.ElemTypes, func(t PyType) string { return t.PyRepr() })
	return "tuple[" + strings.Join(reprs, ", ") + "]"
}

// PyOptional represents `Optional[T]` or `T | None`.
type PyOptional struct {
	ElemType PyType
}

func (po *PyOptional) PyRepr() string {
	return "Optional[" + po.ElemType.PyRepr() + "]"
}

// PyUnion represents a multi-arm union `A | B | C`.  Two-armed unions where
// exactly one arm is None are normalized to PyOptional by the bridge, never
// represented here.
type PyUnion struct {
	Arms []PyType
}

func (pu *PyUnion) PyRepr() string {
	reprs := util.Map(pu.Arms, func(t PyType) string { return t.PyRepr() })
	return strings.Join(reprs, " | ")
}

// PyGenerator represents `Generator[Y, S, R]` collapsed to its yield type.
type PyGenerator struct {
	YieldType PyType
}

func (pg *PyGenerator) PyRepr() string {
	return "Generator[" + pg.YieldType.PyRepr() + "]"
}

// PyCallable represents `Callable[[...], R]`.
type PyCallable struct {
	ParamTypes []PyType
	ReturnType PyType
}

func (pc *PyCallable) PyRepr() string {
	reprs := util.Map(pc.ParamTypes, func(t PyType) string { return t.PyRepr() })
	return "Callable[[" + strings.Join(reprs, ", ") + "], " + pc.ReturnType.PyRepr() + "]"
}

// PyClass represents a user-defined or otherwise named Python type.
type PyClass struct {
	Name string
}

func (pc *PyClass) PyRepr() string {
	return pc.Name
}

// PyUnknown is the Python-side unknown type: no annotation and no successful
// inference.
type PyUnknown struct{}

func (pu PyUnknown) PyRepr() string {
	return "Any"
}

// -----------------------------------------------------------------------------

// PyEquals returns whether two Python-side types are structurally equal.
func PyEquals(a, b PyType) bool {
	switch av := a.(type) {
	case PyPrimitive:
		bv, ok := b.(PyPrimitive)
		return ok && av == bv
	case *PyList:
		bv, ok := b.(*PyList)
		return ok && PyEquals(av.ElemType, bv.ElemType)
	case *PyDict:
		bv, ok := b.(*PyDict)
		return ok && PyEquals(av.KeyType, bv.KeyType) && PyEquals(av.ValueType, bv.ValueType)
	case *PySet:
		bv, ok := b.(*PySet)
		return ok && PyEquals(av.ElemType, bv.ElemType)
	case *PyTuple:
		bv, ok := b.(*PyTuple)
		if !ok || len(av.ElemTypes) != len(bv.ElemTypes) {
			return false
		}

		for i, elem := range av.ElemTypes {
			if !PyEquals(elem, bv.ElemTypes[i]) {
				return false
			}
		}

		return true
	case *PyOptional:
		bv, ok := b.(*PyOptional)
		return ok && PyEquals(av.ElemType, bv.ElemType)
	case *PyUnion:
		bv, ok := b.(*PyUnion)
		if !ok || len(av.Arms) != len(bv.Arms) {
			return false
		}

		for i, arm := range av.Arms {
			if !PyEquals(arm, bv.Arms[i]) {
				return false
			}
		}

		return true
	case *PyGenerator:
		bv, ok := b.(*PyGenerator)
		return ok && PyEquals(av.YieldType, bv.YieldType)
	case *PyCallable:
		bv, ok := b.(*PyCallable)
		if !ok || len(av.ParamTypes) != len(bv.ParamTypes) {
			return false
		}

		for i, param := range av.ParamTypes {
			if !PyEquals(param, bv.ParamTypes[i]) {
				return false
			}
		}

		return PyEquals(av.ReturnType, bv.ReturnType)
	case *PyClass:
		bv, ok := b.(*PyClass)
		return ok && av.Name == bv.Name
	case PyUnknown:
		_, ok := b.(PyUnknown)
		return ok
	default:
		return false
	}
}

// IsPyString returns whether the Python-side type is `str`.
func IsPyString(pt PyType) bool {
	pp, ok := pt.(PyPrimitive)
	return ok && pp == PyStr
}
