package types

import (
	"fmt"
	"strings"

	"pyrus/util"
)

// IntWidth is the numeric-width policy for mapping Python's unbounded `int`.
type IntWidth int

const (
	// Width32 maps `int` to i32.
	Width32 = IntWidth(iota)

	// Width64 maps `int` to i64.
	Width64
)

// StringStrategy is the text-ownership policy for mapping Python's `str`.
type StringStrategy int

const (
	// StringAlwaysOwned maps `str` to owned String everywhere.  Safe, simple.
	StringAlwaysOwned = StringStrategy(iota)

	// StringBorrowWhenPossible maps read-only `str` parameters to &str.  The
	// ownership analyzer decides per parameter; the mapper still produces
	// String for all other positions.
	StringBorrowWhenPossible
)

// Mapper maps Python-side types to Rust types.  The mapping is deterministic
// and total: every input maps to some Rust type, falling back to the unknown
// type rather than failing.  Numeric width and text ownership are
// configuration knobs fixed at construction, never per-call decisions, so the
// same input always maps identically.
type Mapper struct {
	// The numeric width policy.
	IntWidth IntWidth

	// The text ownership policy.
	Strings StringStrategy
}

// NewMapper creates a type mapper with the default policies: 32-bit integers
// and always-owned strings.
func NewMapper() *Mapper {
	return &Mapper{IntWidth: Width32, Strings: StringAlwaysOwned}
}

// Map maps one Python-side type to its Rust representation.
func (m *Mapper) Map(pt PyType) Type {
	switch v := pt.(type) {
	case PyPrimitive:
		return m.mapPrimitive(v)
	case *PyList:
		return &VecType{ElemType: m.Map(v.ElemType)}
	case *PyDict:
		return &MapType{KeyType: m.Map(v.KeyType), ValueType: m.Map(v.ValueType)}
	case *PySet:
		return &SetType{ElemType: m.Map(v.ElemType)}
	case *PyTuple:
		return &TupleType{ElemTypes: util.Map(v.ElemTypes, m.Map)}
	case *PyOptional:
		return &OptionType{ElemType: m.Map(v.ElemType)}
	case *PyUnion:
		return m.mapUnion(v)
	case *PyGenerator:
		// Generators surface as boxed iterators over the yield type.
		return &NamedType{Name: fmt.Sprintf("Box<dyn Iterator<Item = %s>>", m.Map(v.YieldType).Repr())}
	case *PyCallable:
		return m.mapCallable(v)
	case *PyClass:
		return m.mapClass(v)
	case PyUnknown:
		return UnknownType{}
	default:
		return UnknownType{}
	}
}

// mapPrimitive maps a builtin scalar type.
func (m *Mapper) mapPrimitive(pp PyPrimitive) Type {
	switch pp {
	case PyInt:
		if m.IntWidth == Width64 {
			return PrimTypeI64
		}

		return PrimTypeI32
	case PyFloat:
		return PrimTypeF64
	case PyStr:
		return StringType{}
	case PyBool:
		return PrimTypeBool
	case PyBytes:
		return &VecType{ElemType: PrimTypeU8}
	default:
		return PrimTypeUnit
	}
}

// mapUnion maps a multi-arm union to a tagged variant type.  Two-armed
// exactly-one-is-None unions never reach here: the bridge normalizes them to
// PyOptional since Option is the idiomatic Rust representation, and the
// mapper handles that case above.
func (m *Mapper) mapUnion(pu *PyUnion) Type {
	variants := make([]EnumVariant, len(pu.Arms))
	names := make([]string, len(pu.Arms))

	for i, arm := range pu.Arms {
		mapped := m.Map(arm)
		variants[i] = EnumVariant{Name: variantName(arm), Type: mapped}
		names[i] = variants[i].Name
	}

	return &EnumType{
		Name:     "Union" + strings.Join(names, ""),
		Variants: variants,
	}
}

// mapCallable maps a callable annotation to an `impl Fn` type.
func (m *Mapper) mapCallable(pc *PyCallable) Type {
	params := util.Map(pc.ParamTypes, func(t PyType) string { return m.Map(t).Repr() })

	ret := m.Map(pc.ReturnType)
	if IsUnit(ret) {
		return &NamedType{Name: fmt.Sprintf("impl Fn(%s)", strings.Join(params, ", "))}
	}

	return &NamedType{Name: fmt.Sprintf("impl Fn(%s) -> %s", strings.Join(params, ", "), ret.Repr())}
}

// mapClass maps a named Python type.  Well-known standard library names get
// their canonical Rust equivalents; everything else is treated as a
// user-defined type of the same name.
func (m *Mapper) mapClass(pc *PyClass) Type {
	switch pc.Name {
	case "Any", "object":
		return UnknownType{}
	case "Path", "PurePath":
		return &NamedType{Name: "std::path::PathBuf"}
	case "deque", "Deque":
		return &NamedType{Name: fmt.Sprintf("std::collections::VecDeque<%s>", UnknownType{}.Repr())}
	case "OSError", "IOError", "FileNotFoundError", "PermissionError":
		return &NamedType{Name: "std::io::Error"}
	case "Exception", "BaseException", "ValueError", "TypeError", "KeyError",
		"IndexError", "RuntimeError", "AttributeError", "NotImplementedError",
		"AssertionError", "StopIteration", "ZeroDivisionError", "OverflowError",
		"ArithmeticError":
		return &NamedType{Name: "Box<dyn std::error::Error>"}
	default:
		// Single uppercase letters are treated as type parameters.
		if len(pc.Name) == 1 && pc.Name[0] >= 'A' && pc.Name[0] <= 'Z' {
			return &TypeParamType{Name: pc.Name}
		}

		return &NamedType{Name: pc.Name}
	}
}

// -----------------------------------------------------------------------------

// MapParam maps a parameter type under the configured text-ownership policy.
// With borrow-when-possible strings, a read-only str parameter maps to &str;
// the caller supplies whether the parameter is only ever read.
func (m *Mapper) MapParam(pt PyType, readOnly bool) Type {
	if m.Strings == StringBorrowWhenPossible && IsPyString(pt) && readOnly {
		return StrType{}
	}

	return m.Map(pt)
}

// ErrType returns the uniform error type used for fallible functions.  The
// transpiler always uses the type-erased wrapper, never a per-function closed
// enum of failure kinds.
func (m *Mapper) ErrType() Type {
	return &NamedType{Name: "Box<dyn std::error::Error>"}
}

// variantName derives the variant identifier for one arm of a tagged union.
func variantName(pt PyType) string {
	switch v := pt.(type) {
	case PyPrimitive:
		switch v {
		case PyInt:
			return "Int"
		case PyFloat:
			return "Float"
		case PyStr:
			return "Str"
		case PyBool:
			return "Bool"
		case PyBytes:
			return "Bytes"
		default:
			return "None"
		}
	case *PyList:
		return "List" + variantName(v.ElemType)
	case *PyDict:
		return "Dict"
	case *PySet:
		return "Set" + variantName(v.ElemType)
	case *PyTuple:
		return "Tuple"
	case *PyClass:
		return v.Name
	default:
		return "Value"
	}
}
