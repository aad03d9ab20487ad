package types

import (
	"fmt"
	"strings"

	"pyrus/util"
)

// Type represents a Rust data type produced by the type mapper.
type Type interface {
	// Returns whether this type is equal to the other type.  This does not
	// account for inner types/type unwrapping: it should only be called within
	// methods of type instances.
	equals(other Type) bool

	// Returns the Rust source representation of this type.
	Repr() string
}

// Equals returns whether two types are structurally equal.
func Equals(a, b Type) bool {
	return a.equals(b)
}

// -----------------------------------------------------------------------------

// PrimitiveType represents a primitive Rust type.  This must be one of the
// enumerated primitive type values below.
type PrimitiveType int

// Enumeration of the different primitive types.
const (
	PrimTypeUnit = PrimitiveType(iota)
	PrimTypeBool
	PrimTypeI8
	PrimTypeI16
	PrimTypeI32
	PrimTypeI64
	PrimTypeISize
	PrimTypeU8
	PrimTypeU16
	PrimTypeU32
	PrimTypeU64
	PrimTypeUSize
	PrimTypeF32
	PrimTypeF64
)

func (pt PrimitiveType) equals(other Type) bool {
	if opt, ok := other.(PrimitiveType); ok {
		return pt == opt
	}

	return false
}

func (pt PrimitiveType) Repr() string {
	switch pt {
	case PrimTypeUnit:
		return "()"
	case PrimTypeBool:
		return "bool"
	case PrimTypeI8:
		return "i8"
	case PrimTypeI16:
		return "i16"
	case PrimTypeI32:
		return "i32"
	case PrimTypeI64:
		return "i64"
	case PrimTypeISize:
		return "isize"
	case PrimTypeU8:
		return "u8"
	case PrimTypeU16:
		return "u16"
	case PrimTypeU32:
		return "u32"
	case PrimTypeU64:
		return "u64"
	case PrimTypeUSize:
		return "usize"
	case PrimTypeF32:
		return "f32"
	default:
		return "f64"
	}
}

// IsIntegral returns whether this primitive is an integral type.
func (pt PrimitiveType) IsIntegral() bool {
	return PrimTypeI8 <= pt && pt <= PrimTypeUSize
}

// IsFloating returns whether this primitive type is a floating-point type.
func (pt PrimitiveType) IsFloating() bool {
	return pt == PrimTypeF32 || pt == PrimTypeF64
}

// IsSigned returns whether this primitive type is a signed integral type.
func (pt PrimitiveType) IsSigned() bool {
	return PrimTypeI8 <= pt && pt <= PrimTypeISize
}

// -----------------------------------------------------------------------------

// StringType represents the owned Rust `String` type.
type StringType struct{}

func (st StringType) equals(other Type) bool {
	_, ok := other.(StringType)
	return ok
}

func (st StringType) Repr() string {
	return "String"
}

// StrType represents a borrowed Rust `&str` with an optional lifetime.
type StrType struct {
	// The lifetime token without the leading apostrophe.  Empty when elided.
	Lifetime string
}

func (st StrType) equals(other Type) bool {
	if ost, ok := other.(StrType); ok {
		return st.Lifetime == ost.Lifetime
	}

	return false
}

func (st StrType) Repr() string {
	if st.Lifetime == "" {
		return "&str"
	}

	return fmt.Sprintf("&'%s str", st.Lifetime)
}

// CowType represents a clone-on-write string: `Cow<'l, str>`.
type CowType struct {
	Lifetime string
}

func (ct CowType) equals(other Type) bool {
	if oct, ok := other.(CowType); ok {
		return ct.Lifetime == oct.Lifetime
	}

	return false
}

func (ct CowType) Repr() string {
	return fmt.Sprintf("Cow<'%s, str>", ct.Lifetime)
}

// -----------------------------------------------------------------------------

// VecType represents a homogeneous growable sequence: `Vec<T>`.
type VecType struct {
	ElemType Type
}

func (vt *VecType) equals(other Type) bool {
	if ovt, ok := other.(*VecType); ok {
		return Equals(vt.ElemType, ovt.ElemType)
	}

	return false
}

func (vt *VecType) Repr() string {
	return fmt.Sprintf("Vec<%s>", vt.ElemType.Repr())
}

// MapType represents a key-value map: `HashMap<K, V>`.
type MapType struct {
	KeyType, ValueType Type
}

func (mt *MapType) equals(other Type) bool {
	if omt, ok := other.(*MapType); ok {
		return Equals(mt.KeyType, omt.KeyType) && Equals(mt.ValueType, omt.ValueType)
	}

	return false
}

func (mt *MapType) Repr() string {
	return fmt.Sprintf("HashMap<%s, %s>", mt.KeyType.Repr(), mt.ValueType.Repr())
}

// SetType represents a hash set: `HashSet<T>`.
type SetType struct {
	ElemType Type
}

func (st *SetType) equals(other Type) bool {
	if ost, ok := other.(*SetType); ok {
		return Equals(st.ElemType, ost.ElemType)
	}

	return false
}

func (st *SetType) Repr() string {
	return fmt.Sprintf("HashSet<%s>", st.ElemType.Repr())
}

// -----------------------------------------------------------------------------

// OptionType represents an optional value: `Option<T>`.
type OptionType struct {
	ElemType Type
}

func (ot *OptionType) equals(other Type) bool {
	if oot, ok := other.(*OptionType); ok {
		return Equals(ot.ElemType, oot.ElemType)
	}

	return false
}

func (ot *OptionType) Repr() string {
	return fmt.Sprintf("Option<%s>", ot.ElemType.Repr())
}

// ResultType represents a fallible result: `Result<T, E>`.
type ResultType struct {
	OkType, ErrType Type
}

func (rt *ResultType) equals(other Type) bool {
	if ort, ok := other.(*ResultType); ok {
		return Equals(rt.OkType, ort.OkType) && Equals(rt.ErrType, ort.ErrType)
	}

	return false
}

func (rt *ResultType) Repr() string {
	return fmt.Sprintf("Result<%s, %s>", rt.OkType.Repr(), rt.ErrType.Repr())
}

// -----------------------------------------------------------------------------

// TupleType represents an n-tuple of element types.
type TupleType struct {
	ElemTypes []Type
}

func (tt *TupleType) equals(other Type) bool {
	if ott, ok := other.(*TupleType); ok {
		if len(tt.ElemTypes) != len(ott.ElemTypes) {
			return false
		}

		for i, elem := range tt.ElemTypes {
			if !Equals(elem, ott.ElemTypes[i]) {
				return false
			}
		}

		return true
	}

	return false
}

func (tt *TupleType) Repr() string {
	reprs := util.Map(tt.ElemTypes, func(t Type) string { return t.Repr() })

	if len(reprs) == 1 {
		return fmt.Sprintf("(%s,)", reprs[0])
	}

	return fmt.Sprintf("(%s)", strings.Join(reprs, ", "))
}

// -----------------------------------------------------------------------------

// RefType represents a Rust reference: `&T` or `&mut T`.
type RefType struct {
	// Whether the reference is mutable.
	Mutable bool

	// The lifetime token without the leading apostrophe.  Empty when elided.
	Lifetime string

	// The type being referenced.
	ElemType Type
}

func (rt *RefType) equals(other Type) bool {
	if ort, ok := other.(*RefType); ok {
		return rt.Mutable == ort.Mutable && rt.Lifetime == ort.Lifetime &&
			Equals(rt.ElemType, ort.ElemType)
	}

	return false
}

func (rt *RefType) Repr() string {
	sb := strings.Builder{}
	sb.WriteRune('&')

	if rt.Lifetime != "" {
		sb.WriteString("'" + rt.Lifetime + " ")
	}

	if rt.Mutable {
		sb.WriteString("mut ")
	}

	sb.WriteString(rt.ElemType.Repr())
	return sb.String()
}

// -----------------------------------------------------------------------------

// NamedType represents a user-defined or externally named Rust type.
type NamedType struct {
	Name string
}

func (nt *NamedType) equals(other Type) bool {
	if ont, ok := other.(*NamedType); ok {
		return nt.Name == ont.Name
	}

	return false
}

func (nt *NamedType) Repr() string {
	return nt.Name
}

// TypeParamType represents a generic type parameter such as `T`.
type TypeParamType struct {
	Name string
}

func (tp *TypeParamType) equals(other Type) bool {
	if otp, ok := other.(*TypeParamType); ok {
		return tp.Name == otp.Name
	}

	return false
}

func (tp *TypeParamType) Repr() string {
	return tp.Name
}

// -----------------------------------------------------------------------------

// EnumType represents a tagged union emitted for a multi-arm Python union.
type EnumType struct {
	// The generated name of the enum.
	Name string

	// The variants of the enum in declaration order.
	Variants []EnumVariant
}

// EnumVariant is one arm of a generated tagged union.
type EnumVariant struct {
	Name string
	Type Type
}

func (et *EnumType) equals(other Type) bool {
	if oet, ok := other.(*EnumType); ok {
		if et.Name != oet.Name || len(et.Variants) != len(oet.Variants) {
			return false
		}

		for i, v := range et.Variants {
			if v.Name != oet.Variants[i].Name || !Equals(v.Type, oet.Variants[i].Type) {
				return false
			}
		}

		return true
	}

	return false
}

func (et *EnumType) Repr() string {
	return et.Name
}

// -----------------------------------------------------------------------------

// UnknownType is the safe fallback when inference cannot determine a concrete
// type.  The mapper is total: every input maps to some type, and this is the
// type it maps to when nothing better is known.
type UnknownType struct{}

func (ut UnknownType) equals(other Type) bool {
	_, ok := other.(UnknownType)
	return ok
}

func (ut UnknownType) Repr() string {
	return "PyrusValue"
}

// -----------------------------------------------------------------------------

// IsUnknown returns whether the type is the unknown fallback.
func IsUnknown(typ Type) bool {
	_, ok := typ.(UnknownType)
	return ok
}

// IsUnit returns whether the type is the unit type.
func IsUnit(typ Type) bool {
	pt, ok := typ.(PrimitiveType)
	return ok && pt == PrimTypeUnit
}

// IsCopy returns whether values of this type are trivially copyable: passing
// them by value is cheaper than borrowing.
func IsCopy(typ Type) bool {
	switch v := typ.(type) {
	case PrimitiveType:
		return true
	case *TupleType:
		for _, elem := range v.ElemTypes {
			if !IsCopy(elem) {
				return false
			}
		}

		return true
	case *RefType:
		return !v.Mutable
	default:
		return false
	}
}

// IsFloating returns whether the type is a floating-point primitive.
func IsFloating(typ Type) bool {
	pt, ok := typ.(PrimitiveType)
	return ok && pt.IsFloating()
}

// IsInteger returns whether the type is an integral primitive.
func IsInteger(typ Type) bool {
	pt, ok := typ.(PrimitiveType)
	return ok && pt.IsIntegral()
}

// IsString returns whether the type is a text type: String, &str, or Cow.
func IsString(typ Type) bool {
	switch typ.(type) {
	case StringType, StrType, CowType:
		return true
	default:
		return false
	}
}

// IsReference returns whether the type is a borrowed form: a reference, a
// borrowed str, or a Cow.
func IsReference(typ Type) bool {
	switch typ.(type) {
	case *RefType, StrType, CowType:
		return true
	default:
		return false
	}
}

// InnerType unwraps references down to the referenced type.
func InnerType(typ Type) Type {
	for {
		rt, ok := typ.(*RefType)
		if !ok {
			return typ
		}

		typ = rt.ElemType
	}
}
