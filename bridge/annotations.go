package bridge

import (
	"pyrus/ast"
	"pyrus/types"
	"pyrus/util"
)

// parseAnnotation extracts the Python-side type named by an annotation
// expression.  A nil annotation and any unrecognized form both yield the
// unknown type: annotation extraction is total.
func (b *Bridge) parseAnnotation(annotation ast.Expr) types.PyType {
	if annotation == nil {
		return types.PyUnknown{}
	}

	switch v := annotation.(type) {
	case *ast.Name:
		return b.namedType(v.ID)
	case *ast.Constant:
		// `-> None` arrives as the None constant.
		if v.Kind == ast.ConstNone {
			return types.PyNone
		}

		return types.PyUnknown{}
	case *ast.Attribute:
		// Qualified names: typing.Optional, collections.deque, etc.  The
		// unqualified name carries the meaning.
		return b.namedType(v.Attr)
	case *ast.Subscript:
		return b.parseGenericAnnotation(v)
	case *ast.BinOp:
		// PEP 604 unions: `A | B | None`.
		if v.Op == "|" {
			return b.normalizeUnion(b.collectUnionArms(v))
		}

		return types.PyUnknown{}
	default:
		return types.PyUnknown{}
	}
}

// namedType resolves a bare annotation name.
func (b *Bridge) namedType(name string) types.PyType {
	switch name {
	case "int":
		return types.PyInt
	case "float":
		return types.PyFloat
	case "str":
		return types.PyStr
	case "bool":
		return types.PyBool
	case "bytes", "bytearray":
		return types.PyBytes
	case "None":
		return types.PyNone
	case "list", "List":
		return &types.PyList{ElemType: types.PyUnknown{}}
	case "dict", "Dict":
		return &types.PyDict{KeyType: types.PyUnknown{}, ValueType: types.PyUnknown{}}
	case "set", "Set", "frozenset", "FrozenSet":
		return &types.PySet{ElemType: types.PyUnknown{}}
	case "tuple", "Tuple":
		return &types.PyTuple{}
	case "Any", "object":
		return types.PyUnknown{}
	default:
		return &types.PyClass{Name: name}
	}
}

// parseGenericAnnotation resolves a subscripted annotation such as
// `list[int]`, `dict[str, int]`, `Optional[T]`, or `Union[A, B]`.
func (b *Bridge) parseGenericAnnotation(sub *ast.Subscript) types.PyType {
	base, ok := annotationName(sub.Value)
	if !ok {
		return types.PyUnknown{}
	}

	args := annotationArgs(sub.Index)

	switch base {
	case "list", "List", "Sequence", "Iterable", "Iterator":
		if len(args) != 1 {
			return &types.PyList{ElemType: types.PyUnknown{}}
		}

		return &types.PyList{ElemType: b.parseAnnotation(args[0])}
	case "dict", "Dict", "Mapping", "MutableMapping":
		if len(args) != 2 {
			return &types.PyDict{KeyType: types.PyUnknown{}, ValueType: types.PyUnknown{}}
		}

		return &types.PyDict{
			KeyType:   b.parseAnnotation(args[0]),
			ValueType: b.parseAnnotation(args[1]),
		}
	case "set", "Set", "frozenset", "FrozenSet":
		if len(args) != 1 {
			return &types.PySet{ElemType: types.PyUnknown{}}
		}

		return &types.PySet{ElemType: b.parseAnnotation(args[0])}
	case "tuple", "Tuple":
		return &types.PyTuple{ElemTypes: util.Map(args, b.parseAnnotation)}
	case "Optional":
		if len(args) != 1 {
			return types.PyUnknown{}
		}

		return &types.PyOptional{ElemType: b.parseAnnotation(args[0])}
	case "Union":
		return b.normalizeUnion(util.Map(args, b.parseAnnotation))
	case "Generator", "AsyncGenerator":
		if len(args) == 0 {
			return &types.PyGenerator{YieldType: types.PyUnknown{}}
		}

		return &types.PyGenerator{YieldType: b.parseAnnotation(args[0])}
	case "Callable":
		return b.parseCallableAnnotation(args)
	case "Final":
		// Final[T] is just T to the transpiler.
		if len(args) == 1 {
			return b.parseAnnotation(args[0])
		}

		return types.PyUnknown{}
	default:
		return &types.PyClass{Name: base}
	}
}

// parseCallableAnnotation resolves `Callable[[P...], R]`.
func (b *Bridge) parseCallableAnnotation(args []ast.Expr) types.PyType {
	if len(args) != 2 {
		return types.PyUnknown{}
	}

	params, ok := args[0].(*ast.List)
	if !ok {
		return types.PyUnknown{}
	}

	return &types.PyCallable{
		ParamTypes: util.Map(params.Elems, b.parseAnnotation),
		ReturnType: b.parseAnnotation(args[1]),
	}
}

// -----------------------------------------------------------------------------

// collectUnionArms flattens a PEP 604 `A | B | C` chain into its arms.
func (b *Bridge) collectUnionArms(expr ast.Expr) []types.PyType {
	if bin, ok := expr.(*ast.BinOp); ok && bin.Op == "|" {
		return append(b.collectUnionArms(bin.Left), b.collectUnionArms(bin.Right)...)
	}

	return []types.PyType{b.parseAnnotation(expr)}
}

// normalizeUnion reduces a union arm list.  A two-armed union where exactly
// one arm is None becomes an optional: Option is the idiomatic Rust
// representation for that shape, not a general tagged union.
func (b *Bridge) normalizeUnion(arms []types.PyType) types.PyType {
	if len(arms) == 0 {
		return types.PyUnknown{}
	}

	if len(arms) == 1 {
		return arms[0]
	}

	if len(arms) == 2 {
		first := arms[0] == types.PyNone
		second := arms[1] == types.PyNone

		if first != second {
			elem := arms[0]
			if first {
				elem = arms[1]
			}

			return &types.PyOptional{ElemType: elem}
		}
	}

	return &types.PyUnion{Arms: arms}
}

// -----------------------------------------------------------------------------

// annotationName extracts the base name of an annotation expression.
func annotationName(expr ast.Expr) (string, bool) {
	switch v := expr.(type) {
	case *ast.Name:
		return v.ID, true
	case *ast.Attribute:
		return v.Attr, true
	default:
		return "", false
	}
}

// annotationArgs splits a subscript index into annotation arguments: a tuple
// index yields its elements, anything else is a single argument.
func annotationArgs(index ast.Expr) []ast.Expr {
	if tuple, ok := index.(*ast.Tuple); ok {
		return tuple.Elems
	}

	return []ast.Expr{index}
}

