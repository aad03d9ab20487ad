package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrimitiveMapping(t *testing.T) {
	m := NewMapper()

	assert.Equal(t, "i32", m.Map(PyInt).Repr())
	assert.Equal(t, "f64", m.Map(PyFloat).Repr())
	assert.Equal(t, "String", m.Map(PyStr).Repr())
	assert.Equal(t, "bool", m.Map(PyBool).Repr())
	assert.Equal(t, "Vec<u8>", m.Map(PyBytes).Repr())
}

func TestWidthPolicyChangesIntegers(t *testing.T) {
	m := &Mapper{IntWidth: Width64, Strings: StringAlwaysOwned}

	assert.Equal(t, "i64", m.Map(PyInt).Repr())
	assert.Equal(t, "Vec<i64>", m.Map(&PyList{ElemType: PyInt}).Repr())
}

func TestContainerMapping(t *testing.T) {
	m := NewMapper()

	assert.Equal(t, "Vec<i32>", m.Map(&PyList{ElemType: PyInt}).Repr())
	assert.Equal(t, "HashMap<String, i32>",
		m.Map(&PyDict{KeyType: PyStr, ValueType: PyInt}).Repr())
	assert.Equal(t, "HashSet<String>", m.Map(&PySet{ElemType: PyStr}).Repr())
	assert.Equal(t, "Option<f64>", m.Map(&PyOptional{ElemType: PyFloat}).Repr())
}

func TestGeneratorMapsToBoxedIterator(t *testing.T) {
	m := NewMapper()

	assert.Equal(t, "Box<dyn Iterator<Item = i32>>",
		m.Map(&PyGenerator{YieldType: PyInt}).Repr())
}

func TestExceptionNamesEraseToBoxedError(t *testing.T) {
	m := NewMapper()

	for _, name := range []string{"ValueError", "KeyError", "Exception", "ZeroDivisionError"} {
		assert.Equal(t, "Box<dyn std::error::Error>", m.Map(&PyClass{Name: name}).Repr())
	}

	assert.Equal(t, "std::io::Error", m.Map(&PyClass{Name: "FileNotFoundError"}).Repr())
}

func TestUserClassKeepsItsName(t *testing.T) {
	m := NewMapper()

	assert.Equal(t, "Point", m.Map(&PyClass{Name: "Point"}).Repr())
}

func TestUnknownFallsBackToDynamicValue(t *testing.T) {
	m := NewMapper()

	assert.Equal(t, "PyrusValue", m.Map(PyUnknown{}).Repr())
	assert.Equal(t, "PyrusValue", m.Map(&PyClass{Name: "Any"}).Repr())
}

func TestStringParamFollowsOwnershipPolicy(t *testing.T) {
	owned := &Mapper{IntWidth: Width32, Strings: StringAlwaysOwned}
	borrow := &Mapper{IntWidth: Width32, Strings: StringBorrowWhenPossible}

	assert.Equal(t, "String", owned.MapParam(PyStr, true).Repr())
	assert.Equal(t, "&str", borrow.MapParam(PyStr, true).Repr())
	assert.Equal(t, "String", borrow.MapParam(PyStr, false).Repr())
}

func TestMappingIsDeterministic(t *testing.T) {
	m := NewMapper()
	pt := &PyDict{KeyType: PyStr, ValueType: &PyList{ElemType: PyInt}}

	first := m.Map(pt).Repr()
	second := m.Map(pt).Repr()

	assert.Equal(t, first, second)
	assert.Equal(t, "HashMap<String, Vec<i32>>", first)
}

func TestUnionVariantNames(t *testing.T) {
	m := NewMapper()

	et, ok := m.Map(&PyUnion{Arms: []PyType{PyInt, PyStr}}).(*EnumType)
	assert.True(t, ok)
	assert.Equal(t, "UnionIntStr", et.Name)
	assert.Len(t, et.Variants, 2)
	assert.Equal(t, "Int", et.Variants[0].Name)
	assert.Equal(t, "Str", et.Variants[1].Name)
}
