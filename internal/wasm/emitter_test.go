package wasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitEmptyModuleHasOnlyHeader(t *testing.T) {
	e := NewEmitter()
	out := e.Emit()
	assert.Equal(t, append(append([]byte{}, wasmMagic...), wasmVersion...), out)
}

func TestAddTypeDedupsIdenticalSignatures(t *testing.T) {
	e := NewEmitter()
	a := e.AddType([]ValType{ValI32, ValI32}, []ValType{ValI32}, AddTypeOptions{})
	b := e.AddType([]ValType{ValI32, ValI32}, []ValType{ValI32}, AddTypeOptions{})
	assert.Equal(t, a, b)
}

func TestAddFunctionAndCodeRoundTripThroughTypeAccessors(t *testing.T) {
	e := NewEmitter()
	ti := e.AddType([]ValType{ValI32}, []ValType{ValI32}, AddTypeOptions{})
	fi := e.AddFunction(ti)
	e.AddCode(fi, []ValType{ValI32, ValI32, ValF64}, []byte{opEnd})

	assert.Equal(t, []ValType{ValI32}, e.GetFunctionTypeParams(ti))
	assert.Equal(t, []ValType{ValI32}, e.GetFunctionTypeResults(ti))

	out := e.Emit()
	assert.NotEmpty(t, out)
}

func TestCompactLocalsCoalescesAdjacentRuns(t *testing.T) {
	groups := compactLocals([]ValType{ValI32, ValI32, ValF64, ValI32})
	require.Len(t, groups, 3)
	assert.Equal(t, localGroup{count: 2, vtype: ValI32}, groups[0])
	assert.Equal(t, localGroup{count: 1, vtype: ValF64}, groups[1])
	assert.Equal(t, localGroup{count: 1, vtype: ValI32}, groups[2])
}

func TestReserveTypeThenDefineStructTypeAllowsMutualRecursion(t *testing.T) {
	e := NewEmitter()
	nodeIdx := e.ReserveType()
	listIdx := e.ReserveType()

	e.DefineStructType(nodeIdx, []StructField{
		{typ: ValI32, mutable: false},
		{typ: ValRefNull, refIdx: listIdx, mutable: false},
	}, -1)
	e.DefineStructType(listIdx, []StructField{
		{typ: ValRefNull, refIdx: nodeIdx, mutable: true},
	}, -1)

	assert.Equal(t, ValI32, e.GetStructFieldType(nodeIdx, 0))
	assert.Equal(t, ValRefNull, e.GetStructFieldType(listIdx, 0))
}

func TestDefineStructTypeTwiceIsFatal(t *testing.T) {
	e := NewEmitter()
	idx := e.ReserveType()
	e.DefineStructType(idx, []StructField{{typ: ValI32}}, -1)
	assert.Panics(t, func() {
		e.DefineStructType(idx, []StructField{{typ: ValI64}}, -1)
	})
}

func TestAddArrayTypeReadBack(t *testing.T) {
	e := NewEmitter()
	idx := e.AddArrayType(ValI32, true)
	assert.Equal(t, ValI32, e.GetArrayElementType(idx))
}

func TestReadingFunctionTypeOffStructTypeIsFatal(t *testing.T) {
	e := NewEmitter()
	idx := e.AddStructType([]StructField{{typ: ValI32}}, -1)
	assert.Panics(t, func() {
		e.GetFunctionTypeParams(idx)
	})
}

func TestReadingStructFieldOffFunctionTypeIsFatal(t *testing.T) {
	e := NewEmitter()
	idx := e.AddType([]ValType{ValI32}, []ValType{ValI32}, AddTypeOptions{})
	assert.Panics(t, func() {
		e.GetStructFieldType(idx, 0)
	})
}

func TestGetFunctionTypeParamsOutOfRangeIsFatal(t *testing.T) {
	e := NewEmitter()
	assert.Panics(t, func() {
		e.GetFunctionTypeParams(42)
	})
}

func TestImportOccupiesFunctionIndexSpaceBeforeDefinedFunctions(t *testing.T) {
	e := NewEmitter()
	ti := e.AddType(nil, nil, AddTypeOptions{})
	importIdx := e.AddImport("env", "log", ExportFunc, ti)
	definedIdx := e.AddFunction(ti)
	assert.Equal(t, 0, importIdx)
	assert.Equal(t, 1, definedIdx)
}

func TestEmitProducesTypeAndFunctionAndCodeSections(t *testing.T) {
	e := NewEmitter()
	ti := e.AddType([]ValType{}, []ValType{ValI32}, AddTypeOptions{})
	fi := e.AddFunction(ti)
	e.AddCode(fi, nil, []byte{opI32Const, 0x2a, opEnd})
	e.AddExport("answer", ExportFunc, fi)

	out := e.Emit()
	require.True(t, len(out) > 8)

	sectionIDs := []byte{}
	i := 8 // past magic+version
	for i < len(out) {
		id := out[i]
		sectionIDs = append(sectionIDs, id)
		i++
		length, n, err := DecodeUint32(&sliceByteReader{out[i:]})
		require.NoError(t, err)
		i += int(n) + int(length)
	}
	assert.Equal(t, []byte{sectionType, sectionFunction, sectionExport, sectionCode}, sectionIDs)
}

// sliceByteReader adapts a byte slice to io.ByteReader, solely for this
// test's section-walking helper.
type sliceByteReader struct{ b []byte }

func (s *sliceByteReader) ReadByte() (byte, error) {
	b := s.b[0]
	s.b = s.b[1:]
	return b, nil
}
