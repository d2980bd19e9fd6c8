// Package wasm implements the BinaryEmitter: a low-level writer for the WASM
// binary format, extended with the GC, reference-types, and exception-handling
// (tag section) proposals. CodeGenerator is the only intended caller.
package wasm

import "fmt"

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}
var wasmVersion = []byte{0x01, 0x00, 0x00, 0x00}

// Section IDs, as defined by the WASM binary format.
const (
	sectionCustom    = 0
	sectionType      = 1
	sectionImport    = 2
	sectionFunction  = 3
	sectionTable     = 4
	sectionMemory    = 5
	sectionGlobal    = 6
	sectionExport    = 7
	sectionStart     = 8
	sectionElement   = 9
	sectionCode      = 10
	sectionData      = 11
	sectionDataCount = 12
	sectionTag       = 13
)

// ValType is a WASM value type byte, including the GC/ref-type additions.
type ValType byte

const (
	ValI32     ValType = 0x7f
	ValI64     ValType = 0x7e
	ValF32     ValType = 0x7d
	ValF64     ValType = 0x7c
	ValV128    ValType = 0x7b
	ValFuncRef ValType = 0x70
	ValExnRef  ValType = 0x69
	ValAnyRef  ValType = 0x6e
	ValEqRef   ValType = 0x6d
	ValStructRef ValType = 0x6b
	ValArrayRef  ValType = 0x6a
	ValNullRef   ValType = 0x71
	ValRef       ValType = 0x64 // (ref $t), followed by a type index
	ValRefNull   ValType = 0x63 // (ref null $t), followed by a type index
)

// ExportKind identifies what an export-section entry refers to.
type ExportKind byte

const (
	ExportFunc   ExportKind = 0x00
	ExportTable  ExportKind = 0x01
	ExportMemory ExportKind = 0x02
	ExportGlobal ExportKind = 0x03
	ExportTag    ExportKind = 0x04
)

const (
	opEnd      = 0x0b
	opI32Const = 0x41
	opI64Const = 0x42
	opF32Const = 0x43
	opF64Const = 0x44
	opRefNull  = 0xd0
)

// funcType is a function type section entry: an ordered parameter list and
// an ordered result list.
type funcType struct {
	params  []ValType
	results []ValType
}

// StructField is one field of a GC struct type.
type StructField struct {
	typ     ValType
	refIdx  int // type index, valid when typ is ValRef/ValRefNull
	mutable bool
}

// StructFieldOf builds a field of a non-ref-indexed value type (a numeric
// type, or a nullable reference with no further heap-type refinement).
func StructFieldOf(typ ValType, mutable bool) StructField {
	return StructField{typ: typ, mutable: mutable}
}

// StructFieldRef builds a `(ref $idx)`/`(ref null $idx)` field pointing at
// another type index, e.g. a struct field typed as a sibling class.
func StructFieldRef(typ ValType, refIdx int, mutable bool) StructField {
	return StructField{typ: typ, refIdx: refIdx, mutable: mutable}
}

// compositeType is a GC struct or array type section entry.
type compositeType struct {
	isArray  bool
	fields   []StructField // len 1 for an array's element
	super    int           // -1 when there is no declared supertype
	isFinal  bool
	reserved bool // true once reserveType allocated this slot but it is not yet defined
}

type importEntry struct {
	module, name string
	kind         ExportKind
	typeIndex    int
}

type globalEntry struct {
	typ     ValType
	mutable bool
	init    []byte
}

type exportEntry struct {
	name  string
	kind  ExportKind
	index int
}

type codeEntry struct {
	funcIndex int
	locals    []ValType
	body      []byte
}

type dataSegment struct {
	bytes []byte
}

// Emitter assembles a WASM binary module section by section. Types are
// tracked in two groups: pre-rec function types (addType with preRec=true,
// used for host import signatures) and the single rec group that every
// reserved/struct/array/non-preRec-function type belongs to, per the GC
// proposal's module-encoding rules.
type Emitter struct {
	preRecTypes []funcType
	recTypes    []recTypeEntry

	imports  []importEntry
	funcs    []int // function section: type index per defined function
	codes    []codeEntry
	globals  []globalEntry
	tags     []int // type index per tag
	exports  []exportEntry
	dataSegs []dataSegment
	elements []int // declared function indices (element-section, declarative)

	startFunc int // -1 when unset

	typeKey map[string]int // signature key -> external type index, for addType dedup
}

// recTypeEntry is one member of the single rec group: either a function type
// or a GC composite (struct/array) type.
type recTypeEntry struct {
	isFunc bool
	fn     funcType
	comp   compositeType
}

// NewEmitter returns an Emitter ready to accumulate module contents.
func NewEmitter() *Emitter {
	return &Emitter{
		startFunc: -1,
		typeKey:   map[string]int{},
	}
}

// --- Type section ---

// AddTypeOptions configures addType.
type AddTypeOptions struct {
	PreRec bool
}

// AddType registers a function type and returns its external (module-wide)
// index. When opts.PreRec is set, the type is emitted before the rec block,
// for host import signatures that must not participate in recursive
// supertype references.
func (e *Emitter) AddType(params, results []ValType, opts AddTypeOptions) int {
	ft := funcType{params: append([]ValType(nil), params...), results: append([]ValType(nil), results...)}
	key := funcSigKey(opts.PreRec, ft)
	if idx, ok := e.typeKey[key]; ok {
		return idx
	}
	var idx int
	if opts.PreRec {
		idx = len(e.preRecTypes)
		e.preRecTypes = append(e.preRecTypes, ft)
	} else {
		idx = len(e.preRecTypes) + len(e.recTypes)
		e.recTypes = append(e.recTypes, recTypeEntry{isFunc: true, fn: ft})
	}
	e.typeKey[key] = idx
	return idx
}

func funcSigKey(preRec bool, ft funcType) string {
	key := "fn:"
	if preRec {
		key = "pre:"
	}
	for _, p := range ft.params {
		key += fmt.Sprintf("%x,", p)
	}
	key += "|"
	for _, r := range ft.results {
		key += fmt.Sprintf("%x,", r)
	}
	return key
}

// ReserveType allocates a type index in the rec group whose definition is
// deferred, for mutually recursive struct types that must reference each
// other's indices before those indices are themselves defined.
func (e *Emitter) ReserveType() int {
	idx := len(e.preRecTypes) + len(e.recTypes)
	e.recTypes = append(e.recTypes, recTypeEntry{comp: compositeType{super: -1, reserved: true}})
	return idx
}

// DefineStructType fills in a type index previously allocated by ReserveType.
// super is -1 when the struct declares no supertype.
func (e *Emitter) DefineStructType(index int, fields []StructField, super int) {
	e.mustDefineReserved(index)
	e.recTypes[e.localRecIndex(index)] = recTypeEntry{comp: compositeType{
		fields: append([]StructField(nil), fields...),
		super:  super,
	}}
}

// AddStructType immediately registers a struct type and returns its index.
func (e *Emitter) AddStructType(fields []StructField, super int) int {
	idx := len(e.preRecTypes) + len(e.recTypes)
	e.recTypes = append(e.recTypes, recTypeEntry{comp: compositeType{
		fields: append([]StructField(nil), fields...),
		super:  super,
	}})
	return idx
}

// AddArrayType immediately registers an array type and returns its index.
func (e *Emitter) AddArrayType(element ValType, mutable bool) int {
	idx := len(e.preRecTypes) + len(e.recTypes)
	e.recTypes = append(e.recTypes, recTypeEntry{comp: compositeType{
		isArray: true,
		fields:  []StructField{{typ: element, mutable: mutable}},
		super:   -1,
	}})
	return idx
}

func (e *Emitter) localRecIndex(externalIndex int) int {
	i := externalIndex - len(e.preRecTypes)
	if i < 0 || i >= len(e.recTypes) {
		panic(fmt.Sprintf("wasm: type index %d out of range", externalIndex))
	}
	return i
}

func (e *Emitter) mustDefineReserved(index int) {
	i := e.localRecIndex(index)
	if !e.recTypes[i].comp.reserved && (e.recTypes[i].isFunc || e.recTypes[i].comp.fields != nil) {
		panic(fmt.Sprintf("wasm: type index %d already defined", index))
	}
}

// --- Function / code ---

// AddFunction registers a defined function's type and returns its function
// index. Imported functions occupy the function index space first, so the
// returned index accounts for len(imports) of kind ExportFunc.
func (e *Emitter) AddFunction(typeIndex int) int {
	e.funcs = append(e.funcs, typeIndex)
	return e.importFuncCount() + len(e.funcs) - 1
}

func (e *Emitter) importFuncCount() int {
	n := 0
	for _, im := range e.imports {
		if im.kind == ExportFunc {
			n++
		}
	}
	return n
}

// AddCode attaches a body to a function index previously returned by
// AddFunction. Locals are run-length compressed: adjacent identical types
// coalesce into a single (count, type) pair in the encoded output.
func (e *Emitter) AddCode(index int, locals []ValType, body []byte) {
	e.codes = append(e.codes, codeEntry{funcIndex: index, locals: locals, body: body})
}

// --- Imports / globals / tags / data / exports ---

// AddImport registers a host import and returns its index within its kind's
// index space (e.g. the function index, for kind ExportFunc).
func (e *Emitter) AddImport(module, name string, kind ExportKind, typeIndex int) int {
	idx := 0
	for _, im := range e.imports {
		if im.kind == kind {
			idx++
		}
	}
	e.imports = append(e.imports, importEntry{module: module, name: name, kind: kind, typeIndex: typeIndex})
	return idx
}

// AddGlobal registers a global and returns its index. initExpr is the raw
// encoded constant-expression body (ending in opEnd), e.g. an i32.const.
func (e *Emitter) AddGlobal(typ ValType, mutable bool, initExpr []byte) int {
	e.globals = append(e.globals, globalEntry{typ: typ, mutable: mutable, init: initExpr})
	return len(e.globals) - 1
}

// AddTag registers a tag (exception signature) and returns its index.
func (e *Emitter) AddTag(typeIndex int) int {
	e.tags = append(e.tags, typeIndex)
	return len(e.tags) - 1
}

// AddData appends a passive data segment and returns its index.
func (e *Emitter) AddData(bytes []byte) int {
	e.dataSegs = append(e.dataSegs, dataSegment{bytes: append([]byte(nil), bytes...)})
	return len(e.dataSegs) - 1
}

// AddExport registers an export-section entry.
func (e *Emitter) AddExport(name string, kind ExportKind, index int) {
	e.exports = append(e.exports, exportEntry{name: name, kind: kind, index: index})
}

// DeclareFunction records a function index for the declarative element
// segment, so it may be referenced as a first-class value (ref.func) without
// being callable through a table.
func (e *Emitter) DeclareFunction(index int) {
	e.elements = append(e.elements, index)
}

// SetStart designates the module's start function.
func (e *Emitter) SetStart(index int) {
	e.startFunc = index
}

// --- Read-back ---

// GetFunctionTypeParams returns the parameter list of a function type.
func (e *Emitter) GetFunctionTypeParams(typeIndex int) []ValType {
	ft := e.mustFuncType(typeIndex)
	return ft.params
}

// GetFunctionTypeResults returns the result list of a function type.
func (e *Emitter) GetFunctionTypeResults(typeIndex int) []ValType {
	ft := e.mustFuncType(typeIndex)
	return ft.results
}

func (e *Emitter) mustFuncType(typeIndex int) funcType {
	if typeIndex < len(e.preRecTypes) {
		return e.preRecTypes[typeIndex]
	}
	entry := e.recTypes[e.localRecIndex(typeIndex)]
	if !entry.isFunc {
		panic(fmt.Sprintf("wasm: type index %d is not a function type", typeIndex))
	}
	return entry.fn
}

// GetStructFieldType returns the value type of a struct type's field.
func (e *Emitter) GetStructFieldType(typeIndex, fieldIndex int) ValType {
	comp := e.mustCompType(typeIndex)
	if comp.isArray || fieldIndex < 0 || fieldIndex >= len(comp.fields) {
		panic(fmt.Sprintf("wasm: type index %d has no field %d", typeIndex, fieldIndex))
	}
	return comp.fields[fieldIndex].typ
}

// GetArrayElementType returns the element type of an array type.
func (e *Emitter) GetArrayElementType(typeIndex int) ValType {
	comp := e.mustCompType(typeIndex)
	if !comp.isArray {
		panic(fmt.Sprintf("wasm: type index %d is not an array type", typeIndex))
	}
	return comp.fields[0].typ
}

func (e *Emitter) mustCompType(typeIndex int) compositeType {
	entry := e.recTypes[e.localRecIndex(typeIndex)]
	if entry.isFunc {
		panic(fmt.Sprintf("wasm: type index %d is a function type, not a struct/array type", typeIndex))
	}
	return entry.comp
}
