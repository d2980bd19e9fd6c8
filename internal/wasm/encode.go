package wasm

// localGroup is one run of adjacent identical-type locals, compressed into
// a single (count, valtype) pair rather than one declarator per local.
type localGroup struct {
	count uint32
	vtype ValType
}

func compactLocals(locals []ValType) []localGroup {
	var groups []localGroup
	for _, v := range locals {
		if n := len(groups); n > 0 && groups[n-1].vtype == v {
			groups[n-1].count++
			continue
		}
		groups = append(groups, localGroup{count: 1, vtype: v})
	}
	return groups
}

func encodeString(s string) []byte {
	out := EncodeUint32(uint32(len(s)))
	return append(out, []byte(s)...)
}

// encodeVector prefixes contents with its element count, the shape every
// WASM section vector uses.
func encodeVector(count int, contents []byte) []byte {
	out := EncodeUint32(uint32(count))
	return append(out, contents...)
}

// encodeSection wraps contents with a section id and LEB128 byte length.
func encodeSection(id byte, contents []byte) []byte {
	out := []byte{id}
	out = append(out, EncodeUint32(uint32(len(contents)))...)
	return append(out, contents...)
}

// Emit assembles the complete binary module from every section registered
// through the Emitter's operations.
func (e *Emitter) Emit() []byte {
	var out []byte
	out = append(out, wasmMagic...)
	out = append(out, wasmVersion...)

	if sec := e.emitTypeSection(); sec != nil {
		out = append(out, sec...)
	}
	if sec := e.emitImportSection(); sec != nil {
		out = append(out, sec...)
	}
	if sec := e.emitFunctionSection(); sec != nil {
		out = append(out, sec...)
	}
	if sec := e.emitTagSection(); sec != nil {
		out = append(out, sec...)
	}
	if sec := e.emitGlobalSection(); sec != nil {
		out = append(out, sec...)
	}
	if sec := e.emitExportSection(); sec != nil {
		out = append(out, sec...)
	}
	if e.startFunc >= 0 {
		out = append(out, encodeSection(sectionStart, EncodeUint32(uint32(e.startFunc)))...)
	}
	if sec := e.emitElementSection(); sec != nil {
		out = append(out, sec...)
	}
	if len(e.dataSegs) > 0 {
		out = append(out, encodeSection(sectionDataCount, EncodeUint32(uint32(len(e.dataSegs))))...)
	}
	if sec := e.emitCodeSection(); sec != nil {
		out = append(out, sec...)
	}
	if sec := e.emitDataSection(); sec != nil {
		out = append(out, sec...)
	}
	return out
}

func encodeValType(v ValType) []byte { return []byte{byte(v)} }

func encodeFuncType(ft funcType) []byte {
	contents := []byte{0x60}
	contents = append(contents, EncodeUint32(uint32(len(ft.params)))...)
	for _, p := range ft.params {
		contents = append(contents, byte(p))
	}
	contents = append(contents, EncodeUint32(uint32(len(ft.results)))...)
	for _, r := range ft.results {
		contents = append(contents, byte(r))
	}
	return contents
}

// encodeFieldType encodes a GC struct/array storage type: value type
// (followed by its heap-type index immediate, for ref/ref-null fields) plus
// a trailing mutability flag, per the struct-type field-type encoding.
func encodeFieldType(f StructField) []byte {
	out := encodeValType(f.typ)
	if f.typ == ValRef || f.typ == ValRefNull {
		out = append(out, EncodeInt32(int32(f.refIdx))...)
	}
	if f.mutable {
		return append(out, 0x01)
	}
	return append(out, 0x00)
}

// encodeCompositeType encodes a struct or array type body (without its
// sub/sub-final wrapper).
func encodeCompositeType(c compositeType) []byte {
	if c.isArray {
		out := []byte{0x5e}
		return append(out, encodeFieldType(c.fields[0])...)
	}
	out := []byte{0x5f}
	out = append(out, EncodeUint32(uint32(len(c.fields)))...)
	for _, f := range c.fields {
		out = append(out, encodeFieldType(f)...)
	}
	return out
}

// encodeSubWrapper wraps a struct/array body in `sub` (0x50, extensible) or
// `sub final` (0x4f) with an explicit supertype index when one is declared.
func encodeSubWrapper(c compositeType) []byte {
	body := encodeCompositeType(c)
	if c.super < 0 {
		if c.isFinal {
			return append([]byte{0x4f, 0x00}, body...)
		}
		return append([]byte{0x50, 0x00}, body...)
	}
	tag := byte(0x50)
	if c.isFinal {
		tag = 0x4f
	}
	out := []byte{tag}
	out = append(out, EncodeUint32(1)...)
	out = append(out, EncodeUint32(uint32(c.super))...)
	return append(out, body...)
}

func (e *Emitter) emitTypeSection() []byte {
	if len(e.preRecTypes) == 0 && len(e.recTypes) == 0 {
		return nil
	}
	var contents []byte
	count := 0
	for _, ft := range e.preRecTypes {
		contents = append(contents, encodeFuncType(ft)...)
		count++
	}
	if len(e.recTypes) == 1 {
		// A singleton rec group carries no recursive references by
		// definition, so it is written as a plain standalone type rather
		// than wrapped in an explicit `rec` block (spec.md 8 scenario 1:
		// the simplest module has "1 standalone func type and 0 rec
		// blocks").
		entry := e.recTypes[0]
		if entry.isFunc {
			contents = append(contents, encodeFuncType(entry.fn)...)
		} else {
			contents = append(contents, encodeSubWrapper(entry.comp)...)
		}
		count++
	} else if len(e.recTypes) > 1 {
		var recBody []byte
		for _, entry := range e.recTypes {
			if entry.isFunc {
				recBody = append(recBody, encodeFuncType(entry.fn)...)
			} else {
				recBody = append(recBody, encodeSubWrapper(entry.comp)...)
			}
		}
		rec := []byte{0x4e}
		rec = append(rec, EncodeUint32(uint32(len(e.recTypes)))...)
		rec = append(rec, recBody...)
		contents = append(contents, rec...)
		count++
	}
	body := encodeVector(count, contents)
	return encodeSection(sectionType, body)
}

func (e *Emitter) emitImportSection() []byte {
	if len(e.imports) == 0 {
		return nil
	}
	var contents []byte
	for _, im := range e.imports {
		contents = append(contents, encodeString(im.module)...)
		contents = append(contents, encodeString(im.name)...)
		contents = append(contents, byte(im.kind))
		contents = append(contents, EncodeUint32(uint32(im.typeIndex))...)
	}
	body := encodeVector(len(e.imports), contents)
	return encodeSection(sectionImport, body)
}

func (e *Emitter) emitFunctionSection() []byte {
	if len(e.funcs) == 0 {
		return nil
	}
	var contents []byte
	for _, tidx := range e.funcs {
		contents = append(contents, EncodeUint32(uint32(tidx))...)
	}
	body := encodeVector(len(e.funcs), contents)
	return encodeSection(sectionFunction, body)
}

func (e *Emitter) emitTagSection() []byte {
	if len(e.tags) == 0 {
		return nil
	}
	var contents []byte
	for _, tidx := range e.tags {
		contents = append(contents, 0x00) // exception kind, the only kind defined
		contents = append(contents, EncodeUint32(uint32(tidx))...)
	}
	body := encodeVector(len(e.tags), contents)
	return encodeSection(sectionTag, body)
}

func (e *Emitter) emitGlobalSection() []byte {
	if len(e.globals) == 0 {
		return nil
	}
	var contents []byte
	for _, g := range e.globals {
		contents = append(contents, byte(g.typ))
		if g.mutable {
			contents = append(contents, 0x01)
		} else {
			contents = append(contents, 0x00)
		}
		contents = append(contents, g.init...)
	}
	body := encodeVector(len(e.globals), contents)
	return encodeSection(sectionGlobal, body)
}

func (e *Emitter) emitExportSection() []byte {
	if len(e.exports) == 0 {
		return nil
	}
	var contents []byte
	for _, exp := range e.exports {
		contents = append(contents, encodeString(exp.name)...)
		contents = append(contents, byte(exp.kind))
		contents = append(contents, EncodeUint32(uint32(exp.index))...)
	}
	body := encodeVector(len(e.exports), contents)
	return encodeSection(sectionExport, body)
}

// emitElementSection encodes declared (non-table) function references as a
// single declarative segment (kind 3: flag byte 0x03), the shape used for
// first-class function values that never populate a call_indirect table.
func (e *Emitter) emitElementSection() []byte {
	if len(e.elements) == 0 {
		return nil
	}
	contents := []byte{0x03, 0x00} // declarative segment, elemkind funcref
	contents = append(contents, EncodeUint32(uint32(len(e.elements)))...)
	for _, idx := range e.elements {
		contents = append(contents, EncodeUint32(uint32(idx))...)
	}
	body := encodeVector(1, contents)
	return encodeSection(sectionElement, body)
}

func (e *Emitter) emitCodeSection() []byte {
	if len(e.codes) == 0 {
		return nil
	}
	var contents []byte
	for _, c := range e.codes {
		groups := compactLocals(c.locals)
		var fn []byte
		fn = append(fn, EncodeUint32(uint32(len(groups)))...)
		for _, g := range groups {
			fn = append(fn, EncodeUint32(g.count)...)
			fn = append(fn, byte(g.vtype))
		}
		fn = append(fn, c.body...)
		contents = append(contents, EncodeUint32(uint32(len(fn)))...)
		contents = append(contents, fn...)
	}
	body := encodeVector(len(e.codes), contents)
	return encodeSection(sectionCode, body)
}

func (e *Emitter) emitDataSection() []byte {
	if len(e.dataSegs) == 0 {
		return nil
	}
	var contents []byte
	for _, seg := range e.dataSegs {
		contents = append(contents, 0x01) // passive segment
		contents = append(contents, EncodeUint32(uint32(len(seg.bytes)))...)
		contents = append(contents, seg.bytes...)
	}
	body := encodeVector(len(e.dataSegs), contents)
	return encodeSection(sectionData, body)
}
