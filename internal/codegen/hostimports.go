package codegen

import "github.com/elematic/zena-sub002/internal/wasm"

// registerHostImports wires the console import namespace spec.md 6.3
// requires for target=host: console.log_i32/_f32/_f64/_string plus the
// four leveled variants, all from module "console". Registered
// unconditionally for a host build (not gated on whether user code actually
// calls console.*) since this is produced-binary SHAPE the spec mandates.
//
// Strings in this generator are GC arrays, not linear-memory bytes, so
// log_string/the leveled variants import as (anyref) -> void rather than
// the (ptr, len) pair spec.md 6.3 describes loosely for a conventional
// linear-memory host boundary.
func (g *Generator) registerHostImports() {
	voidI32 := g.emit.AddType([]wasm.ValType{wasm.ValI32}, nil, wasm.AddTypeOptions{PreRec: true})
	voidF32 := g.emit.AddType([]wasm.ValType{wasm.ValF32}, nil, wasm.AddTypeOptions{PreRec: true})
	voidF64 := g.emit.AddType([]wasm.ValType{wasm.ValF64}, nil, wasm.AddTypeOptions{PreRec: true})
	voidStr := g.emit.AddType([]wasm.ValType{wasm.ValAnyRef}, nil, wasm.AddTypeOptions{PreRec: true})

	g.emit.AddImport("console", "log_i32", wasm.ExportFunc, voidI32)
	g.emit.AddImport("console", "log_f32", wasm.ExportFunc, voidF32)
	g.emit.AddImport("console", "log_f64", wasm.ExportFunc, voidF64)
	g.emit.AddImport("console", "log_string", wasm.ExportFunc, voidStr)
	for _, level := range []string{"error", "warn", "info", "debug"} {
		g.emit.AddImport("console", level+"_string", wasm.ExportFunc, voidStr)
	}
}

// declareStringAccessors exports the $stringGetLength/$stringGetByte pair
// spec.md 6.3 requires "whenever string values cross the boundary": host
// code cannot read a GC array's bytes directly, so it needs an index-at-a-
// time reader for any string a host build might need to materialize. Called
// once, lazily, only when target=host and at least one string was actually
// materialized (g.stringArrayIdx >= 0) — approximating "crosses the
// boundary" without full data-flow analysis of which values actually reach
// an export or console.*_string call.
func (g *Generator) declareStringAccessors() {
	arrIdx := g.stringArrayType()

	lenType := g.emit.AddType([]wasm.ValType{wasm.ValAnyRef}, []wasm.ValType{wasm.ValI32}, wasm.AddTypeOptions{})
	lenFn := g.emit.AddFunction(lenType)
	var lenBody []byte
	lenBody = append(lenBody, opLocalGet...)
	lenBody = append(lenBody, wasm.EncodeUint32(0)...)
	lenBody = append(lenBody, opRefCast...)
	lenBody = append(lenBody, wasm.EncodeInt32(0)...)
	lenBody = append(lenBody, wasm.EncodeUint32(uint32(arrIdx))...)
	lenBody = append(lenBody, opArrayLen...)
	lenBody = append(lenBody, opEndIns...)
	g.emit.AddCode(lenFn, nil, lenBody)
	g.emit.AddExport("$stringGetLength", wasm.ExportFunc, lenFn)

	byteType := g.emit.AddType([]wasm.ValType{wasm.ValAnyRef, wasm.ValI32}, []wasm.ValType{wasm.ValI32}, wasm.AddTypeOptions{})
	byteFn := g.emit.AddFunction(byteType)
	var byteBody []byte
	byteBody = append(byteBody, opLocalGet...)
	byteBody = append(byteBody, wasm.EncodeUint32(0)...)
	byteBody = append(byteBody, opRefCast...)
	byteBody = append(byteBody, wasm.EncodeInt32(0)...)
	byteBody = append(byteBody, wasm.EncodeUint32(uint32(arrIdx))...)
	byteBody = append(byteBody, opLocalGet...)
	byteBody = append(byteBody, wasm.EncodeUint32(1)...)
	byteBody = append(byteBody, opArrayGet...)
	byteBody = append(byteBody, wasm.EncodeUint32(uint32(arrIdx))...)
	byteBody = append(byteBody, opEndIns...)
	g.emit.AddCode(byteFn, nil, byteBody)
	g.emit.AddExport("$stringGetByte", wasm.ExportFunc, byteFn)
}
