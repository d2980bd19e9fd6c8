package codegen

import (
	"fmt"

	"github.com/elematic/zena-sub002/internal/types"
	"github.com/elematic/zena-sub002/internal/wasm"
)

// boxTables caches the one-field "box" struct type generated per primitive
// wasm kind (spec.md 4.5.3: distinguished nominally so `is boolean`
// disambiguates from `is i32`). Interface-upcast vtable globals are cached
// separately, in interfaceLayout.classVtables.
type boxTables struct {
	g          *Generator
	boxTypeOf  map[wasm.ValType]int
}

func newBoxTables(g *Generator) *boxTables {
	return &boxTables{g: g, boxTypeOf: make(map[wasm.ValType]int)}
}

// boxTypeFor returns the struct type index of the one-field box wrapping vt,
// creating it on first use.
func (b *boxTables) boxTypeFor(vt wasm.ValType) int {
	if idx, ok := b.boxTypeOf[vt]; ok {
		return idx
	}
	idx := b.g.emit.AddStructType([]wasm.StructField{
		wasm.StructFieldOf(vt, false),
	}, -1)
	b.boxTypeOf[vt] = idx
	return idx
}

// adaptToInterface returns code that constructs an interface wrapper struct
// for the value produced by valueBytes (which it emits first), known
// statically to be an instance of cls, per
// spec.md 4.5.3's interface-upcast rule: `struct.new $IfaceWrapper (value,
// classVtableGlobal)`.
func (g *Generator) adaptToInterface(iface *types.Interface, cls *types.Class, valueBytes []byte) []byte {
	ifaceLayout := g.layout.interfaces[iface]
	if ifaceLayout == nil {
		panic(fmt.Sprintf("codegen: interface %s has no reserved layout", iface.String()))
	}
	vtGlobal := g.classVtableForInterface(ifaceLayout, cls)

	var out []byte
	out = append(out, valueBytes...)
	out = append(out, opGlobalGet...)
	out = append(out, wasm.EncodeUint32(uint32(vtGlobal))...)
	out = append(out, opStructNew...)
	out = append(out, wasm.EncodeUint32(uint32(ifaceLayout.wrapperIdx))...)
	return out
}

// classVtableForInterface builds (once, cached) the vtable global of
// ifaceLayout's shape populated with cls's concrete method function
// references, for the class->interface upcast.
func (g *Generator) classVtableForInterface(ifaceLayout *interfaceLayout, cls *types.Class) int {
	if idx, ok := ifaceLayout.classVtables[cls]; ok {
		return idx
	}
	clsLayout := g.layout.ensureClassLayout(cls)

	var initExpr []byte
	for _, name := range ifaceLayout.methodOrder {
		fnIdx, ok := clsLayout.methodFn[name]
		if !ok {
			panic(fmt.Sprintf("codegen: class %s missing method %s required by interface vtable", cls.String(), name))
		}
		initExpr = append(initExpr, opRefFunc...)
		initExpr = append(initExpr, wasm.EncodeUint32(uint32(fnIdx))...)
	}
	initExpr = append(initExpr, opStructNew...)
	initExpr = append(initExpr, wasm.EncodeUint32(uint32(ifaceLayout.vtableTypeIdx))...)
	initExpr = append(initExpr, byte(0x0b)) // end

	idx := g.emit.AddGlobal(wasm.ValAnyRef, false, initExpr)
	ifaceLayout.classVtables[cls] = idx
	return idx
}

// boxPrimitive returns code that emits producer and wraps the primitive
// value it yields in its box struct, for a value crossing into a union or
// interface/anyref target that admits references.
func (g *Generator) boxPrimitive(vt wasm.ValType, producer []byte) []byte {
	boxIdx := g.boxTypes.boxTypeFor(vt)
	var out []byte
	out = append(out, producer...)
	out = append(out, opStructNew...)
	out = append(out, wasm.EncodeUint32(uint32(boxIdx))...)
	return out
}
