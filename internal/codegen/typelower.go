package codegen

import (
	"github.com/elematic/zena-sub002/internal/types"
	"github.com/elematic/zena-sub002/internal/wasm"
)

// valType lowers a TypeUniverse Type to the WASM value type(s) it occupies on
// the stack/in a local/in a struct field. Classes, interfaces, strings,
// arrays, boxed tuples, and reference-admitting unions are all nullable
// struct references; primitives map to their matching numeric wasm type.
func (g *Generator) valType(t types.Type) wasm.ValType {
	switch v := t.(type) {
	case *types.Primitive:
		return g.primitiveValType(v)
	case *types.StringT:
		return wasm.ValAnyRef
	case *types.Class:
		return wasm.ValAnyRef
	case *types.Interface:
		return wasm.ValAnyRef
	case *types.Array:
		return wasm.ValAnyRef
	case *types.Tuple:
		return wasm.ValAnyRef
	case *types.UnboxedTuple:
		// Callers that need multi-value results must special-case
		// UnboxedTuple before calling valType; as a single value type it has
		// no direct representation.
		return wasm.ValAnyRef
	case *types.Record:
		return wasm.ValAnyRef
	case *types.Union:
		return wasm.ValAnyRef
	case *types.TypeAlias:
		return g.valType(v.Target)
	case *types.Enum:
		return wasm.ValI32
	case *types.Function:
		return wasm.ValAnyRef
	case *types.TypeParameter:
		// Erased generics: an unresolved type parameter is only reachable
		// through a boxed reference at runtime.
		return wasm.ValAnyRef
	default:
		return wasm.ValAnyRef
	}
}

func (g *Generator) primitiveValType(p *types.Primitive) wasm.ValType {
	switch p.Name {
	case types.I32:
		return wasm.ValI32
	case types.I64:
		return wasm.ValI64
	case types.F32:
		return wasm.ValF32
	case types.F64:
		return wasm.ValF64
	case types.Bool:
		return wasm.ValI32
	case types.Void, types.Never:
		return wasm.ValI32 // never emitted as a value; placeholder for signature slots
	default:
		return wasm.ValAnyRef
	}
}

// isRefType reports whether t's wasm representation is a GC reference
// (struct/array/anyref), as opposed to a raw numeric value.
func (g *Generator) isRefType(t types.Type) bool {
	switch v := t.(type) {
	case *types.Primitive:
		return v.Name != types.I32 && v.Name != types.I64 && v.Name != types.F32 && v.Name != types.F64 && v.Name != types.Bool
	case *types.Enum:
		return false
	default:
		return true
	}
}

// resultTypes lowers t to the WASM result-type list for a function/block:
// an UnboxedTuple widens to multiple results (spec.md 4.5.4); everything
// else is exactly one result, except Void which yields zero.
func (g *Generator) resultTypes(t types.Type) []wasm.ValType {
	if ut, ok := t.(*types.UnboxedTuple); ok {
		out := make([]wasm.ValType, len(ut.Elements))
		for i, el := range ut.Elements {
			out[i] = g.valType(el)
		}
		return out
	}
	if p, ok := t.(*types.Primitive); ok && p.Name == types.Void {
		return nil
	}
	return []wasm.ValType{g.valType(t)}
}
