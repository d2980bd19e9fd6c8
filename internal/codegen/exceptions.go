package codegen

import (
	"github.com/elematic/zena-sub002/internal/types"
	"github.com/elematic/zena-sub002/internal/wasm"
)

// exceptionTags caches the WASM tag index used to throw/catch a value of a
// given static type, per spec.md 4.5.5's throw/try lowering: `throw`
// constructs an exception-tag payload and the exnref-proposal `throw`
// instruction references a tag declared with the payload's single-value
// function type.
type exceptionTags struct {
	g      *Generator
	byType map[types.Type]int
}

func newExceptionTags(g *Generator) *exceptionTags {
	return &exceptionTags{g: g, byType: make(map[types.Type]int)}
}

func (g *Generator) exceptionTagFor(t types.Type) int {
	if g.excTags == nil {
		g.excTags = newExceptionTags(g)
	}
	if idx, ok := g.excTags.byType[t]; ok {
		return idx
	}
	typeIdx := g.emit.AddType([]wasm.ValType{g.valType(t)}, nil, wasm.AddTypeOptions{})
	idx := g.emit.AddTag(typeIdx)
	g.excTags.byType[t] = idx
	return idx
}
