package codegen

import (
	"fmt"

	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/errors"
	"github.com/elematic/zena-sub002/internal/types"
	"github.com/elematic/zena-sub002/internal/wasm"
)

// localScope is one frame of the lexical local-variable stack lowering
// maintains while emitting a function body, mirroring the checker's own
// scope stack (internal/checker/scope.go) but mapping names to wasm local
// indices instead of SymbolInfo.
type localScope struct {
	names map[string]int
	outer *localScope
}

func newLocalScope(outer *localScope) *localScope {
	return &localScope{names: make(map[string]int), outer: outer}
}

func (s *localScope) define(name string, idx int) { s.names[name] = idx }

func (s *localScope) lookup(name string) (int, bool) {
	for cur := s; cur != nil; cur = cur.outer {
		if idx, ok := cur.names[name]; ok {
			return idx, true
		}
	}
	return 0, false
}

// loopTarget records how to compute the relative `br` depth `break`/
// `continue` resolve to inside the nested block/loop structure spec.md
// 4.5.5 describes for while/for: bodyDepth is fb.blockDepth at the moment
// the loop body starts executing, and breakOffset/continueOffset are the
// fixed extra nesting between the body and the loop's break/continue
// targets (per spec.md 4.5.5: while is break=1/continue=0, for's extra body
// wrapper makes it break=2/continue=0).
type loopTarget struct {
	bodyDepth      int
	breakOffset    int
	continueOffset int
}

// funcBody accumulates one function's locals and instruction stream while
// statements/expressions are lowered.
type funcBody struct {
	g      *Generator
	decl   *ast.FuncDecl
	owner  *types.Class
	subst  map[*types.TypeParameter]types.Type
	sig    *types.Function

	scope      *localScope
	nextLocal  int
	extraLocal []wasm.ValType // locals beyond the parameter count

	code []byte

	loopStack []loopTarget
	// blockDepth tracks how many structured blocks/loops/ifs are currently
	// open, so break/continue can compute their relative br depth.
	blockDepth int
}

func (g *Generator) declareFunction(decl *ast.FuncDecl, owner *types.Class, subst map[*types.TypeParameter]types.Type) int {
	sig := g.signatureOf(decl, owner, subst)
	if sig == nil {
		sig = &types.Function{ReturnType: g.universe.Primitive(types.Void)}
	}

	params := make([]wasm.ValType, 0, len(sig.Parameters)+1)
	if owner != nil {
		params = append(params, wasm.ValAnyRef) // `this`
	}
	for _, p := range sig.Parameters {
		params = append(params, g.valType(p))
	}
	results := g.resultTypes(sig.ReturnType)

	typeIdx := g.emit.AddType(params, results, wasm.AddTypeOptions{})
	fnIdx := g.emit.AddFunction(typeIdx)

	key := funcKey{decl: decl, instKey: substKey(subst)}
	g.funcIndex[key] = fnIdx
	g.funcDecl[key] = funcDeclRef{decl: decl, owner: owner, subst: subst}
	g.pendingBodies = append(g.pendingBodies, key)
	return fnIdx
}

func substKey(subst map[*types.TypeParameter]types.Type) string {
	if len(subst) == 0 {
		return ""
	}
	key := ""
	for tp, t := range subst {
		key += fmt.Sprintf("%p=%p;", tp, t)
	}
	return key
}

// signatureOf resolves decl's types.Function, preferring the checker's
// per-declaration SemanticContext entry and falling back to the owning
// class's method table for methods the checker only recorded on the Class.
// When subst is non-empty (declaring a method against a monomorphized
// generic instance, spec.md 4.5.2), the resolved signature's parameter and
// return types are substituted before being returned, since owner's own
// Methods table is empty for a generic instance (InternGenericClassInstance
// never populates it) and decl's checker-recorded signature still reads in
// terms of the generic's own type parameters.
func (g *Generator) signatureOf(decl *ast.FuncDecl, owner *types.Class, subst map[*types.TypeParameter]types.Type) *types.Function {
	fn, ok := g.declType(decl).(*types.Function)
	if !ok {
		if owner != nil {
			if decl.IsConstructor {
				fn = owner.ConstructorType
			} else if m, ok := owner.Methods[decl.Name]; ok {
				fn = m
			}
		}
	}
	if fn == nil {
		// decl may be a synthetic FuncDecl backing a lambda-valued top-level
		// let: g.ctx.Decls only holds entries for declarations the checker
		// walked directly, so its signature is recorded separately.
		fn = g.externalSig[decl]
	}
	if fn == nil || len(subst) == 0 {
		return fn
	}
	params := make([]types.Type, len(fn.Parameters))
	for i, p := range fn.Parameters {
		params[i] = g.universe.Substitute(p, subst)
	}
	ret := g.universe.Substitute(fn.ReturnType, subst)
	return g.universe.NewFunction(params, ret, fn.TypeParameters)
}

func (g *Generator) lowerFuncBody(key funcKey) error {
	ref, ok := g.funcDecl[key]
	if !ok {
		return errors.NewInternal(fmt.Sprintf("codegen: no declaration recorded for pending function"), nil)
	}
	sig := g.signatureOf(ref.decl, ref.owner, ref.subst)
	fb := &funcBody{
		g:     g,
		decl:  ref.decl,
		owner: ref.owner,
		subst: ref.subst,
		sig:   sig,
		scope: newLocalScope(nil),
	}

	localIdx := 0
	if ref.owner != nil {
		fb.scope.define("this", localIdx)
		localIdx++
	}
	for _, p := range ref.decl.Params {
		fb.scope.define(p.Name, localIdx)
		localIdx++
	}
	fb.nextLocal = localIdx

	if ref.decl.Body != nil {
		for _, s := range ref.decl.Body.Stmts {
			if err := fb.lowerStmt(s); err != nil {
				return err
			}
		}
	}
	fb.code = append(fb.code, opEndIns...)

	idx, ok := g.funcIndex[key]
	if !ok {
		return errors.NewInternal("codegen: function index missing for declared function", nil)
	}
	g.emit.AddCode(idx, fb.extraLocal, fb.code)
	return nil
}

func (fb *funcBody) newLocal(vt wasm.ValType) int {
	idx := fb.nextLocal
	fb.nextLocal++
	fb.extraLocal = append(fb.extraLocal, vt)
	return idx
}

func (fb *funcBody) emit(bytes ...byte) { fb.code = append(fb.code, bytes...) }
func (fb *funcBody) emitBytes(b []byte) { fb.code = append(fb.code, b...) }

func (fb *funcBody) emitLocalGet(idx int) {
	fb.emitBytes(opLocalGet)
	fb.emitBytes(wasm.EncodeUint32(uint32(idx)))
}

func (fb *funcBody) emitLocalSet(idx int) {
	fb.emitBytes(opLocalSet)
	fb.emitBytes(wasm.EncodeUint32(uint32(idx)))
}
