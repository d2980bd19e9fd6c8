// Package codegen implements the CodeGenerator described in spec.md 4.5: it
// walks the checker's elaborated AST (module.Graph + checker.SemanticContext)
// and produces a WASM-GC binary via internal/wasm.Emitter.
//
// Grounded on the teacher's internal/eval.TypedEvaluator for texture only: a
// struct holding generator state plus one lower*/emit* method per AST node
// kind, dispatched through a type switch over the same elaborated tree the
// checker already walked once — not the teacher's tree-walking interpretation
// semantics, which has no place in a compiler that emits a binary instead of
// producing a runtime Value.
package codegen

import (
	"fmt"

	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/checker"
	"github.com/elematic/zena-sub002/internal/errors"
	"github.com/elematic/zena-sub002/internal/module"
	"github.com/elematic/zena-sub002/internal/types"
	"github.com/elematic/zena-sub002/internal/wasm"
)

// Target selects which host environment's console/IO surface the generated
// module expects, per spec.md 4.3's `target: host | wasi` option.
type Target string

const (
	TargetHost Target = "host"
	TargetWasi Target = "wasi"
)

// Options configures a single Generate call, per spec.md 4.6's CodeGenerator
// options `{target, debug, dce}`.
type Options struct {
	Target Target
	Debug  bool
	DCE    bool
}

// Generator owns a fresh BinaryEmitter and every layout table spec.md 3.4
// assigns it: class/interface struct indices, vtable globals, method-to-
// function-index maps, and the monomorphized-instance cache. One Generator
// serves exactly one compilation.
type Generator struct {
	universe *types.Universe
	graph    *module.Graph
	ctx      *checker.SemanticContext
	opts     Options

	emit *wasm.Emitter

	layout   *layoutTables
	boxTypes *boxTables
	decls    *declIndex
	excTags  *exceptionTags

	// lambdaFuncs/lambdaLets bridge a lambda-valued top-level let to the
	// synthetic FuncDecl it lowers through (and back), since such a let has
	// no FuncDecl of its own in the parsed AST. externalSig records the
	// checker-computed signature for a synthetic FuncDecl, which
	// g.ctx.Decls (populated only for declarations the checker itself
	// walked) never holds an entry for.
	lambdaFuncs map[*ast.LetDecl]*ast.FuncDecl
	lambdaLets  map[*ast.FuncDecl]*ast.LetDecl
	externalSig map[*ast.FuncDecl]*types.Function

	// reachable holds the dead-code-elimination mark-phase result (spec.md
	// 4.5.7) when Options.DCE is set; nil means "everything is reachable",
	// so funcReachable/classReachable/methodReachable default to true.
	reachable *reachSet

	stringArrayIdx int // lazily reserved array type backing string literals

	// funcIndex maps a concrete (possibly monomorphized) Function signature
	// identity, keyed by the FuncDecl that defines it plus its substitution,
	// to the wasm function index assigned to it.
	funcIndex map[funcKey]int
	funcDecl  map[funcKey]funcDeclRef

	// pendingBodies holds functions whose struct/function indices are
	// reserved but whose bodies have not been lowered yet, so mutual
	// recursion between functions (and between a function and the classes
	// it references) resolves regardless of declaration order.
	pendingBodies []funcKey
}

// funcKey identifies one concrete function to generate: the declaring
// FuncDecl plus the type-argument tuple it is monomorphized under (nil/empty
// for a non-generic function).
type funcKey struct {
	decl     *ast.FuncDecl
	instKey  string // interned type-argument identity string, "" when non-generic
}

type funcDeclRef struct {
	decl  *ast.FuncDecl
	owner *types.Class // non-nil for a method
	subst map[*types.TypeParameter]types.Type
}

// Generate runs the full codegen pipeline over every module the graph
// loaded, starting from entry, and returns the emitted WASM-GC binary.
func Generate(universe *types.Universe, graph *module.Graph, ctx *checker.SemanticContext, entry string, opts Options) ([]byte, error) {
	g := &Generator{
		universe:       universe,
		graph:          graph,
		ctx:            ctx,
		opts:           opts,
		emit:           wasm.NewEmitter(),
		funcIndex:      make(map[funcKey]int),
		funcDecl:       make(map[funcKey]funcDeclRef),
		lambdaFuncs:    make(map[*ast.LetDecl]*ast.FuncDecl),
		lambdaLets:     make(map[*ast.FuncDecl]*ast.LetDecl),
		externalSig:    make(map[*ast.FuncDecl]*types.Function),
		stringArrayIdx: -1,
	}
	g.layout = newLayoutTables(g)
	g.boxTypes = newBoxTables(g)

	if err := g.run(entry); err != nil {
		return nil, err
	}
	return g.emit.Emit(), nil
}

func (g *Generator) run(entry string) error {
	g.buildDeclIndex()

	// Imports must be registered before any function is declared: wasm's
	// function index space numbers imports first, and AddFunction bakes in
	// whatever import count exists at the moment it's called (spec.md
	// 6.3's host-target import list).
	if g.opts.Target == TargetHost {
		g.registerHostImports()
	}

	// DCE's mark phase runs before any struct/function index is reserved,
	// so unreachable classes/functions/methods never occupy a slot in the
	// emitted binary at all (spec.md 4.5.7's "unreachable definitions are
	// not emitted", verified by the byte-identical-output requirement).
	if g.opts.DCE {
		g.reachable = g.computeReachability(entry)
	}

	// Layout pass: reserve struct/vtable indices for every reachable class
	// and interface (spec.md 4.5.1). Interfaces are always reserved — DCE
	// only trims classes/functions/methods, since an interface's own layout
	// cost is a couple of struct types shared across every implementor.
	for _, path := range g.graph.Order {
		mod := g.graph.Module(path)
		if mod == nil || mod.AST == nil {
			continue
		}
		for _, d := range mod.AST.Decls {
			if cd, ok := d.(*ast.ClassDecl); ok {
				g.layout.reserveClass(cd)
			}
			if id, ok := d.(*ast.InterfaceDecl); ok {
				g.layout.reserveInterface(id)
			}
		}
	}
	for _, path := range g.graph.Order {
		mod := g.graph.Module(path)
		if mod == nil || mod.AST == nil {
			continue
		}
		for _, d := range mod.AST.Decls {
			switch decl := d.(type) {
			case *ast.ClassDecl:
				if err := g.layout.defineClass(decl); err != nil {
					return err
				}
			case *ast.InterfaceDecl:
				g.layout.defineInterface(decl)
			}
		}
	}

	// Top-level functions and let-initializers become WASM functions/globals.
	for _, path := range g.graph.Order {
		mod := g.graph.Module(path)
		if mod == nil || mod.AST == nil {
			continue
		}
		for _, d := range mod.AST.Decls {
			switch decl := d.(type) {
			case *ast.FuncDecl:
				if g.funcReachable(decl) {
					g.declareFunction(decl, nil, nil)
				}
			case *ast.LetDecl:
				if g.globalReachable(decl) {
					g.declareGlobal(decl)
				}
			}
		}
	}

	// Class vtables reference method function indices, so methods are
	// declared alongside their owning class during the layout pass; bodies
	// are lowered in a second sweep once every index exists.
	for len(g.pendingBodies) > 0 {
		key := g.pendingBodies[0]
		g.pendingBodies = g.pendingBodies[1:]
		if err := g.lowerFuncBody(key); err != nil {
			return err
		}
	}

	entryMod := g.graph.Module(entry)
	if entryMod == nil {
		return errors.NewInternal(fmt.Sprintf("entry module %q not loaded", entry), nil)
	}
	for _, d := range entryMod.AST.Decls {
		if mainBindingName(d) != "main" {
			continue
		}
		// `main` may be declared as either a function (`main() -> T {...}`)
		// or a lambda-valued let (`export let main = () => ...;`, spec.md 8
		// scenarios 1/2/3/5/7) — g.decls.funcs resolves either uniformly,
		// since buildDeclIndex/synthesizeLambdaFunc register the latter's
		// synthetic FuncDecl under the same name.
		fd, ok := g.decls.funcs["main"]
		if !ok {
			continue
		}
		key := funcKey{decl: fd}
		if idx, ok := g.funcIndex[key]; ok {
			g.emit.AddExport("main", wasm.ExportFunc, idx)
			g.emit.SetStart(idx)
		}
	}

	if g.opts.Target == TargetHost && g.stringArrayIdx >= 0 {
		g.declareStringAccessors()
	}

	return nil
}

// mainBindingName reports the top-level binding name a declaration
// introduces, for the entry-point scan: a plain function's own name, or a
// let's name (covering a lambda-valued `main`).
func mainBindingName(d ast.Decl) string {
	switch decl := d.(type) {
	case *ast.FuncDecl:
		return decl.Name
	case *ast.LetDecl:
		return decl.Name
	default:
		return ""
	}
}

func (g *Generator) declType(d ast.Decl) types.Type {
	if g.ctx == nil {
		return nil
	}
	return g.ctx.Decls[d]
}
