package codegen

import (
	"fmt"

	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/types"
)

// declIndex is a by-name lookup over every top-level declaration the loaded
// modules define, built once during Generator.run so expression lowering can
// resolve free identifiers/class names/global let bindings without re-
// walking the module graph on every reference.
type declIndex struct {
	funcs       map[string]*ast.FuncDecl
	classes     map[string]*types.Class
	globals     map[string]int // let name -> wasm global index
	globalDecls map[string]*ast.LetDecl
	classDecls  map[*types.Class]*ast.ClassDecl
	// subclasses maps a class to every class directly extending it, so DCE's
	// override-keeps-alive rule (spec.md 4.5.7) can cascade a reachable
	// virtual method down to the overrides that shadow it.
	subclasses map[*types.Class][]*types.Class
}

func (g *Generator) buildDeclIndex() {
	g.decls = &declIndex{
		funcs:       make(map[string]*ast.FuncDecl),
		classes:     make(map[string]*types.Class),
		globals:     make(map[string]int),
		globalDecls: make(map[string]*ast.LetDecl),
		classDecls:  make(map[*types.Class]*ast.ClassDecl),
		subclasses:  make(map[*types.Class][]*types.Class),
	}
	for _, path := range g.graph.Order {
		mod := g.graph.Module(path)
		if mod == nil || mod.AST == nil {
			continue
		}
		for _, d := range mod.AST.Decls {
			switch decl := d.(type) {
			case *ast.FuncDecl:
				g.decls.funcs[decl.Name] = decl
			case *ast.LetDecl:
				g.decls.globalDecls[decl.Name] = decl
				// A lambda-valued top-level let (spec.md 8 scenarios 1, 2,
				// 3, 5, 7) is callable by name like any free function, so
				// it needs a funcs[] entry before DCE's mark phase runs —
				// otherwise a call site referencing it by name would never
				// resolve and the let would look unreachable.
				if lambda, ok := decl.Value.(*ast.LambdaExpr); ok {
					g.decls.funcs[decl.Name] = g.synthesizeLambdaFunc(decl, lambda)
				}
			case *ast.ClassDecl:
				if cls, ok := g.declType(decl).(*types.Class); ok {
					g.decls.classes[decl.Name] = cls
					g.decls.classDecls[cls] = decl
				}
			}
		}
	}
	for cls := range g.decls.classDecls {
		if cls.SuperClass != nil {
			g.decls.subclasses[cls.SuperClass] = append(g.decls.subclasses[cls.SuperClass], cls)
		}
	}
}

// classDeclFor returns the ClassDecl a resolved *types.Class was elaborated
// from, so DCE can walk its own (non-inherited) method list.
func (g *Generator) classDeclFor(cls *types.Class) *ast.ClassDecl {
	if g.decls == nil {
		return nil
	}
	return g.decls.classDecls[cls]
}

func (g *Generator) ownMethodDecl(cls *types.Class, name string) *ast.FuncDecl {
	decl := g.classDeclFor(cls)
	if decl == nil {
		return nil
	}
	for _, m := range decl.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func (g *Generator) resolveFuncIdent(name string) (*ast.FuncDecl, *types.Function, bool) {
	if g.decls == nil {
		return nil, nil, false
	}
	decl, ok := g.decls.funcs[name]
	if !ok {
		return nil, nil, false
	}
	if sig, ok := g.declType(decl).(*types.Function); ok {
		return decl, sig, true
	}
	// decl may be a synthetic FuncDecl backing a lambda-valued top-level
	// let, which the checker never walked directly (see externalSig).
	return decl, g.externalSig[decl], true
}

func (g *Generator) resolveClassByName(name string) *types.Class {
	if g.decls == nil {
		return nil
	}
	return g.decls.classes[name]
}

// resolveNewClass resolves a NewExpr's target class. The checker's checkNew
// already computed and attached the canonical (possibly monomorphized)
// *types.Class to this node via SetType — including type arguments the
// checker inferred rather than wrote explicitly — so that is the identity
// used here rather than re-deriving it from n.ClassName, which would only
// see a raw generic declaration. For an explicit type-argument list this
// also routes through layoutTables.monomorphize so the instantiation is
// recorded in its cache: a second `new Box<i32>()` anywhere in the program
// then resolves through the same cached lookup instead of only relying on
// the checker's own interning (spec.md 4.5.2, scenario 4).
func (g *Generator) resolveNewClass(n *ast.NewExpr) *types.Class {
	if cls, ok := exprType(n).(*types.Class); ok {
		if len(n.TypeArgs) > 0 && cls.GenericSource != nil {
			g.layout.monomorphize(cls.GenericSource, cls.TypeArguments)
		}
		return cls
	}
	generic := g.resolveClassByName(n.ClassName)
	if generic == nil {
		panic(fmt.Sprintf("codegen: unresolved class %q", n.ClassName))
	}
	if len(n.TypeArgs) == 0 {
		return generic
	}
	args := make([]types.Type, len(n.TypeArgs))
	for i, te := range n.TypeArgs {
		args[i] = g.resolveTypeExprType(te)
	}
	return g.layout.monomorphize(generic, args)
}

func (g *Generator) globalFor(name string) (int, bool) {
	if g.decls == nil {
		return 0, false
	}
	idx, ok := g.decls.globals[name]
	return idx, ok
}

// resolveTypeExprType re-resolves a syntactic TypeExpr to its TypeUniverse
// Type, mirroring the checker's own name resolution (internal/checker) since
// the checker does not expose a TypeExpr->Type table in SemanticContext.
func (g *Generator) resolveTypeExprType(te ast.TypeExpr) types.Type {
	switch t := te.(type) {
	case *ast.NamedTypeExpr:
		switch t.Name {
		case "i32":
			return g.universe.Primitive(types.I32)
		case "i64":
			return g.universe.Primitive(types.I64)
		case "f32":
			return g.universe.Primitive(types.F32)
		case "f64":
			return g.universe.Primitive(types.F64)
		case "boolean":
			return g.universe.Primitive(types.Bool)
		case "void":
			return g.universe.Primitive(types.Void)
		case "string":
			return g.universe.String()
		}
		if cls := g.resolveClassByName(t.Name); cls != nil {
			return cls
		}
		panic(fmt.Sprintf("codegen: unresolved named type %q", t.Name))
	case *ast.ArrayTypeExpr:
		return g.universe.InternArray(g.resolveTypeExprType(t.Element))
	default:
		panic(fmt.Sprintf("codegen: unsupported type annotation %T", te))
	}
}
