package codegen

import (
	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/types"
)

// reachSet is the result of dead-code elimination's mark phase (spec.md
// 4.5.7): every function, class, and per-class method name transitively
// reachable from the compilation's roots (exports, main, and — per the
// spec's "declared-function table entries" clause — any function value
// that escapes as a first-class reference, which this generator produces
// for vtable slots, covered by the method-reachability walk below, and for
// lambda-valued top-level lets, kept alive through their globals).
type reachSet struct {
	funcs   map[*ast.FuncDecl]bool
	classes map[*types.Class]bool
	methods map[*types.Class]map[string]bool
	globals map[*ast.LetDecl]bool
}

func (g *Generator) funcReachable(decl *ast.FuncDecl) bool {
	if g.reachable == nil {
		return true
	}
	return g.reachable.funcs[decl]
}

func (g *Generator) classReachable(cls *types.Class) bool {
	if g.reachable == nil {
		return true
	}
	return g.reachable.classes[cls]
}

func (g *Generator) methodReachable(cls *types.Class, name string) bool {
	if g.reachable == nil {
		return true
	}
	m, ok := g.reachable.methods[cls]
	if !ok {
		return false
	}
	return m[name]
}

func (g *Generator) globalReachable(decl *ast.LetDecl) bool {
	if g.reachable == nil {
		return true
	}
	return g.reachable.globals[decl]
}

// computeReachability runs the mark phase: a worklist BFS over reachable
// function bodies and class hierarchies, starting from every exported
// declaration plus the entry module's `main`.
func (g *Generator) computeReachability(entry string) *reachSet {
	rs := &reachSet{
		funcs:   make(map[*ast.FuncDecl]bool),
		classes: make(map[*types.Class]bool),
		methods: make(map[*types.Class]map[string]bool),
		globals: make(map[*ast.LetDecl]bool),
	}

	var funcQueue []*ast.FuncDecl
	var classQueue []*types.Class
	var globalQueue []*ast.LetDecl

	w := &dceWalker{g: g, rs: rs}
	w.markFunc = func(d *ast.FuncDecl) {
		if d == nil || rs.funcs[d] {
			return
		}
		rs.funcs[d] = true
		funcQueue = append(funcQueue, d)
		// d may be the synthetic FuncDecl backing a lambda-valued top-level
		// let; the let itself must also be marked reachable so run()'s
		// declaration loop actually calls declareGlobal for it.
		if letDecl, ok := g.lambdaLets[d]; ok {
			w.markGlobal(letDecl)
		}
	}
	w.markClass = func(cls *types.Class) {
		if cls == nil || rs.classes[cls] {
			return
		}
		rs.classes[cls] = true
		classQueue = append(classQueue, cls)
	}
	w.markGlobal = func(decl *ast.LetDecl) {
		if decl == nil || rs.globals[decl] {
			return
		}
		rs.globals[decl] = true
		globalQueue = append(globalQueue, decl)
	}
	w.markMethod = func(cls *types.Class, name string) {
		if cls == nil {
			return
		}
		if rs.methods[cls] == nil {
			rs.methods[cls] = make(map[string]bool)
		}
		if rs.methods[cls][name] {
			return
		}
		rs.methods[cls][name] = true
		w.markClass(cls)

		// The concrete implementation may live on cls itself or be
		// inherited from a superclass; walk up until the declaring class
		// is found.
		for owner := cls; owner != nil; owner = owner.SuperClass {
			if decl := g.ownMethodDecl(owner, name); decl != nil {
				w.markFunc(decl)
				break
			}
		}

		// Polymorphism keeps overrides alive (spec.md 4.5.7): any subclass
		// that re-declares this method name must also be emitted, since a
		// reachable virtual call through the base type can land on it.
		for _, sub := range g.decls.subclasses[cls] {
			if g.ownMethodDecl(sub, name) != nil {
				w.markMethod(sub, name)
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
			case *ast.FuncDecl:
				if decl.Exported || (path == entry && decl.Name == "main") {
					w.markFunc(decl)
				}
			case *ast.LetDecl:
				if decl.Exported || (path == entry && decl.Name == "main") {
					w.markGlobal(decl)
				}
			case *ast.ClassDecl:
				if decl.Exported {
					if cls, ok := g.declType(decl).(*types.Class); ok {
						w.markClass(cls)
					}
				}
			}
		}
	}

	for len(funcQueue) > 0 || len(classQueue) > 0 || len(globalQueue) > 0 {
		for len(funcQueue) > 0 {
			d := funcQueue[0]
			funcQueue = funcQueue[1:]
			if d.Body != nil {
				for _, s := range d.Body.Stmts {
					w.walkStmt(s)
				}
			}
		}
		for len(globalQueue) > 0 {
			d := globalQueue[0]
			globalQueue = globalQueue[1:]
			w.walkExpr(d.Value)
		}
		for len(classQueue) > 0 {
			cls := classQueue[0]
			classQueue = classQueue[1:]
			// A reachable, instantiable class always keeps its own
			// constructor (spec.md 4.5.7's third bullet) and its superclass
			// chain (struct subtyping needs every ancestor's layout).
			if decl := g.ownMethodDecl(cls, "#new"); decl != nil {
				w.markFunc(decl)
			}
			if cls.SuperClass != nil {
				w.markClass(cls.SuperClass)
			}
			for _, ifc := range cls.Implements {
				for name := range ifc.Methods {
					w.markMethod(cls, name)
				}
			}
		}
	}

	return rs
}

// dceWalker recurses over statement/expression trees collecting reachable
// call targets, `new` targets, and method names. It does not need to be
// type-precise the way the checker is: over-approximating reachability
// (marking a class/method reachable that a smarter analysis could prove
// dead) is always sound for DCE, it only costs code size.
type dceWalker struct {
	g *Generator
	rs *reachSet

	markFunc   func(*ast.FuncDecl)
	markClass  func(*types.Class)
	markMethod func(*types.Class, string)
	markGlobal func(*ast.LetDecl)
}

func (w *dceWalker) walkStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.ExprStmt:
		w.walkExpr(n.Expr)
	case *ast.LetStmt:
		w.walkExpr(n.Value)
	case *ast.ReturnStmt:
		w.walkExpr(n.Value)
	case *ast.IfStmt:
		w.walkExpr(n.Cond)
		w.walkStmt(n.Then)
		w.walkStmt(n.Else)
	case *ast.WhileStmt:
		w.walkExpr(n.Cond)
		w.walkStmt(n.Body)
	case *ast.ForStmt:
		w.walkStmt(n.Init)
		w.walkExpr(n.Cond)
		w.walkStmt(n.Update)
		w.walkStmt(n.Body)
	case *ast.ThrowStmt:
		w.walkExpr(n.Value)
	case *ast.TryStmt:
		w.walkStmt(n.Body)
		w.walkStmt(n.CatchBody)
	case *ast.BlockStmt:
		for _, inner := range n.Stmts {
			w.walkStmt(inner)
		}
	case nil, *ast.BreakStmt, *ast.ContinueStmt:
		// no sub-expressions
	}
}

func (w *dceWalker) walkExpr(e ast.Expr) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ast.Literal:
		// no callees
	case *ast.Ident:
		// A bare identifier may name either a local (no-op here) or a
		// top-level `let`; over-approximating by name is safe since a local
		// sharing a global's name just keeps that global alive too.
		if w.g.decls != nil {
			if decl, ok := w.g.decls.globalDecls[n.Name]; ok {
				w.markGlobal(decl)
				if fd, ok := w.g.lambdaFuncs[decl]; ok {
					w.markFunc(fd)
				}
			}
		}
	case *ast.BinaryExpr:
		w.walkExpr(n.Left)
		w.walkExpr(n.Right)
		w.walkOperatorMethod(n.Left, n.Op)
	case *ast.UnaryExpr:
		w.walkExpr(n.Operand)
	case *ast.AssignExpr:
		w.walkExpr(n.Target)
		w.walkExpr(n.Value)
	case *ast.CallExpr:
		w.walkCall(n)
	case *ast.NewExpr:
		if cls := w.g.resolveClassByName(n.ClassName); cls != nil {
			w.markClass(cls)
		}
		for _, a := range n.Args {
			w.walkExpr(a)
		}
	case *ast.MemberExpr:
		w.walkExpr(n.Object)
	case *ast.IndexExpr:
		w.walkExpr(n.Object)
		w.walkExpr(n.Index)
	case *ast.IsExpr:
		w.walkExpr(n.Value)
		w.markTypeExpr(n.Type)
	case *ast.AsExpr:
		w.walkExpr(n.Value)
		w.markTypeExpr(n.Type)
	case *ast.TupleExpr:
		for _, el := range n.Elements {
			w.walkExpr(el)
		}
	case *ast.ArrayLitExpr:
		for _, el := range n.Elements {
			w.walkExpr(el)
		}
	case *ast.RecordLitExpr:
		for _, f := range n.Fields {
			w.walkExpr(f.Value)
		}
	case *ast.LambdaExpr:
		switch body := n.Body.(type) {
		case *ast.BlockStmt:
			w.walkStmt(body)
		case ast.Expr:
			w.walkExpr(body)
		}
	case *ast.BlockExpr:
		for _, s := range n.Stmts {
			w.walkStmt(s)
		}
		w.walkExpr(n.Result)
	case *ast.IfExpr:
		w.walkExpr(n.Cond)
		w.walkExpr(n.Then)
		w.walkExpr(n.Else)
	}
}

// walkCall marks a free-function or method callee reachable. A `obj.name(..)`
// callee is a virtual dispatch against obj's static class, so the target
// method name is marked reachable against that class (and, per the override
// rule, cascaded to overriders) rather than resolved to one concrete decl.
func (w *dceWalker) walkCall(n *ast.CallExpr) {
	for _, a := range n.Args {
		w.walkExpr(a)
	}
	switch callee := n.Callee.(type) {
	case *ast.Ident:
		if decl, _, ok := w.g.resolveFuncIdent(callee.Name); ok {
			w.markFunc(decl)
			return
		}
		w.walkExpr(callee)
	case *ast.MemberExpr:
		w.walkExpr(callee.Object)
		if cls, ok := exprType(callee.Object).(*types.Class); ok {
			w.markMethod(cls, callee.Name)
		}
	default:
		w.walkExpr(n.Callee)
	}
}

// walkOperatorMethod marks the overloaded operator method (`operator +`,
// `operator ==`, ...) a binary expression lowers to when its left operand is
// a class, mirroring lowerEquality/emitArithOp's own dispatch rule.
func (w *dceWalker) walkOperatorMethod(left ast.Expr, op string) {
	cls, ok := exprType(left).(*types.Class)
	if !ok {
		return
	}
	name := "operator " + op
	if _, ok := cls.Methods[name]; ok {
		w.markMethod(cls, name)
	}
}

func (w *dceWalker) markTypeExpr(te ast.TypeExpr) {
	named, ok := te.(*ast.NamedTypeExpr)
	if !ok {
		return
	}
	if cls := w.g.resolveClassByName(named.Name); cls != nil {
		w.markClass(cls)
	}
}
