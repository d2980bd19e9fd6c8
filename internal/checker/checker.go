// Package checker implements the two-phase semantic analysis described in
// spec.md 4.4: Phase A registers every module's declarations (so forward and
// cyclic type references resolve), Phase B walks function/method bodies,
// typing expressions and narrowing flow facts against the TypeUniverse.
//
// Grounded on the teacher's internal/types.TypeChecker: a struct holding an
// accumulated error list and one check* method per AST node kind, dispatched
// through a type switch rather than a visitor interface.
package checker

import (
	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/errors"
	"github.com/elematic/zena-sub002/internal/module"
	"github.com/elematic/zena-sub002/internal/types"
)

// SymbolKind classifies a binding in the lexical scope, per spec.md 4.4.
type SymbolKind int

const (
	SymbolLet SymbolKind = iota
	SymbolVar
	SymbolField
	SymbolParameter
)

// SymbolInfo is the value a scope or module value table binds a name to.
type SymbolInfo struct {
	Type Type
	Kind SymbolKind
}

// Type is a local alias so checker files read naturally without qualifying
// every occurrence as types.Type.
type Type = types.Type

// SemanticContext is the resolved binding table the checker hands to the
// code generator (spec.md 3.4): every identifier's resolved SymbolInfo, and
// every declaration's resolved Type, keyed by declaration identity so the
// generator never has to re-resolve a name.
type SemanticContext struct {
	Idents map[*ast.Ident]*SymbolInfo
	Decls  map[ast.Decl]Type
}

func newSemanticContext() *SemanticContext {
	return &SemanticContext{
		Idents: make(map[*ast.Ident]*SymbolInfo),
		Decls:  make(map[ast.Decl]Type),
	}
}

// moduleInfo is the per-module declaration table Phase A builds before any
// body is checked.
type moduleInfo struct {
	path string
	mod  *module.Module

	// types holds every class/interface/enum/alias registered for this
	// module, keyed by local (unqualified) name.
	types map[string]Type
	// declOf maps a registered type back to the declaration that produced
	// it, for diagnostics and for Phase B's currentClass bookkeeping.
	declOf map[Type]ast.Decl
	// mixins are not Types (they have no nominal identity of their own);
	// a class mixing one in copies its fields/methods at registration time.
	mixins map[string]*ast.MixinDecl

	// values holds every top-level let/var/function, keyed by local name.
	// Overloaded functions (same name, distinct signature) are collected
	// under one slice per name; overloadTypes parallels overloads with the
	// already-resolved Function signature for each candidate.
	values        map[string]*SymbolInfo
	overloads     map[string][]*ast.FuncDecl
	overloadTypes map[string][]*types.Function

	// imported maps a local name (after aliasing) introduced by an
	// ImportDecl to the exporting module's declaration, resolved once all
	// modules have their shells registered.
	importedTypes  map[string]Type
	importedValues map[string]*SymbolInfo
}

func newModuleInfo(path string, mod *module.Module) *moduleInfo {
	return &moduleInfo{
		path:           path,
		mod:            mod,
		types:          make(map[string]Type),
		declOf:         make(map[Type]ast.Decl),
		mixins:         make(map[string]*ast.MixinDecl),
		values:         make(map[string]*SymbolInfo),
		overloads:      make(map[string][]*ast.FuncDecl),
		overloadTypes:  make(map[string][]*types.Function),
		importedTypes:  make(map[string]Type),
		importedValues: make(map[string]*SymbolInfo),
	}
}

// Checker runs the two-phase analysis over every module a Graph loaded.
type Checker struct {
	universe    *types.Universe
	graph       *module.Graph
	modules     map[string]*moduleInfo
	diagnostics []*errors.Diagnostic
	ctx         *SemanticContext
}

// New creates a Checker against an already-populated universe and graph.
// The universe is typically shared with CodeGenerator (spec.md 3.4).
func New(universe *types.Universe, graph *module.Graph) *Checker {
	return &Checker{
		universe: universe,
		graph:    graph,
		modules:  make(map[string]*moduleInfo),
		ctx:      newSemanticContext(),
	}
}

// Check runs Phase A then Phase B over every module in the graph's load
// order and returns the elaborated SemanticContext plus every diagnostic
// produced. Errors never abort the pass: unresolvable references are
// substituted with Unknown/never placeholders so the checker keeps going,
// per spec.md 4.4.
func (c *Checker) Check() (*SemanticContext, []*errors.Diagnostic) {
	for _, path := range c.graph.Order {
		c.modules[path] = newModuleInfo(path, c.graph.Module(path))
	}

	// Phase A, sub-pass 1: type shells, for every module, before anything
	// that might reference a sibling or imported type.
	for _, path := range c.graph.Order {
		c.registerTypeShells(c.modules[path])
	}
	// Phase A, sub-passes 2-4, processed one module at a time in load order:
	// resolve this module's imports (its dependencies, earlier in Order,
	// already have both their types and values fully registered by the time
	// we get here — except across a cycle, where the spec permits an
	// arbitrary break), then its extends/implements/mixins, then its value
	// stubs. Keeping these three per-module rather than three full passes
	// over every module is what lets import resolution see a dependency's
	// *values*, not just its type shells.
	for _, path := range c.graph.Order {
		mi := c.modules[path]
		c.resolveImports(mi)
		c.resolveHierarchy(mi)
		c.registerValueStubs(mi)
	}

	// Phase B: check every function/method/top-level initializer body.
	for _, path := range c.graph.Order {
		c.checkBodies(c.modules[path])
	}

	for _, path := range c.graph.Order {
		c.diagnostics = append(c.diagnostics, c.modules[path].mod.Diagnostics...)
	}
	return c.ctx, c.diagnostics
}

func (c *Checker) errorf(code string, pos ast.Pos, format string, args ...interface{}) {
	c.diagnostics = append(c.diagnostics, errors.New(code, pos, format, args...))
}

// unknown is the placeholder type substituted wherever resolution fails, so
// the rest of the pass can keep going without nil-checking every Type.
func (c *Checker) unknown() Type { return c.universe.Primitive(types.Any) }

func (c *Checker) never() Type { return c.universe.Primitive(types.Never) }

// registerTypeShells implements spec.md 4.4 Phase A step 1: every class,
// interface, and enum gets an entry in the module's type table with fresh
// TypeParameter nodes, before any field/method signature or superclass
// reference is resolved. Type aliases are only checked for duplicate names
// here; they enter the type table in resolveHierarchy.
func (c *Checker) registerTypeShells(mi *moduleInfo) {
	for _, decl := range mi.mod.AST.Decls {
		switch d := decl.(type) {
		case *ast.ClassDecl:
			cls := &types.Class{
				Name:           d.Name,
				Module:         mi.path,
				Methods:        make(map[string]*types.Function),
				IsFinal:        d.IsFinal,
				IsExtension:    d.IsExtension,
				TypeParameters: c.freshTypeParams(d.TypeParams),
			}
			if _, dup := mi.types[d.Name]; dup {
				c.errorf(errors.TC011, d.Pos, "duplicate declaration %q in module %s", d.Name, mi.path)
				continue
			}
			mi.types[d.Name] = cls
			mi.declOf[cls] = d
			c.ctx.Decls[d] = cls

		case *ast.InterfaceDecl:
			iface := &types.Interface{
				Name:           d.Name,
				Module:         mi.path,
				Methods:        make(map[string]*types.Function),
				Properties:     make(map[string]Type),
				TypeParameters: c.freshTypeParams(d.TypeParams),
			}
			if _, dup := mi.types[d.Name]; dup {
				c.errorf(errors.TC011, d.Pos, "duplicate declaration %q in module %s", d.Name, mi.path)
				continue
			}
			mi.types[d.Name] = iface
			mi.declOf[iface] = d
			c.ctx.Decls[d] = iface

		case *ast.EnumDecl:
			e := &types.Enum{Name: d.Name, Module: mi.path}
			next := int32(0)
			for _, m := range d.Members {
				if m.Value != nil {
					if lit, ok := m.Value.(*ast.Literal); ok {
						if iv, ok := lit.Value.(int64); ok {
							next = int32(iv)
						}
					}
				}
				e.Members = append(e.Members, types.EnumMember{Name: m.Name, Discriminant: next})
				next++
			}
			if _, dup := mi.types[d.Name]; dup {
				c.errorf(errors.TC011, d.Pos, "duplicate declaration %q in module %s", d.Name, mi.path)
				continue
			}
			mi.types[d.Name] = e
			mi.declOf[e] = d
			c.ctx.Decls[d] = e

		case *ast.MixinDecl:
			if _, dup := mi.mixins[d.Name]; dup {
				c.errorf(errors.TC011, d.Pos, "duplicate declaration %q in module %s", d.Name, mi.path)
				continue
			}
			mi.mixins[d.Name] = d

		case *ast.TypeAliasDecl:
			// Only the duplicate-name check happens here; nothing is entered
			// into mi.types. resolveHierarchy resolves the target and
			// registers the alias, so a type reference to the alias that is
			// resolved before that point reports an unknown type.
			if _, dup := mi.types[d.Name]; dup {
				c.errorf(errors.TC011, d.Pos, "duplicate declaration %q in module %s", d.Name, mi.path)
			}
		}
	}
}

func (c *Checker) freshTypeParams(decls []*ast.TypeParamDecl) []*types.TypeParameter {
	params := make([]*types.TypeParameter, len(decls))
	for i, d := range decls {
		params[i] = &types.TypeParameter{Name: d.Name}
	}
	return params
}

// resolveImports binds every name an ImportDecl introduces to the exporting
// module's registered type or value, via the Graph's kind-qualified export
// table. A missing export or unresolved specifier is a diagnostic, not a
// panic; the local name resolves to Unknown so checking continues.
func (c *Checker) resolveImports(mi *moduleInfo) {
	for _, imp := range mi.mod.AST.Imports {
		if imp.Resolved == "" {
			continue // already flagged MOD001 by the module graph
		}
		source := c.graph.Module(imp.Resolved)
		sourceInfo := c.modules[imp.Resolved]
		if source == nil || sourceInfo == nil {
			c.errorf(errors.TC012, imp.Pos, "import of %q did not resolve to a loaded module", imp.Specifier)
			continue
		}

		if imp.Star {
			for qualified, decl := range source.Exports {
				c.bindImported(mi, sourceInfo, qualified, symbolName(qualified), decl)
			}
			continue
		}
		for _, sym := range imp.Symbols {
			local := sym.Name
			if sym.Alias != "" {
				local = sym.Alias
			}
			if decl, ok := source.Exports["value:"+sym.Name]; ok {
				c.bindImported(mi, sourceInfo, "value:"+sym.Name, local, decl)
				continue
			}
			if decl, ok := source.Exports["type:"+sym.Name]; ok {
				c.bindImported(mi, sourceInfo, "type:"+sym.Name, local, decl)
				continue
			}
			c.errorf(errors.MOD003, imp.Pos, "module %q does not export %q", imp.Specifier, sym.Name)
		}
	}
}

func symbolName(qualified string) string {
	for i := 0; i < len(qualified); i++ {
		if qualified[i] == ':' {
			return qualified[i+1:]
		}
	}
	return qualified
}

func (c *Checker) bindImported(mi, sourceInfo *moduleInfo, qualified, local string, decl ast.Decl) {
	name := symbolName(qualified)
	if qualified[:5] == "type:" {
		if t, ok := sourceInfo.types[name]; ok {
			mi.importedTypes[local] = t
		}
		return
	}
	if sym, ok := sourceInfo.values[name]; ok {
		mi.importedValues[local] = sym
	}
}

// resolveHierarchy implements Phase A step 2: extends/implements/mixins, and
// the deferred TypeAliasDecl target resolution.
func (c *Checker) resolveHierarchy(mi *moduleInfo) {
	for _, decl := range mi.mod.AST.Decls {
		switch d := decl.(type) {
		case *ast.ClassDecl:
			cls := mi.types[d.Name].(*types.Class)
			pscope := typeParamScopeFor(d.TypeParams, cls.TypeParameters)

			if d.SuperClass != nil {
				super, err := c.resolveTypeExpr(mi, d.SuperClass, pscope)
				if err != nil {
					c.errorf(errors.TC009, d.Pos, "unknown superclass: %v", err)
				} else if superClass, ok := super.(*types.Class); ok {
					cls.SuperClass = superClass
				} else {
					c.errorf(errors.TC009, d.Pos, "%q is not a class", d.SuperClass.String())
				}
			}
			for _, impl := range d.Implements {
				t, err := c.resolveTypeExpr(mi, impl, pscope)
				if err != nil {
					c.errorf(errors.TC009, d.Pos, "unknown interface: %v", err)
					continue
				}
				iface, ok := t.(*types.Interface)
				if !ok {
					c.errorf(errors.TC009, d.Pos, "%q is not an interface", impl.String())
					continue
				}
				cls.Implements = append(cls.Implements, iface)
			}

			fields, methods := d.Fields, d.Methods
			for _, mixinExpr := range d.Mixins {
				if named, ok := mixinExpr.(*ast.NamedTypeExpr); ok {
					if mixinDecl, ok := mi.mixins[named.Name]; ok {
						fields = append(fields, mixinDecl.Fields...)
						methods = append(methods, mixinDecl.Methods...)
					}
				}
			}

			for _, f := range fields {
				ft, err := c.resolveTypeExpr(mi, f.Type, pscope)
				if err != nil {
					c.errorf(errors.TC009, f.Pos, "unknown field type: %v", err)
					ft = c.unknown()
				}
				if cls.SuperClass != nil && fieldOnClass(cls.SuperClass, f.Name) {
					c.errorf(errors.TC006, f.Pos, "field %q redeclares a field inherited from %s", f.Name, cls.SuperClass.Name)
					continue
				}
				cls.Fields = append(cls.Fields, types.ClassField{Name: f.Name, Type: ft, Mutable: f.Mutable})
			}
			for _, m := range methods {
				fn := c.resolveFuncSignature(mi, m, pscope)
				if _, isField := fieldType(cls, m.Name); isField && !isAccessorName(m.Name) {
					c.errorf(errors.TC006, m.Pos, "method %q conflicts with a field of the same name", m.Name)
					continue
				}
				cls.Methods[m.Name] = fn
				if m.IsConstructor {
					cls.ConstructorType = fn
				}
			}
			c.checkOverrides(cls)

		case *ast.InterfaceDecl:
			iface := mi.types[d.Name].(*types.Interface)
			pscope := typeParamScopeFor(d.TypeParams, iface.TypeParameters)
			for _, p := range d.ParentInterfaces {
				t, err := c.resolveTypeExpr(mi, p, pscope)
				if err != nil {
					c.errorf(errors.TC009, d.Pos, "unknown parent interface: %v", err)
					continue
				}
				if parent, ok := t.(*types.Interface); ok {
					iface.ParentInterfaces = append(iface.ParentInterfaces, parent)
				}
			}
			for _, m := range d.Methods {
				iface.Methods[m.Name] = c.resolveFuncSignature(mi, m, pscope)
			}
			for _, p := range d.Properties {
				pt, err := c.resolveTypeExpr(mi, p.Type, pscope)
				if err != nil {
					pt = c.unknown()
				}
				iface.Properties[p.Name] = pt
			}

		case *ast.TypeAliasDecl:
			params := c.freshTypeParams(d.TypeParams)
			pscope := typeParamScopeFor(d.TypeParams, params)
			target, err := c.resolveTypeExpr(mi, d.Target, pscope)
			if err != nil {
				c.errorf(errors.TC009, d.Pos, "unknown alias target: %v", err)
				target = c.unknown()
			}
			alias := c.universe.NewTypeAlias(mi.path, d.Name, target, d.IsDistinct)
			mi.types[d.Name] = alias
			mi.declOf[alias] = d
			c.ctx.Decls[d] = alias
		}
	}
}

func fieldOnClass(cls *types.Class, name string) bool {
	for cur := cls; cur != nil; cur = cur.SuperClass {
		for _, f := range cur.Fields {
			if f.Name == name {
				return true
			}
		}
	}
	return false
}

func fieldType(cls *types.Class, name string) (Type, bool) {
	for _, f := range cls.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// isAccessorName reports whether name is a transformed getter/setter name
// (get_x / set_x), which may coexist with a field named x per spec.md 4.4's
// name-conflict rule.
func isAccessorName(name string) bool {
	return len(name) > 4 && (name[:4] == "get_" || name[:4] == "set_")
}

// checkOverrides implements spec.md 4.4's inheritance checks: an override
// must have contravariant parameter types and a covariant return type.
func (c *Checker) checkOverrides(cls *types.Class) {
	if cls.SuperClass == nil {
		return
	}
	for name, fn := range cls.Methods {
		parentFn, ok := cls.SuperClass.Methods[name]
		if !ok {
			continue
		}
		if len(fn.Parameters) != len(parentFn.Parameters) {
			c.errorf(errors.TC007, ast.Pos{File: cls.Module}, "method %q overrides %s.%s with a different arity", name, cls.SuperClass.Name, name)
			continue
		}
		for i := range fn.Parameters {
			if !c.universe.Assignable(parentFn.Parameters[i], fn.Parameters[i]) {
				c.errorf(errors.TC007, ast.Pos{File: cls.Module}, "method %q overrides %s.%s with an incompatible parameter type", name, cls.SuperClass.Name, name)
				break
			}
		}
		if !c.universe.Assignable(fn.ReturnType, parentFn.ReturnType) {
			c.errorf(errors.TC007, ast.Pos{File: cls.Module}, "method %q overrides %s.%s with an incompatible return type", name, cls.SuperClass.Name, name)
		}
	}
}

func (c *Checker) resolveFuncSignature(mi *moduleInfo, f *ast.FuncDecl, outer typeParamScope) *types.Function {
	fnParams := c.freshTypeParams(f.TypeParams)
	scope := outer.extend(f.TypeParams, fnParams)

	params := make([]Type, len(f.Params))
	for i, p := range f.Params {
		if p.Type == nil {
			params[i] = c.unknown()
			continue
		}
		t, err := c.resolveTypeExpr(mi, p.Type, scope)
		if err != nil {
			t = c.unknown()
		}
		params[i] = t
	}

	var ret Type
	if f.ReturnType != nil {
		t, err := c.resolveTypeExpr(mi, f.ReturnType, scope)
		if err != nil {
			t = c.unknown()
		}
		ret = t
	} else {
		ret = c.unknown()
	}
	return c.universe.NewFunction(params, ret, fnParams)
}

// registerValueStubs implements Phase A step 3: top-level let/var and
// functions get a SymbolInfo before any body is checked, so forward
// references between top-level declarations resolve.
func (c *Checker) registerValueStubs(mi *moduleInfo) {
	for _, decl := range mi.mod.AST.Decls {
		switch d := decl.(type) {
		case *ast.LetDecl:
			var t Type
			if d.Type != nil {
				var err error
				t, err = c.resolveTypeExpr(mi, d.Type, typeParamScope{})
				if err != nil {
					t = c.unknown()
				}
			} else {
				t = c.unknown() // refined once the initializer is checked
			}
			kind := SymbolLet
			if d.Mutable {
				kind = SymbolVar
			}
			mi.values[d.Name] = &SymbolInfo{Type: t, Kind: kind}
			c.ctx.Decls[d] = t

		case *ast.FuncDecl:
			if d.IsConstructor {
				continue // constructors live on the owning class, not module scope
			}
			fn := c.resolveFuncSignature(mi, d, typeParamScope{})
			mi.overloads[d.Name] = append(mi.overloads[d.Name], d)
			mi.overloadTypes[d.Name] = append(mi.overloadTypes[d.Name], fn)
			mi.values[d.Name] = &SymbolInfo{Type: fn, Kind: SymbolLet}
			c.ctx.Decls[d] = fn
		}
	}
}

// Diagnose reports a formatted diagnostic; exported for package-level tests
// that want to synthesize a diagnostic without running a full Check.
func (c *Checker) Diagnose(code string, pos ast.Pos, format string, args ...interface{}) {
	c.errorf(code, pos, format, args...)
}
