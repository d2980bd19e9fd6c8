package codegen

import (
	"fmt"
	"sort"

	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/types"
	"github.com/elematic/zena-sub002/internal/wasm"
)

// classLayout is the per-class struct/vtable bookkeeping spec.md 4.5.1
// describes: a reserved struct type (slot 0 holds the vtable reference),
// a reserved vtable struct type (one slot per method, including inherited
// ones), and a global holding the concrete vtable instance.
type classLayout struct {
	cls           *types.Class
	structIdx     int
	vtableTypeIdx int
	vtableGlobal  int
	fields        []fieldSlot   // field layout, parent fields first
	methodOrder   []string      // vtable slot order, parent methods first
	methodFn      map[string]int // method name -> defined function index
	defined       bool
}

type fieldSlot struct {
	name    string
	typ     types.Type
	mutable bool
}

// interfaceLayout is the struct `{ value: anyref, vtable: InterfaceVTable }`
// wrapper spec.md 4.5.1 describes, plus one vtable global per implementing
// class.
type interfaceLayout struct {
	iface         *types.Interface
	wrapperIdx    int
	vtableTypeIdx int
	methodOrder   []string
	// classVtables caches the vtable global built for (interface, class)
	// pairs the first time a T -> I upcast is lowered.
	classVtables map[*types.Class]int
}

// layoutTables owns every class/interface layout for a compilation, plus the
// generic-instantiation cache spec.md 4.5.2 requires (instantiation key =
// generic source identity + interned argument-type identities).
type layoutTables struct {
	g *Generator

	classes    map[*types.Class]*classLayout
	interfaces map[*types.Interface]*interfaceLayout

	// instCache dedupes monomorphized class/interface instances so two
	// syntactically distinct paths to the same instantiation (e.g. a nested
	// generic folded through substitution) collapse onto one struct layout.
	instCache map[string]*types.Class

	arrayTypes map[*types.Array]int
	tupleTypes map[string]int
}

func newLayoutTables(g *Generator) *layoutTables {
	return &layoutTables{
		g:          g,
		classes:    make(map[*types.Class]*classLayout),
		interfaces: make(map[*types.Interface]*interfaceLayout),
		instCache:  make(map[string]*types.Class),
	}
}

// reserveClass allocates (but does not yet define) struct and vtable type
// indices for a class, so sibling classes that reference it as a field type
// before it is itself defined still resolve.
func (lt *layoutTables) reserveClass(decl *ast.ClassDecl) {
	cls := lt.classOf(decl)
	if cls == nil || lt.classes[cls] != nil {
		return
	}
	if !lt.g.classReachable(cls) {
		return
	}
	lt.classes[cls] = &classLayout{
		cls:           cls,
		structIdx:     lt.g.emit.ReserveType(),
		vtableTypeIdx: lt.g.emit.ReserveType(),
		methodFn:      make(map[string]int),
	}
}

func (lt *layoutTables) classOf(decl *ast.ClassDecl) *types.Class {
	t := lt.g.declType(decl)
	if t == nil {
		return nil
	}
	cls, _ := t.(*types.Class)
	return cls
}

func (lt *layoutTables) reserveInterface(decl *ast.InterfaceDecl) {
	t := lt.g.declType(decl)
	if t == nil {
		return
	}
	iface, ok := t.(*types.Interface)
	if !ok || lt.interfaces[iface] != nil {
		return
	}
	lt.interfaces[iface] = &interfaceLayout{
		iface:         iface,
		wrapperIdx:    lt.g.emit.ReserveType(),
		vtableTypeIdx: lt.g.emit.ReserveType(),
		classVtables:  make(map[*types.Class]int),
	}
}

// defineClass fills in the struct/vtable bodies reserved by reserveClass:
// parent fields first (preserving super layout), then the class's own
// fields, with slot 0 reserved for the vtable reference.
func (lt *layoutTables) defineClass(decl *ast.ClassDecl) error {
	cls := lt.classOf(decl)
	if cls == nil {
		return nil
	}
	layout := lt.classes[cls]
	if layout == nil || layout.defined {
		return nil
	}
	layout.defined = true

	var parentLayout *classLayout
	superIdx := -1
	if cls.SuperClass != nil {
		parentLayout = lt.classes[cls.SuperClass]
		if parentLayout != nil {
			superIdx = parentLayout.structIdx
			layout.fields = append(layout.fields, parentLayout.fields...)
			layout.methodOrder = append(layout.methodOrder, parentLayout.methodOrder...)
		}
	}
	for _, f := range cls.Fields {
		// Fields are appended once per (name) across the hierarchy; a
		// subclass cannot redeclare a parent field (checker already
		// enforces this), so the own-field list here is exactly the new
		// fields this class introduces.
		if !hasField(layout.fields, f.Name) {
			layout.fields = append(layout.fields, fieldSlot{name: f.Name, typ: f.Type, mutable: f.Mutable})
		}
	}
	for _, name := range sortedMethodNames(cls.Methods) {
		if name == "#new" {
			continue // constructors are never virtually dispatched
		}
		if !lt.g.methodReachable(cls, name) {
			continue
		}
		if !containsStr(layout.methodOrder, name) {
			layout.methodOrder = append(layout.methodOrder, name)
		}
	}

	structFields := make([]wasm.StructField, 0, len(layout.fields)+1)
	structFields = append(structFields, wasm.StructFieldOf(wasm.ValAnyRef, true))
	for _, f := range layout.fields {
		structFields = append(structFields, wasm.StructFieldOf(lt.g.valType(f.typ), f.mutable))
	}
	lt.g.emit.DefineStructType(layout.structIdx, structFields, superIdx)

	vtFields := make([]wasm.StructField, len(layout.methodOrder))
	for i := range layout.methodOrder {
		vtFields[i] = wasm.StructFieldOf(wasm.ValAnyRef, false)
	}
	vtableSuper := -1
	if parentLayout != nil {
		vtableSuper = parentLayout.vtableTypeIdx
	}
	lt.g.emit.DefineStructType(layout.vtableTypeIdx, vtFields, vtableSuper)

	// Inherited methods default to the parent's concrete function until (and
	// unless) this class overrides them below.
	if parentLayout != nil {
		for name, fn := range parentLayout.methodFn {
			layout.methodFn[name] = fn
		}
	}
	// Methods (including the constructor, named "#new") are declared here
	// so the vtable global below can reference them; bodies are lowered
	// afterward from Generator.pendingBodies.
	for _, m := range decl.Methods {
		if m.Name != "#new" && !lt.g.methodReachable(cls, m.Name) {
			continue
		}
		fn := lt.g.declareFunction(m, cls, nil)
		layout.methodFn[m.Name] = fn
	}

	layout.vtableGlobal = lt.buildVtableGlobal(layout)
	return nil
}

// buildVtableGlobal emits the class's concrete vtable as a struct.new of
// ref.func producers, in methodOrder, and returns the global holding it.
func (lt *layoutTables) buildVtableGlobal(layout *classLayout) int {
	var initExpr []byte
	for _, name := range layout.methodOrder {
		fnIdx, ok := layout.methodFn[name]
		if !ok {
			panic(fmt.Sprintf("codegen: class %s missing concrete method %q for its vtable", layout.cls.String(), name))
		}
		// A function referenced via ref.func must appear in a declarative
		// element segment for the binary to validate (spec.md 6.3's last
		// bullet).
		lt.g.emit.DeclareFunction(fnIdx)
		initExpr = append(initExpr, opRefFunc...)
		initExpr = append(initExpr, wasm.EncodeUint32(uint32(fnIdx))...)
	}
	initExpr = append(initExpr, opStructNew...)
	initExpr = append(initExpr, wasm.EncodeUint32(uint32(layout.vtableTypeIdx))...)
	initExpr = append(initExpr, opEndIns...)
	return lt.g.emit.AddGlobal(wasm.ValAnyRef, false, initExpr)
}

func (lt *layoutTables) defineInterface(decl *ast.InterfaceDecl) {
	t := lt.g.declType(decl)
	if t == nil {
		return
	}
	iface, ok := t.(*types.Interface)
	if !ok {
		return
	}
	layout := lt.interfaces[iface]
	if layout == nil {
		return
	}
	for _, name := range sortedMethodNames(iface.Methods) {
		layout.methodOrder = append(layout.methodOrder, name)
	}
	wrapperFields := []wasm.StructField{
		wasm.StructFieldOf(wasm.ValAnyRef, false),
		wasm.StructFieldOf(wasm.ValAnyRef, false),
	}
	lt.g.emit.DefineStructType(layout.wrapperIdx, wrapperFields, -1)

	vtFields := make([]wasm.StructField, len(layout.methodOrder))
	for i := range layout.methodOrder {
		vtFields[i] = wasm.StructFieldOf(wasm.ValAnyRef, false)
	}
	lt.g.emit.DefineStructType(layout.vtableTypeIdx, vtFields, -1)
}

// monomorphize returns the canonical instantiation of generic under args:
// the universe's interned instance, memoized in instCache under a key built
// from the pointer identities of generic and args. It applies no
// substitution of its own; args are used exactly as given.
func (lt *layoutTables) monomorphize(generic *types.Class, args []types.Type) *types.Class {
	key := instKey(generic, args)
	if cached, ok := lt.instCache[key]; ok {
		return cached
	}
	inst := lt.g.universe.InternGenericClassInstance(generic, args)
	lt.instCache[key] = inst
	return inst
}

func instKey(generic *types.Class, args []types.Type) string {
	key := fmt.Sprintf("%p<", generic)
	for _, a := range args {
		key += fmt.Sprintf("%p,", a)
	}
	return key + ">"
}

func hasField(fields []fieldSlot, name string) bool {
	for _, f := range fields {
		if f.name == name {
			return true
		}
	}
	return false
}

func containsStr(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// sortedMethodNames returns the keys of methods in sorted order, so vtable
// slot order does not depend on map iteration order.
func sortedMethodNames(methods map[string]*types.Function) []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (lt *layoutTables) mustClassLayout(cls *types.Class) *classLayout {
	layout := lt.classes[cls]
	if layout == nil {
		panic(fmt.Sprintf("codegen: no layout reserved for class %s", cls.String()))
	}
	return layout
}

// ensureClassLayout returns cls's struct/vtable layout, building it lazily
// the first time a monomorphized generic instance (e.g. Box<i32>) is
// actually encountered during body lowering. reserveClass/defineClass only
// walk the program's real *ast.ClassDecl nodes up front, so a generic
// instance — which the checker already interns by (GenericSource,
// TypeArguments) identity, per spec.md 4.5.2 — has no layout yet the first
// time lowerNew reaches it. Memoized by cls's pointer identity in lt.classes,
// so a second `new Box<i32>()` anywhere in the program collapses onto the
// same struct/vtable type rather than emitting a second one (spec.md 8
// scenario 4).
func (lt *layoutTables) ensureClassLayout(cls *types.Class) *classLayout {
	if layout, ok := lt.classes[cls]; ok {
		return layout
	}
	if cls.GenericSource == nil {
		panic(fmt.Sprintf("codegen: no layout reserved for class %s", cls.String()))
	}
	return lt.defineGenericInstance(cls)
}

// defineGenericInstance builds the struct/vtable layout for a monomorphized
// class instance by substituting its GenericSource's field/method types
// under a TypeParameter->TypeArgument map, since InternGenericClassInstance
// leaves Fields/Methods/SuperClass empty on the instance itself (see
// internal/types/universe.go).
func (lt *layoutTables) defineGenericInstance(cls *types.Class) *classLayout {
	generic := cls.GenericSource
	subst := make(map[*types.TypeParameter]types.Type, len(generic.TypeParameters))
	for i, tp := range generic.TypeParameters {
		if i < len(cls.TypeArguments) {
			subst[tp] = cls.TypeArguments[i]
		}
	}

	layout := &classLayout{
		cls:           cls,
		structIdx:     lt.g.emit.ReserveType(),
		vtableTypeIdx: lt.g.emit.ReserveType(),
		methodFn:      make(map[string]int),
	}
	lt.classes[cls] = layout

	var parentLayout *classLayout
	superIdx := -1
	if generic.SuperClass != nil {
		if superCls, ok := lt.g.universe.Substitute(generic.SuperClass, subst).(*types.Class); ok {
			parentLayout = lt.ensureClassLayout(superCls)
			superIdx = parentLayout.structIdx
			layout.fields = append(layout.fields, parentLayout.fields...)
			layout.methodOrder = append(layout.methodOrder, parentLayout.methodOrder...)
		}
	}
	for _, f := range generic.Fields {
		if !hasField(layout.fields, f.Name) {
			ft := lt.g.universe.Substitute(f.Type, subst)
			layout.fields = append(layout.fields, fieldSlot{name: f.Name, typ: ft, mutable: f.Mutable})
		}
	}
	// A generic instance's reachability is never tracked per-instantiation
	// (DCE's NewExpr walk marks GenericSource, not cls), so every method is
	// kept here rather than filtered by methodReachable — over-inclusion
	// only costs code size, per dceWalker's own soundness note.
	for _, name := range sortedMethodNames(generic.Methods) {
		if name == "#new" {
			continue
		}
		if !containsStr(layout.methodOrder, name) {
			layout.methodOrder = append(layout.methodOrder, name)
		}
	}

	structFields := make([]wasm.StructField, 0, len(layout.fields)+1)
	structFields = append(structFields, wasm.StructFieldOf(wasm.ValAnyRef, true))
	for _, f := range layout.fields {
		structFields = append(structFields, wasm.StructFieldOf(lt.g.valType(f.typ), f.mutable))
	}
	lt.g.emit.DefineStructType(layout.structIdx, structFields, superIdx)

	vtFields := make([]wasm.StructField, len(layout.methodOrder))
	for i := range layout.methodOrder {
		vtFields[i] = wasm.StructFieldOf(wasm.ValAnyRef, false)
	}
	vtableSuper := -1
	if parentLayout != nil {
		vtableSuper = parentLayout.vtableTypeIdx
	}
	lt.g.emit.DefineStructType(layout.vtableTypeIdx, vtFields, vtableSuper)

	if parentLayout != nil {
		for name, fn := range parentLayout.methodFn {
			layout.methodFn[name] = fn
		}
	}
	if genericDecl := lt.g.classDeclFor(generic); genericDecl != nil {
		for _, m := range genericDecl.Methods {
			if m.Name != "#new" && !containsStr(layout.methodOrder, m.Name) {
				continue
			}
			fn := lt.g.declareFunction(m, cls, subst)
			layout.methodFn[m.Name] = fn
		}
	}

	layout.vtableGlobal = lt.buildVtableGlobal(layout)
	return layout
}

// arrayTypeFor caches the structural WASM array type built for an Array
// Type the first time a literal or index expression needs one; Array is
// identity-interned by the universe, so caching by pointer collapses every
// occurrence of the same element-type array onto one WASM type.
func (lt *layoutTables) arrayTypeFor(arr *types.Array) int {
	if lt.arrayTypes == nil {
		lt.arrayTypes = make(map[*types.Array]int)
	}
	if idx, ok := lt.arrayTypes[arr]; ok {
		return idx
	}
	idx := lt.g.emit.AddArrayType(lt.g.valType(arr.Element), true)
	lt.arrayTypes[arr] = idx
	return idx
}

// tupleStructFor returns the struct type index for a boxed tuple's element
// list, deduped by the elements' identity signature.
func (lt *layoutTables) tupleStructFor(elems []types.Type) int {
	if lt.tupleTypes == nil {
		lt.tupleTypes = make(map[string]int)
	}
	key := ""
	for _, e := range elems {
		key += fmt.Sprintf("%p,", e)
	}
	if idx, ok := lt.tupleTypes[key]; ok {
		return idx
	}
	fields := make([]wasm.StructField, len(elems))
	for i, e := range elems {
		fields[i] = wasm.StructFieldOf(lt.g.valType(e), false)
	}
	idx := lt.g.emit.AddStructType(fields, -1)
	lt.tupleTypes[key] = idx
	return idx
}

// structIdxForTypeExpr resolves a syntactic type annotation (as used by `is`/
// `as`) to the WASM struct type index it must test/cast against.
func (lt *layoutTables) structIdxForTypeExpr(te ast.TypeExpr) int {
	t := lt.g.resolveTypeExprType(te)
	cls, ok := t.(*types.Class)
	if !ok {
		panic(fmt.Sprintf("codegen: `is`/`as` target %s is not a class type", t))
	}
	return lt.mustClassLayout(cls).structIdx
}

// stringArrayType returns the shared (i8, mutable) array type string
// literals and the string runtime back onto, reserving it on first use.
func (g *Generator) stringArrayType() int {
	if g.stringArrayIdx < 0 {
		g.stringArrayIdx = g.emit.AddArrayType(wasm.ValI32, true)
	}
	return g.stringArrayIdx
}

// declareGlobal lowers a top-level `let` binding to a WASM global. A
// lambda-valued let (spec.md 8 scenarios 1/2/3/5/7's `export let main = (..)
// => ...;` and `let process = (..) => ...;`) lowers to a declared function
// plus a ref.func global instead, via declareLambdaGlobal; everything else
// is restricted to constant initializers — int, bool and float literals
// (lowerConstExpr panics on any other initializer) — mirroring the restriction the GC
// proposal's constant-expression grammar itself imposes on global init
// exprs.
func (g *Generator) declareGlobal(decl *ast.LetDecl) {
	if lambda, ok := decl.Value.(*ast.LambdaExpr); ok {
		g.declareLambdaGlobal(decl, lambda)
		return
	}
	t := g.declType(decl)
	if t == nil {
		t = g.universe.Primitive(types.Void)
	}
	vt := g.valType(t)
	init := lowerConstExpr(g, decl.Value, t)
	idx := g.emit.AddGlobal(vt, decl.Mutable, init)
	if g.decls != nil {
		g.decls.globals[decl.Name] = idx
	}
}

func lowerConstExpr(g *Generator, e ast.Expr, t types.Type) []byte {
	lit, ok := e.(*ast.Literal)
	if !ok {
		panic(fmt.Sprintf("codegen: global initializer must be a constant, got %T", e))
	}
	var out []byte
	switch lit.Kind {
	case ast.IntLit:
		v, _ := lit.Value.(int64)
		out = append(out, opI32Const...)
		out = append(out, wasm.EncodeInt32(int32(v))...)
	case ast.BoolLit:
		v, _ := lit.Value.(bool)
		out = append(out, opI32Const...)
		if v {
			out = append(out, wasm.EncodeInt32(1)...)
		} else {
			out = append(out, wasm.EncodeInt32(0)...)
		}
	case ast.FloatLit:
		v, _ := lit.Value.(float64)
		out = append(out, opF64Const...)
		out = append(out, encodeF64(v)...)
	default:
		panic(fmt.Sprintf("codegen: unsupported constant global initializer kind %v", lit.Kind))
	}
	out = append(out, opEndIns...)
	return out
}
