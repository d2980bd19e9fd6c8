package types

import (
	"fmt"
	"sort"
)

// Universe owns every Type produced while compiling one program and is the
// sole authority for interning: two calls that describe the same semantic
// type always return the same pointer. Construct with NewUniverse, which
// pre-interns the fixed primitive set.
type Universe struct {
	interned map[string]Type

	primitives map[PrimitiveName]*Primitive
	stringT    *StringT
}

// NewUniverse creates a Universe with the primitive set already interned.
func NewUniverse() *Universe {
	u := &Universe{
		interned:   make(map[string]Type),
		primitives: make(map[PrimitiveName]*Primitive),
	}
	for _, name := range []PrimitiveName{I32, I64, F32, F64, Bool, Void, Never, Any, AnyRef, Bytes, Null} {
		p := &Primitive{Name: name}
		u.primitives[name] = p
		u.interned[p.key()] = p
	}
	u.stringT = &StringT{}
	u.interned[u.stringT.key()] = u.stringT
	return u
}

// Primitive returns the interned Primitive for name. Panics on an unknown
// name, since the fixed primitive set is closed and this indicates a caller
// bug (typically a typo in a hand-written PrimitiveName).
func (u *Universe) Primitive(name PrimitiveName) *Primitive {
	p, ok := u.primitives[name]
	if !ok {
		panic(fmt.Sprintf("types: unknown primitive %q", name))
	}
	return p
}

// String returns the interned string type.
func (u *Universe) String() *StringT { return u.stringT }

// lookupOrStore is the single interning choke point: every Intern* method
// funnels through here so the "same key ⇒ same pointer" contract can't be
// broken by a call site that forgets to check first.
func (u *Universe) lookupOrStore(t Type) Type {
	if existing, ok := u.interned[t.key()]; ok {
		return existing
	}
	u.interned[t.key()] = t
	return t
}

// InternGenericClassInstance returns the canonical instantiation of a
// generic class with the given type arguments, interned by
// (genericSource, typeArguments*) identity.
func (u *Universe) InternGenericClassInstance(generic *Class, args []Type) *Class {
	inst := &Class{
		Name:            generic.Name,
		Module:          generic.Module,
		GenericSource:   generic,
		TypeArguments:   args,
		IsFinal:         generic.IsFinal,
		IsExtension:     generic.IsExtension,
		ConstructorType: generic.ConstructorType,
	}
	existing := u.lookupOrStore(inst)
	return existing.(*Class)
}

// InternGenericInterfaceInstance is the Interface analogue of
// InternGenericClassInstance.
func (u *Universe) InternGenericInterfaceInstance(generic *Interface, args []Type) *Interface {
	inst := &Interface{
		Name:          generic.Name,
		Module:        generic.Module,
		GenericSource: generic,
		TypeArguments: args,
	}
	existing := u.lookupOrStore(inst)
	return existing.(*Interface)
}

// InternRecord returns the canonical Record for the given fields, keyed by
// sorted (fieldName, fieldTypeId) pairs so field order at the call site
// never affects identity.
func (u *Universe) InternRecord(fields map[string]Type) *Record {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	r := &Record{Fields: make([]RecordField, len(names))}
	for i, name := range names {
		r.Fields[i] = RecordField{Name: name, Type: fields[name]}
	}
	existing := u.lookupOrStore(r)
	return existing.(*Record)
}

// NewTuple constructs a Tuple, interned by ordered element identity. Per
// spec.md 9 (an explicitly recorded open point), this is a deliberate
// deviation from the "tuples are not interned" baseline — see DESIGN.md.
func (u *Universe) NewTuple(elements []Type) *Tuple {
	t := &Tuple{Elements: elements}
	existing := u.lookupOrStore(t)
	return existing.(*Tuple)
}

// InternUnboxedTuple returns the canonical UnboxedTuple for the given
// ordered elements.
func (u *Universe) InternUnboxedTuple(elements []Type) *UnboxedTuple {
	t := &UnboxedTuple{Elements: elements}
	existing := u.lookupOrStore(t)
	return existing.(*UnboxedTuple)
}

// InternArray returns the canonical Array of element.
func (u *Universe) InternArray(element Type) *Array {
	a := &Array{Element: element}
	existing := u.lookupOrStore(a)
	return existing.(*Array)
}

// NewFunction builds a Function type. Function types are structural and
// compared by the checker via the shape of Parameters/ReturnType rather
// than by identity (a lambda's type is derived fresh at every call site),
// so unlike the other composites, Function is deliberately NOT interned.
func (u *Universe) NewFunction(params []Type, ret Type, typeParams []*TypeParameter) *Function {
	return &Function{Parameters: params, ReturnType: ret, TypeParameters: typeParams}
}

// NormalizeUnion flattens nested unions, drops `never`, dedupes by
// identity, and collapses a singleton result to its sole member — so the
// result of NormalizeUnion is never itself a *Union with one member.
func (u *Universe) NormalizeUnion(members []Type) Type {
	var flat []Type
	seen := make(map[Type]bool)
	var walk func(Type)
	walk = func(t Type) {
		if nested, ok := t.(*Union); ok {
			for _, m := range nested.Members {
				walk(m)
			}
			return
		}
		if p, ok := t.(*Primitive); ok && p.Name == Never {
			return
		}
		if !seen[t] {
			seen[t] = true
			flat = append(flat, t)
		}
	}
	for _, m := range members {
		walk(m)
	}
	if len(flat) == 0 {
		return u.Primitive(Never)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	sort.Slice(flat, func(i, j int) bool {
		return fmt.Sprintf("%p", flat[i]) < fmt.Sprintf("%p", flat[j])
	})
	un := &Union{Members: flat}
	existing := u.lookupOrStore(un)
	return existing.(*Union)
}

// NewTypeAlias interns a TypeAlias by declaration identity: re-declaring
// `distinct type X = Y` twice (impossible in valid source, but relevant to
// a checker that keeps going after errors) still yields one canonical
// alias per (module, name), matching the table's "declaration identity" key
// for TypeAlias.
func (u *Universe) NewTypeAlias(module, name string, target Type, distinct bool) *TypeAlias {
	a := &TypeAlias{Name: name, Module: module, Target: target, IsDistinct: distinct}
	existing := u.lookupOrStore(a)
	return existing.(*TypeAlias)
}

// Substitute walks t applying m (TypeParameter -> Type) and rebuilds every
// composite node through the universe's interner, so e.g. Box<T> with
// T:=i32 always equals the canonical Box<i32> obtained any other way.
// Substitute(t, nil) and Substitute(t, map[*TypeParameter]Type{}) both
// return t unchanged, per the TypeUniverse invariant.
func (u *Universe) Substitute(t Type, m map[*TypeParameter]Type) Type {
	if len(m) == 0 {
		return t
	}
	switch v := t.(type) {
	case *TypeParameter:
		if sub, ok := m[v]; ok {
			return sub
		}
		return v
	case *Class:
		if len(v.TypeArguments) == 0 {
			return v
		}
		args := make([]Type, len(v.TypeArguments))
		changed := false
		for i, a := range v.TypeArguments {
			args[i] = u.Substitute(a, m)
			if args[i] != a {
				changed = true
			}
		}
		if !changed {
			return v
		}
		src := v
		if v.GenericSource != nil {
			src = v.GenericSource
		}
		return u.InternGenericClassInstance(src, args)
	case *Interface:
		if len(v.TypeArguments) == 0 {
			return v
		}
		args := make([]Type, len(v.TypeArguments))
		changed := false
		for i, a := range v.TypeArguments {
			args[i] = u.Substitute(a, m)
			if args[i] != a {
				changed = true
			}
		}
		if !changed {
			return v
		}
		src := v
		if v.GenericSource != nil {
			src = v.GenericSource
		}
		return u.InternGenericInterfaceInstance(src, args)
	case *Function:
		params := make([]Type, len(v.Parameters))
		for i, p := range v.Parameters {
			params[i] = u.Substitute(p, m)
		}
		ret := u.Substitute(v.ReturnType, m)
		return u.NewFunction(params, ret, v.TypeParameters)
	case *Record:
		fields := make(map[string]Type, len(v.Fields))
		for _, f := range v.Fields {
			fields[f.Name] = u.Substitute(f.Type, m)
		}
		return u.InternRecord(fields)
	case *Tuple:
		elems := make([]Type, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = u.Substitute(e, m)
		}
		return u.NewTuple(elems)
	case *UnboxedTuple:
		elems := make([]Type, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = u.Substitute(e, m)
		}
		return u.InternUnboxedTuple(elems)
	case *Array:
		return u.InternArray(u.Substitute(v.Element, m))
	case *Union:
		members := make([]Type, len(v.Members))
		for i, mem := range v.Members {
			members[i] = u.Substitute(mem, m)
		}
		return u.NormalizeUnion(members)
	default:
		// Primitive, StringT, TypeAlias, Enum carry no type parameters.
		return t
	}
}

// Assignable implements the assignability rules from spec.md 3.2: identity
// first, then the structural/nominal rules in order.
func (u *Universe) Assignable(from, to Type) bool {
	if from == to {
		return true
	}

	if toUnion, ok := to.(*Union); ok {
		for _, m := range toUnion.Members {
			if u.Assignable(from, m) {
				return true
			}
		}
		// T assignable to T | null when from isn't itself a union.
	}
	if fromUnion, ok := from.(*Union); ok {
		for _, m := range fromUnion.Members {
			if !u.Assignable(m, to) {
				return false
			}
		}
		return true
	}

	if p, ok := from.(*Primitive); ok && p.Name == Never {
		return true
	}
	if p, ok := to.(*Primitive); ok && (p.Name == Any || p.Name == AnyRef) {
		return true
	}

	switch fromT := from.(type) {
	case *Class:
		if toClass, ok := to.(*Class); ok {
			return fromT.IsSubclassOf(toClass)
		}
		if toIface, ok := to.(*Interface); ok {
			return fromT.ImplementsInterface(toIface)
		}
	case *Function:
		toFunc, ok := to.(*Function)
		if !ok || len(fromT.Parameters) != len(toFunc.Parameters) {
			return false
		}
		for i := range fromT.Parameters {
			// contravariant in parameters
			if !u.Assignable(toFunc.Parameters[i], fromT.Parameters[i]) {
				return false
			}
		}
		// covariant in result
		return u.Assignable(fromT.ReturnType, toFunc.ReturnType)
	case *Enum:
		if p, ok := to.(*Primitive); ok && p.Name == I32 {
			return true
		}
	case *TypeAlias:
		if fromT.IsDistinct {
			return false // nominal: only `as` crosses the boundary
		}
		return u.Assignable(fromT.Target, to)
	}
	if toAlias, ok := to.(*TypeAlias); ok && !toAlias.IsDistinct {
		return u.Assignable(from, toAlias.Target)
	}

	return false
}
