// Package types implements the TypeUniverse: the owner of every semantic
// Type value produced while checking a zena program. Every Type is
// identity-interned — two syntactically distinct usages that denote the
// same semantic type always resolve to the same pointer, so the checker and
// code generator can compare types with `==` instead of a structural walk.
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the variants of Type, mirroring the tagged-variant
// design spelled out for TypeUniverse.
type Kind int

const (
	KindPrimitive Kind = iota
	KindString
	KindClass
	KindInterface
	KindFunction
	KindRecord
	KindTuple
	KindUnboxedTuple
	KindArray
	KindUnion
	KindTypeAlias
	KindEnum
	KindTypeParameter
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindString:
		return "string"
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindFunction:
		return "function"
	case KindRecord:
		return "record"
	case KindTuple:
		return "tuple"
	case KindUnboxedTuple:
		return "unboxed-tuple"
	case KindArray:
		return "array"
	case KindUnion:
		return "union"
	case KindTypeAlias:
		return "alias"
	case KindEnum:
		return "enum"
	case KindTypeParameter:
		return "type-parameter"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Type is the common interface of every TypeUniverse-owned value. Identity
// (pointer) equality is the only correct equality test between two Types
// obtained from the same TypeUniverse; String is for diagnostics only.
type Type interface {
	Kind() Kind
	String() string
	key() string // canonical interning key; see TypeUniverse.intern
}

// ---------------------------------------------------------------------------
// Primitive / String
// ---------------------------------------------------------------------------

// PrimitiveName enumerates the built-in scalar and marker types.
type PrimitiveName string

const (
	I32    PrimitiveName = "i32"
	I64    PrimitiveName = "i64"
	F32    PrimitiveName = "f32"
	F64    PrimitiveName = "f64"
	Bool   PrimitiveName = "boolean"
	Void   PrimitiveName = "void"
	Never  PrimitiveName = "never"
	Any    PrimitiveName = "any"
	AnyRef PrimitiveName = "anyref"
	Bytes  PrimitiveName = "ByteArray"
	Null   PrimitiveName = "null"
)

// Primitive is one of the fixed scalar/marker kinds. Every instance is
// interned once at TypeUniverse construction; there is never more than one
// Primitive Type value per PrimitiveName.
type Primitive struct {
	Name PrimitiveName
}

func (p *Primitive) Kind() Kind     { return KindPrimitive }
func (p *Primitive) String() string { return string(p.Name) }
func (p *Primitive) key() string    { return "prim:" + string(p.Name) }

// StringT is the distinguished string primitive: a GC reference like a class
// instance, but with no field/method table of its own.
type StringT struct{}

func (s *StringT) Kind() Kind     { return KindString }
func (s *StringT) String() string { return "string" }
func (s *StringT) key() string    { return "string" }

// ---------------------------------------------------------------------------
// Class / Interface
// ---------------------------------------------------------------------------

// ClassField is one field of a Class, in declaration order.
type ClassField struct {
	Name    string
	Type    Type
	Mutable bool
}

// Class is a nominal reference type with fields, methods, an optional
// superclass, and a list of implemented interfaces.
type Class struct {
	Name          string
	Module        string
	Fields        []ClassField
	Methods       map[string]*Function
	ConstructorType *Function
	SuperClass    *Class
	Implements    []*Interface
	TypeParameters []*TypeParameter
	TypeArguments []Type // non-nil for a monomorphized instance
	GenericSource *Class // non-nil for a monomorphized instance; points at the generic declaration
	IsFinal       bool
	IsExtension   bool
	OnType        Type // set when IsExtension
}

func (c *Class) Kind() Kind { return KindClass }
func (c *Class) String() string {
	if len(c.TypeArguments) == 0 {
		return c.Name
	}
	args := make([]string, len(c.TypeArguments))
	for i, a := range c.TypeArguments {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s<%s>", c.Name, strings.Join(args, ", "))
}

func (c *Class) key() string {
	src := c
	if c.GenericSource != nil {
		src = c.GenericSource
	}
	if len(c.TypeArguments) == 0 {
		return fmt.Sprintf("class:%s.%s", src.Module, src.Name)
	}
	parts := make([]string, len(c.TypeArguments))
	for i, a := range c.TypeArguments {
		parts[i] = fmt.Sprintf("%p", a)
	}
	return fmt.Sprintf("class:%s.%s<%s>", src.Module, src.Name, strings.Join(parts, ","))
}

// IsSubclassOf reports whether c is d or a transitive subclass of d.
func (c *Class) IsSubclassOf(d *Class) bool {
	for cur := c; cur != nil; cur = cur.SuperClass {
		if cur == d {
			return true
		}
	}
	return false
}

// ImplementsInterface reports whether c transitively implements i, matching type
// arguments by identity (an instantiated generic interface only matches the
// same instantiation).
func (c *Class) ImplementsInterface(i *Interface) bool {
	for cur := c; cur != nil; cur = cur.SuperClass {
		for _, impl := range cur.Implements {
			if impl == i {
				return true
			}
			for _, parent := range impl.ParentInterfaces {
				if interfaceImplements(parent, i) {
					return true
				}
			}
		}
	}
	return false
}

func interfaceImplements(i, target *Interface) bool {
	if i == target {
		return true
	}
	for _, parent := range i.ParentInterfaces {
		if interfaceImplements(parent, target) {
			return true
		}
	}
	return false
}

// Interface is a nominal contract: a set of method signatures and
// properties a Class may implement.
type Interface struct {
	Name             string
	Module           string
	Methods          map[string]*Function
	Properties       map[string]Type
	ParentInterfaces []*Interface
	TypeParameters   []*TypeParameter
	TypeArguments    []Type
	GenericSource    *Interface
}

func (i *Interface) Kind() Kind { return KindInterface }
func (i *Interface) String() string {
	if len(i.TypeArguments) == 0 {
		return i.Name
	}
	args := make([]string, len(i.TypeArguments))
	for idx, a := range i.TypeArguments {
		args[idx] = a.String()
	}
	return fmt.Sprintf("%s<%s>", i.Name, strings.Join(args, ", "))
}

func (i *Interface) key() string {
	src := i
	if i.GenericSource != nil {
		src = i.GenericSource
	}
	if len(i.TypeArguments) == 0 {
		return fmt.Sprintf("iface:%s.%s", src.Module, src.Name)
	}
	parts := make([]string, len(i.TypeArguments))
	for idx, a := range i.TypeArguments {
		parts[idx] = fmt.Sprintf("%p", a)
	}
	return fmt.Sprintf("iface:%s.%s<%s>", src.Module, src.Name, strings.Join(parts, ","))
}

// ---------------------------------------------------------------------------
// Function
// ---------------------------------------------------------------------------

// Function is a callable signature: method, top-level function, or lambda
// type. TypeParameters is non-empty only for a generic method/function
// signature prior to instantiation.
type Function struct {
	Parameters     []Type
	ReturnType     Type
	TypeParameters []*TypeParameter
}

func (f *Function) Kind() Kind { return KindFunction }
func (f *Function) String() string {
	params := make([]string, len(f.Parameters))
	for i, p := range f.Parameters {
		params[i] = p.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(params, ", "), f.ReturnType.String())
}

func (f *Function) key() string {
	parts := make([]string, len(f.Parameters))
	for i, p := range f.Parameters {
		parts[i] = fmt.Sprintf("%p", p)
	}
	return fmt.Sprintf("func:(%s)->%p", strings.Join(parts, ","), f.ReturnType)
}

// ---------------------------------------------------------------------------
// Record / Tuple / Array
// ---------------------------------------------------------------------------

// RecordField is one member of a Record, retained in the order the universe
// canonicalized them (sorted by name) so String() is deterministic.
type RecordField struct {
	Name string
	Type Type
}

// Record is a structurally-typed, unordered set of named fields.
type Record struct {
	Fields []RecordField // sorted by Name
}

func (r *Record) Kind() Kind { return KindRecord }
func (r *Record) String() string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Type.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (r *Record) key() string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = fmt.Sprintf("%s:%p", f.Name, f.Type)
	}
	return "record:{" + strings.Join(parts, ",") + "}"
}

// Tuple is a boxed, ordered sequence of element types. The interning table
// in spec.md 3.2 lists tuples as a deliberate non-interned exception; this
// implementation deviates from that (see DESIGN.md and Universe.NewTuple)
// and interns them by ordered element identity like every other composite.
type Tuple struct {
	Elements []Type
}

func (t *Tuple) Kind() Kind { return KindTuple }
func (t *Tuple) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t *Tuple) key() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = fmt.Sprintf("%p", e)
	}
	return "tuple:(" + strings.Join(parts, ",") + ")"
}

// UnboxedTuple is a Tuple represented as raw multi-value WASM results
// instead of a heap struct. It IS interned, by ordered element identity.
type UnboxedTuple struct {
	Elements []Type
}

func (t *UnboxedTuple) Kind() Kind { return KindUnboxedTuple }
func (t *UnboxedTuple) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "inline (" + strings.Join(parts, ", ") + ")"
}

func (t *UnboxedTuple) key() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = fmt.Sprintf("%p", e)
	}
	return "unboxed-tuple:(" + strings.Join(parts, ",") + ")"
}

// Array is a mutable, fixed-length reference array.
type Array struct {
	Element Type
}

func (a *Array) Kind() Kind     { return KindArray }
func (a *Array) String() string { return a.Element.String() + "[]" }
func (a *Array) key() string    { return fmt.Sprintf("array:%p", a.Element) }

// ---------------------------------------------------------------------------
// Union / TypeAlias / Enum / TypeParameter
// ---------------------------------------------------------------------------

// Union is a normalized set of member types: flattened, deduplicated by
// identity, with `never` removed. A Union value is never a singleton — see
// TypeUniverse.NormalizeUnion, which returns the sole member directly.
type Union struct {
	Members []Type // sorted by pointer identity for a stable key/String
}

func (u *Union) Kind() Kind { return KindUnion }
func (u *Union) String() string {
	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		parts[i] = m.String()
	}
	return strings.Join(parts, " | ")
}

func (u *Union) key() string {
	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		parts[i] = fmt.Sprintf("%p", m)
	}
	return "union:{" + strings.Join(parts, ",") + "}"
}

// TypeAlias names another type. A distinct alias has its own nominal
// identity (assignment across the boundary requires an explicit `as` cast);
// a transparent alias is interchangeable with Target everywhere.
type TypeAlias struct {
	Name       string
	Module     string
	Target     Type
	IsDistinct bool
}

func (a *TypeAlias) Kind() Kind     { return KindTypeAlias }
func (a *TypeAlias) String() string { return a.Name }
func (a *TypeAlias) key() string    { return fmt.Sprintf("alias:%s.%s", a.Module, a.Name) }

// EnumMember is one discriminant of an Enum.
type EnumMember struct {
	Name        string
	Discriminant int32
}

// Enum is a closed set of named i32 discriminants, implicitly convertible
// to i32.
type Enum struct {
	Name    string
	Module  string
	Members []EnumMember
}

func (e *Enum) Kind() Kind     { return KindEnum }
func (e *Enum) String() string { return e.Name }
func (e *Enum) key() string    { return fmt.Sprintf("enum:%s.%s", e.Module, e.Name) }

// TypeParameter is a symbolic placeholder within a generic declaration.
type TypeParameter struct {
	Name    string
	Bound   Type // optional upper bound, nil means unbounded
	Default Type // optional default, used when inference can't resolve it
}

func (t *TypeParameter) Kind() Kind     { return KindTypeParameter }
func (t *TypeParameter) String() string { return t.Name }
func (t *TypeParameter) key() string    { return fmt.Sprintf("typaram:%p", t) }
