package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitivesAreInterned(t *testing.T) {
	u := NewUniverse()
	assert.Same(t, u.Primitive(I32), u.Primitive(I32))
	assert.NotSame(t, u.Primitive(I32), u.Primitive(I64))
}

func TestUnknownPrimitivePanics(t *testing.T) {
	u := NewUniverse()
	assert.Panics(t, func() { u.Primitive(PrimitiveName("nope")) })
}

func TestInternGenericClassInstanceIdentity(t *testing.T) {
	u := NewUniverse()
	boxT := &TypeParameter{Name: "T"}
	generic := &Class{Name: "Box", Module: "main", TypeParameters: []*TypeParameter{boxT}}

	a := u.InternGenericClassInstance(generic, []Type{u.Primitive(I32)})
	b := u.InternGenericClassInstance(generic, []Type{u.Primitive(I32)})
	c := u.InternGenericClassInstance(generic, []Type{u.Primitive(I64)})

	assert.Same(t, a, b, "Box<i32> instantiated twice must be the same pointer")
	assert.NotSame(t, a, c)
}

func TestInternRecordOrderIndependent(t *testing.T) {
	u := NewUniverse()
	r1 := u.InternRecord(map[string]Type{"x": u.Primitive(I32), "y": u.Primitive(F64)})
	r2 := u.InternRecord(map[string]Type{"y": u.Primitive(F64), "x": u.Primitive(I32)})
	assert.Same(t, r1, r2)
	assert.Equal(t, "{x: i32, y: f64}", r1.String())
}

func TestNewTupleInternedByElements(t *testing.T) {
	u := NewUniverse()
	a := u.NewTuple([]Type{u.Primitive(I32), u.String()})
	b := u.NewTuple([]Type{u.Primitive(I32), u.String()})
	c := u.NewTuple([]Type{u.String(), u.Primitive(I32)})
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestNewFunctionIsNotInterned(t *testing.T) {
	u := NewUniverse()
	f1 := u.NewFunction([]Type{u.Primitive(I32)}, u.Primitive(Bool), nil)
	f2 := u.NewFunction([]Type{u.Primitive(I32)}, u.Primitive(Bool), nil)
	assert.NotSame(t, f1, f2, "Function is structural, not interned")
	assert.Equal(t, f1.String(), f2.String())
}

func TestNormalizeUnionFlattensDropsNeverDedupesAndCollapses(t *testing.T) {
	u := NewUniverse()
	i32 := u.Primitive(I32)
	boolT := u.Primitive(Bool)
	never := u.Primitive(Never)

	nested := u.NormalizeUnion([]Type{i32, boolT})
	result := u.NormalizeUnion([]Type{nested, never, i32})

	union, ok := result.(*Union)
	require.True(t, ok)
	assert.Len(t, union.Members, 2)

	collapsed := u.NormalizeUnion([]Type{i32, i32, never})
	assert.Same(t, i32, collapsed, "a singleton result must collapse to its sole member")
}

func TestSubstituteRebuildsThroughInterner(t *testing.T) {
	u := NewUniverse()
	tp := &TypeParameter{Name: "T"}
	generic := &Class{Name: "Box", Module: "main", TypeParameters: []*TypeParameter{tp}}
	boxOfT := u.InternGenericClassInstance(generic, []Type{tp})

	subst := u.Substitute(boxOfT, map[*TypeParameter]Type{tp: u.Primitive(I32)})
	boxOfI32 := u.InternGenericClassInstance(generic, []Type{u.Primitive(I32)})
	assert.Same(t, boxOfI32, subst)

	assert.Same(t, boxOfT, u.Substitute(boxOfT, nil))
}

func TestAssignableClassHierarchy(t *testing.T) {
	u := NewUniverse()
	animal := &Class{Name: "Animal", Module: "main"}
	dog := &Class{Name: "Dog", Module: "main", SuperClass: animal}
	pettable := &Interface{Name: "Pettable", Module: "main"}
	animal.Implements = []*Interface{pettable}

	assert.True(t, u.Assignable(dog, animal))
	assert.False(t, u.Assignable(animal, dog))
	assert.True(t, u.Assignable(dog, pettable), "Dog inherits Animal's interface")
}

func TestAssignableUnions(t *testing.T) {
	u := NewUniverse()
	i32 := u.Primitive(I32)
	boolT := u.Primitive(Bool)
	nullT := u.Primitive(Null)
	nullable := u.NormalizeUnion([]Type{i32, nullT})

	assert.True(t, u.Assignable(i32, nullable))
	assert.True(t, u.Assignable(nullT, nullable))
	assert.False(t, u.Assignable(boolT, nullable))

	wider := u.NormalizeUnion([]Type{i32, boolT, nullT})
	assert.True(t, u.Assignable(nullable, wider), "every member of the narrower union must be assignable to the wider one")
}

func TestAssignableNeverAndAny(t *testing.T) {
	u := NewUniverse()
	never := u.Primitive(Never)
	any := u.Primitive(Any)
	boxT := &Class{Name: "Box", Module: "main"}

	assert.True(t, u.Assignable(never, boxT))
	assert.True(t, u.Assignable(boxT, any))
}

func TestAssignableFunctionVariance(t *testing.T) {
	u := NewUniverse()
	animal := &Class{Name: "Animal", Module: "main"}
	dog := &Class{Name: "Dog", Module: "main", SuperClass: animal}

	// (Animal) -> Dog assignable to (Dog) -> Animal: contravariant params, covariant return.
	from := u.NewFunction([]Type{animal}, dog, nil)
	to := u.NewFunction([]Type{dog}, animal, nil)
	assert.True(t, u.Assignable(from, to))
	assert.False(t, u.Assignable(to, from))
}

func TestAssignableEnumToI32(t *testing.T) {
	u := NewUniverse()
	enum := &Enum{Name: "Color", Module: "main", Members: []EnumMember{{Name: "Red", Discriminant: 0}}}
	assert.True(t, u.Assignable(enum, u.Primitive(I32)))
}

func TestAssignableDistinctAliasBlocksImplicitCrossing(t *testing.T) {
	u := NewUniverse()
	i32 := u.Primitive(I32)
	userId := u.NewTypeAlias("main", "UserId", i32, true)
	transparent := u.NewTypeAlias("main", "Count", i32, false)

	assert.False(t, u.Assignable(i32, userId), "distinct alias is nominal; only `as` crosses")
	assert.False(t, u.Assignable(userId, i32))
	assert.True(t, u.Assignable(i32, transparent), "transparent alias forwards to its target")
	assert.True(t, u.Assignable(transparent, i32))
}

func TestNewTypeAliasInternedByDeclarationIdentity(t *testing.T) {
	u := NewUniverse()
	a := u.NewTypeAlias("main", "UserId", u.Primitive(I32), true)
	b := u.NewTypeAlias("main", "UserId", u.Primitive(I32), true)
	assert.Same(t, a, b)
}
