package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elematic/zena-sub002/internal/errors"
	"github.com/elematic/zena-sub002/internal/module"
	"github.com/elematic/zena-sub002/internal/types"
)

// memHost builds a FileHost with every prelude module registered as an empty
// file, so tests only have to supply the source under test.
func memHost() *module.FileHost {
	h := module.NewFileHost(nil, module.TargetHost)
	for _, name := range module.Prelude {
		h.RegisterVirtualFile(name, "")
	}
	return h
}

// check loads src as main.zena and runs the full two-phase Checker over it,
// returning the SemanticContext and every diagnostic produced.
func check(t *testing.T, src string) (*SemanticContext, []*errors.Diagnostic) {
	t.Helper()
	h := memHost()
	h.RegisterVirtualFile("main.zena", src)
	g := module.NewGraph(h)
	_, err := g.Load("main.zena")
	require.NoError(t, err)

	universe := types.NewUniverse()
	c := New(universe, g)
	return c.Check()
}

func codes(diags []*errors.Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func TestLetInfersTypeFromLiteral(t *testing.T) {
	_, diags := check(t, `let x = 1;`)
	assert.Empty(t, diags)
}

func TestLetDeclaredTypeMismatchReportsTC001(t *testing.T) {
	_, diags := check(t, `let x: string = 1;`)
	assert.Contains(t, codes(diags), errors.TC001)
}

func TestDuplicateTopLevelDeclarationReportsTC011(t *testing.T) {
	_, diags := check(t, `
class Point {}
class Point {}
`)
	assert.Contains(t, codes(diags), errors.TC011)
}

func TestUnknownSuperclassReportsTC009(t *testing.T) {
	_, diags := check(t, `class Shape extends Nope {}`)
	assert.Contains(t, codes(diags), errors.TC009)
}

func TestFieldRedeclarationReportsTC006(t *testing.T) {
	_, diags := check(t, `
class Base { x: i32; }
class Derived extends Base { x: i32; }
`)
	assert.Contains(t, codes(diags), errors.TC006)
}

func TestIncompatibleOverrideReportsTC007(t *testing.T) {
	_, diags := check(t, `
class Base {
  greet() -> string { return "hi"; }
}
class Derived extends Base {
  greet() -> i32 { return 1; }
}
`)
	assert.Contains(t, codes(diags), errors.TC007)
}

func TestAssignToImmutableLetReportsTC004(t *testing.T) {
	_, diags := check(t, `
f() -> void {
  let x = 1;
  x = 2;
}
`)
	assert.Contains(t, codes(diags), errors.TC004)
}

func TestAssignToVarIsAllowed(t *testing.T) {
	_, diags := check(t, `
f() -> void {
  var x = 1;
  x = 2;
}
`)
	assert.Empty(t, diags)
}

func TestMemberAccessOnUnknownPropertyReportsTC002(t *testing.T) {
	_, diags := check(t, `
class Point { x: i32; }
f(p: Point) -> i32 {
  return p.y;
}
`)
	assert.Contains(t, codes(diags), errors.TC002)
}

func TestCallArityMismatchReportsTC003(t *testing.T) {
	_, diags := check(t, `
add(a: i32, b: i32) -> i32 { return a; }
f() -> i32 {
  return add(1);
}
`)
	assert.Contains(t, codes(diags), errors.TC003)
}

func TestOverloadResolutionPicksExactMatch(t *testing.T) {
	_, diags := check(t, `
show(x: i32) -> string { return "int"; }
show(x: string) -> string { return x; }
f() -> string {
  return show("hi");
}
`)
	assert.Empty(t, diags)
}

func TestAmbiguousOverloadReportsTC008(t *testing.T) {
	_, diags := check(t, `
pick(a: any, b: any) -> void {}
pick(a: any, b: any) -> void {}
f() -> void {
  pick(1, 1);
}
`)
	assert.Contains(t, codes(diags), errors.TC008)
}

func TestCrossModuleImportBindsExportedValue(t *testing.T) {
	h := memHost()
	h.RegisterVirtualFile("util.zena", `export double(x: i32) -> i32 { return x; }`)
	h.RegisterVirtualFile("main.zena", `
import { double } from "./util";
f() -> i32 {
  return double(2);
}
`)
	g := module.NewGraph(h)
	_, err := g.Load("main.zena")
	require.NoError(t, err)

	universe := types.NewUniverse()
	c := New(universe, g)
	_, diags := c.Check()
	assert.Empty(t, diags)
}

func TestImportOfUnexportedSymbolReportsMOD003(t *testing.T) {
	h := memHost()
	h.RegisterVirtualFile("util.zena", `hidden() -> void {}`)
	h.RegisterVirtualFile("main.zena", `
import { hidden } from "./util";
`)
	g := module.NewGraph(h)
	_, err := g.Load("main.zena")
	require.NoError(t, err)

	universe := types.NewUniverse()
	c := New(universe, g)
	_, diags := c.Check()
	assert.Contains(t, codes(diags), errors.MOD003)
}

func TestGenericClassInstantiationInfersTypeArguments(t *testing.T) {
	_, diags := check(t, `
class Box<T> {
  value: T;
  #new(value: T) { this.value = value; }
}
f() -> void {
  let b = new Box(1);
}
`)
	assert.Empty(t, diags)
}

func TestNarrowingAllowsAccessAfterNullCheck(t *testing.T) {
	_, diags := check(t, `
class Point { x: i32; }
f(p: Point | null) -> i32 {
  if (p !== null) {
    return p.x;
  }
  return 0;
}
`)
	assert.Empty(t, diags)
}

func TestNarrowingViaIsExpr(t *testing.T) {
	_, diags := check(t, `
class Cat {}
class Dog {}
f(a: Cat | Dog) -> i32 {
  if (a is Cat) {
    return 1;
  }
  return 0;
}
`)
	assert.Empty(t, diags)
}

func TestSemanticContextRecordsDeclTypes(t *testing.T) {
	h := memHost()
	h.RegisterVirtualFile("main.zena", `class Point {}`)
	g := module.NewGraph(h)
	_, err := g.Load("main.zena")
	require.NoError(t, err)

	universe := types.NewUniverse()
	c := New(universe, g)
	ctx, diags := c.Check()
	require.Empty(t, diags)
	assert.NotEmpty(t, ctx.Decls)
}
