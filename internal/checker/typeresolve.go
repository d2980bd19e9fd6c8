package checker

import (
	"fmt"

	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/types"
)

// typeParamScope resolves a generic type-parameter name to its fresh
// TypeParameter node while a class/interface/function declaration's own
// members are being resolved. Declarations nest (a generic method inside a
// generic class), so scope chains to an outer one.
type typeParamScope struct {
	names map[string]*types.TypeParameter
	outer *typeParamScope
}

func (s typeParamScope) lookup(name string) (*types.TypeParameter, bool) {
	if s.names != nil {
		if p, ok := s.names[name]; ok {
			return p, true
		}
	}
	if s.outer != nil {
		return s.outer.lookup(name)
	}
	return nil, false
}

func (s typeParamScope) extend(decls []*ast.TypeParamDecl, params []*types.TypeParameter) typeParamScope {
	names := make(map[string]*types.TypeParameter, len(decls))
	for i, d := range decls {
		names[d.Name] = params[i]
	}
	outer := s
	return typeParamScope{names: names, outer: &outer}
}

func typeParamScopeFor(decls []*ast.TypeParamDecl, params []*types.TypeParameter) typeParamScope {
	return typeParamScope{}.extend(decls, params)
}

// resolveTypeExpr turns a syntactic TypeExpr into a TypeUniverse-owned Type,
// looking up named references against the module's own type table, then its
// imports, then (for generic parameters) the enclosing typeParamScope.
func (c *Checker) resolveTypeExpr(mi *moduleInfo, te ast.TypeExpr, scope typeParamScope) (Type, error) {
	switch t := te.(type) {
	case *ast.NamedTypeExpr:
		return c.resolveNamedType(mi, t, scope)

	case *ast.UnionTypeExpr:
		members := make([]Type, len(t.Members))
		for i, m := range t.Members {
			mt, err := c.resolveTypeExpr(mi, m, scope)
			if err != nil {
				return nil, err
			}
			members[i] = mt
		}
		return c.universe.NormalizeUnion(members), nil

	case *ast.NullableTypeExpr:
		inner, err := c.resolveTypeExpr(mi, t.Inner, scope)
		if err != nil {
			return nil, err
		}
		return c.universe.NormalizeUnion([]Type{inner, c.universe.Primitive(types.Null)}), nil

	case *ast.RecordTypeExpr:
		fields := make(map[string]Type, len(t.Fields))
		for _, f := range t.Fields {
			ft, err := c.resolveTypeExpr(mi, f.Type, scope)
			if err != nil {
				return nil, err
			}
			fields[f.Name] = ft
		}
		return c.universe.InternRecord(fields), nil

	case *ast.TupleTypeExpr:
		elems := make([]Type, len(t.Elements))
		for i, e := range t.Elements {
			et, err := c.resolveTypeExpr(mi, e, scope)
			if err != nil {
				return nil, err
			}
			elems[i] = et
		}
		if t.Unboxed {
			return c.universe.InternUnboxedTuple(elems), nil
		}
		return c.universe.NewTuple(elems), nil

	case *ast.ArrayTypeExpr:
		elem, err := c.resolveTypeExpr(mi, t.Element, scope)
		if err != nil {
			return nil, err
		}
		return c.universe.InternArray(elem), nil

	case *ast.FuncTypeExpr:
		params := make([]Type, len(t.Params))
		for i, p := range t.Params {
			pt, err := c.resolveTypeExpr(mi, p, scope)
			if err != nil {
				return nil, err
			}
			params[i] = pt
		}
		ret, err := c.resolveTypeExpr(mi, t.Return, scope)
		if err != nil {
			return nil, err
		}
		return c.universe.NewFunction(params, ret, nil), nil

	default:
		return nil, fmt.Errorf("unsupported type expression %T", te)
	}
}

var primitiveNames = map[string]types.PrimitiveName{
	"i32":       types.I32,
	"i64":       types.I64,
	"f32":       types.F32,
	"f64":       types.F64,
	"boolean":   types.Bool,
	"void":      types.Void,
	"never":     types.Never,
	"any":       types.Any,
	"anyref":    types.AnyRef,
	"ByteArray": types.Bytes,
}

func (c *Checker) resolveNamedType(mi *moduleInfo, t *ast.NamedTypeExpr, scope typeParamScope) (Type, error) {
	if t.Name == "string" {
		return c.universe.String(), nil
	}
	if prim, ok := primitiveNames[t.Name]; ok {
		return c.universe.Primitive(prim), nil
	}
	if p, ok := scope.lookup(t.Name); ok {
		return p, nil
	}

	base, ok := mi.types[t.Name]
	if !ok {
		base, ok = mi.importedTypes[t.Name]
	}
	if !ok {
		return nil, fmt.Errorf("unknown type %q", t.Name)
	}

	if len(t.Args) == 0 {
		return base, nil
	}
	args := make([]Type, len(t.Args))
	for i, a := range t.Args {
		at, err := c.resolveTypeExpr(mi, a, scope)
		if err != nil {
			return nil, err
		}
		args[i] = at
	}
	switch b := base.(type) {
	case *types.Class:
		return c.universe.InternGenericClassInstance(b, args), nil
	case *types.Interface:
		return c.universe.InternGenericInterfaceInstance(b, args), nil
	default:
		return nil, fmt.Errorf("%q does not accept type arguments", t.Name)
	}
}
