package checker

import (
	"github.com/elematic/zena-sub002/internal/ast"
)

// scope is one frame of the lexical scope stack Phase B maintains while
// checking a function/method body (spec.md 4.4).
type scope struct {
	names map[string]*SymbolInfo
	outer *scope
}

func newScope(outer *scope) *scope {
	return &scope{names: make(map[string]*SymbolInfo), outer: outer}
}

func (s *scope) define(name string, info *SymbolInfo) {
	s.names[name] = info
}

func (s *scope) lookup(name string) (*SymbolInfo, bool) {
	for cur := s; cur != nil; cur = cur.outer {
		if info, ok := cur.names[name]; ok {
			return info, true
		}
	}
	return nil, false
}

// accessPath is the normalized key flow narrowing keys refinements by:
// a local name, optionally followed by a chain of immutable field accesses
// or compile-time-known tuple indices. Anything else (a var anywhere on the
// path, a non-constant index) has no accessPath and narrowing does not
// apply to it, per spec.md 4.4.
type accessPath string

// pathOf computes the accessPath for expr, or "" if expr is not eligible for
// narrowing (spec.md 4.4: "narrowing is path-sensitive on immutable access
// paths only").
func (fb *funcBody) pathOf(expr ast.Expr) accessPath {
	switch e := expr.(type) {
	case *ast.Ident:
		info, ok := fb.scopeStack.lookup(e.Name)
		if !ok || info.Kind == SymbolVar {
			return ""
		}
		return accessPath(e.Name)

	case *ast.MemberExpr:
		base := fb.pathOf(e.Object)
		if base == "" {
			return ""
		}
		cls, ok := fb.classOf(e.Object)
		if ok {
			for cur := cls; cur != nil; cur = cur.SuperClass {
				for _, f := range cur.Fields {
					if f.Name == e.Name {
						if f.Mutable {
							return ""
						}
						return base + "." + accessPath(e.Name)
					}
				}
			}
		}
		return ""

	case *ast.IndexExpr:
		base := fb.pathOf(e.Object)
		if base == "" {
			return ""
		}
		idx, ok := fb.constantIndex(e.Index)
		if !ok {
			return ""
		}
		return accessPath(string(base) + "#" + itoa(idx))

	default:
		return ""
	}
}

// constantIndex reports whether expr is a compile-time-known tuple index: a
// numeric literal, or a let bound to one (spec.md 4.4).
func (fb *funcBody) constantIndex(expr ast.Expr) (int, bool) {
	switch e := expr.(type) {
	case *ast.Literal:
		if e.Kind == ast.IntLit {
			if iv, ok := e.Value.(int64); ok {
				return int(iv), true
			}
		}
	case *ast.Ident:
		info, ok := fb.scopeStack.lookup(e.Name)
		if ok && info.Kind != SymbolVar {
			if lit, ok := fb.constIdentValue[e.Name]; ok {
				return lit, true
			}
		}
	}
	return 0, false
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

// flowFacts maps an accessPath to a refined Type within the branch currently
// being checked. snapshot/restore let if/else bodies diverge and then
// re-merge at the join point.
type flowFacts map[accessPath]Type

func (f flowFacts) snapshot() flowFacts {
	cp := make(flowFacts, len(f))
	for k, v := range f {
		cp[k] = v
	}
	return cp
}

// joinFlowFacts merges two branches' refinements: a path refined in both
// branches keeps its (possibly different) refinement only if both agree;
// otherwise the refinement does not survive past the join, since the two
// branches may disagree on which subtype holds.
func joinFlowFacts(a, b flowFacts) flowFacts {
	out := make(flowFacts)
	for k, v := range a {
		if bv, ok := b[k]; ok && bv == v {
			out[k] = v
		}
	}
	return out
}
