package checker

import (
	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/types"
)

// narrow implements spec.md 4.4's flow-narrowing rules: given the condition
// of an if statement (its only caller; while conditions are not narrowed),
// it returns the refinements that hold in the true branch and in the false
// branch. Conditions this function doesn't recognize yield
// two empty fact sets (no narrowing), which is always sound.
func (fb *funcBody) narrow(cond ast.Expr) (trueFlow, falseFlow flowFacts) {
	trueFlow, falseFlow = flowFacts{}, flowFacts{}

	switch e := cond.(type) {
	case *ast.BinaryExpr:
		switch e.Op {
		case "!==", "!=":
			if path, declared := fb.nullComparisonOperand(e.Left, e.Right); path != "" {
				narrowed := subtractNull(fb.c, declared)
				trueFlow[path] = narrowed
				falseFlow[path] = fb.c.universe.Primitive(types.Null)
				return
			}
		case "===", "==":
			if path, declared := fb.nullComparisonOperand(e.Left, e.Right); path != "" {
				narrowed := subtractNull(fb.c, declared)
				falseFlow[path] = narrowed
				trueFlow[path] = fb.c.universe.Primitive(types.Null)
				return
			}
		case "&&":
			lt, lf := fb.narrow(e.Left)
			rt, rf := fb.narrow(e.Right)
			trueFlow = mergeFlow(lt, rt)
			falseFlow = joinFlowFacts(lf, rf)
			return
		case "||":
			lt, lf := fb.narrow(e.Left)
			rt, rf := fb.narrow(e.Right)
			trueFlow = joinFlowFacts(lt, rt)
			falseFlow = mergeFlow(lf, rf)
			return
		}

	case *ast.IsExpr:
		path := fb.pathOf(e.Value)
		if path == "" {
			return
		}
		target, err := fb.c.resolveTypeExpr(fb.mi, e.Type, fb.currentTypeParams)
		if err != nil {
			return
		}
		trueFlow[path] = target

		declared := e.Value.Type()
		if dt, ok := declared.(Type); ok {
			if union, ok := dt.(*types.Union); ok {
				remaining := make([]Type, 0, len(union.Members))
				for _, m := range union.Members {
					if m != target {
						remaining = append(remaining, m)
					}
				}
				falseFlow[path] = fb.c.universe.NormalizeUnion(remaining)
			}
		}
		return

	case *ast.UnaryExpr:
		if e.Op == "!" {
			t, f := fb.narrow(e.Operand)
			return f, t
		}
	}
	return
}

// nullComparisonOperand recognizes `x !== null` / `null !== x` (and the
// equality-operator variants via the caller) and returns x's accessPath plus
// its currently-known declared type.
func (fb *funcBody) nullComparisonOperand(left, right ast.Expr) (path accessPath, declared Type) {
	if isNullLiteral(right) {
		path = fb.pathOf(left)
		if path == "" {
			return "", nil
		}
		if t, ok := left.Type().(Type); ok {
			declared = t
		}
		return path, declared
	}
	if isNullLiteral(left) {
		path = fb.pathOf(right)
		if path == "" {
			return "", nil
		}
		if t, ok := right.Type().(Type); ok {
			declared = t
		}
		return path, declared
	}
	return "", nil
}

func isNullLiteral(e ast.Expr) bool {
	lit, ok := e.(*ast.Literal)
	return ok && lit.Kind == ast.NullLit
}

// subtractNull removes `null` from declared if declared is a union
// containing it, returning declared unchanged otherwise (narrowing a
// non-nullable type by "!== null" is a no-op, not an error).
func subtractNull(c *Checker, declared Type) Type {
	if declared == nil {
		return c.unknown()
	}
	union, ok := declared.(*types.Union)
	if !ok {
		return declared
	}
	remaining := make([]Type, 0, len(union.Members))
	for _, m := range union.Members {
		if p, ok := m.(*types.Primitive); !ok || p.Name != types.Null {
			remaining = append(remaining, m)
		}
	}
	return c.universe.NormalizeUnion(remaining)
}
