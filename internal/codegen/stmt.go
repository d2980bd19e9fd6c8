package codegen

import (
	"fmt"

	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/types"
	"github.com/elematic/zena-sub002/internal/wasm"
)

func (fb *funcBody) lowerStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.ExprStmt:
		t := fb.lowerExpr(n.Expr)
		fb.dropIfValued(t)
		return nil
	case *ast.LetStmt:
		return fb.lowerLet(n)
	case *ast.ReturnStmt:
		return fb.lowerReturn(n)
	case *ast.IfStmt:
		return fb.lowerIfStmt(n)
	case *ast.WhileStmt:
		return fb.lowerWhile(n)
	case *ast.ForStmt:
		return fb.lowerFor(n)
	case *ast.BreakStmt:
		return fb.lowerBreak(n)
	case *ast.ContinueStmt:
		return fb.lowerContinue(n)
	case *ast.ThrowStmt:
		return fb.lowerThrow(n)
	case *ast.TryStmt:
		return fb.lowerTry(n)
	case *ast.BlockStmt:
		for _, inner := range n.Stmts {
			if err := fb.lowerStmt(inner); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("codegen: unsupported statement %T", s)
	}
}

// dropIfValued discards an expression-statement's result unless it is void,
// since a bare call used as a statement still leaves its result on the
// operand stack.
func (fb *funcBody) dropIfValued(t types.Type) {
	if p, ok := t.(*types.Primitive); ok && p.Name == types.Void {
		return
	}
	fb.emitBytes(opDrop)
}

func (fb *funcBody) lowerLet(n *ast.LetStmt) error {
	if n.Pattern != nil {
		return fb.lowerLetPattern(n)
	}
	vt := fb.lowerExpr(n.Value)
	idx := fb.newLocal(fb.g.valType(vt))
	fb.scope.define(n.Name, idx)
	fb.emitLocalSet(idx)
	return nil
}

func (fb *funcBody) lowerLetPattern(n *ast.LetStmt) error {
	tp, ok := n.Pattern.(*ast.TuplePattern)
	if !ok {
		return fmt.Errorf("codegen: unsupported let pattern %T", n.Pattern)
	}
	vt := fb.lowerExpr(n.Value)
	ut, ok := vt.(*types.UnboxedTuple)
	if !ok {
		return fmt.Errorf("codegen: tuple pattern destructures a non-unboxed-tuple value %s", vt)
	}
	if len(ut.Elements) != len(tp.Names) {
		return fmt.Errorf("codegen: tuple pattern arity mismatch: %d names, %d values", len(tp.Names), len(ut.Elements))
	}
	// Values are on the stack in order elem0..elemN-1, so the top of stack
	// is the last element; pop in reverse to bind names in declared order
	// (spec.md 4.5.4).
	locals := make([]int, len(tp.Names))
	for i := len(tp.Names) - 1; i >= 0; i-- {
		idx := fb.newLocal(fb.g.valType(ut.Elements[i]))
		locals[i] = idx
		fb.emitLocalSet(idx)
	}
	for i, name := range tp.Names {
		fb.scope.define(name, locals[i])
	}
	return nil
}

func (fb *funcBody) lowerReturn(n *ast.ReturnStmt) error {
	if n.Value == nil {
		fb.emitBytes(opReturn)
		return nil
	}
	declared := fb.sig.ReturnType
	fb.lowerExprAdapted(n.Value, declared)
	fb.emitBytes(opReturn)
	return nil
}

// lowerExprAdapted lowers e and boxes/upcasts its value to declared when the
// expression's static type is narrower, per spec.md 4.5.3/4.5.5's return-
// site adaptation rule.
func (fb *funcBody) lowerExprAdapted(e ast.Expr, declared types.Type) types.Type {
	actual := fb.lowerExpr(e)
	if declared == nil || actual == declared {
		return actual
	}
	if iface, ok := declared.(*types.Interface); ok {
		if cls, ok := actual.(*types.Class); ok {
			// The value is already on the stack; adaptToInterface expects
			// its producer bytes, so splice by replaying through a scratch
			// local instead of re-lowering (avoids duplicate side effects).
			scratch := fb.newLocal(wasm.ValAnyRef)
			fb.emitLocalSet(scratch)
			wrapped := fb.g.adaptToInterface(iface, cls, append(opLocalGet, wasm.EncodeUint32(uint32(scratch))...))
			fb.emitBytes(wrapped)
			return declared
		}
	}
	if fb.g.isRefType(declared) && !fb.g.isRefType(actual) {
		vt := fb.g.valType(actual)
		scratch := fb.newLocal(vt)
		fb.emitLocalSet(scratch)
		boxed := fb.g.boxPrimitive(vt, append(opLocalGet, wasm.EncodeUint32(uint32(scratch))...))
		fb.emitBytes(boxed)
		return declared
	}
	return actual
}

func (fb *funcBody) lowerIfStmt(n *ast.IfStmt) error {
	fb.lowerExpr(n.Cond)
	fb.emit(opIf[0])
	fb.emit(0x40) // statement-position if has no result
	fb.enterBlock()
	if err := fb.lowerStmt(n.Then); err != nil {
		return err
	}
	fb.exitBlock()
	if n.Else != nil {
		fb.emit(opElse[0])
		fb.enterBlock()
		if err := fb.lowerStmt(n.Else); err != nil {
			return err
		}
		fb.exitBlock()
	}
	fb.emit(opEndIns[0])
	return nil
}

func (fb *funcBody) lowerWhile(n *ast.WhileStmt) error {
	base := fb.blockDepth
	fb.enterBlock() // outer (break target)
	fb.emit(opBlock[0])
	fb.emit(0x40)
	fb.enterBlock() // loop (continue target)
	fb.emit(opLoop[0])
	fb.emit(0x40)

	fb.loopStack = append(fb.loopStack, loopTarget{bodyDepth: fb.blockDepth, continueOffset: 0, breakOffset: 1})

	fb.lowerExpr(n.Cond)
	fb.emitBytes(opI32Eqz)
	fb.emitBytes(opBrIf)
	fb.emitBytes(wasm.EncodeUint32(1))

	if err := fb.lowerStmt(n.Body); err != nil {
		return err
	}

	fb.loopStack = fb.loopStack[:len(fb.loopStack)-1]

	fb.emitBytes(opBr)
	fb.emitBytes(wasm.EncodeUint32(0))
	fb.emit(opEndIns[0]) // end loop
	fb.exitBlock()
	fb.emit(opEndIns[0]) // end outer block
	fb.exitBlock()
	if fb.blockDepth != base {
		return fmt.Errorf("codegen: internal error: block depth mismatch after while")
	}
	return nil
}

func (fb *funcBody) lowerFor(n *ast.ForStmt) error {
	base := fb.blockDepth
	if n.Init != nil {
		if err := fb.lowerStmt(n.Init); err != nil {
			return err
		}
	}

	fb.enterBlock() // outer (break target)
	fb.emit(opBlock[0])
	fb.emit(0x40)
	fb.enterBlock() // loop
	fb.emit(opLoop[0])
	fb.emit(0x40)

	if n.Cond != nil {
		fb.lowerExpr(n.Cond)
		fb.emitBytes(opI32Eqz)
		fb.emitBytes(opBrIf)
		fb.emitBytes(wasm.EncodeUint32(1))
	}

	fb.enterBlock() // body wrapper (continue target)
	fb.emit(opBlock[0])
	fb.emit(0x40)

	fb.loopStack = append(fb.loopStack, loopTarget{bodyDepth: fb.blockDepth, continueOffset: 0, breakOffset: 2})

	if err := fb.lowerStmt(n.Body); err != nil {
		return err
	}

	fb.loopStack = fb.loopStack[:len(fb.loopStack)-1]

	fb.emit(opEndIns[0]) // end body wrapper
	fb.exitBlock()

	if n.Update != nil {
		if err := fb.lowerStmt(n.Update); err != nil {
			return err
		}
	}

	fb.emitBytes(opBr)
	fb.emitBytes(wasm.EncodeUint32(0))
	fb.emit(opEndIns[0]) // end loop
	fb.exitBlock()
	fb.emit(opEndIns[0]) // end outer block
	fb.exitBlock()
	if fb.blockDepth != base {
		return fmt.Errorf("codegen: internal error: block depth mismatch after for")
	}
	return nil
}

func (fb *funcBody) enterBlock() { fb.blockDepth++ }
func (fb *funcBody) exitBlock()  { fb.blockDepth-- }

func (fb *funcBody) lowerBreak(n *ast.BreakStmt) error {
	if len(fb.loopStack) == 0 {
		return fmt.Errorf("codegen: break outside a loop")
	}
	lt := fb.loopStack[len(fb.loopStack)-1]
	depth := (fb.blockDepth - lt.bodyDepth) + lt.breakOffset
	fb.emitBytes(opBr)
	fb.emitBytes(wasm.EncodeUint32(uint32(depth)))
	return nil
}

func (fb *funcBody) lowerContinue(n *ast.ContinueStmt) error {
	if len(fb.loopStack) == 0 {
		return fmt.Errorf("codegen: continue outside a loop")
	}
	lt := fb.loopStack[len(fb.loopStack)-1]
	depth := (fb.blockDepth - lt.bodyDepth) + lt.continueOffset
	fb.emitBytes(opBr)
	fb.emitBytes(wasm.EncodeUint32(uint32(depth)))
	return nil
}

func (fb *funcBody) lowerThrow(n *ast.ThrowStmt) error {
	vt := fb.lowerExpr(n.Value)
	tagIdx := fb.g.exceptionTagFor(vt)
	fb.emitBytes(opThrow)
	fb.emitBytes(wasm.EncodeUint32(uint32(tagIdx)))
	return nil
}

// lowerTry emits a try/catch_all block (opcodes 0x06/0x19): the catch
// clause binds whatever was thrown (boxed as anyref) to the catch name, or
// drops it when there is none. catch_all handles every exception that
// reaches it; no rethrow is emitted.
func (fb *funcBody) lowerTry(n *ast.TryStmt) error {
	fb.emit(0x06) // try
	fb.emit(0x40)
	fb.enterBlock()
	if err := fb.lowerStmt(n.Body); err != nil {
		return err
	}
	fb.exitBlock()
	fb.emit(0x19) // catch_all
	fb.enterBlock()
	if n.CatchName != "" {
		idx := fb.newLocal(wasm.ValAnyRef)
		fb.scope.define(n.CatchName, idx)
		fb.emitLocalSet(idx)
	} else {
		fb.emitBytes(opDrop)
	}
	if err := fb.lowerStmt(n.CatchBody); err != nil {
		return err
	}
	fb.exitBlock()
	fb.emit(opEndIns[0])
	return nil
}
