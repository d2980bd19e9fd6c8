package codegen

import (
	"fmt"
	"math"

	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/types"
	"github.com/elematic/zena-sub002/internal/wasm"
)

// exprType recovers the checker's resolved type for e, stored behind the
// untyped Type()/SetType() hook ast uses to avoid an import cycle.
func exprType(e ast.Expr) types.Type {
	if e == nil {
		return nil
	}
	if t, ok := e.Type().(types.Type); ok {
		return t
	}
	return nil
}

// lowerExpr emits code leaving exactly one wasm value on the stack (or the
// widened multi-value set for an UnboxedTuple-typed expression, per spec.md
// 4.5.4), and returns the static type the checker assigned it.
func (fb *funcBody) lowerExpr(e ast.Expr) types.Type {
	switch n := e.(type) {
	case *ast.Literal:
		return fb.lowerLiteral(n)
	case *ast.Ident:
		return fb.lowerIdent(n)
	case *ast.BinaryExpr:
		return fb.lowerBinary(n)
	case *ast.UnaryExpr:
		return fb.lowerUnary(n)
	case *ast.AssignExpr:
		return fb.lowerAssign(n)
	case *ast.CallExpr:
		return fb.lowerCall(n)
	case *ast.NewExpr:
		return fb.lowerNew(n)
	case *ast.MemberExpr:
		return fb.lowerMember(n)
	case *ast.IndexExpr:
		return fb.lowerIndex(n)
	case *ast.IsExpr:
		return fb.lowerIs(n)
	case *ast.AsExpr:
		return fb.lowerAs(n)
	case *ast.TupleExpr:
		return fb.lowerTuple(n)
	case *ast.ArrayLitExpr:
		return fb.lowerArrayLit(n)
	case *ast.BlockExpr:
		return fb.lowerBlockExpr(n)
	case *ast.IfExpr:
		return fb.lowerIfExpr(n)
	case *ast.LambdaExpr:
		return fb.lowerLambda(n)
	default:
		panic(fmt.Sprintf("codegen: unsupported expression %T", e))
	}
}

func (fb *funcBody) lowerLiteral(n *ast.Literal) types.Type {
	u := fb.g.universe
	switch n.Kind {
	case ast.IntLit:
		v, _ := n.Value.(int64)
		fb.emitBytes(opI32Const)
		fb.emitBytes(wasm.EncodeInt32(int32(v)))
		return u.Primitive(types.I32)
	case ast.FloatLit:
		v, _ := n.Value.(float64)
		fb.emitBytes(opF64Const)
		fb.emitBytes(encodeF64(v))
		return u.Primitive(types.F64)
	case ast.BoolLit:
		v, _ := n.Value.(bool)
		fb.emitBytes(opI32Const)
		if v {
			fb.emitBytes(wasm.EncodeInt32(1))
		} else {
			fb.emitBytes(wasm.EncodeInt32(0))
		}
		return u.Primitive(types.Bool)
	case ast.StringLit:
		s, _ := n.Value.(string)
		return fb.lowerStringLiteral(s)
	case ast.NullLit:
		fb.emitBytes(opRefNull)
		fb.emit(byte(wasm.ValNullRef))
		return u.Primitive(types.Void)
	default:
		panic("codegen: unknown literal kind")
	}
}

// lowerStringLiteral materializes a string constant as a passive data
// segment plus an array.new_data of its UTF-8 bytes, per spec.md 4.5.6's
// "strings are a value type backed by a byte array" representation.
func (fb *funcBody) lowerStringLiteral(s string) types.Type {
	segIdx := fb.g.emit.AddData([]byte(s))
	arrIdx := fb.g.stringArrayType()
	fb.emitBytes([]byte{0xfb, 0x08}) // array.new_data
	fb.emitBytes(wasm.EncodeUint32(uint32(arrIdx)))
	fb.emitBytes(wasm.EncodeUint32(uint32(segIdx)))
	fb.emitBytes(opI32Const)
	fb.emitBytes(wasm.EncodeInt32(0))
	fb.emitBytes(opI32Const)
	fb.emitBytes(wasm.EncodeInt32(int32(len(s))))
	return fb.g.universe.String()
}

func (fb *funcBody) lowerIdent(n *ast.Ident) types.Type {
	if idx, ok := fb.scope.lookup(n.Name); ok {
		fb.emitLocalGet(idx)
		return exprType(n)
	}
	if fb.g.ctx != nil {
		if info, ok := fb.g.ctx.Idents[n]; ok {
			if gIdx, ok := fb.g.globalFor(n.Name); ok {
				fb.emitBytes(opGlobalGet)
				fb.emitBytes(wasm.EncodeUint32(uint32(gIdx)))
				return info.Type
			}
		}
	}
	panic(fmt.Sprintf("codegen: unresolved identifier %q", n.Name))
}

func (fb *funcBody) lowerBinary(n *ast.BinaryExpr) types.Type {
	switch n.Op {
	case "&&":
		return fb.lowerShortCircuit(n, true)
	case "||":
		return fb.lowerShortCircuit(n, false)
	}

	if n.Op == "==" || n.Op == "!=" {
		return fb.lowerEquality(n)
	}

	lt := fb.lowerExpr(n.Left)
	rt := fb.lowerExpr(n.Right)

	switch n.Op {
	case "===", "!==":
		fb.emitBytes(opRefEq)
		if n.Op == "!==" {
			fb.emitBytes(opI32Eqz)
		}
		return fb.g.universe.Primitive(types.Bool)
	}

	vt := fb.g.valType(lt)
	fb.emitArithOp(n.Op, vt)
	if isComparisonOp(n.Op) {
		return fb.g.universe.Primitive(types.Bool)
	}
	return lt
}

// lowerShortCircuit implements && / || with the usual structured-control
// encoding: evaluate the left side, branch around the right side when its
// value already determines the result.
func (fb *funcBody) lowerShortCircuit(n *ast.BinaryExpr, isAnd bool) types.Type {
	fb.lowerExpr(n.Left)
	fb.emit(opIf[0])
	fb.emit(byte(wasm.ValI32))
	if isAnd {
		fb.lowerExpr(n.Right)
	} else {
		fb.emitBytes(opI32Const)
		fb.emitBytes(wasm.EncodeInt32(1))
	}
	fb.emit(opElse[0])
	if isAnd {
		fb.emitBytes(opI32Const)
		fb.emitBytes(wasm.EncodeInt32(0))
	} else {
		fb.lowerExpr(n.Right)
	}
	fb.emit(opEndIns[0])
	return fb.g.universe.Primitive(types.Bool)
}

func (fb *funcBody) lowerEquality(n *ast.BinaryExpr) types.Type {
	u := fb.g.universe
	lt := exprType(n.Left)
	rt := exprType(n.Right)

	if cls, ok := lt.(*types.Class); ok {
		if m, ok := cls.Methods["operator =="]; ok && m != nil {
			fb.lowerExpr(n.Left)
			recv := fb.newLocal(wasm.ValAnyRef)
			fb.emitLocalTeeCopy(recv)
			fb.lowerExpr(n.Right)
			fb.emitDirectOrVirtualCall(cls, "operator ==", recv)
			if n.Op == "!=" {
				fb.emit(opI32Eqz[0])
			}
			return u.Primitive(types.Bool)
		}
	}

	fb.lowerExpr(n.Left)
	fb.lowerExpr(n.Right)
	if fb.g.isRefType(lt) || fb.g.isRefType(rt) {
		fb.emitBytes(opRefEq)
		if n.Op == "!=" {
			fb.emit(opI32Eqz[0])
		}
		return u.Primitive(types.Bool)
	}
	vt := fb.g.valType(lt)
	switch vt {
	case wasm.ValF64, wasm.ValF32:
		fb.emitBytes(opF64Eq)
	default:
		fb.emitBytes(opI32Eq)
	}
	if n.Op == "!=" {
		fb.emit(opI32Eqz[0])
	}
	return u.Primitive(types.Bool)
}

func isComparisonOp(op string) bool {
	switch op {
	case "<", ">", "<=", ">=":
		return true
	}
	return false
}

func (fb *funcBody) emitArithOp(op string, vt wasm.ValType) {
	switch vt {
	case wasm.ValI64:
		switch op {
		case "+":
			fb.emitBytes(opI64Add)
		case "-":
			fb.emitBytes(opI64Sub)
		case "*":
			fb.emitBytes(opI64Mul)
		default:
			panic(fmt.Sprintf("codegen: unsupported i64 operator %q", op))
		}
	case wasm.ValF64, wasm.ValF32:
		switch op {
		case "+":
			fb.emitBytes(opF64Add)
		case "-":
			fb.emitBytes(opF64Sub)
		case "*":
			fb.emitBytes(opF64Mul)
		case "/":
			fb.emitBytes(opF64Div)
		case "<":
			fb.emitBytes(opF64Lt)
		case ">":
			fb.emitBytes(opF64Gt)
		case "<=":
			fb.emitBytes(opF64Le)
		case ">=":
			fb.emitBytes(opF64Ge)
		default:
			panic(fmt.Sprintf("codegen: unsupported f64 operator %q", op))
		}
	default:
		switch op {
		case "+":
			fb.emitBytes(opI32Add)
		case "-":
			fb.emitBytes(opI32Sub)
		case "*":
			fb.emitBytes(opI32Mul)
		case "/":
			fb.emitBytes(opI32DivS)
		case "%":
			fb.emitBytes(opI32RemS)
		case "&":
			fb.emitBytes(opI32And)
		case "|":
			fb.emitBytes(opI32Or)
		case "^":
			fb.emitBytes(opI32Xor)
		case "<<":
			fb.emitBytes(opI32Shl)
		case ">>":
			fb.emitBytes(opI32ShrS)
		case ">>>":
			fb.emitBytes(opI32ShrU)
		case "<":
			fb.emitBytes(opI32LtS)
		case ">":
			fb.emitBytes(opI32GtS)
		case "<=":
			fb.emitBytes(opI32LeS)
		case ">=":
			fb.emitBytes(opI32GeS)
		default:
			panic(fmt.Sprintf("codegen: unsupported i32 operator %q", op))
		}
	}
}

func (fb *funcBody) lowerUnary(n *ast.UnaryExpr) types.Type {
	t := fb.lowerExpr(n.Operand)
	switch n.Op {
	case "-":
		vt := fb.g.valType(t)
		if vt == wasm.ValF64 {
			// operand already on stack; reorder via a local would be
			// needed for a true subtraction, so negate by multiplying.
			fb.emitBytes(opF64Const)
			fb.emitBytes(encodeF64(-1))
			fb.emitBytes(opF64Mul)
		} else {
			fb.emitBytes(opI32Const)
			fb.emitBytes(wasm.EncodeInt32(-1))
			fb.emitBytes(opI32Mul)
		}
		return t
	case "!":
		fb.emitBytes(opI32Eqz)
		return t
	case "~":
		fb.emitBytes(opI32Const)
		fb.emitBytes(wasm.EncodeInt32(-1))
		fb.emitBytes(opI32Xor)
		return t
	default:
		panic(fmt.Sprintf("codegen: unsupported unary operator %q", n.Op))
	}
}

func (fb *funcBody) lowerAssign(n *ast.AssignExpr) types.Type {
	switch target := n.Target.(type) {
	case *ast.Ident:
		vt := fb.lowerExpr(n.Value)
		if idx, ok := fb.scope.lookup(target.Name); ok {
			fb.emitLocalTeeCopy(idx)
			return vt
		}
		panic(fmt.Sprintf("codegen: assignment to unresolved identifier %q", target.Name))
	case *ast.MemberExpr:
		return fb.lowerFieldAssign(target, n.Value)
	case *ast.IndexExpr:
		return fb.lowerIndexAssign(target, n.Value)
	default:
		panic(fmt.Sprintf("codegen: unsupported assignment target %T", n.Target))
	}
}

func (fb *funcBody) emitLocalTeeCopy(idx int) {
	fb.emitBytes(opLocalTee)
	fb.emitBytes(wasm.EncodeUint32(uint32(idx)))
}

func (fb *funcBody) lowerFieldAssign(target *ast.MemberExpr, value ast.Expr) types.Type {
	objType := fb.lowerExpr(target.Object)
	cls, ok := objType.(*types.Class)
	if !ok {
		panic(fmt.Sprintf("codegen: field assignment on non-class type %s", objType))
	}
	layout := fb.g.layout.ensureClassLayout(cls)
	fieldIdx := -1
	for i, f := range layout.fields {
		if f.name == target.Name {
			fieldIdx = i + 1 // slot 0 is the vtable pointer
			break
		}
	}
	if fieldIdx < 0 {
		panic(fmt.Sprintf("codegen: class %s has no field %q", cls.String(), target.Name))
	}
	vt := fb.lowerExpr(value)
	fb.emitBytes(opStructSet)
	fb.emitBytes(wasm.EncodeUint32(uint32(layout.structIdx)))
	fb.emitBytes(wasm.EncodeUint32(uint32(fieldIdx)))
	return vt
}

func (fb *funcBody) lowerIndexAssign(target *ast.IndexExpr, value ast.Expr) types.Type {
	objType := fb.lowerExpr(target.Object)
	if arr, ok := objType.(*types.Array); ok {
		fb.lowerExpr(target.Index)
		vt := fb.lowerExpr(value)
		arrIdx := fb.g.layout.arrayTypeFor(arr)
		fb.emitBytes(opArraySet)
		fb.emitBytes(wasm.EncodeUint32(uint32(arrIdx)))
		return vt
	}
	if cls, ok := objType.(*types.Class); ok {
		recv := fb.newLocal(wasm.ValAnyRef)
		fb.emitLocalTeeCopy(recv)
		fb.lowerExpr(target.Index)
		vt := fb.lowerExpr(value)
		fb.emitDirectOrVirtualCall(cls, "operator []=", recv)
		return vt
	}
	panic(fmt.Sprintf("codegen: indexed assignment on unsupported type %s", objType))
}

func (fb *funcBody) lowerCall(n *ast.CallExpr) types.Type {
	switch callee := n.Callee.(type) {
	case *ast.MemberExpr:
		objType := fb.lowerExpr(callee.Object)
		recv := fb.newLocal(wasm.ValAnyRef)
		fb.emitLocalTeeCopy(recv)
		for _, a := range n.Args {
			fb.lowerExpr(a)
		}
		return fb.lowerMethodDispatch(objType, callee.Name, recv)
	case *ast.Ident:
		for _, a := range n.Args {
			fb.lowerExpr(a)
		}
		return fb.lowerFreeFunctionCall(callee)
	default:
		panic(fmt.Sprintf("codegen: unsupported call target %T", n.Callee))
	}
}

func (fb *funcBody) lowerFreeFunctionCall(callee *ast.Ident) types.Type {
	decl, sig, ok := fb.g.resolveFuncIdent(callee.Name)
	if !ok {
		panic(fmt.Sprintf("codegen: unresolved function %q", callee.Name))
	}
	key := funcKey{decl: decl}
	idx, ok := fb.g.funcIndex[key]
	if !ok {
		idx = fb.g.declareFunction(decl, nil, nil)
	}
	fb.emitBytes(opCall)
	fb.emitBytes(wasm.EncodeUint32(uint32(idx)))
	if sig != nil {
		return sig.ReturnType
	}
	return fb.g.universe.Primitive(types.Void)
}

func (fb *funcBody) lowerMethodDispatch(objType types.Type, name string, recv int) types.Type {
	cls, ok := objType.(*types.Class)
	if !ok {
		panic(fmt.Sprintf("codegen: method dispatch on non-class type %s", objType))
	}
	fb.emitDirectOrVirtualCall(cls, name, recv)
	if m, ok := cls.Methods[name]; ok && m != nil {
		return m.ReturnType
	}
	return fb.g.universe.Primitive(types.Void)
}

// emitDirectOrVirtualCall dispatches name given the receiver held in the
// scratch local recv and its args already pushed on the stack: a direct call
// when cls itself is final, or a struct.get of the vtable slot followed by
// call_ref otherwise, per spec.md 4.5.6. A final or never-overridden method
// of a non-final class is still dispatched through the vtable.
func (fb *funcBody) emitDirectOrVirtualCall(cls *types.Class, name string, recv int) {
	layout := fb.g.layout.ensureClassLayout(cls)
	if cls.IsFinal {
		if fnIdx, ok := layout.methodFn[name]; ok {
			fb.emitBytes(opCall)
			fb.emitBytes(wasm.EncodeUint32(uint32(fnIdx)))
			return
		}
	}
	slot := -1
	for i, m := range layout.methodOrder {
		if m == name {
			slot = i
			break
		}
	}
	if slot < 0 {
		panic(fmt.Sprintf("codegen: class %s has no vtable slot for method %q", cls.String(), name))
	}
	fb.emitLocalGet(recv)
	fb.emitBytes(opStructGet)
	fb.emitBytes(wasm.EncodeUint32(uint32(layout.structIdx)))
	fb.emitBytes(wasm.EncodeUint32(0)) // slot 0 holds the vtable pointer
	fb.emitBytes(opStructGet)
	fb.emitBytes(wasm.EncodeUint32(uint32(layout.vtableTypeIdx)))
	fb.emitBytes(wasm.EncodeUint32(uint32(slot)))
	fb.emitBytes(opCallRef)
	fb.emitBytes(wasm.EncodeUint32(uint32(layout.vtableTypeIdx)))
}

func (fb *funcBody) lowerNew(n *ast.NewExpr) types.Type {
	cls := fb.g.resolveNewClass(n)
	layout := fb.g.layout.ensureClassLayout(cls)

	fb.emitBytes(opGlobalGet)
	fb.emitBytes(wasm.EncodeUint32(uint32(layout.vtableGlobal)))
	for _, f := range layout.fields {
		fb.emitZeroValue(f.typ)
	}
	fb.emitBytes(opStructNew)
	fb.emitBytes(wasm.EncodeUint32(uint32(layout.structIdx)))

	if ctor, ok := layout.methodFn["#new"]; ok {
		scratch := fb.newLocal(wasm.ValAnyRef)
		fb.emitLocalTeeCopy(scratch)
		fb.emitLocalGet(scratch)
		for _, a := range n.Args {
			fb.lowerExpr(a)
		}
		fb.emitBytes(opCall)
		fb.emitBytes(wasm.EncodeUint32(uint32(ctor)))
		fb.emitLocalGet(scratch)
	}
	return cls
}

func (fb *funcBody) emitZeroValue(t types.Type) {
	vt := fb.g.valType(t)
	switch vt {
	case wasm.ValI32:
		fb.emitBytes(opI32Const)
		fb.emitBytes(wasm.EncodeInt32(0))
	case wasm.ValI64:
		fb.emitBytes(opI64Const)
		fb.emitBytes(wasm.EncodeInt64(0))
	case wasm.ValF64, wasm.ValF32:
		fb.emitBytes(opF64Const)
		fb.emitBytes(encodeF64(0))
	default:
		fb.emitBytes(opRefNull)
		fb.emit(byte(wasm.ValNullRef))
	}
}

func (fb *funcBody) lowerMember(n *ast.MemberExpr) types.Type {
	objType := fb.lowerExpr(n.Object)
	cls, ok := objType.(*types.Class)
	if !ok {
		panic(fmt.Sprintf("codegen: field access on non-class type %s", objType))
	}
	layout := fb.g.layout.ensureClassLayout(cls)
	for i, f := range layout.fields {
		if f.name == n.Name {
			fb.emitBytes(opStructGet)
			fb.emitBytes(wasm.EncodeUint32(uint32(layout.structIdx)))
			fb.emitBytes(wasm.EncodeUint32(uint32(i + 1))) // slot 0 is the vtable pointer
			return f.typ
		}
	}
	panic(fmt.Sprintf("codegen: class %s has no field %q", cls.String(), n.Name))
}

func (fb *funcBody) lowerIndex(n *ast.IndexExpr) types.Type {
	objType := fb.lowerExpr(n.Object)
	if arr, ok := objType.(*types.Array); ok {
		fb.lowerExpr(n.Index)
		arrIdx := fb.g.layout.arrayTypeFor(arr)
		fb.emitBytes(opArrayGet)
		fb.emitBytes(wasm.EncodeUint32(uint32(arrIdx)))
		return arr.Element
	}
	if _, ok := objType.(*types.Class); ok {
		recv := fb.newLocal(wasm.ValAnyRef)
		fb.emitLocalTeeCopy(recv)
		fb.lowerExpr(n.Index)
		return fb.lowerMethodDispatch(objType, "operator []", recv)
	}
	panic(fmt.Sprintf("codegen: indexed access on unsupported type %s", objType))
}

func (fb *funcBody) lowerIs(n *ast.IsExpr) types.Type {
	fb.lowerExpr(n.Value)
	typeIdx := fb.g.layout.structIdxForTypeExpr(n.Type)
	fb.emitBytes(opRefTest)
	fb.emitBytes(wasm.EncodeInt32(0)) // non-null ref.test
	fb.emitBytes(wasm.EncodeUint32(uint32(typeIdx)))
	return fb.g.universe.Primitive(types.Bool)
}

func (fb *funcBody) lowerAs(n *ast.AsExpr) types.Type {
	t := fb.lowerExpr(n.Value)
	typeIdx := fb.g.layout.structIdxForTypeExpr(n.Type)
	fb.emitBytes(opRefCast)
	fb.emitBytes(wasm.EncodeInt32(0))
	fb.emitBytes(wasm.EncodeUint32(uint32(typeIdx)))
	return t
}

// lowerTuple emits an unboxed tuple's elements directly onto the operand
// stack (spec.md 4.5.4) or a boxed tuple as a struct.new, depending on
// n.Unboxed.
func (fb *funcBody) lowerTuple(n *ast.TupleExpr) types.Type {
	elemTypes := make([]types.Type, len(n.Elements))
	for i, el := range n.Elements {
		elemTypes[i] = fb.lowerExpr(el)
	}
	if n.Unboxed {
		return fb.g.universe.InternUnboxedTuple(elemTypes)
	}
	tupIdx := fb.g.layout.tupleStructFor(elemTypes)
	fb.emitBytes(opStructNew)
	fb.emitBytes(wasm.EncodeUint32(uint32(tupIdx)))
	return fb.g.universe.NewTuple(elemTypes)
}

func (fb *funcBody) lowerArrayLit(n *ast.ArrayLitExpr) types.Type {
	var elemType types.Type = fb.g.universe.Primitive(types.Void)
	for _, el := range n.Elements {
		elemType = fb.lowerExpr(el)
	}
	arrType := fb.g.universe.InternArray(elemType)
	arrIdx := fb.g.layout.arrayTypeFor(arrType)
	fb.emitBytes(opArrayNew)
	fb.emitBytes(wasm.EncodeUint32(uint32(arrIdx)))
	fb.emitBytes(wasm.EncodeUint32(uint32(len(n.Elements))))
	return arrType
}

func (fb *funcBody) lowerBlockExpr(n *ast.BlockExpr) types.Type {
	for _, s := range n.Stmts {
		if err := fb.lowerStmt(s); err != nil {
			panic(err)
		}
	}
	if n.Result != nil {
		return fb.lowerExpr(n.Result)
	}
	return fb.g.universe.Primitive(types.Void)
}

func (fb *funcBody) lowerIfExpr(n *ast.IfExpr) types.Type {
	fb.lowerExpr(n.Cond)
	resultType := exprType(n)
	if resultType == nil {
		resultType = fb.g.universe.Primitive(types.Void)
	}
	results := fb.g.resultTypes(resultType)
	fb.emit(opIf[0])
	fb.emitBlockType(results)
	fb.lowerExpr(n.Then)
	fb.emit(opElse[0])
	fb.lowerExpr(n.Else)
	fb.emit(opEndIns[0])
	return resultType
}

// emitBlockType writes the block-type immediate for a structured
// block/loop/if: 0x40 for no result, the value type for one result, or,
// for several results, the index of a function type with those results.
func (fb *funcBody) emitBlockType(results []wasm.ValType) {
	switch len(results) {
	case 0:
		fb.emit(0x40)
	case 1:
		fb.emit(byte(results[0]))
	default:
		typeIdx := fb.g.emit.AddType(nil, results, wasm.AddTypeOptions{})
		fb.emitBytes(wasm.EncodeInt32(int32(typeIdx)))
	}
}

func (fb *funcBody) lowerLambda(n *ast.LambdaExpr) types.Type {
	// Every lambda that reaches expression lowering panics, whether or not
	// it captures outer locals. Lambda-valued top-level lets never get here:
	// declareGlobal lowers them through declareLambdaGlobal (lambda.go).
	panic("codegen: lambda expressions are lowered only as top-level let initializers")
}

func encodeF64(v float64) []byte {
	bits := math.Float64bits(v)
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(bits >> (8 * i))
	}
	return out
}
