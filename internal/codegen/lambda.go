package codegen

import (
	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/types"
	"github.com/elematic/zena-sub002/internal/wasm"
)

// Top-level `let name = (...) => ...;` bindings (spec.md 8 scenarios 1, 2,
// 3, 5, 7 all declare `main`/helpers exactly this way) have no enclosing
// function scope to capture from, so they can only ever reference other
// top-level declarations — never a true closure. That lets this generator
// lower them as an ordinary declared function plus a `ref.func` global,
// without needing free-variable/capture analysis at all. Any other lambda
// (one nested inside a function body, passed as a callback, say) hits
// lowerLambda's panic.

// synthesizeLambdaFunc builds the FuncDecl a lambda-valued top-level let is
// lowered through, registering its checker-computed signature in
// g.externalSig since the checker never saw this synthetic node directly —
// it only type-checked the LambdaExpr itself (internal/checker/expr.go
// checkLambda), whose result is recovered here via exprType.
func (g *Generator) synthesizeLambdaFunc(decl *ast.LetDecl, lambda *ast.LambdaExpr) *ast.FuncDecl {
	if g.lambdaFuncs == nil {
		g.lambdaFuncs = make(map[*ast.LetDecl]*ast.FuncDecl)
	}
	if fd, ok := g.lambdaFuncs[decl]; ok {
		return fd
	}
	fd := &ast.FuncDecl{
		Name:       decl.Name,
		Params:     lambda.Params,
		ReturnType: lambda.ReturnType,
		Body:       lambdaBlockBody(lambda),
		Exported:   decl.Exported,
		Pos:        decl.Pos,
	}
	if g.externalSig == nil {
		g.externalSig = make(map[*ast.FuncDecl]*types.Function)
	}
	if sig, ok := exprType(lambda).(*types.Function); ok {
		g.externalSig[fd] = sig
	}
	g.lambdaFuncs[decl] = fd
	if g.lambdaLets == nil {
		g.lambdaLets = make(map[*ast.FuncDecl]*ast.LetDecl)
	}
	g.lambdaLets[fd] = decl
	return fd
}

// lambdaBlockBody normalizes a lambda's Body (either a statement block or,
// for an expression-bodied lambda, a bare Expr) into the *ast.BlockStmt
// lowerFuncBody/the DCE func-queue walk both already expect. The expression
// node is reused, not copied, so its checker-assigned Type() survives.
func lambdaBlockBody(lambda *ast.LambdaExpr) *ast.BlockStmt {
	switch body := lambda.Body.(type) {
	case *ast.BlockStmt:
		return body
	case ast.Expr:
		return &ast.BlockStmt{
			Stmts: []ast.Stmt{&ast.ReturnStmt{Value: body, Pos: lambda.Pos}},
			Pos:   lambda.Pos,
		}
	default:
		return &ast.BlockStmt{Pos: lambda.Pos}
	}
}

// declareLambdaGlobal lowers a lambda-valued top-level let to its declared
// function (via the ordinary declareFunction/pendingBodies machinery) plus
// a WASM global holding a ref.func producer, so a reference to the let's
// name as a bare value still resolves through lowerIdent/globalFor exactly
// like any other top-level let.
func (g *Generator) declareLambdaGlobal(decl *ast.LetDecl, lambda *ast.LambdaExpr) {
	fd := g.synthesizeLambdaFunc(decl, lambda)
	fnIdx := g.declareFunction(fd, nil, nil)

	// A function referenced via ref.func must appear in a declarative
	// element segment for the binary to validate (spec.md 6.3's last
	// bullet).
	g.emit.DeclareFunction(fnIdx)

	init := append([]byte{}, opRefFunc...)
	init = append(init, wasm.EncodeUint32(uint32(fnIdx))...)
	init = append(init, opEndIns...)

	idx := g.emit.AddGlobal(wasm.ValAnyRef, false, init)
	if g.decls != nil {
		g.decls.globals[decl.Name] = idx
	}
}
