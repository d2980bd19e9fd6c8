// Package parser implements a recursive-descent parser for zena source,
// producing the ast.File node set the checker and code generator consume.
//
// The grammar itself is not part of the compiler's specified contract (the
// checker only requires an elaborated AST); this parser exists so the rest
// of the pipeline has a real producer to exercise end to end.
package parser

import (
	"fmt"

	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/errors"
	"github.com/elematic/zena-sub002/internal/lexer"
)

// Parser turns a token stream into an ast.File.
type Parser struct {
	l         *lexer.Lexer
	file      string
	curToken  lexer.Token
	peekToken lexer.Token
	errs      []error
}

// New creates a parser reading from l.
func New(l *lexer.Lexer, file string) *Parser {
	p := &Parser{l: l, file: file}
	p.next()
	p.next()
	return p
}

// Errors returns the parse errors accumulated so far.
func (p *Parser) Errors() []error { return p.errs }

func (p *Parser) next() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) pos() ast.Pos {
	return ast.Pos{File: p.file, Line: p.curToken.Line, Column: p.curToken.Column, Offset: p.curToken.Offset}
}

func (p *Parser) curIs(tt lexer.TokenType) bool  { return p.curToken.Type == tt }
func (p *Parser) peekIs(tt lexer.TokenType) bool { return p.peekToken.Type == tt }

// parserSnapshot captures enough state to undo any number of next() calls,
// used where the grammar is ambiguous beyond one token of lookahead (e.g.
// telling a lambda parameter list apart from a parenthesized expression).
type parserSnapshot struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errCount  int
}

func (p *Parser) snapshot() parserSnapshot {
	return parserSnapshot{l: p.l.Clone(), curToken: p.curToken, peekToken: p.peekToken, errCount: len(p.errs)}
}

func (p *Parser) restore(s parserSnapshot) {
	p.l = s.l
	p.curToken = s.curToken
	p.peekToken = s.peekToken
	p.errs = p.errs[:s.errCount]
}

func (p *Parser) expect(tt lexer.TokenType) bool {
	if p.curIs(tt) {
		p.next()
		return true
	}
	p.errorf(errors.PAR001, "expected %s, got %s (%q)", tt, p.curToken.Type, p.curToken.Literal)
	return false
}

func (p *Parser) errorf(code, format string, args ...interface{}) {
	p.errs = append(p.errs, newParserError(code, fmt.Sprintf(format, args...), p.pos(), p.curToken))
}

// recover advances past the current statement/declaration boundary after an
// error, so the parser reports one diagnostic per malformed construct rather
// than cascading, per spec.md 4.7/7.
func (p *Parser) recover() {
	for !p.curIs(lexer.EOF) && !p.curIs(lexer.SEMICOLON) && !p.curIs(lexer.RBRACE) {
		p.next()
	}
	if p.curIs(lexer.SEMICOLON) {
		p.next()
	}
}

// ParseFile parses a complete source file.
func (p *Parser) ParseFile() *ast.File {
	f := &ast.File{Path: p.file, Pos: p.pos()}

	for !p.curIs(lexer.EOF) {
		switch p.curToken.Type {
		case lexer.IMPORT:
			f.Imports = append(f.Imports, p.parseImport())
		case lexer.EXPORT:
			if p.peekIs(lexer.STAR) {
				f.Exports = append(f.Exports, p.parseExportStar())
				break
			}
			if decl, exp := p.parseExportedDecl(); decl != nil {
				f.Decls = append(f.Decls, decl)
			} else if exp != nil {
				f.Exports = append(f.Exports, exp)
			} else {
				p.recover()
			}
		default:
			if d := p.parseDecl(false); d != nil {
				f.Decls = append(f.Decls, d)
			} else {
				p.recover()
			}
		}
	}
	return f
}

func (p *Parser) parseImport() *ast.ImportDecl {
	pos := p.pos()
	p.next() // consume 'import'

	imp := &ast.ImportDecl{Pos: pos}

	if p.curIs(lexer.LBRACE) {
		p.next()
		for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
			name := p.curToken.Literal
			p.expect(lexer.IDENT)
			alias := name
			if p.curIs(lexer.AS) {
				p.next()
				alias = p.curToken.Literal
				p.expect(lexer.IDENT)
			}
			imp.Symbols = append(imp.Symbols, ast.ImportedSymbol{Name: name, Alias: alias})
			if p.curIs(lexer.COMMA) {
				p.next()
			}
		}
		p.expect(lexer.RBRACE)
		if p.curIs(lexer.FROM) {
			p.next()
		}
	}

	if p.curIs(lexer.STRING) {
		imp.Specifier = p.curToken.Literal
		p.next()
	} else {
		p.errorf(errors.PAR005, "expected module specifier string in import")
	}

	if p.curIs(lexer.SEMICOLON) {
		p.next()
	}
	return imp
}

// parseExportStar parses `export * from "spec"`.
func (p *Parser) parseExportStar() *ast.ExportDecl {
	pos := p.pos()
	p.next() // 'export'
	p.next() // '*'
	exp := &ast.ExportDecl{Star: true, Pos: pos}
	if p.curIs(lexer.FROM) {
		p.next()
	}
	exp.FromSpecifier = p.curToken.Literal
	p.expect(lexer.STRING)
	if p.curIs(lexer.SEMICOLON) {
		p.next()
	}
	return exp
}

// parseExportedDecl parses `export <decl>` or `export { a, b } from "spec"`
// (ParseFile routes `export *` to parseExportStar). Exactly one of the two
// return values is non-nil (both nil signals a parse error already recorded).
func (p *Parser) parseExportedDecl() (ast.Decl, *ast.ExportDecl) {
	pos := p.pos()
	p.next() // consume 'export'

	if p.curIs(lexer.LBRACE) {
		p.next()
		exp := &ast.ExportDecl{Pos: pos}
		for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
			name := p.curToken.Literal
			p.expect(lexer.IDENT)
			exp.Symbols = append(exp.Symbols, ast.ImportedSymbol{Name: name, Alias: name})
			if p.curIs(lexer.COMMA) {
				p.next()
			}
		}
		p.expect(lexer.RBRACE)
		if p.curIs(lexer.FROM) {
			p.next()
			exp.FromSpecifier = p.curToken.Literal
			p.expect(lexer.STRING)
		}
		if p.curIs(lexer.SEMICOLON) {
			p.next()
		}
		return nil, exp
	}

	d := p.parseDecl(true)
	return d, nil
}

func (p *Parser) parseDecl(exported bool) ast.Decl {
	switch p.curToken.Type {
	case lexer.CLASS, lexer.FINAL, lexer.EXTENSION:
		return p.parseClassDecl(exported)
	case lexer.INTERFACE:
		return p.parseInterfaceDecl(exported)
	case lexer.MIXIN:
		return p.parseMixinDecl(exported)
	case lexer.ENUM:
		return p.parseEnumDecl(exported)
	case lexer.TYPE, lexer.DISTINCT:
		return p.parseTypeAliasDecl(exported)
	case lexer.LET, lexer.VAR:
		return p.parseLetDecl(exported)
	case lexer.IDENT:
		// top-level function: `name(params) -> T { ... }`
		return p.parseTopLevelFunc(exported)
	default:
		p.errorf(errors.PAR001, "unexpected token at top level: %s", p.curToken.Type)
		return nil
	}
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

func (p *Parser) parseClassDecl(exported bool) *ast.ClassDecl {
	pos := p.pos()
	isFinal := false
	isExtension := false
	if p.curIs(lexer.FINAL) {
		isFinal = true
		p.next()
	}
	if p.curIs(lexer.EXTENSION) {
		isExtension = true
		p.next()
	}
	if !p.expect(lexer.CLASS) {
		return nil
	}
	name := p.curToken.Literal
	p.expect(lexer.IDENT)

	c := &ast.ClassDecl{Name: name, IsFinal: isFinal, IsExtension: isExtension, Exported: exported, Pos: pos}
	c.TypeParams = p.parseOptionalTypeParams()

	if isExtension && p.curIs(lexer.ON) {
		p.next()
		c.OnType = p.parseTypeExpr()
	}
	if p.curIs(lexer.EXTENDS) {
		p.next()
		c.SuperClass = p.parseTypeExpr()
	}
	if p.curIs(lexer.IMPLEMENTS) {
		p.next()
		c.Implements = append(c.Implements, p.parseTypeExpr())
		for p.curIs(lexer.COMMA) {
			p.next()
			c.Implements = append(c.Implements, p.parseTypeExpr())
		}
	}

	p.expect(lexer.LBRACE)
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		p.parseClassMember(c)
	}
	p.expect(lexer.RBRACE)
	return c
}

func (p *Parser) parseClassMember(c *ast.ClassDecl) {
	isStatic := false
	isFinal := false
	mutable := false
	for p.curIs(lexer.STATIC) || p.curIs(lexer.FINAL) || p.curIs(lexer.VAR) || p.curIs(lexer.LET) {
		switch p.curToken.Type {
		case lexer.STATIC:
			isStatic = true
		case lexer.FINAL:
			isFinal = true
		case lexer.VAR:
			mutable = true
		case lexer.LET:
			mutable = false
		}
		p.next()
	}

	if p.curIs(lexer.HASH) {
		// constructor: #new(params) { body }
		pos := p.pos()
		p.next()
		if !(p.curIs(lexer.IDENT) && p.curToken.Literal == "new") {
			p.errorf(errors.PAR003, "expected 'new' after '#'")
			p.recover()
			return
		}
		p.next()
		fn := &ast.FuncDecl{Name: "#new", IsConstructor: true, Pos: pos}
		fn.Params = p.parseParamList()
		fn.Body = p.parseBlockStmt()
		c.Methods = append(c.Methods, fn)
		return
	}

	if p.curIs(lexer.OPERATOR) {
		pos := p.pos()
		p.next()
		opLit := p.curToken.Literal
		if p.curIs(lexer.LBRACKET) {
			p.next()
			opLit = "[]"
			if p.curIs(lexer.RBRACKET) {
				p.next()
			}
			if p.curIs(lexer.ASSIGN) {
				opLit = "[]="
				p.next()
			}
		} else {
			p.next()
		}
		fn := &ast.FuncDecl{Name: "operator " + opLit, Operator: opLit, IsStatic: isStatic, IsFinal: isFinal, Pos: pos}
		fn.Params = p.parseParamList()
		if p.curIs(lexer.ARROW) {
			p.next()
			fn.ReturnType = p.parseTypeExpr()
		}
		fn.Body = p.parseBlockStmt()
		c.Methods = append(c.Methods, fn)
		return
	}

	name := p.curToken.Literal
	pos := p.pos()
	p.expect(lexer.IDENT)

	if p.curIs(lexer.LPAREN) {
		fn := &ast.FuncDecl{Name: name, IsStatic: isStatic, IsFinal: isFinal, Pos: pos}
		fn.TypeParams = p.parseOptionalTypeParams()
		fn.Params = p.parseParamList()
		if p.curIs(lexer.ARROW) {
			p.next()
			fn.ReturnType = p.parseTypeExpr()
		}
		fn.Body = p.parseBlockStmt()
		c.Methods = append(c.Methods, fn)
		return
	}

	// field: `name: Type;` or `name: Type = default;` (mutability is `var name`)
	field := &ast.FieldDecl{Name: name, Mutable: mutable, Pos: pos}
	if p.curIs(lexer.COLON) {
		p.next()
		field.Type = p.parseTypeExpr()
	}
	if p.curIs(lexer.ASSIGN) {
		p.next()
		field.Default = p.parseExpr(LOWEST)
	}
	if p.curIs(lexer.SEMICOLON) {
		p.next()
	}
	c.Fields = append(c.Fields, field)
}

func (p *Parser) parseInterfaceDecl(exported bool) *ast.InterfaceDecl {
	pos := p.pos()
	p.expect(lexer.INTERFACE)
	name := p.curToken.Literal
	p.expect(lexer.IDENT)

	i := &ast.InterfaceDecl{Name: name, Exported: exported, Pos: pos}
	i.TypeParams = p.parseOptionalTypeParams()
	if p.curIs(lexer.EXTENDS) {
		p.next()
		i.ParentInterfaces = append(i.ParentInterfaces, p.parseTypeExpr())
		for p.curIs(lexer.COMMA) {
			p.next()
			i.ParentInterfaces = append(i.ParentInterfaces, p.parseTypeExpr())
		}
	}
	p.expect(lexer.LBRACE)
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		mpos := p.pos()
		mname := p.curToken.Literal
		p.expect(lexer.IDENT)
		if p.curIs(lexer.LPAREN) {
			fn := &ast.FuncDecl{Name: mname, Pos: mpos}
			fn.Params = p.parseParamList()
			if p.curIs(lexer.ARROW) {
				p.next()
				fn.ReturnType = p.parseTypeExpr()
			}
			if p.curIs(lexer.SEMICOLON) {
				p.next()
			}
			i.Methods = append(i.Methods, fn)
		} else {
			field := &ast.FieldDecl{Name: mname, Pos: mpos}
			if p.curIs(lexer.COLON) {
				p.next()
				field.Type = p.parseTypeExpr()
			}
			if p.curIs(lexer.SEMICOLON) {
				p.next()
			}
			i.Properties = append(i.Properties, field)
		}
	}
	p.expect(lexer.RBRACE)
	return i
}

func (p *Parser) parseMixinDecl(exported bool) *ast.MixinDecl {
	pos := p.pos()
	p.expect(lexer.MIXIN)
	name := p.curToken.Literal
	p.expect(lexer.IDENT)
	m := &ast.MixinDecl{Name: name, Exported: exported, Pos: pos}
	p.expect(lexer.LBRACE)
	tmp := &ast.ClassDecl{}
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		p.parseClassMember(tmp)
	}
	p.expect(lexer.RBRACE)
	m.Fields = tmp.Fields
	m.Methods = tmp.Methods
	return m
}

func (p *Parser) parseEnumDecl(exported bool) *ast.EnumDecl {
	pos := p.pos()
	p.expect(lexer.ENUM)
	name := p.curToken.Literal
	p.expect(lexer.IDENT)
	e := &ast.EnumDecl{Name: name, Exported: exported, Pos: pos}
	p.expect(lexer.LBRACE)
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		mpos := p.pos()
		mname := p.curToken.Literal
		p.expect(lexer.IDENT)
		member := &ast.EnumMember{Name: mname, Pos: mpos}
		if p.curIs(lexer.ASSIGN) {
			p.next()
			member.Value = p.parseExpr(LOWEST)
		}
		e.Members = append(e.Members, member)
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RBRACE)
	return e
}

func (p *Parser) parseTypeAliasDecl(exported bool) *ast.TypeAliasDecl {
	pos := p.pos()
	distinct := false
	if p.curIs(lexer.DISTINCT) {
		distinct = true
		p.next()
	}
	p.expect(lexer.TYPE)
	name := p.curToken.Literal
	p.expect(lexer.IDENT)
	t := &ast.TypeAliasDecl{Name: name, IsDistinct: distinct, Exported: exported, Pos: pos}
	t.TypeParams = p.parseOptionalTypeParams()
	p.expect(lexer.ASSIGN)
	t.Target = p.parseTypeExpr()
	if p.curIs(lexer.SEMICOLON) {
		p.next()
	}
	return t
}

func (p *Parser) parseLetDecl(exported bool) *ast.LetDecl {
	pos := p.pos()
	mutable := p.curIs(lexer.VAR)
	p.next() // let/var
	name := p.curToken.Literal
	p.expect(lexer.IDENT)
	l := &ast.LetDecl{Name: name, Mutable: mutable, Exported: exported, Pos: pos}
	if p.curIs(lexer.COLON) {
		p.next()
		l.Type = p.parseTypeExpr()
	}
	p.expect(lexer.ASSIGN)
	l.Value = p.parseExpr(LOWEST)
	if p.curIs(lexer.SEMICOLON) {
		p.next()
	}
	return l
}

// parseTopLevelFunc parses the bare `name(params) -> T { ... }` function
// declaration form. Function-valued lets (`export let main = () => 42;`)
// are handled by parseLetDecl; a top-level identifier not followed by `(`
// is reported as an error.
func (p *Parser) parseTopLevelFunc(exported bool) ast.Decl {
	pos := p.pos()
	name := p.curToken.Literal
	p.next()
	if p.curIs(lexer.LPAREN) {
		fn := &ast.FuncDecl{Name: name, Exported: exported, Pos: pos}
		fn.Params = p.parseParamList()
		if p.curIs(lexer.ARROW) {
			p.next()
			fn.ReturnType = p.parseTypeExpr()
		}
		fn.Body = p.parseBlockStmt()
		return fn
	}
	p.errorf(errors.PAR001, "expected declaration, got identifier %q", name)
	return nil
}

func (p *Parser) parseOptionalTypeParams() []*ast.TypeParamDecl {
	if !p.curIs(lexer.LT) {
		return nil
	}
	p.next()
	var params []*ast.TypeParamDecl
	for !p.curIs(lexer.GT) && !p.curIs(lexer.EOF) {
		pos := p.pos()
		name := p.curToken.Literal
		p.expect(lexer.IDENT)
		tp := &ast.TypeParamDecl{Name: name, Pos: pos}
		if p.curIs(lexer.EXTENDS) {
			p.next()
			tp.Bound = p.parseTypeExpr()
		}
		if p.curIs(lexer.ASSIGN) {
			p.next()
			tp.Default = p.parseTypeExpr()
		}
		params = append(params, tp)
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.GT)
	return params
}

func (p *Parser) parseParamList() []*ast.ParamDecl {
	p.expect(lexer.LPAREN)
	var params []*ast.ParamDecl
	for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
		pos := p.pos()
		name := p.curToken.Literal
		p.expect(lexer.IDENT)
		param := &ast.ParamDecl{Name: name, Pos: pos}
		if p.curIs(lexer.COLON) {
			p.next()
			param.Type = p.parseTypeExpr()
		}
		if p.curIs(lexer.ASSIGN) {
			p.next()
			param.Default = p.parseExpr(LOWEST)
		}
		params = append(params, param)
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RPAREN)
	return params
}
