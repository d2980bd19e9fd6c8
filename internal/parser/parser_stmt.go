package parser

import (
	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/errors"
	"github.com/elematic/zena-sub002/internal/lexer"
)

// parseBlockStmt parses a `{ ... }` statement block.
func (p *Parser) parseBlockStmt() *ast.BlockStmt {
	pos := p.pos()
	p.expect(lexer.LBRACE)
	b := &ast.BlockStmt{Pos: pos}
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		if s := p.parseStmt(); s != nil {
			b.Stmts = append(b.Stmts, s)
		}
	}
	p.expect(lexer.RBRACE)
	return b
}

// parseStmtOrTrailingExpr parses one element of a block used in expression
// position. A bare expression statement with no following ';' before '}' is
// the block's trailing result and is returned as the second value instead of
// being wrapped in an ExprStmt.
func (p *Parser) parseStmtOrTrailingExpr() (ast.Stmt, ast.Expr) {
	switch p.curToken.Type {
	case lexer.LET, lexer.VAR:
		return p.parseLocalLet(), nil
	case lexer.IF:
		return p.parseIfStmtOrNil()
	case lexer.WHILE:
		return p.parseWhileStmt(), nil
	case lexer.FOR:
		return p.parseForStmt(), nil
	case lexer.RETURN:
		return p.parseReturnStmt(), nil
	case lexer.BREAK:
		pos := p.pos()
		p.next()
		if p.curIs(lexer.SEMICOLON) {
			p.next()
		}
		return &ast.BreakStmt{Pos: pos}, nil
	case lexer.CONTINUE:
		pos := p.pos()
		p.next()
		if p.curIs(lexer.SEMICOLON) {
			p.next()
		}
		return &ast.ContinueStmt{Pos: pos}, nil
	case lexer.THROW:
		return p.parseThrowStmt(), nil
	case lexer.TRY:
		return p.parseTryStmt(), nil
	default:
		pos := p.pos()
		e := p.parseExpr(LOWEST)
		if p.curIs(lexer.SEMICOLON) {
			p.next()
			return &ast.ExprStmt{Expr: e, Pos: pos}, nil
		}
		if p.curIs(lexer.RBRACE) {
			return nil, e
		}
		return &ast.ExprStmt{Expr: e, Pos: pos}, nil
	}
}

// parseStmt parses one statement within a pure statement block (no trailing
// expression rule applies: an expression left without ';' before '}' is
// wrapped in a plain ExprStmt). A missing ';' is not reported as an error.
func (p *Parser) parseStmt() ast.Stmt {
	s, trailing := p.parseStmtOrTrailingExpr()
	if trailing != nil {
		pos := trailing.Position()
		return &ast.ExprStmt{Expr: trailing, Pos: pos}
	}
	return s
}

// parseIfStmtOrNil parses `if` in statement position. Because `if` can also
// appear in expression position, this always returns an IfStmt; callers in
// expression context use parseIfExpr directly instead.
func (p *Parser) parseIfStmtOrNil() (ast.Stmt, ast.Expr) {
	pos := p.pos()
	p.next() // 'if'
	p.expect(lexer.LPAREN)
	cond := p.parseExpr(LOWEST)
	p.expect(lexer.RPAREN)
	then := p.parseBlockStmt()
	var elseStmt ast.Stmt
	if p.curIs(lexer.ELSE) {
		p.next()
		if p.curIs(lexer.IF) {
			s, _ := p.parseIfStmtOrNil()
			elseStmt = s
		} else {
			elseStmt = p.parseBlockStmt()
		}
	}
	return &ast.IfStmt{Cond: cond, Then: then, Else: elseStmt, Pos: pos}, nil
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	pos := p.pos()
	p.next() // 'while'
	p.expect(lexer.LPAREN)
	cond := p.parseExpr(LOWEST)
	p.expect(lexer.RPAREN)
	body := p.parseBlockStmt()
	return &ast.WhileStmt{Cond: cond, Body: body, Pos: pos}
}

// parseForStmt parses the C-style `for (init; cond; update) { ... }` form,
// the only form the checker's flow analysis needs to model (spec.md 4.5.7
// treats iteration over Sequence/Iterator via library calls, not syntax).
func (p *Parser) parseForStmt() ast.Stmt {
	pos := p.pos()
	p.next() // 'for'
	p.expect(lexer.LPAREN)

	f := &ast.ForStmt{Pos: pos}
	if !p.curIs(lexer.SEMICOLON) {
		f.Init = p.parseStmt()
	} else {
		p.next()
	}
	if !p.curIs(lexer.SEMICOLON) {
		f.Cond = p.parseExpr(LOWEST)
	}
	p.expect(lexer.SEMICOLON)
	if !p.curIs(lexer.RPAREN) {
		pos := p.pos()
		e := p.parseExpr(LOWEST)
		f.Update = &ast.ExprStmt{Expr: e, Pos: pos}
	}
	p.expect(lexer.RPAREN)
	f.Body = p.parseBlockStmt()
	return f
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	pos := p.pos()
	p.next() // 'return'
	r := &ast.ReturnStmt{Pos: pos}
	if !p.curIs(lexer.SEMICOLON) && !p.curIs(lexer.RBRACE) {
		r.Value = p.parseExpr(LOWEST)
	}
	if p.curIs(lexer.SEMICOLON) {
		p.next()
	}
	return r
}

func (p *Parser) parseThrowStmt() ast.Stmt {
	pos := p.pos()
	p.next() // 'throw'
	t := &ast.ThrowStmt{Pos: pos}
	t.Value = p.parseExpr(LOWEST)
	if p.curIs(lexer.SEMICOLON) {
		p.next()
	}
	return t
}

func (p *Parser) parseTryStmt() ast.Stmt {
	pos := p.pos()
	p.next() // 'try'
	t := &ast.TryStmt{Pos: pos}
	t.Body = p.parseBlockStmt()
	if p.curIs(lexer.CATCH) {
		p.next()
		if p.curIs(lexer.LPAREN) {
			p.next()
			t.CatchName = p.curToken.Literal
			p.expect(lexer.IDENT)
			p.expect(lexer.RPAREN)
		}
		t.CatchBody = p.parseBlockStmt()
	} else {
		p.errorf(errors.PAR007, "expected 'catch' after 'try' block")
	}
	return t
}

// parseLocalLet parses a local `let`/`var` statement, including the tuple
// destructuring form `let (a, b) = expr`.
func (p *Parser) parseLocalLet() ast.Stmt {
	pos := p.pos()
	mutable := p.curIs(lexer.VAR)
	p.next() // let/var

	if p.curIs(lexer.LPAREN) {
		pat := p.parseTuplePattern()
		p.expect(lexer.ASSIGN)
		value := p.parseExpr(LOWEST)
		if p.curIs(lexer.SEMICOLON) {
			p.next()
		}
		return &ast.LetStmt{Pattern: pat, Mutable: mutable, Value: value, Pos: pos}
	}

	name := p.curToken.Literal
	p.expect(lexer.IDENT)
	l := &ast.LetStmt{Name: name, Mutable: mutable, Pos: pos}
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

func (p *Parser) parseTuplePattern() *ast.TuplePattern {
	pos := p.pos()
	p.expect(lexer.LPAREN)
	pat := &ast.TuplePattern{Pos: pos}
	for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
		pat.Names = append(pat.Names, p.curToken.Literal)
		p.expect(lexer.IDENT)
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RPAREN)
	return pat
}
