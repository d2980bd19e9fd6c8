package parser

import (
	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/errors"
	"github.com/elematic/zena-sub002/internal/lexer"
)

// Precedence levels for the Pratt expression parser. spec.md 4.5.6 requires
// shift operators to sit strictly between additive and relational, which is
// mirrored in lexer.Token.Precedence and here.
const (
	LOWEST = iota
	ASSIGN_PREC
	NULLISH
	LOGIC_OR
	LOGIC_AND
	EQUALITY
	RELATIONAL
	SHIFT
	ADDITIVE
	MULTIPLICATIVE
	UNARY
	CALL
)

func precedenceOf(tt lexer.TokenType) int {
	switch tt {
	case lexer.ASSIGN, lexer.PLUSEQ, lexer.MINUSEQ, lexer.STAREQ, lexer.SLASHEQ:
		return ASSIGN_PREC
	case lexer.QQ:
		return NULLISH
	case lexer.OR:
		return LOGIC_OR
	case lexer.AND:
		return LOGIC_AND
	case lexer.EQ, lexer.NEQ, lexer.SEQ, lexer.SNEQ:
		return EQUALITY
	case lexer.LT, lexer.GT, lexer.LTE, lexer.GTE, lexer.IS, lexer.AS:
		return RELATIONAL
	case lexer.SHL, lexer.SHR, lexer.USHR:
		return SHIFT
	case lexer.PLUS, lexer.MINUS:
		return ADDITIVE
	case lexer.STAR, lexer.SLASH, lexer.PERCENT:
		return MULTIPLICATIVE
	case lexer.LPAREN, lexer.DOT, lexer.LBRACKET:
		return CALL
	default:
		return LOWEST
	}
}

// parseExpr is a standard precedence-climbing expression parser: it keeps
// consuming infix/postfix operators as long as their precedence exceeds
// minPrec, so right-recursive calls pass the current operator's own
// precedence to enforce left-associativity.
func (p *Parser) parseExpr(minPrec int) ast.Expr {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}

	for {
		prec := precedenceOf(p.curToken.Type)
		if prec == LOWEST || prec <= minPrec {
			break
		}

		switch p.curToken.Type {
		case lexer.LPAREN:
			left = p.parseCallTail(left)
		case lexer.DOT:
			left = p.parseMemberTail(left)
		case lexer.LBRACKET:
			left = p.parseIndexTail(left)
		case lexer.IS:
			left = p.parseIsTail(left)
		case lexer.AS:
			left = p.parseAsTail(left)
		case lexer.ASSIGN, lexer.PLUSEQ, lexer.MINUSEQ, lexer.STAREQ, lexer.SLASHEQ:
			left = p.parseAssignTail(left)
		default:
			left = p.parseBinaryTail(left, prec)
		}
	}
	return left
}

func (p *Parser) parsePrefix() ast.Expr {
	pos := p.pos()
	switch p.curToken.Type {
	case lexer.NOT, lexer.MINUS:
		op := p.curToken.Literal
		p.next()
		operand := p.parseExpr(UNARY)
		return &ast.UnaryExpr{Op: op, Operand: operand, Prefix: true, Pos: pos}
	case lexer.INT:
		lit := p.curToken.Literal
		p.next()
		return &ast.Literal{Kind: ast.IntLit, Value: lit, Pos: pos}
	case lexer.FLOAT:
		lit := p.curToken.Literal
		p.next()
		return &ast.Literal{Kind: ast.FloatLit, Value: lit, Pos: pos}
	case lexer.STRING:
		lit := p.curToken.Literal
		p.next()
		return &ast.Literal{Kind: ast.StringLit, Value: lit, Pos: pos}
	case lexer.TRUE:
		p.next()
		return &ast.Literal{Kind: ast.BoolLit, Value: true, Pos: pos}
	case lexer.FALSE:
		p.next()
		return &ast.Literal{Kind: ast.BoolLit, Value: false, Pos: pos}
	case lexer.NULL:
		p.next()
		return &ast.Literal{Kind: ast.NullLit, Value: nil, Pos: pos}
	case lexer.THIS:
		p.next()
		return &ast.Ident{Name: "this", Pos: pos}
	case lexer.SUPER:
		p.next()
		return &ast.Ident{Name: "super", Pos: pos}
	case lexer.IDENT:
		name := p.curToken.Literal
		p.next()
		return &ast.Ident{Name: name, Pos: pos}
	case lexer.NEW:
		return p.parseNewExpr()
	case lexer.LPAREN:
		return p.parseParenOrTupleOrLambda()
	case lexer.LBRACKET:
		return p.parseArrayLit()
	case lexer.LBRACE:
		return p.parseBlockAsExpr()
	case lexer.IF:
		return p.parseIfExpr()
	default:
		p.errorf(errors.PAR001, "unexpected token in expression: %s (%q)", p.curToken.Type, p.curToken.Literal)
		p.next()
		return nil
	}
}

func (p *Parser) parseBinaryTail(left ast.Expr, prec int) ast.Expr {
	pos := p.pos()
	op := p.curToken.Literal
	p.next()
	right := p.parseExpr(prec)
	return &ast.BinaryExpr{Left: left, Op: op, Right: right, Pos: pos}
}

func (p *Parser) parseAssignTail(target ast.Expr) ast.Expr {
	pos := p.pos()
	op := p.curToken.Literal
	p.next()
	value := p.parseExpr(ASSIGN_PREC - 1)
	return &ast.AssignExpr{Target: target, Op: op, Value: value, Pos: pos}
}

func (p *Parser) parseIsTail(left ast.Expr) ast.Expr {
	pos := p.pos()
	p.next()
	t := p.parseTypeExpr()
	return &ast.IsExpr{Value: left, Type: t, Pos: pos}
}

func (p *Parser) parseAsTail(left ast.Expr) ast.Expr {
	pos := p.pos()
	p.next()
	t := p.parseTypeExpr()
	return &ast.AsExpr{Value: left, Type: t, Pos: pos}
}

func (p *Parser) parseCallTail(callee ast.Expr) ast.Expr {
	pos := p.pos()
	args := p.parseArgList()
	return &ast.CallExpr{Callee: callee, Args: args, Pos: pos}
}

func (p *Parser) parseArgList() []ast.Expr {
	p.expect(lexer.LPAREN)
	var args []ast.Expr
	for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
		args = append(args, p.parseExpr(LOWEST))
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RPAREN)
	return args
}

func (p *Parser) parseMemberTail(obj ast.Expr) ast.Expr {
	pos := p.pos()
	p.next() // '.'
	name := p.curToken.Literal
	p.expect(lexer.IDENT)
	return &ast.MemberExpr{Object: obj, Name: name, Pos: pos}
}

func (p *Parser) parseIndexTail(obj ast.Expr) ast.Expr {
	pos := p.pos()
	p.next() // '['
	idx := p.parseExpr(LOWEST)
	p.expect(lexer.RBRACKET)
	return &ast.IndexExpr{Object: obj, Index: idx, Pos: pos}
}

func (p *Parser) parseNewExpr() ast.Expr {
	pos := p.pos()
	p.next() // 'new'
	name := p.curToken.Literal
	p.expect(lexer.IDENT)
	n := &ast.NewExpr{ClassName: name, Pos: pos}
	if p.curIs(lexer.LT) {
		n.TypeArgs = p.parseTypeArgList()
	}
	n.Args = p.parseArgList()
	return n
}

func (p *Parser) parseTypeArgList() []ast.TypeExpr {
	p.next() // '<'
	var args []ast.TypeExpr
	for !p.curIs(lexer.GT) && !p.curIs(lexer.EOF) {
		args = append(args, p.parseTypeExpr())
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.GT)
	return args
}

// parseParenOrTupleOrLambda disambiguates `(expr)`, `(a, b)` tuples, and
// `(params) => body` lambdas, all of which start with '('. The grammar is
// ambiguous beyond one token of lookahead (e.g. `(x)` alone could be a
// grouped expression or a single-param lambda missing its arrow), so this
// speculatively parses a parameter list from a snapshot and backs out to
// ordinary expression/tuple parsing if it doesn't end in '=>'/'->'.
func (p *Parser) parseParenOrTupleOrLambda() ast.Expr {
	pos := p.pos()

	snap := p.snapshot()
	if params, ok := p.tryParseLambdaParams(); ok {
		return p.finishLambda(pos, params)
	}
	p.restore(snap)

	p.next() // '('
	if p.curIs(lexer.RPAREN) {
		p.next()
		return &ast.TupleExpr{Pos: pos}
	}

	first := p.parseExpr(LOWEST)
	if p.curIs(lexer.COMMA) {
		elems := []ast.Expr{first}
		for p.curIs(lexer.COMMA) {
			p.next()
			elems = append(elems, p.parseExpr(LOWEST))
		}
		p.expect(lexer.RPAREN)
		return &ast.TupleExpr{Elements: elems, Pos: pos}
	}
	p.expect(lexer.RPAREN)
	return first
}

// tryParseLambdaParams parses a `(params) =>`/`(params) ->` prefix starting
// at the opening '(' and reports whether it actually found one. It advances
// the parser on both paths, so on a false result the caller restores its
// pre-call snapshot.
func (p *Parser) tryParseLambdaParams() ([]*ast.ParamDecl, bool) {
	if !p.curIs(lexer.LPAREN) {
		return nil, false
	}
	p.next() // '('

	var params []*ast.ParamDecl
	for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
		if !p.curIs(lexer.IDENT) {
			return nil, false
		}
		ppos := p.pos()
		name := p.curToken.Literal
		p.next()
		param := &ast.ParamDecl{Name: name, Pos: ppos}
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
		} else if !p.curIs(lexer.RPAREN) {
			return nil, false
		}
	}
	if !p.curIs(lexer.RPAREN) {
		return nil, false
	}
	p.next() // ')'
	if p.curIs(lexer.ARROW) {
		return params, true
	}
	if p.curIs(lexer.FARROW) {
		return params, true
	}
	return nil, false
}

func (p *Parser) finishLambda(pos ast.Pos, params []*ast.ParamDecl) ast.Expr {
	var retType ast.TypeExpr
	if p.curIs(lexer.ARROW) {
		p.next()
		retType = p.parseTypeExpr()
	}
	p.expect(lexer.FARROW)
	var body ast.Node
	if p.curIs(lexer.LBRACE) {
		body = p.parseBlockStmt()
	} else {
		body = p.parseExpr(ASSIGN_PREC)
	}
	return &ast.LambdaExpr{Params: params, ReturnType: retType, Body: body, Pos: pos}
}

func (p *Parser) parseArrayLit() ast.Expr {
	pos := p.pos()
	p.next() // '['
	a := &ast.ArrayLitExpr{Pos: pos}
	for !p.curIs(lexer.RBRACKET) && !p.curIs(lexer.EOF) {
		a.Elements = append(a.Elements, p.parseExpr(LOWEST))
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RBRACKET)
	return a
}

// parseBlockAsExpr parses a `{ ... }` block in expression position: every
// statement but the last is a plain Stmt, and a trailing bare expression
// statement (no semicolon required before '}') becomes the block's Result.
// `{ name: value, ... }` record literals share the opening brace, so this
// also dispatches to parseRecordLit when the contents look like fields
// rather than statements.
func (p *Parser) parseBlockAsExpr() ast.Expr {
	if p.looksLikeRecordLit() {
		return p.parseRecordLit()
	}
	pos := p.pos()
	p.next() // '{'
	b := &ast.BlockExpr{Pos: pos}
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		s, last := p.parseStmtOrTrailingExpr()
		if last != nil {
			b.Result = last
			break
		}
		if s != nil {
			b.Stmts = append(b.Stmts, s)
		}
	}
	p.expect(lexer.RBRACE)
	return b
}

// looksLikeRecordLit distinguishes `{ name: value }` from a statement block:
// a record literal always opens with IDENT COLON.
func (p *Parser) looksLikeRecordLit() bool {
	if !p.curIs(lexer.LBRACE) || !p.peekIs(lexer.IDENT) {
		return false
	}
	snap := p.snapshot()
	p.next() // '{'
	p.next() // IDENT
	isRecord := p.curIs(lexer.COLON)
	p.restore(snap)
	return isRecord
}

func (p *Parser) parseRecordLit() ast.Expr {
	pos := p.pos()
	p.next() // '{'
	r := &ast.RecordLitExpr{Pos: pos}
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		name := p.curToken.Literal
		p.expect(lexer.IDENT)
		p.expect(lexer.COLON)
		val := p.parseExpr(LOWEST)
		r.Fields = append(r.Fields, &ast.RecordLitField{Name: name, Value: val})
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RBRACE)
	return r
}

// parseIfExpr supports `if` used as an expression (spec.md 4.5.5: result
// type unified across both branches when used this way).
func (p *Parser) parseIfExpr() ast.Expr {
	pos := p.pos()
	p.next() // 'if'
	p.expect(lexer.LPAREN)
	cond := p.parseExpr(LOWEST)
	p.expect(lexer.RPAREN)
	then := p.parseBlockAsExpr()
	var elseExpr ast.Expr
	if p.curIs(lexer.ELSE) {
		p.next()
		if p.curIs(lexer.IF) {
			elseExpr = p.parseIfExpr()
		} else {
			elseExpr = p.parseBlockAsExpr()
		}
	}
	return &ast.IfExpr{Cond: cond, Then: then, Else: elseExpr, Pos: pos}
}
