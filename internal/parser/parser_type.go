package parser

import (
	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/errors"
	"github.com/elematic/zena-sub002/internal/lexer"
)

// parseTypeExpr parses a type annotation. Union members (`T | U`) bind
// loosest, so a bare `T | null` is folded into NullableTypeExpr sugar per
// ast.NullableTypeExpr's doc comment.
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	first := p.parseTypePostfix()
	if !p.curIs(lexer.PIPE) {
		return first
	}

	members := []ast.TypeExpr{first}
	for p.curIs(lexer.PIPE) {
		p.next()
		members = append(members, p.parseTypePostfix())
	}

	if len(members) == 2 {
		if isNullType(members[1]) {
			return &ast.NullableTypeExpr{Inner: members[0], Pos: members[0].Position()}
		}
		if isNullType(members[0]) {
			return &ast.NullableTypeExpr{Inner: members[1], Pos: members[1].Position()}
		}
	}
	return &ast.UnionTypeExpr{Members: members, Pos: members[0].Position()}
}

func isNullType(t ast.TypeExpr) bool {
	n, ok := t.(*ast.NamedTypeExpr)
	return ok && n.Name == "null"
}

// parseTypePostfix parses a primary type expression followed by any number
// of `[]` array suffixes.
func (p *Parser) parseTypePostfix() ast.TypeExpr {
	t := p.parseTypePrimary()
	for p.curIs(lexer.LBRACKET) && p.peekIs(lexer.RBRACKET) {
		pos := p.pos()
		p.next()
		p.next()
		t = &ast.ArrayTypeExpr{Element: t, Pos: pos}
	}
	return t
}

func (p *Parser) parseTypePrimary() ast.TypeExpr {
	pos := p.pos()
	switch p.curToken.Type {
	case lexer.NULL:
		p.next()
		return &ast.NamedTypeExpr{Name: "null", Pos: pos}
	case lexer.INLINE:
		p.next()
		return p.parseTupleTypeExpr(pos, true)
	case lexer.LPAREN:
		return p.parseTupleOrFuncTypeExpr(pos)
	case lexer.LBRACE:
		return p.parseRecordTypeExpr()
	case lexer.IDENT:
		name := p.curToken.Literal
		p.next()
		n := &ast.NamedTypeExpr{Name: name, Pos: pos}
		if p.curIs(lexer.LT) {
			n.Args = p.parseTypeArgList()
		}
		return n
	default:
		p.errorf(errors.PAR009, "expected type, got %s (%q)", p.curToken.Type, p.curToken.Literal)
		p.next()
		return &ast.NamedTypeExpr{Name: "?", Pos: pos}
	}
}

// parseTupleOrFuncTypeExpr disambiguates `(T, U)` tuple types from
// `(T, U) -> R` function types, both of which open with '('.
func (p *Parser) parseTupleOrFuncTypeExpr(pos ast.Pos) ast.TypeExpr {
	p.next() // '('
	var elems []ast.TypeExpr
	for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
		elems = append(elems, p.parseTypeExpr())
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RPAREN)

	if p.curIs(lexer.ARROW) {
		p.next()
		ret := p.parseTypeExpr()
		return &ast.FuncTypeExpr{Params: elems, Return: ret, Pos: pos}
	}
	return &ast.TupleTypeExpr{Elements: elems, Pos: pos}
}

func (p *Parser) parseTupleTypeExpr(pos ast.Pos, unboxed bool) ast.TypeExpr {
	p.expect(lexer.LPAREN)
	var elems []ast.TypeExpr
	for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
		elems = append(elems, p.parseTypeExpr())
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RPAREN)
	return &ast.TupleTypeExpr{Elements: elems, Unboxed: unboxed, Pos: pos}
}

func (p *Parser) parseRecordTypeExpr() ast.TypeExpr {
	pos := p.pos()
	p.next() // '{'
	r := &ast.RecordTypeExpr{Pos: pos}
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		name := p.curToken.Literal
		p.expect(lexer.IDENT)
		p.expect(lexer.COLON)
		ft := p.parseTypeExpr()
		r.Fields = append(r.Fields, &ast.RecordTypeField{Name: name, Type: ft})
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RBRACE)
	return r
}
