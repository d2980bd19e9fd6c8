package parser

import (
	"fmt"

	"github.com/elematic/zena-sub002/internal/ast"
	"github.com/elematic/zena-sub002/internal/lexer"
)

// ParserError is a structured parse error, carrying enough context for a
// caret-pointed diagnostic render.
type ParserError struct {
	Code      string
	Message   string
	Pos       ast.Pos
	NearToken lexer.Token
}

func (e *ParserError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Pos, e.Message)
}

func newParserError(code, message string, pos ast.Pos, near lexer.Token) *ParserError {
	return &ParserError{Code: code, Message: message, Pos: pos, NearToken: near}
}
