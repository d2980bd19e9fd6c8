package lexer

import "fmt"

// TokenType represents the type of a token.
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF
	COMMENT

	IDENT
	INT
	FLOAT
	STRING

	// Keywords
	CLASS
	INTERFACE
	MIXIN
	ENUM
	TYPE
	DISTINCT
	EXTENDS
	IMPLEMENTS
	EXTENSION
	ON
	NEW
	THIS
	SUPER
	LET
	VAR
	IF
	ELSE
	WHILE
	FOR
	RETURN
	BREAK
	CONTINUE
	THROW
	TRY
	CATCH
	IS
	AS
	NULL
	TRUE
	FALSE
	IMPORT
	EXPORT
	FROM
	STATIC
	FINAL
	OPERATOR
	INLINE

	// Operators
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	EQ       // ==
	NEQ      // !=
	SEQ      // ===
	SNEQ     // !==
	LT
	GT
	LTE
	GTE
	AND     // &&
	OR      // ||
	NOT     // !
	ARROW   // ->
	FARROW  // =>
	SHL     // <<
	SHR     // >>
	USHR    // >>>
	ASSIGN  // =
	PLUSEQ
	MINUSEQ
	STAREQ
	SLASHEQ
	QUESTION
	QQ // ??

	// Delimiters
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	COMMA
	DOT
	COLON
	SEMICOLON
	PIPE // | in union types
	HASH // #new constructor marker
)

var tokenNames = map[TokenType]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF", COMMENT: "COMMENT",
	IDENT: "IDENT", INT: "INT", FLOAT: "FLOAT", STRING: "STRING",

	CLASS: "class", INTERFACE: "interface", MIXIN: "mixin", ENUM: "enum",
	TYPE: "type", DISTINCT: "distinct", EXTENDS: "extends",
	IMPLEMENTS: "implements", EXTENSION: "extension", ON: "on", NEW: "new",
	THIS: "this", SUPER: "super", LET: "let", VAR: "var", IF: "if",
	ELSE: "else", WHILE: "while", FOR: "for", RETURN: "return",
	BREAK: "break", CONTINUE: "continue", THROW: "throw", TRY: "try",
	CATCH: "catch", IS: "is", AS: "as", NULL: "null", TRUE: "true",
	FALSE: "false", IMPORT: "import", EXPORT: "export", FROM: "from",
	STATIC: "static", FINAL: "final", OPERATOR: "operator", INLINE: "inline",

	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%",
	EQ: "==", NEQ: "!=", SEQ: "===", SNEQ: "!==",
	LT: "<", GT: ">", LTE: "<=", GTE: ">=",
	AND: "&&", OR: "||", NOT: "!", ARROW: "->", FARROW: "=>",
	SHL: "<<", SHR: ">>", USHR: ">>>",
	ASSIGN: "=", PLUSEQ: "+=", MINUSEQ: "-=", STAREQ: "*=", SLASHEQ: "/=",
	QUESTION: "?", QQ: "??",

	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}",
	LBRACKET: "[", RBRACKET: "]", COMMA: ",", DOT: ".", COLON: ":",
	SEMICOLON: ";", PIPE: "|", HASH: "#",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

var keywords = map[string]TokenType{
	"class": CLASS, "interface": INTERFACE, "mixin": MIXIN, "enum": ENUM,
	"type": TYPE, "distinct": DISTINCT, "extends": EXTENDS,
	"implements": IMPLEMENTS, "extension": EXTENSION, "on": ON, "new": NEW,
	"this": THIS, "super": SUPER, "let": LET, "var": VAR, "if": IF,
	"else": ELSE, "while": WHILE, "for": FOR, "return": RETURN,
	"break": BREAK, "continue": CONTINUE, "throw": THROW, "try": TRY,
	"catch": CATCH, "is": IS, "as": AS, "null": NULL, "true": TRUE,
	"false": FALSE, "import": IMPORT, "export": EXPORT, "from": FROM,
	"static": STATIC, "final": FINAL, "operator": OPERATOR, "inline": INLINE,
}

// LookupIdent resolves an identifier to a keyword token type, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Token is a single lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
	Offset  int
	File    string
}

func (t Token) Position() string {
	return fmt.Sprintf("%s:%d:%d", t.File, t.Line, t.Column)
}

func (t Token) String() string {
	return fmt.Sprintf("Token{%s, %q, %s}", t.Type, t.Literal, t.Position())
}

// Precedence returns the binding power of a binary operator token, used by
// the parser's precedence-climbing expression parser. Shift operators sit
// strictly between additive and relational, per spec.md 4.5.6.
func (t Token) Precedence() int {
	switch t.Type {
	case QQ:
		return 1
	case OR:
		return 2
	case AND:
		return 3
	case EQ, NEQ, SEQ, SNEQ:
		return 4
	case LT, GT, LTE, GTE:
		return 5
	case SHL, SHR, USHR:
		return 6
	case PLUS, MINUS:
		return 7
	case STAR, SLASH, PERCENT:
		return 8
	default:
		return 0
	}
}
