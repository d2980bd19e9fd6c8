// Package ast defines the node set the checker and code generator consume.
//
// Parsing itself is not the interesting part of this compiler: the checker
// mutates these nodes in place (filling InferredType, resolved bindings) and
// the code generator never re-derives anything the checker already computed.
package ast

import (
	"fmt"
	"strings"
)

// Pos is a position in a source file, kept on every node for diagnostics.
type Pos struct {
	File   string
	Line   int
	Column int
	Offset int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Node is the base interface for every AST node.
type Node interface {
	Position() Pos
	String() string
}

// Decl is a top-level declaration.
type Decl interface {
	Node
	declNode()
}

// Expr is an expression node. InferredType is populated by the checker and
// consumed directly by the code generator; no node needs to re-run inference.
type Expr interface {
	Node
	exprNode()
	Type() interface{}    // holds *types.Type once checked; interface{} avoids an import cycle
	SetType(t interface{})
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// TypeExpr is a syntactic type annotation, as written by the user.
type TypeExpr interface {
	Node
	typeExprNode()
}

// Pattern appears in destructuring lets and tuple binds.
type Pattern interface {
	Node
	patternNode()
	Type() interface{}
	SetType(t interface{})
}

// exprBase factors the InferredType bookkeeping shared by every Expr.
type exprBase struct {
	inferredType interface{}
}

func (e *exprBase) Type() interface{}      { return e.inferredType }
func (e *exprBase) SetType(t interface{})  { e.inferredType = t }

type patternBase struct {
	inferredType interface{}
}

func (p *patternBase) Type() interface{}     { return p.inferredType }
func (p *patternBase) SetType(t interface{}) { p.inferredType = t }

// ---------------------------------------------------------------------------
// File / module-level structure
// ---------------------------------------------------------------------------

// File is one parsed source file: the host-level unit the ModuleGraph loads.
type File struct {
	Path    string
	Imports []*ImportDecl
	Exports []*ExportDecl
	Decls   []Decl
	Pos     Pos
}

func (f *File) Position() Pos { return f.Pos }
func (f *File) String() string {
	var b strings.Builder
	for _, d := range f.Decls {
		b.WriteString(d.String())
		b.WriteString("\n")
	}
	return b.String()
}

// ImportDecl imports a module by specifier, optionally naming the symbols
// selected out of it. An empty Symbols list means "import the module as a
// namespace"; Star means `import * from`.
type ImportDecl struct {
	Specifier string
	Symbols   []ImportedSymbol
	Star      bool
	Resolved  string // filled by ModuleGraph: canonical path the specifier resolved to
	Pos       Pos
}

type ImportedSymbol struct {
	Name  string
	Alias string
}

func (i *ImportDecl) Position() Pos { return i.Pos }
func (i *ImportDecl) String() string {
	return fmt.Sprintf("import %q", i.Specifier)
}
func (i *ImportDecl) declNode() {}

// ExportDecl re-exports symbols from another module: `export * from './x'`
// or `export { a, b } from './x'`.
type ExportDecl struct {
	FromSpecifier string // empty when exporting a local declaration by name
	Star          bool
	Symbols       []ImportedSymbol
	Pos           Pos
}

func (e *ExportDecl) Position() Pos { return e.Pos }
func (e *ExportDecl) String() string {
	if e.Star {
		return fmt.Sprintf("export * from %q", e.FromSpecifier)
	}
	return "export { ... }"
}
func (e *ExportDecl) declNode() {}

// ---------------------------------------------------------------------------
// Type-level declarations
// ---------------------------------------------------------------------------

// TypeParamDecl is a generic parameter on a class/interface/function.
type TypeParamDecl struct {
	Name    string
	Bound   TypeExpr // optional upper bound
	Default TypeExpr // optional default
	Pos     Pos
}

// FieldDecl is a class field.
type FieldDecl struct {
	Name     string
	Type     TypeExpr
	Mutable  bool // `var` field vs `let` field
	Default  Expr
	Exported bool
	Pos      Pos
}

// ParamDecl is a function/method/constructor parameter.
type ParamDecl struct {
	Name    string
	Type    TypeExpr
	Default Expr
	Pos     Pos
}

// FuncDecl is a top-level function, method, or constructor body.
type FuncDecl struct {
	Name          string // "#new" for constructors, "get_x"/"set_x" for accessors
	TypeParams    []*TypeParamDecl
	Params        []*ParamDecl
	ReturnType    TypeExpr // nil means inferred
	Body          *BlockStmt
	IsConstructor bool
	IsStatic      bool
	IsFinal       bool
	Operator      string // non-empty for `operator +`, `operator []`, etc.
	Exported      bool
	Pos           Pos
}

func (f *FuncDecl) Position() Pos { return f.Pos }
func (f *FuncDecl) String() string {
	return fmt.Sprintf("func %s(...)", f.Name)
}
func (f *FuncDecl) declNode() {}

// LetDecl / VarDecl are top-level bindings.
type LetDecl struct {
	Name     string
	Type     TypeExpr
	Value    Expr
	Mutable  bool
	Exported bool
	Pos      Pos
}

func (l *LetDecl) Position() Pos   { return l.Pos }
func (l *LetDecl) String() string  { return fmt.Sprintf("let %s = ...", l.Name) }
func (l *LetDecl) declNode()       {}

// ClassDecl declares a class: fields, methods, a constructor, a super class
// and a list of implemented interfaces.
type ClassDecl struct {
	Name         string
	TypeParams   []*TypeParamDecl
	SuperClass   TypeExpr
	Implements   []TypeExpr // order matters: spec.md interface-ambiguity resolution uses it
	Mixins       []TypeExpr
	Fields       []*FieldDecl
	Methods      []*FuncDecl
	IsFinal      bool
	IsExtension  bool // `extension class Foo on OtherType { ... }`
	OnType       TypeExpr
	Exported     bool
	Pos          Pos
}

func (c *ClassDecl) Position() Pos  { return c.Pos }
func (c *ClassDecl) String() string { return fmt.Sprintf("class %s", c.Name) }
func (c *ClassDecl) declNode()      {}

// InterfaceDecl declares an interface: method signatures and properties.
type InterfaceDecl struct {
	Name             string
	TypeParams       []*TypeParamDecl
	ParentInterfaces []TypeExpr
	Methods          []*FuncDecl // bodies are nil
	Properties       []*FieldDecl
	Exported         bool
	Pos              Pos
}

func (i *InterfaceDecl) Position() Pos  { return i.Pos }
func (i *InterfaceDecl) String() string { return fmt.Sprintf("interface %s", i.Name) }
func (i *InterfaceDecl) declNode()      {}

// MixinDecl declares a mixin: a set of fields/methods mixed into a class.
type MixinDecl struct {
	Name     string
	Fields   []*FieldDecl
	Methods  []*FuncDecl
	Exported bool
	Pos      Pos
}

func (m *MixinDecl) Position() Pos  { return m.Pos }
func (m *MixinDecl) String() string { return fmt.Sprintf("mixin %s", m.Name) }
func (m *MixinDecl) declNode()      {}

// EnumDecl declares an enum: an ordered set of members, each with an
// optional explicit discriminant (unset members continue from the previous
// one, starting at 0).
type EnumDecl struct {
	Name     string
	Members  []*EnumMember
	Exported bool
	Pos      Pos
}

type EnumMember struct {
	Name  string
	Value Expr // nil when implicit
	Pos   Pos
}

func (e *EnumDecl) Position() Pos  { return e.Pos }
func (e *EnumDecl) String() string { return fmt.Sprintf("enum %s", e.Name) }
func (e *EnumDecl) declNode()      {}

// TypeAliasDecl declares `type X = Y` (transparent) or `distinct type X = Y`
// (nominal).
type TypeAliasDecl struct {
	Name       string
	TypeParams []*TypeParamDecl
	Target     TypeExpr
	IsDistinct bool
	Exported   bool
	Pos        Pos
}

func (t *TypeAliasDecl) Position() Pos  { return t.Pos }
func (t *TypeAliasDecl) String() string { return fmt.Sprintf("type %s = ...", t.Name) }
func (t *TypeAliasDecl) declNode()      {}

// ---------------------------------------------------------------------------
// Type expressions (syntax, as written)
// ---------------------------------------------------------------------------

type NamedTypeExpr struct {
	Name string
	Args []TypeExpr
	Pos  Pos
}

func (n *NamedTypeExpr) Position() Pos  { return n.Pos }
func (n *NamedTypeExpr) String() string { return n.Name }
func (n *NamedTypeExpr) typeExprNode()  {}

type UnionTypeExpr struct {
	Members []TypeExpr
	Pos     Pos
}

func (u *UnionTypeExpr) Position() Pos  { return u.Pos }
func (u *UnionTypeExpr) String() string { return "union" }
func (u *UnionTypeExpr) typeExprNode()  {}

type RecordTypeExpr struct {
	Fields []*RecordTypeField
	Pos    Pos
}

type RecordTypeField struct {
	Name string
	Type TypeExpr
}

func (r *RecordTypeExpr) Position() Pos  { return r.Pos }
func (r *RecordTypeExpr) String() string { return "record" }
func (r *RecordTypeExpr) typeExprNode()  {}

type TupleTypeExpr struct {
	Elements []TypeExpr
	Unboxed  bool // `inline (T, U)` marks an UnboxedTuple
	Pos      Pos
}

func (t *TupleTypeExpr) Position() Pos  { return t.Pos }
func (t *TupleTypeExpr) String() string { return "tuple" }
func (t *TupleTypeExpr) typeExprNode()  {}

type ArrayTypeExpr struct {
	Element TypeExpr
	Pos     Pos
}

func (a *ArrayTypeExpr) Position() Pos  { return a.Pos }
func (a *ArrayTypeExpr) String() string { return a.Element.String() + "[]" }
func (a *ArrayTypeExpr) typeExprNode()  {}

type FuncTypeExpr struct {
	Params []TypeExpr
	Return TypeExpr
	Pos    Pos
}

func (f *FuncTypeExpr) Position() Pos  { return f.Pos }
func (f *FuncTypeExpr) String() string { return "func type" }
func (f *FuncTypeExpr) typeExprNode()  {}

// NullableTypeExpr is sugar for `T | null`.
type NullableTypeExpr struct {
	Inner TypeExpr
	Pos   Pos
}

func (n *NullableTypeExpr) Position() Pos  { return n.Pos }
func (n *NullableTypeExpr) String() string { return n.Inner.String() + " | null" }
func (n *NullableTypeExpr) typeExprNode()  {}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

type BlockStmt struct {
	Stmts []Stmt
	Pos   Pos
}

func (b *BlockStmt) Position() Pos  { return b.Pos }
func (b *BlockStmt) String() string { return "{ ... }" }
func (b *BlockStmt) stmtNode()      {}

type ExprStmt struct {
	Expr Expr
	Pos  Pos
}

func (e *ExprStmt) Position() Pos  { return e.Pos }
func (e *ExprStmt) String() string { return e.Expr.String() }
func (e *ExprStmt) stmtNode()      {}

// LetStmt is a local `let`/`var` binding, optionally destructuring a tuple.
type LetStmt struct {
	Pattern Pattern // nil when Name is used instead (simple binding)
	Name    string
	Type    TypeExpr
	Value   Expr
	Mutable bool
	Pos     Pos
}

func (l *LetStmt) Position() Pos  { return l.Pos }
func (l *LetStmt) String() string { return fmt.Sprintf("let %s = ...", l.Name) }
func (l *LetStmt) stmtNode()      {}

type ReturnStmt struct {
	Value Expr // nil for bare `return`
	Pos   Pos
}

func (r *ReturnStmt) Position() Pos  { return r.Pos }
func (r *ReturnStmt) String() string { return "return ..." }
func (r *ReturnStmt) stmtNode()      {}

type IfStmt struct {
	Cond Expr
	Then *BlockStmt
	Else Stmt // *BlockStmt or *IfStmt, nil if absent
	Pos  Pos
}

func (i *IfStmt) Position() Pos  { return i.Pos }
func (i *IfStmt) String() string { return "if (...) { ... }" }
func (i *IfStmt) stmtNode()      {}

type WhileStmt struct {
	Cond Expr
	Body *BlockStmt
	Pos  Pos
}

func (w *WhileStmt) Position() Pos  { return w.Pos }
func (w *WhileStmt) String() string { return "while (...) { ... }" }
func (w *WhileStmt) stmtNode()      {}

type ForStmt struct {
	Init   Stmt // may be nil
	Cond   Expr // may be nil
	Update Stmt // may be nil
	Body   *BlockStmt
	Pos    Pos
}

func (f *ForStmt) Position() Pos  { return f.Pos }
func (f *ForStmt) String() string { return "for (...) { ... }" }
func (f *ForStmt) stmtNode()      {}

type BreakStmt struct{ Pos Pos }

func (b *BreakStmt) Position() Pos  { return b.Pos }
func (b *BreakStmt) String() string { return "break" }
func (b *BreakStmt) stmtNode()      {}

type ContinueStmt struct{ Pos Pos }

func (c *ContinueStmt) Position() Pos  { return c.Pos }
func (c *ContinueStmt) String() string { return "continue" }
func (c *ContinueStmt) stmtNode()      {}

type ThrowStmt struct {
	Value Expr
	Pos   Pos
}

func (t *ThrowStmt) Position() Pos  { return t.Pos }
func (t *ThrowStmt) String() string { return "throw ..." }
func (t *ThrowStmt) stmtNode()      {}

type TryStmt struct {
	Body       *BlockStmt
	CatchName  string // bound name of the caught value, may be empty
	CatchBody  *BlockStmt
	Pos        Pos
}

func (t *TryStmt) Position() Pos  { return t.Pos }
func (t *TryStmt) String() string { return "try { ... } catch (...) { ... }" }
func (t *TryStmt) stmtNode()      {}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

type Ident struct {
	Name string
	Pos  Pos
	exprBase
}

func (i *Ident) Position() Pos  { return i.Pos }
func (i *Ident) String() string { return i.Name }
func (i *Ident) exprNode()      {}

type LiteralKind int

const (
	IntLit LiteralKind = iota
	FloatLit
	StringLit
	BoolLit
	NullLit
)

type Literal struct {
	Kind  LiteralKind
	Value interface{}
	Pos   Pos
	exprBase
}

func (l *Literal) Position() Pos  { return l.Pos }
func (l *Literal) String() string { return fmt.Sprintf("%v", l.Value) }
func (l *Literal) exprNode()      {}

type BinaryExpr struct {
	Left  Expr
	Op    string
	Right Expr
	Pos   Pos
	exprBase
}

func (b *BinaryExpr) Position() Pos  { return b.Pos }
func (b *BinaryExpr) String() string { return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right) }
func (b *BinaryExpr) exprNode()      {}

type UnaryExpr struct {
	Op      string
	Operand Expr
	Prefix  bool
	Pos     Pos
	exprBase
}

func (u *UnaryExpr) Position() Pos  { return u.Pos }
func (u *UnaryExpr) String() string { return fmt.Sprintf("(%s%s)", u.Op, u.Operand) }
func (u *UnaryExpr) exprNode()      {}

// AssignExpr covers `x = v`, `x.f = v`, `a[i] = v`.
type AssignExpr struct {
	Target Expr
	Op     string // "=", "+=", ...
	Value  Expr
	Pos    Pos
	exprBase
}

func (a *AssignExpr) Position() Pos  { return a.Pos }
func (a *AssignExpr) String() string { return fmt.Sprintf("(%s %s %s)", a.Target, a.Op, a.Value) }
func (a *AssignExpr) exprNode()      {}

type CallExpr struct {
	Callee    Expr
	TypeArgs  []TypeExpr
	Args      []Expr
	Pos       Pos
	exprBase
}

func (c *CallExpr) Position() Pos  { return c.Pos }
func (c *CallExpr) String() string { return fmt.Sprintf("%s(...)", c.Callee) }
func (c *CallExpr) exprNode()      {}

// NewExpr constructs an instance: `new C(args)`.
type NewExpr struct {
	ClassName string
	TypeArgs  []TypeExpr
	Args      []Expr
	Pos       Pos
	exprBase
}

func (n *NewExpr) Position() Pos  { return n.Pos }
func (n *NewExpr) String() string { return fmt.Sprintf("new %s(...)", n.ClassName) }
func (n *NewExpr) exprNode()      {}

type MemberExpr struct {
	Object Expr
	Name   string
	Pos    Pos
	exprBase
}

func (m *MemberExpr) Position() Pos  { return m.Pos }
func (m *MemberExpr) String() string { return fmt.Sprintf("%s.%s", m.Object, m.Name) }
func (m *MemberExpr) exprNode()      {}

type IndexExpr struct {
	Object Expr
	Index  Expr
	Pos    Pos
	exprBase
}

func (i *IndexExpr) Position() Pos  { return i.Pos }
func (i *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", i.Object, i.Index) }
func (i *IndexExpr) exprNode()      {}

// IsExpr is the `x is T` type test used by flow narrowing.
type IsExpr struct {
	Value Expr
	Type  TypeExpr
	Pos   Pos
	exprBase
}

func (i *IsExpr) Position() Pos  { return i.Pos }
func (i *IsExpr) String() string { return fmt.Sprintf("(%s is %s)", i.Value, i.Type) }
func (i *IsExpr) exprNode()      {}

// AsExpr is an explicit cast, required to cross a distinct-alias boundary.
type AsExpr struct {
	Value Expr
	Type  TypeExpr
	Pos   Pos
	exprBase
}

func (a *AsExpr) Position() Pos  { return a.Pos }
func (a *AsExpr) String() string { return fmt.Sprintf("(%s as %s)", a.Value, a.Type) }
func (a *AsExpr) exprNode()      {}

type TupleExpr struct {
	Elements []Expr
	Unboxed  bool
	Pos      Pos
	exprBase
}

func (t *TupleExpr) Position() Pos  { return t.Pos }
func (t *TupleExpr) String() string { return "(...)" }
func (t *TupleExpr) exprNode()      {}

type ArrayLitExpr struct {
	Elements []Expr
	Pos      Pos
	exprBase
}

func (a *ArrayLitExpr) Position() Pos  { return a.Pos }
func (a *ArrayLitExpr) String() string { return "[...]" }
func (a *ArrayLitExpr) exprNode()      {}

type RecordLitExpr struct {
	Fields []*RecordLitField
	Pos    Pos
	exprBase
}

type RecordLitField struct {
	Name  string
	Value Expr
}

func (r *RecordLitExpr) Position() Pos  { return r.Pos }
func (r *RecordLitExpr) String() string { return "{...}" }
func (r *RecordLitExpr) exprNode()      {}

// LambdaExpr is an anonymous function value, used for callbacks.
type LambdaExpr struct {
	Params     []*ParamDecl
	ReturnType TypeExpr
	Body       Node // *BlockStmt or Expr (expression-bodied lambda)
	Pos        Pos
	exprBase
}

func (l *LambdaExpr) Position() Pos  { return l.Pos }
func (l *LambdaExpr) String() string { return "(...) => ..." }
func (l *LambdaExpr) exprNode()      {}

// BlockExpr lets a block be used in expression position: its trailing Result
// expression is the block's value.
type BlockExpr struct {
	Stmts  []Stmt
	Result Expr
	Pos    Pos
	exprBase
}

func (b *BlockExpr) Position() Pos  { return b.Pos }
func (b *BlockExpr) String() string { return "{ ... }" }
func (b *BlockExpr) exprNode()      {}

// IfExpr is `if` used in expression position, per spec.md 4.5.5: the
// checker unifies Then's and Else's result types. Else is nil only when the
// surrounding context doesn't require a value (handled as a statement
// instead; the parser only builds IfExpr when a value is expected).
type IfExpr struct {
	Cond Expr
	Then Expr // *BlockExpr or another expression
	Else Expr // *BlockExpr, *IfExpr, or another expression
	Pos  Pos
	exprBase
}

func (i *IfExpr) Position() Pos  { return i.Pos }
func (i *IfExpr) String() string { return "if (...) {...} else {...}" }
func (i *IfExpr) exprNode()      {}

// ---------------------------------------------------------------------------
// Patterns
// ---------------------------------------------------------------------------

// TuplePattern destructures `let (a, b) = expr`.
type TuplePattern struct {
	Names []string
	Pos   Pos
	patternBase
}

func (t *TuplePattern) Position() Pos  { return t.Pos }
func (t *TuplePattern) String() string { return "(...)" }
func (t *TuplePattern) patternNode()   {}

// IdentPattern is a plain `let x = expr` pattern, used where a Pattern value
// is required generically (e.g. for-loop bindings).
type IdentPattern struct {
	Name string
	Pos  Pos
	patternBase
}

func (i *IdentPattern) Position() Pos  { return i.Pos }
func (i *IdentPattern) String() string { return i.Name }
func (i *IdentPattern) patternNode()   {}
