package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for MinLang
// ---------------------------------------------------------------------------

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() Position
	node() // marker method
}

// Decl is a top-level declaration: *VarDecl or *FuncDecl.
type Decl interface {
	Node
	decl() // marker method
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// Program is the root of a parsed source file.
type Program struct {
	At    Position
	Decls []Decl
}

func (n *Program) Pos() Position { return n.At }
func (n *Program) node()         {}

// VarDecl declares a global or local variable. Init is nil when the
// declaration has no initializer.
type VarDecl struct {
	At    Position
	Type  string
	Name  string
	Init  Expr
	Const bool
}

func (n *VarDecl) Pos() Position { return n.At }
func (n *VarDecl) node()         {}
func (n *VarDecl) decl()         {}
func (n *VarDecl) stmt()         {}

// FuncDecl declares a function with a body.
type FuncDecl struct {
	At         Position
	ReturnType string
	Name       string
	Params     []*Param
	Body       *Block
}

func (n *FuncDecl) Pos() Position { return n.At }
func (n *FuncDecl) node()         {}
func (n *FuncDecl) decl()         {}

// Param is a single typed function parameter.
type Param struct {
	At   Position
	Type string
	Name string
}

func (n *Param) Pos() Position { return n.At }
func (n *Param) node()         {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Block is a braced statement list.
type Block struct {
	At    Position
	Stmts []Stmt
}

func (n *Block) Pos() Position { return n.At }
func (n *Block) node()         {}
func (n *Block) stmt()         {}

// IfStmt is an if statement. Else is nil when there is no else branch.
type IfStmt struct {
	At   Position
	Cond Expr
	Then Stmt
	Else Stmt
}

func (n *IfStmt) Pos() Position { return n.At }
func (n *IfStmt) node()         {}
func (n *IfStmt) stmt()         {}

// WhileStmt is a while loop.
type WhileStmt struct {
	At   Position
	Cond Expr
	Body Stmt
}

func (n *WhileStmt) Pos() Position { return n.At }
func (n *WhileStmt) node()         {}
func (n *WhileStmt) stmt()         {}

// ReturnStmt returns from a function. Value is nil for a bare return.
type ReturnStmt struct {
	At    Position
	Value Expr
}

func (n *ReturnStmt) Pos() Position { return n.At }
func (n *ReturnStmt) node()         {}
func (n *ReturnStmt) stmt()         {}

// ExprStmt is an expression used as a statement.
type ExprStmt struct {
	At Position
	X  Expr
}

func (n *ExprStmt) Pos() Position { return n.At }
func (n *ExprStmt) node()         {}
func (n *ExprStmt) stmt()         {}

// ReadStmt reads a value into a variable: read(x);
type ReadStmt struct {
	At     Position
	Target string
}

func (n *ReadStmt) Pos() Position { return n.At }
func (n *ReadStmt) node()         {}
func (n *ReadStmt) stmt()         {}

// PrintStmt prints the value of an expression: print(expr);
type PrintStmt struct {
	At    Position
	Value Expr
}

func (n *PrintStmt) Pos() Position { return n.At }
func (n *PrintStmt) node()         {}
func (n *PrintStmt) stmt()         {}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// AssignExpr represents a variable assignment (x = expr).
type AssignExpr struct {
	At     Position
	Target string
	Value  Expr
}

func (n *AssignExpr) Pos() Position { return n.At }
func (n *AssignExpr) node()         {}
func (n *AssignExpr) expr()         {}

// BinaryExpr is an infix operation. Op is the operator lexeme.
type BinaryExpr struct {
	At    Position
	Op    string
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Pos() Position { return n.At }
func (n *BinaryExpr) node()         {}
func (n *BinaryExpr) expr()         {}

// UnaryExpr is a prefix operation (! or -).
type UnaryExpr struct {
	At      Position
	Op      string
	Operand Expr
}

func (n *UnaryExpr) Pos() Position { return n.At }
func (n *UnaryExpr) node()         {}
func (n *UnaryExpr) expr()         {}

// CallExpr calls a named function.
type CallExpr struct {
	At     Position
	Callee string
	Args   []Expr
}

func (n *CallExpr) Pos() Position { return n.At }
func (n *CallExpr) node()         {}
func (n *CallExpr) expr()         {}

// Identifier represents a variable reference.
type Identifier struct {
	At   Position
	Name string
}

func (n *Identifier) Pos() Position { return n.At }
func (n *Identifier) node()         {}
func (n *Identifier) expr()         {}

// LiteralKind tags the type of a Literal's value.
type LiteralKind int

const (
	LitInt    LiteralKind = iota // Value is int64
	LitFloat                     // Value is float64
	LitBool                      // Value is bool
	LitChar                      // Value is rune
	LitString                    // Value is string
)

var literalKindNames = [...]string{
	LitInt:    "int",
	LitFloat:  "float",
	LitBool:   "bool",
	LitChar:   "char",
	LitString: "string",
}

func (k LiteralKind) String() string {
	if k >= 0 && int(k) < len(literalKindNames) {
		return literalKindNames[k]
	}
	return "unknown"
}

// Literal is a constant value written in the source.
type Literal struct {
	At    Position
	Kind  LiteralKind
	Value any
}

func (n *Literal) Pos() Position { return n.At }
func (n *Literal) node()         {}
func (n *Literal) expr()         {}
