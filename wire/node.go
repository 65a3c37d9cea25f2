package wire

import (
	"fmt"

	"github.com/chazu/minlang/compiler"
)

// Node kinds as they appear on the wire.
const (
	KindProgram    = "Program"
	KindVarDecl    = "VarDecl"
	KindFuncDecl   = "FuncDecl"
	KindParam      = "Param"
	KindBlock      = "Block"
	KindIf         = "If"
	KindWhile      = "While"
	KindReturn     = "Return"
	KindExprStmt   = "ExprStmt"
	KindRead       = "Read"
	KindPrint      = "Print"
	KindAssign     = "Assign"
	KindBinary     = "Binary"
	KindUnary      = "Unary"
	KindCall       = "Call"
	KindIdentifier = "Identifier"
	KindLiteral    = "Literal"
)

// Node is the flat, tagged form of an AST node used for export. Which
// fields are set depends on Kind:
//
//	VarDecl    Type Name Const, Children = [init]?
//	FuncDecl   Type Name, Children = Param* Block
//	Param      Type Name
//	If         Children = cond then else?
//	While      Children = cond body
//	Return     Children = [value]?
//	Read       Name
//	Assign     Name, Children = [value]
//	Binary     Op, Children = left right
//	Unary      Op, Children = [operand]
//	Call       Name, Children = args
//	Identifier Name
//	Literal    LitKind and one of Int (also chars), Float, Str, Bool
type Node struct {
	Kind     string  `cbor:"1,keyasint" yaml:"kind"`
	Line     int     `cbor:"2,keyasint,omitempty" yaml:"line,omitempty"`
	Column   int     `cbor:"3,keyasint,omitempty" yaml:"column,omitempty"`
	Type     string  `cbor:"4,keyasint,omitempty" yaml:"type,omitempty"`
	Name     string  `cbor:"5,keyasint,omitempty" yaml:"name,omitempty"`
	Op       string  `cbor:"6,keyasint,omitempty" yaml:"op,omitempty"`
	Const    bool    `cbor:"7,keyasint,omitempty" yaml:"const,omitempty"`
	LitKind  string  `cbor:"8,keyasint,omitempty" yaml:"literal,omitempty"`
	Int      int64   `cbor:"9,keyasint,omitempty" yaml:"int,omitempty"`
	Float    float64 `cbor:"10,keyasint,omitempty" yaml:"float,omitempty"`
	Str      string  `cbor:"11,keyasint,omitempty" yaml:"string,omitempty"`
	Bool     bool    `cbor:"12,keyasint,omitempty" yaml:"bool,omitempty"`
	Children []*Node `cbor:"13,keyasint,omitempty" yaml:"children,omitempty"`
}

// ---------------------------------------------------------------------------
// AST -> wire
// ---------------------------------------------------------------------------

// FromAST converts an AST node and its subtree to wire form.
func FromAST(n compiler.Node) *Node {
	if n == nil {
		return nil
	}
	pos := n.Pos()
	w := &Node{Line: pos.Line, Column: pos.Column}

	switch n := n.(type) {
	case *compiler.Program:
		w.Kind = KindProgram
		for _, d := range n.Decls {
			w.add(d)
		}

	case *compiler.VarDecl:
		w.Kind = KindVarDecl
		w.Type, w.Name, w.Const = n.Type, n.Name, n.Const
		if n.Init != nil {
			w.add(n.Init)
		}

	case *compiler.FuncDecl:
		w.Kind = KindFuncDecl
		w.Type, w.Name = n.ReturnType, n.Name
		for _, p := range n.Params {
			w.add(p)
		}
		if n.Body != nil {
			w.add(n.Body)
		}

	case *compiler.Param:
		w.Kind = KindParam
		w.Type, w.Name = n.Type, n.Name

	case *compiler.Block:
		w.Kind = KindBlock
		for _, s := range n.Stmts {
			w.add(s)
		}

	case *compiler.IfStmt:
		w.Kind = KindIf
		w.add(n.Cond)
		w.add(n.Then)
		if n.Else != nil {
			w.add(n.Else)
		}

	case *compiler.WhileStmt:
		w.Kind = KindWhile
		w.add(n.Cond)
		w.add(n.Body)

	case *compiler.ReturnStmt:
		w.Kind = KindReturn
		if n.Value != nil {
			w.add(n.Value)
		}

	case *compiler.ExprStmt:
		w.Kind = KindExprStmt
		w.add(n.X)

	case *compiler.ReadStmt:
		w.Kind = KindRead
		w.Name = n.Target

	case *compiler.PrintStmt:
		w.Kind = KindPrint
		w.add(n.Value)

	case *compiler.AssignExpr:
		w.Kind = KindAssign
		w.Name = n.Target
		w.add(n.Value)

	case *compiler.BinaryExpr:
		w.Kind = KindBinary
		w.Op = n.Op
		w.add(n.Left)
		w.add(n.Right)

	case *compiler.UnaryExpr:
		w.Kind = KindUnary
		w.Op = n.Op
		w.add(n.Operand)

	case *compiler.CallExpr:
		w.Kind = KindCall
		w.Name = n.Callee
		for _, a := range n.Args {
			w.add(a)
		}

	case *compiler.Identifier:
		w.Kind = KindIdentifier
		w.Name = n.Name

	case *compiler.Literal:
		w.Kind = KindLiteral
		w.LitKind = n.Kind.String()
		switch v := n.Value.(type) {
		case int64:
			w.Int = v
		case rune:
			w.Int = int64(v)
		case float64:
			w.Float = v
		case string:
			w.Str = v
		case bool:
			w.Bool = v
		}
	}
	return w
}

func (w *Node) add(n compiler.Node) {
	w.Children = append(w.Children, FromAST(n))
}

// ---------------------------------------------------------------------------
// wire -> AST
// ---------------------------------------------------------------------------

// ToAST rebuilds a program from its wire form. Malformed input yields an
// error naming the offending node.
func ToAST(w *Node) (*compiler.Program, error) {
	if w == nil || w.Kind != KindProgram {
		return nil, fmt.Errorf("wire: root is not a %s node", KindProgram)
	}
	prog := &compiler.Program{At: w.pos()}
	for _, c := range w.Children {
		d, err := toDecl(c)
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, d)
	}
	return prog, nil
}

func (w *Node) pos() compiler.Position {
	return compiler.Position{Line: w.Line, Column: w.Column}
}

func (w *Node) errorf(format string, args ...any) error {
	return fmt.Errorf("wire: %s at %d:%d: %s", w.Kind, w.Line, w.Column, fmt.Sprintf(format, args...))
}

// arity checks that w has between lo and hi children.
func (w *Node) arity(lo, hi int) error {
	if n := len(w.Children); n < lo || n > hi {
		if lo == hi {
			return w.errorf("expected %d children, got %d", lo, n)
		}
		return w.errorf("expected %d to %d children, got %d", lo, hi, n)
	}
	return nil
}

func toDecl(w *Node) (compiler.Decl, error) {
	if w == nil {
		return nil, fmt.Errorf("wire: missing declaration")
	}
	switch w.Kind {
	case KindVarDecl:
		return toVarDecl(w)
	case KindFuncDecl:
		return toFuncDecl(w)
	}
	return nil, w.errorf("not a declaration")
}

func toVarDecl(w *Node) (*compiler.VarDecl, error) {
	if err := w.arity(0, 1); err != nil {
		return nil, err
	}
	v := &compiler.VarDecl{At: w.pos(), Type: w.Type, Name: w.Name, Const: w.Const}
	if len(w.Children) == 1 {
		init, err := toExpr(w.Children[0])
		if err != nil {
			return nil, err
		}
		v.Init = init
	}
	return v, nil
}

func toFuncDecl(w *Node) (*compiler.FuncDecl, error) {
	fn := &compiler.FuncDecl{At: w.pos(), ReturnType: w.Type, Name: w.Name}
	for i, c := range w.Children {
		if c == nil {
			return nil, w.errorf("nil child %d", i)
		}
		switch {
		case c.Kind == KindParam:
			if fn.Body != nil {
				return nil, c.errorf("parameter after body")
			}
			fn.Params = append(fn.Params, &compiler.Param{At: c.pos(), Type: c.Type, Name: c.Name})
		case c.Kind == KindBlock && fn.Body == nil:
			body, err := toBlock(c)
			if err != nil {
				return nil, err
			}
			fn.Body = body
		default:
			return nil, c.errorf("unexpected in function %s", w.Name)
		}
	}
	if fn.Body == nil {
		return nil, w.errorf("function %s has no body", w.Name)
	}
	return fn, nil
}

func toBlock(w *Node) (*compiler.Block, error) {
	b := &compiler.Block{At: w.pos()}
	for _, c := range w.Children {
		s, err := toStmt(c)
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, s)
	}
	return b, nil
}

func toStmt(w *Node) (compiler.Stmt, error) {
	if w == nil {
		return nil, fmt.Errorf("wire: missing statement")
	}
	switch w.Kind {
	case KindVarDecl:
		return toVarDecl(w)

	case KindBlock:
		return toBlock(w)

	case KindIf:
		if err := w.arity(2, 3); err != nil {
			return nil, err
		}
		cond, err := toExpr(w.Children[0])
		if err != nil {
			return nil, err
		}
		then, err := toStmt(w.Children[1])
		if err != nil {
			return nil, err
		}
		s := &compiler.IfStmt{At: w.pos(), Cond: cond, Then: then}
		if len(w.Children) == 3 {
			if s.Else, err = toStmt(w.Children[2]); err != nil {
				return nil, err
			}
		}
		return s, nil

	case KindWhile:
		if err := w.arity(2, 2); err != nil {
			return nil, err
		}
		cond, err := toExpr(w.Children[0])
		if err != nil {
			return nil, err
		}
		body, err := toStmt(w.Children[1])
		if err != nil {
			return nil, err
		}
		return &compiler.WhileStmt{At: w.pos(), Cond: cond, Body: body}, nil

	case KindReturn:
		if err := w.arity(0, 1); err != nil {
			return nil, err
		}
		s := &compiler.ReturnStmt{At: w.pos()}
		if len(w.Children) == 1 {
			v, err := toExpr(w.Children[0])
			if err != nil {
				return nil, err
			}
			s.Value = v
		}
		return s, nil

	case KindExprStmt:
		x, err := w.onlyExpr()
		if err != nil {
			return nil, err
		}
		return &compiler.ExprStmt{At: w.pos(), X: x}, nil

	case KindRead:
		return &compiler.ReadStmt{At: w.pos(), Target: w.Name}, nil

	case KindPrint:
		v, err := w.onlyExpr()
		if err != nil {
			return nil, err
		}
		return &compiler.PrintStmt{At: w.pos(), Value: v}, nil
	}
	return nil, w.errorf("not a statement")
}

func (w *Node) onlyExpr() (compiler.Expr, error) {
	if err := w.arity(1, 1); err != nil {
		return nil, err
	}
	return toExpr(w.Children[0])
}

func toExpr(w *Node) (compiler.Expr, error) {
	if w == nil {
		return nil, fmt.Errorf("wire: missing expression")
	}
	switch w.Kind {
	case KindAssign:
		v, err := w.onlyExpr()
		if err != nil {
			return nil, err
		}
		return &compiler.AssignExpr{At: w.pos(), Target: w.Name, Value: v}, nil

	case KindBinary:
		if err := w.arity(2, 2); err != nil {
			return nil, err
		}
		left, err := toExpr(w.Children[0])
		if err != nil {
			return nil, err
		}
		right, err := toExpr(w.Children[1])
		if err != nil {
			return nil, err
		}
		return &compiler.BinaryExpr{At: w.pos(), Op: w.Op, Left: left, Right: right}, nil

	case KindUnary:
		x, err := w.onlyExpr()
		if err != nil {
			return nil, err
		}
		return &compiler.UnaryExpr{At: w.pos(), Op: w.Op, Operand: x}, nil

	case KindCall:
		call := &compiler.CallExpr{At: w.pos(), Callee: w.Name}
		for _, c := range w.Children {
			a, err := toExpr(c)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, a)
		}
		return call, nil

	case KindIdentifier:
		return &compiler.Identifier{At: w.pos(), Name: w.Name}, nil

	case KindLiteral:
		return w.toLiteral()
	}
	return nil, w.errorf("not an expression")
}

func (w *Node) toLiteral() (*compiler.Literal, error) {
	lit := &compiler.Literal{At: w.pos()}
	switch w.LitKind {
	case compiler.LitInt.String():
		lit.Kind, lit.Value = compiler.LitInt, w.Int
	case compiler.LitFloat.String():
		lit.Kind, lit.Value = compiler.LitFloat, w.Float
	case compiler.LitBool.String():
		lit.Kind, lit.Value = compiler.LitBool, w.Bool
	case compiler.LitChar.String():
		lit.Kind, lit.Value = compiler.LitChar, rune(w.Int)
	case compiler.LitString.String():
		lit.Kind, lit.Value = compiler.LitString, w.Str
	default:
		return nil, w.errorf("unknown literal kind %q", w.LitKind)
	}
	return lit, nil
}
