package compiler

// Visitor is called by Walk for each node. If Visit returns a non-nil
// visitor w, Walk visits each child of the node with w, followed by a
// call of w.Visit(nil).
type Visitor interface {
	Visit(n Node) (w Visitor)
}

// Walk traverses an AST in depth-first, source order.
func Walk(v Visitor, n Node) {
	if v = v.Visit(n); v == nil {
		return
	}

	switch n := n.(type) {
	case *Program:
		for _, d := range n.Decls {
			Walk(v, d)
		}

	case *VarDecl:
		if n.Init != nil {
			Walk(v, n.Init)
		}

	case *FuncDecl:
		for _, p := range n.Params {
			Walk(v, p)
		}
		if n.Body != nil {
			Walk(v, n.Body)
		}

	case *Block:
		for _, s := range n.Stmts {
			Walk(v, s)
		}

	case *IfStmt:
		Walk(v, n.Cond)
		Walk(v, n.Then)
		if n.Else != nil {
			Walk(v, n.Else)
		}

	case *WhileStmt:
		Walk(v, n.Cond)
		Walk(v, n.Body)

	case *ReturnStmt:
		if n.Value != nil {
			Walk(v, n.Value)
		}

	case *ExprStmt:
		Walk(v, n.X)

	case *PrintStmt:
		Walk(v, n.Value)

	case *AssignExpr:
		Walk(v, n.Value)

	case *BinaryExpr:
		Walk(v, n.Left)
		Walk(v, n.Right)

	case *UnaryExpr:
		Walk(v, n.Operand)

	case *CallExpr:
		for _, a := range n.Args {
			Walk(v, a)
		}

	case *Param, *ReadStmt, *Identifier, *Literal:
		// leaves
	}

	v.Visit(nil)
}

type inspector func(Node) bool

func (f inspector) Visit(n Node) Visitor {
	if n != nil && f(n) {
		return f
	}
	return nil
}

// Inspect traverses an AST, calling f for each node. If f returns false the
// children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	Walk(inspector(f), n)
}
