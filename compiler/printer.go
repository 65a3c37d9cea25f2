package compiler

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Fprint writes an indented, one-node-per-line rendering of n to w.
func Fprint(w io.Writer, n Node) error {
	p := &printer{w: w}
	p.print(n)
	return p.err
}

// Sprint returns the Fprint rendering of n as a string.
func Sprint(n Node) string {
	var sb strings.Builder
	_ = Fprint(&sb, n)
	return sb.String()
}

type printer struct {
	w     io.Writer
	depth int
	err   error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", p.depth), fmt.Sprintf(format, args...))
}

// child prints n one level deeper, under an optional label.
func (p *printer) child(label string, n Node) {
	p.depth++
	if label != "" {
		p.line("%s:", label)
		p.depth++
		p.print(n)
		p.depth--
	} else {
		p.print(n)
	}
	p.depth--
}

func (p *printer) print(n Node) {
	switch n := n.(type) {
	case *Program:
		p.line("Program")
		for _, d := range n.Decls {
			p.child("", d)
		}

	case *VarDecl:
		prefix := ""
		if n.Const {
			prefix = "const "
		}
		p.line("VarDecl %s%s %s", prefix, n.Type, n.Name)
		if n.Init != nil {
			p.child("", n.Init)
		}

	case *FuncDecl:
		params := make([]string, len(n.Params))
		for i, param := range n.Params {
			params[i] = param.Type + " " + param.Name
		}
		p.line("FuncDecl %s %s(%s)", n.ReturnType, n.Name, strings.Join(params, ", "))
		if n.Body != nil {
			p.child("", n.Body)
		}

	case *Param:
		p.line("Param %s %s", n.Type, n.Name)

	case *Block:
		p.line("Block")
		for _, s := range n.Stmts {
			p.child("", s)
		}

	case *IfStmt:
		p.line("If")
		p.child("cond", n.Cond)
		p.child("then", n.Then)
		if n.Else != nil {
			p.child("else", n.Else)
		}

	case *WhileStmt:
		p.line("While")
		p.child("cond", n.Cond)
		p.child("body", n.Body)

	case *ReturnStmt:
		p.line("Return")
		if n.Value != nil {
			p.child("", n.Value)
		}

	case *ExprStmt:
		p.line("ExprStmt")
		p.child("", n.X)

	case *ReadStmt:
		p.line("Read %s", n.Target)

	case *PrintStmt:
		p.line("Print")
		p.child("", n.Value)

	case *AssignExpr:
		p.line("Assign %s", n.Target)
		p.child("", n.Value)

	case *BinaryExpr:
		p.line("Binary %s", n.Op)
		p.child("", n.Left)
		p.child("", n.Right)

	case *UnaryExpr:
		p.line("Unary %s", n.Op)
		p.child("", n.Operand)

	case *CallExpr:
		p.line("Call %s", n.Callee)
		for _, a := range n.Args {
			p.child("", a)
		}

	case *Identifier:
		p.line("Identifier %s", n.Name)

	case *Literal:
		p.line("Literal %s %s", n.Kind, FormatLiteral(n.Kind, n.Value))

	default:
		p.line("%T", n)
	}
}

// FormatLiteral renders a literal value the way it would be written in
// source, so the result lexes back to the same value. Negative numbers,
// infinities and NaN have no literal form; they are rendered as Go would.
func FormatLiteral(kind LiteralKind, v any) string {
	switch kind {
	case LitFloat:
		if f, ok := v.(float64); ok {
			if math.IsInf(f, 0) || math.IsNaN(f) {
				return strconv.FormatFloat(f, 'g', -1, 64)
			}
			s := strconv.FormatFloat(f, 'f', -1, 64)
			if !strings.Contains(s, ".") {
				s += ".0"
			}
			return s
		}
	case LitChar:
		if r, ok := v.(rune); ok {
			return "'" + escape(string(r), '\'') + "'"
		}
	case LitString:
		if s, ok := v.(string); ok {
			return `"` + escape(s, '"') + `"`
		}
	}
	return fmt.Sprint(v)
}

// escape returns s with the lexer's escape sequences applied. Of the two
// quote characters only quote is escaped.
func escape(s string, quote byte) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		case '\\':
			b.WriteString(`\\`)
		case quote:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
