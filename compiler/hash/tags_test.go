package hash

import (
	"testing"

	"github.com/chazu/minlang/compiler"
)

func TestTagsUniqueAndInRange(t *testing.T) {
	seen := make(map[byte]bool, len(allTags))
	for _, tag := range allTags {
		if seen[tag] {
			t.Errorf("duplicate tag: 0x%02X", tag)
		}
		seen[tag] = true
		if tag >= 0xFE {
			t.Errorf("tag 0x%02X is in reserved range 0xFE-0xFF", tag)
		}
	}
	if HashVersion == 0 {
		t.Error("HashVersion must be non-zero")
	}
}

// Every node kind must lead its encoding with its own listed tag.
func TestEveryNodeKindHasATag(t *testing.T) {
	lit := &compiler.Literal{Kind: compiler.LitInt, Value: int64(1)}
	block := &compiler.Block{}

	nodes := []struct {
		name string
		node compiler.Node
		tag  byte
	}{
		{"int literal", lit, TagIntLiteral},
		{"float literal", &compiler.Literal{Kind: compiler.LitFloat, Value: 1.0}, TagFloatLiteral},
		{"string literal", &compiler.Literal{Kind: compiler.LitString, Value: "s"}, TagStringLiteral},
		{"char literal", &compiler.Literal{Kind: compiler.LitChar, Value: 'c'}, TagCharLiteral},
		{"bool literal", &compiler.Literal{Kind: compiler.LitBool, Value: true}, TagBoolLiteral},
		{"identifier", &compiler.Identifier{Name: "x"}, TagIdentifier},
		{"assign", &compiler.AssignExpr{Target: "x", Value: lit}, TagAssign},
		{"binary", &compiler.BinaryExpr{Op: "+", Left: lit, Right: lit}, TagBinary},
		{"unary", &compiler.UnaryExpr{Op: "-", Operand: lit}, TagUnary},
		{"call", &compiler.CallExpr{Callee: "f"}, TagCall},
		{"block", block, TagBlock},
		{"if", &compiler.IfStmt{Cond: lit, Then: block}, TagIf},
		{"while", &compiler.WhileStmt{Cond: lit, Body: block}, TagWhile},
		{"return", &compiler.ReturnStmt{}, TagReturn},
		{"expression statement", &compiler.ExprStmt{X: lit}, TagExprStmt},
		{"read", &compiler.ReadStmt{Target: "x"}, TagRead},
		{"print", &compiler.PrintStmt{Value: lit}, TagPrint},
		{"variable", &compiler.VarDecl{Type: "int", Name: "x"}, TagVarDecl},
		{"function", &compiler.FuncDecl{ReturnType: "void", Name: "f", Body: block}, TagFuncDecl},
		{"parameter", &compiler.Param{Type: "int", Name: "n"}, TagParam},
		{"program", &compiler.Program{}, TagProgram},
	}

	listed := make(map[byte]bool, len(allTags))
	for _, tag := range allTags {
		listed[tag] = true
	}
	used := make(map[byte]string)
	for _, tc := range nodes {
		data := Serialize(tc.node)
		if len(data) < 2 {
			t.Errorf("%s: encoding too short: %x", tc.name, data)
			continue
		}
		tag := data[1]
		if tag != tc.tag {
			t.Errorf("%s: leading tag 0x%02X, want 0x%02X", tc.name, tag, tc.tag)
		}
		if !listed[tag] {
			t.Errorf("%s: tag 0x%02X is missing from allTags", tc.name, tag)
		}
		if other, dup := used[tag]; dup {
			t.Errorf("%s and %s share tag 0x%02X", other, tc.name, tag)
		}
		used[tag] = tc.name
	}

	// Everything listed except the reserved zero belongs to some node kind.
	if len(used) != len(allTags)-1 {
		t.Errorf("%d node kinds use tags, allTags lists %d", len(used), len(allTags)-1)
	}
}
