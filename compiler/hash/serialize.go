package hash

import (
	"encoding/binary"
	"math"

	"github.com/chazu/minlang/compiler"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of the AST for hashing.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Integers: big-endian fixed-width (int64=8B, uint32=4B)
//   - Floats: IEEE 754 big-endian 8B
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Booleans and optional-child markers: single byte (0/1)
//   - Child nodes: serialized inline (flat)
//
// Source positions are never written, so reformatting a program leaves its
// serialization unchanged.
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of an AST node.
// The returned bytes are suitable for hashing with SHA-256.
func Serialize(node compiler.Node) []byte {
	s := &serializer{buf: make([]byte, 0, 256)}
	s.writeByte(HashVersion)
	s.serializeNode(node)
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeBool(v bool) {
	if v {
		s.writeByte(1)
	} else {
		s.writeByte(0)
	}
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeFloat64(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

// writeOptional writes a presence byte followed by the node, if any.
func (s *serializer) writeOptional(n compiler.Node, present bool) {
	s.writeBool(present)
	if present {
		s.serializeNode(n)
	}
}

func (s *serializer) serializeNode(node compiler.Node) {
	switch n := node.(type) {
	case *compiler.Program:
		s.writeByte(TagProgram)
		s.writeUint32(uint32(len(n.Decls)))
		for _, d := range n.Decls {
			s.serializeNode(d)
		}

	case *compiler.VarDecl:
		s.writeByte(TagVarDecl)
		s.writeBool(n.Const)
		s.writeString(n.Type)
		s.writeString(n.Name)
		s.writeOptional(n.Init, n.Init != nil)

	case *compiler.FuncDecl:
		s.writeByte(TagFuncDecl)
		s.writeString(n.ReturnType)
		s.writeString(n.Name)
		s.writeUint32(uint32(len(n.Params)))
		for _, p := range n.Params {
			s.serializeNode(p)
		}
		s.writeOptional(n.Body, n.Body != nil)

	case *compiler.Param:
		s.writeByte(TagParam)
		s.writeString(n.Type)
		s.writeString(n.Name)

	case *compiler.Block:
		s.writeByte(TagBlock)
		s.writeUint32(uint32(len(n.Stmts)))
		for _, stmt := range n.Stmts {
			s.serializeNode(stmt)
		}

	case *compiler.IfStmt:
		s.writeByte(TagIf)
		s.serializeNode(n.Cond)
		s.serializeNode(n.Then)
		s.writeOptional(n.Else, n.Else != nil)

	case *compiler.WhileStmt:
		s.writeByte(TagWhile)
		s.serializeNode(n.Cond)
		s.serializeNode(n.Body)

	case *compiler.ReturnStmt:
		s.writeByte(TagReturn)
		s.writeOptional(n.Value, n.Value != nil)

	case *compiler.ExprStmt:
		s.writeByte(TagExprStmt)
		s.serializeNode(n.X)

	case *compiler.ReadStmt:
		s.writeByte(TagRead)
		s.writeString(n.Target)

	case *compiler.PrintStmt:
		s.writeByte(TagPrint)
		s.serializeNode(n.Value)

	case *compiler.AssignExpr:
		s.writeByte(TagAssign)
		s.writeString(n.Target)
		s.serializeNode(n.Value)

	case *compiler.BinaryExpr:
		s.writeByte(TagBinary)
		s.writeString(n.Op)
		s.serializeNode(n.Left)
		s.serializeNode(n.Right)

	case *compiler.UnaryExpr:
		s.writeByte(TagUnary)
		s.writeString(n.Op)
		s.serializeNode(n.Operand)

	case *compiler.CallExpr:
		s.writeByte(TagCall)
		s.writeString(n.Callee)
		s.writeUint32(uint32(len(n.Args)))
		for _, arg := range n.Args {
			s.serializeNode(arg)
		}

	case *compiler.Identifier:
		s.writeByte(TagIdentifier)
		s.writeString(n.Name)

	case *compiler.Literal:
		s.serializeLiteral(n)
	}
}

func (s *serializer) serializeLiteral(n *compiler.Literal) {
	switch v := n.Value.(type) {
	case int64:
		s.writeByte(TagIntLiteral)
		s.writeInt64(v)
	case float64:
		s.writeByte(TagFloatLiteral)
		s.writeFloat64(v)
	case bool:
		s.writeByte(TagBoolLiteral)
		s.writeBool(v)
	case rune:
		s.writeByte(TagCharLiteral)
		s.writeUint32(uint32(v))
	case string:
		s.writeByte(TagStringLiteral)
		s.writeString(v)
	}
}
