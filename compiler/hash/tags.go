package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the hashing AST serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// all previously computed content hashes.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// AST node type tags. Each tag uniquely identifies a node kind in the
// serialized byte stream.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	// Literal values
	TagIntLiteral    byte = 0x01
	TagFloatLiteral  byte = 0x02
	TagStringLiteral byte = 0x03
	TagCharLiteral   byte = 0x04
	TagBoolLiteral   byte = 0x05

	// References
	TagIdentifier byte = 0x08

	// Expressions
	TagAssign byte = 0x10
	TagBinary byte = 0x11
	TagUnary  byte = 0x12
	TagCall   byte = 0x13

	// Statements
	TagBlock    byte = 0x18
	TagIf       byte = 0x19
	TagWhile    byte = 0x1A
	TagReturn   byte = 0x1B
	TagExprStmt byte = 0x1C
	TagRead     byte = 0x1D
	TagPrint    byte = 0x1E

	// Declarations
	TagVarDecl  byte = 0x20
	TagFuncDecl byte = 0x21
	TagParam    byte = 0x22
	TagProgram  byte = 0x23

	// Reserved 0xFE-0xFF
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagIntLiteral, TagFloatLiteral, TagStringLiteral, TagCharLiteral, TagBoolLiteral,
	TagIdentifier,
	TagAssign, TagBinary, TagUnary, TagCall,
	TagBlock, TagIf, TagWhile, TagReturn, TagExprStmt, TagRead, TagPrint,
	TagVarDecl, TagFuncDecl, TagParam, TagProgram,
}
