package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/minlang/compiler"
)

// HashProgram computes the SHA-256 content hash of a parsed program.
//
// The hash covers the tree structure, names, operators and literal values
// but not source positions, so two files that differ only in whitespace or
// comments hash the same.
func HashProgram(prog *compiler.Program) [32]byte {
	return sha256.Sum256(Serialize(prog))
}

// HashDecl computes the content hash of a single top-level declaration.
func HashDecl(decl compiler.Decl) [32]byte {
	return sha256.Sum256(Serialize(decl))
}

// HashSource hashes raw source bytes. It keys cached check results.
func HashSource(src []byte) [32]byte {
	return sha256.Sum256(src)
}

// Hex renders a hash as lowercase hexadecimal.
func Hex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}
