// Package wire exports parsed MinLang programs and token streams in
// machine-readable form: canonical CBOR for storage and exchange, YAML for
// people.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/chazu/minlang/compiler"
)

// cborEncMode uses canonical mode so equal trees encode to equal bytes.
var cborEncMode cbor.EncMode

// cborDecMode accepts trees as deep as the parser can build. Every node
// costs two nesting levels (its map and its children array), so the library
// default of 32 would reject ordinary expressions.
var cborDecMode cbor.DecMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{
		MaxNestedLevels:  65535,
		MaxArrayElements: 2147483647,
		MaxMapPairs:      2147483647,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// MarshalCBOR serializes a program to canonical CBOR bytes.
func MarshalCBOR(prog *compiler.Program) ([]byte, error) {
	return cborEncMode.Marshal(FromAST(prog))
}

// UnmarshalCBOR deserializes a program from CBOR bytes.
func UnmarshalCBOR(data []byte) (*compiler.Program, error) {
	var n Node
	if err := cborDecMode.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("wire: unmarshal program: %w", err)
	}
	return ToAST(&n)
}

// MarshalYAML renders a program as a YAML document.
func MarshalYAML(prog *compiler.Program) ([]byte, error) {
	return yaml.Marshal(FromAST(prog))
}

// UnmarshalYAML reads a program back from MarshalYAML output.
func UnmarshalYAML(data []byte) (*compiler.Program, error) {
	var n Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("wire: unmarshal program: %w", err)
	}
	return ToAST(&n)
}

// Token is the exported form of a lexical token.
type Token struct {
	Type   string `cbor:"1,keyasint" yaml:"type"`
	Lexeme string `cbor:"2,keyasint,omitempty" yaml:"lexeme"`
	Value  any    `cbor:"3,keyasint,omitempty" yaml:"value"`
	Line   int    `cbor:"4,keyasint" yaml:"line"`
	Column int    `cbor:"5,keyasint" yaml:"column"`
}

// FromTokens converts a token stream to its exported form. Character values
// are exported as one-character strings.
func FromTokens(tokens []compiler.Token) []Token {
	out := make([]Token, len(tokens))
	for i, tok := range tokens {
		v := tok.Value
		if r, ok := v.(rune); ok {
			v = string(r)
		}
		out[i] = Token{
			Type:   tok.Type.String(),
			Lexeme: tok.Literal,
			Value:  v,
			Line:   tok.Pos.Line,
			Column: tok.Pos.Column,
		}
	}
	return out
}

// MarshalTokensYAML renders a token stream as a YAML sequence.
func MarshalTokensYAML(tokens []compiler.Token) ([]byte, error) {
	return yaml.Marshal(FromTokens(tokens))
}

// MarshalTokensCBOR serializes a token stream to canonical CBOR bytes.
func MarshalTokensCBOR(tokens []compiler.Token) ([]byte, error) {
	return cborEncMode.Marshal(FromTokens(tokens))
}
