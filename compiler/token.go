package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the MinLang lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota

	// Keywords: type names
	TokenInt   // int
	TokenFloat // float
	TokenBool  // bool
	TokenChar  // char
	TokenVoid  // void

	// Keywords: control flow and declarations
	TokenIf     // if
	TokenElse   // else
	TokenWhile  // while
	TokenFor    // for (reserved, no production)
	TokenReturn // return
	TokenConst  // const
	TokenTrue   // true
	TokenFalse  // false
	TokenRead   // read
	TokenPrint  // print

	// Identifiers and literals
	TokenIdentifier    // foo, _bar1
	TokenIntLiteral    // 42
	TokenFloatLiteral  // 3.14
	TokenCharLiteral   // 'a', '\n'
	TokenStringLiteral // "hello"

	// Arithmetic operators
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenSlash   // /
	TokenPercent // %

	// Relational operators
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=
	TokenEqual        // ==
	TokenNotEqual     // !=

	// Logical operators
	TokenAnd // &&
	TokenOr  // ||
	TokenNot // !

	TokenAssign // =

	// Delimiters
	TokenSemicolon // ;
	TokenComma     // ,
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLBracket  // [
	TokenRBracket  // ]
)

var tokenNames = map[TokenType]string{
	TokenEOF:           "EOF",
	TokenInt:           "INT",
	TokenFloat:         "FLOAT",
	TokenBool:          "BOOL",
	TokenChar:          "CHAR",
	TokenVoid:          "VOID",
	TokenIf:            "IF",
	TokenElse:          "ELSE",
	TokenWhile:         "WHILE",
	TokenFor:           "FOR",
	TokenReturn:        "RETURN",
	TokenConst:         "CONST",
	TokenTrue:          "TRUE",
	TokenFalse:         "FALSE",
	TokenRead:          "READ",
	TokenPrint:         "PRINT",
	TokenIdentifier:    "IDENTIFIER",
	TokenIntLiteral:    "INTEGER_LITERAL",
	TokenFloatLiteral:  "FLOAT_LITERAL",
	TokenCharLiteral:   "CHAR_LITERAL",
	TokenStringLiteral: "STRING_LITERAL",
	TokenPlus:          "PLUS",
	TokenMinus:         "MINUS",
	TokenStar:          "MULTIPLY",
	TokenSlash:         "DIVIDE",
	TokenPercent:       "MODULO",
	TokenLess:          "LESS_THAN",
	TokenGreater:       "GREATER_THAN",
	TokenLessEqual:     "LESS_EQUAL",
	TokenGreaterEqual:  "GREATER_EQUAL",
	TokenEqual:         "EQUAL",
	TokenNotEqual:      "NOT_EQUAL",
	TokenAnd:           "AND",
	TokenOr:            "OR",
	TokenNot:           "NOT",
	TokenAssign:        "ASSIGN",
	TokenSemicolon:     "SEMICOLON",
	TokenComma:         "COMMA",
	TokenLParen:        "LPAREN",
	TokenRParen:        "RPAREN",
	TokenLBrace:        "LBRACE",
	TokenRBrace:        "RBRACE",
	TokenLBracket:      "LBRACKET",
	TokenRBracket:      "RBRACKET",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokenInt && t <= TokenPrint
}

// IsTypeName reports whether t names a type (int, float, bool, char, void).
func (t TokenType) IsTypeName() bool {
	return t >= TokenInt && t <= TokenVoid
}

// IsLiteral reports whether t carries a literal value.
func (t TokenType) IsLiteral() bool {
	switch t {
	case TokenIntLiteral, TokenFloatLiteral, TokenCharLiteral, TokenStringLiteral, TokenTrue, TokenFalse:
		return true
	}
	return false
}

// IsOperator reports whether t is an arithmetic, relational, logical or
// assignment operator.
func (t TokenType) IsOperator() bool {
	return t >= TokenPlus && t <= TokenAssign
}

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based byte column within the line
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical token.
//
// Literal is the raw source text of the token and is empty only for EOF.
// Value holds the typed payload: int64, float64, rune, the decoded string,
// bool for true/false, and the lexeme for everything else.
type Token struct {
	Type    TokenType
	Literal string
	Value   any
	Pos     Position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// describe renders a token for error messages.
func (t Token) describe() string {
	if t.Type == TokenEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.Literal)
}

// Reserved words mapped to their token types.
var keywords = map[string]TokenType{
	"int":    TokenInt,
	"float":  TokenFloat,
	"bool":   TokenBool,
	"char":   TokenChar,
	"void":   TokenVoid,
	"if":     TokenIf,
	"else":   TokenElse,
	"while":  TokenWhile,
	"for":    TokenFor,
	"return": TokenReturn,
	"const":  TokenConst,
	"true":   TokenTrue,
	"false":  TokenFalse,
	"read":   TokenRead,
	"print":  TokenPrint,
}

// Operators, one and two characters long. The lexer tries the two-character
// form first.
var operators = map[string]TokenType{
	"+":  TokenPlus,
	"-":  TokenMinus,
	"*":  TokenStar,
	"/":  TokenSlash,
	"%":  TokenPercent,
	"<":  TokenLess,
	">":  TokenGreater,
	"=":  TokenAssign,
	"!":  TokenNot,
	"<=": TokenLessEqual,
	">=": TokenGreaterEqual,
	"==": TokenEqual,
	"!=": TokenNotEqual,
	"&&": TokenAnd,
	"||": TokenOr,
}

var delimiters = map[byte]TokenType{
	';': TokenSemicolon,
	',': TokenComma,
	'(': TokenLParen,
	')': TokenRParen,
	'{': TokenLBrace,
	'}': TokenRBrace,
	'[': TokenLBracket,
	']': TokenRBracket,
}

// LookupKeyword returns the token type for a reserved word.
func LookupKeyword(s string) (TokenType, bool) {
	t, ok := keywords[s]
	return t, ok
}

// LookupOperator returns the token type for a one or two character operator.
func LookupOperator(s string) (TokenType, bool) {
	t, ok := operators[s]
	return t, ok
}

// LookupDelimiter returns the token type for a delimiter character.
func LookupDelimiter(c byte) (TokenType, bool) {
	t, ok := delimiters[c]
	return t, ok
}

// isOperatorChar returns true if c can start an operator.
func isOperatorChar(c byte) bool {
	switch c {
	case '+', '-', '*', '/', '%', '<', '>', '=', '!', '&', '|':
		return true
	}
	return false
}

// tokenText maps fixed-spelling token types back to their source text.
var tokenText = make(map[TokenType]string)

func init() {
	for s, t := range keywords {
		tokenText[t] = s
	}
	for s, t := range operators {
		tokenText[t] = s
	}
	for c, t := range delimiters {
		tokenText[t] = string(c)
	}
}

// Text returns the fixed source spelling of t (e.g. "<=" or "while"), or ""
// for identifiers, literals and EOF.
func (t TokenType) Text() string {
	return tokenText[t]
}
