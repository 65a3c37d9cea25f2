package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for MinLang source
// ---------------------------------------------------------------------------

// cursor is the lexer's read position over the source bytes.
type cursor struct {
	src  string
	pos  int // offset of the current byte
	line int // current line (1-based)
	col  int // current column (1-based, bytes)
}

func newCursor(src string) cursor {
	return cursor{src: src, line: 1, col: 1}
}

func (c *cursor) atEOF() bool {
	return c.pos >= len(c.src)
}

// peek returns the current byte, or 0 at end of input. Callers that need to
// tell a NUL byte from the end use atEOF.
func (c *cursor) peek() byte {
	return c.peekAt(0)
}

// peekAt returns the byte n positions ahead of the current one.
func (c *cursor) peekAt(n int) byte {
	if c.pos+n >= len(c.src) {
		return 0
	}
	return c.src[c.pos+n]
}

// advance consumes the current byte and keeps line/column in step.
func (c *cursor) advance() {
	if c.atEOF() {
		return
	}
	if c.src[c.pos] == '\n' {
		c.line++
		c.col = 1
	} else {
		c.col++
	}
	c.pos++
}

func (c *cursor) advanceN(n int) {
	for i := 0; i < n; i++ {
		c.advance()
	}
}

func (c *cursor) position() Position {
	return Position{Offset: c.pos, Line: c.line, Column: c.col}
}

// Lexer tokenizes MinLang source code. A Lexer is single-use: after it
// returns an error it should be discarded.
type Lexer struct {
	file string
	cur  cursor
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return NewFileLexer("", input)
}

// NewFileLexer creates a lexer whose errors are attributed to filename.
func NewFileLexer(filename, input string) *Lexer {
	return &Lexer{file: filename, cur: newCursor(input)}
}

func (l *Lexer) errorf(format string, args ...any) error {
	return &LexError{File: l.file, Pos: l.cur.position(), Msg: fmt.Sprintf(format, args...)}
}

// NextToken returns the next token. At end of input it returns an EOF token,
// and keeps returning one on further calls.
func (l *Lexer) NextToken() (Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}

	pos := l.cur.position()
	if l.cur.atEOF() {
		return Token{Type: TokenEOF, Pos: pos}, nil
	}

	ch := l.cur.peek()
	switch {
	case isDigit(ch):
		return l.readNumber(pos)

	case isLetter(ch) || ch == '_':
		return l.readIdentifierOrKeyword(pos), nil

	case ch == '"':
		return l.readString(pos)

	case ch == '\'':
		return l.readCharacter(pos)

	case isOperatorChar(ch):
		return l.readOperator(pos)
	}

	if typ, ok := delimiters[ch]; ok {
		l.cur.advance()
		lit := string(ch)
		return Token{Type: typ, Literal: lit, Value: lit, Pos: pos}, nil
	}

	return Token{}, l.unexpectedCharacter()
}

func (l *Lexer) unexpectedCharacter() error {
	r, _ := utf8.DecodeRuneInString(l.cur.src[l.cur.pos:])
	return l.errorf("unexpected character: %q", r)
}

// skipWhitespaceAndComments skips blanks, newlines, // and /* */ comments.
func (l *Lexer) skipWhitespaceAndComments() error {
	for !l.cur.atEOF() {
		switch ch := l.cur.peek(); {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.cur.advance()

		case ch == '/' && l.cur.peekAt(1) == '/':
			for !l.cur.atEOF() && l.cur.peek() != '\n' {
				l.cur.advance()
			}

		case ch == '/' && l.cur.peekAt(1) == '*':
			l.cur.advanceN(2)
			for {
				if l.cur.atEOF() {
					return l.errorf("unterminated multi-line comment")
				}
				if l.cur.peek() == '*' && l.cur.peekAt(1) == '/' {
					l.cur.advanceN(2)
					break
				}
				l.cur.advance()
			}

		default:
			return nil
		}
	}
	return nil
}

// readNumber reads an integer or float literal: digits, optionally followed
// by a single '.' and more digits.
func (l *Lexer) readNumber(pos Position) (Token, error) {
	start := l.cur.pos
	isFloat := false

	for !l.cur.atEOF() && (isDigit(l.cur.peek()) || l.cur.peek() == '.') {
		if l.cur.peek() != '.' {
			l.cur.advance()
			continue
		}
		if isFloat {
			return Token{}, l.errorf("multiple decimal points in number")
		}
		isFloat = true
		l.cur.advance()
		if !isDigit(l.cur.peek()) {
			return Token{}, l.errorf("expected digit after decimal point")
		}
	}

	lit := l.cur.src[start:l.cur.pos]
	if isFloat {
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return Token{}, l.errorf("float literal out of range: %s", lit)
		}
		return Token{Type: TokenFloatLiteral, Literal: lit, Value: v, Pos: pos}, nil
	}

	v, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return Token{}, l.errorf("integer literal out of range: %s", lit)
	}
	return Token{Type: TokenIntLiteral, Literal: lit, Value: v, Pos: pos}, nil
}

// readIdentifierOrKeyword reads [A-Za-z_][A-Za-z0-9_]* and classifies it.
func (l *Lexer) readIdentifierOrKeyword(pos Position) Token {
	start := l.cur.pos
	for isLetter(l.cur.peek()) || isDigit(l.cur.peek()) || l.cur.peek() == '_' {
		l.cur.advance()
	}
	lit := l.cur.src[start:l.cur.pos]

	typ, ok := keywords[lit]
	if !ok {
		return Token{Type: TokenIdentifier, Literal: lit, Value: lit, Pos: pos}
	}
	switch typ {
	case TokenTrue:
		return Token{Type: typ, Literal: lit, Value: true, Pos: pos}
	case TokenFalse:
		return Token{Type: typ, Literal: lit, Value: false, Pos: pos}
	}
	return Token{Type: typ, Literal: lit, Value: lit, Pos: pos}
}

// readEscape consumes a backslash escape and returns the character it denotes.
// The cursor must be on the backslash.
func (l *Lexer) readEscape() (rune, error) {
	l.cur.advance() // consume \
	if l.cur.atEOF() {
		return 0, nil
	}
	var r rune
	switch ch := l.cur.peek(); ch {
	case 'n':
		r = '\n'
	case 't':
		r = '\t'
	case 'r':
		r = '\r'
	case '0':
		r = 0
	case '\\':
		r = '\\'
	case '"':
		r = '"'
	case '\'':
		r = '\''
	default:
		e, _ := utf8.DecodeRuneInString(l.cur.src[l.cur.pos:])
		return 0, l.errorf("invalid escape sequence: %q", `\`+string(e))
	}
	l.cur.advance()
	return r, nil
}

// readString reads a double-quoted string literal.
func (l *Lexer) readString(pos Position) (Token, error) {
	start := l.cur.pos
	l.cur.advance() // consume opening "

	var sb strings.Builder
	for {
		if l.cur.atEOF() || l.cur.peek() == '\n' {
			return Token{}, l.errorf("unterminated string literal")
		}
		ch := l.cur.peek()
		if ch == '"' {
			break
		}
		if ch == '\\' {
			r, err := l.readEscape()
			if err != nil {
				return Token{}, err
			}
			if l.cur.atEOF() {
				return Token{}, l.errorf("unterminated string literal")
			}
			sb.WriteRune(r)
			continue
		}
		sb.WriteByte(ch)
		l.cur.advance()
	}
	l.cur.advance() // consume closing "

	return Token{Type: TokenStringLiteral, Literal: l.cur.src[start:l.cur.pos], Value: sb.String(), Pos: pos}, nil
}

// readCharacter reads a single-quoted character literal holding exactly one,
// possibly escaped, character.
func (l *Lexer) readCharacter(pos Position) (Token, error) {
	start := l.cur.pos
	l.cur.advance() // consume opening '

	if l.cur.atEOF() || l.cur.peek() == '\n' {
		return Token{}, l.errorf("unterminated character literal")
	}
	if l.cur.peek() == '\'' {
		return Token{}, l.errorf("empty character literal")
	}

	var value rune
	if l.cur.peek() == '\\' {
		r, err := l.readEscape()
		if err != nil {
			return Token{}, err
		}
		value = r
	} else {
		r, size := utf8.DecodeRuneInString(l.cur.src[l.cur.pos:])
		value = r
		l.cur.advanceN(size)
	}

	switch {
	case l.cur.atEOF() || l.cur.peek() == '\n':
		return Token{}, l.errorf("unterminated character literal")
	case l.cur.peek() != '\'':
		return Token{}, l.errorf("character literal must contain exactly one character")
	}
	l.cur.advance() // consume closing '

	return Token{Type: TokenCharLiteral, Literal: l.cur.src[start:l.cur.pos], Value: value, Pos: pos}, nil
}

// readOperator reads a one or two character operator, preferring the longer.
func (l *Lexer) readOperator(pos Position) (Token, error) {
	if l.cur.pos+2 <= len(l.cur.src) {
		two := l.cur.src[l.cur.pos : l.cur.pos+2]
		if typ, ok := operators[two]; ok {
			l.cur.advanceN(2)
			return Token{Type: typ, Literal: two, Value: two, Pos: pos}, nil
		}
	}

	one := l.cur.src[l.cur.pos : l.cur.pos+1]
	if typ, ok := operators[one]; ok {
		l.cur.advance()
		return Token{Type: typ, Literal: one, Value: one, Pos: pos}, nil
	}

	return Token{}, l.unexpectedCharacter()
}

// Helper functions

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Tokenize returns all tokens from the input, ending with a single EOF token.
func Tokenize(input string) ([]Token, error) {
	return TokenizeFile("", input)
}

// TokenizeFile is Tokenize with errors attributed to filename.
func TokenizeFile(filename, input string) ([]Token, error) {
	l := NewFileLexer(filename, input)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}
