package compiler

import "fmt"

// LexError is returned by the lexer on the first malformed input. Pos is the
// cursor position at the point the problem was detected.
type LexError struct {
	File string
	Pos  Position
	Msg  string
}

func (e *LexError) Error() string {
	return formatDiagnostic(e.File, e.Pos, e.Msg)
}

// SyntaxError is returned by the parser on the first unexpected token.
type SyntaxError struct {
	File  string
	Token Token // offending token
	Msg   string
}

func (e *SyntaxError) Error() string {
	return formatDiagnostic(e.File, e.Token.Pos, e.Msg)
}

// Pos returns the position of the offending token.
func (e *SyntaxError) Pos() Position {
	return e.Token.Pos
}

func formatDiagnostic(file string, pos Position, msg string) string {
	if file != "" {
		return fmt.Sprintf("%s:%d:%d: %s", file, pos.Line, pos.Column, msg)
	}
	return fmt.Sprintf("%d:%d: %s", pos.Line, pos.Column, msg)
}
