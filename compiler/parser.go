package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for MinLang
// ---------------------------------------------------------------------------

// DefaultMaxDepth bounds statement and expression nesting. Each parenthesized
// sub-expression costs two levels.
const DefaultMaxDepth = 1000

// Parser turns a token sequence into a Program. It looks one token ahead,
// never backtracks, and stops at the first error.
type Parser struct {
	tokens   []Token
	pos      int
	curToken Token

	file     string
	depth    int
	maxDepth int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth sets the nesting limit. Values <= 0 select DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

// WithFilename attributes syntax errors to filename.
func WithFilename(name string) Option {
	return func(p *Parser) {
		p.file = name
	}
}

// NewParser creates a parser over tokens. If the sequence does not end with
// an EOF token one is appended to a private copy.
func NewParser(tokens []Token, opts ...Option) *Parser {
	p := &Parser{tokens: tokens, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}

	if n := len(tokens); n == 0 || tokens[n-1].Type != TokenEOF {
		eof := Token{Type: TokenEOF, Pos: Position{Line: 1, Column: 1}}
		if n > 0 {
			eof.Pos = tokens[n-1].Pos
		}
		p.tokens = append(tokens[:n:n], eof)
	}
	p.curToken = p.tokens[0]
	return p
}

// Parse parses a complete token sequence into a Program.
func Parse(tokens []Token) (*Program, error) {
	return NewParser(tokens).ParseProgram()
}

// ParseSource tokenizes and parses src. filename is used only in errors.
func ParseSource(filename, src string, opts ...Option) (*Program, error) {
	tokens, err := TokenizeFile(filename, src)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithFilename(filename)}, opts...)
	return NewParser(tokens, opts...).ParseProgram()
}

// nextToken advances and returns the token that was current.
func (p *Parser) nextToken() Token {
	tok := p.curToken
	if p.pos < len(p.tokens)-1 {
		p.pos++
		p.curToken = p.tokens[p.pos]
	}
	return tok
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) curTokenIsAny(types ...TokenType) bool {
	for _, t := range types {
		if p.curToken.Type == t {
			return true
		}
	}
	return false
}

// expect consumes the current token if it has type t.
func (p *Parser) expect(t TokenType) (Token, error) {
	if p.curTokenIs(t) {
		return p.nextToken(), nil
	}
	return Token{}, p.errorf("expected %s, got %s", expectedName(t), p.curToken.describe())
}

func expectedName(t TokenType) string {
	switch t {
	case TokenIdentifier:
		return "identifier"
	case TokenEOF:
		return "end of input"
	}
	if s := t.Text(); s != "" {
		return "'" + s + "'"
	}
	return t.String()
}

// errorf builds a syntax error at the current token.
func (p *Parser) errorf(format string, args ...any) error {
	return p.errorAt(p.curToken, format, args...)
}

func (p *Parser) errorAt(tok Token, format string, args ...any) error {
	return &SyntaxError{File: p.file, Token: tok, Msg: fmt.Sprintf(format, args...)}
}

// enter tracks recursion depth; every successful enter must be paired with
// leave.
func (p *Parser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		p.depth--
		return p.errorf("nesting too deep (limit %d)", p.maxDepth)
	}
	return nil
}

func (p *Parser) leave() {
	p.depth--
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses declarations until end of input.
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{At: Position{Line: 1, Column: 1}}
	for !p.curTokenIs(TokenEOF) {
		decl, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, decl)
	}
	return prog, nil
}

// parseDeclaration parses a global variable or a function.
func (p *Parser) parseDeclaration() (Decl, error) {
	start := p.curToken
	isConst := false
	if p.curTokenIs(TokenConst) {
		isConst = true
		p.nextToken()
	}

	if !p.curToken.Type.IsTypeName() {
		return nil, p.errorf("expected type name, got %s", p.curToken.describe())
	}
	typ := p.nextToken().Literal

	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}

	if p.curTokenIs(TokenLParen) {
		if isConst {
			return nil, p.errorAt(start, "function %s cannot be declared const", name.Literal)
		}
		return p.parseFunction(start.Pos, typ, name.Literal)
	}
	return p.parseVariableRest(start.Pos, typ, name.Literal, isConst)
}

// parseFunction parses the parameter list and body of a function.
func (p *Parser) parseFunction(at Position, returnType, name string) (*FuncDecl, error) {
	p.nextToken() // consume (

	var params []*Param
	if !p.curTokenIs(TokenRParen) {
		var err error
		if params, err = p.parseParameters(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &FuncDecl{
		At:         at,
		ReturnType: returnType,
		Name:       name,
		Params:     params,
		Body:       body,
	}, nil
}

// parseParameters parses type IDENT (, type IDENT)*
func (p *Parser) parseParameters() ([]*Param, error) {
	var params []*Param
	for {
		if !p.curToken.Type.IsTypeName() || p.curTokenIs(TokenVoid) {
			return nil, p.errorf("expected parameter type, got %s", p.curToken.describe())
		}
		typTok := p.nextToken()
		name, err := p.expect(TokenIdentifier)
		if err != nil {
			return nil, err
		}
		params = append(params, &Param{At: typTok.Pos, Type: typTok.Literal, Name: name.Literal})

		if !p.curTokenIs(TokenComma) {
			return params, nil
		}
		p.nextToken()
	}
}

// parseVariableRest parses the optional initializer and the terminating ';'
// of a variable declaration whose type and name have been consumed.
func (p *Parser) parseVariableRest(at Position, typ, name string, isConst bool) (*VarDecl, error) {
	var init Expr
	if p.curTokenIs(TokenAssign) {
		p.nextToken()
		var err error
		if init, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return &VarDecl{At: at, Type: typ, Name: name, Init: init, Const: isConst}, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// parseBlock parses { stmts }
func (p *Parser) parseBlock() (*Block, error) {
	lbrace, err := p.expect(TokenLBrace)
	if err != nil {
		return nil, err
	}

	block := &Block{At: lbrace.Pos}
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}

	if _, err := p.expect(TokenRBrace); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	switch {
	case p.curTokenIs(TokenConst) || p.curToken.Type.IsTypeName():
		return p.parseLocalVariable()
	case p.curTokenIs(TokenIf):
		return p.parseIf()
	case p.curTokenIs(TokenWhile):
		return p.parseWhile()
	case p.curTokenIs(TokenReturn):
		return p.parseReturn()
	case p.curTokenIs(TokenLBrace):
		return p.parseBlock()
	case p.curTokenIs(TokenRead):
		return p.parseRead()
	case p.curTokenIs(TokenPrint):
		return p.parsePrint()
	case p.curTokenIs(TokenFor):
		return nil, p.errorf("for statements are not supported")
	}

	start := p.curToken.Pos
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return &ExprStmt{At: start, X: expr}, nil
}

func (p *Parser) parseLocalVariable() (*VarDecl, error) {
	start := p.curToken
	isConst := false
	if p.curTokenIs(TokenConst) {
		isConst = true
		p.nextToken()
		if !p.curToken.Type.IsTypeName() {
			return nil, p.errorf("expected type name, got %s", p.curToken.describe())
		}
	}
	typ := p.nextToken().Literal

	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	return p.parseVariableRest(start.Pos, typ, name.Literal, isConst)
}

// parseCondition parses ( expr )
func (p *Parser) parseCondition() (Expr, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *Parser) parseIf() (*IfStmt, error) {
	at := p.nextToken().Pos // consume if

	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	stmt := &IfStmt{At: at, Cond: cond, Then: then}
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		if stmt.Else, err = p.parseStatement(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (*WhileStmt, error) {
	at := p.nextToken().Pos // consume while

	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{At: at, Cond: cond, Body: body}, nil
}

func (p *Parser) parseReturn() (*ReturnStmt, error) {
	stmt := &ReturnStmt{At: p.nextToken().Pos} // consume return

	if !p.curTokenIs(TokenSemicolon) {
		var err error
		if stmt.Value, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseRead parses read ( IDENT ) ;
func (p *Parser) parseRead() (*ReadStmt, error) {
	at := p.nextToken().Pos // consume read

	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	target, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return &ReadStmt{At: at, Target: target.Literal}, nil
}

// parsePrint parses print ( expr ) ;
func (p *Parser) parsePrint() (*PrintStmt, error) {
	at := p.nextToken().Pos // consume print

	value, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return &PrintStmt{At: at, Value: value}, nil
}

// ---------------------------------------------------------------------------
// Expressions, lowest precedence first
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression() (Expr, error) {
	return p.parseAssignment()
}

// parseAssignment is right-associative; the target must be a bare identifier.
func (p *Parser) parseAssignment() (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	expr, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if !p.curTokenIs(TokenAssign) {
		return expr, nil
	}

	assign := p.curToken
	ident, ok := expr.(*Identifier)
	if !ok {
		return nil, p.errorAt(assign, "invalid assignment target")
	}
	p.nextToken()

	value, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	return &AssignExpr{At: assign.Pos, Target: ident.Name, Value: value}, nil
}

// parseBinary parses one left-associative precedence level: operands come
// from next, operators from ops.
func (p *Parser) parseBinary(next func() (Expr, error), ops ...TokenType) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.curTokenIsAny(ops...) {
		op := p.nextToken()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{At: op.Pos, Op: op.Literal, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseLogicalOr() (Expr, error) {
	return p.parseBinary(p.parseLogicalAnd, TokenOr)
}

func (p *Parser) parseLogicalAnd() (Expr, error) {
	return p.parseBinary(p.parseEquality, TokenAnd)
}

func (p *Parser) parseEquality() (Expr, error) {
	return p.parseBinary(p.parseRelational, TokenEqual, TokenNotEqual)
}

func (p *Parser) parseRelational() (Expr, error) {
	return p.parseBinary(p.parseAdditive, TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual)
}

func (p *Parser) parseAdditive() (Expr, error) {
	return p.parseBinary(p.parseMultiplicative, TokenPlus, TokenMinus)
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	return p.parseBinary(p.parseUnary, TokenStar, TokenSlash, TokenPercent)
}

// parseUnary parses prefix ! and -.
func (p *Parser) parseUnary() (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if !p.curTokenIsAny(TokenNot, TokenMinus) {
		return p.parsePostfix()
	}
	op := p.nextToken()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &UnaryExpr{At: op.Pos, Op: op.Literal, Operand: operand}, nil
}

// parsePostfix parses calls: primary ( args )*
func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.curTokenIs(TokenLParen) {
		callee, ok := expr.(*Identifier)
		if !ok {
			return nil, p.errorf("only identifiers can be called")
		}
		p.nextToken() // consume (

		var args []Expr
		if !p.curTokenIs(TokenRParen) {
			for {
				arg, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.curTokenIs(TokenComma) {
					break
				}
				p.nextToken()
			}
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		expr = &CallExpr{At: callee.At, Callee: callee.Name, Args: args}
	}
	return expr, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.curToken
	switch tok.Type {
	case TokenIntLiteral:
		p.nextToken()
		return &Literal{At: tok.Pos, Kind: LitInt, Value: tok.Value}, nil
	case TokenFloatLiteral:
		p.nextToken()
		return &Literal{At: tok.Pos, Kind: LitFloat, Value: tok.Value}, nil
	case TokenTrue, TokenFalse:
		p.nextToken()
		return &Literal{At: tok.Pos, Kind: LitBool, Value: tok.Type == TokenTrue}, nil
	case TokenCharLiteral:
		p.nextToken()
		return &Literal{At: tok.Pos, Kind: LitChar, Value: tok.Value}, nil
	case TokenStringLiteral:
		p.nextToken()
		return &Literal{At: tok.Pos, Kind: LitString, Value: tok.Value}, nil
	case TokenIdentifier:
		p.nextToken()
		return &Identifier{At: tok.Pos, Name: tok.Literal}, nil
	case TokenLParen:
		p.nextToken()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, p.errorf("unexpected token %s", tok.describe())
}
