package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/minlang/compiler"
)

// document is an open editor buffer together with the result of lexing and
// parsing it. It is immutable once built.
type document struct {
	uri    protocol.DocumentUri
	text   string
	lines  []string
	tokens []compiler.Token  // nil when lexing failed
	prog   *compiler.Program // nil when lexing or parsing failed
	err    error             // first lexical or syntax error
}

// analyze lexes and parses text. maxDepth <= 0 selects the parser default.
func analyze(uri protocol.DocumentUri, text string, maxDepth int) *document {
	d := &document{uri: uri, text: text, lines: strings.Split(text, "\n")}

	tokens, err := compiler.TokenizeFile(string(uri), text)
	if err != nil {
		d.err = err
		return d
	}
	d.tokens = tokens

	prog, err := compiler.NewParser(tokens, compiler.WithMaxDepth(maxDepth), compiler.WithFilename(string(uri))).ParseProgram()
	if err != nil {
		d.err = err
		return d
	}
	d.prog = prog
	return d
}

// ---------------------------------------------------------------------------
// Position conversion. The compiler counts 1-based lines and byte columns;
// LSP counts 0-based lines and UTF-16 code units.
// ---------------------------------------------------------------------------

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

func (d *document) protocolPosition(p compiler.Position) protocol.Position {
	line := p.Line - 1
	if line < 0 {
		line = 0
	}
	char := 0
	if line < len(d.lines) {
		l := d.lines[line]
		col := p.Column - 1
		if col > len(l) {
			col = len(l)
		}
		if col > 0 {
			char = utf16Len(l[:col])
		}
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(char)}
}

// byteColumn converts an LSP position to the line text and a byte offset
// within it. ok is false when the line does not exist.
func (d *document) byteColumn(pos protocol.Position) (line string, col int, ok bool) {
	if int(pos.Line) >= len(d.lines) {
		return "", 0, false
	}
	line = d.lines[pos.Line]
	units := 0
	for i, r := range line {
		if units >= int(pos.Character) {
			return line, i, true
		}
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
	}
	return line, len(line), true
}

// tokenRange is the range covered by a token's lexeme.
func (d *document) tokenRange(tok compiler.Token) protocol.Range {
	end := tok.Pos
	end.Column += len(tok.Literal)
	return protocol.Range{Start: d.protocolPosition(tok.Pos), End: d.protocolPosition(end)}
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func (d *document) diagnostics() []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	if d.err == nil {
		return diagnostics
	}

	pos, width := compiler.Position{}, 1
	msg, phase := d.err.Error(), "error"
	var lexErr *compiler.LexError
	var synErr *compiler.SyntaxError
	switch {
	case errors.As(d.err, &lexErr):
		pos, msg, phase = lexErr.Pos, lexErr.Msg, "lexer"
	case errors.As(d.err, &synErr):
		pos, msg, phase = synErr.Pos(), synErr.Msg, "parser"
		if n := len(synErr.Token.Literal); n > 0 {
			width = n
		}
	}

	end := pos
	end.Column += width
	severity := protocol.DiagnosticSeverityError
	source := lspName
	diagnostics = append(diagnostics, protocol.Diagnostic{
		Range:    protocol.Range{Start: d.protocolPosition(pos), End: d.protocolPosition(end)},
		Severity: &severity,
		Code:     &protocol.IntegerOrString{Value: phase},
		Source:   &source,
		Message:  msg,
	})
	return diagnostics
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// symbol is a named declaration found in a document.
type symbol struct {
	name    string
	detail  string
	kind    protocol.SymbolKind
	nameTok compiler.Token     // the name token
	start   compiler.Position  // first token of the declaration
	end     compiler.Position  // just past the declaration
	owner   *compiler.FuncDecl // enclosing function; nil for top-level names
}

func varDetail(v *compiler.VarDecl) string {
	if v.Const {
		return "const " + v.Type + " " + v.Name
	}
	return v.Type + " " + v.Name
}

func funcDetail(fn *compiler.FuncDecl) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Type + " " + p.Name
	}
	return fmt.Sprintf("%s %s(%s)", fn.ReturnType, fn.Name, strings.Join(params, ", "))
}

// tokenIndex returns the index of the first token at or after pos.
func (d *document) tokenIndex(pos compiler.Position) int {
	return sort.Search(len(d.tokens), func(i int) bool {
		return d.tokens[i].Pos.Offset >= pos.Offset
	})
}

// nameToken returns the first identifier token at or after pos.
func (d *document) nameToken(pos compiler.Position) compiler.Token {
	for i := d.tokenIndex(pos); i < len(d.tokens); i++ {
		if d.tokens[i].Type == compiler.TokenIdentifier {
			return d.tokens[i]
		}
	}
	return compiler.Token{Pos: pos}
}

// statementEnd returns the position just past the ';' or matching '}' that
// closes the construct starting at pos.
func (d *document) statementEnd(pos compiler.Position) compiler.Position {
	depth := 0
	for i := d.tokenIndex(pos); i < len(d.tokens); i++ {
		tok := d.tokens[i]
		switch tok.Type {
		case compiler.TokenLBrace:
			depth++
		case compiler.TokenRBrace:
			depth--
			if depth == 0 {
				end := tok.Pos
				end.Offset++
				end.Column++
				return end
			}
		case compiler.TokenSemicolon:
			if depth == 0 {
				end := tok.Pos
				end.Offset++
				end.Column++
				return end
			}
		case compiler.TokenEOF:
			return tok.Pos
		}
	}
	return pos
}

// symbols lists every declaration in source order: globals and functions,
// with parameters and locals following their function.
func (d *document) symbols() []symbol {
	if d.prog == nil {
		return nil
	}

	var syms []symbol
	for _, decl := range d.prog.Decls {
		switch decl := decl.(type) {
		case *compiler.VarDecl:
			syms = append(syms, d.varSymbol(decl, nil))

		case *compiler.FuncDecl:
			syms = append(syms, symbol{
				name:    decl.Name,
				detail:  funcDetail(decl),
				kind:    protocol.SymbolKindFunction,
				nameTok: d.nameToken(decl.At),
				start:   decl.At,
				end:     d.statementEnd(decl.Body.At),
			})
			for _, p := range decl.Params {
				tok := d.nameToken(p.At)
				end := tok.Pos
				end.Offset += len(tok.Literal)
				end.Column += len(tok.Literal)
				syms = append(syms, symbol{
					name:    p.Name,
					detail:  p.Type + " " + p.Name,
					kind:    protocol.SymbolKindVariable,
					nameTok: tok,
					start:   p.At,
					end:     end,
					owner:   decl,
				})
			}
			compiler.Inspect(decl.Body, func(n compiler.Node) bool {
				if v, ok := n.(*compiler.VarDecl); ok {
					syms = append(syms, d.varSymbol(v, decl))
				}
				return true
			})
		}
	}
	return syms
}

func (d *document) varSymbol(v *compiler.VarDecl, owner *compiler.FuncDecl) symbol {
	kind := protocol.SymbolKindVariable
	if v.Const {
		kind = protocol.SymbolKindConstant
	}
	return symbol{
		name:    v.Name,
		detail:  varDetail(v),
		kind:    kind,
		nameTok: d.nameToken(v.At),
		start:   v.At,
		end:     d.statementEnd(v.At),
		owner:   owner,
	}
}

// documentSymbols builds the outline: top-level names with each function's
// parameters and locals as children.
func (d *document) documentSymbols() []protocol.DocumentSymbol {
	result := []protocol.DocumentSymbol{}
	byOwner := make(map[*compiler.FuncDecl]int)

	for _, sym := range d.symbols() {
		detail := sym.detail
		ds := protocol.DocumentSymbol{
			Name:           sym.name,
			Detail:         &detail,
			Kind:           sym.kind,
			Range:          protocol.Range{Start: d.protocolPosition(sym.start), End: d.protocolPosition(sym.end)},
			SelectionRange: d.tokenRange(sym.nameTok),
		}
		if sym.owner == nil {
			result = append(result, ds)
			continue
		}
		idx, ok := byOwner[sym.owner]
		if !ok {
			idx = len(result) - 1
			byOwner[sym.owner] = idx
		}
		result[idx].Children = append(result[idx].Children, ds)
	}
	return result
}

// ---------------------------------------------------------------------------
// Lookup helpers
// ---------------------------------------------------------------------------

// enclosingFunction returns the function whose text contains pos, if any.
func (d *document) enclosingFunction(pos compiler.Position) *compiler.FuncDecl {
	for _, decl := range d.prog.Decls {
		fn, ok := decl.(*compiler.FuncDecl)
		if !ok {
			continue
		}
		if fn.At.Offset <= pos.Offset && pos.Offset < d.statementEnd(fn.Body.At).Offset {
			return fn
		}
	}
	return nil
}

// resolve finds the declaration a name at pos refers to: parameters and
// locals of the enclosing function first, then top-level names.
func (d *document) resolve(name string, pos compiler.Position) (symbol, bool) {
	return d.resolveIn(d.symbols(), name, pos)
}

// resolveIn is resolve over a precomputed symbol list.
func (d *document) resolveIn(syms []symbol, name string, pos compiler.Position) (symbol, bool) {
	if d.prog == nil {
		return symbol{}, false
	}
	if fn := d.enclosingFunction(pos); fn != nil {
		for _, sym := range syms {
			if sym.owner == fn && sym.name == name {
				return sym, true
			}
		}
	}
	for _, sym := range syms {
		if sym.owner == nil && sym.name == name {
			return sym, true
		}
	}
	return symbol{}, false
}

// tokenAt returns the token under an LSP position.
func (d *document) tokenAt(pos protocol.Position) (compiler.Token, bool) {
	_, col, ok := d.byteColumn(pos)
	if !ok || d.tokens == nil {
		return compiler.Token{}, false
	}
	line := int(pos.Line) + 1
	column := col + 1

	// A cursor just past a token selects it only when no token starts there.
	var touching compiler.Token
	found := false
	for _, tok := range d.tokens {
		if tok.Pos.Line != line || tok.Type == compiler.TokenEOF {
			continue
		}
		end := tok.Pos.Column + len(tok.Literal)
		if tok.Pos.Column <= column && column < end {
			return tok, true
		}
		if column == end {
			touching, found = tok, true
		}
	}
	return touching, found
}

// compilerPosition converts an LSP position back to compiler coordinates.
func (d *document) compilerPosition(pos protocol.Position) compiler.Position {
	_, col, _ := d.byteColumn(pos)
	offset := col
	for i := 0; i < int(pos.Line) && i < len(d.lines); i++ {
		offset += len(d.lines[i]) + 1
	}
	return compiler.Position{Offset: offset, Line: int(pos.Line) + 1, Column: col + 1}
}

// ---------------------------------------------------------------------------
// Language features
// ---------------------------------------------------------------------------

// keywordList is every reserved word with a production, sorted.
var keywordList = func() []string {
	var kws []string
	for t := compiler.TokenInt; t <= compiler.TokenPrint; t++ {
		if t == compiler.TokenFor {
			continue
		}
		kws = append(kws, t.Text())
	}
	sort.Strings(kws)
	return kws
}()

const maxCompletionItems = 100

// complete offers keywords and visible declared names starting with prefix.
func (d *document) complete(prefix string, pos protocol.Position) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)

	add := func(label, detail string, kind protocol.CompletionItemKind) {
		if seen[label] || !strings.HasPrefix(label, prefix) {
			return
		}
		seen[label] = true
		k := kind
		det := detail
		text := label
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &k,
			Detail:     &det,
			InsertText: &text,
		})
	}

	if d.prog != nil {
		syms := d.symbols()
		fn := d.enclosingFunction(d.compilerPosition(pos))
		for _, sym := range syms {
			if sym.owner != nil && sym.owner != fn {
				continue
			}
			kind := protocol.CompletionItemKindVariable
			switch sym.kind {
			case protocol.SymbolKindFunction:
				kind = protocol.CompletionItemKindFunction
			case protocol.SymbolKindConstant:
				kind = protocol.CompletionItemKindConstant
			}
			add(sym.name, sym.detail, kind)
		}
	}
	for _, kw := range keywordList {
		add(kw, "keyword", protocol.CompletionItemKindKeyword)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	if len(items) > maxCompletionItems {
		items = items[:maxCompletionItems]
	}
	return items
}

// hover describes the token under the cursor.
func (d *document) hover(pos protocol.Position) *protocol.Hover {
	tok, ok := d.tokenAt(pos)
	if !ok {
		return nil
	}
	var decl *symbol
	if tok.Type == compiler.TokenIdentifier {
		if sym, found := d.resolve(tok.Literal, tok.Pos); found {
			decl = &sym
		}
	}
	return d.tokenHover(tok, decl)
}

// tokenHover renders tok and, for an identifier, the declaration it refers
// to. decl may be nil.
func (d *document) tokenHover(tok compiler.Token, decl *symbol) *protocol.Hover {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s`", tok.Type, tok.Literal)
	switch {
	case tok.Type == compiler.TokenIdentifier && decl != nil:
		fmt.Fprintf(&b, "\n\n```minlang\n%s\n```", decl.detail)
	case tok.Type == compiler.TokenCharLiteral || tok.Type == compiler.TokenStringLiteral ||
		tok.Type == compiler.TokenIntLiteral || tok.Type == compiler.TokenFloatLiteral:
		fmt.Fprintf(&b, "\n\nvalue: `%s`", formatTokenValue(tok))
	}

	r := d.tokenRange(tok)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: b.String()},
		Range:    &r,
	}
}

func formatTokenValue(tok compiler.Token) string {
	switch v := tok.Value.(type) {
	case rune:
		return fmt.Sprintf("%q (%d)", v, v)
	case string:
		return fmt.Sprintf("%q", v)
	}
	return fmt.Sprint(tok.Value)
}

// definition locates the declaration of the identifier under the cursor.
func (d *document) definition(pos protocol.Position) []protocol.Location {
	tok, ok := d.tokenAt(pos)
	if !ok || tok.Type != compiler.TokenIdentifier || d.prog == nil {
		return nil
	}
	sym, found := d.resolve(tok.Literal, tok.Pos)
	if !found {
		return nil
	}
	return []protocol.Location{d.location(sym)}
}

// location is where sym's name is written.
func (d *document) location(sym symbol) protocol.Location {
	return protocol.Location{URI: d.uri, Range: d.tokenRange(sym.nameTok)}
}

// references lists the occurrences of the identifier under the cursor that
// refer to the same declaration. A name with no declaration matches the
// other undeclared uses of that name.
func (d *document) references(pos protocol.Position) []protocol.Location {
	tok, ok := d.tokenAt(pos)
	if !ok || tok.Type != compiler.TokenIdentifier {
		return nil
	}
	sym, found := d.resolve(tok.Literal, tok.Pos)
	if !found {
		return d.usages(tok.Literal, nil)
	}
	return d.usages(sym.name, &sym)
}

// usages lists the identifier tokens named name that resolve to decl, or
// that resolve to nothing when decl is nil.
func (d *document) usages(name string, decl *symbol) []protocol.Location {
	syms := d.symbols()
	var locations []protocol.Location
	for _, t := range d.tokens {
		if t.Type != compiler.TokenIdentifier || t.Literal != name {
			continue
		}
		sym, found := d.resolveIn(syms, t.Literal, t.Pos)
		switch {
		case decl == nil && found, decl != nil && !found:
			continue
		case decl != nil && sym.nameTok.Pos.Offset != decl.nameTok.Pos.Offset:
			continue
		}
		locations = append(locations, protocol.Location{URI: d.uri, Range: d.tokenRange(t)})
	}
	return locations
}

// ---------------------------------------------------------------------------
// Text extraction helpers
// ---------------------------------------------------------------------------

func isIdentRune(r rune) bool {
	return r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
}

// extractPrefix returns the identifier fragment before the cursor for
// completion.
func (d *document) extractPrefix(pos protocol.Position) string {
	line, col, ok := d.byteColumn(pos)
	if !ok {
		return ""
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentRune(rune(line[start-1])) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func (d *document) extractWord(pos protocol.Position) string {
	line, col, ok := d.byteColumn(pos)
	if !ok {
		return ""
	}

	start := col
	for start > 0 && isIdentRune(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isIdentRune(rune(line[end])) {
		end++
	}
	return line[start:end]
}
