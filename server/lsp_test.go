package server

import (
	"reflect"
	"sort"
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const testURI = "file:///test.min"

const sampleProgram = `const int N = 10;
int total;

int add(int a, int b) {
    int sum = a + b;
    return sum;
}

void main() {
    total = add(N, 2);
    print(total);
}
`

func at(line, char int) protocol.Position {
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(char)}
}

func span(l1, c1, l2, c2 int) protocol.Range {
	return protocol.Range{Start: at(l1, c1), End: at(l2, c2)}
}

func sampleDoc(t *testing.T) *document {
	t.Helper()
	d := analyze(testURI, sampleProgram, 0)
	if d.err != nil {
		t.Fatalf("sample program does not parse: %v", d.err)
	}
	return d
}

func labels(items []protocol.CompletionItem) []string {
	var out []string
	for _, item := range items {
		out = append(out, item.Label)
	}
	return out
}

// ---------------------------------------------------------------------------
// LSP text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		text string
		pos  protocol.Position
		want string
	}{
		{"print(to", at(0, 8), "to"},
		{"tot", at(0, 3), "tot"},
		{"", at(0, 0), ""},
		{"first line\nsecond line\nsum_1", at(2, 5), "sum_1"},
		{"x = total", at(0, 9), "total"},
		{"total", at(0, 0), ""},
		{"total", at(0, 99), "total"},
		{"abc", at(5, 0), ""},
	}
	for _, tc := range tests {
		d := analyze(testURI, tc.text, 0)
		if got := d.extractPrefix(tc.pos); got != tc.want {
			t.Errorf("extractPrefix(%q, %v) = %q, want %q", tc.text, tc.pos, got, tc.want)
		}
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		text string
		pos  protocol.Position
		want string
	}{
		{"int total;", at(0, 6), "total"},
		{"int total;", at(0, 9), "total"},
		{"int total;", at(0, 10), ""},
		{"int total;", at(0, 1), "int"},
		{"", at(0, 0), ""},
		{"a\nmy_var = 1", at(1, 2), "my_var"},
		{"abc", at(3, 0), ""},
	}
	for _, tc := range tests {
		d := analyze(testURI, tc.text, 0)
		if got := d.extractWord(tc.pos); got != tc.want {
			t.Errorf("extractWord(%q, %v) = %q, want %q", tc.text, tc.pos, got, tc.want)
		}
	}
}

func TestBoolPtr(t *testing.T) {
	if p := boolPtr(true); p == nil || !*p {
		t.Error("boolPtr(true) should point to true")
	}
	if p := boolPtr(false); p == nil || *p {
		t.Error("boolPtr(false) should point to false")
	}
}

func TestKeywordList(t *testing.T) {
	if !sort.StringsAreSorted(keywordList) {
		t.Errorf("keywordList not sorted: %v", keywordList)
	}
	if len(keywordList) != 14 {
		t.Errorf("len(keywordList) = %d, want 14", len(keywordList))
	}
	for _, kw := range keywordList {
		if kw == "for" {
			t.Error("keywordList should not offer 'for'")
		}
	}
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestDiagnostics_Clean(t *testing.T) {
	diags := sampleDoc(t).diagnostics()
	if diags == nil || len(diags) != 0 {
		t.Errorf("diagnostics = %#v, want empty non-nil slice", diags)
	}
}

func TestDiagnostics_LexErrorUTF16(t *testing.T) {
	// The emoji takes four bytes but two UTF-16 units.
	d := analyze(testURI, "print(\"😀\"); @", 0)
	diags := d.diagnostics()
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	diag := diags[0]
	if diag.Message != "unexpected character: '@'" {
		t.Errorf("message = %q", diag.Message)
	}
	if diag.Range != span(0, 13, 0, 14) {
		t.Errorf("range = %+v, want 0:13-0:14", diag.Range)
	}
	if diag.Code == nil || diag.Code.Value != "lexer" {
		t.Errorf("code = %+v, want lexer", diag.Code)
	}
	if diag.Severity == nil || *diag.Severity != protocol.DiagnosticSeverityError {
		t.Error("severity should be Error")
	}
	if diag.Source == nil || *diag.Source != lspName {
		t.Errorf("source = %v, want %s", diag.Source, lspName)
	}
}

func TestDiagnostics_SyntaxError(t *testing.T) {
	d := analyze(testURI, "int x = 1 +;", 0)
	diags := d.diagnostics()
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	diag := diags[0]
	if diag.Code == nil || diag.Code.Value != "parser" {
		t.Errorf("code = %+v, want parser", diag.Code)
	}
	if diag.Range != span(0, 11, 0, 12) {
		t.Errorf("range = %+v, want 0:11-0:12", diag.Range)
	}
	if !strings.Contains(diag.Message, `";"`) {
		t.Errorf("message %q should name the offending token", diag.Message)
	}
}

func TestDiagnostics_AtEndOfInput(t *testing.T) {
	d := analyze(testURI, "int x", 0)
	diags := d.diagnostics()
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	if diags[0].Message != "expected ';', got end of input" {
		t.Errorf("message = %q", diags[0].Message)
	}
	if diags[0].Range.Start != at(0, 5) {
		t.Errorf("start = %+v, want 0:5", diags[0].Range.Start)
	}
}

func TestDiagnostics_DepthLimit(t *testing.T) {
	src := "int x = " + strings.Repeat("(", 10) + "1" + strings.Repeat(")", 10) + ";"
	if d := analyze(testURI, src, 0); d.err != nil {
		t.Fatalf("default depth: %v", d.err)
	}
	d := analyze(testURI, src, 5)
	if d.err == nil || !strings.Contains(d.err.Error(), "nesting too deep") {
		t.Errorf("err = %v, want nesting error", d.err)
	}
}

// ---------------------------------------------------------------------------
// Symbols
// ---------------------------------------------------------------------------

func TestDocumentSymbols(t *testing.T) {
	syms := sampleDoc(t).documentSymbols()

	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	if want := []string{"N", "total", "add", "main"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("top-level symbols = %v, want %v", names, want)
	}

	n, total, add, main := syms[0], syms[1], syms[2], syms[3]
	if n.Kind != protocol.SymbolKindConstant || *n.Detail != "const int N" {
		t.Errorf("N = kind %v detail %q", n.Kind, *n.Detail)
	}
	if n.Range != span(0, 0, 0, 17) {
		t.Errorf("N range = %+v", n.Range)
	}
	if n.SelectionRange != span(0, 10, 0, 11) {
		t.Errorf("N selection = %+v", n.SelectionRange)
	}
	if total.Kind != protocol.SymbolKindVariable {
		t.Errorf("total kind = %v", total.Kind)
	}

	if add.Kind != protocol.SymbolKindFunction || *add.Detail != "int add(int a, int b)" {
		t.Errorf("add = kind %v detail %q", add.Kind, *add.Detail)
	}
	if add.Range != span(3, 0, 6, 1) {
		t.Errorf("add range = %+v, want 3:0-6:1", add.Range)
	}
	if add.SelectionRange != span(3, 4, 3, 7) {
		t.Errorf("add selection = %+v", add.SelectionRange)
	}
	var children []string
	for _, c := range add.Children {
		children = append(children, *c.Detail)
	}
	if want := []string{"int a", "int b", "int sum"}; !reflect.DeepEqual(children, want) {
		t.Errorf("add children = %v, want %v", children, want)
	}

	if len(main.Children) != 0 {
		t.Errorf("main children = %+v, want none", main.Children)
	}
}

func TestDocumentSymbols_Unparsed(t *testing.T) {
	d := analyze(testURI, "int x = ;", 0)
	if syms := d.documentSymbols(); len(syms) != 0 {
		t.Errorf("documentSymbols = %+v, want none", syms)
	}
}

// ---------------------------------------------------------------------------
// Completion, hover, definition, references
// ---------------------------------------------------------------------------

func TestComplete(t *testing.T) {
	d := sampleDoc(t)
	tests := []struct {
		name   string
		prefix string
		pos    protocol.Position
		want   []string
	}{
		{"params inside add", "a", at(4, 8), []string{"a", "add"}},
		{"locals hidden outside add", "a", at(9, 4), []string{"add"}},
		{"local inside add", "s", at(4, 4), []string{"sum"}},
		{"no locals in main", "s", at(10, 4), nil},
		{"keywords", "f", at(0, 0), []string{"false", "float"}},
		{"globals", "t", at(9, 4), []string{"total", "true"}},
	}
	for _, tc := range tests {
		got := labels(d.complete(tc.prefix, tc.pos))
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: complete(%q) = %v, want %v", tc.name, tc.prefix, got, tc.want)
		}
	}
}

func TestComplete_Kinds(t *testing.T) {
	d := sampleDoc(t)
	kinds := map[string]protocol.CompletionItemKind{}
	for _, item := range d.complete("", at(4, 4)) {
		kinds[item.Label] = *item.Kind
		if item.InsertText == nil || *item.InsertText != item.Label {
			t.Errorf("%s: InsertText = %v", item.Label, item.InsertText)
		}
	}
	want := map[string]protocol.CompletionItemKind{
		"N":     protocol.CompletionItemKindConstant,
		"add":   protocol.CompletionItemKindFunction,
		"sum":   protocol.CompletionItemKindVariable,
		"while": protocol.CompletionItemKindKeyword,
	}
	for label, kind := range want {
		if kinds[label] != kind {
			t.Errorf("%s kind = %v, want %v", label, kinds[label], kind)
		}
	}
}

func TestComplete_Limit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 150; i++ {
		b.WriteString("int v")
		b.WriteString(strings.Repeat("x", i))
		b.WriteString(";\n")
	}
	d := analyze(testURI, b.String(), 0)
	if d.err != nil {
		t.Fatal(d.err)
	}
	if got := len(d.complete("v", at(0, 0))); got != maxCompletionItems {
		t.Errorf("got %d items, want %d", got, maxCompletionItems)
	}
}

func TestHover(t *testing.T) {
	d := sampleDoc(t)
	tests := []struct {
		name string
		pos  protocol.Position
		want []string
		rng  protocol.Range
	}{
		{"function", at(9, 13), []string{"**IDENTIFIER** `add`", "int add(int a, int b)"}, span(9, 12, 9, 15)},
		{"constant", at(9, 16), []string{"const int N"}, span(9, 16, 9, 17)},
		{"literal", at(0, 14), []string{"INTEGER_LITERAL", "value: `10`"}, span(0, 14, 0, 16)},
		{"keyword", at(10, 5), []string{"**PRINT** `print`"}, span(10, 4, 10, 9)},
	}
	for _, tc := range tests {
		h := d.hover(tc.pos)
		if h == nil {
			t.Errorf("%s: hover returned nil", tc.name)
			continue
		}
		content := h.Contents.(protocol.MarkupContent)
		if content.Kind != protocol.MarkupKindMarkdown {
			t.Errorf("%s: kind = %q", tc.name, content.Kind)
		}
		for _, w := range tc.want {
			if !strings.Contains(content.Value, w) {
				t.Errorf("%s: hover %q should contain %q", tc.name, content.Value, w)
			}
		}
		if h.Range == nil || *h.Range != tc.rng {
			t.Errorf("%s: range = %+v, want %+v", tc.name, h.Range, tc.rng)
		}
	}

	if h := d.hover(at(2, 0)); h != nil {
		t.Errorf("hover on blank line = %+v, want nil", h)
	}
}

func TestHover_CharValue(t *testing.T) {
	d := analyze(testURI, `char c = '\n';`, 0)
	h := d.hover(at(0, 10))
	if h == nil {
		t.Fatal("hover returned nil")
	}
	if v := h.Contents.(protocol.MarkupContent).Value; !strings.Contains(v, `'\n' (10)`) {
		t.Errorf("hover = %q", v)
	}
}

func TestDefinition(t *testing.T) {
	d := sampleDoc(t)
	tests := []struct {
		name string
		pos  protocol.Position
		want protocol.Range
	}{
		{"local", at(5, 12), span(4, 8, 4, 11)},
		{"global", at(9, 5), span(1, 4, 1, 9)},
		{"param", at(4, 14), span(3, 12, 3, 13)},
		{"function", at(9, 13), span(3, 4, 3, 7)},
	}
	for _, tc := range tests {
		locs := d.definition(tc.pos)
		if len(locs) != 1 {
			t.Errorf("%s: got %d locations, want 1", tc.name, len(locs))
			continue
		}
		if locs[0].URI != testURI || locs[0].Range != tc.want {
			t.Errorf("%s: location = %+v, want %+v", tc.name, locs[0], tc.want)
		}
	}

	if locs := d.definition(at(10, 5)); locs != nil {
		t.Errorf("definition of keyword = %+v, want nil", locs)
	}
}

func TestDefinition_LocalShadowsGlobal(t *testing.T) {
	src := "int x;\nvoid f() {\n    int x;\n    x = 1;\n}\nvoid g() {\n    x = 2;\n}\n"
	d := analyze(testURI, src, 0)
	if d.err != nil {
		t.Fatal(d.err)
	}
	if locs := d.definition(at(3, 4)); len(locs) != 1 || locs[0].Range != span(2, 8, 2, 9) {
		t.Errorf("x in f = %+v, want the local", locs)
	}
	if locs := d.definition(at(6, 4)); len(locs) != 1 || locs[0].Range != span(0, 4, 0, 5) {
		t.Errorf("x in g = %+v, want the global", locs)
	}
}

func TestReferences(t *testing.T) {
	d := sampleDoc(t)
	locs := d.references(at(1, 6))
	var got []protocol.Range
	for _, l := range locs {
		got = append(got, l.Range)
	}
	want := []protocol.Range{span(1, 4, 1, 9), span(9, 4, 9, 9), span(10, 10, 10, 15)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("references(total) = %+v, want %+v", got, want)
	}

	if locs := d.references(at(2, 0)); locs != nil {
		t.Errorf("references on blank line = %+v, want nil", locs)
	}
}

func TestReferences_SharedParameterName(t *testing.T) {
	d := analyze(testURI, "int f(int x) { return x; }\nint g(int x) { return x; }\n", 0)
	if d.err != nil {
		t.Fatal(d.err)
	}

	tests := []struct {
		name string
		pos  protocol.Position
		want []protocol.Range
	}{
		{"f's x", at(0, 22), []protocol.Range{span(0, 10, 0, 11), span(0, 22, 0, 23)}},
		{"g's x", at(1, 10), []protocol.Range{span(1, 10, 1, 11), span(1, 22, 1, 23)}},
	}
	for _, tc := range tests {
		var got []protocol.Range
		for _, l := range d.references(tc.pos) {
			got = append(got, l.Range)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: references = %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestReferences_LocalAndGlobal(t *testing.T) {
	src := "int x;\nvoid f() {\n    int x;\n    x = 1;\n}\nvoid g() {\n    x = y;\n    y = 2;\n}\n"
	d := analyze(testURI, src, 0)
	if d.err != nil {
		t.Fatal(d.err)
	}

	var global []protocol.Range
	for _, l := range d.references(at(0, 4)) {
		global = append(global, l.Range)
	}
	if want := []protocol.Range{span(0, 4, 0, 5), span(6, 4, 6, 5)}; !reflect.DeepEqual(global, want) {
		t.Errorf("global x = %+v, want %+v", global, want)
	}

	// y is never declared; its uses still find each other.
	if got := len(d.references(at(7, 4))); got != 2 {
		t.Errorf("got %d references to y, want 2", got)
	}
}

// ---------------------------------------------------------------------------
// LSP document synchronization state
// ---------------------------------------------------------------------------

func TestLSP_DocumentStore(t *testing.T) {
	lsp := NewLSP(0, "test")

	d := lsp.update(testURI, sampleProgram)
	if d.prog == nil {
		t.Fatalf("update: %v", d.err)
	}
	current, good := lsp.lookup(testURI)
	if current != d || good != d {
		t.Error("a parsed document should be both current and good")
	}

	broken := lsp.update(testURI, sampleProgram+"\n@")
	current, good = lsp.lookup(testURI)
	if current != broken || good != d {
		t.Error("a broken document should replace current but keep the last good one")
	}

	current, good = lsp.lookup("file:///other.min")
	if current != nil || good != nil {
		t.Error("unknown URI should have no documents")
	}
}

func TestLSP_FallsBackToLastGoodDocument(t *testing.T) {
	tests := []struct {
		name   string
		broken string
	}{
		{"lex error", sampleProgram + "\n@"},
		{"syntax error", sampleProgram + "\nint"},
	}

	for _, tc := range tests {
		lsp := NewLSP(0, "test")
		lsp.update(testURI, sampleProgram)
		if d := lsp.update(testURI, tc.broken); d.prog != nil {
			t.Fatalf("%s: buffer should not parse", tc.name)
		}

		pos := protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     at(9, 13),
		}

		h, err := lsp.textDocumentHover(nil, &protocol.HoverParams{TextDocumentPositionParams: pos})
		if err != nil || h == nil {
			t.Fatalf("%s: hover = %v, %v", tc.name, h, err)
		}
		if v := h.Contents.(protocol.MarkupContent).Value; !strings.Contains(v, "int add(int a, int b)") {
			t.Errorf("%s: hover = %q", tc.name, v)
		}

		def, err := lsp.textDocumentDefinition(nil, &protocol.DefinitionParams{TextDocumentPositionParams: pos})
		if err != nil {
			t.Fatal(err)
		}
		locs, _ := def.([]protocol.Location)
		if len(locs) != 1 || locs[0].Range != span(3, 4, 3, 7) {
			t.Errorf("%s: definition = %+v, want add's name", tc.name, def)
		}

		pos.Position = at(1, 6)
		refs, err := lsp.textDocumentReferences(nil, &protocol.ReferenceParams{TextDocumentPositionParams: pos})
		if err != nil {
			t.Fatal(err)
		}
		if len(refs) != 3 {
			t.Errorf("%s: got %d references to total, want 3", tc.name, len(refs))
		}

		pos.Position = at(9, 6)
		result, err := lsp.textDocumentCompletion(nil, &protocol.CompletionParams{TextDocumentPositionParams: pos})
		if err != nil {
			t.Fatal(err)
		}
		if got := labels(result.([]protocol.CompletionItem)); !reflect.DeepEqual(got, []string{"total"}) {
			t.Errorf("%s: completion = %v, want [total]", tc.name, got)
		}

		symbols, err := lsp.textDocumentDocumentSymbol(nil, &protocol.DocumentSymbolParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		})
		if err != nil {
			t.Fatal(err)
		}
		if got := len(symbols.([]protocol.DocumentSymbol)); got != 4 {
			t.Errorf("%s: got %d symbols, want 4", tc.name, got)
		}
	}
}

func TestLSP_HoverKeepsTokenWhileUnparsed(t *testing.T) {
	lsp := NewLSP(0, "test")
	lsp.update(testURI, sampleProgram)
	lsp.update(testURI, sampleProgram+"\nint")

	h, err := lsp.textDocumentHover(nil, &protocol.HoverParams{TextDocumentPositionParams: protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		Position:     at(9, 13),
	}})
	if err != nil || h == nil {
		t.Fatalf("hover = %v, %v", h, err)
	}
	if v := h.Contents.(protocol.MarkupContent).Value; !strings.HasPrefix(v, "**IDENTIFIER** `add`") {
		t.Errorf("hover = %q", v)
	}
	if h.Range == nil || *h.Range != span(9, 12, 9, 15) {
		t.Errorf("range = %+v", h.Range)
	}
}

func TestLSP_UnknownDocument(t *testing.T) {
	lsp := NewLSP(0, "test")
	pos := protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		Position:     at(0, 0),
	}
	if h, _ := lsp.textDocumentHover(nil, &protocol.HoverParams{TextDocumentPositionParams: pos}); h != nil {
		t.Error("hover on unknown document should be nil")
	}
	if r, _ := lsp.textDocumentDefinition(nil, &protocol.DefinitionParams{TextDocumentPositionParams: pos}); r != nil {
		t.Error("definition on unknown document should be nil")
	}
	if r, _ := lsp.textDocumentReferences(nil, &protocol.ReferenceParams{TextDocumentPositionParams: pos}); r != nil {
		t.Error("references on unknown document should be nil")
	}
	symbols, _ := lsp.textDocumentDocumentSymbol(nil, &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	if len(symbols.([]protocol.DocumentSymbol)) != 0 {
		t.Error("symbols on unknown document should be empty")
	}
}
