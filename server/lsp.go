// Package server implements a Language Server Protocol front end for MinLang
// source files, reporting lexer and parser errors as diagnostics.
package server

import (
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/minlang/compiler"
)

const lspName = "minlang-lsp"

var log = commonlog.GetLogger(lspName)

// LspServer answers editor requests from the lexer and parser.
type LspServer struct {
	maxDepth int

	mu   sync.Mutex
	docs map[protocol.DocumentUri]*document // latest analysis per open URI
	good map[protocol.DocumentUri]*document // latest analysis that parsed

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a language server. maxDepth bounds parser nesting; values
// <= 0 select the parser default.
func NewLSP(maxDepth int, version string) *LspServer {
	s := &LspServer{
		maxDepth: maxDepth,
		docs:     make(map[protocol.DocumentUri]*document),
		good:     make(map[protocol.DocumentUri]*document),
		version:  version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion:     s.textDocumentCompletion,
		TextDocumentHover:          s.textDocumentHover,
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentReferences:     s.textDocumentReferences,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("%s %s initializing", lspName, s.version)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true
	capabilities.DocumentSymbolProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// --- Document synchronization ---

// update analyzes text and stores the result for uri.
func (s *LspServer) update(uri protocol.DocumentUri, text string) *document {
	d := analyze(uri, text, s.maxDepth)

	s.mu.Lock()
	s.docs[uri] = d
	if d.prog != nil {
		s.good[uri] = d
	}
	s.mu.Unlock()

	if d.err != nil {
		log.Debugf("%s: %v", uri, d.err)
	}
	return d
}

// lookup returns the latest analysis for uri and the latest one that parsed.
// Either may be nil.
func (s *LspServer) lookup(uri protocol.DocumentUri) (current, good *document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[uri], s.good[uri]
}

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	d := s.update(params.TextDocument.URI, params.TextDocument.Text)
	s.publishDiagnostics(ctx, d)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			d := s.update(uri, whole.Text)
			s.publishDiagnostics(ctx, d)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, uri)
	delete(s.good, uri)
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, d *document) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         d.uri,
		Diagnostics: d.diagnostics(),
	})
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	current, good := s.lookup(params.TextDocument.URI)
	if current == nil {
		return nil, nil
	}

	prefix := current.extractPrefix(params.Position)
	if prefix == "" {
		return nil, nil
	}

	// Declared names come from the last buffer that parsed, so completion
	// keeps working while the user is mid-edit.
	source := current
	if current.prog == nil && good != nil {
		source = good
	}
	return source.complete(prefix, params.Position), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	current, good := s.lookup(params.TextDocument.URI)
	if current == nil {
		return nil, nil
	}
	if current.prog != nil {
		return current.hover(params.Position), nil
	}

	sym, found := staleSymbol(current, good, params.Position)
	if !found {
		return current.hover(params.Position), nil
	}
	if tok, ok := current.tokenAt(params.Position); ok && tok.Type == compiler.TokenIdentifier {
		return current.tokenHover(tok, &sym), nil
	}
	// The buffer does not lex either; show the declaration alone.
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: fmt.Sprintf("```minlang\n%s\n```", sym.detail),
		},
	}, nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	current, good := s.lookup(params.TextDocument.URI)
	if current == nil {
		return nil, nil
	}

	var locations []protocol.Location
	if current.prog != nil {
		locations = current.definition(params.Position)
	} else if sym, found := staleSymbol(current, good, params.Position); found {
		locations = []protocol.Location{good.location(sym)}
	}
	if len(locations) == 0 {
		return nil, nil
	}
	return locations, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	current, good := s.lookup(params.TextDocument.URI)
	if current == nil {
		return nil, nil
	}
	if current.prog != nil {
		return current.references(params.Position), nil
	}
	if sym, found := staleSymbol(current, good, params.Position); found {
		return good.usages(sym.name, &sym), nil
	}
	return current.references(params.Position), nil
}

// staleSymbol resolves the word under the cursor in current against good,
// the last version of the buffer that parsed. It is used while current does
// not parse.
func staleSymbol(current, good *document, pos protocol.Position) (symbol, bool) {
	if good == nil {
		return symbol{}, false
	}
	word := current.extractWord(pos)
	if word == "" {
		return symbol{}, false
	}
	return good.resolve(word, good.compilerPosition(pos))
}

func (s *LspServer) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	current, good := s.lookup(params.TextDocument.URI)
	switch {
	case current != nil && current.prog != nil:
		return current.documentSymbols(), nil
	case good != nil:
		return good.documentSymbols(), nil
	}
	return []protocol.DocumentSymbol{}, nil
}

func boolPtr(b bool) *bool {
	return &b
}
