package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/minlang/compiler"
	"github.com/chazu/minlang/wire"
)

var (
	showTokens bool
	showAST    bool
	outFile    string
	tokensFile string
	format     string
)

func init() {
	flags := rootCmd.Flags()
	flags.BoolVar(&showTokens, "tokens", false, "print the token stream")
	flags.BoolVar(&showAST, "ast", false, "print the syntax tree")
	flags.StringVarP(&outFile, "output", "o", "", "write the syntax tree to `file`")
	flags.StringVar(&tokensFile, "tokens-out", "", "write the token stream to `file`")
	flags.StringVar(&format, "format", "cbor", "export format for -o and --tokens-out: text, yaml or cbor")
}

// unit is the front-end result for one source file. tokens is set once
// lexing succeeds and prog once parsing succeeds.
type unit struct {
	path   string
	tokens []compiler.Token
	prog   *compiler.Program
}

// compileSource lexes and parses src. The returned unit is never nil; on a
// syntax error it still carries the tokens.
func compileSource(path string, src []byte, depth int) (*unit, error) {
	u := &unit{path: path}

	log.Infof("%s: lexical analysis", path)
	tokens, err := compiler.TokenizeFile(path, string(src))
	if err != nil {
		return u, err
	}
	u.tokens = tokens
	log.Infof("%s: generated %d tokens", path, len(tokens))

	log.Infof("%s: syntax analysis", path)
	prog, err := compiler.NewParser(tokens, compiler.WithFilename(path), compiler.WithMaxDepth(depth)).ParseProgram()
	if err != nil {
		return u, err
	}
	u.prog = prog
	log.Infof("%s: %d declarations", path, len(prog.Decls))
	return u, nil
}

// compileFile reads and compiles the file at path.
func compileFile(path string, depth int) (*unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read source: %w", err)
	}
	return compileSource(path, src, depth)
}

func runCompile(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	u, err := compileFile(args[0], parserDepth(project))
	if u != nil && u.tokens != nil {
		if showTokens {
			fmt.Fprintln(out, "=== TOKEN STREAM ===")
			if werr := writeTokenTable(out, u.tokens); werr != nil {
				return werr
			}
			fmt.Fprintln(out)
		}
		if tokensFile != "" {
			if werr := exportTokens(tokensFile, u.tokens, format); werr != nil {
				return werr
			}
		}
	}
	if err != nil {
		return err
	}

	if showAST {
		fmt.Fprintln(out, "=== ABSTRACT SYNTAX TREE ===")
		if err := compiler.Fprint(out, u.prog); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	if outFile != "" {
		if err := exportProgram(outFile, u.prog, format); err != nil {
			return err
		}
	}

	log.Infof("%s: compilation completed successfully", u.path)
	return nil
}

// writeTokenTable prints one token per line: index, type, lexeme and
// position. The EOF token is included.
func writeTokenTable(w io.Writer, tokens []compiler.Token) error {
	for i, tok := range tokens {
		lexeme := tok.Literal
		if tok.Type == compiler.TokenEOF {
			lexeme = ""
		}
		if _, err := fmt.Fprintf(w, "%4d  %-16s %-24q %s\n", i, tok.Type, lexeme, tok.Pos); err != nil {
			return err
		}
	}
	return nil
}

func encodeProgram(prog *compiler.Program, format string) ([]byte, error) {
	switch format {
	case "text":
		return []byte(compiler.Sprint(prog)), nil
	case "yaml":
		return wire.MarshalYAML(prog)
	case "cbor":
		return wire.MarshalCBOR(prog)
	}
	return nil, fmt.Errorf("unknown format %q (want text, yaml or cbor)", format)
}

func encodeTokens(tokens []compiler.Token, format string) ([]byte, error) {
	switch format {
	case "text":
		var buf bytes.Buffer
		if err := writeTokenTable(&buf, tokens); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "yaml":
		return wire.MarshalTokensYAML(tokens)
	case "cbor":
		return wire.MarshalTokensCBOR(tokens)
	}
	return nil, fmt.Errorf("unknown format %q (want text, yaml or cbor)", format)
}

func exportProgram(path string, prog *compiler.Program, format string) error {
	data, err := encodeProgram(prog, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	log.Infof("wrote %s (%s, %d bytes)", path, format, len(data))
	return nil
}

func exportTokens(path string, tokens []compiler.Token, format string) error {
	data, err := encodeTokens(tokens, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	log.Infof("wrote %s (%s, %d bytes)", path, format, len(data))
	return nil
}
