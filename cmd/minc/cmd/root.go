package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/chazu/minlang/compiler"
	"github.com/chazu/minlang/manifest"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

var log = commonlog.GetLogger("minc")

var (
	verbose  int
	maxDepth int

	// project is the manifest found from the working directory, if any.
	project *manifest.Manifest
)

var rootCmd = &cobra.Command{
	Use:   "minc <file>",
	Short: "MinLang compiler front end",
	Long: `minc lexes and parses MinLang source files.

With a single file argument it reports the first lexical or syntax error, and
can print the token stream, print the syntax tree, or export the tree as text,
YAML or CBOR. The build subcommand checks every source file of a project
described by minlang.toml.`,
	Version:           version,
	Args:              cobra.ExactArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runCompile,
}

// Execute runs the command line and reports any failure on stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(os.Stderr, err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "log progress (repeat for debug output)")
	rootCmd.PersistentFlags().IntVar(&maxDepth, "max-depth", 0, "parser nesting limit (default from minlang.toml, else 1000)")
}

// setup loads the project manifest and configures logging before any
// command runs.
func setup(cmd *cobra.Command, args []string) error {
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return err
	}
	project = m

	verbosity := verbose
	if !cmd.Flags().Changed("verbose") && m != nil {
		verbosity = m.Log.Verbosity
	}
	commonlog.Configure(verbosity, nil)
	return nil
}

// parserDepth resolves the nesting limit: flag, then manifest, then the
// parser default.
func parserDepth(m *manifest.Manifest) int {
	if maxDepth > 0 {
		return maxDepth
	}
	if m != nil {
		return m.Parser.MaxDepth
	}
	return 0
}

// phaseOf names the front-end phase that produced err, or "" when err is
// not a diagnostic.
func phaseOf(err error) string {
	var lexErr *compiler.LexError
	var synErr *compiler.SyntaxError
	switch {
	case errors.As(err, &lexErr):
		return "lexer"
	case errors.As(err, &synErr):
		return "parser"
	}
	return ""
}

func printError(w io.Writer, err error) {
	switch phaseOf(err) {
	case "lexer":
		fmt.Fprintf(w, "lexical error: %v\n", err)
	case "parser":
		fmt.Fprintf(w, "syntax error: %v\n", err)
	default:
		fmt.Fprintf(w, "error: %v\n", err)
	}
}
