package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chazu/minlang/compiler"
	"github.com/chazu/minlang/compiler/hash"
)

var hashDecls bool

var hashCmd = &cobra.Command{
	Use:   "hash <file>",
	Short: "Print the content hash of a parsed program",
	Long: `Prints the SHA-256 content hash of the program's syntax tree.

The hash ignores layout and comments, so reformatting a file does not change
it. With --decls the hash of every top-level declaration is printed as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := compileFile(args[0], parserDepth(project))
		if err != nil {
			return err
		}
		return writeHashes(cmd.OutOrStdout(), u.path, u.prog, hashDecls)
	},
}

func init() {
	hashCmd.Flags().BoolVar(&hashDecls, "decls", false, "also print per-declaration hashes")
	rootCmd.AddCommand(hashCmd)
}

func writeHashes(w io.Writer, path string, prog *compiler.Program, decls bool) error {
	if _, err := fmt.Fprintf(w, "%s  %s\n", hash.Hex(hash.HashProgram(prog)), path); err != nil {
		return err
	}
	if !decls {
		return nil
	}
	for _, d := range prog.Decls {
		name := ""
		switch d := d.(type) {
		case *compiler.VarDecl:
			name = d.Name
		case *compiler.FuncDecl:
			name = d.Name + "()"
		}
		if _, err := fmt.Fprintf(w, "%s  %s\n", hash.Hex(hash.HashDecl(d)), name); err != nil {
			return err
		}
	}
	return nil
}
