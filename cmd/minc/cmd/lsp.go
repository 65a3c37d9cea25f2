package cmd

import (
	"github.com/spf13/cobra"

	"github.com/chazu/minlang/server"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the language server on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.NewLSP(parserDepth(project), version).Run()
	},
}

func init() {
	rootCmd.AddCommand(lspCmd)
}
