// Command minc is the MinLang compiler front end.
package main

import (
	"os"

	"github.com/chazu/minlang/cmd/minc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
