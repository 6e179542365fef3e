// Command nqm stores, shares and runs named SPARQL queries.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/nqm/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
