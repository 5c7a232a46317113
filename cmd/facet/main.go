// Command facet is the CLI driver for the FACET compiler: it reads source
// text, calls pkg/facet.Compile, and renders the result or error (spec §6).
// Structure grounded on the teacher's cmd/conduit/main.go.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "facet",
		Short: "FACET document compiler",
		Long:  "facet compiles FACET source documents into a canonical JSON-serializable tree.",
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(canonCmd)
	rootCmd.AddCommand(lintCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
