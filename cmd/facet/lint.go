package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/facet-lang/facet/internal/cli/config"
	"github.com/facet-lang/facet/internal/cli/ui"
	"github.com/facet-lang/facet/pkg/facet"
)

var lintImportRoots []string

func init() {
	lintCmd.Flags().StringArrayVar(&lintImportRoots, "import-root", nil, "Allowed import root directory (repeatable)")
}

var lintCmd = &cobra.Command{
	Use:   "lint <path|->",
	Short: "Compile a FACET document and print OK or the compile error",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		text, currentFile, err := readSource(args[0])
		if err != nil {
			return err
		}

		roots := cfg.ImportRoots
		if len(lintImportRoots) > 0 {
			roots = lintImportRoots
		}

		_, ferr := facet.Compile(text, facet.Options{
			ImportRoots: roots,
			CurrentFile: currentFile,
		})
		if ferr != nil {
			ui.WriteCompileError(os.Stderr, ferr, false)
			os.Exit(1)
		}
		fmt.Println("OK")
		return nil
	},
}
