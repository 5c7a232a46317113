package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/facet-lang/facet/internal/cli/config"
	"github.com/facet-lang/facet/internal/cli/ui"
	"github.com/facet-lang/facet/internal/compiler/vars"
	"github.com/facet-lang/facet/pkg/facet"
)

var (
	canonResolveMode string
	canonVars        []string
	canonImportRoots []string
	canonStrictMerge bool
	canonPretty      bool
	canonNoColor     bool
	canonVerbose     bool
)

func init() {
	canonCmd.Flags().StringVar(&canonResolveMode, "resolve", "", "Resolve mode: host or all (overrides config)")
	canonCmd.Flags().StringArrayVar(&canonVars, "var", nil, "Host variable as key=value (repeatable)")
	canonCmd.Flags().StringArrayVar(&canonImportRoots, "import-root", nil, "Allowed import root directory (repeatable)")
	canonCmd.Flags().BoolVar(&canonStrictMerge, "strict-merge", false, "Treat mismatched import body shapes as an error")
	canonCmd.Flags().BoolVar(&canonPretty, "pretty", true, "Pretty-print the output JSON")
	canonCmd.Flags().BoolVar(&canonNoColor, "no-color", false, "Disable colorized error output")
	canonCmd.Flags().BoolVar(&canonVerbose, "verbose", false, "Log import expansion tracing to stderr")
}

var canonCmd = &cobra.Command{
	Use:   "canon <path|->",
	Short: "Compile a FACET document and print its canonical tree as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, text, err := buildCompileOptions(args[0])
		if err != nil {
			return err
		}

		tree, ferr := facet.Compile(text, opts)
		if ferr != nil {
			ui.WriteCompileError(os.Stderr, ferr, canonNoColor)
			os.Exit(1)
		}

		var out []byte
		var jerr error
		if canonPretty {
			out, jerr = json.MarshalIndent(tree, "", "  ")
		} else {
			out, jerr = json.Marshal(tree)
		}
		if jerr != nil {
			return fmt.Errorf("failed to render output: %w", jerr)
		}
		fmt.Println(string(out))
		return nil
	},
}

func buildCompileOptions(path string) (facet.Options, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return facet.Options{}, "", err
	}

	text, currentFile, err := readSource(path)
	if err != nil {
		return facet.Options{}, "", err
	}

	mode := vars.ResolveMode(cfg.ResolveMode)
	if canonResolveMode != "" {
		mode = vars.ResolveMode(canonResolveMode)
	}
	if mode != vars.ResolveHost && mode != vars.ResolveAll {
		return facet.Options{}, "", fmt.Errorf("--resolve must be \"host\" or \"all\", got: %s", mode)
	}

	roots := cfg.ImportRoots
	if len(canonImportRoots) > 0 {
		roots = canonImportRoots
	}

	hostVars, err := parseVarFlags(canonVars)
	if err != nil {
		return facet.Options{}, "", err
	}

	var logger *zap.Logger
	if canonVerbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return facet.Options{}, "", err
		}
	} else {
		logger = zap.NewNop()
	}

	return facet.Options{
		HostVars:    hostVars,
		ResolveMode: mode,
		ImportRoots: roots,
		StrictMerge: canonStrictMerge || cfg.StrictMerge,
		CurrentFile: currentFile,
		Logger:      logger,
	}, text, nil
}

func readSource(path string) (text, currentFile string, err error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), "<stdin>", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), path, nil
}

// parseVarFlags turns repeated "--var a.b.c=1" flags into a nested host
// variable map, matching the dotted-path lookup "{{a.b.c}}" resolves
// against. Scalar values coerce per spec §4.4's type rules: digits-only
// strings become ints, "true"/"false" become bools, everything else stays a
// string.
func parseVarFlags(flags []string) (map[string]any, error) {
	out := make(map[string]any, len(flags))
	for _, f := range flags {
		parts := strings.SplitN(f, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --var %q, expected key=value", f)
		}
		if parts[0] == "" {
			return nil, fmt.Errorf("invalid --var %q, expected key=value", f)
		}
		setDottedVar(out, parts[0], coerceVarValue(parts[1]))
	}
	return out, nil
}

func setDottedVar(out map[string]any, dotted string, val any) {
	parts := strings.Split(dotted, ".")
	cur := out
	for i, p := range parts {
		if i == len(parts)-1 {
			cur[p] = val
			return
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
}

func coerceVarValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if isDigitsOnly(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	return s
}

func isDigitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
