// Package ui renders compile results for the facet CLI: a colorized
// diagnostic on failure, a plain success line otherwise. Adapted from the
// teacher's internal/cli/ui.FormatError/WriteSuccess; the actual error
// formatting lives on compiler/errors.FacetError itself, so this package
// only adds the success-path and writer plumbing the CLI commands need.
package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	cerrors "github.com/facet-lang/facet/compiler/errors"
)

// WriteCompileError writes err's colorized terminal diagnostic to w, or its
// plain "CODE at L:C: message" form when noColor is set.
func WriteCompileError(w io.Writer, err *cerrors.FacetError, noColor bool) {
	if noColor {
		fmt.Fprintln(w, err.PlainLine())
		return
	}
	fmt.Fprint(w, err.FormatForTerminal())
}

// WriteSuccess writes a green one-line success message, or plain text when
// noColor is set.
func WriteSuccess(w io.Writer, message string, noColor bool) {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	green.Fprintf(w, "✓ %s\n", message)
}
