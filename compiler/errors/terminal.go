package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	severityColor = map[Severity]*color.Color{
		Info:    color.New(color.FgCyan),
		Warning: color.New(color.FgYellow, color.Bold),
		Error:   color.New(color.FgRed, color.Bold),
		Fatal:   color.New(color.FgRed, color.Bold, color.Underline),
	}
	locationColor = color.New(color.FgBlue)
	gutterColor   = color.New(color.FgBlue)
	codeColor     = color.New(color.FgHiBlack)
)

// FormatForTerminal renders e as a colorized, multi-line diagnostic,
// grounded on the teacher's compiler/errors/terminal.go layout but routed
// through github.com/fatih/color instead of raw ANSI escapes.
func (e *FacetError) FormatForTerminal() string {
	var sb strings.Builder

	sb.WriteString(severityColor[e.Severity].Sprintf("%s", strings.ToUpper(e.Severity.String())))
	sb.WriteString(" ")
	sb.WriteString(codeColor.Sprintf("[%s]", e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	sb.WriteString("\n  ")
	sb.WriteString(locationColor.Sprintf("--> %s", e.Position))
	sb.WriteString("\n")

	if e.Context != nil && len(e.Context.SourceLines) > 0 {
		sb.WriteString(formatContext(e))
	}
	return sb.String()
}

func formatContext(e *FacetError) string {
	var sb strings.Builder
	firstLine := e.Position.Line - e.Context.HighlightAt
	for i, line := range e.Context.SourceLines {
		lineNum := firstLine + i
		marker := " "
		if i == e.Context.HighlightAt {
			marker = ">"
		}
		sb.WriteString(gutterColor.Sprintf("%s %4d |", marker, lineNum))
		sb.WriteString(" ")
		sb.WriteString(line)
		sb.WriteString("\n")
		if i == e.Context.HighlightAt {
			col := e.Position.Column
			if col < 1 {
				col = 1
			}
			sb.WriteString(gutterColor.Sprint("       |"))
			sb.WriteString(" ")
			sb.WriteString(strings.Repeat(" ", col-1))
			sb.WriteString(color.New(color.FgRed, color.Bold).Sprint("^"))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// PlainLine renders the CLI's single-line form: "CODE at L:C: message".
func (e *FacetError) PlainLine() string {
	return fmt.Sprintf("%s at %d:%d: %s", e.Code, e.Position.Line, e.Position.Column, e.Message)
}
