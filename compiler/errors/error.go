// Package errors implements the single coded error type the FACET compiler
// raises from every stage, adapted from the teacher's CompilerError: a
// stable code, a human message, an optional source position, and enough
// surrounding context to render a useful terminal diagnostic.
package errors

import (
	"encoding/json"
	"fmt"
)

// Severity classifies how serious a diagnostic is. The core itself only
// ever raises Error or Fatal (spec §7: errors are never recovered inside
// the core), but Warning/Info are kept for host tooling built on top.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for Severity.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Position is a source location: line and column are 1-indexed.
type Position struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Context carries a few lines of source surrounding an error, for terminal
// rendering.
type Context struct {
	SourceLines []string `json:"source_lines"`
	HighlightAt int      `json:"highlight_at"` // index into SourceLines
}

// FacetError is the single error type every compilation stage raises.
type FacetError struct {
	Phase    string   `json:"phase"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Position Position `json:"position"`
	Severity Severity `json:"severity"`
	Context  *Context `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *FacetError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Position, e.Code, e.Message)
}

// New creates a FacetError at Error severity, deriving Phase from Code.
func New(code string, pos Position, format string, args ...any) *FacetError {
	msg := GetErrorMessage(code)
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &FacetError{
		Phase:    PhaseForCode(code),
		Code:     code,
		Message:  msg,
		Position: pos,
		Severity: Error,
	}
}

// WithContext attaches source context lines, grounded on the teacher's
// EnrichError / extractSourceContext.
func (e *FacetError) WithContext(lines []string, highlightAt int) *FacetError {
	e.Context = &Context{SourceLines: lines, HighlightAt: highlightAt}
	return e
}

// EnrichFromSource attaches up to three lines of context before and after
// the error line, extracted from the full source text.
func EnrichFromSource(e *FacetError, source string) *FacetError {
	lines := splitLines(source)
	line := e.Position.Line
	if line < 1 || line > len(lines) {
		return e
	}
	start := line - 4
	if start < 0 {
		start = 0
	}
	end := line + 3
	if end > len(lines) {
		end = len(lines)
	}
	return e.WithContext(lines[start:end], line-1-start)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
