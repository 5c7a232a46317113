package errors

import (
	"reflect"
	"testing"
)

func TestNewDerivesPhaseFromCode(t *testing.T) {
	e := New(ErrTabInIndentation, Position{File: "x.facet", Line: 3, Column: 1}, "")
	if e.Phase != "lexer" {
		t.Errorf("expected phase %q, got %q", "lexer", e.Phase)
	}
	if e.Message != "tab character in indentation" {
		t.Errorf("expected message %q, got %q", "tab character in indentation", e.Message)
	}
}

func TestErrorStringFormat(t *testing.T) {
	e := New(ErrUndefinedVariable, Position{File: "a.facet", Line: 2, Column: 5}, "undefined variable %q", "x")
	want := "a.facet:2:5: F400: undefined variable \"x\""
	if got := e.Error(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPlainLine(t *testing.T) {
	e := New(ErrExprUnquotedIf, Position{Line: 1, Column: 8}, "")
	want := "F704 at 1:8: if condition must be a quoted string"
	if got := e.PlainLine(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestEnrichFromSource(t *testing.T) {
	src := "a\nb\nc\nd\ne\n"
	e := New(ErrDuplicateKey, Position{Line: 3, Column: 1}, "")
	e = EnrichFromSource(e, src)
	if e.Context == nil {
		t.Fatal("expected Context to be populated")
	}
	want := []string{"a", "b", "c", "d", "e"}
	if !reflect.DeepEqual(e.Context.SourceLines, want) {
		t.Errorf("expected source lines %v, got %v", want, e.Context.SourceLines)
	}
	if e.Context.HighlightAt != 2 {
		t.Errorf("expected HighlightAt=2, got %d", e.Context.HighlightAt)
	}
}

func TestPhaseForCodeUnknown(t *testing.T) {
	if got := PhaseForCode("bogus"); got != "unknown" {
		t.Errorf("expected %q, got %q", "unknown", got)
	}
}
