package expr

import (
	"testing"

	cerrors "github.com/facet-lang/facet/compiler/errors"
	"github.com/facet-lang/facet/internal/compiler/value"
)

type mapResolver map[string]any

func (m mapResolver) Lookup(dotted string) (any, bool) {
	v, ok := m[dotted]
	return v, ok
}

func TestEvalLiterals(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`"hello"`, true},
		{`""`, false},
		{`0`, false},
		{`1`, true},
		{`null`, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, ferr := Eval(tt.expr, mapResolver{}, cerrors.Position{})
			if ferr != nil {
				t.Fatalf("unexpected error: %v", ferr)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEvalComparisons(t *testing.T) {
	env := mapResolver{"n": int64(5), "s": "abc"}
	tests := []struct {
		expr string
		want bool
	}{
		{"n == 5", true},
		{"n != 5", false},
		{"n < 10", true},
		{"n >= 5", true},
		{"s == \"abc\"", true},
		{"s == \"xyz\"", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, ferr := Eval(tt.expr, env, cerrors.Position{})
			if ferr != nil {
				t.Fatalf("unexpected error: %v", ferr)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEvalLogicalOperators(t *testing.T) {
	env := mapResolver{"a": true, "b": false}
	tests := []struct {
		expr string
		want bool
	}{
		{"a and b", false},
		{"a or b", true},
		{"not b", true},
		{"(a or b) and not b", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, ferr := Eval(tt.expr, env, cerrors.Position{})
			if ferr != nil {
				t.Fatalf("unexpected error: %v", ferr)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEvalInOperator(t *testing.T) {
	env := mapResolver{"tags": value.Sequence{"a", "b", "c"}}
	got, ferr := Eval(`"b" in tags`, env, cerrors.Position{})
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	if !got {
		t.Error("expected true")
	}
}

func TestEvalUnknownVariableErrors(t *testing.T) {
	_, ferr := Eval("missing", mapResolver{}, cerrors.Position{})
	if ferr == nil || ferr.Code != "F701" {
		t.Fatalf("expected F701, got %v", ferr)
	}
}

func TestEvalTrailingTokensErrors(t *testing.T) {
	_, ferr := Eval("true true", mapResolver{}, cerrors.Position{})
	if ferr == nil || ferr.Code != "F703" {
		t.Fatalf("expected F703, got %v", ferr)
	}
}

func TestEvalUnbalancedParensErrors(t *testing.T) {
	_, ferr := Eval("(true", mapResolver{}, cerrors.Position{})
	if ferr == nil || ferr.Code != "F705" {
		t.Fatalf("expected F705, got %v", ferr)
	}
}

func TestEvalComparisonTypeMismatchErrors(t *testing.T) {
	_, ferr := Eval(`"a" < 5`, mapResolver{}, cerrors.Position{})
	if ferr == nil || ferr.Code != "F702" {
		t.Fatalf("expected F702, got %v", ferr)
	}
}
