package lens

import (
	"testing"

	cerrors "github.com/facet-lang/facet/compiler/errors"
	"github.com/facet-lang/facet/internal/compiler/value"
)

func apply(t *testing.T, name string, in any, args Args) any {
	t.Helper()
	out, ferr := Apply(name, in, args, cerrors.Position{})
	if ferr != nil {
		t.Fatalf("lens %q returned an unexpected error: %v", name, ferr)
	}
	return out
}

func TestTrim(t *testing.T) {
	got := apply(t, "trim", "  hi  \n", Args{})
	if got != "hi" {
		t.Errorf("expected %q, got %q", "hi", got)
	}
}

func TestDedent(t *testing.T) {
	in := "    a\n    b\n      c\n"
	got := apply(t, "dedent", in, Args{})
	want := "a\nb\n  c\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSqueezeSpaces(t *testing.T) {
	got := apply(t, "squeeze_spaces", "a   b\t\tc", Args{})
	if got != "a b c" {
		t.Errorf("expected %q, got %q", "a b c", got)
	}
}

func TestNormalizeNewlines(t *testing.T) {
	got := apply(t, "normalize_newlines", "a\r\nb\rc", Args{})
	if got != "a\nb\nc" {
		t.Errorf("expected %q, got %q", "a\nb\nc", got)
	}
}

func TestLimitTruncatesOnRuneBoundary(t *testing.T) {
	got := apply(t, "limit", "héllo", Args{Positional: []any{int64(2)}})
	s := got.(string)
	if len(s) > 2 {
		t.Errorf("expected at most 2 bytes, got %q (%d bytes)", s, len(s))
	}
}

func TestLowerUpper(t *testing.T) {
	if got := apply(t, "lower", "ABC", Args{}); got != "abc" {
		t.Errorf("expected %q, got %q", "abc", got)
	}
	if got := apply(t, "upper", "abc", Args{}); got != "ABC" {
		t.Errorf("expected %q, got %q", "ABC", got)
	}
}

func TestReplace(t *testing.T) {
	got := apply(t, "replace", "a-b-c", Args{Positional: []any{"-", "_"}})
	if got != "a_b_c" {
		t.Errorf("expected %q, got %q", "a_b_c", got)
	}
}

func TestReplaceRequiresOld(t *testing.T) {
	_, ferr := Apply("replace", "abc", Args{}, cerrors.Position{})
	if ferr == nil || ferr.Code != "F801" {
		t.Fatalf("expected F801, got %v", ferr)
	}
}

func TestRegexReplace(t *testing.T) {
	got := apply(t, "regex_replace", "a1b2c3", Args{Positional: []any{`\d`, "#"}})
	if got != "a#b#c#" {
		t.Errorf("expected %q, got %q", "a#b#c#", got)
	}
}

func TestRegexReplaceInvalidPattern(t *testing.T) {
	_, ferr := Apply("regex_replace", "abc", Args{Positional: []any{"[", "x"}}, cerrors.Position{})
	if ferr == nil || ferr.Code != "F804" {
		t.Fatalf("expected F804, got %v", ferr)
	}
}

func TestJSONMinify(t *testing.T) {
	got := apply(t, "json_minify", `{"a": 1,   "b": 2}`, Args{})
	if got != `{"a":1,"b":2}` {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestJSONMinifyPassesThroughInvalidJSON(t *testing.T) {
	got := apply(t, "json_minify", "not json", Args{})
	if got != "not json" {
		t.Errorf("expected passthrough, got %q", got)
	}
}

func TestJSONParse(t *testing.T) {
	got := apply(t, "json_parse", `{"a": 1, "b": [1,2]}`, Args{})
	m, ok := got.(*value.Map)
	if !ok {
		t.Fatalf("expected *value.Map, got %T", got)
	}
	a, _ := m.Get("a")
	if a != int64(1) {
		t.Errorf("expected a=1, got %v (%T)", a, a)
	}
}

func TestStripMarkdown(t *testing.T) {
	got := apply(t, "strip_markdown", "# Title\nSome **bold** and `code`.", Args{})
	want := "Title\nSome bold and code."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestChooseRequiresSeed(t *testing.T) {
	seq := value.Sequence{"a", "b", "c"}
	_, ferr := Apply("choose", seq, Args{}, cerrors.Position{})
	if ferr == nil || ferr.Code != "F803" {
		t.Fatalf("expected F803, got %v", ferr)
	}
}

func TestChooseIsDeterministic(t *testing.T) {
	seq := value.Sequence{"a", "b", "c", "d"}
	args := Args{Named: map[string]any{"seed": "fixed-seed"}}
	first := apply(t, "choose", seq, args)
	second := apply(t, "choose", seq, args)
	if first != second {
		t.Errorf("expected the same seed to choose the same element, got %v and %v", first, second)
	}
}

func TestChooseAcceptsNumericSeed(t *testing.T) {
	seq := value.Sequence{"a", "b", "c", "d"}
	args := Args{Named: map[string]any{"seed": int64(42)}}
	first := apply(t, "choose", seq, args)
	second := apply(t, "choose", seq, args)
	if first != second {
		t.Errorf("expected a numeric seed to be deterministic, got %v and %v", first, second)
	}
}

func TestShufflePositionalNumericSeed(t *testing.T) {
	seq := value.Sequence{"a", "b", "c", "d", "e"}
	args := Args{Positional: []any{int64(7)}}
	first := apply(t, "shuffle", seq, args).(value.Sequence)
	second := apply(t, "shuffle", seq, args).(value.Sequence)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected identical shuffles for the same numeric seed, got %v and %v", first, second)
		}
	}
}

func TestShuffleIsDeterministic(t *testing.T) {
	seq := value.Sequence{"a", "b", "c", "d", "e"}
	args := Args{Named: map[string]any{"seed": "fixed-seed"}}
	first := apply(t, "shuffle", seq, args).(value.Sequence)
	second := apply(t, "shuffle", seq, args).(value.Sequence)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected identical shuffles for the same seed, got %v and %v", first, second)
		}
	}
}

func TestShuffleDifferentSeedsDiffer(t *testing.T) {
	seq := value.Sequence{"a", "b", "c", "d", "e", "f", "g", "h"}
	a := apply(t, "shuffle", seq, Args{Named: map[string]any{"seed": "seed-one"}}).(value.Sequence)
	b := apply(t, "shuffle", seq, Args{Named: map[string]any{"seed": "seed-two"}}).(value.Sequence)
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("expected different seeds to produce different shuffles")
	}
}

func TestShuffleIsAPermutation(t *testing.T) {
	seq := value.Sequence{"a", "b", "c", "d", "e"}
	out := apply(t, "shuffle", seq, Args{Named: map[string]any{"seed": "x"}}).(value.Sequence)
	if len(out) != len(seq) {
		t.Fatalf("expected %d elements, got %d", len(seq), len(out))
	}
	seen := map[any]bool{}
	for _, e := range out {
		seen[e] = true
	}
	for _, e := range seq {
		if !seen[e] {
			t.Errorf("shuffled output is missing element %v", e)
		}
	}
}

func TestUnknownLensErrors(t *testing.T) {
	_, ferr := Apply("nope", "x", Args{}, cerrors.Position{})
	if ferr == nil || ferr.Code != "F800" {
		t.Fatalf("expected F800, got %v", ferr)
	}
}

func TestLensTypeMismatch(t *testing.T) {
	_, ferr := Apply("trim", int64(5), Args{}, cerrors.Position{})
	if ferr == nil || ferr.Code != "F105" {
		t.Fatalf("expected F105, got %v", ferr)
	}
}
