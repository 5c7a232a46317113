package vars

import (
	"testing"

	cerrors "github.com/facet-lang/facet/compiler/errors"
	"github.com/facet-lang/facet/internal/compiler/lexer"
	"github.com/facet-lang/facet/internal/compiler/parser"
	"github.com/facet-lang/facet/internal/compiler/value"
)

func parseFacets(t *testing.T, src string) []*parser.Facet {
	t.Helper()
	lx := lexer.New(src, "test.facet")
	toks, lerrs := lx.ScanTokens()
	if len(lerrs) > 0 {
		t.Fatalf("unexpected lex errors: %v", lerrs)
	}
	doc, perrs := parser.New(toks).Parse()
	if len(perrs) > 0 {
		t.Fatalf("unexpected parse errors: %v", perrs)
	}
	return doc.Facets
}

func TestResolveVarsBasic(t *testing.T) {
	facets := parseFacets(t, "@vars\n  name: \"Alex\"\n  n: 3\n@user\n  prompt: \"hi\"\n")
	remaining, env, ferr := Resolve(facets, nil, ResolveAll)
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	if len(remaining) != 1 || remaining[0].Name != "user" {
		t.Fatalf("expected @vars stripped, got %+v", remaining)
	}
	name, ok := env.Lookup("name")
	if !ok || name != "Alex" {
		t.Errorf("expected name=Alex, got %v (ok=%v)", name, ok)
	}
}

func TestResolveVarsTopDownReference(t *testing.T) {
	facets := parseFacets(t, "@vars\n  first: \"Alex\"\n  greeting: \"Hello, {{first}}\"\n")
	_, env, ferr := Resolve(facets, nil, ResolveAll)
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	greeting, _ := env.Lookup("greeting")
	if greeting != "Hello, Alex" {
		t.Errorf("expected %q, got %q", "Hello, Alex", greeting)
	}
}

func TestResolveVarsForwardReferenceErrors(t *testing.T) {
	facets := parseFacets(t, "@vars\n  greeting: \"Hello, {{first}}\"\n  first: \"Alex\"\n")
	_, _, ferr := Resolve(facets, nil, ResolveAll)
	if ferr == nil || ferr.Code != "F404" {
		t.Fatalf("expected F404, got %v", ferr)
	}
}

func TestResolveModeHostOnly(t *testing.T) {
	facets := parseFacets(t, "@vars\n  name: \"Compiled\"\n")
	host := value.NewMap()
	host.Set("name", "Host")
	_, env, ferr := Resolve(facets, host, ResolveHost)
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	name, ok := env.Lookup("name")
	if !ok || name != "Host" {
		t.Errorf("expected host-only lookup to return %q, got %v", "Host", name)
	}
}

func TestResolveModeAllHostOverridesCompiled(t *testing.T) {
	facets := parseFacets(t, "@vars\n  name: \"Compiled\"\n")
	host := value.NewMap()
	host.Set("name", "Host")
	_, env, ferr := Resolve(facets, host, ResolveAll)
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	name, _ := env.Lookup("name")
	if name != "Host" {
		t.Errorf("expected host to win in all mode, got %v", name)
	}
}

func TestLookupDottedPath(t *testing.T) {
	facets := parseFacets(t, "@vars\n  user: {name: \"Alex\", age: 30}\n")
	_, env, ferr := Resolve(facets, nil, ResolveAll)
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	name, ok := env.Lookup("user.name")
	if !ok || name != "Alex" {
		t.Errorf("expected user.name=Alex, got %v (ok=%v)", name, ok)
	}
}

func TestVarTypesValidation(t *testing.T) {
	facets := parseFacets(t, "@vars\n  level: 5\n@var_types\n  level: {type: \"int\", min: 1, max: 10}\n")
	_, _, ferr := Resolve(facets, nil, ResolveAll)
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
}

func TestVarTypesConstraintViolation(t *testing.T) {
	facets := parseFacets(t, "@vars\n  level: 50\n@var_types\n  level: {type: \"int\", min: 1, max: 10}\n")
	_, _, ferr := Resolve(facets, nil, ResolveAll)
	if ferr == nil || ferr.Code != "F405" {
		t.Fatalf("expected F405, got %v", ferr)
	}
}

func TestVarTypesMismatch(t *testing.T) {
	facets := parseFacets(t, "@vars\n  name: \"Alex\"\n@var_types\n  name: {type: \"int\"}\n")
	_, _, ferr := Resolve(facets, nil, ResolveAll)
	if ferr == nil || ferr.Code != "F403" {
		t.Fatalf("expected F403, got %v", ferr)
	}
}

func TestVarTypesUnknownPath(t *testing.T) {
	facets := parseFacets(t, "@vars\n  name: \"Alex\"\n@var_types\n  missing: {type: \"string\"}\n")
	_, _, ferr := Resolve(facets, nil, ResolveAll)
	if ferr == nil || ferr.Code != "F406" {
		t.Fatalf("expected F406, got %v", ferr)
	}
}

func TestSubstituteInterpolatesNonScalarsAsCanonicalJSON(t *testing.T) {
	tags := value.Sequence{"a", "b", "c"}
	profile := value.NewMap()
	profile.Set("admin", true)
	lookup := func(path string) (any, bool) {
		switch path {
		case "tags":
			return tags, true
		case "profile":
			return profile, true
		case "count":
			return int64(3), true
		case "ratio":
			return 0.5, true
		case "missing":
			return nil, true
		}
		return nil, false
	}
	cases := []struct {
		tmpl string
		want string
	}{
		{"{{tags}}", `["a","b","c"]`},
		{"{{profile}}", `{"admin":true}`},
		{"count={{count}}", "count=3"},
		{"ratio={{ratio}}", "ratio=0.5"},
		{"{{missing}}", "null"},
	}
	for _, c := range cases {
		v, ferr := Substitute(c.tmpl, lookup, "F400", cerrors.Position{})
		if ferr != nil {
			t.Fatalf("unexpected error for %q: %v", c.tmpl, ferr)
		}
		if v != c.want {
			t.Errorf("%q: expected %q, got %q", c.tmpl, c.want, v)
		}
	}
}

func TestSubstituteWholeStringShorthand(t *testing.T) {
	lookup := func(path string) (any, bool) {
		if path == "count" {
			return int64(3), true
		}
		return nil, false
	}
	v, ferr := Substitute("$count", lookup, "F400", cerrors.Position{})
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	if v != int64(3) {
		t.Errorf("expected int64(3), got %v (%T)", v, v)
	}
}
