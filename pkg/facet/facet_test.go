package facet

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/facet-lang/facet/internal/compiler/value"
	"github.com/facet-lang/facet/internal/compiler/vars"
)

func TestCompileBasicInterpolation(t *testing.T) {
	src := "@vars\n  name: \"Alex\"\n  n: 3\n@user\n  prompt: \"Hello, {{name}} x{{n}}\"\n"
	tree, ferr := Compile(src, Options{ResolveMode: vars.ResolveAll})
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	user, _ := tree.Get("user")
	prompt, _ := user.(*value.Map).Get("prompt")
	if prompt != "Hello, Alex x3" {
		t.Errorf("expected %q, got %q", "Hello, Alex x3", prompt)
	}
}

func TestCompileItemGating(t *testing.T) {
	src := "@items\n  - \"a\"\n  - \"b\" (if=\"flag\")\n"
	tree, ferr := Compile(src, Options{HostVars: map[string]any{"flag": false}})
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	items, _ := tree.Get("items")
	seq, _ := items.(*value.Map).Get("items")
	got := seq.(value.Sequence)
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("expected [a], got %v", got)
	}
}

func TestCompileAttributesAndListOnlyBody(t *testing.T) {
	src := "@todo(owner=\"alex\")\n  - \"write tests\"\n"
	tree, ferr := Compile(src, Options{})
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	todo, _ := tree.Get("todo")
	m := todo.(*value.Map)
	if !m.Has("items") || !m.Has("_attrs") {
		t.Fatalf("expected items and _attrs, got keys %v", m.Keys())
	}
}

func TestCompileAnchorSubstitution(t *testing.T) {
	src := "@doc\n  greeting: &hello \"hi\"\n  echo: *hello\n"
	tree, ferr := Compile(src, Options{})
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	doc, _ := tree.Get("doc")
	m := doc.(*value.Map)
	greeting, _ := m.Get("greeting")
	echo, _ := m.Get("echo")
	if greeting != "hi" || echo != "hi" {
		t.Errorf("expected both greeting and echo to be %q, got %v / %v", "hi", greeting, echo)
	}
}

func TestCompileAttributeInterpolationRejected(t *testing.T) {
	src := "@section(title=\"{{name}}\")\n  x: 1\n"
	_, ferr := Compile(src, Options{})
	if ferr == nil || ferr.Code != "F304" {
		t.Fatalf("expected F304, got %v", ferr)
	}
}

func TestCompileUnquotedIfRejected(t *testing.T) {
	src := "@section(if=true)\n  x: 1\n"
	_, ferr := Compile(src, Options{})
	if ferr == nil || ferr.Code != "F704" {
		t.Fatalf("expected F704, got %v", ferr)
	}
}

func TestCompileForwardReferenceRejected(t *testing.T) {
	src := "@vars\n  greeting: \"Hello, {{first}}\"\n  first: \"Alex\"\n@user\n  prompt: \"{{greeting}}\"\n"
	_, ferr := Compile(src, Options{ResolveMode: vars.ResolveAll})
	if ferr == nil || ferr.Code != "F404" {
		t.Fatalf("expected F404, got %v", ferr)
	}
}

func TestCompileImportOutsideRootsRejected(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := "@import \"../outside/secret.facet\"\n"
	_, ferr := Compile(src, Options{
		Fs:          fs,
		CurrentFile: "/proj/main.facet",
		ImportRoots: []string{"/proj"},
	})
	if ferr == nil || ferr.Code != "F601" {
		t.Fatalf("expected F601, got %v", ferr)
	}
}

func TestCompileDeterministicChoose(t *testing.T) {
	src := "@pick\n  chosen: [\"red\", \"green\", \"blue\"] |> choose(seed=\"fixed\")\n"
	tree1, ferr := Compile(src, Options{})
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	tree2, ferr := Compile(src, Options{})
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	pick1, _ := tree1.Get("pick")
	pick2, _ := tree2.Get("pick")
	c1, _ := pick1.(*value.Map).Get("chosen")
	c2, _ := pick2.(*value.Map).Get("chosen")
	if c1 != c2 {
		t.Errorf("expected the same seed to choose the same element across runs, got %v and %v", c1, c2)
	}
}

func TestCompileDeterministicChooseWithNumericSeed(t *testing.T) {
	src := "@pick\n  chosen: [\"red\", \"green\", \"blue\"] |> choose(seed=42)\n"
	tree1, ferr := Compile(src, Options{})
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	tree2, ferr := Compile(src, Options{})
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	pick1, _ := tree1.Get("pick")
	pick2, _ := tree2.Get("pick")
	c1, _ := pick1.(*value.Map).Get("chosen")
	c2, _ := pick2.(*value.Map).Get("chosen")
	if c1 != c2 {
		t.Errorf("expected a numeric seed literal to choose deterministically across runs, got %v and %v", c1, c2)
	}
}

func TestCompileHostVarsOnlyVisibleInHostMode(t *testing.T) {
	src := "@vars\n  label: \"compiled\"\n@user\n  text: \"{{label}}\"\n"
	_, ferr := Compile(src, Options{ResolveMode: vars.ResolveHost})
	if ferr == nil || ferr.Code != "F400" {
		t.Fatalf("expected F400 since host mode hides compiled vars, got %v", ferr)
	}
}
