// Package facet exposes the single compile entry point the rest of the
// compiler's internal stages are assembled behind (spec §6). Wiring the
// pipeline stages together in one exported function, with everything else
// kept under internal/, mirrors the teacher's cmd/conduit/build.go assembling
// internal/tooling/build's stages behind one BuildOptions/BuildResult
// surface.
package facet

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	cerrors "github.com/facet-lang/facet/compiler/errors"
	"github.com/facet-lang/facet/internal/compiler/anchors"
	"github.com/facet-lang/facet/internal/compiler/eval"
	"github.com/facet-lang/facet/internal/compiler/imports"
	"github.com/facet-lang/facet/internal/compiler/lexer"
	"github.com/facet-lang/facet/internal/compiler/parser"
	"github.com/facet-lang/facet/internal/compiler/value"
	"github.com/facet-lang/facet/internal/compiler/vars"
)

// Options configures one compilation, corresponding to compile()'s optional
// parameters in spec §6.
type Options struct {
	// HostVars are the caller-provided variables visible per ResolveMode.
	HostVars map[string]any
	// ResolveMode selects "host" (default) or "all". Empty means "host".
	ResolveMode vars.ResolveMode
	// ImportRoots are the allowed directories @import may resolve under.
	// When empty, roots are auto-detected from CurrentFile.
	ImportRoots []string
	// StrictMerge makes a body-shape mismatch across an import merge an
	// error instead of falling back to "replace".
	StrictMerge bool
	// CurrentFile anchors relative imports and root auto-detection.
	CurrentFile string
	// Fs is the filesystem imports are read from. Defaults to the OS
	// filesystem when nil.
	Fs afero.Fs
	// Logger receives verbose import-expansion tracing. Defaults to a no-op
	// logger; compile() stays side-effect-free unless the caller opts in.
	Logger *zap.Logger
}

// Compile turns FACET source text into a canonical tree or a single coded
// error, per spec §6's compile(text, host_vars?, resolve_mode?,
// import_roots?, strict_merge?, current_file?) contract.
func Compile(text string, opts Options) (*value.Map, *cerrors.FacetError) {
	mode := opts.ResolveMode
	if mode == "" {
		mode = vars.ResolveHost
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	currentFile := opts.CurrentFile
	if currentFile == "" {
		currentFile = "<input>"
	}

	lx := lexer.New(text, currentFile)
	tokens, lerrs := lx.ScanTokens()
	if len(lerrs) > 0 {
		return nil, lerrs[0]
	}

	p := parser.New(tokens)
	doc, perrs := p.Parse()
	if len(perrs) > 0 {
		return nil, perrs[0]
	}

	expander := imports.New(imports.Options{
		Fs:          fs,
		Roots:       opts.ImportRoots,
		CurrentFile: currentFile,
		StrictMerge: opts.StrictMerge,
		Logger:      opts.Logger,
		Parse: func(source, file string) (*parser.Document, []*cerrors.FacetError) {
			tlx := lexer.New(source, file)
			toks, lerrs := tlx.ScanTokens()
			if len(lerrs) > 0 {
				return nil, lerrs
			}
			tp := parser.New(toks)
			return tp.Parse()
		},
	})
	facets, ferr := expander.Expand(doc.Facets, currentFile)
	if ferr != nil {
		return nil, ferr
	}

	hostMap := hostVarsToMap(opts.HostVars)
	remaining, env, ferr := vars.Resolve(facets, hostMap, mode)
	if ferr != nil {
		return nil, ferr
	}

	tree, ferr := eval.Evaluate(remaining, env)
	if ferr != nil {
		return nil, ferr
	}

	resolved, ferr := anchors.Resolve(tree)
	if ferr != nil {
		return nil, ferr
	}
	return resolved.(*value.Map), nil
}

func hostVarsToMap(hostVars map[string]any) *value.Map {
	m := value.NewMap()
	for k, v := range hostVars {
		m.Set(k, toCanonical(v))
	}
	return m
}

// toCanonical converts plain Go values (as a caller would naturally build
// host_vars) into the canonical tree's value shapes.
func toCanonical(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := value.NewMap()
		for k, e := range t {
			m.Set(k, toCanonical(e))
		}
		return m
	case []any:
		seq := make(value.Sequence, len(t))
		for i, e := range t {
			seq[i] = toCanonical(e)
		}
		return seq
	default:
		return v
	}
}
