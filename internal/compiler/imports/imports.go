// Package imports expands "@import" facets into a host document tree: it
// resolves paths against a sandboxed set of allowed roots, recursively
// compiles the imported source, and merges its facets into the parent list.
// The sandboxed-path-under-afero.Fs shape is grounded on the teacher's
// internal/initialize/providers filesystem-abstraction pattern (spectr).
package imports

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	cerrors "github.com/facet-lang/facet/compiler/errors"
	"github.com/facet-lang/facet/internal/compiler/limits"
	"github.com/facet-lang/facet/internal/compiler/parser"
)

// Strategy selects how an imported facet list is combined with the host's.
type Strategy string

const (
	StrategyMerge   Strategy = "merge"
	StrategyReplace Strategy = "replace"
)

// ParseFunc lexes and parses a source string into a Document. It is injected
// rather than imported directly so that imports does not need to know about
// the lexer package's token representation.
type ParseFunc func(source, file string) (*parser.Document, []*cerrors.FacetError)

// Options configures one compilation's import expansion.
type Options struct {
	Fs          afero.Fs
	Roots       []string // allowed root directories, absolute, cleaned
	CurrentFile string   // path of the main source file, for relative resolution and auto-detection
	StrictMerge bool
	Parse       ParseFunc

	// Logger receives verbose tracing (resolved paths, merge strategy
	// chosen). May be nil; compile() itself never sets this, keeping the
	// core side-effect-free per spec §5 — only the CLI wires a real logger.
	Logger *zap.Logger
}

// Expander tracks per-compilation import state: the path stack (for cycle
// detection) and total import count.
type Expander struct {
	opts  Options
	roots []string
	stack map[string]bool
	count int
	depth int
	runID string
}

// New constructs an Expander, auto-detecting roots from CurrentFile when
// opts.Roots is empty (spec §4.3). Each Expander gets a fresh run ID used
// only to correlate its own Logger output; it never reaches the canonical
// tree.
func New(opts Options) *Expander {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	roots := opts.Roots
	if len(roots) == 0 {
		roots = autoDetectRoots(opts.Fs, opts.CurrentFile)
	}
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		cleaned = append(cleaned, filepath.Clean(r))
	}
	runID := uuid.New().String()
	opts.Logger.Debug("import expansion starting", zap.String("run_id", runID), zap.Strings("roots", cleaned))
	return &Expander{opts: opts, roots: cleaned, stack: map[string]bool{}, runID: runID}
}

// conventionalMarkers are project-root indicators used by auto-detection,
// walked up from the main source file's directory.
var conventionalMarkers = []string{".git", "facet.yaml", "facet.toml"}

// conventionalSubdirs are added alongside a detected root, per spec §4.3's
// "small set of conventional subdirectories".
var conventionalSubdirs = []string{"facets", "prompts", "partials"}

func autoDetectRoots(fs afero.Fs, currentFile string) []string {
	if currentFile == "" {
		return []string{"."}
	}
	dir := filepath.Dir(currentFile)
	for {
		for _, marker := range conventionalMarkers {
			if ok, _ := afero.Exists(fs, filepath.Join(dir, marker)); ok {
				roots := []string{dir}
				for _, sub := range conventionalSubdirs {
					roots = append(roots, filepath.Join(dir, sub))
				}
				return roots
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return []string{filepath.Dir(currentFile)}
}

// ResolvePath validates and canonicalizes an import path relative to from,
// enforcing spec §4.3's sandbox: relative only, no URL scheme, must resolve
// under one of the allowed roots.
func (ex *Expander) ResolvePath(importPath string, from string, pos cerrors.Position) (string, *cerrors.FacetError) {
	if strings.Contains(importPath, "://") {
		return "", cerrors.New(cerrors.ErrImportBadPath, pos, "import path %q uses a URL scheme", importPath)
	}
	if path.IsAbs(importPath) || filepath.IsAbs(importPath) {
		return "", cerrors.New(cerrors.ErrImportBadPath, pos, "import path %q must be relative", importPath)
	}
	baseDir := filepath.Dir(from)
	resolved := filepath.Clean(filepath.Join(baseDir, importPath))

	allowed := false
	for _, root := range ex.roots {
		if isUnder(root, resolved) {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", cerrors.New(cerrors.ErrImportNotAllowed, pos, "import path %q resolves outside the allowed roots", importPath)
	}
	return resolved, nil
}

func isUnder(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// Load reads, parses, and recursively expands the imports of the file at
// resolvedPath, returning its top-level facets with its own @import facets
// already expanded.
func (ex *Expander) Load(resolvedPath string, pos cerrors.Position) ([]*parser.Facet, *cerrors.FacetError) {
	if ex.stack[resolvedPath] {
		return nil, cerrors.New(cerrors.ErrImportCycle, pos, "import cycle detected at %q", resolvedPath)
	}
	if ex.depth >= limits.MaxImportDepth {
		return nil, cerrors.New(cerrors.ErrImportDepthExceeded, pos, "import depth exceeds %d", limits.MaxImportDepth)
	}
	ex.count++
	if ex.count > limits.MaxImportCount {
		return nil, cerrors.New(cerrors.ErrImportCountExceeded, pos, "import count exceeds %d", limits.MaxImportCount)
	}

	ex.opts.Logger.Debug("resolving import",
		zap.String("run_id", ex.runID), zap.String("path", resolvedPath), zap.Int("count", ex.count))

	data, err := afero.ReadFile(ex.opts.Fs, resolvedPath)
	if err != nil {
		return nil, cerrors.New(cerrors.ErrImportNotFound, pos, "import file %q not found", resolvedPath)
	}
	if len(data) > limits.MaxSourceBytes {
		return nil, cerrors.New(cerrors.ErrFileTooLarge, pos, "import file %q exceeds the maximum source size", resolvedPath)
	}

	doc, perrs := ex.opts.Parse(string(data), resolvedPath)
	if len(perrs) > 0 {
		return nil, perrs[0]
	}

	ex.stack[resolvedPath] = true
	ex.depth++
	defer func() {
		delete(ex.stack, resolvedPath)
		ex.depth--
	}()

	return ex.Expand(doc.Facets, resolvedPath)
}

// Expand walks facets in order, recursively loading and merging @import
// facets into place, and returns the fully expanded list.
func (ex *Expander) Expand(facets []*parser.Facet, currentFile string) ([]*parser.Facet, *cerrors.FacetError) {
	var out []*parser.Facet
	for _, f := range facets {
		if f.Name != "import" {
			out = append(out, f)
			continue
		}
		importPath, strategy, ferr := importAttrs(f)
		if ferr != nil {
			return nil, ferr
		}
		resolved, ferr := ex.ResolvePath(importPath, currentFile, f.Pos)
		if ferr != nil {
			return nil, ferr
		}
		imported, ferr := ex.Load(resolved, f.Pos)
		if ferr != nil {
			return nil, ferr
		}
		merged, ferr := ex.merge(out, imported, strategy, f.Pos)
		if ferr != nil {
			return nil, ferr
		}
		out = merged
	}
	return out, nil
}

func importAttrs(f *parser.Facet) (path string, strategy Strategy, err *cerrors.FacetError) {
	strategy = StrategyMerge
	for _, a := range f.Attrs {
		switch a.Key {
		case "path":
			path = a.Value.Str
		case "strategy":
			switch a.Value.Str {
			case "merge":
				strategy = StrategyMerge
			case "replace":
				strategy = StrategyReplace
			default:
				return "", "", cerrors.New(cerrors.ErrImportBadStrategy, f.Pos, "unknown import strategy %q", a.Value.Str)
			}
		}
	}
	if path == "" {
		return "", "", cerrors.New(cerrors.ErrImportBadPath, f.Pos, "import facet has no path")
	}
	return path, strategy, nil
}

// merge combines an imported facet list into host by name, per spec §4.3.
// It never mutates host's backing array (spec §9: "a functional
// re-implementation should build a fresh list per merge").
func (ex *Expander) merge(host, imported []*parser.Facet, strategy Strategy, pos cerrors.Position) ([]*parser.Facet, *cerrors.FacetError) {
	ex.opts.Logger.Debug("merging import",
		zap.String("run_id", ex.runID), zap.String("strategy", string(strategy)), zap.Int("facets", len(imported)))

	out := make([]*parser.Facet, len(host))
	copy(out, host)
	index := make(map[string]int, len(out))
	for i, f := range out {
		index[f.Name] = i
	}

	for _, imp := range imported {
		i, exists := index[imp.Name]
		if !exists {
			out = append(out, imp)
			index[imp.Name] = len(out) - 1
			continue
		}
		if strategy == StrategyReplace {
			out[i] = imp
			continue
		}
		merged, ferr := mergeFacet(out[i], imp, ex.opts.StrictMerge)
		if ferr != nil {
			return nil, ferr
		}
		out[i] = merged
	}
	return out, nil
}

// mergeFacet deep-merges two facets with the same name: attribute maps
// last-wins, list bodies concatenate, KV bodies keep first-appearance order
// with last-key-wins values. Mixed body shapes fall back to replace unless
// strict mode requires an error.
func mergeFacet(host, imp *parser.Facet, strict bool) (*parser.Facet, *cerrors.FacetError) {
	out := &parser.Facet{
		Name:       host.Name,
		AnchorName: host.AnchorName,
		Pos:        host.Pos,
	}
	out.Attrs = mergeAttrs(host.Attrs, imp.Attrs)

	hostIsList := isListBody(host.Body)
	impIsList := isListBody(imp.Body)

	if len(host.Body) > 0 && len(imp.Body) > 0 && hostIsList != impIsList {
		if strict {
			return nil, cerrors.New(cerrors.ErrImportStrictMismatch, imp.Pos,
				"facet %q has incompatible body shapes across merge", host.Name)
		}
		out.Body = imp.Body
		return out, nil
	}

	if hostIsList || len(host.Body) == 0 {
		out.Body = append(append([]parser.Entry{}, host.Body...), imp.Body...)
		return out, nil
	}

	out.Body = mergeKVBodies(host.Body, imp.Body)
	return out, nil
}

func isListBody(entries []parser.Entry) bool {
	for _, e := range entries {
		if _, ok := e.(*parser.ListItem); ok {
			return true
		}
	}
	return false
}

func mergeAttrs(host, imp []parser.Attr) []parser.Attr {
	out := make([]parser.Attr, len(host))
	copy(out, host)
	index := make(map[string]int, len(out))
	for i, a := range out {
		index[a.Key] = i
	}
	for _, a := range imp {
		if i, ok := index[a.Key]; ok {
			out[i] = a
		} else {
			out = append(out, a)
			index[a.Key] = len(out) - 1
		}
	}
	return out
}

func mergeKVBodies(host, imp []parser.Entry) []parser.Entry {
	out := make([]parser.Entry, len(host))
	copy(out, host)
	index := make(map[string]int, len(out))
	for i, e := range out {
		if kv, ok := e.(*parser.KV); ok {
			index[kv.Key] = i
		}
	}
	for _, e := range imp {
		kv, ok := e.(*parser.KV)
		if !ok {
			continue
		}
		if i, exists := index[kv.Key]; exists {
			out[i] = kv
		} else {
			out = append(out, kv)
			index[kv.Key] = len(out) - 1
		}
	}
	return out
}
