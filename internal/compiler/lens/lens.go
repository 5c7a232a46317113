// Package lens implements the built-in lens library: pure, named
// value-transforming functions invoked through a "|> name(args)" pipeline
// (spec §4.7). The named-function-registry shape (a package-level map from
// name to function, looked up by ApplyFilter) is grounded on the teacher's
// filters.go/filters_builtin.go; unlike pongo2's single-parameter filters,
// a lens takes both positional and named literal arguments, so Func here
// takes an Args bag rather than a single *Value.
package lens

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	cerrors "github.com/facet-lang/facet/compiler/errors"
	"github.com/facet-lang/facet/internal/compiler/value"
)

// Args is the resolved positional/named argument bag passed to a lens call.
type Args struct {
	Positional []any
	Named      map[string]any
}

// String returns the i'th positional argument as a string, or def if absent.
func (a Args) String(i int, def string) string {
	if i < len(a.Positional) {
		if s, ok := a.Positional[i].(string); ok {
			return s
		}
	}
	return def
}

// NamedString returns a named argument as a string, or def if absent.
func (a Args) NamedString(name, def string) string {
	if v, ok := a.Named[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// NamedInt returns a named argument as an int, or def if absent.
func (a Args) NamedInt(name string, def int) int {
	if v, ok := a.Named[name]; ok {
		switch n := v.(type) {
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return def
}

// scalarString coerces a resolved lens argument to its string form. Seed
// arguments in particular may arrive as any literal kind (spec §8's own
// conformance example seeds `choose` with a bare number), so deriving the
// key has to accept a scalar, not just a string.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// seedArg extracts the "seed" argument by name or by position, coercing it
// to a string regardless of the literal kind it was parsed as.
func seedArg(args Args) (string, bool) {
	if v, ok := args.Named["seed"]; ok {
		return scalarString(v)
	}
	if len(args.Positional) > 0 {
		return scalarString(args.Positional[0])
	}
	return "", false
}

// Int returns the i'th positional argument as an int, or def if absent.
func (a Args) Int(i int, def int) int {
	if i < len(a.Positional) {
		switch n := a.Positional[i].(type) {
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return def
}

// Func is the signature every lens implementation fulfills.
type Func func(in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError)

var registry = make(map[string]Func)

func register(name string, fn Func) {
	registry[name] = fn
}

// Exists reports whether name is a registered lens.
func Exists(name string) bool {
	_, ok := registry[name]
	return ok
}

// Apply looks up and invokes the named lens.
func Apply(name string, in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError) {
	fn, ok := registry[name]
	if !ok {
		return nil, cerrors.New(cerrors.ErrLensUnknown, pos, "unknown lens %q", name)
	}
	return fn(in, args, pos)
}

func init() {
	register("trim", lensTrim)
	register("dedent", lensDedent)
	register("squeeze_spaces", lensSqueezeSpaces)
	register("normalize_newlines", lensNormalizeNewlines)
	register("limit", lensLimit)
	register("lower", lensLower)
	register("upper", lensUpper)
	register("replace", lensReplace)
	register("regex_replace", lensRegexReplace)
	register("json_minify", lensJSONMinify)
	register("json_parse", lensJSONParse)
	register("strip_markdown", lensStripMarkdown)
	register("choose", lensChoose)
	register("shuffle", lensShuffle)
}

func asString(in any, lens string, pos cerrors.Position) (string, *cerrors.FacetError) {
	s, ok := in.(string)
	if !ok {
		return "", cerrors.New(cerrors.ErrLensTypeMismatch, pos, "lens %q requires a string input", lens)
	}
	return s, nil
}

func lensTrim(in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError) {
	s, ferr := asString(in, "trim", pos)
	if ferr != nil {
		return nil, ferr
	}
	return strings.Trim(s, " \t\n\r\v\f"), nil
}

func lensDedent(in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError) {
	s, ferr := asString(in, "dedent", pos)
	if ferr != nil {
		return nil, ferr
	}
	lines := strings.Split(s, "\n")
	common := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if common == -1 || n < common {
			common = n
		}
	}
	if common <= 0 {
		return s, nil
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		if len(line) >= common {
			out[i] = line[common:]
		} else {
			out[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(out, "\n"), nil
}

var squeezePattern = regexp.MustCompile(`[ \t]+`)

func lensSqueezeSpaces(in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError) {
	s, ferr := asString(in, "squeeze_spaces", pos)
	if ferr != nil {
		return nil, ferr
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = squeezePattern.ReplaceAllString(line, " ")
	}
	return strings.Join(lines, "\n"), nil
}

func lensNormalizeNewlines(in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError) {
	s, ferr := asString(in, "normalize_newlines", pos)
	if ferr != nil {
		return nil, ferr
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s, nil
}

func lensLimit(in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError) {
	s, ferr := asString(in, "limit", pos)
	if ferr != nil {
		return nil, ferr
	}
	n := args.Int(0, args.NamedInt("n", len(s)))
	if n < 0 || n >= len(s) {
		return s, nil
	}
	for n > 0 && !isRuneBoundary(s, n) {
		n--
	}
	return s[:n], nil
}

func isRuneBoundary(s string, i int) bool {
	if i <= 0 || i >= len(s) {
		return true
	}
	return s[i]&0xC0 != 0x80
}

func lensLower(in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError) {
	s, ferr := asString(in, "lower", pos)
	if ferr != nil {
		return nil, ferr
	}
	return strings.ToLower(s), nil
}

func lensUpper(in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError) {
	s, ferr := asString(in, "upper", pos)
	if ferr != nil {
		return nil, ferr
	}
	return strings.ToUpper(s), nil
}

func lensReplace(in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError) {
	s, ferr := asString(in, "replace", pos)
	if ferr != nil {
		return nil, ferr
	}
	old := args.String(0, args.NamedString("old", ""))
	newS := args.String(1, args.NamedString("new", ""))
	if old == "" {
		return nil, cerrors.New(cerrors.ErrLensInvalidArgs, pos, "lens \"replace\" requires a non-empty \"old\" argument")
	}
	return strings.ReplaceAll(s, old, newS), nil
}

func lensRegexReplace(in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError) {
	s, ferr := asString(in, "regex_replace", pos)
	if ferr != nil {
		return nil, ferr
	}
	pat := args.String(0, args.NamedString("pat", ""))
	repl := args.String(1, args.NamedString("repl", ""))
	re, err := regexp.Compile(pat)
	if err != nil {
		return nil, cerrors.New(cerrors.ErrLensRegexFailure, pos, "invalid regex pattern %q: %v", pat, err)
	}
	return re.ReplaceAllString(s, repl), nil
}

func lensJSONMinify(in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError) {
	s, ferr := asString(in, "json_minify", pos)
	if ferr != nil {
		return nil, ferr
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s, nil
	}
	out, err := json.Marshal(v)
	if err != nil {
		return s, nil
	}
	return string(out), nil
}

func lensJSONParse(in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError) {
	s, ferr := asString(in, "json_parse", pos)
	if ferr != nil {
		return nil, ferr
	}
	var raw any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return s, nil
	}
	return fromJSONAny(raw), nil
}

func fromJSONAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := value.NewMap()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.Set(k, fromJSONAny(t[k]))
		}
		return m
	case []any:
		seq := make(value.Sequence, len(t))
		for i, e := range t {
			seq[i] = fromJSONAny(e)
		}
		return seq
	case float64:
		if t == float64(int64(t)) {
			return int64(t)
		}
		return t
	default:
		return t
	}
}

var markdownMarkers = []string{"**", "__", "*", "_", "`", "###", "##", "#"}

func lensStripMarkdown(in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError) {
	s, ferr := asString(in, "strip_markdown", pos)
	if ferr != nil {
		return nil, ferr
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		prefix := line[:len(line)-len(trimmed)]
		for _, marker := range []string{"### ", "## ", "# "} {
			if strings.HasPrefix(trimmed, marker) {
				trimmed = strings.TrimPrefix(trimmed, marker)
				break
			}
		}
		lines[i] = prefix + trimmed
	}
	s = strings.Join(lines, "\n")
	for _, marker := range []string{"**", "__", "`"} {
		s = strings.ReplaceAll(s, marker, "")
	}
	return s, nil
}

func lensChoose(in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError) {
	seq, ok := in.(value.Sequence)
	if !ok {
		return nil, cerrors.New(cerrors.ErrLensTypeMismatch, pos, "lens \"choose\" requires a sequence input")
	}
	if len(seq) == 0 {
		return nil, cerrors.New(cerrors.ErrLensInvalidArgs, pos, "lens \"choose\" requires a non-empty sequence")
	}
	seed, ok := seedArg(args)
	if !ok || seed == "" {
		return nil, cerrors.New(cerrors.ErrLensMissingSeed, pos, "lens \"choose\" requires a \"seed\" argument")
	}
	key := deriveKey(seed, value.CanonicalBytes(seq))
	gen := newLCG(key)
	idx := gen.next() % uint64(len(seq))
	return seq[idx], nil
}

func lensShuffle(in any, args Args, pos cerrors.Position) (any, *cerrors.FacetError) {
	seq, ok := in.(value.Sequence)
	if !ok {
		return nil, cerrors.New(cerrors.ErrLensTypeMismatch, pos, "lens \"shuffle\" requires a sequence input")
	}
	seed, ok := seedArg(args)
	if !ok || seed == "" {
		return nil, cerrors.New(cerrors.ErrLensMissingSeed, pos, "lens \"shuffle\" requires a \"seed\" argument")
	}
	key := deriveKey(seed, value.CanonicalBytes(seq))
	gen := newLCG(key)
	out := make(value.Sequence, len(seq))
	copy(out, seq)
	for i := len(out) - 1; i > 0; i-- {
		j := gen.next() % uint64(i+1)
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
