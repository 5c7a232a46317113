// Package vars implements the compile-time environment: resolving "@vars"
// top-down and validating the resolved values against "@var_types" before
// any substitution happens elsewhere in the pipeline (spec §4.4). The
// top-down dependency walk is grounded on the teacher's type-checking pass
// (internal/compiler/typechecker), adapted here from type inference over an
// AST to value resolution over a flat, ordered variable map.
package vars

import (
	"regexp"
	"strings"

	cerrors "github.com/facet-lang/facet/compiler/errors"
	"github.com/facet-lang/facet/internal/compiler/parser"
	"github.com/facet-lang/facet/internal/compiler/value"
)

// ResolveMode selects which variables are visible to general evaluation.
type ResolveMode string

const (
	ResolveHost ResolveMode = "host"
	ResolveAll  ResolveMode = "all"
)

// TypeSpec is one "@var_types" entry: the declared kind and optional
// constraints for a dotted path into "@vars".
type TypeSpec struct {
	Type    string
	Enum    []any
	Min     *float64
	Max     *float64
	Pattern string
}

// Environment is the fully resolved compile-time state plus whatever
// host-provided variables the caller passed in.
type Environment struct {
	Compiled *value.Map
	Host     *value.Map
	Mode     ResolveMode
}

// Lookup resolves a dotted path against the environment per the selected
// resolve mode: in "host" mode only Host is visible; in "all" mode Host
// overrides Compiled on conflict.
func (e *Environment) Lookup(dotted string) (any, bool) {
	if e.Mode == ResolveHost {
		return lookupPath(e.Host, dotted)
	}
	if v, ok := lookupPath(e.Host, dotted); ok {
		return v, true
	}
	return lookupPath(e.Compiled, dotted)
}

func lookupPath(m *value.Map, dotted string) (any, bool) {
	if m == nil {
		return nil, false
	}
	parts := strings.Split(dotted, ".")
	var cur any = m
	for _, part := range parts {
		mm, ok := cur.(*value.Map)
		if !ok {
			return nil, false
		}
		v, ok := mm.Get(part)
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Resolve processes the facets named "vars" and "var_types" out of facets,
// building the compile-time Environment. It returns the remaining facets
// (with @vars/@var_types removed) alongside the environment.
func Resolve(facets []*parser.Facet, host *value.Map, mode ResolveMode) ([]*parser.Facet, *Environment, *cerrors.FacetError) {
	var remaining []*parser.Facet
	var varsFacet *parser.Facet
	var typesFacet *parser.Facet

	for _, f := range facets {
		switch f.Name {
		case "vars":
			varsFacet = f
		case "var_types":
			typesFacet = f
		default:
			remaining = append(remaining, f)
		}
	}

	env := &Environment{Compiled: value.NewMap(), Host: host, Mode: mode}
	if host == nil {
		env.Host = value.NewMap()
	}

	if varsFacet != nil {
		if ferr := resolveVarsTopDown(varsFacet.Body, env.Compiled); ferr != nil {
			return nil, nil, ferr
		}
	}
	if typesFacet != nil {
		specs, ferr := parseTypeSpecs(typesFacet.Body)
		if ferr != nil {
			return nil, nil, ferr
		}
		if ferr := validateTypes(specs, env.Compiled); ferr != nil {
			return nil, nil, ferr
		}
	}

	return remaining, env, nil
}

var refPattern = regexp.MustCompile(`\$\{?([A-Za-z_][A-Za-z0-9_.]*)\}?|\{\{\s*([A-Za-z_][A-Za-z0-9_.]*)\s*\}\}`)

// resolveVarsTopDown walks "@vars" entries in source order, resolving each
// right-hand side's references against entries already resolved. A
// reference to a not-yet-defined path is a forward reference error.
func resolveVarsTopDown(entries []parser.Entry, out *value.Map) *cerrors.FacetError {
	for _, e := range entries {
		kv, ok := e.(*parser.KV)
		if !ok {
			continue
		}
		resolved, ferr := resolveValue(kv.Value, out, kv.Pos)
		if ferr != nil {
			return ferr
		}
		out.Set(kv.Key, resolved)
	}
	return nil
}

func resolveValue(v *parser.Value, scope *value.Map, pos parser.Position) (any, *cerrors.FacetError) {
	switch v.Kind {
	case parser.VString:
		return resolveStringRefs(v.Str, scope, pos)
	case parser.VInt:
		return v.Int, nil
	case parser.VFloat:
		return v.Float, nil
	case parser.VBool:
		return v.Bool, nil
	case parser.VNull:
		return nil, nil
	case parser.VIdent:
		return v.Str, nil
	case parser.VFence:
		return v.FenceBody, nil
	case parser.VMap:
		m := value.NewMap()
		for _, me := range v.Map {
			rv, ferr := resolveValue(me.Value, scope, pos)
			if ferr != nil {
				return nil, ferr
			}
			m.Set(me.Key, rv)
		}
		return m, nil
	case parser.VList:
		seq := make(value.Sequence, 0, len(v.List))
		for _, item := range v.List {
			rv, ferr := resolveValue(item, scope, pos)
			if ferr != nil {
				return nil, ferr
			}
			seq = append(seq, rv)
		}
		return seq, nil
	default:
		return nil, cerrors.New(cerrors.ErrUndefinedVariable, toPos(pos), "unsupported @vars value shape")
	}
}

// resolveStringRefs resolves a whole-string "$name"/"${path}" shorthand
// verbatim, and otherwise resolves any "{{path}}" occurrences embedded in a
// literal string, per spec §4.4. It is the @vars-specific wrapper around the
// shared Substitute, reporting forward references with F404.
func resolveStringRefs(s string, scope *value.Map, pos parser.Position) (any, *cerrors.FacetError) {
	return Substitute(s, func(path string) (any, bool) { return lookupPath(scope, path) }, cerrors.ErrForwardReferenceVar, toPos(pos))
}

// Substitute resolves "$name"/"${path}" shorthand (verbatim, whole-string)
// and "{{path}}" template interpolation (embedded, stringified) against an
// arbitrary lookup function, per spec §4.4/§4.5. Shared by @vars resolution
// and general evaluation, which differ only in which error code an
// unresolved reference should raise.
func Substitute(s string, lookup func(string) (any, bool), missingCode string, pos cerrors.Position) (any, *cerrors.FacetError) {
	if strings.HasPrefix(s, "$") {
		path := strings.TrimPrefix(s, "$")
		path = strings.TrimPrefix(path, "{")
		path = strings.TrimSuffix(path, "}")
		resolved, ok := lookup(path)
		if !ok {
			return nil, cerrors.New(missingCode, pos, "reference to undefined variable %q", path)
		}
		return resolved, nil
	}
	if !strings.Contains(s, "{{") {
		return s, nil
	}
	var ferr *cerrors.FacetError
	result := refPattern.ReplaceAllStringFunc(s, func(match string) string {
		if ferr != nil {
			return match
		}
		sub := refPattern.FindStringSubmatch(match)
		path := sub[1]
		if path == "" {
			path = sub[2]
		}
		resolved, ok := lookup(path)
		if !ok {
			ferr = cerrors.New(missingCode, pos, "reference to undefined variable %q", path)
			return match
		}
		return stringify(resolved)
	})
	if ferr != nil {
		return nil, ferr
	}
	return result, nil
}

// stringify renders an interpolated reference per spec §4.5: strings render
// verbatim, everything else renders as canonical JSON-like text (numbers,
// booleans, null as their JSON literal; arrays and objects via
// value.CanonicalBytes, the same stable serialization the lens library uses
// for seed derivation).
func stringify(v any) string {
	switch v.(type) {
	case string:
		return v.(string)
	default:
		return string(value.CanonicalBytes(v))
	}
}

func parseTypeSpecs(entries []parser.Entry) (map[string]TypeSpec, *cerrors.FacetError) {
	specs := map[string]TypeSpec{}
	for _, e := range entries {
		kv, ok := e.(*parser.KV)
		if !ok {
			continue
		}
		spec := TypeSpec{}
		if kv.Value.Kind != parser.VMap && kv.Value.Kind != parser.VBlockMap {
			return nil, cerrors.New(cerrors.ErrUnknownVarType, toPos(kv.Pos), "@var_types entry %q must be a map", kv.Key)
		}
		fields := mapEntries(kv.Value)
		for _, mf := range fields {
			switch mf.key {
			case "type":
				spec.Type = mf.strVal()
			case "enum":
				spec.Enum = mf.listVal()
			case "min":
				f := mf.floatVal()
				spec.Min = &f
			case "max":
				f := mf.floatVal()
				spec.Max = &f
			case "pattern":
				spec.Pattern = mf.strVal()
			}
		}
		switch spec.Type {
		case "string", "int", "float", "bool", "array", "object":
		default:
			return nil, cerrors.New(cerrors.ErrUnknownVarType, toPos(kv.Pos), "unknown declared type %q for %q", spec.Type, kv.Key)
		}
		specs[kv.Key] = spec
	}
	return specs, nil
}

type fieldEntry struct {
	key string
	val *parser.Value
}

func (f fieldEntry) strVal() string {
	if f.val.Kind == parser.VString || f.val.Kind == parser.VIdent {
		return f.val.Str
	}
	return ""
}

func (f fieldEntry) floatVal() float64 {
	switch f.val.Kind {
	case parser.VFloat:
		return f.val.Float
	case parser.VInt:
		return float64(f.val.Int)
	}
	return 0
}

func (f fieldEntry) listVal() []any {
	if f.val.Kind != parser.VList {
		return nil
	}
	out := make([]any, 0, len(f.val.List))
	for _, item := range f.val.List {
		out = append(out, literalOf(item))
	}
	return out
}

func literalOf(v *parser.Value) any {
	switch v.Kind {
	case parser.VString, parser.VIdent:
		return v.Str
	case parser.VInt:
		return v.Int
	case parser.VFloat:
		return v.Float
	case parser.VBool:
		return v.Bool
	default:
		return nil
	}
}

func mapEntries(v *parser.Value) []fieldEntry {
	if v.Kind == parser.VMap {
		out := make([]fieldEntry, 0, len(v.Map))
		for _, me := range v.Map {
			out = append(out, fieldEntry{key: me.Key, val: me.Value})
		}
		return out
	}
	var out []fieldEntry
	for _, e := range v.Body {
		if kv, ok := e.(*parser.KV); ok {
			out = append(out, fieldEntry{key: kv.Key, val: kv.Value})
		}
	}
	return out
}

// validateTypes type-checks and constraint-checks each declared path against
// the resolved @vars values, per spec §4.4. An int is accepted where a float
// is declared; no other widening is allowed.
func validateTypes(specs map[string]TypeSpec, compiled *value.Map) *cerrors.FacetError {
	for path, spec := range specs {
		v, ok := lookupPath(compiled, path)
		if !ok {
			return cerrors.New(cerrors.ErrUnknownVarPath, cerrors.Position{}, "unknown variable path %q in @var_types", path)
		}
		if ferr := checkType(path, spec, v); ferr != nil {
			return ferr
		}
	}
	return nil
}

func checkType(path string, spec TypeSpec, v any) *cerrors.FacetError {
	pos := cerrors.Position{}
	switch spec.Type {
	case "string":
		s, ok := v.(string)
		if !ok {
			return cerrors.New(cerrors.ErrVarTypeMismatch, pos, "%q: expected string", path)
		}
		if len(spec.Enum) > 0 && !enumContains(spec.Enum, s) {
			return cerrors.New(cerrors.ErrConstraintViolation, pos, "%q: value not in enum", path)
		}
		if spec.Pattern != "" {
			re, err := regexp.Compile(spec.Pattern)
			if err != nil || !re.MatchString(s) {
				return cerrors.New(cerrors.ErrConstraintViolation, pos, "%q: does not match pattern", path)
			}
		}
	case "int":
		i, ok := v.(int64)
		if !ok {
			return cerrors.New(cerrors.ErrVarTypeMismatch, pos, "%q: expected int", path)
		}
		return checkNumericRange(path, spec, float64(i))
	case "float":
		switch n := v.(type) {
		case float64:
			return checkNumericRange(path, spec, n)
		case int64:
			return checkNumericRange(path, spec, float64(n))
		default:
			return cerrors.New(cerrors.ErrVarTypeMismatch, pos, "%q: expected float", path)
		}
	case "bool":
		if _, ok := v.(bool); !ok {
			return cerrors.New(cerrors.ErrVarTypeMismatch, pos, "%q: expected bool", path)
		}
	case "array":
		if _, ok := v.(value.Sequence); !ok {
			return cerrors.New(cerrors.ErrVarTypeMismatch, pos, "%q: expected array", path)
		}
	case "object":
		if _, ok := v.(*value.Map); !ok {
			return cerrors.New(cerrors.ErrVarTypeMismatch, pos, "%q: expected object", path)
		}
	}
	return nil
}

func checkNumericRange(path string, spec TypeSpec, n float64) *cerrors.FacetError {
	pos := cerrors.Position{}
	if spec.Min != nil && n < *spec.Min {
		return cerrors.New(cerrors.ErrConstraintViolation, pos, "%q: below minimum", path)
	}
	if spec.Max != nil && n > *spec.Max {
		return cerrors.New(cerrors.ErrConstraintViolation, pos, "%q: above maximum", path)
	}
	return nil
}

func enumContains(enum []any, s string) bool {
	for _, e := range enum {
		if es, ok := e.(string); ok && es == s {
			return true
		}
	}
	return false
}

func toPos(p parser.Position) cerrors.Position {
	return cerrors.Position{File: p.File, Line: p.Line, Column: p.Column}
}
