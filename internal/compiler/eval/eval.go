// Package eval walks the facet tree produced by the parser (after import
// expansion and compile-time variable resolution) and produces the
// canonical tree, applying "if" gating, substitution, interpolation, and
// lens pipelines in order (spec §4.5). The ordered traversal that builds a
// result incrementally while threading a shared environment through
// recursive calls is grounded on the teacher's codegen pass
// (internal/compiler/codegen), adapted from AST-to-source-text generation
// to AST-to-value-tree evaluation.
package eval

import (
	cerrors "github.com/facet-lang/facet/compiler/errors"
	"github.com/facet-lang/facet/internal/compiler/expr"
	"github.com/facet-lang/facet/internal/compiler/lens"
	"github.com/facet-lang/facet/internal/compiler/limits"
	"github.com/facet-lang/facet/internal/compiler/parser"
	"github.com/facet-lang/facet/internal/compiler/value"
	"github.com/facet-lang/facet/internal/compiler/vars"
)

// Evaluate walks facets in order and returns the canonical tree: a map from
// facet name to its evaluated value.
func Evaluate(facets []*parser.Facet, env *vars.Environment) (*value.Map, *cerrors.FacetError) {
	out := value.NewMap()
	for _, f := range facets {
		include, ferr := facetIfGate(f, env)
		if ferr != nil {
			return nil, ferr
		}
		if !include {
			continue
		}
		fv, ferr := evalFacet(f, env)
		if ferr != nil {
			return nil, ferr
		}
		out.Set(f.Name, fv)
	}
	return out, nil
}

func facetIfGate(f *parser.Facet, env *vars.Environment) (bool, *cerrors.FacetError) {
	for _, a := range f.Attrs {
		if a.Key != "if" {
			continue
		}
		ok, ferr := expr.Eval(a.Value.Str, env, toPos(f.Pos))
		if ferr != nil {
			return false, ferr
		}
		return ok, nil
	}
	return true, nil
}

func evalFacet(f *parser.Facet, env *vars.Environment) (any, *cerrors.FacetError) {
	bodyVal, ferr := evalBody(f.Body, env)
	if ferr != nil {
		return nil, ferr
	}
	m := attachAttrs(bodyVal, f.Attrs)
	if f.AnchorName != "" {
		return value.AnchorDef{Name: f.AnchorName, Value: m}, nil
	}
	return m, nil
}

// attachAttrs wraps a facet's evaluated body into its final map shape: a
// list body surfaces as {items: [...], _attrs: ...}; a map body surfaces
// its entries directly, alongside _attrs if any attributes were present.
func attachAttrs(body any, attrs []parser.Attr) *value.Map {
	out := value.NewMap()
	if seq, ok := body.(value.Sequence); ok {
		out.Set("items", seq)
		if len(attrs) > 0 {
			out.Set("_attrs", attrsMap(attrs))
		}
		return out
	}
	if m, ok := body.(*value.Map); ok {
		if len(attrs) > 0 {
			out.Set("_attrs", attrsMap(attrs))
		}
		for _, k := range m.Keys() {
			v, _ := m.Get(k)
			out.Set(k, v)
		}
		return out
	}
	if len(attrs) > 0 {
		out.Set("_attrs", attrsMap(attrs))
	}
	out.Set("items", value.Sequence{})
	return out
}

func attrsMap(attrs []parser.Attr) *value.Map {
	m := value.NewMap()
	for _, a := range attrs {
		m.Set(a.Key, attrLiteral(a.Value))
	}
	return m
}

func attrLiteral(v *parser.Value) any {
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

// evalBody classifies entries as a list body (every member a ListItem) or a
// map body (every member a KV), per spec §4.2/§4.5.
func evalBody(entries []parser.Entry, env *vars.Environment) (any, *cerrors.FacetError) {
	if len(entries) == 0 {
		return value.Sequence{}, nil
	}
	isList := false
	for _, e := range entries {
		if _, ok := e.(*parser.ListItem); ok {
			isList = true
			break
		}
	}
	if isList {
		return evalListBody(entries, env)
	}
	return evalMapBody(entries, env)
}

func evalListBody(entries []parser.Entry, env *vars.Environment) (value.Sequence, *cerrors.FacetError) {
	out := value.Sequence{}
	for _, e := range entries {
		item, ok := e.(*parser.ListItem)
		if !ok {
			continue
		}
		if item.HasIf {
			include, ferr := expr.Eval(item.If, env, toPos(item.Pos))
			if ferr != nil {
				return nil, ferr
			}
			if !include {
				continue
			}
		}
		v, ferr := evalValue(item.Value, env, item.Lenses, item.Pos)
		if ferr != nil {
			return nil, ferr
		}
		out = append(out, v)
	}
	return out, nil
}

func evalMapBody(entries []parser.Entry, env *vars.Environment) (*value.Map, *cerrors.FacetError) {
	out := value.NewMap()
	for _, e := range entries {
		kv, ok := e.(*parser.KV)
		if !ok {
			continue
		}
		v, ferr := evalValue(kv.Value, env, kv.Lenses, kv.Pos)
		if ferr != nil {
			return nil, ferr
		}
		out.Set(kv.Key, v)
	}
	return out, nil
}

// evalValue resolves a value node (substitution, interpolation) and then
// runs the entry's lens pipeline over the result, per spec §4.5. Fenced
// values skip substitution/interpolation and enter the pipeline as raw
// strings. An anchored value (`&name value`) runs its pipeline against the
// wrapped value, not the anchor envelope, so lenses on an anchored entry see
// the same shape they would see on an unanchored one.
func evalValue(v *parser.Value, env *vars.Environment, lenses []parser.LensCall, pos parser.Position) (any, *cerrors.FacetError) {
	if v.Kind == parser.VAnchorDef {
		inner, ferr := evalValue(v.AnchorValue, env, lenses, pos)
		if ferr != nil {
			return nil, ferr
		}
		return value.AnchorDef{Name: v.AnchorName, Value: inner}, nil
	}
	resolved, ferr := resolveScalar(v, env, pos)
	if ferr != nil {
		return nil, ferr
	}
	return applyLenses(resolved, lenses, env, pos)
}

func resolveScalar(v *parser.Value, env *vars.Environment, pos parser.Position) (any, *cerrors.FacetError) {
	switch v.Kind {
	case parser.VString:
		return vars.Substitute(v.Str, env.Lookup, cerrors.ErrUndefinedVariable, toPos(pos))
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
			rv, ferr := evalValue(me.Value, env, nil, v.Pos)
			if ferr != nil {
				return nil, ferr
			}
			m.Set(me.Key, rv)
		}
		return m, nil
	case parser.VList:
		seq := make(value.Sequence, 0, len(v.List))
		for _, item := range v.List {
			rv, ferr := evalValue(item, env, nil, v.Pos)
			if ferr != nil {
				return nil, ferr
			}
			seq = append(seq, rv)
		}
		return seq, nil
	case parser.VBlockMap:
		return evalMapBody(v.Body, env)
	case parser.VBlockList:
		return evalListBody(v.Body, env)
	case parser.VAliasRef:
		return value.AliasRef{Name: v.AnchorName}, nil
	default:
		return nil, cerrors.New(cerrors.ErrInvalidInlineValue, toPos(pos), "unsupported value shape during evaluation")
	}
}

func applyLenses(v any, calls []parser.LensCall, env *vars.Environment, pos parser.Position) (any, *cerrors.FacetError) {
	if len(calls) > limits.MaxLensChain {
		return nil, cerrors.New(cerrors.ErrLensChainTooLong, toPos(pos), "lens chain exceeds %d stages", limits.MaxLensChain)
	}
	cur := v
	for _, call := range calls {
		args, ferr := resolveLensArgs(call, env, pos)
		if ferr != nil {
			return nil, ferr
		}
		result, ferr := lens.Apply(call.Name, cur, args, toPos(call.Pos))
		if ferr != nil {
			return nil, ferr
		}
		cur = result
	}
	return cur, nil
}

func resolveLensArgs(call parser.LensCall, env *vars.Environment, pos parser.Position) (lens.Args, *cerrors.FacetError) {
	args := lens.Args{Named: map[string]any{}}
	for _, a := range call.Args {
		rv, ferr := resolveScalar(a.Value, env, pos)
		if ferr != nil {
			return lens.Args{}, ferr
		}
		if a.Name == "" {
			args.Positional = append(args.Positional, rv)
		} else {
			args.Named[a.Name] = rv
		}
	}
	return args, nil
}

func toPos(p parser.Position) cerrors.Position {
	return cerrors.Position{File: p.File, Line: p.Line, Column: p.Column}
}
