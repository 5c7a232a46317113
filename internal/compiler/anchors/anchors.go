// Package anchors implements the post-evaluation pass that resolves
// "&name"/"*name" anchor and alias markers into a final canonical tree
// (spec §4.8). The collect-then-substitute shape, with a "visiting" set
// keyed by name for cycle detection, is grounded on the teacher's
// typechecker's circular-dependency detection for type aliases
// (internal/compiler/typechecker), adapted here from a single string-keyed
// name graph over type references to one over canonical tree anchors.
package anchors

import (
	cerrors "github.com/facet-lang/facet/compiler/errors"
	"github.com/facet-lang/facet/internal/compiler/value"
)

// Resolve walks tree, collecting every AnchorDef by name and then
// substituting every AliasRef with a deep copy of its anchor's resolved
// value. The &/value wrapper never survives into the result.
func Resolve(tree any) (any, *cerrors.FacetError) {
	anchors := map[string]any{}
	if ferr := collect(tree, anchors); ferr != nil {
		return nil, ferr
	}
	visiting := map[string]bool{}
	resolved := map[string]any{}
	return substitute(tree, anchors, visiting, resolved)
}

func collect(node any, anchors map[string]any) *cerrors.FacetError {
	switch t := node.(type) {
	case value.AnchorDef:
		if _, dup := anchors[t.Name]; dup {
			return cerrors.New(cerrors.ErrAnchorRedefined, cerrors.Position{}, "anchor %q redefined", t.Name)
		}
		anchors[t.Name] = t.Value
		return collect(t.Value, anchors)
	case *value.Map:
		for _, k := range t.Keys() {
			v, _ := t.Get(k)
			if ferr := collect(v, anchors); ferr != nil {
				return ferr
			}
		}
	case value.Sequence:
		for _, e := range t {
			if ferr := collect(e, anchors); ferr != nil {
				return ferr
			}
		}
	}
	return nil
}

// substitute produces a copy of node with every AliasRef replaced by a
// (recursively substituted, deep-copied) anchor value, and every AnchorDef
// unwrapped to its plain value. resolved caches per-anchor-name results so
// that multiple aliases to the same anchor don't re-walk it repeatedly.
func substitute(node any, anchors map[string]any, visiting map[string]bool, resolved map[string]any) (any, *cerrors.FacetError) {
	switch t := node.(type) {
	case value.AliasRef:
		if cached, ok := resolved[t.Name]; ok {
			return value.DeepCopy(cached), nil
		}
		anchored, ok := anchors[t.Name]
		if !ok {
			return nil, cerrors.New(cerrors.ErrUndefinedAlias, cerrors.Position{}, "alias %q refers to an undefined anchor", t.Name)
		}
		if visiting[t.Name] {
			return nil, cerrors.New(cerrors.ErrAliasCycle, cerrors.Position{}, "alias cycle detected at %q", t.Name)
		}
		visiting[t.Name] = true
		resolvedVal, ferr := substitute(anchored, anchors, visiting, resolved)
		visiting[t.Name] = false
		if ferr != nil {
			return nil, ferr
		}
		resolved[t.Name] = resolvedVal
		return value.DeepCopy(resolvedVal), nil
	case value.AnchorDef:
		return substitute(t.Value, anchors, visiting, resolved)
	case *value.Map:
		out := value.NewMap()
		for _, k := range t.Keys() {
			v, _ := t.Get(k)
			sv, ferr := substitute(v, anchors, visiting, resolved)
			if ferr != nil {
				return nil, ferr
			}
			out.Set(k, sv)
		}
		return out, nil
	case value.Sequence:
		out := make(value.Sequence, len(t))
		for i, e := range t {
			sv, ferr := substitute(e, anchors, visiting, resolved)
			if ferr != nil {
				return nil, ferr
			}
			out[i] = sv
		}
		return out, nil
	default:
		return t, nil
	}
}
