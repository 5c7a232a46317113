package errors

import "encoding/json"

// ToJSON renders e as a machine-readable diagnostic, grounded on the
// teacher's compiler/errors/json.go. The facet CLI commands do not call it.
func (e *FacetError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ToJSONIndent is ToJSON with two-space indentation.
func (e *FacetError) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}
