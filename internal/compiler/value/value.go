// Package value defines the canonical tree produced by the FACET compiler:
// ordered maps, sequences, strings, integers, finite floats, booleans, and
// null, plus the two transient wrapper kinds (anchor definitions and alias
// references) that the evaluator may still emit and the anchor resolver
// consumes before the tree is handed back to the caller.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Map is an insertion-ordered string-keyed map. It is the only map shape the
// canonical tree uses, so that JSON output preserves first-insertion order
// per spec's output mapping.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// Set inserts or overwrites key. Overwriting an existing key keeps its
// original position in Keys().
func (m *Map) Set(key string, v any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Keys returns keys in first-insertion order.
func (m *Map) Keys() []string {
	return m.keys
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.keys)
}

// Clone returns a shallow-per-entry, deep-per-container copy of m, so that
// substituting the same anchor value at multiple alias sites never lets the
// sites alias each other's mutable state.
func (m *Map) Clone() *Map {
	out := NewMap()
	for _, k := range m.keys {
		out.Set(k, DeepCopy(m.values[k]))
	}
	return out
}

// MarshalJSON renders the map as a JSON object, preserving insertion order
// (encoding/json does not do this for plain Go maps, which is the reason
// this type exists at all).
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Sequence is an ordered list of canonical values.
type Sequence []any

// MarshalJSON renders the sequence as a JSON array.
func (s Sequence) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]any(s))
}

// AnchorDef wraps a value bound to a name by "&name" until the anchor
// resolver's collect pass consumes it. It never survives into output.
type AnchorDef struct {
	Name  string
	Value any
}

// AliasRef stands in for "*name" until the anchor resolver's substitute
// pass replaces it with a (deep-copied) resolved anchor value.
type AliasRef struct {
	Name string
}

// DeepCopy recursively copies maps and sequences so that substituted anchor
// values never alias each other.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.Clone()
	case Sequence:
		out := make(Sequence, len(t))
		for i, e := range t {
			out[i] = DeepCopy(e)
		}
		return out
	case AnchorDef:
		return AnchorDef{Name: t.Name, Value: DeepCopy(t.Value)}
	case AliasRef:
		return t
	default:
		return v
	}
}

// CanonicalBytes renders v as stable JSON: object keys sorted, minimal
// separators, UTF-8, no escaping of non-ASCII runes. This is distinct from
// the caller-facing output of the tree (which preserves insertion order);
// it exists solely so the lens library can derive a deterministic
// (seed, input) key for "choose" and "shuffle" (spec §4.7).
func CanonicalBytes(v any) []byte {
	var buf bytes.Buffer
	writeCanonical(&buf, v)
	return buf.Bytes()
}

func writeCanonical(buf *bytes.Buffer, v any) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case int:
		buf.WriteString(strconv.Itoa(t))
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case float64:
		buf.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case string:
		writeCanonicalString(buf, t)
	case Sequence:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, e)
		}
		buf.WriteByte(']')
	case []any:
		writeCanonical(buf, Sequence(t))
	case *Map:
		keys := append([]string(nil), t.Keys()...)
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			val, _ := t.Get(k)
			writeCanonical(buf, val)
		}
		buf.WriteByte('}')
	default:
		buf.WriteString(fmt.Sprintf("%v", t))
	}
}

func writeCanonicalString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\t':
			buf.WriteString(`\t`)
		case '\r':
			buf.WriteString(`\r`)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}
