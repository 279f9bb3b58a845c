package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// FromGo converts a native Go value built from the usual JSON-decoding
// shapes (map[string]any, []any, string, float64/int, bool, nil) into a
// Value tree. There is no retrieved library for turning arbitrary decoded
// JSON into a custom dynamic value tree (one fast-path JSON tokenizer in
// the examples only yields raw byte offsets, not a generic tree), so this
// walks encoding/json's native output directly.
func FromGo(v any) (Value, error) {
	switch n := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return n, nil
	case bool:
		return Bool(n), nil
	case string:
		return String(n), nil
	case float64:
		return Number(n), nil
	case float32:
		return Number(n), nil
	case int:
		return Number(n), nil
	case int64:
		return Number(n), nil
	case []any:
		out := make(Sequence, len(n))
		for i, e := range n {
			cv, err := FromGo(e)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	case map[string]any:
		m := NewMapping()
		for _, k := range orderedKeys(n) {
			cv, err := FromGo(n[k])
			if err != nil {
				return nil, err
			}
			m.Set(k, cv)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("value: cannot convert %T to a pattern value", v)
	}
}

// orderedKeys imposes a deterministic (lexical) order on a decoded
// map[string]any, which has none of its own; callers that need the
// original document's key order should build a *Mapping directly via
// ParseJSON instead of going through a pre-decoded map.
func orderedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ParseJSON decodes a JSON document into a Value tree, preserving object
// key insertion order. encoding/json's Unmarshal into map[string]any loses
// order, so this drives the lower-level Decoder token stream by hand,
// the standard way to keep document order when decoding into a dynamic
// (non-struct) shape.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("value: trailing data after JSON document")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			seq := Sequence{}
			for dec.More() {
				elem, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				seq = append(seq, elem)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return seq, nil
		case '{':
			m := NewMapping()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		default:
			return nil, fmt.Errorf("value: unexpected JSON delimiter %v", t)
		}
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return Number(f), nil
	case string:
		return String(t), nil
	default:
		return nil, fmt.Errorf("value: unexpected JSON token %T", tok)
	}
}

// ToGo converts a Value tree back to the native Go shapes FromGo accepts,
// suitable for json.Marshal or for handing bindings back to a caller.
func ToGo(v Value) any {
	switch n := v.(type) {
	case nil:
		return nil
	case Null:
		return nil
	case Bool:
		return bool(n)
	case Number:
		return float64(n)
	case String:
		return string(n)
	case Sequence:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = ToGo(e)
		}
		return out
	case *Mapping:
		out := make(map[string]any, n.Len())
		for _, p := range n.Pairs() {
			out[p.Key] = ToGo(p.Value)
		}
		return out
	default:
		return nil
	}
}
