package value

import "math"

// Equal reports structural equality under tendril's sameValueZero rule:
// NaN equals NaN, -0 equals +0, and containers recurse structurally.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		if !ok {
			return false
		}
		if math.IsNaN(float64(av)) && math.IsNaN(float64(bv)) {
			return true
		}
		return float64(av) == float64(bv)
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Sequence:
		bv, ok := b.(Sequence)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Mapping:
		bv, ok := b.(*Mapping)
		if !ok {
			return false
		}
		if av.Len() != bv.Len() {
			return false
		}
		for _, p := range av.Pairs() {
			ov, present := bv.Get(p.Key)
			if !present || !Equal(p.Value, ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// DeepClone returns a fully independent copy of v.
func DeepClone(v Value) Value {
	switch vv := v.(type) {
	case Sequence:
		out := make(Sequence, len(vv))
		for i, e := range vv {
			out[i] = DeepClone(e)
		}
		return out
	case *Mapping:
		out := NewMapping()
		for _, p := range vv.Pairs() {
			out.Set(p.Key, DeepClone(p.Value))
		}
		return out
	default:
		return v
	}
}

// Kind names the primitive kind of v for TypedAny matching ("string", "number", "boolean").
func Kind(v Value) string {
	switch v.(type) {
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "boolean"
	case Null:
		return "null"
	case Sequence:
		return "array"
	case *Mapping:
		return "object"
	default:
		return "unknown"
	}
}
