package value

import "fmt"

// Step is one component of a Path: either a mapping key or a sequence index.
type Step struct {
	Key      string
	Index    int
	IsIndex  bool
}

// KeyStep builds a mapping-key path step.
func KeyStep(k string) Step { return Step{Key: k} }

// IndexStep builds a sequence-index path step.
func IndexStep(i int) Step { return Step{Index: i, IsIndex: true} }

func (s Step) String() string {
	if s.IsIndex {
		return fmt.Sprintf("[%d]", s.Index)
	}
	return "." + s.Key
}

// Path is an ordered sequence of Steps from the root. The empty Path denotes the root.
type Path []Step

func (p Path) String() string {
	if len(p) == 0 {
		return "<root>"
	}
	s := ""
	for _, step := range p {
		s += step.String()
	}
	return s
}

// Equal reports whether two paths name the same location.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Append returns a new path with step appended, never aliasing p's backing array.
func (p Path) Append(step Step) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = step
	return out
}

// Get navigates root along path, returning the found value and whether every step resolved.
func Get(root Value, path Path) (Value, bool) {
	cur := root
	for _, step := range path {
		switch step.IsIndex {
		case true:
			seq, ok := cur.(Sequence)
			if !ok || step.Index < 0 || step.Index >= len(seq) {
				return nil, false
			}
			cur = seq[step.Index]
		default:
			m, ok := cur.(*Mapping)
			if !ok {
				return nil, false
			}
			v, present := m.Get(step.Key)
			if !present {
				return nil, false
			}
			cur = v
		}
	}
	return cur, true
}

// Set returns a new root with the value at path replaced by v, copying only
// the spine from root to path (copy-on-write). Reports false if path does
// not resolve in root.
func Set(root Value, path Path, v Value) (Value, bool) {
	if len(path) == 0 {
		return v, true
	}
	return setAt(root, path, v)
}

func setAt(cur Value, path Path, v Value) (Value, bool) {
	step := path[0]
	rest := path[1:]
	if step.IsIndex {
		seq, ok := cur.(Sequence)
		if !ok || step.Index < 0 || step.Index >= len(seq) {
			return nil, false
		}
		out := append(Sequence(nil), seq...)
		if len(rest) == 0 {
			out[step.Index] = v
			return out, true
		}
		child, ok := setAt(out[step.Index], rest, v)
		if !ok {
			return nil, false
		}
		out[step.Index] = child
		return out, true
	}
	m, ok := cur.(*Mapping)
	if !ok {
		return nil, false
	}
	out := m.Clone()
	if len(rest) == 0 {
		out.Set(step.Key, v)
		return out, true
	}
	existing, present := out.Get(step.Key)
	if !present {
		return nil, false
	}
	child, ok := setAt(existing, rest, v)
	if !ok {
		return nil, false
	}
	out.Set(step.Key, child)
	return out, true
}
