package edit

import (
	"fmt"
	"sort"

	"github.com/mchrisman/tendril/engine"
	"github.com/mchrisman/tendril/value"
)

// CASFailure reports that a recorded site no longer matches the value it
// was bound against, so the default policy is to leave it unchanged.
type CASFailure struct {
	Path value.Path
	Kind engine.SiteKind
}

func (e *CASFailure) Error() string {
	return fmt.Sprintf("edit: compare-and-set failed at %s", e.Path)
}

// ApplyOptions controls CAS-failure handling. OnCASFailure, if non-nil, may
// return true to force the edit through despite the mismatch.
type ApplyOptions struct {
	OnCASFailure func(CASFailure) bool
}

// Apply applies edits to root, grouping scalar edits (compare-and-set
// individually), array-slice edits (sorted by start index per array path,
// applied left-to-right with a running offset), and object-slice edits
// (delete captured keys, write the replacement mapping). It returns the
// resulting root and any CAS or structural failures encountered.
func Apply(root value.Value, edits []Edit, opts ApplyOptions) (value.Value, []error) {
	var failures []error

	var scalarEdits, arrayEdits, objectEdits []Edit
	for _, e := range edits {
		switch e.Kind {
		case engine.SiteScalar:
			scalarEdits = append(scalarEdits, e)
		case engine.SiteArraySlice:
			arrayEdits = append(arrayEdits, e)
		case engine.SiteObjectSlice:
			objectEdits = append(objectEdits, e)
		}
	}

	for _, e := range scalarEdits {
		root = applyScalar(root, e, opts, &failures)
	}

	byArrayPath := map[string][]Edit{}
	var arrayOrder []string
	for _, e := range arrayEdits {
		key := e.Path.String()
		if _, seen := byArrayPath[key]; !seen {
			arrayOrder = append(arrayOrder, key)
		}
		byArrayPath[key] = append(byArrayPath[key], e)
	}
	for _, key := range arrayOrder {
		root = applyArrayGroup(root, byArrayPath[key], opts, &failures)
	}

	for _, e := range objectEdits {
		root = applyObjectSlice(root, e, opts, &failures)
	}

	return root, failures
}

func applyScalar(root value.Value, e Edit, opts ApplyOptions, failures *[]error) value.Value {
	if len(e.Path) == 0 {
		if !value.Equal(root, e.ValueRef) && !forceCAS(opts, e, failures) {
			return root
		}
		return e.Value
	}
	cur, ok := value.Get(root, e.Path)
	if !ok || !value.Equal(cur, e.ValueRef) {
		if !forceCAS(opts, e, failures) {
			return root
		}
	}
	next, ok := value.Set(root, e.Path, e.Value)
	if !ok {
		*failures = append(*failures, fmt.Errorf("edit: path %s no longer resolves", e.Path))
		return root
	}
	return next
}

func forceCAS(opts ApplyOptions, e Edit, failures *[]error) bool {
	f := CASFailure{Path: e.Path, Kind: e.Kind}
	force := false
	if opts.OnCASFailure != nil {
		force = opts.OnCASFailure(f)
	}
	if !force {
		*failures = append(*failures, &f)
	}
	return force
}

func applyArrayGroup(root value.Value, group []Edit, opts ApplyOptions, failures *[]error) value.Value {
	sort.Slice(group, func(i, j int) bool { return group[i].Start < group[j].Start })
	parentPath := group[0].Path
	cur, ok := value.Get(root, parentPath)
	seq, ok2 := cur.(value.Sequence)
	if !ok || !ok2 {
		*failures = append(*failures, fmt.Errorf("edit: path %s is not an array", parentPath))
		return root
	}
	out := append(value.Sequence(nil), seq...)
	offset := 0
	for _, e := range group {
		start, end := e.Start+offset, e.End+offset
		if start < 0 || end > len(out) || start > end {
			if !forceCAS(opts, e, failures) {
				continue
			}
		}
		replacement, _ := e.Value.(value.Sequence)
		merged := append(append(value.Sequence(nil), out[:start]...), replacement...)
		merged = append(merged, out[end:]...)
		out = merged
		offset += len(replacement) - (end - start)
	}
	next, ok := value.Set(root, parentPath, out)
	if !ok {
		*failures = append(*failures, fmt.Errorf("edit: path %s no longer resolves", parentPath))
		return root
	}
	return next
}

func applyObjectSlice(root value.Value, e Edit, opts ApplyOptions, failures *[]error) value.Value {
	cur, ok := value.Get(root, e.Path)
	obj, ok2 := cur.(*value.Mapping)
	if !ok || !ok2 {
		*failures = append(*failures, fmt.Errorf("edit: path %s is not an object", e.Path))
		return root
	}
	clone := obj.Clone()
	for _, k := range e.Keys {
		clone.Delete(k)
	}
	repl, _ := e.Value.(*value.Mapping)
	for _, p := range repl.Pairs() {
		clone.Set(p.Key, p.Value)
	}
	next, ok := value.Set(root, e.Path, clone)
	if !ok {
		*failures = append(*failures, fmt.Errorf("edit: path %s no longer resolves", e.Path))
		return root
	}
	return next
}
