package edit

import (
	"errors"
	"testing"

	"github.com/mchrisman/tendril/engine"
	"github.com/mchrisman/tendril/value"
)

func mapping(pairs ...any) *value.Mapping {
	m := value.NewMapping()
	for i := 0; i < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1].(value.Value))
	}
	return m
}

func scalarSolution(name string, v value.Value, path value.Path) *engine.Solution {
	return &engine.Solution{
		Env:   map[string]engine.Binding{name: {Kind: engine.BindScalar, Scalar: v}},
		Sites: map[string][]engine.Site{name: {{Kind: engine.SiteScalar, Path: path, Value: v}}},
	}
}

func TestNormalizeSkipsUnboundNames(t *testing.T) {
	sol := scalarSolution("n", value.Number(3), value.Path{value.KeyStep("count")})
	edits, err := Normalize([]*engine.Solution{sol}, Plan{
		"missing": value.Number(9),
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edits) != 0 {
		t.Fatalf("expected no edits for an unbound plan name, got %d", len(edits))
	}
}

func TestNormalizeProducesOneEditPerSite(t *testing.T) {
	sol := scalarSolution("n", value.Number(3), value.Path{value.KeyStep("count")})
	edits, err := Normalize([]*engine.Solution{sol}, Plan{
		"n": ReplacementFunc(func(b Bindings) (value.Value, error) {
			v, _ := b.Get("n")
			return value.Number(v.(value.Number) + 1), nil
		}),
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edits) != 1 || edits[0].Value != value.Number(4) {
		t.Fatalf("expected one edit with value 4, got %#v", edits)
	}
}

func TestNormalizeConflictDefaultsToForce(t *testing.T) {
	// Two solutions bound different values at the exact same site path; with
	// no onConflict callback, the later solution's edit wins.
	path := value.Path{value.KeyStep("count")}
	a := scalarSolution("n", value.Number(3), path)
	b := scalarSolution("n", value.Number(5), path)
	plan := Plan{
		"n": ReplacementFunc(func(b Bindings) (value.Value, error) {
			v, _ := b.Get("n")
			return value.Number(v.(value.Number) * 10), nil
		}),
	}
	edits, err := Normalize([]*engine.Solution{a, b}, plan, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edits) != 1 || edits[0].Value != value.Number(50) {
		t.Fatalf("expected one deduplicated edit forced to the later value (50), got %#v", edits)
	}
}

func TestNormalizeConflictCallbackCanReject(t *testing.T) {
	path := value.Path{value.KeyStep("count")}
	a := &engine.Solution{
		Env:   map[string]engine.Binding{"n": {Kind: engine.BindScalar, Scalar: value.Number(3)}},
		Sites: map[string][]engine.Site{"n": {{Kind: engine.SiteScalar, Path: path, Value: value.Number(3)}}},
	}
	b := &engine.Solution{
		Env:   map[string]engine.Binding{"n": {Kind: engine.BindScalar, Scalar: value.Number(5)}},
		Sites: map[string][]engine.Site{"n": {{Kind: engine.SiteScalar, Path: path, Value: value.Number(5)}}},
	}
	plan := Plan{
		"n": ReplacementFunc(func(b Bindings) (value.Value, error) {
			v, _ := b.Get("n")
			return value.Number(v.(value.Number) * 10), nil
		}),
	}
	calls := 0
	edits, err := Normalize([]*engine.Solution{a, b}, plan, func(c Conflict) bool {
		calls++
		return false
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected onConflict to be asked once, got %d", calls)
	}
	if len(edits) != 1 || edits[0].Value != value.Number(30) {
		t.Fatalf("expected the first edit (30) to survive rejection of the second, got %#v", edits)
	}
}

func TestNormalizeObjectSliceShapeMismatchReportsName(t *testing.T) {
	path := value.Path{value.KeyStep("obj")}
	sol := &engine.Solution{
		Env: map[string]engine.Binding{"grp": {Kind: engine.BindGroup, Group: mapping("a", value.Number(1))}},
		Sites: map[string][]engine.Site{
			"grp": {{Kind: engine.SiteObjectSlice, Path: path, Keys: []string{"a"}}},
		},
	}
	plan := Plan{"grp": value.Number(9)}
	_, err := Normalize([]*engine.Solution{sol}, plan, nil)
	if err == nil {
		t.Fatal("expected a shape mismatch error")
	}
	var shapeErr *ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected *ShapeError, got %T (%v)", err, err)
	}
	if shapeErr.Name != "grp" {
		t.Errorf("expected shape error to name %q, got %q", "grp", shapeErr.Name)
	}
}

func TestApplyScalarRespectsCAS(t *testing.T) {
	root := mapping("count", value.Number(3))
	e := Edit{Kind: engine.SiteScalar, Path: value.Path{value.KeyStep("count")}, Value: value.Number(4), ValueRef: value.Number(3)}

	out, errs := Apply(root, []Edit{e}, ApplyOptions{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	got, _ := value.Get(out, value.Path{value.KeyStep("count")})
	if got != value.Number(4) {
		t.Errorf("expected count=4, got %v", got)
	}
}

func TestApplyScalarCASFailureIsReported(t *testing.T) {
	root := mapping("count", value.Number(99))
	e := Edit{Kind: engine.SiteScalar, Path: value.Path{value.KeyStep("count")}, Value: value.Number(4), ValueRef: value.Number(3)}

	out, errs := Apply(root, []Edit{e}, ApplyOptions{})
	if len(errs) != 1 {
		t.Fatalf("expected a CAS failure, got %v", errs)
	}
	got, _ := value.Get(out, value.Path{value.KeyStep("count")})
	if got != value.Number(99) {
		t.Errorf("expected the document to remain unchanged, got %v", got)
	}
}

func TestApplyScalarCASFailureCanBeForced(t *testing.T) {
	root := mapping("count", value.Number(99))
	e := Edit{Kind: engine.SiteScalar, Path: value.Path{value.KeyStep("count")}, Value: value.Number(4), ValueRef: value.Number(3)}

	out, errs := Apply(root, []Edit{e}, ApplyOptions{OnCASFailure: func(CASFailure) bool { return true }})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	got, _ := value.Get(out, value.Path{value.KeyStep("count")})
	if got != value.Number(4) {
		t.Errorf("expected the forced edit to apply, got %v", got)
	}
}

func TestApplyArrayGroupOffsetsAcrossSplices(t *testing.T) {
	root := mapping("items", value.Sequence{value.Number(1), value.Number(2), value.Number(3), value.Number(4), value.Number(5)})
	path := value.Path{value.KeyStep("items")}
	edits := []Edit{
		{Kind: engine.SiteArraySlice, Path: path, Start: 0, End: 1, Value: value.Sequence{value.Number(10), value.Number(11)}},
		{Kind: engine.SiteArraySlice, Path: path, Start: 3, End: 4, Value: value.Sequence{}},
	}
	out, errs := Apply(root, edits, ApplyOptions{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	got, _ := value.Get(out, path)
	seq := got.(value.Sequence)
	want := value.Sequence{value.Number(10), value.Number(11), value.Number(2), value.Number(3), value.Number(5)}
	if len(seq) != len(want) {
		t.Fatalf("expected %v, got %v", want, seq)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Errorf("index %d: expected %v, got %v", i, want[i], seq[i])
		}
	}
}

func TestApplyObjectSliceDeletesCapturedKeys(t *testing.T) {
	root := mapping("a", value.Number(1), "b", value.Number(2), "c", value.Number(3))
	e := Edit{
		Kind:  engine.SiteObjectSlice,
		Path:  nil,
		Keys:  []string{"a", "b"},
		Value: mapping("a", value.Number(100)),
	}
	out, errs := Apply(root, []Edit{e}, ApplyOptions{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	obj := out.(*value.Mapping)
	if obj.Len() != 2 {
		t.Fatalf("expected 2 keys after deleting b and rewriting a, got %d (%v)", obj.Len(), obj.Keys())
	}
	got, _ := obj.Get("a")
	if got != value.Number(100) {
		t.Errorf("expected a=100, got %v", got)
	}
	if _, ok := obj.Get("b"); ok {
		t.Error("expected b to be deleted")
	}
}
