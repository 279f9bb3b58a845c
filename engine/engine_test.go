package engine

import (
	"testing"

	"github.com/mchrisman/tendril/ast"
	"github.com/mchrisman/tendril/value"
)

func seq(vs ...value.Value) value.Sequence { return value.Sequence(vs) }

func mapping(pairs ...any) *value.Mapping {
	m := value.NewMapping()
	for i := 0; i < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1].(value.Value))
	}
	return m
}

func runAll(pat ast.Pattern, node value.Value) []*Solution {
	var out []*Solution
	bud := newBudget(0)
	Match(bud, pat, node, nil, NewSolution(), func(s *Solution) bool {
		out = append(out, s)
		return true
	})
	return out
}

func TestMatchLiteralsAndAny(t *testing.T) {
	if sols := runAll(&ast.Lit{Value: value.Number(3)}, value.Number(3)); len(sols) != 1 {
		t.Fatalf("expected literal match, got %d solutions", len(sols))
	}
	if sols := runAll(&ast.Lit{Value: value.Number(3)}, value.Number(4)); len(sols) != 0 {
		t.Fatalf("expected literal mismatch, got %d solutions", len(sols))
	}
	if sols := runAll(&ast.Any{}, value.Null{}); len(sols) != 1 {
		t.Fatalf("expected Any to match anything, got %d", len(sols))
	}
}

func TestMatchSBindMonotoneBinding(t *testing.T) {
	// {a: $x, b: $x} as a hand-built AST: two object terms binding the same name.
	pat := &ast.Obj{Terms: []ast.Pattern{
		&ast.OTerm{KeyPat: &ast.Lit{Value: value.String("a")}, Value: &ast.SBind{Name: "x", Sub: &ast.Any{}}, Min: 1, Max: -1},
		&ast.OTerm{KeyPat: &ast.Lit{Value: value.String("b")}, Value: &ast.SBind{Name: "x", Sub: &ast.Any{}}, Min: 1, Max: -1},
	}}

	t.Run("equal values bind once", func(t *testing.T) {
		sols := runAll(pat, mapping("a", value.Number(7), "b", value.Number(7)))
		if len(sols) != 1 {
			t.Fatalf("expected 1 solution, got %d", len(sols))
		}
		if sols[0].Env["x"].Scalar != value.Number(7) {
			t.Errorf("expected x=7, got %v", sols[0].Env["x"].Scalar)
		}
	})

	t.Run("conflicting values fail the branch", func(t *testing.T) {
		sols := runAll(pat, mapping("a", value.Number(7), "b", value.Number(8)))
		if len(sols) != 0 {
			t.Fatalf("expected 0 solutions, got %d", len(sols))
		}
	})
}

func TestQuantifierFrontierOrdering(t *testing.T) {
	// [_ (_+? as @mid) _] over [1,2,3,4,5]: the array is anchored at both
	// ends, so the only run that fits between the two flanking elements is
	// 3 long, and both the lazy and the greedy mode must produce it first.
	item := &ast.GroupBind{
		Name: "mid",
		Kind: ast.SliceArray,
		Sub:  &ast.Quant{Sub: &ast.Any{}, Min: 1, Max: -1, Mode: ast.Lazy},
	}
	pat := &ast.Arr{Items: []ast.Pattern{&ast.Any{}, item, &ast.Any{}}}
	node := seq(value.Number(1), value.Number(2), value.Number(3), value.Number(4), value.Number(5))

	sols := runAll(pat, node)
	if len(sols) == 0 {
		t.Fatal("expected at least one solution")
	}
	mid := sols[0].Env["mid"].Group.(value.Sequence)
	if len(mid) != 3 {
		t.Fatalf("lazy quantifier should prefer the minimum feasible run (3 elements), got %d", len(mid))
	}

	item.Sub = &ast.Quant{Sub: &ast.Any{}, Min: 1, Max: -1, Mode: ast.Greedy}
	sols = runAll(pat, node)
	if len(sols) == 0 {
		t.Fatal("expected at least one solution")
	}
	mid = sols[0].Env["mid"].Group.(value.Sequence)
	if len(mid) != 3 {
		t.Fatalf("greedy quantifier should prefer the maximum feasible run leaving room for the trailing element (3 elements), got %d", len(mid))
	}
}

func TestArrayGroupBindSpreadForm(t *testing.T) {
	// [_ (… as @rest)]: the anonymous spread form of a group bind, exercising
	// matchArrayGroupBind's *ast.Spread branch.
	pat := &ast.Arr{Items: []ast.Pattern{
		&ast.Any{},
		&ast.GroupBind{Name: "rest", Kind: ast.SliceArray, Sub: &ast.Spread{Min: 0, Max: -1}},
	}}
	node := seq(value.Number(1), value.Number(2), value.Number(3))
	sols := runAll(pat, node)
	if len(sols) != 1 {
		t.Fatalf("expected 1 solution, got %d", len(sols))
	}
	rest := sols[0].Env["rest"].Group.(value.Sequence)
	if len(rest) != 2 || rest[0] != value.Number(2) || rest[1] != value.Number(3) {
		t.Errorf("expected rest=[2,3], got %v", rest)
	}
}

func TestBucketAccumulationRequiresFrame(t *testing.T) {
	// An unlabeled object's Flow has no bucket frame to resolve into and must
	// always fail the branch, regardless of how many keys would otherwise match.
	unlabeled := &ast.Obj{Terms: []ast.Pattern{
		&ast.OTerm{
			KeyPat: &ast.SBind{Name: "k", Sub: &ast.Any{}},
			Value:  &ast.Flow{Sub: &ast.Lit{Value: value.Number(1)}, Bucket: "ones", Kind: ast.SliceArray},
			Min:    1, Max: -1, Strong: true,
		},
	}}
	if sols := runAll(unlabeled, mapping("a", value.Number(1), "b", value.Number(1))); len(sols) != 0 {
		t.Fatalf("expected 0 solutions without a label to host the bucket frame, got %d", len(sols))
	}

	labeled := &ast.Obj{Label: "L", Terms: unlabeled.Terms}
	sols := runAll(labeled, mapping("a", value.Number(1), "b", value.Number(1)))
	if len(sols) != 1 {
		t.Fatalf("expected 1 solution, got %d", len(sols))
	}
	ones := sols[0].Env["ones"].Group.(value.Sequence)
	if len(ones) != 2 || ones[0] != value.Number(1) || ones[1] != value.Number(1) {
		t.Errorf("expected ones=[1,1] in key-iteration order, got %v", ones)
	}

	if sols := runAll(labeled, mapping("a", value.Number(1), "b", value.Number(2))); len(sols) != 0 {
		t.Fatalf("expected a mismatched value to fail the whole clause, got %d solutions", len(sols))
	}
}

func TestObjectRemnantStrictness(t *testing.T) {
	pat := &ast.Obj{Terms: []ast.Pattern{
		&ast.OTerm{KeyPat: &ast.Lit{Value: value.String("a")}, Value: &ast.Any{}, Min: 1, Max: -1},
	}}
	if sols := runAll(pat, mapping("a", value.Number(1))); len(sols) != 1 {
		t.Fatalf("expected exact coverage to match, got %d", len(sols))
	}
	if sols := runAll(pat, mapping("a", value.Number(1), "b", value.Number(2))); len(sols) != 0 {
		t.Fatalf("expected a leftover key with no remnant to fail, got %d", len(sols))
	}

	withRemnant := &ast.Obj{Terms: pat.Terms, Spread: &ast.Spread{Min: 0, Max: -1}}
	if sols := runAll(withRemnant, mapping("a", value.Number(1), "b", value.Number(2))); len(sols) != 1 {
		t.Fatalf("expected an open remnant to absorb the leftover key, got %d", len(sols))
	}
}

func TestDeepDescentBreadcrumb(t *testing.T) {
	// {_**.password: $v} found via a RootKey-less wildcard dot, then a `**`
	// skip, then a literal dot key.
	pat := &ast.Obj{Terms: []ast.Pattern{
		&ast.OTerm{
			KeyPat: &ast.Any{},
			Breadcrumbs: []ast.Breadcrumb{
				{Kind: ast.BreadcrumbSkip},
				{Kind: ast.BreadcrumbDot, Key: &ast.Lit{Value: value.String("password")}},
			},
			Value: &ast.SBind{Name: "v", Sub: &ast.Any{}},
			Min:   1, Max: -1,
		},
	}}
	doc := mapping("a", mapping("b", mapping("password", value.String("s3cr"))))
	sols := runAll(pat, doc)
	if len(sols) != 1 {
		t.Fatalf("expected 1 solution, got %d", len(sols))
	}
	if sols[0].Env["v"].Scalar != value.String("s3cr") {
		t.Errorf("expected v=s3cr, got %v", sols[0].Env["v"].Scalar)
	}
}

func TestLookaheadNegationOverArray(t *testing.T) {
	// [(!1) _]: first element must not be 1.
	pat := &ast.Arr{Items: []ast.Pattern{
		&ast.Look{Negated: true, Sub: &ast.Lit{Value: value.Number(1)}},
		&ast.Any{},
	}}
	if sols := runAll(pat, seq(value.Number(1))); len(sols) != 0 {
		t.Fatalf("expected negative lookahead to reject a leading 1, got %d solutions", len(sols))
	}
	if sols := runAll(pat, seq(value.Number(2))); len(sols) != 1 {
		t.Fatalf("expected negative lookahead to accept a leading non-1, got %d solutions", len(sols))
	}
}

func TestStepBudgetAborts(t *testing.T) {
	// A possessive-free greedy quantifier over a long run with an
	// impossible tail forces heavy backtracking; a tiny budget should abort
	// the whole search rather than ever finishing it.
	n := 200
	items := make(value.Sequence, n)
	for i := range items {
		items[i] = value.Number(1)
	}
	pat := &ast.Arr{Items: []ast.Pattern{
		&ast.Quant{Sub: &ast.Lit{Value: value.Number(1)}, Min: 0, Max: -1, Mode: ast.Greedy},
		&ast.Lit{Value: value.Number(2)},
	}}

	bud := newBudget(50)
	var stepErr *StepBudgetError
	func() {
		defer func() {
			if r := recover(); r != nil {
				if be, ok := r.(budgetExceeded); ok {
					stepErr = be.err
					return
				}
				panic(r)
			}
		}()
		Match(bud, pat, value.Sequence(items), nil, NewSolution(), func(*Solution) bool { return true })
	}()
	if stepErr == nil {
		t.Fatal("expected the step budget to abort the search")
	}
}

func TestScanPreOrderVisitsRootThenChildren(t *testing.T) {
	doc := seq(value.Number(1), mapping("x", value.Number(2)), value.Number(3))
	var paths []string
	bud := newBudget(0)
	scan(bud, &ast.TypedAny{Kind: "number"}, doc, nil, func(path value.Path, node value.Value, s *Solution) bool {
		paths = append(paths, path.String())
		return true
	})
	want := []string{"[0]", "[1].x", "[2]"}
	if len(paths) != len(want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], paths[i])
		}
	}
}

func TestRunModeFirstStopsAtFirstAnchor(t *testing.T) {
	doc := seq(value.Number(1), value.Number(2), value.Number(3))
	calls := 0
	err := Run(&ast.TypedAny{Kind: "number"}, doc, ModeFirst, 0, func(path value.Path, node value.Value, sol *Solution) bool {
		calls++
		return true
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected ModeFirst to invoke onMatch exactly once, got %d", calls)
	}
}

func TestRunModeFindVisitsEveryAnchor(t *testing.T) {
	doc := seq(value.Number(1), value.Number(2), value.Number(3))
	var paths []string
	err := Run(&ast.TypedAny{Kind: "number"}, doc, ModeFind, 0, func(path value.Path, node value.Value, sol *Solution) bool {
		paths = append(paths, path.String())
		return true
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 occurrences, got %d (%v)", len(paths), paths)
	}
}
