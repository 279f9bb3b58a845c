package tendril

import (
	"testing"

	"github.com/mchrisman/tendril/value"
)

func mustValue(t *testing.T, src string) value.Value {
	t.Helper()
	v, err := ParseJSON([]byte(src))
	if err != nil {
		t.Fatalf("ParseJSON(%q) error: %v", src, err)
	}
	return v
}

// Pattern `[$x $x …]`: a repeated binding followed by a spread.
func TestArrayRepeatedBindScenario(t *testing.T) {
	pat := MustCompile(`[$x $x …]`)

	t.Run("match", func(t *testing.T) {
		sols := pat.On(mustValue(t, `[1,1,2,3]`)).Solutions()
		if len(sols) != 1 {
			t.Fatalf("expected 1 solution, got %d", len(sols))
		}
		if got := sols[0].Bindings()["x"]; got != float64(1) {
			t.Errorf("expected x=1, got %v", got)
		}
	})

	t.Run("no match", func(t *testing.T) {
		sols := pat.On(mustValue(t, `[1,2,3]`)).Solutions()
		if len(sols) != 0 {
			t.Fatalf("expected 0 solutions, got %d", len(sols))
		}
	})
}

// Pattern `{a: $x, b: $x}`.
func TestObjectRepeatedBindScenario(t *testing.T) {
	pat := MustCompile(`{a: $x, b: $x}`)

	t.Run("match", func(t *testing.T) {
		sols := pat.On(mustValue(t, `{"a":7,"b":7}`)).Solutions()
		if len(sols) != 1 || sols[0].Bindings()["x"] != float64(7) {
			t.Fatalf("expected one solution with x=7, got %#v", sols)
		}
	})

	t.Run("no match", func(t *testing.T) {
		sols := pat.On(mustValue(t, `{"a":7,"b":8}`)).Solutions()
		if len(sols) != 0 {
			t.Fatalf("expected 0 solutions, got %d", len(sols))
		}
	})
}

// Pattern `[_ (_+? as @mid) _]`: a single-element lazy range bound as a
// group, flanked by two required elements. The grammar has no construct
// for grouping more than one array item under a single quantifier, so
// this is the faithful single-item stand-in for the equivalent frontier
// property: the first emitted solution captures the minimum feasible run.
func TestArrayLazyQuantifierFrontier(t *testing.T) {
	pat := MustCompile(`[_ (_+? as @mid) _]`)
	sols := pat.On(mustValue(t, `[1,2,3,4,5]`)).Solutions()
	if len(sols) == 0 {
		t.Fatal("expected at least one solution")
	}
	mid, _ := sols[0].Bindings()["mid"].([]any)
	if len(mid) != 3 {
		t.Fatalf("expected first lazy solution to capture the minimum feasible run (3 elements), got %v", mid)
	}
}

// Pattern `_**.password: $v` is the grammar-legal equivalent of "find a
// password key at any depth": a wildcard key pattern, followed by deep
// descent, followed by a literal key.
func TestDeepDescentToKeyScenario(t *testing.T) {
	pat := MustCompile(`{_**.password: $v}`)
	sols := pat.On(mustValue(t, `{"a":{"b":{"password":"s3cr"}}}`)).Solutions()
	if len(sols) != 1 {
		t.Fatalf("expected 1 solution, got %d", len(sols))
	}
	if got := sols[0].Bindings()["v"]; got != "s3cr" {
		t.Errorf("expected v=%q, got %v", "s3cr", got)
	}
}

// Pattern `§L { each _: /^ok$/ ->%hits<^L> }`: a strong (forall) clause
// collecting every key/value pair into a labeled bucket.
func TestStrongClauseWithFlowScenario(t *testing.T) {
	pat := MustCompile(`§L { each _: /^ok$/ ->%hits<^L> }`)

	t.Run("all match", func(t *testing.T) {
		sols := pat.On(mustValue(t, `{"a":"ok","b":"ok"}`)).Solutions()
		if len(sols) != 1 {
			t.Fatalf("expected 1 solution, got %d", len(sols))
		}
		hits, _ := sols[0].Bindings()["hits"].(map[string]any)
		if hits["a"] != "ok" || hits["b"] != "ok" {
			t.Errorf("unexpected hits: %#v", hits)
		}
	})

	t.Run("one mismatch fails the whole clause", func(t *testing.T) {
		sols := pat.On(mustValue(t, `{"a":"ok","b":"no"}`)).Solutions()
		if len(sols) != 0 {
			t.Fatalf("expected 0 solutions, got %d", len(sols))
		}
	})
}

// Pattern `§L { each $k: 1 ->@ones }`: the label gives the flow a bucket
// scope to resolve into; `each` makes the term strong, so every key's value
// must match 1, and with no remnant written the object already rejects
// leftover keys, as a trailing `(! %)` would — a non-strong term would
// only require *some* key to match, not all.
func TestBucketAccumulationAcrossKeysScenario(t *testing.T) {
	pat := MustCompile(`§L { each $k: 1 ->@ones }`)

	t.Run("all match", func(t *testing.T) {
		sols := pat.On(mustValue(t, `{"a":1,"b":1}`)).Solutions()
		if len(sols) != 1 {
			t.Fatalf("expected 1 solution, got %d", len(sols))
		}
		ones, _ := sols[0].Bindings()["ones"].([]any)
		if len(ones) != 2 || ones[0] != float64(1) || ones[1] != float64(1) {
			t.Errorf("expected ones=[1,1] in insertion order, got %v", ones)
		}
	})

	t.Run("one mismatch fails", func(t *testing.T) {
		sols := pat.On(mustValue(t, `{"a":1,"b":2}`)).Solutions()
		if len(sols) != 0 {
			t.Fatalf("expected 0 solutions, got %d", len(sols))
		}
	})
}

func TestScanPreOrder(t *testing.T) {
	pat := MustCompile(`_number`)
	doc := mustValue(t, `[1,{"x":2},3]`)
	locs := pat.In(doc).Locations()
	want := []string{"[0]", "[1].x", "[2]"}
	if len(locs) != len(want) {
		t.Fatalf("expected %d occurrences, got %d (%v)", len(want), len(locs), locs)
	}
	for i, l := range locs {
		if l.String() != want[i] {
			t.Errorf("occurrence %d: expected %s, got %s", i, want[i], l.String())
		}
	}
}

func TestReplaceIdentityIsNoOp(t *testing.T) {
	pat := MustCompile(`{count: $n}`)
	doc := mustValue(t, `{"count":3}`)
	m, ok := pat.On(doc).Solve()
	if !ok {
		t.Fatal("expected a match")
	}
	out, errs := m.Replace(Plan{
		"n": ReplacementFunc(func(b Bindings) (value.Value, error) {
			v, _ := b.Get("n")
			return v, nil
		}),
	})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if !value.Equal(out, doc) {
		t.Errorf("identity replace changed the document: %v", out)
	}
}

func TestReplaceIncrementsBoundNumber(t *testing.T) {
	pat := MustCompile(`{count: $n}`)
	doc := mustValue(t, `{"count":3}`)
	m, ok := pat.On(doc).Solve()
	if !ok {
		t.Fatal("expected a match")
	}
	out, errs := m.Replace(Plan{
		"n": ReplacementFunc(func(b Bindings) (value.Value, error) {
			v, _ := b.Get("n")
			return value.Number(v.(value.Number) + 1), nil
		}),
	})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	got, _ := value.Get(out, value.Path{value.KeyStep("count")})
	if got != value.Number(4) {
		t.Errorf("expected count=4, got %v", got)
	}
}

func TestDeterminismOfRepeatedRuns(t *testing.T) {
	pat := MustCompile(`[$x $x …]`)
	doc := mustValue(t, `[1,1,2,3]`)
	first := pat.On(doc).Solutions()
	second := pat.On(doc).Solutions()
	if len(first) != len(second) {
		t.Fatalf("solution count differs across runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Bindings()["x"] != second[i].Bindings()["x"] {
			t.Errorf("binding %d differs across runs", i)
		}
	}
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := Compile(`{a: }`)
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	if _, ok := err.(*SyntaxError); !ok {
		t.Fatalf("expected *SyntaxError, got %T", err)
	}
}

func TestCompileCachedReusesCompilation(t *testing.T) {
	src := `{status: "ok"}`
	a, err := CompileCached(src)
	if err != nil {
		t.Fatalf("CompileCached error: %v", err)
	}
	b, err := CompileCached(src)
	if err != nil {
		t.Fatalf("CompileCached error: %v", err)
	}
	if a != b {
		t.Error("expected CompileCached to return the cached *Pattern instance")
	}
}
