package value

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEqualSameValueZero(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nan equals nan", Number(math.NaN()), Number(math.NaN()), true},
		{"neg zero equals pos zero", Number(math.Copysign(0, -1)), Number(0), true},
		{"different numbers", Number(1), Number(2), false},
		{"deep sequence", Sequence{Number(1), Sequence{String("a")}}, Sequence{Number(1), Sequence{String("a")}}, true},
		{"sequence length mismatch", Sequence{Number(1)}, Sequence{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMappingOrderPreserved(t *testing.T) {
	m := NewMapping()
	m.Set("b", Number(2))
	m.Set("a", Number(1))
	m.Set("b", Number(20))
	if got, want := m.Keys(), []string{"b", "a"}; !cmp.Equal(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	v, _ := m.Get("b")
	if v != Number(20) {
		t.Fatalf("b = %v, want 20", v)
	}
}

func TestMappingEqualIgnoresOrder(t *testing.T) {
	a := NewMapping()
	a.Set("x", Number(1))
	a.Set("y", Number(2))
	b := NewMapping()
	b.Set("y", Number(2))
	b.Set("x", Number(1))
	if !Equal(a, b) {
		t.Fatal("mappings with same keys in different order should be equal")
	}
}

func TestPathGetSet(t *testing.T) {
	m := NewMapping()
	m.Set("a", Sequence{Number(1), Number(2)})
	p := Path{KeyStep("a"), IndexStep(1)}
	got, ok := Get(m, p)
	if !ok || got != Number(2) {
		t.Fatalf("Get = %v, %v", got, ok)
	}
	newRoot, ok := Set(m, p, Number(99))
	if !ok {
		t.Fatal("Set failed")
	}
	// original untouched (copy-on-write)
	orig, _ := Get(m, p)
	if orig != Number(2) {
		t.Fatalf("original mutated: %v", orig)
	}
	updated, _ := Get(newRoot, p)
	if updated != Number(99) {
		t.Fatalf("update did not apply: %v", updated)
	}
}

func TestPathSetMissingFails(t *testing.T) {
	m := NewMapping()
	_, ok := Set(m, Path{KeyStep("missing")}, Number(1))
	if ok {
		t.Fatal("expected failure setting missing path")
	}
}

func TestPathRootReplace(t *testing.T) {
	got, ok := Set(Number(1), Path{}, Number(2))
	if !ok || got != Number(2) {
		t.Fatalf("got %v, %v", got, ok)
	}
}
