package engine

import (
	"github.com/mchrisman/tendril/ast"
	"github.com/mchrisman/tendril/value"
)

// matchObject matches an Obj pattern against node, which must be a Mapping.
// Terms are matched as a conjunction in order, each claiming some set of
// top-level keys; the Spread remnant, if present, governs what happens to
// keys no term claimed.
func matchObject(b *budget, n *ast.Obj, node value.Value, path value.Path, sol *Solution, emit Emit) bool {
	obj, ok := node.(*value.Mapping)
	if !ok {
		return true
	}
	sol = sol.Clone()
	if n.Label != "" {
		sol.pushFrame(n.Label)
	}
	covered := map[string]bool{}
	cont := matchObjTerms(b, n.Terms, 0, obj, path, n.Label, covered, sol, func(s *Solution) bool {
		if !matchRemnant(n.Spread, obj, covered) {
			return true
		}
		if sp := n.Spread; sp != nil && sp.Name != "" {
			rest := value.NewMapping()
			var keys []string
			for _, k := range obj.Keys() {
				if !covered[k] {
					v, _ := obj.Get(k)
					rest.Set(k, v)
					keys = append(keys, k)
				}
			}
			s = s.Clone()
			if !s.bindGroup(sp.Name, ast.SliceObject, rest, Site{Kind: SiteObjectSlice, Path: path, Keys: keys}) {
				return true
			}
		}
		if n.Label != "" {
			s = finalizeFrame(s)
		}
		return emit(s)
	})
	return cont
}

// finalizeFrame pops the innermost bucket frame and binds each of its live
// buckets as a group, per the label/each-clause finalization rule.
func finalizeFrame(s *Solution) *Solution {
	out := s.Clone()
	frame := out.popFrame()
	for name, bucket := range frame.Buckets {
		var group value.Value
		if bucket.Kind == ast.SliceArray {
			group = append(value.Sequence(nil), bucket.ArrayEntries...)
		} else {
			m := value.NewMapping()
			for _, k := range bucket.ObjectKeys {
				m.Set(k, bucket.ObjectEntries[k])
			}
			group = m
		}
		out.bindGroup(name, bucket.Kind, group, Site{Kind: SiteScalar, Value: group})
	}
	return out
}

type objCont func(sol *Solution) bool

func matchObjTerms(b *budget, terms []ast.Pattern, idx int, obj *value.Mapping, path value.Path, label string, covered map[string]bool, sol *Solution, cont objCont) bool {
	b.tick()
	if idx >= len(terms) {
		return cont(sol)
	}
	next := func(s *Solution) bool {
		return matchObjTerms(b, terms, idx+1, obj, path, label, covered, s, cont)
	}
	switch t := terms[idx].(type) {
	case *ast.OTerm:
		return matchOTerm(b, t, obj, path, label, covered, sol, next)
	case *ast.OGroup:
		return matchOGroupTerms(b, t.Terms, obj, path, label, covered, sol, next)
	case *ast.GroupBind:
		return matchObjectGroupBind(b, t, obj, path, label, covered, sol, next)
	case *ast.OLook:
		return matchOLook(b, t, obj, path, label, covered, sol, next)
	default:
		return true
	}
}

func matchOGroupTerms(b *budget, terms []ast.Pattern, obj *value.Mapping, path value.Path, label string, covered map[string]bool, sol *Solution, cont objCont) bool {
	return matchObjTerms(b, terms, 0, obj, path, label, covered, sol, cont)
}

// matchOTerm resolves the set of top-level keys satisfying KeyPat, then
// partitions that set into a slice (keys whose breadcrumb-navigated leaf
// matches Value) and a bad set (keys whose leaf does not). The count
// quantifier [Min,Max] gates the slice size, not the candidate count: a
// non-strong term is a filter, not a conjunction, so a candidate key whose
// value fails to match is simply excluded from the slice rather than
// failing the whole term. A strong (each-prefixed) term additionally
// requires the bad set be empty, making every candidate's value match.
func matchOTerm(b *budget, t *ast.OTerm, obj *value.Mapping, path value.Path, label string, covered map[string]bool, sol *Solution, cont objCont) bool {
	candidates := candidateKeys(b, t.KeyPat, obj, path, sol)
	slice, bad := partitionSlice(b, t, obj, path, label, sol, candidates)
	if len(slice) < t.Min {
		return true
	}
	if t.Max >= 0 && len(slice) > t.Max {
		return true
	}
	if t.Strong && len(bad) > 0 {
		return true
	}
	for _, k := range bad {
		covered[k] = true
	}
	return matchOTermAll(b, t, obj, path, label, covered, slice, sol, cont)
}

// partitionSlice splits candidates into the keys whose breadcrumb-navigated
// leaf matches t.Value at least once (the slice) and the rest (the bad
// set), probing each without threading bindings forward: the real bind/
// guard/bucket effects of a slice key are produced later, by matchOTermAll,
// once the quantifier and strong-clause checks have already passed.
func partitionSlice(b *budget, t *ast.OTerm, obj *value.Mapping, path value.Path, label string, sol *Solution, candidates []string) (slice, bad []string) {
	for _, k := range candidates {
		if valueMatches(b, t, obj, path, label, sol, k) {
			slice = append(slice, k)
		} else {
			bad = append(bad, k)
		}
	}
	return slice, bad
}

func valueMatches(b *budget, t *ast.OTerm, obj *value.Mapping, path value.Path, label string, sol *Solution, k string) bool {
	child, _ := obj.Get(k)
	keyPath := path.Append(value.KeyStep(k))
	ok := false
	probe := sol.Clone()
	if label != "" {
		probe.Labels[label] = LabelState{ObservedKey: k, HasKey: true}
	}
	navigateBreadcrumbs(b, t.Breadcrumbs, child, keyPath, probe, func(leaf value.Value, leafPath value.Path, s *Solution) bool {
		return Match(b, t.Value, leaf, leafPath, s, func(*Solution) bool {
			ok = true
			return false
		})
	})
	return ok
}

// matchOTermAll dispatches on slice size: a single slice key is the common
// case (a literal key, or a pattern key matching exactly one field) and is
// matched with full backtracking, its KeyPat bindings (e.g. `$k`)
// persisting normally. Multiple slice keys put the term in "each"
// territory: KeyPat's per-key bindings are local to that key's iteration
// and discarded afterward (they cannot consistently persist across keys
// that differ), but bucket/label side effects from every iteration still
// accumulate, which is what lets `$k: 1 →@bucket` collect one entry per
// matching key.
func matchOTermAll(b *budget, t *ast.OTerm, obj *value.Mapping, path value.Path, label string, covered map[string]bool, slice []string, sol *Solution, cont objCont) bool {
	b.tick()
	if len(slice) == 0 {
		return cont(sol)
	}
	if len(slice) == 1 {
		return matchOTermKey(b, t, obj, path, label, covered, slice[0], sol, cont)
	}
	base := sol.Clone()
	for _, k := range slice {
		matched := false
		var iterResult *Solution
		matchOTermKey(b, t, obj, path, label, covered, k, base.Clone(), func(s *Solution) bool {
			matched = true
			iterResult = s
			return false
		})
		if !matched {
			return true
		}
		base.BucketStack = iterResult.BucketStack
		base.Labels = iterResult.Labels
	}
	return cont(base)
}

func matchOTermKey(b *budget, t *ast.OTerm, obj *value.Mapping, path value.Path, label string, covered map[string]bool, k string, sol *Solution, cont objCont) bool {
	child, _ := obj.Get(k)
	keyPath := path.Append(value.KeyStep(k))
	witness := sol
	if label != "" {
		witness = sol.Clone()
		witness.Labels[label] = LabelState{ObservedKey: k, HasKey: true}
	}
	return Match(b, t.KeyPat, value.String(k), keyPath, witness, func(s1 *Solution) bool {
		return navigateBreadcrumbs(b, t.Breadcrumbs, child, keyPath, s1, func(leaf value.Value, leafPath value.Path, s *Solution) bool {
			return Match(b, t.Value, leaf, leafPath, s, func(s2 *Solution) bool {
				s2 = s2.Clone()
				covered[k] = true
				return cont(s2)
			})
		})
	})
}

// candidateKeys returns the object's keys in order, filtered to those whose
// string form matches keyPat (evaluated without threading bindings forward,
// since the set of candidates must be fixed before the count quantifier
// decides how many of them to actually consume).
func candidateKeys(b *budget, keyPat ast.Pattern, obj *value.Mapping, path value.Path, sol *Solution) []string {
	var out []string
	for _, k := range obj.Keys() {
		ok := false
		Match(b, keyPat, value.String(k), path.Append(value.KeyStep(k)), sol.Clone(), func(*Solution) bool {
			ok = true
			return false
		})
		if ok {
			out = append(out, k)
		}
	}
	return out
}


// matchObjectGroupBind handles `(terms) as @name` with an OGroup Sub: the
// keys Sub newly claims are captured into an object slice bound to name.
// Any other Sub fails the branch; a named remnant `(% as %name)` is bound
// by matchObject instead.
func matchObjectGroupBind(b *budget, n *ast.GroupBind, obj *value.Mapping, path value.Path, label string, covered map[string]bool, sol *Solution, cont objCont) bool {
	before := map[string]bool{}
	for k := range covered {
		before[k] = true
	}
	group, ok := n.Sub.(*ast.OGroup)
	if !ok {
		return true
	}
	return matchOGroupTerms(b, group.Terms, obj, path, label, covered, sol, func(s *Solution) bool {
		var keys []string
		for _, k := range obj.Keys() {
			if covered[k] && !before[k] {
				keys = append(keys, k)
			}
		}
		slice := value.NewMapping()
		for _, k := range keys {
			v, _ := obj.Get(k)
			slice.Set(k, v)
		}
		next := s.Clone()
		site := Site{Kind: SiteObjectSlice, Path: path, Keys: keys}
		if !next.bindGroup(n.Name, ast.SliceObject, slice, site) {
			return true
		}
		return cont(next)
	})
}

func matchOLook(b *budget, n *ast.OLook, obj *value.Mapping, path value.Path, label string, covered map[string]bool, sol *Solution, cont objCont) bool {
	scratch := map[string]bool{}
	for k := range covered {
		scratch[k] = true
	}
	matched := false
	var captured *Solution
	group, ok := n.Sub.(*ast.OGroup)
	if !ok {
		return true
	}
	matchOGroupTerms(b, group.Terms, obj, path, label, scratch, sol.Clone(), func(s *Solution) bool {
		matched = true
		captured = s
		return false
	})
	if n.Negated {
		if !matched {
			return cont(sol)
		}
		return true
	}
	if matched {
		return cont(captured)
	}
	return true
}

// matchRemnant enforces the object's trailing `%`/`%?`/`%#{m,n}` rule
// against the keys no term claimed. A nil Spread requires every key be
// covered (strict, no remnant allowed).
func matchRemnant(sp *ast.Spread, obj *value.Mapping, covered map[string]bool) bool {
	leftover := 0
	for _, k := range obj.Keys() {
		if !covered[k] {
			leftover++
		}
	}
	if sp == nil {
		return leftover == 0
	}
	if leftover < sp.Min {
		return false
	}
	if sp.Max >= 0 && leftover > sp.Max {
		return false
	}
	return true
}
