package engine

import (
	"github.com/mchrisman/tendril/ast"
	"github.com/mchrisman/tendril/value"
)

// matchArray matches an Arr pattern against node, requiring node to be a
// Sequence fully consumed by the item list (each element pattern, quantifier,
// spread, group-bind, or lookahead accounts for exactly the slots it claims).
func matchArray(b *budget, n *ast.Arr, node value.Value, path value.Path, sol *Solution, emit Emit) bool {
	seq, ok := node.(value.Sequence)
	if !ok {
		return true
	}
	sol = sol.Clone()
	if n.Label != "" {
		sol.pushFrame(n.Label)
		// Arrays have no natural iterated key to witness, unlike objects;
		// Flow/Collecting without an explicit ^label resolving here can
		// only use the array-bucket form (see DESIGN.md).
		sol.Labels[n.Label] = LabelState{HasKey: false}
	}
	cont := matchSeqItems(b, n.Items, 0, seq, 0, path, sol, func(finalIdx int, s *Solution) bool {
		if finalIdx != len(seq) {
			return true
		}
		if n.Label != "" {
			s = finalizeFrame(s)
		}
		return emit(s)
	})
	return cont
}

// seqCont is invoked once the items list from some point onward has been
// fully processed, with the array index reached and the resulting solution.
type seqCont func(nodeIdx int, sol *Solution) bool

func matchSeqItems(b *budget, items []ast.Pattern, itemIdx int, seq value.Sequence, nodeIdx int, path value.Path, sol *Solution, cont seqCont) bool {
	b.tick()
	if itemIdx >= len(items) {
		return cont(nodeIdx, sol)
	}
	item := items[itemIdx]
	next := func(ni int, s *Solution) bool {
		return matchSeqItems(b, items, itemIdx+1, seq, ni, path, s, cont)
	}
	switch it := item.(type) {
	case *ast.Quant:
		return matchQuantRange(b, it.Sub, it.Min, it.Max, it.Mode, seq, nodeIdx, path, sol, next)
	case *ast.Spread:
		return matchSpread(b, it.Min, it.Max, seq, nodeIdx, sol, next)
	case *ast.GroupBind:
		return matchArrayGroupBind(b, it, seq, nodeIdx, path, sol, next)
	case *ast.Look:
		return matchArrayLook(b, it, seq, nodeIdx, path, sol, next)
	default:
		if nodeIdx >= len(seq) {
			return true
		}
		elemPath := path.Append(value.IndexStep(nodeIdx))
		return Match(b, item, seq[nodeIdx], elemPath, sol, func(s *Solution) bool {
			return next(nodeIdx+1, s)
		})
	}
}

// matchQuantRange tries the repetition counts permitted by [min,max] in the
// order its mode dictates: greedy tries longest-first, lazy shortest-first,
// possessive commits to the longest run that matches without retrying
// shorter counts if what follows fails.
func matchQuantRange(b *budget, sub ast.Pattern, min, max int, mode ast.QuantMode, seq value.Sequence, nodeIdx int, path value.Path, sol *Solution, cont seqCont) bool {
	remaining := len(seq) - nodeIdx
	hi := max
	if hi < 0 || hi > remaining {
		hi = remaining
	}
	lo := min
	if lo > hi {
		return true
	}
	switch mode {
	case ast.Lazy:
		for count := lo; count <= hi; count++ {
			if !repeatExact(b, sub, count, seq, nodeIdx, path, sol, cont) {
				return false
			}
		}
		return true
	case ast.Possessive:
		count, ps, ok := possessiveRun(b, sub, seq, nodeIdx, hi, path, sol)
		if !ok || count < lo {
			return true
		}
		return cont(nodeIdx+count, ps)
	default: // Greedy
		for count := hi; count >= lo; count-- {
			if !repeatExact(b, sub, count, seq, nodeIdx, path, sol, cont) {
				return false
			}
		}
		return true
	}
}

// repeatExact matches sub exactly count times in a row starting at nodeIdx,
// threading the solution across repetitions, then invokes cont.
func repeatExact(b *budget, sub ast.Pattern, count int, seq value.Sequence, nodeIdx int, path value.Path, sol *Solution, cont seqCont) bool {
	b.tick()
	if count == 0 {
		return cont(nodeIdx, sol)
	}
	if nodeIdx >= len(seq) {
		return true
	}
	elemPath := path.Append(value.IndexStep(nodeIdx))
	return Match(b, sub, seq[nodeIdx], elemPath, sol, func(s *Solution) bool {
		return repeatExact(b, sub, count-1, seq, nodeIdx+1, path, s, cont)
	})
}

// possessiveRun greedily commits to the first successful match of sub at
// each position, advancing until sub fails or hi repetitions are reached,
// with no backtracking into the count once chosen.
func possessiveRun(b *budget, sub ast.Pattern, seq value.Sequence, nodeIdx, hi int, path value.Path, sol *Solution) (int, *Solution, bool) {
	cur := nodeIdx
	cs := sol
	count := 0
	for count < hi {
		elemPath := path.Append(value.IndexStep(cur))
		matched := false
		var nextSol *Solution
		Match(b, sub, seq[cur], elemPath, cs.Clone(), func(s *Solution) bool {
			matched = true
			nextSol = s
			return false
		})
		if !matched {
			break
		}
		cs = nextSol
		cur++
		count++
	}
	return count, cs, true
}

// matchSpread consumes between min and max elements without matching any
// sub-pattern, greedy longest-first.
func matchSpread(b *budget, min, max int, seq value.Sequence, nodeIdx int, sol *Solution, cont seqCont) bool {
	remaining := len(seq) - nodeIdx
	hi := max
	if hi < 0 || hi > remaining {
		hi = remaining
	}
	if min > hi {
		return true
	}
	for count := hi; count >= min; count-- {
		if !cont(nodeIdx+count, sol) {
			return false
		}
	}
	return true
}

// matchArrayGroupBind handles `(sub) as @name`/`as %name` reached as an
// array element: Sub is run as a range matcher (a Quant or Spread, or a
// single element pattern treated as a one-element range), and on success
// the consumed slice [start, end) is bound as name's group value.
func matchArrayGroupBind(b *budget, n *ast.GroupBind, seq value.Sequence, nodeIdx int, path value.Path, sol *Solution, cont seqCont) bool {
	start := nodeIdx
	finish := func(end int, s *Solution) bool {
		slice := append(value.Sequence(nil), seq[start:end]...)
		next := s.Clone()
		site := Site{Kind: SiteArraySlice, Path: path, Start: start, End: end}
		if !next.bindGroup(n.Name, n.Kind, slice, site) {
			return true
		}
		return cont(end, next)
	}
	switch sub := n.Sub.(type) {
	case *ast.Quant:
		return matchQuantRange(b, sub.Sub, sub.Min, sub.Max, sub.Mode, seq, nodeIdx, path, sol, finish)
	case *ast.Spread:
		return matchSpread(b, sub.Min, sub.Max, seq, nodeIdx, sol, finish)
	default:
		if nodeIdx >= len(seq) {
			return true
		}
		elemPath := path.Append(value.IndexStep(nodeIdx))
		return Match(b, sub, seq[nodeIdx], elemPath, sol, func(s *Solution) bool {
			return finish(nodeIdx+1, s)
		})
	}
}

// matchArrayLook implements a sequence lookahead constrained to the
// remaining tail starting at nodeIdx; it never advances nodeIdx itself.
func matchArrayLook(b *budget, n *ast.Look, seq value.Sequence, nodeIdx int, path value.Path, sol *Solution, cont seqCont) bool {
	matched := false
	var captured *Solution
	matchSeqItems(b, []ast.Pattern{n.Sub}, 0, seq, nodeIdx, path, sol.Clone(), func(_ int, s *Solution) bool {
		matched = true
		captured = s
		return false
	})
	if n.Negated {
		if !matched {
			return cont(nodeIdx, sol)
		}
		return true
	}
	if matched {
		return cont(nodeIdx, captured)
	}
	return true
}
