package engine

import (
	"github.com/mchrisman/tendril/ast"
	"github.com/mchrisman/tendril/value"
)

// Mode selects which of the engine's four operating modes Run uses: every
// emitted Solution is reported, except that Exists/First stop early.
type Mode int

const (
	ModeMatch Mode = iota
	ModeFind
	ModeExists
	ModeFirst
)

// OnMatch is invoked once per solution found, with the anchor node's own
// path and value plus the solution produced there; an anchor with several
// solutions yields several calls. Returning false stops the search early.
type OnMatch func(path value.Path, node value.Value, sol *Solution) bool

// Run executes pat against root in mode, invoking onMatch for each solution
// together with the anchor node it was found at (ModeMatch/ModeFind may
// invoke it many times, more than once for an anchor with several
// solutions; ModeExists and ModeFirst stop after the first solution).
// maxSteps <= 0 uses DefaultStepBudget.
func Run(pat ast.Pattern, root value.Value, mode Mode, maxSteps int, onMatch OnMatch) (err error) {
	bud := newBudget(maxSteps)
	defer func() {
		if r := recover(); r != nil {
			if be, ok := r.(budgetExceeded); ok {
				err = be.err
				return
			}
			panic(r)
		}
	}()

	switch mode {
	case ModeMatch:
		Match(bud, pat, root, nil, NewSolution(), func(s *Solution) bool {
			return onMatch(nil, root, s)
		})
	case ModeFind:
		scan(bud, pat, root, nil, onMatch)
	case ModeExists, ModeFirst:
		scan(bud, pat, root, nil, func(path value.Path, node value.Value, s *Solution) bool {
			onMatch(path, node, s)
			return false
		})
	}
	return nil
}

// scan visits every subnode of root in pre-order (root, then sequence
// elements in index order, then mapping values in insertion order),
// attempting an anchored match at each.
func scan(b *budget, pat ast.Pattern, node value.Value, path value.Path, onMatch OnMatch) bool {
	b.tick()
	if !Match(b, pat, node, path, NewSolution(), func(s *Solution) bool {
		return onMatch(path, node, s)
	}) {
		return false
	}
	switch v := node.(type) {
	case value.Sequence:
		for i, child := range v {
			if !scan(b, pat, child, path.Append(value.IndexStep(i)), onMatch) {
				return false
			}
		}
	case *value.Mapping:
		for _, k := range v.Keys() {
			child, _ := v.Get(k)
			if !scan(b, pat, child, path.Append(value.KeyStep(k)), onMatch) {
				return false
			}
		}
	}
	return true
}
