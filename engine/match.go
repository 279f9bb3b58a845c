package engine

import (
	"github.com/mchrisman/tendril/ast"
	"github.com/mchrisman/tendril/guard"
	"github.com/mchrisman/tendril/value"
)

// Emit is the continuation the matcher invokes for every successful
// branch. Returning false asks the search to stop early (used by the
// exists/first modes); returning true keeps the search going.
type Emit func(*Solution) bool

// Match is the package's single entry point: dispatch by pattern variant.
// It corresponds to the source's match_item(pattern, node, path, sol, emit).
func Match(b *budget, pat ast.Pattern, node value.Value, path value.Path, sol *Solution, emit Emit) bool {
	b.tick()
	switch n := pat.(type) {
	case *ast.Any:
		return emit(sol)
	case *ast.TypedAny:
		if value.Kind(node) == n.Kind {
			return emit(sol)
		}
		return true
	case *ast.Lit:
		if value.Equal(node, n.Value) {
			return emit(sol)
		}
		return true
	case *ast.BoolLit:
		if bv, ok := node.(value.Bool); ok && bool(bv) == n.Value {
			return emit(sol)
		}
		return true
	case *ast.NullLit:
		if _, ok := node.(value.Null); ok {
			return emit(sol)
		}
		return true
	case *ast.StringPattern:
		s, ok := node.(value.String)
		if ok && n.Predicate(string(s)) {
			return emit(sol)
		}
		return true
	case *ast.SBind:
		return matchSBind(b, n, node, path, sol, emit)
	case *ast.GroupBind:
		return matchGroupBindScalar(b, n, node, path, sol, emit)
	case *ast.Guarded:
		return matchGuarded(b, n, node, path, sol, emit)
	case *ast.Arr:
		return matchArray(b, n, node, path, sol, emit)
	case *ast.Obj:
		return matchObject(b, n, node, path, sol, emit)
	case *ast.Alt:
		return matchAlt(b, n, node, path, sol, emit)
	case *ast.Look:
		return matchLook(b, n, node, path, sol, emit)
	case *ast.Flow:
		return matchFlow(b, n, node, path, sol, emit)
	case *ast.Collecting:
		return matchCollecting(b, n, sol, emit)
	case *ast.SlicePattern:
		return Match(b, n.Content, node, path, sol, emit)
	default:
		return true
	}
}

func matchSBind(b *budget, n *ast.SBind, node value.Value, path value.Path, sol *Solution, emit Emit) bool {
	return Match(b, n.Sub, node, path, sol, func(s *Solution) bool {
		next := s.Clone()
		if !next.bindScalar(n.Name, node, path) {
			return true
		}
		if n.Guard != nil {
			next.Guards = append(next.Guards, PendingGuard{
				Expr:     n.Guard,
				Required: guard.RequiredVars(n.Guard),
				Wildcard: node,
			})
		}
		ok, failed := evaluateClosedGuards(next)
		if failed {
			return true
		}
		if !ok {
			return emit(next)
		}
		return emit(next)
	})
}

// evaluateClosedGuards evaluates and removes every guard whose required
// vars are all bound, mutating sol.Guards in place. It returns
// (allPassed, hardFailure): hardFailure is true if any fully-closed guard
// evaluated false or raised a TypeError, which fails the branch outright.
func evaluateClosedGuards(sol *Solution) (allPassed bool, hardFailure bool) {
	remaining := sol.Guards[:0]
	env := envFromSolution(sol)
	for _, g := range sol.Guards {
		closed := true
		for name := range g.Required {
			if _, ok := sol.Env[name]; !ok {
				closed = false
				break
			}
		}
		if !closed {
			remaining = append(remaining, g)
			continue
		}
		v, err := guard.Eval(g.Expr, env, g.Wildcard)
		if err != nil {
			return false, true
		}
		truthy, ok := v.(value.Bool)
		if !ok || !bool(truthy) {
			return false, true
		}
	}
	sol.Guards = remaining
	return true, false
}

func envFromSolution(sol *Solution) guard.Env {
	env := make(guard.Env, len(sol.Env))
	for name, b := range sol.Env {
		if b.Kind == BindScalar {
			env[name] = b.Scalar
		} else {
			env[name] = b.Group
		}
	}
	return env
}

// matchGroupBindScalar handles a GroupBind reached outside an array/object
// range context: it matches Sub against the single current node and binds
// name to a one-element group of the kind the sub-pattern implies. The
// array-range and object-key-set forms are handled by matchArray and
// matchObject directly, since they operate over many nodes at once.
func matchGroupBindScalar(b *budget, n *ast.GroupBind, node value.Value, path value.Path, sol *Solution, emit Emit) bool {
	return Match(b, n.Sub, node, path, sol, func(s *Solution) bool {
		next := s.Clone()
		site := Site{Kind: SiteScalar, Path: path, Value: node}
		if !next.bindGroup(n.Name, n.Kind, node, site) {
			return true
		}
		return emit(next)
	})
}

func matchGuarded(b *budget, n *ast.Guarded, node value.Value, path value.Path, sol *Solution, emit Emit) bool {
	return Match(b, n.Sub, node, path, sol, func(s *Solution) bool {
		env := envFromSolution(s)
		v, err := guard.Eval(n.Expr, env, node)
		if err != nil {
			return true
		}
		truthy, ok := v.(value.Bool)
		if !ok || !bool(truthy) {
			return true
		}
		return emit(s)
	})
}

func matchAlt(b *budget, n *ast.Alt, node value.Value, path value.Path, sol *Solution, emit Emit) bool {
	if !n.Prioritized {
		for _, alt := range n.Alts {
			if !Match(b, alt, node, path, sol.Clone(), emit) {
				return false
			}
		}
		return true
	}
	for _, alt := range n.Alts {
		matched := false
		cont := Match(b, alt, node, path, sol.Clone(), func(s *Solution) bool {
			matched = true
			return emit(s)
		})
		if !cont {
			return false
		}
		if matched {
			return true
		}
	}
	return true
}

// matchLook implements the scalar-context lookahead: for a positive Look,
// it matches Sub against node and forwards the first successful branch's
// bindings without advancing any outer position; for negated, it succeeds
// iff Sub has no match at all. This resolves an open question in the
// source design notes (see DESIGN.md).
func matchLook(b *budget, n *ast.Look, node value.Value, path value.Path, sol *Solution, emit Emit) bool {
	matched := false
	var captured *Solution
	Match(b, n.Sub, node, path, sol.Clone(), func(s *Solution) bool {
		matched = true
		captured = s
		return false
	})
	if n.Negated {
		if !matched {
			return emit(sol)
		}
		return true
	}
	if matched {
		return emit(captured)
	}
	return true
}

func matchFlow(b *budget, n *ast.Flow, node value.Value, path value.Path, sol *Solution, emit Emit) bool {
	return Match(b, n.Sub, node, path, sol, func(s *Solution) bool {
		next := s.Clone()
		frame := next.resolveFrame(n.LabelRef)
		if frame == nil {
			return true
		}
		bucket := frame.bucket(n.Bucket, n.Kind)
		if n.Kind == ast.SliceArray {
			bucket.ArrayEntries = append(bucket.ArrayEntries, node)
		} else {
			key, ok := currentObservedKey(next, n.LabelRef)
			if !ok {
				return true
			}
			if existing, present := bucket.ObjectEntries[key]; present && !value.Equal(existing, node) {
				return true
			}
			if _, present := bucket.ObjectEntries[key]; !present {
				bucket.ObjectKeys = append(bucket.ObjectKeys, key)
			}
			bucket.ObjectEntries[key] = node
		}
		return emit(next)
	})
}

func matchCollecting(b *budget, n *ast.Collecting, sol *Solution, emit Emit) bool {
	b.tick()
	valBind, ok := lookupBindName(sol, n.Entry.Value)
	if !ok {
		return true
	}
	next := sol.Clone()
	frame := next.resolveFrame(n.LabelRef)
	if frame == nil {
		return true
	}
	bucket := frame.bucket(n.Bucket, n.Kind)
	if n.Kind == ast.SliceArray {
		bucket.ArrayEntries = append(bucket.ArrayEntries, valBind)
		return emit(next)
	}
	keyBind, ok := lookupBindName(next, n.Entry.Key)
	if !ok {
		return true
	}
	keyStr, ok := keyBind.(value.String)
	if !ok {
		return true
	}
	if existing, present := bucket.ObjectEntries[string(keyStr)]; present && !value.Equal(existing, valBind) {
		return true
	}
	if _, present := bucket.ObjectEntries[string(keyStr)]; !present {
		bucket.ObjectKeys = append(bucket.ObjectKeys, string(keyStr))
	}
	bucket.ObjectEntries[string(keyStr)] = valBind
	return emit(next)
}

func lookupBindName(sol *Solution, pat ast.Pattern) (value.Value, bool) {
	sb, ok := pat.(*ast.SBind)
	if !ok {
		return nil, false
	}
	b, ok := sol.Env[sb.Name]
	if !ok || b.Kind != BindScalar {
		return nil, false
	}
	return b.Scalar, true
}

func currentObservedKey(sol *Solution, labelRef string) (string, bool) {
	if labelRef != "" {
		l, ok := sol.Labels[labelRef]
		return l.ObservedKey, ok && l.HasKey
	}
	for i := len(sol.BucketStack) - 1; i >= 0; i-- {
		if l, ok := sol.Labels[sol.BucketStack[i].Label]; ok && l.HasKey {
			return l.ObservedKey, true
		}
	}
	return "", false
}
