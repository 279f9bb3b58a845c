package engine

import (
	"github.com/mchrisman/tendril/ast"
	"github.com/mchrisman/tendril/value"
)

// leafEmit receives one candidate breadcrumb destination.
type leafEmit func(leaf value.Value, leafPath value.Path, sol *Solution) bool

// navigateBreadcrumbs walks an object term's breadcrumb chain from base,
// emitting every (leaf, path, sol) reachable by a consistent choice of key
// and array-index candidates. Dot and bracket steps resolve deterministically
// when their pattern is a literal, but fan out over every key/index that
// satisfies a non-literal pattern (a bind, wildcard, or regex).
func navigateBreadcrumbs(b *budget, crumbs []ast.Breadcrumb, base value.Value, basePath value.Path, sol *Solution, emit leafEmit) bool {
	b.tick()
	if len(crumbs) == 0 {
		return emit(base, basePath, sol)
	}
	step := crumbs[0]
	rest := crumbs[1:]
	switch step.Kind {
	case ast.BreadcrumbDot:
		return navigateDot(b, step.Key, rest, base, basePath, sol, emit)
	case ast.BreadcrumbBracket:
		return navigateBracket(b, step.Key, rest, base, basePath, sol, emit)
	case ast.BreadcrumbSkip:
		return navigateSkip(b, rest, base, basePath, sol, emit)
	default:
		return true
	}
}

func navigateDot(b *budget, keyPat ast.Pattern, rest []ast.Breadcrumb, base value.Value, basePath value.Path, sol *Solution, emit leafEmit) bool {
	obj, ok := base.(*value.Mapping)
	if !ok {
		return true
	}
	for _, k := range obj.Keys() {
		child, _ := obj.Get(k)
		childPath := basePath.Append(value.KeyStep(k))
		cont := Match(b, keyPat, value.String(k), childPath, sol.Clone(), func(s *Solution) bool {
			return navigateBreadcrumbs(b, rest, child, childPath, s, emit)
		})
		if !cont {
			return false
		}
	}
	return true
}

func navigateBracket(b *budget, idxPat ast.Pattern, rest []ast.Breadcrumb, base value.Value, basePath value.Path, sol *Solution, emit leafEmit) bool {
	seq, ok := base.(value.Sequence)
	if !ok {
		return true
	}
	for i, child := range seq {
		childPath := basePath.Append(value.IndexStep(i))
		cont := Match(b, idxPat, value.Number(i), childPath, sol.Clone(), func(s *Solution) bool {
			return navigateBreadcrumbs(b, rest, child, childPath, s, emit)
		})
		if !cont {
			return false
		}
	}
	return true
}

// navigateSkip implements `**`, deep descent into nested objects and
// arrays alike: it tries the remaining breadcrumbs at every node of the
// subtree rooted at base, in pre-order, including base itself.
func navigateSkip(b *budget, rest []ast.Breadcrumb, base value.Value, basePath value.Path, sol *Solution, emit leafEmit) bool {
	b.tick()
	if !navigateBreadcrumbs(b, rest, base, basePath, sol.Clone(), emit) {
		return false
	}
	switch v := base.(type) {
	case *value.Mapping:
		for _, k := range v.Keys() {
			child, _ := v.Get(k)
			childPath := basePath.Append(value.KeyStep(k))
			if !navigateSkip(b, rest, child, childPath, sol.Clone(), emit) {
				return false
			}
		}
	case value.Sequence:
		for i, child := range v {
			childPath := basePath.Append(value.IndexStep(i))
			if !navigateSkip(b, rest, child, childPath, sol.Clone(), emit) {
				return false
			}
		}
	}
	return true
}
