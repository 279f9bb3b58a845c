// Package tendril provides structural pattern matching and rewriting over
// JSON-like data.
//
// A pattern is a small DSL compiled once into an AST and then matched
// against any number of values. Compile validates and reports a
// *SyntaxError or *ValidationError at the position it failed; a compiled
// Pattern is safe for concurrent use.
//
// Basic usage:
//
//	pat, err := tendril.Compile(`{status: "ok", count: ($n where $n > 0)}`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	doc, _ := tendril.ParseJSON(body)
//	if m, ok := pat.On(doc).Solve(); ok {
//	    fmt.Println(m.Bindings()["n"])
//	}
//
// Scanning for every anchored occurrence inside a larger document:
//
//	for _, occ := range pat.AdvancedMatch(doc).ToArray() {
//	    fmt.Println(occ.Path(), occ.Value())
//	}
//
// Rewriting matched sites:
//
//	out, errs := pat.In(doc).Replace(tendril.Plan{
//	    "n": func(b tendril.Bindings) (value.Value, error) {
//	        n, _ := b.Get("n")
//	        return value.Number(n.(value.Number) + 1), nil
//	    },
//	})
package tendril

import (
	"github.com/mchrisman/tendril/ast"
	"github.com/mchrisman/tendril/edit"
	"github.com/mchrisman/tendril/engine"
	"github.com/mchrisman/tendril/parser"
	"github.com/mchrisman/tendril/value"
)

// Plan, Bindings, ReplacementFunc, and Replacement are re-exported from
// edit so callers building a rewrite never need to import it directly.
type (
	Plan            = edit.Plan
	Bindings        = edit.Bindings
	ReplacementFunc = edit.ReplacementFunc
	Replacement     = edit.Replacement
)

// ParseJSON decodes a JSON document into the Value tree a Pattern matches
// against, preserving object key order.
func ParseJSON(data []byte) (value.Value, error) {
	return value.ParseJSON(data)
}

// FromGo converts an already-decoded native Go value (map[string]any,
// []any, and scalars) into the Value tree a Pattern matches against.
func FromGo(v any) (value.Value, error) {
	return value.FromGo(v)
}

// ToGo converts a Value tree (or a binding pulled from a Solution) back
// into the native Go shapes FromGo accepts.
func ToGo(v value.Value) any {
	return value.ToGo(v)
}

// Pattern is a compiled, reusable pattern. The zero value is not usable;
// construct one with Compile, MustCompile, or CompileCached.
type Pattern struct {
	src string
	ast ast.Pattern
}

// Compile parses and validates src, returning a *SyntaxError or
// *ValidationError if it is malformed.
func Compile(src string) (*Pattern, error) {
	p := parser.Get(src)
	defer parser.Put(p)
	pat, err := p.Parse()
	if err != nil {
		return nil, err
	}
	if err := parser.Validate(pat); err != nil {
		return nil, err
	}
	return &Pattern{src: src, ast: pat}, nil
}

// MustCompile is like Compile but panics on error, for pattern literals
// known to be valid at init time.
func MustCompile(src string) *Pattern {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// CompileCached compiles src, reusing a prior compilation of the same
// source text from a bounded process-wide cache (insertion-order
// eviction) when available.
func CompileCached(src string) (*Pattern, error) {
	if pat, ok := defaultCache.get(src); ok {
		return pat, nil
	}
	pat, err := Compile(src)
	if err != nil {
		return nil, err
	}
	defaultCache.put(src, pat)
	return pat, nil
}

// RunOptions configures the step budget a search is allowed before it
// aborts with a *StepBudgetError. Zero uses engine.DefaultStepBudget.
type RunOptions struct {
	MaxSteps int
}

// Matcher is an anchored matcher against one root value: the pattern is
// tried only at the root, not scanned through its descendants.
type Matcher struct {
	pat  *Pattern
	root value.Value
	opts RunOptions
}

// On anchors p against root for test/solve/solutions/replace/mutate.
func (p *Pattern) On(root value.Value, opts ...RunOptions) *Matcher {
	return &Matcher{pat: p, root: root, opts: firstOpts(opts)}
}

// Test reports whether the pattern matches the root at all.
func (m *Matcher) Test() bool {
	_, ok := m.Solve()
	return ok
}

// Solve returns the first solution the anchored match produces, if any.
func (m *Matcher) Solve() (*Solution, bool) {
	sols := m.Solutions()
	if len(sols) == 0 {
		return nil, false
	}
	return sols[0], true
}

// Solutions returns every solution the anchored match produces.
func (m *Matcher) Solutions() []*Solution {
	var out []*Solution
	engine.Run(m.pat.ast, m.root, engine.ModeMatch, m.opts.MaxSteps, func(_ value.Path, _ value.Value, s *engine.Solution) bool {
		out = append(out, &Solution{root: m.root, sol: s})
		return true
	})
	return out
}

// Replace applies plan against every anchored solution and returns the
// edited root.
func (m *Matcher) Replace(plan edit.Plan, opts ...EditOption) (value.Value, []error) {
	sols := m.Solutions()
	engSols := make([]*engine.Solution, len(sols))
	for i, s := range sols {
		engSols[i] = s.sol
	}
	return replaceWith(m.root, engSols, plan, opts)
}

// Mutate is an alias for Replace kept for callers that think of this as
// an in-place rewrite of the root value they hold.
func (m *Matcher) Mutate(plan edit.Plan, opts ...EditOption) (value.Value, []error) {
	return m.Replace(plan, opts...)
}

// ScanMatcher is a scanning matcher: the pattern is tried at every subnode
// of root, pre-order.
type ScanMatcher struct {
	pat  *Pattern
	root value.Value
	opts RunOptions
}

// In scans root for every anchored occurrence of p.
func (p *Pattern) In(root value.Value, opts ...RunOptions) *ScanMatcher {
	return &ScanMatcher{pat: p, root: root, opts: firstOpts(opts)}
}

// AdvancedMatch runs the same full scan as In and returns every occurrence
// found as an OccurrenceSet.
func (p *Pattern) AdvancedMatch(root value.Value, opts ...RunOptions) *OccurrenceSet {
	return (&ScanMatcher{pat: p, root: root, opts: firstOpts(opts)}).find(engine.ModeFind)
}

// AdvancedFind stops at the first occurrence found, still returning an
// occurrence set (of at most one element) for API symmetry with
// AdvancedMatch.
func (p *Pattern) AdvancedFind(root value.Value, opts ...RunOptions) *OccurrenceSet {
	return (&ScanMatcher{pat: p, root: root, opts: firstOpts(opts)}).find(engine.ModeFirst)
}

// Count returns the number of occurrences found by a full scan.
func (sm *ScanMatcher) Count() int {
	return sm.find(engine.ModeFind).Count()
}

// Locations returns the path of every occurrence found by a full scan.
func (sm *ScanMatcher) Locations() []value.Path {
	set := sm.find(engine.ModeFind)
	out := make([]value.Path, len(set.items))
	for i, o := range set.items {
		out[i] = o.path
	}
	return out
}

// Replace applies plan across every occurrence found by a full scan.
func (sm *ScanMatcher) Replace(plan edit.Plan, opts ...EditOption) (value.Value, []error) {
	return sm.find(engine.ModeFind).ReplaceAll(plan, opts...)
}

// Mutate is an alias for Replace.
func (sm *ScanMatcher) Mutate(plan edit.Plan, opts ...EditOption) (value.Value, []error) {
	return sm.Replace(plan, opts...)
}

func (sm *ScanMatcher) find(mode engine.Mode) *OccurrenceSet {
	set := &OccurrenceSet{root: sm.root}
	var cur *Occurrence
	engine.Run(sm.pat.ast, sm.root, mode, sm.opts.MaxSteps, func(path value.Path, node value.Value, s *engine.Solution) bool {
		if cur == nil || !cur.path.Equal(path) {
			cur = &Occurrence{root: sm.root, path: path, value: node}
			set.items = append(set.items, cur)
		}
		cur.sols = append(cur.sols, s)
		return true
	})
	return set
}

func firstOpts(opts []RunOptions) RunOptions {
	if len(opts) == 0 {
		return RunOptions{}
	}
	return opts[0]
}
