package tendril

import (
	"github.com/mchrisman/tendril/edit"
	"github.com/mchrisman/tendril/engine"
	"github.com/mchrisman/tendril/value"
)

// Solution exposes one search branch's bindings and lets a caller replace
// or edit the sites that produced them, without reaching into engine types.
type Solution struct {
	root value.Value
	sol  *engine.Solution
}

// Bindings returns the solution's public variable environment as native
// Go values (nested map[string]any / []any / scalars).
func (s *Solution) Bindings() map[string]any {
	out := make(map[string]any, len(s.sol.Env))
	for name, b := range s.sol.Env {
		if b.Kind == engine.BindScalar {
			out[name] = value.ToGo(b.Scalar)
		} else {
			out[name] = value.ToGo(b.Group)
		}
	}
	return out
}

// Sites returns every site recorded for name (sigil optional), oldest
// first, as the engine observed them during the search.
func (s *Solution) Sites(name string) []engine.Site {
	return s.sol.Sites[stripName(name)]
}

// Replace applies plan against this solution alone and returns the edited
// root, under compare-and-set against the values this solution observed.
func (s *Solution) Replace(plan edit.Plan, opts ...EditOption) (value.Value, []error) {
	return replaceWith(s.root, []*engine.Solution{s.sol}, plan, opts)
}

// Edit is an alias for Replace kept for callers that prefer the verb the
// specification uses for a single-solution mutation.
func (s *Solution) Edit(plan edit.Plan, opts ...EditOption) (value.Value, []error) {
	return s.Replace(plan, opts...)
}

// Occurrences returns this solution as a single-element occurrence set,
// for callers that found a solution but want the occurrence API's shape.
func (s *Solution) Occurrences() []*Occurrence {
	return []*Occurrence{{root: s.root, path: nil, value: s.root, sols: []*engine.Solution{s.sol}}}
}

func stripName(name string) string {
	if len(name) > 0 {
		switch name[0] {
		case '$', '@', '%':
			return name[1:]
		}
	}
	return name
}

// Occurrence is one anchored match site found by a scanning search: a
// path into the input, the subtree matched there, and every solution the
// pattern produced at that path.
type Occurrence struct {
	root  value.Value
	path  value.Path
	value value.Value
	sols  []*engine.Solution
}

// Path is the location of this occurrence within the searched value.
func (o *Occurrence) Path() value.Path { return o.path }

// Value is the subtree matched at this occurrence.
func (o *Occurrence) Value() value.Value { return o.value }

// Solutions returns every binding set this occurrence produced.
func (o *Occurrence) Solutions() []*Solution {
	out := make([]*Solution, len(o.sols))
	for i, s := range o.sols {
		out[i] = &Solution{root: o.root, sol: s}
	}
	return out
}

// Replace applies plan against every solution this occurrence produced.
func (o *Occurrence) Replace(plan edit.Plan, opts ...EditOption) (value.Value, []error) {
	return replaceWith(o.root, o.sols, plan, opts)
}

// Edit is an alias for Replace, matching the specification's occurrence API.
func (o *Occurrence) Edit(plan edit.Plan, opts ...EditOption) (value.Value, []error) {
	return o.Replace(plan, opts...)
}

// OccurrenceSet is the result of a scanning search (In/AdvancedMatch/
// AdvancedFind): every occurrence the pattern produced, in scan order.
type OccurrenceSet struct {
	root  value.Value
	items []*Occurrence
}

// First returns the earliest occurrence, if any.
func (os *OccurrenceSet) First() (*Occurrence, bool) {
	if len(os.items) == 0 {
		return nil, false
	}
	return os.items[0], true
}

// Take returns up to n occurrences from the front of the set.
func (os *OccurrenceSet) Take(n int) []*Occurrence {
	if n > len(os.items) {
		n = len(os.items)
	}
	return append([]*Occurrence(nil), os.items[:n]...)
}

// Filter returns the subset of occurrences satisfying pred.
func (os *OccurrenceSet) Filter(pred func(*Occurrence) bool) *OccurrenceSet {
	out := &OccurrenceSet{root: os.root}
	for _, o := range os.items {
		if pred(o) {
			out.items = append(out.items, o)
		}
	}
	return out
}

// Solutions flattens every occurrence's solutions into one slice.
func (os *OccurrenceSet) Solutions() []*Solution {
	var out []*Solution
	for _, o := range os.items {
		out = append(out, o.Solutions()...)
	}
	return out
}

// ToArray returns the occurrences as a plain slice.
func (os *OccurrenceSet) ToArray() []*Occurrence {
	return append([]*Occurrence(nil), os.items...)
}

// Count returns the number of occurrences in the set.
func (os *OccurrenceSet) Count() int { return len(os.items) }

// HasMatch reports whether the set is non-empty.
func (os *OccurrenceSet) HasMatch() bool { return len(os.items) > 0 }

// ReplaceAll applies plan across every occurrence's solutions, deduplicated
// and conflict-checked over the whole set as a single edit batch.
func (os *OccurrenceSet) ReplaceAll(plan edit.Plan, opts ...EditOption) (value.Value, []error) {
	return replaceWith(os.root, os.engineSolutions(), plan, opts)
}

// EditAll is an alias for ReplaceAll, matching the specification's name.
func (os *OccurrenceSet) EditAll(plan edit.Plan, opts ...EditOption) (value.Value, []error) {
	return os.ReplaceAll(plan, opts...)
}

// engineSolutions returns the underlying engine.Solution values, flattened.
func (os *OccurrenceSet) engineSolutions() []*engine.Solution {
	var out []*engine.Solution
	for _, o := range os.items {
		out = append(out, o.sols...)
	}
	return out
}

// EditOption configures a Replace/Edit/ReplaceAll/EditAll call.
type EditOption func(*editConfig)

type editConfig struct {
	onConflict   func(edit.Conflict) bool
	onCASFailure func(edit.CASFailure) bool
}

// WithOnConflict sets the callback asked when two solutions prescribe
// different values for the same site; returning true forces the later one.
func WithOnConflict(f func(edit.Conflict) bool) EditOption {
	return func(c *editConfig) { c.onConflict = f }
}

// WithOnCASFailure sets the callback asked when a recorded site no longer
// holds the value it was bound against; returning true forces the edit.
func WithOnCASFailure(f func(edit.CASFailure) bool) EditOption {
	return func(c *editConfig) { c.onCASFailure = f }
}

func replaceWith(root value.Value, sols []*engine.Solution, plan edit.Plan, opts []EditOption) (value.Value, []error) {
	cfg := &editConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	edits, err := edit.Normalize(sols, plan, cfg.onConflict)
	if err != nil {
		return root, []error{err}
	}
	return edit.Apply(root, edits, edit.ApplyOptions{OnCASFailure: cfg.onCASFailure})
}
