// Package engine implements tendril's backtracking search: matching a
// compiled pattern tree against a value.Value graph and emitting one
// Solution per successful search branch.
package engine

import (
	"github.com/mchrisman/tendril/ast"
	"github.com/mchrisman/tendril/value"
)

// BindingKind distinguishes a scalar binding from a group (slice) binding.
type BindingKind int

const (
	BindScalar BindingKind = iota
	BindGroup
)

// Binding is one entry of a Solution's environment.
type Binding struct {
	Kind      BindingKind
	Scalar    value.Value
	GroupKind ast.SliceKind
	Group     value.Value
}

// SiteKind distinguishes the three shapes of site record.
type SiteKind int

const (
	SiteScalar SiteKind = iota
	SiteArraySlice
	SiteObjectSlice
)

// Site is a structural reference back into the input, recorded at bind
// time so that later edits can compare-and-set against the observed value.
type Site struct {
	Kind  SiteKind
	Path  value.Path
	Value value.Value // scalar sites: value observed at bind time
	Start int         // array-slice sites
	End   int
	Keys  []string // object-slice sites
}

// PendingGuard is a `where expr` deferred until every variable it
// references is bound.
type PendingGuard struct {
	Expr      ast.GuardExpr
	Required  map[string]bool
	Wildcard  value.Value
}

// Bucket is a named, branch-local accumulator fed by Flow/Collecting nodes.
type Bucket struct {
	Kind          ast.SliceKind
	ArrayEntries  []value.Value
	ObjectKeys    []string
	ObjectEntries map[string]value.Value
}

func newBucket(kind ast.SliceKind) *Bucket {
	b := &Bucket{Kind: kind}
	if kind == ast.SliceObject {
		b.ObjectEntries = map[string]value.Value{}
	}
	return b
}

func (b *Bucket) clone() *Bucket {
	out := &Bucket{Kind: b.Kind}
	out.ArrayEntries = append([]value.Value(nil), b.ArrayEntries...)
	out.ObjectKeys = append([]string(nil), b.ObjectKeys...)
	if b.ObjectEntries != nil {
		out.ObjectEntries = make(map[string]value.Value, len(b.ObjectEntries))
		for k, v := range b.ObjectEntries {
			out.ObjectEntries[k] = v
		}
	}
	return out
}

// BucketFrame is one label/container scope's set of live buckets.
type BucketFrame struct {
	Label   string
	Buckets map[string]*Bucket
}

func (f *BucketFrame) clone() *BucketFrame {
	out := &BucketFrame{Label: f.Label, Buckets: make(map[string]*Bucket, len(f.Buckets))}
	for k, v := range f.Buckets {
		out.Buckets[k] = v.clone()
	}
	return out
}

// LabelState records a label's currently-iterated witness key, used when a
// Flow/Collecting without an explicit ^label falls back to the nearest
// enclosing each-like context.
type LabelState struct {
	ObservedKey string
	HasKey      bool
	BucketLevel int
}

// Solution is the full state threaded through one search branch: variable
// bindings, the sites that produced them, deferred guards, the bucket
// stack, and label witnesses. It is cloned on every branch so a failed
// branch never contaminates another's state.
type Solution struct {
	Env         map[string]Binding
	Sites       map[string][]Site
	Guards      []PendingGuard
	BucketStack []*BucketFrame
	Labels      map[string]LabelState
}

// NewSolution returns an empty solution ready to seed a search.
func NewSolution() *Solution {
	return &Solution{
		Env:    map[string]Binding{},
		Sites:  map[string][]Site{},
		Labels: map[string]LabelState{},
	}
}

// Clone returns an independent copy: every branch decision operates on its
// own clone so that backtracking never observes a sibling branch's writes.
func (s *Solution) Clone() *Solution {
	out := &Solution{
		Env:    make(map[string]Binding, len(s.Env)),
		Sites:  make(map[string][]Site, len(s.Sites)),
		Guards: append([]PendingGuard(nil), s.Guards...),
		Labels: make(map[string]LabelState, len(s.Labels)),
	}
	for k, v := range s.Env {
		out.Env[k] = v
	}
	for k, v := range s.Sites {
		out.Sites[k] = append([]Site(nil), v...)
	}
	for k, v := range s.Labels {
		out.Labels[k] = v
	}
	out.BucketStack = make([]*BucketFrame, len(s.BucketStack))
	for i, f := range s.BucketStack {
		out.BucketStack[i] = f.clone()
	}
	return out
}

// bindScalar binds name to v if unbound, or verifies equality if already
// bound (env bindings are monotone within a branch). Returns false on
// conflict.
func (s *Solution) bindScalar(name string, v value.Value, path value.Path) bool {
	if existing, ok := s.Env[name]; ok {
		if existing.Kind != BindScalar || !value.Equal(existing.Scalar, v) {
			return false
		}
		s.Sites[name] = append(s.Sites[name], Site{Kind: SiteScalar, Path: path, Value: v})
		return true
	}
	s.Env[name] = Binding{Kind: BindScalar, Scalar: v}
	s.Sites[name] = append(s.Sites[name], Site{Kind: SiteScalar, Path: path, Value: v})
	return true
}

func (s *Solution) bindGroup(name string, kind ast.SliceKind, group value.Value, site Site) bool {
	if existing, ok := s.Env[name]; ok {
		if existing.Kind != BindGroup || existing.GroupKind != kind || !value.Equal(existing.Group, group) {
			return false
		}
		s.Sites[name] = append(s.Sites[name], site)
		return true
	}
	s.Env[name] = Binding{Kind: BindGroup, GroupKind: kind, Group: group}
	s.Sites[name] = append(s.Sites[name], site)
	return true
}

func (s *Solution) pushFrame(label string) {
	s.BucketStack = append(s.BucketStack, &BucketFrame{Label: label, Buckets: map[string]*Bucket{}})
}

func (s *Solution) popFrame() *BucketFrame {
	n := len(s.BucketStack)
	f := s.BucketStack[n-1]
	s.BucketStack = s.BucketStack[:n-1]
	return f
}

// resolveFrame finds the bucket frame a Flow/Collecting directive targets:
// an explicit label, or (if labelRef is empty) the innermost frame.
func (s *Solution) resolveFrame(labelRef string) *BucketFrame {
	if labelRef == "" {
		if len(s.BucketStack) == 0 {
			return nil
		}
		return s.BucketStack[len(s.BucketStack)-1]
	}
	for i := len(s.BucketStack) - 1; i >= 0; i-- {
		if s.BucketStack[i].Label == labelRef {
			return s.BucketStack[i]
		}
	}
	return nil
}

func (f *BucketFrame) bucket(name string, kind ast.SliceKind) *Bucket {
	b, ok := f.Buckets[name]
	if !ok {
		b = newBucket(kind)
		f.Buckets[name] = b
	}
	return b
}
