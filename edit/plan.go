// Package edit turns a user-supplied replacement plan plus the sites
// recorded by a search into a deduplicated, conflict-checked list of edits,
// and applies them against an input value.Value under compare-and-set.
package edit

import (
	"fmt"
	"strings"

	"github.com/mchrisman/tendril/engine"
	"github.com/mchrisman/tendril/value"
)

// Bindings exposes one solution's public environment to a replacement function.
type Bindings struct {
	env map[string]value.Value
}

// Get returns the bound value for name (sigil optional), if any.
func (b Bindings) Get(name string) (value.Value, bool) {
	v, ok := b.env[stripSigil(name)]
	return v, ok
}

// ReplacementFunc computes a replacement value from a solution's bindings.
type ReplacementFunc func(Bindings) (value.Value, error)

// Replacement is either a literal value.Value or a ReplacementFunc.
type Replacement interface{}

// Plan maps a variable name ($name/@name, sigil optional) to its replacement.
type Plan map[string]Replacement

// Edit is one normalized, site-targeted change ready for Apply.
type Edit struct {
	Kind     engine.SiteKind
	Path     value.Path
	Start    int
	End      int
	Keys     []string
	Value    value.Value // replacement, already converted to the site's shape
	ValueRef value.Value // scalar sites: the value observed at bind time, for CAS
}

// Conflict reports two edits targeting the same site with different
// replacement values; onConflict decides whether to force the new value.
type Conflict struct {
	SiteKey  string
	Existing value.Value
	New      value.Value
}

// ShapeError reports that a replacement's shape disagrees with the site it
// targets, e.g. assigning a scalar to an object-slice group. This is a hard
// error: unlike a CAS failure it is never skippable, since there is no
// value.Value to write at the site that would satisfy it.
type ShapeError struct {
	Name string
	Err  error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("edit: shape mismatch for %s: %v", e.Name, e.Err)
}

func (e *ShapeError) Unwrap() error { return e.Err }

func stripSigil(name string) string {
	if len(name) > 0 {
		switch name[0] {
		case '$', '@', '%':
			return name[1:]
		}
	}
	return name
}

func siteKey(kind engine.SiteKind, path value.Path, start, end int, keys []string) string {
	switch kind {
	case engine.SiteArraySlice:
		return fmt.Sprintf("array:%s:%d:%d", path.String(), start, end)
	case engine.SiteObjectSlice:
		return fmt.Sprintf("object:%s:%s", path.String(), strings.Join(keys, ","))
	default:
		return fmt.Sprintf("scalar:%s", path.String())
	}
}

// Normalize resolves plan against every solution's recorded sites, producing
// at most one Edit per site. onConflict, if non-nil, is asked whether a
// disagreeing later edit should force-overwrite an earlier one for the same
// site; by default (nil) later edits always force.
func Normalize(sols []*engine.Solution, plan Plan, onConflict func(Conflict) bool) ([]Edit, error) {
	byKey := map[string]Edit{}
	order := []string{}
	for _, sol := range sols {
		bindings := Bindings{env: publicEnv(sol)}
		for rawName, repl := range plan {
			name := stripSigil(rawName)
			if _, bound := sol.Env[name]; !bound {
				continue
			}
			sites := sol.Sites[name]
			if len(sites) == 0 {
				continue
			}
			site := sites[len(sites)-1]
			val, err := resolveReplacement(repl, bindings)
			if err != nil {
				return nil, err
			}
			converted, err := convertForSite(name, site.Kind, val)
			if err != nil {
				return nil, err
			}
			key := siteKey(site.Kind, site.Path, site.Start, site.End, site.Keys)
			e := Edit{
				Kind: site.Kind, Path: site.Path, Start: site.Start, End: site.End,
				Keys: site.Keys, Value: converted, ValueRef: site.Value,
			}
			if existing, dup := byKey[key]; dup {
				if value.Equal(existing.Value, e.Value) {
					continue
				}
				force := true
				if onConflict != nil {
					force = onConflict(Conflict{SiteKey: key, Existing: existing.Value, New: e.Value})
				}
				if !force {
					continue
				}
			} else {
				order = append(order, key)
			}
			byKey[key] = e
		}
	}
	out := make([]Edit, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out, nil
}

func publicEnv(sol *engine.Solution) map[string]value.Value {
	out := make(map[string]value.Value, len(sol.Env))
	for k, b := range sol.Env {
		if b.Kind == engine.BindScalar {
			out[k] = b.Scalar
		} else {
			out[k] = b.Group
		}
	}
	return out
}

func resolveReplacement(r Replacement, b Bindings) (value.Value, error) {
	switch rv := r.(type) {
	case value.Value:
		return rv, nil
	case ReplacementFunc:
		return rv(b)
	case func(Bindings) (value.Value, error):
		return rv(b)
	default:
		return nil, fmt.Errorf("edit: unsupported replacement type %T", r)
	}
}

func convertForSite(name string, kind engine.SiteKind, v value.Value) (value.Value, error) {
	switch kind {
	case engine.SiteArraySlice:
		if _, ok := v.(value.Sequence); ok {
			return v, nil
		}
		return value.Sequence{v}, nil
	case engine.SiteObjectSlice:
		if _, ok := v.(*value.Mapping); !ok {
			return nil, &ShapeError{Name: name, Err: fmt.Errorf("object-slice site requires a mapping replacement, got %T", v)}
		}
		return v, nil
	default:
		return v, nil
	}
}
