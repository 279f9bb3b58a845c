package ast

import "github.com/mchrisman/tendril/value"

func (*Any) patternNode()         {}
func (*TypedAny) patternNode()    {}
func (*Lit) patternNode()         {}
func (*BoolLit) patternNode()     {}
func (*NullLit) patternNode()     {}
func (*StringPattern) patternNode() {}
func (*SBind) patternNode()       {}
func (*GroupBind) patternNode()   {}
func (*Guarded) patternNode()     {}
func (*Arr) patternNode()         {}
func (*Obj) patternNode()         {}
func (*OGroup) patternNode()      {}
func (*OLook) patternNode()       {}
func (*Look) patternNode()        {}
func (*Alt) patternNode()         {}
func (*Quant) patternNode()       {}
func (*Spread) patternNode()      {}
func (*RootKey) patternNode()     {}
func (*Flow) patternNode()        {}
func (*Collecting) patternNode()  {}
func (*SlicePattern) patternNode() {}

// Any matches any single node ("_").
type Any struct{ base }

// TypedAny matches a node whose primitive kind equals Kind ("_string", "_number", "_boolean").
type TypedAny struct {
	base
	Kind string
}

// Lit matches a specific scalar literal value (number or bareword/quoted string).
type Lit struct {
	base
	Value value.Value
}

// BoolLit matches a literal true/false.
type BoolLit struct {
	base
	Value bool
}

// NullLit matches the literal null.
type NullLit struct{ base }

// StringPatternKind selects the comparison discipline of a StringPattern.
type StringPatternKind int

const (
	StringLiteral StringPatternKind = iota
	StringCaseInsensitive
	StringRegex
)

// StringPattern matches a string node against a regex or case-insensitively
// against a literal. Desc holds the source text for diagnostics; Predicate
// the compiled matcher (a *regexp.Regexp wrapped by the compiler, or a
// folded-case comparison key for StringCaseInsensitive).
type StringPattern struct {
	base
	Kind      StringPatternKind
	Desc      string
	Predicate func(s string) bool
}

// SBind binds Name to the current node if Sub matches and Guard (if present) holds.
type SBind struct {
	base
	Name  string
	Sub   Pattern
	Guard GuardExpr
}

// GroupBind binds Name to a slice (array range or object key-set) captured by Sub.
type GroupBind struct {
	base
	Name string
	Sub  Pattern
	Kind SliceKind
}

// Guarded requires Sub to match and Expr to evaluate truthy against the
// current node bound as the anonymous `_` variable.
type Guarded struct {
	base
	Sub  Pattern
	Expr GuardExpr
}

// Arr is a sequence pattern. Label, if non-empty, names the bucket scope
// opened on this container for Flow/Collecting resolution.
type Arr struct {
	base
	Items []Pattern
	Label string
}

// Obj is an object pattern: a list of terms plus an optional spread rule.
type Obj struct {
	base
	Terms  []Pattern
	Spread *Spread
	Label  string
}

// OTerm is one object clause: keyPat breadcrumbs? : value, with an optional
// count quantifier, optional-clause marker, and strong (each-prefixed) semantics.
type OTerm struct {
	base
	KeyPat      Pattern
	Breadcrumbs []Breadcrumb
	Value       Pattern
	Min, Max    int
	Optional    bool
	Strong      bool
}

func (*OTerm) patternNode() {}

// OGroup is a parenthesized grouping of object terms, used for binding/scoping.
type OGroup struct {
	base
	Terms []Pattern
}

// OLook is a positive/negative object lookahead.
type OLook struct {
	base
	Negated bool
	Sub     Pattern
}

// Look is a positive/negative sequence lookahead.
type Look struct {
	base
	Negated bool
	Sub     Pattern
}

// Alt is an alternation: ordered (Prioritized, via `else`) or unordered (via `|`).
type Alt struct {
	base
	Alts        []Pattern
	Prioritized bool
}

// Quant repeats Sub between Min and Max times (Max < 0 means unbounded) under Mode's discipline.
type Quant struct {
	base
	Sub      Pattern
	Min, Max int
	Mode     QuantMode
}

// Spread is anonymous filler in sequences (`…`) or named filler in object
// remnants (`%`); Name is empty for the anonymous array form.
type Spread struct {
	base
	Name     string
	Min, Max int
}

// Breadcrumb is one step of an object term's descent into its target: dot,
// bracket, or skip (`**`, deep descent).
type Breadcrumb struct {
	Kind BreadcrumbKind
	Key  Pattern
}

// RootKey is the placeholder Key the parser stores on every `**` (skip)
// breadcrumb; a skip step has no key of its own.
type RootKey struct{ base }

// Flow is the side effect `sub ->%bucket<^label>` / `sub ->@bucket<^label>`:
// after Sub matches, the current node is appended into the named bucket.
type Flow struct {
	base
	Sub      Pattern
	Bucket   string
	LabelRef string
	Kind     SliceKind
}

// CollectEntry names the key and/or value pattern of a <collecting …> clause.
type CollectEntry struct {
	Key   Pattern
	Value Pattern
}

// Collecting aggregates bound-variable pairs produced by Sub into Bucket,
// scoped to LabelRef. Kind is SliceObject for `$k:$v in %bucket` form,
// SliceArray for `$v in @bucket` form.
type Collecting struct {
	base
	Sub      Pattern
	Entry    CollectEntry
	Bucket   string
	LabelRef string
	Kind     SliceKind
}

// SlicePatternKind selects between object-slice (`%{…}`) and array-slice (`@[…]`) search.
type SlicePatternKind int

const (
	SliceFindObject SlicePatternKind = iota
	SliceFindArray
)

// SlicePattern is a top-level marker turning the whole pattern into a slice-find.
type SlicePattern struct {
	base
	Kind    SlicePatternKind
	Content Pattern
}
