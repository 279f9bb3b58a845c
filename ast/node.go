// Package ast defines the pattern abstract syntax tree produced by the
// tendril parser: the typed node variants of spec §3, each carrying a
// source span for diagnostics.
package ast

import "github.com/mchrisman/tendril/token"

// Span is the source range a node was parsed from.
type Span struct {
	Start token.Pos
	End   token.Pos
}

// Node is the common interface of every pattern-tree node.
type Node interface {
	Span() Span
}

// Pattern is a value-pattern node: anything that can appear where a value
// is matched (atoms, containers, binds, quantified/alternated forms).
type Pattern interface {
	Node
	patternNode()
}

// GuardExpr is a node of the tiny guard expression language used inside
// `where …` clauses.
type GuardExpr interface {
	Node
	guardExprNode()
}

// base embeds a Span and provides the Span() method; pattern and guard
// node structs embed it to avoid repeating the accessor.
type base struct{ sp Span }

func (b base) Span() Span { return b.sp }

// SliceKind distinguishes array-shaped from object-shaped group bindings
// and buckets; a bucket name is committed to one kind for the lifetime of
// a pattern (spec §3 invariants).
type SliceKind int

const (
	SliceArray SliceKind = iota
	SliceObject
)

func (k SliceKind) String() string {
	if k == SliceObject {
		return "object"
	}
	return "array"
}

// QuantMode selects the repetition discipline of a Quant node.
type QuantMode int

const (
	Greedy QuantMode = iota
	Lazy
	Possessive
)

// BreadcrumbKind selects how one path step descends into an object term's target.
type BreadcrumbKind int

const (
	BreadcrumbDot BreadcrumbKind = iota
	BreadcrumbBracket
	BreadcrumbSkip
)
