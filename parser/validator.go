package parser

import (
	"fmt"

	"github.com/mchrisman/tendril/ast"
)

// ValidationError reports an AST-level rule violation found by Validate:
// scope resolution, sigil (slice-kind) conflicts, or a misplaced directive.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// bucketUse records the slice kind and label reference of a bucket name's
// first use. A later use with a different slice kind is rejected; the label
// reference is recorded but not compared, so one bucket name flowing into
// two label scopes is not rejected.
type bucketUse struct {
	kind     ast.SliceKind
	labelRef string
}

// validator walks a compiled pattern tree enforcing §4.1's cross-cutting
// rules: a bucket name is committed to one slice kind for the pattern's
// lifetime, Flow/Collecting only appear inside a container, and an explicit
// `^label` reference names a label actually in scope.
type validator struct {
	labelStack   []string
	containerDep int
	buckets      map[string]bucketUse
	errs         []error
}

// Validate performs the one post-parse walk described in §4.1.
func Validate(pat ast.Pattern) error {
	v := &validator{buckets: map[string]bucketUse{}}
	v.walk(pat)
	if len(v.errs) > 0 {
		return v.errs[0]
	}
	return nil
}

func (v *validator) errorf(format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{Message: fmt.Sprintf(format, args...)})
}

func (v *validator) labelInScope(name string) bool {
	for _, l := range v.labelStack {
		if l == name {
			return true
		}
	}
	return false
}

func (v *validator) checkBucket(name string, kind ast.SliceKind, labelRef string) {
	prev, ok := v.buckets[name]
	if !ok {
		v.buckets[name] = bucketUse{kind: kind, labelRef: labelRef}
		return
	}
	if prev.kind != kind {
		v.errorf("bucket %q used as both array and object slice", name)
	}
}

func (v *validator) walk(pat ast.Pattern) {
	if pat == nil {
		return
	}
	switch n := pat.(type) {
	case *ast.Any, *ast.TypedAny, *ast.Lit, *ast.BoolLit, *ast.NullLit, *ast.StringPattern, *ast.RootKey:
		// leaves
	case *ast.SBind:
		v.walk(n.Sub)
	case *ast.GroupBind:
		v.walk(n.Sub)
	case *ast.Guarded:
		v.walk(n.Sub)
	case *ast.Arr:
		v.enterContainer(n.Label, func() {
			for _, item := range n.Items {
				v.walk(item)
			}
		})
	case *ast.Obj:
		v.enterContainer(n.Label, func() {
			for _, t := range n.Terms {
				v.walk(t)
			}
			if n.Spread != nil {
				v.walk(n.Spread)
			}
		})
	case *ast.OTerm:
		for _, b := range n.Breadcrumbs {
			v.walk(b.Key)
		}
		v.walk(n.KeyPat)
		v.walk(n.Value)
	case *ast.OGroup:
		for _, t := range n.Terms {
			v.walk(t)
		}
	case *ast.OLook:
		if n.Negated {
			v.walk(n.Sub)
			return
		}
		v.errorf("non-negative object lookahead against a remnant is not supported")
	case *ast.Look:
		v.walk(n.Sub)
	case *ast.Alt:
		for _, a := range n.Alts {
			v.walk(a)
		}
	case *ast.Quant:
		v.walk(n.Sub)
	case *ast.Spread:
		// leaf
	case *ast.Flow:
		if v.containerDep == 0 {
			v.errorf("'->' flow directive must appear inside a container pattern")
		}
		if n.LabelRef != "" && !v.labelInScope(n.LabelRef) {
			v.errorf("label %q referenced by '->' is not in scope", n.LabelRef)
		}
		v.checkBucket(n.Bucket, n.Kind, n.LabelRef)
		v.walk(n.Sub)
	case *ast.Collecting:
		if v.containerDep == 0 {
			v.errorf("'<collecting …>' must appear inside a container pattern")
		}
		if n.LabelRef != "" && !v.labelInScope(n.LabelRef) {
			v.errorf("label %q referenced by 'collecting' is not in scope", n.LabelRef)
		}
		if n.Kind == ast.SliceObject && n.Entry.Key == nil {
			v.errorf("object-bucket 'collecting' requires a $k:$v pair")
		}
		if n.Kind == ast.SliceArray && n.Entry.Key != nil {
			v.errorf("array-bucket 'collecting' must not specify a key")
		}
		v.checkBucket(n.Bucket, n.Kind, n.LabelRef)
	case *ast.SlicePattern:
		v.walk(n.Content)
	default:
		v.errorf("unrecognized pattern node %T", pat)
	}
}

func (v *validator) enterContainer(label string, body func()) {
	v.containerDep++
	if label != "" {
		v.labelStack = append(v.labelStack, label)
	}
	body()
	if label != "" {
		v.labelStack = v.labelStack[:len(v.labelStack)-1]
	}
	v.containerDep--
}
