// Package guard implements the tiny, strictly-typed expression language
// used inside a pattern's `where …` clauses: literals, bound variables,
// the anonymous `_`, arithmetic, comparison, logic, and four cast/size
// built-ins. It deliberately does not share an evaluator with any
// host-language expression type — see DESIGN.md.
package guard

import (
	"fmt"
	"strconv"

	"github.com/mchrisman/tendril/ast"
	"github.com/mchrisman/tendril/value"
)

// UnboundVarError reports a guard variable with no binding in env yet.
// The search engine defers a guard until every variable it requires is
// bound, before calling Eval; an error returned from Eval fails the branch.
type UnboundVarError struct{ Name string }

func (e *UnboundVarError) Error() string { return fmt.Sprintf("unbound guard variable $%s", e.Name) }

// TypeError reports an arithmetic or comparison over incompatible types.
// Like UnboundVarError, it fails the branch that raised it.
type TypeError struct{ Message string }

func (e *TypeError) Error() string { return e.Message }

// Env is the variable bindings a guard expression evaluates against.
type Env map[string]value.Value

// Eval evaluates expr against env, with wildcard bound as the value of `_`.
func Eval(expr ast.GuardExpr, env Env, wildcard value.Value) (value.Value, error) {
	switch n := expr.(type) {
	case *ast.GLit:
		return evalLit(n), nil
	case *ast.GWild:
		return wildcard, nil
	case *ast.GVar:
		v, ok := env[n.Name]
		if !ok {
			return nil, &UnboundVarError{Name: n.Name}
		}
		return v, nil
	case *ast.GUnary:
		return evalUnary(n, env, wildcard)
	case *ast.GBinary:
		return evalBinary(n, env, wildcard)
	case *ast.GCall:
		return evalCall(n, env, wildcard)
	default:
		return nil, &TypeError{Message: fmt.Sprintf("unsupported guard expression %T", expr)}
	}
}

func evalLit(n *ast.GLit) value.Value {
	switch n.Kind {
	case ast.GLitNumber:
		return value.Number(n.Num)
	case ast.GLitString:
		return value.String(n.Str)
	case ast.GLitBool:
		return value.Bool(n.Bool)
	default:
		return value.Null{}
	}
}

func evalUnary(n *ast.GUnary, env Env, wildcard value.Value) (value.Value, error) {
	v, err := Eval(n.Sub, env, wildcard)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ast.OpNot:
		b, ok := v.(value.Bool)
		if !ok {
			return nil, &TypeError{Message: "'!' requires a boolean operand"}
		}
		return value.Bool(!b), nil
	case ast.OpNeg:
		num, ok := v.(value.Number)
		if !ok {
			return nil, &TypeError{Message: "unary '-' requires a numeric operand"}
		}
		return value.Number(-num), nil
	default:
		return nil, &TypeError{Message: "unsupported unary operator"}
	}
}

func evalBinary(n *ast.GBinary, env Env, wildcard value.Value) (value.Value, error) {
	// && and || short-circuit and require boolean operands throughout.
	if n.Op == ast.OpAnd || n.Op == ast.OpOr {
		left, err := Eval(n.Left, env, wildcard)
		if err != nil {
			return nil, err
		}
		lb, ok := left.(value.Bool)
		if !ok {
			return nil, &TypeError{Message: "'&&'/'||' requires boolean operands"}
		}
		if n.Op == ast.OpAnd && !bool(lb) {
			return value.Bool(false), nil
		}
		if n.Op == ast.OpOr && bool(lb) {
			return value.Bool(true), nil
		}
		right, err := Eval(n.Right, env, wildcard)
		if err != nil {
			return nil, err
		}
		rb, ok := right.(value.Bool)
		if !ok {
			return nil, &TypeError{Message: "'&&'/'||' requires boolean operands"}
		}
		return rb, nil
	}

	left, err := Eval(n.Left, env, wildcard)
	if err != nil {
		return nil, err
	}
	right, err := Eval(n.Right, env, wildcard)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.OpEq:
		return value.Bool(value.Equal(left, right)), nil
	case ast.OpNe:
		return value.Bool(!value.Equal(left, right)), nil
	}

	ln, lok := left.(value.Number)
	rn, rok := right.(value.Number)
	if !lok || !rok {
		return nil, &TypeError{Message: "arithmetic and relational operators require numeric operands"}
	}
	switch n.Op {
	case ast.OpAdd:
		return ln + rn, nil
	case ast.OpSub:
		return ln - rn, nil
	case ast.OpMul:
		return ln * rn, nil
	case ast.OpMod:
		if rn == 0 {
			return nil, &TypeError{Message: "modulo by zero"}
		}
		li, ri := int64(ln), int64(rn)
		return value.Number(li % ri), nil
	case ast.OpLt:
		return value.Bool(ln < rn), nil
	case ast.OpGt:
		return value.Bool(ln > rn), nil
	case ast.OpLe:
		return value.Bool(ln <= rn), nil
	case ast.OpGe:
		return value.Bool(ln >= rn), nil
	default:
		return nil, &TypeError{Message: "unsupported binary operator"}
	}
}

func evalCall(n *ast.GCall, env Env, wildcard value.Value) (value.Value, error) {
	arg, err := Eval(n.Arg, env, wildcard)
	if err != nil {
		return nil, err
	}
	switch n.Func {
	case ast.CallNumber:
		return castNumber(arg)
	case ast.CallString:
		return castString(arg), nil
	case ast.CallBoolean:
		return castBoolean(arg), nil
	case ast.CallSize:
		return castSize(arg)
	default:
		return nil, &TypeError{Message: "unsupported guard call"}
	}
}

func castNumber(v value.Value) (value.Value, error) {
	switch vv := v.(type) {
	case value.Number:
		return vv, nil
	case value.String:
		n, err := strconv.ParseFloat(string(vv), 64)
		if err != nil {
			return nil, &TypeError{Message: fmt.Sprintf("number(%q) is not numeric", string(vv))}
		}
		return value.Number(n), nil
	case value.Bool:
		if vv {
			return value.Number(1), nil
		}
		return value.Number(0), nil
	default:
		return nil, &TypeError{Message: "number() requires a string, number, or boolean"}
	}
}

func castString(v value.Value) value.Value {
	switch vv := v.(type) {
	case value.String:
		return vv
	case value.Number:
		return value.String(strconv.FormatFloat(float64(vv), 'g', -1, 64))
	case value.Bool:
		if vv {
			return value.String("true")
		}
		return value.String("false")
	case value.Null:
		return value.String("null")
	default:
		return value.String(value.Kind(v))
	}
}

func castBoolean(v value.Value) value.Value {
	switch vv := v.(type) {
	case value.Bool:
		return vv
	case value.Number:
		return value.Bool(vv != 0)
	case value.String:
		return value.Bool(vv != "")
	case value.Null:
		return value.Bool(false)
	default:
		return value.Bool(true)
	}
}

func castSize(v value.Value) (value.Value, error) {
	switch vv := v.(type) {
	case value.String:
		return value.Number(len([]rune(string(vv)))), nil
	case value.Sequence:
		return value.Number(len(vv)), nil
	case *value.Mapping:
		return value.Number(vv.Len()), nil
	default:
		return nil, &TypeError{Message: "size() requires a string, array, or object"}
	}
}

// RequiredVars returns the set of $variable names expr references, used by
// the search engine to decide when a deferred guard has become fully closed.
func RequiredVars(expr ast.GuardExpr) map[string]bool {
	out := map[string]bool{}
	collectVars(expr, out)
	return out
}

func collectVars(expr ast.GuardExpr, out map[string]bool) {
	switch n := expr.(type) {
	case *ast.GVar:
		out[n.Name] = true
	case *ast.GUnary:
		collectVars(n.Sub, out)
	case *ast.GBinary:
		collectVars(n.Left, out)
		collectVars(n.Right, out)
	case *ast.GCall:
		collectVars(n.Arg, out)
	}
}
