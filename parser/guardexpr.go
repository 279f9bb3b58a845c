package parser

import (
	"strconv"

	"github.com/mchrisman/tendril/ast"
	"github.com/mchrisman/tendril/token"
)

const (
	precLowest = iota
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
)

func guardPrecedence(t token.Token) int {
	switch t {
	case token.OR:
		return precOr
	case token.AND:
		return precAnd
	case token.EQ, token.NEQ:
		return precEquality
	case token.LT, token.GT, token.LTE, token.GTE:
		return precRelational
	case token.PLUS, token.MINUS:
		return precAdditive
	case token.STAR, token.PERCENT:
		return precMultiplicative
	default:
		return precLowest
	}
}

func guardBinaryOp(t token.Token) ast.GBinaryOp {
	switch t {
	case token.PLUS:
		return ast.OpAdd
	case token.MINUS:
		return ast.OpSub
	case token.STAR:
		return ast.OpMul
	case token.PERCENT:
		return ast.OpMod
	case token.LT:
		return ast.OpLt
	case token.GT:
		return ast.OpGt
	case token.LTE:
		return ast.OpLe
	case token.GTE:
		return ast.OpGe
	case token.EQ:
		return ast.OpEq
	case token.NEQ:
		return ast.OpNe
	case token.AND:
		return ast.OpAnd
	default:
		return ast.OpOr
	}
}

// parseGuardExpr parses a `where` clause's expression with precedence climbing.
func (p *Parser) parseGuardExpr() (ast.GuardExpr, error) {
	return p.parseGuardExprPrec(precLowest)
}

func (p *Parser) parseGuardExprPrec(minPrec int) (ast.GuardExpr, error) {
	left, err := p.parseGuardUnary()
	if err != nil {
		return nil, err
	}
	for {
		prec := guardPrecedence(p.cur().Type)
		if prec == precLowest || prec < minPrec {
			return left, nil
		}
		op := p.advance().Type
		right, err := p.parseGuardExprPrec(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.GBinary{Op: guardBinaryOp(op), Left: left, Right: right}
	}
}

func (p *Parser) parseGuardUnary() (ast.GuardExpr, error) {
	switch p.cur().Type {
	case token.BANG:
		p.advance()
		sub, err := p.parseGuardExprPrec(precUnary)
		if err != nil {
			return nil, err
		}
		return &ast.GUnary{Op: ast.OpNot, Sub: sub}, nil
	case token.MINUS:
		p.advance()
		sub, err := p.parseGuardExprPrec(precUnary)
		if err != nil {
			return nil, err
		}
		return &ast.GUnary{Op: ast.OpNeg, Sub: sub}, nil
	default:
		return p.parseGuardPrimary()
	}
}

func (p *Parser) parseGuardPrimary() (ast.GuardExpr, error) {
	switch p.cur().Type {
	case token.LPAREN:
		p.advance()
		inner, err := p.parseGuardExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	case token.DOLLAR:
		p.advance()
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.GVar{Name: name.Value}, nil
	case token.INT, token.FLOAT:
		t := p.advance()
		n, convErr := strconv.ParseFloat(t.Value, 64)
		if convErr != nil {
			return nil, p.fail("numeric literal")
		}
		return &ast.GLit{Kind: ast.GLitNumber, Num: n}, nil
	case token.STRING:
		t := p.advance()
		return &ast.GLit{Kind: ast.GLitString, Str: t.Value}, nil
	case token.TRUE, token.FALSE:
		t := p.advance()
		return &ast.GLit{Kind: ast.GLitBool, Bool: t.Type == token.TRUE}, nil
	case token.NULL:
		p.advance()
		return &ast.GLit{Kind: ast.GLitNull}, nil
	case token.IDENT:
		return p.parseGuardIdentPrimary()
	default:
		return nil, p.fail("guard expression")
	}
}

func (p *Parser) parseGuardIdentPrimary() (ast.GuardExpr, error) {
	t := p.advance()
	if t.Value == "_" {
		return &ast.GWild{}, nil
	}
	fn, ok := guardCallFuncs[t.Value]
	if !ok || !p.curIs(token.LPAREN) {
		return nil, p.fail("'_' or a guard function call")
	}
	p.advance() // consume '('
	arg, err := p.parseGuardExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.GCall{Func: fn, Arg: arg}, nil
}

var guardCallFuncs = map[string]ast.GCallFunc{
	"number":  ast.CallNumber,
	"string":  ast.CallString,
	"boolean": ast.CallBoolean,
	"size":    ast.CallSize,
}
