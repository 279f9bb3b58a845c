package parser

import (
	"strconv"

	"github.com/mchrisman/tendril/ast"
	"github.com/mchrisman/tendril/token"
)

// parseArray parses `[ … ]`, already having confirmed the leading '['.
func (p *Parser) parseArray() (ast.Pattern, error) {
	start := p.cur().Pos
	p.advance() // consume '['
	return p.parseArrayBody(start)
}

func (p *Parser) parseArrayBody(_ token.Pos) (ast.Pattern, error) {
	p.pushCtx("array")
	defer p.popCtx()

	var items []ast.Pattern
	for {
		p.skipCommas()
		if p.curIs(token.RBRACKET) {
			break
		}
		if p.curIs(token.EOF) {
			return nil, p.fail("']'")
		}
		if p.curIs(token.ELLIPSIS) {
			p.advance()
			items = append(items, &ast.Spread{Min: 0, Max: -1})
			continue
		}
		elem, err := p.parseArrayElement()
		if err != nil {
			return nil, err
		}
		items = append(items, elem)
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	return &ast.Arr{Items: items}, nil
}

// parseArrayElement parses one array element with its optional trailing
// quantifier (`? ?? ?+ + +? ++ * *? *+ {n} {m,n} {m,} {,n}`).
func (p *Parser) parseArrayElement() (ast.Pattern, error) {
	elem, err := p.parseAtomChain()
	if err != nil {
		return nil, err
	}
	min, max, mode, hasQuant, err := p.tryParseQuantifierSuffix()
	if err != nil {
		return nil, err
	}
	if !hasQuant {
		return elem, nil
	}
	return &ast.Quant{Sub: elem, Min: min, Max: max, Mode: mode}, nil
}

func (p *Parser) tryParseQuantifierSuffix() (min, max int, mode ast.QuantMode, ok bool, err error) {
	switch p.cur().Type {
	case token.QUESTION:
		p.advance()
		return 0, 1, ast.Greedy, true, nil
	case token.LAZYQ:
		p.advance()
		return 0, 1, ast.Lazy, true, nil
	case token.POSSQ:
		p.advance()
		return 0, 1, ast.Possessive, true, nil
	case token.PLUS:
		p.advance()
		return 1, -1, ast.Greedy, true, nil
	case token.LAZYPLUS:
		p.advance()
		return 1, -1, ast.Lazy, true, nil
	case token.POSSPLUS:
		p.advance()
		return 1, -1, ast.Possessive, true, nil
	case token.STAR:
		p.advance()
		return 0, -1, ast.Greedy, true, nil
	case token.LAZYSTAR:
		p.advance()
		return 0, -1, ast.Lazy, true, nil
	case token.POSSSTAR:
		p.advance()
		return 0, -1, ast.Possessive, true, nil
	case token.LBRACE:
		lo, hi, err := p.parseBraceCount()
		if err != nil {
			return 0, 0, 0, false, err
		}
		return lo, hi, ast.Greedy, true, nil
	default:
		return 0, 0, 0, false, nil
	}
}

// parseBraceCount parses `{n}`, `{m,n}`, `{m,}`, or `{,n}`. The comma is
// meaningful here even though it is skipped as insignificant everywhere
// else in the grammar.
func (p *Parser) parseBraceCount() (min, max int, err error) {
	p.advance() // consume '{'
	hasFirst := p.curIs(token.INT)
	first := 0
	if hasFirst {
		first, err = p.parseIntTok()
		if err != nil {
			return 0, 0, err
		}
	}
	if !p.curIs(token.COMMA) {
		if !hasFirst {
			return 0, 0, p.fail("integer or ',' inside {}")
		}
		if _, err := p.expect(token.RBRACE); err != nil {
			return 0, 0, err
		}
		return first, first, nil
	}
	p.advance() // consume ','
	if p.curIs(token.INT) {
		second, err := p.parseIntTok()
		if err != nil {
			return 0, 0, err
		}
		if _, err := p.expect(token.RBRACE); err != nil {
			return 0, 0, err
		}
		return first, second, nil
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return 0, 0, err
	}
	return first, -1, nil
}

func (p *Parser) parseIntTok() (int, error) {
	t, err := p.expect(token.INT)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(t.Value)
	if convErr != nil {
		return 0, p.fail("valid integer")
	}
	return n, nil
}

// parseHashCount parses the object-term count suffix `#{m,n}`.
func (p *Parser) parseHashCount() (min, max int, err error) {
	if _, err := p.expect(token.HASH); err != nil {
		return 0, 0, err
	}
	if !p.curIs(token.LBRACE) {
		return 0, 0, p.fail("'{' after '#'")
	}
	return p.parseBraceCount()
}

// parseObject parses `{ … }`, already having confirmed the leading '{'.
func (p *Parser) parseObject() (ast.Pattern, error) {
	start := p.cur().Pos
	p.advance() // consume '{'
	return p.parseObjectBody(start)
}

func (p *Parser) parseObjectBody(_ token.Pos) (ast.Pattern, error) {
	p.pushCtx("object")
	defer p.popCtx()

	obj := &ast.Obj{}
	for {
		p.skipCommas()
		if p.curIs(token.RBRACE) {
			break
		}
		if p.curIs(token.EOF) {
			return nil, p.fail("'}'")
		}
		if p.curIs(token.LPAREN) {
			next := p.peek().Type
			anti := next == token.BANG && p.pos+2 < len(p.toks) && p.toks[p.pos+2].Type == token.PERCENT
			if next == token.PERCENT || anti {
				pat, err := p.parseGroup()
				if err != nil {
					return nil, err
				}
				obj.Spread = pat.(*ast.Spread)
				continue
			}
		}
		if p.curIs(token.PERCENT) {
			sp, err := p.parseRemnant()
			if err != nil {
				return nil, err
			}
			obj.Spread = sp
			continue
		}
		term, err := p.parseObjectMember()
		if err != nil {
			return nil, err
		}
		obj.Terms = append(obj.Terms, term)
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return obj, nil
}

// parseRemnant parses a bare `%`, `%?`, or `%#{m,n}` remnant (the named
// `(% as %name)` and anti-remnant `(! %)` parenthesized forms are handed by
// parseObjectBody to parseGroup).
func (p *Parser) parseRemnant() (*ast.Spread, error) {
	p.advance() // consume '%'
	if p.curIs(token.QUESTION) {
		p.advance()
		return &ast.Spread{Min: 0, Max: -1}, nil
	}
	if p.curIs(token.HASH) {
		lo, hi, err := p.parseHashCount()
		if err != nil {
			return nil, err
		}
		return &ast.Spread{Min: lo, Max: hi}, nil
	}
	return &ast.Spread{Min: 1, Max: -1}, nil
}

// parseObjectMember parses one object term: an optional leading `each`
// keyword (strong semantics), a lookahead `(? sub)`/`(! sub)`, an `OGroup`
// parenthesized grouping, or a plain `OTerm`.
func (p *Parser) parseObjectMember() (ast.Pattern, error) {
	strong := false
	if p.curIs(token.EACH) {
		p.advance()
		strong = true
	}
	if p.curIs(token.LPAREN) {
		return p.parseObjectParenForm(strong)
	}
	return p.parseOTerm(strong)
}

// parseObjectParenForm disambiguates, via backtracking, between an object
// lookahead `(! sub)`, a group-bind over a parenthesized OGroup
// (`(term…) as @name`), and a plain grouping of terms.
func (p *Parser) parseObjectParenForm(strong bool) (ast.Pattern, error) {
	start := p.mark()
	if pat, err := p.tryParseOLook(); err == nil {
		return pat, nil
	} else if p.cutPos > start.cutPos {
		return nil, err
	}
	p.reset(start)
	return p.parseOGroupOrBind(strong)
}

func (p *Parser) tryParseOLook() (ast.Pattern, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	negated := false
	switch p.cur().Type {
	case token.BANG:
		negated = true
		p.advance()
	case token.QUESTION:
		p.advance()
	default:
		return nil, p.fail("'!' or '?' to open a lookahead")
	}
	p.cut()
	sub, err := p.parseOGroupTerms()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.OLook{Negated: negated, Sub: sub}, nil
}

func (p *Parser) parseOGroupOrBind(strong bool) (ast.Pattern, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	group, err := p.parseOGroupTerms()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if og, ok := group.(*ast.OGroup); ok {
		for i, t := range og.Terms {
			if ot, ok := t.(*ast.OTerm); ok {
				ot.Strong = ot.Strong || strong
				og.Terms[i] = ot
			}
		}
	}
	if p.curIs(token.AS) {
		p.advance()
		if _, err := p.expect(token.AT); err != nil {
			return nil, err
		}
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.GroupBind{Name: name.Value, Sub: group, Kind: ast.SliceObject}, nil
	}
	return group, nil
}

func (p *Parser) parseOGroupTerms() (ast.Pattern, error) {
	var terms []ast.Pattern
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		p.skipCommas()
		if p.curIs(token.RPAREN) {
			break
		}
		t, err := p.parseObjectMember()
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return &ast.OGroup{Terms: terms}, nil
}

// parseOTerm parses `keyPat breadcrumbs? : value optional? count?`.
func (p *Parser) parseOTerm(strong bool) (ast.Pattern, error) {
	keyPat, err := p.parseKeyPattern()
	if err != nil {
		return nil, err
	}
	var crumbs []ast.Breadcrumb
	for {
		switch p.cur().Type {
		case token.DOT:
			p.advance()
			k, err := p.parseKeyPattern()
			if err != nil {
				return nil, err
			}
			crumbs = append(crumbs, ast.Breadcrumb{Kind: ast.BreadcrumbDot, Key: k})
		case token.LBRACKET:
			p.advance()
			idx, err := p.parseAtomChain()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			crumbs = append(crumbs, ast.Breadcrumb{Kind: ast.BreadcrumbBracket, Key: idx})
		case token.SKIP:
			p.advance()
			crumbs = append(crumbs, ast.Breadcrumb{Kind: ast.BreadcrumbSkip, Key: &ast.RootKey{}})
		default:
			goto afterCrumbs
		}
	}
afterCrumbs:
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	val, err := p.parseItem()
	if err != nil {
		return nil, err
	}
	term := &ast.OTerm{KeyPat: keyPat, Breadcrumbs: crumbs, Value: val, Min: 1, Max: -1, Strong: strong}
	if p.curIs(token.QUESTION) {
		p.advance()
		term.Optional = true
		term.Min = 0
	}
	if p.curIs(token.HASH) {
		lo, hi, err := p.parseHashCount()
		if err != nil {
			return nil, err
		}
		term.Min, term.Max = lo, hi
	}
	return term, nil
}

// parseKeyPattern parses the restricted atom grammar valid as an object
// key matcher: a bareword/string literal, a regex/CI string, `_`, or a
// scalar bind `$name`.
func (p *Parser) parseKeyPattern() (ast.Pattern, error) {
	switch p.cur().Type {
	case token.DOLLAR:
		return p.parseScalarBind()
	case token.IDENT:
		return p.parseIdentAtom()
	case token.STRING:
		return p.parseStringLit()
	case token.REGEX:
		return p.parseRegexLit()
	default:
		return nil, p.fail("object key pattern")
	}
}
