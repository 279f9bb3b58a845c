package parser

import (
	"github.com/mchrisman/tendril/ast"
	"github.com/mchrisman/tendril/token"
)

// parseCollecting parses `<collecting $v in @bucket across ^label>` or
// `<collecting $k:$v in %bucket across ^label>`. $v/$k name variables
// already bound by an enclosing sub-pattern; Collecting's own Sub is the
// implicit Any, since the clause's job is aggregation, not fresh matching.
func (p *Parser) parseCollecting() (ast.Pattern, error) {
	if _, err := p.expect(token.LT); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLLECTING); err != nil {
		return nil, err
	}
	p.cut()

	first, err := p.expect(token.DOLLAR)
	if err != nil {
		return nil, err
	}
	_ = first
	firstName, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}

	var entry ast.CollectEntry
	kind := ast.SliceArray
	if p.curIs(token.COLON) {
		p.advance()
		if _, err := p.expect(token.DOLLAR); err != nil {
			return nil, err
		}
		secondName, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		entry.Key = &ast.SBind{Name: firstName.Value, Sub: &ast.Any{}}
		entry.Value = &ast.SBind{Name: secondName.Value, Sub: &ast.Any{}}
		kind = ast.SliceObject
	} else {
		entry.Value = &ast.SBind{Name: firstName.Value, Sub: &ast.Any{}}
	}

	if _, err := p.expect(token.IN); err != nil {
		return nil, err
	}
	var bucketSigil token.Token
	if kind == ast.SliceObject {
		bucketSigil = token.PERCENT
	} else {
		bucketSigil = token.AT
	}
	if _, err := p.expect(bucketSigil); err != nil {
		return nil, err
	}
	bucket, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}

	labelRef := ""
	if p.curIs(token.ACROSS) {
		p.advance()
		if _, err := p.expect(token.CARET); err != nil {
			return nil, err
		}
		label, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		labelRef = label.Value
	}

	if _, err := p.expect(token.GT); err != nil {
		return nil, err
	}
	return &ast.Collecting{Sub: &ast.Any{}, Entry: entry, Bucket: bucket.Value, LabelRef: labelRef, Kind: kind}, nil
}
