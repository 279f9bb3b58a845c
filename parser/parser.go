// Package parser implements the tendril pattern parser: a hand-written
// recursive-descent parser over the token stream produced by lexer, built
// with ordered-choice backtracking, explicit cut points, and a
// farthest-failure record used to produce precise syntax errors.
package parser

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/mchrisman/tendril/ast"
	"github.com/mchrisman/tendril/lexer"
	"github.com/mchrisman/tendril/token"
	"github.com/mchrisman/tendril/value"
)

// SyntaxError reports a parse failure at the deepest token position the
// parser reached, together with the set of productions it expected there.
type SyntaxError struct {
	Pos      token.Pos
	Expected []string
	Context  []string
	Found    string
}

func (e *SyntaxError) Error() string {
	ctx := ""
	if len(e.Context) > 0 {
		ctx = fmt.Sprintf(" while parsing %v", e.Context)
	}
	return fmt.Sprintf("%s: expected %v, found %s%s", e.Pos, e.Expected, e.Found, ctx)
}

// farthestFailure tracks the deepest failure point seen during a parse, so
// that a chain of backtracked alternatives still reports a single useful
// diagnostic instead of whichever alternative happened to fail last.
type farthestFailure struct {
	pos      int
	tokPos   token.Pos
	expected map[string]bool
	context  []string
	found    string
}

func (f *farthestFailure) record(p *Parser, expected string) {
	cur := p.cur()
	if p.pos > f.pos {
		f.pos = p.pos
		f.tokPos = cur.Pos
		f.expected = map[string]bool{expected: true}
		f.context = append([]string(nil), p.ctxStack...)
		f.found = cur.String()
		return
	}
	if p.pos == f.pos {
		f.expected[expected] = true
	}
}

func (f *farthestFailure) toError() *SyntaxError {
	exp := make([]string, 0, len(f.expected))
	for e := range f.expected {
		exp = append(exp, e)
	}
	return &SyntaxError{Pos: f.tokPos, Expected: exp, Context: f.context, Found: f.found}
}

// savepoint is the {tokenIndex, cutIndex} pair a speculative branch restores
// on failure.
type savepoint struct {
	pos    int
	cutPos int
}

// Parser holds the fully-tokenized input and drives recursive-descent
// parsing with backtracking. Tokenizing up front (rather than streaming)
// makes savepoint/restore a pair of integer assignments.
type Parser struct {
	toks     []token.Item
	pos      int
	cutPos   int
	farthest farthestFailure
	ctxStack []string
}

var parserPool = sync.Pool{
	New: func() any { return &Parser{} },
}

// Get returns a Parser from the pool, tokenized for src.
// Call Put(p) when done to return it to the pool.
func Get(src string) *Parser {
	p := parserPool.Get().(*Parser)
	p.reinit(src)
	return p
}

// Put returns the Parser to the pool.
func Put(p *Parser) {
	parserPool.Put(p)
}

// New creates a Parser for src without going through the pool.
func New(src string) *Parser {
	p := &Parser{}
	p.reinit(src)
	return p
}

func (p *Parser) reinit(src string) {
	lx := lexer.Get(src)
	defer lexer.Put(lx)
	p.toks = p.toks[:0]
	for {
		it := lx.Next()
		p.toks = append(p.toks, it)
		if it.Type == token.EOF {
			break
		}
	}
	p.pos = 0
	p.cutPos = 0
	p.ctxStack = p.ctxStack[:0]
	p.farthest = farthestFailure{expected: map[string]bool{}}
}

func (p *Parser) cur() token.Item { return p.toks[p.pos] }

func (p *Parser) peek() token.Item {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) curIs(t token.Token) bool { return p.cur().Type == t }

func (p *Parser) advance() token.Item {
	it := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return it
}

func (p *Parser) mark() savepoint { return savepoint{pos: p.pos, cutPos: p.cutPos} }

func (p *Parser) reset(sp savepoint) {
	p.pos = sp.pos
	p.cutPos = sp.cutPos
}

// cut commits the current branch: a failure at or after this point is a
// hard syntax error rather than a signal to try a sibling alternative.
func (p *Parser) cut() { p.cutPos = p.pos }

func (p *Parser) pushCtx(name string) { p.ctxStack = append(p.ctxStack, name) }
func (p *Parser) popCtx()             { p.ctxStack = p.ctxStack[:len(p.ctxStack)-1] }

// fail records a farthest-failure entry and returns a soft failure marker.
// Callers that are inside a cut branch (p.cutPos > sp.cutPos for their
// enclosing savepoint) must treat the resulting error as unrecoverable;
// see tryAlts.
func (p *Parser) fail(expected string) error {
	p.farthest.record(p, expected)
	return &SyntaxError{Pos: p.cur().Pos, Expected: []string{expected}, Found: p.cur().String()}
}

func (p *Parser) expect(t token.Token) (token.Item, error) {
	if p.curIs(t) {
		return p.advance(), nil
	}
	return token.Item{}, p.fail(t.String())
}

// skipCommas consumes any run of insignificant commas at the current
// position (commas are significant only inside {m,n} count quantifiers).
func (p *Parser) skipCommas() {
	for p.curIs(token.COMMA) {
		p.advance()
	}
}

// altFn is one candidate production tried by tryAlts.
type altFn func() (ast.Pattern, error)

// tryAlts attempts each candidate in order, backtracking to the shared
// savepoint between attempts. If a candidate commits past the savepoint
// (via cut) and then fails, that failure propagates immediately: a
// committed branch never falls through to a sibling alternative.
func (p *Parser) tryAlts(alts ...altFn) (ast.Pattern, error) {
	sp := p.mark()
	var lastErr error
	for _, fn := range alts {
		p.reset(sp)
		n, err := fn()
		if err == nil {
			return n, nil
		}
		if p.cutPos > sp.cutPos {
			return nil, err
		}
		lastErr = err
	}
	p.reset(sp)
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, p.fail("pattern")
}

// Parse compiles src into a top-level pattern. SlicePattern markers
// (`%{…}`, `@[…]`) are recognized first; otherwise the whole input must be
// a single item followed by EOF.
func (p *Parser) Parse() (ast.Pattern, error) {
	pat, err := p.parseTopLevel()
	if err != nil {
		return nil, p.finalError(err)
	}
	if !p.curIs(token.EOF) {
		p.fail("end of pattern")
		return nil, p.finalError(p.farthest.toError())
	}
	return pat, nil
}

func (p *Parser) finalError(err error) error {
	if se, ok := err.(*SyntaxError); ok {
		if p.farthest.pos > p.pos {
			return p.farthest.toError()
		}
		return se
	}
	return err
}

func (p *Parser) parseTopLevel() (ast.Pattern, error) {
	if p.curIs(token.PERCENT) && p.peek().Type == token.LBRACE {
		start := p.advance().Pos
		p.advance() // consume {
		obj, err := p.parseObjectBody(start)
		if err != nil {
			return nil, err
		}
		return &ast.SlicePattern{Kind: ast.SliceFindObject, Content: obj}, nil
	}
	if p.curIs(token.AT) && p.peek().Type == token.LBRACKET {
		start := p.advance().Pos
		p.advance() // consume [
		arr, err := p.parseArrayBody(start)
		if err != nil {
			return nil, err
		}
		return &ast.SlicePattern{Kind: ast.SliceFindArray, Content: arr}, nil
	}
	return p.parseItem()
}

// parseItem parses the alternation level: a chain of parseAtomChain results
// joined by either all `|` (unordered) or all `else` (ordered); mixing the
// two separators at one level without parentheses is a syntax error.
func (p *Parser) parseItem() (ast.Pattern, error) {
	p.pushCtx("item")
	defer p.popCtx()

	first, err := p.parseAtomChain()
	if err != nil {
		return nil, err
	}
	if !p.curIs(token.PIPE) && !p.curIs(token.ELSE) {
		return p.parseFlowSuffix(first)
	}
	prioritized := p.curIs(token.ELSE)
	alts := []ast.Pattern{first}
	for p.curIs(token.PIPE) || p.curIs(token.ELSE) {
		isElse := p.curIs(token.ELSE)
		if isElse != prioritized {
			return nil, p.fail("consistent alternation separator (| or else, not both)")
		}
		p.advance()
		next, err := p.parseAtomChain()
		if err != nil {
			return nil, err
		}
		alts = append(alts, next)
	}
	return p.parseFlowSuffix(&ast.Alt{Alts: alts, Prioritized: prioritized})
}

// parseFlowSuffix attaches a trailing `->%bucket<^label>` / `->@bucket<^label>`
// flow directive to sub, if present.
func (p *Parser) parseFlowSuffix(sub ast.Pattern) (ast.Pattern, error) {
	if !p.curIs(token.ARROW) {
		return sub, nil
	}
	p.advance()
	p.cut()
	var kind ast.SliceKind
	switch p.cur().Type {
	case token.AT:
		p.advance()
		kind = ast.SliceArray
	case token.PERCENT:
		p.advance()
		kind = ast.SliceObject
	default:
		return nil, p.fail("'@' or '%' after '->'")
	}
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	labelRef := ""
	if p.curIs(token.LT) {
		p.advance()
		if _, err := p.expect(token.CARET); err != nil {
			return nil, err
		}
		label, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		labelRef = label.Value
		if _, err := p.expect(token.GT); err != nil {
			return nil, err
		}
	}
	return &ast.Flow{Sub: sub, Bucket: name.Value, LabelRef: labelRef, Kind: kind}, nil
}

// parseAtomChain parses one non-alternated pattern: an atom, bind, or
// container, with no further suffix handling beyond what its own production
// performs (quantifiers are applied by the container that contains the
// atom, e.g. array elements or object term values).
func (p *Parser) parseAtomChain() (ast.Pattern, error) {
	switch p.cur().Type {
	case token.LPAREN:
		return p.parseGroup()
	case token.DOLLAR:
		return p.parseScalarBind()
	case token.LBRACKET:
		return p.parseArray()
	case token.LBRACE:
		return p.parseObject()
	case token.SECTION:
		return p.parseLabeledContainer()
	case token.LT:
		return p.parseCollecting()
	case token.MINUS:
		return p.parseSignedNumber()
	case token.INT, token.FLOAT:
		return p.parseNumberLit()
	case token.STRING:
		return p.parseStringLit()
	case token.REGEX:
		return p.parseRegexLit()
	case token.TRUE, token.FALSE:
		t := p.advance()
		return &ast.BoolLit{Value: t.Type == token.TRUE}, nil
	case token.NULL:
		p.advance()
		return &ast.NullLit{}, nil
	case token.IDENT:
		return p.parseIdentAtom()
	default:
		return nil, p.fail("pattern atom")
	}
}

func (p *Parser) parseIdentAtom() (ast.Pattern, error) {
	t := p.advance()
	switch t.Value {
	case "_":
		return &ast.Any{}, nil
	case "_string", "_number", "_boolean":
		return &ast.TypedAny{Kind: t.Value[1:]}, nil
	default:
		return &ast.Lit{Value: value.String(t.Value)}, nil
	}
}

func (p *Parser) parseNumberLit() (ast.Pattern, error) {
	t := p.advance()
	n, err := strconv.ParseFloat(t.Value, 64)
	if err != nil {
		return nil, p.fail("numeric literal")
	}
	return &ast.Lit{Value: value.Number(n)}, nil
}

func (p *Parser) parseSignedNumber() (ast.Pattern, error) {
	p.advance() // consume '-'
	if !p.curIs(token.INT) && !p.curIs(token.FLOAT) {
		return nil, p.fail("numeric literal after '-'")
	}
	t := p.advance()
	n, err := strconv.ParseFloat(t.Value, 64)
	if err != nil {
		return nil, p.fail("numeric literal")
	}
	return &ast.Lit{Value: value.Number(-n)}, nil
}

func (p *Parser) parseStringLit() (ast.Pattern, error) {
	t := p.advance()
	if t.CI {
		needle := t.Value
		return &ast.StringPattern{
			Kind: ast.StringCaseInsensitive,
			Desc: t.Value,
			Predicate: func(s string) bool {
				return foldEqual(s, needle)
			},
		}, nil
	}
	return &ast.Lit{Value: value.String(t.Value)}, nil
}

func (p *Parser) parseRegexLit() (ast.Pattern, error) {
	t := p.advance()
	re, err := compileRegex(t.Value, t.Flags)
	if err != nil {
		return nil, p.fail("valid regex literal")
	}
	return &ast.StringPattern{
		Kind:      ast.StringRegex,
		Desc:      "/" + t.Value + "/" + t.Flags,
		Predicate: re.MatchString,
	}, nil
}

// parseScalarBind parses `$name`, the bare-variable binding atom.
func (p *Parser) parseScalarBind() (ast.Pattern, error) {
	p.advance() // consume '$'
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	return &ast.SBind{Name: name.Value, Sub: &ast.Any{}}, nil
}

// parseGroup parses a parenthesized form: a grouping, a scalar/slice bind
// (`... as $x` / `... as @x`), a guard attachment (`... where expr`), an
// object remnant bound by name (`% as %name`), or an anti-remnant (`! %`).
// These forms share a leading '(' and are disambiguated with backtracking.
func (p *Parser) parseGroup() (ast.Pattern, error) {
	start := p.mark()
	if pat, err := p.tryParseAntiRemnant(); err == nil {
		return pat, nil
	} else if p.cutPos > start.cutPos {
		return nil, err
	}
	p.reset(start)
	if pat, err := p.tryParseNamedRemnant(); err == nil {
		return pat, nil
	} else if p.cutPos > start.cutPos {
		return nil, err
	}
	p.reset(start)
	return p.parseGroupedItem()
}

func (p *Parser) tryParseAntiRemnant() (ast.Pattern, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.BANG); err != nil {
		return nil, err
	}
	p.cut()
	if _, err := p.expect(token.PERCENT); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.Spread{Min: 0, Max: 0}, nil
}

func (p *Parser) tryParseNamedRemnant() (ast.Pattern, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.PERCENT); err != nil {
		return nil, err
	}
	p.cut()
	if _, err := p.expect(token.AS); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.PERCENT); err != nil {
		return nil, err
	}
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.Spread{Name: name.Value, Min: 0, Max: -1}, nil
}

// parseGroupedItem parses `( item quant? (as $name|as @name)? (where expr)? )`,
// or `( … as @name )` binding an unconstrained run. A quantifier directly
// inside the parens (only meaningful followed by `as @name`) lets an array
// element bind the whole consumed range as one group, e.g. `($x+? as @run)`.
func (p *Parser) parseGroupedItem() (ast.Pattern, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	if p.curIs(token.ELLIPSIS) {
		p.advance()
		p.cut()
		return p.finishGroupedItem(&ast.Spread{Min: 0, Max: -1})
	}
	inner, err := p.parseItem()
	if err != nil {
		return nil, err
	}
	p.cut()
	min, max, mode, hasQuant, err := p.tryParseQuantifierSuffix()
	if err != nil {
		return nil, err
	}
	if hasQuant {
		inner = &ast.Quant{Sub: inner, Min: min, Max: max, Mode: mode}
	}
	return p.finishGroupedItem(inner)
}

func (p *Parser) finishGroupedItem(inner ast.Pattern) (ast.Pattern, error) {
	pat := inner
	for p.curIs(token.AS) || p.curIs(token.WHERE) {
		if p.curIs(token.AS) {
			p.advance()
			switch p.cur().Type {
			case token.DOLLAR:
				p.advance()
				name, err := p.expect(token.IDENT)
				if err != nil {
					return nil, err
				}
				pat = &ast.SBind{Name: name.Value, Sub: pat}
			case token.AT:
				p.advance()
				name, err := p.expect(token.IDENT)
				if err != nil {
					return nil, err
				}
				pat = &ast.GroupBind{Name: name.Value, Sub: pat, Kind: inferSliceKind(pat)}
			default:
				return nil, p.fail("$name or @name after 'as'")
			}
			continue
		}
		// WHERE
		p.advance()
		expr, err := p.parseGuardExpr()
		if err != nil {
			return nil, err
		}
		if sb, ok := pat.(*ast.SBind); ok && sb.Guard == nil {
			sb.Guard = expr
		} else {
			pat = &ast.Guarded{Sub: pat, Expr: expr}
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return pat, nil
}

// inferSliceKind guesses array vs object slice kind for a group-bound
// sub-pattern: object-shaped sources (object patterns, groups, or a named
// object remnant) produce an object slice; everything else, including plain
// array quantifier ranges, produces an array slice.
func inferSliceKind(pat ast.Pattern) ast.SliceKind {
	switch pat.(type) {
	case *ast.Obj, *ast.OGroup:
		return ast.SliceObject
	case *ast.Spread:
		if sp, ok := pat.(*ast.Spread); ok && sp.Name != "" {
			return ast.SliceObject
		}
	}
	return ast.SliceArray
}

// parseLabeledContainer parses `§name` followed by an array or object
// container and attaches the label.
func (p *Parser) parseLabeledContainer() (ast.Pattern, error) {
	p.advance() // consume '§'
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	switch p.cur().Type {
	case token.LBRACKET:
		arr, err := p.parseArray()
		if err != nil {
			return nil, err
		}
		arr.(*ast.Arr).Label = name.Value
		return arr, nil
	case token.LBRACE:
		obj, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		obj.(*ast.Obj).Label = name.Value
		return obj, nil
	default:
		return nil, p.fail("'[' or '{' after label")
	}
}
