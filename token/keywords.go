package token

// keywords maps reserved lowercase words to their token kind. Tendril's
// keyword set is deliberately tiny: almost everything that reads like a
// keyword in the DSL surface (number, string, boolean, size, each's sibling
// "strong" marker) is an ordinary identifier interpreted contextually by the
// parser, not a lexical reservation — this mirrors the teacher's own
// func-name-vs-keyword split (COUNT, SUM, MAX are ordinary IDENTs in
// token.go, not keywords) even though tendril's keyword list itself is new.
var keywords = map[string]Token{
	"true":       TRUE,
	"false":      FALSE,
	"null":       NULL,
	"as":         AS,
	"where":      WHERE,
	"each":       EACH,
	"else":       ELSE,
	"in":         IN,
	"across":     ACROSS,
	"collecting": COLLECTING,
}

// LookupIdent returns the keyword token for s, or IDENT if s is not reserved.
func LookupIdent(s string) Token {
	if tok, ok := keywords[s]; ok {
		return tok
	}
	return IDENT
}
