package parser

import (
	"regexp"

	"golang.org/x/text/cases"
)

// compileRegex compiles a tendril regex literal body against Go's RE2
// engine. RE2 lacks a few PCRE/JS constructs (backreferences, lookaround);
// patterns relying on those fail to compile here, a documented deviation
// from the source's JS-RegExp-backed semantics (see DESIGN.md).
func compileRegex(body, flags string) (*regexp.Regexp, error) {
	prefix := ""
	for _, f := range flags {
		switch f {
		case 'i':
			prefix += "i"
		case 'm':
			prefix += "m"
		case 's':
			prefix += "s"
		}
	}
	src := body
	if prefix != "" {
		src = "(?" + prefix + ")" + body
	}
	return regexp.Compile(src)
}

var foldCaser = cases.Fold()

// foldEqual reports whether a and b are equal under Unicode case folding,
// used for `/i`-suffixed string literals.
func foldEqual(a, b string) bool {
	return foldCaser.String(a) == foldCaser.String(b)
}
