// Package ppexpr parses the small literal-expression grammar used for
// `--define NAME=value` / `-D` command-line definitions and for pragma
// call arguments (spec §4.E's PragmaCall, e.g. `##[[ pragmas.cflags
// '-O2' ]]##`). Both surfaces only ever need literal values, not full
// source-language expressions, so rather than reusing internal/parser's
// recursive-descent grammar this is its own tiny grammar, built with
// participle/v2 the way other_examples/hikitani-easylang__machine.go
// builds its program grammar from struct tags.
package ppexpr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Literal is the parsed result: exactly one of the fields is meaningful,
// selected the way internal/ppval.Value tags its union.
type Literal struct {
	Bool   *BoolLit   `parser:"  @@"`
	Nil    *NilLit     `parser:"| @@"`
	Float  *float64    `parser:"| @Float"`
	Int    *int64      `parser:"| @Int"`
	Str    *string     `parser:"| @String"`
	Ident  *string     `parser:"| @Ident"`
}

// BoolLit and NilLit are their own types so participle can disambiguate
// the literal keywords "true"/"false"/"nil" from a plain identifier.
type BoolLit struct {
	Value bool `parser:"@\"true\" | \"false\""`
}

type NilLit struct {
	Value string `parser:"@\"nil\""`
}

var ppexprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Float", Pattern: `[-+]?\d+\.\d+`},
	{Name: "Int", Pattern: `[-+]?\d+`},
	{Name: "String", Pattern: `"(\\"|[^"])*"|'(\\'|[^'])*'`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Punct", Pattern: `[=,()]`},
})

var literalParser = participle.MustBuild[Literal](
	participle.Lexer(ppexprLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// Parse parses a single literal expression such as `"-O2"`, `true`, `42`,
// or `"some string"`.
func Parse(src string) (*Literal, error) {
	lit, err := literalParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("ppexpr: %w", err)
	}
	return lit, nil
}

// Define is a parsed `--define NAME=value` / `-D NAME=value` CLI entry.
type Define struct {
	Name  string
	Value *Literal
}

// ParseDefine splits "NAME=value" (value optional, defaulting to the
// boolean literal true the way undecorated `-D NAME` flags behave in
// the teacher's preprocessor-style toolchains) and parses the value half
// with Parse.
func ParseDefine(raw string) (Define, error) {
	name, rest, hasEq := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return Define{}, fmt.Errorf("ppexpr: empty define name in %q", raw)
	}
	if !hasEq {
		return Define{Name: name, Value: &Literal{Bool: &BoolLit{Value: true}}}, nil
	}
	lit, err := Parse(rest)
	if err != nil {
		return Define{}, fmt.Errorf("ppexpr: invalid value for %q: %w", name, err)
	}
	return Define{Name: name, Value: lit}, nil
}

// String renders the literal back to source form, used by diagnostics
// and by --print-code when echoing pragma arguments.
func (l *Literal) String() string {
	switch {
	case l.Bool != nil:
		return strconv.FormatBool(l.Bool.Value)
	case l.Nil != nil:
		return "nil"
	case l.Float != nil:
		return strconv.FormatFloat(*l.Float, 'g', -1, 64)
	case l.Int != nil:
		return strconv.FormatInt(*l.Int, 10)
	case l.Str != nil:
		return strconv.Quote(*l.Str)
	case l.Ident != nil:
		return *l.Ident
	}
	return "<empty literal>"
}
