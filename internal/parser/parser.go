// Package parser implements a hand-written recursive-descent parser over
// internal/token, producing internal/ast trees. Spec §1/§6 treat the
// grammar/PEG as an external collaborator; this parser is the module's
// own stand-in for it, built in the teacher's idiom
// (confucianzuoyuan-zcc/parse.go: a Token-cursor struct, one method per
// grammar production, precedence-climbing for binary operators) rather
// than a PEG — enough of the source language's surface syntax to drive
// every operation SPEC_FULL.md names.
package parser

import (
	"fmt"
	"strings"

	"github.com/Sondro/nelua-lang/internal/ast"
	"github.com/Sondro/nelua-lang/internal/token"
)

// Error is a parse-time diagnostic (spec §7 "Parse / syntax").
type Error struct {
	File string
	Pos  token.Position
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Pos.Line, e.Pos.Col, e.Msg)
}

// Parser walks a flat token slice with one token of lookahead.
type Parser struct {
	file string
	toks []token.Token
	pos  int
	reg  *ast.Registry
}

// New constructs a Parser over an already-tokenized source. reg is the
// registry every produced node is registered into (spec §3: nodes are
// identity-tracked from the moment they exist).
func New(file string, toks []token.Token, reg *ast.Registry) *Parser {
	return &Parser{file: file, toks: toks, reg: reg}
}

// Parse parses src in full (tokenizing it first) and returns the root
// Block node.
func Parse(file, src string, reg *ast.Registry) (*ast.Node, error) {
	toks, err := token.Tokenize(file, src)
	if err != nil {
		return nil, err
	}
	p := New(file, toks, reg)
	return p.ParseChunk()
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) peek(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}
func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) errorf(format string, args ...any) error {
	return &Error{File: p.file, Pos: p.cur().Pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) isPunct(s string) bool {
	return p.cur().Kind == token.Punct && p.cur().Text == s
}

func (p *Parser) isKeyword(s string) bool {
	return p.cur().Kind == token.Keyword && p.cur().Text == s
}

func (p *Parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.errorf("expected %q, got %q", s, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *Parser) expectKeyword(s string) error {
	if !p.isKeyword(s) {
		return p.errorf("expected %q, got %q", s, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *Parser) register(n *ast.Node) *ast.Node {
	p.reg.Register(n)
	return n
}

// ParseChunk parses a whole source file/eval string as the top-level
// Block (spec §8 scenario 1: "an AST dump whose first tag is Block").
func (p *Parser) ParseChunk() (*ast.Node, error) {
	block, err := p.parseBlockUntil(func() bool { return p.cur().Kind == token.EOF })
	if err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseBlockUntil(stop func() bool) (*ast.Node, error) {
	pos := p.cur().Pos
	var stmts []*ast.Node
	for !stop() && p.cur().Kind != token.EOF {
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if st != nil {
			stmts = append(stmts, st)
		}
	}
	return p.register(ast.New(ast.Block, pos, stmts...)), nil
}

func blockEndKeyword(p *Parser) bool {
	return p.isKeyword("end") || p.isKeyword("else") || p.isKeyword("elseif") || p.isKeyword("until")
}

func (p *Parser) parseStatement() (*ast.Node, error) {
	for p.isPunct(";") {
		p.advance()
	}
	tok := p.cur()
	switch {
	case tok.Kind == token.EOF || blockEndKeyword(p):
		return nil, nil
	case tok.Kind == token.PPStmt:
		return p.parsePreprocessStmt()
	case p.isKeyword("local"):
		return p.parseLocalDecl()
	case p.isKeyword("global"):
		return p.parseGlobalDecl()
	case p.isKeyword("function"):
		return p.parseFunctionDecl()
	case p.isKeyword("if"):
		return p.parseIf()
	case p.isKeyword("while"):
		return p.parseWhile()
	case p.isKeyword("repeat"):
		return p.parseRepeat()
	case p.isKeyword("for"):
		return p.parseFor()
	case p.isKeyword("return"):
		return p.parseReturn()
	case p.isKeyword("break"):
		p.advance()
		return p.register(ast.New(ast.Break, tok.Pos)), nil
	case p.isKeyword("continue"):
		p.advance()
		return p.register(ast.New(ast.Continue, tok.Pos)), nil
	case p.isKeyword("require"):
		return p.parseRequire()
	case p.isKeyword("do"):
		p.advance()
		blk, err := p.parseBlockUntil(func() bool { return p.isKeyword("end") })
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("end"); err != nil {
			return nil, err
		}
		return blk, nil
	default:
		return p.parseExprStatement()
	}
}

// parseExprStatement parses either an assignment (`lhs = expr`) or a bare
// expression statement (a call, typically — e.g. `print "hello world"`).
func (p *Parser) parseExprStatement() (*ast.Node, error) {
	pos := p.cur().Pos
	lhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.isPunct("=") {
		p.advance()
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return p.register(ast.New(ast.Assign, pos, lhs, rhs)), nil
	}
	return lhs, nil
}

func (p *Parser) parseLocalDecl() (*ast.Node, error) {
	pos := p.cur().Pos
	p.advance() // 'local'
	if p.isKeyword("function") {
		return p.parseNamedFunction(ast.FunctionDecl, true)
	}
	nameTok, err := p.identOrPPName()
	if err != nil {
		return nil, err
	}
	id := p.register(ast.New(ast.Id, nameTok.Pos))
	id.Str = nameTok.Text
	var typeAttr string
	if p.isPunct(":") {
		p.advance()
		tnTok, err := p.identOrPPName()
		if err != nil {
			return nil, err
		}
		typeAttr = tnTok.Text
	}
	var init *ast.Node
	if p.isPunct("=") {
		p.advance()
		init, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	n := p.register(ast.New(ast.LocalDecl, pos, id, init))
	if typeAttr != "" {
		n.SetAttr("decltype", typeAttr)
	}
	return n, nil
}

func (p *Parser) parseGlobalDecl() (*ast.Node, error) {
	n, err := p.parseLocalDecl() // same shape, different tag
	if err != nil {
		return nil, err
	}
	n.Tag = ast.GlobalDecl
	return n, nil
}

// identOrPPName accepts either a plain identifier token or a PPName
// directive (`#|expr|#`), matching spec §4.E's "PreprocessName — identifier
// position, evaluated to a string then interned as a name". The PPName
// case is resolved later, during analysis/preprocessing; the parser just
// records which form was used.
func (p *Parser) identOrPPName() (token.Token, error) {
	if p.cur().Kind == token.Ident || p.cur().Kind == token.PPName {
		return p.advance(), nil
	}
	return token.Token{}, p.errorf("expected an identifier, got %q", p.cur().Text)
}

func (p *Parser) parseFunctionDecl() (*ast.Node, error) {
	return p.parseNamedFunction(ast.FunctionDecl, false)
}

func (p *Parser) parseNamedFunction(tag ast.Tag, isLocal bool) (*ast.Node, error) {
	pos := p.cur().Pos
	p.advance() // 'function' (or already consumed 'local' by caller)
	nameTok, err := p.identOrPPName()
	if err != nil {
		return nil, err
	}
	nameNode := p.register(ast.New(ast.Id, nameTok.Pos))
	nameNode.Str = nameTok.Text

	fn, err := p.parseFunctionBody(pos)
	if err != nil {
		return nil, err
	}
	n := p.register(ast.New(tag, pos, nameNode, fn))
	n.SetAttr("islocal", isLocal)
	return n, nil
}

// parseFunctionBody parses "(" params ")" block "end", returning a
// FunctionExpr node whose children are [paramList, body].
func (p *Parser) parseFunctionBody(pos token.Position) (*ast.Node, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var params []*ast.Node
	for !p.isPunct(")") {
		pnameTok, err := p.identOrPPName()
		if err != nil {
			return nil, err
		}
		pnode := p.register(ast.New(ast.Id, pnameTok.Pos))
		pnode.Str = pnameTok.Text
		if p.isPunct(":") {
			p.advance()
			var tnTok token.Token
			if p.isKeyword("auto") {
				tnTok = p.advance()
			} else if tnTok, err = p.identOrPPName(); err != nil {
				return nil, err
			}
			pnode.SetAttr("decltype", tnTok.Text)
		}
		params = append(params, pnode)
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	var retType string
	if p.isPunct(":") {
		p.advance()
		tnTok, err := p.identOrPPName()
		if err != nil {
			return nil, err
		}
		retType = tnTok.Text
	}
	body, err := p.parseBlockUntil(func() bool { return p.isKeyword("end") })
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	paramList := p.register(ast.New(ast.List, pos, params...))
	fn := p.register(ast.New(ast.FunctionExpr, pos, paramList, body))
	if retType != "" {
		fn.SetAttr("rettype", retType)
	}
	return fn, nil
}

func (p *Parser) parseIf() (*ast.Node, error) {
	pos := p.cur().Pos
	p.advance() // 'if'
	var clauses []*ast.Node
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("then"); err != nil {
		return nil, err
	}
	thenBlk, err := p.parseBlockUntil(func() bool {
		return p.isKeyword("end") || p.isKeyword("else") || p.isKeyword("elseif")
	})
	if err != nil {
		return nil, err
	}
	clauses = append(clauses, cond, thenBlk)
	for p.isKeyword("elseif") {
		p.advance()
		c, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("then"); err != nil {
			return nil, err
		}
		b, err := p.parseBlockUntil(func() bool {
			return p.isKeyword("end") || p.isKeyword("else") || p.isKeyword("elseif")
		})
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c, b)
	}
	if p.isKeyword("else") {
		p.advance()
		b, err := p.parseBlockUntil(func() bool { return p.isKeyword("end") })
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, nil, b)
	}
	if err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	return p.register(ast.New(ast.If, pos, clauses...)), nil
}

func (p *Parser) parseWhile() (*ast.Node, error) {
	pos := p.cur().Pos
	p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("do"); err != nil {
		return nil, err
	}
	body, err := p.parseBlockUntil(func() bool { return p.isKeyword("end") })
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	return p.register(ast.New(ast.While, pos, cond, body)), nil
}

func (p *Parser) parseRepeat() (*ast.Node, error) {
	pos := p.cur().Pos
	p.advance()
	body, err := p.parseBlockUntil(func() bool { return p.isKeyword("until") })
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("until"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return p.register(ast.New(ast.Repeat, pos, body, cond)), nil
}

func (p *Parser) parseFor() (*ast.Node, error) {
	pos := p.cur().Pos
	p.advance()
	nameTok, err := p.identOrPPName()
	if err != nil {
		return nil, err
	}
	nameNode := p.register(ast.New(ast.Id, nameTok.Pos))
	nameNode.Str = nameTok.Text

	if p.isPunct("=") {
		p.advance()
		start, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(","); err != nil {
			return nil, err
		}
		stop, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		var step *ast.Node
		if p.isPunct(",") {
			p.advance()
			step, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if err := p.expectKeyword("do"); err != nil {
			return nil, err
		}
		body, err := p.parseBlockUntil(func() bool { return p.isKeyword("end") })
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("end"); err != nil {
			return nil, err
		}
		return p.register(ast.New(ast.ForNum, pos, nameNode, start, stop, step, body)), nil
	}

	names := []*ast.Node{nameNode}
	for p.isPunct(",") {
		p.advance()
		t, err := p.identOrPPName()
		if err != nil {
			return nil, err
		}
		nn := p.register(ast.New(ast.Id, t.Pos))
		nn.Str = t.Text
		names = append(names, nn)
	}
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("do"); err != nil {
		return nil, err
	}
	body, err := p.parseBlockUntil(func() bool { return p.isKeyword("end") })
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	nameList := p.register(ast.New(ast.List, pos, names...))
	return p.register(ast.New(ast.ForIn, pos, nameList, iter, body)), nil
}

func (p *Parser) parseReturn() (*ast.Node, error) {
	pos := p.cur().Pos
	p.advance()
	var vals []*ast.Node
	if !blockEndKeyword(p) && p.cur().Kind != token.EOF {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		for p.isPunct(",") {
			p.advance()
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
	}
	list := p.register(ast.New(ast.List, pos, vals...))
	return p.register(ast.New(ast.Return, pos, list)), nil
}

func (p *Parser) parseRequire() (*ast.Node, error) {
	pos := p.cur().Pos
	p.advance()
	parens := p.isPunct("(")
	if parens {
		p.advance()
	}
	if p.cur().Kind != token.String {
		return nil, p.errorf("expected a module path string after 'require'")
	}
	pathTok := p.advance()
	if parens {
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	n := p.register(ast.New(ast.Require, pos))
	n.Str = pathTok.Text
	return n, nil
}

func (p *Parser) parsePreprocessStmt() (*ast.Node, error) {
	tok := p.advance()
	n := p.register(ast.New(ast.Preprocess, tok.Pos))
	n.Str = tok.Text
	return n, nil
}

// ---- expressions ----

var binPrec = map[string]int{
	"or": 1, "and": 2,
	"==": 3, "~=": 3, "<": 3, "<=": 3, ">": 3, ">=": 3,
	"..": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "//": 6, "%": 6,
	"&": 2, "|": 2, "~": 2, "<<": 2, ">>": 2,
	"^": 8,
}

func (p *Parser) parseExpr() (*ast.Node, error) { return p.parseBinExpr(0) }

func (p *Parser) parseBinExpr(minPrec int) (*ast.Node, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		opTok := p.cur()
		op := opTok.Text
		isOp := (opTok.Kind == token.Punct || opTok.Kind == token.Keyword)
		prec, ok := binPrec[op]
		if !isOp || !ok || prec < minPrec {
			return lhs, nil
		}
		p.advance()
		nextMin := prec + 1
		if op == ".." || op == "^" {
			nextMin = prec // right-associative
		}
		rhs, err := p.parseBinExpr(nextMin)
		if err != nil {
			return nil, err
		}
		n := p.register(ast.New(ast.BinOp, opTok.Pos, lhs, rhs))
		n.Str = op
		lhs = n
	}
}

var unaryOps = map[string]bool{"-": true, "not": true, "#": true, "~": true}

func (p *Parser) parseUnary() (*ast.Node, error) {
	tok := p.cur()
	if (tok.Kind == token.Punct || tok.Kind == token.Keyword) && unaryOps[tok.Text] {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := p.register(ast.New(ast.UnOp, tok.Pos, operand))
		n.Str = tok.Text
		return n, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (*ast.Node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isPunct("("):
			expr, err = p.finishCall(expr)
			if err != nil {
				return nil, err
			}
		case p.cur().Kind == token.String:
			// sugar call: `print "hello world"`.
			str := p.advance()
			arg := p.register(ast.New(ast.StringLit, str.Pos))
			arg.Str = str.Text
			args := p.register(ast.New(ast.List, str.Pos, arg))
			expr = p.register(ast.New(ast.Call, str.Pos, args, expr))
		case p.isPunct("."):
			p.advance()
			nameTok, err := p.identOrPPName()
			if err != nil {
				return nil, err
			}
			field := p.register(ast.New(ast.Id, nameTok.Pos))
			field.Str = nameTok.Text
			expr = p.register(ast.New(ast.DotIndex, nameTok.Pos, expr, field))
		case p.isPunct("["):
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			expr = p.register(ast.New(ast.Index, idx.Pos, expr, idx))
		default:
			return expr, nil
		}
	}
}

func (p *Parser) finishCall(callee *ast.Node) (*ast.Node, error) {
	pos := p.cur().Pos
	p.advance() // '('
	var args []*ast.Node
	for !p.isPunct(")") {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	argList := p.register(ast.New(ast.List, pos, args...))
	return p.register(ast.New(ast.Call, pos, argList, callee)), nil
}

func (p *Parser) parsePrimary() (*ast.Node, error) {
	tok := p.cur()
	switch {
	case tok.Kind == token.Number:
		p.advance()
		n := p.register(ast.New(ast.NumberLit, tok.Pos))
		n.Str = tok.Text
		n.Suffix = tok.Suffix
		return n, nil
	case tok.Kind == token.String:
		p.advance()
		n := p.register(ast.New(ast.StringLit, tok.Pos))
		n.Str = tok.Text
		return n, nil
	case p.isKeyword("true"), p.isKeyword("false"):
		p.advance()
		n := p.register(ast.New(ast.BoolLit, tok.Pos))
		n.Bool = tok.Text == "true"
		return n, nil
	case p.isKeyword("nil"):
		p.advance()
		return p.register(ast.New(ast.NilLit, tok.Pos)), nil
	case p.isKeyword("nilptr"):
		p.advance()
		return p.register(ast.New(ast.NilPtrLit, tok.Pos)), nil
	case p.isPunct("..."):
		p.advance()
		return p.register(ast.New(ast.VarArgLit, tok.Pos)), nil
	case p.isKeyword("function"):
		p.advance()
		return p.parseFunctionBody(tok.Pos)
	case p.isPunct("("):
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return p.register(ast.New(ast.Paren, tok.Pos, inner)), nil
	case tok.Kind == token.PPExpr:
		p.advance()
		n := p.register(ast.New(ast.PreprocessExpr, tok.Pos))
		n.Str = tok.Text
		return n, nil
	case tok.Kind == token.PPName:
		p.advance()
		n := p.register(ast.New(ast.PreprocessName, tok.Pos))
		n.Str = tok.Text
		return n, nil
	case tok.Kind == token.Ident || tok.Kind == token.Keyword:
		p.advance()
		n := p.register(ast.New(ast.Id, tok.Pos))
		n.Str = tok.Text
		return n, nil
	default:
		return nil, p.errorf("unexpected token %q", tok.Text)
	}
}

// trimQuotes is a small helper kept for callers that need to normalize a
// raw string-literal token's surrounding quote characters when they were
// not already stripped by the lexer.
func trimQuotes(s string) string {
	return strings.Trim(s, `"'`)
}
