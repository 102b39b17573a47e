// Package codegen implements the portable-C code generator spec §4.F/§4.G
// describes: it walks an internal/analyzer-produced AST (every expression
// node carrying a concrete internal/types.Type in its AttrType attribute)
// and lowers it to C text through internal/emitter's three-region buffer,
// calling into internal/cbuiltins for every helper the source language's
// arithmetic/comparison/print semantics need that plain C operators don't
// already provide correctly (floor division, deterministic shifts,
// polymorphic print, and so on).
//
// Grounded on the teacher's codegen.go in spirit only: that file targets
// x86-64 assembly text with register/stack-slot bookkeeping this backend
// has no use for (portable C leaves storage allocation to the downstream
// C compiler). What carries over is the *shape* — one genExpr/genStmt
// pair dispatching on the node tag, appending formatted lines to a single
// growing buffer — generalized here to internal/emitter's region-split,
// dedup-aware buffer instead of one flat asm listing.
package codegen

import (
	"fmt"
	"strings"

	"github.com/Sondro/nelua-lang/internal/ast"
	"github.com/Sondro/nelua-lang/internal/cbuiltins"
	"github.com/Sondro/nelua-lang/internal/emitter"
	"github.com/Sondro/nelua-lang/internal/types"
)

// Generator lowers one analyzed translation unit to C source text.
type Generator struct {
	e        *emitter.Emitter
	interner *types.Interner
}

// New constructs a Generator. interner is the same one the analyzer used,
// so primitive type identities (and hence C type mappings) line up.
func New(interner *types.Interner) *Generator {
	return &Generator{e: emitter.New(), interner: interner}
}

// Gen lowers root (the analyzer's fully-typed output Block) to a complete
// C translation unit and returns its text. Top-level function
// declarations become standalone C functions (forward-declared so mutual
// recursion works, matching the analyzer's own forward-declaring marker
// pass); every other top-level statement is collected into `main`.
func (g *Generator) Gen(root *ast.Node) string {
	cbuiltins.EnsurePlatformMacros(g.e)
	g.e.EnsureInclude("stdio.h")
	g.e.EnsureInclude("stdint.h")
	g.e.EnsureInclude("stdbool.h")

	var requiredFns []*ast.Node
	collectRequiredFunctions(root, &requiredFns)
	for _, fn := range requiredFns {
		g.genFunctionDecl(fn)
	}

	var mainBody []*ast.Node
	for _, stmt := range root.Children {
		if stmt.Tag == ast.FunctionDecl {
			g.genFunctionDecl(stmt)
			continue
		}
		mainBody = append(mainBody, stmt)
	}

	g.e.Emit(emitter.Definitions, "int main(void) {")
	g.e.Indent()
	for _, stmt := range mainBody {
		g.genStmt(stmt)
	}
	g.e.Emit(emitter.Definitions, "return 0;")
	g.e.Dedent()
	g.e.Emit(emitter.Definitions, "}")
	return g.e.String()
}

// attrType reads the internal/types.Type an analyzer pass attached to n,
// or nil if n was never typed (a statement node, or a failed inference).
func attrType(n *ast.Node) types.Type {
	v, ok := n.Attr(ast.AttrType)
	if !ok {
		return nil
	}
	t, _ := v.(types.Type)
	return t
}

// cname renders a source identifier as a C identifier, prefixed to dodge
// any collision with a C keyword or one of cbuiltins' own "nelua_"-prefixed
// helper names.
func cname(s string) string { return "nlv_" + s }

func (g *Generator) genFunctionDecl(n *ast.Node) {
	nameNode, fn := n.Child(0), n.Child(1)
	params, body := fn.Child(0), fn.Child(1)

	fnType, _ := attrType(n).(*types.Function)
	retCType := "void"
	if fnType != nil && len(fnType.Rets) > 0 {
		g.ensureTypeSupport(fnType.Rets[0])
		retCType = cbuiltins.CTypeName(fnType.Rets[0])
	}

	var paramDecls []string
	for i, p := range params.Children {
		pt := types.Type(g.interner.Prim(types.ISize))
		if fnType != nil && i < len(fnType.Args) && fnType.Args[i] != nil {
			pt = fnType.Args[i]
		}
		g.ensureTypeSupport(pt)
		paramDecls = append(paramDecls, fmt.Sprintf("%s %s", cbuiltins.CTypeName(pt), cname(p.Str)))
	}
	sig := fmt.Sprintf("%s %s(%s)", retCType, cname(nameNode.Str), strings.Join(paramDecls, ", "))
	g.e.AddDeclaration("fnproto:"+nameNode.Str, sig+";")

	g.e.Emit(emitter.Definitions, "%s {", sig)
	g.e.Indent()
	for _, stmt := range body.Children {
		g.genStmt(stmt)
	}
	g.e.Dedent()
	g.e.Emit(emitter.Definitions, "}")
}

func (g *Generator) genStmt(n *ast.Node) {
	switch n.Tag {
	case ast.LocalDecl, ast.GlobalDecl:
		g.genDecl(n)
	case ast.Assign:
		g.genAssign(n)
	case ast.If:
		g.genIf(n)
	case ast.While:
		g.e.Emit(emitter.Definitions, "while (%s) {", g.genExpr(n.Child(0)))
		g.e.Indent()
		g.genBlock(n.Child(1))
		g.e.Dedent()
		g.e.Emit(emitter.Definitions, "}")
	case ast.Repeat:
		g.e.Emit(emitter.Definitions, "do {")
		g.e.Indent()
		g.genBlock(n.Child(0))
		g.e.Dedent()
		g.e.Emit(emitter.Definitions, "} while (!(%s));", g.genExpr(n.Child(1)))
	case ast.ForNum:
		g.genForNum(n)
	case ast.ForIn:
		// The language's generic-iterator protocol has no concrete
		// representation yet in this parser's surface syntax (no
		// iterator-producing builtins are implemented); a complete
		// implementation would lower to a call-based three-value
		// iteration loop here.
		g.e.Emit(emitter.Definitions, "/* for-in loop body intentionally unlowered: no iterator builtins implemented */")
	case ast.Return:
		list := n.Child(0)
		if len(list.Children) == 0 {
			g.e.Emit(emitter.Definitions, "return;")
		} else {
			g.e.Emit(emitter.Definitions, "return %s;", g.genExpr(list.Children[0]))
		}
	case ast.Break:
		g.e.Emit(emitter.Definitions, "break;")
	case ast.Continue:
		g.e.Emit(emitter.Definitions, "continue;")
	case ast.Require:
		g.genRequire(n)
	case ast.Preprocess, ast.PreprocessExpr, ast.PreprocessName:
		// consumed entirely during analysis; any nodes it injected were
		// spliced in as this node's siblings and are emitted in their own
		// right as this loop continues.
	case ast.FunctionDecl:
		g.genFunctionDecl(n)
	default:
		g.e.Emit(emitter.Definitions, "%s;", g.genExpr(n))
	}
}

// genRequire emits the required module's non-function top-level
// statements inline at the require site, guarded by EnsureRequireGuard
// so requiring the same module from two call sites only runs its
// top-level side effects once (spec §4.G/§9 "require"). The module's
// own top-level function declarations are not emitted here: they were
// already hoisted to file scope by Gen's collectRequiredFunctions pass,
// since a C function definition cannot be nested inside another one's
// braces (which this call site, mid-statement inside some enclosing
// function body, always is).
func (g *Generator) genRequire(n *ast.Node) {
	loaded, ok := n.Attr(ast.AttrLoadedAST)
	if !ok {
		return
	}
	root, ok := loaded.(*ast.Node)
	if !ok {
		return
	}
	_, alreadyEmitted := cbuiltins.EnsureRequireGuard(g.e, n.Str)
	if alreadyEmitted {
		return
	}
	g.e.AddDeclaration("require-endif:"+n.Str, "#endif")
	g.e.Emit(emitter.Definitions, "/* require '%s' */", n.Str)
	for _, stmt := range root.Children {
		if stmt.Tag == ast.FunctionDecl {
			continue
		}
		g.genStmt(stmt)
	}
}

// collectRequiredFunctions walks n for require statements the analyzer
// resolved (AttrLoadedAST present) and appends every top-level function
// declaration their module defines, so Gen can emit them at file scope
// alongside this translation unit's own functions.
func collectRequiredFunctions(n *ast.Node, out *[]*ast.Node) {
	if n.Tag == ast.Require {
		if loaded, ok := n.Attr(ast.AttrLoadedAST); ok {
			if root, ok := loaded.(*ast.Node); ok {
				for _, stmt := range root.Children {
					if stmt.Tag == ast.FunctionDecl {
						*out = append(*out, stmt)
					}
				}
			}
		}
	}
	for _, c := range n.Children {
		collectRequiredFunctions(c, out)
	}
}

func (g *Generator) genBlock(n *ast.Node) {
	for _, stmt := range n.Children {
		g.genStmt(stmt)
	}
}

// ensureTypeSupport emits whatever standing declaration t's C
// representation depends on (currently just the stringview struct
// typedef every nelua_string_t-typed value needs in scope).
func (g *Generator) ensureTypeSupport(t types.Type) {
	if p, ok := t.(*types.Primitive); ok && p.Kind == types.String {
		cbuiltins.EnsureStringViewType(g.e)
	}
}

func (g *Generator) genDecl(n *ast.Node) {
	idNode, initNode := n.Child(0), n.Child(1)
	t := attrType(n)
	ct := "int64_t"
	if t != nil {
		g.ensureTypeSupport(t)
		ct = cbuiltins.CTypeName(t)
	}
	if initNode == nil {
		g.e.Emit(emitter.Definitions, "%s %s = {0};", ct, cname(idNode.Str))
		return
	}
	initExpr := g.wrapNarrow(n, t, g.genExpr(initNode))
	g.e.Emit(emitter.Definitions, "%s %s = %s;", ct, cname(idNode.Str), initExpr)
}

func (g *Generator) genAssign(n *ast.Node) {
	lhs, rhs := n.Child(0), n.Child(1)
	rexpr := g.wrapNarrow(n, attrType(lhs), g.genExpr(rhs))
	g.e.Emit(emitter.Definitions, "%s = %s;", g.genExpr(lhs), rexpr)
}

// wrapNarrow wraps expr in a cbuiltins.EnsureAssertNarrow call when the
// analyzer tagged n with AttrNarrowFrom (a narrowing or cross-sign
// implicit conversion it chose to allow with a runtime check rather than
// a compile error; spec §4.G), converting from the tagged source type to
// to. Returns expr unchanged when n carries no such tag.
func (g *Generator) wrapNarrow(n *ast.Node, to types.Type, expr string) string {
	v, ok := n.Attr(ast.AttrNarrowFrom)
	if !ok || to == nil {
		return expr
	}
	from, ok := v.(types.Type)
	if !ok {
		return expr
	}
	fname := cbuiltins.EnsureAssertNarrow(g.e, from, to)
	return fmt.Sprintf("%s(%s)", fname, expr)
}

func (g *Generator) genIf(n *ast.Node) {
	for i := 0; i+1 < len(n.Children); i += 2 {
		cond, blk := n.Children[i], n.Children[i+1]
		switch {
		case i == 0:
			g.e.Emit(emitter.Definitions, "if (%s) {", g.genExpr(cond))
		case cond == nil:
			g.e.Emit(emitter.Definitions, "} else {")
		default:
			g.e.Emit(emitter.Definitions, "} else if (%s) {", g.genExpr(cond))
		}
		g.e.Indent()
		g.genBlock(blk)
		g.e.Dedent()
	}
	g.e.Emit(emitter.Definitions, "}")
}

func (g *Generator) genForNum(n *ast.Node) {
	idNode, start, stop, step, body := n.Child(0), n.Child(1), n.Child(2), n.Child(3), n.Child(4)
	t := attrType(start)
	ct := "int64_t"
	if t != nil {
		ct = cbuiltins.CTypeName(t)
	}
	name := cname(idNode.Str)
	stepExpr := "1"
	cmp := "<="
	if step != nil {
		stepExpr = g.genExpr(step)
	}
	g.e.Emit(emitter.Definitions, "for (%s %s = %s; %s %s %s; %s += %s) {",
		ct, name, g.genExpr(start), name, cmp, g.genExpr(stop), name, stepExpr)
	g.e.Indent()
	g.genBlock(body)
	g.e.Dedent()
	g.e.Emit(emitter.Definitions, "}")
}

// genExpr lowers an expression node to a C expression string. It never
// itself calls g.e.Emit with a trailing ';' — statement forms add that.
func (g *Generator) genExpr(n *ast.Node) string {
	switch n.Tag {
	case ast.NumberLit:
		return n.Str
	case ast.StringLit:
		cbuiltins.EnsureStringViewType(g.e)
		return fmt.Sprintf("((nelua_string_t){%q, %d})", n.Str, len(n.Str))
	case ast.BoolLit:
		if n.Bool {
			return "true"
		}
		return "false"
	case ast.NilLit, ast.NilPtrLit:
		return "NULL"
	case ast.Id:
		return cname(n.Str)
	case ast.Paren:
		return "(" + g.genExpr(n.Child(0)) + ")"
	case ast.UnOp:
		return g.genUnary(n)
	case ast.BinOp:
		return g.genBinary(n)
	case ast.Call:
		return g.genCall(n)
	case ast.Index:
		return g.genIndex(n)
	case ast.DotIndex:
		return fmt.Sprintf("%s.%s", g.genExpr(n.Child(0)), n.Child(1).Str)
	default:
		return "/* unsupported expression */ 0"
	}
}

// genIndex lowers `base[idx]`: an array index is guarded by
// cbuiltins.EnsureAssertBounds against its known constant length, and a
// pointer index first runs the base pointer through
// cbuiltins.EnsureAssertDeref so dereferencing a null pointer panics with
// the spec's fixed message instead of segfaulting (spec §4.G).
func (g *Generator) genIndex(n *ast.Node) string {
	base, idx := n.Child(0), n.Child(1)
	baseExpr, idxExpr := g.genExpr(base), g.genExpr(idx)
	switch bt := attrType(base).(type) {
	case *types.Array:
		fname := cbuiltins.EnsureAssertBounds(g.e)
		return fmt.Sprintf("%s[%s((size_t)(%s), (size_t)%d)]", baseExpr, fname, idxExpr, bt.N)
	case *types.Pointer:
		fname := cbuiltins.EnsureAssertDeref(g.e)
		return fmt.Sprintf("((%s)%s(%s))[%s]", cbuiltins.CTypeName(bt), fname, baseExpr, idxExpr)
	default:
		return fmt.Sprintf("%s[%s]", baseExpr, idxExpr)
	}
}

func (g *Generator) genUnary(n *ast.Node) string {
	operand := g.genExpr(n.Child(0))
	switch n.Str {
	case "not":
		return "(!" + operand + ")"
	case "-":
		return "(-" + operand + ")"
	case "~":
		return "(~" + operand + ")"
	case "#":
		if t := attrType(n.Child(0)); t != nil {
			if p, ok := t.(*types.Primitive); ok && p.Kind == types.String {
				return "((int64_t)(" + operand + ").len)"
			}
		}
		return "((int64_t)sizeof(" + operand + "))"
	default:
		return "/* unknown unary op */ " + operand
	}
}

func (g *Generator) genBinary(n *ast.Node) string {
	lhs, rhs := n.Child(0), n.Child(1)
	l, r := g.genExpr(lhs), g.genExpr(rhs)
	lt := attrType(lhs)
	rt := attrType(rhs)

	switch n.Str {
	case "and":
		return fmt.Sprintf("(%s && %s)", l, r)
	case "or":
		return fmt.Sprintf("(%s || %s)", l, r)
	case "==", "~=":
		if rec, ok := lt.(*types.Record); ok {
			fname := cbuiltins.EnsureEq(g.e, rec)
			if n.Str == "~=" {
				return fmt.Sprintf("(!%s(%s, %s))", fname, l, r)
			}
			return fmt.Sprintf("%s(%s, %s)", fname, l, r)
		}
		if expr, ok := g.genCrossSignCmp(lt, rt, n.Str, l, r); ok {
			return expr
		}
		if n.Str == "==" {
			return fmt.Sprintf("(%s == %s)", l, r)
		}
		return fmt.Sprintf("(%s != %s)", l, r)
	case "<", "<=", ">", ">=":
		if expr, ok := g.genCrossSignCmp(lt, rt, n.Str, l, r); ok {
			return expr
		}
		return fmt.Sprintf("(%s %s %s)", l, n.Str, r)
	case "..":
		fname := cbuiltins.EnsureConcat(g.e)
		return fmt.Sprintf("%s(%s, %s)", fname, l, r)
	case "/", "//":
		if isFloatOperand(lt) {
			return fmt.Sprintf("(%s / %s)", l, r)
		}
		fname := cbuiltins.EnsureIDiv(g.e, lt)
		return fmt.Sprintf("%s(%s, %s)", fname, l, r)
	case "%":
		if isFloatOperand(lt) {
			fname := cbuiltins.EnsureFMod(g.e, lt)
			return fmt.Sprintf("%s(%s, %s)", fname, l, r)
		}
		fname := cbuiltins.EnsureIMod(g.e, lt)
		return fmt.Sprintf("%s(%s, %s)", fname, l, r)
	case "<<":
		fname := cbuiltins.EnsureShift(g.e, lt, "shl")
		return fmt.Sprintf("%s(%s, %s)", fname, l, r)
	case ">>":
		kind := "shr"
		if isSignedOperand(lt) {
			kind = "asr"
		}
		fname := cbuiltins.EnsureShift(g.e, lt, kind)
		return fmt.Sprintf("%s(%s, %s)", fname, l, r)
	case "+", "-", "*":
		return fmt.Sprintf("(%s %s %s)", l, n.Str, r)
	case "^":
		g.e.EnsureInclude("math.h")
		return fmt.Sprintf("pow(%s, %s)", l, r)
	default:
		return fmt.Sprintf("/* unknown binop %q */ %s", n.Str, l)
	}
}

func isFloatOperand(t types.Type) bool {
	p, ok := t.(*types.Primitive)
	return ok && p.IsFloat()
}

func isSignedOperand(t types.Type) bool {
	p, ok := t.(*types.Primitive)
	return ok && p.IsSigned()
}

func cmpKindFor(op string) cbuiltins.CmpKind {
	switch op {
	case "==":
		return cbuiltins.CmpEq
	case "~=":
		return cbuiltins.CmpNe
	case "<":
		return cbuiltins.CmpLt
	case "<=":
		return cbuiltins.CmpLe
	case ">":
		return cbuiltins.CmpGt
	default:
		return cbuiltins.CmpGe
	}
}

// mirrorCmpKind returns the comparison that holds when both operands of
// kind are swapped (e.g. `a < b` swapped is `b > a`); equality kinds are
// their own mirror.
func mirrorCmpKind(kind cbuiltins.CmpKind) cbuiltins.CmpKind {
	switch kind {
	case cbuiltins.CmpLt:
		return cbuiltins.CmpGt
	case cbuiltins.CmpLe:
		return cbuiltins.CmpGe
	case cbuiltins.CmpGt:
		return cbuiltins.CmpLt
	case cbuiltins.CmpGe:
		return cbuiltins.CmpLe
	default:
		return kind
	}
}

// genCrossSignCmp lowers `l op r` through cbuiltins.EnsureCrossSignLt
// when lt/rt are integer primitives of differing signedness (spec §4.G
// "cross-sign lt"): C's usual arithmetic conversions would otherwise
// silently convert the signed operand to unsigned, turning e.g. `-1 <
// 0u` into false. Reports ok=false when lt/rt don't need this treatment,
// so the caller falls back to a plain C operator.
func (g *Generator) genCrossSignCmp(lt, rt types.Type, op, l, r string) (string, bool) {
	lp, lok := lt.(*types.Primitive)
	rp, rok := rt.(*types.Primitive)
	if !lok || !rok || !lp.IsInteger() || !rp.IsInteger() || lp.IsSigned() == rp.IsSigned() {
		return "", false
	}
	kind := cmpKindFor(op)
	if lp.IsSigned() {
		fname := cbuiltins.EnsureCrossSignLt(g.e, lt, rt, kind)
		return fmt.Sprintf("(%s(%s, %s) != 0)", fname, l, r), true
	}
	fname := cbuiltins.EnsureCrossSignLt(g.e, rt, lt, mirrorCmpKind(kind))
	return fmt.Sprintf("(%s(%s, %s) != 0)", fname, r, l), true
}

func (g *Generator) genCall(n *ast.Node) string {
	argList, callee := n.Child(0), n.Child(1)
	if callee.Tag == ast.Id {
		switch callee.Str {
		case "print":
			return g.genPrintCall(argList)
		case "assert":
			cbuiltins.EnsureAssert(g.e)
			args := make([]string, len(argList.Children))
			for i, a := range argList.Children {
				args[i] = g.genExpr(a)
			}
			arity := len(args)
			if arity > 2 {
				arity = 2
			}
			return fmt.Sprintf("nelua_assert%d(%s)", arity, strings.Join(args, ", "))
		}
	}
	args := make([]string, len(argList.Children))
	for i, a := range argList.Children {
		args[i] = g.genExpr(a)
	}
	return fmt.Sprintf("%s(%s)", g.genExpr(callee), strings.Join(args, ", "))
}

// genPrintCall lowers the polymorphic `print(a, b, ...)` builtin to one
// nelua_print_<type> call per argument, tab-separated and newline
// terminated the way the source language's print behaves (spec §4.G).
func (g *Generator) genPrintCall(argList *ast.Node) string {
	var calls []string
	for i, a := range argList.Children {
		t := attrType(a)
		if t == nil {
			t = g.interner.Prim(types.ISize)
		}
		fname := cbuiltins.EnsurePrint(g.e, t)
		if isNilLikeType(t) {
			// niltype/nilptr carry no runtime value, so their print
			// helper takes no argument (see cbuiltins.EnsurePrint).
			calls = append(calls, fmt.Sprintf("%s()", fname))
		} else {
			calls = append(calls, fmt.Sprintf("%s(%s)", fname, g.genExpr(a)))
		}
		if i+1 < len(argList.Children) {
			calls = append(calls, `fputs("\t", stdout)`)
		}
	}
	calls = append(calls, `fputs("\n", stdout)`)
	return "(" + strings.Join(calls, ", ") + ")"
}

func isNilLikeType(t types.Type) bool {
	p, ok := t.(*types.Primitive)
	return ok && (p.Kind == types.NilType || p.Kind == types.NilPtr)
}
