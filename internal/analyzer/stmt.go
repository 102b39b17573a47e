package analyzer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sondro/nelua-lang/internal/ast"
	"github.com/Sondro/nelua-lang/internal/diag"
	"github.com/Sondro/nelua-lang/internal/nscope"
	"github.com/Sondro/nelua-lang/internal/parser"
	"github.com/Sondro/nelua-lang/internal/types"
)

// analyzeBlockInScope walks n's statements within the already-current
// scope sc, splicing in any nodes a preprocess statement injects (spec
// §4.E "injectnode ... inserted at the preprocess statement's position
// in its enclosing block") and continuing analysis over the spliced
// nodes in place.
func (a *Analyzer) analyzeBlockInScope(n *ast.Node, sc *nscope.Scope) {
	i := 0
	for i < len(n.Children) {
		stmt := n.Children[i]
		injected := a.analyzeStmt(stmt)
		if len(injected) > 0 {
			tail := append([]*ast.Node{}, n.Children[i+1:]...)
			n.Children = append(n.Children[:i+1], append(injected, tail...)...)
		}
		i++
	}
}

// analyzeBlockPushed pushes a new named scope, analyzes n within it, and
// pops it back off — the bracket every block-introducing statement
// (if/while/repeat/for/function body) uses, matching spec §5/§8
// invariant 3 ("push/pop balance").
func (a *Analyzer) analyzeBlockPushed(n *ast.Node, name string) {
	sc := a.Scopes.PushScope(name)
	a.analyzeBlockInScope(n, sc)
	a.Scopes.PopScope()
}

// analyzeStmt analyzes one statement, returning any nodes a preprocess
// directive injected at this position so the caller can splice them into
// the enclosing block.
func (a *Analyzer) analyzeStmt(n *ast.Node) []*ast.Node {
	switch n.Tag {
	case ast.Preprocess:
		return a.runPreprocessStmt(n)
	case ast.PreprocessExpr, ast.PreprocessName:
		a.analyzeExpr(n)
		return nil
	case ast.LocalDecl, ast.GlobalDecl:
		a.analyzeDecl(n)
	case ast.FunctionDecl:
		a.analyzeFunctionDecl(n)
	case ast.Assign:
		a.analyzeAssign(n)
	case ast.If:
		a.analyzeIf(n)
	case ast.While:
		a.analyzeExpr(n.Child(0))
		a.analyzeBlockPushed(n.Child(1), "while")
	case ast.Repeat:
		// 'until's condition can see the body's locals (source-language
		// rule), so it is analyzed inside the pushed scope rather than
		// after popping it.
		sc := a.Scopes.PushScope("repeat")
		a.analyzeBlockInScope(n.Child(0), sc)
		a.analyzeExpr(n.Child(1))
		a.Scopes.PopScope()
	case ast.ForNum:
		a.analyzeForNum(n)
	case ast.ForIn:
		a.analyzeForIn(n)
	case ast.Return:
		for _, v := range n.Child(0).Children {
			a.analyzeExpr(v)
		}
	case ast.Require:
		a.analyzeRequire(n)
	case ast.Break, ast.Continue:
		// no scope/type effect.
	default:
		a.analyzeExpr(n)
	}
	return nil
}

func (a *Analyzer) runPreprocessStmt(n *ast.Node) []*ast.Node {
	if err := a.PP.Run(n.Str); err != nil {
		a.errorf(diag.Preprocess, n, "%s", err)
		return nil
	}
	return a.PP.Taken()
}

func (a *Analyzer) analyzeDecl(n *ast.Node) {
	idNode := n.Child(0)
	initNode := n.Child(1)

	var declType types.Type
	if tname, ok := n.Attr("decltype"); ok {
		declType = a.resolveTypeName(n, tname.(string))
	}

	var initType = declType
	if initNode != nil {
		t := a.analyzeExpr(initNode)
		if declType == nil {
			initType = t
		} else if t != nil && !types.Assignable(declType, t) {
			if types.IsNarrowing(declType, t) {
				// Narrowing and cross-sign conversions are not a compile
				// error (spec §4.G): codegen wraps the initializer in a
				// runtime assert_narrow guard instead.
				n.SetAttr(ast.AttrNarrowFrom, t)
			} else {
				a.errorf(diag.TypeErr, n, "cannot assign a value of type %q to a variable of type %q", t.String(), declType.String())
			}
		}
	}

	sym := &nscope.Symbol{Name: idNode.Str, Type: initType, LValue: true, DeclNode: n}
	if err := a.Scopes.Declare(idNode.Str, sym); err != nil {
		a.errorf(diag.TypeErr, n, "%s", err)
	}
	if initType != nil {
		idNode.SetAttr(ast.AttrType, initType)
		n.SetAttr(ast.AttrType, initType)
	}
}

func (a *Analyzer) analyzeAssign(n *ast.Node) {
	lhs, rhs := n.Child(0), n.Child(1)
	rt := a.analyzeExpr(rhs)
	if lhs.Tag != ast.Id {
		a.analyzeExpr(lhs)
		return
	}
	sym, ok := a.Scopes.Lookup(lhs.Str)
	if !ok {
		a.errorf(diag.Lookup, lhs, "assignment to undeclared name %q", lhs.Str)
		return
	}
	if sym.Type == nil {
		sym.Type = rt
	}
	dstType := sym.Type
	if dstType != nil && rt != nil && !types.Assignable(dstType, rt) {
		if types.IsNarrowing(dstType, rt) {
			n.SetAttr(ast.AttrNarrowFrom, rt)
		} else {
			a.errorf(diag.TypeErr, n, "cannot assign a value of type %q to a variable of type %q", rt.String(), dstType.String())
		}
	}
	if dstType != nil {
		lhs.SetAttr(ast.AttrType, dstType)
	} else if rt != nil {
		lhs.SetAttr(ast.AttrType, rt)
	}
}

func (a *Analyzer) analyzeIf(n *ast.Node) {
	for i := 0; i+1 < len(n.Children); i += 2 {
		cond, blk := n.Children[i], n.Children[i+1]
		if cond != nil {
			a.analyzeExpr(cond)
		}
		a.analyzeBlockPushed(blk, "if")
	}
}

func (a *Analyzer) analyzeForNum(n *ast.Node) {
	idNode, start, stop, step, body := n.Child(0), n.Child(1), n.Child(2), n.Child(3), n.Child(4)
	startType := a.analyzeExpr(start)
	a.analyzeExpr(stop)
	if step != nil {
		a.analyzeExpr(step)
	}
	sc := a.Scopes.PushScope("fornum")
	sc.Declare(idNode.Str, &nscope.Symbol{Name: idNode.Str, Type: startType, LValue: true, DeclNode: idNode})
	a.analyzeBlockInScope(body, sc)
	a.Scopes.PopScope()
}

func (a *Analyzer) analyzeForIn(n *ast.Node) {
	nameList, iter, body := n.Child(0), n.Child(1), n.Child(2)
	a.analyzeExpr(iter)
	sc := a.Scopes.PushScope("forin")
	for _, nm := range nameList.Children {
		sc.Declare(nm.Str, &nscope.Symbol{Name: nm.Str, LValue: true, DeclNode: nm})
	}
	a.analyzeBlockInScope(body, sc)
	a.Scopes.PopScope()
}

// analyzeRequire implements spec §4.G/§9 "require": the named module's
// source is located, parsed, and analyzed in the requiring file's root
// scope, so every top-level name it declares becomes visible exactly as
// if it had been typed at this position. The loaded, analyzed AST is
// attached to n via AttrLoadedAST for codegen to inline, guarded so a
// module required more than once is only ever emitted once.
func (a *Analyzer) analyzeRequire(n *ast.Node) {
	if n.HasAttr(ast.AttrAlreadyRequired) {
		return
	}
	n.SetAttr(ast.AttrAlreadyRequired, true)

	if a.requiredModules[n.Str] {
		// A prior require statement already loaded and declared this
		// module's names; re-requiring it is a no-op, so this node emits
		// nothing (no duplicate C/Lua symbol declarations).
		return
	}

	path, src, err := a.loadRequire(n.Str)
	if err != nil {
		a.errorf(diag.Preprocess, n, "require %q: %s", n.Str, err)
		return
	}

	root, err := parser.Parse(path, src, a.Reg)
	if err != nil {
		a.errorf(diag.Parse, n, "require %q: %s", n.Str, err)
		return
	}

	a.requiredModules[n.Str] = true
	a.markBlock(root)
	a.analyzeBlockInScope(root, a.root)
	n.SetAttr(ast.AttrLoadedAST, root)
}

// loadRequire resolves a required module name to a source file, searching
// the requiring file's own directory first and then each -L search path in
// order (spec §4.G "require"), mirroring how confucianzuoyuan-zcc resolves
// #include relative-path-then-search-path.
func (a *Analyzer) loadRequire(name string) (path, src string, err error) {
	candidates := []string{filepath.Join(filepath.Dir(a.File), name+".nelua")}
	for _, p := range a.SearchPaths {
		candidates = append(candidates, filepath.Join(p, name+".nelua"))
	}
	for _, c := range candidates {
		b, readErr := os.ReadFile(c)
		if readErr == nil {
			return c, string(b), nil
		}
	}
	return "", "", fmt.Errorf("module %q not found in search path", name)
}

// isPolymorphicParams reports whether any parameter is declared `auto`
// (spec §8 scenario 6's "polymorphic function instantiation"): such a
// function has no single concrete signature, so its body cannot be
// analyzed until a call site supplies concrete argument types.
func isPolymorphicParams(params *ast.Node) bool {
	for _, p := range params.Children {
		if tname, ok := p.Attr("decltype"); ok && tname.(string) == "auto" {
			return true
		}
	}
	return false
}

func (a *Analyzer) analyzeFunctionDecl(n *ast.Node) {
	nameNode, fn := n.Child(0), n.Child(1)
	params, body := fn.Child(0), fn.Child(1)

	if isPolymorphicParams(params) {
		// Body analysis is deferred to each call site; see
		// (*Analyzer).instantiatePolymorphic. The symbol's Value (rather
		// than its Type) carries the declaration node so inferCall can
		// recognize it as polymorphic.
		sym := &nscope.Symbol{Name: nameNode.Str, DeclNode: n, Value: n}
		if err := a.Scopes.Current().Declare(nameNode.Str, sym); err != nil {
			a.errorf(diag.TypeErr, n, "%s", err)
		}
		return
	}

	var argTypes []types.Type
	sc := a.Scopes.PushScope("function:" + nameNode.Str)
	for _, p := range params.Children {
		var pt types.Type
		if tname, ok := p.Attr("decltype"); ok {
			pt = a.resolveTypeName(p, tname.(string))
		}
		sc.Declare(p.Str, &nscope.Symbol{Name: p.Str, Type: pt, LValue: true, DeclNode: p})
		argTypes = append(argTypes, pt)
	}
	a.analyzeBlockInScope(body, sc)
	a.Scopes.PopScope()

	var rets []types.Type
	if rtName, ok := fn.Attr("rettype"); ok {
		if rt := a.resolveTypeName(fn, rtName.(string)); rt != nil {
			rets = []types.Type{rt}
		}
	}
	fnType := a.Interner.FuncType(argTypes, rets, false)
	if err := a.Scopes.Current().Declare(nameNode.Str, &nscope.Symbol{Name: nameNode.Str, Type: fnType, DeclNode: n}); err != nil {
		a.errorf(diag.TypeErr, n, "%s", err)
	}
	n.SetAttr(ast.AttrType, fnType)
}
