package analyzer

import (
	"strconv"
	"strings"

	"github.com/Sondro/nelua-lang/internal/ast"
	"github.com/Sondro/nelua-lang/internal/diag"
	"github.com/Sondro/nelua-lang/internal/nscope"
	"github.com/Sondro/nelua-lang/internal/ppval"
	"github.com/Sondro/nelua-lang/internal/types"
)

// literalSuffixes maps the numeric-literal suffixes spec §4.C documents
// (e.g. `1_i32`, `1_u8`) to the primitive kind they pin the literal's
// type to.
var literalSuffixes = map[string]types.PrimKind{
	"i8": types.I8, "i16": types.I16, "i32": types.I32, "i64": types.I64,
	"u8": types.U8, "u16": types.U16, "u32": types.U32, "u64": types.U64,
	"f32": types.F32, "f64": types.F64,
	"isize": types.ISize, "usize": types.USize,
}

// analyzeExpr infers n's type, annotating n with AttrType (and, for
// constant-foldable nodes, AttrValue/AttrComptime) and returns the
// resolved type. A nil return means inference failed; the failure was
// already recorded in a.Diags.
func (a *Analyzer) analyzeExpr(n *ast.Node) types.Type {
	t := a.inferExpr(n)
	if t != nil {
		n.SetAttr(ast.AttrType, t)
	}
	return t
}

func (a *Analyzer) inferExpr(n *ast.Node) types.Type {
	switch n.Tag {
	case ast.NumberLit:
		return a.inferNumberLit(n)
	case ast.StringLit:
		n.SetAttr(ast.AttrComptime, true)
		return a.Interner.Prim(types.String)
	case ast.BoolLit:
		n.SetAttr(ast.AttrComptime, true)
		return a.Interner.Prim(types.Bool)
	case ast.NilLit:
		return a.Interner.Prim(types.NilType)
	case ast.NilPtrLit:
		return a.Interner.Prim(types.NilPtr)
	case ast.VarArgLit:
		return nil
	case ast.Id:
		sym, ok := a.Scopes.Lookup(n.Str)
		if !ok {
			a.errorf(diag.Lookup, n, "undefined symbol %q", n.Str)
			return nil
		}
		n.SetAttr(ast.AttrLValue, sym.LValue)
		return sym.Type
	case ast.Paren:
		return a.analyzeExpr(n.Child(0))
	case ast.UnOp:
		return a.inferUnary(n)
	case ast.BinOp:
		return a.inferBinary(n)
	case ast.Call:
		return a.inferCall(n)
	case ast.Index:
		return a.inferIndex(n)
	case ast.DotIndex:
		return a.inferDotIndex(n)
	case ast.FunctionExpr:
		return a.inferFunctionExpr(n)
	case ast.PreprocessExpr:
		return a.inferPreprocessExpr(n)
	case ast.PreprocessName:
		a.PP.RunExpr(n.Str) // evaluated for side effects; name resolution happens where the token was captured
		return nil
	default:
		a.errorf(diag.TypeErr, n, "cannot infer a type for node of kind %s", n.Tag)
		return nil
	}
}

func (a *Analyzer) inferNumberLit(n *ast.Node) types.Type {
	if n.Suffix != "" {
		kind, ok := literalSuffixes[n.Suffix]
		if !ok {
			a.errorf(diag.TypeErr, n, "literal suffix '_%s' is undefined", n.Suffix)
			return nil
		}
		n.SetAttr(ast.AttrComptime, true)
		return a.Interner.Prim(kind)
	}
	n.SetAttr(ast.AttrComptime, true)
	if strings.ContainsAny(n.Str, ".eE") && !strings.HasPrefix(n.Str, "0x") {
		return a.Interner.Prim(types.F64)
	}
	return a.Interner.Prim(types.ISize)
}

func (a *Analyzer) inferUnary(n *ast.Node) types.Type {
	operand := a.analyzeExpr(n.Child(0))
	if operand == nil {
		return nil
	}
	switch n.Str {
	case "not":
		return a.Interner.Prim(types.Bool)
	case "-", "~":
		return operand
	case "#":
		return a.Interner.Prim(types.ISize)
	default:
		a.errorf(diag.TypeErr, n, "unknown unary operator %q", n.Str)
		return nil
	}
}

func (a *Analyzer) inferBinary(n *ast.Node) types.Type {
	lt := a.analyzeExpr(n.Child(0))
	rt := a.analyzeExpr(n.Child(1))
	if lt == nil || rt == nil {
		return nil
	}
	switch n.Str {
	case "==", "~=", "<", "<=", ">", ">=":
		return a.Interner.Prim(types.Bool)
	case "and", "or":
		return rt
	case "..":
		return a.Interner.Prim(types.String)
	default:
		result := types.Promote(lt, rt)
		if result == nil {
			a.errorf(diag.TypeErr, n, "operator %q is not defined between %q and %q", n.Str, lt.String(), rt.String())
		}
		return result
	}
}

func (a *Analyzer) inferCall(n *ast.Node) types.Type {
	argList, callee := n.Child(0), n.Child(1)
	argTypes := make([]types.Type, len(argList.Children))
	for i, arg := range argList.Children {
		argTypes[i] = a.analyzeExpr(arg)
	}
	if callee.Tag == ast.Id {
		switch callee.Str {
		case "print":
			callee.SetAttr(ast.AttrType, a.Interner.Prim(types.Void))
			return a.Interner.Prim(types.Void)
		case "assert":
			if len(argTypes) > 0 {
				return argTypes[0]
			}
			return a.Interner.Prim(types.Void)
		}
		if sym, ok := a.Scopes.Lookup(callee.Str); ok {
			if declNode, isPoly := sym.Value.(*ast.Node); isPoly && declNode.Tag == ast.FunctionDecl {
				return a.instantiatePolymorphic(n, declNode, argTypes)
			}
		}
	}
	ft := a.analyzeExpr(callee)
	fn, ok := ft.(*types.Function)
	if !ok {
		if ft != nil {
			a.errorf(diag.TypeErr, n, "attempt to call a non-function value of type %q", ft.String())
		}
		return nil
	}
	if len(fn.Rets) == 0 {
		return a.Interner.Prim(types.Void)
	}
	return fn.Rets[0]
}

// instantiatePolymorphic re-analyzes a polymorphic function's body (one
// declared with an `auto` parameter, deferred whole by analyzeFunctionDecl
// instead of analyzed once at declaration time) against the concrete
// argument types of one call site, binding each `auto` parameter to its
// corresponding argument's type. A failure surfacing from that
// instantiation (most commonly a `static_error` raised from pp code
// guarding the parameter's shape) is reported mentioning "polymorphic
// function instantiation" so it reads distinctly from an ordinary type
// error, per spec §8's scenario naming that phrase explicitly.
func (a *Analyzer) instantiatePolymorphic(callNode, declNode *ast.Node, argTypes []types.Type) types.Type {
	nameNode, fn := declNode.Child(0), declNode.Child(1)
	params, body := fn.Child(0), fn.Child(1)

	sc := a.Scopes.PushScope("function:" + nameNode.Str + ":instantiation")
	for i, p := range params.Children {
		var pt types.Type
		if tname, ok := p.Attr("decltype"); ok && tname.(string) != "auto" {
			pt = a.resolveTypeName(p, tname.(string))
		} else if i < len(argTypes) {
			pt = argTypes[i]
		}
		sc.Declare(p.Str, &nscope.Symbol{Name: p.Str, Type: pt, LValue: true, DeclNode: p})
	}

	preCount := len(a.Diags.All())
	a.analyzeBlockInScope(body, sc)
	a.Scopes.PopScope()
	if len(a.Diags.All()) > preCount {
		a.errorf(diag.Preprocess, callNode, "polymorphic function instantiation of %q failed", nameNode.Str)
	}

	var rets []types.Type
	if rtName, ok := fn.Attr("rettype"); ok {
		if rt := a.resolveTypeName(fn, rtName.(string)); rt != nil {
			rets = []types.Type{rt}
		}
	}
	if len(rets) == 0 {
		return a.Interner.Prim(types.Void)
	}
	return rets[0]
}

func (a *Analyzer) inferIndex(n *ast.Node) types.Type {
	base := a.analyzeExpr(n.Child(0))
	a.analyzeExpr(n.Child(1))
	if arr, ok := base.(*types.Array); ok {
		return arr.Elem
	}
	if ptr, ok := base.(*types.Pointer); ok {
		return ptr.Base
	}
	if base != nil {
		a.errorf(diag.TypeErr, n, "cannot index a value of type %q", base.String())
	}
	return nil
}

func (a *Analyzer) inferDotIndex(n *ast.Node) types.Type {
	base := a.analyzeExpr(n.Child(0))
	field := n.Child(1).Str
	rec, ok := base.(*types.Record)
	if !ok {
		if base != nil {
			a.errorf(diag.TypeErr, n, "cannot access field %q on a value of type %q", field, base.String())
		}
		return nil
	}
	for _, f := range rec.Fields {
		if f.Name == field {
			return f.Type
		}
	}
	a.errorf(diag.TypeErr, n, "record %q has no field %q", rec.Name, field)
	return nil
}

func (a *Analyzer) inferFunctionExpr(n *ast.Node) types.Type {
	params, body := n.Child(0), n.Child(1)
	var argTypes []types.Type
	sc := a.Scopes.PushScope("functionexpr")
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
	if rtName, ok := n.Attr("rettype"); ok {
		if rt := a.resolveTypeName(n, rtName.(string)); rt != nil {
			rets = []types.Type{rt}
		}
	}
	return a.Interner.FuncType(argTypes, rets, false)
}

func (a *Analyzer) inferPreprocessExpr(n *ast.Node) types.Type {
	v, err := a.PP.RunExpr(n.Str)
	if err != nil {
		a.errorf(diag.Preprocess, n, "%s", err)
		return nil
	}
	switch v.Tag {
	case ppval.TagType:
		return v.Typ
	case ppval.TagInt:
		n.SetAttr(ast.AttrValue, strconv.FormatInt(v.Int, 10))
		n.SetAttr(ast.AttrComptime, true)
		return a.Interner.Prim(types.ISize)
	case ppval.TagFloat:
		n.SetAttr(ast.AttrComptime, true)
		return a.Interner.Prim(types.F64)
	case ppval.TagString:
		n.SetAttr(ast.AttrValue, v.Str)
		n.SetAttr(ast.AttrComptime, true)
		return a.Interner.Prim(types.String)
	case ppval.TagBool:
		n.SetAttr(ast.AttrComptime, true)
		return a.Interner.Prim(types.Bool)
	default:
		return nil
	}
}
