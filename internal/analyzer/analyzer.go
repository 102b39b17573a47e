// Package analyzer implements the two-phase semantic pass from spec
// §4.D: a marker pass that flags preprocess directives and forward
// declares top-level names, followed by an analyze pass that resolves
// symbols, infers and checks types, and cooperates with
// internal/preprocessor on every preprocess directive it encounters.
//
// Grounded on confucianzuoyuan-zcc/parse.go's single-pass declaration
// handling (parseDeclaration / newLVar / findVar), split here into two
// passes and generalized from a label-bound, C-flavored declaration
// walk into the source language's type-inferring, preprocessor-aware
// walk spec §4.D describes.
package analyzer

import (
	"github.com/Sondro/nelua-lang/internal/ast"
	"github.com/Sondro/nelua-lang/internal/diag"
	"github.com/Sondro/nelua-lang/internal/nscope"
	"github.com/Sondro/nelua-lang/internal/parser"
	"github.com/Sondro/nelua-lang/internal/pragma"
	"github.com/Sondro/nelua-lang/internal/preprocessor"
	"github.com/Sondro/nelua-lang/internal/types"
)

func init() {
	// Installs internal/parser as the re-entrant parser the preprocessor
	// uses for pp fragment source, the one point where these two
	// packages are wired together (see preprocessor.SetParseFunc's doc
	// comment for why this is an injected func rather than a direct
	// import).
	preprocessor.SetParseFunc(parser.Parse)
}

// Analyzer holds everything one translation unit's analysis needs: the
// node registry, the type interner, the scope stack, the pragma map, a
// diagnostic bag, and the cooperating preprocessor engine.
type Analyzer struct {
	File        string
	Reg         *ast.Registry
	Interner    *types.Interner
	Scopes      *nscope.Stack
	Pragmas     *pragma.Map
	Diags       *diag.Bag
	PP          *preprocessor.Engine
	Primtypes   map[string]types.Type
	SearchPaths []string // -L/--path entries "require" resolves module names against

	root            *nscope.Scope
	requiredModules map[string]bool
}

// New constructs an Analyzer for one translation unit.
func New(file string, reg *ast.Registry) *Analyzer {
	interner := types.NewInterner()
	scopes := nscope.NewStack()
	pragmas := pragma.New()
	diags := &diag.Bag{}
	primtypes := builtinPrimtypes(interner)
	a := &Analyzer{
		File:            file,
		Reg:             reg,
		Interner:        interner,
		Scopes:          scopes,
		Pragmas:         pragmas,
		Diags:           diags,
		Primtypes:       primtypes,
		root:            scopes.Current(),
		requiredModules: make(map[string]bool),
	}
	a.PP = preprocessor.New(file, reg, scopes, pragmas, diags, primtypes)
	return a
}

func builtinPrimtypes(in *types.Interner) map[string]types.Type {
	names := map[string]types.PrimKind{
		"int8": types.I8, "int16": types.I16, "int32": types.I32, "int64": types.I64,
		"uint8": types.U8, "uint16": types.U16, "uint32": types.U32, "uint64": types.U64,
		"float32": types.F32, "float64": types.F64, "float128": types.F128,
		"boolean": types.Bool, "string": types.String, "cstring": types.CString,
		"niltype": types.NilType, "nilptr": types.NilPtr, "void": types.Void,
		"usize": types.USize, "isize": types.ISize,
		// source-language-facing aliases for the builtin-width integer names.
		"int": types.ISize, "uint": types.USize, "number": types.F64, "byte": types.U8,
	}
	out := make(map[string]types.Type, len(names))
	for name, kind := range names {
		out[name] = in.Prim(kind)
	}
	return out
}

// Analyze runs the marker pass then the analyze pass over root (the
// top-level Block returned by internal/parser), and finally drains the
// preprocessor's afterinfer queue (spec §4.E: those callbacks run once,
// after the whole unit has been typed). It returns the Analyzer's
// diagnostic bag for the caller to inspect.
func (a *Analyzer) Analyze(root *ast.Node) *diag.Bag {
	a.markBlock(root)
	a.analyzeBlockInScope(root, a.root)
	if err := a.PP.RunDeferred(); err != nil {
		a.Diags.Addf(diag.Preprocess, a.File, root.Pos, "%s", err)
	}
	return a.Diags
}

// markBlock implements the marker pass (spec §4.D): a shallow walk that
// flags every preprocess-directive node with AttrNeedProcess and forward
// declares top-level function/global names with a nil type, so that
// mutually recursive top-level functions can reference each other
// regardless of declaration order.
func (a *Analyzer) markBlock(n *ast.Node) {
	for _, stmt := range n.Children {
		switch stmt.Tag {
		case ast.Preprocess, ast.PreprocessExpr, ast.PreprocessName:
			stmt.SetAttr(ast.AttrNeedProcess, true)
		case ast.FunctionDecl, ast.GlobalDecl:
			name := stmt.Child(0)
			if name != nil && name.Tag == ast.Id {
				a.root.Declare(name.Str, &nscope.Symbol{Name: name.Str, DeclNode: stmt})
			}
		}
	}
}

func (a *Analyzer) errorf(kind diag.Kind, n *ast.Node, format string, args ...any) {
	a.Diags.Addf(kind, a.File, n.Pos, format, args...)
}

// resolveTypeName resolves a decltype attribute string (captured
// verbatim by internal/parser from a ":" type annotation) to a
// types.Type via the primtypes table.
func (a *Analyzer) resolveTypeName(n *ast.Node, name string) types.Type {
	if t, ok := a.Primtypes[name]; ok {
		return t
	}
	a.errorf(diag.TypeErr, n, "unknown type name %q", name)
	return nil
}
