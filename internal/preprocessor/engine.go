// Package preprocessor implements the metaprogramming engine from spec
// §4.E: pp fragments (captured verbatim by internal/token's PPStmt/
// PPExpr/PPName lexing and handed to internal/parser as ordinary source)
// are evaluated by a tree-walking interpreter over internal/ppval.Value,
// cooperating with internal/analyzer through a shared scope stack and
// pragma map. The host functions it exposes — injectnode, hygienize,
// afterinfer, staticassert — are the preprocessor's half of the
// analyzer/preprocessor cooperation protocol spec §4.D/§4.E describe.
//
// Rather than vendoring or hand-rolling a Lua virtual machine (the
// source language's own preprocessor host), pp fragments reuse this
// module's own grammar and are interpreted the same way
// other_examples/daios-ai-msg's interpreter walks its own Value/Env
// pair — one parser, one evaluator, no second language runtime.
package preprocessor

import (
	"fmt"

	"github.com/Sondro/nelua-lang/internal/ast"
	"github.com/Sondro/nelua-lang/internal/diag"
	"github.com/Sondro/nelua-lang/internal/nscope"
	"github.com/Sondro/nelua-lang/internal/ppval"
	"github.com/Sondro/nelua-lang/internal/pragma"
	"github.com/Sondro/nelua-lang/internal/types"
)

// Engine is one translation unit's preprocessor state: the pp-variable
// environment, and the analyzer collaborators it reads/writes through
// the layered lookup Lookup and Assign implement.
type Engine struct {
	Reg       *ast.Registry
	Scopes    *nscope.Stack
	Pragmas   *pragma.Map
	Diags     *diag.Bag
	Primtypes map[string]types.Type

	env      *ppval.Env
	injected []*ast.Node
	deferred []func() error
	file     string
}

// New constructs an Engine sharing reg/scopes/pragmas/diags with the
// analyzer driving it (spec §4.D: "the analyzer and preprocessor
// cooperate over one scope stack and one pragma map").
func New(file string, reg *ast.Registry, scopes *nscope.Stack, pragmas *pragma.Map, diags *diag.Bag, primtypes map[string]types.Type) *Engine {
	e := &Engine{Reg: reg, Scopes: scopes, Pragmas: pragmas, Diags: diags, Primtypes: primtypes, file: file}
	e.env = ppval.NewEnv(nil)
	e.installHostFuncs()
	return e
}

// Taken returns and clears the nodes injectnode() accumulated since the
// last call, for the analyzer to splice into the AST at the preprocess
// directive's position (spec §4.E "injectnode ... inserted at the
// preprocess statement's position in its enclosing block").
func (e *Engine) Taken() []*ast.Node {
	out := e.injected
	e.injected = nil
	return out
}

// RunDeferred executes every afterinfer-queued callback, in registration
// order, after the analyzer's full analyze pass completes (spec §4.E:
// "afterinfer callbacks run once, after the whole unit has been typed").
func (e *Engine) RunDeferred() error {
	for _, fn := range e.deferred {
		if err := fn(); err != nil {
			return err
		}
	}
	e.deferred = nil
	return nil
}

// Run parses src as a block of pp statements and executes it against
// Engine's persistent environment. A non-nil error aborts the enclosing
// block immediately (spec §7: preprocess errors are the one diagnostic
// kind that is not merely batched).
func (e *Engine) Run(src string) error {
	root, err := parsePPSource(e.file, src, e.Reg)
	if err != nil {
		return fmt.Errorf("preprocessor: %w", err)
	}
	for _, stmt := range root.Children {
		if _, err := e.execStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RunExpr parses src as a single pp expression and returns its value,
// used for PreprocessExpr nodes (`#[...]# `) and PreprocessName nodes
// (`#|...|#`, whose result is additionally coerced to a string by the
// caller in internal/analyzer).
func (e *Engine) RunExpr(src string) (ppval.Value, error) {
	expr, err := parsePPExprSource(e.file, src, e.Reg)
	if err != nil {
		return ppval.Nil, fmt.Errorf("preprocessor: %w", err)
	}
	return e.eval(expr)
}

// Lookup implements spec §4.E/§9's layered unknown-identifier fallback:
// the pp environment first (pp-local variables and the host functions
// installHostFuncs binds there), then declared symbols in the current
// analyzer scope, then recognized pragma fields, then the primtypes
// introspection table.
func (e *Engine) Lookup(name string) (ppval.Value, bool) {
	if v, ok := e.env.Get(name); ok {
		return v, true
	}
	if sym, ok := e.Scopes.Lookup(name); ok {
		if sym.Value != nil {
			if v, ok := sym.Value.(ppval.Value); ok {
				return v, true
			}
		}
		if sym.Type != nil {
			return ppval.TypeVal(sym.Type), true
		}
		return ppval.Nil, true
	}
	if f := pragma.Field(name); isRecognizedField(f) {
		if v, ok := e.Pragmas.Field(f); ok {
			return wrapPragmaValue(v), true
		}
	}
	if t, ok := e.Primtypes[name]; ok {
		return ppval.TypeVal(t), true
	}
	return ppval.Nil, false
}

func isRecognizedField(f pragma.Field) bool {
	switch f {
	case pragma.NoChecks, pragma.NoAbort, pragma.CFlags, pragma.LDFlags, pragma.LinkLib:
		return true
	}
	return false
}

func wrapPragmaValue(v any) ppval.Value {
	switch x := v.(type) {
	case bool:
		return ppval.Bool(x)
	case []string:
		tbl := ppval.NewTable()
		for i, s := range x {
			tbl.Set(fmt.Sprintf("%d", i+1), ppval.Str(s))
		}
		return ppval.TableVal(tbl)
	default:
		return ppval.Nil
	}
}

// Assign implements the write-side fallback: an existing pp-local or
// declared symbol is updated in place; otherwise, a recognized pragma
// field is set; otherwise, a brand-new pp-local binding is created in
// the current environment frame (the outermost one for top-level pp
// code; a function literal's call frame when assigned inside one).
func (e *Engine) Assign(name string, v ppval.Value) error {
	if err := e.env.Set(name, v); err == nil {
		return nil
	}
	if f := pragma.Field(name); isRecognizedField(f) {
		return e.Pragmas.SetField(f, unwrapForPragma(v))
	}
	e.env.Define(name, v)
	return nil
}

func unwrapForPragma(v ppval.Value) any {
	switch v.Tag {
	case ppval.TagBool:
		return v.Bool
	case ppval.TagString:
		return v.Str
	default:
		return v.String()
	}
}

func parsePPSource(file, src string, reg *ast.Registry) (*ast.Node, error) {
	return parseWith(file, src, reg)
}

func parsePPExprSource(file, src string, reg *ast.Registry) (*ast.Node, error) {
	root, err := parseWith(file, src, reg)
	if err != nil {
		return nil, err
	}
	if len(root.Children) != 1 {
		return nil, fmt.Errorf("expected a single expression, got %d statements", len(root.Children))
	}
	return root.Children[0], nil
}

// parseWith is a small indirection point so this package does not import
// internal/parser directly at the top level (it would otherwise form an
// import cycle candidate once internal/analyzer imports both); the
// concrete parse function is injected once by internal/analyzer at
// program start via SetParseFunc.
var parseFn func(file, src string, reg *ast.Registry) (*ast.Node, error)

// SetParseFunc installs the parser entry point this package calls to
// re-parse pp fragment source. internal/analyzer calls this once during
// initialization with internal/parser.Parse, breaking the import cycle
// that would otherwise exist between internal/parser (which needs no
// knowledge of pp evaluation) and internal/preprocessor (which needs to
// parse pp fragments with the exact same grammar).
func SetParseFunc(fn func(file, src string, reg *ast.Registry) (*ast.Node, error)) {
	parseFn = fn
}

func parseWith(file, src string, reg *ast.Registry) (*ast.Node, error) {
	if parseFn == nil {
		return nil, fmt.Errorf("preprocessor: no parser installed (internal/analyzer must call SetParseFunc at startup)")
	}
	return parseFn(file, src, reg)
}
