package preprocessor

import (
	"testing"

	"github.com/Sondro/nelua-lang/internal/ast"
	"github.com/Sondro/nelua-lang/internal/diag"
	"github.com/Sondro/nelua-lang/internal/nscope"
	"github.com/Sondro/nelua-lang/internal/parser"
	"github.com/Sondro/nelua-lang/internal/ppval"
	"github.com/Sondro/nelua-lang/internal/pragma"
	"github.com/Sondro/nelua-lang/internal/token"
	"github.com/Sondro/nelua-lang/internal/types"
)

func init() {
	SetParseFunc(parser.Parse)
}

func newEngine() *Engine {
	reg := ast.NewRegistry()
	scopes := nscope.NewStack()
	pragmas := pragma.New()
	diags := &diag.Bag{}
	prims := map[string]types.Type{}
	return New("t.nelua", reg, scopes, pragmas, diags, prims)
}

func TestRunLocalAndArithmetic(t *testing.T) {
	e := newEngine()
	if err := e.Run("local x = 1 + 2 * 3"); err != nil {
		t.Fatal(err)
	}
	v, ok := e.Lookup("x")
	if !ok || v.Int != 7 {
		t.Errorf("x = %+v, want Int(7)", v)
	}
}

func TestRunIfElse(t *testing.T) {
	e := newEngine()
	if err := e.Run(`
local x = 0
if false then
  x = 1
elseif true then
  x = 2
else
  x = 3
end`); err != nil {
		t.Fatal(err)
	}
	v, _ := e.Lookup("x")
	if v.Int != 2 {
		t.Errorf("x = %+v, want Int(2)", v)
	}
}

func TestStaticAssertFailureAbortsBlock(t *testing.T) {
	e := newEngine()
	err := e.Run(`staticassert(false, "boom")`)
	if err == nil {
		t.Fatal("expected an error from a failing staticassert")
	}
	if err.Error() == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestStaticAssertSuccessIsNoop(t *testing.T) {
	e := newEngine()
	if err := e.Run(`staticassert(1 == 1, "unreachable")`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStaticErrorAlwaysFails(t *testing.T) {
	e := newEngine()
	err := e.Run(`static_error("unsupported argument type")`)
	if err == nil {
		t.Fatal("expected static_error to always fail")
	}
	if err.Error() != "unsupported argument type" {
		t.Errorf("error = %q, want the message forwarded verbatim", err.Error())
	}
}

func TestScopeCheckpointRestoreDropsLaterDeclarations(t *testing.T) {
	e := newEngine()
	root := e.Scopes.Current()
	root.Declare("outer", &nscope.Symbol{Name: "outer"})

	cp := root.MakeCheckpoint()
	root.Declare("leaked", &nscope.Symbol{Name: "leaked"})
	if _, ok := root.LookupLocal("leaked"); !ok {
		t.Fatal("expected 'leaked' to be declared before restore")
	}
	cp.Restore()
	if _, ok := root.LookupLocal("leaked"); ok {
		t.Error("expected 'leaked' to be gone after restoring the checkpoint")
	}
	if _, ok := root.LookupLocal("outer"); !ok {
		t.Error("'outer' should survive a restore taken after its declaration")
	}
}

func TestAfterInferQueuesAndRuns(t *testing.T) {
	e := newEngine()
	ran := false
	if err := e.Run(`afterinfer(print)`); err != nil {
		t.Fatal(err)
	}
	if len(e.deferred) != 1 {
		t.Fatalf("afterinfer queued %d callbacks, want 1", len(e.deferred))
	}
	e.deferred = append(e.deferred, func() error { ran = true; return nil })
	if err := e.RunDeferred(); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("expected RunDeferred to run every queued callback")
	}
}

func TestHygienizeWrapsAFunctionLiteralDefinedInPPSource(t *testing.T) {
	e := newEngine()
	if err := e.Run(`local double = hygienize(function(n) return n * 2 end)`); err != nil {
		t.Fatal(err)
	}
	v, ok := e.Lookup("double")
	if !ok || v.Tag != ppval.TagFunc {
		t.Fatalf("double = %+v, ok=%v, want a wrapped function", v, ok)
	}
	result, err := v.Fn([]ppval.Value{ppval.Int(21)})
	if err != nil {
		t.Fatal(err)
	}
	if result.Int != 42 {
		t.Errorf("double(21) = %+v, want Int(42)", result)
	}
}

func TestInjectNodeAccumulatesAndClearsOnTaken(t *testing.T) {
	e := newEngine()
	reg := ast.NewRegistry()
	n := ast.New(ast.NilLit, zeroPos())
	reg.Register(n)
	if _, err := e.hostInjectNode([]ppval.Value{ppval.Node(n)}); err != nil {
		t.Fatal(err)
	}
	got := e.Taken()
	if len(got) != 1 || got[0] != n {
		t.Fatalf("Taken() = %v, want [n]", got)
	}
	if len(e.Taken()) != 0 {
		t.Error("Taken() should clear the pending list")
	}
}

func TestLayeredLookupFallsBackToPragmaThenPrimtypes(t *testing.T) {
	e := newEngine()
	e.Primtypes["int32"] = &types.Primitive{Kind: types.I32}
	v, ok := e.Lookup("int32")
	if !ok || v.Tag != ppval.TagType {
		t.Fatalf("Lookup(int32) = %+v, ok=%v, want a TagType value", v, ok)
	}

	if err := e.Pragmas.SetField(pragma_NoChecks(), true); err != nil {
		t.Fatal(err)
	}
	v, ok = e.Lookup(string(pragma_NoChecks()))
	if !ok || v.Tag != ppval.TagBool || !v.Bool {
		t.Fatalf("Lookup(nochecks) = %+v, ok=%v, want Bool(true)", v, ok)
	}
}

func pragma_NoChecks() pragma.Field { return pragma.NoChecks }

func zeroPos() token.Position { return token.Position{Line: 1, Col: 1} }
