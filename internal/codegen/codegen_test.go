package codegen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sondro/nelua-lang/internal/analyzer"
	"github.com/Sondro/nelua-lang/internal/ast"
	"github.com/Sondro/nelua-lang/internal/parser"
	"github.com/Sondro/nelua-lang/internal/types"
)

func genFrom(t *testing.T, src string) string {
	t.Helper()
	reg := ast.NewRegistry()
	root, err := parser.Parse("t.nelua", src, reg)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	a := analyzer.New("t.nelua", reg)
	bag := a.Analyze(root)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	return New(a.Interner).Gen(root)
}

func TestGenHelloWorldLowersPrintToStringviewHelper(t *testing.T) {
	out := genFrom(t, `print "hello world"`)
	if !strings.Contains(out, "nelua_print_") {
		t.Errorf("expected a generated print helper call, got:\n%s", out)
	}
	if !strings.Contains(out, `"hello world"`) {
		t.Errorf("expected the string literal's bytes to appear verbatim, got:\n%s", out)
	}
	if !strings.Contains(out, "int main(void) {") {
		t.Errorf("expected top-level statements wrapped in main, got:\n%s", out)
	}
}

func TestGenIntegerDivisionUsesFloorCorrectHelper(t *testing.T) {
	out := genFrom(t, `local x = 7 / 2`)
	if !strings.Contains(out, "nelua_idiv_") {
		t.Errorf("expected integer division to route through the floor-division helper, got:\n%s", out)
	}
}

func TestGenIntegerModuloUsesFloorCorrectHelper(t *testing.T) {
	out := genFrom(t, `local x = 7 % 2`)
	if !strings.Contains(out, "nelua_imod_") {
		t.Errorf("expected integer modulo to route through the floor-modulo helper, got:\n%s", out)
	}
}

func TestGenIsDeterministicAcrossRepeatedRuns(t *testing.T) {
	reg := ast.NewRegistry()
	root, err := parser.Parse("t.nelua", `
local x = 1 + 2
function double(n: int32): int32
  return n * 2
end
print(double(21))
`, reg)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	a := analyzer.New("t.nelua", reg)
	if bag := a.Analyze(root); bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	out1 := New(a.Interner).Gen(root)
	out2 := New(a.Interner).Gen(root)
	if out1 != out2 {
		t.Errorf("two Gen passes over the same AST diverged:\n--- first ---\n%s\n--- second ---\n%s", out1, out2)
	}
}

func TestGenFunctionDeclEmitsForwardPrototypeForRecursion(t *testing.T) {
	out := genFrom(t, `
function even(n: int32): boolean
  if n == 0 then
    return true
  end
  return odd(n - 1)
end

function odd(n: int32): boolean
  if n == 0 then
    return false
  end
  return even(n - 1)
end
`)
	if !strings.Contains(out, "nlv_even(") || !strings.Contains(out, "nlv_odd(") {
		t.Errorf("expected both functions lowered by name, got:\n%s", out)
	}
	protoIdx := strings.Index(out, "boolean")
	_ = protoIdx
	if !strings.Contains(out, "nlv_odd(int32_t nlv_n);") || strings.Count(out, "nlv_odd") < 2 {
		t.Errorf("expected a forward prototype plus the call site for odd, got:\n%s", out)
	}
}

func TestGenBuiltinHelpersAreEmittedOnlyOnce(t *testing.T) {
	out := genFrom(t, `
local a = 7 / 2
local b = 9 / 2
`)
	if strings.Count(out, "static int64_t nelua_idiv_nlt_isize") != 1 {
		t.Errorf("expected exactly one idiv helper definition despite two call sites, got:\n%s", out)
	}
}

func TestGenAssertLowersToArityDispatchedHelper(t *testing.T) {
	out := genFrom(t, `assert(1 == 1, "never")`)
	if !strings.Contains(out, "nelua_assert2(") {
		t.Errorf("expected the two-argument assert to dispatch to nelua_assert2, got:\n%s", out)
	}
}

func TestGenStringConcatRoutesThroughConcatHelper(t *testing.T) {
	out := genFrom(t, `local s = "foo" .. "bar"`)
	if !strings.Contains(out, "nelua_concat(") {
		t.Errorf("expected `..` to lower to a nelua_concat call, got:\n%s", out)
	}
}

func TestGenPrintSeparatesArgumentsWithTabAndEndsWithNewline(t *testing.T) {
	out := genFrom(t, `print(1, "two")`)
	if !strings.Contains(out, `fputs("\t", stdout)`) {
		t.Errorf("expected print arguments to be tab-separated, got:\n%s", out)
	}
	if !strings.Contains(out, `fputs("\n", stdout)`) {
		t.Errorf("expected print to terminate with a newline, got:\n%s", out)
	}
}

// i32/u32 build standalone primitive types for tests that construct AST
// fragments by hand rather than going through the parser, mirroring
// internal/cbuiltins' own test helpers.
func i32() types.Type { return &types.Primitive{Kind: types.I32} }
func u32() types.Type { return &types.Primitive{Kind: types.U32} }

func TestGenIndexGuardsArrayBounds(t *testing.T) {
	g := New(types.NewInterner())
	arrType := &types.Array{Elem: i32(), N: 4}
	base := ast.New(ast.Id, ast.Node{}.Pos)
	base.Str = "xs"
	base.SetAttr(ast.AttrType, types.Type(arrType))
	idx := ast.New(ast.NumberLit, ast.Node{}.Pos)
	idx.Str = "0"
	idx.SetAttr(ast.AttrType, i32())
	n := ast.New(ast.Index, ast.Node{}.Pos, base, idx)

	got := g.genIndex(n)
	if !strings.Contains(got, "nelua_assert_bounds(") {
		t.Errorf("expected array indexing to route through nelua_assert_bounds, got %q", got)
	}
	if !strings.Contains(g.e.String(), "array index: position out of bounds") {
		t.Errorf("expected the spec's fixed bounds-check panic message, got:\n%s", g.e.String())
	}
}

func TestGenIndexGuardsPointerDeref(t *testing.T) {
	g := New(types.NewInterner())
	ptrType := &types.Pointer{Base: i32()}
	base := ast.New(ast.Id, ast.Node{}.Pos)
	base.Str = "p"
	base.SetAttr(ast.AttrType, types.Type(ptrType))
	idx := ast.New(ast.NumberLit, ast.Node{}.Pos)
	idx.Str = "0"
	idx.SetAttr(ast.AttrType, i32())
	n := ast.New(ast.Index, ast.Node{}.Pos, base, idx)

	got := g.genIndex(n)
	if !strings.Contains(got, "nelua_assert_deref(") {
		t.Errorf("expected pointer indexing to route through nelua_assert_deref, got %q", got)
	}
	if !strings.Contains(g.e.String(), "attempt to dereference a null pointer") {
		t.Errorf("expected the spec's fixed null-deref panic message, got:\n%s", g.e.String())
	}
}

func idNodeWithType(name string, t types.Type) *ast.Node {
	n := ast.New(ast.Id, ast.Node{}.Pos)
	n.Str = name
	n.SetAttr(ast.AttrType, t)
	return n
}

func TestGenBinaryCrossSignComparisonAvoidsSignedToUnsignedPromotion(t *testing.T) {
	g := New(types.NewInterner())
	lhs := idNodeWithType("a", i32())
	rhs := idNodeWithType("b", u32())
	n := ast.New(ast.BinOp, ast.Node{}.Pos, lhs, rhs)
	n.Str = "<"

	got := g.genBinary(n)
	if !strings.Contains(got, "nelua_cmp_lt_") {
		t.Errorf("expected a signed/unsigned comparison to route through a cross-sign helper, got %q", got)
	}
	if !strings.Contains(g.e.String(), "if (a < 0) return 1;") {
		t.Errorf("expected the cross-sign helper's negative-signed short-circuit, got:\n%s", g.e.String())
	}
}

func TestGenBinaryCrossSignComparisonSwapsOperandOrder(t *testing.T) {
	g := New(types.NewInterner())
	lhs := idNodeWithType("a", u32())
	rhs := idNodeWithType("b", i32())
	n := ast.New(ast.BinOp, ast.Node{}.Pos, lhs, rhs)
	n.Str = "<"

	got := g.genBinary(n)
	if !strings.Contains(got, "nlv_b, nlv_a") {
		t.Errorf("expected the unsigned-lhs case to swap operands around the signed-first helper, got %q", got)
	}
}

func TestGenBinaryRecordEqualityComparesFieldByField(t *testing.T) {
	g := New(types.NewInterner())
	rec := &types.Record{Name: "Point", Fields: []types.Field{
		{Name: "x", Type: i32()},
		{Name: "y", Type: i32()},
	}}
	lhs := idNodeWithType("a", rec)
	rhs := idNodeWithType("b", rec)
	n := ast.New(ast.BinOp, ast.Node{}.Pos, lhs, rhs)
	n.Str = "=="

	got := g.genBinary(n)
	if !strings.Contains(got, "nelua_eq_") {
		t.Errorf("expected record `==` to route through a field-by-field equality helper, got %q", got)
	}
	if !strings.Contains(g.e.String(), "a.x == b.x && a.y == b.y") {
		t.Errorf("expected field-by-field comparison in the generated helper, got:\n%s", g.e.String())
	}
}

func TestGenDeclWrapsNarrowingInitializerInAssertNarrow(t *testing.T) {
	g := New(types.NewInterner())
	idn := ast.New(ast.Id, ast.Node{}.Pos)
	idn.Str = "x"
	initNode := idNodeWithType("y", i32())
	n := ast.New(ast.LocalDecl, ast.Node{}.Pos, idn, initNode)
	i8 := &types.Primitive{Kind: types.I8}
	n.SetAttr(ast.AttrType, types.Type(i8))
	n.SetAttr(ast.AttrNarrowFrom, i32())

	g.genDecl(n)
	out := g.e.String()
	if !strings.Contains(out, "nelua_assert_narrow_") {
		t.Errorf("expected a narrowing local declaration to route through assert_narrow, got:\n%s", out)
	}
	if !strings.Contains(out, "narrow casting from int32 to int8 failed") {
		t.Errorf("expected the spec's fixed narrowing panic message, got:\n%s", out)
	}
}

func TestGenRequireInlinesModuleAtFileScopeAndOnlyOnce(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, "mathutil.nelua")
	if err := os.WriteFile(libPath, []byte("function square(n: int32): int32\n  return n * n\nend\n"), 0644); err != nil {
		t.Fatalf("write lib: %v", err)
	}
	mainPath := filepath.Join(dir, "main.nelua")
	src := "require 'mathutil'\nprint(square(3))\n"
	if err := os.WriteFile(mainPath, []byte(src), 0644); err != nil {
		t.Fatalf("write main: %v", err)
	}

	reg := ast.NewRegistry()
	root, err := parser.Parse(mainPath, src, reg)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	a := analyzer.New(mainPath, reg)
	bag := a.Analyze(root)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	out := New(a.Interner).Gen(root)
	if !strings.Contains(out, "nlv_square(") {
		t.Errorf("expected the required module's function to be inlined, got:\n%s", out)
	}
	if strings.Count(out, "nlv_square(") < 2 {
		t.Errorf("expected both the definition and the call site, got:\n%s", out)
	}
	if !strings.Contains(out, "/* require 'mathutil' */") {
		t.Errorf("expected a require marker comment, got:\n%s", out)
	}
}
