package luagen

import (
	"strings"
	"testing"

	"github.com/Sondro/nelua-lang/internal/analyzer"
	"github.com/Sondro/nelua-lang/internal/ast"
	"github.com/Sondro/nelua-lang/internal/parser"
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
	return New().Gen(root)
}

func TestGenHelloWorldLowersToLuaPrintCall(t *testing.T) {
	out := genFrom(t, `print "hello world"`)
	if !strings.Contains(out, `print("hello world")`) {
		t.Errorf("output = %q, want it to contain print(\"hello world\")", out)
	}
}

func TestGenLocalDeclLowersToLuaLocal(t *testing.T) {
	out := genFrom(t, `local x = 1 + 2`)
	if !strings.Contains(out, "local x = (1 + 2)") {
		t.Errorf("output = %q, want a local declaration with the arithmetic expression", out)
	}
}

func TestGenFunctionDeclSupportsMutualRecursionWithoutForwardDeclaration(t *testing.T) {
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
	if !strings.Contains(out, "function even(n)") || !strings.Contains(out, "function odd(n)") {
		t.Errorf("output = %q, want both function declarations lowered", out)
	}
}

func TestGenIntegerDivisionLowersToLuaFloorDivision(t *testing.T) {
	out := genFrom(t, `local x: int32 = 7 / 2`)
	if !strings.Contains(out, "//") {
		t.Errorf("output = %q, want floor division spelled //", out)
	}
}

func TestGenIsDeterministicAcrossRepeatedRuns(t *testing.T) {
	reg := ast.NewRegistry()
	root, err := parser.Parse("t.nelua", `local x = 1 + 2`, reg)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	a := analyzer.New("t.nelua", reg)
	if bag := a.Analyze(root); bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	first := New().Gen(root)
	second := New().Gen(root)
	if first != second {
		t.Errorf("Gen is not deterministic:\n%q\nvs\n%q", first, second)
	}
}
