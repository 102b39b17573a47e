package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

const helloWorldSrc = `print "hello world"`

func runArgs(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	code = run(append([]string{"nelua"}, args...), &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

// Scenario 1: --print-ast on the hello-world program dumps a Block whose
// lone statement is a Call to print with one String argument.
func TestPrintASTDumpsHelloWorldCallTree(t *testing.T) {
	out, errOut, code := runArgs(t, "--print-ast", "--eval", helloWorldSrc)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, errOut)
	}
	if !strings.Contains(out, "Block") {
		t.Errorf("output = %q, want it to contain the root Block tag", out)
	}
	if !strings.Contains(out, "Call") || !strings.Contains(out, "String") || !strings.Contains(out, "hello world") {
		t.Errorf("output = %q, want a Call node over a String{\"hello world\"} argument", out)
	}
}

// Scenario 2: --print-analyzed-ast carries the same tree, now annotated
// with the inferred stringview type on the literal argument.
func TestPrintAnalyzedASTAnnotatesStringLiteralType(t *testing.T) {
	out, errOut, code := runArgs(t, "--print-analyzed-ast", "--eval", helloWorldSrc)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, errOut)
	}
	if !strings.Contains(out, "hello world") {
		t.Errorf("output = %q, want the string literal to survive analysis", out)
	}
	if !strings.Contains(out, "stringview") {
		t.Errorf("output = %q, want a stringview type attribute on the literal", out)
	}
}

// Scenario 3: the Lua backend lowers print("hello world") verbatim.
func TestGeneratorLuaPrintCodeEmitsLuaPrintCall(t *testing.T) {
	dir := t.TempDir()
	out, errOut, code := runArgs(t, "--generator", "lua", "--print-code",
		"-o", filepath.Join(dir, "helloworld.lua"), "--eval", helloWorldSrc)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, errOut)
	}
	if !strings.Contains(out, `print("hello world")`) {
		t.Errorf("output = %q, want it to contain print(\"hello world\")", out)
	}
}

// Scenario 4: an undefined literal suffix is rejected with the exact
// diagnostic substring the driver is required to surface.
func TestUndefinedLiteralSuffixFailsWithExactDiagnostic(t *testing.T) {
	_, errOut, code := runArgs(t, "--analyze", "--eval", `local a = 1_x`)
	if code == 0 {
		t.Fatalf("expected a nonzero exit code, got 0 (stderr = %q)", errOut)
	}
	if !strings.Contains(errOut, "literal suffix '_x' is undefined") {
		t.Errorf("stderr = %q, want it to contain \"literal suffix '_x' is undefined\"", errOut)
	}
}

// Scenario 5: -D/--define populate the preprocessor environment so a
// staticassert over all four forms (bare, glued, '=', quoted) succeeds.
func TestDefineFlagsPopulatePreprocessorEnvironment(t *testing.T) {
	_, errOut, code := runArgs(t, "--analyze",
		"-D", "DEF1",
		"-DDEF2",
		"-D", "DEF3=1",
		"-DDEF4='asd'",
		"--eval", `## staticassert(DEF1==true and DEF2==true and DEF3==1 and DEF4=='asd')`,
	)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q, want success", code, errOut)
	}
}

// Scenario 6: a polymorphic (auto-parameter) function instantiated with
// a static_error inside its body fails mentioning the instantiation.
func TestPolymorphicInstantiationSurfacesStaticError(t *testing.T) {
	_, errOut, code := runArgs(t, "--analyze", "--eval", `
local function f(x: auto)
  ## static_error('fail')
end
f(1)
`)
	if code == 0 {
		t.Fatalf("expected a nonzero exit code, got 0 (stderr = %q)", errOut)
	}
	if !strings.Contains(errOut, "polymorphic function instantiation") {
		t.Errorf("stderr = %q, want it to mention \"polymorphic function instantiation\"", errOut)
	}
}

func TestUnknownOptionIsRejected(t *testing.T) {
	_, errOut, code := runArgs(t, "--not-a-real-flag")
	if code == 0 {
		t.Fatalf("expected a nonzero exit code, got 0")
	}
	if !strings.Contains(errOut, "unknown option") {
		t.Errorf("stderr = %q, want it to contain \"unknown option\"", errOut)
	}
}

func TestSearchPathMustBeADirectory(t *testing.T) {
	_, errOut, code := runArgs(t, "--path", "/this/path/does/not/exist", "--eval", helloWorldSrc)
	if code == 0 {
		t.Fatalf("expected a nonzero exit code, got 0")
	}
	if !strings.Contains(errOut, "is not a valid directory") {
		t.Errorf("stderr = %q, want it to contain \"is not a valid directory\"", errOut)
	}
}
