package cbuiltins

import (
	"strings"
	"testing"

	"github.com/Sondro/nelua-lang/internal/emitter"
	"github.com/Sondro/nelua-lang/internal/types"
)

func i32() types.Type { return &types.Primitive{Kind: types.I32} }
func u32() types.Type { return &types.Primitive{Kind: types.U32} }

func TestEnsureIDivIsIdempotentAndGuardsOverflow(t *testing.T) {
	e := emitter.New()
	name1 := EnsureIDiv(e, i32())
	name2 := EnsureIDiv(e, i32())
	if name1 != name2 {
		t.Errorf("expected the same helper name across calls, got %q and %q", name1, name2)
	}
	out := e.String()
	if strings.Count(out, "static int32_t "+name1) != 1 {
		t.Errorf("expected exactly one definition of %s, got:\n%s", name1, out)
	}
	if !strings.Contains(out, "divide by zero") {
		t.Error("expected a divide-by-zero guard")
	}
	if !strings.Contains(out, "b == -1") || !strings.Contains(out, "0 - (unsigned") {
		t.Error("expected MIN/-1 to wrap back to MIN via unsigned negation, not panic")
	}
}

func TestEnsureIDivMinByNegOneWrapsInsteadOfPanicking(t *testing.T) {
	e := emitter.New()
	EnsureIDiv(e, i32())
	out := e.String()
	if strings.Contains(out, "attempt to divide with overflow") {
		t.Error("MIN / -1 must not panic: spec defines it to wrap back to MIN")
	}
}

func TestEnsureIModFloorsTowardDivisorSign(t *testing.T) {
	e := emitter.New()
	name := EnsureIMod(e, i32())
	out := e.String()
	if !strings.Contains(out, name) {
		t.Fatalf("missing definition of %s in:\n%s", name, out)
	}
	if !strings.Contains(out, "r += b") {
		t.Error("expected the floor-correction step adding the divisor back")
	}
}

func TestEnsureShiftKindsDistinctNames(t *testing.T) {
	e := emitter.New()
	shl := EnsureShift(e, i32(), "shl")
	shr := EnsureShift(e, i32(), "shr")
	asr := EnsureShift(e, i32(), "asr")
	if shl == shr || shr == asr || shl == asr {
		t.Errorf("expected distinct helper names, got shl=%q shr=%q asr=%q", shl, shr, asr)
	}
	out := e.String()
	for _, name := range []string{shl, shr, asr} {
		if !strings.Contains(out, name+"(") {
			t.Errorf("missing helper %s in output", name)
		}
	}
}

func TestEnsureCrossSignLtHandlesNegativeSigned(t *testing.T) {
	e := emitter.New()
	name := EnsureCrossSignLt(e, i32(), u32(), CmpLt)
	out := e.String()
	if !strings.Contains(out, "if (a < 0) return 1;") {
		t.Errorf("expected the negative-signed-operand short-circuit, got:\n%s", out)
	}
	if !strings.Contains(out, name) {
		t.Errorf("missing generated function %s", name)
	}
}

func TestEnsureBoundsAndDerefHelpersAreIdempotent(t *testing.T) {
	e := emitter.New()
	EnsureAssertBounds(e)
	EnsureAssertBounds(e)
	EnsureAssertDeref(e)
	EnsureAssertDeref(e)
	out := e.String()
	if strings.Count(out, "nelua_assert_bounds(size_t") != 1 {
		t.Errorf("expected exactly one bounds-check definition, got:\n%s", out)
	}
	if strings.Count(out, "nelua_assert_deref(void*") != 1 {
		t.Errorf("expected exactly one deref-check definition, got:\n%s", out)
	}
}

func TestEnsureEqFieldByField(t *testing.T) {
	rec := &types.Record{Name: "Point", Fields: []types.Field{
		{Name: "x", Type: i32()},
		{Name: "y", Type: i32()},
	}}
	e := emitter.New()
	name := EnsureEq(e, rec)
	out := e.String()
	if !strings.Contains(out, "a.x == b.x && a.y == b.y") {
		t.Errorf("expected field-by-field comparison, got:\n%s", out)
	}
	if !strings.Contains(out, name) {
		t.Errorf("missing function %s", name)
	}
}

func TestCTypeNameMapsPrimitivesAndPointers(t *testing.T) {
	cases := []struct {
		t    types.Type
		want string
	}{
		{i32(), "int32_t"},
		{u32(), "uint32_t"},
		{&types.Pointer{Base: i32()}, "int32_t*"},
		{&types.Array{Elem: i32(), N: 4}, "int32_t[4]"},
	}
	for _, c := range cases {
		if got := CTypeName(c.t); got != c.want {
			t.Errorf("CTypeName(%v) = %q, want %q", c.t, got, c.want)
		}
	}
}

func TestEnsureAssertArities(t *testing.T) {
	e := emitter.New()
	EnsureAssert(e)
	out := e.String()
	for _, fn := range []string{"nelua_assert0", "nelua_assert1", "nelua_assert2"} {
		if !strings.Contains(out, fn) {
			t.Errorf("missing %s in:\n%s", fn, out)
		}
	}
}

func TestEnsureRequireGuardDedup(t *testing.T) {
	e := emitter.New()
	guard1, already1 := EnsureRequireGuard(e, "vector")
	guard2, already2 := EnsureRequireGuard(e, "vector")
	if guard1 != guard2 {
		t.Errorf("guard name changed across calls: %q vs %q", guard1, guard2)
	}
	if already1 {
		t.Error("first EnsureRequireGuard call should report not-already-emitted")
	}
	if !already2 {
		t.Error("second EnsureRequireGuard call should report already-emitted")
	}
	if strings.Count(e.String(), "#ifndef "+guard1) != 1 {
		t.Errorf("expected exactly one guard emission, got:\n%s", e.String())
	}
}

func TestEnsureStringConversionHelpersRoundTripNamesStable(t *testing.T) {
	e := emitter.New()
	toC := EnsureStringToCString(e)
	fromC := EnsureCStringToString(e)
	if toC == "" || fromC == "" {
		t.Fatal("expected non-empty helper names")
	}
	out := e.String()
	if !strings.Contains(out, "malloc(len + 1)") {
		t.Error("expected the string2cstring helper to allocate len+1 bytes for the NUL terminator")
	}
}

func TestEnsurePrintDispatchesOnPrintableKind(t *testing.T) {
	e := emitter.New()
	EnsurePrint(e, i32())
	EnsurePrint(e, u32())
	EnsurePrint(e, &types.Primitive{Kind: types.String})
	EnsurePrint(e, &types.Primitive{Kind: types.Bool})
	EnsurePrint(e, &types.Primitive{Kind: types.CString})
	EnsurePrint(e, &types.Primitive{Kind: types.NilType})
	EnsurePrint(e, &types.Primitive{Kind: types.NilPtr})
	EnsurePrint(e, &types.Pointer{Base: i32()})
	out := e.String()
	if !strings.Contains(out, `printf("%lld", (long long)v)`) {
		t.Error("expected the signed-integer print helper to cast up to long long before %lld")
	}
	if !strings.Contains(out, `printf("%llu", (unsigned long long)v)`) {
		t.Error("expected the unsigned-integer print helper to cast up to unsigned long long before %llu")
	}
	if !strings.Contains(out, "fwrite(v.data, 1, v.len, stdout)") {
		t.Error("expected the stringview print helper to fwrite its data/len, not print the struct's own address")
	}
	if !strings.Contains(out, `v ? "true" : "false"`) {
		t.Error("expected the boolean print helper to render true/false words")
	}
	if !strings.Contains(out, `fputs(v, stdout)`) {
		t.Error("expected the cstring print helper to pass v directly to fputs")
	}
	if !strings.Contains(out, `fputs("nil", stdout)`) {
		t.Error("expected the niltype print helper to print \"nil\"")
	}
	if !strings.Contains(out, `fputs("(null)", stdout)`) {
		t.Error("expected the nilptr/null-pointer print helpers to print \"(null)\"")
	}
	if !strings.Contains(out, `PRIxPTR`) {
		t.Error("expected the pointer print helper to format its address with PRIxPTR")
	}
}
