package types

import "testing"

func TestInternerDedupesPrimitivesStructurally(t *testing.T) {
	it := NewInterner()
	a := it.Prim(I32)
	b := it.Prim(I32)
	if a != b {
		t.Fatalf("expected the same *Primitive pointer for repeated I32 lookups")
	}
	if !Equal(a, b) {
		t.Errorf("Equal should hold for identical primitives")
	}
}

func TestInternerDedupesArraysByShape(t *testing.T) {
	it := NewInterner()
	a1 := it.ArrayOf(it.Prim(I32), 4)
	a2 := it.ArrayOf(it.Prim(I32), 4)
	a3 := it.ArrayOf(it.Prim(I32), 5)
	if a1 != a2 {
		t.Errorf("expected array(i32,4) to dedupe to the same pointer")
	}
	if Equal(a1, a3) {
		t.Errorf("array(i32,4) and array(i32,5) must not be equal")
	}
}

func TestRecordsAreNominal(t *testing.T) {
	r1 := NewRecord("Point", []Field{{"x", &Primitive{Kind: I32}}})
	r2 := NewRecord("Point", []Field{{"x", &Primitive{Kind: I32}}})
	if Equal(r1, r2) {
		t.Errorf("two separately declared records with identical shape must not be Equal")
	}
	if !Equal(r1, r1) {
		t.Errorf("a record must be Equal to itself")
	}
}

func TestAssignableWidening(t *testing.T) {
	it := NewInterner()
	if !Assignable(it.Prim(I64), it.Prim(I32)) {
		t.Errorf("int32 should widen to int64")
	}
	if Assignable(it.Prim(I32), it.Prim(I64)) {
		t.Errorf("int64 must not implicitly narrow to int32")
	}
	if Assignable(it.Prim(I32), it.Prim(U32)) {
		t.Errorf("cross-sign assignment must require an explicit cast")
	}
	if !Assignable(it.Prim(F64), it.Prim(I32)) {
		t.Errorf("int32 should widen to float64")
	}
}

func TestPromoteSameRankCrossSignGoesUnsigned(t *testing.T) {
	it := NewInterner()
	got := Promote(it.Prim(I32), it.Prim(U32))
	if got != it.Prim(U32) {
		t.Errorf("int32 op uint32 should promote to uint32, got %v", got)
	}
}

func TestSignedUnsignedRoundTrip(t *testing.T) {
	it := NewInterner()
	u := UnsignedType(it, it.Prim(I32))
	if u != it.Prim(U32) {
		t.Errorf("UnsignedType(int32) = %v, want uint32", u)
	}
	s := SignedType(it, u)
	if s != it.Prim(I32) {
		t.Errorf("SignedType(uint32) = %v, want int32", s)
	}
}

func TestIsNarrowing(t *testing.T) {
	it := NewInterner()
	if !IsNarrowing(it.Prim(I8), it.Prim(I32)) {
		t.Errorf("int32 -> int8 should be narrowing")
	}
	if IsNarrowing(it.Prim(I64), it.Prim(I32)) {
		t.Errorf("int32 -> int64 should not be narrowing")
	}
	if !IsNarrowing(it.Prim(I32), it.Prim(U32)) {
		t.Errorf("cross-sign same-width conversion should be treated as narrowing")
	}
}
