package types

// Equal implements spec §4.C's structural equality: primitives/pointers/
// arrays/functions compare by shape (and, for primitives/arrays/pointers
// returned by an Interner, by identity too, since those are deduped);
// records/unions/enums compare by Go pointer identity only (nominal).
func Equal(a, b Type) bool {
	if a == b {
		return true
	}
	switch av := a.(type) {
	case *Primitive:
		bv, ok := b.(*Primitive)
		return ok && av.Kind == bv.Kind
	case *Pointer:
		bv, ok := b.(*Pointer)
		return ok && Equal(av.Base, bv.Base)
	case *Array:
		bv, ok := b.(*Array)
		return ok && av.N == bv.N && Equal(av.Elem, bv.Elem)
	case *Function:
		bv, ok := b.(*Function)
		return ok && functionEqual(av, bv.Args, bv.Rets, bv.Variadic)
	default:
		// Record, Union, Enum, TypeOfType: nominal, already excluded by a==b above.
		return false
	}
}

// integerRank orders integer kinds by width for promotion purposes; two
// kinds of equal rank but different signedness promote to the wider
// unsigned side per spec §4.C arithmetic promotion.
var integerRank = map[PrimKind]int{
	I8: 1, U8: 1, I16: 2, U16: 2, I32: 3, U32: 3,
	I64: 4, U64: 4, ISize: 4, USize: 4,
}

// Assignable reports whether a value of type src can be assigned to a
// variable of type dst, allowing the implicit widenings spec §4.C
// describes (narrower integer/float literal to wider of the same
// signedness-or-better, niltype to any pointer, any to its own type).
func Assignable(dst, src Type) bool {
	if Equal(dst, src) {
		return true
	}
	dp, dIsPrim := dst.(*Primitive)
	sp, sIsPrim := src.(*Primitive)
	if dIsPrim && sIsPrim {
		switch {
		case sp.Kind == NilType:
			return false // niltype assigns only to pointers, handled below
		case dp.IsInteger() && sp.IsInteger():
			if dp.IsSigned() != sp.IsSigned() {
				return false // narrowing/cross-sign needs an explicit cast
			}
			return integerRank[dp.Kind] >= integerRank[sp.Kind]
		case dp.IsFloat() && sp.IsFloat():
			return dp.Size() >= sp.Size()
		case dp.IsFloat() && sp.IsInteger():
			return true // integers implicitly widen to float
		}
		return false
	}
	if dp2, ok := dst.(*Pointer); ok {
		if sp2, ok := src.(*Primitive); ok && sp2.Kind == NilType {
			return true
		}
		if sptr, ok := src.(*Pointer); ok {
			return Equal(dp2.Base, sptr.Base)
		}
	}
	return false
}

// Promote returns the result type of a binary arithmetic operator applied
// to operands of type a and b (spec §4.C "arithmetic promotion rules").
// Returns nil if the types cannot be combined arithmetically.
func Promote(a, b Type) Type {
	ap, aok := a.(*Primitive)
	bp, bok := b.(*Primitive)
	if !aok || !bok {
		return nil
	}
	if ap.IsFloat() || bp.IsFloat() {
		if ap.IsFloat() && bp.IsFloat() {
			if ap.Size() >= bp.Size() {
				return ap
			}
			return bp
		}
		if ap.IsFloat() {
			return ap
		}
		return bp
	}
	if !ap.IsInteger() || !bp.IsInteger() {
		return nil
	}
	ra, rb := integerRank[ap.Kind], integerRank[bp.Kind]
	wide := ap
	if rb > ra {
		wide = bp
	}
	// Same-rank cross-sign promotes to unsigned, matching C's usual
	// arithmetic conversions (and this core's `eq`/`lt` builtins, which
	// exist precisely to cope with the signed operand in such a pair).
	if ra == rb && ap.IsSigned() != bp.IsSigned() {
		if ap.IsSigned() {
			return bp
		}
		return ap
	}
	return wide
}

// SignedType and UnsignedType map between integer signednesses at the
// same bit width (spec §4.C).
func SignedType(it *Interner, p *Primitive) *Primitive {
	switch p.Kind {
	case U8:
		return it.Prim(I8)
	case U16:
		return it.Prim(I16)
	case U32:
		return it.Prim(I32)
	case U64:
		return it.Prim(I64)
	case USize:
		return it.Prim(ISize)
	}
	return p
}

func UnsignedType(it *Interner, p *Primitive) *Primitive {
	switch p.Kind {
	case I8:
		return it.Prim(U8)
	case I16:
		return it.Prim(U16)
	case I32:
		return it.Prim(U32)
	case I64:
		return it.Prim(U64)
	case ISize:
		return it.Prim(USize)
	}
	return p
}

// IsNarrowing reports whether converting a value of type src to dst can
// lose information (spec GLOSSARY: "any conversion whose source range is
// not a subset of the destination range").
func IsNarrowing(dst, src Type) bool {
	dp, dok := dst.(*Primitive)
	sp, sok := src.(*Primitive)
	if !dok || !sok || !dp.IsInteger() || !sp.IsInteger() {
		return false
	}
	if dp.IsSigned() != sp.IsSigned() {
		return true
	}
	return dp.BitSize() < sp.BitSize()
}
