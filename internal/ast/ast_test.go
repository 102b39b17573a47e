package ast

import (
	"testing"

	"github.com/Sondro/nelua-lang/internal/token"
)

func TestRegistryAssignsStableIndices(t *testing.T) {
	r := NewRegistry()
	a := New(StringLit, position())
	b := New(NumberLit, position())

	ia := r.Register(a)
	ib := r.Register(b)
	if ia == 0 || ib == 0 || ia == ib {
		t.Fatalf("expected distinct nonzero indices, got %d %d", ia, ib)
	}
	if r.Get(ia) != a {
		t.Errorf("Get(%d) did not return the registered node", ia)
	}
	// Re-registering is idempotent.
	if again := r.Register(a); again != ia {
		t.Errorf("re-register changed index: %d != %d", again, ia)
	}
}

func TestCloneAssignsFreshIdentity(t *testing.T) {
	r := NewRegistry()
	orig := New(Block, position(), New(StringLit, position()))
	orig.SetAttr(AttrType, "stringview")
	r.Register(orig)

	clone := Clone(orig)
	if clone.Index != 0 {
		t.Fatalf("clone should start unregistered, got index %d", clone.Index)
	}
	idx := r.Register(clone)
	if idx == orig.Index {
		t.Errorf("clone got the same registry index as the original")
	}
	if len(clone.Children) != len(orig.Children) {
		t.Fatalf("clone child count mismatch")
	}
	if clone.Children[0] == orig.Children[0] {
		t.Errorf("clone shares child pointer with original; expected deep copy")
	}
	if v, _ := clone.Attr(AttrType); v != "stringview" {
		t.Errorf("clone lost attribute: %v", v)
	}
}

func position() token.Position { return token.Position{Line: 1, Col: 1} }
