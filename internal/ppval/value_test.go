package ppval

import "testing"

func TestTruthiness(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Nil, false},
		{Bool(false), false},
		{Bool(true), true},
		{Int(0), true}, // unlike some languages, 0 is truthy (Lua-family rule)
		{Str(""), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestEnvChainedLookup(t *testing.T) {
	outer := NewEnv(nil)
	outer.Define("x", Int(1))
	inner := NewEnv(outer)
	inner.Define("y", Int(2))

	if v, ok := inner.Get("x"); !ok || v.Int != 1 {
		t.Fatalf("expected to find 'x' via parent chain, got %v %v", v, ok)
	}
	if err := inner.Set("x", Int(42)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := outer.Get("x"); v.Int != 42 {
		t.Errorf("Set should have updated the outer frame's binding, got %v", v.Int)
	}
	if err := inner.Set("undefined", Int(1)); err == nil {
		t.Errorf("expected an error assigning to an undefined name")
	}
}

func TestTableInsertionOrder(t *testing.T) {
	tbl := NewTable()
	tbl.Set("b", Int(2))
	tbl.Set("a", Int(1))
	tbl.Set("b", Int(99)) // overwrite, must not duplicate the key
	keys := tbl.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Errorf("Keys() = %v, want [b a]", keys)
	}
	v, _ := tbl.Get("b")
	if v.Int != 99 {
		t.Errorf("Get(b) = %d, want 99", v.Int)
	}
}
