package ppexpr

import "testing"

func TestParseLiteralKinds(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"true", "true"},
		{"false", "false"},
		{"nil", "nil"},
		{"42", "42"},
		{"-7", "-7"},
		{"3.14", "3.14"},
		{`"hello"`, `"hello"`},
		{"DEBUG", "DEBUG"},
	}
	for _, c := range cases {
		lit, err := Parse(c.src)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", c.src, err)
			continue
		}
		if got := lit.String(); got != c.want {
			t.Errorf("Parse(%q).String() = %q, want %q", c.src, got, c.want)
		}
	}
}

func TestParseDefineWithAndWithoutValue(t *testing.T) {
	d, err := ParseDefine("SOMEFLAG")
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != "SOMEFLAG" || d.Value.Bool == nil || !d.Value.Bool.Value {
		t.Errorf("ParseDefine(SOMEFLAG) = %+v, want implicit true", d)
	}

	d, err = ParseDefine("LEVEL=3")
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != "LEVEL" || d.Value.Int == nil || *d.Value.Int != 3 {
		t.Errorf("ParseDefine(LEVEL=3) = %+v, want Int 3", d)
	}
}

func TestParseDefineRejectsEmptyName(t *testing.T) {
	if _, err := ParseDefine("=1"); err == nil {
		t.Error("expected an error for an empty define name")
	}
}
