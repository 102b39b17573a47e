package token

import "testing"

func TestTokenizeHelloWorld(t *testing.T) {
	toks, err := Tokenize("helloworld", `print "hello world"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Kind{Keyword, String, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d (%v)", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got kind %v, want %v", i, toks[i].Kind, k)
		}
	}
	if toks[1].Text != "hello world" {
		t.Errorf("string literal text = %q, want %q", toks[1].Text, "hello world")
	}
}

func TestTokenizeLiteralSuffix(t *testing.T) {
	toks, err := Tokenize("eval", `local a = 1_x`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var num *Token
	for i := range toks {
		if toks[i].Kind == Number {
			num = &toks[i]
		}
	}
	if num == nil {
		t.Fatalf("no number token found in %v", toks)
	}
	if num.Text != "1" || num.Suffix != "x" {
		t.Errorf("number = %q suffix = %q, want 1 / x", num.Text, num.Suffix)
	}
}

func TestTokenizePreprocessForms(t *testing.T) {
	toks, err := Tokenize("pp", "## staticassert(true)\nlocal x = #[1+1]#\nlocal #|\"y\"|# = 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var kinds []Kind
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	foundStmt, foundExpr, foundName := false, false, false
	for i, tk := range toks {
		switch tk.Kind {
		case PPStmt:
			foundStmt = true
			if tk.Text != "staticassert(true)" {
				t.Errorf("PPStmt text = %q", tk.Text)
			}
			if !toks[i].AtLineStart {
				t.Errorf("## should be at line start")
			}
		case PPExpr:
			foundExpr = true
			if tk.Text != "1+1" {
				t.Errorf("PPExpr text = %q", tk.Text)
			}
		case PPName:
			foundName = true
			if tk.Text != `"y"` {
				t.Errorf("PPName text = %q", tk.Text)
			}
		}
	}
	if !foundStmt || !foundExpr || !foundName {
		t.Fatalf("missing a pp form among kinds: %v", kinds)
	}
}

func TestAtLineStartTracking(t *testing.T) {
	toks, err := Tokenize("t", "a\nb c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// a, b, c, EOF
	if !toks[0].AtLineStart {
		t.Errorf("first token should be at line start")
	}
	if !toks[1].AtLineStart {
		t.Errorf("'b' should be at line start (new line)")
	}
	if toks[2].AtLineStart {
		t.Errorf("'c' should not be at line start")
	}
	if !toks[2].HasSpace {
		t.Errorf("'c' should have preceding space")
	}
}
