package parser

import (
	"strings"
	"testing"
)

func TestScanMath_DisplayAndInline(t *testing.T) {
	text := "Consider $$E = mc^2$$ and inline $a+b$ together."
	exprs := ScanMath(text)
	if len(exprs) != 2 {
		t.Fatalf("expected 2 expressions, got %d: %+v", len(exprs), exprs)
	}
	if exprs[0].Text != "E = mc^2" {
		t.Errorf("expected display body %q, got %q", "E = mc^2", exprs[0].Text)
	}
	if exprs[1].Text != "a+b" {
		t.Errorf("expected inline body %q, got %q", "a+b", exprs[1].Text)
	}
}

func TestScanMath_LineOffsets(t *testing.T) {
	text := "intro\n$$x^2$$\nmiddle\n\\[\n\\int_0^1 f\n\\]\nend $y$ here"
	exprs := ScanMath(text)
	if len(exprs) != 3 {
		t.Fatalf("expected 3 expressions, got %d: %+v", len(exprs), exprs)
	}
	wantLines := []int{1, 3, 6}
	for i, want := range wantLines {
		if exprs[i].Line != want {
			t.Errorf("expression %d: expected line %d, got %d", i, want, exprs[i].Line)
		}
	}
	if exprs[1].Text != `\int_0^1 f` {
		t.Errorf("unexpected bracket-display body %q", exprs[1].Text)
	}
}

func TestScanMath_EnvironmentKeptWhole(t *testing.T) {
	text := "Before.\n\\begin{align}\na &= b \\\\\nc &= d\n\\end{align}\nAfter."
	exprs := ScanMath(text)
	if len(exprs) != 1 {
		t.Fatalf("expected 1 expression, got %d: %+v", len(exprs), exprs)
	}
	if !strings.HasPrefix(exprs[0].Text, `\begin{align}`) || !strings.HasSuffix(exprs[0].Text, `\end{align}`) {
		t.Errorf("environment must be kept whole, got %q", exprs[0].Text)
	}
	if exprs[0].Line != 1 {
		t.Errorf("expected line 1, got %d", exprs[0].Line)
	}
}

func TestScanMath_DoubleDollarNotReadAsInline(t *testing.T) {
	exprs := ScanMath("$$a+b$$")
	if len(exprs) != 1 {
		t.Fatalf("expected 1 expression, got %d: %+v", len(exprs), exprs)
	}
	if exprs[0].Text != "a+b" {
		t.Errorf("expected body %q, got %q", "a+b", exprs[0].Text)
	}
}

func TestScanMath_EscapedDelimitersIgnored(t *testing.T) {
	if exprs := ScanMath(`It costs \$5 now and \$10 later.`); len(exprs) != 0 {
		t.Errorf("escaped dollars must not open math, got %+v", exprs)
	}
}

func TestScanMath_InlineParens(t *testing.T) {
	exprs := ScanMath(`The value \(x_0\) is fixed.`)
	if len(exprs) != 1 {
		t.Fatalf("expected 1 expression, got %d", len(exprs))
	}
	if exprs[0].Text != "x_0" {
		t.Errorf("expected body %q, got %q", "x_0", exprs[0].Text)
	}
}

func TestScanMath_NoMath(t *testing.T) {
	if exprs := ScanMath("nothing of interest"); exprs != nil {
		t.Errorf("expected nil, got %+v", exprs)
	}
	if exprs := ScanMath(""); exprs != nil {
		t.Errorf("expected nil for empty text, got %+v", exprs)
	}
}

func TestScanMath_InlineDoesNotCrossLines(t *testing.T) {
	// An unclosed dollar must not pair with one on a later line.
	exprs := ScanMath("price $5\nand $x$ math")
	if len(exprs) != 1 {
		t.Fatalf("expected 1 expression, got %d: %+v", len(exprs), exprs)
	}
	if exprs[0].Text != "x" {
		t.Errorf("expected body %q, got %q", "x", exprs[0].Text)
	}
	if exprs[0].Line != 1 {
		t.Errorf("expected line 1, got %d", exprs[0].Line)
	}
}
