package slides

import (
	"strings"
	"testing"
)

func TestBeamerSource_OneFramePerUnit(t *testing.T) {
	units := []Unit{
		{Title: "Limits", Number: "1", Kind: "chapter", Body: "Approaching a value.", Math: []string{`\lim_{x \to 0} f(x)`}},
		{Title: "Continuity", Number: "2", Kind: "chapter", Body: "No jumps."},
		{Title: "Derivatives", Number: "3", Kind: "chapter", Body: ""},
	}

	src := BeamerSource("Calculus", "A. Author", TemplateAcademic, units)

	if got := strings.Count(src, `\begin{frame}`); got != len(units) {
		t.Fatalf("expected %d frames, got %d", len(units), got)
	}
	if !strings.Contains(src, `\usetheme{Madrid}`) {
		t.Errorf("academic template should use Madrid, got:\n%s", src)
	}
	if !strings.Contains(src, `\frametitle{1. Limits}`) {
		t.Errorf("frame title should carry the number, got:\n%s", src)
	}
	if !strings.Contains(src, `\[ \lim_{x \to 0} f(x) \]`) {
		t.Errorf("math should render in display brackets, got:\n%s", src)
	}
	if strings.Contains(src, `\titlepage`) || strings.Contains(src, `\tableofcontents`) {
		t.Errorf("no extra frames allowed, the page count must equal the unit count:\n%s", src)
	}
}

func TestBeamerSource_ModernTheme(t *testing.T) {
	src := BeamerSource("T", "", TemplateModern, []Unit{{Title: "Only"}})
	if !strings.Contains(src, `\usetheme{metropolis}`) {
		t.Errorf("modern template should use metropolis, got:\n%s", src)
	}
	if !strings.Contains(src, `\usepackage{tcolorbox}`) {
		t.Errorf("modern template should pull tcolorbox, got:\n%s", src)
	}
}

func TestBeamerSource_UnknownTemplateFallsBack(t *testing.T) {
	src := BeamerSource("T", "", "no-such-template", []Unit{{Title: "Only"}})
	if !strings.Contains(src, `\usetheme{Madrid}`) {
		t.Errorf("unknown template should fall back to the default theme, got:\n%s", src)
	}
	if ThemeFor("no-such-template") != "Madrid" {
		t.Errorf("ThemeFor should fall back to Madrid")
	}
}

func TestBeamerSource_EscapesSpecialCharacters(t *testing.T) {
	units := []Unit{{
		Title: "Costs & Margins",
		Body:  "Profit grew 50% with $r^2$ correlation #1.",
	}}
	src := BeamerSource("Q&A", "", TemplateDefault, units)

	if !strings.Contains(src, `\frametitle{Costs \& Margins}`) {
		t.Errorf("ampersand must be escaped in frame titles, got:\n%s", src)
	}
	if !strings.Contains(src, `\title{Q\&A}`) {
		t.Errorf("ampersand must be escaped in the deck title, got:\n%s", src)
	}
	if !strings.Contains(src, `50\%`) {
		t.Errorf("percent must be escaped in body text, got:\n%s", src)
	}
	if !strings.Contains(src, `$r^2$`) {
		t.Errorf("inline math must pass through unescaped, got:\n%s", src)
	}
	if !strings.Contains(src, `\#1`) {
		t.Errorf("hash must be escaped in body text, got:\n%s", src)
	}
}

func TestBeamerSource_EnvironmentMathEmittedVerbatim(t *testing.T) {
	units := []Unit{{
		Title: "Systems",
		Math:  []string{"\\begin{align}\nx &= 1 \\\\\ny &= 2\n\\end{align}"},
	}}
	src := BeamerSource("T", "", TemplateDefault, units)
	if !strings.Contains(src, "\\begin{align}\nx &= 1") {
		t.Errorf("environments must be emitted verbatim, got:\n%s", src)
	}
	if strings.Contains(src, `\[ \begin{align}`) {
		t.Errorf("environments must not be double wrapped, got:\n%s", src)
	}
}

func TestBeamerSource_BodyCapLeavesEllipsis(t *testing.T) {
	long := strings.TrimRight(strings.Repeat("A line of body text.\n", maxBodyLines+5), "\n")
	src := BeamerSource("T", "", TemplateDefault, []Unit{{Title: "Long", Body: long}})
	if !strings.Contains(src, `\ldots`) {
		t.Errorf("overlong bodies should end with an ellipsis, got:\n%s", src)
	}
	if got := strings.Count(src, "A line of body text."); got != maxBodyLines {
		t.Errorf("expected %d displayed body lines, got %d", maxBodyLines, got)
	}
}
