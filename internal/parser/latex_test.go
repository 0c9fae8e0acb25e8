package parser

import (
	"strings"
	"testing"

	"github.com/mathcast/mathcast/internal/structure"
)

func TestLaTeXExtractor_TitleAuthorAndComments(t *testing.T) {
	input := `\documentclass{article}
\title{Galois Theory}
\author{E. Noether}
% a full-line comment
\begin{document}
\maketitle
\section{Field Extensions} % trailing comment
A gain of 50\% is typical.
\end{document}
`
	e := &LaTeXExtractor{}
	src, err := e.Extract(strings.NewReader(input), "galois.tex")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if src.Title != "Galois Theory" {
		t.Errorf("expected title %q, got %q", "Galois Theory", src.Title)
	}
	if src.Author != "E. Noether" {
		t.Errorf("expected author %q, got %q", "E. Noether", src.Author)
	}
	if src.Format != structure.FormatLaTeX {
		t.Errorf("expected latex format, got %q", src.Format)
	}

	lines := strings.Split(src.Text, "\n")
	if want := strings.Count(input, "\n") + 1; len(lines) != want {
		t.Fatalf("line count must be preserved: expected %d, got %d", want, len(lines))
	}
	if lines[3] != "" {
		t.Errorf("full-line comment should be blanked, got %q", lines[3])
	}
	if strings.Contains(lines[6], "trailing") {
		t.Errorf("trailing comment should be cut, got %q", lines[6])
	}
	if !strings.Contains(lines[7], `50\%`) {
		t.Errorf("escaped percent must survive, got %q", lines[7])
	}
}

func TestLaTeXExtractor_FeedsStructureDetection(t *testing.T) {
	input := `\documentclass{book}
\begin{document}
\chapter{Groups}
Group axioms.
\section{Subgroups}
Subgroup content.
\end{document}
`
	src, err := (&LaTeXExtractor{}).Extract(strings.NewReader(input), "algebra.tex")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := structure.NewExtractor(2.0).Extract(src.Title, src.Text, src.Format)
	if len(doc.Roots) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(doc.Roots))
	}
	ch := doc.Roots[0]
	if ch.Title != "Groups" || ch.Kind != structure.KindChapter || ch.Line != 2 {
		t.Errorf("unexpected chapter %+v", ch)
	}
	if len(ch.Children) != 1 || ch.Children[0].Title != "Subgroups" {
		t.Fatalf("expected one section %q under the chapter, got %+v", "Subgroups", ch.Children)
	}
}

func TestStripLatexComment(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{`plain text`, `plain text`},
		{`% whole line`, ``},
		{`before % after`, `before `},
		{`escaped 50\% stays`, `escaped 50\% stays`},
		{`escaped 50\% then % cut`, `escaped 50\% then `},
	}
	for _, tt := range tests {
		if got := stripLatexComment(tt.line); got != tt.want {
			t.Errorf("stripLatexComment(%q): expected %q, got %q", tt.line, tt.want, got)
		}
	}
}
