package parser

import (
	"strings"
	"testing"

	"github.com/mathcast/mathcast/internal/structure"
)

func TestHTMLExtractor_HeadingsBecomeHashLines(t *testing.T) {
	input := `<html>
<head><title>Linear Algebra</title></head>
<body>
<h1>Linear Algebra</h1>
<p>Vectors and spaces.</p>
<h2>Determinants</h2>
<p>Expansion by minors.</p>
<script>ignored()</script>
</body>
</html>`

	e := &HTMLExtractor{}
	src, err := e.Extract(strings.NewReader(input), "linalg.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if src.Title != "Linear Algebra" {
		t.Errorf("expected title from <title>, got %q", src.Title)
	}
	if src.Format != structure.FormatHTML {
		t.Errorf("expected html format, got %q", src.Format)
	}
	if !strings.Contains(src.Text, "# Linear Algebra") {
		t.Errorf("h1 should become a # line, got:\n%s", src.Text)
	}
	if !strings.Contains(src.Text, "## Determinants") {
		t.Errorf("h2 should become a ## line, got:\n%s", src.Text)
	}
	if strings.Contains(src.Text, "ignored()") {
		t.Errorf("script content must be dropped, got:\n%s", src.Text)
	}

	doc := structure.NewExtractor(2.0).Extract(src.Title, src.Text, src.Format)
	if len(doc.Roots) != 1 {
		t.Fatalf("expected 1 root from flattened html, got %d", len(doc.Roots))
	}
	if len(doc.Roots[0].Children) != 1 {
		t.Fatalf("expected 1 section under the root, got %d", len(doc.Roots[0].Children))
	}
	if doc.Roots[0].Children[0].Title != "Determinants" {
		t.Errorf("unexpected section title %q", doc.Roots[0].Children[0].Title)
	}
}

func TestHTMLExtractor_MultilineHeadingFlattens(t *testing.T) {
	input := "<body><h1>Split\n  Across Lines</h1><p>text</p></body>"
	src, err := (&HTMLExtractor{}).Extract(strings.NewReader(input), "x.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(src.Text, "# Split Across Lines") {
		t.Errorf("heading whitespace should collapse to one line, got:\n%s", src.Text)
	}
}
