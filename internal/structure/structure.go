package structure

// Kind identifies the structural role of a detected heading line.
type Kind string

const (
	KindChapter       Kind = "chapter"
	KindSection       Kind = "section"
	KindSubsection    Kind = "subsection"
	KindSubsubsection Kind = "subsubsection"
	KindTheorem       Kind = "theorem"
	KindLemma         Kind = "lemma"
	KindProof         Kind = "proof"
	KindExample       Kind = "example"
)

// Format tags the source syntax a document's text was extracted from.
// It selects which recognition rules apply on top of the generic set.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatLaTeX    Format = "latex"
	FormatPDF      Format = "pdf"
	FormatHTML     Format = "html"
	FormatDOCX     Format = "docx"
)

// Node is one detected structural unit. Start/End/Duration hold
// line-proportional placeholders until timing reconciliation rewrites
// them against the measured narration length.
type Node struct {
	Title    string  `json:"title"`
	Kind     Kind    `json:"type"`
	Level    int     `json:"level"`
	Number   string  `json:"number,omitempty"`
	Line     int     `json:"line"`
	Children []*Node `json:"children,omitempty"`

	Start    float64 `json:"start_time"`
	End      float64 `json:"end_time"`
	Duration float64 `json:"duration"`
}

// Document is the ordered, nested structure detected for one source
// document. Roots are top-level nodes in source order; TotalLines is
// the narration-unit count the provisional estimate was derived from.
type Document struct {
	Title      string  `json:"title"`
	Roots      []*Node `json:"chapters"`
	TotalLines int     `json:"total_lines"`
}

// Empty reports whether no structural lines were recognized.
func (d *Document) Empty() bool {
	return len(d.Roots) == 0
}

// Walk visits every node depth-first in document order.
func (d *Document) Walk(fn func(*Node)) {
	var visit func(nodes []*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			fn(n)
			visit(n.Children)
		}
	}
	visit(d.Roots)
}

// CountNodes returns the total number of nodes in the tree.
func (d *Document) CountNodes() int {
	count := 0
	d.Walk(func(*Node) { count++ })
	return count
}

// CutoffNodes returns the nodes standing at the given cutoff depth
// (1 = top level) in document order. A node shallower than the cutoff
// is replaced by its children only when it has any, so the returned
// sequence always tiles the document without holes. Slide composition
// and chapter-marker derivation share this traversal; their 1:1
// correspondence depends on it.
func CutoffNodes(nodes []*Node, depth int) []*Node {
	if depth < 1 {
		depth = 1
	}
	var out []*Node
	for _, n := range nodes {
		if depth == 1 || len(n.Children) == 0 {
			out = append(out, n)
			continue
		}
		out = append(out, CutoffNodes(n.Children, depth-1)...)
	}
	return out
}

// MathExpression is a raw formula captured during text extraction.
// Line uses the same coordinate space as Node.Line, so offset
// containment against the tree is well defined. An expression is tied
// to a node only at slide composition time.
type MathExpression struct {
	Text string `json:"text"`
	Line int    `json:"line"`
}
