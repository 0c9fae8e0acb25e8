// Package slides turns a reconciled document structure into ordered
// slide units and Beamer deck source. Every downstream count check
// (images vs markers) rests on this package emitting exactly one unit
// per structural node at the cutoff depth.
package slides

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mathcast/mathcast/internal/parser"
	"github.com/mathcast/mathcast/internal/structure"
)

// Unit is one slide worth of content: the heading of a structural node
// at the cutoff depth, the body text of the source region it owns, and
// the math expressions that fall inside that region.
type Unit struct {
	Title  string
	Number string
	Kind   structure.Kind
	Body   string
	Math   []string
	Line   int
}

// Heading returns the display heading for the unit's frame.
func (u Unit) Heading() string {
	if u.Number != "" {
		return u.Number + ". " + u.Title
	}
	return u.Title
}

// Compose yields the ordered slide units for a document at the given
// cutoff depth (1 = top level). Each unit owns the source lines from
// its heading to the next unit's heading; the first unit also owns any
// preamble before it. Math expressions are assigned to the unit whose
// region contains their line, never to none and never to two. A
// document with no structure composes a single unit so the renderer
// always has a frame.
func Compose(doc *structure.Document, src *parser.Source, depth int) []Unit {
	lines := strings.Split(src.Text, "\n")
	nodes := structure.CutoffNodes(doc.Roots, depth)

	if len(nodes) == 0 {
		title := doc.Title
		if title == "" {
			title = "Full document"
		}
		u := Unit{Title: title, Body: collectBody(lines, 0, len(lines), -1, nil, src.Format)}
		for _, m := range src.Math {
			u.Math = append(u.Math, m.Text)
		}
		return []Unit{u}
	}

	// Heading lines contribute their captured titles to the body, not
	// their raw source form.
	headings := make(map[int]string)
	doc.Walk(func(n *structure.Node) {
		headings[n.Line] = n.Title
	})

	units := make([]Unit, len(nodes))
	starts := make([]int, len(nodes))
	for i, n := range nodes {
		starts[i] = n.Line
		from := n.Line
		if i == 0 {
			from = 0
		}
		to := len(lines)
		if i+1 < len(nodes) {
			to = nodes[i+1].Line
		}
		units[i] = Unit{
			Title:  n.Title,
			Number: n.Number,
			Kind:   n.Kind,
			Body:   collectBody(lines, from, to, n.Line, headings, src.Format),
			Line:   n.Line,
		}
	}

	for _, m := range src.Math {
		// Last region whose start is at or before the expression;
		// anything before the first region belongs to the first unit.
		i := sort.Search(len(starts), func(i int) bool { return starts[i] > m.Line }) - 1
		if i < 0 {
			i = 0
		}
		units[i].Math = append(units[i].Math, m.Text)
	}

	return units
}

// collectBody gathers the narration body for one region. The unit's
// own heading line and display-math blocks are dropped (math travels
// on the unit separately), other heading lines contribute their clean
// titles, source markup is reduced to prose, and blank runs collapse
// to single separators.
func collectBody(lines []string, from, to, headingLine int, headings map[int]string, format structure.Format) string {
	var out []string
	blank := true
	inMath := false
	for i := from; i < to && i < len(lines); i++ {
		if i == headingLine {
			continue
		}
		if title, ok := headings[i]; ok {
			out = append(out, title)
			blank = false
			continue
		}
		t := strings.TrimSpace(lines[i])

		if inMath {
			if isDisplayMathEnd(t) {
				inMath = false
			}
			continue
		}
		if starts, closed := isDisplayMathStart(t); starts {
			inMath = !closed
			continue
		}

		t = cleanLine(t, format)
		if t == "" {
			if !blank {
				out = append(out, "")
				blank = true
			}
			continue
		}
		out = append(out, t)
		blank = false
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

var displayEnvRe = regexp.MustCompile(`^\\begin\{(?:equation|align|eqnarray|gather)\*?\}`)

func isDisplayMathStart(t string) (starts, closed bool) {
	switch {
	case strings.HasPrefix(t, "$$"):
		return true, strings.Contains(t[2:], "$$")
	case strings.HasPrefix(t, `\[`):
		return true, strings.Contains(t[2:], `\]`)
	case displayEnvRe.MatchString(t):
		return true, strings.Contains(t, `\end{`)
	}
	return false, false
}

func isDisplayMathEnd(t string) bool {
	return strings.HasSuffix(t, "$$") || strings.HasSuffix(t, `\]`) ||
		strings.Contains(t, `\end{`)
}

// cleanLine reduces source markup to prose for narration and display.
// Inline math spans pass through untouched.
func cleanLine(t string, format structure.Format) string {
	switch format {
	case structure.FormatLaTeX:
		return strings.TrimSpace(mapOutsideInlineMath(t, cleanLatexText))
	case structure.FormatMarkdown:
		return cleanMarkdownLine(t)
	default:
		return t
	}
}

var (
	inlineMathRe = regexp.MustCompile(`\$[^$\n]+?\$`)
	texUnwrapRe  = regexp.MustCompile(`\\(?:emph|textbf|textit|texttt|underline|mbox|text)\{([^{}]*)\}`)
	texCmdRe     = regexp.MustCompile(`\\[a-zA-Z@]+\*?(?:\[[^\]]*\])?(?:\{[^{}]*\})*`)
)

// mapOutsideInlineMath applies fn to the pieces of t that are not
// inline math, keeping the math spans verbatim.
func mapOutsideInlineMath(t string, fn func(string) string) string {
	locs := inlineMathRe.FindAllStringIndex(t, -1)
	if locs == nil {
		return fn(t)
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(fn(t[last:loc[0]]))
		b.WriteString(t[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(fn(t[last:]))
	return b.String()
}

func cleanLatexText(s string) string {
	s = texUnwrapRe.ReplaceAllString(s, "$1")
	s = texCmdRe.ReplaceAllString(s, "")
	s = strings.NewReplacer("{", "", "}", "", "~", " ").Replace(s)
	return s
}

func cleanMarkdownLine(t string) string {
	if strings.HasPrefix(t, "```") {
		return ""
	}
	t = strings.TrimPrefix(t, "- ")
	t = strings.TrimPrefix(t, "* ")
	t = strings.TrimPrefix(t, "> ")
	t = strings.ReplaceAll(t, "**", "")
	t = strings.ReplaceAll(t, "`", "")
	return strings.TrimSpace(t)
}
