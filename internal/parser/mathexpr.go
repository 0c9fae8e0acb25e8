package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mathcast/mathcast/internal/structure"
)

// mathPattern pairs a regexp with how its match is captured: keepAll
// retains the whole match (environments are self-contained LaTeX),
// otherwise the first capture group is the formula body.
type mathPattern struct {
	re      *regexp.Regexp
	keepAll bool
}

// Applied in order, most self-contained first. Each match is blanked
// out of the scratch text before the next pattern runs, so a "$$" pair
// is never re-read as two inline "$" delimiters.
var mathPatterns = []mathPattern{
	{re: regexp.MustCompile(`(?s)\\begin\{(?:equation|align|eqnarray|gather)\*?\}.+?\\end\{(?:equation|align|eqnarray|gather)\*?\}`), keepAll: true},
	{re: regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)},
	{re: regexp.MustCompile(`(?s)\\\[(.+?)\\\]`)},
	{re: regexp.MustCompile(`\$([^$\n\x00]+?)\$`)},
	{re: regexp.MustCompile(`\\\(([^\n\x00]+?)\\\)`)},
}

// ScanMath finds every math expression in text and records the line
// each one starts on. Each expression is reported exactly once, in
// source order.
func ScanMath(text string) []structure.MathExpression {
	if text == "" {
		return nil
	}
	scratch := maskEscapes(text)

	type span struct {
		start, end int
		body       string
	}
	var spans []span
	for _, p := range mathPatterns {
		for _, loc := range p.re.FindAllSubmatchIndex(scratch, -1) {
			s, e := loc[0], loc[1]
			var body string
			if p.keepAll || len(loc) < 4 || loc[2] < 0 {
				body = text[s:e]
			} else {
				body = text[loc[2]:loc[3]]
			}
			if body = strings.TrimSpace(body); body != "" {
				spans = append(spans, span{start: s, end: e, body: body})
			}
			for i := s; i < e; i++ {
				scratch[i] = 0
			}
		}
	}
	if len(spans) == 0 {
		return nil
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	lineStarts := buildLineStarts(text)
	var out []structure.MathExpression
	lastEnd := 0
	for _, s := range spans {
		if s.start < lastEnd {
			continue
		}
		out = append(out, structure.MathExpression{
			Text: s.body,
			Line: lineAt(lineStarts, s.start),
		})
		lastEnd = s.end
	}
	return out
}

// maskEscapes blanks "\\" and "\$" pairs so escaped delimiters cannot
// open a match. Byte offsets are preserved.
func maskEscapes(text string) []byte {
	b := []byte(text)
	for i := 0; i < len(b)-1; i++ {
		if b[i] == '\\' && (b[i+1] == '\\' || b[i+1] == '$') {
			b[i], b[i+1] = 0, 0
			i++
		}
	}
	return b
}

func buildLineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineAt maps a byte offset to its zero-based line index.
func lineAt(starts []int, off int) int {
	i := sort.Search(len(starts), func(i int) bool { return starts[i] > off })
	return i - 1
}
