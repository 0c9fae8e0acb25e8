package structure

import "strings"

// DefaultRate is the default narration estimate in seconds per source
// line, derived from average reading speed. It only ever decides
// relative weights; reconciliation supplies the absolute timing.
const DefaultRate = 2.0

// Extractor scans raw document text for structural headings and builds
// the nested Document tree with provisional timings.
type Extractor struct {
	rules []Rule
	rate  float64
}

// NewExtractor returns an extractor using the package rule table and
// the given narration rate in seconds per line.
func NewExtractor(rate float64) *Extractor {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Extractor{rules: Rules, rate: rate}
}

// Extract scans text line by line and returns the detected structure.
// It never fails: a document with no recognizable headings yields an
// empty root sequence, which is a valid result. Nesting follows a stack
// of open ancestors keyed by level; a new node closes every open node
// whose level is not strictly smaller than its own.
func (e *Extractor) Extract(title, text string, format Format) *Document {
	lines := strings.Split(text, "\n")
	doc := &Document{Title: title, TotalLines: len(lines)}

	var stack []*Node

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		node, ok := e.matchLine(line, i, format)
		if !ok {
			continue
		}

		for len(stack) > 0 && stack[len(stack)-1].Level >= node.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			doc.Roots = append(doc.Roots, node)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
		}
		stack = append(stack, node)
	}

	assignProvisional(doc.Roots, doc.TotalLines, e.rate)
	return doc
}

// matchLine evaluates a line against the rule table in order and takes
// the first match. With two or more capture groups the first is the
// number and the last the title; with exactly one group that group is
// the title and the number stays empty. A heading whose title group
// matched nothing keeps the whole line as its title, so bare headings
// like "Chapter 1" remain addressable.
func (e *Extractor) matchLine(line string, lineNo int, format Format) (*Node, bool) {
	for _, r := range e.rules {
		if !r.appliesTo(format) {
			continue
		}
		m := r.Pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		groups := m[1:]
		var number, title string
		if len(groups) == 1 {
			title = groups[0]
		} else {
			number = groups[0]
			title = groups[len(groups)-1]
		}
		title = strings.TrimSpace(title)
		if title == "" {
			title = line
		}
		return &Node{
			Title:  title,
			Kind:   r.Kind,
			Level:  r.Level,
			Number: strings.TrimSpace(number),
			Line:   lineNo,
		}, true
	}
	return nil, false
}

// assignProvisional sets line-proportional placeholder windows. A node
// runs from its own heading line to its next sibling's, or to the line
// that closes its parent when it is the last sibling, so every parent
// window spans all of its descendants.
func assignProvisional(nodes []*Node, closeLine int, rate float64) {
	for i, n := range nodes {
		next := closeLine
		if i+1 < len(nodes) {
			next = nodes[i+1].Line
		}
		n.Start = float64(n.Line) * rate
		n.End = float64(next) * rate
		if n.End < n.Start {
			n.End = n.Start
		}
		n.Duration = n.End - n.Start
		assignProvisional(n.Children, next, rate)
	}
}
