package parser

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/mathcast/mathcast/internal/structure"
)

var (
	latexTitleRe  = regexp.MustCompile(`\\title\{([^{}]*)\}`)
	latexAuthorRe = regexp.MustCompile(`\\author\{([^{}]*)\}`)
)

// LaTeXExtractor handles LaTeX source files. Comments are cut in place
// rather than dropped, so the line count and every downstream offset
// stay aligned with the original file.
type LaTeXExtractor struct{}

func (e *LaTeXExtractor) Extract(r io.Reader, filename string) (*Source, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, stripLatexComment(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	text := strings.Join(lines, "\n")

	title := stem(filename)
	if m := latexTitleRe.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		title = strings.TrimSpace(m[1])
	}
	var author string
	if m := latexAuthorRe.FindStringSubmatch(text); m != nil {
		author = strings.TrimSpace(m[1])
	}

	return &Source{
		Title:  title,
		Author: author,
		Text:   text,
		Format: structure.FormatLaTeX,
	}, nil
}

// stripLatexComment cuts a line at the first unescaped %.
func stripLatexComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] == '%' && (i == 0 || line[i-1] != '\\') {
			return line[:i]
		}
	}
	return line
}
