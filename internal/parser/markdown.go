package parser

import (
	"io"

	"github.com/mathcast/mathcast/internal/structure"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor handles Markdown files using goldmark. The raw
// source is kept as the working text, since its heading lines already
// carry the structure; the parsed AST supplies the document title from
// the first level-1 heading.
type MarkdownExtractor struct{}

func (e *MarkdownExtractor) Extract(r io.Reader, filename string) (*Source, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	title := stem(filename)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			if t := string(h.Text(src)); t != "" {
				title = t
			}
			break
		}
	}

	return &Source{
		Title:  title,
		Text:   string(src),
		Format: structure.FormatMarkdown,
	}, nil
}
