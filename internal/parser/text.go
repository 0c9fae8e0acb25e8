package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/mathcast/mathcast/internal/structure"
)

// TextExtractor handles plain text files. Lines are kept exactly as
// read so downstream line offsets point back into the original file.
type TextExtractor struct{}

func (e *TextExtractor) Extract(r io.Reader, filename string) (*Source, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Source{
		Title:  stem(filename),
		Text:   strings.Join(lines, "\n"),
		Format: structure.FormatText,
	}, nil
}
