package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mathcast/mathcast/internal/structure"
)

// Source is the text extracted from one uploaded document, in the line
// coordinate space every later stage shares: structure detection, math
// assignment and provisional timing all index into Text by line.
type Source struct {
	Title  string
	Author string
	Text   string
	Format structure.Format
	Pages  int
	Math   []structure.MathExpression
}

// Extractor converts raw document bytes into a Source.
type Extractor interface {
	Extract(r io.Reader, filename string) (*Source, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".tex":      true,
	".latex":    true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate extractor for a filename.
func ForFile(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextExtractor{}, nil
	case ".md", ".markdown":
		return &MarkdownExtractor{}, nil
	case ".tex", ".latex":
		return &LaTeXExtractor{}, nil
	case ".html", ".htm":
		return &HTMLExtractor{}, nil
	case ".pdf":
		return &PDFExtractor{FallbackPdftotext: true}, nil
	case ".docx":
		return &DOCXExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Extract runs the extractor matching filename over r and scans the
// produced text for math expressions.
func Extract(r io.Reader, filename string) (*Source, error) {
	ex, err := ForFile(filename)
	if err != nil {
		return nil, err
	}
	src, err := ex.Extract(r, filename)
	if err != nil {
		return nil, err
	}
	src.Math = ScanMath(src.Text)
	return src, nil
}

// stem strips the directory and extension from a filename.
func stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
