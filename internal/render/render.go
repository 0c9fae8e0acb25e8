// Package render turns composed slide units into page images for the
// video assembler. Two backends sit behind one interface: a TeX
// pipeline that compiles the Beamer deck with pdflatex and rasterizes
// its pages with pdftoppm, and a pure-Go canvas fallback for hosts
// without a TeX installation. Both return exactly one image per unit,
// in unit order.
package render

import (
	"context"
	"errors"
	"time"

	"github.com/mathcast/mathcast/internal/extproc"
	"github.com/mathcast/mathcast/internal/slides"
)

// ErrMissingOutput marks a tool that exited successfully without
// producing the file it was asked for.
var ErrMissingOutput = errors.New("expected output file missing")

// ErrPageCount marks a rendered deck whose page count does not match
// the slide unit count. Downstream timing depends on the 1:1 mapping,
// so the mismatch is fatal.
var ErrPageCount = errors.New("page count does not match slide count")

// Request describes one deck to render. Dir is the job-local working
// directory; all intermediate and output files land there.
type Request struct {
	Title    string
	Author   string
	Template string
	Units    []slides.Unit
	Dir      string
}

// Output carries the rendered page images in unit order, plus the
// compiled deck PDF when the TeX path produced one.
type Output struct {
	Images  []string
	DeckPDF string
}

// Renderer rasterizes a slide deck into page images.
type Renderer interface {
	Render(ctx context.Context, req Request) (*Output, error)
}

// Backends selectable through configuration.
const (
	BackendAuto   = "auto"
	BackendLaTeX  = "latex"
	BackendCanvas = "canvas"
)

// Options configures renderer construction. Zero values select the
// defaults: auto backend, 300 DPI, a 1920x1080 canvas.
type Options struct {
	Backend      string
	PdflatexPath string
	PdftoppmPath string
	DPI          int
	Timeout      time.Duration
	Width        int
	Height       int
	FontPath     string
	Parallelism  int
}

// New returns the renderer for the configured backend. Auto probes the
// PATH for the TeX toolchain and falls back to the canvas renderer when
// it is absent.
func New(runner extproc.Runner, opts Options) Renderer {
	switch opts.Backend {
	case BackendLaTeX:
		return NewLatexRenderer(runner, opts)
	case BackendCanvas:
		return NewCanvasRenderer(opts)
	}
	if extproc.LookPath(toolName(opts.PdflatexPath, "pdflatex")) && extproc.LookPath(toolName(opts.PdftoppmPath, "pdftoppm")) {
		return NewLatexRenderer(runner, opts)
	}
	return NewCanvasRenderer(opts)
}

func toolName(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}
