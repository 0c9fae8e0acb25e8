package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/mathcast/mathcast/internal/extproc"
	"github.com/mathcast/mathcast/internal/slides"
)

const (
	defaultDPI          = 300
	defaultLatexTimeout = 2 * time.Minute
)

// LatexRenderer compiles the Beamer deck with pdflatex and rasterizes
// the resulting PDF with pdftoppm.
type LatexRenderer struct {
	runner   extproc.Runner
	pdflatex string
	pdftoppm string
	dpi      int
	timeout  time.Duration
}

func NewLatexRenderer(runner extproc.Runner, opts Options) *LatexRenderer {
	dpi := opts.DPI
	if dpi <= 0 {
		dpi = defaultDPI
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultLatexTimeout
	}
	return &LatexRenderer{
		runner:   runner,
		pdflatex: toolName(opts.PdflatexPath, "pdflatex"),
		pdftoppm: toolName(opts.PdftoppmPath, "pdftoppm"),
		dpi:      dpi,
		timeout:  timeout,
	}
}

// Render writes the deck source, compiles it and collects the
// rasterized pages in page order.
func (r *LatexRenderer) Render(ctx context.Context, req Request) (*Output, error) {
	if len(req.Units) == 0 {
		return nil, fmt.Errorf("no slide units to render")
	}

	texPath := filepath.Join(req.Dir, "deck.tex")
	src := slides.BeamerSource(req.Title, req.Author, req.Template, req.Units)
	if err := os.WriteFile(texPath, []byte(src), 0o644); err != nil {
		return nil, fmt.Errorf("write deck source: %w", err)
	}

	_, err := r.runner.Run(ctx, extproc.Command{
		Path:    r.pdflatex,
		Args:    []string{"-interaction=nonstopmode", "-output-directory=" + req.Dir, texPath},
		Dir:     req.Dir,
		Timeout: r.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("compile deck: %w", err)
	}

	pdfPath := filepath.Join(req.Dir, "deck.pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, fmt.Errorf("deck.pdf after compile: %w", ErrMissingOutput)
	}

	_, err = r.runner.Run(ctx, extproc.Command{
		Path:    r.pdftoppm,
		Args:    []string{"-png", "-r", strconv.Itoa(r.dpi), pdfPath, filepath.Join(req.Dir, "page")},
		Dir:     req.Dir,
		Timeout: r.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("rasterize deck: %w", err)
	}

	images, err := collectPages(req.Dir, "page")
	if err != nil {
		return nil, fmt.Errorf("collect pages: %w", err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no pages after rasterize: %w", ErrMissingOutput)
	}
	if len(images) != len(req.Units) {
		return nil, fmt.Errorf("%w: %d pages for %d slides", ErrPageCount, len(images), len(req.Units))
	}
	return &Output{Images: images, DeckPDF: pdfPath}, nil
}

var pageNumRe = regexp.MustCompile(`-(\d+)\.png$`)

// collectPages gathers pdftoppm output in numeric page order. The tool
// zero-pads page numbers to the width of the final page, so both
// page-3.png and page-03.png forms occur.
func collectPages(dir, prefix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*.png"))
	if err != nil {
		return nil, err
	}
	type page struct {
		num  int
		path string
	}
	pages := make([]page, 0, len(matches))
	for _, m := range matches {
		sm := pageNumRe.FindStringSubmatch(m)
		if sm == nil {
			continue
		}
		n, err := strconv.Atoi(sm[1])
		if err != nil {
			continue
		}
		pages = append(pages, page{num: n, path: m})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.path
	}
	return out, nil
}
