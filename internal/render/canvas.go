package render

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/sync/errgroup"

	"github.com/mathcast/mathcast/internal/slides"
)

const (
	defaultWidth       = 1920
	defaultHeight      = 1080
	defaultParallelism = 2
)

// Common system locations probed when no font path is configured.
var fallbackFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
}

// CanvasRenderer draws slide frames directly with a 2D canvas. It is
// the fallback for hosts without a TeX installation; math expressions
// are drawn as source text rather than typeset.
type CanvasRenderer struct {
	width       int
	height      int
	parallelism int
	scale       float64

	// nil when no TTF could be loaded; the bitmap face stands in.
	font *truetype.Font
}

func NewCanvasRenderer(opts Options) *CanvasRenderer {
	w := opts.Width
	if w <= 0 {
		w = defaultWidth
	}
	h := opts.Height
	if h <= 0 {
		h = defaultHeight
	}
	par := opts.Parallelism
	if par < 1 {
		par = defaultParallelism
	}
	return &CanvasRenderer{
		width:       w,
		height:      h,
		parallelism: par,
		scale:       float64(h) / float64(defaultHeight),
		font:        resolveFont(opts.FontPath),
	}
}

// resolveFont loads the configured font, then probes common system
// locations.
func resolveFont(path string) *truetype.Font {
	candidates := fallbackFontPaths
	if path != "" {
		candidates = append([]string{path}, fallbackFontPaths...)
	}
	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		f, err := truetype.Parse(data)
		if err != nil {
			continue
		}
		return f
	}
	return nil
}

// face builds a fresh face per call; truetype faces carry a glyph cache
// that is not safe for concurrent use.
func (r *CanvasRenderer) face(size float64) font.Face {
	if r.font == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(r.font, &truetype.Options{
		Size:    size * r.scale,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// Render draws one frame per unit, in parallel up to the configured
// limit.
func (r *CanvasRenderer) Render(ctx context.Context, req Request) (*Output, error) {
	if len(req.Units) == 0 {
		return nil, fmt.Errorf("no slide units to render")
	}

	images := make([]string, len(req.Units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, u := range req.Units {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			path := filepath.Join(req.Dir, fmt.Sprintf("slide_%03d.png", i+1))
			if err := r.drawUnit(u, req.Template, path); err != nil {
				return fmt.Errorf("slide %d: %w", i+1, err)
			}
			images[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, img := range images {
		if _, err := os.Stat(img); err != nil {
			return nil, fmt.Errorf("%s after draw: %w", filepath.Base(img), ErrMissingOutput)
		}
	}
	return &Output{Images: images}, nil
}

func (r *CanvasRenderer) drawUnit(u slides.Unit, template, path string) error {
	w := float64(r.width)
	h := float64(r.height)
	dc := gg.NewContext(r.width, r.height)

	dc.SetColor(color.White)
	dc.Clear()

	// Header band in the deck theme's structure color.
	bandR, bandG, bandB := 0.2, 0.2, 0.7
	if template == slides.TemplateModern {
		bandR, bandG, bandB = 0.16, 0.16, 0.18
	}
	band := h * 0.12
	dc.SetRGB(bandR, bandG, bandB)
	dc.DrawRectangle(0, 0, w, band)
	dc.Fill()

	margin := w * 0.05
	textW := w - 2*margin

	dc.SetFontFace(r.face(52))
	dc.SetColor(color.White)
	dc.DrawStringAnchored(fitWidth(dc, u.Heading(), textW), margin, band/2, 0, 0.35)

	mathFace := r.face(38)
	dc.SetFontFace(mathFace)
	mathLineH := dc.FontHeight() * 1.7
	mathCount := len(u.Math)
	if mathCount > 3 {
		mathCount = 3
	}

	dc.SetFontFace(r.face(34))
	dc.SetRGB(0.1, 0.1, 0.1)
	lineH := dc.FontHeight() * 1.5
	y := band + lineH*1.4
	maxY := h - margin
	bodyMaxY := maxY
	if mathCount > 0 {
		bodyMaxY = maxY - float64(mathCount)*mathLineH - lineH
	}

	truncated := false
	for _, para := range strings.Split(u.Body, "\n") {
		if truncated {
			break
		}
		para = strings.TrimSpace(para)
		if para == "" {
			y += lineH * 0.5
			continue
		}
		for _, line := range dc.WordWrap(para, textW) {
			if y > bodyMaxY {
				truncated = true
				break
			}
			dc.DrawString(line, margin, y)
			y += lineH
		}
	}
	if truncated {
		dc.DrawString("...", margin, y)
	}

	if mathCount > 0 {
		dc.SetFontFace(mathFace)
		dc.SetRGB(bandR, bandG, bandB)
		for i, m := range u.Math[:mathCount] {
			expr := fitWidth(dc, flattenMath(m), textW)
			my := maxY - float64(mathCount-1-i)*mathLineH
			dc.DrawStringAnchored(expr, w/2, my, 0.5, 1)
		}
	}

	return dc.SavePNG(path)
}

// fitWidth truncates s with an ellipsis until it fits max using the
// context's current face.
func fitWidth(dc *gg.Context, s string, max float64) string {
	if w, _ := dc.MeasureString(s); w <= max {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if w, _ := dc.MeasureString(string(runes) + "..."); w <= max {
			return string(runes) + "..."
		}
	}
	return "..."
}

func flattenMath(m string) string {
	return strings.Join(strings.Fields(m), " ")
}
