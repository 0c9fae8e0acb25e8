package render

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/mathcast/mathcast/internal/slides"
)

func TestCanvasRenderer_OneImagePerUnit(t *testing.T) {
	dir := t.TempDir()
	units := []slides.Unit{
		{Title: "Limits", Number: "1", Body: "The informal idea of a limit.\n\nThe formal definition follows."},
		{Title: "Continuity", Number: "2", Body: "A function is continuous at a point when", Math: []string{`\lim_{x \to a} f(x) = f(a)`}},
		{Title: "Derivatives", Number: "3"},
	}

	r := NewCanvasRenderer(Options{Width: 480, Height: 270, Parallelism: 2})
	out, err := r.Render(context.Background(), Request{
		Title:    "Calculus",
		Template: slides.TemplateDefault,
		Units:    units,
		Dir:      dir,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if len(out.Images) != len(units) {
		t.Fatalf("expected %d images, got %d", len(units), len(out.Images))
	}
	if out.DeckPDF != "" {
		t.Errorf("canvas path should not produce a deck PDF, got %q", out.DeckPDF)
	}
	if filepath.Base(out.Images[0]) != "slide_001.png" {
		t.Errorf("expected slide_001.png first, got %s", filepath.Base(out.Images[0]))
	}

	for i, img := range out.Images {
		f, err := os.Open(img)
		if err != nil {
			t.Fatalf("image %d: %v", i, err)
		}
		cfg, err := png.DecodeConfig(f)
		f.Close()
		if err != nil {
			t.Fatalf("decode image %d: %v", i, err)
		}
		if cfg.Width != 480 || cfg.Height != 270 {
			t.Errorf("image %d: expected 480x270, got %dx%d", i, cfg.Width, cfg.Height)
		}
	}
}

func TestCanvasRenderer_EmptyDeck(t *testing.T) {
	r := NewCanvasRenderer(Options{Width: 64, Height: 36})
	if _, err := r.Render(context.Background(), Request{Dir: t.TempDir()}); err == nil {
		t.Fatal("expected error for empty deck")
	}
}

func TestCanvasRenderer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewCanvasRenderer(Options{Width: 64, Height: 36})
	_, err := r.Render(ctx, Request{Units: []slides.Unit{{Title: "X"}}, Dir: t.TempDir()})
	if err == nil {
		t.Fatal("expected context error")
	}
}
