package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mathcast/mathcast/internal/config"
	"github.com/mathcast/mathcast/internal/extproc"
	"github.com/mathcast/mathcast/internal/parser"
	"github.com/mathcast/mathcast/internal/render"
	"github.com/mathcast/mathcast/internal/slides"
	"github.com/mathcast/mathcast/internal/speech"
	"github.com/mathcast/mathcast/internal/structure"
	"github.com/mathcast/mathcast/internal/timing"
	"github.com/mathcast/mathcast/internal/video"
	"github.com/mathcast/mathcast/internal/workspace"
)

// Worker runs the conversion chain for one job at a time: extract text,
// detect structure, compose and render slides, synthesize narration,
// reconcile timing, assemble the video.
type Worker struct {
	cfg      config.Config
	runner   extproc.Runner
	renderer render.Renderer
	tts      *speech.Engine
	ws       *workspace.Manager
	log      *slog.Logger
}

func NewWorker(cfg config.Config, runner extproc.Runner, renderer render.Renderer, tts *speech.Engine, ws *workspace.Manager, log *slog.Logger) *Worker {
	return &Worker{
		cfg:      cfg,
		runner:   runner,
		renderer: renderer,
		tts:      tts,
		ws:       ws,
		log:      log,
	}
}

// Process runs the full conversion for a job. Stages run strictly in
// order; the first failure marks the job failed and stops the chain.
// Temp artifacts are removed on every exit path; published outputs
// survive.
func (w *Worker) Process(ctx context.Context, job *Job) {
	if job.CurrentStatus().Terminal() {
		return
	}
	log := w.log.With("job_id", job.ID)
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	defer func() {
		if err := w.ws.CleanupTemp(job.ID); err != nil {
			log.Warn("temp cleanup failed", "error", err)
		}
	}()

	fail := func(phase string, err error) {
		reason := err.Error()
		if errors.Is(err, context.Canceled) {
			reason = "cancelled"
		}
		log.Error("job failed", "phase", phase, "error", err)
		job.Fail(phase, reason)
	}

	tempDir, err := w.ws.TempDir(job.ID)
	if err != nil {
		fail("setup", err)
		return
	}
	if _, err := w.ws.OutputDir(job.ID); err != nil {
		fail("setup", err)
		return
	}

	// Stage 1: text extraction.
	job.SetStatus(StatusParsing, "extract_text")
	f, err := os.Open(job.UploadPath)
	if err != nil {
		fail("extract_text", err)
		return
	}
	src, err := parser.Extract(f, job.Filename)
	f.Close()
	if err != nil {
		fail("extract_text", fmt.Errorf("extract text: %w", err))
		return
	}

	title := job.Title
	if title == "" {
		title = src.Title
		job.SetTitle(title)
	}

	// Stage 2: structure detection. A document with no recognizable
	// structure is valid and falls through to a single full-span unit.
	job.SetStatus(StatusParsing, "detect_structure")
	doc := structure.NewExtractor(w.cfg.ReadingRate).Extract(title, src.Text, src.Format)
	if doc.Empty() {
		log.Warn("no document structure recognized", "lines", doc.TotalLines)
	} else {
		log.Info("structure detected", "nodes", doc.CountNodes(), "lines", doc.TotalLines)
	}

	// Stage 3: slide composition.
	job.SetStatus(StatusComposing, "compose_slides")
	units := slides.Compose(doc, src, job.Depth)
	job.SetSlides(len(units))
	log.Info("slides composed", "units", len(units), "math", len(src.Math))

	// Stage 4: rasterization.
	job.SetStatus(StatusRendering, "render_slides")
	rendered, err := w.renderer.Render(ctx, render.Request{
		Title:    title,
		Author:   src.Author,
		Template: job.Template,
		Units:    units,
		Dir:      tempDir,
	})
	if err != nil {
		fail("render_slides", fmt.Errorf("render slides: %w", err))
		return
	}
	log.Info("slides rendered", "images", len(rendered.Images))

	var deckPath string
	if rendered.DeckPDF != "" {
		deckPath = w.ws.OutputPath(job.ID, "slides.pdf")
		if err := copyFile(rendered.DeckPDF, deckPath); err != nil {
			log.Warn("deck publish failed", "error", err)
			deckPath = ""
		}
	}

	// Stage 5: narration.
	job.SetStatus(StatusNarrating, "synthesize_speech")
	script := speech.Script(title, units)
	audioPath := w.ws.OutputPath(job.ID, "narration.wav")
	if err := w.tts.Narrate(ctx, script, job.Voice, tempDir, audioPath); err != nil {
		fail("synthesize_speech", fmt.Errorf("synthesize narration: %w", err))
		return
	}

	job.SetStatus(StatusNarrating, "probe_duration")
	dur, err := video.ProbeDuration(ctx, w.runner, w.cfg.FfprobePath, audioPath)
	if err != nil {
		fail("probe_duration", err)
		return
	}
	job.SetAudioSeconds(dur)
	log.Info("narration synthesized", "seconds", dur)

	// Stage 6: timing reconciliation. The measured narration duration is
	// the only timing authority from here on.
	timing.Reconcile(doc, dur)
	markers := timing.Markers(doc, dur, job.Depth)

	// Stage 7: video assembly.
	assembler := video.NewAssembler(video.Options{
		Runner:      w.runner,
		FfmpegPath:  w.cfg.FfmpegPath,
		FfprobePath: w.cfg.FfprobePath,
		Timeout:     w.cfg.MuxTimeout,
		Log:         log,
		OnStage: func(s video.Stage) {
			job.SetStatus(StatusAssembling, string(s))
		},
	})
	res, err := assembler.Assemble(ctx, video.Request{
		Images:        rendered.Images,
		Markers:       markers,
		AudioPath:     audioPath,
		TotalDuration: dur,
		Structured:    !doc.Empty(),
		SkipChapters:  !job.Chapters,
		Profile:       video.ProfileFor(job.Quality),
		WorkDir:       tempDir,
		OutputPath:    w.ws.OutputPath(job.ID, "video.mp4"),
		SidecarPath:   w.ws.OutputPath(job.ID, "chapters.txt"),
	})
	if err != nil {
		fail("assemble_video", fmt.Errorf("assemble video: %w", err))
		return
	}

	job.SetChapters(res.Chapters)
	job.SetOutputs(Outputs{
		Video:   res.VideoPath,
		Audio:   audioPath,
		Deck:    deckPath,
		Sidecar: sidecarIfPresent(w.ws.OutputPath(job.ID, "chapters.txt")),
	})
	job.Succeed(res.Reason)
	log.Info("job complete",
		"status", job.CurrentStatus(),
		"slides", len(units),
		"chapters", res.Chapters,
		"degraded", res.Degraded,
		"elapsed", time.Since(started).Round(time.Millisecond))
}

func sidecarIfPresent(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
