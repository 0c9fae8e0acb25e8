// Package video assembles rasterized slides and narration audio into a
// chapter-marked MP4 using an external ffmpeg/ffprobe toolchain.
package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mathcast/mathcast/internal/extproc"
	"github.com/mathcast/mathcast/internal/timing"
)

// Stage identifies where in assembly a request currently is.
type Stage string

const (
	StageComposing        Stage = "composing"
	StageMuxing           Stage = "muxing"
	StageChapterEmbedding Stage = "chapter_embedding"
	StageDone             Stage = "done"
)

var (
	// ErrMissingOutput reports a muxer run that exited successfully but
	// left no output file behind. This is a broken tool contract, not a
	// transient condition, and is never retried.
	ErrMissingOutput = errors.New("muxer reported success but output file is missing")

	// ErrMarkerMismatch reports a slide sequence whose length does not
	// match the chapter markers it was composed from.
	ErrMarkerMismatch = errors.New("slide image count does not match chapter markers")
)

const defaultMuxTimeout = 10 * time.Minute

// Request carries everything one assembly run needs. Images must be in
// slide order; Markers must be the reconciled chapter markers for the
// same slide units. Structured is false when the source document had no
// recognizable structure, which switches display timing to an equal
// split of the narration across the images. SkipChapters publishes the
// plain mux without a chapter track even when markers are present.
type Request struct {
	Images        []string
	Markers       []timing.ChapterMarker
	AudioPath     string
	TotalDuration float64
	Structured    bool
	SkipChapters  bool
	Profile       Profile
	WorkDir       string
	OutputPath    string
	SidecarPath   string
}

// Result reports how assembly finished. Degraded means a playable video
// was produced but chapter metadata could not be embedded.
type Result struct {
	VideoPath string
	Degraded  bool
	Reason    string
	Chapters  int
}

// Options configures an Assembler.
type Options struct {
	Runner      extproc.Runner
	FfmpegPath  string
	FfprobePath string
	Timeout     time.Duration
	Log         *slog.Logger
	OnStage     func(Stage)
}

// Assembler turns slide images plus narration into one MP4. All
// external tool invocations go through the shared process runner.
type Assembler struct {
	runner  extproc.Runner
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	log     *slog.Logger
	onStage func(Stage)
}

func NewAssembler(opts Options) *Assembler {
	a := &Assembler{
		runner:  opts.Runner,
		ffmpeg:  opts.FfmpegPath,
		ffprobe: opts.FfprobePath,
		timeout: opts.Timeout,
		log:     opts.Log,
		onStage: opts.OnStage,
	}
	if a.ffmpeg == "" {
		a.ffmpeg = "ffmpeg"
	}
	if a.ffprobe == "" {
		a.ffprobe = "ffprobe"
	}
	if a.timeout <= 0 {
		a.timeout = defaultMuxTimeout
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	return a
}

// Assemble runs the Composing, Muxing and ChapterEmbedding stages in
// order and publishes the final video at req.OutputPath. Embedding
// failures fall back to the plain muxed video and report a degraded
// result; a timed-out tool call is a hard failure.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Result, error) {
	if len(req.Images) == 0 {
		return nil, errors.New("no slide images to assemble")
	}
	if req.TotalDuration <= 0 {
		return nil, fmt.Errorf("non-positive narration duration %v", req.TotalDuration)
	}
	if _, err := os.Stat(req.AudioPath); err != nil {
		return nil, fmt.Errorf("narration audio: %w", err)
	}
	durations, err := slideDurations(req)
	if err != nil {
		return nil, err
	}

	a.stage(StageComposing)
	listPath, err := a.writeConcatList(req.WorkDir, req.Images, durations)
	if err != nil {
		return nil, err
	}

	a.stage(StageMuxing)
	muxed := filepath.Join(req.WorkDir, "muxed.mp4")
	if err := a.mux(ctx, listPath, req.AudioPath, req.Profile, muxed); err != nil {
		return nil, err
	}

	if len(req.Markers) == 0 || req.SkipChapters {
		if err := moveFile(muxed, req.OutputPath); err != nil {
			return nil, err
		}
		a.stage(StageDone)
		return &Result{VideoPath: req.OutputPath}, nil
	}

	a.stage(StageChapterEmbedding)
	res, err := a.embedChapters(ctx, muxed, req)
	if err != nil {
		return nil, err
	}
	a.stage(StageDone)
	return res, nil
}

// slideDurations derives per-image display times. Structured documents
// use the reconciled marker spans; an unstructured document divides the
// narration equally so the images still cover the full runtime.
func slideDurations(req Request) ([]float64, error) {
	n := len(req.Images)
	if !req.Structured {
		durations := make([]float64, n)
		share := req.TotalDuration / float64(n)
		for i := range durations {
			durations[i] = share
		}
		return durations, nil
	}
	if len(req.Markers) != n {
		return nil, fmt.Errorf("%w: %d images, %d markers", ErrMarkerMismatch, n, len(req.Markers))
	}
	durations := make([]float64, n)
	for i, m := range req.Markers {
		durations[i] = float64(m.EndMillis-m.StartMillis) / 1000.0
	}
	return durations, nil
}

// writeConcatList writes the concat demuxer script. The demuxer ignores
// the duration of the final entry, so the last image is listed twice.
func (a *Assembler) writeConcatList(dir string, images []string, durations []float64) (string, error) {
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	for i, img := range images {
		fmt.Fprintf(&b, "file '%s'\n", concatQuote(img))
		fmt.Fprintf(&b, "duration %.3f\n", durations[i])
	}
	fmt.Fprintf(&b, "file '%s'\n", concatQuote(images[len(images)-1]))

	path := filepath.Join(dir, "slides.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return path, nil
}

func concatQuote(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}

func (a *Assembler) mux(ctx context.Context, listPath, audioPath string, p Profile, outPath string) error {
	args := []string{
		"-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-i", audioPath,
		"-map", "0:v", "-map", "1:a",
		"-c:v", "libx264", "-preset", "medium", "-pix_fmt", "yuv420p",
		"-vf", fmt.Sprintf("scale=%d:%d", p.Width, p.Height),
		"-r", strconv.Itoa(p.FPS),
		"-b:v", p.Bitrate,
		"-c:a", "aac", "-b:a", "192k",
		"-movflags", "+faststart",
		outPath,
	}
	if _, err := a.runner.Run(ctx, extproc.Command{Path: a.ffmpeg, Args: args, Timeout: a.timeout}); err != nil {
		return fmt.Errorf("mux slideshow: %w", err)
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("mux slideshow: %w", ErrMissingOutput)
	}
	return nil
}

// embedChapters remuxes the video with an ffmetadata chapter track and
// verifies the output reports the same chapter count as supplied. A
// failed or unverifiable embed publishes the plain muxed video instead;
// only a timeout or cancellation aborts the job at this point.
func (a *Assembler) embedChapters(ctx context.Context, muxed string, req Request) (*Result, error) {
	meta := ChapterMetadata(req.Markers)
	metaPath := filepath.Join(req.WorkDir, "chapters.txt")
	if err := os.WriteFile(metaPath, []byte(meta), 0o644); err != nil {
		return nil, fmt.Errorf("write chapter metadata: %w", err)
	}
	if req.SidecarPath != "" {
		if err := os.WriteFile(req.SidecarPath, []byte(meta), 0o644); err != nil {
			return nil, fmt.Errorf("write chapter sidecar: %w", err)
		}
	}

	degrade := func(reason string, cause error) (*Result, error) {
		a.log.Warn("chapter embedding failed, publishing video without chapter metadata",
			"reason", reason, "error", cause)
		if err := moveFile(muxed, req.OutputPath); err != nil {
			return nil, err
		}
		return &Result{VideoPath: req.OutputPath, Degraded: true, Reason: reason}, nil
	}

	chaptered := filepath.Join(req.WorkDir, "chaptered.mp4")
	cmd := extproc.Command{
		Path:    a.ffmpeg,
		Args:    []string{"-y", "-i", muxed, "-i", metaPath, "-map", "0", "-map_metadata", "1", "-c", "copy", chaptered},
		Timeout: a.timeout,
	}
	if _, err := a.runner.Run(ctx, cmd); err != nil {
		if errors.Is(err, extproc.ErrTimeout) || ctx.Err() != nil {
			return nil, fmt.Errorf("embed chapters: %w", err)
		}
		return degrade("chapter muxer failed", err)
	}
	if _, err := os.Stat(chaptered); err != nil {
		return nil, fmt.Errorf("embed chapters: %w", ErrMissingOutput)
	}

	count, err := ProbeChapterCount(ctx, a.runner, a.ffprobe, chaptered)
	if err != nil {
		if errors.Is(err, extproc.ErrTimeout) || ctx.Err() != nil {
			return nil, err
		}
		return degrade("chapter verification failed", err)
	}
	if count != len(req.Markers) {
		return degrade(fmt.Sprintf("muxed output reports %d chapters, expected %d", count, len(req.Markers)), nil)
	}

	if err := moveFile(chaptered, req.OutputPath); err != nil {
		return nil, err
	}
	return &Result{VideoPath: req.OutputPath, Chapters: count}, nil
}

func (a *Assembler) stage(s Stage) {
	a.log.Info("assembly stage", "stage", string(s))
	if a.onStage != nil {
		a.onStage(s)
	}
}

// moveFile renames src to dst, copying when the rename crosses
// filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("publish %s: %w", filepath.Base(dst), err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("publish %s: %w", filepath.Base(dst), err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("publish %s: %w", filepath.Base(dst), err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("publish %s: %w", filepath.Base(dst), err)
	}
	return os.Remove(src)
}
