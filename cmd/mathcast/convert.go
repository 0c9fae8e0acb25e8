package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mathcast/mathcast/internal/config"
	"github.com/mathcast/mathcast/internal/extproc"
	"github.com/mathcast/mathcast/internal/parser"
	"github.com/mathcast/mathcast/internal/pipeline"
	"github.com/mathcast/mathcast/internal/render"
	"github.com/mathcast/mathcast/internal/speech"
	"github.com/mathcast/mathcast/internal/video"
	"github.com/mathcast/mathcast/internal/workspace"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert one document to a narrated video",
	Long: `Convert runs the full pipeline on a single document and writes the
finished MP4 next to it (or to --output). Narration credentials are
read from the environment, the same way the server reads them.`,
	RunE: runConvert,
}

var (
	input        string
	output       string
	voice        string
	quality      string
	template     string
	depth        int
	chapters     bool
	title        string
	saveChapters bool
)

func init() {
	defaults := config.Defaults()

	convertCmd.Flags().StringVarP(&input, "input", "i", "", "document to convert (pdf, tex, md, html, docx, txt)")
	convertCmd.Flags().StringVarP(&output, "output", "o", "", "output MP4 path (default: <input>.mp4)")
	convertCmd.Flags().StringVar(&voice, "voice", defaults.Voice, "narration voice")
	convertCmd.Flags().StringVar(&quality, "quality", defaults.VideoQuality, "video quality: 720p, 1080p, 4k")
	convertCmd.Flags().StringVar(&template, "template", defaults.SlideTemplate, "slide template: default, academic, modern")
	convertCmd.Flags().IntVar(&depth, "depth", defaults.ChapterDepth, "structure depth that becomes slides and chapters")
	convertCmd.Flags().BoolVar(&chapters, "chapters", true, "embed chapter markers in the MP4")
	convertCmd.Flags().StringVar(&title, "title", "", "override the detected document title")
	convertCmd.Flags().BoolVar(&saveChapters, "save-chapters", false, "write the ffmetadata chapter listing next to the video")
	convertCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	absPath, err := filepath.Abs(input)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return fmt.Errorf("file not found: %s", input)
	}
	if !parser.IsSupportedExtension(absPath) {
		return fmt.Errorf("unsupported file type: %s", filepath.Ext(absPath))
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Flags win over configuration only when actually set.
	if !cmd.Flags().Changed("voice") {
		voice = cfg.Voice
	}
	if !cmd.Flags().Changed("quality") {
		quality = cfg.VideoQuality
	}
	if !cmd.Flags().Changed("template") {
		template = cfg.SlideTemplate
	}
	if !cmd.Flags().Changed("depth") {
		depth = cfg.ChapterDepth
	}
	if !video.KnownProfile(quality) {
		return fmt.Errorf("unknown quality %q (valid: %s)", quality, strings.Join(video.ProfileNames(), ", "))
	}
	if output == "" {
		output = strings.TrimSuffix(absPath, filepath.Ext(absPath)) + ".mp4"
	}

	scratch, err := os.MkdirTemp("", "mathcast-")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	ws, err := workspace.NewManager(
		filepath.Join(scratch, "uploads"),
		filepath.Join(scratch, "outputs"),
		filepath.Join(scratch, "temp"),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := extproc.NewPoolRunner(cfg.MaxConcurrentProcs)
	profile := video.ProfileFor(quality)
	renderer := render.New(runner, render.Options{
		Backend:      cfg.RenderBackend,
		PdflatexPath: cfg.PdflatexPath,
		PdftoppmPath: cfg.PdftoppmPath,
		DPI:          cfg.RenderDPI,
		Timeout:      cfg.LatexTimeout,
		Width:        profile.Width,
		Height:       profile.Height,
		FontPath:     cfg.FontPath,
		Parallelism:  cfg.WorkerCount,
	})

	providers, closeProviders := buildProviders(ctx, cfg)
	if len(providers) == 0 {
		return fmt.Errorf("no speech provider available")
	}
	defer closeProviders()
	engine := speech.NewEngine(speech.Options{
		Providers:  providers,
		Runner:     runner,
		FfmpegPath: cfg.FfmpegPath,
		RatePerMin: cfg.SpeechRatePerMin,
		Timeout:    cfg.SpeechTimeout,
		Log:        slog.Default(),
	})

	jobID := pipeline.NewJobID()
	src, err := os.Open(absPath)
	if err != nil {
		return err
	}
	uploadPath, _, err := ws.SaveUpload(jobID, filepath.Base(absPath), src)
	src.Close()
	if err != nil {
		return fmt.Errorf("stage input: %w", err)
	}

	now := time.Now()
	job := &pipeline.Job{
		ID:         jobID,
		Filename:   filepath.Base(absPath),
		Title:      title,
		Status:     pipeline.StatusUploaded,
		UploadPath: uploadPath,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	job.SetOptions(voice, quality, template, depth, chapters)

	worker := pipeline.NewWorker(cfg, runner, renderer, engine, ws, slog.Default())
	worker.Process(ctx, job)

	snap := job.Snapshot()
	if snap.Status == pipeline.StatusFailed {
		return fmt.Errorf("conversion failed at %s: %s", snap.Phase, snap.Reason)
	}
	if snap.Status == pipeline.StatusSucceededDegraded {
		slog.Warn("video published without chapter markers", "reason", snap.Reason)
	}

	out := job.OutputPaths()
	if err := copyOut(out.Video, output); err != nil {
		return fmt.Errorf("write video: %w", err)
	}
	if saveChapters && out.Sidecar != "" {
		dest := strings.TrimSuffix(output, filepath.Ext(output)) + ".chapters.txt"
		if err := copyOut(out.Sidecar, dest); err != nil {
			return fmt.Errorf("write chapter listing: %w", err)
		}
	}

	if !quiet {
		slog.Info("done",
			"video", output,
			"slides", snap.Progress.Slides,
			"chapters", snap.Progress.Chapters,
			"narration_seconds", snap.Progress.AudioSeconds,
		)
	}
	return nil
}

func copyOut(src, dst string) error {
	if src == "" {
		return fmt.Errorf("artifact was not produced")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
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
		return err
	}
	return out.Close()
}

// buildProviders constructs every narration backend the configuration
// carries credentials for.
func buildProviders(ctx context.Context, cfg config.Config) ([]speech.Provider, func()) {
	var providers []speech.Provider
	var closers []func()

	if cfg.AzureSpeechKey != "" && cfg.AzureSpeechRegion != "" {
		az := speech.NewAzureClient(cfg.AzureSpeechKey, cfg.AzureSpeechRegion)
		providers = append(providers, az)
		closers = append(closers, az.Close)
	}
	if cfg.GoogleTTSCredentials != "" {
		exportGoogleCredentials(cfg.GoogleTTSCredentials)
		g, err := speech.NewGoogleClient(ctx)
		if err != nil {
			slog.Error("google tts unavailable", "error", err)
		} else {
			providers = append(providers, g)
			closers = append(closers, func() { g.Close() })
		}
	}

	return providers, func() {
		for _, c := range closers {
			c()
		}
	}
}

// exportGoogleCredentials hands configured credentials to the Google
// client, which resolves them from the environment. Credentials already
// in the environment win.
func exportGoogleCredentials(creds string) {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" || os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON") != "" {
		return
	}
	key := "GOOGLE_APPLICATION_CREDENTIALS"
	if strings.HasPrefix(strings.TrimSpace(creds), "{") {
		key = "GOOGLE_APPLICATION_CREDENTIALS_JSON"
	}
	os.Setenv(key, creds)
}
