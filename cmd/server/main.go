package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mathcast/mathcast/internal/api"
	"github.com/mathcast/mathcast/internal/config"
	"github.com/mathcast/mathcast/internal/extproc"
	"github.com/mathcast/mathcast/internal/pipeline"
	"github.com/mathcast/mathcast/internal/render"
	"github.com/mathcast/mathcast/internal/speech"
	"github.com/mathcast/mathcast/internal/video"
	"github.com/mathcast/mathcast/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws, err := workspace.NewManager(
		filepath.Join(cfg.DataDir, "uploads"),
		filepath.Join(cfg.DataDir, "outputs"),
		filepath.Join(cfg.DataDir, "temp"),
	)
	if err != nil {
		log.Error("workspace init failed", "error", err)
		os.Exit(1)
	}

	for _, tool := range []string{cfg.FfmpegPath, cfg.FfprobePath} {
		if !extproc.LookPath(tool) {
			log.Warn("tool not found in PATH, jobs will fail", "tool", tool)
		}
	}

	runner := extproc.NewPoolRunner(cfg.MaxConcurrentProcs)

	profile := video.ProfileFor(cfg.VideoQuality)
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

	stats := speech.NewSynthStats(time.Hour)
	providers, closeProviders := buildProviders(ctx, cfg, log)
	if len(providers) == 0 {
		log.Error("no speech provider available")
		os.Exit(1)
	}
	engine := speech.NewEngine(speech.Options{
		Providers:  providers,
		Runner:     runner,
		FfmpegPath: cfg.FfmpegPath,
		RatePerMin: cfg.SpeechRatePerMin,
		Timeout:    cfg.SpeechTimeout,
		Stats:      stats,
		Log:        log,
	})

	orch := pipeline.NewOrchestrator(cfg, runner, renderer, engine, ws, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, ws, stats, log, cfg)

	// Uploads run to 100MB and finished videos are large, so the
	// read/write timeouts stay generous.
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		closeProviders()
	}()

	log.Info("starting mathcast",
		"port", cfg.Port,
		"workers", cfg.WorkerCount,
		"render_backend", cfg.RenderBackend,
		"video_quality", cfg.VideoQuality,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// buildProviders constructs every narration backend the configuration
// carries credentials for.
func buildProviders(ctx context.Context, cfg config.Config, log *slog.Logger) ([]speech.Provider, func()) {
	var providers []speech.Provider
	var closers []func()

	if cfg.AzureSpeechKey != "" && cfg.AzureSpeechRegion != "" {
		az := speech.NewAzureClient(cfg.AzureSpeechKey, cfg.AzureSpeechRegion)
		providers = append(providers, az)
		closers = append(closers, az.Close)
		log.Info("azure speech enabled", "region", cfg.AzureSpeechRegion)
	}
	if cfg.GoogleTTSCredentials != "" {
		exportGoogleCredentials(cfg.GoogleTTSCredentials)
		g, err := speech.NewGoogleClient(ctx)
		if err != nil {
			log.Error("google tts unavailable", "error", err)
		} else {
			providers = append(providers, g)
			closers = append(closers, func() { g.Close() })
			log.Info("google tts enabled")
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
