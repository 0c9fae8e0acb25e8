package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mathcast/mathcast/internal/extproc"
)

// ErrMissingOutput marks a synthesis or concat step that reported
// success without producing its file.
var ErrMissingOutput = errors.New("expected output file missing")

const defaultSpeechTimeout = 5 * time.Minute

// Options configures an Engine.
type Options struct {
	Providers  []Provider
	Routes     []VoiceRoute
	Runner     extproc.Runner
	FfmpegPath string
	// RatePerMin throttles synthesis requests across all jobs.
	// Zero or negative disables throttling.
	RatePerMin int
	Timeout    time.Duration
	Stats      *SynthStats
	Log        *slog.Logger
}

// Engine narrates scripts through the configured providers.
type Engine struct {
	providers map[string]Provider
	routes    []VoiceRoute
	runner    extproc.Runner
	ffmpeg    string
	limiter   *rate.Limiter
	timeout   time.Duration
	stats     *SynthStats
	log       *slog.Logger
}

func NewEngine(opts Options) *Engine {
	providers := make(map[string]Provider, len(opts.Providers))
	for _, p := range opts.Providers {
		providers[p.Name()] = p
	}
	routes := opts.Routes
	if len(routes) == 0 {
		routes = DefaultRoutes
	}
	limit := rate.Inf
	if opts.RatePerMin > 0 {
		limit = rate.Limit(float64(opts.RatePerMin) / 60.0)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultSpeechTimeout
	}
	ffmpeg := opts.FfmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		providers: providers,
		routes:    routes,
		runner:    opts.Runner,
		ffmpeg:    ffmpeg,
		limiter:   rate.NewLimiter(limit, 1),
		timeout:   timeout,
		stats:     opts.Stats,
		log:       log,
	}
}

// ProviderFor resolves the provider for a voice against the routing
// table. When no route's provider is configured, any configured
// provider is better than none.
func (e *Engine) ProviderFor(voice string) (Provider, error) {
	for _, r := range e.routes {
		if r.Prefix != "" && !strings.HasPrefix(voice, r.Prefix) {
			continue
		}
		if p, ok := e.providers[r.Provider]; ok {
			return p, nil
		}
	}
	for _, name := range []string{ProviderAzure, ProviderGoogle} {
		if p, ok := e.providers[name]; ok {
			return p, nil
		}
	}
	return nil, ErrNoProvider
}

// Narrate synthesizes the script into a single WAV at outPath. Segment
// files and the concat list go to workDir. The provider is resolved
// once, before the first segment.
func (e *Engine) Narrate(ctx context.Context, script, voice, workDir, outPath string) error {
	if strings.TrimSpace(script) == "" {
		return fmt.Errorf("empty narration script")
	}
	provider, err := e.ProviderFor(voice)
	if err != nil {
		return err
	}

	segments := Segment(script, provider.SegmentLimit())
	e.log.Info("narrating", "provider", provider.Name(), "voice", voice, "segments", len(segments))

	paths := make([]string, len(segments))
	for i, seg := range segments {
		if err := e.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		segPath := filepath.Join(workDir, fmt.Sprintf("seg_%03d.wav", i+1))
		if err := e.synthesize(ctx, provider, seg, voice, segPath); err != nil {
			return fmt.Errorf("segment %d/%d: %w", i+1, len(segments), err)
		}
		if _, err := os.Stat(segPath); err != nil {
			return fmt.Errorf("segment %d/%d: %w", i+1, len(segments), ErrMissingOutput)
		}
		paths[i] = segPath
	}

	return e.concat(ctx, paths, workDir, outPath)
}

// synthesize runs one provider call with retries on transient errors.
func (e *Engine) synthesize(ctx context.Context, p Provider, text, voice, outPath string) error {
	var lastErr error
	for attempt := range maxRetries {
		start := time.Now()
		lastErr = p.Synthesize(ctx, text, voice, outPath)
		if lastErr == nil {
			if e.stats != nil {
				e.stats.Record(time.Since(start).Milliseconds())
			}
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		e.log.Warn("retryable synthesis error", "provider", p.Name(), "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// concat joins WAV segments with the ffmpeg concat demuxer, stream
// copied so no re-encode happens.
func (e *Engine) concat(ctx context.Context, paths []string, workDir, outPath string) error {
	listPath := filepath.Join(workDir, "segments.txt")
	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "file '%s'\n", p)
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write segment list: %w", err)
	}

	_, err := e.runner.Run(ctx, extproc.Command{
		Path:    e.ffmpeg,
		Args:    []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", outPath},
		Dir:     workDir,
		Timeout: e.timeout,
	})
	if err != nil {
		return fmt.Errorf("concat segments: %w", err)
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("narration after concat: %w", ErrMissingOutput)
	}
	return nil
}
