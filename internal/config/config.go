// Package config resolves service settings from three layers: compiled
// defaults, an optional YAML file named by MATHCAST_CONFIG, then
// environment overrides on top.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mathcast/mathcast/internal/video"
)

type Config struct {
	Port string `yaml:"port"`

	// Optional API auth; empty disables the check.
	APIKey string `yaml:"api_key"`

	// Workspace root; uploads/, outputs/ and temp/ live beneath it.
	DataDir string `yaml:"data_dir"`

	// Worker pool
	WorkerCount        int   `yaml:"worker_count"`
	MaxQueueSize       int   `yaml:"max_queue_size"`
	MaxConcurrentProcs int64 `yaml:"max_concurrent_procs"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Structure extraction
	ReadingRate  float64 `yaml:"reading_rate"`
	ChapterDepth int     `yaml:"chapter_depth"`

	// Slides and rendering
	SlideTemplate string `yaml:"slide_template"`
	RenderBackend string `yaml:"render_backend"`
	RenderDPI     int    `yaml:"render_dpi"`
	FontPath      string `yaml:"font_path"`

	// Narration
	Voice                string `yaml:"voice"`
	SpeechRatePerMin     int    `yaml:"speech_rate_per_min"`
	AzureSpeechKey       string `yaml:"azure_speech_key"`
	AzureSpeechRegion    string `yaml:"azure_speech_region"`
	GoogleTTSCredentials string `yaml:"google_tts_credentials"`

	// Video
	VideoQuality string `yaml:"video_quality"`

	// External tools
	PdflatexPath string `yaml:"pdflatex_path"`
	PdftoppmPath string `yaml:"pdftoppm_path"`
	FfmpegPath   string `yaml:"ffmpeg_path"`
	FfprobePath  string `yaml:"ffprobe_path"`

	// Timeouts and retention windows are environment-only, as Go
	// duration strings ("5m", "1h").
	LatexTimeout  time.Duration `yaml:"-"`
	SpeechTimeout time.Duration `yaml:"-"`
	MuxTimeout    time.Duration `yaml:"-"`
	JobTimeout    time.Duration `yaml:"-"`

	JobTTL        time.Duration `yaml:"-"`
	SweepInterval time.Duration `yaml:"-"`
	FileMaxAge    time.Duration `yaml:"-"`

	LogLevel string `yaml:"log_level"`
}

func Defaults() Config {
	return Config{
		Port:    "8000",
		DataDir: "./data",

		WorkerCount:        4,
		MaxQueueSize:       100,
		MaxConcurrentProcs: 2,

		MaxUploadBytes: 104857600, // 100MB

		ReadingRate:  2.0,
		ChapterDepth: 1,

		SlideTemplate: "default",
		RenderBackend: "auto",
		RenderDPI:     300,

		Voice: "en-US-JennyNeural",

		VideoQuality: video.DefaultProfile,

		PdflatexPath: "pdflatex",
		PdftoppmPath: "pdftoppm",
		FfmpegPath:   "ffmpeg",
		FfprobePath:  "ffprobe",

		LatexTimeout:  5 * time.Minute,
		SpeechTimeout: 5 * time.Minute,
		MuxTimeout:    10 * time.Minute,
		JobTimeout:    1 * time.Hour,

		JobTTL:        1 * time.Hour,
		SweepInterval: 15 * time.Minute,
		FileMaxAge:    24 * time.Hour,

		LogLevel: "info",
	}
}

func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("MATHCAST_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.clamp()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.APIKey = envOr("MATHCAST_API_KEY", c.APIKey)
	c.DataDir = envOr("DATA_DIR", c.DataDir)

	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)
	c.MaxConcurrentProcs = envInt64("MAX_CONCURRENT_PROCS", c.MaxConcurrentProcs)

	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)

	c.ReadingRate = envFloat("READING_RATE", c.ReadingRate)
	c.ChapterDepth = envInt("CHAPTER_DEPTH", c.ChapterDepth)

	c.SlideTemplate = envOr("SLIDE_TEMPLATE", c.SlideTemplate)
	c.RenderBackend = envOr("RENDER_BACKEND", c.RenderBackend)
	c.RenderDPI = envInt("RENDER_DPI", c.RenderDPI)
	c.FontPath = envOr("FONT_PATH", c.FontPath)

	c.Voice = envOr("TTS_VOICE", c.Voice)
	c.SpeechRatePerMin = envInt("SPEECH_RATE_PER_MIN", c.SpeechRatePerMin)
	c.AzureSpeechKey = envOr("AZURE_SPEECH_KEY", c.AzureSpeechKey)
	c.AzureSpeechRegion = envOr("AZURE_SPEECH_REGION", c.AzureSpeechRegion)
	c.GoogleTTSCredentials = envOr("GOOGLE_TTS_CREDENTIALS", c.GoogleTTSCredentials)
	if c.GoogleTTSCredentials == "" {
		c.GoogleTTSCredentials = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if c.GoogleTTSCredentials == "" {
		c.GoogleTTSCredentials = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")
	}

	c.VideoQuality = envOr("VIDEO_QUALITY", c.VideoQuality)

	c.PdflatexPath = envOr("PDFLATEX_PATH", c.PdflatexPath)
	c.PdftoppmPath = envOr("PDFTOPPM_PATH", c.PdftoppmPath)
	c.FfmpegPath = envOr("FFMPEG_PATH", c.FfmpegPath)
	c.FfprobePath = envOr("FFPROBE_PATH", c.FfprobePath)

	c.LatexTimeout = envDuration("LATEX_TIMEOUT", c.LatexTimeout)
	c.SpeechTimeout = envDuration("SPEECH_TIMEOUT", c.SpeechTimeout)
	c.MuxTimeout = envDuration("MUX_TIMEOUT", c.MuxTimeout)
	c.JobTimeout = envDuration("PROCESSING_TIMEOUT", c.JobTimeout)

	c.JobTTL = envDuration("JOB_TTL", c.JobTTL)
	c.SweepInterval = envDuration("SWEEP_INTERVAL", c.SweepInterval)
	c.FileMaxAge = envDuration("FILE_MAX_AGE", c.FileMaxAge)

	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
}

func (c *Config) clamp() {
	d := Defaults()
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxConcurrentProcs <= 0 {
		c.MaxConcurrentProcs = d.MaxConcurrentProcs
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.ReadingRate <= 0 {
		c.ReadingRate = d.ReadingRate
	}
	if c.ChapterDepth <= 0 {
		c.ChapterDepth = d.ChapterDepth
	}
	if c.RenderDPI <= 0 {
		c.RenderDPI = d.RenderDPI
	}
	if c.LatexTimeout <= 0 {
		c.LatexTimeout = d.LatexTimeout
	}
	if c.SpeechTimeout <= 0 {
		c.SpeechTimeout = d.SpeechTimeout
	}
	if c.MuxTimeout <= 0 {
		c.MuxTimeout = d.MuxTimeout
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = d.JobTimeout
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	if c.FileMaxAge <= 0 {
		c.FileMaxAge = d.FileMaxAge
	}
}

func (c Config) Validate() error {
	if !c.HasSpeechCredentials() {
		return fmt.Errorf("no TTS credentials configured: set AZURE_SPEECH_KEY/AZURE_SPEECH_REGION or GOOGLE_TTS_CREDENTIALS")
	}
	if c.AzureSpeechKey != "" && c.AzureSpeechRegion == "" {
		return fmt.Errorf("AZURE_SPEECH_KEY is set but AZURE_SPEECH_REGION is empty")
	}
	if !video.KnownProfile(c.VideoQuality) {
		return fmt.Errorf("unknown video quality %q (valid: %s)", c.VideoQuality, strings.Join(video.ProfileNames(), ", "))
	}
	switch c.RenderBackend {
	case "auto", "latex", "canvas":
	default:
		return fmt.Errorf("unknown render backend %q (valid: auto, latex, canvas)", c.RenderBackend)
	}
	return nil
}

// HasSpeechCredentials reports whether at least one TTS provider can be
// constructed.
func (c Config) HasSpeechCredentials() bool {
	return (c.AzureSpeechKey != "" && c.AzureSpeechRegion != "") || c.GoogleTTSCredentials != ""
}

// SlogLevel maps the configured log level to slog, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
