package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearConfigEnv blanks every variable Load reads so tests see only
// what they set themselves.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"MATHCAST_CONFIG", "PORT", "MATHCAST_API_KEY", "DATA_DIR",
		"WORKER_COUNT", "MAX_QUEUE_SIZE", "MAX_CONCURRENT_PROCS",
		"MAX_UPLOAD_BYTES", "READING_RATE", "CHAPTER_DEPTH",
		"SLIDE_TEMPLATE", "RENDER_BACKEND", "RENDER_DPI", "FONT_PATH",
		"TTS_VOICE", "SPEECH_RATE_PER_MIN",
		"AZURE_SPEECH_KEY", "AZURE_SPEECH_REGION",
		"GOOGLE_TTS_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS",
		"GOOGLE_APPLICATION_CREDENTIALS_JSON",
		"VIDEO_QUALITY", "PDFLATEX_PATH", "PDFTOPPM_PATH",
		"FFMPEG_PATH", "FFPROBE_PATH",
		"LATEX_TIMEOUT", "SPEECH_TIMEOUT", "MUX_TIMEOUT",
		"PROCESSING_TIMEOUT", "JOB_TTL", "SWEEP_INTERVAL",
		"FILE_MAX_AGE", "LOG_LEVEL",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want 4", cfg.WorkerCount)
	}
	if cfg.ReadingRate != 2.0 {
		t.Errorf("ReadingRate = %v, want 2.0", cfg.ReadingRate)
	}
	if cfg.ChapterDepth != 1 {
		t.Errorf("ChapterDepth = %d, want 1", cfg.ChapterDepth)
	}
	if cfg.VideoQuality != "1080p" {
		t.Errorf("VideoQuality = %q, want 1080p", cfg.VideoQuality)
	}
	if cfg.LatexTimeout != 5*time.Minute {
		t.Errorf("LatexTimeout = %v, want 5m", cfg.LatexTimeout)
	}
	if cfg.MaxUploadBytes != 104857600 {
		t.Errorf("MaxUploadBytes = %d, want 100MB", cfg.MaxUploadBytes)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("READING_RATE", "1.5")
	t.Setenv("LATEX_TIMEOUT", "90s")
	t.Setenv("VIDEO_QUALITY", "720p")
	t.Setenv("TTS_VOICE", "ja-JP-NanamiNeural")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want 9999", cfg.Port)
	}
	if cfg.WorkerCount != 8 {
		t.Errorf("WorkerCount = %d, want 8", cfg.WorkerCount)
	}
	if cfg.ReadingRate != 1.5 {
		t.Errorf("ReadingRate = %v, want 1.5", cfg.ReadingRate)
	}
	if cfg.LatexTimeout != 90*time.Second {
		t.Errorf("LatexTimeout = %v, want 90s", cfg.LatexTimeout)
	}
	if cfg.VideoQuality != "720p" {
		t.Errorf("VideoQuality = %q, want 720p", cfg.VideoQuality)
	}
	if cfg.Voice != "ja-JP-NanamiNeural" {
		t.Errorf("Voice = %q, want ja-JP-NanamiNeural", cfg.Voice)
	}
}

func TestLoadYAMLBeneathEnv(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "mathcast.yaml")
	yml := "port: \"7000\"\nworker_count: 12\nvideo_quality: 4k\nslide_template: modern\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MATHCAST_CONFIG", path)
	t.Setenv("PORT", "7777")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7777" {
		t.Errorf("Port = %q, env should override the file", cfg.Port)
	}
	if cfg.WorkerCount != 12 {
		t.Errorf("WorkerCount = %d, want 12 from file", cfg.WorkerCount)
	}
	if cfg.VideoQuality != "4k" {
		t.Errorf("VideoQuality = %q, want 4k from file", cfg.VideoQuality)
	}
	if cfg.SlideTemplate != "modern" {
		t.Errorf("SlideTemplate = %q, want modern from file", cfg.SlideTemplate)
	}
	if cfg.MaxQueueSize != 100 {
		t.Errorf("MaxQueueSize = %d, fields absent from the file keep defaults", cfg.MaxQueueSize)
	}
}

func TestLoadRejectsBadFile(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("MATHCAST_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("port: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MATHCAST_CONFIG", path)
	if _, err := Load(); err == nil {
		t.Error("expected error for unparseable config file")
	}
}

func TestLoadClampsNonsense(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("READING_RATE", "0")
	t.Setenv("CHAPTER_DEPTH", "-1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want clamped default 4", cfg.WorkerCount)
	}
	if cfg.ReadingRate != 2.0 {
		t.Errorf("ReadingRate = %v, want clamped default 2.0", cfg.ReadingRate)
	}
	if cfg.ChapterDepth != 1 {
		t.Errorf("ChapterDepth = %d, want clamped default 1", cfg.ChapterDepth)
	}
}

func TestValidate(t *testing.T) {
	base := Defaults()
	base.AzureSpeechKey = "key"
	base.AzureSpeechRegion = "eastus"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid azure", func(c *Config) {}, ""},
		{"valid google", func(c *Config) {
			c.AzureSpeechKey = ""
			c.AzureSpeechRegion = ""
			c.GoogleTTSCredentials = "/tmp/creds.json"
		}, ""},
		{"no credentials", func(c *Config) {
			c.AzureSpeechKey = ""
			c.AzureSpeechRegion = ""
		}, "no TTS credentials"},
		{"azure key without region", func(c *Config) {
			c.AzureSpeechRegion = ""
			c.GoogleTTSCredentials = "/tmp/creds.json"
		}, "AZURE_SPEECH_REGION"},
		{"bad quality", func(c *Config) { c.VideoQuality = "potato" }, "unknown video quality"},
		{"bad backend", func(c *Config) { c.RenderBackend = "crayon" }, "unknown render backend"},
	}
	for _, tt := range tests {
		cfg := base
		tt.mutate(&cfg)
		err := cfg.Validate()
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tt.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("%s: error = %v, want containing %q", tt.name, err, tt.wantErr)
		}
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := Config{LogLevel: tt.in}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
