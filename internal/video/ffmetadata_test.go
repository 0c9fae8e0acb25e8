package video

import (
	"strings"
	"testing"

	"github.com/mathcast/mathcast/internal/timing"
)

func TestProfileFor(t *testing.T) {
	tests := []struct {
		name  string
		width int
		rate  string
	}{
		{"720p", 1280, "2M"},
		{"1080p", 1920, "5M"},
		{"4k", 3840, "20M"},
		{"4K", 3840, "20M"},
		{" 1080p ", 1920, "5M"},
		{"potato", 1920, "5M"},
		{"", 1920, "5M"},
	}
	for _, tt := range tests {
		p := ProfileFor(tt.name)
		if p.Width != tt.width || p.Bitrate != tt.rate {
			t.Errorf("ProfileFor(%q) = %dx%d %s, want width %d bitrate %s",
				tt.name, p.Width, p.Height, p.Bitrate, tt.width, tt.rate)
		}
		if p.FPS != 30 {
			t.Errorf("ProfileFor(%q).FPS = %d, want 30", tt.name, p.FPS)
		}
	}
}

func TestKnownProfile(t *testing.T) {
	if !KnownProfile("720p") || !KnownProfile("4K") {
		t.Error("expected 720p and 4K to be known")
	}
	if KnownProfile("potato") {
		t.Error("potato should not be a known profile")
	}
}

func TestChapterMetadata(t *testing.T) {
	markers := []timing.ChapterMarker{
		{Title: "Chapter 1: Limits", StartMillis: 0, EndMillis: 28420},
		{Title: "Chapter 2: Continuity", StartMillis: 28420, EndMillis: 60000},
	}
	want := ";FFMETADATA1\n" +
		"[CHAPTER]\n" +
		"TIMEBASE=1/1000\n" +
		"START=0\n" +
		"END=28420\n" +
		"title=Chapter 1: Limits\n" +
		"[CHAPTER]\n" +
		"TIMEBASE=1/1000\n" +
		"START=28420\n" +
		"END=60000\n" +
		"title=Chapter 2: Continuity\n"
	if got := ChapterMetadata(markers); got != want {
		t.Errorf("ChapterMetadata:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestChapterMetadataEscapesSpecials(t *testing.T) {
	markers := []timing.ChapterMarker{
		{Title: `a=b; #1 \ done`, StartMillis: 0, EndMillis: 1000},
	}
	got := ChapterMetadata(markers)
	want := `title=a\=b\; \#1 \\ done` + "\n"
	if !strings.Contains(got, want) {
		t.Errorf("escaped title line %q not found in:\n%s", want, got)
	}
}

func TestChapterMetadataNoMarkers(t *testing.T) {
	if got := ChapterMetadata(nil); got != ";FFMETADATA1\n" {
		t.Errorf("ChapterMetadata(nil) = %q, want header only", got)
	}
}
