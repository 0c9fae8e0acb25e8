// Package speech narrates a slide deck. The engine turns units into a
// spoken script, splits it into provider-sized segments, synthesizes
// each through a cloud text-to-speech provider and concatenates the
// audio into one WAV asset. The provider is picked by voice-name
// prefix from a routing table, resolved once per narration.
package speech

import (
	"context"
	"errors"
	"strings"
)

// Provider names used in routing tables and configuration.
const (
	ProviderAzure  = "azure"
	ProviderGoogle = "google"
)

// DefaultVoice is used when a job does not request one.
const DefaultVoice = "en-US-JennyNeural"

// ErrNoProvider means no speech provider is configured at all.
var ErrNoProvider = errors.New("no speech provider configured")

// Provider synthesizes one text segment into a WAV file.
type Provider interface {
	Name() string
	// SegmentLimit is the largest text length accepted per request,
	// in bytes.
	SegmentLimit() int
	Synthesize(ctx context.Context, text, voice, outPath string) error
}

// VoiceRoute maps a voice-name prefix to a preferred provider. The
// first matching row wins; an empty prefix matches every voice.
type VoiceRoute struct {
	Prefix   string
	Provider string
}

// DefaultRoutes prefer Azure for Japanese neural voices and Google for
// everything else. A missing provider falls through to any configured
// one.
var DefaultRoutes = []VoiceRoute{
	{Prefix: "ja-JP", Provider: ProviderAzure},
	{Prefix: "", Provider: ProviderGoogle},
}

// voiceLanguage derives the BCP-47 language tag from a voice name such
// as en-US-JennyNeural.
func voiceLanguage(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) >= 2 && parts[0] != "" && parts[1] != "" {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
