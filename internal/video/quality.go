package video

import (
	"sort"
	"strings"
)

// Profile describes one output rendition: frame geometry, frame rate
// and the target video bitrate handed to the encoder.
type Profile struct {
	Name    string
	Width   int
	Height  int
	FPS     int
	Bitrate string
}

// DefaultProfile is used when no quality is requested or the requested
// name is unknown.
const DefaultProfile = "1080p"

var profiles = map[string]Profile{
	"720p":  {Name: "720p", Width: 1280, Height: 720, FPS: 30, Bitrate: "2M"},
	"1080p": {Name: "1080p", Width: 1920, Height: 1080, FPS: 30, Bitrate: "5M"},
	"4k":    {Name: "4k", Width: 3840, Height: 2160, FPS: 30, Bitrate: "20M"},
}

// ProfileFor resolves a quality name to its rendition, falling back to
// the default for unknown names.
func ProfileFor(name string) Profile {
	if p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return profiles[DefaultProfile]
}

// KnownProfile reports whether name resolves to a configured rendition.
func KnownProfile(name string) bool {
	_, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// ProfileNames lists the configured quality names in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
