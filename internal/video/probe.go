package video

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mathcast/mathcast/internal/extproc"
)

const probeTimeout = 30 * time.Second

// formatProbe mirrors the ffprobe -show_format JSON structure.
type formatProbe struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// chapterProbe mirrors the ffprobe -show_chapters JSON structure.
type chapterProbe struct {
	Chapters []struct {
		ID int64 `json:"id"`
	} `json:"chapters"`
}

// ProbeDuration returns a media file's duration in seconds as reported
// by ffprobe. Narration audio is probed exactly once per job and the
// measured value drives all chapter timing.
func ProbeDuration(ctx context.Context, runner extproc.Runner, ffprobePath, path string) (float64, error) {
	res, err := runner.Run(ctx, extproc.Command{
		Path:    ffprobePath,
		Args:    []string{"-v", "error", "-show_entries", "format=duration", "-of", "json", path},
		Timeout: probeTimeout,
	})
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}
	var probe formatProbe
	if err := json.Unmarshal(res.Stdout, &probe); err != nil {
		return 0, fmt.Errorf("probe duration: parse ffprobe output: %w", err)
	}
	dur, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("probe duration: unparseable duration %q: %w", probe.Format.Duration, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("probe duration: non-positive duration %v for %s", dur, path)
	}
	return dur, nil
}

// ProbeChapterCount returns how many chapters a container reports.
func ProbeChapterCount(ctx context.Context, runner extproc.Runner, ffprobePath, path string) (int, error) {
	res, err := runner.Run(ctx, extproc.Command{
		Path:    ffprobePath,
		Args:    []string{"-v", "error", "-show_chapters", "-of", "json", path},
		Timeout: probeTimeout,
	})
	if err != nil {
		return 0, fmt.Errorf("probe chapters: %w", err)
	}
	var probe chapterProbe
	if err := json.Unmarshal(res.Stdout, &probe); err != nil {
		return 0, fmt.Errorf("probe chapters: parse ffprobe output: %w", err)
	}
	return len(probe.Chapters), nil
}
