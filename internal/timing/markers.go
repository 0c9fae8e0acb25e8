package timing

import (
	"fmt"
	"math"

	"github.com/mathcast/mathcast/internal/structure"
)

// ChapterMarker is a finalized chapter record for video metadata.
// Markers are ephemeral: derived per assembly call, never persisted.
type ChapterMarker struct {
	Title       string `json:"title"`
	StartMillis int64  `json:"start_ms"`
	EndMillis   int64  `json:"end_ms"`
}

// Markers derives chapter markers 1:1 from the reconciled nodes at the
// cutoff depth. Consecutive starts are chained to the previous end and
// the final end is pinned to the rounded total, so millisecond rounding
// can never produce an overlap or a shortfall. A document with no nodes
// yields a single marker spanning the whole duration.
func Markers(doc *structure.Document, total float64, depth int) []ChapterMarker {
	totalMillis := int64(math.Round(total * 1000))
	nodes := structure.CutoffNodes(doc.Roots, depth)

	if len(nodes) == 0 {
		title := doc.Title
		if title == "" {
			title = "Full document"
		}
		return []ChapterMarker{{Title: title, StartMillis: 0, EndMillis: totalMillis}}
	}

	out := make([]ChapterMarker, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, ChapterMarker{
			Title:       n.Title,
			StartMillis: int64(math.Round(n.Start * 1000)),
			EndMillis:   int64(math.Round(n.End * 1000)),
		})
	}

	out[0].StartMillis = 0
	for i := 1; i < len(out); i++ {
		out[i].StartMillis = out[i-1].EndMillis
		if out[i].EndMillis < out[i].StartMillis {
			out[i].EndMillis = out[i].StartMillis
		}
	}
	out[len(out)-1].EndMillis = totalMillis
	return out
}

// Duration returns a marker's span in seconds.
func (m ChapterMarker) Duration() float64 {
	return float64(m.EndMillis-m.StartMillis) / 1000.0
}

// ValidateMarkers checks the marker contract: ascending, gap-free,
// non-overlapping, and covering [0, totalMillis] within tol
// milliseconds. It returns the first violation found.
func ValidateMarkers(markers []ChapterMarker, totalMillis, tol int64) error {
	if len(markers) == 0 {
		return fmt.Errorf("no markers")
	}
	if abs64(markers[0].StartMillis) > tol {
		return fmt.Errorf("first marker starts at %dms, want 0", markers[0].StartMillis)
	}
	for i, m := range markers {
		if m.EndMillis < m.StartMillis {
			return fmt.Errorf("marker %d (%q) ends before it starts", i, m.Title)
		}
		if i > 0 {
			gap := m.StartMillis - markers[i-1].EndMillis
			if abs64(gap) > tol {
				return fmt.Errorf("marker %d (%q) starts %dms away from previous end", i, m.Title, gap)
			}
		}
	}
	last := markers[len(markers)-1]
	if abs64(last.EndMillis-totalMillis) > tol {
		return fmt.Errorf("last marker ends at %dms, want %dms", last.EndMillis, totalMillis)
	}
	return nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
