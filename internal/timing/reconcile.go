// Package timing rescales the provisional, text-derived timings of a
// document structure against the measured narration duration. Text
// length only ever decides proportions between siblings; the audio
// decides every absolute value. This is the single timing source for
// slide display and chapter metadata.
package timing

import (
	"github.com/mathcast/mathcast/internal/structure"
)

// Reconcile rewrites every node's Start/End/Duration in place so the
// top-level durations sum exactly to total (seconds) while the relative
// proportions among siblings from the provisional estimate are kept.
// Children are rescaled recursively within their parent's reassigned
// window, so ordering and containment hold at every depth.
func Reconcile(doc *structure.Document, total float64) {
	if doc == nil || total <= 0 {
		return
	}
	rescale(doc.Roots, 0, total)
}

// rescale distributes the window [start, start+span) across siblings in
// proportion to their provisional durations. The last sibling's end is
// pinned to the window end so float error can never open a gap. A group
// whose provisional weights sum to zero is split evenly.
func rescale(nodes []*structure.Node, start, span float64) {
	if len(nodes) == 0 {
		return
	}
	if span < 0 {
		span = 0
	}

	var sum float64
	for _, n := range nodes {
		sum += n.Duration
	}

	cursor := start
	for i, n := range nodes {
		var d float64
		if sum > 0 {
			d = span * n.Duration / sum
		} else {
			d = span / float64(len(nodes))
		}
		n.Start = cursor
		n.End = cursor + d
		if i == len(nodes)-1 {
			n.End = start + span
		}
		n.Duration = n.End - n.Start
		rescale(n.Children, n.Start, n.Duration)
		cursor = n.End
	}
}
