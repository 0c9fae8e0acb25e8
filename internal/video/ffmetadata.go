package video

import (
	"fmt"
	"strings"

	"github.com/mathcast/mathcast/internal/timing"
)

// metadataEscaper escapes the characters the ffmetadata format treats
// specially in values: '=', ';', '#' and '\'.
var metadataEscaper = strings.NewReplacer(
	`\`, `\\`,
	"=", `\=`,
	";", `\;`,
	"#", `\#`,
	"\n", " ",
)

// ChapterMetadata renders chapter markers as an ffmetadata sidecar: the
// ";FFMETADATA1" header followed by one [CHAPTER] block per marker with
// millisecond START/END values on a 1/1000 timebase. Blocks appear in
// marker order, so they are sorted by START ascending.
func ChapterMetadata(markers []timing.ChapterMarker) string {
	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	for _, m := range markers {
		b.WriteString("[CHAPTER]\n")
		b.WriteString("TIMEBASE=1/1000\n")
		fmt.Fprintf(&b, "START=%d\n", m.StartMillis)
		fmt.Fprintf(&b, "END=%d\n", m.EndMillis)
		fmt.Fprintf(&b, "title=%s\n", metadataEscaper.Replace(m.Title))
	}
	return b.String()
}
