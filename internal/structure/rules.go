package structure

import "regexp"

// Rule maps a heading pattern to the structural kind and level it
// introduces. Number is taken from the first capture group and title
// from the last; a pattern with a single group captures only a title.
// Formats restricts a rule to specific source formats; nil means the
// rule applies everywhere.
type Rule struct {
	Pattern *regexp.Regexp
	Kind    Kind
	Level   int
	Formats []Format
}

func (r Rule) appliesTo(format Format) bool {
	if len(r.Formats) == 0 {
		return true
	}
	for _, f := range r.Formats {
		if f == format {
			return true
		}
	}
	return false
}

var (
	fmtLaTeX    = []Format{FormatLaTeX, FormatText}
	fmtMarkdown = []Format{FormatMarkdown, FormatHTML, FormatDOCX, FormatText}
)

// Rules is evaluated in order and the first match wins. Specificity is
// resolved purely by position: "N.N.N" stands ahead of "N.N" ahead of
// "N." because nothing else disambiguates them.
var Rules = []Rule{
	{regexp.MustCompile(`^第\s*([0-9０-９一二三四五六七八九十百]+)\s*章[\s:：]*(.*)$`), KindChapter, 1, nil},
	{regexp.MustCompile(`^第\s*([0-9０-９一二三四五六七八九十百]+)\s*節[\s:：]*(.*)$`), KindSection, 2, nil},

	{regexp.MustCompile(`^\\chapter\*?\{(.+)\}`), KindChapter, 1, fmtLaTeX},
	{regexp.MustCompile(`^\\section\*?\{(.+)\}`), KindSection, 2, fmtLaTeX},
	{regexp.MustCompile(`^\\subsubsection\*?\{(.+)\}`), KindSubsubsection, 4, fmtLaTeX},
	{regexp.MustCompile(`^\\subsection\*?\{(.+)\}`), KindSubsection, 3, fmtLaTeX},

	{regexp.MustCompile(`^#\s+(.+)$`), KindChapter, 1, fmtMarkdown},
	{regexp.MustCompile(`^##\s+(.+)$`), KindSection, 2, fmtMarkdown},
	{regexp.MustCompile(`^###\s+(.+)$`), KindSubsection, 3, fmtMarkdown},
	{regexp.MustCompile(`^####\s+(.+)$`), KindSubsubsection, 4, fmtMarkdown},

	{regexp.MustCompile(`^Chapter\s+([0-9]+)[.:]?\s*(.*)$`), KindChapter, 1, nil},
	{regexp.MustCompile(`^Section\s+([0-9]+)[.:]?\s*(.*)$`), KindSection, 2, nil},

	{regexp.MustCompile(`^([0-9０-９]+)\.([0-9０-９]+)\.([0-9０-９]+)\s+(.+)$`), KindSubsubsection, 4, nil},
	{regexp.MustCompile(`^([0-9０-９]+)\.([0-9０-９]+)\s+(.+)$`), KindSubsection, 3, nil},
	{regexp.MustCompile(`^([0-9０-９]+)\.\s+(.+)$`), KindSection, 2, nil},

	{regexp.MustCompile(`^(?:Theorem|定理)\s*([0-9]+(?:\.[0-9]+)*)[.:：]?\s*(.*)$`), KindTheorem, 3, nil},
	{regexp.MustCompile(`^(?:Lemma|補題)\s*([0-9]+(?:\.[0-9]+)*)[.:：]?\s*(.*)$`), KindLemma, 3, nil},
	{regexp.MustCompile(`^(?:Example|例)\s*([0-9]+(?:\.[0-9]+)*)[.:：]?\s*(.*)$`), KindExample, 3, nil},
	{regexp.MustCompile(`^(?:Proof|証明)[.:．：]\s*(.*)$`), KindProof, 3, nil},
}
