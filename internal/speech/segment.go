package speech

import (
	"strings"
	"unicode/utf8"
)

const defaultSegmentLimit = 3000

// Segment splits a narration script into provider-sized pieces. It
// packs whole paragraphs up to the byte limit, splits oversized
// paragraphs at sentence boundaries and hard-cuts only a sentence that
// alone exceeds the limit.
func Segment(text string, limit int) []string {
	if limit <= 0 {
		limit = defaultSegmentLimit
	}

	var out []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			out = append(out, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) > limit {
			flush()
			out = append(out, splitOversize(para, limit)...)
			continue
		}
		if current.Len() > 0 && current.Len()+len(para)+2 > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	return out
}

func splitOversize(para string, limit int) []string {
	var out []string
	var current strings.Builder
	for _, sent := range splitSentences(para) {
		if len(sent) > limit {
			if current.Len() > 0 {
				out = append(out, current.String())
				current.Reset()
			}
			out = append(out, hardCut(sent, limit)...)
			continue
		}
		if current.Len() > 0 && current.Len()+len(sent)+1 > limit {
			out = append(out, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
	}
	if current.Len() > 0 {
		out = append(out, current.String())
	}
	return out
}

// splitSentences does basic sentence splitting. Latin terminators need
// a following space or line end; CJK terminators end a sentence on
// their own.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		switch r {
		case '.', '!', '?':
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				flush()
			}
		case '。', '！', '？':
			flush()
		}
	}
	flush()
	return sentences
}

// hardCut slices s into limit-sized pieces on rune boundaries.
func hardCut(s string, limit int) []string {
	var out []string
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = limit
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
