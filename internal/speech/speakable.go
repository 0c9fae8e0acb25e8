package speech

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mathcast/mathcast/internal/slides"
	"github.com/mathcast/mathcast/internal/structure"
)

// Script assembles the narration text for a deck: the document title,
// then per unit a spoken heading, the body prose with inline math
// replaced by its spoken form, and one "Formula:" line per display
// expression. Units are separated by blank lines, which later drive
// segmentation.
func Script(title string, units []slides.Unit) string {
	var parts []string
	if title != "" {
		parts = append(parts, "Title: "+title+".", "")
	}
	for i, u := range units {
		// The implicit whole-document unit has no heading of its
		// own; announcing one would just repeat the title.
		if !(len(units) == 1 && u.Kind == "") {
			parts = append(parts, headingPhrase(u, i+1))
		}
		if u.Body != "" {
			parts = append(parts, speakableBody(u.Body))
		}
		for _, m := range u.Math {
			spoken := MathToSpeech(m)
			if spoken != "" {
				parts = append(parts, "Formula: "+spoken+".")
			}
		}
		parts = append(parts, "")
	}
	return strings.TrimRight(strings.Join(parts, "\n"), "\n")
}

func headingPhrase(u slides.Unit, position int) string {
	label := kindLabel(u.Kind)
	num := u.Number
	if num == "" {
		switch u.Kind {
		case structure.KindTheorem, structure.KindLemma, structure.KindProof, structure.KindExample:
			if u.Title == "" {
				return label + "."
			}
			return fmt.Sprintf("%s: %s.", label, u.Title)
		}
		num = strconv.Itoa(position)
	}
	if u.Title == "" {
		return fmt.Sprintf("%s %s.", label, num)
	}
	return fmt.Sprintf("%s %s: %s.", label, num, u.Title)
}

func kindLabel(k structure.Kind) string {
	switch k {
	case structure.KindChapter:
		return "Chapter"
	case structure.KindSubsection, structure.KindSubsubsection:
		return "Subsection"
	case structure.KindTheorem:
		return "Theorem"
	case structure.KindLemma:
		return "Lemma"
	case structure.KindProof:
		return "Proof"
	case structure.KindExample:
		return "Example"
	default:
		return "Section"
	}
}

var inlineMathRe = regexp.MustCompile(`\$([^$\n]+?)\$`)

// speakableBody swaps inline math spans for their spoken form.
func speakableBody(body string) string {
	return inlineMathRe.ReplaceAllStringFunc(body, func(m string) string {
		return MathToSpeech(strings.Trim(m, "$"))
	})
}

var (
	mathEnvRe = regexp.MustCompile(`\\(?:begin|end)\{[a-zA-Z*]+\}`)
	texWordRe = regexp.MustCompile(`\\([a-zA-Z]+)`)
)

// mathReplacements run in order, each replacing every occurrence.
// Braced operator forms must precede the bare brace rules, and longer
// commands their prefixes.
var mathReplacements = []struct{ old, new string }{
	{`\frac{`, " the fraction "},
	{`}{`, " over "},
	{`\lim_{`, " the limit as "},
	{`\to`, " approaches "},
	{`\left`, " "},
	{`\right`, " "},
	{`\infty`, " infinity "},
	{`\sum`, " the sum of "},
	{`\prod`, " the product of "},
	{`\int`, " the integral of "},
	{`\sqrt{`, " the square root of "},
	{`\cdot`, " times "},
	{`\times`, " times "},
	{`\pm`, " plus or minus "},
	{`\leq`, " less than or equal "},
	{`\geq`, " greater than or equal "},
	{`\neq`, " not equal "},
	{`\approx`, " approximately "},
	{`^{`, " to the power "},
	{`_{`, " sub "},
	{`^`, " to the power "},
	{`_`, " sub "},
	{`}`, " "},
	{`{`, " "},
	{`=`, " equals "},
	{`+`, " plus "},
	{`-`, " minus "},
	{`<`, " less than "},
	{`>`, " greater than "},
	{`/`, " over "},
}

// MathToSpeech converts a TeX expression into narratable prose.
// Unrecognized commands read as their bare names, so \epsilon becomes
// "epsilon".
func MathToSpeech(expr string) string {
	s := mathEnvRe.ReplaceAllString(expr, " ")
	s = strings.ReplaceAll(s, `\\`, ", ")
	s = strings.ReplaceAll(s, "&", " ")
	for _, r := range mathReplacements {
		s = strings.ReplaceAll(s, r.old, r.new)
	}
	s = texWordRe.ReplaceAllString(s, " ${1} ")
	s = strings.ReplaceAll(s, `\`, " ")
	return strings.Join(strings.Fields(s), " ")
}
