package slides

import (
	"strings"
)

// Template names accepted by the deck generator.
const (
	TemplateDefault  = "default"
	TemplateAcademic = "academic"
	TemplateModern   = "modern"
)

// Display caps per frame. Units keep their full body for narration;
// only the rendered frame is trimmed.
const (
	maxBodyLines = 12
	maxMathExprs = 4
)

type beamerTheme struct {
	theme      string
	colorTheme string
	packages   []string
}

var basePackages = []string{
	"amsmath", "amssymb", "amsfonts", "mathtools", "graphicx", "xcolor",
}

var themes = map[string]beamerTheme{
	TemplateDefault:  {theme: "Madrid", colorTheme: "default"},
	TemplateAcademic: {theme: "Madrid", colorTheme: "default"},
	TemplateModern:   {theme: "metropolis", packages: []string{"tcolorbox"}},
}

// ThemeFor resolves a template name, falling back to the default theme
// for unknown names.
func ThemeFor(template string) string {
	th, ok := themes[template]
	if !ok {
		th = themes[TemplateDefault]
	}
	return th.theme
}

// BeamerSource renders the deck source for units: exactly one frame
// per unit, so the page count of the compiled deck always matches the
// marker count downstream.
func BeamerSource(title, author, template string, units []Unit) string {
	th, ok := themes[template]
	if !ok {
		th = themes[TemplateDefault]
	}

	var b strings.Builder
	b.WriteString("\\documentclass[aspectratio=169]{beamer}\n")
	for _, p := range basePackages {
		b.WriteString("\\usepackage{" + p + "}\n")
	}
	for _, p := range th.packages {
		b.WriteString("\\usepackage{" + p + "}\n")
	}
	b.WriteString("\\usetheme{" + th.theme + "}\n")
	if th.colorTheme != "" {
		b.WriteString("\\usecolortheme{" + th.colorTheme + "}\n")
	}
	b.WriteString("\\setbeamertemplate{navigation symbols}{}\n")
	b.WriteString("\\title{" + escapeLine(title) + "}\n")
	b.WriteString("\\author{" + escapeLine(author) + "}\n")
	b.WriteString("\\date{}\n")
	b.WriteString("\\begin{document}\n")

	for _, u := range units {
		b.WriteString("\n\\begin{frame}\n")
		b.WriteString("\\frametitle{" + escapeLine(u.Heading()) + "}\n")

		body := strings.Split(u.Body, "\n")
		shown := 0
		for _, line := range body {
			if shown >= maxBodyLines {
				b.WriteString("\\ldots\n")
				break
			}
			if strings.TrimSpace(line) == "" {
				b.WriteString("\\medskip\n")
				continue
			}
			b.WriteString(escapeLine(line) + "\n\n")
			shown++
		}

		for i, m := range u.Math {
			if i >= maxMathExprs {
				break
			}
			if strings.HasPrefix(m, `\begin{`) {
				b.WriteString(m + "\n")
			} else {
				b.WriteString("\\[ " + m + " \\]\n")
			}
		}
		b.WriteString("\\end{frame}\n")
	}

	b.WriteString("\n\\end{document}\n")
	return b.String()
}

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// escapeLine escapes a text line for LaTeX, letting inline math spans
// through verbatim so $x$ in prose still typesets as math.
func escapeLine(line string) string {
	return mapOutsideInlineMath(line, latexEscaper.Replace)
}
