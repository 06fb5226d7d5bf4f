package report

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// Analysis holds the findings a run produced. Empty fields are left out of
// the rendered report.
type Analysis struct {
	Classification string
	Entities       []string
	Summary        string
	Sentiment      string
}

// Markdown renders the analysis as a markdown report.
func Markdown(a Analysis) string {
	var sb strings.Builder
	sb.WriteString("## Text Analysis Report\n")

	if a.Classification != "" {
		sb.WriteString("\n### Classification\n")
		sb.WriteString(a.Classification)
		sb.WriteString("\n")
	}

	sb.WriteString("\n### Extracted Entities\n")
	if len(a.Entities) == 0 {
		sb.WriteString("No entities found.\n")
	} else {
		for _, entity := range a.Entities {
			sb.WriteString("- ")
			sb.WriteString(entity)
			sb.WriteString("\n")
		}
	}

	if a.Summary != "" {
		sb.WriteString("\n### Summary\n")
		sb.WriteString(a.Summary)
		sb.WriteString("\n")
	}

	if a.Sentiment != "" {
		sb.WriteString("\n### Sentiment\n")
		sb.WriteString(a.Sentiment)
		sb.WriteString("\n")
	}

	return sb.String()
}

// HTML renders the analysis as sanitized HTML, suitable for embedding in a
// page that displays untrusted model output.
func HTML(a Analysis) string {
	md := Markdown(a)

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	rendered := markdown.Render(doc, renderer)

	return string(bluemonday.UGCPolicy().SanitizeBytes(rendered))
}
