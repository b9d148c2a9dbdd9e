package formatter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/intakehq/briefing-backend/internal/entity"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(bundle *entity.DocumentBundle) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", baseTitle)

	for _, stack := range bundle.Stacks {
		fmt.Fprintf(&buf, "## %s\n\n", stack.Title)
		if stack.Degraded {
			buf.WriteString("> Documento gerado em modo degradado.\n\n")
		}
		buf.WriteString(strings.TrimSpace(stack.Content))
		buf.WriteString("\n\n")
		if len(stack.Technologies) > 0 {
			fmt.Fprintf(&buf, "**Tecnologias:** %s\n\n", strings.Join(stack.Technologies, ", "))
		}
		if stack.EstimatedEffort != "" {
			fmt.Fprintf(&buf, "**Esforço estimado:** %s\n\n", stack.EstimatedEffort)
		}
	}

	if bundle.TotalEstimatedEffort != "" {
		fmt.Fprintf(&buf, "**Esforço total estimado:** %s\n\n", bundle.TotalEstimatedEffort)
	}
	if bundle.RecommendedTimeline != "" {
		fmt.Fprintf(&buf, "**Cronograma recomendado:** %s\n", bundle.RecommendedTimeline)
	}

	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
