package formatter

import (
	"fmt"
	"strings"

	"github.com/intakehq/briefing-backend/internal/entity"
)

const baseTitle = "Documentação Técnica do Projeto"

type Formatter interface {
	Format(bundle *entity.DocumentBundle) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatJSON:
		return NewJSONFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// renderText flattens a bundle into plain text for the binary formats.
func renderText(bundle *entity.DocumentBundle) string {
	var b strings.Builder
	for i, stack := range bundle.Stacks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(stack.Title + "\n\n")
		b.WriteString(stack.Content)
		if len(stack.Technologies) > 0 {
			b.WriteString("\n\nTecnologias: " + strings.Join(stack.Technologies, ", "))
		}
		if stack.EstimatedEffort != "" {
			b.WriteString("\nEsforço estimado: " + stack.EstimatedEffort)
		}
	}
	if bundle.TotalEstimatedEffort != "" {
		b.WriteString("\n\nEsforço total estimado: " + bundle.TotalEstimatedEffort)
	}
	if bundle.RecommendedTimeline != "" {
		b.WriteString("\nCronograma recomendado: " + bundle.RecommendedTimeline)
	}
	return b.String()
}
