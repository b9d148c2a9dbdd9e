package formatter

import (
	"bytes"

	"github.com/unidoc/unioffice/document"

	"github.com/intakehq/briefing-backend/internal/entity"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (mf *DOCXFormatter) Format(bundle *entity.DocumentBundle) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	titlePar := doc.AddParagraph()
	titlePar.SetStyle("Heading1")
	titleRun := titlePar.AddRun()
	titleRun.AddText(baseTitle)

	for _, stack := range bundle.Stacks {
		doc.AddParagraph()

		headingPar := doc.AddParagraph()
		headingPar.SetStyle("Heading2")
		headingRun := headingPar.AddRun()
		headingRun.AddText(stack.Title)

		bodyPar := doc.AddParagraph()
		bodyRun := bodyPar.AddRun()
		bodyRun.AddText(stack.Content)
	}

	if bundle.TotalEstimatedEffort != "" {
		doc.AddParagraph()
		effortPar := doc.AddParagraph()
		effortRun := effortPar.AddRun()
		effortRun.AddText("Esforço total estimado: " + bundle.TotalEstimatedEffort)
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (mf *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
