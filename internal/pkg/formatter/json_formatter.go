package formatter

import (
	"encoding/json"

	"github.com/intakehq/briefing-backend/internal/entity"
)

const (
	jsonContentType   = "application/json; charset=utf-8"
	jsonFileExtension = ".json"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (jf *JSONFormatter) Format(bundle *entity.DocumentBundle) ([]byte, error) {
	return json.MarshalIndent(bundle, "", "  ")
}

func (jf *JSONFormatter) ContentType() string {
	return jsonContentType
}

func (jf *JSONFormatter) FileExtension() string {
	return jsonFileExtension
}
