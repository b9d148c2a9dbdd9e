package validator

import (
	"github.com/intakehq/briefing-backend/internal/config"
)

// Validator checks incoming request shapes against the workflow limits.
type Validator struct {
	cfg config.WorkflowConfig
}

func NewValidator(cfg config.WorkflowConfig) *Validator {
	return &Validator{cfg: cfg}
}
