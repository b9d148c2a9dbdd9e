package validator

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/intakehq/briefing-backend/internal/entity"
)

// ValidateAnalyze validates AnalyzeRequest
func (v *Validator) ValidateAnalyze(req *entity.AnalyzeRequest) error {
	description := strings.TrimSpace(req.ProjectDescription)
	if description == "" {
		return fmt.Errorf("%w: project_description", entity.ErrMissingField)
	}

	length := utf8.RuneCountInString(description)
	if length < v.cfg.DescriptionMinLength || length > v.cfg.DescriptionMaxLength {
		return fmt.Errorf("%w: project_description must be between %d and %d characters, got %d",
			entity.ErrDescriptionLength, v.cfg.DescriptionMinLength, v.cfg.DescriptionMaxLength, length)
	}

	return nil
}

// ValidateRespond validates RespondRequest
func (v *Validator) ValidateRespond(req *entity.RespondRequest) error {
	if req.SessionID == "" {
		return fmt.Errorf("%w: session_id", entity.ErrMissingField)
	}
	if len(req.Answers) == 0 {
		return fmt.Errorf("%w: answers", entity.ErrMissingField)
	}

	for i, answer := range req.Answers {
		if answer.QuestionCode == "" {
			return fmt.Errorf("%w: answers[%d].question_code", entity.ErrMissingField, i)
		}
		hasText := answer.CustomText != nil && strings.TrimSpace(*answer.CustomText) != ""
		if len(answer.SelectedChoices) == 0 && !hasText {
			return fmt.Errorf("%w: answers[%d] must carry selected_choices or custom_text", entity.ErrInvalidParameter, i)
		}
	}

	return nil
}

// ValidateSummary validates SummaryRequest
func (v *Validator) ValidateSummary(req *entity.SummaryRequest) error {
	if req.SessionID == "" {
		return fmt.Errorf("%w: session_id", entity.ErrMissingField)
	}
	return nil
}

// ValidateConfirm validates ConfirmRequest
func (v *Validator) ValidateConfirm(req *entity.ConfirmRequest) error {
	if req.SessionID == "" {
		return fmt.Errorf("%w: session_id", entity.ErrMissingField)
	}
	// Rejections without feedback leave nothing to refine on.
	if !req.Confirmed && strings.TrimSpace(req.Feedback) == "" {
		return fmt.Errorf("%w: feedback is required when rejecting a summary", entity.ErrMissingField)
	}
	return nil
}

// ValidateDocumentRequest validates DocumentRequest
func (v *Validator) ValidateDocumentRequest(req *entity.DocumentRequest) error {
	if req.SessionID == "" {
		return fmt.Errorf("%w: session_id", entity.ErrMissingField)
	}
	if req.CallbackURL != "" {
		parsed, err := url.Parse(req.CallbackURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%w: callback_url must be an absolute URL", entity.ErrInvalidParameter)
		}
	}
	return nil
}
