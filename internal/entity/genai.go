package entity

// AnsweredQuestion is a question paired with the client's answer, resolved
// to choice texts so the generation service receives human-readable input.
type AnsweredQuestion struct {
	Code            string   `json:"code"`
	Question        string   `json:"question"`
	SelectedChoices []string `json:"selected_choices"`
	CustomText      *string  `json:"custom_text,omitempty"`
}

type GenAIClassifyRequest struct {
	ProjectDescription string `json:"project_description"`
}

type GenAIClassifyResponse struct {
	Type              string   `json:"type"`
	Complexity        string   `json:"complexity"`
	Domain            string   `json:"domain"`
	Confidence        float64  `json:"confidence"`
	KeyTechnologies   []string `json:"key_technologies,omitempty"`
	EstimatedDuration string   `json:"estimated_duration,omitempty"`
}

type GenAIQuestionChoice struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Description string `json:"description,omitempty"`
}

type GenAIQuestion struct {
	Text          string                `json:"text"`
	WhyItMatters  string                `json:"why_it_matters,omitempty"`
	Choices       []GenAIQuestionChoice `json:"choices"`
	Required      bool                  `json:"required"`
	AllowMultiple bool                  `json:"allow_multiple"`
	Category      string                `json:"category"`
}

type GenAIQuestionBatchRequest struct {
	ProjectDescription string             `json:"project_description"`
	Classification     *Classification    `json:"classification,omitempty"`
	AnsweredQuestions  []AnsweredQuestion `json:"answered_questions,omitempty"`
	BatchSize          int                `json:"batch_size"`
	// IssuedCodes tells the model which question codes the client already
	// received so follow-up batches stay novel.
	IssuedCodes []string `json:"issued_codes,omitempty"`
}

type GenAIQuestionBatchResponse struct {
	Questions []GenAIQuestion `json:"questions"`
}

type GenAIRefinementRequest struct {
	ProjectDescription string             `json:"project_description"`
	Summary            string             `json:"summary"`
	Feedback           string             `json:"feedback"`
	AnsweredQuestions  []AnsweredQuestion `json:"answered_questions"`
	MaxQuestions       int                `json:"max_questions"`
}

type GenAIRefinementResponse struct {
	Questions []GenAIQuestion `json:"questions"`
}

type GenAISummaryRequest struct {
	ProjectDescription string             `json:"project_description"`
	Classification     *Classification    `json:"classification,omitempty"`
	AnsweredQuestions  []AnsweredQuestion `json:"answered_questions"`
	IncludeAssumptions bool               `json:"include_assumptions"`
	Language           string             `json:"language,omitempty"`
	// RejectionFeedback carries the client's objection when the summary is
	// regenerated after a rejection.
	RejectionFeedback string `json:"rejection_feedback,omitempty"`
}

type GenAISummaryResponse struct {
	Text            string   `json:"text"`
	KeyPoints       []string `json:"key_points"`
	Assumptions     []string `json:"assumptions"`
	ConfidenceScore float64  `json:"confidence_score"`
	Language        string   `json:"language,omitempty"`
}

type GenAIStackDocumentRequest struct {
	StackType          string             `json:"stack_type"`
	ProjectDescription string             `json:"project_description"`
	Classification     *Classification    `json:"classification,omitempty"`
	Summary            string             `json:"summary"`
	AnsweredQuestions  []AnsweredQuestion `json:"answered_questions"`
	IncludeDetails     bool               `json:"include_implementation_details"`
	// Expanded asks the model for a longer document after a first attempt
	// came back below the minimum content length.
	Expanded bool `json:"expanded,omitempty"`
}

type GenAIStackDocumentResponse struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Technologies    []string `json:"technologies"`
	EstimatedEffort string   `json:"estimated_effort,omitempty"`
}
