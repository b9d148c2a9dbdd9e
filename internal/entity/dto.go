package entity

import "time"

type AnalyzeRequest struct {
	ProjectDescription string            `json:"project_description"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

type AnalyzeResponse struct {
	SessionID            string          `json:"session_id"`
	Stage                SessionStage    `json:"stage"`
	Classification       *Classification `json:"classification,omitempty"`
	Questions            []Question      `json:"questions"`
	BatchNumber          int             `json:"batch_number"`
	CompletionPercentage float64         `json:"completion_percentage"`
}

type AnswerInput struct {
	QuestionCode    string   `json:"question_code"`
	SelectedChoices []string `json:"selected_choices,omitempty"`
	CustomText      *string  `json:"custom_text,omitempty"`
}

type RespondRequest struct {
	SessionID string        `json:"session_id"`
	Answers   []AnswerInput `json:"answers"`
	// RequestNextBatch forces another follow-up batch even when the
	// completeness policy already marks the session ready.
	RequestNextBatch bool `json:"request_next_batch,omitempty"`
}

type ResponseType string

const (
	ResponseMoreQuestions   ResponseType = "more_questions"
	ResponseReadyForSummary ResponseType = "ready_for_summary"
)

type RespondResponse struct {
	SessionID            string       `json:"session_id"`
	Stage                SessionStage `json:"stage"`
	ResponseType         ResponseType `json:"response_type"`
	Questions            []Question   `json:"questions,omitempty"`
	BatchNumber          int          `json:"batch_number,omitempty"`
	CompletionPercentage float64      `json:"completion_percentage"`
	// UnknownCodes lists answer codes that were never issued to this
	// session. Such answers are skipped, not rejected.
	UnknownCodes []string `json:"unknown_codes,omitempty"`
}

type SummaryRequest struct {
	SessionID string `json:"session_id"`
	// IncludeAssumptions defaults to true when absent from the request.
	IncludeAssumptions *bool  `json:"include_assumptions,omitempty"`
	Language           string `json:"language,omitempty"`
}

type SummaryResponse struct {
	SessionID string       `json:"session_id"`
	Stage     SessionStage `json:"stage"`
	Summary   Summary      `json:"summary"`
}

type ConfirmRequest struct {
	SessionID string `json:"session_id"`
	Confirmed bool   `json:"confirmed"`
	Feedback  string `json:"feedback,omitempty"`
}

// Next actions reported after a confirmation decision.
const (
	NextStepDocumentGeneration = "document_generation"
	NextStepAnswerRefinements  = "answer_refinement_questions"
)

type ConfirmResponse struct {
	SessionID          string             `json:"session_id"`
	Stage              SessionStage       `json:"stage"`
	ConfirmationStatus ConfirmationStatus `json:"confirmation_status"`
	NextStep           string             `json:"next_step"`
	// Questions holds the refinement batch issued when the summary is
	// rejected with feedback.
	Questions   []Question `json:"questions,omitempty"`
	BatchNumber int        `json:"batch_number,omitempty"`
}

type DocumentRequest struct {
	SessionID                    string `json:"session_id"`
	IncludeImplementationDetails bool   `json:"include_implementation_details,omitempty"`
	ForceRefresh                 bool   `json:"force_refresh,omitempty"`
	CallbackURL                  string `json:"callback_url,omitempty"`
}

type DocumentResponse struct {
	SessionID string         `json:"session_id"`
	Stage     SessionStage   `json:"stage"`
	FromCache bool           `json:"from_cache"`
	Documents DocumentBundle `json:"documents"`
}

type DocumentJobResponse struct {
	SessionID  string          `json:"session_id"`
	Status     JobStatus       `json:"status"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Documents  *DocumentBundle `json:"documents,omitempty"`
}

type SessionResponse struct {
	SessionID            string          `json:"session_id"`
	Stage                SessionStage    `json:"stage"`
	Classification       *Classification `json:"classification,omitempty"`
	IssuedQuestions      int             `json:"issued_questions"`
	AnsweredQuestions    int             `json:"answered_questions"`
	CompletionPercentage float64         `json:"completion_percentage"`
	RefinementCycle      int             `json:"refinement_cycle"`
	HasSummary           bool            `json:"has_summary"`
	HasDocuments         bool            `json:"has_documents"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type CacheStatsResponse struct {
	Backend  string `json:"backend"`
	Hits     int64  `json:"hits"`
	Misses   int64  `json:"misses"`
	Sets     int64  `json:"sets"`
	Degraded bool   `json:"degraded"`
}

type ResultFormat string

const (
	FormatMarkdown ResultFormat = "markdown"
	FormatJSON     ResultFormat = "json"
	FormatPDF      ResultFormat = "pdf"
	FormatDOCX     ResultFormat = "docx"
)

func (f ResultFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatJSON, FormatPDF, FormatDOCX:
		return true
	}
	return false
}

type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}
