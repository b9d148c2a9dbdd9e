package entity

import (
	"fmt"
	"time"
)

type SessionStage string

// Session stage represents the current phase of the intake workflow.
// Progression is strictly forward except the explicit rejection loop-back
// from a rejected summary to QUESTIONING.
const (
	StageCreated         SessionStage = "created"           // Session created, initial questions not yet issued
	StageQuestioning     SessionStage = "questioning"       // Waiting for answers to issued questions
	StageReadyForSummary SessionStage = "ready_for_summary" // Enough answers collected, summary can be generated
	StageSummarized      SessionStage = "summarized"        // Summary generated, waiting for confirmation
	StageConfirmed       SessionStage = "confirmed"         // Summary confirmed, documents can be generated
	StageDocumented      SessionStage = "documented"        // Final documentation produced
)

var stageRank = map[SessionStage]int{
	StageCreated:         0,
	StageQuestioning:     1,
	StageReadyForSummary: 2,
	StageSummarized:      3,
	StageConfirmed:       4,
	StageDocumented:      5,
}

func (s SessionStage) Validate() error {
	if _, ok := stageRank[s]; !ok {
		return fmt.Errorf("unknown session stage: %s", s)
	}
	return nil
}

// Rank returns the position of the stage in the forward progression.
func (s SessionStage) Rank() int {
	return stageRank[s]
}

type QuestionCategory string

const (
	CategoryBusiness    QuestionCategory = "business"
	CategoryTechnical   QuestionCategory = "technical"
	CategoryOperational QuestionCategory = "operational"
	CategoryRefinement  QuestionCategory = "refinement"
)

// CoreCategories are the categories that must be represented among answered
// questions before a session is considered ready for summary.
var CoreCategories = map[QuestionCategory]bool{
	CategoryBusiness:    true,
	CategoryTechnical:   true,
	CategoryOperational: true,
}

type QuestionChoice struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Description string `json:"description,omitempty"`
}

type Question struct {
	Code          string           `json:"code"`
	Text          string           `json:"text"`
	WhyItMatters  string           `json:"why_it_matters,omitempty"`
	Choices       []QuestionChoice `json:"choices"`
	Required      bool             `json:"required"`
	AllowMultiple bool             `json:"allow_multiple"`
	Category      QuestionCategory `json:"category"`
}

type BatchReason string

const (
	BatchReasonInitial    BatchReason = "initial"
	BatchReasonFollowUp   BatchReason = "follow_up"
	BatchReasonRefinement BatchReason = "refinement"
)

// QuestionBatch is one group of questions issued to the client.
// Batches are append-only; codes never repeat across batches of a session.
type QuestionBatch struct {
	Number    int         `json:"number"`
	Reason    BatchReason `json:"reason"`
	Questions []Question  `json:"questions"`
	IssuedAt  time.Time   `json:"issued_at"`
}

type Answer struct {
	QuestionCode    string    `json:"question_code"`
	SelectedChoices []string  `json:"selected_choices"`
	CustomText      *string   `json:"custom_text,omitempty"`
	AnsweredAt      time.Time `json:"answered_at"`
}

// Classification holds the structured tags derived from the project
// description once at analysis time.
type Classification struct {
	Type              string   `json:"type"`
	Complexity        string   `json:"complexity"`
	Domain            string   `json:"domain"`
	Confidence        float64  `json:"confidence"`
	KeyTechnologies   []string `json:"key_technologies,omitempty"`
	EstimatedDuration string   `json:"estimated_duration,omitempty"`
}

type Summary struct {
	Text            string    `json:"text"`
	KeyPoints       []string  `json:"key_points"`
	Assumptions     []string  `json:"assumptions"`
	ConfidenceScore float64   `json:"confidence_score"`
	Language        string    `json:"language,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
}

type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "pending"
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
	ConfirmationRejected  ConfirmationStatus = "rejected"
)

type Confirmation struct {
	Status    ConfirmationStatus `json:"status"`
	Feedback  string             `json:"feedback,omitempty"`
	DecidedAt time.Time          `json:"decided_at"`
}

type StackType string

const (
	StackFrontend StackType = "frontend"
	StackBackend  StackType = "backend"
	StackDatabase StackType = "database"
	StackDevOps   StackType = "devops"
)

// AllStackTypes lists the four deliverable categories in presentation order.
var AllStackTypes = []StackType{StackFrontend, StackBackend, StackDatabase, StackDevOps}

type StackDocument struct {
	StackType       StackType `json:"stack_type"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	Technologies    []string  `json:"technologies"`
	EstimatedEffort string    `json:"estimated_effort,omitempty"`
	// Degraded marks a templated fallback produced after the generation
	// fallback chain was exhausted; callers can detect low-quality output.
	Degraded bool `json:"degraded,omitempty"`
}

type DocumentBundle struct {
	Stacks               []StackDocument `json:"stacks"`
	GeneratedAt          time.Time       `json:"generated_at"`
	TotalEstimatedEffort string          `json:"total_estimated_effort,omitempty"`
	RecommendedTimeline  string          `json:"recommended_timeline,omitempty"`
}

// Session is the aggregate root of the intake workflow.
type Session struct {
	ID                   string            `json:"session_id"`
	Stage                SessionStage      `json:"stage"`
	ProjectDescription   string            `json:"project_description"`
	Classification       *Classification   `json:"classification,omitempty"`
	QuestionBatches      []QuestionBatch   `json:"question_batches"`
	Answers              map[string]Answer `json:"answers"`
	CompletionPercentage float64           `json:"completion_percentage"`
	Summary              *Summary          `json:"summary,omitempty"`
	Confirmation         *Confirmation     `json:"confirmation,omitempty"`
	Documents            *DocumentBundle   `json:"documents,omitempty"`
	RefinementCycle      int               `json:"refinement_cycle"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// IssuedQuestions flattens all question batches in issue order.
func (s *Session) IssuedQuestions() []Question {
	var questions []Question
	for _, batch := range s.QuestionBatches {
		questions = append(questions, batch.Questions...)
	}
	return questions
}

// IssuedCodes returns the set of question codes already sent to the client.
func (s *Session) IssuedCodes() map[string]bool {
	codes := make(map[string]bool)
	for _, batch := range s.QuestionBatches {
		for _, q := range batch.Questions {
			codes[q.Code] = true
		}
	}
	return codes
}

// AnsweredQuestions pairs issued question texts with the client's answers
// for use in generation prompts.
func (s *Session) AnsweredQuestions() []AnsweredQuestion {
	answered := make([]AnsweredQuestion, 0, len(s.Answers))
	for _, q := range s.IssuedQuestions() {
		answer, ok := s.Answers[q.Code]
		if !ok {
			continue
		}
		answered = append(answered, AnsweredQuestion{
			Code:            q.Code,
			Question:        q.Text,
			SelectedChoices: choiceTexts(q, answer.SelectedChoices),
			CustomText:      answer.CustomText,
		})
	}
	return answered
}

func choiceTexts(q Question, selected []string) []string {
	byID := make(map[string]string, len(q.Choices))
	for _, c := range q.Choices {
		byID[c.ID] = c.Text
	}
	texts := make([]string, 0, len(selected))
	for _, id := range selected {
		if text, ok := byID[id]; ok {
			texts = append(texts, text)
		} else {
			texts = append(texts, id)
		}
	}
	return texts
}

// Clone returns a deep copy of the session so that stored state cannot be
// mutated through shared slices or maps.
func (s *Session) Clone() *Session {
	clone := *s

	clone.QuestionBatches = make([]QuestionBatch, len(s.QuestionBatches))
	for i, batch := range s.QuestionBatches {
		b := batch
		b.Questions = append([]Question(nil), batch.Questions...)
		clone.QuestionBatches[i] = b
	}

	clone.Answers = make(map[string]Answer, len(s.Answers))
	for code, answer := range s.Answers {
		a := answer
		a.SelectedChoices = append([]string(nil), answer.SelectedChoices...)
		if answer.CustomText != nil {
			text := *answer.CustomText
			a.CustomText = &text
		}
		clone.Answers[code] = a
	}

	if s.Classification != nil {
		c := *s.Classification
		c.KeyTechnologies = append([]string(nil), s.Classification.KeyTechnologies...)
		clone.Classification = &c
	}

	if s.Summary != nil {
		sum := *s.Summary
		sum.KeyPoints = append([]string(nil), s.Summary.KeyPoints...)
		sum.Assumptions = append([]string(nil), s.Summary.Assumptions...)
		clone.Summary = &sum
	}

	if s.Confirmation != nil {
		conf := *s.Confirmation
		clone.Confirmation = &conf
	}

	if s.Documents != nil {
		docs := *s.Documents
		docs.Stacks = make([]StackDocument, len(s.Documents.Stacks))
		for i, stack := range s.Documents.Stacks {
			st := stack
			st.Technologies = append([]string(nil), stack.Technologies...)
			docs.Stacks[i] = st
		}
		clone.Documents = &docs
	}

	return &clone
}

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// DocumentJob tracks background document generation started via the async
// endpoint. The initiating request returns immediately; the job keeps
// running and its status is served from the job store.
type DocumentJob struct {
	SessionID   string          `json:"session_id"`
	Status      JobStatus       `json:"status"`
	Error       string          `json:"error,omitempty"`
	CallbackURL string          `json:"callback_url,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
	Result      *DocumentBundle `json:"result,omitempty"`
}
