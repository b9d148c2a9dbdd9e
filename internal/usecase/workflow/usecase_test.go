package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intakehq/briefing-backend/internal/cache"
	"github.com/intakehq/briefing-backend/internal/config"
	"github.com/intakehq/briefing-backend/internal/entity"
	"github.com/intakehq/briefing-backend/internal/integration/genai"
	"github.com/intakehq/briefing-backend/internal/pkg/completeness"
	"github.com/intakehq/briefing-backend/internal/pkg/validator"
	"github.com/intakehq/briefing-backend/internal/repository"
)

const testDescription = "Plataforma web para gestão de pedidos de uma rede de restaurantes, " +
	"com painel administrativo, cardápio digital e integração com meios de pagamento."

// stubGenAI wraps the deterministic mock and lets individual tests override
// or instrument single operations.
type stubGenAI struct {
	*genai.MockConnector

	mu         sync.Mutex
	batchCalls int
	stackCalls map[string]int

	batchFn func(req *entity.GenAIQuestionBatchRequest) (*entity.GenAIQuestionBatchResponse, error)
	stackFn func(req *entity.GenAIStackDocumentRequest) (*entity.GenAIStackDocumentResponse, error)
}

func newStubGenAI() *stubGenAI {
	return &stubGenAI{
		MockConnector: genai.NewMockConnector(zap.NewNop()),
		stackCalls:    make(map[string]int),
	}
}

func (s *stubGenAI) GenerateQuestionBatch(ctx context.Context, req *entity.GenAIQuestionBatchRequest) (
	*entity.GenAIQuestionBatchResponse, error,
) {
	s.mu.Lock()
	s.batchCalls++
	s.mu.Unlock()

	if s.batchFn != nil {
		return s.batchFn(req)
	}
	return s.MockConnector.GenerateQuestionBatch(ctx, req)
}

func (s *stubGenAI) GenerateStackDocument(ctx context.Context, req *entity.GenAIStackDocumentRequest) (
	*entity.GenAIStackDocumentResponse, error,
) {
	s.mu.Lock()
	s.stackCalls[req.StackType]++
	s.mu.Unlock()

	if s.stackFn != nil {
		return s.stackFn(req)
	}
	return s.MockConnector.GenerateStackDocument(ctx, req)
}

func (s *stubGenAI) batchCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batchCalls
}

func (s *stubGenAI) stackCallCount(stack string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stackCalls[stack]
}

// stubCallbacks records notification calls for assertions.
type stubCallbacks struct {
	mu      sync.Mutex
	ready   []string
	failed  []string
	lastURL string
}

func (s *stubCallbacks) SendDocumentsReady(_ context.Context, callbackURL, sessionID string, _ *entity.DocumentBundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = append(s.ready, sessionID)
	s.lastURL = callbackURL
}

func (s *stubCallbacks) SendDocumentsError(_ context.Context, callbackURL, sessionID, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, sessionID)
	s.lastURL = callbackURL
}

func (s *stubCallbacks) readyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ready)
}

func (s *stubCallbacks) lastCallbackURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastURL
}

func testWorkflowConfig() config.WorkflowConfig {
	return config.WorkflowConfig{
		DescriptionMinLength:   50,
		DescriptionMaxLength:   8000,
		QuestionBatchSize:      5,
		MaxRefinementQuestions: 3,
		StackMinContentLength:  100,
		DocumentSyncCeiling:    5 * time.Second,
		JobTTL:                 time.Hour,
	}
}

func newTestUsecase(g GenAIConnector, cb CallbackConnector) *WorkflowUsecase {
	return NewUsecase(
		repository.NewSessionMemory(time.Hour),
		cache.NewMemoryCache(),
		completeness.NewEvaluator(completeness.Policy{ReadyThreshold: 100, MinCoreShare: 0.3}),
		validator.NewValidator(testWorkflowConfig()),
		g,
		cb,
		testWorkflowConfig(),
		config.CacheConfig{Backend: "memory", QuestionsTTL: time.Hour, DocumentsTTL: time.Hour},
		zap.NewNop(),
	)
}

// answersForInitialBatch answers the five mock questions with valid choices.
func answersForInitialBatch() []entity.AnswerInput {
	return []entity.AnswerInput{
		{QuestionCode: "Q001", SelectedChoices: []string{"revenue"}},
		{QuestionCode: "Q002", SelectedChoices: []string{"internal", "customers"}},
		{QuestionCode: "Q003", SelectedChoices: []string{"web"}},
		{QuestionCode: "Q004", SelectedChoices: []string{"payments"}},
		{QuestionCode: "Q005", SelectedChoices: []string{"medium"}},
	}
}

// confirmedSession walks a session through analyze, respond, summary and
// confirmation so document tests can start from the confirmed stage.
func confirmedSession(t *testing.T, uc *WorkflowUsecase) string {
	t.Helper()
	ctx := context.Background()

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	responded, err := uc.RespondQuestions(ctx, &entity.RespondRequest{
		SessionID: analyzed.SessionID,
		Answers:   answersForInitialBatch(),
	})
	require.NoError(t, err)
	require.Equal(t, entity.ResponseReadyForSummary, responded.ResponseType)

	_, err = uc.GenerateSummary(ctx, &entity.SummaryRequest{SessionID: analyzed.SessionID})
	require.NoError(t, err)

	confirmed, err := uc.ConfirmSummary(ctx, &entity.ConfirmRequest{SessionID: analyzed.SessionID, Confirmed: true})
	require.NoError(t, err)
	require.Equal(t, entity.StageConfirmed, confirmed.Stage)
	require.Equal(t, entity.ConfirmationConfirmed, confirmed.ConfirmationStatus)
	require.Equal(t, entity.NextStepDocumentGeneration, confirmed.NextStep)

	return analyzed.SessionID
}

func TestAnalyzeProjectCreatesSession(t *testing.T) {
	ctx := context.Background()
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	resp, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, entity.StageQuestioning, resp.Stage)
	assert.Equal(t, 1, resp.BatchNumber)
	require.Len(t, resp.Questions, 5)
	assert.Equal(t, "Q001", resp.Questions[0].Code)
	assert.Equal(t, "Q005", resp.Questions[4].Code)
	require.NotNil(t, resp.Classification)
	assert.Equal(t, "web_application", resp.Classification.Type)
}

func TestAnalyzeProjectRejectsShortDescription(t *testing.T) {
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	_, err := uc.AnalyzeProject(context.Background(), &entity.AnalyzeRequest{ProjectDescription: "muito curto"})
	assert.ErrorIs(t, err, entity.ErrDescriptionLength)
}

func TestAnalyzeProjectServesCachedQuestions(t *testing.T) {
	ctx := context.Background()
	stub := newStubGenAI()
	uc := newTestUsecase(stub, &stubCallbacks{})

	first, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)
	require.Equal(t, 1, stub.batchCallCount())

	// Same description modulo case and whitespace hits the cache.
	equivalent := "  " + strings.ToUpper(testDescription) + "  "
	second, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: equivalent})
	require.NoError(t, err)

	assert.Equal(t, 1, stub.batchCallCount(), "second analyze must not hit the generation service")
	assert.NotEqual(t, first.SessionID, second.SessionID)
	require.Len(t, second.Questions, 5)
	assert.Equal(t, first.Questions[0].Text, second.Questions[0].Text)
}

func TestRespondQuestionsReachesReady(t *testing.T) {
	ctx := context.Background()
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	resp, err := uc.RespondQuestions(ctx, &entity.RespondRequest{
		SessionID: analyzed.SessionID,
		Answers:   answersForInitialBatch(),
	})
	require.NoError(t, err)

	assert.Equal(t, entity.ResponseReadyForSummary, resp.ResponseType)
	assert.Equal(t, entity.StageReadyForSummary, resp.Stage)
	assert.Equal(t, float64(100), resp.CompletionPercentage)
	assert.Empty(t, resp.Questions)
}

func TestRespondQuestionsPartialAnswersIssueFollowUp(t *testing.T) {
	ctx := context.Background()
	stub := newStubGenAI()
	uc := newTestUsecase(stub, &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	var captured *entity.GenAIQuestionBatchRequest
	stub.batchFn = func(req *entity.GenAIQuestionBatchRequest) (*entity.GenAIQuestionBatchResponse, error) {
		captured = req
		return stub.MockConnector.GenerateQuestionBatch(ctx, req)
	}

	resp, err := uc.RespondQuestions(ctx, &entity.RespondRequest{
		SessionID: analyzed.SessionID,
		Answers: []entity.AnswerInput{
			{QuestionCode: "Q001", SelectedChoices: []string{"revenue"}},
			{QuestionCode: "Q003", SelectedChoices: []string{"web"}},
		},
		RequestNextBatch: true,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.ResponseMoreQuestions, resp.ResponseType)
	assert.Equal(t, entity.StageQuestioning, resp.Stage)
	assert.Equal(t, 2, resp.BatchNumber)
	require.Len(t, resp.Questions, 2)
	// Follow-up codes continue the sequence.
	assert.Equal(t, "Q006", resp.Questions[0].Code)
	assert.Equal(t, "Q007", resp.Questions[1].Code)

	// The generation request names the codes already issued so the new
	// batch stays novel.
	require.NotNil(t, captured)
	assert.Equal(t, []string{"Q001", "Q002", "Q003", "Q004", "Q005"}, captured.IssuedCodes)
}

func TestRespondQuestionsDeferredBelowThresholdSkipsGeneration(t *testing.T) {
	ctx := context.Background()
	stub := newStubGenAI()
	uc := newTestUsecase(stub, &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)
	callsAfterAnalyze := stub.batchCallCount()

	resp, err := uc.RespondQuestions(ctx, &entity.RespondRequest{
		SessionID: analyzed.SessionID,
		Answers: []entity.AnswerInput{
			{QuestionCode: "Q001", SelectedChoices: []string{"revenue"}},
		},
		RequestNextBatch: false,
	})
	require.NoError(t, err)

	// The client deferred; only the progress is reported.
	assert.Equal(t, entity.ResponseMoreQuestions, resp.ResponseType)
	assert.Equal(t, entity.StageQuestioning, resp.Stage)
	assert.Empty(t, resp.Questions)
	assert.Equal(t, float64(20), resp.CompletionPercentage)
	assert.Equal(t, callsAfterAnalyze, stub.batchCallCount(), "deferred respond must not hit the generation service")
}

func TestRespondQuestionsReadyIgnoresNextBatchRequest(t *testing.T) {
	ctx := context.Background()
	stub := newStubGenAI()
	uc := newTestUsecase(stub, &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)
	callsAfterAnalyze := stub.batchCallCount()

	resp, err := uc.RespondQuestions(ctx, &entity.RespondRequest{
		SessionID:        analyzed.SessionID,
		Answers:          answersForInitialBatch(),
		RequestNextBatch: true,
	})
	require.NoError(t, err)

	// Reaching the threshold always wins over the next-batch request.
	assert.Equal(t, entity.ResponseReadyForSummary, resp.ResponseType)
	assert.Equal(t, entity.StageReadyForSummary, resp.Stage)
	assert.Empty(t, resp.Questions)
	assert.Equal(t, callsAfterAnalyze, stub.batchCallCount())
}

func TestRespondQuestionsEmptyFollowUpMarksReady(t *testing.T) {
	ctx := context.Background()
	stub := newStubGenAI()
	uc := newTestUsecase(stub, &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	// The model has nothing left to ask after the first answers.
	stub.batchFn = func(req *entity.GenAIQuestionBatchRequest) (*entity.GenAIQuestionBatchResponse, error) {
		return &entity.GenAIQuestionBatchResponse{}, nil
	}

	resp, err := uc.RespondQuestions(ctx, &entity.RespondRequest{
		SessionID: analyzed.SessionID,
		Answers: []entity.AnswerInput{
			{QuestionCode: "Q001", SelectedChoices: []string{"revenue"}},
		},
		RequestNextBatch: true,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.ResponseReadyForSummary, resp.ResponseType)
	assert.Equal(t, entity.StageReadyForSummary, resp.Stage)
}

func TestRespondQuestionsFlagsUnknownCode(t *testing.T) {
	ctx := context.Background()
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	resp, err := uc.RespondQuestions(ctx, &entity.RespondRequest{
		SessionID: analyzed.SessionID,
		Answers: []entity.AnswerInput{
			{QuestionCode: "Q001", SelectedChoices: []string{"revenue"}},
			{QuestionCode: "Q999", SelectedChoices: []string{"revenue"}},
		},
	})
	require.NoError(t, err)

	// The unissued code is reported, the valid answer is kept.
	assert.Equal(t, []string{"Q999"}, resp.UnknownCodes)
	assert.Equal(t, float64(20), resp.CompletionPercentage)

	view, err := uc.GetSession(ctx, analyzed.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.AnsweredQuestions)
}

func TestRespondQuestionsRejectsMultipleChoicesOnSingleChoiceQuestion(t *testing.T) {
	ctx := context.Background()
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	_, err = uc.RespondQuestions(ctx, &entity.RespondRequest{
		SessionID: analyzed.SessionID,
		Answers: []entity.AnswerInput{
			{QuestionCode: "Q001", SelectedChoices: []string{"revenue", "efficiency"}},
		},
	})
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)
}

func TestRespondQuestionsRejectsInvalidChoice(t *testing.T) {
	ctx := context.Background()
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	_, err = uc.RespondQuestions(ctx, &entity.RespondRequest{
		SessionID: analyzed.SessionID,
		Answers: []entity.AnswerInput{
			{QuestionCode: "Q001", SelectedChoices: []string{"no-such-choice"}},
		},
	})
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)
}

func TestRespondQuestionsOverwritesAnswer(t *testing.T) {
	ctx := context.Background()
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	_, err = uc.RespondQuestions(ctx, &entity.RespondRequest{
		SessionID: analyzed.SessionID,
		Answers: []entity.AnswerInput{
			{QuestionCode: "Q001", SelectedChoices: []string{"revenue"}},
		},
	})
	require.NoError(t, err)

	_, err = uc.RespondQuestions(ctx, &entity.RespondRequest{
		SessionID: analyzed.SessionID,
		Answers: []entity.AnswerInput{
			{QuestionCode: "Q001", SelectedChoices: []string{"efficiency"}},
		},
	})
	require.NoError(t, err)

	view, err := uc.GetSession(ctx, analyzed.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.AnsweredQuestions)
}

func TestGenerateSummaryRequiresReadyStage(t *testing.T) {
	ctx := context.Background()
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	_, err = uc.GenerateSummary(ctx, &entity.SummaryRequest{SessionID: analyzed.SessionID})
	assert.ErrorIs(t, err, entity.ErrInvalidStage)
}

func TestGenerateSummaryAdvancesToSummarized(t *testing.T) {
	ctx := context.Background()
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	_, err = uc.RespondQuestions(ctx, &entity.RespondRequest{
		SessionID: analyzed.SessionID,
		Answers:   answersForInitialBatch(),
	})
	require.NoError(t, err)

	resp, err := uc.GenerateSummary(ctx, &entity.SummaryRequest{SessionID: analyzed.SessionID})
	require.NoError(t, err)

	assert.Equal(t, entity.StageSummarized, resp.Stage)
	assert.NotEmpty(t, resp.Summary.Text)
	assert.NotEmpty(t, resp.Summary.KeyPoints)
	assert.NotEmpty(t, resp.Summary.Assumptions, "assumptions are included by default")
	assert.False(t, resp.Summary.GeneratedAt.IsZero())
}

func TestGenerateSummaryHonorsRequestOptions(t *testing.T) {
	ctx := context.Background()
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	_, err = uc.RespondQuestions(ctx, &entity.RespondRequest{
		SessionID: analyzed.SessionID,
		Answers:   answersForInitialBatch(),
	})
	require.NoError(t, err)

	noAssumptions := false
	resp, err := uc.GenerateSummary(ctx, &entity.SummaryRequest{
		SessionID:          analyzed.SessionID,
		IncludeAssumptions: &noAssumptions,
		Language:           "en",
	})
	require.NoError(t, err)

	assert.Empty(t, resp.Summary.Assumptions)
	assert.Equal(t, "en", resp.Summary.Language)
}

func TestConfirmSummaryRejectionLoop(t *testing.T) {
	ctx := context.Background()
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	_, err = uc.RespondQuestions(ctx, &entity.RespondRequest{
		SessionID: analyzed.SessionID,
		Answers:   answersForInitialBatch(),
	})
	require.NoError(t, err)

	_, err = uc.GenerateSummary(ctx, &entity.SummaryRequest{SessionID: analyzed.SessionID})
	require.NoError(t, err)

	feedback := "faltou o módulo de relatórios gerenciais"
	rejected, err := uc.ConfirmSummary(ctx, &entity.ConfirmRequest{
		SessionID: analyzed.SessionID,
		Confirmed: false,
		Feedback:  feedback,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.StageQuestioning, rejected.Stage)
	assert.Equal(t, entity.ConfirmationRejected, rejected.ConfirmationStatus)
	assert.Equal(t, entity.NextStepAnswerRefinements, rejected.NextStep)
	require.NotEmpty(t, rejected.Questions)
	// Refinement questions get R-codes and the refinement category.
	assert.Equal(t, "R001", rejected.Questions[0].Code)
	assert.Equal(t, entity.CategoryRefinement, rejected.Questions[0].Category)

	view, err := uc.GetSession(ctx, analyzed.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.RefinementCycle)

	// Answer the refinement batch and regenerate; the feedback flows into
	// the new summary prompt.
	answers := make([]entity.AnswerInput, 0, len(rejected.Questions))
	for _, q := range rejected.Questions {
		answers = append(answers, entity.AnswerInput{
			QuestionCode:    q.Code,
			SelectedChoices: []string{q.Choices[0].ID},
		})
	}
	_, err = uc.RespondQuestions(ctx, &entity.RespondRequest{
		SessionID: analyzed.SessionID,
		Answers:   answers,
	})
	require.NoError(t, err)

	regenerated, err := uc.GenerateSummary(ctx, &entity.SummaryRequest{SessionID: analyzed.SessionID})
	require.NoError(t, err)
	assert.Contains(t, regenerated.Summary.Text, feedback)
}

func TestConfirmSummaryRequiresFeedbackOnRejection(t *testing.T) {
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	_, err := uc.ConfirmSummary(context.Background(), &entity.ConfirmRequest{
		SessionID: "b6f4a9ce-4f6e-4a86-9b53-5ad7e2f0d9aa",
		Confirmed: false,
	})
	assert.ErrorIs(t, err, entity.ErrMissingField)
}

func TestConfirmSummaryRequiresSummarizedStage(t *testing.T) {
	ctx := context.Background()
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	_, err = uc.ConfirmSummary(ctx, &entity.ConfirmRequest{SessionID: analyzed.SessionID, Confirmed: true})
	assert.ErrorIs(t, err, entity.ErrInvalidStage)
}

func TestGenerateDocumentsFullFlow(t *testing.T) {
	ctx := context.Background()
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})
	sessionID := confirmedSession(t, uc)

	resp, err := uc.GenerateDocuments(ctx, &entity.DocumentRequest{SessionID: sessionID})
	require.NoError(t, err)

	assert.Equal(t, entity.StageDocumented, resp.Stage)
	assert.False(t, resp.FromCache)
	require.Len(t, resp.Documents.Stacks, 4)

	seen := make(map[entity.StackType]bool)
	for _, doc := range resp.Documents.Stacks {
		seen[doc.StackType] = true
		assert.NotEmpty(t, doc.Content)
		assert.False(t, doc.Degraded)
	}
	for _, stack := range entity.AllStackTypes {
		assert.True(t, seen[stack], "missing stack %s", stack)
	}
	assert.NotEmpty(t, resp.Documents.TotalEstimatedEffort)
	assert.NotEmpty(t, resp.Documents.RecommendedTimeline)
}

func TestGenerateDocumentsRequiresConfirmedStage(t *testing.T) {
	ctx := context.Background()
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	_, err = uc.GenerateDocuments(ctx, &entity.DocumentRequest{SessionID: analyzed.SessionID})
	assert.ErrorIs(t, err, entity.ErrInvalidStage)
}

func TestGenerateDocumentsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	stub := newStubGenAI()
	uc := newTestUsecase(stub, &stubCallbacks{})
	sessionID := confirmedSession(t, uc)

	first, err := uc.GenerateDocuments(ctx, &entity.DocumentRequest{SessionID: sessionID})
	require.NoError(t, err)
	require.False(t, first.FromCache)

	callsAfterFirst := stub.stackCallCount("frontend")

	second, err := uc.GenerateDocuments(ctx, &entity.DocumentRequest{SessionID: sessionID})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, callsAfterFirst, stub.stackCallCount("frontend"))

	refreshed, err := uc.GenerateDocuments(ctx, &entity.DocumentRequest{SessionID: sessionID, ForceRefresh: true})
	require.NoError(t, err)
	assert.False(t, refreshed.FromCache)
	assert.Greater(t, stub.stackCallCount("frontend"), callsAfterFirst)
}

func TestGenerateDocumentsDegradesOnSafetyBlock(t *testing.T) {
	ctx := context.Background()
	stub := newStubGenAI()
	stub.stackFn = func(req *entity.GenAIStackDocumentRequest) (*entity.GenAIStackDocumentResponse, error) {
		if req.StackType == "backend" {
			return nil, fmt.Errorf("model chain exhausted: %w", entity.ErrSafetyBlocked)
		}
		return stub.MockConnector.GenerateStackDocument(ctx, req)
	}
	uc := newTestUsecase(stub, &stubCallbacks{})
	sessionID := confirmedSession(t, uc)

	resp, err := uc.GenerateDocuments(ctx, &entity.DocumentRequest{SessionID: sessionID})
	require.NoError(t, err)
	require.Len(t, resp.Documents.Stacks, 4)

	var degraded int
	for _, doc := range resp.Documents.Stacks {
		if doc.StackType == entity.StackBackend {
			assert.True(t, doc.Degraded)
			assert.Contains(t, doc.Content, "Não foi possível gerar o documento completo")
			degraded++
		} else {
			assert.False(t, doc.Degraded)
		}
	}
	assert.Equal(t, 1, degraded)
}

func TestGenerateDocumentsFailsWhenAllStacksFail(t *testing.T) {
	ctx := context.Background()
	stub := newStubGenAI()
	stub.stackFn = func(req *entity.GenAIStackDocumentRequest) (*entity.GenAIStackDocumentResponse, error) {
		return nil, errors.New("connection refused")
	}
	uc := newTestUsecase(stub, &stubCallbacks{})
	sessionID := confirmedSession(t, uc)

	_, err := uc.GenerateDocuments(ctx, &entity.DocumentRequest{SessionID: sessionID})
	assert.ErrorIs(t, err, entity.ErrGenerationFailed)
}

func TestGenerateDocumentsRetriesShortContentExpanded(t *testing.T) {
	ctx := context.Background()
	stub := newStubGenAI()
	longContent := strings.Repeat("Recomendações detalhadas para a camada. ", 10)
	stub.stackFn = func(req *entity.GenAIStackDocumentRequest) (*entity.GenAIStackDocumentResponse, error) {
		if req.Expanded {
			return &entity.GenAIStackDocumentResponse{Title: "Documento", Content: longContent}, nil
		}
		return &entity.GenAIStackDocumentResponse{Title: "Documento", Content: "curto demais"}, nil
	}
	uc := newTestUsecase(stub, &stubCallbacks{})
	sessionID := confirmedSession(t, uc)

	resp, err := uc.GenerateDocuments(ctx, &entity.DocumentRequest{SessionID: sessionID})
	require.NoError(t, err)

	// Each stack is attempted once plainly and once expanded.
	assert.Equal(t, 2, stub.stackCallCount("frontend"))
	for _, doc := range resp.Documents.Stacks {
		assert.Equal(t, longContent, doc.Content)
	}
}

func TestGetDocumentBundleBeforeGeneration(t *testing.T) {
	ctx := context.Background()
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	analyzed, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	_, err = uc.GetDocumentBundle(ctx, analyzed.SessionID)
	assert.ErrorIs(t, err, entity.ErrNoDocuments)
}

func TestGetSessionNotFound(t *testing.T) {
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	_, err := uc.GetSession(context.Background(), "4d1209aa-5d44-4d27-8c6f-0f18c1a2f90b")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestStartDocumentJobLifecycle(t *testing.T) {
	ctx := context.Background()
	callbacks := &stubCallbacks{}
	uc := newTestUsecase(newStubGenAI(), callbacks)
	sessionID := confirmedSession(t, uc)

	job, err := uc.StartDocumentJob(ctx, &entity.DocumentRequest{
		SessionID:   sessionID,
		CallbackURL: "https://client.example.com/hooks/briefing",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusPending, job.Status)

	require.Eventually(t, func() bool {
		status, err := uc.GetDocumentJob(ctx, sessionID)
		return err == nil && status.Status == entity.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	status, err := uc.GetDocumentJob(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, status.Documents)
	assert.Len(t, status.Documents.Stacks, 4)
	assert.NotNil(t, status.FinishedAt)

	require.Eventually(t, func() bool {
		return callbacks.readyCount() == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "https://client.example.com/hooks/briefing", callbacks.lastCallbackURL())
}

func TestDocumentJobStatusReadsAreConsistentSnapshots(t *testing.T) {
	ctx := context.Background()
	stub := newStubGenAI()
	stub.stackFn = func(req *entity.GenAIStackDocumentRequest) (*entity.GenAIStackDocumentResponse, error) {
		// Widen the window in which status polls overlap the running job.
		time.Sleep(5 * time.Millisecond)
		return stub.MockConnector.GenerateStackDocument(context.Background(), req)
	}
	uc := newTestUsecase(stub, &stubCallbacks{})
	sessionID := confirmedSession(t, uc)

	_, err := uc.StartDocumentJob(ctx, &entity.DocumentRequest{SessionID: sessionID})
	require.NoError(t, err)

	// Poll while the job runs. Every read must be a fully written
	// transition: a finished timestamp or a result never shows up on a
	// still-running status.
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "job did not complete in time")

		status, err := uc.GetDocumentJob(ctx, sessionID)
		require.NoError(t, err)

		switch status.Status {
		case entity.JobStatusPending, entity.JobStatusProcessing:
			assert.Nil(t, status.FinishedAt)
			assert.Nil(t, status.Documents)
			assert.Empty(t, status.Error)
		case entity.JobStatusCompleted:
			require.NotNil(t, status.FinishedAt)
			require.NotNil(t, status.Documents)
			assert.Len(t, status.Documents.Stacks, 4)
			return
		case entity.JobStatusFailed:
			t.Fatalf("unexpected job failure: %s", status.Error)
		}

		time.Sleep(time.Millisecond)
	}
}

func TestStartDocumentJobRejectsConcurrentJob(t *testing.T) {
	ctx := context.Background()
	stub := newStubGenAI()
	release := make(chan struct{})
	stub.stackFn = func(req *entity.GenAIStackDocumentRequest) (*entity.GenAIStackDocumentResponse, error) {
		<-release
		return stub.MockConnector.GenerateStackDocument(context.Background(), req)
	}
	uc := newTestUsecase(stub, &stubCallbacks{})
	sessionID := confirmedSession(t, uc)

	_, err := uc.StartDocumentJob(ctx, &entity.DocumentRequest{SessionID: sessionID})
	require.NoError(t, err)

	_, err = uc.StartDocumentJob(ctx, &entity.DocumentRequest{SessionID: sessionID})
	assert.ErrorIs(t, err, entity.ErrJobAlreadyRunning)

	close(release)
	require.Eventually(t, func() bool {
		status, err := uc.GetDocumentJob(ctx, sessionID)
		return err == nil && status.Status == entity.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestGetDocumentJobNotFound(t *testing.T) {
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	_, err := uc.GetDocumentJob(context.Background(), "19cf4f0e-7e9e-4a3e-8f25-c2ce06e0c8dd")
	assert.ErrorIs(t, err, entity.ErrJobNotFound)
}

func TestCacheStatsReportsActivity(t *testing.T) {
	ctx := context.Background()
	uc := newTestUsecase(newStubGenAI(), &stubCallbacks{})

	_, err := uc.AnalyzeProject(ctx, &entity.AnalyzeRequest{ProjectDescription: testDescription})
	require.NoError(t, err)

	stats := uc.CacheStats(ctx)
	assert.Equal(t, "memory", stats.Backend)
	assert.GreaterOrEqual(t, stats.Misses, int64(1))
	assert.GreaterOrEqual(t, stats.Sets, int64(1))
}
