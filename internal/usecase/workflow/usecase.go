package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/intakehq/briefing-backend/internal/cache"
	"github.com/intakehq/briefing-backend/internal/config"
	"github.com/intakehq/briefing-backend/internal/entity"
	"github.com/intakehq/briefing-backend/internal/pkg/completeness"
	"github.com/intakehq/briefing-backend/internal/pkg/validator"
	"github.com/intakehq/briefing-backend/internal/repository"
)

// WorkflowUsecase drives the intake flow: analyze, respond, summarize,
// confirm, document. All session mutations are serialized per session.
type WorkflowUsecase struct {
	sessionRepo  repository.SessionRepository
	contentCache cache.Cache
	evaluator    *completeness.Evaluator
	validator    *validator.Validator
	genai        GenAIConnector
	callbacks    CallbackConnector
	cfg          config.WorkflowConfig
	cacheCfg     config.CacheConfig
	logger       *zap.Logger

	sessionLocks sync.Map
	jobs         *gocache.Cache
}

// NewUsecase creates a new workflow use case
func NewUsecase(
	sessionRepo repository.SessionRepository,
	contentCache cache.Cache,
	evaluator *completeness.Evaluator,
	validator *validator.Validator,
	genai GenAIConnector,
	callbacks CallbackConnector,
	cfg config.WorkflowConfig,
	cacheCfg config.CacheConfig,
	logger *zap.Logger,
) *WorkflowUsecase {
	return &WorkflowUsecase{
		sessionRepo:  sessionRepo,
		contentCache: contentCache,
		evaluator:    evaluator,
		validator:    validator,
		genai:        genai,
		callbacks:    callbacks,
		cfg:          cfg,
		cacheCfg:     cacheCfg,
		logger:       logger,
		jobs:         gocache.New(cfg.JobTTL, 10*time.Minute),
	}
}

// AnalyzeProject classifies the description, issues the first question batch
// and creates the session
func (uc *WorkflowUsecase) AnalyzeProject(ctx context.Context, req *entity.AnalyzeRequest) (*entity.AnalyzeResponse, error) {
	if err := uc.validator.ValidateAnalyze(req); err != nil {
		return nil, err
	}

	classification := uc.classify(ctx, req.ProjectDescription)

	rawQuestions, err := uc.initialQuestions(ctx, req.ProjectDescription, classification)
	if err != nil {
		return nil, err
	}

	session := &entity.Session{
		Stage:              entity.StageQuestioning,
		ProjectDescription: req.ProjectDescription,
		Classification:     classification,
		Answers:            make(map[string]entity.Answer),
	}
	appendBatch(session, rawQuestions, entity.BatchReasonInitial)

	created, err := uc.sessionRepo.CreateSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	ctxzap.Info(ctx, "session created",
		zap.String("session_id", created.ID),
		zap.Int("question_count", len(rawQuestions)))

	batch := created.QuestionBatches[0]
	return &entity.AnalyzeResponse{
		SessionID:      created.ID,
		Stage:          created.Stage,
		Classification: created.Classification,
		Questions:      batch.Questions,
		BatchNumber:    batch.Number,
	}, nil
}

// RespondQuestions records answers and either issues a follow-up batch or
// marks the session ready for summary
func (uc *WorkflowUsecase) RespondQuestions(ctx context.Context, req *entity.RespondRequest) (*entity.RespondResponse, error) {
	if err := uc.validator.ValidateRespond(req); err != nil {
		return nil, err
	}

	unlock := uc.lockSession(req.SessionID)
	defer unlock()

	session, err := uc.sessionRepo.GetSessionByID(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.Stage != entity.StageQuestioning && session.Stage != entity.StageReadyForSummary {
		return nil, fmt.Errorf("%w: stage '%s'", entity.ErrInvalidStage, session.Stage)
	}

	unknown, err := recordAnswers(session, req.Answers)
	if err != nil {
		return nil, err
	}
	if len(unknown) > 0 {
		ctxzap.Warn(ctx, "answers for unissued question codes skipped",
			zap.Strings("unknown_codes", unknown))
	}

	result := uc.evaluator.Evaluate(session)
	session.CompletionPercentage = result.Percentage

	resp := &entity.RespondResponse{
		SessionID:            session.ID,
		CompletionPercentage: result.Percentage,
		UnknownCodes:         unknown,
	}

	switch {
	case result.Ready:
		session.Stage = entity.StageReadyForSummary
		resp.ResponseType = entity.ResponseReadyForSummary
	case !req.RequestNextBatch:
		// Below the threshold, but the client deferred the next batch.
		// Report progress without a generation call.
		resp.ResponseType = entity.ResponseMoreQuestions
	default:
		rawQuestions, err := uc.genai.GenerateQuestionBatch(ctx, &entity.GenAIQuestionBatchRequest{
			ProjectDescription: session.ProjectDescription,
			Classification:     session.Classification,
			AnsweredQuestions:  session.AnsweredQuestions(),
			BatchSize:          uc.cfg.QuestionBatchSize,
			IssuedCodes:        issuedCodes(session),
		})
		if err != nil {
			return nil, fmt.Errorf("generate follow-up questions: %w", err)
		}

		if len(rawQuestions.Questions) == 0 {
			// The model has nothing left to ask; treat the session as ready
			// even below the threshold.
			session.Stage = entity.StageReadyForSummary
			resp.ResponseType = entity.ResponseReadyForSummary
		} else {
			batch := appendBatch(session, rawQuestions.Questions, entity.BatchReasonFollowUp)
			session.Stage = entity.StageQuestioning
			session.CompletionPercentage = uc.evaluator.Evaluate(session).Percentage
			resp.ResponseType = entity.ResponseMoreQuestions
			resp.Questions = batch.Questions
			resp.BatchNumber = batch.Number
			resp.CompletionPercentage = session.CompletionPercentage
		}
	}

	saved, err := uc.sessionRepo.SaveSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	resp.Stage = saved.Stage

	ctxzap.Info(ctx, "answers recorded",
		zap.String("session_id", session.ID),
		zap.Int("answer_count", len(req.Answers)),
		zap.Float64("completion", session.CompletionPercentage),
		zap.String("response_type", string(resp.ResponseType)))

	return resp, nil
}

// GenerateSummary produces or regenerates the project summary
func (uc *WorkflowUsecase) GenerateSummary(ctx context.Context, req *entity.SummaryRequest) (*entity.SummaryResponse, error) {
	if err := uc.validator.ValidateSummary(req); err != nil {
		return nil, err
	}

	unlock := uc.lockSession(req.SessionID)
	defer unlock()

	session, err := uc.sessionRepo.GetSessionByID(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if !summaryAllowed(session) {
		return nil, fmt.Errorf("%w: stage '%s'", entity.ErrInvalidStage, session.Stage)
	}

	// Assumptions are included unless the client opted out.
	includeAssumptions := req.IncludeAssumptions == nil || *req.IncludeAssumptions

	genReq := &entity.GenAISummaryRequest{
		ProjectDescription: session.ProjectDescription,
		Classification:     session.Classification,
		AnsweredQuestions:  session.AnsweredQuestions(),
		IncludeAssumptions: includeAssumptions,
		Language:           req.Language,
	}
	if session.Confirmation != nil && session.Confirmation.Status == entity.ConfirmationRejected {
		genReq.RejectionFeedback = session.Confirmation.Feedback
	}

	generated, err := uc.genai.GenerateSummary(ctx, genReq)
	if err != nil {
		return nil, fmt.Errorf("generate summary: %w", err)
	}

	assumptions := generated.Assumptions
	if !includeAssumptions {
		assumptions = nil
	}
	language := generated.Language
	if language == "" {
		language = req.Language
	}

	session.Summary = &entity.Summary{
		Text:            generated.Text,
		KeyPoints:       generated.KeyPoints,
		Assumptions:     assumptions,
		ConfidenceScore: generated.ConfidenceScore,
		Language:        language,
		GeneratedAt:     time.Now().UTC(),
	}
	session.Confirmation = &entity.Confirmation{Status: entity.ConfirmationPending}
	session.Stage = entity.StageSummarized

	saved, err := uc.sessionRepo.SaveSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	ctxzap.Info(ctx, "summary generated",
		zap.String("session_id", session.ID),
		zap.Float64("confidence", generated.ConfidenceScore))

	return &entity.SummaryResponse{
		SessionID: saved.ID,
		Stage:     saved.Stage,
		Summary:   *saved.Summary,
	}, nil
}

// ConfirmSummary either locks the summary in or loops the session back to
// questioning with a refinement batch built from the feedback
func (uc *WorkflowUsecase) ConfirmSummary(ctx context.Context, req *entity.ConfirmRequest) (*entity.ConfirmResponse, error) {
	if err := uc.validator.ValidateConfirm(req); err != nil {
		return nil, err
	}

	unlock := uc.lockSession(req.SessionID)
	defer unlock()

	session, err := uc.sessionRepo.GetSessionByID(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.Stage != entity.StageSummarized {
		return nil, fmt.Errorf("%w: stage '%s'", entity.ErrInvalidStage, session.Stage)
	}

	resp := &entity.ConfirmResponse{SessionID: session.ID}

	if req.Confirmed {
		session.Confirmation = &entity.Confirmation{
			Status:    entity.ConfirmationConfirmed,
			DecidedAt: time.Now().UTC(),
		}
		session.Stage = entity.StageConfirmed
		resp.ConfirmationStatus = entity.ConfirmationConfirmed
		resp.NextStep = entity.NextStepDocumentGeneration
	} else {
		session.Confirmation = &entity.Confirmation{
			Status:    entity.ConfirmationRejected,
			Feedback:  req.Feedback,
			DecidedAt: time.Now().UTC(),
		}
		session.RefinementCycle++

		refinement, err := uc.genai.GenerateRefinementQuestions(ctx, &entity.GenAIRefinementRequest{
			ProjectDescription: session.ProjectDescription,
			Summary:            session.Summary.Text,
			Feedback:           req.Feedback,
			AnsweredQuestions:  session.AnsweredQuestions(),
			MaxQuestions:       uc.cfg.MaxRefinementQuestions,
		})
		if err != nil {
			return nil, fmt.Errorf("generate refinement questions: %w", err)
		}

		batch := appendBatch(session, refinement.Questions, entity.BatchReasonRefinement)
		session.Stage = entity.StageQuestioning
		session.CompletionPercentage = uc.evaluator.Evaluate(session).Percentage
		resp.ConfirmationStatus = entity.ConfirmationRejected
		resp.NextStep = entity.NextStepAnswerRefinements
		resp.Questions = batch.Questions
		resp.BatchNumber = batch.Number
	}

	saved, err := uc.sessionRepo.SaveSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	resp.Stage = saved.Stage

	ctxzap.Info(ctx, "summary confirmation processed",
		zap.String("session_id", session.ID),
		zap.Bool("confirmed", req.Confirmed),
		zap.Int("refinement_cycle", session.RefinementCycle))

	return resp, nil
}

// GenerateDocuments produces the four stack documents, serving repeated
// calls from the session or the content cache
func (uc *WorkflowUsecase) GenerateDocuments(ctx context.Context, req *entity.DocumentRequest) (*entity.DocumentResponse, error) {
	if err := uc.validator.ValidateDocumentRequest(req); err != nil {
		return nil, err
	}

	unlock := uc.lockSession(req.SessionID)
	defer unlock()

	session, err := uc.sessionRepo.GetSessionByID(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	// Documents need at least a confirmed summary.
	if session.Stage.Rank() < entity.StageConfirmed.Rank() {
		return nil, fmt.Errorf("%w: stage '%s'", entity.ErrInvalidStage, session.Stage)
	}

	if session.Stage == entity.StageDocumented && session.Documents != nil && !req.ForceRefresh {
		return &entity.DocumentResponse{
			SessionID: session.ID,
			Stage:     session.Stage,
			FromCache: true,
			Documents: *session.Documents,
		}, nil
	}

	fingerprint := cache.Fingerprint(session.ID)
	if !req.ForceRefresh {
		if data, found := uc.contentCache.Get(ctx, cache.ArtifactDocuments, fingerprint); found {
			bundle := &entity.DocumentBundle{}
			if err := json.Unmarshal(data, bundle); err == nil {
				ctxzap.Info(ctx, "documents served from cache", zap.String("session_id", session.ID))
				return uc.finishDocuments(ctx, session, bundle, true)
			}
			ctxzap.Warn(ctx, "discarding undecodable cached documents", zap.String("session_id", session.ID))
		}
	}

	genCtx, cancel := context.WithTimeout(ctx, uc.cfg.DocumentSyncCeiling)
	defer cancel()

	bundle, err := uc.generateBundle(genCtx, session, req.IncludeImplementationDetails)
	if err != nil {
		return nil, err
	}

	if !bundleDegraded(bundle) {
		if data, err := json.Marshal(bundle); err == nil {
			uc.contentCache.Set(ctx, cache.ArtifactDocuments, fingerprint, data, uc.cacheCfg.DocumentsTTL)
		}
	}

	return uc.finishDocuments(ctx, session, bundle, false)
}

// GetDocumentBundle returns the generated documents for export
func (uc *WorkflowUsecase) GetDocumentBundle(ctx context.Context, sessionID string) (*entity.DocumentBundle, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id", entity.ErrMissingField)
	}

	session, err := uc.sessionRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.Documents == nil {
		return nil, entity.ErrNoDocuments
	}

	return session.Documents, nil
}

// GetSession returns a read-only view of the session state
func (uc *WorkflowUsecase) GetSession(ctx context.Context, sessionID string) (*entity.SessionResponse, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id", entity.ErrMissingField)
	}

	session, err := uc.sessionRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &entity.SessionResponse{
		SessionID:            session.ID,
		Stage:                session.Stage,
		Classification:       session.Classification,
		IssuedQuestions:      len(session.IssuedQuestions()),
		AnsweredQuestions:    len(session.Answers),
		CompletionPercentage: session.CompletionPercentage,
		RefinementCycle:      session.RefinementCycle,
		HasSummary:           session.Summary != nil,
		HasDocuments:         session.Documents != nil,
		CreatedAt:            session.CreatedAt,
		UpdatedAt:            session.UpdatedAt,
	}, nil
}

// CacheStats reports content cache activity
func (uc *WorkflowUsecase) CacheStats(_ context.Context) *entity.CacheStatsResponse {
	stats := uc.contentCache.Stats()
	return &entity.CacheStatsResponse{
		Backend:  stats.Backend,
		Hits:     stats.Hits,
		Misses:   stats.Misses,
		Sets:     stats.Sets,
		Degraded: stats.Degraded,
	}
}
