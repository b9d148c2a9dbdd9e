package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/intakehq/briefing-backend/internal/cache"
	"github.com/intakehq/briefing-backend/internal/entity"
)

// lockSession serializes mutations for one session. The caller must invoke
// the returned function to release.
func (uc *WorkflowUsecase) lockSession(id string) func() {
	value, _ := uc.sessionLocks.LoadOrStore(id, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// classify never fails the flow: when the generation service cannot
// classify, a low-confidence default keeps the session going.
func (uc *WorkflowUsecase) classify(ctx context.Context, description string) *entity.Classification {
	resp, err := uc.genai.Classify(ctx, &entity.GenAIClassifyRequest{ProjectDescription: description})
	if err != nil {
		ctxzap.Warn(ctx, "classification failed, using default", zap.Error(err))
		return &entity.Classification{
			Type:       "application",
			Complexity: "moderate",
			Domain:     "general",
			Confidence: 0.5,
		}
	}

	return &entity.Classification{
		Type:              resp.Type,
		Complexity:        resp.Complexity,
		Domain:            resp.Domain,
		Confidence:        resp.Confidence,
		KeyTechnologies:   resp.KeyTechnologies,
		EstimatedDuration: resp.EstimatedDuration,
	}
}

// initialQuestions serves the first batch from the cache when an equivalent
// description was analyzed before
func (uc *WorkflowUsecase) initialQuestions(
	ctx context.Context, description string, classification *entity.Classification,
) ([]entity.GenAIQuestion, error) {
	fingerprint := cache.Fingerprint(description)

	if data, found := uc.contentCache.Get(ctx, cache.ArtifactQuestions, fingerprint); found {
		var questions []entity.GenAIQuestion
		if err := json.Unmarshal(data, &questions); err == nil && len(questions) > 0 {
			ctxzap.Info(ctx, "initial questions served from cache")
			return questions, nil
		}
		ctxzap.Warn(ctx, "discarding undecodable cached questions")
	}

	resp, err := uc.genai.GenerateQuestionBatch(ctx, &entity.GenAIQuestionBatchRequest{
		ProjectDescription: description,
		Classification:     classification,
		BatchSize:          uc.cfg.QuestionBatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("generate initial questions: %w", err)
	}
	if len(resp.Questions) == 0 {
		return nil, fmt.Errorf("generation service returned no questions: %w", entity.ErrGenerationFailed)
	}

	if data, err := json.Marshal(resp.Questions); err == nil {
		uc.contentCache.Set(ctx, cache.ArtifactQuestions, fingerprint, data, uc.cacheCfg.QuestionsTTL)
	}

	return resp.Questions, nil
}

// appendBatch codes the raw questions and attaches them to the session as
// the next batch. Refinement questions get R-codes, everything else Q-codes.
func appendBatch(session *entity.Session, raw []entity.GenAIQuestion, reason entity.BatchReason) entity.QuestionBatch {
	var qCount, rCount int
	for _, q := range session.IssuedQuestions() {
		if strings.HasPrefix(q.Code, "R") {
			rCount++
		} else {
			qCount++
		}
	}

	questions := make([]entity.Question, 0, len(raw))
	for _, rq := range raw {
		var code string
		category := entity.QuestionCategory(rq.Category)
		if reason == entity.BatchReasonRefinement {
			category = entity.CategoryRefinement
			rCount++
			code = fmt.Sprintf("R%03d", rCount)
		} else {
			qCount++
			code = fmt.Sprintf("Q%03d", qCount)
		}

		choices := make([]entity.QuestionChoice, 0, len(rq.Choices))
		for _, c := range rq.Choices {
			choices = append(choices, entity.QuestionChoice{
				ID:          c.ID,
				Text:        c.Text,
				Description: c.Description,
			})
		}

		questions = append(questions, entity.Question{
			Code:          code,
			Text:          rq.Text,
			WhyItMatters:  rq.WhyItMatters,
			Choices:       choices,
			Required:      rq.Required,
			AllowMultiple: rq.AllowMultiple,
			Category:      category,
		})
	}

	batch := entity.QuestionBatch{
		Number:    len(session.QuestionBatches) + 1,
		Reason:    reason,
		Questions: questions,
		IssuedAt:  time.Now().UTC(),
	}
	session.QuestionBatches = append(session.QuestionBatches, batch)
	return batch
}

// recordAnswers validates each answer against its issued question and writes
// it into the session. Re-answering a question overwrites the prior answer.
// Answers referencing codes that were never issued are skipped and returned
// so the caller can flag them.
func recordAnswers(session *entity.Session, answers []entity.AnswerInput) ([]string, error) {
	issued := make(map[string]entity.Question)
	for _, q := range session.IssuedQuestions() {
		issued[q.Code] = q
	}

	var unknown []string
	now := time.Now().UTC()
	for _, input := range answers {
		question, ok := issued[input.QuestionCode]
		if !ok {
			unknown = append(unknown, input.QuestionCode)
			continue
		}

		if !question.AllowMultiple && len(input.SelectedChoices) > 1 {
			return nil, fmt.Errorf("%w: question %s accepts a single choice", entity.ErrInvalidParameter, input.QuestionCode)
		}

		if len(question.Choices) > 0 {
			valid := make(map[string]bool, len(question.Choices))
			for _, c := range question.Choices {
				valid[c.ID] = true
			}
			for _, id := range input.SelectedChoices {
				if !valid[id] {
					return nil, fmt.Errorf("%w: choice %q is not an option of question %s",
						entity.ErrInvalidParameter, id, input.QuestionCode)
				}
			}
		}

		session.Answers[input.QuestionCode] = entity.Answer{
			QuestionCode:    input.QuestionCode,
			SelectedChoices: input.SelectedChoices,
			CustomText:      input.CustomText,
			AnsweredAt:      now,
		}
	}

	return unknown, nil
}

// issuedCodes flattens the session's already-sent question codes in issue
// order, for the novelty hint passed to the generation service.
func issuedCodes(session *entity.Session) []string {
	set := session.IssuedCodes()
	codes := make([]string, 0, len(set))
	for _, q := range session.IssuedQuestions() {
		if set[q.Code] {
			codes = append(codes, q.Code)
			delete(set, q.Code)
		}
	}
	return codes
}

// summaryAllowed permits first generation when ready, regeneration while
// summarized, and regeneration during a refinement cycle.
func summaryAllowed(session *entity.Session) bool {
	switch session.Stage {
	case entity.StageReadyForSummary, entity.StageSummarized:
		return true
	case entity.StageQuestioning:
		return session.RefinementCycle > 0
	default:
		return false
	}
}

type stackResult struct {
	doc entity.StackDocument
	err error
}

// generateBundle fans out one goroutine per stack and assembles the bundle.
// Stacks that exhaust the model chain come back as degraded templates; the
// whole call fails only when every stack failed outright.
func (uc *WorkflowUsecase) generateBundle(
	ctx context.Context, session *entity.Session, includeDetails bool,
) (*entity.DocumentBundle, error) {
	results := make([]stackResult, len(entity.AllStackTypes))

	var wg sync.WaitGroup
	for i, stack := range entity.AllStackTypes {
		wg.Add(1)
		go func(i int, stack entity.StackType) {
			defer wg.Done()
			results[i] = uc.generateStack(ctx, session, stack, includeDetails)
		}(i, stack)
	}
	wg.Wait()

	bundle := &entity.DocumentBundle{GeneratedAt: time.Now().UTC()}
	var failures int
	for _, result := range results {
		if result.err != nil {
			failures++
			continue
		}
		bundle.Stacks = append(bundle.Stacks, result.doc)
	}

	if failures == len(entity.AllStackTypes) {
		return nil, fmt.Errorf("all stack documents failed: %w", entity.ErrGenerationFailed)
	}

	bundle.TotalEstimatedEffort = totalEffort(session.Classification)
	bundle.RecommendedTimeline = recommendedTimeline(session.Classification)
	return bundle, nil
}

// generateStack builds one document. Short content triggers one retry with
// an expanded prompt; safety blocks and timeouts fall back to a degraded
// template rather than failing the bundle.
func (uc *WorkflowUsecase) generateStack(
	ctx context.Context, session *entity.Session, stack entity.StackType, includeDetails bool,
) stackResult {
	req := &entity.GenAIStackDocumentRequest{
		StackType:          string(stack),
		ProjectDescription: session.ProjectDescription,
		Classification:     session.Classification,
		Summary:            session.Summary.Text,
		AnsweredQuestions:  session.AnsweredQuestions(),
		IncludeDetails:     includeDetails,
	}

	resp, err := uc.genai.GenerateStackDocument(ctx, req)
	if err == nil && len(resp.Content) < uc.cfg.StackMinContentLength {
		ctxzap.Warn(ctx, "stack document below minimum length, retrying expanded",
			zap.String("stack_type", string(stack)),
			zap.Int("content_length", len(resp.Content)))
		expanded := *req
		expanded.Expanded = true
		if retried, retryErr := uc.genai.GenerateStackDocument(ctx, &expanded); retryErr == nil &&
			len(retried.Content) > len(resp.Content) {
			resp = retried
		}
	}

	if err != nil {
		if errors.Is(err, entity.ErrSafetyBlocked) ||
			errors.Is(err, entity.ErrGenerationTimeout) ||
			errors.Is(err, context.DeadlineExceeded) {
			ctxzap.Warn(ctx, "stack document degraded to template",
				zap.String("stack_type", string(stack)),
				zap.Error(err))
			return stackResult{doc: degradedStackDocument(stack, session)}
		}
		return stackResult{err: fmt.Errorf("generate %s document: %w", stack, err)}
	}

	return stackResult{doc: entity.StackDocument{
		StackType:       stack,
		Title:           resp.Title,
		Content:         resp.Content,
		Technologies:    resp.Technologies,
		EstimatedEffort: resp.EstimatedEffort,
	}}
}

var stackTitles = map[entity.StackType]string{
	entity.StackFrontend: "Documento Técnico - Frontend",
	entity.StackBackend:  "Documento Técnico - Backend",
	entity.StackDatabase: "Documento Técnico - Banco de Dados",
	entity.StackDevOps:   "Documento Técnico - DevOps",
}

// degradedStackDocument is the templated fallback served when generation is
// blocked for a stack. Degraded is set so clients can tell it apart.
func degradedStackDocument(stack entity.StackType, session *entity.Session) entity.StackDocument {
	var content strings.Builder
	content.WriteString("# " + stackTitles[stack] + "\n\n")
	content.WriteString("## Aviso\n")
	content.WriteString("Não foi possível gerar o documento completo para esta camada. ")
	content.WriteString("O conteúdo abaixo é um esqueleto baseado no resumo confirmado.\n\n")
	content.WriteString("## Resumo do Projeto\n")
	if session.Summary != nil {
		content.WriteString(session.Summary.Text + "\n\n")
	}
	content.WriteString("## Próximos Passos\n")
	content.WriteString("- Revisar os requisitos da camada de " + string(stack) + " com a equipe técnica\n")
	content.WriteString("- Gerar novamente este documento mais tarde\n")

	return entity.StackDocument{
		StackType: stack,
		Title:     stackTitles[stack],
		Content:   content.String(),
		Degraded:  true,
	}
}

func bundleDegraded(bundle *entity.DocumentBundle) bool {
	for _, stack := range bundle.Stacks {
		if stack.Degraded {
			return true
		}
	}
	return len(bundle.Stacks) < len(entity.AllStackTypes)
}

// finishDocuments persists the bundle on the session and advances the stage
func (uc *WorkflowUsecase) finishDocuments(
	ctx context.Context, session *entity.Session, bundle *entity.DocumentBundle, fromCache bool,
) (*entity.DocumentResponse, error) {
	session.Documents = bundle
	session.Stage = entity.StageDocumented

	saved, err := uc.sessionRepo.SaveSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	ctxzap.Info(ctx, "documents attached to session",
		zap.String("session_id", session.ID),
		zap.Int("stack_count", len(bundle.Stacks)),
		zap.Bool("from_cache", fromCache))

	return &entity.DocumentResponse{
		SessionID: saved.ID,
		Stage:     saved.Stage,
		FromCache: fromCache,
		Documents: *saved.Documents,
	}, nil
}

func totalEffort(classification *entity.Classification) string {
	if classification == nil {
		return "16-24 semanas de desenvolvimento"
	}
	switch classification.Complexity {
	case "simple":
		return "6-10 semanas de desenvolvimento"
	case "complex", "enterprise":
		return "24-40 semanas de desenvolvimento"
	default:
		return "16-24 semanas de desenvolvimento"
	}
}

func recommendedTimeline(classification *entity.Classification) string {
	if classification == nil {
		return "4-6 meses incluindo testes e deployment"
	}
	switch classification.Complexity {
	case "simple":
		return "2-3 meses incluindo testes e deployment"
	case "complex", "enterprise":
		return "6-10 meses incluindo testes e deployment"
	default:
		return "4-6 meses incluindo testes e deployment"
	}
}
