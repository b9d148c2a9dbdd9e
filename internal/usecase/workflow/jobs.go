package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/intakehq/briefing-backend/internal/entity"
	"github.com/intakehq/briefing-backend/internal/pkg/logger"
)

// StartDocumentJob kicks off background document generation and returns
// immediately. One job per session at a time.
func (uc *WorkflowUsecase) StartDocumentJob(ctx context.Context, req *entity.DocumentRequest) (*entity.DocumentJobResponse, error) {
	if err := uc.validator.ValidateDocumentRequest(req); err != nil {
		return nil, err
	}

	session, err := uc.sessionRepo.GetSessionByID(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.Stage.Rank() < entity.StageConfirmed.Rank() {
		return nil, fmt.Errorf("%w: stage '%s'", entity.ErrInvalidStage, session.Stage)
	}

	if existing, found := uc.jobs.Get(req.SessionID); found {
		job := existing.(*entity.DocumentJob)
		if job.Status == entity.JobStatusPending || job.Status == entity.JobStatusProcessing {
			return nil, entity.ErrJobAlreadyRunning
		}
	}

	job := entity.DocumentJob{
		SessionID:   req.SessionID,
		Status:      entity.JobStatusPending,
		CallbackURL: req.CallbackURL,
		StartedAt:   time.Now().UTC(),
	}
	uc.storeJob(job)

	// The job outlives the HTTP request but keeps its logger and values.
	go uc.runDocumentJob(context.WithoutCancel(ctx), job, req)

	ctxzap.Info(ctx, "document job started", zap.String("session_id", req.SessionID))

	return jobResponse(&job), nil
}

// GetDocumentJob reports the status of a session's background job
func (uc *WorkflowUsecase) GetDocumentJob(_ context.Context, sessionID string) (*entity.DocumentJobResponse, error) {
	value, found := uc.jobs.Get(sessionID)
	if !found {
		return nil, entity.ErrJobNotFound
	}
	return jobResponse(value.(*entity.DocumentJob)), nil
}

// storeJob publishes an immutable snapshot of the job. Readers polling
// GetDocumentJob only ever see fully written transitions.
func (uc *WorkflowUsecase) storeJob(job entity.DocumentJob) {
	uc.jobs.SetDefault(job.SessionID, &job)
}

func (uc *WorkflowUsecase) runDocumentJob(ctx context.Context, job entity.DocumentJob, req *entity.DocumentRequest) {
	ctx = logger.AddFields(ctx,
		zap.String("action", "DocumentJob"),
		zap.String("session_id", job.SessionID),
	)

	job.Status = entity.JobStatusProcessing
	uc.storeJob(job)

	resp, err := uc.GenerateDocuments(ctx, req)

	finished := time.Now().UTC()
	job.FinishedAt = &finished

	if err != nil {
		job.Status = entity.JobStatusFailed
		job.Error = err.Error()
		uc.storeJob(job)

		ctxzap.Error(ctx, "document job failed", zap.Error(err))

		if job.CallbackURL != "" {
			uc.callbacks.SendDocumentsError(ctx, job.CallbackURL, job.SessionID, err.Error())
		}
		return
	}

	job.Status = entity.JobStatusCompleted
	job.Result = &resp.Documents
	uc.storeJob(job)

	ctxzap.Info(ctx, "document job completed",
		zap.Int("stack_count", len(resp.Documents.Stacks)))

	if job.CallbackURL != "" {
		uc.callbacks.SendDocumentsReady(ctx, job.CallbackURL, job.SessionID, &resp.Documents)
	}
}

func jobResponse(job *entity.DocumentJob) *entity.DocumentJobResponse {
	return &entity.DocumentJobResponse{
		SessionID:  job.SessionID,
		Status:     job.Status,
		Error:      job.Error,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
		Documents:  job.Result,
	}
}
