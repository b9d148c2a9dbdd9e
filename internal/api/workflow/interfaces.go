package workflow

import (
	"context"

	"github.com/intakehq/briefing-backend/internal/entity"
)

type WorkflowUsecase interface {
	AnalyzeProject(ctx context.Context, req *entity.AnalyzeRequest) (*entity.AnalyzeResponse, error)
	RespondQuestions(ctx context.Context, req *entity.RespondRequest) (*entity.RespondResponse, error)
	GenerateSummary(ctx context.Context, req *entity.SummaryRequest) (*entity.SummaryResponse, error)
	ConfirmSummary(ctx context.Context, req *entity.ConfirmRequest) (*entity.ConfirmResponse, error)
	GenerateDocuments(ctx context.Context, req *entity.DocumentRequest) (*entity.DocumentResponse, error)
	StartDocumentJob(ctx context.Context, req *entity.DocumentRequest) (*entity.DocumentJobResponse, error)
	GetDocumentJob(ctx context.Context, sessionID string) (*entity.DocumentJobResponse, error)
	GetDocumentBundle(ctx context.Context, sessionID string) (*entity.DocumentBundle, error)
	GetSession(ctx context.Context, sessionID string) (*entity.SessionResponse, error)
	CacheStats(ctx context.Context) *entity.CacheStatsResponse
}
