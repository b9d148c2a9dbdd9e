package workflow

import (
	"context"

	"github.com/intakehq/briefing-backend/internal/entity"
)

type GenAIConnector interface {
	Classify(ctx context.Context, req *entity.GenAIClassifyRequest) (*entity.GenAIClassifyResponse, error)
	GenerateQuestionBatch(ctx context.Context, req *entity.GenAIQuestionBatchRequest) (*entity.GenAIQuestionBatchResponse, error)
	GenerateRefinementQuestions(ctx context.Context, req *entity.GenAIRefinementRequest) (*entity.GenAIRefinementResponse, error)
	GenerateSummary(ctx context.Context, req *entity.GenAISummaryRequest) (*entity.GenAISummaryResponse, error)
	GenerateStackDocument(ctx context.Context, req *entity.GenAIStackDocumentRequest) (*entity.GenAIStackDocumentResponse, error)
}

type CallbackConnector interface {
	SendDocumentsReady(ctx context.Context, callbackURL, sessionID string, bundle *entity.DocumentBundle)
	SendDocumentsError(ctx context.Context, callbackURL, sessionID, message string)
}
