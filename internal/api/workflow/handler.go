package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/intakehq/briefing-backend/internal/entity"
	"github.com/intakehq/briefing-backend/internal/pkg/formatter"
	"github.com/intakehq/briefing-backend/internal/pkg/logger"
	"github.com/intakehq/briefing-backend/internal/pkg/response"
)

type Handler struct {
	usecase WorkflowUsecase
}

func NewHandler(usecase WorkflowUsecase) *Handler {
	return &Handler{
		usecase: usecase,
	}
}

// Analyze handles POST /v1/project/analyze - Start a new intake session
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Analyze")

	var req entity.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, entity.CodeValidationError, "invalid request body")
		return
	}

	resp, err := h.usecase.AnalyzeProject(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err, "")
		return
	}

	ctxzap.Info(ctx, "project analyzed", zap.String("session_id", resp.SessionID))
	response.Created(w, resp)
}

// Respond handles POST /v1/questions/respond - Submit answers
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Respond")

	var req entity.RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, entity.CodeValidationError, "invalid request body")
		return
	}

	ctx = logger.WithSession(ctx, req.SessionID)

	resp, err := h.usecase.RespondQuestions(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err, req.SessionID)
		return
	}

	response.Success(w, resp)
}

// GenerateSummary handles POST /v1/summary/generate
func (h *Handler) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "GenerateSummary")

	var req entity.SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, entity.CodeValidationError, "invalid request body")
		return
	}

	ctx = logger.WithSession(ctx, req.SessionID)

	resp, err := h.usecase.GenerateSummary(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err, req.SessionID)
		return
	}

	response.Success(w, resp)
}

// ConfirmSummary handles POST /v1/summary/confirm
func (h *Handler) ConfirmSummary(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ConfirmSummary")

	var req entity.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, entity.CodeValidationError, "invalid request body")
		return
	}

	ctx = logger.WithSession(ctx, req.SessionID)

	resp, err := h.usecase.ConfirmSummary(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err, req.SessionID)
		return
	}

	response.Success(w, resp)
}

// GenerateDocuments handles POST /v1/documents/generate - Synchronous generation
func (h *Handler) GenerateDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "GenerateDocuments")

	var req entity.DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, entity.CodeValidationError, "invalid request body")
		return
	}

	ctx = logger.WithSession(ctx, req.SessionID)

	resp, err := h.usecase.GenerateDocuments(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err, req.SessionID)
		return
	}

	response.Success(w, resp)
}

// StartDocumentJob handles POST /v1/documents/generate/async
func (h *Handler) StartDocumentJob(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "StartDocumentJob")

	var req entity.DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, entity.CodeValidationError, "invalid request body")
		return
	}

	ctx = logger.WithSession(ctx, req.SessionID)

	resp, err := h.usecase.StartDocumentJob(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err, req.SessionID)
		return
	}

	response.Accepted(w, resp)
}

// GetDocumentJob handles GET /v1/documents/status/{session_id}
func (h *Handler) GetDocumentJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "session_id")

	ctx = logger.WithSession(logger.WithAction(ctx, "GetDocumentJob"), sessionID)

	resp, err := h.usecase.GetDocumentJob(ctx, sessionID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err, sessionID)
		return
	}

	response.Success(w, resp)
}

// ExportDocuments handles GET /v1/documents/{session_id}/export - Download
// the document bundle in the requested format
func (h *Handler) ExportDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "session_id")

	ctx = logger.WithSession(logger.WithAction(ctx, "ExportDocuments"), sessionID)

	formatParam := r.URL.Query().Get("format")
	if formatParam == "" {
		formatParam = "markdown"
	}

	format := entity.ResultFormat(formatParam)
	if !format.IsValid() {
		ctxzap.Warn(ctx, "invalid format parameter", zap.String("format", formatParam))
		response.Error(w, http.StatusBadRequest, entity.CodeValidationError,
			"format must be one of: markdown, json, docx, pdf")
		return
	}

	bundle, err := h.usecase.GetDocumentBundle(ctx, sessionID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err, sessionID)
		return
	}

	factory := formatter.NewFactory()
	fmtr, err := factory.Create(format)
	if err != nil {
		ctxzap.Error(ctx, "format not implemented", zap.Error(err))
		response.Error(w, http.StatusNotImplemented, entity.CodeValidationError, "format not implemented")
		return
	}

	formatted, err := fmtr.Format(bundle)
	if err != nil {
		ctxzap.Error(ctx, "failed to format documents", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, entity.CodeInternalError, "failed to format documents")
		return
	}

	ctxzap.Info(ctx, "documents exported", zap.String("format", string(format)))
	w.Header().Set("Content-Type", fmtr.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"documents-%s%s\"", sessionID, fmtr.FileExtension()))
	w.WriteHeader(http.StatusOK)
	w.Write(formatted)
}

// GetSession handles GET /v1/sessions/{session_id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "session_id")

	ctx = logger.WithSession(logger.WithAction(ctx, "GetSession"), sessionID)

	resp, err := h.usecase.GetSession(ctx, sessionID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err, sessionID)
		return
	}

	response.Success(w, resp)
}

// CacheStats handles GET /v1/cache/stats
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CacheStats")
	response.Success(w, h.usecase.CacheStats(ctx))
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error, sessionID string) {
	ctxzap.Error(ctx, "usecase error", zap.Error(err))

	switch {
	case errors.Is(err, entity.ErrSessionNotFound):
		response.SessionError(w, http.StatusNotFound, entity.CodeSessionNotFound, err.Error(), sessionID)
	case errors.Is(err, entity.ErrJobNotFound):
		response.SessionError(w, http.StatusNotFound, entity.CodeJobNotFound, err.Error(), sessionID)
	case errors.Is(err, entity.ErrMissingField),
		errors.Is(err, entity.ErrInvalidParameter),
		errors.Is(err, entity.ErrDescriptionLength):
		response.SessionError(w, http.StatusBadRequest, entity.CodeValidationError, err.Error(), sessionID)
	case errors.Is(err, entity.ErrInvalidStage),
		errors.Is(err, entity.ErrNotReady),
		errors.Is(err, entity.ErrNoDocuments):
		response.SessionError(w, http.StatusConflict, entity.CodeInvalidState, err.Error(), sessionID)
	case errors.Is(err, entity.ErrJobAlreadyRunning):
		response.SessionError(w, http.StatusConflict, entity.CodeJobConflict, err.Error(), sessionID)
	case errors.Is(err, entity.ErrSafetyBlocked):
		response.SessionError(w, http.StatusUnprocessableEntity, entity.CodeSafetyBlocked, err.Error(), sessionID)
	case errors.Is(err, entity.ErrGenerationTimeout):
		response.SessionError(w, http.StatusGatewayTimeout, entity.CodeTimeout, err.Error(), sessionID)
	case errors.Is(err, entity.ErrGenerationFailed):
		response.SessionError(w, http.StatusBadGateway, entity.CodeGenerationFailed, err.Error(), sessionID)
	default:
		response.SessionError(w, http.StatusInternalServerError, entity.CodeInternalError, "internal server error", sessionID)
	}
}
