package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/intakehq/briefing-backend/internal/config"
	"github.com/intakehq/briefing-backend/internal/entity"
	"github.com/intakehq/briefing-backend/internal/integration/common"
	pkghttp "github.com/intakehq/briefing-backend/pkg/http"
)

const (
	finishReasonStop   = "stop"
	finishReasonSafety = "safety"
	finishReasonLength = "length"
)

// generateRequest is the envelope sent to the generation service. Payload
// carries the operation-specific request body.
type generateRequest struct {
	Model   string `json:"model"`
	Payload any    `json:"payload"`
}

type generateResponse struct {
	FinishReason string          `json:"finish_reason"`
	BlockReason  string          `json:"block_reason,omitempty"`
	Result       json.RawMessage `json:"result"`
}

type Connector struct {
	config    config.GenAIConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.GenAIConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// Classify derives project type, complexity and domain from the description
func (c *Connector) Classify(ctx context.Context, req *entity.GenAIClassifyRequest) (
	*entity.GenAIClassifyResponse, error,
) {
	ctxzap.Info(ctx, "classifying project via generation service")

	var resp entity.GenAIClassifyResponse
	if err := c.generate(ctx, c.config.ClassifyEndpoint, req, &resp); err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "project classified",
		zap.String("type", resp.Type),
		zap.String("complexity", resp.Complexity),
		zap.Float64("confidence", resp.Confidence))

	return &resp, nil
}

// GenerateQuestionBatch generates the next batch of intake questions
func (c *Connector) GenerateQuestionBatch(ctx context.Context, req *entity.GenAIQuestionBatchRequest) (
	*entity.GenAIQuestionBatchResponse, error,
) {
	ctxzap.Info(ctx, "generating question batch via generation service")

	var resp entity.GenAIQuestionBatchResponse
	if err := c.generate(ctx, c.config.QuestionBatchEndpoint, req, &resp); err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "question batch generated", zap.Int("question_count", len(resp.Questions)))

	return &resp, nil
}

// GenerateRefinementQuestions generates targeted questions from rejection feedback
func (c *Connector) GenerateRefinementQuestions(ctx context.Context, req *entity.GenAIRefinementRequest) (
	*entity.GenAIRefinementResponse, error,
) {
	ctxzap.Info(ctx, "generating refinement questions via generation service")

	var resp entity.GenAIRefinementResponse
	if err := c.generate(ctx, c.config.RefinementEndpoint, req, &resp); err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "refinement questions generated", zap.Int("question_count", len(resp.Questions)))

	return &resp, nil
}

// GenerateSummary generates a project summary from the collected answers
func (c *Connector) GenerateSummary(ctx context.Context, req *entity.GenAISummaryRequest) (
	*entity.GenAISummaryResponse, error,
) {
	ctxzap.Info(ctx, "generating summary via generation service")

	var resp entity.GenAISummaryResponse
	if err := c.generate(ctx, c.config.SummaryEndpoint, req, &resp); err != nil {
		return nil, err
	}

	if resp.Text == "" {
		return nil, fmt.Errorf("invalid summary response: empty text field: %w", entity.ErrGenerationFailed)
	}

	ctxzap.Info(ctx, "summary generated", zap.Int("text_length", len(resp.Text)))

	return &resp, nil
}

// GenerateStackDocument generates one technical document for a stack
func (c *Connector) GenerateStackDocument(ctx context.Context, req *entity.GenAIStackDocumentRequest) (
	*entity.GenAIStackDocumentResponse, error,
) {
	ctxzap.Info(ctx, "generating stack document via generation service",
		zap.String("stack_type", req.StackType))

	var resp entity.GenAIStackDocumentResponse
	if err := c.generate(ctx, c.config.StackDocumentEndpoint, req, &resp); err != nil {
		return nil, err
	}

	if resp.Content == "" {
		return nil, fmt.Errorf("invalid stack document response: empty content: %w", entity.ErrGenerationFailed)
	}

	ctxzap.Info(ctx, "stack document generated",
		zap.String("stack_type", req.StackType),
		zap.Int("content_length", len(resp.Content)))

	return &resp, nil
}

// generate walks the model fallback chain. Transport failures are retried on
// the same model; safety blocks and timeouts move to the next model. The
// returned error classifies the exhausted chain by its last failure.
func (c *Connector) generate(ctx context.Context, endpoint string, payload, out any) error {
	models := append([]string{c.config.PrimaryModel}, c.config.FallbackModels...)

	var lastErr error
	for _, model := range models {
		envelope, err := c.callModel(ctx, endpoint, model, payload)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				ctxzap.Warn(ctx, "model timed out, trying next model",
					zap.String("model", model))
				lastErr = entity.ErrGenerationTimeout
				continue
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			lastErr = fmt.Errorf("model %s: %w", model, err)
			continue
		}

		switch envelope.FinishReason {
		case finishReasonSafety:
			ctxzap.Warn(ctx, "model response safety-blocked, trying next model",
				zap.String("model", model),
				zap.String("block_reason", envelope.BlockReason))
			lastErr = entity.ErrSafetyBlocked
			continue
		case finishReasonStop, finishReasonLength, "":
			if err := json.Unmarshal(envelope.Result, out); err != nil {
				return fmt.Errorf("decode generation result: %w", err)
			}
			return nil
		default:
			lastErr = fmt.Errorf("model %s: unexpected finish reason %q: %w",
				model, envelope.FinishReason, entity.ErrGenerationFailed)
			continue
		}
	}

	if lastErr == nil {
		lastErr = entity.ErrGenerationFailed
	}
	if errors.Is(lastErr, entity.ErrSafetyBlocked) || errors.Is(lastErr, entity.ErrGenerationTimeout) {
		return lastErr
	}
	return fmt.Errorf("all models exhausted: %w", errors.Join(lastErr, entity.ErrGenerationFailed))
}

func (c *Connector) callModel(ctx context.Context, endpoint, model string, payload any) (*generateResponse, error) {
	req := &generateRequest{Model: model, Payload: payload}

	var envelope generateResponse
	err := retry.Do(
		func() error {
			return c.connector.DoRequest(ctx, http.MethodPost, endpoint, req, &envelope)
		},
		append(
			c.config.Retry.ToRetryOptions(),
			retry.Context(ctx),
			retry.RetryIf(isRetryable),
			retry.LastErrorOnly(true),
		)...,
	)
	if err != nil {
		return nil, err
	}
	return &envelope, nil
}

// isRetryable keeps retries to transient transport failures. Client errors
// and safety decisions must not be replayed against the same model.
func isRetryable(err error) bool {
	var netErr *pkghttp.NetworkError
	if errors.As(err, &netErr) {
		return !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled)
	}
	var httpErr *pkghttp.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
