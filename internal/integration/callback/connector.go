package callback

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/intakehq/briefing-backend/internal/config"
	"github.com/intakehq/briefing-backend/internal/entity"
	"github.com/intakehq/briefing-backend/internal/integration/common"
	pkghttp "github.com/intakehq/briefing-backend/pkg/http"
)

type EventType string

const (
	EventTypeDocumentsReady EventType = "documents_ready"
	EventTypeDocumentsError EventType = "documents_error"
)

// Event is the payload posted to a client-supplied callback URL when an
// async document job finishes.
type Event struct {
	Event     EventType `json:"event"`
	SessionID string    `json:"session_id"`
	Timestamp string    `json:"timestamp,omitempty"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type Connector struct {
	config    config.CallbackConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.CallbackConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// SendDocumentsReady notifies the callback URL that documents are available
func (c *Connector) SendDocumentsReady(ctx context.Context, callbackURL, sessionID string, bundle *entity.DocumentBundle) {
	err := c.Send(ctx, callbackURL, &Event{
		Event:     EventTypeDocumentsReady,
		SessionID: sessionID,
		Data:      bundle,
	})
	if err != nil {
		ctxzap.Error(ctx, "failed to send documents ready callback", zap.Error(err))
	}
}

// SendDocumentsError notifies the callback URL that document generation failed
func (c *Connector) SendDocumentsError(ctx context.Context, callbackURL, sessionID, message string) {
	err := c.Send(ctx, callbackURL, &Event{
		Event:     EventTypeDocumentsError,
		SessionID: sessionID,
		Error:     message,
	})
	if err != nil {
		ctxzap.Error(ctx, "failed to send documents error callback", zap.Error(err))
	}
}

func (c *Connector) Send(ctx context.Context, callbackURL string, event *Event) error {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	ctxzap.Debug(ctx, "sending callback event",
		zap.String("event_type", string(event.Event)),
		zap.String("callback_url", callbackURL),
		zap.String("session_id", event.SessionID),
	)

	opts := []pkghttp.RequestOpt{
		pkghttp.WithHeader("X-Session-ID", event.SessionID),
		pkghttp.WithURL(callbackURL),
	}

	err := c.connector.DoRequest(ctx, http.MethodPost, "", event, nil, opts...)
	if err != nil {
		return fmt.Errorf("failed to send callback, event_type: %s, url: %s, error: %w", string(event.Event), callbackURL, err)
	}

	ctxzap.Info(ctx, "callback sent successfully",
		zap.String("event_type", string(event.Event)),
		zap.String("callback_url", callbackURL),
		zap.String("session_id", event.SessionID),
	)
	return nil
}
