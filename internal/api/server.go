package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/intakehq/briefing-backend/internal/api/docs"
	"github.com/intakehq/briefing-backend/internal/api/middleware"
	workflowapi "github.com/intakehq/briefing-backend/internal/api/workflow"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(workflowHandler *workflowapi.Handler, apiTokens []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)                  // Recover from panics
	r.Use(chimiddleware.RequestID)                  // Add request ID
	r.Use(middleware.Logger(logger))                // Log requests
	r.Use(middleware.CORS)                          // Handle CORS
	r.Use(chimiddleware.Timeout(240 * time.Second)) // Must outlive the document sync ceiling

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	// Versioned API, bearer-protected
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.BearerAuth(apiTokens))
		workflowapi.RegisterRoutes(r, workflowHandler)
	})

	return r
}
