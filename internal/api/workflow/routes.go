package workflow

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers intake workflow routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/project/analyze", h.Analyze)
	r.Post("/questions/respond", h.Respond)
	r.Post("/summary/generate", h.GenerateSummary)
	r.Post("/summary/confirm", h.ConfirmSummary)

	r.Route("/documents", func(r chi.Router) {
		r.Post("/generate", h.GenerateDocuments)
		r.Post("/generate/async", h.StartDocumentJob)
		r.Get("/status/{session_id}", h.GetDocumentJob)
		r.Get("/{session_id}/export", h.ExportDocuments)
	})

	r.Get("/sessions/{session_id}", h.GetSession)
	r.Get("/cache/stats", h.CacheStats)
}
