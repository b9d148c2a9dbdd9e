package response

import (
	"encoding/json"
	"net/http"

	"github.com/intakehq/briefing-backend/internal/entity"
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Can't change response at this point, just log
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// Error writes an error response with a stable error code
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, entity.ErrorResponse{ErrorCode: code, Message: message})
}

// SessionError writes an error response carrying the session it relates to
func SessionError(w http.ResponseWriter, status int, code, message, sessionID string) {
	JSON(w, status, entity.ErrorResponse{ErrorCode: code, Message: message, SessionID: sessionID})
}

// Success writes a success response
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 Created response
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// Accepted writes a 202 Accepted response
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, data)
}
