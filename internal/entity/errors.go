package entity

import "errors"

// Domain errors
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidStage    = errors.New("wrong action for current session stage")
	ErrNotReady        = errors.New("session is not ready for summary")
	ErrNoDocuments     = errors.New("documents not generated yet")

	// Validation errors
	ErrMissingField      = errors.New("required field is missing")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrDescriptionLength = errors.New("project description length out of bounds")

	// Generation errors
	ErrGenerationFailed  = errors.New("content generation failed")
	ErrSafetyBlocked     = errors.New("content generation blocked by safety filters")
	ErrGenerationTimeout = errors.New("content generation timed out")

	// Job errors
	ErrJobNotFound       = errors.New("document job not found")
	ErrJobAlreadyRunning = errors.New("document job already running for session")
)

// Stable error codes returned in API error bodies.
const (
	CodeValidationError  = "VALIDATION_ERROR"
	CodeInvalidState     = "INVALID_STATE"
	CodeSessionNotFound  = "SESSION_NOT_FOUND"
	CodeGenerationFailed = "GENERATION_FAILED"
	CodeSafetyBlocked    = "SAFETY_BLOCKED"
	CodeTimeout          = "TIMEOUT"
	CodeJobNotFound      = "JOB_NOT_FOUND"
	CodeJobConflict      = "JOB_CONFLICT"
	CodeInternalError    = "INTERNAL_ERROR"
)
