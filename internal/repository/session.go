package repository

import (
	"context"

	"github.com/intakehq/briefing-backend/internal/entity"
)

// SessionRepository defines the interface for session persistence.
// Implementations return copies; callers mutate a session and persist it
// back through SaveSession.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *entity.Session) (*entity.Session, error)
	GetSessionByID(ctx context.Context, id string) (*entity.Session, error)
	SaveSession(ctx context.Context, session *entity.Session) (*entity.Session, error)
}
