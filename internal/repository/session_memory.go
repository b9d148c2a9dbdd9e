package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/intakehq/briefing-backend/internal/entity"
)

var _ SessionRepository = &SessionMemory{}

// SessionMemory keeps sessions in process memory with a sliding TTL.
// Intended for local runs and tests; production uses SessionPostgres.
type SessionMemory struct {
	store *gocache.Cache
	ttl   time.Duration
}

func NewSessionMemory(ttl time.Duration) *SessionMemory {
	return &SessionMemory{
		store: gocache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

func (r *SessionMemory) CreateSession(_ context.Context, session *entity.Session) (*entity.Session, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if _, err := uuid.Parse(session.ID); err != nil {
		return nil, fmt.Errorf("invalid session ID: %w", err)
	}

	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	r.store.Set(session.ID, session.Clone(), r.ttl)
	return session.Clone(), nil
}

func (r *SessionMemory) GetSessionByID(_ context.Context, id string) (*entity.Session, error) {
	value, found := r.store.Get(id)
	if !found {
		return nil, entity.ErrSessionNotFound
	}
	session, ok := value.(*entity.Session)
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (r *SessionMemory) SaveSession(_ context.Context, session *entity.Session) (*entity.Session, error) {
	if _, found := r.store.Get(session.ID); !found {
		return nil, entity.ErrSessionNotFound
	}

	session.UpdatedAt = time.Now().UTC()
	// Saving refreshes the TTL so active sessions do not expire mid-flow.
	r.store.Set(session.ID, session.Clone(), r.ttl)
	return session.Clone(), nil
}
