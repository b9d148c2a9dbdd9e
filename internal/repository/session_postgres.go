package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/intakehq/briefing-backend/internal/entity"
)

var _ SessionRepository = &SessionPostgres{}

// SessionPostgres implements SessionRepository using PostgreSQL. The full
// session aggregate lives in a JSONB payload column; id, stage and the
// timestamps are kept as plain columns for querying and expiry.
type SessionPostgres struct {
	db  *pgxpool.Pool
	ttl time.Duration
}

func NewSessionPostgres(db *pgxpool.Pool, ttl time.Duration) *SessionPostgres {
	return &SessionPostgres{db: db, ttl: ttl}
}

func (r *SessionPostgres) CreateSession(ctx context.Context, session *entity.Session) (*entity.Session, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	sessionID, err := uuid.Parse(session.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid session ID: %w", err)
	}

	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO sessions (id, stage, payload, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $4, $5)`,
		pgtype.UUID{Bytes: sessionID, Valid: true},
		string(session.Stage),
		payload,
		now,
		now.Add(r.ttl),
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return session.Clone(), nil
}

func (r *SessionPostgres) GetSessionByID(ctx context.Context, id string) (*entity.Session, error) {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		// A malformed id cannot reference any stored session.
		return nil, fmt.Errorf("%w: malformed session id %q", entity.ErrSessionNotFound, id)
	}

	var payload []byte
	err = r.db.QueryRow(ctx, `
		SELECT payload FROM sessions
		WHERE id = $1 AND expires_at > now()`,
		pgtype.UUID{Bytes: sessionID, Valid: true},
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	session := &entity.Session{}
	if err := json.Unmarshal(payload, session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	return session, nil
}

func (r *SessionPostgres) SaveSession(ctx context.Context, session *entity.Session) (*entity.Session, error) {
	sessionID, err := uuid.Parse(session.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed session id %q", entity.ErrSessionNotFound, session.ID)
	}

	session.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	// Saving refreshes expires_at so active sessions do not expire mid-flow.
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET stage = $2, payload = $3, updated_at = $4, expires_at = $5
		WHERE id = $1 AND expires_at > now()`,
		pgtype.UUID{Bytes: sessionID, Valid: true},
		string(session.Stage),
		payload,
		session.UpdatedAt,
		session.UpdatedAt.Add(r.ttl),
	)
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, entity.ErrSessionNotFound
	}

	return session.Clone(), nil
}

// DeleteExpiredSessions removes rows past their TTL. Reads already filter on
// expires_at, so this is housekeeping only.
func (r *SessionPostgres) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// StartCleanup purges expired rows every interval until ctx is cancelled.
func (r *SessionPostgres) StartCleanup(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := r.DeleteExpiredSessions(ctx)
				if err != nil {
					logger.Warn("session cleanup failed", zap.Error(err))
					continue
				}
				if deleted > 0 {
					logger.Info("expired sessions removed", zap.Int64("count", deleted))
				}
			}
		}
	}()
}
