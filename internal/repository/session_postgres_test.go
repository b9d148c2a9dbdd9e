package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/intakehq/briefing-backend/internal/entity"
)

// Malformed session ids cannot match any row, so they surface as the same
// not-found error the memory backend reports.
func TestSessionPostgresGetMalformedID(t *testing.T) {
	repo := NewSessionPostgres(nil, time.Hour)

	_, err := repo.GetSessionByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestSessionPostgresSaveMalformedID(t *testing.T) {
	repo := NewSessionPostgres(nil, time.Hour)

	_, err := repo.SaveSession(context.Background(), &entity.Session{ID: "not-a-uuid"})
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}
