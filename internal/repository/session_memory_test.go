package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intakehq/briefing-backend/internal/entity"
)

func TestSessionMemoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionMemory(time.Hour)

	created, err := repo.CreateSession(ctx, &entity.Session{
		Stage:              entity.StageCreated,
		ProjectDescription: "an inventory tracking platform for small retailers",
		Answers:            map[string]entity.Answer{},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetSessionByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, entity.StageCreated, got.Stage)
}

func TestSessionMemoryGetMissing(t *testing.T) {
	repo := NewSessionMemory(time.Hour)
	_, err := repo.GetSessionByID(context.Background(), "1f6a5c2e-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestSessionMemorySave(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionMemory(time.Hour)

	created, err := repo.CreateSession(ctx, &entity.Session{
		Stage:   entity.StageCreated,
		Answers: map[string]entity.Answer{},
	})
	require.NoError(t, err)

	created.Stage = entity.StageQuestioning
	saved, err := repo.SaveSession(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, entity.StageQuestioning, saved.Stage)
	assert.False(t, saved.UpdatedAt.Before(saved.CreatedAt))

	got, err := repo.GetSessionByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StageQuestioning, got.Stage)
}

func TestSessionMemorySaveMissing(t *testing.T) {
	repo := NewSessionMemory(time.Hour)
	_, err := repo.SaveSession(context.Background(), &entity.Session{
		ID: "1f6a5c2e-0000-0000-0000-000000000000",
	})
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestSessionMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionMemory(time.Hour)

	created, err := repo.CreateSession(ctx, &entity.Session{
		Stage:   entity.StageQuestioning,
		Answers: map[string]entity.Answer{},
	})
	require.NoError(t, err)

	// Mutating the returned session must not leak into the stored copy.
	created.Answers["Q001"] = entity.Answer{QuestionCode: "Q001"}

	got, err := repo.GetSessionByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Answers)
}

func TestSessionMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionMemory(20 * time.Millisecond)

	created, err := repo.CreateSession(ctx, &entity.Session{
		Stage:   entity.StageCreated,
		Answers: map[string]entity.Answer{},
	})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = repo.GetSessionByID(ctx, created.ID)
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}
