//go:build integration_test || all_tests

package goals

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/mkovacevic/peakform/internal/db"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepoSetup(t *testing.T) (*Repo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postgres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "peakform_tests",
		TracingEnabled: false,
	})
	require.NoError(t, err)

	return NewRepo(dbPool), func() {
		dbPool.Close()
	}
}

func randomGoal(userID uuid.UUID) Goal {
	return Goal{
		UserID:         userID,
		Title:          gofakeit.Sentence(4),
		Description:    gofakeit.Sentence(10),
		Specific:       gofakeit.Sentence(6),
		Measurable:     gofakeit.Sentence(6),
		Achievable:     gofakeit.Sentence(6),
		Relevant:       gofakeit.Sentence(6),
		Category:       CategoryTraining,
		Priority:       PriorityMedium,
		Status:         StatusActive,
		TargetValue:    float64(gofakeit.Number(10, 500)),
		Unit:           "kg",
		MotivationNote: gofakeit.Quote(),
		StartDate:      time.Now(),
	}
}

func TestRepo_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	userID := uuid.New()
	created, err := repo.Create(ctx, randomGoal(userID))
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, 1, created.Version)

	fetched, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, fetched.Title)
	assert.Equal(t, created.TargetValue, fetched.TargetValue)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrGoalNotFound)
}

func TestRepo_ApplyUpdate_DuplicateAndConflict(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	userID := uuid.New()
	created, err := repo.Create(ctx, randomGoal(userID))
	require.NoError(t, err)
	defer func() {
		_ = repo.Delete(ctx, created.ID)
	}()

	event := ProgressEvent{
		ID:        uuid.New(),
		GoalID:    created.ID,
		Value:     10,
		Source:    SourceManual,
		Timestamp: time.Now(),
	}

	updated := *created
	updated.CurrentValue = event.Value
	updated.RecalcProgress()
	require.NoError(t, repo.ApplyUpdate(ctx, &updated, created.Version, event))
	assert.Equal(t, created.Version+1, updated.Version)

	// same event id again
	replayed := updated
	err = repo.ApplyUpdate(ctx, &replayed, updated.Version, event)
	assert.ErrorIs(t, err, ErrDuplicateEvent)

	// stale version
	stale := updated
	err = repo.ApplyUpdate(ctx, &stale, created.Version, ProgressEvent{
		ID:        uuid.New(),
		GoalID:    created.ID,
		Value:     5,
		Source:    SourceManual,
		Timestamp: time.Now(),
	})
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestRepo_Counts(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	userID := uuid.New()
	g1 := randomGoal(userID)
	g1.Status = StatusCompleted
	g1.BestStreak = 9
	g2 := randomGoal(userID)

	created1, err := repo.Create(ctx, g1)
	require.NoError(t, err)
	created2, err := repo.Create(ctx, g2)
	require.NoError(t, err)
	defer func() {
		_ = repo.Delete(ctx, created1.ID)
		_ = repo.Delete(ctx, created2.ID)
	}()

	counts, err := repo.Counts(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Total)
	assert.Equal(t, 1, counts.Completed)
	assert.Equal(t, 9, counts.MaxBestStreak)
}
