package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/momentum/backend/internal/domain/shared"
	"github.com/momentum/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedReflection(t *testing.T, db *gorm.DB, userID string, entryDate time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.ReflectionModel{
		ID:        uuid.New(),
		UserID:    userID,
		EntryDate: entryDate,
		Content:   "test entry",
		CreatedAt: entryDate,
		UpdatedAt: entryDate,
	}).Error)
}

func TestLatestReflectionDate(t *testing.T) {
	ctx := context.Background()

	t.Run("no reflections returns not found", func(t *testing.T) {
		repo := NewGormReflectionRepository(setupTestDB(t))

		_, err := repo.LatestReflectionDate(ctx, "user-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("returns most recent entry", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormReflectionRepository(db)

		seedReflection(t, db, "user-1", time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC))
		seedReflection(t, db, "user-1", time.Date(2025, 6, 12, 21, 30, 0, 0, time.UTC))
		seedReflection(t, db, "user-2", time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC))

		latest, err := repo.LatestReflectionDate(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 12, latest.Day())
		assert.Equal(t, time.June, latest.Month())
	})
}

func TestHasReflectionOn(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormReflectionRepository(db)

	seedReflection(t, db, "user-1", time.Date(2025, 6, 10, 23, 45, 0, 0, time.UTC))

	t.Run("matches any time within the day", func(t *testing.T) {
		ok, err := repo.HasReflectionOn(ctx, "user-1", time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("adjacent day does not match", func(t *testing.T) {
		ok, err := repo.HasReflectionOn(ctx, "user-1", time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("other user does not match", func(t *testing.T) {
		ok, err := repo.HasReflectionOn(ctx, "user-2", time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
