package coaching

import (
	"context"
	"testing"
	"time"

	"github.com/momentum/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCalendar struct {
	mock.Mock
}

func (m *mockCalendar) LatestReflectionDate(ctx context.Context, userID string) (time.Time, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *mockCalendar) HasReflectionOn(ctx context.Context, userID string, day time.Time) (bool, error) {
	args := m.Called(ctx, userID, day)
	return args.Bool(0), args.Error(1)
}

func TestGetStreak(t *testing.T) {
	ctx := context.Background()

	t.Run("no reflections yields zero streak", func(t *testing.T) {
		calendar := &mockCalendar{}
		calendar.On("LatestReflectionDate", mock.Anything, "u1").
			Return(time.Time{}, shared.ErrNotFound)

		svc := NewStreakService(calendar, zap.NewNop())
		streak, err := svc.GetStreak(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 0, streak.Days)
		assert.Nil(t, streak.LastReflectionDate)
	})

	t.Run("counts consecutive days back from latest", func(t *testing.T) {
		latest := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)

		calendar := &mockCalendar{}
		calendar.On("LatestReflectionDate", mock.Anything, "u1").
			Return(latest, nil)
		calendar.On("HasReflectionOn", mock.Anything, "u1", latest).Return(true, nil)
		calendar.On("HasReflectionOn", mock.Anything, "u1", latest.AddDate(0, 0, -1)).Return(true, nil)
		calendar.On("HasReflectionOn", mock.Anything, "u1", latest.AddDate(0, 0, -2)).Return(false, nil)

		svc := NewStreakService(calendar, zap.NewNop())
		streak, err := svc.GetStreak(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 2, streak.Days)
		require.NotNil(t, streak.LastReflectionDate)
		assert.True(t, streak.LastReflectionDate.Equal(latest))
	})

	t.Run("calendar errors propagate", func(t *testing.T) {
		calendar := &mockCalendar{}
		calendar.On("LatestReflectionDate", mock.Anything, "u1").
			Return(time.Time{}, assert.AnError)

		svc := NewStreakService(calendar, zap.NewNop())
		_, err := svc.GetStreak(ctx, "u1")
		assert.Error(t, err)
	})
}
