package coaching

import (
	"context"
	"testing"
	"time"

	"github.com/momentum/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCalendar serves reflections from a fixed set of days.
type fakeCalendar struct {
	days map[string]bool // keyed by YYYY-MM-DD
}

func newFakeCalendar(days ...time.Time) *fakeCalendar {
	c := &fakeCalendar{days: make(map[string]bool)}
	for _, d := range days {
		c.days[d.UTC().Format("2006-01-02")] = true
	}
	return c
}

func (c *fakeCalendar) LatestReflectionDate(ctx context.Context, userID string) (time.Time, error) {
	var latest time.Time
	for key := range c.days {
		d, _ := time.Parse("2006-01-02", key)
		if d.After(latest) {
			latest = d
		}
	}
	if latest.IsZero() {
		return time.Time{}, shared.ErrNotFound
	}
	return latest, nil
}

func (c *fakeCalendar) HasReflectionOn(ctx context.Context, userID string, day time.Time) (bool, error) {
	return c.days[day.UTC().Format("2006-01-02")], nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCurrentStreak(t *testing.T) {
	ctx := context.Background()

	t.Run("no reflections yields zero streak", func(t *testing.T) {
		streak, err := CurrentStreak(ctx, newFakeCalendar(), "user-1")
		require.NoError(t, err)

		assert.Equal(t, 0, streak.Days)
		assert.Nil(t, streak.LastReflectionDate)
	})

	t.Run("single reflection counts one day", func(t *testing.T) {
		cal := newFakeCalendar(day(2025, time.May, 10))

		streak, err := CurrentStreak(ctx, cal, "user-1")
		require.NoError(t, err)

		assert.Equal(t, 1, streak.Days)
		require.NotNil(t, streak.LastReflectionDate)
	})

	t.Run("consecutive days are counted", func(t *testing.T) {
		cal := newFakeCalendar(
			day(2025, time.May, 8),
			day(2025, time.May, 9),
			day(2025, time.May, 10),
		)

		streak, err := CurrentStreak(ctx, cal, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 3, streak.Days)
	})

	t.Run("gap stops the walk", func(t *testing.T) {
		cal := newFakeCalendar(
			day(2025, time.May, 5), // orphaned by the gap on the 6th
			day(2025, time.May, 7),
			day(2025, time.May, 8),
		)

		streak, err := CurrentStreak(ctx, cal, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 2, streak.Days)
	})

	t.Run("walk is bounded", func(t *testing.T) {
		days := make([]time.Time, 0, MaxStreakDays+30)
		cursor := day(2025, time.January, 1)
		for i := 0; i < MaxStreakDays+30; i++ {
			days = append(days, cursor)
			cursor = cursor.AddDate(0, 0, 1)
		}

		streak, err := CurrentStreak(ctx, newFakeCalendar(days...), "user-1")
		require.NoError(t, err)
		assert.Equal(t, MaxStreakDays, streak.Days)
	})

	t.Run("rejects empty user ID", func(t *testing.T) {
		_, err := CurrentStreak(ctx, newFakeCalendar(), "")
		assert.Error(t, err)
	})
}
