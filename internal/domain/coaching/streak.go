package coaching

import (
	"context"
	"errors"
	"time"

	"github.com/momentum/backend/internal/domain/shared"
)

// MaxStreakDays bounds the backward date walk. A year-long streak is the
// longest the product surfaces; the cap also keeps the loop finite against
// pathological data.
const MaxStreakDays = 366

// Streak is the result of a streak computation.
type Streak struct {
	UserID             string
	Days               int
	LastReflectionDate *time.Time // nil when the user has no reflections
}

// CurrentStreak walks backward one day at a time from the user's most recent
// reflection, counting consecutive days with a reflection. A day without a
// reflection ends the walk. A user with no reflections has a zero streak.
func CurrentStreak(ctx context.Context, calendar ReflectionCalendar, userID string) (*Streak, error) {
	if userID == "" {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}

	latest, err := calendar.LatestReflectionDate(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &Streak{UserID: userID, Days: 0}, nil
		}
		return nil, err
	}

	cursor := truncateToDay(latest)
	days := 0
	for days < MaxStreakDays {
		exists, err := calendar.HasReflectionOn(ctx, userID, cursor)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
		days++
		cursor = cursor.AddDate(0, 0, -1)
	}

	return &Streak{
		UserID:             userID,
		Days:               days,
		LastReflectionDate: &latest,
	}, nil
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
