package coaching

import (
	"context"

	"github.com/momentum/backend/internal/domain/coaching"
	"go.uber.org/zap"
)

// StreakService computes reflection streaks for users
type StreakService struct {
	calendar coaching.ReflectionCalendar
	logger   *zap.Logger
}

// NewStreakService creates a new StreakService
func NewStreakService(calendar coaching.ReflectionCalendar, logger *zap.Logger) *StreakService {
	return &StreakService{
		calendar: calendar,
		logger:   logger.Named("streak"),
	}
}

// GetStreak returns the user's current consecutive-day reflection streak
func (s *StreakService) GetStreak(ctx context.Context, userID string) (*coaching.Streak, error) {
	streak, err := coaching.CurrentStreak(ctx, s.calendar, userID)
	if err != nil {
		s.logger.Error("Failed to compute streak",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	return streak, nil
}
