package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/momentum/backend/internal/domain/coaching"
	"github.com/momentum/backend/internal/domain/shared"
	"github.com/momentum/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReflectionRepository implements ReflectionCalendar using GORM
type GormReflectionRepository struct {
	db *gorm.DB
}

// NewGormReflectionRepository creates a new GormReflectionRepository
func NewGormReflectionRepository(db *gorm.DB) *GormReflectionRepository {
	return &GormReflectionRepository{db: db}
}

// LatestReflectionDate returns the entry date of the user's most recent reflection
func (r *GormReflectionRepository) LatestReflectionDate(ctx context.Context, userID string) (time.Time, error) {
	var model models.ReflectionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("entry_date DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, shared.ErrNotFound
		}
		return time.Time{}, err
	}
	return model.EntryDate.UTC(), nil
}

// HasReflectionOn reports whether the user logged a reflection on the given
// calendar day. Entry dates are stored as timestamps, so membership is a
// half-open range check over the day.
func (r *GormReflectionRepository) HasReflectionOn(ctx context.Context, userID string, day time.Time) (bool, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ReflectionModel{}).
		Where("user_id = ? AND entry_date >= ? AND entry_date < ?", userID, dayStart, dayEnd).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormReflectionRepository implements ReflectionCalendar
var _ coaching.ReflectionCalendar = (*GormReflectionRepository)(nil)
