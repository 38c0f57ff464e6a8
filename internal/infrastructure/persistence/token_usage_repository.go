package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/momentum/backend/internal/domain/metering"
	"github.com/momentum/backend/internal/domain/shared"
	"github.com/momentum/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTokenQuotaRepository implements TokenQuotaRepository using GORM
type GormTokenQuotaRepository struct {
	db *gorm.DB
}

// NewGormTokenQuotaRepository creates a new GormTokenQuotaRepository
func NewGormTokenQuotaRepository(db *gorm.DB) *GormTokenQuotaRepository {
	return &GormTokenQuotaRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormTokenQuotaRepository) WithTx(tx *gorm.DB) *GormTokenQuotaRepository {
	return &GormTokenQuotaRepository{db: tx}
}

// GetOrCreate returns the quota record for (userID, periodStart), inserting a
// fresh zero-usage record with the given limit when none exists. The insert
// uses ON CONFLICT DO NOTHING on the (user_id, period_start) unique index, so
// concurrent first-time callers race harmlessly and all read back the single
// surviving row.
func (r *GormTokenQuotaRepository) GetOrCreate(ctx context.Context, userID string, periodStart time.Time, defaultLimit int64) (*metering.TokenQuota, error) {
	quota, err := metering.NewTokenQuota(userID, periodStart, defaultLimit)
	if err != nil {
		return nil, err
	}

	model := models.TokenUsageModelFromEntity(quota)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "period_start"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return nil, result.Error
	}

	// Read back regardless of whether this call won the insert.
	return r.FindByUserAndPeriod(ctx, userID, periodStart)
}

// AddUsage applies actualUnits to the stored counter with a server-side
// increment and returns the updated record. The increment is a single UPDATE
// against the current stored value, so concurrent reconciliations for the
// same user never overwrite each other.
func (r *GormTokenQuotaRepository) AddUsage(ctx context.Context, userID string, periodStart time.Time, actualUnits int64) (*metering.TokenQuota, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TokenUsageModel{}).
		Where("user_id = ? AND period_start = ?", userID, periodStart).
		Updates(map[string]any{
			"tokens_used": gorm.Expr("tokens_used + ?", actualUnits),
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, shared.ErrNotFound
	}

	return r.FindByUserAndPeriod(ctx, userID, periodStart)
}

// FindByUserAndPeriod returns the quota record for (userID, periodStart)
func (r *GormTokenQuotaRepository) FindByUserAndPeriod(ctx context.Context, userID string, periodStart time.Time) (*metering.TokenQuota, error) {
	var model models.TokenUsageModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND period_start = ?", userID, periodStart).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// Ensure GormTokenQuotaRepository implements TokenQuotaRepository
var _ metering.TokenQuotaRepository = (*GormTokenQuotaRepository)(nil)
