package metering

import (
	"context"
	"errors"
	"time"

	"github.com/momentum/backend/internal/domain/metering"
	"github.com/momentum/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// QuotaReadCache is the port to the snapshot cache for the read path
type QuotaReadCache interface {
	Get(ctx context.Context, userID string, periodStart time.Time) (*metering.TokenQuota, error)
	Set(ctx context.Context, quota *metering.TokenQuota) error
}

// UsageService serves read-only quota snapshots for dashboards
type UsageService struct {
	quotaRepo    metering.TokenQuotaRepository
	cache        QuotaReadCache
	defaultLimit int64
	logger       *zap.Logger
	now          func() time.Time
}

// NewUsageService creates a new UsageService. cache may be nil.
func NewUsageService(
	quotaRepo metering.TokenQuotaRepository,
	cache QuotaReadCache,
	defaultLimit int64,
	logger *zap.Logger,
) *UsageService {
	return &UsageService{
		quotaRepo:    quotaRepo,
		cache:        cache,
		defaultLimit: defaultLimit,
		logger:       logger.Named("usage"),
		now:          time.Now,
	}
}

// GetCurrentUsage returns the user's quota snapshot for the current period.
// Users with no record yet get an untouched default budget; reads never
// create rows.
func (s *UsageService) GetCurrentUsage(ctx context.Context, userID string) (*metering.TokenQuota, error) {
	if userID == "" {
		return nil, shared.ErrInvalidInput
	}

	periodStart := metering.MonthStart(s.now())

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, userID, periodStart); err == nil {
			return cached, nil
		} else if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Quota snapshot cache read failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}

	quota, err := s.quotaRepo.FindByUserAndPeriod(ctx, userID, periodStart)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			quota, err = metering.NewTokenQuota(userID, periodStart, s.defaultLimit)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, shared.ErrStoreUnavailable
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, quota); err != nil {
			s.logger.Warn("Quota snapshot cache write failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}

	return quota, nil
}
