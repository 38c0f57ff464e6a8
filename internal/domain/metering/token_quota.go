package metering

import (
	"time"

	"github.com/momentum/backend/internal/domain/shared"
)

// TokenQuota is the per-user, per-period token budget record. Exactly one
// record exists per (UserID, PeriodStart) pair; it is created lazily on the
// first request of a period and retained after the period ends for audit.
type TokenQuota struct {
	UserID      string    // Opaque identifier owned by the identity service
	PeriodStart time.Time // Start of the billing period; part of the composite key
	Used        int64     // Tokens consumed so far; mutated only by reconciliation
	Limit       int64     // Token ceiling for the period
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTokenQuota creates a fresh quota record for a user and period with no
// usage accrued.
func NewTokenQuota(userID string, periodStart time.Time, limit int64) (*TokenQuota, error) {
	if userID == "" {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if limit <= 0 {
		return nil, shared.NewDomainError("INVALID_LIMIT", "Limit must be positive")
	}

	now := time.Now()
	return &TokenQuota{
		UserID:      userID,
		PeriodStart: periodStart,
		Used:        0,
		Limit:       limit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanConsume reports whether consuming the given amount would stay within the
// limit. The amount is the caller's pre-call estimate; the true charge is
// applied at reconciliation.
func (q *TokenQuota) CanConsume(amount int64) bool {
	return q.Used+amount <= q.Limit
}

// Remaining returns the unused portion of the budget, never negative.
func (q *TokenQuota) Remaining() int64 {
	remaining := q.Limit - q.Used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// UsagePercent returns the fraction of the budget consumed, as a percentage.
func (q *TokenQuota) UsagePercent() float64 {
	if q.Limit <= 0 {
		return 0
	}
	return float64(q.Used) / float64(q.Limit) * 100
}

// IsExhausted reports whether the budget has been fully consumed.
func (q *TokenQuota) IsExhausted() bool {
	return q.Used >= q.Limit
}

// PeriodEnd returns the last instant of this record's billing period.
func (q *TokenQuota) PeriodEnd() time.Time {
	return q.PeriodStart.AddDate(0, 1, 0).Add(-time.Nanosecond)
}
