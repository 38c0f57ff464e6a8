package metering

import (
	"context"
	"time"
)

// TokenQuotaRepository is the persistence contract for quota records.
//
// Implementations must guarantee that GetOrCreate never produces duplicate
// rows under concurrent first-time calls for the same key, and that AddUsage
// increments the stored counter server-side rather than writing back a value
// computed from a client-held snapshot.
type TokenQuotaRepository interface {
	// GetOrCreate returns the quota record for (userID, periodStart),
	// creating it with zero usage and the given limit if it does not exist.
	// Concurrent creators for the same key converge on a single record.
	GetOrCreate(ctx context.Context, userID string, periodStart time.Time, defaultLimit int64) (*TokenQuota, error)

	// AddUsage atomically applies actualUnits to the stored usage counter
	// and returns the updated record. This is the reconciliation step and
	// must not lose updates when requests for the same user complete
	// concurrently.
	AddUsage(ctx context.Context, userID string, periodStart time.Time, actualUnits int64) (*TokenQuota, error)

	// FindByUserAndPeriod returns the quota record for (userID, periodStart)
	// or shared.ErrNotFound.
	FindByUserAndPeriod(ctx context.Context, userID string, periodStart time.Time) (*TokenQuota, error)
}
