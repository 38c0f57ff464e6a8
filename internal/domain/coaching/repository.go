package coaching

import (
	"context"
	"time"
)

// ReflectionCalendar is the read-only view of a user's reflection history
// that streak computation needs.
type ReflectionCalendar interface {
	// LatestReflectionDate returns the calendar day of the user's most
	// recent reflection, or shared.ErrNotFound when the user has none.
	LatestReflectionDate(ctx context.Context, userID string) (time.Time, error)

	// HasReflectionOn reports whether the user logged a reflection on the
	// given calendar day.
	HasReflectionOn(ctx context.Context, userID string, day time.Time) (bool, error)
}
