package metering

import "time"

// PeriodLocation is the fixed reference timezone for billing periods.
// Periods are always resolved in UTC so that the same instant maps to the
// same period regardless of the caller's local zone.
var PeriodLocation = time.UTC

// MonthStart returns the start of the billing period containing t: midnight
// on the first day of t's calendar month, in the reference timezone.
func MonthStart(t time.Time) time.Time {
	t = t.In(PeriodLocation)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, PeriodLocation)
}

// MonthEnd returns the last instant of the billing period containing t.
func MonthEnd(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}
