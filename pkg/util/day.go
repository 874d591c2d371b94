package util

import "time"

// NextDailyRun returns the next occurrence of hh:mm (UTC) strictly after
// now. Used to schedule the once-daily scan at the configured close time.
func NextDailyRun(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// TradingDate truncates a timestamp to its UTC calendar day.
func TradingDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
